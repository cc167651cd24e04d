package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmgilman/go/bucketcache"
	"github.com/jmgilman/go/bucketcache/cachestore"
	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/internal/testutil"
	"github.com/jmgilman/go/bucketcache/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	gw     *testutil.Gateway
	client *bucketcache.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := testutil.NewGateway()
	gw.AddBucket("media", false)
	return &harness{
		gw:     gw,
		client: bucketcache.New(gw, bucketcache.WithStore(cachestore.NewMemory())),
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{}
	cmd := newRootCmd(opts, func(*rootOptions) (*bucketcache.Client, error) { return h.client, nil })

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUploadAndList(t *testing.T) {
	h := newHarness(t)

	file := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(file, []byte("meow"), 0o600))

	out, err := h.run(t, "", "upload", "media", "photos/cat.jpg", file, "--meta", "owner=ops")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded photos/cat.jpg (4 bytes)")

	out, err = h.run(t, "", "ls", "media", "photos")
	require.NoError(t, err)
	assert.Equal(t, "photos/cat.jpg\n", out)
	assert.Zero(t, h.gw.CallCount(testutil.OpList))

	out, err = h.run(t, "", "--json", "ls", "media", "photos/", "--exclude-cache")
	require.NoError(t, err)
	var res listing.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, listing.SourceRemote, res.Source)
	assert.Equal(t, []string{"photos/cat.jpg"}, res.Keys)
}

func TestUploadFromStdin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "hello", "upload", "media", "notes/a.txt", "-")
	require.NoError(t, err)

	info, err := h.client.GetItem(context.Background(), "media", "notes/a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
}

func TestUploadRejectsBadMeta(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "x", "upload", "media", "a.txt", "-", "--meta", "novalue")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestLsHydrated(t *testing.T) {
	h := newHarness(t)
	h.gw.Seed("media", "a/b.txt", "a/c.txt")

	out, err := h.run(t, "", "ls", "media", "a/", "--hydrate")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "a/b.txt")
	assert.Contains(t, out, "a/c.txt")
}

func TestGet(t *testing.T) {
	h := newHarness(t)
	h.gw.Seed("media", "a/b.txt")

	out, err := h.run(t, "", "get", "media", "a/b.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "a/b.txt")
	assert.Contains(t, out, "Size:")

	_, err = h.run(t, "", "get", "media", "missing.txt")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestRmAndCacheFlush(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.run(t, "1", "upload", "media", "a.txt", "-")
	require.NoError(t, err)
	_, err = h.run(t, "2", "upload", "media", "b.txt", "-")
	require.NoError(t, err)

	out, err := h.run(t, "", "rm", "media", "a.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted a.txt")
	assert.Equal(t, []string{"b.txt"}, h.client.Index().Keys(ctx, "media"))

	_, err = h.run(t, "", "cache", "flush", "media")
	require.NoError(t, err)
	assert.Empty(t, h.client.Index().Get(ctx, "media"))
}

func TestRestore(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "restore", "media", "old.zip", "--days", "3", "--tier", "Bulk")
	require.NoError(t, err)
	restores := h.gw.Restores()
	require.Len(t, restores, 1)
	assert.Equal(t, 3, restores[0].Days)
	assert.Equal(t, "Bulk", restores[0].Tier)

	_, err = h.run(t, "", "restore", "media", "old.zip", "--tier", "Instant")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestLink(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "--json", "link", "media", "a.txt", "--expires", "10m")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Contains(t, body["url"], "X-Amz-Expires=600")
}

func TestBucketCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "bucket", "create", "fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Bucket fresh ready")

	out, err = h.run(t, "", "bucket", "delete", "fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "successfully deleted")

	_, err = h.run(t, "", "bucket", "delete", "fresh")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestArgsValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "ls")
	assert.Error(t, err)
	_, err = h.run(t, "", "get", "media")
	assert.Error(t, err)
}

func TestReportError(t *testing.T) {
	err := errors.WithStatusCode(errors.New(errors.CodeForbidden, "access denied"), 403)

	var text bytes.Buffer
	reportError(&text, err, false)
	assert.Equal(t, "Error: [FORBIDDEN] access denied\n", text.String())

	var js bytes.Buffer
	reportError(&js, err, true)
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(js.Bytes(), &resp))
	assert.Equal(t, "FORBIDDEN", resp.Code)
	assert.Equal(t, "access denied", resp.Message)
	assert.Equal(t, float64(403), resp.Context["status_code"])
}

func TestLoadClient_MissingConfig(t *testing.T) {
	_, err := loadClient(&rootOptions{configFile: filepath.Join(t.TempDir(), "none.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
