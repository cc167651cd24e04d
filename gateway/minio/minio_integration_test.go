package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/gateway"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testBucket = "test-bucket"

// setupTestMinIO starts a MinIO container and returns a Gateway with an
// empty test bucket.
func setupTestMinIO(t *testing.T) *Gateway {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() { _ = minioC.Terminate(ctx) })

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err, "failed to create MinIO client")

	gw, err := New(Config{Client: client})
	require.NoError(t, err)
	require.NoError(t, gw.CreateBucket(ctx, testBucket))

	return gw
}

func put(t *testing.T, gw *Gateway, key, body string) gateway.PutResult {
	t.Helper()
	res, err := gw.PutObject(context.Background(), gateway.PutInput{
		Bucket:      testBucket,
		Key:         key,
		Body:        bytes.NewReader([]byte(body)),
		Size:        int64(len(body)),
		ContentType: "text/plain",
		Metadata:    map[string]string{"original_name": key},
	})
	require.NoError(t, err)
	return res
}

func TestIntegration_Gateway(t *testing.T) {
	gw := setupTestMinIO(t)
	ctx := context.Background()

	put(t, gw, "a/b.txt", "hello")
	put(t, gw, "a/c/d.txt", "world")
	put(t, gw, "e.txt", "root")

	t.Run("bucket exists", func(t *testing.T) {
		ok, err := gw.BucketExists(ctx, testBucket)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = gw.BucketExists(ctx, "missing-bucket")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("recursive list", func(t *testing.T) {
		objs, err := gw.List(ctx, testBucket, gateway.ListOptions{Prefix: "a/"})
		require.NoError(t, err)

		var keys []string
		for _, o := range objs {
			keys = append(keys, o.Key)
		}
		assert.ElementsMatch(t, []string{"a/b.txt", "a/c/d.txt"}, keys)
	})

	t.Run("delimited list", func(t *testing.T) {
		objs, err := gw.List(ctx, testBucket, gateway.ListOptions{Prefix: "a/", Delimiter: "/"})
		require.NoError(t, err)

		var keys []string
		for _, o := range objs {
			keys = append(keys, o.Key)
		}
		assert.ElementsMatch(t, []string{"a/b.txt", "a/c/"}, keys)
	})

	t.Run("get item", func(t *testing.T) {
		info, err := gw.GetItem(ctx, testBucket, "a/b.txt", "")
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Size)
		assert.Equal(t, "text/plain", info.ContentType)
		assert.Equal(t, testBucket, info.Bucket)
	})

	t.Run("get missing item", func(t *testing.T) {
		_, err := gw.GetItem(ctx, testBucket, "nope.txt", "")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeNotFound))
		assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))
	})

	t.Run("presign", func(t *testing.T) {
		u, err := gw.PresignURL(ctx, testBucket, "e.txt", time.Minute)
		require.NoError(t, err)

		resp, err := http.Get(u.String())
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "root", string(body))
	})

	t.Run("versioning disabled", func(t *testing.T) {
		ok, err := gw.IsVersioned(ctx, testBucket)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete object", func(t *testing.T) {
		require.NoError(t, gw.DeleteObject(ctx, testBucket, "e.txt", ""))
		_, err := gw.GetItem(ctx, testBucket, "e.txt", "")
		assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	})

	t.Run("delete non-empty bucket", func(t *testing.T) {
		err := gw.DeleteBucket(ctx, testBucket)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeConflict))
	})
}

func TestIntegration_Versions(t *testing.T) {
	gw := setupTestMinIO(t)
	ctx := context.Background()

	err := gw.Client().EnableVersioning(ctx, testBucket)
	require.NoError(t, err)

	ok, err := gw.IsVersioned(ctx, testBucket)
	require.NoError(t, err)
	assert.True(t, ok)

	first := put(t, gw, "v.txt", "one")
	second := put(t, gw, "v.txt", "two")
	require.NotEqual(t, first.VersionID, second.VersionID)

	versions, err := gw.ListVersions(ctx, testBucket, gateway.ListOptions{Prefix: "v.txt"})
	require.NoError(t, err)
	require.Len(t, versions, 2)

	var ids []string
	for _, v := range versions {
		ids = append(ids, v.VersionID)
		if v.VersionID == second.VersionID {
			assert.True(t, v.IsLatest)
		}
	}
	assert.ElementsMatch(t, []string{first.VersionID, second.VersionID}, ids)

	info, err := gw.GetItem(ctx, testBucket, "v.txt", first.VersionID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, first.VersionID, info.VersionID)
}
