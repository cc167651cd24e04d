// bucketcache is a command line client for S3-compatible object stores with
// a cached key index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmgilman/go/bucketcache"
	"github.com/jmgilman/go/bucketcache/errors"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

// defaultConfigFile is used when neither --config nor BUCKETCACHE_CONFIG is set.
const defaultConfigFile = "bucketcache.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	cmd := newRootCmd(opts, loadClient)
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err, opts.json)
		stop()
		os.Exit(1)
	}
}

// reportError prints err as text or, with --json, as an error response.
func reportError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(errors.ToJSON(err))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// loadClient builds a Client from the config file named by opts.
func loadClient(opts *rootOptions) (*bucketcache.Client, error) {
	path := opts.configFile
	if path == "" {
		path = os.Getenv("BUCKETCACHE_CONFIG")
	}
	if path == "" {
		path = defaultConfigFile
	}

	cfg, err := bucketcache.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	return bucketcache.NewFromConfig(*cfg)
}
