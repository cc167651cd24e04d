// Package minio implements gateway.Gateway for MinIO and other
// S3-compatible object stores.
package minio

import (
	"fmt"

	"github.com/jmgilman/go/bucketcache/logging"
	"github.com/jmgilman/go/bucketcache/metrics"
	"github.com/minio/minio-go/v7"
)

// Config holds the gateway configuration.
type Config struct {
	// Endpoint is the server address (e.g., "localhost:9000")
	Endpoint string

	// AccessKey is the access key ID for authentication
	AccessKey string

	// SecretKey is the secret access key for authentication
	SecretKey string

	// UseSSL enables HTTPS connections
	UseSSL bool

	// Region is used when creating buckets and signing requests.
	// Empty lets the server pick.
	Region string

	// Client is an optional pre-configured MinIO client.
	// If provided, Endpoint/AccessKey/SecretKey are ignored.
	Client *minio.Client

	// Logger receives debug output for each remote call. Optional.
	Logger *logging.Logger

	// Metrics records remote call latency. Optional.
	Metrics *metrics.Metrics
}

// validate checks if the configuration is valid.
// Either Client OR (Endpoint + AccessKey + SecretKey) must be provided.
func (c *Config) validate() error {
	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required when client is not provided")
	}

	return nil
}
