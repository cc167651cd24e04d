package bucketcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/jmgilman/go/bucketcache/logging"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Key encoders.
const (
	EncoderNone = "none"
	EncoderHex  = "hex"
)

// Config is the file configuration of a Client.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Listing ListingConfig `yaml:"listing"`
	Encoder string        `yaml:"encoder"` // "none" or "hex"
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig locates the remote object store.
type StorageConfig struct {
	Endpoint         string `yaml:"endpoint"` // host:port, no scheme
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	Region           string `yaml:"region"`
	UseSSL           bool   `yaml:"use_ssl"`
	AutoCreateBucket bool   `yaml:"auto_create_bucket"` // Create missing buckets on upload
}

// CacheConfig selects and tunes the key index backend.
type CacheConfig struct {
	Backend           string      `yaml:"backend"` // bolt (default), memory, redis or none
	TTL               string      `yaml:"ttl"`     // Duration string; empty never expires
	MaxSwapAttempts   int         `yaml:"max_swap_attempts"`
	CompressThreshold int         `yaml:"compress_threshold"`
	Bolt              BoltConfig  `yaml:"bolt"`
	Redis             RedisConfig `yaml:"redis"`
}

// BoltConfig configures the bolt backend.
type BoltConfig struct {
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ListingConfig tunes listing.
type ListingConfig struct {
	HydrationConcurrency int `yaml:"hydration_concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// LoadConfig reads a YAML configuration file, applies defaults and validates
// the result. ${VAR} references are expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultBoltPath returns the index database under the user cache directory,
// or "" when the platform has none.
func DefaultBoltPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bucketcache", "index.db")
}

// SetDefaults fills unset fields. The cache backend defaults to bolt at
// DefaultBoltPath so the index survives between processes, falling back to
// memory when no cache directory exists.
func (c *Config) SetDefaults() {
	if c.Cache.Bolt.Path == "" {
		c.Cache.Bolt.Path = DefaultBoltPath()
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendBolt
		if c.Cache.Bolt.Path == "" {
			c.Cache.Backend = BackendMemory
		}
	}
	if c.Cache.Bolt.Bucket == "" {
		c.Cache.Bolt.Bucket = "bucketcache"
	}
	if strings.HasPrefix(c.Cache.Bolt.Path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.Cache.Bolt.Path = filepath.Join(home, c.Cache.Bolt.Path[2:])
		}
	}
	if c.Listing.HydrationConcurrency == 0 {
		c.Listing.HydrationConcurrency = 8
	}
	if c.Encoder == "" {
		c.Encoder = EncoderNone
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Storage.Endpoint == "" {
		return invalidConfig("storage.endpoint is required")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return invalidConfig("storage.access_key and storage.secret_key are required")
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendNone:
	case BackendBolt:
		if c.Cache.Bolt.Path == "" {
			return invalidConfig("cache.bolt.path is required for the bolt backend")
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return invalidConfig("cache.redis.addr is required for the redis backend")
		}
	default:
		return invalidConfig(fmt.Sprintf("unknown cache.backend %q", c.Cache.Backend))
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if c.Cache.MaxSwapAttempts < 0 {
		return invalidConfig("cache.max_swap_attempts must not be negative")
	}
	if c.Listing.HydrationConcurrency < 1 {
		return invalidConfig("listing.hydration_concurrency must be at least 1")
	}

	switch c.Encoder {
	case EncoderNone, EncoderHex:
	default:
		return invalidConfig(fmt.Sprintf("unknown encoder %q", c.Encoder))
	}

	if _, err := logging.ParseLogLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "invalid log.level")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return invalidConfig(fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}

	return nil
}

// CacheTTL parses Cache.TTL. An empty TTL is zero, meaning no expiry.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInvalidConfig, "invalid cache.ttl")
	}
	if ttl < 0 {
		return 0, invalidConfig("cache.ttl must not be negative")
	}
	return ttl, nil
}

func invalidConfig(msg string) error {
	return errors.New(errors.CodeInvalidConfig, msg)
}
