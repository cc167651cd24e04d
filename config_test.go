package bucketcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmgilman/go/bucketcache/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{Storage: StorageConfig{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk"}}
	cfg.SetDefaults()
	return cfg
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("BUCKETCACHE_TEST_SECRET", "s3cr3t")

	dir := t.TempDir()
	path := filepath.Join(dir, "bucketcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  endpoint: minio.local:9000
  access_key: admin
  secret_key: ${BUCKETCACHE_TEST_SECRET}
  use_ssl: true
  auto_create_bucket: true
cache:
  backend: redis
  ttl: 10m
  redis:
    addr: localhost:6379
    db: 2
listing:
  hydration_concurrency: 4
encoder: hex
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "minio.local:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
	assert.True(t, cfg.Storage.UseSSL)
	assert.True(t, cfg.Storage.AutoCreateBucket)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, 4, cfg.Listing.HydrationConcurrency)
	assert.Equal(t, EncoderHex, cfg.Encoder)
	assert.Equal(t, "json", cfg.Log.Format)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cacheDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheDir)
	t.Setenv("HOME", cacheDir)
	userCache, err := os.UserCacheDir()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  endpoint: localhost:9000
  access_key: ak
  secret_key: sk
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(userCache, "bucketcache", "index.db"), cfg.Cache.Bolt.Path)
	assert.Equal(t, 8, cfg.Listing.HydrationConcurrency)
	assert.Equal(t, EncoderNone, cfg.Encoder)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestConfig_SetDefaultsKeepsExplicitBackend(t *testing.T) {
	cfg := Config{Cache: CacheConfig{Backend: BackendMemory}}
	cfg.SetDefaults()
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)

	cfg = Config{Cache: CacheConfig{Bolt: BoltConfig{Path: "/var/lib/bucketcache/index.db"}}}
	cfg.SetDefaults()
	assert.Equal(t, BackendBolt, cfg.Cache.Backend)
	assert.Equal(t, "/var/lib/bucketcache/index.db", cfg.Cache.Bolt.Path)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing endpoint", func(c *Config) { c.Storage.Endpoint = "" }, "storage.endpoint"},
		{"missing secret", func(c *Config) { c.Storage.SecretKey = "" }, "secret_key"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"bolt without path", func(c *Config) {
			c.Cache.Backend = BackendBolt
			c.Cache.Bolt.Path = ""
		}, "cache.bolt.path"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = BackendRedis }, "cache.redis.addr"},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "soon" }, "cache.ttl"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = "-1m" }, "cache.ttl"},
		{"zero concurrency", func(c *Config) { c.Listing.HydrationConcurrency = 0 }, "hydration_concurrency"},
		{"unknown encoder", func(c *Config) { c.Encoder = "base64" }, "encoder"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"none backend", func(c *Config) { c.Cache.Backend = BackendNone }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
		})
	}
}

func TestConfig_ExpandsHomeInBoltPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg := Config{Cache: CacheConfig{Bolt: BoltConfig{Path: "~/cache.db"}}}
	cfg.SetDefaults()
	assert.Equal(t, filepath.Join(home, "cache.db"), cfg.Cache.Bolt.Path)
}
