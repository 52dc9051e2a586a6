package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverLocalFS, cfg.Storage.Driver)
	assert.Equal(t, "wake-word-training-data", cfg.Storage.Bucket)
	assert.Equal(t, int64(256000), cfg.Upload.MaxContentLength)
	assert.Equal(t, IdentifierTimestamp, cfg.Upload.Identifier)
	assert.NotEmpty(t, cfg.WakeWords.Positive)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WAKEWORD_LISTEN", "127.0.0.1:9000")
	t.Setenv("WAKEWORD_STORAGE_DRIVER", "memory")
	t.Setenv("WAKEWORD_MAX_CONTENT_LENGTH", "1024")
	t.Setenv("WAKEWORD_POSITIVE", "hey_jarvis, ")
	t.Setenv("WAKEWORD_NEGATIVE", "hey_jarvy,hey_travis")
	t.Setenv("WAKEWORD_READ_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, int64(1024), cfg.Upload.MaxContentLength)
	assert.Equal(t, []string{"hey_jarvis"}, cfg.WakeWords.Positive)
	assert.Equal(t, []string{"hey_jarvy", "hey_travis"}, cfg.WakeWords.Negative)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestOverridesMap(t *testing.T) {
	cfg, err := LoadWithDefaults(map[string]interface{}{
		"storage": map[string]interface{}{"driver": "memory", "bucket": "test"},
		"upload":  map[string]interface{}{"identifier": "uuid"},
	})
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "test", cfg.Storage.Bucket)
	assert.Equal(t, IdentifierUUID, cfg.Upload.Identifier)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "s3" }, `unknown storage driver "s3"`},
		{"localfs without dir", func(c *Config) { c.Storage.Dir = "" }, "storage.dir is required"},
		{"empty bucket", func(c *Config) { c.Storage.Bucket = "" }, "storage.bucket is required"},
		{"zero max length", func(c *Config) { c.Upload.MaxContentLength = 0 }, "must be positive"},
		{"bad identifier", func(c *Config) { c.Upload.Identifier = "random" }, `unknown upload.identifier "random"`},
		{"no wake words", func(c *Config) { c.WakeWords.Positive = nil }, "at least one wake word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,, b,"))
	assert.Nil(t, SplitList(""))
}
