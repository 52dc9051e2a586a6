package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identifier modes for upload keys.
const (
	IdentifierTimestamp = "timestamp"
	IdentifierUUID      = "uuid"
)

// Storage drivers.
const (
	DriverMemory  = "memory"
	DriverLocalFS = "localfs"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Upload    UploadConfig    `mapstructure:"upload" json:"upload"`
	WakeWords WakeWordsConfig `mapstructure:"wake_words" json:"wake_words"`
	Reference ReferenceConfig `mapstructure:"reference" json:"reference"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" json:"listen"`
	AdminListen  string        `mapstructure:"admin_listen" json:"admin_listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
}

// StorageConfig selects and configures the object store backing the bucket.
type StorageConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	Dir    string `mapstructure:"dir" json:"dir"`
	Bucket string `mapstructure:"bucket" json:"bucket"`
}

// UploadConfig holds upload limits and key naming settings.
type UploadConfig struct {
	MaxContentLength int64  `mapstructure:"max_content_length" json:"max_content_length"`
	TraceHeader      string `mapstructure:"trace_header" json:"trace_header"`
	Identifier       string `mapstructure:"identifier" json:"identifier"`
}

// WakeWordsConfig lists accepted wake words. Negative entries are decoys
// collected as negative training samples.
type WakeWordsConfig struct {
	Positive []string `mapstructure:"positive" json:"positive"`
	Negative []string `mapstructure:"negative" json:"negative"`
}

// ReferenceConfig points at an external reference table file. Empty uses the
// embedded tables.
type ReferenceConfig struct {
	File string `mapstructure:"file" json:"file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "0.0.0.0:8080",
			AdminListen:  "",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			Driver: DriverLocalFS,
			Dir:    "./data",
			Bucket: "wake-word-training-data",
		},
		Upload: UploadConfig{
			MaxContentLength: 250 * 1024,
			TraceHeader:      "Cf-Ray",
			Identifier:       IdentifierTimestamp,
		},
		WakeWords: WakeWordsConfig{
			Positive: []string{"okay_nabu"},
			Negative: []string{"okay_nabooru", "hey_nabu", "okay_nab", "okay_navi", "okay_nah"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load returns a Config populated with defaults and environment overrides.
func Load() (*Config, error) {
	return LoadWithDefaults(nil)
}

// LoadWithDefaults loads configuration using defaults and optional overrides map (for tests).
func LoadWithDefaults(overrides map[string]interface{}) (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if overrides != nil {
		raw, err := json.Marshal(overrides)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverLocalFS:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for driver %q", DriverLocalFS)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if c.Upload.MaxContentLength <= 0 {
		return fmt.Errorf("upload.max_content_length must be positive")
	}

	switch c.Upload.Identifier {
	case IdentifierTimestamp, IdentifierUUID:
	default:
		return fmt.Errorf("unknown upload.identifier %q", c.Upload.Identifier)
	}

	if len(c.WakeWords.Positive) == 0 {
		return fmt.Errorf("wake_words.positive must list at least one wake word")
	}

	return nil
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WAKEWORD_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("WAKEWORD_ADMIN_LISTEN"); v != "" {
		cfg.Server.AdminListen = v
	}
	if v := os.Getenv("WAKEWORD_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("WAKEWORD_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if v := os.Getenv("WAKEWORD_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("WAKEWORD_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("WAKEWORD_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("WAKEWORD_MAX_CONTENT_LENGTH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxContentLength = n
		}
	}
	if v := os.Getenv("WAKEWORD_TRACE_HEADER"); v != "" {
		cfg.Upload.TraceHeader = v
	}
	if v := os.Getenv("WAKEWORD_IDENTIFIER"); v != "" {
		cfg.Upload.Identifier = v
	}
	if v := os.Getenv("WAKEWORD_POSITIVE"); v != "" {
		cfg.WakeWords.Positive = SplitList(v)
	}
	if v := os.Getenv("WAKEWORD_NEGATIVE"); v != "" {
		cfg.WakeWords.Negative = SplitList(v)
	}
	if v := os.Getenv("WAKEWORD_REFERENCE_FILE"); v != "" {
		cfg.Reference.File = v
	}
	if v := os.Getenv("WAKEWORD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WAKEWORD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
