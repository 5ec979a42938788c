package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/fileboxes/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FILEBOXES_ARCHIVE_PATH.
const EnvPrefix = "FILEBOXES"

type Config struct {
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Server   ServerConfig   `mapstructure:"server"`
}

type ArchiveConfig struct {
	Path  string `mapstructure:"path"`
	Fresh bool   `mapstructure:"fresh"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SnapshotConfig controls archive snapshots.
type SnapshotConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// BeforeRewrite snapshots the archive before every remove or replace.
	BeforeRewrite bool          `mapstructure:"before_rewrite"`
	Compression   string        `mapstructure:"compression"` // "none", "lz4" or "zstd"
	Retain        int           `mapstructure:"retain"`      // 0 keeps all
	Storage       StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Textfile is where the CLI dumps metrics on exit, for the
	// node_exporter textfile collector.
	Textfile string `mapstructure:"textfile"`
}

// ServerConfig configures the HTTP API served by `fileboxes serve`.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"` // empty disables auth
}

// Load reads configuration from path on top of Defaults. An empty path
// loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("config file %s: %w", path, err))
			}
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.fresh", d.Archive.Fresh)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("snapshot.enabled", d.Snapshot.Enabled)
	v.SetDefault("snapshot.before_rewrite", d.Snapshot.BeforeRewrite)
	v.SetDefault("snapshot.compression", d.Snapshot.Compression)
	v.SetDefault("snapshot.retain", d.Snapshot.Retain)
	v.SetDefault("snapshot.storage.type", d.Snapshot.Storage.Type)
	v.SetDefault("snapshot.storage.path", d.Snapshot.Storage.Path)
	v.SetDefault("snapshot.storage.s3.bucket", d.Snapshot.Storage.S3.Bucket)
	v.SetDefault("snapshot.storage.s3.endpoint", d.Snapshot.Storage.S3.Endpoint)
	v.SetDefault("snapshot.storage.s3.region", d.Snapshot.Storage.S3.Region)
	v.SetDefault("snapshot.storage.s3.access_key", d.Snapshot.Storage.S3.AccessKey)
	v.SetDefault("snapshot.storage.s3.secret_key", d.Snapshot.Storage.S3.SecretKey)
	v.SetDefault("snapshot.storage.s3.prefix", d.Snapshot.Storage.S3.Prefix)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Path: "fileboxes.zip",
		},
		Log: LogConfig{
			Level: "info",
		},
		Snapshot: SnapshotConfig{
			Enabled:       false,
			BeforeRewrite: true,
			Compression:   "zstd",
			Retain:        10,
			Storage: StorageConfig{
				Type: "localfs",
				Path: ".fileboxes/snapshots",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Archive.Path == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.path is required"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics.textfile required when metrics are enabled"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if !c.Snapshot.Enabled {
		return nil
	}

	switch c.Snapshot.Compression {
	case "", "none", "lz4", "zstd":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("snapshot.compression must be none, lz4 or zstd, got %q", c.Snapshot.Compression))
	}
	if c.Snapshot.Retain < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("snapshot.retain cannot be negative, got %d", c.Snapshot.Retain))
	}

	switch c.Snapshot.Storage.Type {
	case "localfs":
		if c.Snapshot.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("snapshot.storage.path required when type is localfs"))
		}
	case "s3":
		if c.Snapshot.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("snapshot.storage.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("snapshot.storage.type must be localfs or s3, got %q", c.Snapshot.Storage.Type))
	}

	return nil
}
