package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Container string `mapstructure:"container"`

	// Azure Blob
	ConnectionString string `mapstructure:"connection_string"`
	AccountURL       string `mapstructure:"account_url"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// Local
	LocalPath string `mapstructure:"local_path"`
}

type UploadConfig struct {
	// Prefix is joined with the staging file's base name when an upload
	// asks for the remote name to follow the local file.
	Prefix   string `mapstructure:"prefix"`
	Compress bool   `mapstructure:"compress"`
}

type SweepConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Schedule             string `mapstructure:"schedule"`
	RetentionDays        int    `mapstructure:"retention_days"`
	MaxConcurrentDeletes int    `mapstructure:"max_concurrent_deletes"`
	SkipUndated          bool   `mapstructure:"skip_undated"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load reads the YAML file at path (optional when empty), applies
// environment overrides and validates the result. A .env file in the
// working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BLOBBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key is registered so AutomaticEnv can override it even when
	// no config file is read.
	v.SetDefault("app.name", "blobber")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")

	v.SetDefault("storage.type", "azure")
	v.SetDefault("storage.container", "")
	v.SetDefault("storage.connection_string", "")
	v.SetDefault("storage.account_url", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.local_path", "./data/blobs")

	v.SetDefault("upload.prefix", "")
	v.SetDefault("upload.compress", false)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "0 0 3 * * *")
	v.SetDefault("sweep.retention_days", 30)
	v.SetDefault("sweep.max_concurrent_deletes", 16)
	v.SetDefault("sweep.skip_undated", false)

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "blobber")

	if err := v.BindEnv("storage.connection_string", "BLOBBER_STORAGE_CONNECTION_STRING", "AZURE_STORAGE_CONNECTION_STRING"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Storage.Container == "" {
		return fmt.Errorf("storage.container is required")
	}

	switch c.Storage.Type {
	case "azure":
		if c.Storage.ConnectionString == "" && c.Storage.AccountURL == "" {
			return fmt.Errorf("storage: connection_string or account_url is required for azure")
		}
	case "s3":
		if c.Storage.Region == "" {
			return fmt.Errorf("storage.region is required for s3")
		}
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for local")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported", c.Storage.Type)
	}

	if c.Sweep.RetentionDays < 1 {
		return fmt.Errorf("sweep.retention_days must be at least 1")
	}
	if c.Sweep.MaxConcurrentDeletes < 1 {
		return fmt.Errorf("sweep.max_concurrent_deletes must be at least 1")
	}
	if c.Sweep.Enabled && c.Sweep.Schedule == "" {
		return fmt.Errorf("sweep.schedule is required when enabled")
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
		}
	}

	return nil
}
