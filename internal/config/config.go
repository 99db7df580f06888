// Package config loads application configuration from config.yaml and
// FLEET_-prefixed environment variables, and initializes the global
// logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`
	FTP    FTPConfig    `yaml:"ftp" mapstructure:"ftp"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ImportConfig configures the reconciliation pipeline.
type ImportConfig struct {
	BadgePrefix    string `yaml:"badge_prefix" mapstructure:"badge_prefix"`
	OwnerRole      string `yaml:"owner_role" mapstructure:"owner_role"`
	RowTimeoutSecs int    `yaml:"row_timeout_secs" mapstructure:"row_timeout_secs"`
	RunTimeoutSecs int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	SynonymFile    string `yaml:"synonym_file" mapstructure:"synonym_file"`
	RetryAttempts  int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// NotifyConfig paces end-of-run notification delivery.
type NotifyConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// FTPConfig holds the roster pickup location. Credentials may also be
// embedded in the URL.
type FTPConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ServerConfig configures the import API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fleet.db")
	v.SetDefault("import.badge_prefix", "TRV")
	v.SetDefault("import.owner_role", "team_leader")
	v.SetDefault("import.row_timeout_secs", 30)
	v.SetDefault("import.run_timeout_secs", 0)
	v.SetDefault("import.retry_attempts", 3)
	v.SetDefault("notify.rate_per_sec", 10)
	v.SetDefault("notify.burst", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes:
// "import" for the pipeline commands, "serve" for the API server.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func() {
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Import.RetryAttempts < 1 || c.Import.RetryAttempts > 10 {
			problems = append(problems, "import.retry_attempts must be between 1 and 10")
		}
		if c.Notify.RatePerSec <= 0 {
			problems = append(problems, "notify.rate_per_sec must be > 0")
		}
	}

	switch mode {
	case "import":
		check()
	case "serve":
		check()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
