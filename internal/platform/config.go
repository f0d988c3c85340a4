package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigName is the base name of the config file (promptvault.yaml).
const ConfigName = "promptvault"

// EnvPrefix prefixes environment overrides, e.g. PROMPTVAULT_STORE_ADAPTER.
const EnvPrefix = "PROMPTVAULT"

// Config is the file/env configuration used by the CLI.
type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Import ImportConfig `mapstructure:"import"`
	Backup BackupConfig `mapstructure:"backup"`
	Log    LogConfig    `mapstructure:"log"`
}

type StoreConfig struct {
	Adapter string `mapstructure:"adapter"`
	Path    string `mapstructure:"path"`
}

type ImportConfig struct {
	OnConflict      string        `mapstructure:"on_conflict"`
	DecisionTimeout time.Duration `mapstructure:"decision_timeout"`
}

type BackupConfig struct {
	Schedule   string `mapstructure:"schedule"`
	Dir        string `mapstructure:"dir"`
	Keep       int    `mapstructure:"keep"`
	Versioning bool   `mapstructure:"versioning"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the configuration used when no file or env sets a key.
func DefaultConfig() Config {
	return Config{
		Store:  StoreConfig{Adapter: AdapterFS},
		Import: ImportConfig{OnConflict: "ask"},
		Backup: BackupConfig{Schedule: "@daily", Dir: "backups", Keep: 10},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads cfgFile, or promptvault.yaml from the working directory
// and $HOME/.promptvault, then applies PROMPTVAULT_* overrides. A missing
// default file is not an error.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("store.adapter", d.Store.Adapter)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("import.on_conflict", d.Import.OnConflict)
	v.SetDefault("import.decision_timeout", d.Import.DecisionTimeout)
	v.SetDefault("backup.schedule", d.Backup.Schedule)
	v.SetDefault("backup.dir", d.Backup.Dir)
	v.SetDefault("backup.keep", d.Backup.Keep)
	v.SetDefault("backup.versioning", d.Backup.Versioning)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptvault")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch c.Store.Adapter {
	case AdapterFS, AdapterSQLite, AdapterMemory:
	default:
		return fmt.Errorf("invalid store.adapter %q", c.Store.Adapter)
	}
	switch c.Import.OnConflict {
	case "keep", "overwrite", "ask":
	default:
		return fmt.Errorf("invalid import.on_conflict %q", c.Import.OnConflict)
	}
	if c.Import.DecisionTimeout < 0 {
		return fmt.Errorf("invalid import.decision_timeout %s", c.Import.DecisionTimeout)
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("invalid backup.keep %d", c.Backup.Keep)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return l, nil
}

// Options converts the store section into service options.
func (c *Config) Options() []Option {
	return []Option{
		WithAdapter(c.Store.Adapter),
		WithDecisionTimeout(c.Import.DecisionTimeout),
	}
}
