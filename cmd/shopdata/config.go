package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/internal/logging"
	"github.com/arthur-debert/shopdata/server"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "SHOPDATA"
	envConfigFile = "SHOPDATA_CONFIG"
)

var outputFormats = []string{"table", "json", "yaml"}

// Config is the effective configuration after flags, environment and
// config file have been merged.
type Config struct {
	DataDir      string        `mapstructure:"data-dir" yaml:"data-dir"`
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Watch        bool          `mapstructure:"watch" yaml:"watch"`
	LogLevel     string        `mapstructure:"log-level" yaml:"log-level"`
	LogFormat    string        `mapstructure:"log-format" yaml:"log-format"`
	LogFile      string        `mapstructure:"log-file" yaml:"log-file,omitempty"`
	Format       string        `mapstructure:"format" yaml:"format"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout" yaml:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout" yaml:"write-timeout"`
	Locale       string        `mapstructure:"locale" yaml:"locale"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", "data")
	v.SetDefault("addr", server.DefaultAddr)
	v.SetDefault("watch", false)
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", "")
	v.SetDefault("format", "table")
	v.SetDefault("read-timeout", server.DefaultReadTimeout)
	v.SetDefault("write-timeout", server.DefaultWriteTimeout)
	v.SetDefault("locale", inspect.DefaultLocale)
}

// setupViperConfig wires environment variables and config file discovery.
// An explicit --config wins over SHOPDATA_CONFIG.
func setupViperConfig(v *viper.Viper, configFile string) error {
	if configFile == "" {
		configFile = os.Getenv(envConfigFile)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("shopdata")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.shopdata")
		v.AddConfigPath("/etc/shopdata")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Discovery may come up empty; a named file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			return nil
		}
		return NewConfigError("read config", err.Error(), suggest.CheckConfig)
	}
	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, NewConfigError("load config", err.Error(), suggest.CheckConfig)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return NewValidationError("load config", "data-dir", c.DataDir, suggest.CheckDataDir)
	}
	if !contains(outputFormats, c.Format) {
		return NewValidationError("load config", "format", c.Format,
			fmt.Sprintf("Use one of: %s", strings.Join(outputFormats, ", ")))
	}
	if !contains(logging.Levels(), strings.ToLower(c.LogLevel)) {
		return NewValidationError("load config", "log-level", c.LogLevel,
			fmt.Sprintf("Use one of: %s", strings.Join(logging.Levels(), ", ")))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
