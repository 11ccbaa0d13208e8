// Package config loads munger settings from config.yaml and MUNGER_* env vars.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/internal/proj"
	"github.com/sells-group/geoclient-munger/pkg/munger"
)

// Config holds the full application configuration.
type Config struct {
	WorkingCRS string        `yaml:"working_crs" mapstructure:"working_crs"`
	Logging    bool          `yaml:"logging" mapstructure:"logging"`
	Layers     []LayerConfig `yaml:"layers" mapstructure:"layers"`
	Fetch      FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Server     ServerConfig  `yaml:"server" mapstructure:"server"`
	Log        LogConfig     `yaml:"log" mapstructure:"log"`
}

// LayerConfig is one reference layer entry.
type LayerConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	URL         string `yaml:"url" mapstructure:"url"`
	Format      string `yaml:"format" mapstructure:"format"`
	SourceCRS   string `yaml:"source_crs" mapstructure:"source_crs"`
	IDProperty  string `yaml:"id_property" mapstructure:"id_property"`
	TargetField string `yaml:"target_field" mapstructure:"target_field"`
	Logging     *bool  `yaml:"logging" mapstructure:"logging"`
}

// FetchConfig configures layer retrieval.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path
// searches the working directory for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MUNGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("working_crs", munger.DefaultWorkingCRS)
	v.SetDefault("logging", false)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", fetcher.DefaultMaxRetries)
	v.SetDefault("fetch.user_agent", "geoclient-munger/1.0")
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless a path was given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode: "munge",
// "serve" or "layers".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "munge", "layers":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if _, err := proj.Normalize(c.WorkingCRS); err != nil {
		errs = append(errs, fmt.Sprintf("working_crs %q is not supported", c.WorkingCRS))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch.max_retries must be >= 0")
	}
	if len(c.Layers) == 0 {
		errs = append(errs, "at least one layer is required")
	}

	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		label := fmt.Sprintf("layers[%d]", i)
		if l.Name != "" {
			label = fmt.Sprintf("layers[%d] (%s)", i, l.Name)
			if seen[l.Name] {
				errs = append(errs, label+": duplicate name")
			}
			seen[l.Name] = true
		}
		if l.URL == "" {
			errs = append(errs, label+": url is required")
			continue
		}
		if err := l.Layer().Validate(); err != nil {
			errs = append(errs, label+": "+err.Error())
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Layer converts the entry into a munger layer config.
func (l LayerConfig) Layer() munger.LayerConfig {
	return munger.LayerConfig{
		Name:        l.Name,
		SourceCRS:   l.SourceCRS,
		IDProperty:  l.IDProperty,
		TargetField: l.TargetField,
		Logging:     l.Logging,
		URL:         l.URL,
		Format:      munger.Format(l.Format),
	}
}

// MungerLayers converts every layer entry, keeping order.
func (c *Config) MungerLayers() []munger.LayerConfig {
	out := make([]munger.LayerConfig, len(c.Layers))
	for i, l := range c.Layers {
		out[i] = l.Layer()
	}
	return out
}

// HTTPOptions returns the HTTP fetcher options.
func (f FetchConfig) HTTPOptions() fetcher.HTTPOptions {
	return fetcher.HTTPOptions{
		UserAgent:  f.UserAgent,
		Timeout:    time.Duration(f.TimeoutSecs) * time.Second,
		MaxRetries: f.MaxRetries,
	}
}

// FTPOptions returns the FTP fetcher options.
func (f FetchConfig) FTPOptions() fetcher.FTPOptions {
	return fetcher.FTPOptions{Timeout: time.Duration(f.TimeoutSecs) * time.Second}
}

// MungerOptions returns the munger options implied by the configuration.
func (c *Config) MungerOptions() []munger.Option {
	return []munger.Option{
		munger.WithWorkingCRS(c.WorkingCRS),
		munger.WithLogging(c.Logging),
		munger.WithFetcher(fetcher.NewMux(c.Fetch.HTTPOptions(), c.Fetch.FTPOptions())),
		munger.WithTempDir(c.Fetch.TempDir),
	}
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
