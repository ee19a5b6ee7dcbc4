// Package config loads the service and CLI configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rezonia/fattura-renderer/internal/logger"
	"github.com/rezonia/fattura-renderer/internal/render"
)

// EnvPrefix prefixes every environment override, e.g. FATTURA_SERVER_PORT
const EnvPrefix = "FATTURA"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Render   RenderConfig
	Extract  ExtractConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `validate:"required"`
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"min=0"`
	WriteTimeout time.Duration `validate:"min=0"`
	MaxBodySize  int64         `validate:"min=1"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RenderConfig holds the default display options
type RenderConfig struct {
	Locale string `validate:"required"`
	Footer bool
	Colors render.Colors
}

// DisplayConfig converts the settings for the renderer
func (r RenderConfig) DisplayConfig() render.DisplayConfig {
	return render.DisplayConfig{Locale: r.Locale, Footer: r.Footer, Colors: r.Colors}
}

// ExtractConfig holds extraction settings
type ExtractConfig struct {
	// Tolerance is the accepted gap between declared and computed amounts
	Tolerance decimal.Decimal
}

// PipelineConfig bounds a single conversion
type PipelineConfig struct {
	Timeout time.Duration `validate:"min=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=json console"`
	Output string `validate:"required"`
}

// Logger converts the settings for the logger package
func (l LogConfig) Logger() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Output = l.Output
	return cfg
}

var validate = validator.New()

// Load reads configuration. Priority, highest first:
//  1. environment variables with the FATTURA_ prefix
//  2. the YAML file at path, or ./fattura.yaml when path is empty
//  3. built-in defaults
//
// An explicit path that cannot be read is an error, a missing default file
// is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fattura")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

// Default returns the built-in configuration, ignoring files and environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := build(v)
	if err != nil {
		// the defaults are constants, they always validate
		panic(err)
	}
	return cfg
}

func build(v *viper.Viper) (*Config, error) {
	tolerance, err := decimal.NewFromString(v.GetString("extract.tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid extract.tolerance: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			MaxBodySize:  v.GetInt64("server.max_body_size"),
		},
		Render: RenderConfig{
			Locale: v.GetString("render.locale"),
			Footer: v.GetBool("render.footer"),
			Colors: render.Colors{
				Primary:     v.GetString("render.colors.primary"),
				Text:        v.GetString("render.colors.text"),
				LighterText: v.GetString("render.colors.lighter_text"),
				FooterText:  v.GetString("render.colors.footer_text"),
				LighterGray: v.GetString("render.colors.lighter_gray"),
				TableHeader: v.GetString("render.colors.table_header"),
			},
		},
		Extract: ExtractConfig{
			Tolerance: tolerance,
		},
		Pipeline: PipelineConfig{
			Timeout: v.GetDuration("pipeline.timeout"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.max_body_size", 10<<20)

	v.SetDefault("render.locale", render.DefaultLocale)
	v.SetDefault("render.footer", true)
	for _, role := range []string{"primary", "text", "lighter_text", "footer_text", "lighter_gray", "table_header"} {
		v.SetDefault("render.colors."+role, "")
	}

	v.SetDefault("extract.tolerance", "0.01")
	v.SetDefault("pipeline.timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q check on %v", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Extract.Tolerance.IsNegative() {
		return errors.New("invalid config Config.Extract.Tolerance: must not be negative")
	}
	return nil
}
