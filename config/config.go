// Package config defines the typed processing configuration, its defaults,
// YAML file loading, and validation. Every recognized option is an explicit
// struct field; unknown or out-of-range values fail at load time with typed
// errors. Precedence is handled by the CLI: flags override file values, file
// values override defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sort order names accepted in config files and on the command line.
const (
	SortByName   = "name"
	SortByDate   = "date"
	SortBySize   = "size"
	SortByCustom = "custom"
)

// Config enumerates every recognized processing option.
type Config struct {
	MaxWorkers            int      `mapstructure:"max_workers"`
	CompressionLevel      int      `mapstructure:"compression_level"`
	AddBookmarks          bool     `mapstructure:"add_bookmarks"`
	AddMetadata           bool     `mapstructure:"add_metadata"`
	OCREnabled            bool     `mapstructure:"ocr_enabled"`
	OCRLanguage           string   `mapstructure:"ocr_language"`
	OCRTimeoutSeconds     int      `mapstructure:"ocr_timeout_seconds"`
	ConvertTimeoutSeconds int      `mapstructure:"convert_timeout_seconds"`
	IncludePatterns       []string `mapstructure:"include_patterns"`
	ExcludePatterns       []string `mapstructure:"exclude_patterns"`
	SortOrder             string   `mapstructure:"sort_order"`
	CustomOrderFile       string   `mapstructure:"custom_order_file"`
	Password              string   `mapstructure:"password"`
	LogFile               string   `mapstructure:"log_file"`
	FailFast              bool     `mapstructure:"fail_fast"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxWorkers:            4,
		CompressionLevel:      5,
		AddBookmarks:          true,
		AddMetadata:           true,
		OCREnabled:            true,
		OCRLanguage:           "eng",
		OCRTimeoutSeconds:     300,
		ConvertTimeoutSeconds: 120,
		IncludePatterns:       []string{"*.pdf", "*.doc", "*.docx"},
		ExcludePatterns:       nil,
		SortOrder:             SortByName,
	}
}

// FieldError reports a configuration value that failed validation.
type FieldError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Load reads a YAML configuration file on top of the defaults and validates
// the result. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the configuration as YAML, used by init-config and
// --save-config.
func (c *Config) Save(path string) error {
	v := viper.New()
	setDefaults(v, c)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("max_workers", c.MaxWorkers)
	v.SetDefault("compression_level", c.CompressionLevel)
	v.SetDefault("add_bookmarks", c.AddBookmarks)
	v.SetDefault("add_metadata", c.AddMetadata)
	v.SetDefault("ocr_enabled", c.OCREnabled)
	v.SetDefault("ocr_language", c.OCRLanguage)
	v.SetDefault("ocr_timeout_seconds", c.OCRTimeoutSeconds)
	v.SetDefault("convert_timeout_seconds", c.ConvertTimeoutSeconds)
	v.SetDefault("include_patterns", c.IncludePatterns)
	v.SetDefault("exclude_patterns", c.ExcludePatterns)
	v.SetDefault("sort_order", c.SortOrder)
	v.SetDefault("custom_order_file", c.CustomOrderFile)
	v.SetDefault("password", c.Password)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("fail_fast", c.FailFast)
}

// Validate checks every option once at load time.
func (c *Config) Validate() error {
	if c.MaxWorkers < 1 {
		return &FieldError{Field: "max_workers", Value: c.MaxWorkers, Reason: "must be a positive integer"}
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		return &FieldError{Field: "compression_level", Value: c.CompressionLevel, Reason: "must be between 1 and 9"}
	}
	switch c.SortOrder {
	case SortByName, SortByDate, SortBySize:
	case SortByCustom:
		if c.CustomOrderFile == "" {
			return &FieldError{Field: "custom_order_file", Value: "", Reason: "required when sort_order is custom"}
		}
	default:
		return &FieldError{Field: "sort_order", Value: c.SortOrder, Reason: "must be one of name, date, size, custom"}
	}
	if c.OCREnabled && c.OCRLanguage == "" {
		return &FieldError{Field: "ocr_language", Value: "", Reason: "required when ocr_enabled is true"}
	}
	if c.OCRTimeoutSeconds < 1 {
		return &FieldError{Field: "ocr_timeout_seconds", Value: c.OCRTimeoutSeconds, Reason: "must be a positive integer"}
	}
	if c.ConvertTimeoutSeconds < 1 {
		return &FieldError{Field: "convert_timeout_seconds", Value: c.ConvertTimeoutSeconds, Reason: "must be a positive integer"}
	}
	if len(c.IncludePatterns) == 0 {
		return &FieldError{Field: "include_patterns", Value: c.IncludePatterns, Reason: "at least one pattern is required"}
	}
	for _, p := range append(append([]string(nil), c.IncludePatterns...), c.ExcludePatterns...) {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return &FieldError{Field: "include_patterns/exclude_patterns", Value: p, Reason: "malformed glob pattern"}
		}
	}
	return nil
}

// OCRTimeout returns the per-task OCR bound.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCRTimeoutSeconds) * time.Second
}

// ConvertTimeout returns the per-task conversion bound.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.ConvertTimeoutSeconds) * time.Second
}
