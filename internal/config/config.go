// Package config handles configuration loading and management.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for banana-slides.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Images    ImagesConfig    `mapstructure:"images"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Review    ReviewConfig    `mapstructure:"review"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AnthropicConfig holds text-generation provider settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default text model when set.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes text calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS credentials profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
}

// GeminiConfig holds image-generation provider settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default image model when set.
	Model string `mapstructure:"model"`
}

// DefaultsConfig holds default values for new projects.
type DefaultsConfig struct {
	// Language is the output language ("en", "zh", "ja", or "auto").
	Language string `mapstructure:"language"`
	// Pages is the page count hint passed to the outline generator.
	Pages int `mapstructure:"pages"`
}

// ImagesConfig holds slide illustration settings.
type ImagesConfig struct {
	// Enabled turns per-slide image generation on or off.
	Enabled bool `mapstructure:"enabled"`
	// AspectRatio is the requested slide image shape, e.g. "16:9".
	AspectRatio string `mapstructure:"aspect_ratio"`
}

// WorkersConfig holds worker pool sizes.
type WorkersConfig struct {
	Content int `mapstructure:"content"`
	Image   int `mapstructure:"image"`
}

// RetryConfig holds backoff and attempt ceilings.
type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ReviewConfig holds review gate settings.
type ReviewConfig struct {
	// RevisionCeiling is how many revise cycles a slide may absorb.
	RevisionCeiling int `mapstructure:"revision_ceiling"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Format is the default artifact type, "pptx" or "pdf".
	Format string `mapstructure:"format"`
	// FailureTolerance is how many failed slides an export absorbs as
	// placeholder pages before refusing.
	FailureTolerance int `mapstructure:"failure_tolerance"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GEMINI_API_KEY)
// 2. Project config (.banana-slides.yaml in current directory or parent)
// 3. User config (~/.config/banana-slides/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Gemini.APIKey = os.ExpandEnv(cfg.Gemini.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Gemini.APIKey = os.ExpandEnv(cfg.Gemini.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("gemini.api_key", cfg.Gemini.APIKey)
	v.Set("gemini.model", cfg.Gemini.Model)
	v.Set("defaults.language", cfg.Defaults.Language)
	v.Set("defaults.pages", cfg.Defaults.Pages)
	v.Set("images.enabled", cfg.Images.Enabled)
	v.Set("images.aspect_ratio", cfg.Images.AspectRatio)
	v.Set("workers.content", cfg.Workers.Content)
	v.Set("workers.image", cfg.Workers.Image)
	v.Set("retry.base_delay", cfg.Retry.BaseDelay.String())
	v.Set("retry.max_delay", cfg.Retry.MaxDelay.String())
	v.Set("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.Set("review.revision_ceiling", cfg.Review.RevisionCeiling)
	v.Set("export.format", cfg.Export.Format)
	v.Set("export.failure_tolerance", cfg.Export.FailureTolerance)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "us-east-1")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "")

	v.SetDefault("defaults.language", "auto")
	v.SetDefault("defaults.pages", 0)

	v.SetDefault("images.enabled", true)
	v.SetDefault("images.aspect_ratio", "16:9")

	v.SetDefault("workers.content", 3)
	v.SetDefault("workers.image", 2)

	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.max_attempts", 3)

	v.SetDefault("review.revision_ceiling", 2)

	v.SetDefault("export.format", "pptx")
	v.SetDefault("export.failure_tolerance", 0)
}

// getUserConfigDir returns the XDG config directory.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "banana-slides")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "banana-slides")
	}
	return filepath.Join(home, ".config", "banana-slides")
}

// findProjectConfig searches for .banana-slides.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".banana-slides.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			AWSRegion: "us-east-1",
		},
		Defaults: DefaultsConfig{
			Language: "auto",
		},
		Images: ImagesConfig{
			Enabled:     true,
			AspectRatio: "16:9",
		},
		Workers: WorkersConfig{
			Content: 3,
			Image:   2,
		},
		Retry: RetryConfig{
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			MaxAttempts: 3,
		},
		Review: ReviewConfig{
			RevisionCeiling: 2,
		},
		Export: ExportConfig{
			Format:           "pptx",
			FailureTolerance: 0,
		},
	}
}

// Validate checks the orchestrator-facing configuration surface.
func (c *Config) Validate() error {
	if c.Workers.Content < 1 {
		return fmt.Errorf("workers.content must be >= 1, got %d", c.Workers.Content)
	}
	if c.Workers.Image < 1 {
		return fmt.Errorf("workers.image must be >= 1, got %d", c.Workers.Image)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %s", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.base_delay")
	}
	if c.Review.RevisionCeiling < 0 {
		return fmt.Errorf("review.revision_ceiling must be >= 0, got %d", c.Review.RevisionCeiling)
	}
	if c.Export.FailureTolerance < 0 {
		return fmt.Errorf("export.failure_tolerance must be >= 0, got %d", c.Export.FailureTolerance)
	}
	if c.Export.Format != "pptx" && c.Export.Format != "pdf" {
		return fmt.Errorf("export.format must be pptx or pdf, got %q", c.Export.Format)
	}
	if err := validAspectRatio(c.Images.AspectRatio); err != nil {
		return err
	}
	switch c.Defaults.Language {
	case "en", "zh", "ja", "auto":
	default:
		return fmt.Errorf("defaults.language must be en, zh, ja, or auto, got %q", c.Defaults.Language)
	}
	return nil
}

// validAspectRatio accepts "W:H" with positive integer terms.
func validAspectRatio(s string) error {
	var w, h int
	if _, err := fmt.Sscanf(s, "%d:%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return fmt.Errorf("images.aspect_ratio must look like 16:9, got %q", s)
	}
	return nil
}
