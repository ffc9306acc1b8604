package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"banana-slides/internal/ai"
	"banana-slides/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and edit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the user config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and probe the configured providers",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("User config:    %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Printf("Project config: %s\n", p)
	}
	fmt.Println()

	fmt.Printf("anthropic.api_key         %s (%s)\n", config.MaskAPIKey(cfg.Anthropic.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("anthropic.model           %s\n", orDefault(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_aws_bedrock %t\n", cfg.Anthropic.UseAWSBedrock)
	if cfg.Anthropic.UseAWSBedrock {
		fmt.Printf("anthropic.aws_region      %s\n", cfg.Anthropic.AWSRegion)
		fmt.Printf("anthropic.aws_profile     %s\n", orDefault(cfg.Anthropic.AWSProfile))
	}
	fmt.Printf("gemini.api_key            %s\n", config.MaskAPIKey(cfg.Gemini.APIKey))
	fmt.Printf("gemini.model              %s\n", orDefault(cfg.Gemini.Model))
	fmt.Printf("defaults.language         %s\n", cfg.Defaults.Language)
	fmt.Printf("defaults.pages            %d\n", cfg.Defaults.Pages)
	fmt.Printf("images.enabled            %t\n", cfg.Images.Enabled)
	fmt.Printf("images.aspect_ratio       %s\n", cfg.Images.AspectRatio)
	fmt.Printf("workers.content           %d\n", cfg.Workers.Content)
	fmt.Printf("workers.image             %d\n", cfg.Workers.Image)
	fmt.Printf("retry.base_delay          %s\n", cfg.Retry.BaseDelay)
	fmt.Printf("retry.max_delay           %s\n", cfg.Retry.MaxDelay)
	fmt.Printf("retry.max_attempts        %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("review.revision_ceiling   %d\n", cfg.Review.RevisionCeiling)
	fmt.Printf("export.format             %s\n", cfg.Export.Format)
	fmt.Printf("export.failure_tolerance  %d\n", cfg.Export.FailureTolerance)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("Set %s in %s\n", key, config.GetUserConfigPath())
	return nil
}

func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		return setBool(&cfg.Anthropic.UseAWSBedrock, key, value)
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "gemini.api_key":
		cfg.Gemini.APIKey = value
	case "gemini.model":
		cfg.Gemini.Model = value
	case "defaults.language":
		cfg.Defaults.Language = value
	case "defaults.pages":
		return setInt(&cfg.Defaults.Pages, key, value)
	case "images.enabled":
		return setBool(&cfg.Images.Enabled, key, value)
	case "images.aspect_ratio":
		cfg.Images.AspectRatio = value
	case "workers.content":
		return setInt(&cfg.Workers.Content, key, value)
	case "workers.image":
		return setInt(&cfg.Workers.Image, key, value)
	case "retry.base_delay":
		return setDuration(&cfg.Retry.BaseDelay, key, value)
	case "retry.max_delay":
		return setDuration(&cfg.Retry.MaxDelay, key, value)
	case "retry.max_attempts":
		return setInt(&cfg.Retry.MaxAttempts, key, value)
	case "review.revision_ceiling":
		return setInt(&cfg.Review.RevisionCeiling, key, value)
	case "export.format":
		cfg.Export.Format = value
	case "export.failure_tolerance":
		return setInt(&cfg.Export.FailureTolerance, key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	color.Green("✓ configuration is valid")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := buildTextClient(cfg)
	if err != nil {
		return err
	}
	if _, err := text.Complete(ctx, ai.TextRequest{Prompt: "ping", MaxTokens: 8}); err != nil {
		return fmt.Errorf("text provider probe failed: %w", err)
	}
	color.Green("✓ text provider reachable")

	if cfg.Images.Enabled {
		if _, err := config.GetGeminiKey(cfg); err != nil {
			return err
		}
		color.Green("✓ image provider key present")
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s expects an integer, got %q", key, value)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s expects true or false, got %q", key, value)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s expects a duration like 500ms or 30s, got %q", key, value)
	}
	*dst = d
	return nil
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
