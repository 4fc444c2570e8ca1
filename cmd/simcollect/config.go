package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"simcollect/pkg/config"
	"simcollect/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage simcollect configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SIMCOLLECT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the defaults",
	Long: `Create a configuration file holding every option at its default value.

The file is written to ~/.config/simcollect/config.yaml unless a different
path is given with the --config flag. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Passwords and session cookies are masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Fprintln(ui.Output, "\nTo overwrite, first remove the existing file:")
		fmt.Fprintf(ui.Output, "  rm %s\n", configPath)
		return fmt.Errorf("config file %s already exists", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Store your account with 'simcollect auth login'")
	fmt.Fprintln(ui.Output, "2. Run 'simcollect config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "3. Start collecting with 'simcollect collect'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	display := maskConfig(cfg)
	data, err := yaml.Marshal(display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintf(ui.Output, "2. Environment variables (%s*)\n", config.EnvPrefix)
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source != "" {
		fmt.Fprintf(ui.Output, "3. Configuration file: %s\n", source)
	} else {
		fmt.Fprintln(ui.Output, "3. Configuration file: (none found)")
	}
	fmt.Fprintln(ui.Output, "4. Default values")
	return nil
}

// maskConfig returns a copy of cfg with secrets shortened for display.
func maskConfig(cfg *config.Config) *config.Config {
	display := *cfg
	display.Account.Password = mask(cfg.Account.Password)
	if len(cfg.Session.Cookies) > 0 {
		display.Session.Cookies = make(map[string]string, len(cfg.Session.Cookies))
		for name, value := range cfg.Session.Cookies {
			display.Session.Cookies[name] = mask(value)
		}
	}
	return &display
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintError("No configuration file found", "Specify a file with --config flag")
		return fmt.Errorf("no configuration file found")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings, problems []string

	if cfg.Session.Mode == "browser" && cfg.Account.Email == "" {
		warnings = append(warnings, "no account email configured, one will be taken from the credential store or asked for")
	}
	if cfg.Account.Password != "" {
		warnings = append(warnings, "password is stored in the config file, consider 'simcollect auth login' instead")
	}

	if err := os.MkdirAll(cfg.Collect.OutputDir, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(ui.Output, "  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Endpoints: %s\n", cfg.Collect.Endpoints)
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Collect.OutputDir)
	fmt.Fprintf(ui.Output, "  Interval: %s\n", cfg.Collect.Interval)
	if cfg.Collect.Iterations == 0 {
		fmt.Fprintln(ui.Output, "  Iterations: until interrupted")
	} else {
		fmt.Fprintf(ui.Output, "  Iterations: %d\n", cfg.Collect.Iterations)
	}
	fmt.Fprintf(ui.Output, "  Save every: %d iterations\n", cfg.Collect.SaveInterval)
	fmt.Fprintf(ui.Output, "  Session mode: %s\n", cfg.Session.Mode)
	fmt.Fprintf(ui.Output, "  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
