package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"simcollect/pkg/config"
	"simcollect/pkg/logger"
	"simcollect/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "simcollect",
	Short: "Collect Sim Companies chatroom messages into local files",
	Long: `simcollect signs in to Sim Companies, polls the chatroom API at a fixed
interval and saves new messages to per-chatroom JSON lines files.

Features:
  - Headless browser sign-in or a pre-obtained session cookie
  - Duplicate-free output that merges with earlier batches
  - Periodic saves plus a final save when interrupted
  - Secure credential storage using the system keychain
  - Line progress or an interactive terminal dashboard
  - Desktop notifications when a session ends`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			disableColor()
		}
		if quiet {
			ui.Output = io.Discard
		}

		// Don't show logo for certain commands
		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "status" {
			ui.PrintLogo()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.simcollect.yaml or ~/.config/simcollect/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable session end notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every fetch and debug logs")

	// Version template
	rootCmd.SetVersionTemplate(`simcollect {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags the operator set explicitly.
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	} else if verbose {
		flags["log-level"] = "debug"
	} else if quiet {
		flags["log-level"] = "error"
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	return flags
}

// loadConfig loads configuration with the given command-specific flags and
// initializes the global logger. A nil logOut keeps console logs on stderr.
func loadConfig(cmd *cobra.Command, flags map[string]interface{}, logOut io.Writer) (*config.Config, error) {
	merged := globalFlags(cmd)
	for k, v := range flags {
		merged[k] = v
	}

	cfg, err := config.Load(configFile, merged)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging, logOut); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func disableColor() {
	plain := func(s string) string { return s }
	ui.Cyan, ui.Yellow, ui.Red, ui.Green, ui.Magenta, ui.Dim = plain, plain, plain, plain, plain, plain
}
