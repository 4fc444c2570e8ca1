package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"simcollect/pkg/auth"
	"simcollect/pkg/checkpoint"
	"simcollect/pkg/config"
	"simcollect/pkg/logger"
	"simcollect/pkg/poller"
	"simcollect/pkg/ratelimit"
	"simcollect/pkg/retry"
	"simcollect/pkg/session"
	"simcollect/pkg/simcompanies"
	"simcollect/pkg/storage"
	"simcollect/pkg/ui"
	"simcollect/pkg/ui/tui"
)

var (
	// Collect command flags
	accountEmail string
	endpointSel  string
	outputDir    string
	interval     time.Duration
	iterations   int
	saveInterval int
	extension    string
	sessionMode  string
	headless     bool
	rateLimit    int
	useTUI       bool
	interactive  bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Poll the chatroom API and save messages",
	Long: `Sign in, then poll every selected chatroom endpoint once per interval.

Fetched messages are buffered per endpoint and merged into the endpoint's
batch file every save-interval cycles. Stopping the collector with Ctrl+C
saves everything still buffered before it exits.

Credentials are taken from, in order:
  - the --account flag (a stored account, see 'simcollect auth login')
  - configuration and SIMCOLLECT_EMAIL / SIMCOLLECT_PASSWORD
  - the default stored account
  - an interactive prompt`,
	Example: `  # Poll every chatroom once a minute until stopped
  simcollect collect

  # Poll the English and Chinese rooms 30 times, saving every 5 cycles
  simcollect collect --endpoints EN,ZH --iterations 30 --save-interval 5

  # Reuse a session cookie instead of signing in through Chrome
  SIMCOLLECT_SESSION_COOKIE=... simcollect collect --session-mode static

  # Answer every setting interactively
  simcollect collect --prompt`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func addCollectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&accountEmail, "account", "a", "", "use a specific stored account (email)")
	cmd.Flags().StringVarP(&endpointSel, "endpoints", "e", "", `endpoints to poll: "all" or a comma separated list of ids`)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for batch files")
	cmd.Flags().Var((*secondsValue)(&interval), "interval", "pause between cycles in seconds, or a duration such as 90s")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "number of cycles, 0 runs until stopped")
	cmd.Flags().IntVar(&saveInterval, "save-interval", 0, "cycles between saves")
	cmd.Flags().StringVar(&extension, "extension", "", "batch file extension")
	cmd.Flags().StringVar(&sessionMode, "session-mode", "", `"browser" to sign in with Chrome, "static" to use a configured cookie`)
	cmd.Flags().BoolVar(&headless, "headless", true, "run Chrome without a window")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	cmd.Flags().BoolVarP(&interactive, "prompt", "i", false, "prompt for every collection setting")
}

// secondsValue is a duration flag that also takes a bare number of seconds.
type secondsValue time.Duration

func (v *secondsValue) String() string { return time.Duration(*v).String() }

func (v *secondsValue) Set(s string) error {
	d, err := config.ParseSeconds(s)
	if err != nil {
		return fmt.Errorf("want seconds or a duration: %w", err)
	}
	*v = secondsValue(d)
	return nil
}

func (v *secondsValue) Type() string { return "seconds" }

func init() {
	rootCmd.AddCommand(collectCmd)
	addCollectFlags(collectCmd)

	// Collecting is the default when no subcommand is given
	addCollectFlags(rootCmd)
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = runCollect
}

// collectFlags returns the collect flags the operator set explicitly.
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, v interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = v
		}
	}
	set("endpoints", endpointSel)
	set("output", outputDir)
	set("interval", interval)
	set("iterations", iterations)
	set("save-interval", saveInterval)
	set("extension", extension)
	set("session-mode", sessionMode)
	set("headless", headless)
	set("tui", useTUI)
	if cmd.Flags().Changed("rate-limit") {
		flags["requests-per-minute"] = rateLimit
	}
	return flags
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, collectFlags(cmd), nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	log := logger.GetLogger()

	if err := resolveIdentity(cfg, log); err != nil {
		ui.PrintError("Failed to resolve credentials", err.Error())
		return err
	}

	p := newPrompter(os.Stdin, ui.Output)
	if err := promptMissing(p, cfg, interactive); err != nil {
		return err
	}
	if err := errors.Join(cfg.Validate(), cfg.ValidateSession()); err != nil {
		ui.PrintError("Invalid configuration", err.Error())
		return err
	}

	// Console logs would draw over the dashboard
	if cfg.Collect.UseTUI {
		if err := logger.Initialize(&cfg.Logging, io.Discard); err != nil {
			return err
		}
		log = logger.GetLogger()
	}

	endpoints, err := simcompanies.NewCatalog(cfg.Endpoints).Select(cfg.Collect.Endpoints, log)
	if err != nil {
		ui.PrintError("Invalid endpoint selection", err.Error())
		return err
	}
	ids := make([]string, len(endpoints))
	for i, e := range endpoints {
		ids[i] = e.ID
	}

	store, err := storage.NewManager(cfg.Collect.OutputDir, cfg.Collect.Extension)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		return err
	}

	recorder := checkpoint.NewRecorder(checkpoint.NewManager(store.OutputDir(), log), "", ids)
	log = log.WithField("run_id", recorder.RunID())

	persister := storage.NewPersister(storage.NewActionLog(store.ActionLogPath(), nil), log)
	client := simcompanies.NewClient(cfg.Fetch, ratelimit.FromSettings(cfg.RateLimit), log)
	provider := buildProvider(cfg, log)

	scheduler, err := poller.NewScheduler(poller.Options{
		Endpoints:    endpoints,
		Identity:     session.Identity{Email: cfg.Account.Email, Password: cfg.Account.Password},
		Interval:     cfg.Collect.Interval,
		Iterations:   cfg.Collect.Iterations,
		SaveInterval: cfg.Collect.SaveInterval,
	}, provider, client, persister, store, log)
	if err != nil {
		ui.PrintError("Failed to start collector", err.Error())
		return err
	}
	scheduler.AddObserver(recorder)

	logger.LogComponentStart("collector", map[string]interface{}{
		"endpoints":     ids,
		"output_dir":    store.OutputDir(),
		"interval":      cfg.Collect.Interval.String(),
		"iterations":    cfg.Collect.Iterations,
		"save_interval": cfg.Collect.SaveInterval,
		"session_mode":  cfg.Session.Mode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		runErr  error
		summary ui.Summary
	)
	if cfg.Collect.UseTUI {
		summary, runErr = runWithTUI(ctx, scheduler, cfg, ids)
	} else {
		ui.PrintInfo("Endpoints", strings.Join(ids, ", "))
		ui.PrintInfo("Output", store.OutputDir())
		ui.PrintHighlight("[COLLECTING]")

		display := ui.NewProgressDisplay(ui.Output, ids, cfg.Collect.Iterations, cfg.Collect.SaveInterval, verbose)
		scheduler.AddObserver(display)
		runErr = scheduler.Run(ctx)
		display.Complete(runErr)
		summary = display.Summary()
	}

	reason := "completed"
	if ctx.Err() != nil {
		reason = "interrupted"
	}
	if runErr != nil {
		reason = "failed"
		log.WithError(runErr).Error("Collection failed")
	}
	logger.LogComponentStop("collector", reason)

	ui.NewNotifier(cfg.Notifications, ui.Output).SessionEnded(summary, runErr)
	return runErr
}

// runWithTUI runs the scheduler next to the dashboard. Quitting the
// dashboard cancels the scheduler, which still performs its final save.
func runWithTUI(ctx context.Context, scheduler *poller.Scheduler, cfg *config.Config, ids []string) (ui.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := ui.NewStatusTracker(ids, cfg.Collect.SaveInterval)
	dashboard := tui.NewTUI(tui.Options{
		Endpoints:    ids,
		Iterations:   cfg.Collect.Iterations,
		SaveInterval: cfg.Collect.SaveInterval,
		OnQuit:       cancel,
	})
	scheduler.AddObserver(tracker)
	scheduler.AddObserver(dashboard)

	var runErr error
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := dashboard.Start(); err != nil {
			cancel()
			return fmt.Errorf("terminal UI failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runErr = scheduler.Run(ctx)
		dashboard.Complete(runErr)
		dashboard.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Terminal UI failed")
		if runErr == nil {
			runErr = err
		}
	}

	display := ui.NewProgressDisplay(ui.Output, nil, cfg.Collect.Iterations, cfg.Collect.SaveInterval, false)
	display.StatusTracker = tracker
	display.Complete(runErr)
	return tracker.Summary(), runErr
}

// buildProvider returns the session provider for the configured mode.
func buildProvider(cfg *config.Config, log logger.Logger) session.Provider {
	if cfg.Session.Mode == "static" {
		return session.NewStaticProvider(session.Bundle(cfg.Session.Cookies), cfg.Session.CookieName)
	}
	chrome := session.NewChromeProvider(session.ChromeOptionsFrom(cfg.Session, cfg.Fetch), log)
	return session.WithRetry(chrome, retry.FromSettings(cfg.Retry, log))
}

// resolveIdentity fills missing credentials from the credential store.
func resolveIdentity(cfg *config.Config, log logger.Logger) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	switch {
	case accountEmail != "":
		account, err = manager.Retrieve(accountEmail)
		if err != nil {
			ui.PrintInfo("Available accounts", "Use 'simcollect auth list' to see stored accounts")
			return fmt.Errorf("account %s: %w", accountEmail, err)
		}
		cfg.Account.Email, cfg.Account.Password = "", ""
	case cfg.Account.Password != "":
		return nil
	case cfg.Account.Email != "":
		account, err = manager.Retrieve(cfg.Account.Email)
	default:
		account, err = manager.RetrieveDefault()
	}
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	auth.ApplyTo(cfg, account)
	log.WithField("account", account.Email).Info("Using stored credentials")
	ui.PrintInfo("Using account", account.Email)
	return nil
}

// promptMissing asks for credentials the active session mode needs and, when
// all is set, for every collection setting.
func promptMissing(p *prompter, cfg *config.Config, all bool) error {
	var err error
	if cfg.Session.Mode == "browser" {
		if cfg.Account.Email == "" {
			if cfg.Account.Email, err = p.String("Email", ""); err != nil {
				return err
			}
		}
		if cfg.Account.Password == "" {
			if cfg.Account.Password, err = p.Secret("Password"); err != nil {
				return err
			}
		}
	}
	if !all {
		return nil
	}

	fmt.Fprintln(p.out, "\nAvailable endpoints:")
	for _, e := range simcompanies.NewCatalog(cfg.Endpoints).All() {
		fmt.Fprintf(p.out, "  %-6s %s\n", e.ID, e.URL)
	}
	if cfg.Collect.Endpoints, err = p.String(`Endpoints ("all" or comma separated ids)`, cfg.Collect.Endpoints); err != nil {
		return err
	}
	if cfg.Collect.OutputDir, err = p.String("Output directory", cfg.Collect.OutputDir); err != nil {
		return err
	}
	if cfg.Collect.Interval, err = p.Seconds("Interval in seconds", cfg.Collect.Interval); err != nil {
		return err
	}
	if cfg.Collect.Iterations, err = p.Int("Iterations (0 runs until stopped)", cfg.Collect.Iterations, 0); err != nil {
		return err
	}
	if cfg.Collect.SaveInterval, err = p.Int("Save every N cycles", cfg.Collect.SaveInterval, 1); err != nil {
		return err
	}
	return nil
}
