package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"simcollect/pkg/checkpoint"
	"simcollect/pkg/storage"
	"simcollect/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [output-dir]",
	Short: "Show the last session and the batch files in an output directory",
	Long: `Show what the most recent collection session in an output directory did:
its state, how many cycles ran, every save attempt and the batch files on disk.

The directory defaults to the configured output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	dir := cfg.Collect.OutputDir
	if len(args) > 0 {
		dir = args[0]
	}
	if _, err := os.Stat(dir); err != nil {
		ui.PrintError("Output directory not found", dir)
		return err
	}

	manifest, err := checkpoint.NewManager(dir, nil).Load()
	if err != nil {
		ui.PrintError("Failed to read session manifest", err.Error())
		return err
	}

	if manifest == nil {
		ui.PrintInfo("No session recorded in", dir)
	} else {
		printManifest(manifest)
	}

	store, err := storage.NewManager(dir, cfg.Collect.Extension)
	if err != nil {
		return err
	}
	batches, err := store.Batches()
	if err != nil {
		ui.PrintError("Failed to list batch files", err.Error())
		return err
	}

	fmt.Fprintln(ui.Output)
	if len(batches) == 0 {
		ui.PrintInfo("Batch files", "none")
		return nil
	}
	ui.PrintHighlight(fmt.Sprintf("Batch files (%d)", len(batches)))
	w := tabwriter.NewWriter(ui.Output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tSTARTED\tSIZE\tFILE")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Endpoint, b.Timestamp.Format("2006-01-02 15:04:05"), formatSize(b.Size), b.Path)
	}
	return w.Flush()
}

func printManifest(m *checkpoint.Manifest) {
	ui.PrintHighlight("Last Session")
	ui.PrintInfo("Run", m.RunID)
	ui.PrintInfo("State", m.State)
	ui.PrintInfo("Endpoints", fmt.Sprintf("%v", m.Endpoints))
	ui.PrintInfo("Started", m.StartedAt.Local().Format(time.RFC1123))
	if m.FinishedAt != nil {
		ui.PrintInfo("Finished", fmt.Sprintf("%s (%s)", m.FinishedAt.Local().Format(time.RFC1123), m.FinishedAt.Sub(m.StartedAt).Round(time.Second)))
	} else {
		ui.PrintInfo("Last update", m.UpdatedAt.Local().Format(time.RFC1123))
	}
	ui.PrintInfo("Cycles", fmt.Sprintf("%d", m.Cycles))
	ui.PrintInfo("Records saved", fmt.Sprintf("%d", m.Written()))
	if m.FetchFailures > 0 {
		ui.PrintWarning("Failed fetches", m.FetchFailures)
	}
	if m.Pending > 0 {
		ui.PrintWarning("Records not saved", m.Pending)
	}

	if len(m.Flushes) == 0 {
		return
	}
	fmt.Fprintln(ui.Output)
	w := tabwriter.NewWriter(ui.Output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tENDPOINT\tREASON\tRECORDS\tWRITTEN\tRESULT")
	for _, f := range m.Flushes {
		result := "ok"
		switch {
		case f.Error != "":
			result = ui.Red(f.Error)
		case f.Degraded:
			result = ui.Yellow("ok (lossy utf-8)")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", f.At.Local().Format("15:04:05"), f.Endpoint, f.Reason, f.Records, f.Written, result)
	}
	w.Flush()

	if failed := m.Failed(); len(failed) > 0 {
		ui.PrintWarning(fmt.Sprintf("%d saves failed", len(failed)))
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
