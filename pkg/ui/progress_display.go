package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"simcollect/pkg/poller"
)

// ProgressDisplay prints a minimal line-oriented view of a session. In
// verbose mode every fetch gets its own line.
type ProgressDisplay struct {
	*StatusTracker

	mu         sync.Mutex
	out        io.Writer
	iterations int
	isDebug    bool
}

// NewProgressDisplay creates a display for the given endpoints. iterations
// is the cycle limit, zero for unlimited.
func NewProgressDisplay(out io.Writer, endpoints []string, iterations, saveInterval int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		StatusTracker: NewStatusTracker(endpoints, saveInterval),
		out:           out,
		iterations:    iterations,
		isDebug:       debug,
	}
}

func (p *ProgressDisplay) StateChanged(from, to poller.State) {
	p.StatusTracker.StateChanged(from, to)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch to {
	case poller.StateRunning:
		if from == poller.StateInitializing {
			fmt.Fprintf(p.out, "%s Session established, polling %d endpoints\n",
				Green("✓"), len(p.Summary().Endpoints))
		}
	case poller.StateTerminating:
		fmt.Fprintf(p.out, "\n%s Saving buffered records before shutdown...\n", Magenta("→"))
	}
}

func (p *ProgressDisplay) FetchCompleted(e poller.FetchEvent) {
	p.StatusTracker.FetchCompleted(e)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Err != nil {
		fmt.Fprintf(p.out, "\n%s %s: %v\n", Red("✗"), e.Endpoint, e.Err)
		return
	}
	if p.isDebug {
		fmt.Fprintf(p.out, "%s %s • %d records • %s\n",
			Dim("•"), e.Endpoint, e.Records, Dim(formatDuration(e.Duration)))
	}
}

func (p *ProgressDisplay) CycleCompleted(e poller.CycleEvent) {
	p.StatusTracker.CycleCompleted(e)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.printProgress(e)
}

func (p *ProgressDisplay) FlushCompleted(e poller.FlushEvent) {
	p.StatusTracker.FlushCompleted(e)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Err != nil {
		fmt.Fprintf(p.out, "\n%s Failed to save %s: %v\n", Red("✗"), e.Endpoint, e.Err)
		return
	}
	line := fmt.Sprintf("%s Saved %d records for %s", Green("✓"), e.Records, e.Endpoint)
	if e.Result != nil {
		line += Dim(fmt.Sprintf(" • %d in file", e.Result.Written))
		if e.Result.Degraded {
			line += " • " + Yellow("lossy encoding")
		}
	}
	fmt.Fprintf(p.out, "\n%s\n", line)
}

// printProgress prints the progress line for a finished cycle
func (p *ProgressDisplay) printProgress(e poller.CycleEvent) {
	cycle := fmt.Sprintf("cycle %d", e.Cycle)
	if p.iterations > 0 {
		cycle = fmt.Sprintf("cycle %d/%d", e.Cycle, p.iterations)
	}

	line := fmt.Sprintf("%s %s • %d buffered • flush %s",
		Cyan("[COLLECTING]"),
		cycle,
		e.Pending,
		p.GetFlushProgress(),
	)
	if !e.NextAt.IsZero() {
		line += " • next in " + formatDuration(time.Until(e.NextAt))
	}
	if s := p.Summary(); s.FetchFailures > 0 {
		line += " • " + Red(fmt.Sprintf("%d errors", s.FetchFailures))
	}

	if p.isDebug {
		fmt.Fprintln(p.out, line)
		return
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete prints the session summary. err is the scheduler's result.
func (p *ProgressDisplay) Complete(err error) {
	s := p.Summary()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		fmt.Fprintf(p.out, "\n\n%s Session ended with errors: %v\n", Red("✗"), err)
	} else {
		fmt.Fprintf(p.out, "\n\n%s Collected %d records over %d cycles\n",
			Green("✓"), s.Fetched, s.Cycles)
	}

	fmt.Fprintf(p.out, "  %s %d flushes in %s\n", Dim("•"), s.Flushes, formatDuration(s.Elapsed))
	for _, e := range s.Endpoints {
		fmt.Fprintf(p.out, "  %s %-6s %d fetched • %d in file", Dim("•"), e.ID, e.Fetched, e.Written)
		if e.Failures > 0 {
			fmt.Fprintf(p.out, " • %s", Red(fmt.Sprintf("%d failed fetches", e.Failures)))
		}
		fmt.Fprintln(p.out)
	}
	if s.Pending > 0 {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d records could not be saved", s.Pending)))
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
