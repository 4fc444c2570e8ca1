package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"simcollect/pkg/poller"
)

// EndpointState is the dashboard status of one endpoint
type EndpointState int

const (
	EndpointIdle EndpointState = iota
	EndpointOK
	EndpointFailed
)

// EndpointRow is one line of the endpoint table
type EndpointRow struct {
	ID        string
	State     EndpointState
	Fetched   int
	Buffered  int
	Written   int
	Failures  int
	LastFetch time.Duration
	LastFlush time.Time
	Error     error
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner  spinner.Model
	flushBar progress.Model
	cycleBar progress.Model

	// Endpoint state
	rows  map[string]*EndpointRow
	order []string

	// Session state
	state        poller.State
	cycle        int
	iterations   int
	saveInterval int
	sinceFlush   int
	pending      int
	nextAt       time.Time
	flushes      int
	flushFails   int
	startTime    time.Time
	done         bool
	doneErr      error

	// UI state
	width          int
	height         int
	showHelp       bool
	quitting       bool
	onQuit         func()
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Options configures a dashboard.
type Options struct {
	Endpoints    []string
	Iterations   int
	SaveInterval int
	// OnQuit runs once when the operator asks to stop
	OnQuit func()
}

// NewModel creates a new TUI model
func NewModel(opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	m := &Model{
		spinner:        s,
		flushBar:       progress.New(progress.WithDefaultGradient()),
		cycleBar:       progress.New(progress.WithGradient(string(neonMagenta), string(neonCyan))),
		rows:           make(map[string]*EndpointRow),
		iterations:     opts.Iterations,
		saveInterval:   opts.SaveInterval,
		startTime:      time.Now(),
		onQuit:         opts.OnQuit,
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
	}
	for _, id := range opts.Endpoints {
		m.row(id)
	}
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) row(id string) *EndpointRow {
	r, ok := m.rows[id]
	if !ok {
		r = &EndpointRow{ID: id}
		m.rows[id] = r
		m.order = append(m.order, id)
	}
	return r
}

// SetState records a scheduler state transition
func (m *Model) SetState(from, to poller.State) {
	m.mu.Lock()
	m.state = to
	m.mu.Unlock()

	switch to {
	case poller.StateRunning:
		if from == poller.StateInitializing {
			m.AddLogMessage("SUCCESS", "Session established")
		}
	case poller.StateFlushing:
		m.AddLogMessage("INFO", "Saving buffered records")
	case poller.StateTerminating:
		m.AddLogMessage("WARN", "Saving buffered records before shutdown")
	}
}

// RecordFetch applies one fetch result
func (m *Model) RecordFetch(e poller.FetchEvent) {
	m.mu.Lock()
	r := m.row(e.Endpoint)
	r.Buffered = e.Buffered
	r.LastFetch = e.Duration
	if e.Err != nil {
		r.State = EndpointFailed
		r.Error = e.Err
		r.Failures++
	} else {
		r.State = EndpointOK
		r.Error = nil
		r.Fetched += e.Records
	}
	m.mu.Unlock()

	if e.Err != nil {
		m.AddLogMessage("ERROR", fmt.Sprintf("%s: %v", e.Endpoint, e.Err))
	}
}

// RecordCycle applies a completed cycle
func (m *Model) RecordCycle(e poller.CycleEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cycle = e.Cycle
	m.pending = e.Pending
	m.nextAt = e.NextAt
	m.sinceFlush++
}

// RecordFlush applies one flush result
func (m *Model) RecordFlush(e poller.FlushEvent) {
	m.mu.Lock()
	r := m.row(e.Endpoint)
	m.sinceFlush = 0
	if e.Err != nil {
		m.flushFails++
		r.State = EndpointFailed
		r.Error = e.Err
	} else {
		m.flushes++
		m.pending -= e.Records
		if m.pending < 0 {
			m.pending = 0
		}
		r.Buffered = 0
		r.LastFlush = e.At
		if e.Result != nil {
			r.Written = e.Result.Written
		}
	}
	m.mu.Unlock()

	if e.Err != nil {
		m.AddLogMessage("ERROR", fmt.Sprintf("Failed to save %s: %v", e.Endpoint, e.Err))
		return
	}
	m.AddLogMessage("SUCCESS", fmt.Sprintf("Saved %d records for %s", e.Records, e.Endpoint))
}

// Finish marks the session as over
func (m *Model) Finish(err error) {
	m.mu.Lock()
	m.done = true
	m.doneErr = err
	m.mu.Unlock()

	if err != nil {
		m.AddLogMessage("ERROR", err.Error())
		return
	}
	m.AddLogMessage("SUCCESS", "Collection finished")
}

// requestQuit runs the quit hook once
func (m *Model) requestQuit() {
	m.mu.Lock()
	already := m.quitting
	m.quitting = true
	hook := m.onQuit
	m.mu.Unlock()

	if already {
		return
	}
	m.AddLogMessage("WARN", "Stopping, waiting for the final save")
	if hook != nil {
		hook()
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Rows returns a copy of the endpoint table in selection order
func (m *Model) Rows() []EndpointRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]EndpointRow, 0, len(m.order))
	for _, id := range m.order {
		rows = append(rows, *m.rows[id])
	}
	return rows
}

// FlushProgress is the fraction of the save interval elapsed since the last flush
func (m *Model) FlushProgress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.saveInterval <= 0 {
		return 0
	}
	p := float64(m.sinceFlush) / float64(m.saveInterval)
	if p > 1 {
		p = 1
	}
	return p
}

// CycleProgress is the fraction of the iteration limit completed, or -1
// when the session is unbounded
func (m *Model) CycleProgress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.iterations <= 0 {
		return -1
	}
	p := float64(m.cycle) / float64(m.iterations)
	if p > 1 {
		p = 1
	}
	return p
}

// FormatCount abbreviates large record counts
func FormatCount(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}
