package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"simcollect/pkg/poller"
)

// TUI represents the terminal user interface. It implements
// poller.Observer by forwarding events to the bubbletea program.
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ poller.Observer = (*TUI)(nil)

// NewTUI creates a new TUI instance
func NewTUI(opts Options, programOpts ...tea.ProgramOption) *TUI {
	model := NewModel(opts)
	programOpts = append([]tea.ProgramOption{tea.WithAltScreen()}, programOpts...)
	program := tea.NewProgram(model, programOpts...)

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start runs the TUI until Stop is called or the operator quits after the
// session has ended
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Model exposes the dashboard state
func (t *TUI) Model() *Model {
	return t.model
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) StateChanged(from, to poller.State) {
	t.Send(StateMsg{From: from, To: to})
}

func (t *TUI) FetchCompleted(e poller.FetchEvent) {
	t.Send(FetchMsg(e))
}

func (t *TUI) CycleCompleted(e poller.CycleEvent) {
	t.Send(CycleMsg(e))
}

func (t *TUI) FlushCompleted(e poller.FlushEvent) {
	t.Send(FlushMsg(e))
}

// Complete reports the scheduler's result to the dashboard
func (t *TUI) Complete(err error) {
	t.Send(DoneMsg{Err: err})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	t.Send(LogMsg{Level: level, Message: message})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
