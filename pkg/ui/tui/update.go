package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"simcollect/pkg/poller"
)

// Message types for the TUI

// StateMsg is sent when the scheduler changes state
type StateMsg struct {
	From poller.State
	To   poller.State
}

// FetchMsg is sent after each endpoint fetch
type FetchMsg poller.FetchEvent

// CycleMsg is sent after each completed cycle
type CycleMsg poller.CycleEvent

// FlushMsg is sent after each endpoint flush
type FlushMsg poller.FlushEvent

// DoneMsg is sent once the scheduler has returned
type DoneMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		// Regular tick keeps the countdown fresh
		return m, tickCmd()

	case StateMsg:
		m.SetState(msg.From, msg.To)
		return m, nil

	case FetchMsg:
		m.RecordFetch(poller.FetchEvent(msg))
		return m, nil

	case CycleMsg:
		m.RecordCycle(poller.CycleEvent(msg))
		return m, nil

	case FlushMsg:
		m.RecordFlush(poller.FlushEvent(msg))
		return m, nil

	case DoneMsg:
		m.Finish(msg.Err)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.mu.RLock()
		done := m.done
		m.mu.RUnlock()
		if done {
			return m, tea.Quit
		}
		// The scheduler still has to flush; the program quits once it is done.
		m.requestQuit()
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		// Clear logs
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
