package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"simcollect/pkg/poller"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderLogo())

	leftColumn := m.renderLeftColumn()
	rightColumn := m.renderRightColumn()

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ", // spacing
		rightColumn,
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render(m.footer()))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) footer() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case m.done:
		return "Session over. Press q to exit"
	case m.quitting:
		return "Stopping..."
	}
	return "Press q to stop, ? for help"
}

// renderLogo renders the title banner
func (m *Model) renderLogo() string {
	logo := `
╔══════════════════════════════════════════════╗
║   S I M C O L L E C T  ·  chatroom collector  ║
╚══════════════════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

// renderLeftColumn renders the left side of the UI
func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderEndpointsPanel(width),
	)
}

// renderRightColumn renders the right side of the UI
func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderProgressPanel(width),
		m.renderLogsPanel(width),
	)
}

// renderStatsPanel renders the statistics panel
func (m *Model) renderStatsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SESSION ")

	cycle := fmt.Sprintf("%d", m.cycle)
	if m.iterations > 0 {
		cycle = fmt.Sprintf("%d/%d", m.cycle, m.iterations)
	}

	next := "-"
	if !m.nextAt.IsZero() && m.state == poller.StateRunning {
		next = formatDuration(time.Until(m.nextAt))
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("State:"), stateStyle(m.state).Render(m.spinnerFor(m.state)+m.state.String())),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Session Time:"), statsValueStyle.Render(formatDuration(time.Since(m.startTime)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Cycle:"), statsValueStyle.Render(cycle)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Next Cycle:"), statsValueStyle.Render(next)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Buffered:"), statsValueStyle.Render(FormatCount(m.pending))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Flushes:"), statsValueStyle.Render(fmt.Sprintf("%d", m.flushes))),
	}
	if m.flushFails > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("✗ %d failed flushes", m.flushFails)))
	}
	if m.done && m.doneErr != nil {
		stats = append(stats, errorStyle.Render("Session ended with errors"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// spinnerFor prefixes busy states with the spinner
func (m *Model) spinnerFor(s poller.State) string {
	switch s {
	case poller.StateInitializing, poller.StateFlushing, poller.StateTerminating:
		return m.spinner.View() + " "
	}
	return ""
}

// renderEndpointsPanel renders one line per endpoint
func (m *Model) renderEndpointsPanel(width int) string {
	title := titleStyle.Render(" ENDPOINTS ")

	rows := m.Rows()
	if len(rows) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No endpoints selected")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	lines := []string{
		statsLabelStyle.Render(fmt.Sprintf("  %-6s %8s %8s %8s %6s", "ID", "FETCHED", "BUFFER", "IN FILE", "FAIL")),
	}
	for _, r := range rows {
		lines = append(lines, m.renderEndpointRow(r, width-6))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
}

// renderEndpointRow renders a single endpoint line and its last error
func (m *Model) renderEndpointRow(r EndpointRow, width int) string {
	icon, style := "•", queueItemStyle
	switch r.State {
	case EndpointOK:
		icon, style = "✓", queueItemActiveStyle
	case EndpointFailed:
		icon, style = "✗", errorStyle
	}

	line := style.Render(fmt.Sprintf("%s %-6s %8s %8s %8s %6d",
		icon, r.ID, FormatCount(r.Fetched), FormatCount(r.Buffered), FormatCount(r.Written), r.Failures))
	if r.Error == nil {
		return line
	}

	msg := r.Error.Error()
	if width > 10 && len(msg) > width-4 {
		msg = msg[:width-7] + "..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, queueItemCompletedStyle.Render("  "+msg))
}

// renderProgressPanel renders the flush and iteration bars
func (m *Model) renderProgressPanel(width int) string {
	title := titleStyle.Render(" PROGRESS ")

	flush := m.FlushProgress()
	cycles := m.CycleProgress()

	m.mu.Lock()
	m.flushBar.Width = width - 8
	m.cycleBar.Width = width - 8
	flushBar := m.flushBar.ViewAs(flush)
	cycleBar := m.cycleBar.ViewAs(cycles)
	sinceFlush, saveInterval := m.sinceFlush, m.saveInterval
	m.mu.Unlock()

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Next flush:"),
			GetFlushStyle(flush*100).Render(fmt.Sprintf("%d/%d cycles", sinceFlush, saveInterval))),
		flushBar,
	}
	if cycles >= 0 {
		content = append(content, "",
			fmt.Sprintf("%s %s", statsLabelStyle.Render("Iterations:"), statsValueStyle.Render(fmt.Sprintf("%.0f%%", cycles*100))),
			cycleBar,
		)
	} else {
		content = append(content, "", lipgloss.NewStyle().Foreground(dimWhite).Render("Running until stopped"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" EVENTS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		// Truncate before styling so escape codes are not cut
		text := log.Message
		maxMsgLen := width - 25
		if maxMsgLen > 3 && len(text) > maxMsgLen {
			text = text[:maxMsgLen-3] + "..."
		}

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No events yet...")
	}

	logsHeight := m.height - 30
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop collecting (buffered records are saved first)
    ctrl+l   - Clear events
    ?        - Toggle this help

  Endpoint Status:
    ` + successStyle.Render("✓") + `        - Last fetch succeeded
    ` + errorStyle.Render("✗") + `        - Last fetch or save failed
    •        - Not polled yet
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
