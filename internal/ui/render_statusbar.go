package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/session"
	"github.com/nhath/ezmongo/internal/ui/icons"
)

func (m Model) renderStatusBar() string {
	var parts []string

	// 1. Mode
	mode := m.session.Mode()
	modeStyle := NormalModeStyle
	switch mode {
	case session.ModeCommand:
		modeStyle = CommandModeStyle
	case session.ModeEditor:
		modeStyle = EditorModeStyle
	case session.ModeViewer:
		modeStyle = ViewerModeStyle
	}
	parts = append(parts, modeStyle.Render(mode.String()))

	// 2. Connection
	conn := m.session.Connection()
	status := m.session.Connections.Status()
	if conn != nil {
		host := fmt.Sprintf(" %s %s ", icons.ServerIcon(true, m.tunneled(conn)), limitString(hostOf(conn.URI), 30))
		if conn.Profile != "" {
			host = fmt.Sprintf(" %s %s ", icons.ServerIcon(true, m.tunneled(conn)), conn.Profile)
		}
		dbInfo := lipgloss.NewStyle().Background(CardBg()).Foreground(AccentColor()).Bold(true).Render(conn.Database + " ")
		parts = append(parts, ConnectionStyle.Render(host)+dbInfo)
	} else if status != connection.Connecting {
		parts = append(parts, ConnectionStyle.Render(" "+icons.ServerIcon(false, false)+" NOT CONNECTED "))
	}

	// 3. Busy indicator
	if task := m.session.Tasks().Pending(); task != nil && task.Kind != session.TaskEdit {
		busyStyle := lipgloss.NewStyle().Foreground(AccentColor()).Padding(0, 1)
		parts = append(parts, busyStyle.Render(m.spinner.View()+" "+task.Kind.String()+icons.IconBusy))
	}

	// 4. Status message (success/info)
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Background(SuccessColor()).Foreground(BgPrimary()).Padding(0, 1)
		parts = append(parts, statusStyle.Render(icons.IconSuccess+" "+m.statusMsg))
	}

	// 5. Error indicator
	if m.errorMsg != "" {
		errorStyle := lipgloss.NewStyle().Background(ErrorColor()).Foreground(TextPrimary()).Padding(0, 1)
		limit := max(m.width/2, 20)
		truncated := m.errorMsg
		if len(truncated) > limit {
			truncated = truncated[:limit-3] + "..."
		}
		parts = append(parts, errorStyle.Render(icons.IconError+" "+truncated))
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, parts...)
	return StatusBarStyle.Width(m.width).Render(content)
}

// tunneled reports whether conn came from a profile with an SSH tunnel.
func (m Model) tunneled(conn *connection.Connection) bool {
	if conn.Profile == "" {
		return false
	}
	p, err := m.config.GetProfile(conn.Profile)
	return err == nil && p.SSHHost != ""
}
