package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/nhath/ezmongo/internal/session"
	"github.com/nhath/ezmongo/internal/ui/highlight"
	"github.com/nhath/ezmongo/internal/ui/icons"
)

// chromeHeight is the status bar, the help line and the bordered prompt.
const chromeHeight = 4

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := m.renderBody()
	bodyHeight := max(m.height-chromeHeight, 0)
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	if m.session.Mode() == session.ModeCommand && m.suggestions.Visible() {
		dropdown := m.suggestions.View()
		body = overlay.Composite(dropdown, body, overlay.Left, overlay.Bottom, 1, 0)
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderInput(),
		m.renderStatusBar(),
		m.renderHelp(),
	)

	if m.schemaBrowser.IsVisible() {
		main = overlay.Composite(m.schemaBrowser.View(), main, overlay.Center, overlay.Center, 0, 0)
	}
	if m.showHelpPopup {
		main = m.renderHelpPopup(main)
	}
	return main
}

func (m Model) renderBody() string {
	if m.session.Mode() == session.ModeViewer || (m.results != nil && m.session.Mode() == session.ModeCommand) {
		return m.renderResults()
	}
	return m.renderWelcome()
}

func (m Model) renderResults() string {
	if m.results == nil {
		return MetaStyle.Render("no results")
	}

	header := MetaStyle.Render(m.results.Namespace.String() + icons.IconSeparator + limitString(oneLine(m.results.Query), m.width/2))
	parts := []string{header, m.table.View()}

	_, previewHeight := m.viewerLayout()
	if previewHeight > 2 && len(m.docs) > 0 {
		parts = append(parts, PreviewStyle.Width(max(m.width-2, 0)).Render(m.preview.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderWelcome() string {
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(AccentColor()).Render(icons.IconMongo + "  ezmongo")
	b.WriteString(title + "\n\n")

	conn := m.session.Connection()
	if conn == nil {
		b.WriteString(MetaStyle.Render("not connected. press : and type connect <uri>") + "\n")
	} else {
		b.WriteString(QueryStyle.Render(conn.Redacted()) + "\n")
	}
	if last := m.session.LastQuery(); last != "" {
		b.WriteString("\n" + MetaStyle.Render("last query") + "\n")
		b.WriteString(highlight.Query(last) + "\n")
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// renderInput renders the prompt in Command mode and an empty bordered line
// otherwise.
func (m Model) renderInput() string {
	width := max(m.width-2, 0)
	if m.session.Mode() != session.ModeCommand {
		return InputStyle.Width(width).Render("")
	}
	return InputStyle.Width(width).Render(m.prompt.View())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
