package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

func (m Model) renderHelpPopup(main string) string {
	var content strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(AccentColor()).Render("Keyboard Shortcuts")
	content.WriteString(title)
	content.WriteString("\n\n")

	keys := m.config.Keys

	section := func(name string, bindings []struct{ key, desc string }) {
		header := lipgloss.NewStyle().Bold(true).Foreground(HighlightColor()).Render(name)
		content.WriteString(header + "\n")
		for _, b := range bindings {
			keyStyle := lipgloss.NewStyle().Foreground(SuccessColor()).Width(15)
			descStyle := lipgloss.NewStyle().Foreground(TextSecondary())
			content.WriteString(fmt.Sprintf("  %s %s\n", keyStyle.Render(b.key), descStyle.Render(b.desc)))
		}
		content.WriteString("\n")
	}

	section("Normal", []struct{ key, desc string }{
		{strings.Join(keys.Command, "/"), "Command prompt"},
		{strings.Join(keys.EditQuery, "/"), "Edit query in $EDITOR"},
		{strings.Join(keys.Rerun, "/"), "Rerun last query"},
		{strings.Join(keys.Results, "/"), "Back to results"},
		{strings.Join(keys.Browser, "/"), "Schema browser"},
		{strings.Join(keys.Quit, "/"), "Quit"},
	})

	section("Command", []struct{ key, desc string }{
		{strings.Join(keys.Submit, "/"), "Run command"},
		{strings.Join(keys.HistoryPrev, "/"), "Previous history match"},
		{strings.Join(keys.HistoryNext, "/"), "Next history match"},
		{strings.Join(keys.Complete, "/"), "Complete"},
		{strings.Join(keys.Cancel, "/"), "Cancel"},
	})

	section("Results", []struct{ key, desc string }{
		{strings.Join(keys.RowUp, "/"), "Previous document"},
		{strings.Join(keys.RowDown, "/"), "Next document"},
		{strings.Join(keys.ScrollLeft, "/"), "Scroll left"},
		{strings.Join(keys.ScrollRight, "/"), "Scroll right"},
		{strings.Join(keys.NextPage, "/"), "Fetch more"},
		{strings.Join(keys.RowAction, "/"), "Edit document"},
		{strings.Join(keys.Refresh, "/"), "Run again"},
		{strings.Join(keys.Back, "/"), "Back"},
	})

	section("Commands", []struct{ key, desc string }{
		{"use <db>", "Switch database"},
		{"connect <uri>", "Connect"},
		{"connect !(cmd)", "Connect to the URI cmd prints"},
		{"db.<c>.find()", "Query"},
	})

	section("Anywhere", []struct{ key, desc string }{
		{strings.Join(keys.Interrupt, "/"), "Cancel running task, quit when idle"},
		{strings.Join(keys.Help, "/"), "Show this help"},
	})

	content.WriteString(lipgloss.NewStyle().Faint(true).Render("Press Esc or ? to close"))

	popupBox := PopupStyle.
		Width(56).
		MaxHeight(m.height - 2).
		Background(BgPrimary()).
		Render(content.String())

	return overlay.Composite(popupBox, main, overlay.Center, overlay.Center, 0, 0)
}
