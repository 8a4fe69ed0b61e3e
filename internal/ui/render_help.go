package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezmongo/internal/session"
)

func (m Model) getHelpContext() HelpContext {
	switch {
	case m.schemaBrowser.IsVisible():
		return HelpContextBrowser
	case m.session.Mode() == session.ModeCommand:
		return HelpContextCommand
	case m.session.Mode() == session.ModeViewer:
		return HelpContextViewer
	}
	return HelpContextNormal
}

func (m Model) renderHelp() string {
	// Style for key hints - makes keys look like keyboard buttons
	keyStyle := lipgloss.NewStyle().
		Foreground(TextPrimary()).
		Background(CardBg()).
		Padding(0, 1).
		Bold(true)

	sepStyle := lipgloss.NewStyle().Foreground(TextFaint())
	descStyle := lipgloss.NewStyle().Foreground(TextSecondary())

	hint := func(key, desc string) string {
		return keyStyle.Render(key) + descStyle.Render(" "+desc)
	}

	// First binding or fallback
	key := func(bindings []string, fallback string) string {
		if len(bindings) > 0 {
			return bindings[0]
		}
		return fallback
	}

	sep := sepStyle.Render("  ")
	keys := m.config.Keys

	var hints []string
	switch m.getHelpContext() {
	case HelpContextBrowser:
		hints = append(hints,
			hint("j/k", "Nav"),
			hint("enter", "Open"),
			hint("h", "Databases"),
			hint(key(keys.Cancel, "esc"), "Close"),
		)
	case HelpContextCommand:
		hints = append(hints,
			hint(key(keys.Submit, "enter"), "Run"),
			hint(key(keys.HistoryPrev, "up")+"/"+key(keys.HistoryNext, "down"), "History"),
			hint(key(keys.Complete, "tab"), "Complete"),
			hint(key(keys.Cancel, "esc"), "Cancel"),
		)
	case HelpContextViewer:
		hints = append(hints,
			hint(key(keys.RowUp, "k")+"/"+key(keys.RowDown, "j"), "Nav"),
			hint(key(keys.ScrollLeft, "h")+"/"+key(keys.ScrollRight, "l"), "Scroll"),
			hint(key(keys.NextPage, "n"), "More"),
			hint(key(keys.RowAction, "enter"), "Edit"),
			hint(key(keys.Refresh, "r"), "Refresh"),
			hint(key(keys.Back, "esc"), "Back"),
		)
	default:
		hints = append(hints,
			hint(key(keys.Command, ":"), "Command"),
			hint(key(keys.EditQuery, "e"), "Edit query"),
			hint(key(keys.Rerun, "r"), "Rerun"),
			hint(key(keys.Results, "v"), "Results"),
			hint(key(keys.Browser, "tab"), "Schema"),
		)
	}

	hints = append(hints,
		hint(key(keys.Help, "?"), "Help"),
		hint(key(keys.Interrupt, "ctrl+c"), "Cancel/Quit"),
	)

	return strings.Join(hints, sep)
}
