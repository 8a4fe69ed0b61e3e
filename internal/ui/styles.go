// internal/ui/styles.go
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezmongo/internal/config"
	"github.com/nhath/ezmongo/internal/ui/components/schemabrowser"
	"github.com/nhath/ezmongo/internal/ui/components/suggestions"
)

var (
	// Colors (exported via getter functions below)
	textPrimary   lipgloss.Color
	textSecondary lipgloss.Color
	textFaint     lipgloss.Color

	accentColor    lipgloss.Color
	successColor   lipgloss.Color
	errorColor     lipgloss.Color
	highlightColor lipgloss.Color
	warningColor   lipgloss.Color

	bgPrimary   lipgloss.Color
	bgSecondary lipgloss.Color
	cardBg      lipgloss.Color

	// Styles
	StatusBarStyle   lipgloss.Style
	NormalModeStyle  lipgloss.Style
	CommandModeStyle lipgloss.Style
	EditorModeStyle  lipgloss.Style
	ViewerModeStyle  lipgloss.Style
	ConnectionStyle  lipgloss.Style
	QueryStyle       lipgloss.Style
	MetaStyle        lipgloss.Style
	InputStyle       lipgloss.Style
	PromptStyle      lipgloss.Style
	SpinnerStyle     lipgloss.Style
	ErrorStyle       lipgloss.Style
	PopupStyle       lipgloss.Style
	PreviewStyle     lipgloss.Style
)

// Color getter functions for use in components
func TextPrimary() lipgloss.Color    { return textPrimary }
func TextSecondary() lipgloss.Color  { return textSecondary }
func TextFaint() lipgloss.Color      { return textFaint }
func AccentColor() lipgloss.Color    { return accentColor }
func SuccessColor() lipgloss.Color   { return successColor }
func ErrorColor() lipgloss.Color     { return errorColor }
func HighlightColor() lipgloss.Color { return highlightColor }
func WarningColor() lipgloss.Color   { return warningColor }
func BgPrimary() lipgloss.Color      { return bgPrimary }
func BgSecondary() lipgloss.Color    { return bgSecondary }
func CardBg() lipgloss.Color         { return cardBg }

// InitStyles initializes the global styles based on the provided configuration theme
func InitStyles(theme config.Theme) {
	textPrimary = lipgloss.Color(theme.TextPrimary)
	textSecondary = lipgloss.Color(theme.TextSecondary)
	textFaint = lipgloss.Color(theme.TextFaint)

	accentColor = lipgloss.Color(theme.Accent)
	successColor = lipgloss.Color(theme.Success)
	errorColor = lipgloss.Color(theme.Error)
	highlightColor = lipgloss.Color(theme.Highlight)
	warningColor = lipgloss.Color(theme.Warning)

	bgPrimary = lipgloss.Color(theme.BgPrimary)
	bgSecondary = lipgloss.Color(theme.BgSecondary)
	cardBg = lipgloss.Color(theme.CardBg)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(textPrimary).
		Background(bgSecondary)

	modeBadge := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(bgPrimary)
	NormalModeStyle = modeBadge.Background(successColor)
	CommandModeStyle = modeBadge.Background(accentColor)
	EditorModeStyle = modeBadge.Background(warningColor)
	ViewerModeStyle = modeBadge.Background(highlightColor)

	ConnectionStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(cardBg).
		Foreground(textPrimary)

	QueryStyle = lipgloss.NewStyle().
		Foreground(textPrimary)

	MetaStyle = lipgloss.NewStyle().
		Foreground(textFaint).
		Italic(true)

	InputStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(textFaint)

	PromptStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(accentColor)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	PopupStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlightColor).
		Padding(1, 2)

	PreviewStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(textFaint).
		Padding(0, 1)
}

// SuggestionStyles returns the prompt dropdown styles for the current theme.
func SuggestionStyles() suggestions.Styles {
	return suggestions.Styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(textFaint).
			Padding(0, 1),
		Item: lipgloss.NewStyle().
			Foreground(textPrimary),
		Selected: lipgloss.NewStyle().
			Foreground(bgPrimary).
			Background(highlightColor).
			Bold(true),
		Detail: lipgloss.NewStyle().
			Foreground(textFaint).
			Italic(true),
	}
}

// BrowserStyles returns the schema browser styles for the current theme.
func BrowserStyles() schemabrowser.Styles {
	return schemabrowser.Styles{
		Container: PopupStyle,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),
		Item: lipgloss.NewStyle().
			Foreground(textPrimary),
		ItemActive: lipgloss.NewStyle().
			Foreground(bgPrimary).
			Background(highlightColor).
			Bold(true),
		ItemCurrent: lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true),
		Spinner: SpinnerStyle,
		Footer: lipgloss.NewStyle().
			Foreground(textFaint).
			Italic(true),
	}
}
