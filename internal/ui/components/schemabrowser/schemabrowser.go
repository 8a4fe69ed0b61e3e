// Package schemabrowser provides a popup for browsing the databases and
// collections of the connected server.
package schemabrowser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezmongo/internal/schema"
)

type State int

const (
	StateDatabases State = iota
	StateCollections
)

// DatabaseSelectedMsg is sent when a database is picked.
type DatabaseSelectedMsg struct {
	Database string
}

// CollectionSelectedMsg is sent when a collection is picked.
type CollectionSelectedMsg struct {
	Database   string
	Collection string
}

// Styles for the browser
type Styles struct {
	Container   lipgloss.Style
	Title       lipgloss.Style
	Item        lipgloss.Style
	ItemActive  lipgloss.Style
	ItemCurrent lipgloss.Style
	Spinner     lipgloss.Style
	Footer      lipgloss.Style
}

// DefaultStyles returns default styling using Nord palette
func DefaultStyles() Styles {
	textPrimary := lipgloss.Color("#D8DEE9")    // Nord4: Light gray
	textFaint := lipgloss.Color("#4C566A")      // Nord3: Dark gray
	accentColor := lipgloss.Color("#88C0D0")    // Nord8: Cyan blue
	successColor := lipgloss.Color("#A3BE8C")   // Nord14: Green
	highlightColor := lipgloss.Color("#8FBCBB") // Nord7: Teal

	return Styles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(1, 2),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1),
		Item: lipgloss.NewStyle().
			Foreground(textPrimary),
		ItemActive: lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true),
		ItemCurrent: lipgloss.NewStyle().
			Foreground(highlightColor).
			Italic(true),
		Spinner: lipgloss.NewStyle().
			Foreground(highlightColor),
		Footer: lipgloss.NewStyle().
			Foreground(textFaint),
	}
}

// Model represents the schema browser state
type Model struct {
	visible     bool
	loading     bool
	state       State
	snapshot    *schema.Snapshot
	database    string
	selectedIdx int
	width       int
	height      int
	styles      Styles
	viewport    viewport.Model
	spinner     spinner.Model
}

// New creates a new schema browser
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		state:    StateDatabases,
		styles:   DefaultStyles(),
		viewport: viewport.New(0, 0),
		spinner:  s,
	}
}

// SetStyles sets custom styles
func (m Model) SetStyles(s Styles) Model {
	m.styles = s
	m.spinner.Style = s.Spinner
	return m
}

// SetSize sets the available size
func (m Model) SetSize(w, h int) Model {
	m.width = w
	m.height = h
	popupWidth, popupHeight := m.popupSize()
	m.viewport.Width = popupWidth - 6
	m.viewport.Height = popupHeight - 6
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	return m
}

// Toggle toggles visibility. Opening starts on the collections of the
// active database.
func (m Model) Toggle() Model {
	m.visible = !m.visible
	if m.visible {
		m.state = StateCollections
		m.database = ""
		if m.snapshot != nil {
			m.database = m.snapshot.Database
		}
		if m.database == "" {
			m.state = StateDatabases
		}
		m.selectedIdx = 0
		m.viewport.YOffset = 0
	}
	return m
}

// Hide closes the browser.
func (m Model) Hide() Model {
	m.visible = false
	return m
}

// IsVisible returns visibility state
func (m Model) IsVisible() bool {
	return m.visible
}

// StartLoading begins loading state
func (m Model) StartLoading() (Model, tea.Cmd) {
	m.loading = true
	return m, m.spinner.Tick
}

// SetSnapshot sets the schema data and stops loading
func (m Model) SetSnapshot(s *schema.Snapshot) Model {
	m.snapshot = s
	m.loading = false
	if m.selectedIdx >= len(m.items()) {
		m.selectedIdx = 0
	}
	return m
}

// StopLoading clears the loading state without new data.
func (m Model) StopLoading() Model {
	m.loading = false
	return m
}

func (m Model) items() []string {
	if m.snapshot == nil {
		return nil
	}
	if m.state == StateDatabases {
		return m.snapshot.Databases
	}
	return m.snapshot.CollectionsOf(m.database)
}

// Update handles input
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible && !m.loading {
		return m, nil
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		items := m.items()
		switch msg.String() {
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m = m.ensureSelectionVisible()
			}
		case "down", "j":
			if m.selectedIdx < len(items)-1 {
				m.selectedIdx++
				m = m.ensureSelectionVisible()
			}
		case "enter", "l", "right":
			if len(items) == 0 {
				return m, nil
			}
			picked := items[m.selectedIdx]
			if m.state == StateDatabases {
				m.state = StateCollections
				m.database = picked
				m.selectedIdx = 0
				m.viewport.YOffset = 0
				return m, func() tea.Msg { return DatabaseSelectedMsg{Database: picked} }
			}
			m.visible = false
			database := m.database
			return m, func() tea.Msg { return CollectionSelectedMsg{Database: database, Collection: picked} }
		case "backspace", "h", "left":
			if m.state == StateCollections {
				m.state = StateDatabases
				m.selectedIdx = 0
				for i, name := range m.items() {
					if name == m.database {
						m.selectedIdx = i
						break
					}
				}
				m = m.ensureSelectionVisible()
			}
		case "esc", "q", "tab":
			m.visible = false
		}
	}
	return m, nil
}

func (m Model) ensureSelectionVisible() Model {
	if m.viewport.Height <= 0 {
		return m
	}

	if m.selectedIdx < m.viewport.YOffset {
		m.viewport.YOffset = m.selectedIdx
	} else if m.selectedIdx >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.YOffset = m.selectedIdx - m.viewport.Height + 1
	}
	return m
}

// View renders the browser popup
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	if m.loading && m.snapshot == nil {
		return m.styles.Container.
			Width(40).
			Height(5).
			Render(fmt.Sprintf("\n  %s Loading databases...", m.spinner.View()))
	}

	popupWidth, popupHeight := m.popupSize()

	var view strings.Builder
	title := " Databases"
	if m.state == StateCollections {
		title = " " + m.database
	}
	if m.loading {
		title += " " + m.spinner.View()
	}
	view.WriteString(m.styles.Title.Render(title))
	view.WriteString("\n")

	yOffset := m.viewport.YOffset
	m.viewport.SetContent(m.renderContent())
	m.viewport.SetYOffset(yOffset)
	view.WriteString(m.viewport.View())

	view.WriteString("\n")
	footer := "enter: open • esc: close"
	if m.state == StateCollections {
		footer = "enter: find • h: databases • esc: close"
	}
	view.WriteString(m.styles.Footer.Render(footer))

	return m.styles.Container.
		Width(popupWidth).
		Height(popupHeight).
		Render(view.String())
}

func (m Model) popupSize() (int, int) {
	popupWidth := int(float64(m.width) * 0.6)
	if popupWidth > 70 {
		popupWidth = 70
	}
	popupHeight := int(float64(m.height) * 0.7)
	if popupHeight > 30 {
		popupHeight = 30
	}
	return popupWidth, popupHeight
}

func (m Model) renderContent() string {
	items := m.items()
	if len(items) == 0 {
		if m.state == StateDatabases {
			return m.styles.Item.Render("  (no databases)")
		}
		return m.styles.Item.Render("  (no collections)")
	}

	current := ""
	if m.snapshot != nil && m.state == StateDatabases {
		current = m.snapshot.Database
	}

	var content strings.Builder
	for i, name := range items {
		style := m.styles.Item
		prefix := "  "
		if name == current {
			style = m.styles.ItemCurrent
		}
		if i == m.selectedIdx {
			style = m.styles.ItemActive
			prefix = "▸ "
		}
		content.WriteString(style.Render(prefix + name))
		content.WriteString("\n")
	}
	return strings.TrimSuffix(content.String(), "\n")
}
