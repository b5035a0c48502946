package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wod-wiki/wodwiki/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_entry":
		content = m.renderInspectEntry()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectEntry() string {
	data, ok := m.data.(*reader.InspectEntryResponse)
	if !ok {
		return "Invalid data type for inspect_entry"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Workout Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"ID", data.ID},
		{"Title", data.Title},
		{"Outcome", data.Outcome},
		{"Created At", data.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Updated At", data.UpdatedAt.Format("2006-01-02 15:04:05")},
		{"Duration", fmt.Sprintf("%dms", data.DurationMs)},
		{"Spans", fmt.Sprintf("%d", data.SpanCount)},
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "Outcome" {
			value = StateStyle(data.Outcome).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	if len(data.Tags) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Tags:\n"))
		for _, tag := range data.Tags {
			b.WriteString(fmt.Sprintf("  • %s\n", ValueStyle.Render(tag)))
		}
	}

	if data.Notes != "" {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Notes:"), ValueStyle.Render(data.Notes)))
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
