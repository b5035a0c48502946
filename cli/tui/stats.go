package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wod-wiki/wodwiki/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_history":
		content = m.renderStatsHistory()
	case "stats_metrics":
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsHistory() string {
	data, ok := m.data.(*reader.HistoryStats)
	if !ok {
		return "Invalid data type for stats_history"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("History Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Total", int(data.TotalEntries), lipgloss.Color("#3B82F6")),
		m.renderStatBox("Completed", int(data.CompletedCount), successColor),
		m.renderStatBox("Aborted", int(data.AbortedCount), errorColor),
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Total Duration:"),
		ValueStyle.Render(fmt.Sprintf("%dms", data.TotalDurationMs))))

	return b.String()
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Runtime Metrics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Started", int(data.WorkoutsStarted), lipgloss.Color("#3B82F6")),
		m.renderStatBox("Completed", int(data.WorkoutsCompleted), successColor),
		m.renderStatBox("Aborted", int(data.WorkoutsAborted), errorColor),
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Blocks Pushed", fmt.Sprintf("%d", data.BlocksPushed)},
		{"Blocks Disposed", fmt.Sprintf("%d", data.BlocksDisposed)},
		{"Rounds Completed", fmt.Sprintf("%d", data.RoundsCompleted)},
		{"Reps Logged", fmt.Sprintf("%d", data.RepsLogged)},
		{"Timer Ticks", fmt.Sprintf("%d", data.TimerTicksObserved)},
		{"History Writes OK", fmt.Sprintf("%d", data.HistoryWriteSuccess)},
		{"History Writes Failed", fmt.Sprintf("%d", data.HistoryWriteFailure)},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1])))
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
