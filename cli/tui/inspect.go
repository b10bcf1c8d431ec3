package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/policyrt/cli/reader"
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
	case "inspect_session":
		content = m.renderInspectSession()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectSession() string {
	data, ok := m.data.(*reader.InspectSessionResponse)
	if !ok {
		return "Invalid data type for inspect_session"
	}

	var b []byte
	write := func(s string) { b = append(b, s...) }

	write(TitleStyle.Render("Session Details"))
	write("\n\n")

	state := "unbuilt"
	if data.Built {
		state = "built"
	}

	rows := [][2]string{
		{"Session ID", data.SessionID},
		{"Policy ID", data.PolicyID},
		{"State", state},
		{"Events Ingested", fmt.Sprintf("%d", data.Metrics.EventsIngested)},
		{"Events Rejected", fmt.Sprintf("%d", data.Metrics.EventsRejected)},
		{"Condition Records", fmt.Sprintf("%d", data.Metrics.ConditionRecords)},
		{"Verbose Records", fmt.Sprintf("%d", data.Metrics.VerboseRecords)},
		{"Malformed Traces", fmt.Sprintf("%d", data.Metrics.MalformedTraces)},
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "State" {
			value = StateStyle(state).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		write(fmt.Sprintf("%s %s\n", label, value))
	}

	return BoxStyle.Render(string(b))
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
	return model.View()
}
