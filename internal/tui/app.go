package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hegde-atri/ec2-burrow/internal/types"
)

// Registry is what the dashboard needs from the instance registry
type Registry interface {
	Names() []string
	IDs() []string
	States(ctx context.Context) ([]types.InstanceStatus, error)
	Start(ctx context.Context, name string) (types.Transition, error)
	Stop(ctx context.Context, name string) (types.Transition, error)
	Address(ctx context.Context, name string) (string, error)
}

// StatesMsg carries a fresh batch of instance states
type StatesMsg struct {
	States []types.InstanceStatus
	Err    error
}

// TransitionMsg is sent when a start or stop request completes
type TransitionMsg struct {
	Name       string
	Transition types.Transition
	Err        error
}

// AddressMsg is sent when an address lookup completes
type AddressMsg struct {
	Name    string
	Address string
	Err     error
}

// App represents the dashboard application
type App struct {
	program *tea.Program
}

// New creates the dashboard over reg
func New(ctx context.Context, version string, reg Registry) *App {
	m := newModel(ctx, version, reg)
	return &App{program: tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))}
}

// Run starts the dashboard and blocks until it exits
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}

type model struct {
	ctx      context.Context
	version  string
	registry Registry
	names    []string
	ids      map[string]string // configured instance id per name
	states   map[string]types.InstanceStatus
	table    table.Model
	width    int
	height   int
	// last line shown under the table
	message string
	busy    bool
	// confirm dialogs
	showingConfirmQuit bool
	showingConfirmStop bool
	stopTarget         string
}

func newModel(ctx context.Context, version string, reg Registry) model {
	names := reg.Names()
	ids := make(map[string]string, len(names))
	for i, id := range reg.IDs() {
		if i < len(names) {
			ids[names[i]] = id
		}
	}
	states := make(map[string]types.InstanceStatus, len(names))
	return model{
		ctx:      ctx,
		version:  version,
		registry: reg,
		names:    names,
		ids:      ids,
		states:   states,
		table:    createInstanceTable(names, ids, states),
		busy:     true,
		message:  "Loading instance states...",
	}
}

// Init fetches the initial states
func (m model) Init() tea.Cmd {
	return m.refresh()
}

func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		states, err := m.registry.States(m.ctx)
		return StatesMsg{States: states, Err: err}
	}
}

func (m model) start(name string) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.registry.Start(m.ctx, name)
		return TransitionMsg{Name: name, Transition: tr, Err: err}
	}
}

func (m model) stop(name string) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.registry.Stop(m.ctx, name)
		return TransitionMsg{Name: name, Transition: tr, Err: err}
	}
}

func (m model) address(name string) tea.Cmd {
	return func() tea.Msg {
		addr, err := m.registry.Address(m.ctx, name)
		return AddressMsg{Name: name, Address: addr, Err: err}
	}
}

func (m model) selected() (string, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.names) {
		return "", false
	}
	return m.names[cursor], true
}

// Update handles incoming messages and updates the model state
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// header (~6 lines), footer (~3 lines)
		headerHeight := 8
		footerHeight := 4
		m.table.SetWidth(m.width - 4)
		m.table.SetHeight(m.height - headerHeight - footerHeight)

	case StatesMsg:
		m.busy = false
		if msg.Err != nil {
			m.message = "Error: " + msg.Err.Error()
			return m, nil
		}
		m.states = make(map[string]types.InstanceStatus, len(msg.States))
		for _, s := range msg.States {
			m.states[s.Name] = s
		}
		m.message = fmt.Sprintf("%d of %d instances reported", len(msg.States), len(m.names))
		m.table.SetRows(instanceRows(m.names, m.ids, m.states))

	case TransitionMsg:
		m.busy = false
		if msg.Err != nil {
			m.message = fmt.Sprintf("%s: %v", msg.Name, msg.Err)
			return m, nil
		}
		s := m.states[msg.Name]
		s.Name = msg.Name
		s.State = msg.Transition.Current
		m.states[msg.Name] = s
		m.message = fmt.Sprintf("%s: %s", msg.Name, msg.Transition)
		m.table.SetRows(instanceRows(m.names, m.ids, m.states))

	case AddressMsg:
		m.busy = false
		if msg.Err != nil {
			m.message = fmt.Sprintf("%s: %v", msg.Name, msg.Err)
		} else {
			m.message = fmt.Sprintf("%s: %s", msg.Name, msg.Address)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.showingConfirmStop {
				m.showingConfirmStop = false
			} else {
				m.showingConfirmQuit = !m.showingConfirmQuit
			}
			return m, nil
		case "esc":
			m.showingConfirmQuit = false
			m.showingConfirmStop = false
			return m, nil
		case "y":
			if m.showingConfirmQuit {
				return m, tea.Quit
			}
			if m.showingConfirmStop {
				m.showingConfirmStop = false
				m.busy = true
				m.message = fmt.Sprintf("Stopping %s...", m.stopTarget)
				return m, m.stop(m.stopTarget)
			}
			return m, nil
		}

		// Dialogs swallow everything else
		if m.showingConfirmQuit || m.showingConfirmStop {
			return m, nil
		}

		switch msg.String() {
		case "r":
			if !m.busy {
				m.busy = true
				m.message = "Refreshing..."
				return m, m.refresh()
			}
			return m, nil
		case "s":
			if name, ok := m.selected(); ok && !m.busy {
				m.busy = true
				m.message = fmt.Sprintf("Starting %s...", name)
				return m, m.start(name)
			}
			return m, nil
		case "x":
			if name, ok := m.selected(); ok && !m.busy {
				m.showingConfirmStop = true
				m.stopTarget = name
			}
			return m, nil
		case "enter":
			if name, ok := m.selected(); ok && !m.busy {
				m.busy = true
				m.message = fmt.Sprintf("Looking up %s...", name)
				return m, m.address(name)
			}
			return m, nil
		}

		// Delegate arrow key navigation to the table component
		m.table, cmd = m.table.Update(msg)
	}

	return m, cmd
}

var (
	primaryColor   = lipgloss.Color("#FF9900")
	secondaryColor = lipgloss.Color("#7D56F4")
	mutedColor     = lipgloss.Color("#626262")
	warningColor   = lipgloss.Color("#FF6B6B")
)

// View renders the dashboard and any open dialog
func (m model) View() string {
	var (
		asciiStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true)

		titleStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

		subtitleStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Italic(true).
				MarginBottom(1)

		messageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF"))

		footerStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				MarginTop(1).
				Align(lipgloss.Center)
	)

	ascii := asciiStyle.Render(`  ___
 (o o)
 (. .)
  \-/  `)
	title := titleStyle.Render(fmt.Sprintf("EC2 Burrow v%s", m.version))
	headerTop := lipgloss.JoinHorizontal(
		lipgloss.Top,
		ascii,
		lipgloss.NewStyle().Padding(0, 2).Render(title),
	)
	header := lipgloss.JoinVertical(
		lipgloss.Left,
		headerTop,
		subtitleStyle.Render("Your cosy burrow into EC2"),
	)

	footer := footerStyle.Render("r: refresh • s: start • x: stop • Enter: address • ↑/↓: navigate • q: quit")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		m.table.View(),
		messageStyle.Render(m.message),
		footer,
	)

	switch {
	case m.showingConfirmStop:
		return m.dialog(warningColor, "Confirm Stop",
			fmt.Sprintf("Stop instance %s?", m.stopTarget),
			"Press 'y' to stop • 'q' or Esc to cancel")
	case m.showingConfirmQuit:
		return m.dialog(warningColor, "Confirm Quit",
			"Are you sure you want to exit?",
			"Press 'y' to quit • 'q' or Esc to cancel")
	}

	if m.width > 0 {
		content = lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

func (m model) dialog(color lipgloss.Color, title, text, help string) string {
	contentWidth := 52 // Width minus padding
	center := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center)

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(2, 4).
		Width(60)

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		center.Render(lipgloss.NewStyle().Foreground(color).Bold(true).Render(title)),
		"",
		center.Render(lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Render(text)),
		"",
		center.Render(lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render(help)),
	)

	box := border.Render(body)
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// instanceRows builds one row per configured name; unreported instances show "unknown"
func instanceRows(names []string, ids map[string]string, states map[string]types.InstanceStatus) []table.Row {
	rows := make([]table.Row, len(names))
	for i, name := range names {
		s, ok := states[name]
		state, id := "unknown", ids[name]
		if ok && s.State != "" {
			state = s.State
		}
		rows[i] = table.Row{name, id, strings.ToLower(state)}
	}
	return rows
}

// createInstanceTable initializes the table with columns and the configured instances
func createInstanceTable(names []string, ids map[string]string, states map[string]types.InstanceStatus) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Instance ID", Width: 22},
		{Title: "State", Width: 15},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(instanceRows(names, ids, states)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(secondaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(secondaryColor)

	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(secondaryColor).
		Bold(true)

	t.SetStyles(s)

	return t
}
