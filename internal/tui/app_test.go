package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hegde-atri/ec2-burrow/internal/types"
)

type fakeRegistry struct {
	states  []types.InstanceStatus
	started []string
	stopped []string
}

func (f *fakeRegistry) Names() []string { return []string{"web", "db"} }

func (f *fakeRegistry) IDs() []string { return []string{"i-1", "i-2"} }

func (f *fakeRegistry) States(context.Context) ([]types.InstanceStatus, error) {
	return f.states, nil
}

func (f *fakeRegistry) Start(_ context.Context, name string) (types.Transition, error) {
	f.started = append(f.started, name)
	return types.Transition{Previous: "stopped", Current: "pending"}, nil
}

func (f *fakeRegistry) Stop(_ context.Context, name string) (types.Transition, error) {
	f.stopped = append(f.stopped, name)
	return types.Transition{Previous: "running", Current: "stopping"}, nil
}

func (f *fakeRegistry) Address(_ context.Context, name string) (string, error) {
	if name == "db" {
		return "", errors.New("no public address")
	}
	return "203.0.113.7", nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func loaded(t *testing.T, reg *fakeRegistry) model {
	t.Helper()
	m := newModel(context.Background(), "test", reg)
	msg := m.Init()()
	m, _ = update(t, m, msg)
	return m
}

func TestInit_LoadsStates(t *testing.T) {
	reg := &fakeRegistry{states: []types.InstanceStatus{{Name: "web", InstanceID: "i-1", State: "running"}}}
	m := loaded(t, reg)

	assert.False(t, m.busy)
	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "running", rows[0][2])
	assert.Equal(t, "i-1", rows[0][1])
	assert.Equal(t, "unknown", rows[1][2])
	assert.Contains(t, m.message, "1 of 2")
}

func TestRows_ShowConfiguredIDsWithoutStates(t *testing.T) {
	reg := &fakeRegistry{}
	m := newModel(context.Background(), "test", reg)

	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "i-1", rows[0][1])
	assert.Equal(t, "i-2", rows[1][1])

	// nothing reported by the provider
	m, _ = update(t, m, m.Init()())
	rows = m.table.Rows()
	assert.Equal(t, []string{"web", "i-1", "unknown"}, []string(rows[0]))
	assert.Equal(t, []string{"db", "i-2", "unknown"}, []string(rows[1]))
}

func TestStart_SelectedInstance(t *testing.T) {
	reg := &fakeRegistry{}
	m := loaded(t, reg)

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"web"}, reg.started)
	assert.Equal(t, "web: stopped -> pending", m.message)
	assert.Equal(t, "pending", m.table.Rows()[0][2])
}

func TestStop_NeedsConfirmation(t *testing.T) {
	reg := &fakeRegistry{}
	m := loaded(t, reg)

	m, cmd := update(t, m, key("x"))
	assert.Nil(t, cmd)
	assert.True(t, m.showingConfirmStop)
	assert.Empty(t, reg.stopped)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.showingConfirmStop)

	m, _ = update(t, m, key("x"))
	m, cmd = update(t, m, key("y"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"web"}, reg.stopped)
	assert.Equal(t, "stopping", m.table.Rows()[0][2])
}

func TestAddress_ShowsErrors(t *testing.T) {
	m := loaded(t, &fakeRegistry{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.message, "db: no public address")
}

func TestQuit_NeedsConfirmation(t *testing.T) {
	m := loaded(t, &fakeRegistry{})

	m, cmd := update(t, m, key("q"))
	assert.Nil(t, cmd)
	assert.True(t, m.showingConfirmQuit)
	assert.Contains(t, m.View(), "Confirm Quit")

	_, cmd = update(t, m, key("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
