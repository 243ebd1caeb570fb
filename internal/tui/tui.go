// Package tui hosts the live dashboard program for stress runs.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"sessionprobe/internal/recorder"
	"sessionprobe/internal/tui/live"
	"sessionprobe/internal/tui/styles"
)

// runDoneMsg signals that the workload behind the dashboard finished.
type runDoneMsg struct{}

// Model wraps the live view in a runnable program: it pumps recorder
// snapshots in as messages and quits when the run completes or the user
// bails out.
type Model struct {
	live    live.Model
	updates <-chan recorder.Snapshot
	done    <-chan struct{}
}

func NewModel(updates <-chan recorder.Snapshot, done <-chan struct{}, expectedOps uint64) Model {
	return Model{
		live:    live.NewModel(expectedOps),
		updates: updates,
		done:    done,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.nextSnapshot(), m.waitDone())
}

func (m Model) nextSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return runDoneMsg{}
		}
		return snap
	}
}

func (m Model) waitDone() tea.Cmd {
	return func() tea.Msg {
		<-m.done
		return runDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recorder.Snapshot:
		lv, cmd := m.live.Update(msg)
		m.live = lv
		return m, tea.Batch(cmd, m.nextSnapshot())

	case runDoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	default:
		lv, cmd := m.live.Update(msg)
		m.live = lv
		return m, cmd
	}
}

func (m Model) View() string {
	out := styles.Title.Render("sessionprobe stress") + "\n\n"
	out += m.live.View()
	out += "\n" + styles.Subtle.Render("q to quit")
	return out
}

// Run blocks until the dashboard exits.
func Run(updates <-chan recorder.Snapshot, done <-chan struct{}, expectedOps uint64) error {
	p := tea.NewProgram(NewModel(updates, done, expectedOps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
