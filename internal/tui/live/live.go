// Package live renders a stress run as it happens: throughput and latency
// sparklines, a failure grid and a progress bar, all fed by recorder
// snapshots.
package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sessionprobe/internal/recorder"
	"sessionprobe/internal/tui/components"
	"sessionprobe/internal/tui/styles"
)

type Model struct {
	Stats    recorder.Snapshot
	Progress progress.Model

	OpsLine     components.Sparkline
	LatencyLine components.Sparkline

	StartTime  time.Time
	LastUpdate time.Time
	LastReqs   uint64

	// ExpectedOps is an estimate; churn sampling is randomized so the true
	// op total is unknowable up front. The bar clamps at 100%.
	ExpectedOps uint64

	Width  int
	Height int
}

func NewModel(expectedOps uint64) Model {
	ops := components.NewSparkline(
		40,
		"Ops/s",
		styles.Active,
	)

	lat := components.NewSparkline(
		40,
		"Latency P90 (ms)",
		styles.Warn,
	)

	return Model{
		Progress:    progress.New(progress.WithDefaultGradient()),
		OpsLine:     ops,
		LatencyLine: lat,
		StartTime:   time.Now(),
		ExpectedOps: expectedOps,
		LastUpdate:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recorder.Snapshot:
		now := time.Now()
		dt := now.Sub(m.LastUpdate).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}

		deltaReqs := msg.Requests - m.LastReqs
		m.OpsLine.Add(float64(deltaReqs) / dt)
		m.LatencyLine.Add(msg.P90Ms)

		m.Stats = msg
		m.LastReqs = msg.Requests
		m.LastUpdate = now

		pct := 0.0
		if m.ExpectedOps > 0 {
			pct = float64(msg.Requests) / float64(m.ExpectedOps)
		}
		if pct > 1.0 {
			pct = 1.0
		}
		cmd := m.Progress.SetPercent(pct)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 4
		if half < 10 {
			half = 10
		}
		m.OpsLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	reqs := m.Stats.Requests
	failRate := 0.0
	if reqs > 0 {
		failRate = (float64(m.Stats.Fail) / float64(reqs)) * 100
	}

	var failColor lipgloss.Style
	if failRate > 5.0 {
		failColor = styles.Error
	} else if failRate > 1.0 {
		failColor = styles.Warn
	} else {
		failColor = styles.Active
	}

	col1 := fmt.Sprintf("OPS: %d\nINF: %d", reqs, m.Stats.Inflight)
	col2 := fmt.Sprintf("ERR: %.2f%%\nFAIL: %d", failRate, m.Stats.Fail)
	col3 := fmt.Sprintf("OK: %d\nP50: %.2f ms", m.Stats.Success, m.Stats.P50Ms)

	grid := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(failColor.Render(col2)),
		styles.Box.Render(col3),
	)
	s.WriteString(grid)
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.OpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %d ms",
		m.Stats.P50Ms,
		m.Stats.P90Ms,
		m.Stats.P99Ms,
		m.Stats.MaxMs,
	)
	s.WriteString(styles.Box.Width(m.Width - 4).Render(latencies))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())

	return s.String()
}
