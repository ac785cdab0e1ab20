// Package tui renders an assimilation run live, one window per tick: the
// ensemble mean and spread per state row, the served observation and the
// forecast error history.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ensda/internal/experiment"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(8)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	spreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps an experiment one assimilation window per tick and renders the
// ensemble diagnostics as they accumulate.
type Model struct {
	exp     *experiment.Experiment
	rows    []string
	last    experiment.Cycle
	rmse    []float64
	running bool
	err     error
}

func New(exp *experiment.Experiment) Model {
	return Model{
		exp:     exp,
		rows:    append([]string{"x", "y", "z"}, exp.Estimated()...),
		rmse:    make([]float64, 0, exp.NumCycles()),
		running: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/5, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles key input and advances the run on each tick. A failed cycle
// freezes the view on the error; the window cadence is the tick rate, not the
// integration cost.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		}
	case TickMsg:
		if m.err != nil || m.exp.Done() {
			return m, nil
		}
		if m.running {
			cyc, err := m.exp.Step()
			if err != nil {
				m.err = err
				return m, nil
			}
			m.last = cyc
			m.rmse = append(m.rmse, cyc.RMSE)
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("LORENZ 63 ENSEMBLE FORECAST") + "\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render("run failed: "+m.err.Error()) + "\n")
		s.WriteString(helpStyle.Render("q quit"))
		return s.String()
	}

	status := "running"
	switch {
	case m.exp.Done():
		status = "done"
	case !m.running:
		status = "paused"
	}
	s.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("cycle"),
		valueStyle.Render(fmt.Sprintf("%d/%d  t=%.2f  [%s]", m.exp.CycleIndex(), m.exp.NumCycles(), m.last.Time, status)),
	))

	if len(m.rmse) > 0 {
		s.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("rmse"),
			valueStyle.Render(fmt.Sprintf("%.4f", m.last.RMSE)),
		))
		for i, name := range m.rows {
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				labelStyle.Render(name),
				valueStyle.Render(fmt.Sprintf("%10.4f", m.last.Mean[i])),
				spreadStyle.Render(fmt.Sprintf("± %.4f", m.last.Spread[i])),
			))
		}
		s.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("obs"),
			valueStyle.Render(fmt.Sprintf("(%.3f, %.3f, %.3f)", m.last.Obs[0], m.last.Obs[1], m.last.Obs[2])),
		))
	}

	if len(m.rmse) > 1 {
		graph := asciigraph.Plot(m.rmse,
			asciigraph.Height(8),
			asciigraph.Width(64),
			asciigraph.Caption("forecast rmse per cycle"),
		)
		s.WriteString(graphStyle.Render(graph) + "\n")
	}

	if m.exp.Done() {
		s.WriteString(doneStyle.Render(fmt.Sprintf("finished %d cycles, mean rmse %.4f", m.exp.NumCycles(), m.exp.Result().MeanRMSE)) + "\n")
	}

	s.WriteString(helpStyle.Render("space pause · q quit"))
	return s.String()
}
