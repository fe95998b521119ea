// Package tui is the driver-station view: a bubbletea program that plays a
// simulated match and shows the field, the flywheel trace and every
// dashboard value as it changes.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cast"

	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/plant"
	"github.com/san-kum/robocore/internal/robot"
)

const (
	fieldWidth      = 36
	fieldHeight     = 16
	historyCapacity = 300
	frameRate       = 30
	maxEntries      = 24
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(26)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model plays a robot.Simulation a few fast periods per frame.
type Model struct {
	sim   *robot.Simulation
	robot *robot.Robot
	plant *plant.Robot
	board *dashboard.Board
	field *field

	running bool
	speed   int // fast periods per frame
	over    bool
	err     error
	rpm     []float64
}

func NewModel(sim *robot.Simulation, r *robot.Robot, p *plant.Robot, cfg plant.Config, speed int) Model {
	if speed < 1 {
		speed = 1
	}
	return Model{
		sim:     sim,
		robot:   r,
		plant:   p,
		board:   r.Dashboard(),
		field:   newField(fieldWidth, fieldHeight, cfg),
		running: true,
		speed:   speed,
		rpm:     make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

// Err is the plant error that ended the match, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sim.Stop()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.speed *= 2
		case "-", "_":
			if m.speed > 1 {
				m.speed /= 2
			}
		}
	case tickMsg:
		if m.running && !m.over {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.speed; i++ {
		more, err := m.sim.Step()
		if err != nil {
			m.err = err
		}
		if !more {
			m.over = true
			break
		}
	}
	m.rpm = append(m.rpm, m.plant.Sample().RPM)
	if len(m.rpm) > historyCapacity {
		m.rpm = m.rpm[1:]
	}
}

func (m Model) View() string {
	st := m.robot.Status()
	s := m.plant.Sample()

	var b strings.Builder
	status := onStyle.Render("RUNNING")
	switch {
	case m.over:
		status = pausedStyle.Render("MATCH OVER")
	case !m.running:
		status = pausedStyle.Render("PAUSED")
	}
	fmt.Fprintf(&b, "%s  %s  %s  %.1f/%.0fs  x%d\n",
		headerStyle.Render("ROBOCORE"), status, strings.ToUpper(st.Phase.String()),
		m.sim.Elapsed().Seconds(), m.sim.Total().Seconds(), m.speed)
	fmt.Fprintf(&b, "state %d/%d %s  shots %d\n\n", st.StateIndex+1, st.StateCount, st.State, s.Shots)

	fieldView := panelStyle.Render(m.field.draw(s))
	left := lipgloss.JoinVertical(lipgloss.Left, fieldView, m.graph())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, panelStyle.Render(m.entries())))

	if m.err != nil {
		fmt.Fprintf(&b, "\nerror: %v", m.err)
	}
	b.WriteString("\n" + helpStyle.Render("space pause  +/- speed  q quit"))
	return b.String()
}

func (m Model) graph() string {
	if len(m.rpm) < 2 {
		return ""
	}
	return graphStyle.Render(asciigraph.Plot(m.rpm,
		asciigraph.Height(6),
		asciigraph.Width(fieldWidth+4),
		asciigraph.Caption("flywheel rpm"),
	))
}

// entries lists the dashboard, booleans highlighted when set.
func (m Model) entries() string {
	var b strings.Builder
	for i, e := range m.board.Snapshot() {
		if i == maxEntries {
			fmt.Fprintf(&b, "%s\n", helpStyle.Render("..."))
			break
		}
		var v string
		switch val := e.Value.(type) {
		case bool:
			v = valueStyle.Render(cast.ToString(val))
			if val {
				v = onStyle.Render("true")
			}
		case float64:
			v = valueStyle.Render(fmt.Sprintf("%.2f", val))
		default:
			v = valueStyle.Render(cast.ToString(val))
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(e.Key), v)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Run plays the match until it ends or the user quits.
func Run(m Model) error {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	return final.(Model).Err()
}
