package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendsim/internal/pendulum"
)

const historyCapacity = 240

type TickMsg time.Time

// Model drives a Simulator from terminal frames.
type Model struct {
	sim     *pendulum.Simulator
	title   string
	frame   time.Duration
	last    time.Time
	running bool
	err     error

	energyHistory []float64
	theta1History []float64
	theta2History []float64
	lastSteps     int
	showHelp      bool
}

// NewModel wraps sim. fps is the terminal refresh rate; it does not change
// the physics step.
func NewModel(sim *pendulum.Simulator, title string, fps float64) Model {
	if fps <= 0 {
		fps = 30
	}
	m := Model{
		sim:           sim,
		title:         title,
		frame:         time.Duration(float64(time.Second) / fps),
		running:       true,
		energyHistory: make([]float64, 0, historyCapacity),
		theta1History: make([]float64, 0, historyCapacity),
		theta2History: make([]float64, 0, historyCapacity),
	}
	m.record()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space":
			if m.err == nil {
				m.running = !m.running
			}
		case ".":
			if !m.running && m.err == nil {
				m.fail(m.sim.Tick())
				m.record()
			}
		case "r":
			m.reset()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		now := time.Time(msg)
		if m.running && !m.last.IsZero() {
			n, err := m.sim.Advance(now.Sub(m.last))
			m.lastSteps = n
			m.fail(err)
			if n > 0 {
				m.record()
			}
		}
		m.last = now
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) fail(err error) {
	if err != nil {
		m.err = err
		m.running = false
	}
}

func (m *Model) record() {
	s := m.sim.State()
	m.energyHistory = appendCapped(m.energyHistory, m.sim.Energy())
	m.theta1History = appendCapped(m.theta1History, s.Base.Angle)
	m.theta2History = appendCapped(m.theta2History, s.End.Angle)
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m *Model) reset() {
	m.sim.Reset()
	m.err = nil
	m.running = true
	m.last = time.Time{}
	m.energyHistory = m.energyHistory[:0]
	m.theta1History = m.theta1History[:0]
	m.theta2History = m.theta2History[:0]
	m.record()
}

// Steps reports how many fixed steps the simulator has taken.
func (m Model) Steps() int { return m.sim.Steps() }

func (m Model) Err() error { return m.err }

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("HALTED") + "  " + m.err.Error() + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	state := m.sim.State()
	_, baseTip, endTip := m.sim.Positions()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2f", m.sim.Time()))
	row("Steps", fmt.Sprintf("%d (+%d)", m.sim.Steps(), m.lastSteps))
	row("θ₁ / ω₁", fmt.Sprintf("%+.4f / %+.5f", state.Base.Angle, state.Base.AngularVelocity))
	row("θ₂ / ω₂", fmt.Sprintf("%+.4f / %+.5f", state.End.Angle, state.End.AngularVelocity))
	row("Base tip", fmt.Sprintf("(%7.1f, %7.1f)", baseTip.X, baseTip.Y))
	row("End tip", fmt.Sprintf("(%7.1f, %7.1f)", endTip.X, endTip.Y))
	row("Energy", fmt.Sprintf("%.3f", m.sim.Energy()))
	row("θ₁", Sparkline(m.theta1History, 40))
	row("θ₂", Sparkline(m.theta2History, 40))

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(5), asciigraph.Width(40), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause .:Step R:Reset ?:Help Q:Quit"))
	view := panelStyle.Render(s.String())

	if m.showHelp {
		cfg := m.sim.Config()
		help := fmt.Sprintf("tick rate %.0f Hz, dt %g, max %d substeps per frame, damping %g, policy %s",
			cfg.TickRate, cfg.Dt, cfg.MaxSubsteps, cfg.Damping, cfg.Policy)
		return lipgloss.JoinVertical(lipgloss.Left, view, helpStyle.Render(help))
	}
	return view
}

// Run starts the program full screen and blocks until the user quits.
func Run(sim *pendulum.Simulator, title string, fps float64) error {
	final, err := tea.NewProgram(NewModel(sim, title, fps), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
