package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/sim"
)

const (
	historyCapacity = 600
	targetStep      = 100
	// DefaultStepsPerFrame advances ten samples per frame.
	DefaultStepsPerFrame = 10
)

type TickMsg time.Time

// Model contains the simulation, plot history and UI context.
type Model struct {
	sim           *sim.Simulator
	cfg           sim.Config
	maxDuty       int32
	step          int
	last          sim.Sample
	running       bool
	stepsPerFrame int
	temps         []float64
	targets       []float64
	duties        []float64
	paramKeys     []string
	selected      int
	showHelp      bool
}

// NewModel starts the view on the first schedule target. maxDuty scales
// the duty bar.
func NewModel(s *sim.Simulator, cfg sim.Config, maxDuty int32) Model {
	if len(cfg.Schedule) > 0 {
		s.Controller().SetTarget(cfg.Schedule[0].Target)
	}
	if maxDuty <= 0 {
		maxDuty = 1
	}

	var keys []string
	if c, ok := s.Controller().(control.Configurable); ok {
		for k := range c.Params() {
			if k == "target" || k == "mode" {
				continue
			}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return Model{
		sim:           s,
		cfg:           cfg,
		maxDuty:       maxDuty,
		running:       true,
		stepsPerFrame: DefaultStepsPerFrame,
		temps:         make([]float64, 0, historyCapacity),
		targets:       make([]float64, 0, historyCapacity),
		duties:        make([]float64, 0, historyCapacity),
		paramKeys:     keys,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "up", "k":
			m.adjustTarget(targetStep)
		case "down", "j":
			m.adjustTarget(-targetStep)
		case "tab":
			m.cycleParam()
		case "+", "=":
			m.adjustParam(1)
		case "-", "_":
			m.adjustParam(-1)
		case "m":
			if pid, ok := m.sim.Controller().(*control.PID); ok {
				if pid.Mode == control.OnError {
					pid.Mode = control.OnMeasurement
				} else {
					pid.Mode = control.OnError
				}
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerFrame; i++ {
				m.advance()
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	m.last = m.sim.Tick(m.step, m.cfg)
	m.step++
	m.temps = push(m.temps, m.last.Temperature)
	m.targets = push(m.targets, float64(m.last.Target)/m.cfg.Scale)
	m.duties = push(m.duties, float64(m.last.Output))
}

func push(h []float64, v float64) []float64 {
	if len(h) >= historyCapacity {
		h = append(h[:0], h[1:]...)
	}
	return append(h, v)
}

func (m *Model) adjustTarget(delta int32) {
	c := m.sim.Controller()
	c.SetTarget(c.Target() + delta)
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

// adjustParam nudges the selected parameter by a tenth of its magnitude,
// at least one unit.
func (m *Model) adjustParam(dir int32) {
	if len(m.paramKeys) == 0 {
		return
	}
	c, ok := m.sim.Controller().(control.Configurable)
	if !ok {
		return
	}
	key := m.paramKeys[m.selected]
	val := c.Params()[key]
	delta := val / 10
	if delta < 0 {
		delta = -delta
	}
	if delta == 0 {
		delta = 1
	}
	_ = c.SetParam(key, val+dir*delta)
}

func (m *Model) reset() {
	m.sim.Reset()
	m.step = 0
	m.last = sim.Sample{}
	m.temps = m.temps[:0]
	m.targets = m.targets[:0]
	m.duties = m.duties[:0]
}

func (m Model) View() string {
	ctrl := m.sim.Controller()

	var plot strings.Builder
	if len(m.temps) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.temps, m.targets},
			asciigraph.Height(12),
			asciigraph.Width(60),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
			asciigraph.Caption("temperature / target (°C)"))
		plot.WriteString(graphStyle.Render(chart) + "\n")
		plot.WriteString("duty " + SparklineChart(m.duties, 60) + "\n")
	} else {
		plot.WriteString("waiting for samples...\n")
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("HEATLOOP") + "\n")
	if m.running {
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", m.step)) + "\n")
	s.WriteString(labelStyle.Render("Temp") + valueStyle.Render(fmt.Sprintf("%.2f °C", m.sim.Plant().Temperature())) + "\n")
	s.WriteString(labelStyle.Render("Target") + valueStyle.Render(fmt.Sprintf("%d (%.2f °C)", ctrl.Target(), float64(ctrl.Target())/m.cfg.Scale)) + "\n")
	s.WriteString(labelStyle.Render("Duty") + valueStyle.Render(fmt.Sprintf("%d ", m.last.Output)) +
		ProgressBar(float64(m.last.Output)/float64(m.maxDuty), 12) + "\n")
	if pid, ok := ctrl.(*control.PID); ok {
		t := pid.Terms()
		s.WriteString(labelStyle.Render("Mode") + valueStyle.Render(pid.Mode.String()) + "\n")
		s.WriteString(labelStyle.Render("P/I/D") + valueStyle.Render(fmt.Sprintf("%d/%d/%d", t.P, t.I, t.D)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if c, ok := ctrl.(control.Configurable); ok && len(m.paramKeys) > 0 {
		params := c.Params()
		for i, k := range m.paramKeys {
			line := fmt.Sprintf("%-8s %d", k, params[k])
			if i == m.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	} else {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\n↑↓:Target Tab/+/-:Tune\nM:Mode   ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(plot.String()), statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  Up/K     - Raise target by 1 °C     ║
║  Down/J   - Lower target by 1 °C     ║
║  Tab      - Cycle parameters         ║
║  +/-      - Adjust parameter (10%)   ║
║  M        - Toggle derivative mode   ║
║  R        - Reset controller/plant   ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
