package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vdesim/internal/sim"
)

const (
	canvasW         = 36
	canvasH         = 18
	historyCapacity = 400
	frameInterval   = time.Second / 30
	maxStepsPerTick = 256
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveModel drives a sim.Session from a Bubble Tea program: every tick
// advances the session by a few steps and redraws the poloidal cross-section
// plus a rolling z chart.
type LiveModel struct {
	session      *sim.Session
	canvas       *Canvas
	plane        Plane
	stepsPerTick int
	running      bool
	last         sim.Sample
	zHistory     []float64
	err          error
}

func NewLiveModel(session *sim.Session, stepsPerTick int) *LiveModel {
	if stepsPerTick < 1 {
		stepsPerTick = 1
	}
	canvas := NewCanvas(canvasW, canvasH)
	thr := session.Config().VDEThresholdZ
	return &LiveModel{
		session:      session,
		canvas:       canvas,
		plane:        Plane{Canvas: canvas, Half: 1.25 * thr},
		stepsPerTick: stepsPerTick,
		running:      true,
		last:         sim.Sample{State: session.State(), Status: session.Status()},
		zHistory:     make([]float64, 0, historyCapacity),
	}
}

func (m *LiveModel) Init() tea.Cmd { return tick() }

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "n":
			m.advance(1)
		}
	case TickMsg:
		if m.running {
			m.advance(m.stepsPerTick)
		}
		return m, tick()
	}
	return m, nil
}

// advance steps the session up to n times, stopping at a terminal status.
func (m *LiveModel) advance(n int) {
	for i := 0; i < n && !m.session.Done(); i++ {
		sample, err := m.session.Step()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.last = sample
		m.zHistory = append(m.zHistory, sample.State.Z*1000)
		if len(m.zHistory) > historyCapacity {
			m.zHistory = m.zHistory[1:]
		}
	}
	if m.session.Done() {
		m.running = false
	}
}

// Done reports whether the session reached a terminal status.
func (m *LiveModel) Done() bool { return m.session.Done() }

func (m *LiveModel) Last() sim.Sample { return m.last }

// draw renders the VDE thresholds, the vessel midplane and the filament.
func (m *LiveModel) draw() {
	m.canvas.Clear()
	thr := m.session.Config().VDEThresholdZ

	_, yTop := m.plane.Project(0, thr)
	_, yBottom := m.plane.Project(0, -thr)
	m.canvas.DashedHLine(yTop, 3, 2)
	m.canvas.DashedHLine(yBottom, 3, 2)
	_, yMid := m.plane.Project(0, 0)
	m.canvas.DashedHLine(yMid, 1, 5)

	s := m.last.State
	x, y := m.plane.Project(s.R, s.Z)
	m.canvas.Disc(x, y, 2)
}

func (m *LiveModel) View() string {
	m.draw()

	status := statusPaused.Render("PAUSED")
	switch {
	case m.session.Done():
		status = StatusBadge(m.session.Status())
	case m.running:
		status = statusOK.Render("RUNNING")
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("VDE  %s", m.session.Kind())) + "\n")
	s.WriteString(status + "\n\n")
	st := m.last.State
	s.WriteString(row("time", fmt.Sprintf("%.4f s", m.session.Time())))
	s.WriteString(row("step", fmt.Sprintf("%d", m.session.Steps())))
	s.WriteString(row("z", fmt.Sprintf("%+.2f mm", st.Z*1000)))
	s.WriteString(row("v_z", fmt.Sprintf("%+.3f m/s", st.VZ)))
	s.WriteString(row("Ip", fmt.Sprintf("%.4g", st.Ip)))
	s.WriteString(row("r", fmt.Sprintf("%+.2f mm", st.R*1000)))
	s.WriteString(row("u_z", fmt.Sprintf("%+.3f", m.last.U)))
	s.WriteString(row("steps/frame", fmt.Sprintf("%d", m.stepsPerTick)))
	if m.err != nil {
		s.WriteString(statusFailed.Render(m.err.Error()) + "\n")
	}
	if z := finite(m.zHistory, 1); len(z) > 1 {
		chart := asciigraph.Plot(z, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("z (mm)"))
		s.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}
	s.WriteString(helpStyle.Render("SPACE pause  N step  +/- speed  Q quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.canvas.String()), statsStyle.Render(s.String()))
}
