package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxSpeed        = 16
)

type TickMsg time.Time

// SessionFactory starts a fresh run; it is called again on reset.
type SessionFactory func() (*sim.Session, error)

// Model steps a simulation session in real time and renders the path, the
// driven trail and the current lookahead point.
type Model struct {
	title    string
	path     nav.Path
	dt       float64
	factory  SessionFactory
	session  *sim.Session
	canvas   *Canvas
	vp       Viewport
	theme    Theme
	history  []sim.Sample
	playHead int
	running  bool
	speed    int
	err      error
	showHelp bool
}

func NewModel(title string, path nav.Path, dt float64, factory SessionFactory) (Model, error) {
	sess, err := factory()
	if err != nil {
		return Model{}, err
	}
	canvas := NewCanvas(width, height)
	frame := append(path.Clone(), sess.State().Pose())
	return Model{
		title:    title,
		path:     path,
		dt:       dt,
		factory:  factory,
		session:  sess,
		canvas:   canvas,
		vp:       FitViewport(canvas, frame),
		theme:    Themes[0],
		history:  make([]sim.Sample, 0, historyCapacity),
		playHead: -1,
		running:  true,
		speed:    1,
	}, nil
}

// WithTheme selects a theme by name; unknown names fall back to the first.
func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(m.dt*float64(time.Second)), func(t time.Time) tea.Msg { return TickMsg(t) })
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
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			if m.speed < maxSpeed {
				m.speed *= 2
			}
		case "-", "_":
			if m.speed > 1 {
				m.speed /= 2
			}
		case "t":
			m.theme = m.theme.next()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.advance()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

// advance runs speed control cycles and records them.
func (m *Model) advance() {
	for i := 0; i < m.speed; i++ {
		done, err := m.session.Step()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		if done {
			m.running = false
			return
		}
		if s, ok := m.session.Latest(); ok {
			m.history = append(m.history, s)
			if len(m.history) > historyCapacity {
				m.history = m.history[1:]
			}
		}
	}
}

func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) reset() {
	sess, err := m.factory()
	if err != nil {
		m.err = err
		return
	}
	m.session = sess
	m.history = m.history[:0]
	m.playHead = -1
	m.err = nil
	m.running = true
}

// visible returns the samples up to the play head.
func (m Model) visible() []sim.Sample {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[:m.playHead+1]
	}
	return m.history
}

func (m Model) draw() {
	m.canvas.Clear()
	m.canvas.DrawPolyline(m.vp, m.path)

	shown := m.visible()
	trail := make([]nav.Pose, len(shown))
	for i, s := range shown {
		trail[i] = s.State.Pose()
	}
	m.canvas.DrawPolyline(m.vp, trail)

	if n := len(shown); n > 0 {
		last := shown[n-1]
		m.canvas.DrawMarker(m.vp, last.Lookahead)
		m.canvas.DrawAgent(m.vp, last.State.Pose(), 0.5)
	} else {
		m.canvas.DrawAgent(m.vp, m.session.State().Pose(), 0.5)
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.session.GoalReached():
		return StatusRunning.Render("GOAL REACHED")
	case m.playHead != -1:
		return StatusPaused.Render(fmt.Sprintf("REPLAY %d/%d", m.playHead+1, len(m.history)))
	case m.session.Done():
		return StatusPaused.Render("FINISHED")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render(fmt.Sprintf("RUNNING x%d", m.speed))
}

func (m Model) View() string {
	m.draw()
	scene := lipgloss.NewStyle().Foreground(m.theme.Scene).Render(m.canvas.String())
	canvasView := canvasStyle.Render(scene)

	var s strings.Builder
	s.WriteString(headerStyle.Foreground(m.theme.Accent).Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	shown := m.visible()
	lateral := make([]float64, len(shown))
	for i, smp := range shown {
		lateral[i] = smp.Error[1]
	}
	if len(lateral) > 1 {
		chart := asciigraph.Plot(lateral, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("lateral error [m]"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	if n := len(shown); n > 0 {
		last := shown[n-1]
		p := last.State.Pose()
		row("Time", fmt.Sprintf("%.1fs (step %d)", last.Time, m.session.StepIndex()))
		row("Progress", ProgressBar(m.session.Progress(), 24))
		row("Pose", fmt.Sprintf("(%.2f, %.2f) %.0f°", p.X, p.Y, p.Heading*180/math.Pi))
		row("Command", fmt.Sprintf("v=%.2f ω=%.2f", last.Control[0], last.Control[1]))
		row("Error", fmt.Sprintf("[%.2f %.2f %.2f]", last.Error[0], last.Error[1], last.Error[2]))
		if goal, ok := m.path.Last(); ok {
			row("To goal", fmt.Sprintf("%.2fm", p.DistanceTo(goal)))
		}
		row("|e_y|", Sparkline(lateral, 0.5, 24))
	}
	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Foreground(m.theme.Muted).Render("SP:Pause R:Reset Q:Quit\n+/-:Speed T:Theme ?:Help\n[ ]:Replay"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart the run          ║
║  Q        - Quit                     ║
║  + / -    - Double/halve sim speed   ║
║  [ / ]    - Step through history     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Run starts the live view in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
