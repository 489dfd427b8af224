package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dynstream/internal/playback"
	"github.com/san-kum/dynstream/internal/session"
)

const (
	width           = 64
	height          = 22
	historyCapacity = 400
	minSpeed        = 1.0 / 64
	maxSpeed        = 64.0
)

type TickMsg time.Time

// Model is the bubbletea program for one live session. Each tick pumps
// the buffer manager and advances playback.
type Model struct {
	ctx     context.Context
	sess    *session.Session
	fps     int
	scene   Scene
	canvas  *Canvas
	theme   Theme
	styles  styles
	paused  bool
	waiting bool
	sample  playback.Sample
	history []float64
	err     error
}

// NewModel wraps a started session.
func NewModel(ctx context.Context, sess *session.Session, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	return Model{
		ctx:     ctx,
		sess:    sess,
		fps:     fps,
		scene:   NewScene(sess.Config()),
		canvas:  NewCanvas(width, height),
		theme:   Themes[0],
		styles:  newStyles(Themes[0]),
		history: make([]float64, 0, historyCapacity),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
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
			m.paused = !m.paused
		case "r":
			m.restart()
		case "+", "=":
			m.sess.SetSpeed(min(m.sess.Speed()*2, maxSpeed))
		case "-", "_":
			m.sess.SetSpeed(max(m.sess.Speed()/2, minSpeed))
		case "t":
			m.theme = m.theme.next()
			m.styles = newStyles(m.theme)
		}
	case TickMsg:
		m.step()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	if m.err != nil || m.sample.Done {
		return
	}
	if m.paused {
		m.err = m.sess.Pump()
		return
	}

	sample, ok, err := m.sess.Tick(1 / float64(m.fps))
	if err != nil {
		m.err = err
		return
	}
	m.waiting = !ok
	if !ok {
		return
	}

	m.sample = sample
	_, v := m.scene.Primary(sample.Values)
	m.history = append(m.history, v)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	m.canvas.Clear()
	m.scene.Draw(m.canvas, sample.Values)
}

func (m *Model) restart() {
	m.err = m.sess.Restart(m.ctx)
	m.sample = playback.Sample{}
	m.history = m.history[:0]
	m.waiting = false
	m.scene.Reset()
	m.canvas.Clear()
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.failed.Render("FAILED")
	case m.sample.Done:
		return m.styles.running.Render("DONE")
	case m.paused:
		return m.styles.paused.Render("PAUSED")
	case m.waiting:
		return m.styles.waiting.Render("WAITING FOR PRODUCER")
	default:
		return m.styles.running.Render("RUNNING")
	}
}

func (m Model) View() string {
	cfg := m.sess.Config()
	st := m.sess.Stats()

	var s strings.Builder
	s.WriteString(m.styles.header.Render(strings.ToUpper(cfg.Model)) + "\n")
	s.WriteString(m.status() + "\n\n")

	label, _ := m.scene.Primary(m.sample.Values)
	if chart := Plot(m.history, label, 30, 5); chart != "" {
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}

	s.WriteString(m.styles.row("Time", fmt.Sprintf("%.2fs", m.sample.Time)))
	s.WriteString(m.styles.row("Speed", fmt.Sprintf("%gx", m.sess.Speed())))
	s.WriteString(m.styles.row("Session", shortID(m.sess.ID().String())))
	s.WriteString(m.styles.row("Pool", m.styles.occupancyBar(st.Occupied, st.Limit, 12)))
	s.WriteString(m.styles.row("Received", fmt.Sprintf("%d (highest %d)", st.Received, st.Highest)))
	s.WriteString(m.styles.row("Evicted", fmt.Sprintf("%d", st.Evicted)))
	s.WriteString(m.styles.row("Granted", fmt.Sprintf("%d", st.Granted)))
	if p := m.sess.Player(); p != nil {
		s.WriteString(m.styles.row("Stalls", fmt.Sprintf("%d", p.Stalls())))
	}

	if res, ok := m.sess.Result(); ok {
		s.WriteString("\n" + m.styles.header.Render("RESULT") + "\n")
		keys := make([]string, 0, len(res.Values))
		for k := range res.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WriteString(m.styles.row(k, fmt.Sprintf("%.3f", res.Values[k])))
		}
	}
	if m.err != nil {
		s.WriteString("\n" + m.styles.failed.Render(m.err.Error()) + "\n")
	}

	s.WriteString(m.styles.help.Render("SP:Pause R:Restart +/-:Speed T:Theme Q:Quit"))

	canvasView := m.styles.canvas.Render(m.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.styles.panel.Render(s.String()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the live view on the terminal and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, fps int) error {
	p := tea.NewProgram(NewModel(ctx, sess, fps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
