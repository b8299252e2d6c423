package tui

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/framesync/logging"
	"github.com/njyeung/framesync/player"
)

// Player is the part of player.Player the TUI drives
type Player interface {
	Load(path string) error
	Play() bool
	Toggle() bool
	IsPlaying() bool
	State() player.State
	Stats() player.Stats
	SizeRequest() (w, h int)
	Flags() player.Flags
	SizeAllocate(area image.Rectangle) error
	Draw() error
	Close()
}

// rows below the video: status and help
const chromeRows = 2

const statsInterval = 250 * time.Millisecond

// Messages
type (
	loadedMsg    struct{}
	loadErrorMsg struct{ err error }
	redrawMsg    struct{}
	statsTickMsg struct{ gen int }
)

// State represents the app state
type state int

const (
	stateLoading state = iota
	statePlaying
	stateError
)

// Config wires a Model to its player
type Config struct {
	Path   string
	Player Player
	// Surface receives terminal geometry; nil when frames are not shown
	Surface *player.KittySurface
	Logger  *slog.Logger
	// TermSize reports the terminal size; defaults to player.GetTerminalSize
	TermSize func() (cols, rows, widthPx, heightPx int, err error)
}

// Model is the Bubble Tea model
type Model struct {
	state   state
	path    string
	player  Player
	surface *player.KittySurface
	log     *slog.Logger
	keys    KeyMap

	termSize func() (int, int, int, int, error)
	redraws  chan struct{}

	width   int
	height  int
	area    image.Rectangle
	spinner spinner.Model
	err     error
	status  string
	stats   player.Stats
	playing bool

	// bumped on every load so stale stats ticks die out
	gen int
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	termSize := cfg.TermSize
	if termSize == nil {
		termSize = player.GetTerminalSize
	}

	m := Model{
		state:    stateLoading,
		path:     cfg.Path,
		player:   cfg.Player,
		surface:  cfg.Surface,
		log:      logging.WithComponent(log, "tui"),
		keys:     DefaultKeyMap(),
		termSize: termSize,
		redraws:  make(chan struct{}, 1),
		spinner:  s,
		status:   "Loading " + cfg.Path,
	}

	if m.surface != nil {
		redraws := m.redraws
		m.surface.SetRedrawFunc(func() {
			select {
			case redraws <- struct{}{}:
			default:
			}
		})
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.load,
		m.waitForRedraw,
	)
}

func (m Model) load() tea.Msg {
	if err := m.player.Load(m.path); err != nil {
		return loadErrorMsg{err}
	}
	return loadedMsg{}
}

// waitForRedraw blocks until the player presents a new frame
func (m Model) waitForRedraw() tea.Msg {
	<-m.redraws
	return redrawMsg{}
}

func tickStats(gen int) tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsTickMsg{gen}
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.player.Close()
			return m, tea.Quit
		case m.state == stateLoading:
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			m.state = stateLoading
			m.status = "Loading " + m.path
			return m, tea.Batch(m.spinner.Tick, m.load)
		case m.state != statePlaying:
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			m.playing = m.player.Toggle()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.allocate()

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.state = statePlaying
		m.status = ""
		m.allocate()
		m.playing = m.player.Play()
		m.gen++
		return m, tickStats(m.gen)

	case loadErrorMsg:
		m.state = stateError
		m.err = msg.err
		return m, nil

	case redrawMsg:
		if err := m.player.Draw(); err != nil {
			m.log.Warn("draw", "error", err)
		}
		return m, m.waitForRedraw

	case statsTickMsg:
		if m.state != statePlaying || msg.gen != m.gen {
			return m, nil
		}
		m.stats = m.player.Stats()
		m.playing = m.player.IsPlaying()
		return m, tickStats(m.gen)
	}

	return m, nil
}

// allocate grants the player the pixel area above the status rows
func (m *Model) allocate() {
	area, ok := m.videoArea()
	if !ok || area == m.area {
		return
	}
	m.area = area
	if err := m.player.SizeAllocate(area); err != nil {
		m.log.Warn("size allocate", "area", area, "error", err)
	}
}

// videoArea converts the window size to pixels using the terminal's cell size
func (m *Model) videoArea() (image.Rectangle, bool) {
	if m.width == 0 || m.height == 0 {
		return image.Rectangle{}, false
	}

	cols, rows, widthPx, heightPx, err := m.termSize()
	if err != nil {
		m.log.Debug("terminal size", "error", err)
		return image.Rectangle{}, false
	}
	if m.surface != nil {
		m.surface.SetTerminalSize(cols, rows, widthPx, heightPx)
	}
	cellW, cellH, ok := player.CellSize(cols, rows, widthPx, heightPx)
	if !ok {
		return image.Rectangle{}, false
	}

	avail := player.CellArea(image.Rect(0, 0, m.width, max(m.height-chromeRows, 1)), cellW, cellH)
	w, h := m.player.SizeRequest()
	flags := m.player.Flags()
	if flags.Has(player.FlagHFill) || w > avail.Dx() {
		w = avail.Dx()
	}
	if flags.Has(player.FlagVFill) || h > avail.Dy() {
		h = avail.Dy()
	}

	// centre horizontally on a cell boundary
	x := (avail.Dx() - w) / 2 / cellW * cellW
	return image.Rect(x, 0, x+w, h), true
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return m.viewLoading()
	case stateError:
		return m.viewError()
	case statePlaying:
		return m.viewPlaying()
	default:
		return ""
	}
}

func formatPTS(d time.Duration) string {
	d = d.Truncate(10 * time.Millisecond)
	return fmt.Sprintf("%02d:%05.2f", int(d/time.Minute), (d % time.Minute).Seconds())
}
