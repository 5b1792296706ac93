// Package viewer is the terminal front end: a top-down view of the city
// grid with the interpolated agents drawn on it.
package viewer

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Faultbox/midgard-city/internal/game"
)

// Source supplies frames and, in poll mode, advances the feed.
// *game.Session implements it.
type Source interface {
	Frame(now time.Time) game.Frame
	Poll(ctx context.Context) error
}

// Options configures the viewer.
type Options struct {
	FrameInterval time.Duration
	// PollInterval of 0 disables polling; the feed is driven elsewhere.
	PollInterval time.Duration
	ShowHelp     bool
	Title        string
}

// Model is the bubbletea model.
type Model struct {
	ctx  context.Context
	src  Source
	opts Options
	now  func() time.Time

	keys keyMap
	help help.Model

	width, height int
	row, col      int

	frame    game.Frame
	paused   bool
	polling  bool
	showHelp bool
}

type (
	frameMsg    time.Time
	pollTickMsg struct{}
	pollDoneMsg struct{ err error }
)

// New creates a viewer model. ctx bounds the poll requests it issues.
func New(ctx context.Context, src Source, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 33 * time.Millisecond
	}
	if opts.Title == "" {
		opts.Title = "midgard-city"
	}
	h := help.New()
	h.ShowAll = opts.ShowHelp
	return Model{
		ctx:      ctx,
		src:      src,
		opts:     opts,
		now:      time.Now,
		keys:     defaultKeys(),
		help:     h,
		showHelp: opts.ShowHelp,
	}
}

// Init starts the frame clock and, if enabled, the poll clock.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.frameTick()}
	if m.opts.PollInterval > 0 {
		cmds = append(cmds, m.pollTick())
	}
	return tea.Batch(cmds...)
}

// Paused reports whether polling is suspended.
func (m Model) Paused() bool { return m.paused }

// Frame returns the last frame drawn.
func (m Model) Frame() game.Frame { return m.frame }

func (m Model) frameTick() tea.Cmd {
	return tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func (m Model) pollCmd() tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg { return pollDoneMsg{err: src.Poll(ctx)} }
}
