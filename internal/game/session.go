// Package game ties the city scene and the traffic feed together.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/engine/city"
	"github.com/Faultbox/midgard-city/internal/game/traffic"
	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/internal/network"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

// ErrNoMap is returned when the simulation is started before a map is loaded.
var ErrNoMap = errors.New("no city map loaded")

// Feed is the simulation server. *network.Client implements it.
type Feed interface {
	Init(ctx context.Context, n, width, height int) (*network.InitResponse, error)
	Snapshot(ctx context.Context) (*network.Snapshot, error)
	Advance(ctx context.Context) (*network.UpdateResponse, error)
}

// StreamDialer opens a pushed snapshot stream. *network.Client implements it.
type StreamDialer interface {
	DialStream(ctx context.Context) (*network.Stream, error)
}

// Frame is everything needed to draw one frame.
type Frame struct {
	Map    *formats.CityMap
	Scene  *city.SceneBuffer
	Agents []traffic.Transform
	Status Status
}

// Status summarizes the feed for display.
type Status struct {
	Step      int
	Arrived   int
	Active    int
	Snapshots int
	Failures  int
	LastError string
}

// Session owns the published scene and the agent set. Scene and map are
// swapped atomically; a reader sees the old or the new value, never a mix.
type Session struct {
	feed      Feed
	assembler *city.Assembler
	agents    *traffic.Interpolator
	now       func() time.Time
	log       *zap.Logger

	cityMap atomic.Pointer[formats.CityMap]
	scene   atomic.Pointer[city.SceneBuffer]
	status  atomic.Pointer[Status]
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session.
func NewSession(feed Feed, assembler *city.Assembler, agents *traffic.Interpolator, opts ...Option) *Session {
	s := &Session{
		feed:      feed,
		assembler: assembler,
		agents:    agents,
		now:       time.Now,
		log:       logger.Named("game"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Store(&Status{})
	return s
}

// LoadMap assembles m and publishes it with its scene. On error the
// previous map and scene stay published.
func (s *Session) LoadMap(ctx context.Context, m *formats.CityMap) (city.Stats, error) {
	scene, stats, err := s.assembler.Assemble(ctx, m)
	if err != nil {
		return city.Stats{}, err
	}
	s.scene.Store(scene)
	s.cityMap.Store(m)
	return stats, nil
}

// Map returns the published map, or nil.
func (s *Session) Map() *formats.CityMap {
	return s.cityMap.Load()
}

// Scene returns the published scene, or nil.
func (s *Session) Scene() *city.SceneBuffer {
	return s.scene.Load()
}

// Agents returns the interpolator.
func (s *Session) Agents() *traffic.Interpolator {
	return s.agents
}

// Start initializes the simulation with n agents on the loaded map's grid.
func (s *Session) Start(ctx context.Context, n int) error {
	m := s.Map()
	if m == nil {
		return ErrNoMap
	}
	if _, err := s.feed.Init(ctx, n, m.Width(), m.Height()); err != nil {
		return fmt.Errorf("initializing simulation: %w", err)
	}
	return nil
}

// Poll advances the simulation one step and applies the resulting
// snapshot. On error the agent set is left as it was.
func (s *Session) Poll(ctx context.Context) error {
	upd, err := s.feed.Advance(ctx)
	if err != nil {
		s.recordFailure(err)
		return fmt.Errorf("advancing simulation: %w", err)
	}

	snap, err := s.feed.Snapshot(ctx)
	if err != nil {
		s.recordFailure(err)
		return fmt.Errorf("fetching snapshot: %w", err)
	}

	s.Apply(snap)
	s.updateStatus(func(st *Status) {
		st.Step = upd.CurrentStep
		st.Arrived = upd.AgentsArrived
		st.LastError = ""
	})
	return nil
}

// Apply feeds a snapshot to the interpolator at the session clock.
func (s *Session) Apply(snap *network.Snapshot) traffic.ApplyStats {
	stats := s.agents.Apply(snap.Entries(), s.now())
	s.updateStatus(func(st *Status) {
		st.Snapshots++
		st.Active = len(snap.Positions)
	})
	return stats
}

// RunPolling calls Poll every interval until ctx is done. Failed polls
// are logged and retried on the next tick.
func (s *Session) RunPolling(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("poll failed, keeping previous state", zap.Error(err))
			}
		}
	}
}

// RunStream applies pushed snapshots until ctx is done. A dropped stream
// is redialed after retry.
func (s *Session) RunStream(ctx context.Context, dialer StreamDialer, retry time.Duration) error {
	for {
		stream, err := dialer.DialStream(ctx)
		if err == nil {
			s.log.Info("snapshot stream connected")
			err = stream.Run(ctx, func(snap *network.Snapshot) { s.Apply(snap) })
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.recordFailure(err)
		s.log.Warn("snapshot stream lost, keeping previous state", zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// Frame returns interpolated agents and the published scene at now.
func (s *Session) Frame(now time.Time) Frame {
	return Frame{
		Map:    s.Map(),
		Scene:  s.Scene(),
		Agents: s.agents.Tick(now),
		Status: *s.status.Load(),
	}
}

func (s *Session) recordFailure(err error) {
	s.updateStatus(func(st *Status) {
		st.Failures++
		if err != nil {
			st.LastError = err.Error()
		}
	})
}

// updateStatus copies, edits and republishes the status.
func (s *Session) updateStatus(fn func(*Status)) {
	for {
		old := s.status.Load()
		next := *old
		fn(&next)
		if s.status.CompareAndSwap(old, &next) {
			return
		}
	}
}
