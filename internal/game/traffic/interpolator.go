package traffic

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/logger"
)

// agentSet is an immutable id -> agent map.
type agentSet map[string]*Agent

// ApplyStats counts what one snapshot changed.
type ApplyStats struct {
	Added   int
	Moved   int
	Removed int
	Kept    int
}

// Interpolator owns the agent set. Apply builds a new set and swaps it
// in whole, so Tick and Agents never see a partially applied snapshot.
type Interpolator struct {
	duration time.Duration
	log      *zap.Logger

	writeMu sync.Mutex
	agents  atomic.Pointer[agentSet]
}

// NewInterpolator creates an interpolator easing moves over duration.
// A zero duration snaps agents to their targets.
func NewInterpolator(duration time.Duration) *Interpolator {
	ip := &Interpolator{
		duration: max(duration, 0),
		log:      logger.Named("traffic"),
	}
	empty := agentSet{}
	ip.agents.Store(&empty)
	return ip
}

// Duration returns the interpolation duration.
func (ip *Interpolator) Duration() time.Duration {
	return ip.duration
}

// Apply reconciles the agent set with a snapshot taken at now. Ids absent
// from entries are dropped; an empty snapshot clears the set. When an id
// appears more than once the first entry wins.
func (ip *Interpolator) Apply(entries []Entry, now time.Time) ApplyStats {
	ip.writeMu.Lock()
	defer ip.writeMu.Unlock()

	old := *ip.agents.Load()
	next := make(agentSet, len(entries))
	var stats ApplyStats

	for _, e := range entries {
		if _, dup := next[e.ID]; dup {
			ip.log.Debug("duplicate agent in snapshot", zap.String("id", e.ID))
			continue
		}

		prev, ok := old[e.ID]
		switch {
		case !ok:
			next[e.ID] = &Agent{
				ID:        e.ID,
				Start:     e.Position,
				End:       e.Position,
				StartTime: now,
				Duration:  ip.duration,
				Symbol:    e.Symbol,
			}
			stats.Added++
		case prev.End != e.Position || prev.Symbol != e.Symbol:
			next[e.ID] = &Agent{
				ID:        e.ID,
				Start:     prev.Position(now),
				End:       e.Position,
				StartTime: now,
				Duration:  ip.duration,
				Symbol:    e.Symbol,
			}
			stats.Moved++
		default:
			next[e.ID] = prev
			stats.Kept++
		}
	}

	for id := range old {
		if _, ok := next[id]; !ok {
			stats.Removed++
		}
	}

	ip.agents.Store(&next)
	ip.log.Debug("snapshot applied",
		zap.Int("added", stats.Added),
		zap.Int("moved", stats.Moved),
		zap.Int("removed", stats.Removed),
		zap.Int("kept", stats.Kept))
	return stats
}

// Tick returns every agent's pose at now, sorted by id (see lessID).
func (ip *Interpolator) Tick(now time.Time) []Transform {
	set := *ip.agents.Load()
	out := make([]Transform, 0, len(set))
	for _, a := range set {
		out = append(out, Transform{
			ID:       a.ID,
			Position: a.Position(now),
			Yaw:      a.Yaw(),
			Symbol:   a.Symbol,
			State:    a.State(now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Agents returns a copy of the current records, sorted by id.
func (ip *Interpolator) Agents() []Agent {
	set := *ip.agents.Load()
	out := make([]Agent, 0, len(set))
	for _, a := range set {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Len returns the number of agents.
func (ip *Interpolator) Len() int {
	return len(*ip.agents.Load())
}

// lessID orders integer ids by value ahead of all other ids, which sort
// lexically. Equal values such as "1" and "01" fall back to lexical order.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	}
	return a < b
}
