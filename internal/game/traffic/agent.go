// Package traffic smooths irregular agent snapshots into per-frame motion.
package traffic

import (
	"time"

	"github.com/Faultbox/midgard-city/pkg/formats"
	gmath "github.com/Faultbox/midgard-city/pkg/math"
)

// State is the animation state of an agent.
type State int

const (
	// StateIdle means the agent sits at its target.
	StateIdle State = iota
	// StateInterpolating means the agent is easing toward its target.
	StateInterpolating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInterpolating:
		return "interpolating"
	default:
		return "unknown"
	}
}

// Entry is one agent as reported by a snapshot.
type Entry struct {
	ID       string
	Position gmath.Vec3
	Symbol   formats.Symbol
}

// Agent is the animation record of one agent. Agents held by an
// Interpolator are never modified after publication.
type Agent struct {
	ID        string
	Start     gmath.Vec3
	End       gmath.Vec3
	StartTime time.Time
	Duration  time.Duration
	Symbol    formats.Symbol
}

// Progress returns the clamped interpolation parameter at now.
func (a *Agent) Progress(now time.Time) float32 {
	if a.Duration <= 0 {
		return 1
	}
	t := float32(now.Sub(a.StartTime)) / float32(a.Duration)
	return gmath.Clamp01(t)
}

// Position returns the interpolated position at now.
func (a *Agent) Position(now time.Time) gmath.Vec3 {
	t := a.Progress(now)
	if t >= 1 {
		return a.End
	}
	return a.Start.Lerp(a.End, t)
}

// State returns the animation state at now.
func (a *Agent) State(now time.Time) State {
	if a.Start == a.End || a.Progress(now) >= 1 {
		return StateIdle
	}
	return StateInterpolating
}

// Yaw returns the heading for the current symbol. Symbols without a
// direction face 0.
func (a *Agent) Yaw() float32 {
	return a.Symbol.Yaw()
}

// Transform is the pose of one agent at a frame.
type Transform struct {
	ID       string
	Position gmath.Vec3
	Yaw      float32
	Symbol   formats.Symbol
	State    State
}
