package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Faultbox/midgard-city/internal/game/traffic"
	"github.com/Faultbox/midgard-city/pkg/formats"
	gmath "github.com/Faultbox/midgard-city/pkg/math"
)

// AgentID is an agent identifier. Servers send it as a JSON string or number.
type AgentID string

// UnmarshalJSON accepts "car_1", 17 or 17.0.
func (id *AgentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AgentID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("agent id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = AgentID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = AgentID(n.String())
	return nil
}

// Position is one agent in a snapshot.
type Position struct {
	ID     AgentID `json:"id"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Symbol string  `json:"symbol,omitempty"`
}

// Snapshot is the /getAgents payload.
type Snapshot struct {
	Positions []Position `json:"positions"`
}

// Entries converts the snapshot for the interpolator.
func (s *Snapshot) Entries() []traffic.Entry {
	out := make([]traffic.Entry, len(s.Positions))
	for i, p := range s.Positions {
		out[i] = traffic.Entry{
			ID:       string(p.ID),
			Position: gmath.Vec3{X: p.X, Y: p.Y, Z: p.Z},
			Symbol:   formats.ParseSymbol(p.Symbol),
		}
	}
	return out
}

// InitRequest is the /init body.
type InitRequest struct {
	NAgents int `json:"NAgents"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// InitResponse acknowledges /init.
type InitResponse struct {
	Message string `json:"message"`
}

// UpdateResponse is the /update payload. The counters are informational.
type UpdateResponse struct {
	Message       string `json:"message"`
	CurrentStep   int    `json:"currentStep"`
	AgentsArrived int    `json:"agentsArrived"`
	ActualAgents  int    `json:"actualAgents"`
}
