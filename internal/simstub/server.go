package simstub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/internal/network"
)

// Server exposes a Sim over HTTP with the simulation server's routes.
type Server struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	sim         *Sim
	initialized bool

	subMu     sync.Mutex
	subs      map[chan []byte]struct{}
	subBuffer int
}

// NewServer wraps sim.
func NewServer(sim *Sim) *Server {
	return &Server{
		sim: sim,
		log: logger.Named("simstub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs:      make(map[chan []byte]struct{}),
		subBuffer: 8,
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/"+network.PathInit, s.handleInit).Methods(http.MethodPost)
	r.HandleFunc("/"+network.PathGetAgents, s.handleGetAgents).Methods(http.MethodGet)
	r.HandleFunc("/"+network.PathUpdate, s.handleUpdate).Methods(http.MethodGet)
	r.HandleFunc("/"+network.PathStream, s.handleStream).Methods(http.MethodGet)
	return r
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req network.InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, network.InitResponse{Message: "Error initializing the model"})
		return
	}
	if req.NAgents < 0 {
		writeJSON(w, http.StatusBadRequest, network.InitResponse{Message: "NAgents must not be negative"})
		return
	}

	s.mu.Lock()
	if req.Width != s.sim.Width() || req.Height != s.sim.Height() {
		s.log.Warn("init size differs from loaded map",
			zap.Int("width", req.Width), zap.Int("height", req.Height),
			zap.Int("map_width", s.sim.Width()), zap.Int("map_height", s.sim.Height()))
	}
	s.sim.Reset(req.NAgents)
	s.initialized = true
	snap := s.sim.Snapshot()
	s.mu.Unlock()

	s.log.Info("model initiated", zap.Int("agents", req.NAgents))
	s.broadcast(snap)
	writeJSON(w, http.StatusOK, network.InitResponse{Message: "Parameters received, model initiated."})
}

func (s *Server) handleGetAgents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap, ok := s.sim.Snapshot(), s.initialized
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusConflict, network.InitResponse{Message: "Error with the agent positions"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.step()
	if !ok {
		writeJSON(w, http.StatusConflict, network.InitResponse{Message: "Error during step."})
		return
	}
	writeJSON(w, http.StatusOK, network.UpdateResponse{
		Message:       fmt.Sprintf("Model updated to step %d.", res.Step),
		CurrentStep:   res.Step,
		AgentsArrived: res.Arrived,
		ActualAgents:  res.Active,
	})
}

// step advances the sim and pushes the new snapshot to every stream.
// It reports false before init.
func (s *Server) step() (StepResult, bool) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return StepResult{}, false
	}
	res := s.sim.Step()
	snap := s.sim.Snapshot()
	s.mu.Unlock()

	s.log.Debug("step",
		zap.Int("step", res.Step),
		zap.Int("arrived", res.Arrived),
		zap.Int("active", res.Active),
		zap.Int("waiting", res.Waiting))
	s.broadcast(snap)
	return res, true
}

// Autostep advances the sim every interval until ctx is done, so stream
// clients see motion without anyone calling /update. Ticks before init
// are skipped.
func (s *Server) Autostep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.step()
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	out := make(chan []byte, s.subBuffer)
	s.subscribe(out)
	defer s.unsubscribe(out)

	// Send the current state right away, outside the sim lock.
	if b, ok := s.currentFrame(); ok {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}

	// Reader goroutine notices client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case b := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

// currentFrame encodes the current snapshot. It reports false before init.
func (s *Server) currentFrame() ([]byte, bool) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, false
	}
	snap := s.sim.Snapshot()
	s.mu.Unlock()

	b, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("encoding snapshot", zap.Error(err))
		return nil, false
	}
	return b, true
}

func (s *Server) subscribe(ch chan []byte) {
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.subMu.Lock()
	delete(s.subs, ch)
	s.subMu.Unlock()
}

// broadcast pushes snap to every stream. Slow subscribers drop frames.
func (s *Server) broadcast(snap network.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("encoding snapshot", zap.Error(err))
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

// Subscribers returns the number of open streams.
func (s *Server) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
