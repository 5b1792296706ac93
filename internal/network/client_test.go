package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Faultbox/midgard-city/pkg/formats"
)

func TestAgentIDAcceptsStringsAndNumbers(t *testing.T) {
	var snap Snapshot
	data := `{"positions":[
		{"id":"car_4","x":1,"y":1,"z":2,"symbol":"v"},
		{"id":17,"x":0,"y":0,"z":0},
		{"id":3.5,"x":0,"y":0,"z":0}
	]}`
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []AgentID{"car_4", "17", "3.5"}
	for i, id := range want {
		if snap.Positions[i].ID != id {
			t.Errorf("id %d = %q, want %q", i, snap.Positions[i].ID, id)
		}
	}

	var bad Snapshot
	if err := json.Unmarshal([]byte(`{"positions":[{"id":true}]}`), &bad); err == nil {
		t.Error("expected error for boolean id")
	}
}

func TestSnapshotEntries(t *testing.T) {
	snap := Snapshot{Positions: []Position{
		{ID: "a", X: 1, Y: 2, Z: 3, Symbol: ">"},
		{ID: "b", Symbol: "?"},
	}}
	got := snap.Entries()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].Position.Z != 3 || got[0].Symbol != formats.SymbolRight {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[1].Symbol != formats.SymbolEmpty {
		t.Errorf("unknown symbol should map to empty, got %v", got[1].Symbol)
	}
}

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClientInit(t *testing.T) {
	var got InitRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/init" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte(`{"message":"Parameters received, model initiated."}`))
	})

	resp, err := c.Init(context.Background(), 10, 28, 28)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got != (InitRequest{NAgents: 10, Width: 28, Height: 28}) {
		t.Errorf("server received %+v", got)
	}
	if resp.Message == "" {
		t.Error("expected acknowledgement message")
	}
}

func TestClientSnapshotAndAdvance(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getAgents":
			w.Write([]byte(`{"positions":[{"id":"car_0","x":3,"y":1,"z":4}]}`))
		case "/update":
			w.Write([]byte(`{"message":"Model updated to step 2.","currentStep":2,"agentsArrived":1,"actualAgents":5}`))
		default:
			http.NotFound(w, r)
		}
	})

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].X != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	upd, err := c.Advance(context.Background())
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if upd.CurrentStep != 2 || upd.AgentsArrived != 1 || upd.ActualAgents != 5 {
		t.Errorf("unexpected update %+v", upd)
	}
}

func TestClientEmptySnapshotIsValid(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[]}`))
	})
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Entries()) != 0 {
		t.Errorf("expected no entries, got %d", len(snap.Entries()))
	}
}

func TestClientStatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Error during step."}`))
	})

	_, err := c.Advance(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != 500 || se.Message != "Error during step." || se.Path != PathUpdate {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestClientBadJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":`))
	})
	if _, err := c.Snapshot(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestClientCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Snapshot(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://x", "://nope", "localhost:8585"} {
		if _, err := New(raw, 0); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}

func TestBaseURLKeepsPathPrefix(t *testing.T) {
	c, err := New("http://sim.example/api", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.BaseURL().JoinPath(PathGetAgents).String(); got != "http://sim.example/api/getAgents" {
		t.Errorf("joined url = %s", got)
	}
	if got := c.StreamURL(); got != "ws://sim.example/api/stream" {
		t.Errorf("stream url = %s", got)
	}
}
