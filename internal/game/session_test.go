package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Faultbox/midgard-city/internal/assets"
	"github.com/Faultbox/midgard-city/internal/engine/city"
	"github.com/Faultbox/midgard-city/internal/engine/model"
	"github.com/Faultbox/midgard-city/internal/game/traffic"
	"github.com/Faultbox/midgard-city/internal/network"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

var t0 = time.Date(2024, 11, 28, 12, 0, 0, 0, time.UTC)

type cubeLibrary struct{ fail error }

func (l cubeLibrary) LoadAll(ctx context.Context, paths []string) (*assets.Loaded, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	out := &assets.Loaded{Meshes: make(map[string]*model.Mesh)}
	for _, p := range paths {
		out.Meshes[p] = model.UnitCube()
	}
	return out, nil
}

// scriptedFeed replays snapshots and can be told to fail.
type scriptedFeed struct {
	mu        sync.Mutex
	snapshots []*network.Snapshot
	step      int
	fail      error
	initArgs  [3]int
}

func (f *scriptedFeed) Init(ctx context.Context, n, w, h int) (*network.InitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initArgs = [3]int{n, w, h}
	return &network.InitResponse{Message: "ok"}, nil
}

func (f *scriptedFeed) Advance(ctx context.Context) (*network.UpdateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.step++
	return &network.UpdateResponse{CurrentStep: f.step, AgentsArrived: f.step / 2}, nil
}

func (f *scriptedFeed) Snapshot(ctx context.Context) (*network.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	i := min(f.step-1, len(f.snapshots)-1)
	return f.snapshots[i], nil
}

func snapshot(positions ...network.Position) *network.Snapshot {
	return &network.Snapshot{Positions: positions}
}

func newTestSession(feed Feed, lib city.AssetLibrary, clock *time.Time) *Session {
	asm := city.NewAssembler(lib, city.DefaultSymbolTable(), city.WithSeed(1))
	return NewSession(feed, asm, traffic.NewInterpolator(time.Second), WithClock(func() time.Time { return *clock }))
}

func TestSession_LoadMapPublishes(t *testing.T) {
	now := t0
	s := newTestSession(&scriptedFeed{}, cubeLibrary{}, &now)
	if s.Scene() != nil || s.Map() != nil {
		t.Fatal("fresh session should have nothing published")
	}

	m := formats.ParseCityMap("##\n>S")
	stats, err := s.LoadMap(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if s.Map() != m || s.Scene() == nil {
		t.Fatal("map and scene should be published together")
	}
	if s.Scene().VertexCount() != stats.Vertices {
		t.Errorf("published scene has %d vertices, stats say %d", s.Scene().VertexCount(), stats.Vertices)
	}
}

func TestSession_FailedLoadKeepsPreviousScene(t *testing.T) {
	now := t0
	lib := &toggleLibrary{}
	asm := city.NewAssembler(lib, city.DefaultSymbolTable(), city.WithSeed(1))
	s := NewSession(&scriptedFeed{}, asm, traffic.NewInterpolator(time.Second), WithClock(func() time.Time { return now }))

	first := formats.ParseCityMap("#")
	if _, err := s.LoadMap(context.Background(), first); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	scene := s.Scene()

	lib.fail = context.Canceled
	if _, err := s.LoadMap(context.Background(), formats.ParseCityMap("##")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.Scene() != scene || s.Map() != first {
		t.Error("failed load replaced the published scene")
	}
}

type toggleLibrary struct{ fail error }

func (l *toggleLibrary) LoadAll(ctx context.Context, paths []string) (*assets.Loaded, error) {
	return cubeLibrary{fail: l.fail}.LoadAll(ctx, paths)
}

func TestSession_StartUsesMapSize(t *testing.T) {
	now := t0
	feed := &scriptedFeed{}
	s := newTestSession(feed, cubeLibrary{}, &now)

	if err := s.Start(context.Background(), 10); !errors.Is(err, ErrNoMap) {
		t.Fatalf("expected ErrNoMap before a map is loaded, got %v", err)
	}

	if _, err := s.LoadMap(context.Background(), formats.ParseCityMap(">>>\n^.v")); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if err := s.Start(context.Background(), 10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if feed.initArgs != [3]int{10, 3, 2} {
		t.Errorf("init args = %v, want [10 3 2]", feed.initArgs)
	}
}

func TestSession_PollInterpolates(t *testing.T) {
	now := t0
	feed := &scriptedFeed{snapshots: []*network.Snapshot{
		snapshot(network.Position{ID: "car_0", X: 0, Y: 1, Z: 0, Symbol: ">"}),
		snapshot(network.Position{ID: "car_0", X: 2, Y: 1, Z: 0, Symbol: ">"}),
	}}
	s := newTestSession(feed, cubeLibrary{}, &now)

	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	f := s.Frame(t0.Add(500 * time.Millisecond))
	if len(f.Agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(f.Agents))
	}
	if x := f.Agents[0].Position.X; x < 0.99 || x > 1.01 {
		t.Errorf("x at +500ms = %v, want 1", x)
	}
	if f.Status.Step != 2 || f.Status.Snapshots != 2 || f.Status.Active != 1 {
		t.Errorf("status = %+v", f.Status)
	}
}

func TestSession_PollFailureKeepsAgents(t *testing.T) {
	now := t0
	feed := &scriptedFeed{snapshots: []*network.Snapshot{
		snapshot(network.Position{ID: "a"}, network.Position{ID: "b"}),
	}}
	s := newTestSession(feed, cubeLibrary{}, &now)
	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	feed.fail = &network.StatusError{Method: "GET", Path: network.PathUpdate, Code: 500}
	err := s.Poll(context.Background())
	var se *network.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected wrapped *StatusError, got %v", err)
	}

	f := s.Frame(now)
	if len(f.Agents) != 2 {
		t.Errorf("failed poll changed the agent set: %d agents", len(f.Agents))
	}
	if f.Status.Failures != 1 || f.Status.LastError == "" {
		t.Errorf("failure not recorded: %+v", f.Status)
	}
}

func TestSession_RunPollingStopsOnCancel(t *testing.T) {
	now := t0
	feed := &scriptedFeed{snapshots: []*network.Snapshot{snapshot()}}
	s := newTestSession(feed, cubeLibrary{}, &now)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.RunPolling(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if s.Frame(now).Status.Snapshots == 0 {
		t.Error("expected at least one poll before the deadline")
	}
}

type failingDialer struct {
	mu    sync.Mutex
	calls int
}

func (d *failingDialer) DialStream(ctx context.Context) (*network.Stream, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return nil, errors.New("connection refused")
}

func TestSession_RunStreamRedials(t *testing.T) {
	now := t0
	s := newTestSession(&scriptedFeed{}, cubeLibrary{}, &now)
	d := &failingDialer{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.RunStream(ctx, d, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	d.mu.Lock()
	calls := d.calls
	d.mu.Unlock()
	if calls < 2 {
		t.Errorf("expected redials, got %d dial attempts", calls)
	}
	if s.Frame(now).Status.Failures < 2 {
		t.Error("stream failures should be recorded")
	}
}
