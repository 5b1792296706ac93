// Package simstub is a small deterministic traffic simulation serving the
// same endpoints as the real simulation server. It exists to drive the
// viewer in development and tests.
package simstub

import (
	"fmt"
	"math/rand/v2"

	"github.com/Faultbox/midgard-city/internal/network"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Options tune the simulation.
type Options struct {
	// LightPeriod is the number of steps between light toggles.
	LightPeriod int
	// SpawnEvery spawns corner cars on every n-th step.
	SpawnEvery int
	// Seed drives destination choice.
	Seed uint64
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{LightPeriod: 10, SpawnEvery: 10, Seed: 1}
}

type light struct {
	green bool
	timer int
}

type car struct {
	id      string
	pos     Cell
	dest    Cell
	hasDest bool
	heading formats.Symbol
	waiting bool
	gone    bool
}

// StepResult reports counters after one step.
type StepResult struct {
	Step    int
	Arrived int
	Active  int
	Waiting int
}

// Sim is the simulation state. It is not safe for concurrent use.
type Sim struct {
	m      *formats.CityMap
	router *Router
	opts   Options
	rng    *rand.Rand

	lights       map[Cell]*light
	destinations []Cell

	cars      []*car // spawn order
	maxAgents int
	nextID    int
	step      int
	arrived   int
}

// New creates a simulation over m. Call Reset before stepping.
func New(m *formats.CityMap, opts Options) *Sim {
	def := DefaultOptions()
	if opts.LightPeriod <= 0 {
		opts.LightPeriod = def.LightPeriod
	}
	if opts.SpawnEvery <= 0 {
		opts.SpawnEvery = def.SpawnEvery
	}
	s := &Sim{m: m, router: NewRouter(m), opts: opts}
	s.Reset(0)
	return s
}

// Reset restarts the simulation. maxAgents caps the number of cars on the
// grid; zero means no cap. Four corner cars are spawned immediately.
func (s *Sim) Reset(maxAgents int) {
	s.rng = rand.New(rand.NewPCG(s.opts.Seed, s.opts.Seed^0x9e3779b97f4a7c15))
	s.lights = make(map[Cell]*light)
	s.destinations = nil
	s.cars = nil
	s.maxAgents = maxAgents
	s.nextID = 0
	s.step = 0
	s.arrived = 0

	for r, row := range s.m.Rows {
		for c, sym := range row {
			switch {
			case sym.IsTrafficLight():
				s.lights[Cell{r, c}] = &light{green: sym == formats.SymbolTrafficLightGreen}
			case sym == formats.SymbolDestination:
				s.destinations = append(s.destinations, Cell{r, c})
			}
		}
	}
	s.spawnCorners()
}

// Step advances the simulation by one tick.
func (s *Sim) Step() StepResult {
	s.step++
	if s.step%s.opts.SpawnEvery == 0 {
		s.spawnCorners()
	}

	for _, l := range s.lights {
		l.timer++
		if l.timer >= s.opts.LightPeriod {
			l.green = !l.green
			l.timer = 0
		}
	}

	for _, c := range s.cars {
		if s.move(c) {
			c.gone = true
			s.arrived++
		}
	}
	remaining := make([]*car, 0, len(s.cars))
	for _, c := range s.cars {
		if !c.gone {
			remaining = append(remaining, c)
		}
	}
	s.cars = remaining

	return s.Result()
}

// Result returns the current counters.
func (s *Sim) Result() StepResult {
	res := StepResult{Step: s.step, Arrived: s.arrived, Active: len(s.cars)}
	for _, c := range s.cars {
		if c.waiting {
			res.Waiting++
		}
	}
	return res
}

// Snapshot returns car positions in the snapshot wire format. Cells map
// to x = column, z = row; cars ride at y = 1.
func (s *Sim) Snapshot() network.Snapshot {
	out := network.Snapshot{Positions: make([]network.Position, 0, len(s.cars))}
	for _, c := range s.cars {
		out.Positions = append(out.Positions, network.Position{
			ID:     network.AgentID(c.id),
			X:      float32(c.pos.Col),
			Y:      1,
			Z:      float32(c.pos.Row),
			Symbol: string(rune(c.heading)),
		})
	}
	return out
}

// Green reports whether the light at cell is green. Cells without a
// light are always green.
func (s *Sim) Green(cell Cell) bool {
	l, ok := s.lights[cell]
	return !ok || l.green
}

// Width returns the map width.
func (s *Sim) Width() int { return s.m.Width() }

// Height returns the map height.
func (s *Sim) Height() int { return s.m.Height() }

// move advances one car. It returns true when the car left the grid or
// reached its destination.
func (s *Sim) move(c *car) bool {
	if !c.hasDest && len(s.destinations) > 0 {
		c.dest = s.destinations[s.rng.IntN(len(s.destinations))]
		c.hasDest = true
	}
	if c.hasDest && c.pos == c.dest {
		return true
	}

	next, ok := s.nextCell(c)
	if !ok {
		c.waiting = true
		return false
	}
	if !s.router.inBounds(next) {
		// Lane ran off the map.
		return true
	}
	if !s.Green(next) || s.occupied(next) {
		c.waiting = true
		return false
	}

	c.waiting = false
	step := s.m.At(next.Row, next.Col)
	if step.IsDirection() {
		c.heading = step
	}
	c.pos = next
	return c.hasDest && c.pos == c.dest
}

func (s *Sim) nextCell(c *car) (Cell, bool) {
	if c.hasDest {
		path := s.router.FindPath(c.pos, c.dest)
		if len(path) > 1 {
			return path[1], true
		}
	}

	// No route: follow the lane under the car.
	sym := s.m.At(c.pos.Row, c.pos.Col)
	if !sym.IsDirection() {
		sym = c.heading
	}
	if !sym.IsDirection() {
		return Cell{}, false
	}
	dr, dc := sym.Step()
	next := Cell{c.pos.Row + dr, c.pos.Col + dc}
	if s.router.inBounds(next) && !s.router.CanEnter(c.pos, next, c.dest) {
		return Cell{}, false
	}
	return next, true
}

func (s *Sim) occupied(cell Cell) bool {
	for _, c := range s.cars {
		if !c.gone && c.pos == cell {
			return true
		}
	}
	return false
}

func (s *Sim) spawnCorners() {
	w, h := s.m.Width(), s.m.Height()
	if w == 0 || h == 0 {
		return
	}
	corners := []Cell{{0, 0}, {h - 1, 0}, {0, w - 1}, {h - 1, w - 1}}
	for _, cell := range corners {
		if s.maxAgents > 0 && len(s.cars) >= s.maxAgents {
			return
		}
		if s.m.At(cell.Row, cell.Col) == formats.SymbolBuilding || s.occupied(cell) {
			continue
		}
		heading := s.m.At(cell.Row, cell.Col)
		if !heading.IsDirection() {
			heading = formats.SymbolEmpty
		}
		s.cars = append(s.cars, &car{
			id:      fmt.Sprintf("car_%d", s.nextID),
			pos:     cell,
			heading: heading,
		})
		s.nextID++
	}
}
