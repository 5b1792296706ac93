package city

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/assets"
	"github.com/Faultbox/midgard-city/internal/engine/model"
	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/pkg/formats"
	gmath "github.com/Faultbox/midgard-city/pkg/math"
)

// AssetLibrary loads every requested mesh and returns once all are done.
// *assets.Manager implements it.
type AssetLibrary interface {
	LoadAll(ctx context.Context, paths []string) (*assets.Loaded, error)
}

// Stats summarizes one assembly.
type Stats struct {
	Footprints int
	Placements int
	Vertices   int
	Degraded   []string
}

// instance is one mesh placed in the world.
type instance struct {
	path  string
	pos   gmath.Vec3
	yaw   float32
	scale gmath.Vec3
	// lift is added after scaling. For shells it depends on the mesh
	// bounds and is computed once meshes are loaded.
	lift      float32
	restOnTop bool
}

// Assembler builds scene buffers. It is safe for concurrent use.
type Assembler struct {
	lib       AssetLibrary
	table     SymbolTable
	spanLimit int
	log       *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRand sets the source used to pick asset variants.
func WithRand(rng *rand.Rand) Option {
	return func(a *Assembler) { a.rng = rng }
}

// WithSeed is WithRand over a PCG seeded with seed.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// WithShellSpanLimit caps the shell's horizontal scale at n cells.
// Zero disables the cap.
func WithShellSpanLimit(n int) Option {
	return func(a *Assembler) { a.spanLimit = n }
}

// NewAssembler creates an assembler placing assets from lib per table.
func NewAssembler(lib AssetLibrary, table SymbolTable, opts ...Option) *Assembler {
	a := &Assembler{
		lib:   lib,
		table: table,
		log:   logger.Named("city"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a
}

// Assemble places every asset for m and concatenates them into one
// buffer in cell-scan order. It returns only after all asset loads have
// finished; on error no buffer is returned.
func (a *Assembler) Assemble(ctx context.Context, m *formats.CityMap) (*SceneBuffer, Stats, error) {
	footprints, processed := MergeFootprints(m, formats.SymbolBuilding)
	instances := a.plan(m, footprints, processed)

	paths := make([]string, len(instances))
	for i, in := range instances {
		paths[i] = in.path
	}
	loaded, err := a.lib.LoadAll(ctx, paths)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("loading city assets: %w", err)
	}

	buf := &SceneBuffer{}
	fillerTop := a.fillerTop(loaded)
	for _, in := range instances {
		mesh := loaded.Meshes[in.path]
		if mesh == nil {
			mesh = model.UnitCube()
		}
		if in.restOnTop {
			in.lift = fillerTop - mesh.Bounds.Min[1]*in.scale.Y
		}
		buf.appendMesh(mesh, in)
	}

	stats := Stats{
		Footprints: len(footprints),
		Placements: len(instances),
		Vertices:   buf.VertexCount(),
		Degraded:   loaded.Degraded,
	}
	a.log.Info("city assembled",
		zap.Int("footprints", stats.Footprints),
		zap.Int("placements", stats.Placements),
		zap.Int("vertices", stats.Vertices),
		zap.Int("degraded", len(stats.Degraded)))
	return buf, stats, nil
}

// plan lists instances in cell-scan order. A footprint's fillers and
// shell are emitted at its origin cell.
func (a *Assembler) plan(m *formats.CityMap, footprints []Footprint, processed Processed) []instance {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()

	origins := make(map[[2]int]Footprint, len(footprints))
	for _, f := range footprints {
		origins[[2]int{f.Row, f.Col}] = f
	}

	one := gmath.Vec3{X: 1, Y: 1, Z: 1}
	var out []instance
	for r, row := range m.Rows {
		for c, sym := range row {
			if f, ok := origins[[2]int{r, c}]; ok {
				out = a.planFootprint(out, f)
				continue
			}
			if processed.Covered(r, c) {
				continue
			}

			p, ok := a.table.Cells[sym]
			if !ok || p.Primary.IsZero() {
				continue
			}
			cell := cellPosition(r, c)

			var yaw float32
			if p.Oriented {
				yaw = sym.Yaw()
			}
			out = append(out, instance{path: p.Primary.Pick(a.rng), pos: cell, yaw: yaw, scale: one, lift: p.Lift})
			if !p.Secondary.IsZero() {
				out = append(out, instance{path: p.Secondary.Pick(a.rng), pos: cell, scale: one})
			}
		}
	}
	return out
}

func (a *Assembler) planFootprint(out []instance, f Footprint) []instance {
	one := gmath.Vec3{X: 1, Y: 1, Z: 1}
	b := a.table.Building

	if !b.Filler.IsZero() {
		for dr := 0; dr < f.Height; dr++ {
			for dc := 0; dc < f.Width; dc++ {
				out = append(out, instance{
					path:  b.Filler.Pick(a.rng),
					pos:   cellPosition(f.Row+dr, f.Col+dc),
					scale: one,
				})
			}
		}
	}

	if !b.Shell.IsZero() {
		w, h := f.Width, f.Height
		if a.spanLimit > 0 {
			w, h = min(w, a.spanLimit), min(h, a.spanLimit)
		}
		heightScale := float32(math.Max(1, math.Sqrt(float64(w*h))))
		out = append(out, instance{
			path: b.Shell.Pick(a.rng),
			pos: gmath.Vec3{
				X: float32(f.Col) + float32(w-1)/2,
				Z: float32(f.Row) + float32(h-1)/2,
			},
			scale:     gmath.Vec3{X: float32(w), Y: heightScale, Z: float32(h)},
			restOnTop: true,
		})
	}
	return out
}

// fillerTop returns the highest Y reached by any loaded filler variant.
func (a *Assembler) fillerTop(loaded *assets.Loaded) float32 {
	var top float32
	found := false
	for _, p := range a.table.Building.Filler.Paths() {
		mesh, ok := loaded.Meshes[p]
		if !ok {
			continue
		}
		if !found || mesh.Bounds.Max[1] > top {
			top = mesh.Bounds.Max[1]
			found = true
		}
	}
	return top
}

// cellPosition maps a grid cell to world space: X is the column, Z the row.
func cellPosition(row, col int) gmath.Vec3 {
	return gmath.Vec3{X: float32(col), Z: float32(row)}
}
