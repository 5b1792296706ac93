package city

import (
	"math/rand/v2"
	"sort"

	"github.com/Faultbox/midgard-city/pkg/formats"
)

// AssetRef names the asset for a placement: one fixed path or an equally
// weighted choice among variants. The zero value names nothing.
type AssetRef struct {
	paths []string
}

// Fixed refers to a single asset.
func Fixed(path string) AssetRef {
	return AssetRef{paths: []string{path}}
}

// Variants refers to a random choice among paths.
func Variants(paths ...string) AssetRef {
	return AssetRef{paths: append([]string(nil), paths...)}
}

// IsZero reports whether the ref names no asset.
func (r AssetRef) IsZero() bool {
	return len(r.paths) == 0
}

// Paths returns every path the ref may resolve to.
func (r AssetRef) Paths() []string {
	return r.paths
}

// Pick resolves the ref. Fixed refs never consume randomness.
func (r AssetRef) Pick(rng *rand.Rand) string {
	switch len(r.paths) {
	case 0:
		return ""
	case 1:
		return r.paths[0]
	default:
		return r.paths[rng.IntN(len(r.paths))]
	}
}

// Placement describes what to put on a non-building cell.
type Placement struct {
	Primary AssetRef
	// Secondary is a post or base placed unlifted under the primary.
	Secondary AssetRef
	// Lift raises the primary asset.
	Lift float32
	// Oriented applies the symbol's yaw to the primary asset.
	Oriented bool
}

// BuildingPlacement describes building footprints.
type BuildingPlacement struct {
	// Filler goes on every covered cell, unscaled.
	Filler AssetRef
	// Shell is stretched over the whole footprint on top of the fillers.
	Shell AssetRef
}

// SymbolTable maps map symbols to placements. Symbols without an entry
// place nothing.
type SymbolTable struct {
	Building BuildingPlacement
	Cells    map[formats.Symbol]Placement
}

// Paths returns every asset path the table may reference, sorted.
func (t SymbolTable) Paths() []string {
	seen := make(map[string]bool)
	add := func(r AssetRef) {
		for _, p := range r.Paths() {
			seen[p] = true
		}
	}
	add(t.Building.Filler)
	add(t.Building.Shell)
	for _, p := range t.Cells {
		add(p.Primary)
		add(p.Secondary)
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DefaultSymbolTable returns the stock city asset set.
func DefaultSymbolTable() SymbolTable {
	lane := Fixed("/obj/cubo.obj")
	crossLane := Fixed("/obj/cuboi.obj")
	ground := Fixed("/obj/cubov.obj")

	return SymbolTable{
		Building: BuildingPlacement{
			Filler: ground,
			Shell: Variants(
				"/obj/greenHouse.obj",
				"/obj/pinkHouse.obj",
				"/obj/orangeHouse.obj",
				"/obj/purpleHouse.obj",
				"/obj/yellowHouse.obj",
			),
		},
		Cells: map[formats.Symbol]Placement{
			formats.SymbolTrafficLight:      {Primary: Fixed("/obj/semaforochafa.obj"), Secondary: Fixed("/obj/objeto.obj"), Lift: 1},
			formats.SymbolTrafficLightGreen: {Primary: Fixed("/obj/semaforochafa.obj"), Secondary: Fixed("/obj/objeto.obj"), Lift: 1},
			formats.SymbolDown:              {Primary: lane, Oriented: true},
			formats.SymbolUp:                {Primary: lane, Oriented: true},
			formats.SymbolLeft:              {Primary: crossLane, Oriented: true},
			formats.SymbolRight:             {Primary: crossLane, Oriented: true},
			formats.SymbolGround:            {Primary: ground},
			formats.SymbolDestination:       {Primary: ground},
			formats.SymbolObject:            {Primary: Fixed("/obj/objeto.obj")},
			formats.SymbolTree:              {Primary: Fixed("/obj/arbol.obj"), Secondary: ground, Lift: 1},
			formats.SymbolBench:             {Primary: Fixed("/obj/banco.obj")},
		},
	}
}
