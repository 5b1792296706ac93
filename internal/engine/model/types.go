// Package model turns parsed OBJ/MTL data into normalized, face-expanded
// meshes ready to be placed in the city scene.
package model

import (
	"fmt"

	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Vertex is one face-vertex. Vertices are never shared between faces.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// Mesh holds a normalized asset: bounding box centered on the origin with
// the largest extent equal to 1.
type Mesh struct {
	Vertices   []Vertex
	Bounds     Bounds
	HasNormals bool

	// Diagnostics lists faces skipped while parsing.
	Diagnostics []formats.Diagnostic
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the midpoint of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the extent along each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// MaxExtent returns the largest of the three extents.
func (b Bounds) MaxExtent() float32 {
	s := b.Size()
	return max(s[0], s[1], s[2])
}

// NormalsPolicy decides what happens to meshes without vn records.
type NormalsPolicy int

const (
	// NormalsZeroFill emits a zero normal for every vertex lacking one.
	NormalsZeroFill NormalsPolicy = iota
	// NormalsRequired fails the load with ErrMissingNormals.
	NormalsRequired
)

// String returns the config spelling of the policy.
func (p NormalsPolicy) String() string {
	switch p {
	case NormalsZeroFill:
		return "zero"
	case NormalsRequired:
		return "require"
	default:
		return fmt.Sprintf("NormalsPolicy(%d)", int(p))
	}
}

// ParseNormalsPolicy parses "zero" or "require".
func ParseNormalsPolicy(s string) (NormalsPolicy, error) {
	switch s {
	case "", "zero":
		return NormalsZeroFill, nil
	case "require":
		return NormalsRequired, nil
	default:
		return 0, fmt.Errorf("unknown normals policy %q (want zero or require)", s)
	}
}

// LoadOptions contains options for mesh loading.
type LoadOptions struct {
	// Name identifies the asset in log output.
	Name string
	// Normals selects the missing-normals behavior.
	Normals NormalsPolicy
}
