package model

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/logger"
	"github.com/Faultbox/midgard-city/pkg/formats"
)

// Mesh loading errors.
var (
	ErrMissingNormals = errors.New("mesh has no normals")
	ErrEmptyMesh      = errors.New("mesh has no usable faces")
)

// Load parses mesh and material text and builds a normalized mesh.
// materialText may be empty.
func Load(meshText, materialText string, opts LoadOptions) (*Mesh, error) {
	obj, err := formats.ParseOBJ(meshText)
	if err != nil {
		return nil, fmt.Errorf("parsing mesh %s: %w", opts.Name, err)
	}

	lib, err := formats.ParseMTL(materialText)
	if err != nil {
		return nil, fmt.Errorf("parsing materials for %s: %w", opts.Name, err)
	}

	return Build(obj, lib, opts)
}

// Build expands every face of obj into vertices, colors them from lib and
// normalizes the result.
func Build(obj *formats.OBJ, lib formats.MaterialLib, opts LoadOptions) (*Mesh, error) {
	for _, d := range obj.Diagnostics {
		logger.Warn("skipped mesh record",
			zap.String("asset", opts.Name),
			zap.Int("line", d.Line),
			zap.String("reason", d.Msg))
	}

	if !obj.HasNormals() && opts.Normals == NormalsRequired {
		return nil, fmt.Errorf("%s: %w", opts.Name, ErrMissingNormals)
	}

	var vertices []Vertex
	for _, face := range obj.Faces {
		color := lib.Color(face.Material)
		for _, ref := range face.Refs {
			v := Vertex{
				Position: obj.Positions[ref.Vertex],
				Color:    color,
			}
			if ref.Normal >= 0 {
				v.Normal = obj.Normals[ref.Normal]
			}
			vertices = append(vertices, v)
		}
	}

	if len(vertices) == 0 {
		return nil, fmt.Errorf("%s: %w", opts.Name, ErrEmptyMesh)
	}

	mesh := &Mesh{
		Vertices:    vertices,
		HasNormals:  obj.HasNormals(),
		Diagnostics: obj.Diagnostics,
	}
	mesh.Bounds = Normalize(mesh.Vertices)
	return mesh, nil
}

// Normalize translates the vertices so their bounding box is centered on
// the origin and divides by the largest extent. A zero extent only
// translates. Returns the new bounds.
func Normalize(vertices []Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}

	b := ComputeBounds(vertices)
	center := b.Center()
	extent := b.MaxExtent()
	scale := float32(1)
	if extent > 0 {
		scale = 1 / extent
	}

	for i := range vertices {
		p := &vertices[i].Position
		p[0] = (p[0] - center[0]) * scale
		p[1] = (p[1] - center[1]) * scale
		p[2] = (p[2] - center[2]) * scale
	}

	for i := 0; i < 3; i++ {
		b.Min[i] = (b.Min[i] - center[i]) * scale
		b.Max[i] = (b.Max[i] - center[i]) * scale
	}
	return b
}

// ComputeBounds returns the bounding box of the vertex positions.
func ComputeBounds(vertices []Vertex) Bounds {
	bounds := Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
	for i := range vertices {
		updateBounds(&bounds, vertices[i].Position)
	}
	return bounds
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
