package model

import "github.com/Faultbox/midgard-city/pkg/formats"

// UnitCube returns an opaque white cube spanning [-0.5, 0.5] on every axis.
// It stands in for assets that failed to load.
func UnitCube() *Mesh {
	type side struct {
		normal  [3]float32
		corners [4][3]float32
	}
	const h = 0.5
	sides := []side{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}

	vertices := make([]Vertex, 0, len(sides)*6)
	for _, s := range sides {
		for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
			vertices = append(vertices, Vertex{
				Position: s.corners[i],
				Normal:   s.normal,
				Color:    formats.White,
			})
		}
	}

	return &Mesh{
		Vertices:   vertices,
		Bounds:     Bounds{Min: [3]float32{-h, -h, -h}, Max: [3]float32{h, h, h}},
		HasNormals: true,
	}
}
