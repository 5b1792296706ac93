package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-city/pkg/formats"
)

// houseOBJ is a 4x2x6 box-ish mesh offset far from the origin.
const houseOBJ = `v 10 0 20
v 14 0 20
v 14 2 20
v 10 2 26
v 12 1 23
vn 0 1 0
usemtl roof
f 1//1 2//1 3//1 4//1
usemtl wall
f 1 3 5
f 2 4 5
`

const houseMTL = `newmtl roof
Kd 0.8 0.1 0.1
d 1
newmtl wall
Kd 0.5 0.5 0.5
d 0.25
`

const near = 1e-5

func approx(a, b float32) bool {
	d := a - b
	return d < near && d > -near
}

func TestLoad_FaceExpansion(t *testing.T) {
	mesh, err := Load(houseOBJ, houseMTL, LoadOptions{Name: "house"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// quad (4) + two triangles (3 + 3), no shared vertices
	if len(mesh.Vertices) != 10 {
		t.Fatalf("expected 10 face-vertices, got %d", len(mesh.Vertices))
	}
	if !mesh.HasNormals {
		t.Error("expected HasNormals")
	}

	if got := mesh.Vertices[0].Color; got != [4]float32{0.8, 0.1, 0.1, 1} {
		t.Errorf("roof color = %v", got)
	}
	if got := mesh.Vertices[4].Color; got != [4]float32{0.5, 0.5, 0.5, 0.25} {
		t.Errorf("wall color = %v", got)
	}
	if got := mesh.Vertices[0].Normal; got != [3]float32{0, 1, 0} {
		t.Errorf("roof normal = %v", got)
	}
	if got := mesh.Vertices[4].Normal; got != [3]float32{} {
		t.Errorf("vertex without normal ref should get zero normal, got %v", got)
	}
}

func TestLoad_NormalizationRoundTrip(t *testing.T) {
	meshes := map[string]string{
		"house": houseOBJ,
		"tall":  "v 0 0 0\nv 1 0 0\nv 0 100 0\nf 1 2 3\n",
		"neg":   "v -5 -5 -5\nv -3 -5 -5\nv -5 -4 -2\nf 1 2 3\n",
	}

	for name, text := range meshes {
		t.Run(name, func(t *testing.T) {
			mesh, err := Load(text, "", LoadOptions{Name: name})
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			b := ComputeBounds(mesh.Vertices)
			c := b.Center()
			for i := 0; i < 3; i++ {
				if !approx(c[i], 0) {
					t.Errorf("center[%d] = %v, want 0", i, c[i])
				}
			}
			if ext := b.MaxExtent(); !approx(ext, 1) {
				t.Errorf("max extent = %v, want 1", ext)
			}
			if mesh.Bounds != b {
				t.Errorf("reported bounds %v differ from recomputed %v", mesh.Bounds, b)
			}
		})
	}
}

func TestLoad_NoMaterialIsWhite(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 3\nf 2 4 3\n"

	mesh, err := Load(obj, "", LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, v := range mesh.Vertices {
		if v.Color != [4]float32{1, 1, 1, 1} {
			t.Errorf("vertex %d color = %v, want opaque white", i, v.Color)
		}
	}
}

func TestLoad_UnknownMaterialIsWhite(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl ghost\nf 1 2 3\n"
	mesh, err := Load(obj, houseMTL, LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := mesh.Vertices[0].Color; got != formats.White {
		t.Errorf("color = %v, want white", got)
	}
}

func TestLoad_NormalsPolicy(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

	mesh, err := Load(obj, "", LoadOptions{Normals: NormalsZeroFill})
	if err != nil {
		t.Fatalf("zero-fill policy should load: %v", err)
	}
	if mesh.HasNormals {
		t.Error("HasNormals should be false")
	}
	for _, v := range mesh.Vertices {
		if v.Normal != [3]float32{} {
			t.Errorf("expected zero normal, got %v", v.Normal)
		}
	}

	_, err = Load(obj, "", LoadOptions{Name: "flat", Normals: NormalsRequired})
	if !errors.Is(err, ErrMissingNormals) {
		t.Errorf("expected ErrMissingNormals, got %v", err)
	}
}

func TestLoad_SkipsOutOfRangeFace(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 1 2 42\n"
	mesh, err := Load(obj, "", LoadOptions{Name: "broken"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(mesh.Vertices) != 3 {
		t.Errorf("expected 3 vertices, got %d", len(mesh.Vertices))
	}
	if len(mesh.Diagnostics) != 1 {
		t.Errorf("expected 1 diagnostic, got %v", mesh.Diagnostics)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("v 0 0 0\n", "", LoadOptions{}); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh, got %v", err)
	}

	var perr *formats.ParseError
	if _, err := Load("v 0 0\n", "", LoadOptions{}); !errors.As(err, &perr) {
		t.Errorf("expected *formats.ParseError, got %v", err)
	}
	if _, err := Load("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n", "Kd 1 1 1\n", LoadOptions{}); !errors.As(err, &perr) {
		t.Errorf("expected material *formats.ParseError, got %v", err)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	vs := []Vertex{{Position: [3]float32{3, 3, 3}}, {Position: [3]float32{3, 3, 3}}}
	b := Normalize(vs)
	if vs[0].Position != [3]float32{} {
		t.Errorf("single point should move to origin, got %v", vs[0].Position)
	}
	if b.MaxExtent() != 0 {
		t.Errorf("extent = %v, want 0", b.MaxExtent())
	}
}

func TestUnitCube(t *testing.T) {
	cube := UnitCube()
	if len(cube.Vertices) != 36 {
		t.Errorf("expected 36 vertices, got %d", len(cube.Vertices))
	}
	b := ComputeBounds(cube.Vertices)
	if b != cube.Bounds {
		t.Errorf("bounds %v, want %v", b, cube.Bounds)
	}
	if !approx(b.MaxExtent(), 1) {
		t.Errorf("cube extent = %v, want 1", b.MaxExtent())
	}
}

func TestParseNormalsPolicy(t *testing.T) {
	for in, want := range map[string]NormalsPolicy{"": NormalsZeroFill, "zero": NormalsZeroFill, "require": NormalsRequired} {
		got, err := ParseNormalsPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseNormalsPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseNormalsPolicy("maybe"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
