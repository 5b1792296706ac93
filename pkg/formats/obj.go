package formats

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FaceRef points at one position and, optionally, one normal.
// Indices are 0-based; Normal is -1 when the reference carries none.
type FaceRef struct {
	Vertex int
	Normal int
}

// OBJFace is a polygon of three or more references.
type OBJFace struct {
	Refs     []FaceRef
	Material string // active usemtl name, "" if none
	Line     int
}

// OBJ is a parsed Wavefront mesh. Faces only contain references that
// resolved inside Positions and Normals; the rest were dropped into
// Diagnostics.
type OBJ struct {
	Positions    [][3]float32
	Normals      [][3]float32
	Faces        []OBJFace
	MaterialLibs []string
	Diagnostics  []Diagnostic
}

// HasNormals returns true if the file declared any vn records.
func (o *OBJ) HasNormals() bool {
	return len(o.Normals) > 0
}

// ParseOBJ parses the supported OBJ subset: v, vn, f, usemtl, mtllib.
// Comments and other directives are ignored.
func ParseOBJ(text string) (*OBJ, error) {
	obj := &OBJ{}
	material := ""

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, &ParseError{Format: "obj", Line: lineNo, Msg: "vertex: " + err.Error()}
			}
			obj.Positions = append(obj.Positions, p)

		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, &ParseError{Format: "obj", Line: lineNo, Msg: "normal: " + err.Error()}
			}
			obj.Normals = append(obj.Normals, n)

		case "f":
			face, err := obj.parseFace(fields[1:])
			if err != nil {
				obj.Diagnostics = append(obj.Diagnostics, Diagnostic{Line: lineNo, Msg: err.Error()})
				continue
			}
			face.Material = material
			face.Line = lineNo
			obj.Faces = append(obj.Faces, face)

		case "usemtl":
			if len(fields) > 1 {
				material = fields[1]
			} else {
				material = ""
			}

		case "mtllib":
			obj.MaterialLibs = append(obj.MaterialLibs, fields[1:]...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading obj: %w", err)
	}

	obj.dropOutOfRange()
	return obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(string(data))
}

// parseFace resolves 1-based and negative (relative) indices against the
// counts seen so far. Range checks happen after the whole file is read.
func (o *OBJ) parseFace(tokens []string) (OBJFace, error) {
	if len(tokens) < 3 {
		return OBJFace{}, fmt.Errorf("face has %d references, need at least 3", len(tokens))
	}

	refs := make([]FaceRef, 0, len(tokens))
	for _, tok := range tokens {
		parts := strings.Split(tok, "/")

		v, err := resolveIndex(parts[0], len(o.Positions))
		if err != nil {
			return OBJFace{}, fmt.Errorf("face vertex %q: %w", tok, err)
		}

		n := -1
		if len(parts) >= 3 && parts[2] != "" {
			n, err = resolveIndex(parts[2], len(o.Normals))
			if err != nil {
				return OBJFace{}, fmt.Errorf("face normal %q: %w", tok, err)
			}
			if n < 0 {
				return OBJFace{}, fmt.Errorf("face normal %q: relative index before first normal", tok)
			}
		}
		refs = append(refs, FaceRef{Vertex: v, Normal: n})
	}
	return OBJFace{Refs: refs}, nil
}

func (o *OBJ) dropOutOfRange() {
	kept := o.Faces[:0]
	for _, f := range o.Faces {
		if bad, ok := o.firstBadRef(f); !ok {
			o.Diagnostics = append(o.Diagnostics, Diagnostic{Line: f.Line, Msg: bad})
			continue
		}
		kept = append(kept, f)
	}
	o.Faces = kept
}

func (o *OBJ) firstBadRef(f OBJFace) (string, bool) {
	for _, r := range f.Refs {
		if r.Vertex < 0 || r.Vertex >= len(o.Positions) {
			return fmt.Sprintf("vertex index %d out of range (have %d)", r.Vertex+1, len(o.Positions)), false
		}
		if r.Normal >= len(o.Normals) {
			return fmt.Sprintf("normal index %d out of range (have %d)", r.Normal+1, len(o.Normals)), false
		}
	}
	return "", true
}

func resolveIndex(s string, count int) (int, error) {
	if s == "" {
		return 0, errors.New("missing index")
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	switch {
	case i > 0:
		return i - 1, nil
	case i < 0:
		return count + i, nil
	default:
		return 0, errors.New("index 0 is invalid")
	}
}

func parseVec3(fields []string) ([3]float32, error) {
	var v [3]float32
	if len(fields) < 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, fmt.Errorf("component %d: %q is not a number", i, fields[i])
		}
		v[i] = float32(f)
	}
	return v, nil
}
