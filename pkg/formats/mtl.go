package formats

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Material is the part of an MTL material the viewer uses.
type Material struct {
	Name    string
	Diffuse [3]float32 // Kd
	Alpha   float32    // d, or 1-Tr
}

// Color returns the material as RGBA.
func (m Material) Color() [4]float32 {
	return [4]float32{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], m.Alpha}
}

// White is the color used for faces without an active material.
var White = [4]float32{1, 1, 1, 1}

// MaterialLib maps material names to materials.
type MaterialLib map[string]Material

// Color returns the RGBA color of the named material, or opaque white if
// the name is empty or unknown.
func (lib MaterialLib) Color(name string) [4]float32 {
	if name == "" {
		return White
	}
	if m, ok := lib[name]; ok {
		return m.Color()
	}
	return White
}

// ParseMTL parses newmtl, Kd, d and Tr records. Other records are ignored.
// An empty text yields an empty library.
func ParseMTL(text string) (MaterialLib, error) {
	lib := make(MaterialLib)
	var current *Material

	commit := func() {
		if current != nil {
			lib[current.Name] = *current
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "newmtl":
			commit()
			if len(fields) < 2 {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: "newmtl without a name"}
			}
			current = &Material{Name: fields[1], Diffuse: [3]float32{1, 1, 1}, Alpha: 1}

		case "Kd":
			if current == nil {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: "Kd before newmtl"}
			}
			kd, err := parseVec3(fields[1:])
			if err != nil {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: "Kd: " + err.Error()}
			}
			current.Diffuse = kd

		case "d", "Tr":
			if current == nil {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: fields[0] + " before newmtl"}
			}
			if len(fields) < 2 {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: fields[0] + " without a value"}
			}
			v, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				return nil, &ParseError{Format: "mtl", Line: lineNo, Msg: fmt.Sprintf("%s: %q is not a number", fields[0], fields[1])}
			}
			if fields[0] == "Tr" {
				v = 1 - v
			}
			current.Alpha = float32(v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading mtl: %w", err)
	}
	commit()

	return lib, nil
}

// ParseMTLFile parses an MTL file from disk.
func ParseMTLFile(path string) (MaterialLib, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MTL file: %w", err)
	}
	return ParseMTL(string(data))
}
