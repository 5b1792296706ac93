package formats

import (
	"fmt"
	gomath "math"
	"os"
	"strings"
)

// Symbol is one map cell.
type Symbol byte

// Map symbols. Anything outside this set parses as SymbolEmpty.
const (
	SymbolEmpty             Symbol = '.'
	SymbolBuilding          Symbol = '#'
	SymbolTrafficLight      Symbol = 'S' // starts red
	SymbolTrafficLightGreen Symbol = 's' // starts green
	SymbolDown              Symbol = 'v'
	SymbolUp                Symbol = '^'
	SymbolLeft              Symbol = '<'
	SymbolRight             Symbol = '>'
	SymbolTree              Symbol = 'A'
	SymbolBench             Symbol = 'B'
	SymbolObject            Symbol = 'O'
	SymbolGround            Symbol = 'N'
	SymbolDestination       Symbol = 'D'
)

var knownSymbols = map[Symbol]string{
	SymbolEmpty:             "Empty",
	SymbolBuilding:          "Building",
	SymbolTrafficLight:      "TrafficLight",
	SymbolTrafficLightGreen: "TrafficLightGreen",
	SymbolDown:              "Down",
	SymbolUp:                "Up",
	SymbolLeft:              "Left",
	SymbolRight:             "Right",
	SymbolTree:              "Tree",
	SymbolBench:             "Bench",
	SymbolObject:            "Object",
	SymbolGround:            "Ground",
	SymbolDestination:       "Destination",
}

// ToSymbol maps a map character to its Symbol.
func ToSymbol(c byte) Symbol {
	if _, ok := knownSymbols[Symbol(c)]; ok {
		return Symbol(c)
	}
	return SymbolEmpty
}

// ParseSymbol reads the symbol field of a snapshot entry. Unknown or empty
// strings give SymbolEmpty.
func ParseSymbol(s string) Symbol {
	if s == "" {
		return SymbolEmpty
	}
	return ToSymbol(s[0])
}

// String returns a human-readable symbol name.
func (s Symbol) String() string {
	if name, ok := knownSymbols[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%q)", byte(s))
}

// IsDirection returns true for the four lane markers.
func (s Symbol) IsDirection() bool {
	return s == SymbolDown || s == SymbolUp || s == SymbolLeft || s == SymbolRight
}

// IsTrafficLight returns true for either traffic light state.
func (s Symbol) IsTrafficLight() bool {
	return s == SymbolTrafficLight || s == SymbolTrafficLightGreen
}

// IsRoad returns true if cars may occupy the cell.
func (s Symbol) IsRoad() bool {
	return s.IsDirection() || s.IsTrafficLight() || s == SymbolDestination
}

// Yaw returns the fixed heading for the symbol, in radians. Lane markers
// and agents use the same table; non-directional symbols face 0.
func (s Symbol) Yaw() float32 {
	switch s {
	case SymbolDown:
		return gomath.Pi / 2
	case SymbolUp:
		return -gomath.Pi / 2
	case SymbolRight:
		return gomath.Pi
	case SymbolLeft:
		return 0
	default:
		return 0
	}
}

// Step returns the grid offset a lane marker points to.
func (s Symbol) Step() (dRow, dCol int) {
	switch s {
	case SymbolDown:
		return 1, 0
	case SymbolUp:
		return -1, 0
	case SymbolRight:
		return 0, 1
	case SymbolLeft:
		return 0, -1
	default:
		return 0, 0
	}
}

// CityMap is a parsed ASCII city map. Rows may differ in length.
type CityMap struct {
	Rows [][]Symbol
}

// ParseCityMap splits text into rows of symbols. A trailing \r on each line
// is stripped and a final empty line is dropped. Short rows are kept short.
func ParseCityMap(text string) *CityMap {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && strings.TrimRight(lines[n-1], "\r") == "" {
		lines = lines[:n-1]
	}

	m := &CityMap{Rows: make([][]Symbol, len(lines))}
	for r, line := range lines {
		line = strings.TrimRight(line, "\r")
		row := make([]Symbol, len(line))
		for c := 0; c < len(line); c++ {
			row[c] = ToSymbol(line[c])
		}
		m.Rows[r] = row
	}
	return m
}

// ParseCityMapFile parses a map file from disk.
func ParseCityMapFile(path string) (*CityMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file: %w", err)
	}
	return ParseCityMap(string(data)), nil
}

// Height returns the number of rows.
func (m *CityMap) Height() int {
	return len(m.Rows)
}

// Width returns the length of the longest row.
func (m *CityMap) Width() int {
	w := 0
	for _, row := range m.Rows {
		w = max(w, len(row))
	}
	return w
}

// At returns the symbol at (row, col). Cells past the end of a row or
// outside the map read as SymbolEmpty.
func (m *CityMap) At(row, col int) Symbol {
	if row < 0 || row >= len(m.Rows) || col < 0 || col >= len(m.Rows[row]) {
		return SymbolEmpty
	}
	return m.Rows[row][col]
}

// Find returns every (row, col) holding the symbol, in row-major order.
func (m *CityMap) Find(s Symbol) [][2]int {
	var cells [][2]int
	for r, row := range m.Rows {
		for c, sym := range row {
			if sym == s {
				cells = append(cells, [2]int{r, c})
			}
		}
	}
	return cells
}

// String renders the map back to text, one row per line.
func (m *CityMap) String() string {
	var b strings.Builder
	for _, row := range m.Rows {
		for _, s := range row {
			b.WriteByte(byte(s))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
