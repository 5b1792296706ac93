// Package city turns a parsed city map into one world-space scene buffer.
package city

import "github.com/Faultbox/midgard-city/pkg/formats"

// Footprint is a merged axis-aligned rectangle of building cells.
type Footprint struct {
	Row, Col      int
	Width, Height int
}

// Contains reports whether the cell lies inside the footprint.
func (f Footprint) Contains(row, col int) bool {
	return row >= f.Row && row < f.Row+f.Height && col >= f.Col && col < f.Col+f.Width
}

// Area returns the number of cells covered.
func (f Footprint) Area() int {
	return f.Width * f.Height
}

// Processed marks cells already covered by an emitted footprint.
type Processed [][]bool

// Covered reports whether the cell was covered. Out-of-range cells are not.
func (p Processed) Covered(row, col int) bool {
	if row < 0 || row >= len(p) || col < 0 || col >= len(p[row]) {
		return false
	}
	return p[row][col]
}

// MergeFootprints greedily merges building cells into rectangles. Cells
// are scanned row-major; from each unprocessed building cell the
// rectangle grows right, then down while the whole width of the next row
// is unprocessed building, and is marked processed before the scan
// continues. The result partitions the building cells. It is not a
// minimal cover.
func MergeFootprints(m *formats.CityMap, building formats.Symbol) ([]Footprint, Processed) {
	processed := make(Processed, len(m.Rows))
	for r, row := range m.Rows {
		processed[r] = make([]bool, len(row))
	}

	open := func(r, c int) bool {
		return m.At(r, c) == building && !processed.Covered(r, c)
	}

	var out []Footprint
	for r, row := range m.Rows {
		for c := range row {
			if !open(r, c) {
				continue
			}

			w := 1
			for open(r, c+w) {
				w++
			}

			h := 1
			for rowOpen(open, r+h, c, w) {
				h++
			}

			for dr := 0; dr < h; dr++ {
				for dc := 0; dc < w; dc++ {
					processed[r+dr][c+dc] = true
				}
			}
			out = append(out, Footprint{Row: r, Col: c, Width: w, Height: h})
		}
	}
	return out, processed
}

func rowOpen(open func(r, c int) bool, r, c, w int) bool {
	for dc := 0; dc < w; dc++ {
		if !open(r, c+dc) {
			return false
		}
	}
	return true
}
