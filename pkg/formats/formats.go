// Package formats provides parsers for the city viewer's text formats:
// Wavefront OBJ meshes, MTL material libraries and ASCII city maps.
package formats

import "fmt"

// ParseError reports a line that could not be parsed at all.
type ParseError struct {
	Format string // "obj", "mtl"
	Line   int    // 1-based
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Format, e.Line, e.Msg)
}

// Diagnostic is a recoverable problem found while parsing. The offending
// record was skipped and parsing continued.
type Diagnostic struct {
	Line int
	Msg  string
}

// String returns "line N: msg".
func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Msg)
}
