package city

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/midgard-city/internal/engine/model"
	gmath "github.com/Faultbox/midgard-city/pkg/math"
)

// SceneBuffer is the concatenated world-space geometry of a city.
// Positions and Normals have stride 3, Colors stride 4. A published
// buffer is never modified.
type SceneBuffer struct {
	Positions []float32
	Colors    []float32
	Normals   []float32
}

// VertexCount returns the number of vertices in the buffer.
func (b *SceneBuffer) VertexCount() int {
	return len(b.Positions) / 3
}

// Bounds returns the world-space bounding box. An empty buffer has zero bounds.
func (b *SceneBuffer) Bounds() model.Bounds {
	var out model.Bounds
	for i := 0; i+2 < len(b.Positions); i += 3 {
		p := gmath.Vec3{X: b.Positions[i], Y: b.Positions[i+1], Z: b.Positions[i+2]}
		if i == 0 {
			out.Min, out.Max = p.Array(), p.Array()
			continue
		}
		out.Min = gmath.V3(out.Min).Min(p).Array()
		out.Max = gmath.V3(out.Max).Max(p).Array()
	}
	return out
}

func (b *SceneBuffer) appendMesh(mesh *model.Mesh, in instance) {
	pos := in.pos
	pos.Y += in.lift
	xf := gmath.TRS(pos, in.yaw, in.scale)

	// Normals take the inverse scale so they stay perpendicular under
	// non-uniform stretching.
	rot := gmath.RotateY(in.yaw)
	inv := gmath.Vec3{X: 1 / in.scale.X, Y: 1 / in.scale.Y, Z: 1 / in.scale.Z}

	for _, v := range mesh.Vertices {
		p := xf.TransformPoint(v.Position)
		n := rot.TransformDirection(gmath.V3(v.Normal).Mul(inv).Array())
		n = gmath.V3(n).Normalize().Array()

		b.Positions = append(b.Positions, p[0], p[1], p[2])
		b.Normals = append(b.Normals, n[0], n[1], n[2])
		b.Colors = append(b.Colors, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
}

// Baked buffer layout: magic, little-endian uint32 vertex count, then a
// zstd stream of positions, colors and normals as little-endian float32.
var bakeMagic = [4]byte{'C', 'S', 'B', '1'}

// ErrBadBake is returned for input that is not a baked scene buffer.
var ErrBadBake = errors.New("not a baked scene buffer")

// WriteTo writes the buffer in baked form.
func (b *SceneBuffer) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	var header [8]byte
	copy(header[:4], bakeMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(b.VertexCount()))
	if _, err := cw.Write(header[:]); err != nil {
		return cw.n, err
	}

	enc, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return cw.n, err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	for _, s := range [][]float32{b.Positions, b.Colors, b.Normals} {
		if err := writeFloats(bw, s); err != nil {
			enc.Close()
			return cw.n, err
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return cw.n, err
	}
	if err := enc.Close(); err != nil {
		return cw.n, fmt.Errorf("zstd close: %w", err)
	}
	return cw.n, nil
}

// ReadSceneBuffer reads a buffer written by WriteTo.
func ReadSceneBuffer(r io.Reader) (*SceneBuffer, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if [4]byte(header[:4]) != bakeMagic {
		return nil, ErrBadBake
	}
	n := int(binary.LittleEndian.Uint32(header[4:]))

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	br := bufio.NewReaderSize(dec, 256*1024)

	b := &SceneBuffer{
		Positions: make([]float32, 3*n),
		Colors:    make([]float32, 4*n),
		Normals:   make([]float32, 3*n),
	}
	for _, s := range [][]float32{b.Positions, b.Colors, b.Normals} {
		if err := readFloats(br, s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadBake, err)
		}
	}
	return b, nil
}

func writeFloats(w io.Writer, s []float32) error {
	var buf [4]byte
	for _, f := range s {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func readFloats(r io.Reader, s []float32) error {
	var buf [4]byte
	for i := range s {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		s[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
