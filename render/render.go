// Package render exports hull geometry: binary STL meshes of the refined
// surface and layered DXF drawings of curves and developed plates.
package render

import (
	"io"

	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a 3D triangle with counter clockwise winding about its normal.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
	if l := r3.Norm(n); l > 0 {
		return r3.Scale(1/l, n)
	}
	return r3.Vec{}
}

// Degenerate reports whether two vertices lie within tol of each other.
func (t Triangle3) Degenerate(tol float64) bool {
	return r3.Norm(r3.Sub(t.V[0], t.V[1])) <= tol ||
		r3.Norm(r3.Sub(t.V[1], t.V[2])) <= tol ||
		r3.Norm(r3.Sub(t.V[2], t.V[0])) <= tol
}

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// Surface returns the triangles of the refined mesh of s. Faces of layers
// rejected by use are skipped; use may be nil. When mirror is set the port
// half of symmetric layers is included.
func Surface(s *subdiv.Surface, use func(*subdiv.Layer) bool, mirror bool) []Triangle3 {
	tris := s.Triangles(use, mirror)
	out := make([]Triangle3, len(tris))
	for i, t := range tris {
		out[i] = Triangle3{V: t.P}
	}
	return out
}

// NewSurfaceRenderer returns a Renderer over the triangles of Surface.
func NewSurfaceRenderer(s *subdiv.Surface, use func(*subdiv.Layer) bool, mirror bool) Renderer {
	return &triangle3Buffer{buf: Surface(s, use, mirror)}
}

// ReadTriangles implements Renderer.
func (b *triangle3Buffer) ReadTriangles(t []Triangle3) (int, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	return b.Read(t), nil
}
