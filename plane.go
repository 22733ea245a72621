// Package shipcad holds the geometry shared by the hull modelling packages:
// planes, triangle normals and areas, file format versions and the
// AutoCAD colour palette used by the DXF exporters.
package shipcad

import (
	"math"

	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is the implicit plane a·x + b·y + c·z + d = 0.
// Planes built by the constructors in this package have a unit normal (a,b,c).
type Plane struct {
	A, B, C, D float64
}

// NewPlane returns the plane through p with normal n. n need not be unit.
func NewPlane(p, n r3.Vec) Plane {
	n = r3.Unit(n)
	return Plane{A: n.X, B: n.Y, C: n.Z, D: -r3.Dot(p, n)}
}

// PlaneFrom3 returns the plane through three points. The normal
// follows the right hand rule on p1, p2, p3.
func PlaneFrom3(p1, p2, p3 r3.Vec) Plane {
	n := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	return NewPlane(p1, n)
}

// Station returns the transverse plane x = x0.
func Station(x0 float64) Plane { return Plane{A: 1, D: -x0} }

// Buttock returns the longitudinal plane y = y0.
func Buttock(y0 float64) Plane { return Plane{B: 1, D: -y0} }

// Waterline returns the horizontal plane z = z0.
func Waterline(z0 float64) Plane { return Plane{C: 1, D: -z0} }

// Normal returns the plane normal (a,b,c).
func (p Plane) Normal() r3.Vec { return r3.Vec{X: p.A, Y: p.B, Z: p.C} }

// Distance returns the signed distance from v to the plane.
// It is only a true distance when the normal is unit length.
func (p Plane) Distance(v r3.Vec) float64 {
	return p.A*v.X + p.B*v.Y + p.C*v.Z + p.D
}

// Project returns the orthogonal projection of v onto the plane.
func (p Plane) Project(v r3.Vec) r3.Vec {
	n := p.Normal()
	n2 := r3.Norm2(n)
	if n2 == 0 {
		return v
	}
	return r3.Sub(v, r3.Scale(p.Distance(v)/n2, n))
}

// Mirror returns v reflected in the plane.
func (p Plane) Mirror(v r3.Vec) r3.Vec {
	n := p.Normal()
	n2 := r3.Norm2(n)
	if n2 == 0 {
		return v
	}
	return r3.Sub(v, r3.Scale(2*p.Distance(v)/n2, n))
}

// IntersectLine returns the point where the segment p1-p2 crosses the plane
// and the segment parameter t of that point. ok is false when the segment
// is parallel to the plane.
func (p Plane) IntersectLine(p1, p2 r3.Vec) (pt r3.Vec, t float64, ok bool) {
	s1 := p.Distance(p1)
	s2 := p.Distance(p2)
	if math.Abs(s2-s1) < 1e-12 {
		return r3.Vec{}, 0, false
	}
	t = -s1 / (s2 - s1)
	return r3.Add(p1, r3.Scale(t, r3.Sub(p2, p1))), t, true
}

// IntersectsBox reports whether the plane passes through the box.
func (p Plane) IntersectsBox(b d3.Box) bool {
	var above, below bool
	for _, v := range b.Vertices() {
		s := p.Distance(v)
		above = above || s >= 0
		below = below || s <= 0
		if above && below {
			return true
		}
	}
	return false
}
