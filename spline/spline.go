// Package spline implements interpolating cubic splines through a
// sequence of 3D points. Points flagged as knuckles break the spline
// into independently interpolated runs that meet with C0 continuity.
package spline

import (
	"math"

	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultFragments is the number of line segments a spline is
	// sampled with when measured, intersected or drawn.
	DefaultFragments = 100
	// DefaultCurvatureScale scales curvature plots.
	DefaultCurvatureScale = 0.1
)

// Spline is a natural cubic spline interpolating its points.
// Parameters run from 0 at the first point to 1 at the last and are
// spaced by the square root of the chord lengths.
type Spline struct {
	points   []r3.Vec
	knuckles []bool

	// Fragments is the sampling resolution used by Length and IntersectPlane.
	Fragments      int
	ShowCurvature  bool
	CurvatureScale float64

	build  bool
	params []float64
	// second derivatives at each point with respect to the parameter.
	deriv []r3.Vec
	box   d3.Box
}

// New returns a spline through the given points.
func New(points ...r3.Vec) *Spline {
	s := &Spline{
		Fragments:      DefaultFragments,
		CurvatureScale: DefaultCurvatureScale,
	}
	for _, p := range points {
		s.Add(p)
	}
	return s
}

// Len returns the number of points.
func (s *Spline) Len() int { return len(s.points) }

// Point returns the i'th point.
func (s *Spline) Point(i int) r3.Vec { return s.points[i] }

// Points returns a copy of the spline's points.
func (s *Spline) Points() []r3.Vec { return append([]r3.Vec(nil), s.points...) }

// First returns the first point. The spline must not be empty.
func (s *Spline) First() r3.Vec { return s.points[0] }

// Last returns the last point. The spline must not be empty.
func (s *Spline) Last() r3.Vec { return s.points[len(s.points)-1] }

// Knuckle reports whether the i'th point is a knuckle.
func (s *Spline) Knuckle(i int) bool { return s.knuckles[i] }

// SetKnuckle sets the knuckle flag of the i'th point.
func (s *Spline) SetKnuckle(i int, v bool) {
	if s.knuckles[i] != v {
		s.knuckles[i] = v
		s.build = false
	}
}

// SetPoint moves the i'th point.
func (s *Spline) SetPoint(i int, p r3.Vec) {
	s.points[i] = p
	s.build = false
}

// Add appends a smooth point.
func (s *Spline) Add(p r3.Vec) {
	s.points = append(s.points, p)
	s.knuckles = append(s.knuckles, false)
	s.build = false
}

// AddKnuckle appends a point with the given knuckle flag.
func (s *Spline) AddKnuckle(p r3.Vec, knuckle bool) {
	s.Add(p)
	s.knuckles[len(s.knuckles)-1] = knuckle
}

// Insert inserts a smooth point before index i.
func (s *Spline) Insert(i int, p r3.Vec) {
	s.points = append(s.points, r3.Vec{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = p
	s.knuckles = append(s.knuckles, false)
	copy(s.knuckles[i+1:], s.knuckles[i:])
	s.knuckles[i] = false
	s.build = false
}

// Delete removes the i'th point.
func (s *Spline) Delete(i int) {
	s.points = append(s.points[:i], s.points[i+1:]...)
	s.knuckles = append(s.knuckles[:i], s.knuckles[i+1:]...)
	s.build = false
}

// Clone returns a deep copy of s.
func (s *Spline) Clone() *Spline {
	c := *s
	c.points = append([]r3.Vec(nil), s.points...)
	c.knuckles = append([]bool(nil), s.knuckles...)
	c.params = append([]float64(nil), s.params...)
	c.deriv = append([]r3.Vec(nil), s.deriv...)
	return &c
}

// Invalidate discards the interpolation so the next evaluation rebuilds it.
func (s *Spline) Invalidate() { s.build = false }

// InvertDirection reverses the point order.
func (s *Spline) InvertDirection() {
	for i, j := 0, len(s.points)-1; i < j; i, j = i+1, j-1 {
		s.points[i], s.points[j] = s.points[j], s.points[i]
		s.knuckles[i], s.knuckles[j] = s.knuckles[j], s.knuckles[i]
	}
	s.build = false
}

// InsertSpline inserts the points of src before index. When invert is
// set src is inserted back to front. When duplicate is set the inserted
// point that coincides with the neighbouring point of s is skipped and its
// knuckle flag merged into that neighbour: the first inserted point when
// index > 0, the last one when index == 0.
func (s *Spline) InsertSpline(index int, invert, duplicate bool, src *Spline) {
	n := src.Len()
	pts := make([]r3.Vec, n)
	kn := make([]bool, n)
	for i := 0; i < n; i++ {
		j := i
		if invert {
			j = n - 1 - i
		}
		pts[i] = src.points[j]
		kn[i] = src.knuckles[j]
	}
	if duplicate && len(s.points) > 0 && n > 0 {
		if index > 0 {
			s.knuckles[index-1] = s.knuckles[index-1] || kn[0]
			pts, kn = pts[1:], kn[1:]
		} else {
			s.knuckles[0] = s.knuckles[0] || kn[n-1]
			pts, kn = pts[:n-1], kn[:n-1]
		}
	}
	s.points = append(s.points[:index], append(pts, s.points[index:]...)...)
	s.knuckles = append(s.knuckles[:index], append(kn, s.knuckles[index:]...)...)
	s.build = false
}

// Parameter returns the parameter of the i'th point.
func (s *Spline) Parameter(i int) float64 {
	s.rebuild()
	return s.params[i]
}

// Extents returns the bounding box of the points.
func (s *Spline) Extents() d3.Box {
	s.rebuild()
	return s.box
}

// Closed reports whether the first and last points coincide within tol.
func (s *Spline) Closed(tol float64) bool {
	if len(s.points) < 3 {
		return false
	}
	return r3.Norm(r3.Sub(s.First(), s.Last())) <= tol
}

func (s *Spline) rebuild() {
	if s.build {
		return
	}
	n := len(s.points)
	s.params = s.params[:0]
	s.deriv = make([]r3.Vec, n)
	s.box = d3.EmptyBox()
	for _, p := range s.points {
		s.box = s.box.Include(p)
	}
	if n == 0 {
		s.build = true
		return
	}
	total := 0.0
	for i := 1; i < n; i++ {
		total += math.Sqrt(r3.Norm(r3.Sub(s.points[i], s.points[i-1])))
	}
	s.params = append(s.params, 0)
	if total < 1e-5 {
		for i := 1; i < n; i++ {
			s.params = append(s.params, float64(i)/float64(n-1))
		}
	} else {
		acc := 0.0
		for i := 1; i < n; i++ {
			acc += math.Sqrt(r3.Norm(r3.Sub(s.points[i], s.points[i-1])))
			s.params = append(s.params, acc/total)
		}
		s.params[n-1] = 1
	}
	// Solve a natural spline for every run between knuckles.
	start := 0
	for i := 1; i < n; i++ {
		if s.knuckles[i] || i == n-1 {
			s.solveRun(start, i)
			start = i
		}
	}
	s.build = true
}

// solveRun computes second derivatives for the points lo..hi inclusive
// with zero curvature at both ends.
func (s *Spline) solveRun(lo, hi int) {
	m := hi - lo - 1 // interior unknowns
	if m < 1 {
		return
	}
	t := s.params
	for i := lo; i < hi; i++ {
		if t[i+1]-t[i] < 1e-9 {
			return // coincident points, keep the run linear
		}
	}
	a := mat.NewSymDense(m, nil)
	for k := 0; k < m; k++ {
		i := lo + 1 + k
		a.SetSym(k, k, 2*(t[i+1]-t[i-1]))
		if k+1 < m {
			a.SetSym(k, k+1, t[i+1]-t[i])
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return
	}
	rhs := func(c func(r3.Vec) float64) *mat.VecDense {
		b := mat.NewVecDense(m, nil)
		for k := 0; k < m; k++ {
			i := lo + 1 + k
			y0, y1, y2 := c(s.points[i-1]), c(s.points[i]), c(s.points[i+1])
			b.SetVec(k, 6*((y2-y1)/(t[i+1]-t[i])-(y1-y0)/(t[i]-t[i-1])))
		}
		return b
	}
	comps := [3]func(r3.Vec) float64{
		func(v r3.Vec) float64 { return v.X },
		func(v r3.Vec) float64 { return v.Y },
		func(v r3.Vec) float64 { return v.Z },
	}
	var sol [3]mat.VecDense
	for c, f := range comps {
		if err := chol.SolveVecTo(&sol[c], rhs(f)); err != nil {
			return
		}
	}
	for k := 0; k < m; k++ {
		s.deriv[lo+1+k] = r3.Vec{X: sol[0].AtVec(k), Y: sol[1].AtVec(k), Z: sol[2].AtVec(k)}
	}
}

// Value returns the point on the spline at parameter t in [0,1].
func (s *Spline) Value(t float64) r3.Vec {
	n := len(s.points)
	switch n {
	case 0:
		return r3.Vec{}
	case 1:
		return s.points[0]
	}
	s.rebuild()
	lo, hi := 0, n-1
	for hi-lo > 1 {
		k := (lo + hi) / 2
		if s.params[k] < t {
			lo = k
		} else {
			hi = k
		}
	}
	h := s.params[hi] - s.params[lo]
	if math.Abs(h) < 1e-9 {
		return s.points[hi]
	}
	a := (s.params[hi] - t) / h
	b := 1 - a
	ca := (a*a*a - a) * h * h / 6
	cb := (b*b*b - b) * h * h / 6
	p := r3.Add(r3.Scale(a, s.points[lo]), r3.Scale(b, s.points[hi]))
	return r3.Add(p, r3.Add(r3.Scale(ca, s.deriv[lo]), r3.Scale(cb, s.deriv[hi])))
}

// Sample returns n+1 evenly spaced points on the spline including both ends.
func (s *Spline) Sample(n int) []r3.Vec {
	if n < 1 {
		n = 1
	}
	out := make([]r3.Vec, n+1)
	for i := range out {
		out[i] = s.Value(float64(i) / float64(n))
	}
	return out
}

func (s *Spline) fragments() int {
	if s.Fragments < 1 {
		return DefaultFragments
	}
	return s.Fragments
}

// Length returns the length of the spline sampled at Fragments segments.
func (s *Spline) Length() float64 {
	pts := s.Sample(s.fragments())
	var l float64
	for i := 1; i < len(pts); i++ {
		l += r3.Norm(r3.Sub(pts[i], pts[i-1]))
	}
	return l
}

// ChordLength returns the length of the control polygon.
func (s *Spline) ChordLength() float64 {
	var l float64
	for i := 1; i < len(s.points); i++ {
		l += r3.Norm(r3.Sub(s.points[i], s.points[i-1]))
	}
	return l
}
