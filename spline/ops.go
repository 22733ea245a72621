package spline

import (
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Crossing is a point where a spline passes through a plane.
type Crossing struct {
	Point     r3.Vec
	Parameter float64
}

// IntersectPlane returns the crossings of the spline with the plane,
// sampling the spline at Fragments segments.
func (s *Spline) IntersectPlane(p shipcad.Plane) []Crossing {
	if s.Len() < 2 {
		return nil
	}
	n := s.fragments()
	var out []Crossing
	prev := s.Value(0)
	sPrev := p.Distance(prev)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		cur := s.Value(t)
		sCur := p.Distance(cur)
		if (sPrev <= 0 && sCur > 0) || (sPrev >= 0 && sCur < 0) {
			f := 0.0
			if sCur != sPrev {
				f = -sPrev / (sCur - sPrev)
			}
			tPrev := float64(i-1) / float64(n)
			out = append(out, Crossing{
				Point:     d3.Lerp(prev, cur, f),
				Parameter: tPrev + f*(t-tPrev),
			})
		}
		prev, sPrev = cur, sCur
	}
	return out
}

// weight measures how much the shape changes when point i is removed.
// End points and knuckles can never be removed.
func (s *Spline) weight(i int, total float64) float64 {
	const keep = 1e10
	if i == 0 || i == len(s.points)-1 || s.knuckles[i] {
		return keep
	}
	p1, p2, p3 := s.points[i-1], s.points[i], s.points[i+1]
	length := r3.Norm(r3.Sub(p3, p1))
	if length < 1e-5 {
		return 0
	}
	dist := d3.DistToLine(p2, p1, p3)
	if dist < 1e-3*total && length > 0.1*total {
		// long straight runs keep their points for even parametrisation.
		return keep
	}
	return 1e8 * dist * dist * length / (total * total * total)
}

// Simplify removes points whose removal changes the spline less than
// criterium. It reports whether any point was removed.
func (s *Spline) Simplify(criterium float64) bool {
	if len(s.points) < 3 {
		return false
	}
	total := s.ChordLength()
	if total == 0 {
		return false
	}
	removed := false
	for len(s.points) > 2 {
		best, bestW := -1, math.Inf(1)
		for i := 1; i < len(s.points)-1; i++ {
			if w := s.weight(i, total); w < bestW {
				best, bestW = i, w
			}
		}
		if best < 0 || bestW >= criterium {
			break
		}
		s.Delete(best)
		removed = true
	}
	return removed
}

// SaveBinary writes the spline to dst.
func (s *Spline) SaveBinary(dst *filebuf.Buffer) {
	dst.AddBool(s.ShowCurvature)
	dst.AddFloat(s.CurvatureScale)
	dst.AddInt(len(s.points))
	for i, p := range s.points {
		dst.AddVec(p)
		dst.AddBool(s.knuckles[i])
	}
}

// LoadBinary replaces the spline with the one stored in src.
func (s *Spline) LoadBinary(src *filebuf.Buffer) (err error) {
	if s.ShowCurvature, err = src.LoadBool(); err != nil {
		return err
	}
	if s.CurvatureScale, err = src.LoadFloat(); err != nil {
		return err
	}
	n, err := src.LoadInt()
	if err != nil {
		return err
	}
	s.points = make([]r3.Vec, 0, n)
	s.knuckles = make([]bool, 0, n)
	for i := 0; i < n; i++ {
		p, err := src.LoadVec()
		if err != nil {
			return err
		}
		k, err := src.LoadBool()
		if err != nil {
			return err
		}
		s.AddKnuckle(p, k)
	}
	if s.Fragments == 0 {
		s.Fragments = DefaultFragments
	}
	s.build = false
	return nil
}
