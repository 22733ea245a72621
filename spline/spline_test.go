package spline_test

import (
	"math"
	"testing"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/internal/d3"
	"github.com/soypat/shipcad/spline"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestValueInterpolates(t *testing.T) {
	s := spline.New(
		r3.Vec{X: 0, Y: 0, Z: 0},
		r3.Vec{X: 1, Y: 0.5, Z: 0},
		r3.Vec{X: 2, Y: 0.8, Z: 0.1},
		r3.Vec{X: 3, Y: 0.5, Z: 0.3},
		r3.Vec{X: 4, Y: 0, Z: 0.2},
	)
	for i := 0; i < s.Len(); i++ {
		got := s.Value(s.Parameter(i))
		if !d3.EqualWithin(got, s.Point(i), 1e-9) {
			t.Errorf("point %d: got %v, want %v", i, got, s.Point(i))
		}
	}
}

func TestCollinearStaysStraight(t *testing.T) {
	s := spline.New(
		r3.Vec{X: 0, Y: 0, Z: 0},
		r3.Vec{X: 1, Y: 1, Z: 1},
		r3.Vec{X: 3, Y: 3, Z: 3},
		r3.Vec{X: 4, Y: 4, Z: 4},
	)
	for i := 0; i <= 20; i++ {
		p := s.Value(float64(i) / 20)
		if d := d3.DistToLine(p, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}); d > 1e-9 {
			t.Fatalf("t=%g: point %v off line by %g", float64(i)/20, p, d)
		}
	}
	want := math.Sqrt(3) * 4
	if got := s.Length(); math.Abs(got-want) > 1e-6 {
		t.Errorf("length: got %g, want %g", got, want)
	}
}

func TestKnuckleSplitsRuns(t *testing.T) {
	// A right angle with a knuckle at the corner must pass through the
	// corner and stay on both legs.
	s := spline.New(
		r3.Vec{X: 0, Y: 0},
		r3.Vec{X: 1, Y: 0},
		r3.Vec{X: 2, Y: 0},
		r3.Vec{X: 2, Y: 1},
		r3.Vec{X: 2, Y: 2},
	)
	s.SetKnuckle(2, true)
	for i := 0; i <= 40; i++ {
		tt := float64(i) / 40
		p := s.Value(tt)
		if tt <= s.Parameter(2) && math.Abs(p.Y) > 1e-9 {
			t.Errorf("t=%g: first leg point %v off y=0", tt, p)
		}
		if tt >= s.Parameter(2) && math.Abs(p.X-2) > 1e-9 {
			t.Errorf("t=%g: second leg point %v off x=2", tt, p)
		}
	}
}

func TestIntersectPlane(t *testing.T) {
	s := spline.New(r3.Vec{X: 0}, r3.Vec{X: 1, Z: 1}, r3.Vec{X: 2})
	got := s.IntersectPlane(shipcad.Waterline(0.5))
	if len(got) != 2 {
		t.Fatalf("expected 2 crossings, got %d", len(got))
	}
	for _, c := range got {
		if math.Abs(c.Point.Z-0.5) > 1e-9 {
			t.Errorf("crossing %v not on plane", c.Point)
		}
	}
	if got[0].Parameter >= got[1].Parameter {
		t.Errorf("crossings out of order: %v", got)
	}
}

func TestSimplifyKeepsShape(t *testing.T) {
	s := spline.New()
	for i := 0; i <= 50; i++ {
		s.Add(r3.Vec{X: float64(i) / 50, Y: 0})
	}
	s.Add(r3.Vec{X: 1, Y: 1})
	s.SetKnuckle(50, true)
	if !s.Simplify(2) {
		t.Fatal("expected points to be removed")
	}
	if s.Len() >= 52 {
		t.Fatalf("nothing removed, %d points", s.Len())
	}
	if !s.Knuckle(s.Len() - 2) {
		t.Error("knuckle point removed")
	}
	if s.First() != (r3.Vec{}) || s.Last() != (r3.Vec{X: 1, Y: 1}) {
		t.Error("end points moved")
	}
}

func TestInsertSplineJoin(t *testing.T) {
	a := spline.New(r3.Vec{X: 0}, r3.Vec{X: 1})
	b := spline.New(r3.Vec{X: 2}, r3.Vec{X: 1})
	a.InsertSpline(a.Len(), true, true, b)
	if a.Len() != 3 || a.Last() != (r3.Vec{X: 2}) {
		t.Fatalf("append join: got %v", a.Points())
	}
	c := spline.New(r3.Vec{X: -1}, r3.Vec{X: 0})
	a.InsertSpline(0, false, true, c)
	if a.Len() != 4 || a.First() != (r3.Vec{X: -1}) {
		t.Fatalf("prepend join: got %v", a.Points())
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	s := spline.New(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 4, Y: 5, Z: 6}, r3.Vec{X: 7, Y: 8, Z: 9})
	s.SetKnuckle(1, true)
	s.ShowCurvature = true
	s.CurvatureScale = 0.25
	var b filebuf.Buffer
	s.SaveBinary(&b)
	r := b.Reader()
	var got spline.Spline
	if err := got.LoadBinary(r); err != nil {
		t.Fatal(err)
	}
	if r.Pos() != b.Len() {
		t.Errorf("cursor %d, want %d", r.Pos(), b.Len())
	}
	if got.Len() != 3 || !got.Knuckle(1) || got.Knuckle(0) || !got.ShowCurvature || got.CurvatureScale != 0.25 {
		t.Fatalf("mismatch: %+v", got)
	}
	for i := 0; i < 3; i++ {
		if got.Point(i) != s.Point(i) {
			t.Errorf("point %d: %v != %v", i, got.Point(i), s.Point(i))
		}
	}
}
