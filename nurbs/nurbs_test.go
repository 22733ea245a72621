package nurbs

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestOpenKnots(t *testing.T) {
	kv := Open(4, 3)
	want := KnotVector{0, 0, 0, 0, 1, 1, 1, 1}
	if len(kv) != len(want) {
		t.Fatalf("len %d, want %d", len(kv), len(want))
	}
	for i := range kv {
		if kv[i] != want[i] {
			t.Fatalf("knot %d = %g, want %g", i, kv[i], want[i])
		}
	}
	if !kv.IsClamped(3) || !kv.IsValid(4, 3) {
		t.Error("open knot vector not clamped and valid")
	}
	m := Open(6, 2).Multiplicities()
	if len(m) != 5 || m[0].Mult != 3 || m[len(m)-1].Mult != 3 {
		t.Errorf("unexpected multiplicities %v", m)
	}
}

func TestSpan(t *testing.T) {
	kv := KnotVector{0, 0, 0, 1, 2, 3, 3, 3}
	for _, test := range []struct {
		u    float64
		want int
	}{
		{0, 2}, {0.5, 2}, {1, 3}, {2.5, 4}, {3, 4},
	} {
		if got := kv.Span(2, test.u); got != test.want {
			t.Errorf("Span(%g) = %d, want %d", test.u, got, test.want)
		}
	}
}

func TestBasisPartitionOfUnity(t *testing.T) {
	kv := Open(7, 3)
	for u := 0.0; u <= 1; u += 0.05 {
		span := kv.Span(3, u)
		sum := 0.0
		for _, b := range basisFunctions(span, u, 3, kv) {
			if b < -1e-12 {
				t.Fatalf("negative basis at u=%g", u)
			}
			sum += b
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("basis sum at u=%g is %g", u, sum)
		}
	}
}

func TestBilinearCorners(t *testing.T) {
	g, _ := GridFrom([][]r3.Vec{
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}},
		{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 2}},
	})
	s, err := NewSurface(g, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s.ColDegree != 1 || s.RowDegree != 1 {
		t.Fatalf("degrees not clamped: %d %d", s.ColDegree, s.RowDegree)
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		u, v float64
		want r3.Vec
	}{
		{0, 0, g.At(0, 0)},
		{1, 0, g.At(0, 1)},
		{0, 1, g.At(1, 0)},
		{1, 1, g.At(1, 1)},
		{0.5, 0.5, r3.Vec{X: 0.5, Y: 0.5, Z: 0.75}},
	} {
		got := s.Evaluate(test.u, test.v)
		if r3.Norm(r3.Sub(got, test.want)) > 1e-12 {
			t.Errorf("Evaluate(%g,%g) = %v, want %v", test.u, test.v, got, test.want)
		}
	}
}

func wavyGrid(rows, cols int) *Grid[r3.Vec] {
	g := NewGrid[r3.Vec](rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Set(r, c, r3.Vec{X: float64(c), Y: float64(r), Z: math.Sin(float64(c)) * math.Cos(float64(r))})
		}
	}
	return g
}

func TestKnotInsertionKeepsShape(t *testing.T) {
	s, err := NewSurface(wavyGrid(5, 6), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	type sample struct {
		u, v float64
		p    r3.Vec
	}
	var before []sample
	for u := 0.0; u <= 1; u += 0.125 {
		for v := 0.0; v <= 1; v += 0.125 {
			before = append(before, sample{u, v, s.Evaluate(u, v)})
		}
	}
	s.InsertColKnot(0.3)
	s.InsertRowKnot(0.6)
	s.InsertColKnot(0.3)
	if s.Points.Cols() != 8 || s.Points.Rows() != 6 {
		t.Fatalf("grid is %dx%d after insertion", s.Points.Rows(), s.Points.Cols())
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
	for _, sm := range before {
		got := s.Evaluate(sm.u, sm.v)
		if r3.Norm(r3.Sub(got, sm.p)) > 1e-9 {
			t.Errorf("(%g,%g) moved from %v to %v", sm.u, sm.v, sm.p, got)
		}
	}
}

func TestMirror(t *testing.T) {
	s, _ := NewSurface(wavyGrid(3, 4), 2, 2)
	m := s.Mirror()
	for _, uv := range [][2]float64{{0, 0}, {0.25, 0.5}, {1, 1}} {
		p := s.Evaluate(uv[0], uv[1])
		q := m.Evaluate(1-uv[0], uv[1])
		if math.Abs(p.X-q.X) > 1e-9 || math.Abs(p.Y+q.Y) > 1e-9 || math.Abs(p.Z-q.Z) > 1e-9 {
			t.Errorf("mirror of %v is %v", p, q)
		}
	}
}

func TestFromSubdivisionGridFlat(t *testing.T) {
	g := NewGrid[r3.Vec](4, 5)
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			g.Set(r, c, r3.Vec{X: float64(c), Y: float64(r)})
		}
	}
	s, err := FromSubdivisionGrid(g)
	if err != nil {
		t.Fatal(err)
	}
	if s.ColDegree != 3 || s.RowDegree != 3 {
		t.Fatalf("degrees %d %d, want cubic", s.ColDegree, s.RowDegree)
	}
	u0, u1, v0, v1 := s.Domain()
	for _, test := range []struct {
		u, v float64
		want r3.Vec
	}{
		{u0, v0, g.At(0, 0)},
		{u1, v0, g.At(0, 4)},
		{u0, v1, g.At(3, 0)},
		{u1, v1, g.At(3, 4)},
	} {
		got := s.Evaluate(test.u, test.v)
		if r3.Norm(r3.Sub(got, test.want)) > 1e-9 {
			t.Errorf("corner %v, want %v", got, test.want)
		}
	}
	if p := s.Evaluate((u0+u1)/2, (v0+v1)/3); math.Abs(p.Z) > 1e-12 {
		t.Errorf("flat grid left the plane: %v", p)
	}
}

func TestGridEditing(t *testing.T) {
	g, _ := GridFrom([][]int{{1, 2, 3}, {4, 5, 6}})
	g.DeleteColumn(1)
	if g.Cols() != 2 || g.At(1, 1) != 6 {
		t.Fatalf("DeleteColumn: %v", g.data)
	}
	tr := g.Transpose()
	if tr.Rows() != 2 || tr.Cols() != 2 || tr.At(0, 1) != 4 {
		t.Fatalf("Transpose: %v", tr.data)
	}
	g.DeleteRow(0)
	if g.Rows() != 1 || g.At(0, 0) != 4 {
		t.Fatalf("DeleteRow: %v", g.data)
	}
	g.SetWithExpansion(2, 3, 9)
	if g.Rows() != 3 || g.Cols() != 4 || g.At(0, 1) != 6 || g.At(2, 3) != 9 {
		t.Fatalf("SetWithExpansion: %dx%d %v", g.Rows(), g.Cols(), g.data)
	}
}
