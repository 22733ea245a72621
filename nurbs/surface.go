package nurbs

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a non rational B-spline surface. Columns run along the u
// parameter and rows along v.
type Surface struct {
	Points    *Grid[r3.Vec]
	ColDegree int
	RowDegree int
	ColKnots  KnotVector
	RowKnots  KnotVector
}

// NewSurface returns a surface over a copy of points with clamped knot
// vectors and the requested degrees, lowered where the grid is too small.
func NewSurface(points *Grid[r3.Vec], colDegree, rowDegree int) (*Surface, error) {
	if points.Rows() < 2 || points.Cols() < 2 {
		return nil, errors.New("nurbs: surface needs at least 2x2 control points")
	}
	s := &Surface{Points: points.Clone()}
	s.SetColDegree(colDegree)
	s.SetRowDegree(rowDegree)
	return s, nil
}

// SetColDegree sets the u degree, clamped to [1, cols-1], and resets the u knots.
func (s *Surface) SetColDegree(d int) {
	s.ColDegree = clampDegree(d, s.Points.Cols())
	s.ColKnots = Open(s.Points.Cols(), s.ColDegree)
}

// SetRowDegree sets the v degree, clamped to [1, rows-1], and resets the v knots.
func (s *Surface) SetRowDegree(d int) {
	s.RowDegree = clampDegree(d, s.Points.Rows())
	s.RowKnots = Open(s.Points.Rows(), s.RowDegree)
}

func clampDegree(d, n int) int {
	if d > n-1 {
		d = n - 1
	}
	if d < 1 {
		d = 1
	}
	return d
}

// SetDefaultKnots sets clamped knot vectors in both directions.
func (s *Surface) SetDefaultKnots() {
	s.ColKnots = Open(s.Points.Cols(), s.ColDegree)
	s.RowKnots = Open(s.Points.Rows(), s.RowDegree)
}

// SetUniformKnots sets uniform, unclamped knot vectors in both directions.
func (s *Surface) SetUniformKnots() {
	s.ColKnots = Uniform(s.Points.Cols(), s.ColDegree)
	s.RowKnots = Uniform(s.Points.Rows(), s.RowDegree)
}

// NormalizeKnots rescales both knot vectors to [0,1].
func (s *Surface) NormalizeKnots() {
	s.ColKnots.Normalize()
	s.RowKnots.Normalize()
}

// Check validates degrees and knot vectors against the control grid.
func (s *Surface) Check() error {
	if !s.ColKnots.IsValid(s.Points.Cols(), s.ColDegree) {
		return fmt.Errorf("nurbs: invalid column knots for %d points of degree %d", s.Points.Cols(), s.ColDegree)
	}
	if !s.RowKnots.IsValid(s.Points.Rows(), s.RowDegree) {
		return fmt.Errorf("nurbs: invalid row knots for %d points of degree %d", s.Points.Rows(), s.RowDegree)
	}
	return nil
}

// Domain returns the parameter ranges over which the surface is defined.
func (s *Surface) Domain() (u0, u1, v0, v1 float64) {
	nc, nr := s.Points.Cols(), s.Points.Rows()
	return s.ColKnots[s.ColDegree], s.ColKnots[nc], s.RowKnots[s.RowDegree], s.RowKnots[nr]
}

// Evaluate returns the surface point at (u,v) (The NURBS Book, algorithm A3.5).
// Parameters are clamped to the domain.
func (s *Surface) Evaluate(u, v float64) r3.Vec {
	u0, u1, v0, v1 := s.Domain()
	u = clamp(u, u0, u1)
	v = clamp(v, v0, v1)
	nc, nr := s.Points.Cols()-1, s.Points.Rows()-1
	su := s.ColKnots.SpanGivenN(nc, s.ColDegree, u)
	sv := s.RowKnots.SpanGivenN(nr, s.RowDegree, v)
	bu := basisFunctions(su, u, s.ColDegree, s.ColKnots)
	bv := basisFunctions(sv, v, s.RowDegree, s.RowKnots)
	var p r3.Vec
	for k, wv := range bv {
		r := sv - s.RowDegree + k
		for l, wu := range bu {
			c := su - s.ColDegree + l
			p = r3.Add(p, r3.Scale(wu*wv, s.Points.At(r, c)))
		}
	}
	return p
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// InsertColKnot inserts u once into the column knots without changing the
// surface shape (Boehm's algorithm), adding one column of control points.
func (s *Surface) InsertColKnot(u float64) {
	rows := make([][]r3.Vec, s.Points.Rows())
	var kv KnotVector
	for r := range rows {
		rows[r], kv = insertKnot(s.Points.Row(r), s.ColKnots, s.ColDegree, u)
	}
	s.Points, _ = GridFrom(rows)
	s.ColKnots = kv
}

// InsertRowKnot inserts v once into the row knots, adding one row of control points.
func (s *Surface) InsertRowKnot(v float64) {
	cols := make([][]r3.Vec, s.Points.Cols())
	var kv KnotVector
	for c := range cols {
		cols[c], kv = insertKnot(s.Points.Col(c), s.RowKnots, s.RowDegree, v)
	}
	t, _ := GridFrom(cols)
	s.Points = t.Transpose()
	s.RowKnots = kv
}

// insertKnot inserts u once into a curve (The NURBS Book, algorithm A5.1 with r=1).
func insertKnot(pts []r3.Vec, kv KnotVector, degree int, u float64) ([]r3.Vec, KnotVector) {
	n := len(pts) - 1
	k := kv.SpanGivenN(n, degree, u)
	q := make([]r3.Vec, len(pts)+1)
	for i := 0; i <= k-degree; i++ {
		q[i] = pts[i]
	}
	for i := k + 1; i <= n+1; i++ {
		q[i] = pts[i-1]
	}
	for i := k - degree + 1; i <= k; i++ {
		a := (u - kv[i]) / (kv[i+degree] - kv[i])
		q[i] = r3.Add(r3.Scale(1-a, pts[i-1]), r3.Scale(a, pts[i]))
	}
	out := make(KnotVector, 0, len(kv)+1)
	out = append(out, kv[:k+1]...)
	out = append(out, u)
	out = append(out, kv[k+1:]...)
	return q, out
}

// DeleteColumn removes a column of control points and resets the column knots.
func (s *Surface) DeleteColumn(c int) {
	s.Points.DeleteColumn(c)
	s.SetColDegree(s.ColDegree)
}

// DeleteRow removes a row of control points and resets the row knots.
func (s *Surface) DeleteRow(r int) {
	s.Points.DeleteRow(r)
	s.SetRowDegree(s.RowDegree)
}

// Mirror returns the surface reflected in the plane y=0. The column order is
// reversed so the mirrored normals point outward.
func (s *Surface) Mirror() *Surface {
	g := s.Points.Clone()
	for i := range g.data {
		g.data[i].Y = -g.data[i].Y
	}
	g.ReverseCols()
	return &Surface{
		Points:    g,
		ColDegree: s.ColDegree,
		RowDegree: s.RowDegree,
		ColKnots:  s.ColKnots.Reversed(),
		RowKnots:  s.RowKnots.Clone(),
	}
}

// PhantomPoint returns the reflection of inner through border, used to
// extend a control grid past its boundary.
func PhantomPoint(border, inner r3.Vec) r3.Vec {
	return r3.Sub(r3.Scale(2, border), inner)
}

// CornerPoint returns the phantom corner of a grid whose corner point is p5,
// with p6 its neighbour along the row, p8 along the column and p9 diagonal.
func CornerPoint(p5, p6, p8, p9 r3.Vec) r3.Vec {
	p2 := PhantomPoint(p5, p8)
	p3 := PhantomPoint(p6, p9)
	p4 := PhantomPoint(p5, p6)
	p7 := PhantomPoint(p8, p9)
	sum := r3.Scale(20, p5)
	for _, v := range [...]r3.Vec{r3.Scale(4, p2), p3, r3.Scale(4, p4), r3.Scale(4, p6), p7, r3.Scale(4, p8), p9} {
		sum = r3.Sub(sum, v)
	}
	return sum
}

// FromSubdivisionGrid builds a cubic surface approximating the limit surface
// of a subdivision grid. The grid gets a border of phantom points and the
// knot vectors are clamped by knot insertion, so the surface interpolates
// the grid border.
func FromSubdivisionGrid(points *Grid[r3.Vec]) (*Surface, error) {
	rows, cols := points.Rows(), points.Cols()
	if rows < 2 || cols < 2 {
		return nil, errors.New("nurbs: subdivision grid needs at least 2x2 points")
	}
	g := NewGrid[r3.Vec](rows+2, cols+2)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Set(r+1, c+1, points.At(r, c))
		}
	}
	for c := 1; c <= cols; c++ {
		g.Set(0, c, PhantomPoint(g.At(1, c), g.At(2, c)))
		g.Set(rows+1, c, PhantomPoint(g.At(rows, c), g.At(rows-1, c)))
	}
	for r := 1; r <= rows; r++ {
		g.Set(r, 0, PhantomPoint(g.At(r, 1), g.At(r, 2)))
		g.Set(r, cols+1, PhantomPoint(g.At(r, cols), g.At(r, cols-1)))
	}
	R, C := rows+1, cols+1
	g.Set(0, 0, CornerPoint(g.At(1, 1), g.At(1, 2), g.At(2, 1), g.At(2, 2)))
	g.Set(0, C, CornerPoint(g.At(1, C-1), g.At(1, C-2), g.At(2, C-1), g.At(2, C-2)))
	g.Set(R, 0, CornerPoint(g.At(R-1, 1), g.At(R-1, 2), g.At(R-2, 1), g.At(R-2, 2)))
	g.Set(R, C, CornerPoint(g.At(R-1, C-1), g.At(R-1, C-2), g.At(R-2, C-1), g.At(R-2, C-2)))

	s := &Surface{Points: g}
	s.ColDegree = clampDegree(3, g.Cols())
	s.RowDegree = clampDegree(3, g.Rows())
	s.SetUniformKnots()
	// Clamp the ends so the surface starts and ends on the grid border.
	ustart, uend := s.ColKnots[s.ColDegree], s.ColKnots[g.Cols()]
	for i := 0; i < s.ColDegree; i++ {
		s.InsertColKnot(ustart)
		s.InsertColKnot(uend)
	}
	vstart, vend := s.RowKnots[s.RowDegree], s.RowKnots[g.Rows()]
	for i := 0; i < s.RowDegree; i++ {
		s.InsertRowKnot(vstart)
		s.InsertRowKnot(vend)
	}
	return s, nil
}
