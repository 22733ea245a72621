package subdiv

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/soypat/shipcad/internal/d3"
	"github.com/soypat/shipcad/nurbs"
	"gonum.org/v1/gonum/spatial/r3"
)

// ImportGrid adds a control face for every cell of a rows × cols grid of
// coordinates. Coincident corners collapse the cell to a triangle and cells
// with fewer than 3 distinct corners are skipped.
func (s *Surface) ImportGrid(points [][]r3.Vec, layer *Layer) error {
	if len(points) < 2 || len(points[0]) < 2 {
		return ErrBadGrid
	}
	for i, row := range points {
		if len(row) != len(points[0]) {
			return fmt.Errorf("row %d has %d points, want %d: %w", i, len(row), len(points[0]), ErrBadGrid)
		}
	}
	for i := 0; i < len(points)-1; i++ {
		for j := 0; j < len(points[i])-1; j++ {
			cell := []r3.Vec{points[i][j], points[i][j+1], points[i+1][j+1], points[i+1][j]}
			var ring []r3.Vec
			for _, c := range cell {
				if !lo.ContainsBy(ring, func(v r3.Vec) bool { return d3.EqualWithin(v, c, 1e-9) }) {
					ring = append(ring, c)
				}
			}
			if len(ring) < 3 {
				continue
			}
			if _, err := s.AddControlFaceAt(ring, layer); err != nil {
				return fmt.Errorf("cell (%d,%d): %w", i, j, err)
			}
		}
	}
	return nil
}

// Patch is a rectangular block of control quads.
type Patch struct {
	Layer  *Layer
	Points *nurbs.Grid[PointID]
	Faces  []FaceID
}

// ConvertToGrid arranges quad control faces into the point grid they form.
// Every face must be a quad and together they must tile a rectangle.
func (s *Surface) ConvertToGrid(faces []FaceID) (*nurbs.Grid[PointID], error) {
	if len(faces) == 0 {
		return nil, ErrNotGrid
	}
	avail := make(map[FaceID]bool, len(faces))
	for _, f := range faces {
		face, ok := s.control.LookupFace(f)
		if !ok {
			return nil, ErrNoFace
		}
		if len(face.points) != 4 {
			return nil, fmt.Errorf("face %d: %w", f, ErrNotQuad)
		}
		avail[f] = true
	}
	g := newPatchGrower(s.control, faces[0], avail, nil)
	g.grow()
	if len(avail) > 0 {
		return nil, ErrNotGrid
	}
	return nurbs.GridFrom(g.pts)
}

// AssembleFacesToPatches splits the control faces of the given layers, or of
// every layer when none is given, into rectangular patches of quads bounded
// by crease edges. Faces that are not quads are left out and reported with a
// wrapped ErrNotQuad alongside the patches found.
func (s *Surface) AssembleFacesToPatches(layers ...*Layer) ([]Patch, error) {
	if len(layers) == 0 {
		layers = s.layers
	}
	smooth := func(e EdgeID) bool { return !s.control.edges[e].crease }
	var patches []Patch
	skipped := 0
	for _, l := range layers {
		for _, set := range l.ConnectedFaceSets() {
			quads := lo.Filter(set, func(f FaceID, _ int) bool { return len(s.control.faces[f].points) == 4 })
			skipped += len(set) - len(quads)
			avail := lo.SliceToMap(quads, func(f FaceID) (FaceID, bool) { return f, true })
			for _, seed := range quads {
				if !avail[seed] {
					continue
				}
				g := newPatchGrower(s.control, seed, avail, smooth)
				g.grow()
				grid, err := nurbs.GridFrom(g.pts)
				if err != nil {
					panic("bug: ragged patch grid")
				}
				patches = append(patches, Patch{Layer: l, Points: grid, Faces: lo.Flatten(g.faces)})
			}
		}
	}
	if skipped > 0 {
		return patches, fmt.Errorf("%d faces left out: %w", skipped, ErrNotQuad)
	}
	return patches, nil
}

// PatchCoords returns the coordinates of a grid of control points.
func (s *Surface) PatchCoords(g *nurbs.Grid[PointID]) *nurbs.Grid[r3.Vec] {
	out := nurbs.NewGrid[r3.Vec](g.Rows(), g.Cols())
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			out.Set(r, c, s.control.Coord(g.At(r, c)))
		}
	}
	return out
}

// PatchSurface returns the cubic B-spline surface approximating a patch.
func (s *Surface) PatchSurface(p Patch) (*nurbs.Surface, error) {
	return nurbs.FromSubdivisionGrid(s.PatchCoords(p.Points))
}

// patchGrower grows a rectangle of quads from a seed face one row or
// column at a time, taking faces from avail.
type patchGrower struct {
	m     *Mesh
	avail map[FaceID]bool
	cross func(EdgeID) bool
	pts   [][]PointID
	faces [][]FaceID
}

func newPatchGrower(m *Mesh, seed FaceID, avail map[FaceID]bool, cross func(EdgeID) bool) *patchGrower {
	r := m.faces[seed].points
	delete(avail, seed)
	return &patchGrower{
		m:     m,
		avail: avail,
		cross: cross,
		pts:   [][]PointID{{r[0], r[1]}, {r[3], r[2]}},
		faces: [][]FaceID{{seed}},
	}
}

// grow extends the patch in all four directions until no full row or column can be added.
func (g *patchGrower) grow() {
	for grown := true; grown; {
		grown = g.growBottom()
		g.flipRows()
		grown = g.growBottom() || grown
		g.flipRows()
		g.transpose()
		grown = g.growBottom() || grown
		g.flipRows()
		grown = g.growBottom() || grown
		g.flipRows()
		g.transpose()
	}
}

// growBottom appends a row of faces below the last row of points.
func (g *patchGrower) growBottom() bool {
	line := g.pts[len(g.pts)-1]
	above := g.faces[len(g.faces)-1]
	row := make([]PointID, len(line))
	frow := make([]FaceID, len(above))
	for j := 0; j < len(line)-1; j++ {
		a, b := line[j], line[j+1]
		f, ok := g.faceAcross(a, b, above[j])
		if !ok || (j > 0 && f == frow[j-1]) {
			return false
		}
		face := &g.m.faces[f]
		p, q := otherNeighbor(face, a, b), otherNeighbor(face, b, a)
		if j > 0 && row[j] != p {
			return false
		}
		row[j], row[j+1] = p, q
		frow[j] = f
	}
	for _, f := range frow {
		delete(g.avail, f)
	}
	g.pts = append(g.pts, row)
	g.faces = append(g.faces, frow)
	return true
}

// faceAcross returns the available quad sharing edge a-b with from.
func (g *patchGrower) faceAcross(a, b PointID, from FaceID) (FaceID, bool) {
	e, ok := g.m.EdgeBetween(a, b)
	if !ok || (g.cross != nil && !g.cross(e)) {
		return NoFace, false
	}
	for _, f := range g.m.edges[e].faces {
		if f != from && g.avail[f] && len(g.m.faces[f].points) == 4 {
			return f, true
		}
	}
	return NoFace, false
}

// otherNeighbor returns the ring neighbour of p in a quad that is not q.
func otherNeighbor(f *Face, p, q PointID) PointID {
	n := len(f.points)
	i := f.indexOf(p)
	next, prev := f.points[(i+1)%n], f.points[(i+n-1)%n]
	if next == q {
		return prev
	}
	return next
}

func (g *patchGrower) flipRows() {
	lo.Reverse(g.pts)
	lo.Reverse(g.faces)
}

func (g *patchGrower) transpose() {
	g.pts = transposeIDs(g.pts)
	g.faces = transposeIDs(g.faces)
}

func transposeIDs[T any](s [][]T) [][]T {
	out := make([][]T, len(s[0]))
	for c := range out {
		out[c] = make([]T, len(s))
		for r := range s {
			out[c][r] = s[r][c]
		}
	}
	return out
}
