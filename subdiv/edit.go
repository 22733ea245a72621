package subdiv

import (
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// planeTol is the band around a plane within which points count as lying on it.
const planeTol = 1e-5

// SplitEdge inserts a new point at c into an edge. The edge keeps its ID
// and now ends at the new point; a second edge continues to the old end.
// Faces using the edge get the point inserted into their ring.
func (m *Mesh) SplitEdge(id EdgeID, c r3.Vec) (PointID, EdgeID) {
	a, b := m.Edge(id).P[0], m.Edge(id).P[1]
	p := m.AddPoint(c)
	old := &m.edges[id]
	ne := Edge{
		P:           [2]PointID{p, b},
		ControlEdge: old.ControlEdge,
		Curve:       old.Curve,
		crease:      old.crease,
		faces:       append([]FaceID(nil), old.faces...),
	}
	if old.Ctrl != nil {
		ne.Ctrl = &EdgeCtrl{}
	}
	m.edges = append(m.edges, ne)
	nid := EdgeID(len(m.edges) - 1)
	m.nE++
	m.edges[id].P[1] = p
	for i, e := range m.points[b].edges {
		if e == id {
			m.points[b].edges[i] = nid
		}
	}
	m.points[p].edges = []EdgeID{id, nid}
	for _, f := range m.edges[id].faces {
		face := &m.faces[f]
		n := len(face.points)
		for i := 0; i < n; i++ {
			u, v := face.points[i], face.points[(i+1)%n]
			if (u == a && v == b) || (u == b && v == a) {
				face.points = append(face.points[:i+1], append([]PointID{p}, face.points[i+1:]...)...)
				break
			}
		}
		m.points[p].faces = append(m.points[p].faces, f)
	}
	if m.edges[id].crease {
		m.points[p].Type = Crease
	}
	return p, nid
}

// SplitFace cuts a face in two along a new edge between two of its
// points that are not already neighbours. The face keeps the ring from a
// to b, the new face gets the ring from b to a.
func (m *Mesh) SplitFace(id FaceID, a, b PointID) (FaceID, EdgeID, bool) {
	face := m.Face(id)
	ia, ib := face.indexOf(a), face.indexOf(b)
	n := len(face.points)
	if ia < 0 || ib < 0 || ia == ib || (ia+1)%n == ib || (ib+1)%n == ia {
		return NoFace, NoEdge, false
	}
	var ring1, ring2 []PointID
	for i := ia; ; i = (i + 1) % n {
		ring1 = append(ring1, face.points[i])
		if i == ib {
			break
		}
	}
	for i := ib; ; i = (i + 1) % n {
		ring2 = append(ring2, face.points[i])
		if i == ia {
			break
		}
	}
	g := Face{Parent: face.Parent, points: ring2}
	if face.Ctrl != nil {
		g.Ctrl = &FaceCtrl{Layer: face.Ctrl.Layer, box: d3.EmptyBox()}
	}
	m.faces[id].points = ring1
	m.faces = append(m.faces, g)
	gid := FaceID(len(m.faces) - 1)
	m.nF++
	for _, p := range ring2[1 : len(ring2)-1] {
		for i, f := range m.points[p].faces {
			if f == id {
				m.points[p].faces[i] = gid
			}
		}
	}
	m.points[a].faces = append(m.points[a].faces, gid)
	m.points[b].faces = append(m.points[b].faces, gid)
	for i := 1; i < len(ring2); i++ {
		e, ok := m.EdgeBetween(ring2[i-1], ring2[i])
		if !ok {
			panic("bug: face ring without edge")
		}
		for j, f := range m.edges[e].faces {
			if f == id {
				m.edges[e].faces[j] = gid
			}
		}
	}
	e := m.AddEdge(a, b)
	m.edges[e].faces = append(m.edges[e].faces, id, gid)
	return gid, e, true
}

// InsertControlPoint splits a control edge at parameter t in [0,1] from its start point.
func (s *Surface) InsertControlPoint(e EdgeID, t float64) (PointID, error) {
	edge, ok := s.control.LookupEdge(e)
	if !ok {
		return NoPoint, ErrNoEdge
	}
	t = shipcad.Clamp(t, 0, 1)
	a, b := edge.P[0], edge.P[1]
	c := d3.Lerp(s.control.points[a].Coord, s.control.points[b].Coord, t)
	curve := edge.Curve
	p, _ := s.control.SplitEdge(e, c)
	s.insertCurvePoint(curve, a, b, p)
	s.SetBuild(false)
	return p, nil
}

// InsertEdge joins two control points of a common face with a new smooth edge,
// splitting the face.
func (s *Surface) InsertEdge(a, b PointID) (EdgeID, error) {
	pa, ok := s.control.LookupPoint(a)
	if !ok {
		return NoEdge, ErrNoPoint
	}
	if _, ok := s.control.LookupPoint(b); !ok {
		return NoEdge, ErrNoPoint
	}
	if e, ok := s.control.EdgeBetween(a, b); ok {
		return e, nil
	}
	for _, f := range pa.faces {
		g, e, ok := s.control.SplitFace(f, a, b)
		if !ok {
			continue
		}
		if l := s.control.faces[g].Ctrl.Layer; l != nil {
			l.addFace(g)
		}
		s.SetBuild(false)
		return e, nil
	}
	return NoEdge, ErrNoFace
}

// InsertPlane inserts control points where control edges cross the plane
// and splits the faces along them. With addCurves set, control curves are
// added along the new edges. It returns the number of points inserted.
func (s *Surface) InsertPlane(pl shipcad.Plane, addCurves bool) int {
	ctrl := s.control
	// Collect all edits first: splitting changes the edge and face lists.
	type cut struct {
		e EdgeID
		t float64
	}
	var cuts []cut
	onPlane := make(map[PointID]bool)
	side := make(map[PointID]float64, ctrl.NumPoints())
	for _, p := range ctrl.PointIDs() {
		sd := pl.Distance(ctrl.points[p].Coord)
		side[p] = sd
		if math.Abs(sd) <= planeTol {
			onPlane[p] = true
		}
	}
	for _, e := range ctrl.EdgeIDs() {
		edge := &ctrl.edges[e]
		s1, s2 := side[edge.P[0]], side[edge.P[1]]
		if (s1 < -planeTol && s2 > planeTol) || (s1 > planeTol && s2 < -planeTol) {
			cuts = append(cuts, cut{e: e, t: -s1 / (s2 - s1)})
		}
	}
	for _, c := range cuts {
		p, _ := s.InsertControlPoint(c.e, c.t)
		onPlane[p] = true
	}

	type split struct {
		f    FaceID
		a, b PointID
	}
	var splits []split
	for _, f := range ctrl.FaceIDs() {
		var found []PointID
		for _, p := range ctrl.faces[f].points {
			if onPlane[p] {
				found = append(found, p)
			}
		}
		if len(found) != 2 {
			continue
		}
		if _, ok := ctrl.EdgeBetween(found[0], found[1]); ok {
			continue
		}
		splits = append(splits, split{f: f, a: found[0], b: found[1]})
	}
	var newEdges []EdgeID
	for _, sp := range splits {
		g, e, ok := ctrl.SplitFace(sp.f, sp.a, sp.b)
		if !ok {
			continue
		}
		if l := ctrl.faces[g].Ctrl.Layer; l != nil {
			l.addFace(g)
		}
		newEdges = append(newEdges, e)
	}
	if addCurves {
		for _, chain := range s.IsolateEdges(newEdges) {
			s.AddControlCurve(chain)
		}
	}
	if len(cuts) > 0 || len(newEdges) > 0 {
		s.SetBuild(false)
	}
	s.log().Debug("plane inserted", "points", len(cuts), "edges", len(newEdges))
	return len(cuts)
}

// IsolateEdges chains control edges into ordered point lists. A closed chain
// repeats its first point at the end.
func (s *Surface) IsolateEdges(edges []EdgeID) [][]PointID {
	return s.control.ChainEdges(edges)
}

// ChainEdges joins edges of m that share end points into ordered point
// lists. A closed chain repeats its first point at the end.
func (m *Mesh) ChainEdges(edges []EdgeID) [][]PointID {
	pool := append([]EdgeID(nil), edges...)
	var chains [][]PointID
	for len(pool) > 0 {
		first := m.Edge(pool[0])
		pool = pool[1:]
		chain := []PointID{first.P[0], first.P[1]}
		for extended := true; extended; {
			extended = false
			if chain[0] == chain[len(chain)-1] {
				break
			}
			for i, e := range pool {
				edge := &m.edges[e]
				head, tail := chain[0], chain[len(chain)-1]
				switch {
				case edge.P[0] == tail:
					chain = append(chain, edge.P[1])
				case edge.P[1] == tail:
					chain = append(chain, edge.P[0])
				case edge.P[1] == head:
					chain = append([]PointID{edge.P[0]}, chain...)
				case edge.P[0] == head:
					chain = append([]PointID{edge.P[1]}, chain...)
				default:
					continue
				}
				pool = append(pool[:i], pool[i+1:]...)
				extended = true
				break
			}
		}
		chains = append(chains, chain)
	}
	return chains
}

// ExtractAllEdgeLoops returns the boundary and crease polylines of the control net.
func (s *Surface) ExtractAllEdgeLoops() [][]PointID {
	var edges []EdgeID
	for _, e := range s.control.EdgeIDs() {
		edge := &s.control.edges[e]
		if len(edge.faces) == 1 || edge.crease {
			edges = append(edges, e)
		}
	}
	return s.IsolateEdges(edges)
}
