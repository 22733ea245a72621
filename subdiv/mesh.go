package subdiv

import (
	"fmt"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointID, EdgeID and FaceID index entities inside a Mesh.
// IDs are stable: deleting an entity never renumbers the others.
type (
	PointID int
	EdgeID  int
	FaceID  int
	CurveID int
)

// Sentinel IDs.
const (
	NoPoint PointID = -1
	NoEdge  EdgeID  = -1
	NoFace  FaceID  = -1
	NoCurve CurveID = -1
)

// Tier tells control net entities apart from subdivision results.
type Tier uint8

const (
	Refined Tier = iota
	Control
)

// VertexType classifies a point by the crease edges meeting at it.
type VertexType uint8

const (
	Regular VertexType = iota
	Crease
	Dart
	Corner
)

func (vt VertexType) String() string {
	switch vt {
	case Regular:
		return "regular"
	case Crease:
		return "crease"
	case Dart:
		return "dart"
	case Corner:
		return "corner"
	}
	return fmt.Sprintf("VertexType(%d)", uint8(vt))
}

// typeFromCreases maps a crease edge count to a vertex type.
func typeFromCreases(n int) VertexType {
	switch {
	case n == 0:
		return Regular
	case n == 1:
		return Dart
	case n == 2:
		return Crease
	}
	return Corner
}

// Point is a mesh vertex.
type Point struct {
	Coord r3.Vec
	Type  VertexType
	// Ctrl is only set on control points.
	Ctrl  *PointCtrl
	edges []EdgeID
	faces []FaceID
	dead  bool
}

// PointCtrl holds the state only control points carry.
type PointCtrl struct {
	Selected bool
	Locked   bool
}

// Edges returns the edges incident to the point. The slice must not be modified.
func (p *Point) Edges() []EdgeID { return p.edges }

// Faces returns the faces incident to the point. The slice must not be modified.
func (p *Point) Faces() []FaceID { return p.faces }

// Edge joins two points. Its direction only matters when tracing polylines.
type Edge struct {
	P [2]PointID
	// ControlEdge is set on refined edges lying on an edge of the control net.
	ControlEdge bool
	Curve       CurveID
	Ctrl        *EdgeCtrl
	crease      bool
	faces       []FaceID
	dead        bool
}

// EdgeCtrl holds the state only control edges carry.
type EdgeCtrl struct {
	Selected bool
}

// Crease reports whether the edge stays sharp during subdivision.
func (e *Edge) Crease() bool { return e.crease }

// Faces returns the faces incident to the edge. The slice must not be modified.
func (e *Edge) Faces() []FaceID { return e.faces }

// Other returns the endpoint of e that is not p.
func (e *Edge) Other(p PointID) PointID {
	if e.P[0] == p {
		return e.P[1]
	}
	return e.P[0]
}

func (e *Edge) hasFace(f FaceID) bool {
	for _, ef := range e.faces {
		if ef == f {
			return true
		}
	}
	return false
}

// Face is an ordered ring of three or more points.
type Face struct {
	// Parent is the control face a refined face descends from.
	Parent FaceID
	Ctrl   *FaceCtrl
	points []PointID
	dead   bool
}

// FaceCtrl holds the state only control faces carry.
type FaceCtrl struct {
	Selected bool
	Layer    *Layer
	// Children are the refined faces produced by the last rebuild.
	Children []FaceID
	box      d3.Box
}

// Points returns the face ring. The slice must not be modified.
func (f *Face) Points() []PointID { return f.points }

func (f *Face) indexOf(p PointID) int {
	for i, fp := range f.points {
		if fp == p {
			return i
		}
	}
	return -1
}

// Mesh is an arena of points, edges and faces with symmetric adjacency.
type Mesh struct {
	Tier   Tier
	points []Point
	edges  []Edge
	faces  []Face
	nP     int
	nE     int
	nF     int
}

// NewMesh returns an empty mesh of the given tier.
func NewMesh(t Tier) *Mesh { return &Mesh{Tier: t} }

func (m *Mesh) NumPoints() int { return m.nP }
func (m *Mesh) NumEdges() int  { return m.nE }
func (m *Mesh) NumFaces() int  { return m.nF }

// Point returns the point with the given ID. It panics on a deleted or unknown ID.
func (m *Mesh) Point(id PointID) *Point {
	if id < 0 || int(id) >= len(m.points) || m.points[id].dead {
		panic(fmt.Sprintf("bug: point %d not in mesh", id))
	}
	return &m.points[id]
}

// Edge returns the edge with the given ID. It panics on a deleted or unknown ID.
func (m *Mesh) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(m.edges) || m.edges[id].dead {
		panic(fmt.Sprintf("bug: edge %d not in mesh", id))
	}
	return &m.edges[id]
}

// Face returns the face with the given ID. It panics on a deleted or unknown ID.
func (m *Mesh) Face(id FaceID) *Face {
	if id < 0 || int(id) >= len(m.faces) || m.faces[id].dead {
		panic(fmt.Sprintf("bug: face %d not in mesh", id))
	}
	return &m.faces[id]
}

// LookupPoint returns the point and true if id refers to a live point.
func (m *Mesh) LookupPoint(id PointID) (*Point, bool) {
	if id < 0 || int(id) >= len(m.points) || m.points[id].dead {
		return nil, false
	}
	return &m.points[id], true
}

// LookupEdge returns the edge and true if id refers to a live edge.
func (m *Mesh) LookupEdge(id EdgeID) (*Edge, bool) {
	if id < 0 || int(id) >= len(m.edges) || m.edges[id].dead {
		return nil, false
	}
	return &m.edges[id], true
}

// LookupFace returns the face and true if id refers to a live face.
func (m *Mesh) LookupFace(id FaceID) (*Face, bool) {
	if id < 0 || int(id) >= len(m.faces) || m.faces[id].dead {
		return nil, false
	}
	return &m.faces[id], true
}

// Coord is shorthand for m.Point(id).Coord.
func (m *Mesh) Coord(id PointID) r3.Vec { return m.Point(id).Coord }

// PointIDs returns the IDs of all live points in ascending order.
func (m *Mesh) PointIDs() []PointID {
	ids := make([]PointID, 0, m.nP)
	for i := range m.points {
		if !m.points[i].dead {
			ids = append(ids, PointID(i))
		}
	}
	return ids
}

// EdgeIDs returns the IDs of all live edges in ascending order.
func (m *Mesh) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, m.nE)
	for i := range m.edges {
		if !m.edges[i].dead {
			ids = append(ids, EdgeID(i))
		}
	}
	return ids
}

// FaceIDs returns the IDs of all live faces in ascending order.
func (m *Mesh) FaceIDs() []FaceID {
	ids := make([]FaceID, 0, m.nF)
	for i := range m.faces {
		if !m.faces[i].dead {
			ids = append(ids, FaceID(i))
		}
	}
	return ids
}

// AddPoint appends a new isolated point.
func (m *Mesh) AddPoint(c r3.Vec) PointID {
	p := Point{Coord: c}
	if m.Tier == Control {
		p.Ctrl = &PointCtrl{}
	}
	m.points = append(m.points, p)
	m.nP++
	return PointID(len(m.points) - 1)
}

// EdgeBetween returns the edge joining a and b in either direction.
func (m *Mesh) EdgeBetween(a, b PointID) (EdgeID, bool) {
	pa, ok := m.LookupPoint(a)
	if !ok {
		return NoEdge, false
	}
	for _, e := range pa.edges {
		edge := &m.edges[e]
		if (edge.P[0] == a && edge.P[1] == b) || (edge.P[0] == b && edge.P[1] == a) {
			return e, true
		}
	}
	return NoEdge, false
}

// AddEdge returns the edge from a to b, creating it if needed.
func (m *Mesh) AddEdge(a, b PointID) EdgeID {
	if a == b {
		panic(fmt.Sprintf("bug: degenerate edge at point %d", a))
	}
	if e, ok := m.EdgeBetween(a, b); ok {
		return e
	}
	m.Point(a)
	m.Point(b)
	edge := Edge{P: [2]PointID{a, b}, Curve: NoCurve}
	if m.Tier == Control {
		edge.Ctrl = &EdgeCtrl{}
		edge.ControlEdge = true
	}
	m.edges = append(m.edges, edge)
	id := EdgeID(len(m.edges) - 1)
	m.points[a].edges = append(m.points[a].edges, id)
	m.points[b].edges = append(m.points[b].edges, id)
	m.nE++
	return id
}

// AddFace appends a face over the ring pts and links it to its points and edges.
// Missing ring edges are created with crease unset.
func (m *Mesh) AddFace(pts ...PointID) FaceID {
	if len(pts) < 3 {
		panic(fmt.Sprintf("bug: face with %d points", len(pts)))
	}
	face := Face{Parent: NoFace, points: append([]PointID(nil), pts...)}
	if m.Tier == Control {
		face.Ctrl = &FaceCtrl{box: d3.EmptyBox()}
	}
	m.faces = append(m.faces, face)
	id := FaceID(len(m.faces) - 1)
	m.nF++
	prev := pts[len(pts)-1]
	for _, p := range pts {
		pt := m.Point(p)
		pt.faces = append(pt.faces, id)
		e := m.AddEdge(prev, p)
		if !m.edges[e].hasFace(id) {
			m.edges[e].faces = append(m.edges[e].faces, id)
		}
		prev = p
	}
	return id
}

// DeleteFace unlinks a face from its points and edges. Edges left without
// faces are deleted, edges left with one face become creases and points left
// without edges are deleted.
func (m *Mesh) DeleteFace(id FaceID) {
	f := m.Face(id)
	pts := f.points
	for _, p := range pts {
		m.points[p].faces = removeID(m.points[p].faces, id)
	}
	prev := pts[len(pts)-1]
	for _, p := range pts {
		if e, ok := m.EdgeBetween(prev, p); ok {
			edge := &m.edges[e]
			edge.faces = removeID(edge.faces, id)
			switch len(edge.faces) {
			case 0:
				m.DeleteEdge(e)
			case 1:
				m.SetCrease(e, true)
			}
		}
		prev = p
	}
	f.dead = true
	f.points = nil
	m.nF--
}

// DeleteEdge removes an edge together with every face using it.
// Endpoints left without edges are deleted.
func (m *Mesh) DeleteEdge(id EdgeID) {
	edge := m.Edge(id)
	for len(edge.faces) > 0 {
		// DeleteFace may delete this edge once its last face is gone.
		m.DeleteFace(edge.faces[0])
		if edge.dead {
			return
		}
	}
	edge.dead = true
	m.nE--
	for _, p := range edge.P {
		pt := &m.points[p]
		pt.edges = removeID(pt.edges, id)
		if len(pt.edges) == 0 && !pt.dead {
			pt.dead = true
			pt.faces = nil
			m.nP--
		} else {
			m.updateVertexType(p)
		}
	}
}

// DeletePoint removes a point and every edge and face using it.
func (m *Mesh) DeletePoint(id PointID) {
	pt := m.Point(id)
	for len(pt.edges) > 0 && !pt.dead {
		m.DeleteEdge(pt.edges[0])
	}
	if !pt.dead {
		pt.dead = true
		m.nP--
	}
}

func removeID[T comparable](s []T, v T) []T {
	for i := range s {
		if s[i] == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// creaseCount returns the number of crease edges at p.
func (m *Mesh) creaseCount(p PointID) (n int) {
	for _, e := range m.points[p].edges {
		if m.edges[e].crease {
			n++
		}
	}
	return n
}

// updateVertexType reclassifies p after a crease change. Corners only
// revert to creases on interior points with exactly two crease edges.
func (m *Mesh) updateVertexType(p PointID) {
	pt := &m.points[p]
	n := m.creaseCount(p)
	if pt.Type == Corner {
		if len(pt.faces) > 1 && n == 2 {
			pt.Type = Crease
		}
		return
	}
	pt.Type = typeFromCreases(n)
}

// SetCrease sets the crease flag of an edge and reclassifies its endpoints.
// Edges with a single face are always creases.
func (m *Mesh) SetCrease(id EdgeID, val bool) {
	edge := m.Edge(id)
	if len(edge.faces) == 1 {
		val = true
	}
	if val == edge.crease {
		return
	}
	edge.crease = val
	m.updateVertexType(edge.P[0])
	m.updateVertexType(edge.P[1])
}

// SwapEdge reverses the direction of an edge.
func (m *Mesh) SwapEdge(id EdgeID) {
	edge := m.Edge(id)
	edge.P[0], edge.P[1] = edge.P[1], edge.P[0]
}

// EdgeLength returns the distance between the endpoints of an edge.
func (m *Mesh) EdgeLength(id EdgeID) float64 {
	edge := m.Edge(id)
	return r3.Norm(r3.Sub(m.points[edge.P[1]].Coord, m.points[edge.P[0]].Coord))
}

// IsBoundaryEdge reports whether the edge has a single face and is not
// on the centreplane.
func (m *Mesh) IsBoundaryEdge(id EdgeID) bool {
	edge := m.Edge(id)
	if len(edge.faces) != 1 {
		return false
	}
	return offCentre(m.points[edge.P[0]].Coord) || offCentre(m.points[edge.P[1]].Coord)
}

// IsBoundaryVertex reports whether p lies off the centreplane on a boundary edge.
func (m *Mesh) IsBoundaryVertex(p PointID) bool {
	pt := m.Point(p)
	if !offCentre(pt.Coord) {
		return false
	}
	for _, e := range pt.edges {
		if m.IsBoundaryEdge(e) {
			return true
		}
	}
	return false
}

func offCentre(v r3.Vec) bool { return v.Y > 1e-4 || v.Y < -1e-4 }

// PreviousEdge returns the edge continuing e backwards through its start point:
// same crease class and no face in common with e. The found edge is swapped so
// that its end point is e's start point.
func (m *Mesh) PreviousEdge(id EdgeID) (EdgeID, bool) {
	next, ok := m.chainEdge(id, 0)
	if ok && m.edges[next].P[1] != m.edges[id].P[0] {
		m.SwapEdge(next)
	}
	return next, ok
}

// NextEdge returns the edge continuing e forwards through its end point.
// The found edge is swapped so that its start point is e's end point.
func (m *Mesh) NextEdge(id EdgeID) (EdgeID, bool) {
	next, ok := m.chainEdge(id, 1)
	if ok && m.edges[next].P[0] != m.edges[id].P[1] {
		m.SwapEdge(next)
	}
	return next, ok
}

func (m *Mesh) chainEdge(id EdgeID, end int) (EdgeID, bool) {
	edge := m.Edge(id)
	p := edge.P[end]
	pt := &m.points[p]
	if pt.Type == Corner {
		return NoEdge, false
	}
outer:
	for _, e := range pt.edges {
		if e == id {
			continue
		}
		cand := &m.edges[e]
		if cand.crease != edge.crease {
			continue
		}
		for _, f := range edge.faces {
			if cand.hasFace(f) {
				continue outer
			}
		}
		return e, true
	}
	return NoEdge, false
}

// FaceCenter returns the mean of the face ring.
func (m *Mesh) FaceCenter(id FaceID) r3.Vec {
	f := m.Face(id)
	var c r3.Vec
	for _, p := range f.points {
		c = r3.Add(c, m.points[p].Coord)
	}
	return r3.Scale(1/float64(len(f.points)), c)
}

// FaceArea returns the area of the face as a fan of triangles on its first point.
func (m *Mesh) FaceArea(id FaceID) float64 {
	f := m.Face(id)
	p0 := m.points[f.points[0]].Coord
	var area float64
	for i := 2; i < len(f.points); i++ {
		area += shipcad.TriangleArea(p0, m.points[f.points[i-1]].Coord, m.points[f.points[i]].Coord)
	}
	return area
}

// FaceNormal returns the unit normal of a possibly non planar face.
func (m *Mesh) FaceNormal(id FaceID) r3.Vec {
	f := m.Face(id)
	c := m.FaceCenter(id)
	var n r3.Vec
	prev := m.points[f.points[len(f.points)-1]].Coord
	for _, p := range f.points {
		cur := m.points[p].Coord
		n = r3.Add(n, shipcad.UnifiedNormal(c, prev, cur))
		prev = cur
	}
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	return n
}

// FaceExtents returns the bounding box of a face.
func (m *Mesh) FaceExtents(id FaceID) d3.Box {
	f := m.Face(id)
	box := d3.EmptyBox()
	for _, p := range f.points {
		box = box.Include(m.points[p].Coord)
	}
	return box
}

// FlipNormal reverses the ring of a face.
func (m *Mesh) FlipNormal(id FaceID) {
	pts := m.Face(id).points
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// PointNormal averages the normals of the faces around p.
func (m *Mesh) PointNormal(id PointID) r3.Vec {
	pt := m.Point(id)
	var n r3.Vec
	for _, fid := range pt.faces {
		f := &m.faces[fid]
		if len(f.points) > 4 {
			n = r3.Add(n, m.FaceNormal(fid))
			continue
		}
		i := f.indexOf(id)
		k := len(f.points)
		prev := m.points[f.points[(i+k-1)%k]].Coord
		next := m.points[f.points[(i+1)%k]].Coord
		n = r3.Add(n, shipcad.UnifiedNormal(prev, pt.Coord, next))
	}
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	return n
}

// Extents returns the bounding box of all live points.
func (m *Mesh) Extents() d3.Box {
	box := d3.EmptyBox()
	for i := range m.points {
		if !m.points[i].dead {
			box = box.Include(m.points[i].Coord)
		}
	}
	return box
}
