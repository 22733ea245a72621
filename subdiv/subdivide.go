package subdiv

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects the refinement rule for triangles.
type Mode uint8

const (
	// QuadTriangle splits quads Catmull-Clark style and triangles into
	// four triangles, so triangles in the control net stay triangles.
	QuadTriangle Mode = iota
	// CatmullClark splits every face into quads around its centroid.
	CatmullClark
)

func (md Mode) String() string {
	if md == CatmullClark {
		return "catmull-clark"
	}
	return "quad-triangle"
}

// refinement maps every entity of a source mesh to the point replacing it
// in the refined mesh.
type refinement struct {
	vp []PointID // by source PointID
	ep []PointID // by source EdgeID
	fp []PointID // by source FaceID, NoPoint when the face has no face point
}

// subdivide refines src once. Refined faces remember the control face
// they descend from.
func subdivide(src *Mesh, mode Mode) (*Mesh, refinement) {
	dst := NewMesh(Refined)
	ref := refinement{
		vp: fill(make([]PointID, len(src.points)), NoPoint),
		ep: fill(make([]PointID, len(src.edges)), NoPoint),
		fp: fill(make([]PointID, len(src.faces)), NoPoint),
	}
	centers := make([]r3.Vec, len(src.faces))
	for _, f := range src.FaceIDs() {
		centers[f] = src.FaceCenter(f)
	}
	for _, p := range src.PointIDs() {
		if len(src.points[p].faces) == 0 {
			continue
		}
		id := dst.AddPoint(vertexPoint(src, p, centers, mode))
		dst.points[id].Type = src.points[p].Type
		ref.vp[p] = id
	}
	for _, e := range src.EdgeIDs() {
		edge := &src.edges[e]
		if len(edge.faces) == 0 {
			continue
		}
		id := dst.AddPoint(edgePoint(src, e, centers))
		if edge.crease {
			dst.points[id].Type = Crease
		}
		ref.ep[e] = id
	}
	for _, f := range src.FaceIDs() {
		if len(src.faces[f].points) > 3 || mode == CatmullClark {
			ref.fp[f] = dst.AddPoint(centers[f])
		}
	}

	for _, f := range src.FaceIDs() {
		face := &src.faces[f]
		root := face.Parent
		if src.Tier == Control {
			root = f
		}
		n := len(face.points)
		ring := func(i int) (p PointID, prevEdge, curEdge EdgeID) {
			p = face.points[i]
			prevEdge, _ = src.EdgeBetween(p, face.points[(i+n-1)%n])
			curEdge, _ = src.EdgeBetween(p, face.points[(i+1)%n])
			if prevEdge == NoEdge || curEdge == NoEdge {
				panic("bug: face ring without edge")
			}
			return p, prevEdge, curEdge
		}
		if ref.fp[f] != NoPoint {
			for i := 0; i < n; i++ {
				p, prevEdge, curEdge := ring(i)
				child := dst.AddFace(ref.vp[p], ref.ep[curEdge], ref.fp[f], ref.ep[prevEdge])
				dst.faces[child].Parent = root
				inheritEdge(dst, ref.ep[prevEdge], ref.vp[p], src, prevEdge)
				inheritEdge(dst, ref.vp[p], ref.ep[curEdge], src, curEdge)
			}
			continue
		}
		// Triangle: three corner triangles and the centre triangle.
		var centre [3]PointID
		for i := 0; i < 3; i++ {
			p, prevEdge, curEdge := ring(i)
			child := dst.AddFace(ref.ep[prevEdge], ref.vp[p], ref.ep[curEdge])
			dst.faces[child].Parent = root
			inheritEdge(dst, ref.ep[prevEdge], ref.vp[p], src, prevEdge)
			inheritEdge(dst, ref.vp[p], ref.ep[curEdge], src, curEdge)
			centre[i] = ref.ep[prevEdge]
		}
		child := dst.AddFace(centre[:]...)
		dst.faces[child].Parent = root
	}
	classify(dst)
	return dst, ref
}

// inheritEdge copies crease, control and curve state of a source edge to the
// refined edge a-b lying on it.
func inheritEdge(dst *Mesh, a, b PointID, src *Mesh, from EdgeID) {
	e, ok := dst.EdgeBetween(a, b)
	if !ok {
		panic("bug: refined edge missing")
	}
	edge := &dst.edges[e]
	sedge := &src.edges[from]
	edge.crease = sedge.crease
	edge.ControlEdge = sedge.ControlEdge || src.Tier == Control
	edge.Curve = sedge.Curve
}

// classify sets vertex types of a freshly refined mesh from crease counts.
// Corners stay corners.
func classify(m *Mesh) {
	for i := range m.points {
		pt := &m.points[i]
		if pt.dead || pt.Type == Corner {
			continue
		}
		pt.Type = typeFromCreases(m.creaseCount(PointID(i)))
	}
}

// vertexPoint returns the new location of an existing point.
func vertexPoint(m *Mesh, id PointID, centers []r3.Vec, mode Mode) r3.Vec {
	pt := &m.points[id]
	switch pt.Type {
	case Corner:
		return pt.Coord
	case Crease:
		var nb [2]r3.Vec
		n := 0
		for _, e := range pt.edges {
			edge := &m.edges[e]
			if !edge.crease {
				continue
			}
			if n < 2 {
				nb[n] = m.points[edge.Other(id)].Coord
			}
			n++
		}
		if n != 2 {
			return pt.Coord
		}
		return r3.Add(r3.Scale(0.75, pt.Coord), r3.Scale(0.125, r3.Add(nb[0], nb[1])))
	}
	n := len(pt.edges)
	if n < 3 || len(pt.faces) == 0 {
		return pt.Coord
	}
	if mode == QuadTriangle {
		tris := 0
		for _, f := range pt.faces {
			if len(m.faces[f].points) == 3 {
				tris++
			}
		}
		switch {
		case tris == len(pt.faces):
			return loopVertex(m, id)
		case tris > 0:
			return quadTriangleVertex(m, id, centers)
		}
	}
	var q, r r3.Vec
	for _, f := range pt.faces {
		q = r3.Add(q, centers[f])
	}
	q = r3.Scale(1/float64(len(pt.faces)), q)
	for _, e := range pt.edges {
		edge := &m.edges[e]
		r = r3.Add(r, r3.Scale(0.5, r3.Add(m.points[edge.P[0]].Coord, m.points[edge.P[1]].Coord)))
	}
	r = r3.Scale(1/float64(n), r)
	v := r3.Add(q, r3.Scale(2, r))
	v = r3.Add(v, r3.Scale(float64(n-3), pt.Coord))
	return r3.Scale(1/float64(n), v)
}

// loopVertex applies Loop's rule to a point surrounded by triangles:
// (1-nβ)p + βΣq over the n neighbours q.
func loopVertex(m *Mesh, id PointID) r3.Vec {
	pt := &m.points[id]
	n := float64(len(pt.edges))
	c := 3.0/8 + math.Cos(2*math.Pi/n)/4
	beta := (5.0/8 - c*c) / n
	var sum r3.Vec
	for _, e := range pt.edges {
		sum = r3.Add(sum, m.points[m.edges[e].Other(id)].Coord)
	}
	return r3.Add(r3.Scale(1-n*beta, pt.Coord), r3.Scale(beta, sum))
}

// quadTriangleVertex moves a point shared by quads and triangles to the
// weighted mean of the centroids of its corner faces after a linear split.
// A quad's corner face is p, the two edge midpoints and the face point; a
// triangle's is p and the two edge midpoints. Triangle centroids weigh twice
// as much as quad centroids.
func quadTriangleVertex(m *Mesh, id PointID, centers []r3.Vec) r3.Vec {
	pt := &m.points[id]
	var sum r3.Vec
	var weight float64
	for _, f := range pt.faces {
		pts := m.faces[f].points
		n := len(pts)
		i := 0
		for pts[i] != id {
			i++
		}
		prev, next := m.points[pts[(i+n-1)%n]].Coord, m.points[pts[(i+1)%n]].Coord
		mids := r3.Add(r3.Scale(0.5, r3.Add(pt.Coord, prev)), r3.Scale(0.5, r3.Add(pt.Coord, next)))
		if n == 3 {
			c := r3.Scale(1.0/3, r3.Add(pt.Coord, mids))
			sum = r3.Add(sum, r3.Scale(2, c))
			weight += 2
			continue
		}
		c := r3.Scale(0.25, r3.Add(r3.Add(pt.Coord, mids), centers[f]))
		sum = r3.Add(sum, c)
		weight++
	}
	return r3.Scale(1/weight, sum)
}

// edgePoint returns the point splitting an edge.
func edgePoint(m *Mesh, id EdgeID, centers []r3.Vec) r3.Vec {
	edge := &m.edges[id]
	a, b := m.points[edge.P[0]].Coord, m.points[edge.P[1]].Coord
	if edge.crease || len(edge.faces) != 2 {
		return r3.Scale(0.5, r3.Add(a, b))
	}
	sum := r3.Add(r3.Add(a, b), r3.Add(centers[edge.faces[0]], centers[edge.faces[1]]))
	return r3.Scale(0.25, sum)
}

// copyRefined returns a refined copy of a control mesh, used at level zero.
func copyRefined(src *Mesh) (*Mesh, refinement) {
	dst := NewMesh(Refined)
	ref := refinement{
		vp: fill(make([]PointID, len(src.points)), NoPoint),
		ep: fill(make([]PointID, len(src.edges)), NoPoint),
		fp: fill(make([]PointID, len(src.faces)), NoPoint),
	}
	for _, p := range src.PointIDs() {
		if len(src.points[p].faces) == 0 {
			continue
		}
		ref.vp[p] = dst.AddPoint(src.points[p].Coord)
		dst.points[ref.vp[p]].Type = src.points[p].Type
	}
	pts := make([]PointID, 0, 4)
	for _, f := range src.FaceIDs() {
		pts = pts[:0]
		for _, p := range src.faces[f].points {
			pts = append(pts, ref.vp[p])
		}
		child := dst.AddFace(pts...)
		dst.faces[child].Parent = f
	}
	for _, e := range src.EdgeIDs() {
		edge := &src.edges[e]
		if len(edge.faces) == 0 {
			continue
		}
		inheritEdge(dst, ref.vp[edge.P[0]], ref.vp[edge.P[1]], src, e)
	}
	return dst, ref
}

func fill[T any](s []T, v T) []T {
	for i := range s {
		s[i] = v
	}
	return s
}
