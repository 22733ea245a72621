package develop

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d2"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	maxSeeds = 25
	// A development scoring below converged ends the seed search.
	converged = 1e-7

	centrelineTol = 1e-4
	flatNormalTol = 1e-2
	straightTol   = 1e-3
)

// Unroll develops faces, refined faces of m, into the plane. The seed
// giving the smallest error is kept; Unroll never fails and an undevelopable
// plate keeps its best attempt. When symmetric is set and the plate is a
// flat panel on the centreplane it is mirrored instead of being developed
// twice.
func (p *Patch) Unroll(m *subdiv.Mesh, faces []subdiv.FaceID, symmetric bool) {
	p.reset(m, faces)
	if len(faces) == 0 {
		return
	}
	seeds := p.seedFaces()
	best, bestScore, last := -1, math.Inf(1), -1
	for i := 0; i < len(seeds); i++ {
		score, bad, found := p.processFaces(seeds[i])
		p.iterations++
		last = i
		if found && len(seeds) < maxSeeds && !lo.Contains(seeds, bad) {
			seeds = append(seeds, bad)
		}
		if score < bestScore {
			best, bestScore = i, score
		}
		if !found && score < converged {
			break
		}
	}
	if best != last {
		p.processFaces(seeds[best])
	}

	for _, e := range p.edges {
		n := 0
		for _, f := range m.Edge(e).Faces() {
			if _, ok := p.faceIndex[f]; ok {
				n++
			}
		}
		if n == 1 {
			p.boundary = append(p.boundary, e)
		}
	}
	p.box = d2.Box(r2.Box{Min: d2.Set(p.pts2D).Min(), Max: d2.Set(p.pts2D).Max()})
	if symmetric {
		p.detectMirror()
	}
	p.optimiseRotation()

	for _, q := range p.points {
		if p.faceCount(q) == 1 || m.Point(q).Type == subdiv.Corner {
			p.corners = append(p.corners, q)
		}
	}
	p.log().Debug("patch unrolled", "name", p.Name, "faces", len(faces),
		"iterations", p.iterations, "max error", p.MaxError(), "area error", p.totalAreaError,
		"mirror", p.mirror)
}

func (p *Patch) reset(m *subdiv.Mesh, faces []subdiv.FaceID) {
	*p = Patch{
		Name:        p.Name,
		Color:       p.Color,
		Translation: p.Translation,
		Logger:      p.Logger,
		surface:     p.surface,
		layer:       p.layer,
		set:         p.set,
		symmetric:   p.symmetric,
		mesh:        m,
		faces:       append([]subdiv.FaceID(nil), faces...),
		faceIndex:   make(map[subdiv.FaceID]int, len(faces)),
		index:       make(map[subdiv.PointID]int),
		box:         d2.EmptyBox(),
	}
	seen := make(map[subdiv.EdgeID]bool)
	for i, f := range faces {
		p.faceIndex[f] = i
		pts := m.Face(f).Points()
		prev := pts[len(pts)-1]
		for _, q := range pts {
			if _, ok := p.index[q]; !ok {
				p.index[q] = len(p.points)
				p.points = append(p.points, q)
			}
			if e, ok := m.EdgeBetween(prev, q); ok && !seen[e] {
				seen[e] = true
				p.edges = append(p.edges, e)
			}
			prev = q
		}
	}
	p.pts2D = make([]r2.Vec, len(p.points))
	p.placed = make([]bool, len(p.points))
	p.edgeErrors = make([]float64, len(p.edges))
	p.faceErrors = make([]float64, len(p.faces))
}

// faceCount returns the number of patch faces around q.
func (p *Patch) faceCount(q subdiv.PointID) int {
	n := 0
	for _, f := range p.mesh.Point(q).Faces() {
		if _, ok := p.faceIndex[f]; ok {
			n++
		}
	}
	return n
}

// seedFaces returns the faces owning a point no other patch face touches,
// smallest first. The largest face is the seed when there are none.
func (p *Patch) seedFaces() []subdiv.FaceID {
	var seeds []subdiv.FaceID
	for _, q := range p.points {
		if p.faceCount(q) != 1 {
			continue
		}
		for _, f := range p.mesh.Point(q).Faces() {
			if _, ok := p.faceIndex[f]; ok {
				seeds = append(seeds, f)
			}
		}
	}
	seeds = lo.Uniq(seeds)
	if len(seeds) == 0 {
		largest := lo.MaxBy(p.faces, func(a, b subdiv.FaceID) bool {
			return p.mesh.FaceArea(a) > p.mesh.FaceArea(b)
		})
		return []subdiv.FaceID{largest}
	}
	sort.SliceStable(seeds, func(i, j int) bool {
		return p.mesh.FaceArea(seeds[i]) < p.mesh.FaceArea(seeds[j])
	})
	return seeds
}

// processFaces develops the patch from seed, spreading across shared
// edges. Disconnected parts start from their first face. It returns the
// development score and the first face placed with the wrong winding.
func (p *Patch) processFaces(seed subdiv.FaceID) (score float64, bad subdiv.FaceID, found bool) {
	m := p.mesh
	for i := range p.pts2D {
		p.pts2D[i] = r2.Vec{}
		p.placed[i] = false
	}
	pending := make(map[subdiv.FaceID]bool, len(p.faces))
	for _, f := range p.faces {
		pending[f] = true
	}
	p.done = p.done[:0]
	bad = subdiv.NoFace
	for len(p.done) < len(p.faces) {
		if seed == subdiv.NoFace {
			for _, f := range p.faces {
				if pending[f] {
					seed = f
					break
				}
			}
		}
		start := len(p.done)
		p.done = append(p.done, seed)
		delete(pending, seed)
		first, winding := true, 0.0
		for i := start; i < len(p.done); i++ {
			f := p.done[i]
			if p.unrollFace(f, &first, &winding) && !found {
				bad, found = f, true
			}
			pts := m.Face(f).Points()
			prev := pts[len(pts)-1]
			for _, q := range pts {
				if e, ok := m.EdgeBetween(prev, q); ok {
					for _, nb := range m.Edge(e).Faces() {
						if pending[nb] {
							delete(pending, nb)
							p.done = append(p.done, nb)
						}
					}
				}
				prev = q
			}
		}
		seed = subdiv.NoFace
	}

	p.maxAreaError, p.totalAreaError = 0, 0
	for i, f := range p.faces {
		pts := m.Face(f).Points()
		ring := make(d2.Set, len(pts))
		for j, q := range pts {
			ring[j] = p.pts2D[p.index[q]]
		}
		e := ring.SignedArea() - m.FaceArea(f)
		p.totalAreaError += e
		p.faceErrors[i] = math.Abs(e)
		p.maxAreaError = math.Max(p.maxAreaError, p.faceErrors[i])
	}
	var maxEdge float64
	for i, e := range p.edges {
		edge := m.Edge(e)
		a, b := p.index[edge.P[0]], p.index[edge.P[1]]
		l3 := r3.Norm(r3.Sub(m.Coord(edge.P[0]), m.Coord(edge.P[1])))
		p.edgeErrors[i] = math.Abs(d2.Dist(p.pts2D[a], p.pts2D[b]) - l3)
		maxEdge = math.Max(maxEdge, p.edgeErrors[i])
	}
	return maxEdge + math.Abs(p.totalAreaError), bad, found
}

// unrollFace places the unplaced points of face f. Triangles fan out from
// the first pair of consecutive placed points, or from the first point when
// there is none. It reports whether a triangle winds against the first
// triangle of the patch.
func (p *Patch) unrollFace(f subdiv.FaceID, first *bool, winding *float64) (bad bool) {
	pts := p.mesh.Face(f).Points()
	n := len(pts)
	s := 0
	for i := range pts {
		if p.placed[p.index[pts[i]]] && p.placed[p.index[pts[(i+1)%n]]] {
			s = i
			break
		}
	}
	for i := 2; i < n; i++ {
		a := p.index[pts[s]]
		b := p.index[pts[(s+i-1)%n]]
		c := p.index[pts[(s+i)%n]]
		if p.placeTriangle(a, b, c, first, winding) {
			bad = true
		}
	}
	return bad
}

// placeTriangle positions the third point of triangle a,b,c from its true
// edge lengths. The first triangle of a patch is laid with its first edge
// along +y from the 3D x,y position of a.
func (p *Patch) placeTriangle(a, b, c int, first *bool, winding *float64) (bad bool) {
	pa, pb, pc := p.coord(a), p.coord(b), p.coord(c)
	lab := r3.Norm(r3.Sub(pa, pb))
	lbc := r3.Norm(r3.Sub(pb, pc))
	lca := r3.Norm(r3.Sub(pc, pa))
	if !p.placed[a] && !p.placed[b] && !p.placed[c] {
		p.pts2D[a] = r2.Vec{X: pa.X, Y: pa.Y}
		p.pts2D[b] = r2.Vec{X: pa.X, Y: pa.Y + lab}
		p.placed[a], p.placed[b] = true, true
	}
	if !p.placed[a] || !p.placed[b] || p.placed[c] {
		return false
	}
	a2, b2 := p.pts2D[a], p.pts2D[b]
	c2 := thirdPoint(d2.Dist(a2, b2), lbc, lca, a2, b2)
	w := 1.0
	if d2.Cross(r2.Sub(b2, a2), r2.Sub(c2, b2)) < 0 {
		w = -1
	}
	if *first {
		*winding = w
		*first = false
	} else if w != *winding {
		bad = true
	}
	p.pts2D[c] = c2
	p.placed[c] = true
	return bad
}

func (p *Patch) coord(i int) r3.Vec { return p.mesh.Coord(p.points[i]) }

// thirdPoint returns the apex of the triangle with base p1-p2 of length
// ab, side bc opposite p1 and side ca from p1, on the left of p1-p2.
func thirdPoint(ab, bc, ca float64, p1, p2 r2.Vec) r2.Vec {
	if ab == 0 {
		ab = 1e-7
	}
	if ca == 0 {
		ca = 1e-7
	}
	cos := shipcad.Clamp((ab*ab+ca*ca-bc*bc)/(2*ab*ca), -1, 1)
	angle := d2.Angle(r2.Sub(p2, p1)) + math.Acos(cos)
	return r2.Add(p1, d2.PolarToXY(ca, angle))
}

// detectMirror looks for a straight developed centreline on flat panels of
// symmetric layers and sets the mirror plane through it.
func (p *Patch) detectMirror() {
	m := p.mesh
	var centre []subdiv.EdgeID
	for _, e := range p.edges {
		edge := m.Edge(e)
		if len(edge.Faces()) == 1 &&
			math.Abs(m.Coord(edge.P[0]).Y) <= centrelineTol &&
			math.Abs(m.Coord(edge.P[1]).Y) <= centrelineTol {
			centre = append(centre, e)
		}
	}
	if len(centre) == 0 {
		return
	}
	for _, f := range p.faces {
		if math.Abs(m.FaceNormal(f).Y) > flatNormalTol {
			return
		}
	}
	line := m.ChainEdges(centre)[0]
	q1, q2 := line[0], line[len(line)-1]
	for j := len(line) - 1; j > 0 && q1 == q2; j-- {
		q2 = line[j]
	}
	if q1 == q2 {
		return
	}
	a, b := p.pts2D[p.index[q1]], p.pts2D[p.index[q2]]
	dir := r2.Unit(r2.Sub(b, a))
	for _, q := range line[1:] {
		if math.Abs(d2.Cross(dir, r2.Sub(p.pts2D[p.index[q]], a))) > straightTol {
			return
		}
	}
	p.mirror = true
	p.mirrorPlane = shipcad.PlaneFrom3(
		r3.Vec{X: a.X, Y: a.Y}, r3.Vec{X: b.X, Y: b.Y}, r3.Vec{X: b.X, Y: b.Y, Z: 1})
	for _, v := range p.pts2D {
		p.box = p.box.Include(p.mirrored(v))
	}
}

// optimiseRotation picks the rotation, in half degree steps, giving the
// smallest bounding box and turns the plate so it lies wider than high.
func (p *Patch) optimiseRotation() {
	pts := append([]r2.Vec(nil), p.pts2D...)
	if p.mirror {
		for _, v := range p.pts2D {
			pts = append(pts, p.mirrored(v))
		}
	}
	mid := p.box.Center()
	data := make([]float64, 0, 2*len(pts))
	for _, v := range pts {
		data = append(data, v.X-mid.X, v.Y-mid.Y)
	}
	P := mat.NewDense(len(pts), 2, data)
	var rotated mat.Dense
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	size := func(deg float64) (w, h float64) {
		s, c := math.Sincos(shipcad.DtoR(deg))
		rotated.Mul(P, mat.NewDense(2, 2, []float64{c, s, -s, c}))
		mat.Col(xs, 0, &rotated)
		mat.Col(ys, 1, &rotated)
		return floats.Max(xs) - floats.Min(xs), floats.Max(ys) - floats.Min(ys)
	}
	best, bestArea := 0.0, math.Inf(1)
	for i := 0; i <= 180; i++ {
		w, h := size(float64(i) / 2)
		if w*h < bestArea {
			best, bestArea = float64(i)/2, w*h
		}
	}
	p.rotation = best
	if w, h := size(best); w < h {
		p.rotation -= 90
	}
}
