package subdiv

import (
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d3"
	"github.com/soypat/shipcad/spline"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// JoinTolerance is the distance within which slice segment ends are joined.
	JoinTolerance = 1e-2
	// minSplineDiagonal discards slices smaller than slicing noise.
	minSplineDiagonal = 1e-3
)

// IntersectPlane slices the refined faces of the layers used for
// intersections, or of the hydrostatics layers when hydrostaticsOnly is
// set, and joins the pieces into splines.
func (s *Surface) IntersectPlane(pl shipcad.Plane, hydrostaticsOnly bool) []*spline.Spline {
	ref := s.Refined()
	use := UsedForIntersections
	if hydrostaticsOnly {
		use = UsedInHydrostatics
	}
	var segs []*spline.Spline
	seen := make(map[[2][3]int64]bool)
	for _, l := range s.layers {
		if !use(l) {
			continue
		}
		for _, cf := range l.faces {
			ctrl := s.control.faces[cf].Ctrl
			if !ctrl.box.Empty() && !pl.IntersectsBox(ctrl.box) {
				continue
			}
			for _, f := range ctrl.Children {
				seg := sliceFace(ref, f, pl)
				if seg == nil {
					continue
				}
				k := segmentKey(seg.First(), seg.Last())
				if seen[k] {
					continue
				}
				seen[k] = true
				segs = append(segs, seg)
			}
		}
	}
	joined := JoinSegments(segs, JoinTolerance)
	out := joined[:0]
	for _, sp := range joined {
		if sp.Extents().Diagonal() >= minSplineDiagonal {
			out = append(out, sp)
		}
	}
	return out
}

// sliceFace returns the polyline where the plane crosses a face, or nil.
func sliceFace(m *Mesh, f FaceID, pl shipcad.Plane) *spline.Spline {
	ring := m.faces[f].points
	n := len(ring)
	var seg *spline.Spline
	emit := func(p r3.Vec, knuckle bool) {
		if seg == nil {
			seg = spline.New()
		}
		seg.AddKnuckle(p, knuckle)
	}
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		pa, pb := &m.points[a], &m.points[b]
		s1, s2 := pl.Distance(pa.Coord), pl.Distance(pb.Coord)
		if math.Abs(s1) <= planeTol {
			emit(pa.Coord, pa.Type != Regular || m.creaseCount(a) > 0)
		}
		if (s1 < -planeTol && s2 > planeTol) || (s1 > planeTol && s2 < -planeTol) {
			t := -s1 / (s2 - s1)
			e, _ := m.EdgeBetween(a, b)
			emit(d3.Lerp(pa.Coord, pb.Coord, t), e != NoEdge && m.edges[e].crease)
		}
	}
	if seg == nil || seg.Len() < 2 {
		return nil
	}
	return seg
}

// segmentKey identifies a segment by its quantised end points regardless of direction.
func segmentKey(a, b r3.Vec) [2][3]int64 {
	ka, kb := quantise(a), quantise(b)
	if lessKey(kb, ka) {
		ka, kb = kb, ka
	}
	return [2][3]int64{ka, kb}
}

func quantise(v r3.Vec) [3]int64 {
	const q = 1e6
	return [3]int64{int64(math.Round(v.X * q)), int64(math.Round(v.Y * q)), int64(math.Round(v.Z * q))}
}

func lessKey(a, b [3]int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// JoinSegments joins polylines whose ends lie within tol of each other into
// maximal splines. The inputs are not modified. Closed loops end on their
// first point.
func JoinSegments(segs []*spline.Spline, tol float64) []*spline.Spline {
	ends := make(endpoints, 0, 2*len(segs))
	for i, sg := range segs {
		if sg.Len() == 0 {
			continue
		}
		ends = append(ends, endpoint{v: sg.First(), seg: i}, endpoint{v: sg.Last(), seg: i, end: 1})
	}
	if len(ends) == 0 {
		return nil
	}
	tree := kdtree.New(ends, false)
	used := make([]bool, len(segs))
	// match returns the closest unused end near v.
	match := func(v r3.Vec) (endpoint, bool) {
		keep := kdtree.NewDistKeeper(tol * tol)
		tree.NearestSet(keep, &endpoint{v: v})
		var best endpoint
		found := false
		bestDist := math.Inf(1)
		for _, cd := range keep.Heap {
			if cd.Comparable == nil {
				continue
			}
			ep := cd.Comparable.(*endpoint)
			if used[ep.seg] || cd.Dist >= bestDist {
				continue
			}
			best, bestDist, found = *ep, cd.Dist, true
		}
		return best, found
	}

	var out []*spline.Spline
	for i, sg := range segs {
		if used[i] || sg.Len() == 0 {
			continue
		}
		used[i] = true
		chain := sg.Clone()
		closed := func() bool { return chain.Len() > 2 && r3.Norm(r3.Sub(chain.First(), chain.Last())) <= tol }
		for !closed() {
			ep, ok := match(chain.Last())
			if !ok {
				break
			}
			used[ep.seg] = true
			chain.InsertSpline(chain.Len(), ep.end == 1, true, segs[ep.seg])
		}
		for !closed() {
			ep, ok := match(chain.First())
			if !ok {
				break
			}
			used[ep.seg] = true
			chain.InsertSpline(0, ep.end == 0, true, segs[ep.seg])
		}
		if closed() {
			first := chain.First()
			chain.SetPoint(chain.Len()-1, first)
		}
		out = append(out, chain)
	}
	return out
}

// endpoint is the start or end of a segment, stored in a k-d tree for
// nearest neighbour matching.
type endpoint struct {
	v   r3.Vec
	seg int
	end int // 0 for the first point, 1 for the last.
}

func (p *endpoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*endpoint)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	}
	panic("unreachable")
}

func (p *endpoint) Dims() int { return 3 }

// Distance returns the squared distance between two end points.
func (p *endpoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.v, c.(*endpoint).v))
}

type endpoints []endpoint

func (e endpoints) Index(i int) kdtree.Comparable { return &e[i] }
func (e endpoints) Len() int                      { return len(e) }

func (e endpoints) Pivot(d kdtree.Dim) int {
	p := endpointPlane{dim: d, ends: e}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (e endpoints) Slice(start, end int) kdtree.Interface { return e[start:end] }

type endpointPlane struct {
	dim  kdtree.Dim
	ends endpoints
}

func (p endpointPlane) Less(i, j int) bool {
	return p.ends[i].Compare(&p.ends[j], p.dim) < 0
}
func (p endpointPlane) Swap(i, j int) { p.ends[i], p.ends[j] = p.ends[j], p.ends[i] }
func (p endpointPlane) Len() int      { return len(p.ends) }
func (p endpointPlane) Slice(start, end int) kdtree.SortSlicer {
	p.ends = p.ends[start:end]
	return p
}
