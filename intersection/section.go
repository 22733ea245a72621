package intersection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/spline"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	sectionSamples = 500
	minLoopArea    = 1e-4
)

// Section holds the area properties of the part of an intersection below a waterline.
type Section struct {
	Area float64
	// COG is the centroid of the area.
	COG r3.Vec
	// MOI holds the second moments of area about the centroidal axes of the
	// plane's frame: X about the axis along the first frame direction, Y
	// about the axis along the second.
	MOI r2.Vec
}

// Frame returns an origin on the plane and two orthonormal in-plane
// directions. Stations map to (y,z), buttocks to (x,z) and waterlines to (x,y).
func (x *Intersection) Frame() (origin, u, v r3.Vec) {
	origin = x.Plane.Project(r3.Vec{})
	switch x.Type {
	case Station:
		return origin, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	case Buttock:
		return origin, r3.Vec{X: 1}, r3.Vec{Z: 1}
	case Waterline:
		return origin, r3.Vec{X: 1}, r3.Vec{Y: 1}
	}
	n := r3.Unit(x.Plane.Normal())
	u = r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		u = r3.Vec{Y: 1}
	}
	u = r3.Unit(r3.Sub(u, r3.Scale(r3.Dot(u, n), n)))
	return origin, u, r3.Cross(n, u)
}

// CalculateArea returns the area, centroid and second moments of the
// closed loops of the intersection below wl, with the starboard side
// included. Loops smaller than 1e-4 are ignored unless there is only one.
func (x *Intersection) CalculateArea(wl shipcad.Plane) Section {
	var work []*spline.Spline
	for _, sp := range x.Splines() {
		work = append(work, sp.Clone())
	}
	work = x.starboardPart(work)

	origin, u, v := x.Frame()
	var rings []orb.Ring
	for _, sp := range work {
		if sp.Len() < 2 {
			continue
		}
		poly := clipBelow(sp.Sample(sectionSamples), wl)
		if len(poly) < 3 {
			continue
		}
		ring := make(orb.Ring, 0, len(poly)+1)
		for _, p := range poly {
			d := r3.Sub(p, origin)
			ring = append(ring, orb.Point{r3.Dot(d, u), r3.Dot(d, v)})
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		if ring.Orientation() == orb.CW {
			ring.Reverse()
		}
		rings = append(rings, ring)
	}

	var sec Section
	var cu, cv, iuu, ivv float64
	for _, ring := range rings {
		c, a := planar.CentroidArea(ring)
		a = math.Abs(a)
		if a < minLoopArea && len(rings) > 1 {
			continue
		}
		sec.Area += a
		cu += a * c[0]
		cv += a * c[1]
		su, sv := secondMoments(ring)
		iuu += su
		ivv += sv
	}
	if sec.Area == 0 {
		return sec
	}
	cu /= sec.Area
	cv /= sec.Area
	sec.COG = r3.Add(origin, r3.Add(r3.Scale(cu, u), r3.Scale(cv, v)))
	sec.MOI = r2.Vec{
		X: ivv - sec.Area*cv*cv,
		Y: iuu - sec.Area*cu*cu,
	}
	return sec
}

// secondMoments returns ∫u² dA and ∫v² dA of a closed counter-clockwise ring.
func secondMoments(ring orb.Ring) (iuu, ivv float64) {
	for i := 0; i < len(ring)-1; i++ {
		p, q := ring[i], ring[i+1]
		cr := p[0]*q[1] - q[0]*p[1]
		iuu += cr * (p[0]*p[0] + p[0]*q[0] + q[0]*q[0])
		ivv += cr * (p[1]*p[1] + p[1]*q[1] + q[1]*q[1])
	}
	return iuu / 12, ivv / 12
}

// clipBelow clips the closed polygon pts to the side of wl with
// non-positive distance.
func clipBelow(pts []r3.Vec, wl shipcad.Plane) []r3.Vec {
	n := len(pts)
	if n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
		n--
	}
	out := make([]r3.Vec, 0, n+2)
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		sp, sq := wl.Distance(p), wl.Distance(q)
		if sp <= 0 {
			out = append(out, p)
		}
		if (sp < 0 && sq > 0) || (sp > 0 && sq < 0) {
			if c, _, ok := wl.IntersectLine(p, q); ok {
				out = append(out, c)
			}
		}
	}
	return out
}
