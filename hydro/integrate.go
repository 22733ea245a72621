package hydro

import (
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const waterlineTol = 1e-5

// integrator accumulates the properties of the hull below a waterline.
// Waterplane and profile integrals are taken as the flux of the hull
// triangles through the plane, which equals minus the flux through the
// closing face of the submerged volume.
type integrator struct {
	wl      shipcad.Plane
	origin  r3.Vec
	n, u, v r3.Vec

	volume float64
	moment r3.Vec
	wetted float64

	// waterplane flux integrals of 1, u, v, u², v².
	wp [5]float64
	// profile flux integrals of 1, x, z.
	lat [3]float64

	wlBox, subBox, model d3.Box
	submerged            bool
}

func newIntegrator(wl shipcad.Plane) *integrator {
	n := r3.Unit(wl.Normal())
	u := r3.Vec{X: 1}
	u = r3.Unit(r3.Sub(u, r3.Scale(r3.Dot(u, n), n)))
	return &integrator{
		wl:     wl,
		origin: wl.Project(r3.Vec{}),
		n:      n,
		u:      u,
		v:      r3.Cross(n, u),
		wlBox:  d3.EmptyBox(),
		subBox: d3.EmptyBox(),
		model:  d3.EmptyBox(),
	}
}

// add integrates the submerged part of triangle t. lateral adds its flux
// through the centreplane to the profile integrals.
func (it *integrator) add(t [3]r3.Vec, lateral bool) {
	for _, p := range t {
		it.model = it.model.Include(p)
	}
	poly := it.clip(t)
	if len(poly) < 3 {
		return
	}
	it.submerged = true
	for _, p := range poly {
		it.subBox = it.subBox.Include(p)
		if math.Abs(it.wl.Distance(p)) <= waterlineTol {
			it.wlBox = it.wlBox.Include(p)
		}
	}
	for i := 2; i < len(poly); i++ {
		it.addTriangle(poly[0], poly[i-1], poly[i], lateral)
	}
}

func (it *integrator) addTriangle(p1, p2, p3 r3.Vec, lateral bool) {
	r1, r2, r3v := r3.Sub(p1, it.origin), r3.Sub(p2, it.origin), r3.Sub(p3, it.origin)
	vol := r3.Dot(r1, r3.Cross(r2, r3v)) / 6
	it.volume += vol
	it.moment = r3.Add(it.moment, r3.Scale(vol/4, r3.Add(r1, r3.Add(r2, r3v))))

	cross := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	it.wetted += r3.Norm(cross) / 2

	fz := r3.Dot(cross, it.n) / 2
	u1, u2, u3 := r3.Dot(r1, it.u), r3.Dot(r2, it.u), r3.Dot(r3v, it.u)
	v1, v2, v3 := r3.Dot(r1, it.v), r3.Dot(r2, it.v), r3.Dot(r3v, it.v)
	it.wp[0] += fz
	it.wp[1] += fz * (u1 + u2 + u3) / 3
	it.wp[2] += fz * (v1 + v2 + v3) / 3
	it.wp[3] += fz * quadMean(u1, u2, u3)
	it.wp[4] += fz * quadMean(v1, v2, v3)

	if lateral {
		fy := cross.Y / 2
		it.lat[0] += fy
		it.lat[1] += fy * (p1.X + p2.X + p3.X) / 3
		it.lat[2] += fy * (p1.Z + p2.Z + p3.Z) / 3
	}
}

// quadMean returns the mean of a linear function squared over a triangle
// with vertex values a, b, c.
func quadMean(a, b, c float64) float64 {
	return (a*a + b*b + c*c + a*b + b*c + c*a) / 6
}

// clip returns the part of t on or below the waterline.
func (it *integrator) clip(t [3]r3.Vec) []r3.Vec {
	var d [3]float64
	below := 0
	for i, p := range t {
		d[i] = it.wl.Distance(p)
		if math.Abs(d[i]) <= waterlineTol {
			d[i] = 0
		}
		if d[i] <= 0 {
			below++
		}
	}
	if below == 3 {
		return t[:]
	}
	if below == 0 {
		return nil
	}
	out := make([]r3.Vec, 0, 4)
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if d[i] <= 0 {
			out = append(out, t[i])
		}
		if (d[i] < 0 && d[j] > 0) || (d[i] > 0 && d[j] < 0) {
			s := d[i] / (d[i] - d[j])
			out = append(out, d3.Lerp(t[i], t[j], s))
		}
	}
	return out
}

// orientation returns 1 when the triangles wind outward, -1 otherwise.
func (it *integrator) orientation() float64 {
	if it.volume < 0 {
		return -1
	}
	return 1
}

// cob returns the centre of buoyancy.
func (it *integrator) cob() r3.Vec {
	if it.volume == 0 {
		return r3.Vec{}
	}
	return r3.Add(it.origin, r3.Scale(1/it.volume, it.moment))
}

// waterplane returns the area, centroid and centroidal second moments
// (transverse, longitudinal) of the waterplane.
func (it *integrator) waterplane() (area float64, cog r3.Vec, it2, il2 float64) {
	s := -it.orientation()
	area = s * it.wp[0]
	if area <= 0 {
		return 0, r3.Vec{}, 0, 0
	}
	cu := s * it.wp[1] / area
	cv := s * it.wp[2] / area
	cog = r3.Add(it.origin, r3.Add(r3.Scale(cu, it.u), r3.Scale(cv, it.v)))
	il2 = s*it.wp[3] - area*cu*cu
	it2 = s*it.wp[4] - area*cv*cv
	return area, cog, it2, il2
}

// profile returns the area and centroid of the submerged centreplane profile.
func (it *integrator) profile() (area float64, cog r3.Vec) {
	s := it.orientation()
	area = s * it.lat[0]
	if area <= 0 {
		return 0, r3.Vec{}
	}
	return area, r3.Vec{X: s * it.lat[1] / area, Z: s * it.lat[2] / area}
}

// integrate runs the integrator over the hydrostatic triangles of the surface.
func (c *Calc) integrate(wl shipcad.Plane) *integrator {
	it := newIntegrator(wl)
	tris, lateral := c.triangles()
	for i, t := range tris {
		it.add(t, lateral[i])
	}
	return it
}
