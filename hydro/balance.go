package hydro

import (
	"math"

	"github.com/soypat/shipcad"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	balanceIterations = 25
	balanceTolerance  = 5e-4
	trimTolerance     = 1e-4
	stallTolerance    = 1e-5
)

// CrossCurves is a floating equilibrium found by Balance.
type CrossCurves struct {
	Heel           float64
	WaterlinePlane shipcad.Plane
	AbsoluteDraft  float64
	Volume         float64
	Displacement   float64
	CoB            r3.Vec
	// KNSinPhi is the righting lever of the buoyancy about the keel point.
	KNSinPhi  float64
	Converged bool
}

// MinMaxData bounds the draft search of a waterline orientation.
type MinMaxData struct {
	// Normal of the waterline planes.
	Normal r3.Vec
	// LowestPoint is the hull point deepest along -Normal.
	LowestPoint r3.Vec
	LowestZ     float64
	// LowestLeak is the deepest opening when HasLeak is set.
	LowestLeak r3.Vec
	HasLeak    bool
	// MaxDraft is the draft at which the hull is fully submerged or the
	// first opening reaches the water.
	MaxDraft float64
}

// RotatePointBack returns p in the hull frame given the cosine and sine
// of the trim and heel angles.
func RotatePointBack(p r3.Vec, cosTrim, sinTrim, cosHeel, sinHeel float64) r3.Vec {
	return r3.Vec{
		X: p.X*cosTrim - p.Z*sinTrim,
		Y: p.Y*cosHeel + p.X*sinTrim*sinHeel + p.Z*cosTrim*sinHeel,
		Z: -p.Y*sinHeel + p.X*sinTrim*cosHeel + p.Z*cosTrim*cosHeel,
	}
}

// MinMax returns the draft bounds of the hull for a waterline at trim
// angle trim and heel angle heel, both in degrees.
func (c *Calc) MinMax(trim, heel float64) MinMaxData {
	ct, st := math.Cos(shipcad.DtoR(trim)), math.Sin(shipcad.DtoR(trim))
	ch, sh := math.Cos(shipcad.DtoR(heel)), math.Sin(shipcad.DtoR(heel))
	p1 := RotatePointBack(r3.Vec{}, ct, st, ch, sh)
	p2 := RotatePointBack(r3.Vec{X: 1}, ct, st, ch, sh)
	p3 := RotatePointBack(r3.Vec{X: 1, Y: 1}, ct, st, ch, sh)
	mmd := MinMaxData{Normal: shipcad.UnifiedNormal(p1, p2, p3)}
	base := shipcad.NewPlane(p1, mmd.Normal)

	lo, hi := math.Inf(1), math.Inf(-1)
	mmd.LowestZ = math.Inf(1)
	tris, _ := c.triangles()
	for _, t := range tris {
		for _, p := range t {
			d := base.Distance(p)
			if d < lo {
				lo = d
				mmd.LowestPoint = p
			}
			hi = math.Max(hi, d)
			mmd.LowestZ = math.Min(mmd.LowestZ, p.Z)
		}
	}
	if math.IsInf(lo, 1) {
		return MinMaxData{Normal: mmd.Normal}
	}
	for _, p := range c.leaks() {
		if !mmd.HasLeak || base.Distance(p) < base.Distance(mmd.LowestLeak) {
			mmd.LowestLeak = p
			mmd.HasLeak = true
		}
	}
	mmd.MaxDraft = hi - lo
	if mmd.HasLeak {
		if leak := base.Distance(mmd.LowestLeak); leak < hi {
			mmd.MaxDraft = leak - lo - 1e-4
		}
	}
	return mmd
}

// Plane returns the waterline at draft above the lowest point.
func (m MinMaxData) Plane(draft float64) shipcad.Plane {
	return shipcad.NewPlane(r3.Add(m.LowestPoint, r3.Scale(draft, m.Normal)), m.Normal)
}

// Balance searches the draft, and the trim when freeToTrim is set, at
// which the hull displaces displacement at the current heel. Trim is
// driven until the centre of buoyancy lies on the normal through
// (LCG, 0, VCG). On success the results hold the equilibrium waterline
// and Draft and Trim describe it; on failure the previous results are
// kept and false is returned.
func (c *Calc) Balance(displacement float64, freeToTrim bool) (CrossCurves, bool) {
	if displacement == 0 {
		return CrossCurves{Heel: c.heel, Converged: true}, true
	}
	prev, prevErrs, prevCalc := c.data, c.errs, c.calculated
	fail := func(e Errors) (CrossCurves, bool) {
		c.data, c.errs, c.calculated = prev, prevErrs|e, prevCalc
		return CrossCurves{Heel: c.heel}, false
	}

	trim := -c.TrimAngle()
	ok, e := c.balanceDraft(displacement, trim)
	if !ok {
		return fail(e)
	}
	if freeToTrim {
		tol := trimTolerance * c.Project.Length
		t0, e0 := trim, c.trimError()
		if math.Abs(e0) > tol {
			t1 := t0 + 0.5
			if ok, e = c.balanceDraft(displacement, t1); !ok {
				return fail(e)
			}
			e1 := c.trimError()
			for i := 0; math.Abs(e1) > tol; i++ {
				if i >= balanceIterations || e1 == e0 {
					return fail(0)
				}
				t0, t1 = t1, t1-e1*(t1-t0)/(e1-e0)
				e0 = e1
				if ok, e = c.balanceDraft(displacement, t1); !ok {
					return fail(e)
				}
				e1 = c.trimError()
				c.log().Debug("balance trim", "iteration", i, "trim", t1, "error", e1)
			}
		}
	}

	c.keepWaterline(c.data.WaterlinePlane)
	d := c.data
	out := CrossCurves{
		Heel:           c.heel,
		WaterlinePlane: d.WaterlinePlane,
		AbsoluteDraft:  d.AbsoluteDraft,
		Volume:         d.Volume,
		Displacement:   d.Displacement,
		CoB:            d.CoB,
		Converged:      true,
	}
	if math.Abs(c.heel) < 1e-5 {
		out.CoB.Y = 0
	} else {
		n := r3.Unit(d.WaterlinePlane.Normal())
		v := r3.Unit(r3.Sub(r3.Vec{Y: 1}, r3.Scale(n.Y, n)))
		k := r3.Vec{X: d.CoB.X, Z: d.Model.Min.Z}
		out.KNSinPhi = -r3.Dot(r3.Sub(d.CoB, k), v)
	}
	return out, true
}

// keepWaterline sets draft and trim so that WaterlinePlane passes through
// the points of wl above the origin and above the project length. The
// results are left valid.
func (c *Calc) keepWaterline(wl shipcad.Plane) {
	if math.Abs(wl.C) < 1e-9 {
		return
	}
	l := c.Project.Length
	z0 := -wl.D / wl.C
	zl := -(wl.A*l + wl.D) / wl.C
	c.draft = 0.5*(z0+zl) - c.lowestZ()
	c.trim = zl - z0
}

// balanceDraft runs the secant search on draft for a waterline at trim
// angle trim. It leaves the results of the last volume in c.data.
func (c *Calc) balanceDraft(displacement, trim float64) (bool, Errors) {
	mmd := c.MinMax(trim, c.heel)
	type sample struct{ draft, displ float64 }
	lo := sample{}
	hi := sample{draft: mmd.MaxDraft}
	c.Invalidate()
	c.volume(mmd.Plane(hi.draft))
	hi.displ = c.data.Displacement
	if displacement > 1.005*hi.displ {
		return false, NotEnoughBuoyancy
	}
	prevErr := 0.0
	for i := 1; ; i++ {
		cur := sample{draft: shipcad.Interpolate(displacement, lo.displ, lo.draft, hi.displ, hi.draft)}
		c.Invalidate()
		c.volume(mmd.Plane(cur.draft))
		cur.displ = c.data.Displacement
		err := math.Abs(displacement - cur.displ)
		if displacement >= 0.1 {
			err /= displacement
		}
		c.log().Debug("balance draft", "iteration", i, "draft", cur.draft, "displacement", cur.displ, "error", err)
		if err < balanceTolerance {
			return true, 0
		}
		if cur.displ < displacement {
			lo = cur
		} else {
			hi = cur
		}
		if i >= balanceIterations || math.Abs(err-prevErr) < stallTolerance {
			return false, 0
		}
		prevErr = err
	}
}

// trimError returns the longitudinal distance between the centre of
// buoyancy and the normal through the centre of gravity.
func (c *Calc) trimError() float64 {
	n := r3.Unit(c.data.WaterlinePlane.Normal())
	u := r3.Unit(r3.Sub(r3.Vec{X: 1}, r3.Scale(n.X, n)))
	g := r3.Vec{X: c.LCG, Z: c.Project.VCG}
	return r3.Dot(r3.Sub(c.data.CoB, g), u)
}

// Crosscurves balances the hull at displacement for each heel angle in
// degrees. The heel, draft and trim are restored afterwards.
func (c *Calc) Crosscurves(displacement float64, angles []float64) []CrossCurves {
	heel, draft, trim := c.heel, c.draft, c.trim
	defer func() {
		c.SetHeel(heel)
		c.SetDraft(draft)
		c.SetTrim(trim)
	}()
	out := make([]CrossCurves, 0, len(angles))
	for _, a := range angles {
		c.SetHeel(a)
		cc, _ := c.Balance(displacement, c.Project.FreeTrim)
		cc.Heel = a
		out = append(out, cc)
	}
	return out
}
