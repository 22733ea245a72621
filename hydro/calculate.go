package hydro

import (
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/intersection"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// The sectional area curve is sampled at sacStations sections.
const (
	sacStations = 25
	sacInset    = 1e-4
)

// Calculate computes the results selected by Calculations at the current
// draft, trim and heel.
func (c *Calc) Calculate() {
	c.Invalidate()
	wl := c.WaterlinePlane()
	it := c.volume(wl)
	if c.errs.Has(NothingSubmerged) {
		c.calculated = true
		return
	}
	d := &c.data
	if c.Calculations&CalcMainframe != 0 {
		mf := intersection.NewStation(c.Surface, c.Project.MainframeX())
		mf.HydrostaticsOnly = true
		sec := mf.CalculateArea(wl)
		mf.Detach()
		d.MainframeArea = sec.Area
		d.MainframeCOG = sec.COG
		_, b, t := c.formDims()
		d.MainframeCoefficient = ratio(sec.Area, b*t)
	}
	if c.Calculations&CalcWaterplane != 0 {
		area, cog, it2, il2 := it.waterplane()
		d.WaterplaneArea = area
		d.WaterplaneCOG = cog
		d.WaterplaneMOI = r2.Vec{X: it2, Y: il2}
		l, b, _ := c.formDims()
		d.WaterplaneCoefficient = ratio(area, l*b)
		kb := d.CoB.Z - d.Model.Min.Z
		d.KMTransverse = kb + ratio(it2, d.Volume)
		d.KMLongitudinal = kb + ratio(il2, d.Volume)
		if c.heel == 0 {
			d.EntranceAngle = c.entranceAngle(wl)
		}
	}
	if c.Calculations&CalcLateralArea != 0 {
		d.LateralArea, d.LateralCOG = it.profile()
	}
	l, _, t := c.formDims()
	if d.MainframeArea > 0 {
		d.PrismaticCoefficient = ratio(d.Volume, d.MainframeArea*l)
	}
	if d.WaterplaneArea > 0 {
		d.VerticalPrismaticCoefficient = ratio(d.Volume, d.WaterplaneArea*t)
	}
	if c.Calculations&CalcSAC != 0 {
		c.sectionalAreas(wl)
	}
	c.log().Debug("hydrostatics", "draft", c.draft, "trim", c.trim, "heel", c.heel,
		"volume", d.Volume, "errors", c.errs)
}

// CalculateVolume computes only the volume, displacement, centre of
// buoyancy, waterline dimensions and block coefficient below wl.
func (c *Calc) CalculateVolume(wl shipcad.Plane) {
	c.Invalidate()
	c.volume(wl)
	c.calculated = true
}

func (c *Calc) volume(wl shipcad.Plane) *integrator {
	it := c.integrate(wl)
	d := &c.data
	d.WaterlinePlane = wl
	d.Model = r3.Box(it.model)
	if !it.submerged || math.Abs(it.volume) < 1e-12 {
		c.errs |= NothingSubmerged
		return it
	}
	d.Waterline = r3.Box(it.wlBox)
	d.Submerged = r3.Box(it.subBox)
	d.Volume = math.Abs(it.volume)
	d.Displacement = d.Volume * c.Project.WaterDensity * c.Project.AppendageCoefficient
	d.CoB = it.cob()
	d.LCBPercent = 100 * (d.CoB.X - c.Project.MainframeX()) / c.Project.Length
	if !it.wlBox.Empty() {
		d.LengthWaterline = it.wlBox.Max.X - it.wlBox.Min.X
		d.BeamWaterline = it.wlBox.Max.Y - it.wlBox.Min.Y
	}
	d.AbsoluteDraft = c.absoluteDraft(wl)
	d.WettedSurface = it.wetted
	l, b, t := c.formDims()
	d.BlockCoefficient = ratio(d.Volume, l*b*t)

	first := true
	for _, p := range c.leaks() {
		dist := wl.Distance(p)
		if dist >= -waterlineTol {
			continue
		}
		if first || dist < wl.Distance(d.Leak) {
			d.Leak = p
			first = false
		}
	}
	if !first {
		c.errs |= MakingWater
	}
	c.calculated = true
	return it
}

// absoluteDraft returns the depth of the lowest point below the waterline
// at the mainframe.
func (c *Calc) absoluteDraft(wl shipcad.Plane) float64 {
	if math.Abs(wl.C) < 1e-9 {
		return 0
	}
	x := c.Project.MainframeX()
	z := -(wl.A*x + wl.D) / wl.C
	return z - c.data.Model.Min.Z
}

// entranceAngle returns the half angle in degrees of the waterline at its
// forward end.
func (c *Calc) entranceAngle(wl shipcad.Plane) float64 {
	var fore r3.Vec
	var next r3.Vec
	found := false
	for _, sp := range c.Surface.IntersectPlane(wl, true) {
		pts := sp.Sample(sp.Fragments)
		for i, p := range pts {
			if p.Y < -waterlineTol || (found && p.X <= fore.X+1e-9) {
				continue
			}
			var nb r3.Vec
			switch {
			case i+1 < len(pts) && pts[i+1].Y > p.Y+1e-9:
				nb = pts[i+1]
			case i > 0 && pts[i-1].Y > p.Y+1e-9:
				nb = pts[i-1]
			default:
				continue
			}
			fore, next, found = p, nb, true
		}
	}
	if !found {
		return 0
	}
	dx := fore.X - next.X
	dy := next.Y - fore.Y
	return shipcad.RtoD(math.Atan2(dy, dx))
}

// sectionalAreas samples the sectional area curve between the ends of the waterline.
func (c *Calc) sectionalAreas(wl shipcad.Plane) {
	d := &c.data
	x0, x1 := d.Submerged.Min.X, d.Submerged.Max.X
	if x1-x0 < 1e-6 {
		return
	}
	xs := make([]float64, sacStations)
	areas := make([]float64, sacStations)
	for i := range xs {
		// Inset the end stations so they do not lie in end faces.
		f := sacInset + (1-2*sacInset)*float64(i)/float64(sacStations-1)
		xs[i] = x0 + (x1-x0)*f
		st := intersection.NewStation(c.Surface, xs[i])
		st.HydrostaticsOnly = true
		areas[i] = st.CalculateArea(wl).Area
		st.Detach()
		d.SAC = append(d.SAC, r2.Vec{X: xs[i], Y: areas[i]})
	}
	d.SACVolume = integrate.Trapezoidal(xs, areas)
	d.MaxSectionArea = floats.Max(areas)
}
