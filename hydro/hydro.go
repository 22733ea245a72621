// Package hydro computes the hydrostatic properties of the submerged part
// of a hull: volume, displacement, centre of buoyancy, waterplane and
// sectional properties, form coefficients and free floating equilibrium.
package hydro

import (
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/intersection"
	"github.com/soypat/shipcad/settings"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is the hull geometry hydrostatics are computed on.
type Surface interface {
	intersection.Surface
	Triangles(use func(*subdiv.Layer) bool, mirror bool) []subdiv.Triangle
	LeakPoints(use func(*subdiv.Layer) bool) []r3.Vec
}

// Calculations selects the optional parts of Calculate.
type Calculations uint8

const (
	CalcVolume Calculations = 1 << iota
	CalcMainframe
	CalcWaterplane
	CalcSAC
	CalcLateralArea

	CalcAll = CalcVolume | CalcMainframe | CalcWaterplane | CalcSAC | CalcLateralArea
)

// Errors is the set of problems found by a calculation.
type Errors uint8

const (
	// NothingSubmerged: the waterline does not reach the hull.
	NothingSubmerged Errors = 1 << iota
	// MakingWater: an opening in the hull lies below the waterline.
	MakingWater
	// NotEnoughBuoyancy: the hull cannot displace the requested weight.
	NotEnoughBuoyancy
)

// Has reports whether all errors in f are set.
func (e Errors) Has(f Errors) bool { return e&f == f }

func (e Errors) String() string {
	if e == 0 {
		return "ok"
	}
	var s []string
	for _, n := range []struct {
		f    Errors
		name string
	}{
		{NothingSubmerged, "nothing submerged"},
		{MakingWater, "making water"},
		{NotEnoughBuoyancy, "not enough buoyancy"},
	} {
		if e.Has(n.f) {
			s = append(s, n.name)
		}
	}
	return strings.Join(s, ", ")
}

// Data is the result of a hydrostatic calculation. Areas and volumes
// include both sides of symmetric layers.
type Data struct {
	Model     r3.Box
	Waterline r3.Box
	Submerged r3.Box

	WaterlinePlane shipcad.Plane
	AbsoluteDraft  float64
	Volume         float64
	Displacement   float64
	CoB            r3.Vec
	// LCBPercent is the distance of the centre of buoyancy from the
	// mainframe as a percentage of the project length.
	LCBPercent float64

	LengthWaterline  float64
	BeamWaterline    float64
	BlockCoefficient float64
	WettedSurface    float64
	// Leak is the lowest opening below the waterline when MakingWater is set.
	Leak r3.Vec

	MainframeArea        float64
	MainframeCOG         r3.Vec
	MainframeCoefficient float64

	WaterplaneArea        float64
	WaterplaneCOG         r3.Vec
	EntranceAngle         float64
	WaterplaneCoefficient float64
	// WaterplaneMOI holds the transverse (X) and longitudinal (Y) second
	// moments of the waterplane about its centroid.
	WaterplaneMOI  r2.Vec
	KMTransverse   float64
	KMLongitudinal float64

	LateralArea float64
	LateralCOG  r3.Vec

	PrismaticCoefficient         float64
	VerticalPrismaticCoefficient float64

	// SAC is the sectional area curve as (x, area) samples.
	SAC            []r2.Vec
	SACVolume      float64
	MaxSectionArea float64
}

// Calc is a hydrostatic calculation at one draft, trim and heel.
// Results are cleared whenever an input or the surface changes.
type Calc struct {
	Surface Surface
	Project *settings.Project
	// Calculations selects the optional results of Calculate.
	Calculations Calculations
	// LCG is the longitudinal centre of gravity Balance trims to.
	LCG float64
	// Logger receives balance iterations at debug level. Nil discards them.
	Logger *slog.Logger

	draft, trim, heel float64
	calculated        bool
	errs              Errors
	data              Data
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// New returns a calculation on surf registered for invalidation.
func New(surf Surface, p *settings.Project) *Calc {
	c := &Calc{
		Surface:      surf,
		Project:      p,
		Calculations: CalcAll,
		LCG:          p.MainframeX(),
	}
	surf.Register(c)
	return c
}

func (c *Calc) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discard
}

// Close unregisters the calculation from its surface.
func (c *Calc) Close() { c.Surface.Unregister(c) }

// Invalidate discards the results.
func (c *Calc) Invalidate() {
	c.calculated = false
	c.errs = 0
	c.data = Data{}
}

func (c *Calc) Calculated() bool { return c.calculated }
func (c *Calc) Errors() Errors   { return c.errs }
func (c *Calc) Data() Data       { return c.data }
func (c *Calc) Draft() float64   { return c.draft }
func (c *Calc) Trim() float64    { return c.trim }
func (c *Calc) Heel() float64    { return c.heel }

// SetDraft sets the draft above the lowest point of the hull.
func (c *Calc) SetDraft(d float64) {
	if d != c.draft {
		c.draft = d
		c.Invalidate()
	}
}

// SetTrim sets the trim as the difference between the draft at the
// project length and the draft at the origin.
func (c *Calc) SetTrim(t float64) {
	if t != c.trim {
		c.trim = t
		c.Invalidate()
	}
}

// SetHeel sets the heel angle in degrees.
func (c *Calc) SetHeel(deg float64) {
	if deg != c.heel {
		c.heel = deg
		c.Invalidate()
	}
}

// TrimAngle returns the trim in degrees.
func (c *Calc) TrimAngle() float64 {
	return shipcad.RtoD(math.Atan(-c.trim * math.Cos(shipcad.DtoR(c.heel)) / c.Project.Length))
}

// WaterlinePlane returns the waterline for the current draft, trim and heel.
func (c *Calc) WaterlinePlane() shipcad.Plane {
	low := c.lowestZ()
	l := c.Project.Length
	h := shipcad.DtoR(c.heel)
	p1 := r3.Vec{Z: low + c.draft - 0.5*c.trim}
	p2 := r3.Vec{X: l, Z: low + c.draft + 0.5*c.trim}
	p3 := r3.Vec{X: l, Y: math.Cos(-h), Z: low + c.draft + 0.5*c.trim - math.Sin(h)}
	return shipcad.PlaneFrom3(p1, p2, p3)
}

// triangles returns the hydrostatic triangles with symmetric layers
// mirrored to port. lateral[i] is set for the starboard triangles of
// symmetric layers, which bound the centreplane profile.
func (c *Calc) triangles() (tris [][3]r3.Vec, lateral []bool) {
	for _, t := range c.Surface.Triangles(subdiv.UsedInHydrostatics, false) {
		tris = append(tris, t.P)
		lateral = append(lateral, t.Layer.Symmetric)
		if t.Layer.Symmetric {
			tris = append(tris, [3]r3.Vec{
				shipcad.MirrorY(t.P[0]), shipcad.MirrorY(t.P[2]), shipcad.MirrorY(t.P[1]),
			})
			lateral = append(lateral, false)
		}
	}
	return tris, lateral
}

func (c *Calc) lowestZ() float64 {
	low := math.Inf(1)
	for _, t := range c.Surface.Triangles(subdiv.UsedInHydrostatics, false) {
		for _, p := range t.P {
			low = math.Min(low, p.Z)
		}
	}
	if math.IsInf(low, 1) {
		return 0
	}
	return low
}

// leaks returns the openings of the hydrostatic layers on both sides.
func (c *Calc) leaks() []r3.Vec {
	pts := c.Surface.LeakPoints(subdiv.UsedInHydrostatics)
	out := make([]r3.Vec, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p, shipcad.MirrorY(p))
	}
	return out
}

// formDims returns the length, beam and draft form coefficients are based on.
func (c *Calc) formDims() (l, b, t float64) {
	if c.Project.Coefficients == settings.ProjectData {
		return c.Project.Length, c.Project.Beam, c.Project.Draft
	}
	return c.data.LengthWaterline, c.data.BeamWaterline, c.data.AbsoluteDraft
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
