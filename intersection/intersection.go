// Package intersection holds the named planar cuts of a hull surface:
// stations, buttocks, waterlines and diagonals, and the sectional
// properties computed from them.
package intersection

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/internal/d3"
	"github.com/soypat/shipcad/spline"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Type classifies an intersection by the orientation of its plane.
type Type int

const (
	Free Type = iota
	Station
	Buttock
	Waterline
	Diagonal
)

func (t Type) String() string {
	switch t {
	case Free:
		return "Plane"
	case Station:
		return "Station"
	case Buttock:
		return "Buttock"
	case Waterline:
		return "Waterline"
	case Diagonal:
		return "Diagonal"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ErrBadType is returned when a file holds an unknown intersection type.
var ErrBadType = errors.New("intersection: unknown type")

// Surface is what an intersection is cut from.
type Surface interface {
	IntersectPlane(pl shipcad.Plane, hydrostaticsOnly bool) []*spline.Spline
	Register(d subdiv.Dependent)
	Unregister(d subdiv.Dependent)
}

// Intersection is the set of splines where a plane cuts a surface.
// It is rebuilt lazily after the surface invalidates it.
type Intersection struct {
	Type          Type
	Plane         shipcad.Plane
	ShowCurvature bool
	// HydrostaticsOnly restricts the cut to layers used in hydrostatics.
	HydrostaticsOnly bool
	// Simplify thins the cut splines after each rebuild.
	Simplify bool

	surface Surface
	build   bool
	splines []*spline.Spline
}

// New returns an intersection of surf with pl and registers it with surf.
// surf may be nil for intersections only read from file.
func New(surf Surface, typ Type, pl shipcad.Plane) *Intersection {
	x := &Intersection{Type: typ, Plane: pl, surface: surf}
	if surf != nil {
		surf.Register(x)
	}
	return x
}

// NewStation returns the transverse cut x = x0.
func NewStation(surf Surface, x0 float64) *Intersection {
	return New(surf, Station, shipcad.Station(x0))
}

// NewButtock returns the longitudinal cut y = y0.
func NewButtock(surf Surface, y0 float64) *Intersection {
	return New(surf, Buttock, shipcad.Buttock(y0))
}

// NewWaterline returns the horizontal cut z = z0.
func NewWaterline(surf Surface, z0 float64) *Intersection {
	return New(surf, Waterline, shipcad.Waterline(z0))
}

// NewDiagonal returns the cut through the line y = 0, z = z0 tilted by
// angle degrees about the x axis.
func NewDiagonal(surf Surface, z0, angle float64) *Intersection {
	a := shipcad.DtoR(angle)
	n := r3.Vec{Y: -math.Sin(a), Z: math.Cos(a)}
	return New(surf, Diagonal, shipcad.NewPlane(r3.Vec{Z: z0}, n))
}

// Detach unregisters the intersection from its surface.
func (x *Intersection) Detach() {
	if x.surface != nil {
		x.surface.Unregister(x)
		x.surface = nil
	}
}

// Invalidate marks the splines stale.
func (x *Intersection) Invalidate() { x.build = false }

// Built reports whether the splines are current.
func (x *Intersection) Built() bool { return x.build }

// Rebuild cuts the surface again. Without a surface the current splines are kept.
func (x *Intersection) Rebuild() {
	if x.surface != nil {
		x.splines = x.surface.IntersectPlane(x.Plane, x.HydrostaticsOnly)
	}
	for _, sp := range x.splines {
		sp.ShowCurvature = x.ShowCurvature
		if x.Simplify {
			sp.Simplify(2.0)
		}
	}
	x.build = true
}

// Splines returns the cut splines, rebuilding them if stale.
func (x *Intersection) Splines() []*spline.Spline {
	if !x.build {
		x.Rebuild()
	}
	return x.splines
}

// Distance returns the offset of the plane from the origin along its normal.
func (x *Intersection) Distance() float64 { return -x.Plane.D }

// Description names the intersection, e.g. "Station 1.000".
func (x *Intersection) Description() string {
	if x.Type == Free {
		return fmt.Sprintf("Plane %.3f,%.3f,%.3f,%.3f", x.Plane.A, x.Plane.B, x.Plane.C, x.Plane.D)
	}
	return fmt.Sprintf("%s %.3f", x.Type, x.Distance())
}

// DeleteCurve removes sp from the intersection. It reports whether sp was found.
func (x *Intersection) DeleteCurve(sp *spline.Spline) bool {
	for i, s := range x.splines {
		if s == sp {
			x.splines = append(x.splines[:i], x.splines[i+1:]...)
			return true
		}
	}
	return false
}

// Extents returns the bounding box of the splines.
func (x *Intersection) Extents() d3.Box {
	box := d3.EmptyBox()
	for _, sp := range x.Splines() {
		box = box.Extend(sp.Extents())
	}
	return box
}

// CreateStarboardPart adds the y-mirrored copy of every open spline. A
// mirrored spline touching the centreplane is joined to its source at that
// end. Closed splines are then turned counter-clockwise in the plane's frame
// and loops smaller than 1e-4 are dropped while more than one remains.
func (x *Intersection) CreateStarboardPart() {
	sps := x.starboardPart(x.Splines())
	origin, u, v := x.Frame()
	kept := sps[:0]
	for i, sp := range sps {
		if !sp.Closed(mirrorTol) {
			kept = append(kept, sp)
			continue
		}
		a := signedArea(sp, origin, u, v)
		if math.Abs(a) < minLoopArea && len(kept)+len(sps)-i > 1 {
			continue
		}
		if a < 0 {
			sp.InvertDirection()
		}
		kept = append(kept, sp)
	}
	x.splines = kept
}

const mirrorTol = 1e-4

// starboardPart mirrors the open splines of cuts whose plane maps onto
// itself under y -> -y. Buttocks are never mirrored. Diagonals are only
// completed where a spline ends on the centreplane.
func (x *Intersection) starboardPart(splines []*spline.Spline) []*spline.Spline {
	if x.Type == Buttock {
		return splines
	}
	symmetric := x.Type == Station || x.Type == Waterline ||
		(x.Type == Free && math.Abs(x.Plane.B) < 1e-9)
	out := make([]*spline.Spline, 0, 2*len(splines))
	for _, sp := range splines {
		out = append(out, sp)
		if sp.Closed(mirrorTol) {
			continue
		}
		mirror := sp.Clone()
		for i := 0; i < mirror.Len(); i++ {
			mirror.SetPoint(i, shipcad.MirrorY(mirror.Point(i)))
		}
		switch {
		case math.Abs(sp.Last().Y) < mirrorTol:
			sp.InsertSpline(sp.Len(), true, true, mirror)
		case math.Abs(sp.First().Y) < mirrorTol:
			sp.InsertSpline(0, true, true, mirror)
		case symmetric:
			out = append(out, mirror)
		}
	}
	return out
}

// signedArea is the shoelace area of the points of sp projected on the
// frame (origin, u, v). It is positive for counter-clockwise splines.
func signedArea(sp *spline.Spline, origin, u, v r3.Vec) float64 {
	var a float64
	n := sp.Len()
	for i := 0; i < n; i++ {
		p, q := r3.Sub(sp.Point(i), origin), r3.Sub(sp.Point((i+1)%n), origin)
		a += r3.Dot(p, u)*r3.Dot(q, v) - r3.Dot(q, u)*r3.Dot(p, v)
	}
	return a / 2
}

// SaveBinary writes the intersection. From version 1.60 the points of
// stations, buttocks and waterlines store only the two in-plane coordinates.
func (x *Intersection) SaveBinary(buf *filebuf.Buffer) {
	buf.AddInt(int(x.Type))
	if buf.AtLeast(shipcad.V191) {
		buf.AddBool(x.ShowCurvature)
	}
	buf.AddPlane(x.Plane)
	buf.AddBool(x.build)
	buf.AddInt(len(x.splines))
	compress := buf.AtLeast(shipcad.V160)
	for _, sp := range x.splines {
		buf.AddInt(sp.Len())
		for i := 0; i < sp.Len(); i++ {
			p := sp.Point(i)
			switch {
			case compress && x.Type == Station:
				buf.AddFloat(p.Y)
				buf.AddFloat(p.Z)
			case compress && x.Type == Buttock:
				buf.AddFloat(p.X)
				buf.AddFloat(p.Z)
			case compress && x.Type == Waterline:
				buf.AddFloat(p.X)
				buf.AddFloat(p.Y)
			default:
				buf.AddVec(p)
			}
			buf.AddBool(sp.Knuckle(i))
		}
	}
}

// LoadBinary reads an intersection written by SaveBinary.
func (x *Intersection) LoadBinary(buf *filebuf.Buffer) error {
	t, err := buf.LoadInt()
	if err != nil {
		return err
	}
	if t < int(Free) || t > int(Diagonal) {
		return fmt.Errorf("%d: %w", t, ErrBadType)
	}
	x.Type = Type(t)
	if buf.AtLeast(shipcad.V191) {
		if x.ShowCurvature, err = buf.LoadBool(); err != nil {
			return err
		}
	}
	if x.Plane, err = buf.LoadPlane(); err != nil {
		return err
	}
	if x.build, err = buf.LoadBool(); err != nil {
		return err
	}
	n, err := buf.LoadInt()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("intersection: negative spline count %d", n)
	}
	compress := buf.AtLeast(shipcad.V160)
	x.splines = make([]*spline.Spline, 0, n)
	for i := 0; i < n; i++ {
		np, err := buf.LoadInt()
		if err != nil {
			return err
		}
		if np < 0 {
			return fmt.Errorf("intersection: negative point count %d", np)
		}
		sp := spline.New()
		sp.ShowCurvature = x.ShowCurvature
		for j := 0; j < np; j++ {
			p, err := x.loadPoint(buf, compress)
			if err != nil {
				return err
			}
			k, err := buf.LoadBool()
			if err != nil {
				return err
			}
			sp.AddKnuckle(p, k)
		}
		x.splines = append(x.splines, sp)
	}
	return nil
}

func (x *Intersection) loadPoint(buf *filebuf.Buffer, compress bool) (p r3.Vec, err error) {
	if !compress || x.Type == Free || x.Type == Diagonal {
		return buf.LoadVec()
	}
	a, err := buf.LoadFloat()
	if err != nil {
		return p, err
	}
	b, err := buf.LoadFloat()
	if err != nil {
		return p, err
	}
	switch x.Type {
	case Station:
		return r3.Vec{X: -x.Plane.D / x.Plane.A, Y: a, Z: b}, nil
	case Buttock:
		return r3.Vec{X: a, Y: -x.Plane.D / x.Plane.B, Z: b}, nil
	default:
		return r3.Vec{X: a, Y: b, Z: -x.Plane.D / x.Plane.C}, nil
	}
}
