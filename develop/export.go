package develop

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/render"
	"github.com/soypat/shipcad/spline"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	intersectTol = 1e-5
	joinTol      = 0.01
)

// Layer names and colour indices of exported intersections.
var intersectionLayers = []struct {
	name string
	aci  uint8
}{
	{"stations", 1},
	{"buttocks", 3},
	{"waterlines", 5},
	{"diagonals", 6},
}

// IntersectPlane cuts the developed plate with pl, measured on the 3D
// faces, and files the developed curves under Stations, Buttocks,
// Waterlines or Diagonals by the plane orientation. Curves of planes fitting
// none of these are returned but not kept.
func (p *Patch) IntersectPlane(pl shipcad.Plane) []*spline.Spline {
	p.update()
	m := p.mesh
	var segs []*spline.Spline
	for _, f := range p.done {
		pts := m.Face(f).Points()
		prev := pts[len(pts)-1]
		side1 := pl.Distance(m.Coord(prev))
		sp := spline.New()
		for _, q := range pts {
			side2 := pl.Distance(m.Coord(q))
			switch {
			case (side1 < -intersectTol && side2 > intersectTol) || (side1 > intersectTol && side2 < -intersectTol):
				t := -side1 / (side2 - side1)
				a, b := p.pts2D[p.index[prev]], p.pts2D[p.index[q]]
				v := r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
				knuckle := false
				if e, ok := m.EdgeBetween(prev, q); ok {
					knuckle = m.Edge(e).Crease()
				}
				sp.AddKnuckle(r3.Vec{X: v.X, Y: v.Y}, knuckle)
			case math.Abs(side2) <= intersectTol:
				v := p.pts2D[p.index[q]]
				sp.AddKnuckle(r3.Vec{X: v.X, Y: v.Y}, m.Point(q).Type != subdiv.Regular)
			}
			prev, side1 = q, side2
		}
		if sp.Len() > 1 && r3.Norm(r3.Sub(sp.First(), sp.Last())) < 1e-4 {
			sp.Delete(sp.Len() - 1)
		}
		if sp.Len() > 1 {
			segs = append(segs, sp)
		}
	}
	if len(segs) > 1 {
		segs = subdiv.JoinSegments(segs, joinTol)
		kept := segs[:0]
		for _, sp := range segs {
			box := sp.Extents()
			if sp.Len() > 1 && r3.Norm2(r3.Sub(box.Max, box.Min)) < 1e-3 {
				continue
			}
			kept = append(kept, sp)
		}
		segs = kept
	}
	if p.mirror {
		for _, sp := range segs {
			mir := sp.Clone()
			for i := 0; i < mir.Len(); i++ {
				mir.SetPoint(i, p.mirrorPlane.Mirror(mir.Point(i)))
			}
			segs = append(segs, mir)
		}
	}
	var dst *[]*spline.Spline
	switch {
	case math.Abs(pl.A) > 0.9999:
		dst = &p.Stations
	case math.Abs(pl.B) > 0.9999:
		dst = &p.Buttocks
	case math.Abs(pl.C) > 0.9999:
		dst = &p.Waterlines
	case math.Abs(pl.B) > 0.5 && math.Abs(pl.C) > 0.5:
		dst = &p.Diagonals
	}
	if dst != nil {
		*dst = append(*dst, segs...)
	}
	return segs
}

// ClearIntersections drops the curves added by IntersectPlane.
func (p *Patch) ClearIntersections() {
	p.Stations, p.Buttocks, p.Waterlines, p.Diagonals = nil, nil, nil, nil
}

// WriteDXF adds the outline, its mirror and the intersection curves of the
// plate to x. The outline goes on a layer named after the patch.
func (p *Patch) WriteDXF(x *render.DXF) error {
	name := p.Name
	if name == "" {
		name = "plate"
	}
	if err := x.AddLayer(name, shipcad.FindDXFColorIndex(p.Color)); err != nil {
		return err
	}
	for _, loops := range [][]orb.Ring{p.BoundaryLoops(), p.MirrorLoops()} {
		for _, r := range loops {
			if len(r) < 2 {
				continue
			}
			if err := x.Ring(name, r); err != nil {
				return err
			}
		}
	}
	t := p.transform()
	for i, curves := range [][]*spline.Spline{p.Stations, p.Buttocks, p.Waterlines, p.Diagonals} {
		if len(curves) == 0 {
			continue
		}
		l := intersectionLayers[i]
		if err := x.AddLayer(l.name, l.aci); err != nil {
			return err
		}
		for _, sp := range curves {
			samples := sp.Sample(sp.Fragments)
			pts := make([]r2.Vec, len(samples))
			for j, v := range samples {
				pts[j] = p.display(t, r2.Vec{X: v.X, Y: v.Y})
			}
			if err := x.Polyline2D(l.name, pts); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveDXF writes the plate drawing to a DXF file at path.
func (p *Patch) SaveDXF(path string) error {
	x := render.NewDXF()
	if err := p.WriteDXF(x); err != nil {
		return err
	}
	return x.SaveAs(path)
}

// SaveText writes the outline coordinates relative to the lower left corner
// of the drawing, one loop per block.
func (p *Patch) SaveText(w io.Writer) error {
	loops := append(p.BoundaryLoops(), p.MirrorLoops()...)
	var origin orb.Point
	first := true
	for _, r := range loops {
		for _, v := range r {
			if first {
				origin, first = v, false
			}
			origin = orb.Point{math.Min(origin[0], v[0]), math.Min(origin[1], v[1])}
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\nBoundary coordinates for: %s\n", p.Name)
	for i, r := range loops {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		for _, v := range r {
			fmt.Fprintf(bw, "%7.3g %7.3g %7.3g\n", v[0]-origin[0], v[1]-origin[1], 0.0)
		}
	}
	return bw.Flush()
}
