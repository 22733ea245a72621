package render

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/soypat/shipcad"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/entity"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DXF is a layered drawing of polylines.
type DXF struct {
	d      *drawing.Drawing
	layers map[string]bool
}

// NewDXF returns an empty drawing.
func NewDXF() *DXF {
	return &DXF{d: dxf.NewDrawing(), layers: make(map[string]bool)}
}

// AddLayer creates the layer name drawn with AutoCAD colour index aci.
// Adding an existing layer is a no-op.
func (x *DXF) AddLayer(name string, aci uint8) error {
	if x.layers[name] {
		return nil
	}
	if _, err := x.d.AddLayer(name, color.ColorNumber(aci), dxf.DefaultLineType, false); err != nil {
		return fmt.Errorf("dxf layer %q: %w", name, err)
	}
	x.layers[name] = true
	return nil
}

// Layers returns the number of layers added.
func (x *DXF) Layers() int { return len(x.layers) }

func (x *DXF) use(layer string) error {
	if !x.layers[layer] {
		return fmt.Errorf("dxf layer %q not added", layer)
	}
	return x.d.ChangeLayer(layer)
}

// Polyline2D adds a lightweight polyline through pts to layer.
func (x *DXF) Polyline2D(layer string, pts []r2.Vec) error {
	if len(pts) < 2 {
		return shipcad.ErrMsg("polyline needs at least two points")
	}
	if err := x.use(layer); err != nil {
		return err
	}
	lwp := entity.NewLwPolyline(len(pts))
	for i, p := range pts {
		lwp.Vertices[i] = []float64{p.X, p.Y}
	}
	x.d.AddEntity(lwp)
	return nil
}

// Ring adds the closed ring r to layer.
func (x *DXF) Ring(layer string, r orb.Ring) error {
	pts := make([]r2.Vec, 0, len(r)+1)
	for _, p := range r {
		pts = append(pts, r2.Vec{X: p[0], Y: p[1]})
	}
	if !r.Closed() && len(pts) > 0 {
		pts = append(pts, pts[0])
	}
	return x.Polyline2D(layer, pts)
}

// Polyline3D adds the segments joining pts to layer.
func (x *DXF) Polyline3D(layer string, pts []r3.Vec) error {
	if len(pts) < 2 {
		return shipcad.ErrMsg("polyline needs at least two points")
	}
	if err := x.use(layer); err != nil {
		return err
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if _, err := x.d.Line(a.X, a.Y, a.Z, b.X, b.Y, b.Z); err != nil {
			return err
		}
	}
	return nil
}

// SaveAs writes the drawing to path.
func (x *DXF) SaveAs(path string) error {
	return x.d.SaveAs(path)
}
