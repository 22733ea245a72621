package intersection

import (
	"github.com/soypat/shipcad/render"
)

// dxfColor is the AutoCAD colour index of each intersection type.
var dxfColor = [...]uint8{Free: 7, Station: 1, Buttock: 3, Waterline: 5, Diagonal: 6}

// WriteDXF draws the splines of x as 3D polylines on a layer named after
// its type.
func (x *Intersection) WriteDXF(d *render.DXF) error {
	layer := x.Type.String()
	aci := uint8(7)
	if int(x.Type) >= 0 && int(x.Type) < len(dxfColor) {
		aci = dxfColor[x.Type]
	}
	if err := d.AddLayer(layer, aci); err != nil {
		return err
	}
	for _, sp := range x.Splines() {
		if sp.Len() < 2 {
			continue
		}
		if err := d.Polyline3D(layer, sp.Sample(sp.Fragments)); err != nil {
			return err
		}
	}
	return nil
}
