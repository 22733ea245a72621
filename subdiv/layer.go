package subdiv

import (
	"image/color"

	"github.com/samber/lo"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Layer groups control faces sharing display, material and hydrostatic
// properties. Layers reference faces, they own no geometry.
type Layer struct {
	ID          int
	Name        string
	Description string
	Color       color.RGBA
	Alpha       uint8

	Visible             bool
	Symmetric           bool
	Developable         bool
	UseForIntersections bool
	UseInHydrostatics   bool
	ShowInLinesplan     bool

	// MaterialDensity is in mass per volume, Thickness in model length units.
	MaterialDensity float64
	Thickness       float64

	surface *Surface
	faces   []FaceID
}

// DefaultLayerColor is the colour given to new layers.
var DefaultLayerColor = color.RGBA{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF}

func newLayer(s *Surface, id int, name string) *Layer {
	return &Layer{
		ID:                  id,
		Name:                name,
		Color:               DefaultLayerColor,
		Alpha:               255,
		Visible:             true,
		Symmetric:           true,
		UseForIntersections: true,
		UseInHydrostatics:   true,
		ShowInLinesplan:     true,
		surface:             s,
	}
}

// Faces returns the control faces of the layer. The slice must not be modified.
func (l *Layer) Faces() []FaceID { return l.faces }

// NumFaces returns the number of control faces in the layer.
func (l *Layer) NumFaces() int { return len(l.faces) }

// Index returns the position of the layer in its surface.
func (l *Layer) Index() int {
	if l.surface == nil {
		return -1
	}
	return lo.IndexOf(l.surface.layers, l)
}

func (l *Layer) addFace(f FaceID) {
	if !lo.Contains(l.faces, f) {
		l.faces = append(l.faces, f)
	}
}

func (l *Layer) removeFace(f FaceID) {
	l.faces = removeID(l.faces, f)
}

// AssignProperties copies every property but identity and faces from src.
func (l *Layer) AssignProperties(src *Layer) {
	id, name, s, faces := l.ID, l.Name, l.surface, l.faces
	*l = *src
	l.ID, l.Name, l.surface, l.faces = id, name, s, faces
	if s != nil {
		s.SetBuild(false)
	}
}

// MoveUp swaps the layer with the one before it.
func (l *Layer) MoveUp() {
	i := l.Index()
	if i > 0 {
		ls := l.surface.layers
		ls[i-1], ls[i] = ls[i], ls[i-1]
	}
}

// MoveDown swaps the layer with the one after it.
func (l *Layer) MoveDown() {
	i := l.Index()
	if i >= 0 && i < len(l.surface.layers)-1 {
		ls := l.surface.layers
		ls[i+1], ls[i] = ls[i], ls[i+1]
	}
}

// Extents returns the bounding box of the layer's refined faces, including
// the mirrored half on symmetric layers.
func (l *Layer) Extents() d3.Box {
	box := d3.EmptyBox()
	ctrl := l.surface.control
	for _, f := range l.faces {
		fb := ctrl.faces[f].Ctrl.box
		if fb.Empty() {
			fb = ctrl.FaceExtents(f)
		}
		box = box.Extend(fb)
		if l.Symmetric {
			box = box.Include(d3.MirrorY(fb.Min)).Include(d3.MirrorY(fb.Max))
		}
	}
	return box
}

// Properties are the plating quantities of a layer.
type Properties struct {
	Area   float64
	Weight float64
	// COG is the centre of gravity of the plating.
	COG r3.Vec
}

// SurfaceProperties integrates area, weight and centre of gravity over the
// refined faces of the layer. Symmetric layers count both sides.
func (l *Layer) SurfaceProperties() Properties {
	var props Properties
	var moment r3.Vec
	ref := l.surface.Refined()
	for _, cf := range l.faces {
		for _, child := range l.surface.control.faces[cf].Ctrl.Children {
			pts := ref.faces[child].points
			p0 := ref.points[pts[0]].Coord
			for i := 2; i < len(pts); i++ {
				p1 := ref.points[pts[i-1]].Coord
				p2 := ref.points[pts[i]].Coord
				a := shipcad.TriangleArea(p0, p1, p2)
				c := r3.Scale(1.0/3, r3.Add(p0, r3.Add(p1, p2)))
				props.Area += a
				moment = r3.Add(moment, r3.Scale(a, c))
			}
		}
	}
	if l.Symmetric {
		props.Area *= 2
		moment = r3.Vec{X: 2 * moment.X, Y: 0, Z: 2 * moment.Z}
	}
	if props.Area > 0 {
		props.COG = r3.Scale(1/props.Area, moment)
	}
	props.Weight = props.Area * l.Thickness * l.MaterialDensity
	return props
}

// ConnectedFaceSets groups the layer's faces into sets connected across
// non crease edges.
func (l *Layer) ConnectedFaceSets() [][]FaceID {
	ctrl := l.surface.control
	inLayer := make(map[FaceID]bool, len(l.faces))
	for _, f := range l.faces {
		inLayer[f] = true
	}
	done := make(map[FaceID]bool, len(l.faces))
	var sets [][]FaceID
	for _, seed := range l.faces {
		if done[seed] {
			continue
		}
		set := []FaceID{seed}
		done[seed] = true
		for i := 0; i < len(set); i++ {
			pts := ctrl.faces[set[i]].points
			prev := pts[len(pts)-1]
			for _, p := range pts {
				e, _ := ctrl.EdgeBetween(prev, p)
				prev = p
				if e == NoEdge || ctrl.edges[e].crease {
					continue
				}
				for _, nb := range ctrl.edges[e].faces {
					if inLayer[nb] && !done[nb] {
						done[nb] = true
						set = append(set, nb)
					}
				}
			}
		}
		sets = append(sets, set)
	}
	return sets
}

// SaveBinary writes the layer properties.
func (l *Layer) SaveBinary(buf *filebuf.Buffer) {
	buf.AddString(l.Name)
	buf.AddInt(l.ID)
	buf.AddColor(l.Color)
	buf.AddBool(l.Visible)
	buf.AddBool(l.Symmetric)
	buf.AddBool(l.Developable)
	buf.AddBool(l.UseForIntersections)
	buf.AddBool(l.UseInHydrostatics)
	buf.AddFloat(l.MaterialDensity)
	buf.AddFloat(l.Thickness)
	if buf.AtLeast(shipcad.V180) {
		buf.AddBool(l.ShowInLinesplan)
		if buf.AtLeast(shipcad.V250) {
			buf.AddInt(int(l.Alpha))
			if buf.AtLeast(shipcad.V260) {
				buf.AddString(l.Description)
			}
		}
	}
}

// LoadBinary reads the layer properties written by SaveBinary.
func (l *Layer) LoadBinary(buf *filebuf.Buffer) (err error) {
	load := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	load(func() (e error) { l.Name, e = buf.LoadString(); return })
	load(func() (e error) { l.ID, e = buf.LoadInt(); return })
	load(func() (e error) { l.Color, e = buf.LoadColor(); return })
	load(func() (e error) { l.Visible, e = buf.LoadBool(); return })
	load(func() (e error) { l.Symmetric, e = buf.LoadBool(); return })
	load(func() (e error) { l.Developable, e = buf.LoadBool(); return })
	load(func() (e error) { l.UseForIntersections, e = buf.LoadBool(); return })
	load(func() (e error) { l.UseInHydrostatics, e = buf.LoadBool(); return })
	load(func() (e error) { l.MaterialDensity, e = buf.LoadFloat(); return })
	load(func() (e error) { l.Thickness, e = buf.LoadFloat(); return })
	l.ShowInLinesplan, l.Alpha, l.Description = true, 255, ""
	if buf.AtLeast(shipcad.V180) {
		load(func() (e error) { l.ShowInLinesplan, e = buf.LoadBool(); return })
		if buf.AtLeast(shipcad.V250) {
			load(func() error {
				a, e := buf.LoadInt()
				l.Alpha = uint8(shipcad.Clamp(float64(a), 0, 255))
				return e
			})
			if buf.AtLeast(shipcad.V260) {
				load(func() (e error) { l.Description, e = buf.LoadString(); return })
			}
		}
	}
	return err
}
