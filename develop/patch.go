// Package develop flattens plates of a hull surface into the plane.
//
// A Patch is unrolled triangle by triangle from a seed face, placing each
// new point from the true 3D edge lengths. Doubly curved plates cannot be
// flattened exactly; the remaining edge length and area errors are kept
// per edge and per face so the plate can be judged before cutting.
package develop

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/internal/d2"
	"github.com/soypat/shipcad/spline"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Patch is the developed shape of a connected set of refined faces.
type Patch struct {
	Name  string
	Color color.RGBA
	// Translation moves the developed shape in the drawing plane.
	Translation r2.Vec
	// Logger receives unroll statistics at debug level. Nil discards them.
	Logger *slog.Logger

	// Intersections of the developed shape, in undisplayed plate coordinates.
	Stations, Buttocks, Waterlines, Diagonals []*spline.Spline

	mesh      *subdiv.Mesh
	faces     []subdiv.FaceID
	faceIndex map[subdiv.FaceID]int
	points    []subdiv.PointID
	index     map[subdiv.PointID]int
	edges     []subdiv.EdgeID

	pts2D  []r2.Vec
	placed []bool
	done   []subdiv.FaceID

	edgeErrors     []float64
	faceErrors     []float64
	maxAreaError   float64
	totalAreaError float64
	iterations     int

	boundary []subdiv.EdgeID
	corners  []subdiv.PointID
	box      d2.Box

	rotation       float64
	mirrorOnScreen bool
	mirror         bool
	mirrorPlane    shipcad.Plane

	// Set by UnrollLayer: the source the patch is developed again from
	// after the surface invalidates it.
	surface   *subdiv.Surface
	layer     *subdiv.Layer
	set       []subdiv.FaceID
	symmetric bool
	stale     bool
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func (p *Patch) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return discard
}

// UnrollLayer develops every set of faces of l connected across non crease
// edges. Each set becomes one Patch named after the layer. The patches are
// registered with s and developed again on first use after s changes.
func UnrollLayer(s *subdiv.Surface, l *subdiv.Layer) []*Patch {
	sets := l.ConnectedFaceSets()
	patches := make([]*Patch, 0, len(sets))
	for i, set := range sets {
		p := &Patch{Name: l.Name, Color: l.Color, Logger: s.Logger}
		if len(sets) > 1 {
			p.Name = fmt.Sprintf("%s (%d)", l.Name, i+1)
		}
		p.surface, p.layer, p.set, p.symmetric = s, l, set, l.Symmetric
		p.develop()
		s.Register(p)
		patches = append(patches, p)
	}
	return patches
}

// develop unrolls the refined children of the patch's control faces that
// are still in its layer.
func (p *Patch) develop() {
	s := p.surface
	ref := s.Refined()
	inLayer := make(map[subdiv.FaceID]bool, p.layer.NumFaces())
	for _, f := range p.layer.Faces() {
		inLayer[f] = true
	}
	var faces []subdiv.FaceID
	for _, cf := range p.set {
		if inLayer[cf] {
			faces = append(faces, s.Control().Face(cf).Ctrl.Children...)
		}
	}
	p.Unroll(ref, faces, p.symmetric)
}

// Invalidate marks the developed shape stale. The next query unrolls the
// patch again and drops its intersection curves.
func (p *Patch) Invalidate() { p.stale = p.surface != nil }

// Stale reports whether the surface changed since the patch was unrolled.
func (p *Patch) Stale() bool { return p.stale }

// Detach unregisters the patch from its surface. The developed shape is
// kept as it is.
func (p *Patch) Detach() {
	if p.surface != nil {
		p.surface.Unregister(p)
		p.surface = nil
	}
	p.stale = false
}

func (p *Patch) update() {
	if p.stale && p.surface != nil {
		p.develop()
	}
}

// Iterations returns the number of seed faces tried by the last Unroll.
func (p *Patch) Iterations() int { return p.iterations }

// NumPoints returns the number of points of the patch.
func (p *Patch) NumPoints() int {
	p.update()
	return len(p.points)
}

// Faces returns the refined faces of the patch.
func (p *Patch) Faces() []subdiv.FaceID {
	p.update()
	return p.faces
}

// Corners returns the points bounding a single face of the patch and the
// corner vertices, used for dimensioning.
func (p *Patch) Corners() []subdiv.PointID {
	p.update()
	return p.corners
}

// Mirror reports whether the plate continues mirrored across the centreline.
func (p *Patch) Mirror() bool {
	p.update()
	return p.mirror
}

// MirrorPlane returns the vertical plane the plate is mirrored in.
func (p *Patch) MirrorPlane() shipcad.Plane { return p.mirrorPlane }

// Rotation returns the drawing rotation in degrees.
func (p *Patch) Rotation() float64 { return p.rotation }

// SetRotation sets the drawing rotation in degrees.
func (p *Patch) SetRotation(deg float64) { p.rotation = deg }

// MirrorOnScreen reports whether the plate is drawn flipped.
func (p *Patch) MirrorOnScreen() bool { return p.mirrorOnScreen }

// SetMirrorOnScreen flips the drawing about the plate's x axis. Mirrored
// plates are never flipped.
func (p *Patch) SetMirrorOnScreen(v bool) {
	if v == p.mirrorOnScreen || p.mirror {
		return
	}
	p.mirrorOnScreen = v
	p.box.Min.Y, p.box.Max.Y = -p.box.Max.Y, -p.box.Min.Y
	p.rotation = -p.rotation
}

// Min2D and Max2D bound the developed points before rotation.
func (p *Patch) Min2D() r2.Vec { return p.box.Min }
func (p *Patch) Max2D() r2.Vec { return p.box.Max }

// transform returns the drawing transform: a rotation about the middle of
// the plate followed by the translation.
func (p *Patch) transform() d2.Transform {
	mid := p.box.Center()
	return d2.Translate(p.Translation).Mul(d2.RotateAbout(mid, shipcad.DtoR(p.rotation)))
}

func (p *Patch) display(t d2.Transform, v r2.Vec) r2.Vec {
	if p.mirrorOnScreen && !p.mirror {
		v.Y = -v.Y
	}
	return t.Apply(v)
}

// Point returns point i in drawing coordinates.
func (p *Patch) Point(i int) r2.Vec {
	p.update()
	return p.display(p.transform(), p.pts2D[i])
}

// MirrorPoint returns the mirror image of point i in drawing coordinates.
func (p *Patch) MirrorPoint(i int) r2.Vec {
	p.update()
	return p.display(p.transform(), p.mirrored(p.pts2D[i]))
}

func (p *Patch) mirrored(v r2.Vec) r2.Vec {
	m := p.mirrorPlane.Mirror(r3.Vec{X: v.X, Y: v.Y})
	return r2.Vec{X: m.X, Y: m.Y}
}

// ConvertTo3D returns the plate coordinate v in drawing coordinates on z=0.
func (p *Patch) ConvertTo3D(v r2.Vec) r3.Vec {
	d := p.display(p.transform(), v)
	return r3.Vec{X: d.X, Y: d.Y}
}

// Extents returns the drawing bounds of the plate, including its mirror.
func (p *Patch) Extents() orb.Bound {
	p.update()
	if len(p.points) == 0 {
		return orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	}
	t := p.transform()
	mp := make(orb.MultiPoint, 0, 2*len(p.points))
	for _, v := range p.pts2D {
		d := p.display(t, v)
		mp = append(mp, orb.Point{d.X, d.Y})
		if p.mirror {
			d = p.display(t, p.mirrored(v))
			mp = append(mp, orb.Point{d.X, d.Y})
		}
	}
	return mp.Bound()
}

// EdgeErrors returns the absolute difference between the developed and the
// true length of each edge.
func (p *Patch) EdgeErrors() []float64 {
	p.update()
	return append([]float64(nil), p.edgeErrors...)
}

// FaceErrors returns the absolute difference between the developed and the
// true area of each face, in the order of Faces.
func (p *Patch) FaceErrors() []float64 {
	p.update()
	return append([]float64(nil), p.faceErrors...)
}

// MaxError returns the largest edge length error.
func (p *Patch) MaxError() float64 {
	p.update()
	var m float64
	for _, e := range p.edgeErrors {
		m = math.Max(m, e)
	}
	return m
}

// MaxAreaError returns the largest face area error.
func (p *Patch) MaxAreaError() float64 {
	p.update()
	return p.maxAreaError
}

// TotalAreaError returns the signed sum of face area errors.
func (p *Patch) TotalAreaError() float64 {
	p.update()
	return p.totalAreaError
}

// Area2D returns the developed area, including the mirrored half.
func (p *Patch) Area2D() float64 {
	p.update()
	var area float64
	for _, f := range p.faces {
		pts := p.mesh.Face(f).Points()
		ring := make(orb.Ring, 0, len(pts)+1)
		for _, q := range pts {
			v := p.pts2D[p.index[q]]
			ring = append(ring, orb.Point{v.X, v.Y})
		}
		ring = append(ring, ring[0])
		area += math.Abs(planar.Area(ring))
	}
	if p.mirror {
		area *= 2
	}
	return area
}

// Area3D returns the true area of the faces, including the mirrored half.
func (p *Patch) Area3D() float64 {
	p.update()
	var area float64
	for _, f := range p.faces {
		area += p.mesh.FaceArea(f)
	}
	if p.mirror {
		area *= 2
	}
	return area
}

// BoundaryLoops returns the outline of the plate in drawing coordinates.
// Closed outlines repeat their first point.
func (p *Patch) BoundaryLoops() []orb.Ring { return p.loops(false) }

// MirrorLoops returns the outline of the mirrored half, or nil when the
// plate is not mirrored.
func (p *Patch) MirrorLoops() []orb.Ring {
	if !p.mirror {
		return nil
	}
	return p.loops(true)
}

func (p *Patch) loops(mirror bool) []orb.Ring {
	p.update()
	t := p.transform()
	var rings []orb.Ring
	for _, chain := range p.mesh.ChainEdges(p.boundary) {
		ring := make(orb.Ring, 0, len(chain))
		for _, q := range chain {
			v := p.pts2D[p.index[q]]
			if mirror {
				v = p.mirrored(v)
			}
			d := p.display(t, v)
			ring = append(ring, orb.Point{d.X, d.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
