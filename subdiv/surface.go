package subdiv

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxLevel is the deepest subdivision level a surface accepts.
const MaxLevel = 4

// Dependent is a derived object that must be recomputed when the surface changes.
type Dependent interface {
	Invalidate()
}

// Surface is a subdivision surface: a control net, the refined mesh built
// from it, and the layers and control curves referencing the net.
type Surface struct {
	// Logger receives rebuild statistics at debug level. Nil discards them.
	Logger *slog.Logger

	control *Mesh
	refined *Mesh
	layers  []*Layer
	active  *Layer
	curves  []*ControlCurve
	mode    Mode
	level   int
	build   bool
	lastID  int
	deps    []Dependent
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// New returns an empty surface with a single layer and subdivision level 1.
func New() *Surface {
	s := &Surface{control: NewMesh(Control), level: 1}
	s.active = s.AddLayer("")
	return s
}

func (s *Surface) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return discard
}

// Control returns the control net. Callers editing it directly must call SetBuild(false).
func (s *Surface) Control() *Mesh { return s.control }

// Refined returns the refined mesh, rebuilding it first if needed.
func (s *Surface) Refined() *Mesh {
	s.Rebuild()
	return s.refined
}

// Mode returns the refinement rule for triangles.
func (s *Surface) Mode() Mode { return s.mode }

// SetMode changes the refinement rule.
func (s *Surface) SetMode(m Mode) {
	if m != s.mode {
		s.mode = m
		s.SetBuild(false)
	}
}

// DesiredLevel returns the number of times the control net is subdivided.
func (s *Surface) DesiredLevel() int { return s.level }

// SetDesiredLevel sets the subdivision level, clamped to [0, MaxLevel].
func (s *Surface) SetDesiredLevel(n int) {
	if n < 0 {
		n = 0
	} else if n > MaxLevel {
		n = MaxLevel
	}
	if n != s.level {
		s.level = n
		s.SetBuild(false)
	}
}

// Build reports whether the refined mesh is up to date.
func (s *Surface) Build() bool { return s.build }

// SetBuild(false) marks the refined mesh stale and invalidates every
// registered dependent. SetBuild(true) rebuilds.
func (s *Surface) SetBuild(val bool) {
	if val {
		s.Rebuild()
		return
	}
	s.build = false
	for _, d := range s.deps {
		d.Invalidate()
	}
}

// Register adds d to the objects invalidated on every change.
func (s *Surface) Register(d Dependent) {
	for _, have := range s.deps {
		if have == d {
			return
		}
	}
	s.deps = append(s.deps, d)
}

// Unregister removes d from the dependency list.
func (s *Surface) Unregister(d Dependent) {
	for i, have := range s.deps {
		if have == d {
			s.deps = append(s.deps[:i], s.deps[i+1:]...)
			return
		}
	}
}

// Rebuild subdivides the control net DesiredLevel times if the refined mesh is stale.
func (s *Surface) Rebuild() {
	if s.build && s.refined != nil {
		return
	}
	curvePts := make([][]PointID, len(s.curves))
	var mesh *Mesh
	var ref refinement
	src := s.control
	if s.level == 0 {
		mesh, ref = copyRefined(src)
		for i, c := range s.curves {
			if c != nil {
				curvePts[i] = refineCurve(src, ref, c.points, false)
			}
		}
	} else {
		for i, c := range s.curves {
			if c != nil {
				curvePts[i] = c.points
			}
		}
		for lvl := 0; lvl < s.level; lvl++ {
			mesh, ref = subdivide(src, s.mode)
			for i := range curvePts {
				if curvePts[i] != nil {
					curvePts[i] = refineCurve(src, ref, curvePts[i], true)
				}
			}
			src = mesh
		}
	}
	s.refined = mesh
	for _, f := range s.control.FaceIDs() {
		ctrl := s.control.faces[f].Ctrl
		ctrl.Children = ctrl.Children[:0]
		ctrl.box = d3.EmptyBox()
	}
	for _, f := range mesh.FaceIDs() {
		ctrl := s.control.Face(mesh.faces[f].Parent).Ctrl
		ctrl.Children = append(ctrl.Children, f)
		ctrl.box = ctrl.box.Extend(mesh.FaceExtents(f))
	}
	for i, c := range s.curves {
		if c != nil {
			c.rebuild(mesh, curvePts[i])
		}
	}
	s.build = true
	s.log().Debug("surface rebuilt", "level", s.level, "mode", s.mode.String(),
		"controlFaces", s.control.NumFaces(), "faces", mesh.NumFaces(), "points", mesh.NumPoints())
}

// refineCurve maps a polyline of source points onto the refined mesh.
// With edges set the edge points between consecutive points are inserted.
func refineCurve(src *Mesh, ref refinement, pts []PointID, edges bool) []PointID {
	out := make([]PointID, 0, 2*len(pts))
	for i, p := range pts {
		if ref.vp[p] == NoPoint {
			continue
		}
		out = append(out, ref.vp[p])
		if !edges || i == len(pts)-1 {
			continue
		}
		if e, ok := src.EdgeBetween(p, pts[i+1]); ok && ref.ep[e] != NoPoint {
			out = append(out, ref.ep[e])
		}
	}
	return out
}

// Layers returns the layers in display order. The slice must not be modified.
func (s *Surface) Layers() []*Layer { return s.layers }

// ActiveLayer returns the layer new faces are assigned to.
func (s *Surface) ActiveLayer() *Layer { return s.active }

// SetActiveLayer sets the layer new faces are assigned to.
func (s *Surface) SetActiveLayer(l *Layer) error {
	if l.surface != s {
		return ErrNoLayer
	}
	s.active = l
	return nil
}

// AddLayer appends a layer with a fresh ID. An empty name gets a default.
func (s *Surface) AddLayer(name string) *Layer {
	s.lastID++
	if name == "" {
		name = fmt.Sprintf("Layer_%d", s.lastID)
	}
	l := newLayer(s, s.lastID, name)
	s.layers = append(s.layers, l)
	return l
}

// DeleteLayer removes an empty layer.
func (s *Surface) DeleteLayer(l *Layer) error {
	i := l.Index()
	switch {
	case i < 0 || l.surface != s:
		return ErrNoLayer
	case len(l.faces) > 0:
		return ErrLayerNotEmpty
	case len(s.layers) == 1:
		return ErrLastLayer
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	if s.active == l {
		s.active = s.layers[0]
	}
	l.surface = nil
	return nil
}

// AddControlPoint adds an isolated control point.
func (s *Surface) AddControlPoint(c r3.Vec) PointID {
	s.SetBuild(false)
	return s.control.AddPoint(c)
}

// MoveControlPoint moves a control point. Locked points do not move.
func (s *Surface) MoveControlPoint(p PointID, c r3.Vec) error {
	pt, ok := s.control.LookupPoint(p)
	if !ok {
		return ErrNoPoint
	}
	if pt.Ctrl.Locked {
		return nil
	}
	pt.Coord = c
	s.SetBuild(false)
	return nil
}

// SetCorner marks a control point as a corner, or reclassifies it from its
// crease edges when corner is false.
func (s *Surface) SetCorner(p PointID, corner bool) error {
	pt, ok := s.control.LookupPoint(p)
	if !ok {
		return ErrNoPoint
	}
	if corner {
		pt.Type = Corner
	} else {
		pt.Type = typeFromCreases(s.control.creaseCount(p))
	}
	s.SetBuild(false)
	return nil
}

// ControlEdgeExists returns the control edge between a and b.
func (s *Surface) ControlEdgeExists(a, b PointID) (EdgeID, bool) {
	return s.control.EdgeBetween(a, b)
}

// EdgeExists returns the refined edge between a and b.
func (s *Surface) EdgeExists(a, b PointID) (EdgeID, bool) {
	return s.Refined().EdgeBetween(a, b)
}

// AddControlFace adds a face over existing control points to layer, or to
// the active layer when layer is nil. New edges are boundary creases and
// edges gaining a second face become smooth.
func (s *Surface) AddControlFace(pts []PointID, layer *Layer) (FaceID, error) {
	if layer == nil {
		layer = s.active
	}
	if layer.surface != s {
		return NoFace, ErrNoLayer
	}
	if len(pts) < 3 {
		return NoFace, ErrFewPoints
	}
	seen := make(map[PointID]bool, len(pts))
	for _, p := range pts {
		if _, ok := s.control.LookupPoint(p); !ok {
			return NoFace, fmt.Errorf("point %d: %w", p, ErrNoPoint)
		}
		if seen[p] {
			return NoFace, ErrFewPoints
		}
		seen[p] = true
	}
	if s.findFace(pts) != NoFace {
		return NoFace, ErrFaceExists
	}
	f := s.control.AddFace(pts...)
	s.control.faces[f].Ctrl.Layer = layer
	layer.addFace(f)
	prev := pts[len(pts)-1]
	for _, p := range pts {
		e, _ := s.control.EdgeBetween(prev, p)
		switch len(s.control.edges[e].faces) {
		case 1:
			s.control.SetCrease(e, true)
		case 2:
			s.control.SetCrease(e, false)
		}
		prev = p
	}
	s.SetBuild(false)
	return f, nil
}

// findFace returns a face over exactly the points in pts.
func (s *Surface) findFace(pts []PointID) FaceID {
	for _, f := range s.control.points[pts[0]].faces {
		ring := s.control.faces[f].points
		if len(ring) != len(pts) {
			continue
		}
		match := true
		for _, p := range pts {
			if s.control.faces[f].indexOf(p) < 0 {
				match = false
				break
			}
		}
		if match {
			return f
		}
	}
	return NoFace
}

// AddControlFaceAt adds a face through coordinates, reusing control points
// that already sit at a coordinate.
func (s *Surface) AddControlFaceAt(coords []r3.Vec, layer *Layer) (FaceID, error) {
	pts := make([]PointID, len(coords))
	for i, c := range coords {
		pts[i] = s.controlPointAt(c)
	}
	return s.AddControlFace(pts, layer)
}

func (s *Surface) controlPointAt(c r3.Vec) PointID {
	for i := range s.control.points {
		pt := &s.control.points[i]
		if !pt.dead && d3.EqualWithin(pt.Coord, c, 1e-9) {
			return PointID(i)
		}
	}
	return s.AddControlPoint(c)
}

// SetFaceLayer moves a control face to another layer.
func (s *Surface) SetFaceLayer(f FaceID, layer *Layer) error {
	face, ok := s.control.LookupFace(f)
	if !ok {
		return ErrNoFace
	}
	if layer.surface != s {
		return ErrNoLayer
	}
	if old := face.Ctrl.Layer; old != nil {
		old.removeFace(f)
	}
	face.Ctrl.Layer = layer
	layer.addFace(f)
	s.SetBuild(false)
	return nil
}

// DeleteControlFace removes a control face. Edges and points left unused go with it.
func (s *Surface) DeleteControlFace(f FaceID) error {
	face, ok := s.control.LookupFace(f)
	if !ok {
		return ErrNoFace
	}
	if face.Ctrl.Layer != nil {
		face.Ctrl.Layer.removeFace(f)
	}
	s.control.DeleteFace(f)
	s.SetBuild(false)
	return nil
}

// DeleteControlEdge removes a control edge and the faces using it.
func (s *Surface) DeleteControlEdge(e EdgeID) error {
	edge, ok := s.control.LookupEdge(e)
	if !ok {
		return ErrNoEdge
	}
	for _, f := range edge.faces {
		if l := s.control.faces[f].Ctrl.Layer; l != nil {
			l.removeFace(f)
		}
	}
	s.removeCurveEdge(e)
	s.control.DeleteEdge(e)
	s.SetBuild(false)
	return nil
}

// DeleteControlPoint removes a control point with its edges and faces.
func (s *Surface) DeleteControlPoint(p PointID) error {
	pt, ok := s.control.LookupPoint(p)
	if !ok {
		return ErrNoPoint
	}
	for _, f := range pt.faces {
		if l := s.control.faces[f].Ctrl.Layer; l != nil {
			l.removeFace(f)
		}
	}
	for _, e := range pt.edges {
		s.removeCurveEdge(e)
	}
	s.control.DeletePoint(p)
	s.SetBuild(false)
	return nil
}

// SetCrease sets the crease flag of a control edge.
func (s *Surface) SetCrease(e EdgeID, val bool) error {
	if _, ok := s.control.LookupEdge(e); !ok {
		return ErrNoEdge
	}
	before := s.control.edges[e].crease
	s.control.SetCrease(e, val)
	if s.control.edges[e].crease != before {
		s.SetBuild(false)
	}
	return nil
}

// Extents returns the bounding box of the refined mesh, including the
// mirrored half of symmetric layers.
func (s *Surface) Extents() d3.Box {
	ref := s.Refined()
	box := d3.EmptyBox()
	for _, f := range ref.FaceIDs() {
		fb := ref.FaceExtents(f)
		box = box.Extend(fb)
		if l := s.faceLayer(ref, f); l != nil && l.Symmetric {
			box = box.Include(d3.MirrorY(fb.Min)).Include(d3.MirrorY(fb.Max))
		}
	}
	return box
}

// faceLayer returns the layer of the control face a refined face descends from.
func (s *Surface) faceLayer(ref *Mesh, f FaceID) *Layer {
	parent := ref.faces[f].Parent
	if parent == NoFace {
		return nil
	}
	return s.control.Face(parent).Ctrl.Layer
}

// Triangle is a refined triangle tagged with the layer it belongs to.
type Triangle struct {
	P     [3]r3.Vec
	Layer *Layer
}

// Triangles fan triangulates the refined faces of the layers accepted by use.
// With mirror set, faces of symmetric layers are repeated on the port side
// with reversed winding so their normals keep pointing outward.
func (s *Surface) Triangles(use func(*Layer) bool, mirror bool) []Triangle {
	ref := s.Refined()
	var tris []Triangle
	for _, f := range ref.FaceIDs() {
		l := s.faceLayer(ref, f)
		if l == nil || (use != nil && !use(l)) {
			continue
		}
		pts := ref.faces[f].points
		p0 := ref.points[pts[0]].Coord
		for i := 2; i < len(pts); i++ {
			p1 := ref.points[pts[i-1]].Coord
			p2 := ref.points[pts[i]].Coord
			tris = append(tris, Triangle{P: [3]r3.Vec{p0, p1, p2}, Layer: l})
			if mirror && l.Symmetric {
				tris = append(tris, Triangle{
					P:     [3]r3.Vec{d3.MirrorY(p0), d3.MirrorY(p2), d3.MirrorY(p1)},
					Layer: l,
				})
			}
		}
	}
	return tris
}

// LeakPoints returns the refined points off the centreplane that sit on an
// edge bounding a single face of the layers accepted by use. On a closed
// hull every such point is an opening in the plating.
func (s *Surface) LeakPoints(use func(*Layer) bool) []r3.Vec {
	ref := s.Refined()
	var leaks []r3.Vec
	seen := make(map[PointID]bool)
	for _, e := range ref.EdgeIDs() {
		edge := &ref.edges[e]
		n := 0
		for _, f := range edge.faces {
			if l := s.faceLayer(ref, f); l != nil && (use == nil || use(l)) {
				n++
			}
		}
		if n != 1 {
			continue
		}
		for _, p := range edge.P {
			c := ref.points[p].Coord
			if !seen[p] && offCentre(c) {
				seen[p] = true
				leaks = append(leaks, c)
			}
		}
	}
	return leaks
}

// UsedInHydrostatics selects the layers taking part in hydrostatics.
func UsedInHydrostatics(l *Layer) bool { return l.UseInHydrostatics }

// UsedForIntersections selects the layers intersections are computed for.
func UsedForIntersections(l *Layer) bool { return l.UseForIntersections }
