package subdiv

import (
	"github.com/soypat/shipcad/spline"
)

// ControlCurve is a polyline of control points along control edges. It is
// subdivided with the surface, so its spline lies on the refined surface.
type ControlCurve struct {
	ID       CurveID
	Selected bool
	Visible  bool

	points    []PointID
	divPoints []PointID
	spline    *spline.Spline
	surface   *Surface
}

// Points returns the control points of the curve. The slice must not be modified.
func (c *ControlCurve) Points() []PointID { return c.points }

// DivPoints returns the refined points of the curve after the last rebuild.
func (c *ControlCurve) DivPoints() []PointID { return c.divPoints }

// Spline returns the curve through the refined points, rebuilding the surface first.
func (c *ControlCurve) Spline() *spline.Spline {
	c.surface.Rebuild()
	return c.spline
}

func (c *ControlCurve) rebuild(m *Mesh, pts []PointID) {
	c.divPoints = pts
	c.spline = spline.New()
	for i, p := range pts {
		pt := m.Point(p)
		knuckle := i > 0 && i < len(pts)-1 && pt.Type == Corner
		c.spline.AddKnuckle(pt.Coord, knuckle)
	}
}

// AddControlCurve adds a curve through control points joined by control edges.
func (s *Surface) AddControlCurve(pts []PointID) (*ControlCurve, error) {
	if len(pts) < 2 {
		return nil, ErrBadCurve
	}
	edges := make([]EdgeID, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		e, ok := s.control.EdgeBetween(pts[i-1], pts[i])
		if !ok || s.control.edges[e].Curve != NoCurve {
			return nil, ErrBadCurve
		}
		edges = append(edges, e)
	}
	c := &ControlCurve{
		ID:      CurveID(len(s.curves)),
		Visible: true,
		points:  append([]PointID(nil), pts...),
		surface: s,
	}
	s.curves = append(s.curves, c)
	for _, e := range edges {
		s.control.edges[e].Curve = c.ID
	}
	s.SetBuild(false)
	return c, nil
}

// Curves returns the live control curves.
func (s *Surface) Curves() []*ControlCurve {
	out := make([]*ControlCurve, 0, len(s.curves))
	for _, c := range s.curves {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// DeleteControlCurve removes a curve. Its edges stay in the control net.
func (s *Surface) DeleteControlCurve(c *ControlCurve) {
	if c == nil || int(c.ID) >= len(s.curves) || s.curves[c.ID] != c {
		return
	}
	for _, e := range s.control.EdgeIDs() {
		if s.control.edges[e].Curve == c.ID {
			s.control.edges[e].Curve = NoCurve
		}
	}
	s.curves[c.ID] = nil
	c.surface = nil
	s.SetBuild(false)
}

// removeCurveEdge drops the curve running over an edge about to be deleted.
func (s *Surface) removeCurveEdge(e EdgeID) {
	id := s.control.edges[e].Curve
	if id != NoCurve && s.curves[id] != nil {
		s.DeleteControlCurve(s.curves[id])
	}
}

// insertCurvePoint inserts p between a and b on the curve running over a-b.
func (s *Surface) insertCurvePoint(id CurveID, a, b, p PointID) {
	if id == NoCurve || s.curves[id] == nil {
		return
	}
	c := s.curves[id]
	for i := 1; i < len(c.points); i++ {
		if (c.points[i-1] == a && c.points[i] == b) || (c.points[i-1] == b && c.points[i] == a) {
			c.points = append(c.points[:i], append([]PointID{p}, c.points[i:]...)...)
			return
		}
	}
}
