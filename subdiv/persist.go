package subdiv

import (
	"fmt"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
)

// SaveBinary writes the layers and the control net. Points, edges and
// faces are written in arena order with dead entries skipped, so the file
// stores dense indices.
func (s *Surface) SaveBinary(buf *filebuf.Buffer) {
	buf.AddInt(len(s.layers))
	for _, l := range s.layers {
		l.SaveBinary(buf)
	}
	buf.AddInt(s.active.Index())

	ctrl := s.control
	pidx := make(map[PointID]int, ctrl.NumPoints())
	buf.AddInt(ctrl.NumPoints())
	for _, p := range ctrl.PointIDs() {
		pidx[p] = len(pidx)
		savePoint(buf, &ctrl.points[p])
	}
	buf.AddInt(ctrl.NumEdges())
	for _, e := range ctrl.EdgeIDs() {
		edge := &ctrl.edges[e]
		buf.AddInt(pidx[edge.P[0]])
		buf.AddInt(pidx[edge.P[1]])
		buf.AddBool(edge.crease)
		buf.AddBool(edge.Ctrl.Selected)
	}
	if buf.AtLeast(shipcad.V191) {
		curves := s.Curves()
		buf.AddInt(len(curves))
		for _, c := range curves {
			buf.AddInt(len(c.points))
			for _, p := range c.points {
				buf.AddInt(pidx[p])
			}
			buf.AddBool(c.Selected)
			buf.AddBool(c.Visible)
		}
	}
	buf.AddInt(ctrl.NumFaces())
	for _, f := range ctrl.FaceIDs() {
		face := &ctrl.faces[f]
		buf.AddInt(len(face.points))
		for _, p := range face.points {
			buf.AddInt(pidx[p])
		}
		li := -1
		if face.Ctrl.Layer != nil {
			li = face.Ctrl.Layer.Index()
		}
		buf.AddInt(li)
		buf.AddBool(face.Ctrl.Selected)
	}
}

func savePoint(buf *filebuf.Buffer, p *Point) {
	buf.AddVec(p.Coord)
	buf.AddBool(p.Ctrl.Selected)
	buf.AddBool(p.Type == Corner)
	if buf.AtLeast(shipcad.V198) {
		buf.AddBool(p.Ctrl.Locked)
	}
}

// LoadBinary replaces the layers and control net with those written by SaveBinary.
func (s *Surface) LoadBinary(buf *filebuf.Buffer) error {
	nl, err := buf.LoadInt()
	if err != nil {
		return err
	}
	if nl < 1 {
		return fmt.Errorf("subdiv: %d layers in file", nl)
	}
	s.layers = s.layers[:0]
	s.curves = nil
	s.control = NewMesh(Control)
	s.refined = nil
	s.lastID = 0
	for i := 0; i < nl; i++ {
		l := newLayer(s, 0, "")
		if err := l.LoadBinary(buf); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		s.layers = append(s.layers, l)
		s.lastID = max(s.lastID, l.ID)
	}
	active, err := buf.LoadInt()
	if err != nil {
		return err
	}
	s.active = s.layers[0]
	if active >= 0 && active < nl {
		s.active = s.layers[active]
	}

	ctrl := s.control
	np, err := buf.LoadInt()
	if err != nil {
		return err
	}
	if np < 0 {
		return fmt.Errorf("subdiv: negative point count %d", np)
	}
	corners := make([]bool, np)
	for i := 0; i < np; i++ {
		c, err := buf.LoadVec()
		if err != nil {
			return err
		}
		p := ctrl.Point(ctrl.AddPoint(c))
		if p.Ctrl.Selected, err = buf.LoadBool(); err != nil {
			return err
		}
		if corners[i], err = buf.LoadBool(); err != nil {
			return err
		}
		if buf.AtLeast(shipcad.V198) {
			if p.Ctrl.Locked, err = buf.LoadBool(); err != nil {
				return err
			}
		}
	}
	index := func() (PointID, error) {
		i, err := buf.LoadInt()
		if err != nil {
			return NoPoint, err
		}
		if i < 0 || i >= np {
			return NoPoint, fmt.Errorf("point index %d out of range: %w", i, ErrNoPoint)
		}
		return PointID(i), nil
	}

	ne, err := buf.LoadInt()
	if err != nil {
		return err
	}
	for i := 0; i < ne; i++ {
		a, err := index()
		if err != nil {
			return err
		}
		b, err := index()
		if err != nil {
			return err
		}
		if a == b {
			return fmt.Errorf("edge %d is degenerate: %w", i, ErrNoEdge)
		}
		edge := ctrl.Edge(ctrl.AddEdge(a, b))
		if edge.crease, err = buf.LoadBool(); err != nil {
			return err
		}
		if edge.Ctrl.Selected, err = buf.LoadBool(); err != nil {
			return err
		}
	}

	type curveRec struct {
		pts               []PointID
		selected, visible bool
	}
	var curves []curveRec
	if buf.AtLeast(shipcad.V191) {
		nc, err := buf.LoadInt()
		if err != nil {
			return err
		}
		for i := 0; i < nc; i++ {
			n, err := buf.LoadInt()
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("curve %d: negative point count %d", i, n)
			}
			rec := curveRec{pts: make([]PointID, n)}
			for j := range rec.pts {
				if rec.pts[j], err = index(); err != nil {
					return err
				}
			}
			if rec.selected, err = buf.LoadBool(); err != nil {
				return err
			}
			if rec.visible, err = buf.LoadBool(); err != nil {
				return err
			}
			curves = append(curves, rec)
		}
	}

	nf, err := buf.LoadInt()
	if err != nil {
		return err
	}
	for i := 0; i < nf; i++ {
		n, err := buf.LoadInt()
		if err != nil {
			return err
		}
		if n < 3 {
			return fmt.Errorf("face %d: %w", i, ErrFewPoints)
		}
		pts := make([]PointID, n)
		for j := range pts {
			if pts[j], err = index(); err != nil {
				return err
			}
		}
		li, err := buf.LoadInt()
		if err != nil {
			return err
		}
		sel, err := buf.LoadBool()
		if err != nil {
			return err
		}
		before := len(ctrl.edges)
		f := ctrl.AddFace(pts...)
		// Edges missing from the file are boundary creases.
		for e := before; e < len(ctrl.edges); e++ {
			ctrl.edges[e].crease = true
		}
		l := s.layers[0]
		if li >= 0 && li < nl {
			l = s.layers[li]
		}
		ctrl.faces[f].Ctrl.Layer = l
		ctrl.faces[f].Ctrl.Selected = sel
		l.addFace(f)
	}
	for i := 0; i < np; i++ {
		p := &ctrl.points[i]
		if corners[i] {
			p.Type = Corner
		} else {
			p.Type = typeFromCreases(ctrl.creaseCount(PointID(i)))
		}
	}
	for i, rec := range curves {
		c, err := s.AddControlCurve(rec.pts)
		if err != nil {
			return fmt.Errorf("curve %d: %w", i, err)
		}
		c.Selected, c.Visible = rec.selected, rec.visible
	}
	s.SetBuild(false)
	return nil
}
