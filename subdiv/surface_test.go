package subdiv

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/spline"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestJoinSegmentsSquare(t *testing.T) {
	corners := []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	var segs []*spline.Spline
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		mid := r3.Scale(0.5, r3.Add(a, b))
		segs = append(segs, spline.New(a, mid), spline.New(mid, b))
	}
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })
	for i := 0; i < len(segs); i += 3 {
		segs[i].InvertDirection()
	}
	joined := JoinSegments(segs, 1e-6)
	if len(joined) != 1 {
		t.Fatalf("got %d splines, want 1", len(joined))
	}
	sp := joined[0]
	if sp.Len() != 9 || !sp.Closed(1e-12) {
		t.Fatalf("loop has %d points, closed %v", sp.Len(), sp.Closed(1e-12))
	}
	if l := sp.ChordLength(); math.Abs(l-4) > 1e-12 {
		t.Errorf("perimeter %g, want 4", l)
	}
	for _, sg := range segs {
		if sg.Len() != 2 {
			t.Fatal("input segment modified")
		}
	}
}

func TestJoinSegmentsKeepsGaps(t *testing.T) {
	segs := []*spline.Spline{
		spline.New(r3.Vec{}, r3.Vec{X: 1}),
		spline.New(r3.Vec{X: 1.5}, r3.Vec{X: 2}),
	}
	if got := JoinSegments(segs, 1e-2); len(got) != 2 {
		t.Errorf("joined across a gap into %d splines", len(got))
	}
}

func TestIntersectCreasedCube(t *testing.T) {
	s := cube(t)
	for _, e := range s.Control().EdgeIDs() {
		s.SetCrease(e, true)
	}
	splines := s.IntersectPlane(shipcad.Waterline(0.5), false)
	if len(splines) != 1 {
		t.Fatalf("got %d splines, want 1", len(splines))
	}
	sp := splines[0]
	if !sp.Closed(1e-9) {
		t.Error("waterline of a closed cube is open")
	}
	if l := sp.ChordLength(); math.Abs(l-4) > 1e-9 {
		t.Errorf("waterline length %g, want 4", l)
	}
	knuckles := 0
	for i := 0; i < sp.Len(); i++ {
		if math.Abs(sp.Point(i).Z-0.5) > 1e-12 {
			t.Errorf("point %v off the plane", sp.Point(i))
		}
		if sp.Knuckle(i) {
			knuckles++
		}
	}
	if knuckles < 3 {
		t.Errorf("only %d knuckles at the cube edges", knuckles)
	}
	if got := s.IntersectPlane(shipcad.Waterline(2), false); len(got) != 0 {
		t.Errorf("plane above the cube gave %d splines", len(got))
	}
	s.ActiveLayer().UseInHydrostatics = false
	if got := s.IntersectPlane(shipcad.Waterline(0.5), true); len(got) != 0 {
		t.Errorf("excluded layer gave %d splines", len(got))
	}
}

func TestInsertPlane(t *testing.T) {
	s := New()
	_, err := s.AddControlFaceAt([]r3.Vec{{}, {X: 1}, {X: 1, Z: 1}, {Z: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	n := s.InsertPlane(shipcad.Station(0.25), true)
	if n != 2 {
		t.Fatalf("inserted %d points, want 2", n)
	}
	ctrl := s.Control()
	if ctrl.NumFaces() != 2 || ctrl.NumPoints() != 6 || ctrl.NumEdges() != 7 {
		t.Fatalf("after insert: %d points, %d edges, %d faces", ctrl.NumPoints(), ctrl.NumEdges(), ctrl.NumFaces())
	}
	if s.ActiveLayer().NumFaces() != 2 {
		t.Errorf("layer has %d faces", s.ActiveLayer().NumFaces())
	}
	curves := s.Curves()
	if len(curves) != 1 || len(curves[0].Points()) != 2 {
		t.Fatalf("expected one curve of 2 points, got %d", len(curves))
	}
	for _, p := range curves[0].Points() {
		if x := ctrl.Coord(p).X; math.Abs(x-0.25) > 1e-12 {
			t.Errorf("curve point at x=%g", x)
		}
	}
	sp := curves[0].Spline()
	if sp.Len() < 2 {
		t.Errorf("curve spline has %d points", sp.Len())
	}
	if got := s.InsertPlane(shipcad.Station(0.25), false); got != 0 {
		t.Errorf("second insert added %d points", got)
	}
}

func TestConvertToGrid(t *testing.T) {
	s := grid(t, 3, 4)
	ctrl := s.Control()
	g, err := s.ConvertToGrid(ctrl.FaceIDs())
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows()*g.Cols() != 12 || (g.Rows() != 3 && g.Rows() != 4) {
		t.Fatalf("grid is %dx%d", g.Rows(), g.Cols())
	}
	seen := make(map[PointID]bool)
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			seen[g.At(r, c)] = true
			if c > 0 {
				if _, ok := ctrl.EdgeBetween(g.At(r, c-1), g.At(r, c)); !ok {
					t.Errorf("no edge along row %d at column %d", r, c)
				}
			}
			if r > 0 {
				if _, ok := ctrl.EdgeBetween(g.At(r-1, c), g.At(r, c)); !ok {
					t.Errorf("no edge along column %d at row %d", c, r)
				}
			}
		}
	}
	if len(seen) != 12 {
		t.Errorf("grid holds %d distinct points", len(seen))
	}
	ns, err := s.PatchSurface(Patch{Points: g})
	if err != nil {
		t.Fatal(err)
	}
	u0, _, v0, _ := ns.Domain()
	if p := ns.Evaluate(u0, v0); r3.Norm(r3.Sub(p, ctrl.Coord(g.At(0, 0)))) > 1e-9 {
		t.Errorf("patch surface starts at %v", p)
	}
}

func TestConvertToGridErrors(t *testing.T) {
	s := grid(t, 3, 3)
	ctrl := s.Control()
	faces := ctrl.FaceIDs()
	if _, err := s.ConvertToGrid([]FaceID{faces[0], faces[3]}); err != ErrNotGrid {
		t.Errorf("diagonal faces: %v", err)
	}
	tri, err := s.AddControlFaceAt([]r3.Vec{{X: 2}, {X: 3}, {X: 2, Y: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ConvertToGrid([]FaceID{faces[0], tri}); err == nil {
		t.Error("triangle accepted in grid")
	}
}

func TestAssembleFacesToPatches(t *testing.T) {
	s := grid(t, 3, 4)
	for _, r := range []float64{0, 1} {
		s.SetCrease(s.mustEdge(t, r3.Vec{X: 1, Y: r}, r3.Vec{X: 1, Y: r + 1}), true)
	}
	patches, err := s.AssembleFacesToPatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	sizes := map[int]bool{len(patches[0].Faces): true, len(patches[1].Faces): true}
	if !sizes[2] || !sizes[4] {
		t.Errorf("patch sizes %d and %d, want 2 and 4", len(patches[0].Faces), len(patches[1].Faces))
	}
	for _, p := range patches {
		if p.Points.Rows()*p.Points.Cols() != (len(p.Faces)/2+1)*3 {
			t.Errorf("patch of %d faces has %dx%d points", len(p.Faces), p.Points.Rows(), p.Points.Cols())
		}
	}
}

func TestSurfaceBinaryRoundTrip(t *testing.T) {
	s := cube(t)
	ctrl := s.Control()
	top := s.mustEdge(t, r3.Vec{Z: 1}, r3.Vec{X: 1, Z: 1})
	s.SetCrease(top, true)
	s.SetCorner(s.controlPointAt(r3.Vec{}), true)
	hull := s.AddLayer("Hull")
	hull.Color = shipcad.DXFColor(5)
	hull.Thickness = 0.25
	if err := s.SetFaceLayer(ctrl.FaceIDs()[0], hull); err != nil {
		t.Fatal(err)
	}
	_, err := s.AddControlCurve([]PointID{
		s.controlPointAt(r3.Vec{}), s.controlPointAt(r3.Vec{X: 1}), s.controlPointAt(r3.Vec{X: 1, Y: 1}),
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf filebuf.Buffer
	s.SaveBinary(&buf)
	rd := buf.Reader()
	got := New()
	if err := got.LoadBinary(rd); err != nil {
		t.Fatal(err)
	}
	if rd.Pos() != rd.Len() {
		t.Errorf("read %d of %d bytes", rd.Pos(), rd.Len())
	}
	gc := got.Control()
	if gc.NumPoints() != 8 || gc.NumEdges() != 12 || gc.NumFaces() != 6 {
		t.Fatalf("loaded %d points, %d edges, %d faces", gc.NumPoints(), gc.NumEdges(), gc.NumFaces())
	}
	creases := 0
	for _, e := range gc.EdgeIDs() {
		if gc.Edge(e).Crease() {
			creases++
		}
	}
	if creases != 1 {
		t.Errorf("loaded %d creases, want 1", creases)
	}
	for _, p := range ctrl.PointIDs() {
		q := got.controlPointAt(ctrl.Coord(p))
		if gc.Point(q).Type != ctrl.Point(p).Type {
			t.Errorf("point %v: type %v, want %v", ctrl.Coord(p), gc.Point(q).Type, ctrl.Point(p).Type)
		}
	}
	if len(got.Layers()) != 2 || got.Layers()[1].Name != "Hull" || got.Layers()[1].NumFaces() != 1 {
		t.Fatalf("layers not restored")
	}
	if gl := got.Layers()[1]; gl.Color != hull.Color || gl.Thickness != hull.Thickness {
		t.Errorf("layer properties %+v", gl)
	}
	if len(got.Curves()) != 1 || len(got.Curves()[0].Points()) != 3 {
		t.Error("curve not restored")
	}
	// Saving the loaded surface reproduces the bytes.
	var again filebuf.Buffer
	got.SaveBinary(&again)
	if string(again.Bytes()) != string(buf.Bytes()) {
		t.Error("second save differs")
	}
}

func TestSurfaceLoadShortBuffer(t *testing.T) {
	s := cube(t)
	var buf filebuf.Buffer
	s.SaveBinary(&buf)
	short := filebuf.New(buf.Bytes()[:buf.Len()-3], buf.Version)
	if err := New().LoadBinary(short); err == nil {
		t.Error("truncated surface loaded")
	}
}

func TestSurfaceLoadNegativeCount(t *testing.T) {
	header := func(np int) *filebuf.Buffer {
		buf := filebuf.New(nil, shipcad.CurrentVersion)
		buf.AddInt(1)
		New().Layers()[0].SaveBinary(buf)
		buf.AddInt(0)
		buf.AddInt(np)
		return buf
	}
	points := header(-5)

	curve := header(1)
	curve.AddVec(r3.Vec{})
	curve.AddBool(false)
	curve.AddBool(false)
	curve.AddBool(false)
	curve.AddInt(0)
	curve.AddInt(1)
	curve.AddInt(-2)

	for name, buf := range map[string]*filebuf.Buffer{"points": points, "curve": curve} {
		if err := New().LoadBinary(buf.Reader()); err == nil {
			t.Errorf("%s: negative count loaded", name)
		}
	}
}

type counter struct{ n int }

func (c *counter) Invalidate() { c.n++ }

func TestDependentsInvalidated(t *testing.T) {
	s := grid(t, 2, 2)
	var c counter
	s.Register(&c)
	s.Register(&c)
	p := s.Control().PointIDs()[0]
	s.MoveControlPoint(p, r3.Vec{X: -1})
	if c.n != 1 {
		t.Errorf("dependent invalidated %d times", c.n)
	}
	s.Control().Point(p).Ctrl.Locked = true
	s.MoveControlPoint(p, r3.Vec{X: -2})
	if c.n != 1 || s.Control().Coord(p).X != -1 {
		t.Error("locked point moved")
	}
	s.Unregister(&c)
	s.SetDesiredLevel(3)
	if c.n != 1 {
		t.Error("unregistered dependent invalidated")
	}
}

func TestLayerProperties(t *testing.T) {
	s := grid(t, 2, 2)
	for _, p := range s.Control().PointIDs() {
		s.SetCorner(p, true)
	}
	l := s.ActiveLayer()
	l.Symmetric = false
	l.Thickness = 0.5
	l.MaterialDensity = 2
	props := l.SurfaceProperties()
	if math.Abs(props.Area-1) > 1e-12 || math.Abs(props.Weight-1) > 1e-12 {
		t.Errorf("area %g weight %g", props.Area, props.Weight)
	}
	if r3.Norm(r3.Sub(props.COG, r3.Vec{X: 0.5, Y: 0.5})) > 1e-12 {
		t.Errorf("cog %v", props.COG)
	}
	l.Symmetric = true
	props = l.SurfaceProperties()
	if math.Abs(props.Area-2) > 1e-12 || props.COG.Y != 0 {
		t.Errorf("symmetric area %g cog %v", props.Area, props.COG)
	}
	if err := s.DeleteLayer(l); err != ErrLayerNotEmpty {
		t.Errorf("deleting a used layer: %v", err)
	}
	empty := s.AddLayer("")
	if empty.Name != "Layer_2" {
		t.Errorf("default name %q", empty.Name)
	}
	empty.MoveUp()
	if s.Layers()[0] != empty {
		t.Error("MoveUp did not reorder")
	}
	if err := s.DeleteLayer(empty); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteLayer(l); err != ErrLayerNotEmpty {
		t.Errorf("deleting the used last layer: %v", err)
	}
}
