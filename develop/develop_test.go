package develop_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/develop"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

func v(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

func surface(t *testing.T, level int, name string, faces ...[]r3.Vec) *subdiv.Surface {
	t.Helper()
	s := subdiv.New()
	s.ActiveLayer().Name = name
	s.SetDesiredLevel(level)
	for _, f := range faces {
		if _, err := s.AddControlFaceAt(f, nil); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func unrollOne(t *testing.T, s *subdiv.Surface) *develop.Patch {
	t.Helper()
	patches := develop.UnrollLayer(s, s.ActiveLayer())
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	return patches[0]
}

func TestUnrollPlanar(t *testing.T) {
	tilted := []r3.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 1, 1), v(0, 1, 1)}
	for _, level := range []int{0, 1} {
		p := unrollOne(t, surface(t, level, "side", tilted))
		if p.Iterations() != 1 {
			t.Errorf("level %d: %d iterations", level, p.Iterations())
		}
		if p.MaxError() > 1e-9 || p.MaxAreaError() > 1e-9 {
			t.Errorf("level %d: edge error %g, area error %g", level, p.MaxError(), p.MaxAreaError())
		}
		if a2, a3 := p.Area2D(), p.Area3D(); math.Abs(a2-math.Sqrt2) > 1e-9 || math.Abs(a3-math.Sqrt2) > 1e-9 {
			t.Errorf("level %d: area 2D %g, 3D %g", level, a2, a3)
		}
		if p.Mirror() {
			t.Errorf("level %d: tilted plate mirrored", level)
		}
		if n := len(p.Corners()); n != 4 {
			t.Errorf("level %d: %d corners", level, n)
		}
		b := p.Extents()
		if w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]; math.Abs(w-math.Sqrt2) > 1e-6 || math.Abs(h-1) > 1e-6 {
			t.Errorf("level %d: extents %g x %g", level, w, h)
		}
		loops := p.BoundaryLoops()
		if len(loops) != 1 || !loops[0].Closed() {
			t.Errorf("level %d: boundary %v", level, loops)
		}
	}
}

var _ subdiv.Dependent = (*develop.Patch)(nil)

func TestUnrollFollowsSurface(t *testing.T) {
	s := surface(t, 0, "plate", []r3.Vec{v(0, 1, 0), v(1, 1, 0), v(1, 2, 0), v(0, 2, 0)})
	p := unrollOne(t, s)
	if a := p.Area3D(); math.Abs(a-1) > 1e-9 {
		t.Fatalf("area %g, want 1", a)
	}
	ctrl := s.Control()
	corner := subdiv.NoPoint
	for _, q := range ctrl.PointIDs() {
		if ctrl.Coord(q) == v(1, 2, 0) {
			corner = q
		}
	}
	if corner == subdiv.NoPoint {
		t.Fatal("corner not found")
	}
	if err := s.MoveControlPoint(corner, v(2, 3, 0)); err != nil {
		t.Fatal(err)
	}
	if !p.Stale() {
		t.Fatal("patch not invalidated by the surface")
	}
	if a2, a3 := p.Area2D(), p.Area3D(); math.Abs(a2-2) > 1e-9 || math.Abs(a3-2) > 1e-9 {
		t.Errorf("after edit: area 2D %g, 3D %g, want 2", a2, a3)
	}
	if p.Stale() {
		t.Error("patch still stale after use")
	}

	p.Detach()
	if err := s.MoveControlPoint(corner, v(1, 2, 0)); err != nil {
		t.Fatal(err)
	}
	if p.Stale() {
		t.Error("detached patch invalidated")
	}
	if a := p.Area3D(); math.Abs(a-2) > 1e-9 {
		t.Errorf("detached patch area %g, want 2", a)
	}
}

func TestUnrollDoublyCurved(t *testing.T) {
	// Four quads around a raised vertex cannot be laid flat.
	g := func(i, j int) r3.Vec {
		z := 0.0
		if i == 1 && j == 1 {
			z = 0.5
		}
		return v(float64(i), float64(j)+1, z)
	}
	var faces [][]r3.Vec
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			faces = append(faces, []r3.Vec{g(i, j), g(i+1, j), g(i+1, j+1), g(i, j+1)})
		}
	}
	p := unrollOne(t, surface(t, 0, "dome", faces...))
	if p.MaxError()+p.MaxAreaError() < 1e-6 {
		t.Fatalf("edge error %g, area error %g, want > 0", p.MaxError(), p.MaxAreaError())
	}
	if p.Iterations() < 1 {
		t.Fatal("no iterations")
	}
	if p.NumPoints() != 9 || len(p.Faces()) != 4 {
		t.Fatalf("%d points, %d faces", p.NumPoints(), len(p.Faces()))
	}
	if got := len(p.EdgeErrors()); got != 12 {
		t.Fatalf("%d edge errors", got)
	}
}

func flatPanel(t *testing.T) *develop.Patch {
	t.Helper()
	return unrollOne(t, surface(t, 0, "bottom", []r3.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 0.5, 0), v(0, 0.5, 0)}))
}

func TestUnrollMirror(t *testing.T) {
	p := flatPanel(t)
	if !p.Mirror() {
		t.Fatal("flat centreline panel not mirrored")
	}
	if a := p.Area2D(); math.Abs(a-1) > 1e-9 {
		t.Fatalf("area %g, want 1", a)
	}
	if len(p.MirrorLoops()) != 1 {
		t.Fatal("missing mirror outline")
	}
	// Not mirrored when the layer is not symmetric.
	s := surface(t, 0, "bottom", []r3.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 0.5, 0), v(0, 0.5, 0)})
	s.ActiveLayer().Symmetric = false
	if p := unrollOne(t, s); p.Mirror() || math.Abs(p.Area2D()-0.5) > 1e-9 {
		t.Fatalf("asymmetric layer: mirror %v, area %g", p.Mirror(), p.Area2D())
	}
}

func TestIntersectPlane(t *testing.T) {
	p := flatPanel(t)
	got := p.IntersectPlane(shipcad.Station(0.5))
	if len(got) != 2 || len(p.Stations) != 2 {
		t.Fatalf("got %d curves, %d stations", len(got), len(p.Stations))
	}
	if l := r3.Norm(r3.Sub(got[0].First(), got[0].Last())); math.Abs(l-0.5) > 1e-9 {
		t.Fatalf("developed station length %g, want 0.5", l)
	}
	if got := p.IntersectPlane(shipcad.Waterline(0.5)); len(got) != 0 {
		t.Fatalf("waterline above plate cut %d curves", len(got))
	}
	p.IntersectPlane(shipcad.Buttock(0.25))
	if len(p.Buttocks) != 2 {
		t.Fatalf("%d buttocks", len(p.Buttocks))
	}
	p.ClearIntersections()
	if len(p.Stations)+len(p.Buttocks) != 0 {
		t.Fatal("intersections not cleared")
	}
}

func TestSave(t *testing.T) {
	p := flatPanel(t)
	p.IntersectPlane(shipcad.Station(0.5))
	path := filepath.Join(t.TempDir(), "bottom.dxf")
	if err := p.SaveDXF(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"LWPOLYLINE", "bottom", "stations"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("dxf lacks %q", want)
		}
	}

	var buf bytes.Buffer
	if err := p.SaveText(&buf); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	if !strings.Contains(text, "Boundary coordinates for: bottom") {
		t.Fatalf("missing header:\n%s", text)
	}
	var coords int
	for _, line := range strings.Split(text, "\n") {
		if len(strings.Fields(line)) == 3 {
			coords++
		}
	}
	// Two closed outlines of four points.
	if coords != 10 {
		t.Fatalf("%d coordinate lines:\n%s", coords, text)
	}
}
