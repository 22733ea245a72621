package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/soypat/shipcad/render"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func box(t *testing.T) *subdiv.Surface {
	t.Helper()
	v := func(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }
	s := subdiv.New()
	for _, f := range [][]r3.Vec{
		{v(0, 0, 0), v(0, 0.5, 0), v(1, 0.5, 0), v(1, 0, 0)},
		{v(0, 0.5, 0), v(0, 0.5, 1), v(1, 0.5, 1), v(1, 0.5, 0)},
		{v(0, 0, 1), v(1, 0, 1), v(1, 0.5, 1), v(0, 0.5, 1)},
	} {
		if _, err := s.AddControlFaceAt(f, nil); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestSTLCreateWriteRead(t *testing.T) {
	s := box(t)
	path := filepath.Join(t.TempDir(), "hull.stl")
	if err := render.CreateSTL(path, render.NewSurfaceRenderer(s, nil, true)); err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.RenderAll(render.NewSurfaceRenderer(s, nil, true))
	if err != nil {
		t.Fatal(err)
	}
	// 3 control quads, 4 children each, 2 triangles per child, both sides.
	if len(model) != 48 {
		t.Fatalf("got %d triangles", len(model))
	}
	var b bytes.Buffer
	if err := render.WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
	got, err := render.ReadSTL(&b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(model) {
		t.Fatalf("read %d triangles, wrote %d", len(got), len(model))
	}
	for i := range got {
		for j := 0; j < 3; j++ {
			if d := r3.Norm(r3.Sub(got[i].V[j], model[i].V[j])); d > 1e-6 {
				t.Fatalf("triangle %d vertex %d off by %g", i, j, d)
			}
		}
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	if err := render.WriteSTL(&bytes.Buffer{}, nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := render.ReadSTL(bytes.NewReader(make([]byte, 84))); err == nil {
		t.Fatal("expected error for zero triangle header")
	}
	if _, err := render.ReadSTL(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for missing header")
	}
}

func TestDXF(t *testing.T) {
	x := render.NewDXF()
	if err := x.Polyline2D("boundary", []r2.Vec{{}, {X: 1}}); err == nil {
		t.Fatal("drew on a missing layer")
	}
	for _, l := range []string{"boundary", "stations"} {
		if err := x.AddLayer(l, 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := x.AddLayer("boundary", 2); err != nil || x.Layers() != 2 {
		t.Fatalf("re-adding layer: %v, %d layers", err, x.Layers())
	}
	if err := x.Ring("boundary", orb.Ring{{0, 0}, {1, 0}, {1, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := x.Polyline3D("stations", []r3.Vec{{}, {Y: 1}, {Y: 1, Z: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := x.Polyline2D("stations", []r2.Vec{{}}); err == nil {
		t.Fatal("accepted a single point polyline")
	}
	path := filepath.Join(t.TempDir(), "plates.dxf")
	if err := x.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"LWPOLYLINE", "LINE", "boundary", "stations"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("output lacks %q", want)
		}
	}
}
