package shipcad

import (
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/soypat/shipcad/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPlane(t *testing.T) {
	pl := PlaneFrom3(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	if !d3.EqualWithin(pl.Normal(), r3.Vec{Z: 1}, 1e-12) || pl.D != 0 {
		t.Fatalf("PlaneFrom3 = %+v", pl)
	}
	pl = NewPlane(r3.Vec{Z: 2}, r3.Vec{Z: 5})
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	if d := pl.Distance(v); math.Abs(d-1) > 1e-12 {
		t.Errorf("Distance = %g", d)
	}
	if p := pl.Project(v); !d3.EqualWithin(p, r3.Vec{X: 1, Y: 2, Z: 2}, 1e-12) {
		t.Errorf("Project = %v", p)
	}
	if m := pl.Mirror(v); !d3.EqualWithin(m, r3.Vec{X: 1, Y: 2, Z: 1}, 1e-12) {
		t.Errorf("Mirror = %v", m)
	}
	pt, tt, ok := pl.IntersectLine(r3.Vec{}, r3.Vec{Z: 4})
	if !ok || math.Abs(tt-0.5) > 1e-12 || !d3.EqualWithin(pt, r3.Vec{Z: 2}, 1e-12) {
		t.Errorf("IntersectLine = %v %g %v", pt, tt, ok)
	}
	if _, _, ok := pl.IntersectLine(r3.Vec{}, r3.Vec{X: 1}); ok {
		t.Error("parallel segment intersected")
	}
	box := d3.EmptyBox().Include(r3.Vec{}).Include(r3.Vec{X: 1, Y: 1, Z: 1})
	if !Waterline(0.5).IntersectsBox(box) || Waterline(2).IntersectsBox(box) {
		t.Error("IntersectsBox")
	}
}

func TestHelpers(t *testing.T) {
	for _, test := range []struct {
		name      string
		got, want float64
	}{
		{"DtoR", DtoR(180), math.Pi},
		{"RtoD", RtoD(math.Pi / 2), 90},
		{"Clamp low", Clamp(-1, 0, 1), 0},
		{"Clamp high", Clamp(2, 0, 1), 1},
		{"Interpolate", Interpolate(1.5, 1, 10, 2, 20), 15},
		{"Interpolate close", Interpolate(1, 1, 10, 1.0001, 20), 15},
		{"TriangleArea", TriangleArea(r3.Vec{}, r3.Vec{X: 2}, r3.Vec{Y: 2}), 2},
	} {
		if math.Abs(test.got-test.want) > 1e-12 {
			t.Errorf("%s = %g, want %g", test.name, test.got, test.want)
		}
	}
	n := UnifiedNormal(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2})
	if math.IsNaN(n.X) || r3.Norm(n) != 0 {
		t.Errorf("degenerate normal %v", n)
	}
	if got := MirrorY(r3.Vec{X: 1, Y: 2, Z: 3}); got != (r3.Vec{X: 1, Y: -2, Z: 3}) {
		t.Errorf("MirrorY = %v", got)
	}
	if err := ErrMsg("bad input"); !strings.Contains(err.Error(), "bad input") ||
		!strings.Contains(err.Error(), "TestHelpers") {
		t.Errorf("ErrMsg = %v", err)
	}
}

func TestDXFColor(t *testing.T) {
	for _, test := range []struct {
		c    color.Color
		want uint8
	}{
		{color.RGBA{255, 0, 0, 255}, 1},
		{color.RGBA{0, 0, 255, 255}, 5},
		{color.RGBA{250, 250, 250, 255}, 7},
	} {
		if got := FindDXFColorIndex(test.c); got != test.want {
			t.Errorf("FindDXFColorIndex(%v) = %d, want %d", test.c, got, test.want)
		}
		if got := FindDXFColorIndex(DXFColor(test.want)); got != test.want {
			t.Errorf("palette colour %d maps to %d", test.want, got)
		}
	}
}

func TestVersion(t *testing.T) {
	if CurrentVersion.String() != "2.6" || !CurrentVersion.Valid() {
		t.Fatalf("current version %v", CurrentVersion)
	}
	if Version(0).Valid() || !strings.HasPrefix(Version(99).String(), "Version(") {
		t.Fatal("invalid versions accepted")
	}
}
