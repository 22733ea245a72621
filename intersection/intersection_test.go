package intersection_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/intersection"
	"github.com/soypat/shipcad/render"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// halfBox returns the starboard half of the box [0,1]×[-0.5,0.5]×[0,1],
// open along the centreplane, with every control edge creased.
func halfBox(t *testing.T) *subdiv.Surface {
	t.Helper()
	return boxFaces(t, true)
}

// boxFaces builds halfBox, leaving out the deck at z=1 when deck is false.
func boxFaces(t *testing.T, deck bool) *subdiv.Surface {
	t.Helper()
	v := func(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }
	faces := [][]r3.Vec{
		{v(0, 0, 0), v(0, 0.5, 0), v(1, 0.5, 0), v(1, 0, 0)},
		{v(0, 0, 1), v(1, 0, 1), v(1, 0.5, 1), v(0, 0.5, 1)},
		{v(0, 0.5, 0), v(0, 0.5, 1), v(1, 0.5, 1), v(1, 0.5, 0)},
		{v(0, 0, 0), v(0, 0, 1), v(0, 0.5, 1), v(0, 0.5, 0)},
		{v(1, 0, 0), v(1, 0.5, 0), v(1, 0.5, 1), v(1, 0, 1)},
	}
	s := subdiv.New()
	for i, f := range faces {
		if i == 1 && !deck {
			continue
		}
		if _, err := s.AddControlFaceAt(f, nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range s.Control().EdgeIDs() {
		if err := s.SetCrease(e, true); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestStationSplines(t *testing.T) {
	s := halfBox(t)
	st := intersection.NewStation(s, 0.5)
	sps := st.Splines()
	if len(sps) != 1 {
		t.Fatalf("got %d splines, want 1", len(sps))
	}
	sp := sps[0]
	if sp.Closed(1e-6) {
		t.Fatal("half section closed")
	}
	if math.Abs(sp.First().Y) > 1e-9 || math.Abs(sp.Last().Y) > 1e-9 {
		t.Errorf("ends %v %v not on the centreplane", sp.First(), sp.Last())
	}
	for i := 0; i < sp.Len(); i++ {
		if x := sp.Point(i).X; math.Abs(x-0.5) > 1e-9 {
			t.Fatalf("point %d off the station: x=%g", i, x)
		}
	}
	if got := st.Description(); got != "Station 0.500" {
		t.Errorf("Description() = %q", got)
	}
	box := st.Extents()
	if math.Abs(box.Max.Y-0.5) > 1e-9 || math.Abs(box.Max.Z-1) > 1e-9 || math.Abs(box.Min.Z) > 1e-9 {
		t.Errorf("extents %v", box)
	}
}

func TestInvalidatedBySurface(t *testing.T) {
	s := halfBox(t)
	wl := intersection.NewWaterline(s, 0.5)
	if len(wl.Splines()) != 1 || !wl.Built() {
		t.Fatal("waterline not built")
	}
	s.SetDesiredLevel(2)
	if wl.Built() {
		t.Fatal("waterline still built after surface change")
	}
	wl.Detach()
	wl.Splines()
	s.SetDesiredLevel(1)
	if !wl.Built() {
		t.Error("detached waterline invalidated")
	}
}

func TestCreateStarboardPart(t *testing.T) {
	s := halfBox(t)
	st := intersection.NewStation(s, 0.25)
	st.CreateStarboardPart()
	sps := st.Splines()
	if len(sps) != 1 {
		t.Fatalf("got %d splines, want 1", len(sps))
	}
	if !sps[0].Closed(1e-9) {
		t.Fatal("starboard part did not close the section")
	}
	box := sps[0].Extents()
	if math.Abs(box.Min.Y+0.5) > 1e-9 || math.Abs(box.Max.Y-0.5) > 1e-9 {
		t.Errorf("extents %v", box)
	}
	if l := sps[0].ChordLength(); math.Abs(l-4) > 1e-9 {
		t.Errorf("perimeter %g, want 4", l)
	}
	origin, u, v := st.Frame()
	var area float64
	for i := 0; i+1 < sps[0].Len(); i++ {
		p, q := r3.Sub(sps[0].Point(i), origin), r3.Sub(sps[0].Point(i+1), origin)
		area += (r3.Dot(p, u)*r3.Dot(q, v) - r3.Dot(q, u)*r3.Dot(p, v)) / 2
	}
	if math.Abs(area-1) > 1e-9 {
		t.Errorf("signed area %g, want 1 (counter-clockwise)", area)
	}
}

func TestCreateStarboardPartDropsSmallLoops(t *testing.T) {
	square := func(size float64) [][2]float64 {
		return [][2]float64{{0, 0}, {0, size}, {size, size}, {size, 0}, {0, 0}}
	}
	buf := filebuf.New(nil, shipcad.V150)
	buf.AddInt(int(intersection.Station))
	buf.AddPlane(shipcad.Station(0.25))
	buf.AddBool(true)
	buf.AddInt(2)
	for _, loop := range [][][2]float64{square(1), square(0.005)} {
		buf.AddInt(len(loop))
		for _, p := range loop {
			buf.AddVec(r3.Vec{X: 0.25, Y: p[0], Z: p[1]})
			buf.AddBool(false)
		}
	}
	st := intersection.New(nil, intersection.Free, shipcad.Plane{})
	if err := st.LoadBinary(buf.Reader()); err != nil {
		t.Fatal(err)
	}
	st.CreateStarboardPart()
	sps := st.Splines()
	if len(sps) != 1 {
		t.Fatalf("got %d splines, want 1", len(sps))
	}
	if box := sps[0].Extents(); math.Abs(box.Max.Y-1) > 1e-9 {
		t.Errorf("kept the small loop: %v", box)
	}
	// The loop is stored clockwise in the (y,z) frame.
	if p := sps[0].Point(1); p.Y != 1 || p.Z != 0 {
		t.Errorf("loop not reversed, second point %v", p)
	}

	// A lone small loop is kept.
	buf = filebuf.New(nil, shipcad.V150)
	buf.AddInt(int(intersection.Station))
	buf.AddPlane(shipcad.Station(0.25))
	buf.AddBool(true)
	buf.AddInt(1)
	buf.AddInt(5)
	for _, p := range square(0.005) {
		buf.AddVec(r3.Vec{X: 0.25, Y: p[0], Z: p[1]})
		buf.AddBool(false)
	}
	if err := st.LoadBinary(buf.Reader()); err != nil {
		t.Fatal(err)
	}
	st.CreateStarboardPart()
	if n := len(st.Splines()); n != 1 {
		t.Errorf("lone small loop: got %d splines, want 1", n)
	}
}

func TestButtockAreaOpenDeck(t *testing.T) {
	s := boxFaces(t, false)
	bt := intersection.NewButtock(s, 0.25)
	for _, sp := range bt.Splines() {
		if sp.Closed(1e-6) {
			t.Fatal("buttock of an open deck closed")
		}
	}
	sec := bt.CalculateArea(shipcad.Waterline(0.25))
	if math.Abs(sec.Area-0.25) > 1e-3 {
		t.Errorf("area %g, want 0.25", sec.Area)
	}
	if math.Abs(sec.COG.Y-0.25) > 1e-9 || math.Abs(sec.COG.Z-0.125) > 1e-3 {
		t.Errorf("centroid %v", sec.COG)
	}
}

func TestCalculateArea(t *testing.T) {
	s := halfBox(t)
	for _, test := range []struct {
		x        *intersection.Intersection
		draft    float64
		area     float64
		cog      r3.Vec
		moiU     float64
		moiV     float64
		tolerant bool
	}{
		{
			x:     intersection.NewStation(s, 0.5),
			draft: 0.5, area: 0.5,
			cog:  r3.Vec{X: 0.5, Z: 0.25},
			moiU: 1 * 0.5 * 0.5 * 0.5 / 12, moiV: 0.5 * 1 / 12,
		},
		{
			x:     intersection.NewStation(s, 0.5),
			draft: 2, area: 1,
			cog:  r3.Vec{X: 0.5, Z: 0.5},
			moiU: 1.0 / 12, moiV: 1.0 / 12,
		},
		{
			x:     intersection.NewButtock(s, 0.25),
			draft: 0.25, area: 0.25,
			cog:  r3.Vec{X: 0.5, Y: 0.25, Z: 0.125},
			moiU: 1 * 0.25 * 0.25 * 0.25 / 12, moiV: 0.25 * 1 / 12,
		},
	} {
		sec := test.x.CalculateArea(shipcad.Waterline(test.draft))
		name := test.x.Description()
		if math.Abs(sec.Area-test.area) > 1e-3 {
			t.Errorf("%s: area %g, want %g", name, sec.Area, test.area)
		}
		if r3.Norm(r3.Sub(sec.COG, test.cog)) > 1e-3 {
			t.Errorf("%s: centroid %v, want %v", name, sec.COG, test.cog)
		}
		if math.Abs(sec.MOI.X-test.moiU) > 1e-3 || math.Abs(sec.MOI.Y-test.moiV) > 1e-3 {
			t.Errorf("%s: moments %v, want (%g,%g)", name, sec.MOI, test.moiU, test.moiV)
		}
	}
	dry := intersection.NewStation(s, 0.5).CalculateArea(shipcad.Waterline(-1))
	if dry.Area != 0 {
		t.Errorf("area above the hull %g", dry.Area)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	s := halfBox(t)
	for _, typ := range []intersection.Type{intersection.Station, intersection.Buttock, intersection.Waterline, intersection.Diagonal} {
		var x *intersection.Intersection
		switch typ {
		case intersection.Station:
			x = intersection.NewStation(s, 0.5)
		case intersection.Buttock:
			x = intersection.NewButtock(s, 0.25)
		case intersection.Waterline:
			x = intersection.NewWaterline(s, 0.75)
		default:
			x = intersection.NewDiagonal(s, 0.5, 30)
		}
		x.ShowCurvature = true
		want := x.Splines()
		if len(want) == 0 {
			t.Fatalf("%s: no splines", x.Description())
		}
		for _, v := range []shipcad.Version{shipcad.V150, shipcad.V160, shipcad.CurrentVersion} {
			buf := filebuf.New(nil, v)
			x.SaveBinary(buf)
			rd := buf.Reader()
			got := intersection.New(nil, intersection.Free, shipcad.Plane{})
			if err := got.LoadBinary(rd); err != nil {
				t.Fatalf("%s v%s: %v", x.Description(), v, err)
			}
			if rd.Pos() != rd.Len() {
				t.Errorf("%s v%s: read %d of %d bytes", x.Description(), v, rd.Pos(), rd.Len())
			}
			if got.Type != typ || !got.Built() {
				t.Errorf("%s v%s: type %v built %v", x.Description(), v, got.Type, got.Built())
			}
			if got.ShowCurvature != (v >= shipcad.V191) {
				t.Errorf("v%s: show curvature %v", v, got.ShowCurvature)
			}
			sps := got.Splines()
			if len(sps) != len(want) {
				t.Fatalf("%s v%s: %d splines, want %d", x.Description(), v, len(sps), len(want))
			}
			for i := range sps {
				if sps[i].Len() != want[i].Len() {
					t.Fatalf("spline %d has %d points, want %d", i, sps[i].Len(), want[i].Len())
				}
				for j := 0; j < sps[i].Len(); j++ {
					if r3.Norm(r3.Sub(sps[i].Point(j), want[i].Point(j))) > 1e-6 {
						t.Errorf("%s v%s: point %d = %v, want %v", x.Description(), v, j, sps[i].Point(j), want[i].Point(j))
					}
					if sps[i].Knuckle(j) != want[i].Knuckle(j) {
						t.Errorf("%s v%s: knuckle %d differs", x.Description(), v, j)
					}
				}
			}
		}
	}
}

func TestLoadBadType(t *testing.T) {
	buf := filebuf.New(nil, shipcad.CurrentVersion)
	buf.AddInt(9)
	err := intersection.New(nil, intersection.Free, shipcad.Plane{}).LoadBinary(buf.Reader())
	if !errors.Is(err, intersection.ErrBadType) {
		t.Fatalf("got %v, want ErrBadType", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	header := func() *filebuf.Buffer {
		buf := filebuf.New(nil, shipcad.CurrentVersion)
		buf.AddInt(int(intersection.Station))
		buf.AddBool(false)
		buf.AddPlane(shipcad.Station(1))
		buf.AddBool(true)
		return buf
	}
	for _, test := range []struct {
		name string
		buf  *filebuf.Buffer
	}{
		{"negative spline count", func() *filebuf.Buffer {
			buf := header()
			buf.AddInt(-1)
			return buf
		}()},
		{"negative point count", func() *filebuf.Buffer {
			buf := header()
			buf.AddInt(1)
			buf.AddInt(-5)
			return buf
		}()},
		{"short buffer", func() *filebuf.Buffer {
			buf := header()
			buf.AddInt(1)
			buf.AddInt(3)
			buf.AddFloat(0.5)
			return buf
		}()},
	} {
		x := intersection.New(nil, intersection.Free, shipcad.Plane{})
		if err := x.LoadBinary(test.buf.Reader()); err == nil {
			t.Errorf("%s: no error", test.name)
		}
	}
}

func TestDeleteCurve(t *testing.T) {
	s := halfBox(t)
	wl := intersection.NewWaterline(s, 0.5)
	sp := wl.Splines()[0]
	if !wl.DeleteCurve(sp) || len(wl.Splines()) != 0 {
		t.Fatal("curve not deleted")
	}
	if wl.DeleteCurve(sp) {
		t.Error("deleted a curve twice")
	}
}

func TestWriteDXF(t *testing.T) {
	s := halfBox(t)
	d := render.NewDXF()
	for _, x := range []*intersection.Intersection{
		intersection.NewStation(s, 0.5),
		intersection.NewWaterline(s, 0.5),
		intersection.NewWaterline(s, 2),
	} {
		if err := x.WriteDXF(d); err != nil {
			t.Fatal(err)
		}
	}
	if d.Layers() != 2 {
		t.Fatalf("%d layers, want 2", d.Layers())
	}
	path := filepath.Join(t.TempDir(), "lines.dxf")
	if err := d.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Station", "Waterline", "LINE"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("dxf lacks %q", want)
		}
	}
}
