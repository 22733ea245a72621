package settings_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
	"github.com/soypat/shipcad/settings"
)

func sample() *settings.Project {
	p := settings.Default()
	p.Name = "Trawler"
	p.Designer = "yard"
	p.Length, p.Beam, p.Draft = 24, 7.5, 2.5
	p.UseDefaultMainframe = false
	p.MainframeLocation = 11.5
	p.Coefficients = settings.ProjectData
	p.Preview = []byte{0xff, 0xd8, 0xff, 0xd9}
	p.Displacements = []float64{100, 150}
	p.Angles = []float64{0, 10, 20}
	p.VCG = 3.25
	return p
}

func TestBinaryRoundTrip(t *testing.T) {
	want := sample()
	for _, v := range []shipcad.Version{shipcad.V200, shipcad.V210, shipcad.V230, shipcad.CurrentVersion} {
		buf := filebuf.New(nil, v)
		want.SaveBinary(buf)
		rd := buf.Reader()
		var got settings.Project
		if err := got.LoadBinary(rd); err != nil {
			t.Fatalf("v%s: %v", v, err)
		}
		if rd.Pos() != rd.Len() {
			t.Errorf("v%s: read %d of %d bytes", v, rd.Pos(), rd.Len())
		}
		if got.Name != want.Name || got.Designer != want.Designer || got.Length != want.Length {
			t.Errorf("v%s: main particulars %+v", v, got)
		}
		if math.Abs(got.WaterDensity-want.WaterDensity) > 1e-6 {
			t.Errorf("v%s: density %g", v, got.WaterDensity)
		}
		if got.MainframeX() != 11.5 {
			t.Errorf("v%s: mainframe at %g", v, got.MainframeX())
		}
		newer := v >= shipcad.V210
		if (got.Coefficients == settings.ProjectData) != newer {
			t.Errorf("v%s: coefficients %v", v, got.Coefficients)
		}
		if newer && !bytes.Equal(got.Preview, want.Preview) {
			t.Errorf("v%s: preview %x", v, got.Preview)
		}
		if v >= shipcad.V250 {
			if len(got.Angles) != 3 || got.Angles[2] != 20 || len(got.Displacements) != 2 || got.VCG != 3.25 {
				t.Errorf("v%s: stability ranges %v %v %g", v, got.Angles, got.Displacements, got.VCG)
			}
		} else if len(got.Angles) != len(settings.Default().Angles) {
			t.Errorf("v%s: angles %v, want defaults", v, got.Angles)
		}
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	want := sample()
	var b bytes.Buffer
	if err := want.WriteTOML(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `units = 'metric'`) && !strings.Contains(b.String(), `units = "metric"`) {
		t.Errorf("units not written as text:\n%s", b.String())
	}
	got, err := settings.ReadTOML(&b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != want.Name || got.Beam != want.Beam || got.MainframeX() != want.MainframeX() {
		t.Errorf("got %+v", got)
	}
	if got.UnderwaterColor != want.UnderwaterColor || got.Coefficients != want.Coefficients {
		t.Errorf("color %v coefficients %v", got.UnderwaterColor, got.Coefficients)
	}
	if len(got.Angles) != 3 || got.Preview != nil {
		t.Errorf("angles %v preview %v", got.Angles, got.Preview)
	}
}

func TestReadTOMLErrors(t *testing.T) {
	for _, test := range []struct {
		doc  string
		want error
	}{
		{doc: "length = -1\n", want: settings.ErrBadValue},
		{doc: "units = 'nautical'\n"},
		{doc: "hull_colour = 3\n"},
	} {
		_, err := settings.ReadTOML(strings.NewReader(test.doc))
		if err == nil {
			t.Errorf("%q: no error", test.doc)
			continue
		}
		if test.want != nil && !errors.Is(err, test.want) {
			t.Errorf("%q: got %v, want %v", test.doc, err, test.want)
		}
	}
	p, err := settings.ReadTOML(strings.NewReader("length = 12.0\nunits = 'imperial'\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Length != 12 || p.Units != settings.Imperial || p.Beam != 1 {
		t.Errorf("partial document: %+v", p)
	}
}

func TestSetUnits(t *testing.T) {
	p := sample()
	p.SetUnits(settings.Imperial)
	if math.Abs(p.Length-24/shipcad.Foot) > 1e-9 {
		t.Errorf("length %g ft", p.Length)
	}
	p.SetUnits(settings.Metric)
	want := sample()
	for _, pair := range [][2]float64{
		{p.Length, want.Length},
		{p.VCG, want.VCG},
		{p.WaterDensity, want.WaterDensity},
		{p.Displacements[1], want.Displacements[1]},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-9 {
			t.Errorf("round trip through imperial: %g, want %g", pair[0], pair[1])
		}
	}
}
