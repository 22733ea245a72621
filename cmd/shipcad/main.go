// Command shipcad builds a hull from a TOML project, prints its
// hydrostatics and optionally exports the refined surface and the
// developed plates.
//
//	shipcad -project hull.toml [-stl hull.stl] [-dxf plates.dxf] [-v]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/develop"
	"github.com/soypat/shipcad/hydro"
	"github.com/soypat/shipcad/intersection"
	"github.com/soypat/shipcad/render"
	"github.com/soypat/shipcad/settings"
	"github.com/soypat/shipcad/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "shipcad:", err)
		os.Exit(1)
	}
}

// projectFile is the layout of the -project file.
type projectFile struct {
	Settings *settings.Project `toml:"settings"`
	Hull     hull              `toml:"hull"`
}

type hull struct {
	Layer     string `toml:"layer"`
	Symmetric *bool  `toml:"symmetric"`
	Level     int    `toml:"level"`
	// Grid rows of (x, y, z) control points.
	Grid [][][3]float64 `toml:"grid"`
	// Creases lists the grid rows whose edges are creased.
	Creases      []int     `toml:"creases"`
	Draft        float64   `toml:"draft"`
	Trim         float64   `toml:"trim"`
	Heel         float64   `toml:"heel"`
	Displacement float64   `toml:"displacement"`
	Stations     []float64 `toml:"stations"`
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("shipcad", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		projectPath = fs.String("project", "hull.toml", "TOML project file")
		stlPath     = fs.String("stl", "", "write the refined surface to this STL file")
		dxfPath     = fs.String("dxf", "", "write the developed plates to this DXF file")
		verbose     = fs.Bool("v", false, "log debug messages")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	pf, err := loadProject(*projectPath)
	if err != nil {
		return err
	}
	s, err := buildSurface(pf.Hull, log)
	if err != nil {
		return err
	}
	log.Info("surface built", "controlFaces", s.Control().NumFaces(), "faces", s.Refined().NumFaces())

	calc := hydro.New(s, pf.Settings)
	defer calc.Close()
	calc.Logger = log
	calc.SetDraft(pf.Hull.Draft)
	calc.SetTrim(pf.Hull.Trim)
	calc.SetHeel(pf.Hull.Heel)
	calc.Calculate()
	if pf.Hull.Displacement > 0 {
		if _, ok := calc.Balance(pf.Hull.Displacement, pf.Settings.FreeTrim); !ok {
			log.Warn("balance failed", "displacement", pf.Hull.Displacement, "errors", calc.Errors().String())
		}
	}
	if err := printData(stdout, pf.Settings, calc); err != nil {
		return err
	}

	if *stlPath != "" {
		if err := render.CreateSTL(*stlPath, render.NewSurfaceRenderer(s, nil, true)); err != nil {
			return err
		}
		log.Info("wrote STL", "path", *stlPath)
	}
	if *dxfPath != "" {
		if err := writePlates(*dxfPath, s, pf.Hull.Stations, log); err != nil {
			return err
		}
		log.Info("wrote DXF", "path", *dxfPath)
	}
	return nil
}

func loadProject(path string) (*projectFile, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	pf := &projectFile{Settings: settings.Default(), Hull: hull{Level: 2}}
	dec := toml.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(pf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := pf.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(pf.Hull.Grid) == 0 {
		return nil, errors.New(path + ": empty hull grid")
	}
	return pf, nil
}

func buildSurface(h hull, log *slog.Logger) (*subdiv.Surface, error) {
	s := subdiv.New()
	s.Logger = log
	s.SetDesiredLevel(h.Level)
	l := s.ActiveLayer()
	l.Name = h.Layer
	if h.Symmetric != nil {
		l.Symmetric = *h.Symmetric
	}
	grid := make([][]r3.Vec, len(h.Grid))
	for i, row := range h.Grid {
		grid[i] = make([]r3.Vec, len(row))
		for j, c := range row {
			grid[i][j] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
		}
	}
	if err := s.ImportGrid(grid, l); err != nil {
		return nil, err
	}
	for _, i := range h.Creases {
		if i < 0 || i >= len(grid) {
			return nil, fmt.Errorf("crease row %d out of range", i)
		}
		for j := 1; j < len(grid[i]); j++ {
			a, b := pointAt(s, grid[i][j-1]), pointAt(s, grid[i][j])
			if a == subdiv.NoPoint || b == subdiv.NoPoint {
				continue
			}
			e, ok := s.ControlEdgeExists(a, b)
			if !ok {
				continue
			}
			if err := s.SetCrease(e, true); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// pointAt returns the control point at c, or subdiv.NoPoint.
func pointAt(s *subdiv.Surface, c r3.Vec) subdiv.PointID {
	m := s.Control()
	for _, p := range m.PointIDs() {
		if r3.Norm(r3.Sub(m.Coord(p), c)) < 1e-9 {
			return p
		}
	}
	return subdiv.NoPoint
}

func printData(w io.Writer, p *settings.Project, c *hydro.Calc) error {
	d := c.Data()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Hydrostatics of\t%s\n", p.Name)
	fmt.Fprintf(tw, "Units\t%s\n", p.Units)
	fmt.Fprintf(tw, "Draft\t%.4f\n", c.Draft())
	fmt.Fprintf(tw, "Trim\t%.4f\n", c.Trim())
	fmt.Fprintf(tw, "Heel\t%.2f\tdeg\n", c.Heel())
	fmt.Fprintf(tw, "Errors\t%s\n", c.Errors())
	for _, row := range []struct {
		name  string
		value float64
	}{
		{"Volume", d.Volume},
		{"Displacement", d.Displacement},
		{"Absolute draft", d.AbsoluteDraft},
		{"LCB %", d.LCBPercent},
		{"KB", d.CoB.Z},
		{"Waterline length", d.LengthWaterline},
		{"Waterline beam", d.BeamWaterline},
		{"Block coefficient", d.BlockCoefficient},
		{"Prismatic coefficient", d.PrismaticCoefficient},
		{"Vert. prismatic coefficient", d.VerticalPrismaticCoefficient},
		{"Wetted surface", d.WettedSurface},
		{"Mainframe area", d.MainframeArea},
		{"Mainframe coefficient", d.MainframeCoefficient},
		{"Waterplane area", d.WaterplaneArea},
		{"Waterplane coefficient", d.WaterplaneCoefficient},
		{"Entrance angle", d.EntranceAngle},
		{"KM transverse", d.KMTransverse},
		{"KM longitudinal", d.KMLongitudinal},
		{"Lateral area", d.LateralArea},
	} {
		fmt.Fprintf(tw, "%s\t%.4f\n", row.name, row.value)
	}
	return tw.Flush()
}

// writePlates unrolls every layer and draws the plates side by side with
// their developed stations. The hull stations are drawn in 3D.
func writePlates(path string, s *subdiv.Surface, stations []float64, log *slog.Logger) error {
	x := render.NewDXF()
	var offset float64
	for _, l := range s.Layers() {
		if l.NumFaces() == 0 {
			continue
		}
		for _, p := range develop.UnrollLayer(s, l) {
			for _, st := range stations {
				p.IntersectPlane(shipcad.Station(st))
			}
			b := p.Extents()
			p.Translation.X = offset - b.Min[0]
			p.Translation.Y = -b.Min[1]
			offset += b.Max[0] - b.Min[0] + 0.1
			log.Debug("plate", "name", p.Name, "area", p.Area2D(), "max error", p.MaxError())
			err := p.WriteDXF(x)
			p.Detach()
			if err != nil {
				return err
			}
		}
	}
	for _, st := range stations {
		cut := intersection.NewStation(s, st)
		err := cut.WriteDXF(x)
		cut.Detach()
		if err != nil {
			return err
		}
	}
	return x.SaveAs(path)
}
