// Package settings holds the per-project parameters of a hull model: main
// dimensions, water properties, units and the ranges used by the
// hydrostatic and stability tables.
package settings

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/shipcad"
	"github.com/soypat/shipcad/filebuf"
)

// Units is the unit system of a project.
type Units int

const (
	Metric Units = iota
	Imperial
)

func (u Units) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	}
	return fmt.Sprintf("Units(%d)", int(u))
}

// MarshalText implements encoding.TextMarshaler.
func (u Units) MarshalText() ([]byte, error) {
	if u != Metric && u != Imperial {
		return nil, fmt.Errorf("settings: invalid units %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Units) UnmarshalText(b []byte) error {
	switch string(b) {
	case "metric":
		*u = Metric
	case "imperial":
		*u = Imperial
	default:
		return fmt.Errorf("settings: unknown units %q", b)
	}
	return nil
}

// Coefficients selects the dimensions form coefficients are based on.
type Coefficients int

const (
	// ActualData uses the measured waterline length, beam and draft.
	ActualData Coefficients = iota
	// ProjectData uses Length, Beam and Draft of the project.
	ProjectData
)

// ErrBadValue is returned by Validate.
var ErrBadValue = errors.New("settings: bad value")

// Project holds the settings stored with a hull model.
type Project struct {
	Name      string `toml:"name"`
	Designer  string `toml:"designer"`
	Comment   string `toml:"comment"`
	CreatedBy string `toml:"created_by"`

	Length float64 `toml:"length"`
	Beam   float64 `toml:"beam"`
	Draft  float64 `toml:"draft"`
	// MainParticularsSet records that the user entered the main dimensions.
	MainParticularsSet bool `toml:"main_particulars_set"`

	// WaterDensity is in t/m³ for metric projects and long tons/ft³ for imperial ones.
	WaterDensity float64 `toml:"water_density"`
	// AppendageCoefficient scales the displacement to account for
	// appendages and shell plating.
	AppendageCoefficient float64 `toml:"appendage_coefficient"`

	ShadeUnderwater bool       `toml:"shade_underwater"`
	UnderwaterColor color.RGBA `toml:"underwater_color"`
	Units           Units      `toml:"units"`

	UseDefaultMainframe bool    `toml:"use_default_mainframe"`
	MainframeLocation   float64 `toml:"mainframe_location"`
	DisableModelCheck   bool    `toml:"disable_model_check"`

	Coefficients Coefficients `toml:"coefficients"`
	SavePreview  bool         `toml:"save_preview"`
	// Preview is an encoded image stored when SavePreview is set.
	Preview []byte `toml:"-"`

	SimplifyIntersections bool `toml:"simplify_intersections"`

	StartDraft float64 `toml:"start_draft"`
	EndDraft   float64 `toml:"end_draft"`
	DraftStep  float64 `toml:"draft_step"`
	Trim       float64 `toml:"trim"`

	Displacements             []float64 `toml:"displacements"`
	MinDisplacement           float64   `toml:"min_displacement"`
	MaxDisplacement           float64   `toml:"max_displacement"`
	DisplacementIncrement     float64   `toml:"displacement_increment"`
	UseDisplacementIncrements bool      `toml:"use_displacement_increments"`

	// Angles are the heel angles of the cross curves, in degrees.
	Angles         []float64 `toml:"angles"`
	StabilityTrims []float64 `toml:"stability_trims"`
	FreeTrim       bool      `toml:"free_trim"`
	VCG            float64   `toml:"vcg"`
}

// Default returns the settings of a new project.
func Default() *Project {
	return &Project{
		Length:                1,
		Beam:                  1,
		Draft:                 1,
		WaterDensity:          1.025,
		AppendageCoefficient:  1,
		ShadeUnderwater:       true,
		UnderwaterColor:       color.RGBA{R: 240, G: 240, B: 240, A: 255},
		Units:                 Metric,
		UseDefaultMainframe:   true,
		SavePreview:           true,
		Coefficients:          ActualData,
		SimplifyIntersections: true,
		EndDraft:              1,
		DraftStep:             0.1,
		MaxDisplacement:       1,
		DisplacementIncrement: 0.1,
		Angles:                []float64{0, 2, 5, 10, 15, 20, 30, 40, 50, 60},
		StabilityTrims:        []float64{0},
		FreeTrim:              true,
		VCG:                   1,
	}
}

// MainframeX returns the longitudinal position of the mainframe, midships
// unless a location was set.
func (p *Project) MainframeX() float64 {
	if p.UseDefaultMainframe {
		return p.Length / 2
	}
	return p.MainframeLocation
}

// Validate checks the values a hydrostatic calculation divides by.
func (p *Project) Validate() error {
	switch {
	case p.Length <= 0:
		return fmt.Errorf("length %g: %w", p.Length, ErrBadValue)
	case p.Beam <= 0:
		return fmt.Errorf("beam %g: %w", p.Beam, ErrBadValue)
	case p.Draft <= 0:
		return fmt.Errorf("draft %g: %w", p.Draft, ErrBadValue)
	case p.WaterDensity <= 0:
		return fmt.Errorf("water density %g: %w", p.WaterDensity, ErrBadValue)
	case p.AppendageCoefficient <= 0:
		return fmt.Errorf("appendage coefficient %g: %w", p.AppendageCoefficient, ErrBadValue)
	case p.Units != Metric && p.Units != Imperial:
		return fmt.Errorf("units %d: %w", int(p.Units), ErrBadValue)
	}
	return nil
}

// SetUnits converts every length, density and weight of the project to u.
func (p *Project) SetUnits(u Units) {
	if u == p.Units {
		return
	}
	lf := shipcad.Foot
	if u == Imperial {
		lf = 1 / shipcad.Foot
	}
	// t/m³ to long tons/ft³ and back.
	df := shipcad.Foot * shipcad.Foot * shipcad.Foot / shipcad.WeightConversionFactor
	wf := 1 / shipcad.WeightConversionFactor
	if u == Metric {
		df, wf = 1/df, 1/wf
	}
	for _, v := range []*float64{
		&p.Length, &p.Beam, &p.Draft, &p.MainframeLocation,
		&p.StartDraft, &p.EndDraft, &p.DraftStep, &p.Trim, &p.VCG,
	} {
		*v *= lf
	}
	p.WaterDensity *= df
	for _, v := range []*float64{&p.MinDisplacement, &p.MaxDisplacement, &p.DisplacementIncrement} {
		*v *= wf
	}
	for i := range p.Displacements {
		p.Displacements[i] *= wf
	}
	p.Units = u
}

// SaveBinary writes the settings. Fields are gated on the buffer version
// they were introduced in.
func (p *Project) SaveBinary(buf *filebuf.Buffer) {
	buf.AddString(p.Name)
	buf.AddString(p.Designer)
	buf.AddFloat(p.Length)
	buf.AddFloat(p.Beam)
	buf.AddFloat(p.Draft)
	buf.AddBool(p.MainParticularsSet)
	buf.AddFloat(p.WaterDensity)
	buf.AddFloat(p.AppendageCoefficient)
	buf.AddBool(p.ShadeUnderwater)
	buf.AddColor(p.UnderwaterColor)
	buf.AddInt(int(p.Units))
	buf.AddBool(p.UseDefaultMainframe)
	buf.AddFloat(p.MainframeLocation)
	buf.AddBool(p.DisableModelCheck)
	buf.AddString(p.Comment)
	buf.AddString(p.CreatedBy)
	if !buf.AtLeast(shipcad.V210) {
		return
	}
	buf.AddInt(int(p.Coefficients))
	buf.AddBool(p.SavePreview)
	if p.SavePreview {
		buf.AddBytes(p.Preview)
	}
	if buf.AtLeast(shipcad.V230) {
		buf.AddBool(p.SimplifyIntersections)
	}
	if !buf.AtLeast(shipcad.V250) {
		return
	}
	buf.AddFloat(p.StartDraft)
	buf.AddFloat(p.EndDraft)
	buf.AddFloat(p.DraftStep)
	buf.AddFloat(p.Trim)
	addFloats(buf, p.Displacements)
	buf.AddFloat(p.MinDisplacement)
	buf.AddFloat(p.MaxDisplacement)
	buf.AddFloat(p.DisplacementIncrement)
	buf.AddBool(p.UseDisplacementIncrements)
	addFloats(buf, p.Angles)
	addFloats(buf, p.StabilityTrims)
	buf.AddBool(p.FreeTrim)
	buf.AddFloat(p.VCG)
}

// LoadBinary replaces p with settings read from buf. Fields missing from
// older versions keep their defaults.
func (p *Project) LoadBinary(buf *filebuf.Buffer) (err error) {
	*p = *Default()
	strs := func(dst ...*string) {
		for _, s := range dst {
			if err == nil {
				*s, err = buf.LoadString()
			}
		}
	}
	floats := func(dst ...*float64) {
		for _, f := range dst {
			if err == nil {
				*f, err = buf.LoadFloat()
			}
		}
	}
	bools := func(dst ...*bool) {
		for _, b := range dst {
			if err == nil {
				*b, err = buf.LoadBool()
			}
		}
	}
	ints := func(dst *int) {
		if err == nil {
			*dst, err = buf.LoadInt()
		}
	}

	var units, coeff int
	strs(&p.Name, &p.Designer)
	floats(&p.Length, &p.Beam, &p.Draft)
	bools(&p.MainParticularsSet)
	floats(&p.WaterDensity, &p.AppendageCoefficient)
	bools(&p.ShadeUnderwater)
	if err == nil {
		p.UnderwaterColor, err = buf.LoadColor()
	}
	ints(&units)
	bools(&p.UseDefaultMainframe)
	floats(&p.MainframeLocation)
	bools(&p.DisableModelCheck)
	strs(&p.Comment, &p.CreatedBy)
	if err != nil {
		return err
	}
	p.Units = Units(units)
	if !buf.AtLeast(shipcad.V210) {
		return nil
	}
	ints(&coeff)
	bools(&p.SavePreview)
	if err == nil && p.SavePreview {
		p.Preview, err = buf.LoadBytes()
	}
	if buf.AtLeast(shipcad.V230) {
		bools(&p.SimplifyIntersections)
	}
	if err != nil {
		return err
	}
	p.Coefficients = Coefficients(coeff)
	if !buf.AtLeast(shipcad.V250) {
		return nil
	}
	floats(&p.StartDraft, &p.EndDraft, &p.DraftStep, &p.Trim)
	if err == nil {
		p.Displacements, err = loadFloats(buf)
	}
	floats(&p.MinDisplacement, &p.MaxDisplacement, &p.DisplacementIncrement)
	bools(&p.UseDisplacementIncrements)
	if err == nil {
		p.Angles, err = loadFloats(buf)
	}
	if err == nil {
		p.StabilityTrims, err = loadFloats(buf)
	}
	bools(&p.FreeTrim)
	floats(&p.VCG)
	return err
}

func addFloats(buf *filebuf.Buffer, v []float64) {
	buf.AddInt(len(v))
	for _, f := range v {
		buf.AddFloat(f)
	}
}

func loadFloats(buf *filebuf.Buffer) ([]float64, error) {
	n, err := buf.LoadInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("settings: negative list length %d", n)
	}
	v := make([]float64, n)
	for i := range v {
		if v[i], err = buf.LoadFloat(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// WriteTOML encodes the settings as TOML.
func (p *Project) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// ReadTOML decodes TOML settings over the defaults. Unknown keys are an error.
func ReadTOML(r io.Reader) (*Project, error) {
	p := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
