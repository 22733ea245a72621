package shipcad

import (
	"image/color"
	"math"
)

// aci is the AutoCAD colour index palette. Index 0 (ByBlock) is unused.
var aci = buildACI()

func buildACI() (p [256]color.RGBA) {
	basic := [...]color.RGBA{
		1: {255, 0, 0, 255},
		2: {255, 255, 0, 255},
		3: {0, 255, 0, 255},
		4: {0, 255, 255, 255},
		5: {0, 0, 255, 255},
		6: {255, 0, 255, 255},
		7: {255, 255, 255, 255},
		8: {128, 128, 128, 255},
		9: {192, 192, 192, 255},
	}
	copy(p[:], basic[:])
	// 10..249: 24 hues, 5 shades, full and half saturation.
	shades := [5]float64{255, 204, 153, 127, 76}
	for i := 10; i < 250; i++ {
		hue := float64((i-10)/10) * 15
		k := (i - 10) % 10
		v := shades[k/2]
		sat := 1.0
		if k%2 == 1 {
			sat = 0.5
		}
		p[i] = hsv(hue, sat, v)
	}
	grays := [6]uint8{51, 80, 105, 130, 190, 255}
	for i, g := range grays {
		p[250+i] = color.RGBA{g, g, g, 255}
	}
	return p
}

func hsv(h, s, v float64) color.RGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g = c, x
	case h < 120:
		r, g = x, c
	case h < 180:
		g, b = c, x
	case h < 240:
		g, b = x, c
	case h < 300:
		r, b = x, c
	default:
		r, b = c, x
	}
	return color.RGBA{uint8(math.Round(r + m)), uint8(math.Round(g + m)), uint8(math.Round(b + m)), 255}
}

// FindDXFColorIndex returns the AutoCAD colour index nearest to c.
func FindDXFColorIndex(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	fr, fg, fb := float64(r>>8), float64(g>>8), float64(b>>8)
	best := 7
	bestDist := math.Inf(1)
	for i := 1; i < len(aci); i++ {
		dr := fr - float64(aci[i].R)
		dg := fg - float64(aci[i].G)
		db := fb - float64(aci[i].B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// DXFColor returns the palette colour of an AutoCAD colour index.
func DXFColor(index uint8) color.RGBA {
	if index == 0 {
		return aci[7]
	}
	return aci[index]
}
