package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Transform is a 2D affine transform of the form
//
//	p' = R p + t
//
// The zero value is not the identity.
type Transform struct {
	r00, r01, r10, r11 float64
	t                  r2.Vec
}

// Rotate returns a rotation of angle radians about the origin.
func Rotate(angle float64) Transform {
	s, c := math.Sincos(angle)
	return Transform{r00: c, r01: -s, r10: s, r11: c}
}

// RotateAbout returns a rotation of angle radians about center.
func RotateAbout(center r2.Vec, angle float64) Transform {
	return Translate(center).Mul(Rotate(angle)).Mul(Translate(r2.Scale(-1, center)))
}

// Translate returns a translation by v.
func Translate(v r2.Vec) Transform {
	return Transform{r00: 1, r11: 1, t: v}
}

// Mul returns the transform that applies b and then a.
func (a Transform) Mul(b Transform) Transform {
	return Transform{
		r00: a.r00*b.r00 + a.r01*b.r10,
		r01: a.r00*b.r01 + a.r01*b.r11,
		r10: a.r10*b.r00 + a.r11*b.r10,
		r11: a.r10*b.r01 + a.r11*b.r11,
		t:   a.Apply(b.t),
	}
}

// Apply transforms the position p.
func (a Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: a.r00*p.X + a.r01*p.Y + a.t.X,
		Y: a.r10*p.X + a.r11*p.Y + a.t.Y,
	}
}
