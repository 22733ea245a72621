package shipcad

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Foot is the length of a foot in metres.
	Foot = 0.3048
	// WeightConversionFactor converts cubic feet of sea water to imperial tons.
	WeightConversionFactor = 1.016046909
)

const (
	pi = math.Pi
	// minNormalLength is the shortest cross product UnifiedNormal will normalise.
	minNormalLength = 1e-6
)

// DtoR converts degrees to radians
func DtoR(degrees float64) float64 {
	return (pi / 180) * degrees
}

// RtoD converts radians to degrees
func RtoD(radians float64) float64 {
	return (180 / pi) * radians
}

// Clamp x between a and b, assume a <= b
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Interpolate returns the y value at x on the line through (x1,y1) and (x2,y2).
// When the two abscissae are too close or x falls outside [x1,x2] the
// midpoint ordinate is returned.
func Interpolate(x, x1, y1, x2, y2 float64) float64 {
	if math.Abs(x2-x1) < 1e-3 {
		return 0.5 * (y1 + y2)
	}
	y := y1 + (x-x1)/(x2-x1)*(y2-y1)
	lo, hi := math.Min(y1, y2), math.Max(y1, y2)
	if y < lo || y > hi {
		return 0.5 * (y1 + y2)
	}
	return y
}

// UnifiedNormal returns the unit normal of the triangle p1,p2,p3
// following the right hand rule. Degenerate triangles yield
// a short, not unit, vector instead of NaNs.
func UnifiedNormal(p1, p2, p3 r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	l := r3.Norm(n)
	if l < minNormalLength {
		l = minNormalLength
	}
	return r3.Scale(1/l, n)
}

// TriangleArea returns the area of the 3D triangle p1,p2,p3.
func TriangleArea(p1, p2, p3 r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1)))
}

// MirrorY returns v mirrored in the centreplane y=0.
func MirrorY(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Y, Z: v.Z}
}

// EqualWithin reports whether a and b differ by at most tol.
func EqualWithin(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ErrMsg returns an error with a message function name and line number.
func ErrMsg(msg string) error {
	pc, _, line, ok := runtime.Caller(1)
	if !ok {
		return errors.New(msg)
	}
	fn := runtime.FuncForPC(pc)
	return fmt.Errorf("%s line %d: %s", fn.Name(), line, msg)
}
