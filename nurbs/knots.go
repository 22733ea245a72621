package nurbs

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Epsilon is the tolerance used when comparing knot values.
const Epsilon = 1e-10

// KnotVector is a non decreasing sequence of parameter values.
type KnotVector []float64

// Clone returns a copy of the knot vector.
func (kv KnotVector) Clone() KnotVector {
	return append(KnotVector(nil), kv...)
}

// Domain returns the span between the first and last knot.
func (kv KnotVector) Domain() float64 {
	return kv[len(kv)-1] - kv[0]
}

// Span returns the index of the knot span containing u for a basis of the
// given degree.
func (kv KnotVector) Span(degree int, u float64) int {
	n := len(kv) - degree - 2
	return kv.SpanGivenN(n, degree, u)
}

// SpanGivenN returns the knot span of u where n+1 is the number of basis
// functions (The NURBS Book, algorithm A2.1).
func (kv KnotVector) SpanGivenN(n, degree int, u float64) int {
	if u >= kv[n+1] {
		return n
	}
	if u < kv[degree] {
		return degree
	}
	low, high := degree, n+1
	mid := (low + high) / 2
	for u < kv[mid] || u >= kv[mid+1] {
		if u < kv[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// KnotMultiplicity is a distinct knot value and the number of times it repeats.
type KnotMultiplicity struct {
	Knot float64
	Mult int
}

// Multiplicities returns the distinct knots with their multiplicity.
func (kv KnotVector) Multiplicities() []KnotMultiplicity {
	if len(kv) == 0 {
		return nil
	}
	mults := []KnotMultiplicity{{kv[0], 0}}
	cur := 0
	for _, k := range kv {
		if math.Abs(k-mults[cur].Knot) > Epsilon {
			mults = append(mults, KnotMultiplicity{k, 0})
			cur++
		}
		mults[cur].Mult++
	}
	return mults
}

// Multiplicity returns how many knots equal u.
func (kv KnotVector) Multiplicity(u float64) (n int) {
	for _, k := range kv {
		if math.Abs(k-u) <= Epsilon {
			n++
		}
	}
	return n
}

// IsNonDecreasing reports whether the knots never decrease.
func (kv KnotVector) IsNonDecreasing() bool {
	for i := 1; i < len(kv); i++ {
		if kv[i] < kv[i-1]-Epsilon {
			return false
		}
	}
	return true
}

// IsValid reports whether kv can serve n control points of the given degree.
func (kv KnotVector) IsValid(n, degree int) bool {
	return degree >= 1 && n > degree && len(kv) == n+degree+1 && kv.IsNonDecreasing()
}

// IsClamped reports whether the first and last degree+1 knots repeat.
func (kv KnotVector) IsClamped(degree int) bool {
	if len(kv) < 2*(degree+1) {
		return false
	}
	for _, k := range kv[:degree+1] {
		if math.Abs(k-kv[0]) > Epsilon {
			return false
		}
	}
	last := kv[len(kv)-1]
	for _, k := range kv[len(kv)-degree-1:] {
		if math.Abs(k-last) > Epsilon {
			return false
		}
	}
	return true
}

// Normalize rescales the knots to [0,1] in place.
func (kv KnotVector) Normalize() {
	d := kv.Domain()
	if d <= 0 {
		return
	}
	floats.AddConst(-kv[0], kv)
	floats.Scale(1/d, kv)
}

// Reversed returns the knot vector of the reversed parametrisation.
func (kv KnotVector) Reversed() KnotVector {
	n := len(kv)
	out := make(KnotVector, n)
	out[0] = kv[0]
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + (kv[n-i] - kv[n-i-1])
	}
	return out
}

// Uniform returns evenly spaced knots on [0,1] for n control points.
func Uniform(n, degree int) KnotVector {
	m := n + degree + 1
	kv := make(KnotVector, m)
	floats.Span(kv, 0, 1)
	return kv
}

// Open returns the clamped knot vector on [0,1] for n control points: the
// end knots repeat degree+1 times and the interior knots are evenly spaced.
func Open(n, degree int) KnotVector {
	kv := make(KnotVector, n+degree+1)
	inner := n - degree
	for i := range kv {
		switch {
		case i <= degree:
			kv[i] = 0
		case i >= n:
			kv[i] = 1
		default:
			kv[i] = float64(i-degree) / float64(inner)
		}
	}
	return kv
}

// basisFunctions returns the degree+1 non vanishing basis functions at u in
// the given span (The NURBS Book, algorithm A2.2).
func basisFunctions(span int, u float64, degree int, kv KnotVector) []float64 {
	n := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	n[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = u - kv[span+1-j]
		right[j] = kv[span+j] - u
		var saved float64
		for r := 0; r < j; r++ {
			temp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		n[j] = saved
	}
	return n
}
