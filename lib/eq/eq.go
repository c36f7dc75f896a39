/*package eq is a simple package for telling whether two arrays are equal to
one another. Neighbor lists carry no ordering guarantee, so it also has
order-independent comparisons.*/
package eq

import (
	"sort"
)

// Generic returns true if two arrays are the same type and have the same values
// and false otherwise. Only []int, []uint32, []uint64, []float64, and
// [][3]float64 are supported.
func Generic(x, y interface{}) bool {
	switch xx := x.(type) {
	case []int:
		yy, ok := y.([]int)
		return ok && Ints(xx, yy)
	case []uint32:
		yy, ok := y.([]uint32)
		return ok && Uint32s(xx, yy)
	case []uint64:
		yy, ok := y.([]uint64)
		return ok && Uint64s(xx, yy)
	case []float64:
		yy, ok := y.([]float64)
		return ok && Float64s(xx, yy)
	case [][3]float64:
		yy, ok := y.([][3]float64)
		return ok && Vec64s(xx, yy)
	default:
		return false
	}
}

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Uint32s returns true if two []uint32 arrays are the same and false otherwise.
func Uint32s(x, y []uint32) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Uint64s returns true if two []uint64 arrays are the same and false otherwise.
func Uint64s(x, y []uint64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Float64s returns true if two []float64 arrays are the same and false
// otherwise.
func Float64s(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Vec64s returns true if two [][3]float64 arrays are the same and false
// otherwise.
func Vec64s(x, y [][3]float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Float64sEps returns true if the two []float64 arrays are within eps of one
// another and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i]+eps < y[i] || x[i]-eps > y[i] {
			return false
		}
	}
	return true
}

// Uint32Sets returns true if x and y contain the same elements with the same
// multiplicities, regardless of order. Neither input is modified.
func Uint32Sets(x, y []uint32) bool {
	if len(x) != len(y) {
		return false
	}
	xs := append([]uint32{}, x...)
	ys := append([]uint32{}, y...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	sort.Slice(ys, func(i, j int) bool { return ys[i] < ys[j] })
	return Uint32s(xs, ys)
}
