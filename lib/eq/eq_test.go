package eq

import (
	"testing"
)

func TestGeneric(t *testing.T) {
	tests := []struct {
		x, y interface{}
		res  bool
	}{
		{[]int{1, 2}, []int{1, 2}, true},
		{[]int{1, 2}, []int{2, 1}, false},
		{[]int{1, 2}, []uint32{1, 2}, false},
		{[]uint32{}, []uint32{}, true},
		{[]uint64{4, 8}, []uint64{4, 8, 15}, false},
		{[]float64{0.5}, []float64{0.5}, true},
		{[][3]float64{{1, 2, 3}}, [][3]float64{{1, 2, 3}}, true},
		{[][3]float64{{1, 2, 3}}, [][3]float64{{1, 2, 4}}, false},
		{"meow", "meow", false},
	}

	for i := range tests {
		if res := Generic(tests[i].x, tests[i].y); res != tests[i].res {
			t.Errorf("%d) Expected Generic(%v, %v) = %v, got %v.",
				i, tests[i].x, tests[i].y, tests[i].res, res)
		}
	}
}

func TestUint32Sets(t *testing.T) {
	tests := []struct {
		x, y []uint32
		res  bool
	}{
		{[]uint32{}, []uint32{}, true},
		{[]uint32{3, 1, 2}, []uint32{1, 2, 3}, true},
		{[]uint32{1, 1, 2}, []uint32{1, 2, 2}, false},
		{[]uint32{1, 2}, []uint32{1, 2, 3}, false},
	}

	for i := range tests {
		x := append([]uint32{}, tests[i].x...)
		if res := Uint32Sets(tests[i].x, tests[i].y); res != tests[i].res {
			t.Errorf("%d) Expected Uint32Sets(%v, %v) = %v, got %v.",
				i, tests[i].x, tests[i].y, tests[i].res, res)
		}
		if !Uint32s(x, tests[i].x) {
			t.Errorf("%d) Uint32Sets modified its input.", i)
		}
	}
}

func TestFloat64sEps(t *testing.T) {
	if !Float64sEps([]float64{1, 2}, []float64{1.05, 1.95}, 0.1) {
		t.Errorf("Expected arrays within 0.1 to compare equal.")
	}
	if Float64sEps([]float64{1, 2}, []float64{1.5, 2}, 0.1) {
		t.Errorf("Expected arrays differing by 0.5 to compare unequal.")
	}
}
