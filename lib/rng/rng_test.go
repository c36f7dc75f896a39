package rng

import (
	"testing"
)

func TestUniformRange(t *testing.T) {
	gen := New(1337)
	for i := 0; i < 10000; i++ {
		x := gen.Uniform()
		if x < 0 || x >= 1 {
			t.Fatalf("%d) Uniform() returned %g, outside [0, 1).", i, x)
		}
	}
}

func TestDeterministic(t *testing.T) {
	g1, g2 := New(7), New(7)
	x1, x2 := make([]float64, 100), make([]float64, 100)
	g1.UniformSequence(x1)
	g2.UniformSequence(x2)
	for i := range x1 {
		if x1[i] != x2[i] {
			t.Fatalf("%d) Streams with the same seed differ: %g != %g.",
				i, x1[i], x2[i])
		}
	}

	g3 := New(7 + 1<<32)
	if g3.Uniform() == New(7).Uniform() {
		t.Errorf("Seeds differing in high bits gave the same stream.")
	}
}

func TestIntn(t *testing.T) {
	gen := New(3)
	counts := make([]int, 5)
	for i := 0; i < 5000; i++ {
		counts[gen.Intn(5)]++
	}
	for i := range counts {
		if counts[i] == 0 {
			t.Errorf("Intn(5) never returned %d.", i)
		}
	}
}

func TestDisplacement(t *testing.T) {
	gen := New(11)
	for i := 0; i < 1000; i++ {
		dx := gen.Displacement(0.5)
		for dim := range dx {
			if dx[dim] < -0.5 || dx[dim] >= 0.5 {
				t.Fatalf("%d) Displacement(0.5) gave %v.", i, dx)
			}
		}
	}
}
