package domain

import (
	"testing"

	"github.com/phil-mansfield/nlist/lib/box"
)

func TestOwner(t *testing.T) {
	b, _ := box.New([3]float64{8, 4, 4})
	s0, err := NewSlab(b, 0, 4, nil)
	if err != nil {
		t.Fatal(err.Error())
	}
	s2, _ := NewSlab(b, 2, 4, nil)

	tests := []struct {
		x     [3]float64
		owner int
	}{
		{[3]float64{0, 0, 0}, 0},
		{[3]float64{1.99, 3, 3}, 0},
		{[3]float64{2, 0, 0}, 1},
		{[3]float64{5.5, 1, 1}, 2},
		{[3]float64{7.9, 0, 0}, 3},
		{[3]float64{-0.5, 0, 0}, 3},
		{[3]float64{12.5, 0, 0}, 2},
	}

	for i := range tests {
		if r := s0.Owner(tests[i].x); r != tests[i].owner {
			t.Errorf("%d) Expected Owner(%v) = %d, got %d.",
				i, tests[i].x, tests[i].owner, r)
		}
		if owns := s2.Owns(tests[i].x); owns != (tests[i].owner == 2) {
			t.Errorf("%d) Expected rank 2 Owns(%v) = %v, got %v.",
				i, tests[i].x, tests[i].owner == 2, owns)
		}
	}

	if w := s0.Width(); w != 2 {
		t.Errorf("Expected Width() = 2, got %g.", w)
	}
}

func TestNewSlab(t *testing.T) {
	b, _ := box.New([3]float64{1, 1, 1})
	if _, err := NewSlab(b, 2, 2, nil); err == nil {
		t.Errorf("Expected error for rank 2 of 2.")
	}
	if _, err := NewSlab(b, 0, 0, nil); err == nil {
		t.Errorf("Expected error for an empty decomposition.")
	}
}

func TestMigrateRequested(t *testing.T) {
	b, _ := box.New([3]float64{1, 1, 1})
	s, _ := NewSlab(b, 0, 1, nil)

	if s.MigrateRequested(0) {
		t.Errorf("Expected no migration without requests.")
	}

	calls := 0
	s.AddMigrateRequest(func(step uint64) bool { return step%2 == 0 })
	s.AddMigrateRequest(func(step uint64) bool { calls++; return false })

	if !s.MigrateRequested(4) || s.MigrateRequested(5) {
		t.Errorf("Expected migration on even steps only.")
	}
	if calls != 2 {
		t.Errorf("Expected every request to be evaluated, got %d calls.", calls)
	}

	s.SetGhostLayerWidth(0.3)
	s.SetRBuff(0.1)
	if s.GhostLayerWidth() != 0.3 || s.RBuff() != 0.1 {
		t.Errorf("Expected ghost width 0.3 and rbuff 0.1, got %g and %g.",
			s.GhostLayerWidth(), s.RBuff())
	}
}
