package nlist

import (
	"testing"

	"github.com/phil-mansfield/nlist/lib/eq"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		nmax, exp []uint32
	}{
		{[]uint32{0, 0}, []uint32{8, 8}},
		{[]uint32{8, 1}, []uint32{8, 8}},
		{[]uint32{9, 16}, []uint32{16, 16}},
		{[]uint32{17, 31, 33}, []uint32{24, 32, 40}},
	}

	for i := range tests {
		c := NewCapacity(len(tests[i].nmax), 4)
		copy(c.nmax, tests[i].nmax)
		c.Allocate(10)
		if !eq.Uint32s(c.NMax(), tests[i].exp) {
			t.Errorf("%d) Expected NMax() = %v, got %v.", i, tests[i].exp, c.NMax())
		}
		if len(c.Head()) != 10 {
			t.Errorf("%d) Expected head list of length 10, got %d.", i, len(c.Head()))
		}
	}
}

func TestBuildHeadList(t *testing.T) {
	c := NewCapacity(2, 5)
	c.nmax[1] = 16

	types := []uint32{0, 1, 1, 0}
	c.BuildHeadList(types)

	if !eq.Uint32s(c.Head()[:4], []uint32{0, 8, 24, 40}) {
		t.Errorf("Expected head list [0 8 24 40], got %v.", c.Head()[:4])
	}
	if len(c.NList()) != 48 {
		t.Errorf("Expected flat list of length 48, got %d.", len(c.NList()))
	}

	// Shrinking capacities never shrinks the flat list.
	c.nmax[1] = 8
	c.BuildHeadList(types)
	if len(c.NList()) != 48 {
		t.Errorf("Expected flat list to stay at length 48, got %d.", len(c.NList()))
	}
}

func TestCheckConditions(t *testing.T) {
	c := NewCapacity(3, 1)

	if c.CheckConditions() {
		t.Errorf("Expected no overflow with zeroed conditions.")
	}

	copy(c.Conditions(), []uint32{8, 11, 3})
	if !c.CheckConditions() {
		t.Errorf("Expected overflow.")
	}
	if !eq.Uint32s(c.NMax(), []uint32{8, 11, 8}) {
		t.Errorf("Expected NMax() = [8 11 8], got %v.", c.NMax())
	}

	c.Allocate(1)
	if !eq.Uint32s(c.NMax(), []uint32{8, 16, 8}) {
		t.Errorf("Expected NMax() = [8 16 8] after Allocate, got %v.", c.NMax())
	}
	if c.CheckConditions() {
		t.Errorf("Expected no overflow after growth.")
	}

	c.ResetConditions()
	if !eq.Uint32s(c.Conditions(), []uint32{0, 0, 0}) {
		t.Errorf("Expected zeroed conditions, got %v.", c.Conditions())
	}
}

func TestResize(t *testing.T) {
	c := NewCapacity(1, 2)
	c.NNeigh()[1] = 5
	c.Resize(4)
	if !eq.Uint32s(c.NNeigh(), []uint32{0, 5, 0, 0}) {
		t.Errorf("Expected NNeigh() = [0 5 0 0], got %v.", c.NNeigh())
	}
	if len(c.Head()) != 4 {
		t.Errorf("Expected head list of length 4, got %d.", len(c.Head()))
	}
}
