package nlist

import (
	"errors"
	"testing"

	"github.com/phil-mansfield/nlist/lib/eq"
	"github.com/phil-mansfield/nlist/lib/particles"
	"github.com/phil-mansfield/nlist/lib/topology"
)

// excludedPairs returns every excluded pair a < b.
func excludedPairs(ex *Exclusions) [][2]uint32 {
	out := [][2]uint32{}
	for a := 0; a < ex.NGlobal(); a++ {
		for _, b := range ex.Excluded(uint32(a)) {
			if uint32(a) < b {
				out = append(out, [2]uint32{uint32(a), b})
			}
		}
	}
	return out
}

func pairsEq(x, y [][2]uint32) bool {
	if len(x) != len(y) {
		return false
	}
	set := map[[2]uint32]bool{}
	for _, p := range x {
		set[p] = true
	}
	for _, p := range y {
		if !set[p] {
			return false
		}
	}
	return true
}

func checkSymmetric(t *testing.T, ex *Exclusions) {
	t.Helper()
	n := uint32(ex.NGlobal())
	for a := uint32(0); a < n; a++ {
		for b := uint32(0); b < n; b++ {
			if ex.IsExcluded(a, b) != ex.IsExcluded(b, a) {
				t.Errorf("IsExcluded(%d, %d) = %v, but IsExcluded(%d, %d) = %v.",
					a, b, ex.IsExcluded(a, b), b, a, ex.IsExcluded(b, a))
			}
		}
	}
}

func TestExclusionsAdd(t *testing.T) {
	changes := 0
	ex := NewExclusions(5, 5, func() { changes++ })

	if ex.Set() {
		t.Errorf("Expected a new table to be unset.")
	}

	pairs := [][2]uint32{{0, 1}, {0, 2}, {0, 3}, {4, 0}, {1, 2}}
	for _, p := range pairs {
		if err := ex.Add(p[0], p[1]); err != nil {
			t.Fatalf("Unexpected error adding %v: %s", p, err.Error())
		}
	}

	if !ex.Set() {
		t.Errorf("Expected the table to be set.")
	}
	if ex.Width() != 4 {
		t.Errorf("Expected width 4, got %d.", ex.Width())
	}
	if !eq.Uint32s(ex.Excluded(0), []uint32{1, 2, 3, 4}) {
		t.Errorf("Expected tag 0 to exclude [1 2 3 4] in order, got %v.", ex.Excluded(0))
	}
	if changes == 0 {
		t.Errorf("Expected change notifications.")
	}
	checkSymmetric(t, ex)

	// Duplicates, in either order, don't change the table.
	before := changes
	ex.Add(1, 0)
	ex.Add(0, 1)
	if ex.Count(0) != 4 || ex.Count(1) != 2 {
		t.Errorf("Expected counts 4 and 2 after duplicates, got %d and %d.",
			ex.Count(0), ex.Count(1))
	}
	if changes != before {
		t.Errorf("Duplicate exclusions forced a rebuild.")
	}

	if err := ex.Add(0, 5); !errors.Is(err, ErrTagRange) {
		t.Errorf("Expected ErrTagRange, got %v.", err)
	}
	if ex.IsExcluded(7, 0) {
		t.Errorf("Out of range tags can't be excluded.")
	}
}

func TestSelfExclusions(t *testing.T) {
	tests := []struct {
		add func(ex *Exclusions) error
	}{
		{func(ex *Exclusions) error { return ex.Add(0, 0) }},
		{func(ex *Exclusions) error { return ex.Add(2, 2) }},
		{func(ex *Exclusions) error {
			return ex.AddFromBonds([]topology.Bond{{0, 1}, {1, 1}})
		}},
		{func(ex *Exclusions) error {
			return ex.AddFromAngles([]topology.Angle{{0, 1, 0}})
		}},
		{func(ex *Exclusions) error {
			return ex.AddFromDihedrals([]topology.Dihedral{{2, 0, 1, 2}})
		}},
		{func(ex *Exclusions) error {
			return ex.AddOneThree([]topology.Bond{{0, 1}, {2, 2}}, nil)
		}},
		{func(ex *Exclusions) error {
			return ex.AddOneFour([]topology.Bond{{0, 0}, {1, 2}}, nil)
		}},
	}

	for i := range tests {
		ex := NewExclusions(3, 3, nil)
		if err := tests[i].add(ex); !errors.Is(err, ErrSelfExclusion) {
			t.Errorf("%d) Expected ErrSelfExclusion, got %v.", i, err)
		}
		for tag := uint32(0); tag < 3; tag++ {
			if ex.Count(tag) != 0 {
				t.Errorf("%d) Expected an unchanged table, but tag %d has "+
					"exclusions %v.", i, tag, ex.Excluded(tag))
			}
		}
		if ex.Width() != 1 {
			t.Errorf("%d) Expected width 1, got %d.", i, ex.Width())
		}

		// The table still works afterwards.
		if err := ex.Add(1, 2); err != nil {
			t.Fatalf("%d) Unexpected error: %s", i, err.Error())
		}
		if ex.IsExcluded(0, 2) || !ex.IsExcluded(2, 1) {
			t.Errorf("%d) Expected only (1, 2) to be excluded, got %v.",
				i, excludedPairs(ex))
		}
		checkSymmetric(t, ex)
	}
}

func TestExclusionsClear(t *testing.T) {
	ex := NewExclusions(3, 3, nil)
	ex.Add(0, 1)
	ex.Add(1, 2)
	ex.Clear()

	if ex.Set() || ex.IsExcluded(0, 1) || ex.Count(1) != 0 {
		t.Errorf("Expected an empty, unset table after Clear.")
	}
}

func TestRemoveTags(t *testing.T) {
	ex := NewExclusions(5, 5, nil)
	ex.Add(0, 1)
	ex.Add(0, 2)
	ex.Add(1, 2)
	ex.Add(3, 4)
	ex.Add(2, 3)

	if err := ex.RemoveTags([]uint32{2}); err != nil {
		t.Fatal(err.Error())
	}

	exp := [][2]uint32{{0, 1}, {3, 4}}
	if got := excludedPairs(ex); !pairsEq(got, exp) {
		t.Errorf("Expected %v, got %v.", exp, got)
	}
	checkSymmetric(t, ex)

	if err := ex.RemoveTags([]uint32{9}); !errors.Is(err, ErrTagRange) {
		t.Errorf("Expected ErrTagRange, got %v.", err)
	}
}

func TestUpdateIndexAndFilter(t *testing.T) {
	ex := NewExclusions(4, 4, nil)
	ex.Add(0, 1)
	ex.Add(0, 3)

	// Index 0 holds tag 3, index 1 holds tag 0, index 2 holds tag 1. Tag 2
	// isn't local.
	tags := []uint32{3, 0, 1}
	rtags := []uint32{1, 2, particles.NotLocal, 0}
	ex.UpdateIndex(tags, rtags)

	head := []uint32{0, 3, 6}
	nneigh := []uint32{2, 2, 2}
	nlist := []uint32{
		1, 2, 0,
		0, 2, 0,
		0, 1, 0,
	}

	ex.Filter(head, nneigh, nlist, 3)

	if !eq.Uint32s(nneigh, []uint32{1, 0, 1}) {
		t.Errorf("Expected NNeigh = [1 0 1], got %v.", nneigh)
	}
	if nlist[0] != 2 || nlist[6] != 0 {
		t.Errorf("Expected filtered lists [2] and [0], got %v and %v.",
			nlist[0:1], nlist[6:7])
	}

	// Filtering is idempotent.
	before := append([]uint32{}, nlist...)
	ex.Filter(head, nneigh, nlist, 3)
	if !eq.Uint32s(nneigh, []uint32{1, 0, 1}) || !eq.Uint32s(before, nlist) {
		t.Errorf("Second Filter changed the list.")
	}
}

func TestTopologyExclusions(t *testing.T) {
	tests := []struct {
		nGlobal int
		add     func(ex *Exclusions) error
		exp     [][2]uint32
	}{
		{4, func(ex *Exclusions) error {
			return ex.AddFromBonds([]topology.Bond{{0, 1}, {2, 3}})
		}, [][2]uint32{{0, 1}, {2, 3}}},
		{4, func(ex *Exclusions) error {
			return ex.AddFromAngles([]topology.Angle{{0, 1, 2}, {1, 2, 3}})
		}, [][2]uint32{{0, 2}, {1, 3}}},
		{4, func(ex *Exclusions) error {
			return ex.AddFromDihedrals([]topology.Dihedral{{0, 1, 2, 3}})
		}, [][2]uint32{{0, 3}}},
		{3, func(ex *Exclusions) error {
			return ex.AddOneThree([]topology.Bond{{0, 1}, {1, 2}}, nil)
		}, [][2]uint32{{0, 2}}},
		{4, func(ex *Exclusions) error {
			return ex.AddOneFour([]topology.Bond{{0, 1}, {1, 2}, {2, 3}}, nil)
		}, [][2]uint32{{0, 3}}},
		{5, func(ex *Exclusions) error {
			// A star: every pair of arms is 1-3.
			return ex.AddOneThree([]topology.Bond{{0, 1}, {0, 2}, {0, 3}, {0, 4}}, nil)
		}, [][2]uint32{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}},
		{3, func(ex *Exclusions) error {
			return ex.AddOneThree(nil, nil)
		}, [][2]uint32{}},
	}

	for i := range tests {
		ex := NewExclusions(tests[i].nGlobal, tests[i].nGlobal, nil)
		if err := tests[i].add(ex); err != nil {
			t.Errorf("%d) Unexpected error: %s", i, err.Error())
			continue
		}
		if got := excludedPairs(ex); !pairsEq(got, tests[i].exp) {
			t.Errorf("%d) Expected exclusions %v, got %v.", i, tests[i].exp, got)
		}
		checkSymmetric(t, ex)
	}
}

func TestTooManyBonds(t *testing.T) {
	ex := NewExclusions(10, 10, nil)
	ex.Add(8, 9)

	bonds := []topology.Bond{}
	for i := uint32(1); i <= MaxBonds+1; i++ {
		bonds = append(bonds, topology.Bond{0, i})
	}

	if err := ex.AddOneThree(bonds, nil); !errors.Is(err, ErrTooManyBonds) {
		t.Errorf("Expected ErrTooManyBonds from AddOneThree, got %v.", err)
	}
	if err := ex.AddOneFour(bonds, nil); !errors.Is(err, ErrTooManyBonds) {
		t.Errorf("Expected ErrTooManyBonds from AddOneFour, got %v.", err)
	}

	// The table is untouched.
	if got := excludedPairs(ex); !pairsEq(got, [][2]uint32{{8, 9}}) {
		t.Errorf("Expected only [8 9] to be excluded, got %v.", got)
	}

	if err := ex.AddOneThree(bonds[:MaxBonds], nil); err != nil {
		t.Errorf("Expected %d bonds to be allowed, got %s.", MaxBonds, err.Error())
	}
}

func TestExclusionStats(t *testing.T) {
	ex := NewExclusions(20, 20, nil)
	for i := uint32(1); i < 19; i++ {
		ex.Add(0, i)
	}

	s := ex.Stats()
	if s.Max != 18 || s.Overflow != 1 {
		t.Errorf("Expected Max = 18 and Overflow = 1, got %d and %d.", s.Max, s.Overflow)
	}
	if s.Counts[1] != 18 || s.Counts[0] != 1 {
		t.Errorf("Expected 18 tags with 1 exclusion and 1 with 0, got %d and %d.",
			s.Counts[1], s.Counts[0])
	}
}

func TestResizeGlobal(t *testing.T) {
	ex := NewExclusions(3, 3, nil)
	ex.Add(0, 1)
	ex.ResizeGlobal(6)

	if ex.NGlobal() != 6 || ex.Set() || ex.Count(0) != 0 {
		t.Errorf("Expected an empty table of 6 tags after ResizeGlobal.")
	}
	if err := ex.Add(4, 5); err != nil {
		t.Errorf("Unexpected error: %s", err.Error())
	}
}
