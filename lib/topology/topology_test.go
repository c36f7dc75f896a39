package topology

import (
	"sync"
	"testing"

	"github.com/phil-mansfield/nlist/lib/comm"
)

func TestAdd(t *testing.T) {
	d := New(4)

	tests := []struct {
		add   func() error
		valid bool
	}{
		{func() error { return d.AddBond(0, 1) }, true},
		{func() error { return d.AddBond(0, 4) }, false},
		{func() error { return d.AddBond(2, 2) }, false},
		{func() error { return d.AddAngle(0, 1, 2) }, true},
		{func() error { return d.AddAngle(0, 1, 0) }, false},
		{func() error { return d.AddDihedral(0, 1, 2, 3) }, true},
		{func() error { return d.AddDihedral(0, 1, 2, 7) }, false},
	}

	for i := range tests {
		err := tests[i].add()
		if tests[i].valid && err != nil {
			t.Errorf("%d) Unexpected error: %s", i, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected error.", i)
		}
	}

	if len(d.Bonds()) != 1 || len(d.Angles()) != 1 || len(d.Dihedrals()) != 1 {
		t.Errorf("Expected one of each record, got %d bonds, %d angles, %d dihedrals.",
			len(d.Bonds()), len(d.Angles()), len(d.Dihedrals()))
	}

	bonds := d.Bonds()
	bonds[0] = Bond{3, 3}
	if d.Bonds()[0] != (Bond{0, 1}) {
		t.Errorf("Bonds() didn't return a copy.")
	}
}

func TestChains(t *testing.T) {
	tests := []struct {
		nMol, length                int
		nBonds, nAngles, nDihedrals int
	}{
		{1, 1, 0, 0, 0},
		{1, 2, 1, 0, 0},
		{2, 4, 6, 4, 2},
		{3, 5, 12, 9, 6},
	}

	for i := range tests {
		d := New(tests[i].nMol * tests[i].length)
		if err := d.Chains(tests[i].nMol, tests[i].length); err != nil {
			t.Errorf("%d) Unexpected error: %s", i, err.Error())
			continue
		}
		if len(d.Bonds()) != tests[i].nBonds ||
			len(d.Angles()) != tests[i].nAngles ||
			len(d.Dihedrals()) != tests[i].nDihedrals {
			t.Errorf("%d) Expected %d/%d/%d bonds/angles/dihedrals, got %d/%d/%d.",
				i, tests[i].nBonds, tests[i].nAngles, tests[i].nDihedrals,
				len(d.Bonds()), len(d.Angles()), len(d.Dihedrals()))
		}
	}

	d := New(8)
	d.Chains(2, 4)
	if b := d.Bonds()[3]; b != (Bond{4, 5}) {
		t.Errorf("Expected the first bond of the second chain to be [4 5], got %v.", b)
	}
	if dh := d.Dihedrals()[1]; dh != (Dihedral{4, 5, 6, 7}) {
		t.Errorf("Expected the second dihedral to be [4 5 6 7], got %v.", dh)
	}

	if err := New(5).Chains(2, 3); err == nil {
		t.Errorf("Expected error when chains need more tags than exist.")
	}
}

func TestBroadcast(t *testing.T) {
	n := 3
	ranks := comm.NewLocalWorld(n)

	bonds := make([][]Bond, n)
	angles := make([][]Angle, n)
	dihedrals := make([][]Dihedral, n)

	wg := &sync.WaitGroup{}
	wg.Add(n)
	for _, c := range ranks {
		go func(c *comm.Local) {
			defer wg.Done()
			d := New(10)
			if c.Rank() == 0 {
				d.Chains(2, 5)
			}
			r := c.Rank()
			bonds[r], _ = BroadcastBonds(c, 0, d.Bonds())
			angles[r], _ = BroadcastAngles(c, 0, d.Angles())
			dihedrals[r], _ = BroadcastDihedrals(c, 0, d.Dihedrals())
		}(c)
	}
	wg.Wait()

	ref := New(10)
	ref.Chains(2, 5)

	for r := 0; r < n; r++ {
		if len(bonds[r]) != 8 || bonds[r][7] != ref.Bonds()[7] {
			t.Errorf("Rank %d got bonds %v.", r, bonds[r])
		}
		if len(angles[r]) != 6 || angles[r][5] != ref.Angles()[5] {
			t.Errorf("Rank %d got angles %v.", r, angles[r])
		}
		if len(dihedrals[r]) != 4 || dihedrals[r][2] != ref.Dihedrals()[2] {
			t.Errorf("Rank %d got dihedrals %v.", r, dihedrals[r])
		}
	}
}
