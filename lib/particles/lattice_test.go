package particles

import (
	"testing"
)

func TestZMajorLattice(t *testing.T) {
	g := NewZMajorLattice(4, 8)

	if g.Sites() != 64 {
		t.Errorf("Expected 64 sites, got %d.", g.Sites())
	}

	for tag := uint64(0); tag < uint64(g.Sites()); tag++ {
		idx := g.TagToIndex(tag)
		if out := g.IndexToTag(idx); out != tag {
			t.Errorf("Expected IndexToTag(TagToIndex(%d)) = %d, got %d.",
				tag, tag, out)
		}
	}

	tests := []struct {
		tag uint64
		x   [3]float64
	}{
		{0, [3]float64{1, 1, 1}},
		{1, [3]float64{1, 1, 3}},
		{4, [3]float64{1, 3, 1}},
		{16, [3]float64{3, 1, 1}},
		{63, [3]float64{7, 7, 7}},
	}

	for i := range tests {
		if x := g.Position(tests[i].tag); x != tests[i].x {
			t.Errorf("%d) Expected Position(%d) = %v, got %v.",
				i, tests[i].tag, tests[i].x, x)
		}
	}
}
