package particles

// ZMajorLattice maps particle tags onto the sites of a cubic lattice. This is
// the ordering used by, e.g., 2LPTic and many other codes, and it gives a
// convenient way to lay down initial conditions where a particle's tag tells
// you where it started.
type ZMajorLattice struct {
	n     int
	n64   uint64
	width float64
}

// NewZMajorLattice returns a z-major lattice with n sites on each side of a
// box of the given width.
func NewZMajorLattice(n int, width float64) *ZMajorLattice {
	return &ZMajorLattice{n, uint64(n), width}
}

// Sites returns the total number of lattice sites.
func (g *ZMajorLattice) Sites() int { return g.n * g.n * g.n }

// Spacing returns the distance between neighboring sites.
func (g *ZMajorLattice) Spacing() float64 { return g.width / float64(g.n) }

// TagToIndex converts a tag to its 3-index on the lattice.
func (g *ZMajorLattice) TagToIndex(tag uint64) [3]int {
	return [3]int{
		int(tag / (g.n64 * g.n64)),
		int((tag / g.n64) % g.n64),
		int(tag % g.n64),
	}
}

// IndexToTag converts a 3-index on the lattice to its tag.
func (g *ZMajorLattice) IndexToTag(i [3]int) uint64 {
	return uint64(i[2] + i[1]*g.n + i[0]*g.n*g.n)
}

// Position returns the position of the lattice site of a tag. Sites sit at
// the centers of lattice cells.
func (g *ZMajorLattice) Position(tag uint64) [3]float64 {
	idx, dx := g.TagToIndex(tag), g.Spacing()
	return [3]float64{
		(float64(idx[0]) + 0.5) * dx,
		(float64(idx[1]) + 0.5) * dx,
		(float64(idx[2]) + 0.5) * dx,
	}
}
