package nlist

// Align is the granularity that per-type capacities are rounded up to.
const Align = 8

// Capacity owns the flat neighbor array and the tables used to address it:
// the per-type maximum neighbor count, the per-particle head offsets and
// neighbor counts, and the per-type overflow conditions written by pair
// finders.
type Capacity struct {
	nmax       []uint32
	conditions []uint32
	head       []uint32
	nneigh     []uint32
	nlist      []uint32
}

// NewCapacity allocates tables for nTypes types and up to maxN particles.
// Every type starts out with Align slots.
func NewCapacity(nTypes, maxN int) *Capacity {
	c := &Capacity{
		nmax:       make([]uint32, nTypes),
		conditions: make([]uint32, nTypes),
		nneigh:     make([]uint32, maxN),
	}
	c.Allocate(maxN)
	return c
}

// Allocate rounds every per-type capacity up to a multiple of Align (with a
// minimum of Align) and reallocates the head list for maxN particles. The
// head list must be rebuilt afterwards.
func (c *Capacity) Allocate(maxN int) {
	for i := range c.nmax {
		if c.nmax[i] > Align {
			c.nmax[i] = (c.nmax[i] + Align - 1) &^ (Align - 1)
		} else {
			c.nmax[i] = Align
		}
	}
	c.head = make([]uint32, maxN)
}

// Resize changes the number of particles the per-particle tables can hold.
// Existing neighbor counts are kept.
func (c *Capacity) Resize(maxN int) {
	nneigh := make([]uint32, maxN)
	copy(nneigh, c.nneigh)
	c.nneigh = nneigh
	c.head = make([]uint32, maxN)
}

// BuildHeadList assigns each particle the offset of its first neighbor slot:
// the sum of the capacities of the types of all particles before it. The
// flat array is grown if it's too small, never shrunk. types must have one
// entry per local particle.
func (c *Capacity) BuildHeadList(types []uint32) {
	addr := 0
	for i, typ := range types {
		c.head[i] = uint32(addr)
		addr += int(c.nmax[typ])
	}

	if addr > len(c.nlist) {
		c.nlist = make([]uint32, addr)
	}
}

// CheckConditions raises the capacity of every type whose observed neighbor
// count exceeded it and returns true if any did.
func (c *Capacity) CheckConditions() bool {
	overflow := false
	for i := range c.nmax {
		if c.conditions[i] > c.nmax[i] {
			c.nmax[i] = c.conditions[i]
			overflow = true
		}
	}
	return overflow
}

// ResetConditions zeroes the observed neighbor counts.
func (c *Capacity) ResetConditions() {
	for i := range c.conditions {
		c.conditions[i] = 0
	}
}

// NMax returns the per-type capacities.
func (c *Capacity) NMax() []uint32 { return c.nmax }

// Conditions returns the per-type maximum neighbor counts seen by the last
// build.
func (c *Capacity) Conditions() []uint32 { return c.conditions }

// Head returns the per-particle head offsets.
func (c *Capacity) Head() []uint32 { return c.head }

// NNeigh returns the per-particle neighbor counts.
func (c *Capacity) NNeigh() []uint32 { return c.nneigh }

// NList returns the flat neighbor array.
func (c *Capacity) NList() []uint32 { return c.nlist }
