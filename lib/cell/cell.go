/*package cell contains a cell-list pair finder for the neighbor list engine.

Particles are binned by their fractional coordinates into a grid whose cells
are at least one list radius wide along every reciprocal direction, so any
pair inside the list radius lives in the same or adjacent cells. Cells are
stored as linked lists: Heads holds the first particle of each cell and Next
holds the particle after each particle.*/
package cell

import (
	"log/slog"
	"math"

	"github.com/phil-mansfield/nlist/lib/nlist"
)

const (
	tail = -1
	// Grids are never allowed to have more than this many cells per local
	// particle, so tiny cutoffs don't allocate huge empty grids.
	maxCellsPerParticle = 8
	minMaxCells         = 64
)

var _ nlist.PairFinder = &Finder{}

// Finder implements nlist.PairFinder with a cell list. The zero value is
// ready to use. A Finder reuses its buffers between builds and isn't safe
// for concurrent use.
type Finder struct {
	Logger *slog.Logger

	dims  [3]int
	heads []int
	next  []int
	cell  []int

	stencil []int
}

// Dims returns the number of cells along each axis used by the last build.
func (f *Finder) Dims() [3]int { return f.dims }

// Cells returns the total number of cells used by the last build.
func (f *Finder) Cells() int { return f.dims[0] * f.dims[1] * f.dims[2] }

// Find implements nlist.PairFinder.
func (f *Finder) Find(req *nlist.BuildRequest) error {
	n := req.N()
	f.setDims(req)
	f.insert(req)
	if n == 0 {
		return nil
	}

	if f.Logger != nil {
		f.Logger.Debug("cell list built", "timestep", req.Timestep,
			"dims", f.dims, "particles", n)
	}

	for i := 0; i < n; i++ {
		xi, ti := req.Pos[i], req.Types[i]
		for _, c := range f.neighborCells(f.cell[i]) {
			for j := f.heads[c]; j != tail; j = f.next[j] {
				if !req.Accept(i, j) {
					continue
				}
				xj := req.Pos[j]
				dx := req.Box.MinImage([3]float64{
					xj[0] - xi[0], xj[1] - xi[1], xj[2] - xi[2],
				})
				r2 := dx[0]*dx[0] + dx[1]*dx[1] + dx[2]*dx[2]
				if r2 <= req.RListSqPair(ti, req.Types[j]) {
					req.Add(i, j)
				}
			}
		}
	}

	return nil
}

// setDims picks the grid size for a build.
func (f *Finder) setDims(req *nlist.BuildRequest) {
	rmax := math.Sqrt(req.RListMaxSq())
	npd := req.Box.NearestPlaneDistance()

	for dim := 0; dim < 3; dim++ {
		f.dims[dim] = 1
		if rmax > 0 {
			if k := math.Floor(npd[dim] / rmax); k > 1 {
				f.dims[dim] = int(math.Min(k, 1<<20))
			}
		}
	}

	maxCells := maxCellsPerParticle * req.N()
	if maxCells < minMaxCells {
		maxCells = minMaxCells
	}
	for f.Cells() > maxCells {
		big := 0
		for dim := 1; dim < 3; dim++ {
			if f.dims[dim] > f.dims[big] {
				big = dim
			}
		}
		// Fewer cells are always at least as wide as before.
		f.dims[big] /= 2
	}
}

// insert bins every particle.
func (f *Finder) insert(req *nlist.BuildRequest) {
	n, cells := req.N(), f.Cells()
	if cap(f.heads) < cells {
		f.heads = make([]int, cells)
	}
	f.heads = f.heads[:cells]
	for i := range f.heads {
		f.heads[i] = tail
	}
	if cap(f.next) < n {
		f.next = make([]int, n)
		f.cell = make([]int, n)
	}
	f.next, f.cell = f.next[:n], f.cell[:n]

	// Inserting in reverse order keeps each cell sorted by index.
	for i := n - 1; i >= 0; i-- {
		s := req.Box.Fractional(req.Pos[i])
		var idx [3]int
		for dim := 0; dim < 3; dim++ {
			u := s[dim] - math.Floor(s[dim])
			idx[dim] = int(u * float64(f.dims[dim]))
			if idx[dim] >= f.dims[dim] {
				idx[dim] = f.dims[dim] - 1
			}
		}
		c := f.index(idx)
		f.cell[i] = c
		f.next[i] = f.heads[c]
		f.heads[c] = i
	}
}

func (f *Finder) index(idx [3]int) int {
	return idx[0] + idx[1]*f.dims[0] + idx[2]*f.dims[0]*f.dims[1]
}

// neighborCells returns the cells within one step of c along every axis,
// with periodic wrapping. Each cell appears once even when an axis has
// fewer than three cells.
func (f *Finder) neighborCells(c int) []int {
	idx := [3]int{
		c % f.dims[0],
		(c / f.dims[0]) % f.dims[1],
		c / (f.dims[0] * f.dims[1]),
	}

	f.stencil = f.stencil[:0]
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nc := f.index([3]int{
					wrap(idx[0]+dx, f.dims[0]),
					wrap(idx[1]+dy, f.dims[1]),
					wrap(idx[2]+dz, f.dims[2]),
				})
				if !contains(f.stencil, nc) {
					f.stencil = append(f.stencil, nc)
				}
			}
		}
	}
	return f.stencil
}

func wrap(i, n int) int {
	if i < 0 {
		return i + n
	} else if i >= n {
		return i - n
	}
	return i
}

func contains(x []int, v int) bool {
	for i := range x {
		if x[i] == v {
			return true
		}
	}
	return false
}
