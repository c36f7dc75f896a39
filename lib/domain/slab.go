/*package domain contains a minimal domain decomposition: the global box is cut
into equal slabs along x, one per rank. It tracks what the neighbor list tells
a decomposition (ghost-layer width and buffer radius) and lets the neighbor
list request particle migration.

Ghost exchange itself is not implemented. Particles are assigned to the rank
whose slab contains them when they're created and stay there.*/
package domain

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/phil-mansfield/nlist/lib/box"
)

// Slab is the decomposition for one rank.
type Slab struct {
	rank, size int
	global     *box.Box
	logger     *slog.Logger

	ghostWidth, rbuff float64
	migrate           []func(uint64) bool
}

// NewSlab returns rank's view of a decomposition of global into size slabs.
func NewSlab(global *box.Box, rank, size int, logger *slog.Logger) (*Slab, error) {
	if size <= 0 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d is not valid in a decomposition of size %d", rank, size)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slab{rank: rank, size: size, global: global, logger: logger}, nil
}

// Rank returns the rank that owns this slab.
func (s *Slab) Rank() int { return s.rank }

// Size returns the number of slabs.
func (s *Slab) Size() int { return s.size }

// Width returns the thickness of a slab along the x lattice direction.
func (s *Slab) Width() float64 {
	return s.global.NearestPlaneDistance()[0] / float64(s.size)
}

// Owner returns the rank whose slab contains x.
func (s *Slab) Owner(x [3]float64) int {
	f := s.global.Fractional(s.global.Wrap(x))
	r := int(math.Floor(f[0] * float64(s.size)))
	if r >= s.size {
		r = s.size - 1
	} else if r < 0 {
		r = 0
	}
	return r
}

// Owns returns true if x lies in this rank's slab.
func (s *Slab) Owns(x [3]float64) bool { return s.Owner(x) == s.rank }

// SetGhostLayerWidth records the width of the ghost layer that the neighbor
// list needs.
func (s *Slab) SetGhostLayerWidth(w float64) {
	s.ghostWidth = w
	if s.size > 1 && w > s.Width()/2 {
		s.logger.Warn("ghost layer is wider than half a slab",
			"rank", s.rank, "ghost_width", w, "slab_width", s.Width())
	}
	s.logger.Debug("ghost layer width set", "rank", s.rank, "ghost_width", w)
}

// GhostLayerWidth returns the last width given to SetGhostLayerWidth.
func (s *Slab) GhostLayerWidth() float64 { return s.ghostWidth }

// SetRBuff records the neighbor list's buffer radius.
func (s *Slab) SetRBuff(rbuff float64) { s.rbuff = rbuff }

// RBuff returns the last buffer radius given to SetRBuff.
func (s *Slab) RBuff() float64 { return s.rbuff }

// AddMigrateRequest registers a function that reports whether particles need
// to be migrated at a given timestep.
func (s *Slab) AddMigrateRequest(fn func(timestep uint64) bool) {
	s.migrate = append(s.migrate, fn)
}

// MigrateRequested returns true if any registered request asks for migration
// at the given timestep. Every request is evaluated.
func (s *Slab) MigrateRequested(timestep uint64) bool {
	out := false
	for _, fn := range s.migrate {
		if fn(timestep) {
			out = true
		}
	}
	return out
}
