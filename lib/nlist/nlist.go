/*package nlist maintains neighbor lists for particle simulations. For every
local particle an Engine tracks the particles within the cutoff radius of its
type pair plus a buffer radius, and only rebuilds the list once some particle
might have moved far enough to invalidate it.

The list is stored in a flat array addressed by a per-particle head offset,
with a per-type capacity that grows whenever a build finds more neighbors than
fit. Pairs can be excluded by tag, either one at a time or from bonded
topology, and those exclusions are filtered out after every build.

The pair search itself is delegated to a PairFinder. lib/cell contains the
cell-list implementation used in practice.*/
package nlist

import (
	"errors"
	"log/slog"

	"github.com/phil-mansfield/nlist/lib/comm"
)

var (
	// ErrNegativeCutoff is returned when a cutoff radius is negative.
	ErrNegativeCutoff = errors.New("cutoff radius is less than zero")
	// ErrNegativeBuffer is returned when a buffer radius is negative.
	ErrNegativeBuffer = errors.New("buffer radius is less than zero")
	// ErrTypeRange is returned for a particle type that doesn't exist.
	ErrTypeRange = errors.New("particle type out of range")
	// ErrTagRange is returned for a tag outside [0, NGlobal).
	ErrTagRange = errors.New("particle tag out of range")
	// ErrSelfExclusion is returned when a particle would be excluded from
	// itself.
	ErrSelfExclusion = errors.New("particle can't be excluded from itself")
	// ErrTooManyBonds is returned when a particle has more bonds than
	// topological exclusions can handle.
	ErrTooManyBonds = errors.New("too many bonds")
	// ErrNotSupported is returned by algorithms that have been removed.
	ErrNotSupported = errors.New("not supported")
	// ErrCheckPeriod is returned for a check period less than one.
	ErrCheckPeriod = errors.New("check period must be at least one")
)

// Storage controls whether each pair is stored once or twice.
type Storage int

const (
	// Full stores j in i's list and i in j's list.
	Full Storage = iota
	// Half stores each pair once, in the list of the lower index.
	Half
)

func (s Storage) String() string {
	switch s {
	case Full:
		return "full"
	case Half:
		return "half"
	}
	return "unknown"
}

// Domain is the part of a domain decomposition that the neighbor list talks
// to.
type Domain interface {
	// SetGhostLayerWidth is called with the largest cutoff plus the buffer
	// radius whenever either changes.
	SetGhostLayerWidth(w float64)
	// SetRBuff is called with the buffer radius whenever it changes.
	SetRBuff(rbuff float64)
	// AddMigrateRequest registers a function that the decomposition can call
	// to find out whether the neighbor list will be rebuilt at a timestep.
	AddMigrateRequest(fn func(timestep uint64) bool)
}

// Options configures a new Engine.
type Options struct {
	// RCut is the initial cutoff radius of every type pair.
	RCut float64
	// RBuff is the buffer radius.
	RBuff float64
	// Every is the number of steps between distance checks. Zero means 1.
	Every int
	// DistCheck turns the displacement check on. When it's off the list is
	// rebuilt every Every steps.
	DistCheck bool
	// FilterBody removes pairs in the same rigid body.
	FilterBody bool
	// Storage chooses between full and half lists.
	Storage Storage
	// Finder defaults to AllPairs.
	Finder PairFinder
	// Comm defaults to comm.Serial.
	Comm comm.Communicator
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns Options with distance checks every step and full
// storage.
func DefaultOptions(rcut, rbuff float64) Options {
	return Options{
		RCut: rcut, RBuff: rbuff,
		Every: 1, DistCheck: true,
		Storage: Full,
	}
}
