package nlist

import (
	"fmt"

	"github.com/phil-mansfield/nlist/lib/box"
)

// PairFinder fills the neighbor list for a BuildRequest.
type PairFinder interface {
	// Find writes the neighbors of every particle through req.Add. It
	// returns an error only if the build can't be done at all.
	Find(req *BuildRequest) error
}

// BuildRequest is everything a PairFinder needs for a single build. All
// slices belong to the Engine and are only valid for the duration of Find.
type BuildRequest struct {
	Timestep uint64
	// Box is the box used for minimum image displacements.
	Box *box.Box
	// Pos, Types, and Bodies have one element per local particle.
	Pos    [][3]float64
	Types  []uint32
	Bodies []int32
	NTypes int
	// RListSq is the squared cutoff plus buffer of each type pair, indexed
	// by a*NTypes + b.
	RListSq    []float64
	Storage    Storage
	FilterBody bool

	head, nmax, nlist, nneigh, conditions []uint32
}

// N returns the number of local particles.
func (req *BuildRequest) N() int { return len(req.Pos) }

// RListSqPair returns the squared list radius of a type pair.
func (req *BuildRequest) RListSqPair(a, b uint32) float64 {
	return req.RListSq[int(a)*req.NTypes+int(b)]
}

// RListMaxSq returns the largest squared list radius of any type pair.
func (req *BuildRequest) RListMaxSq() float64 {
	max := 0.0
	for _, r2 := range req.RListSq {
		if r2 > max {
			max = r2
		}
	}
	return max
}

// Accept returns true if j may be stored as a neighbor of i under the
// request's storage mode and body filter. It doesn't look at distances.
func (req *BuildRequest) Accept(i, j int) bool {
	if i == j {
		return false
	} else if req.Storage == Half && j < i {
		return false
	} else if req.FilterBody && req.Bodies[i] >= 0 && req.Bodies[i] == req.Bodies[j] {
		return false
	}
	return true
}

// Add appends j to i's neighbor list. Neighbors past the capacity of i's type
// are counted but not stored, and the Engine rebuilds with more room.
func (req *BuildRequest) Add(i, j int) {
	typ := req.Types[i]
	n := req.nneigh[i]
	if n < req.nmax[typ] {
		req.nlist[req.head[i]+n] = uint32(j)
	}
	n++
	req.nneigh[i] = n
	if n > req.conditions[typ] {
		req.conditions[typ] = n
	}
}

// AllPairs is the O(N^2) pair search. It has been removed and always returns
// ErrNotSupported.
type AllPairs struct{}

func (AllPairs) Find(req *BuildRequest) error {
	return fmt.Errorf("%w: O(N^2) neighbor lists are no longer supported", ErrNotSupported)
}
