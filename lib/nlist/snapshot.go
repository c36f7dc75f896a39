package nlist

// Snapshot is a copy of a neighbor list keyed by tag, so it stays meaningful
// after the particles are reordered.
type Snapshot struct {
	Timestep uint64
	NTypes   int
	RBuff    float64
	// Tags holds the tag of each particle in the snapshot.
	Tags []uint32
	// Counts holds the number of neighbors of each particle.
	Counts []uint32
	// Neighbors holds the neighbor tags of every particle, one list after
	// the other.
	Neighbors []uint32
}

// Snapshot copies the current list of the local particles.
func (e *Engine) Snapshot() *Snapshot {
	n := e.pdata.N()
	tags := e.pdata.Tags()

	snap := &Snapshot{
		Timestep: e.sched.LastUpdated(),
		NTypes:   e.nTypes,
		RBuff:    e.rbuff,
		Tags:     make([]uint32, n),
		Counts:   make([]uint32, n),
	}
	copy(snap.Tags, tags)

	if !e.built {
		return snap
	}

	for i := 0; i < n; i++ {
		neigh := e.Neighbors(i)
		snap.Counts[i] = uint32(len(neigh))
		for _, j := range neigh {
			snap.Neighbors = append(snap.Neighbors, tags[j])
		}
	}
	return snap
}

// ByTag returns the neighbor tags of every particle, keyed by tag.
func (s *Snapshot) ByTag() map[uint32][]uint32 {
	out := make(map[uint32][]uint32, len(s.Tags))
	start := 0
	for i, tag := range s.Tags {
		end := start + int(s.Counts[i])
		out[tag] = s.Neighbors[start:end]
		start = end
	}
	return out
}

// NPairs returns the total number of stored neighbor entries.
func (s *Snapshot) NPairs() int { return len(s.Neighbors) }

// MergeSnapshots concatenates the snapshots of several ranks into one. The
// timestep and buffer radius are taken from the first snapshot.
func MergeSnapshots(snaps ...*Snapshot) *Snapshot {
	out := &Snapshot{Tags: []uint32{}, Counts: []uint32{}, Neighbors: []uint32{}}
	for i, s := range snaps {
		if i == 0 {
			out.Timestep, out.NTypes, out.RBuff = s.Timestep, s.NTypes, s.RBuff
		}
		out.Tags = append(out.Tags, s.Tags...)
		out.Counts = append(out.Counts, s.Counts...)
		out.Neighbors = append(out.Neighbors, s.Neighbors...)
	}
	return out
}
