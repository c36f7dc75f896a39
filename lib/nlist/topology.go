package nlist

import (
	"github.com/phil-mansfield/nlist/lib/particles"
	"github.com/phil-mansfield/nlist/lib/topology"
)

// AddExclusion excludes the pair of tags a, b from the neighbor list. Pairs
// that are already excluded are left alone.
func (e *Engine) AddExclusion(a, b uint32) error {
	if err := e.exclusions.Add(a, b); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// ClearExclusions removes every exclusion.
func (e *Engine) ClearExclusions() { e.exclusions.Clear() }

// IsExcluded returns true if the pair of tags a, b is excluded.
func (e *Engine) IsExcluded(a, b uint32) bool { return e.exclusions.IsExcluded(a, b) }

// Exclusions returns the Engine's exclusion table.
func (e *Engine) Exclusions() *Exclusions { return e.exclusions }

// WantExclusions returns true if the exclusions were cleared by a change in
// the global particle count and haven't been added again.
func (e *Engine) WantExclusions() bool { return e.wantExclusions }

// The topology exclusions read rank 0's topology. t may be nil on other
// ranks.

func bondsOf(t *topology.Data) []topology.Bond {
	if t == nil {
		return nil
	}
	return t.Bonds()
}

func (e *Engine) broadcastBonds(t *topology.Data) ([]topology.Bond, error) {
	return topology.BroadcastBonds(e.comm, 0, bondsOf(t))
}

// AddExclusionsFromBonds excludes the members of every bond.
func (e *Engine) AddExclusionsFromBonds(t *topology.Data) error {
	bonds, err := e.broadcastBonds(t)
	if err != nil {
		return err
	}
	if err := e.exclusions.AddFromBonds(bonds); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// AddExclusionsFromAngles excludes the two ends of every angle.
func (e *Engine) AddExclusionsFromAngles(t *topology.Data) error {
	var angles []topology.Angle
	if t != nil {
		angles = t.Angles()
	}
	angles, err := topology.BroadcastAngles(e.comm, 0, angles)
	if err != nil {
		return err
	}
	if err := e.exclusions.AddFromAngles(angles); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// AddExclusionsFromDihedrals excludes the two ends of every dihedral.
func (e *Engine) AddExclusionsFromDihedrals(t *topology.Data) error {
	var dihedrals []topology.Dihedral
	if t != nil {
		dihedrals = t.Dihedrals()
	}
	dihedrals, err := topology.BroadcastDihedrals(e.comm, 0, dihedrals)
	if err != nil {
		return err
	}
	if err := e.exclusions.AddFromDihedrals(dihedrals); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// AddOneThreeExclusionsFromTopology excludes every pair of particles bonded
// to a common particle. It returns ErrTooManyBonds without changing anything
// if a particle has more than MaxBonds bonds.
func (e *Engine) AddOneThreeExclusionsFromTopology(t *topology.Data) error {
	bonds, err := e.broadcastBonds(t)
	if err != nil {
		return err
	}
	if err := e.exclusions.AddOneThree(bonds, e.logger); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// AddOneFourExclusionsFromTopology excludes the outer particles of every
// chain of three bonds. It returns ErrTooManyBonds without changing anything
// if a particle has more than MaxBonds bonds.
func (e *Engine) AddOneFourExclusionsFromTopology(t *topology.Data) error {
	bonds, err := e.broadcastBonds(t)
	if err != nil {
		return err
	}
	if err := e.exclusions.AddOneFour(bonds, e.logger); err != nil {
		return err
	}
	e.wantExclusions = false
	return nil
}

// ClearTypeExclusions removes every exclusion involving a particle of type
// typ, on both sides of the pair. Exclusions between particles of other
// types are kept.
func (e *Engine) ClearTypeExclusions(typ uint32) error {
	if err := e.checkType(typ); err != nil {
		return err
	}

	local := []uint32{}
	types, tags := e.pdata.Types(), e.pdata.Tags()
	for i := range types {
		if types[i] == typ {
			local = append(local, tags[i])
		}
	}

	// Every rank needs the full set of tags to keep its copy of the table
	// identical to everyone else's.
	all := []uint32{}
	for root := 0; root < e.comm.Size(); root++ {
		tags, err := e.comm.Bcast(local, root)
		if err != nil {
			return err
		}
		all = append(all, tags...)
	}

	return e.exclusions.RemoveTags(all)
}

// NumExclusions returns the number of particles across all ranks with exactly
// size exclusions.
func (e *Engine) NumExclusions(size int) int {
	count := 0
	for _, tag := range e.pdata.Tags() {
		if e.exclusions.Count(tag) == size {
			count++
		}
	}
	buf := []int64{int64(count)}
	e.comm.AllReduceSum(buf)
	return int(buf[0])
}

// ExclusionStats returns a histogram of exclusion counts over every tag.
func (e *Engine) ExclusionStats() ExclusionStats { return e.exclusions.Stats() }

// LogExclusionStats logs the exclusion histogram at Info.
func (e *Engine) LogExclusionStats() {
	s := e.exclusions.Stats()
	for n, count := range s.Counts {
		if count > 0 {
			e.logger.Info("neighbor list exclusions", "exclusions", n, "particles", count)
		}
	}
	if s.Overflow > 0 {
		e.logger.Info("neighbor list exclusions",
			"more_than", MaxCountedExclusions, "particles", s.Overflow)
	}
	e.logger.Info("neighbor list same-body filtering", "filter_body", e.filterBody)

	if e.filterBody {
		return
	}
	for _, body := range e.pdata.Bodies() {
		if body != particles.NoBody {
			e.logger.Warn("same-body filtering is off but rigid bodies exist; " +
				"they will behave erratically unless inter-body forces are very small")
			return
		}
	}
}
