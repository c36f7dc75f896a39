package nlist

import (
	"fmt"
	"log/slog"

	"github.com/phil-mansfield/nlist/lib/particles"
	"github.com/phil-mansfield/nlist/lib/topology"
)

// MaxBonds is the largest number of bonds a particle can have when deriving
// 1-3 and 1-4 exclusions from topology.
const MaxBonds = 7

// MaxCountedExclusions is the largest exclusion count with its own bin in
// ExclusionStats.
const MaxCountedExclusions = 16

// Exclusions is a symmetric set of excluded pairs. The authoritative copy is
// keyed by tag and has a fixed number of columns per tag that grows by one
// whenever a row fills up. An index-keyed mirror of the local particles is
// rebuilt by UpdateIndex and used by Filter.
type Exclusions struct {
	width   int
	nTag    []uint32
	tagList []uint32
	nIdx    []uint32
	idxList []uint32
	set     bool

	// changed is called whenever the neighbor list needs to be rebuilt as a
	// result of a change to the exclusions.
	changed func()
}

// NewExclusions returns an empty table for nGlobal tags and maxN local
// indices.
func NewExclusions(nGlobal, maxN int, changed func()) *Exclusions {
	if changed == nil {
		changed = func() {}
	}
	return &Exclusions{
		width:   1,
		nTag:    make([]uint32, nGlobal),
		tagList: make([]uint32, nGlobal),
		nIdx:    make([]uint32, maxN),
		idxList: make([]uint32, maxN),
		changed: changed,
	}
}

// Set returns true if exclusions are in use and need to be filtered.
func (ex *Exclusions) Set() bool { return ex.set }

// Width returns the number of exclusion slots per particle.
func (ex *Exclusions) Width() int { return ex.width }

// NGlobal returns the number of tags in the table.
func (ex *Exclusions) NGlobal() int { return len(ex.nTag) }

func (ex *Exclusions) checkTag(tag uint32) error {
	if int(tag) >= len(ex.nTag) {
		return fmt.Errorf("%w: tag %d, but NGlobal = %d", ErrTagRange, tag, len(ex.nTag))
	}
	return nil
}

// checkPair makes sure a, b is a pair of distinct, valid tags.
func (ex *Exclusions) checkPair(a, b uint32) error {
	if err := ex.checkTag(a); err != nil {
		return err
	} else if err := ex.checkTag(b); err != nil {
		return err
	} else if a == b {
		return fmt.Errorf("%w: tag %d", ErrSelfExclusion, a)
	}
	return nil
}

// Add excludes the pair a, b. Adding a pair that's already excluded does
// nothing to the table.
func (ex *Exclusions) Add(a, b uint32) error {
	if err := ex.checkPair(a, b); err != nil {
		return err
	}

	ex.set = true
	if ex.IsExcluded(a, b) {
		return nil
	}

	if int(ex.nTag[a]) == ex.width || int(ex.nTag[b]) == ex.width {
		ex.grow()
	}

	ex.tagList[int(a)*ex.width+int(ex.nTag[a])] = b
	ex.nTag[a]++
	ex.tagList[int(b)*ex.width+int(ex.nTag[b])] = a
	ex.nTag[b]++

	ex.changed()
	return nil
}

// grow adds a column to both tables. The index table isn't copied, so the
// neighbor list has to be rebuilt.
func (ex *Exclusions) grow() {
	width := ex.width + 1

	tagList := make([]uint32, len(ex.nTag)*width)
	for tag := range ex.nTag {
		copy(tagList[tag*width:tag*width+ex.width],
			ex.tagList[tag*ex.width:(tag+1)*ex.width])
	}

	ex.tagList, ex.width = tagList, width
	ex.idxList = make([]uint32, len(ex.nIdx)*width)
	ex.changed()
}

// IsExcluded returns true if the pair a, b is excluded. Out of range tags are
// never excluded.
func (ex *Exclusions) IsExcluded(a, b uint32) bool {
	if int(a) >= len(ex.nTag) {
		return false
	}
	row := ex.tagList[int(a)*ex.width:]
	for i := 0; i < int(ex.nTag[a]); i++ {
		if row[i] == b {
			return true
		}
	}
	return false
}

// Count returns the number of exclusions of tag.
func (ex *Exclusions) Count(tag uint32) int {
	if int(tag) >= len(ex.nTag) {
		return 0
	}
	return int(ex.nTag[tag])
}

// Excluded returns a copy of the tags excluded by tag, in insertion order.
func (ex *Exclusions) Excluded(tag uint32) []uint32 {
	n := ex.Count(tag)
	out := make([]uint32, n)
	copy(out, ex.tagList[int(tag)*ex.width:])
	return out
}

// Clear removes every exclusion.
func (ex *Exclusions) Clear() {
	for i := range ex.nTag {
		ex.nTag[i] = 0
	}
	for i := range ex.nIdx {
		ex.nIdx[i] = 0
	}
	ex.set = false
	ex.changed()
}

// RemoveTags removes every exclusion which involves one of the given tags,
// from both sides of the pair. The remaining exclusions keep their order.
func (ex *Exclusions) RemoveTags(tags []uint32) error {
	remove := make(map[uint32]bool, len(tags))
	for _, tag := range tags {
		if err := ex.checkTag(tag); err != nil {
			return err
		}
		remove[tag] = true
	}

	for tag := range ex.nTag {
		row := ex.tagList[tag*ex.width : tag*ex.width+int(ex.nTag[tag])]
		if remove[uint32(tag)] {
			ex.nTag[tag] = 0
			continue
		}
		n := 0
		for _, other := range row {
			if !remove[other] {
				row[n] = other
				n++
			}
		}
		ex.nTag[tag] = uint32(n)
	}

	ex.changed()
	return nil
}

// ResizeLocal reallocates the index table for maxN local particles. The
// index table must be rebuilt with UpdateIndex afterwards.
func (ex *Exclusions) ResizeLocal(maxN int) {
	ex.nIdx = make([]uint32, maxN)
	ex.idxList = make([]uint32, maxN*ex.width)
}

// ResizeGlobal reallocates the tag table for nGlobal tags, which removes all
// exclusions.
func (ex *Exclusions) ResizeGlobal(nGlobal int) {
	ex.nTag = make([]uint32, nGlobal)
	ex.tagList = make([]uint32, nGlobal*ex.width)
	ex.Clear()
}

// UpdateIndex rebuilds the index-keyed mirror from the tag table. tags maps
// each local index to its tag and rtags maps each tag to its local index.
// Excluded partners which aren't local are stored as particles.NotLocal,
// which never matches a neighbor index.
func (ex *Exclusions) UpdateIndex(tags, rtags []uint32) {
	for idx, tag := range tags {
		n := ex.nTag[tag]
		ex.nIdx[idx] = n

		tagRow := ex.tagList[int(tag)*ex.width:]
		idxRow := ex.idxList[idx*ex.width:]
		for k := 0; k < int(n); k++ {
			other := tagRow[k]
			if int(other) < len(rtags) {
				idxRow[k] = rtags[other]
			} else {
				idxRow[k] = particles.NotLocal
			}
		}
	}
}

// Filter removes excluded neighbors from the lists of the first n particles,
// compacting each list in place.
func (ex *Exclusions) Filter(head, nneigh, nlist []uint32, n int) {
	for i := 0; i < n; i++ {
		list := nlist[head[i] : head[i]+nneigh[i]]
		excluded := ex.idxList[i*ex.width : i*ex.width+int(ex.nIdx[i])]

		kept := 0
		for _, j := range list {
			if !contains(excluded, j) {
				list[kept] = j
				kept++
			}
		}
		nneigh[i] = uint32(kept)
	}
}

func contains(x []uint32, v uint32) bool {
	for i := range x {
		if x[i] == v {
			return true
		}
	}
	return false
}

func (ex *Exclusions) checkTags(tags ...uint32) error {
	for _, tag := range tags {
		if err := ex.checkTag(tag); err != nil {
			return err
		}
	}
	return nil
}

// AddFromBonds excludes both members of every bond. Nothing is added if any
// bond has an invalid tag or bonds a tag to itself.
func (ex *Exclusions) AddFromBonds(bonds []topology.Bond) error {
	for _, b := range bonds {
		if err := ex.checkPair(b[0], b[1]); err != nil {
			return err
		}
	}
	for _, b := range bonds {
		if err := ex.Add(b[0], b[1]); err != nil {
			return err
		}
	}
	return nil
}

// AddFromAngles excludes the two ends of every angle.
func (ex *Exclusions) AddFromAngles(angles []topology.Angle) error {
	for _, a := range angles {
		if err := ex.checkTags(a[:]...); err != nil {
			return err
		} else if err := ex.checkPair(a[0], a[2]); err != nil {
			return err
		}
	}
	for _, a := range angles {
		if err := ex.Add(a[0], a[2]); err != nil {
			return err
		}
	}
	return nil
}

// AddFromDihedrals excludes the two ends of every dihedral.
func (ex *Exclusions) AddFromDihedrals(dihedrals []topology.Dihedral) error {
	for _, d := range dihedrals {
		if err := ex.checkTags(d[:]...); err != nil {
			return err
		} else if err := ex.checkPair(d[0], d[3]); err != nil {
			return err
		}
	}
	for _, d := range dihedrals {
		if err := ex.Add(d[0], d[3]); err != nil {
			return err
		}
	}
	return nil
}

// bondPartners returns the bonded partners of every tag. It fails without
// side effects if any tag has more than MaxBonds partners.
func (ex *Exclusions) bondPartners(bonds []topology.Bond) ([][]uint32, error) {
	partners := make([][]uint32, len(ex.nTag))
	for _, b := range bonds {
		if err := ex.checkPair(b[0], b[1]); err != nil {
			return nil, err
		}
		a, c := b[0], b[1]
		partners[a] = append(partners[a], c)
		partners[c] = append(partners[c], a)

		for _, tag := range []uint32{a, c} {
			if len(partners[tag]) > MaxBonds {
				return nil, fmt.Errorf("%w: particle with tag %d has more than %d bonds",
					ErrTooManyBonds, tag, MaxBonds)
			}
		}
	}
	return partners, nil
}

// AddOneThree excludes every pair of particles that are bonded to a common
// particle.
func (ex *Exclusions) AddOneThree(bonds []topology.Bond, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(bonds) == 0 {
		logger.Warn("no bonds defined while adding 1-3 exclusions")
		return nil
	}

	partners, err := ex.bondPartners(bonds)
	if err != nil {
		return err
	}

	for _, p := range partners {
		for j := 0; j < len(p); j++ {
			for k := j + 1; k < len(p); k++ {
				if p[j] == p[k] {
					continue
				}
				if err := ex.Add(p[j], p[k]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// AddOneFour excludes, for every bond a-b, every partner of a (other than b)
// from every partner of b (other than a).
func (ex *Exclusions) AddOneFour(bonds []topology.Bond, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(bonds) == 0 {
		logger.Warn("no bonds defined while adding 1-4 exclusions")
		return nil
	}

	partners, err := ex.bondPartners(bonds)
	if err != nil {
		return err
	}

	for _, b := range bonds {
		a, c := b[0], b[1]
		for _, j := range partners[a] {
			if j == c {
				continue
			}
			for _, k := range partners[c] {
				if k == a || k == j {
					continue
				}
				if err := ex.Add(j, k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ExclusionStats is a histogram of the number of exclusions per tag.
type ExclusionStats struct {
	// Counts[n] is the number of tags with exactly n exclusions.
	Counts [MaxCountedExclusions + 1]int
	// Overflow is the number of tags with more than MaxCountedExclusions.
	Overflow int
	// Max is the largest number of exclusions of any tag.
	Max int
}

// Stats returns a histogram of exclusion counts over every tag.
func (ex *Exclusions) Stats() ExclusionStats {
	s := ExclusionStats{}
	for _, n := range ex.nTag {
		if int(n) > s.Max {
			s.Max = int(n)
		}
		if n > MaxCountedExclusions {
			s.Overflow++
		} else {
			s.Counts[n]++
		}
	}
	return s
}
