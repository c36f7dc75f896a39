/*package topology stores the bonded topology of a system: bonds, angles, and
dihedrals, each as a list of member tags. The neighbor list only ever reads
these lists through rank-consistent snapshots.*/
package topology

import (
	"fmt"

	"github.com/phil-mansfield/nlist/lib/comm"
)

// Bond is a pair of bonded tags.
type Bond [2]uint32

// Angle is a triple of tags. The second tag is the vertex.
type Angle [3]uint32

// Dihedral is a chain of four tags. The middle two tags are the central bond.
type Dihedral [4]uint32

// Data holds the global bond, angle, and dihedral lists.
type Data struct {
	nGlobal   int
	bonds     []Bond
	angles    []Angle
	dihedrals []Dihedral
}

// New creates an empty topology for tags in [0, nGlobal).
func New(nGlobal int) *Data {
	return &Data{nGlobal: nGlobal}
}

// NGlobal returns the number of tags the topology can refer to.
func (d *Data) NGlobal() int { return d.nGlobal }

func (d *Data) checkTags(kind string, tags []uint32) error {
	for i, t := range tags {
		if int(t) >= d.nGlobal {
			return fmt.Errorf("%s member %d has tag %d, but NGlobal = %d", kind, i, t, d.nGlobal)
		}
		for j := 0; j < i; j++ {
			if tags[j] == t {
				return fmt.Errorf("%s %v contains tag %d twice", kind, tags, t)
			}
		}
	}
	return nil
}

// AddBond adds a bond between tags a and b.
func (d *Data) AddBond(a, b uint32) error {
	bond := Bond{a, b}
	if err := d.checkTags("bond", bond[:]); err != nil {
		return err
	}
	d.bonds = append(d.bonds, bond)
	return nil
}

// AddAngle adds the angle a-b-c.
func (d *Data) AddAngle(a, b, c uint32) error {
	angle := Angle{a, b, c}
	if err := d.checkTags("angle", angle[:]); err != nil {
		return err
	}
	d.angles = append(d.angles, angle)
	return nil
}

// AddDihedral adds the dihedral a-b-c-e.
func (d *Data) AddDihedral(a, b, c, e uint32) error {
	dihedral := Dihedral{a, b, c, e}
	if err := d.checkTags("dihedral", dihedral[:]); err != nil {
		return err
	}
	d.dihedrals = append(d.dihedrals, dihedral)
	return nil
}

// Bonds returns a copy of the bond list.
func (d *Data) Bonds() []Bond { return append([]Bond(nil), d.bonds...) }

// Angles returns a copy of the angle list.
func (d *Data) Angles() []Angle { return append([]Angle(nil), d.angles...) }

// Dihedrals returns a copy of the dihedral list.
func (d *Data) Dihedrals() []Dihedral { return append([]Dihedral(nil), d.dihedrals...) }

// Chains adds the topology of nMolecules linear molecules with length atoms
// each, with molecule m occupying tags [m*length, (m+1)*length). Every
// consecutive pair is bonded, every consecutive triple is an angle, and every
// consecutive quadruple is a dihedral.
func (d *Data) Chains(nMolecules, length int) error {
	if nMolecules < 0 || length < 0 {
		return fmt.Errorf("Chains given %d molecules of length %d", nMolecules, length)
	} else if nMolecules*length > d.nGlobal {
		return fmt.Errorf("%d chains of length %d need %d tags, but NGlobal = %d",
			nMolecules, length, nMolecules*length, d.nGlobal)
	}

	for m := 0; m < nMolecules; m++ {
		start := uint32(m * length)
		for i := uint32(0); i+1 < uint32(length); i++ {
			d.bonds = append(d.bonds, Bond{start + i, start + i + 1})
		}
		for i := uint32(0); i+2 < uint32(length); i++ {
			d.angles = append(d.angles, Angle{start + i, start + i + 1, start + i + 2})
		}
		for i := uint32(0); i+3 < uint32(length); i++ {
			d.dihedrals = append(d.dihedrals,
				Dihedral{start + i, start + i + 1, start + i + 2, start + i + 3})
		}
	}

	return nil
}

// BroadcastBonds returns root's bond list on every rank. bonds is ignored on
// non-root ranks.
func BroadcastBonds(c comm.Communicator, root int, bonds []Bond) ([]Bond, error) {
	flat := make([]uint32, 0, 2*len(bonds))
	for _, b := range bonds {
		flat = append(flat, b[:]...)
	}
	flat, err := c.Bcast(flat, root)
	if err != nil {
		return nil, err
	}

	out := make([]Bond, len(flat)/2)
	for i := range out {
		copy(out[i][:], flat[2*i:2*i+2])
	}
	return out, nil
}

// BroadcastAngles returns root's angle list on every rank.
func BroadcastAngles(c comm.Communicator, root int, angles []Angle) ([]Angle, error) {
	flat := make([]uint32, 0, 3*len(angles))
	for _, a := range angles {
		flat = append(flat, a[:]...)
	}
	flat, err := c.Bcast(flat, root)
	if err != nil {
		return nil, err
	}

	out := make([]Angle, len(flat)/3)
	for i := range out {
		copy(out[i][:], flat[3*i:3*i+3])
	}
	return out, nil
}

// BroadcastDihedrals returns root's dihedral list on every rank.
func BroadcastDihedrals(c comm.Communicator, root int, dihedrals []Dihedral) ([]Dihedral, error) {
	flat := make([]uint32, 0, 4*len(dihedrals))
	for _, dh := range dihedrals {
		flat = append(flat, dh[:]...)
	}
	flat, err := c.Bcast(flat, root)
	if err != nil {
		return nil, err
	}

	out := make([]Dihedral, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[4*i:4*i+4])
	}
	return out, nil
}
