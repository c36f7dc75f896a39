package particles

import (
	"errors"
	"fmt"
	"math"

	"github.com/phil-mansfield/nlist/lib/box"
)

// NotLocal is the value RTags() reports for a tag that isn't owned by this
// rank.
const NotLocal = math.MaxUint32

// NoBody is the body id of a particle which isn't part of a rigid body.
const NoBody = -1

const minCapacity = 8

var (
	// ErrType is returned when a particle type is out of range.
	ErrType = errors.New("particle type out of range")
	// ErrTag is returned when a tag is out of range or already in use.
	ErrTag = errors.New("invalid particle tag")
	// ErrOrder is returned when Reorder is given something other than a
	// permutation of the local indices.
	ErrOrder = errors.New("invalid particle order")
)

// Data stores the particles owned by one rank. Per-particle arrays are keyed
// by local index, which is only valid until the next call to Reorder. Tags
// are stable for the lifetime of the particle.
type Data struct {
	n, nGlobal, nTypes int

	pos        *Vec64
	typ, tag   *Uint32
	body       *Int32
	rtag       []uint32
	local, glb *box.Box

	sortSubs, maxNSubs, globalNSubs subscribers
}

// New creates an empty store for particles of nTypes types with tags in
// [0, nGlobal). The local and global boxes start out as b.
func New(nTypes, nGlobal int, b *box.Box) (*Data, error) {
	if nTypes <= 0 {
		return nil, fmt.Errorf("%w: need at least one type, got %d", ErrType, nTypes)
	} else if nGlobal < 0 {
		return nil, fmt.Errorf("%w: negative global particle count %d", ErrTag, nGlobal)
	} else if b == nil {
		return nil, fmt.Errorf("particles.New given a nil box")
	}

	d := &Data{
		nGlobal: nGlobal, nTypes: nTypes,
		pos:   NewVec64("position", nil),
		typ:   NewUint32("type", nil),
		tag:   NewUint32("tag", nil),
		body:  NewInt32("body", nil),
		rtag:  make([]uint32, nGlobal),
		local: b, glb: b,
	}
	for i := range d.rtag {
		d.rtag[i] = NotLocal
	}

	return d, nil
}

// N returns the number of local particles.
func (d *Data) N() int { return d.n }

// MaxN returns the number of local particles that can be stored before the
// per-index arrays need to be reallocated.
func (d *Data) MaxN() int { return d.pos.Len() }

// NGlobal returns the total number of particles across all ranks.
func (d *Data) NGlobal() int { return d.nGlobal }

// NTypes returns the number of particle types.
func (d *Data) NTypes() int { return d.nTypes }

// Box returns the local box.
func (d *Data) Box() *box.Box { return d.local }

// GlobalBox returns the box of the full simulation.
func (d *Data) GlobalBox() *box.Box { return d.glb }

// Positions returns the positions of the local particles. The returned array
// belongs to Data and shouldn't be modified.
func (d *Data) Positions() [][3]float64 { return d.pos.data[:d.n] }

// Types returns the types of the local particles.
func (d *Data) Types() []uint32 { return d.typ.data[:d.n] }

// Tags returns the index -> tag table for the local particles.
func (d *Data) Tags() []uint32 { return d.tag.data[:d.n] }

// Bodies returns the rigid-body ids of the local particles.
func (d *Data) Bodies() []int32 { return d.body.data[:d.n] }

// RTags returns the tag -> index table. Tags not owned by this rank map to
// NotLocal.
func (d *Data) RTags() []uint32 { return d.rtag }

// Index returns the local index of a tag and whether this rank owns it.
func (d *Data) Index(tag uint32) (int, bool) {
	if int(tag) >= len(d.rtag) || d.rtag[tag] == NotLocal {
		return -1, false
	}
	return int(d.rtag[tag]), true
}

// Add adds a particle to this rank and returns its index. The position is
// wrapped into the local box.
func (d *Data) Add(x [3]float64, typ uint32, tag uint32, body int32) (int, error) {
	if int(typ) >= d.nTypes {
		return -1, fmt.Errorf("%w: type %d, but only %d types exist", ErrType, typ, d.nTypes)
	} else if int(tag) >= d.nGlobal {
		return -1, fmt.Errorf("%w: tag %d, but NGlobal = %d", ErrTag, tag, d.nGlobal)
	} else if d.rtag[tag] != NotLocal {
		return -1, fmt.Errorf("%w: tag %d has already been added", ErrTag, tag)
	}

	if d.n == d.MaxN() {
		d.grow()
	}

	i := d.n
	d.pos.data[i] = d.local.Wrap(x)
	d.typ.data[i] = typ
	d.tag.data[i] = tag
	d.body.data[i] = body
	d.rtag[tag] = uint32(i)
	d.n++

	return i, nil
}

// grow doubles the capacity of every per-index field and tells subscribers
// about it.
func (d *Data) grow() {
	maxN := 2 * d.MaxN()
	if maxN < minCapacity {
		maxN = minCapacity
	}

	from := make([]int, d.n)
	for i := range from {
		from[i] = i
	}

	fs := d.fieldList()
	for k, f := range fs {
		dest := f.CreateDestination(maxN)
		if err := f.Transfer(dest, from, from); err != nil {
			panic(fmt.Sprintf("Internal error: %s", err.Error()))
		}
		fs[k] = dest
	}
	d.setFields(fs)

	d.maxNSubs.notify()
}

// fieldList returns the per-index fields so that grow and Reorder can treat
// them uniformly.
func (d *Data) fieldList() []Field {
	return []Field{d.pos, d.typ, d.tag, d.body}
}

func (d *Data) setFields(fs []Field) {
	d.pos = fs[0].(*Vec64)
	d.typ = fs[1].(*Uint32)
	d.tag = fs[2].(*Uint32)
	d.body = fs[3].(*Int32)
}

// Reorder permutes the local particles so that the particle currently at
// index order[k] moves to index k. Every consumer of per-index data is
// notified through OnSort.
func (d *Data) Reorder(order []int) error {
	if len(order) != d.n {
		return fmt.Errorf("%w: got %d indices for %d particles", ErrOrder, len(order), d.n)
	}
	seen := make([]bool, d.n)
	for _, i := range order {
		if i < 0 || i >= d.n || seen[i] {
			return fmt.Errorf("%w: %v is not a permutation", ErrOrder, order)
		}
		seen[i] = true
	}

	to := make([]int, d.n)
	for i := range to {
		to[i] = i
	}

	fs := d.fieldList()
	for k, f := range fs {
		dest := f.CreateDestination(f.Len())
		if err := f.Transfer(dest, order, to); err != nil {
			return err
		}
		fs[k] = dest
	}
	d.setFields(fs)

	for i := 0; i < d.n; i++ {
		d.rtag[d.tag.data[i]] = uint32(i)
	}

	d.sortSubs.notify()
	return nil
}

// SetPosition moves particle i to x, wrapped into the local box.
func (d *Data) SetPosition(i int, x [3]float64) {
	d.pos.data[i] = d.local.Wrap(x)
}

// Translate displaces particle i by dx and wraps it into the local box.
func (d *Data) Translate(i int, dx [3]float64) {
	x := d.pos.data[i]
	d.pos.data[i] = d.local.Wrap([3]float64{x[0] + dx[0], x[1] + dx[1], x[2] + dx[2]})
}

// SetBox replaces both the local and global box with b. Positions are not
// rescaled.
func (d *Data) SetBox(b *box.Box) { d.local, d.glb = b, b }

// SetBoxes replaces the local and global boxes independently.
func (d *Data) SetBoxes(local, global *box.Box) { d.local, d.glb = local, global }

// SetNGlobal changes the global particle count, which reallocates the
// tag -> index table and tells subscribers through OnGlobalNChange. Local
// particles must keep valid tags.
func (d *Data) SetNGlobal(nGlobal int) error {
	for i := 0; i < d.n; i++ {
		if int(d.tag.data[i]) >= nGlobal {
			return fmt.Errorf("%w: local tag %d would be dropped by NGlobal = %d", ErrTag, d.tag.data[i], nGlobal)
		}
	}

	rtag := make([]uint32, nGlobal)
	for i := range rtag {
		rtag[i] = NotLocal
	}
	for i := 0; i < d.n; i++ {
		rtag[d.tag.data[i]] = uint32(i)
	}
	d.rtag, d.nGlobal = rtag, nGlobal

	d.globalNSubs.notify()
	return nil
}

// OnSort registers fn to be called after every Reorder. The returned
// function removes the subscription.
func (d *Data) OnSort(fn func()) (cancel func()) { return d.sortSubs.add(fn) }

// OnMaxNChange registers fn to be called whenever MaxN() changes.
func (d *Data) OnMaxNChange(fn func()) (cancel func()) { return d.maxNSubs.add(fn) }

// OnGlobalNChange registers fn to be called whenever NGlobal() changes.
func (d *Data) OnGlobalNChange(fn func()) (cancel func()) { return d.globalNSubs.add(fn) }

type subscribers struct {
	fns []*func()
}

func (s *subscribers) add(fn func()) func() {
	p := &fn
	s.fns = append(s.fns, p)
	return func() {
		for i := range s.fns {
			if s.fns[i] == p {
				s.fns = append(s.fns[:i], s.fns[i+1:]...)
				return
			}
		}
	}
}

func (s *subscribers) notify() {
	for _, fn := range s.fns {
		(*fn)()
	}
}
