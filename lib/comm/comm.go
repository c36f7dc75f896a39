/*package comm contains the small set of collective operations that the
neighbor list needs from a parallel runtime: a logical OR for the rebuild
decision, an integer sum for statistics, and a broadcast for topology
snapshots.

Two implementations are provided. Serial is a single-rank world. Local runs
several ranks as goroutines inside one process, which is how multi-rank runs
are driven and tested without an MPI installation.*/
package comm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRoot is returned when a broadcast root is not a valid rank.
var ErrRoot = errors.New("invalid broadcast root")

// Communicator is the set of collectives used by the neighbor list. Every
// rank in a world must call the same collectives in the same order.
type Communicator interface {
	Rank() int
	Size() int
	// AllReduceOr returns the logical OR of x across all ranks.
	AllReduceOr(x bool) bool
	// AllReduceSum replaces each element of x with its sum across all ranks.
	AllReduceSum(x []int64)
	// Bcast returns a copy of root's buf on every rank. buf is ignored on
	// non-root ranks.
	Bcast(buf []uint32, root int) ([]uint32, error)
}

// Type assertions
var (
	_ Communicator = Serial{}
	_ Communicator = &Local{}
)

// Serial is a Communicator for a world with one rank.
type Serial struct{}

func (Serial) Rank() int { return 0 }
func (Serial) Size() int { return 1 }
func (Serial) AllReduceOr(x bool) bool { return x }
func (Serial) AllReduceSum(x []int64) {}

func (Serial) Bcast(buf []uint32, root int) ([]uint32, error) {
	if root != 0 {
		return nil, fmt.Errorf("%w: %d in a world of size 1", ErrRoot, root)
	}
	out := make([]uint32, len(buf))
	copy(out, buf)
	return out, nil
}

// Local is one rank of an in-process world created by NewLocalWorld. Each
// Local must be driven by its own goroutine.
type Local struct {
	rank int
	w    *world
}

// world is a barrier shared by every rank. Each collective is one
// generation: ranks deposit their contribution, the last rank to arrive
// combines them, and everyone leaves with the shared result.
type world struct {
	mu   sync.Mutex
	cond *sync.Cond
	size int

	gen     uint64
	arrived int
	in      []interface{}
	out     interface{}
}

// NewLocalWorld returns the n ranks of a new in-process world.
func NewLocalWorld(n int) []*Local {
	if n <= 0 {
		panic(fmt.Sprintf("NewLocalWorld given %d ranks.", n))
	}
	w := &world{size: n, in: make([]interface{}, n)}
	w.cond = sync.NewCond(&w.mu)

	ranks := make([]*Local, n)
	for i := range ranks {
		ranks[i] = &Local{rank: i, w: w}
	}
	return ranks
}

func (c *Local) Rank() int { return c.rank }
func (c *Local) Size() int { return c.w.size }

// collective blocks until every rank has contributed x, then returns the
// output of reduce applied to all contributions, ordered by rank. reduce is
// only called by one rank.
func (c *Local) collective(x interface{}, reduce func([]interface{}) interface{}) interface{} {
	w := c.w
	w.mu.Lock()
	defer w.mu.Unlock()

	gen := w.gen
	w.in[c.rank] = x
	w.arrived++

	if w.arrived == w.size {
		w.out = reduce(w.in)
		w.in = make([]interface{}, w.size)
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
		return w.out
	}

	for gen == w.gen {
		w.cond.Wait()
	}
	// The next generation can't finish until this rank arrives, so out still
	// belongs to this one.
	return w.out
}

func (c *Local) AllReduceOr(x bool) bool {
	return c.collective(x, func(in []interface{}) interface{} {
		for i := range in {
			if in[i].(bool) {
				return true
			}
		}
		return false
	}).(bool)
}

func (c *Local) AllReduceSum(x []int64) {
	sum := c.collective(x, func(in []interface{}) interface{} {
		out := make([]int64, len(in[0].([]int64)))
		for i := range in {
			xi := in[i].([]int64)
			if len(xi) != len(out) {
				panic(fmt.Sprintf("AllReduceSum called with length %d on one rank and %d on another.", len(xi), len(out)))
			}
			for j := range xi {
				out[j] += xi[j]
			}
		}
		return out
	}).([]int64)
	copy(x, sum)
}

type bcastIn struct {
	buf  []uint32
	root int
}

func (c *Local) Bcast(buf []uint32, root int) ([]uint32, error) {
	// Every rank must still take part in the collective so that the
	// generations stay aligned, so errors are reported after it.
	res := c.collective(bcastIn{buf, root}, func(in []interface{}) interface{} {
		root := in[0].(bcastIn).root
		for i := range in {
			if in[i].(bcastIn).root != root {
				return fmt.Errorf("%w: ranks disagree on the root (%d vs %d)", ErrRoot, root, in[i].(bcastIn).root)
			}
		}
		if root < 0 || root >= len(in) {
			return fmt.Errorf("%w: %d in a world of size %d", ErrRoot, root, len(in))
		}
		return in[root].(bcastIn).buf
	})

	if err, ok := res.(error); ok {
		return nil, err
	}
	src := res.([]uint32)
	out := make([]uint32, len(src))
	copy(out, src)
	return out, nil
}
