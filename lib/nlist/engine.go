package nlist

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/phil-mansfield/nlist/lib/comm"
	"github.com/phil-mansfield/nlist/lib/particles"
)

// Engine maintains the neighbor list of the particles in a particles.Data.
// An Engine isn't safe for concurrent use. In a multi-rank run every rank
// has its own Engine and calls Compute once per step, and the collective
// methods (Compute, NeedsUpdating, the topology exclusions,
// ClearTypeExclusions, NumExclusions, and LogStats) must be called in the
// same order on every rank.
type Engine struct {
	pdata  *particles.Data
	comm   comm.Communicator
	finder PairFinder
	domain Domain
	logger *slog.Logger

	nTypes     int
	rcut       []float64
	rcutMax    []float64
	rcutMaxMax float64
	rbuff      float64
	rlistSq    []float64

	storage    Storage
	filterBody bool

	capacity   *Capacity
	exclusions *Exclusions
	sched      *Scheduler

	// Staleness baseline written after every build.
	lastPos [][3]float64
	lastL   [3]float64
	lastN   int

	// stale is set by ForceUpdate and cleared by the next successful build.
	// Unlike the scheduler's force flag, it isn't consumed by NeedsUpdating.
	stale          bool
	computed       bool
	lastComputed   uint64
	built          bool
	wantExclusions bool
	overflows      uint64

	cancels []func()
}

// New creates an Engine for the particles in pdata. The list is built on the
// first call to Compute.
func New(pdata *particles.Data, opts Options) (*Engine, error) {
	if opts.RCut < 0 {
		return nil, fmt.Errorf("%w: got %g", ErrNegativeCutoff, opts.RCut)
	} else if opts.RBuff < 0 {
		return nil, fmt.Errorf("%w: got %g", ErrNegativeBuffer, opts.RBuff)
	}
	if opts.Every == 0 {
		opts.Every = 1
	}
	if opts.Finder == nil {
		opts.Finder = AllPairs{}
	}
	if opts.Comm == nil {
		opts.Comm = comm.Serial{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sched, err := NewScheduler(opts.Every, opts.DistCheck, opts.Comm.AllReduceOr, opts.Logger)
	if err != nil {
		return nil, err
	}

	nTypes, maxN := pdata.NTypes(), pdata.MaxN()
	e := &Engine{
		pdata: pdata, comm: opts.Comm, finder: opts.Finder, logger: opts.Logger,
		nTypes:     nTypes,
		rcut:       make([]float64, nTypes*nTypes),
		rcutMax:    make([]float64, nTypes),
		rlistSq:    make([]float64, nTypes*nTypes),
		rbuff:      opts.RBuff,
		storage:    opts.Storage,
		filterBody: opts.FilterBody,
		capacity:   NewCapacity(nTypes, maxN),
		sched:      sched,
		stale:      true,
		lastPos:    make([][3]float64, maxN),
		lastL:      pdata.GlobalBox().NearestPlaneDistance(),
	}
	e.exclusions = NewExclusions(pdata.NGlobal(), maxN, e.ForceUpdate)

	for i := range e.rcut {
		e.rcut[i] = opts.RCut
	}
	e.updateRCutMax()

	e.cancels = []func(){
		pdata.OnSort(e.ForceUpdate),
		pdata.OnMaxNChange(e.reallocate),
		pdata.OnGlobalNChange(e.reallocateGlobal),
	}

	e.logger.Debug("constructing neighbor list",
		"rank", e.comm.Rank(), "types", nTypes, "max_n", maxN,
		"r_cut", opts.RCut, "r_buff", opts.RBuff, "storage", e.storage.String())

	return e, nil
}

// Close stops the Engine from listening to changes in its particles.
func (e *Engine) Close() {
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
}

// reallocate resizes the per-index tables after the particle capacity
// changed.
func (e *Engine) reallocate() {
	maxN := e.pdata.MaxN()
	e.logger.Debug("reallocating neighbor list", "rank", e.comm.Rank(), "max_n", maxN)

	lastPos := make([][3]float64, maxN)
	copy(lastPos, e.lastPos)
	e.lastPos = lastPos

	e.capacity.Resize(maxN)
	e.exclusions.ResizeLocal(maxN)
	e.ForceUpdate()
}

// reallocateGlobal resizes the tag tables after the global particle count
// changed. Exclusions are keyed by tag, so they're cleared and need to be
// added again.
func (e *Engine) reallocateGlobal() {
	e.logger.Debug("global particle count changed, clearing exclusions",
		"rank", e.comm.Rank(), "n_global", e.pdata.NGlobal())
	e.exclusions.ResizeGlobal(e.pdata.NGlobal())
	e.wantExclusions = true
}

func (e *Engine) checkType(typ uint32) error {
	if int(typ) >= e.nTypes {
		return fmt.Errorf("%w: type %d, but there are %d types", ErrTypeRange, typ, e.nTypes)
	}
	return nil
}

// SetRCutPair sets the cutoff radius of the type pair a, b. The change takes
// effect on the next call to Compute.
func (e *Engine) SetRCutPair(a, b uint32, rcut float64) error {
	if rcut < 0 {
		return fmt.Errorf("%w: got %g for types %d, %d", ErrNegativeCutoff, rcut, a, b)
	} else if err := e.checkType(a); err != nil {
		return err
	} else if err := e.checkType(b); err != nil {
		return err
	}

	e.rcut[int(a)*e.nTypes+int(b)] = rcut
	e.rcut[int(b)*e.nTypes+int(a)] = rcut
	e.updateRCutMax()

	e.notifyDomain()
	e.ForceUpdate()
	return nil
}

// SetRCut sets the cutoff radius of every type pair.
func (e *Engine) SetRCut(rcut float64) error {
	if rcut < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeCutoff, rcut)
	}
	for i := range e.rcut {
		e.rcut[i] = rcut
	}
	e.updateRCutMax()

	e.notifyDomain()
	e.ForceUpdate()
	return nil
}

// RCutPair returns the cutoff radius of the type pair a, b.
func (e *Engine) RCutPair(a, b uint32) (float64, error) {
	if err := e.checkType(a); err != nil {
		return 0, err
	} else if err := e.checkType(b); err != nil {
		return 0, err
	}
	return e.rcut[int(a)*e.nTypes+int(b)], nil
}

// RCutMax returns the largest cutoff radius of any type pair.
func (e *Engine) RCutMax() float64 { return e.rcutMaxMax }

// RCutMaxType returns the largest cutoff radius of any pair involving typ.
func (e *Engine) RCutMaxType(typ uint32) (float64, error) {
	if err := e.checkType(typ); err != nil {
		return 0, err
	}
	return e.rcutMax[typ], nil
}

func (e *Engine) updateRCutMax() {
	e.rcutMaxMax = 0
	for i := 0; i < e.nTypes; i++ {
		e.rcutMax[i] = 0
		for j := 0; j < e.nTypes; j++ {
			e.rcutMax[i] = math.Max(e.rcutMax[i], e.rcut[i*e.nTypes+j])
		}
		e.rcutMaxMax = math.Max(e.rcutMaxMax, e.rcutMax[i])
	}
}

// updateRList recomputes the squared list radii from the cutoffs and buffer.
func (e *Engine) updateRList() {
	for i := range e.rcut {
		r := e.rcut[i] + e.rbuff
		e.rlistSq[i] = r * r
	}
}

// SetRBuff sets the buffer radius.
func (e *Engine) SetRBuff(rbuff float64) error {
	if rbuff < 0 {
		return fmt.Errorf("%w: got %g", ErrNegativeBuffer, rbuff)
	}
	e.rbuff = rbuff
	e.notifyDomain()
	e.ForceUpdate()
	return nil
}

// RBuff returns the buffer radius.
func (e *Engine) RBuff() float64 { return e.rbuff }

// SetEvery sets the number of steps between distance checks.
func (e *Engine) SetEvery(every int) error {
	if err := e.sched.SetEvery(every); err != nil {
		return err
	}
	e.ForceUpdate()
	return nil
}

// Every returns the number of steps between distance checks.
func (e *Engine) Every() int { return e.sched.Every() }

// SetDistCheck turns the displacement check on or off.
func (e *Engine) SetDistCheck(on bool) { e.sched.SetDistCheck(on) }

// DistCheck returns true if the displacement check is on.
func (e *Engine) DistCheck() bool { return e.sched.DistCheck() }

// SetFilterBody controls whether particles in the same rigid body are
// removed from each other's lists.
func (e *Engine) SetFilterBody(on bool) {
	e.filterBody = on
	e.ForceUpdate()
}

// FilterBody returns true if same-body pairs are filtered.
func (e *Engine) FilterBody() bool { return e.filterBody }

// SetStorage sets the storage mode.
func (e *Engine) SetStorage(s Storage) {
	e.storage = s
	e.ForceUpdate()
}

// Storage returns the storage mode.
func (e *Engine) Storage() Storage { return e.storage }

// SetFinder replaces the pair finder.
func (e *Engine) SetFinder(f PairFinder) {
	e.finder = f
	e.ForceUpdate()
}

// SetDomain attaches a domain decomposition. The decomposition is told the
// ghost-layer width and buffer radius now and whenever they change, and can
// ask the Engine whether a step will rebuild through a migrate request.
func (e *Engine) SetDomain(d Domain) {
	if e.domain != d {
		d.AddMigrateRequest(e.NeedsUpdating)
	}
	e.domain = d
	e.notifyDomain()
}

func (e *Engine) notifyDomain() {
	if e.domain == nil {
		return
	}
	e.domain.SetGhostLayerWidth(e.rcutMaxMax + e.rbuff)
	e.domain.SetRBuff(e.rbuff)
}

// ForceUpdate makes the next call to Compute rebuild the list.
func (e *Engine) ForceUpdate() {
	e.stale = true
	e.sched.ForceUpdate()
}

// NeedsUpdating returns true if the list will be rebuilt at timestep.
func (e *Engine) NeedsUpdating(timestep uint64) bool {
	return e.sched.NeedsUpdating(timestep, e.rbuff, e.distanceCheck)
}

// Compute brings the neighbor list up to date for timestep. Calling it again
// for the same step does nothing unless an update has been forced since.
func (e *Engine) Compute(timestep uint64) error {
	if e.pdata.N() != e.lastN {
		e.ForceUpdate()
	}
	if e.computed && e.lastComputed == timestep && !e.stale {
		return nil
	}
	e.computed, e.lastComputed = true, timestep

	stale := e.stale
	if stale {
		e.updateRList()
		e.capacity.BuildHeadList(e.pdata.Types())
		if e.exclusions.Set() {
			e.exclusions.UpdateIndex(e.pdata.Tags(), e.pdata.RTags())
		}
	}

	// NeedsUpdating is collective, so it's called even when the list is
	// stale. A migrate request may already have consumed the forced update
	// earlier in the step.
	if !e.NeedsUpdating(timestep) && !stale {
		return nil
	}

	if err := e.build(timestep); err != nil {
		return err
	}
	e.filter()
	e.setLastUpdatedPos()
	e.built, e.stale = true, false

	return nil
}

// filter removes excluded pairs from a freshly built list.
func (e *Engine) filter() {
	if e.exclusions.Set() {
		e.exclusions.Filter(e.capacity.Head(), e.capacity.NNeigh(),
			e.capacity.NList(), e.pdata.N())
	}
}

// build runs the pair finder until every neighbor fits.
func (e *Engine) build(timestep uint64) error {
	n := e.pdata.N()
	req := &BuildRequest{
		Timestep:   timestep,
		Box:        e.pdata.Box(),
		Pos:        e.pdata.Positions(),
		Types:      e.pdata.Types(),
		Bodies:     e.pdata.Bodies(),
		NTypes:     e.nTypes,
		RListSq:    e.rlistSq,
		Storage:    e.storage,
		FilterBody: e.filterBody,
	}

	for {
		e.capacity.ResetConditions()
		nneigh := e.capacity.NNeigh()
		for i := 0; i < n; i++ {
			nneigh[i] = 0
		}

		req.head, req.nmax = e.capacity.Head(), e.capacity.NMax()
		req.nlist, req.nneigh = e.capacity.NList(), nneigh
		req.conditions = e.capacity.Conditions()

		if err := e.finder.Find(req); err != nil {
			return err
		}
		if !e.capacity.CheckConditions() {
			return nil
		}

		e.overflows++
		e.logger.Debug("neighbor list overflow, growing",
			"rank", e.comm.Rank(), "timestep", timestep, "n_max", e.capacity.NMax())
		e.capacity.Allocate(e.pdata.MaxN())
		e.capacity.BuildHeadList(e.pdata.Types())
	}
}

// distanceCheck returns true if any local particle has moved far enough since
// the last build that a pair could have entered the cutoff undetected. The
// affine part of any box deformation is removed first.
func (e *Engine) distanceCheck() bool {
	L := e.pdata.GlobalBox().NearestPlaneDistance()
	lambda := [3]float64{L[0] / e.lastL[0], L[1] / e.lastL[1], L[2] / e.lastL[2]}
	lambdaMin := math.Min(lambda[0], math.Min(lambda[1], lambda[2]))

	b := e.pdata.Box()
	pos, types := e.pdata.Positions(), e.pdata.Types()
	for i := range pos {
		rcut := e.rcutMax[types[i]]
		deltaMax := ((rcut+e.rbuff)*lambdaMin - rcut) / 2
		maxSq := 0.0
		if deltaMax > 0 {
			maxSq = deltaMax * deltaMax
		}

		dx := b.MinImage([3]float64{
			pos[i][0] - lambda[0]*e.lastPos[i][0],
			pos[i][1] - lambda[1]*e.lastPos[i][1],
			pos[i][2] - lambda[2]*e.lastPos[i][2],
		})
		if dx[0]*dx[0]+dx[1]*dx[1]+dx[2]*dx[2] >= maxSq {
			return true
		}
	}
	return false
}

func (e *Engine) setLastUpdatedPos() {
	copy(e.lastPos, e.pdata.Positions())
	e.lastL = e.pdata.GlobalBox().NearestPlaneDistance()
	e.lastN = e.pdata.N()
}

// Built returns true once the list has been built at least once.
func (e *Engine) Built() bool { return e.built }

// Head returns the offset of each local particle's list in NList. Only the
// first N() elements are valid.
func (e *Engine) Head() []uint32 { return e.capacity.Head() }

// NNeigh returns the number of neighbors of each local particle. Only the
// first N() elements are valid.
func (e *Engine) NNeigh() []uint32 { return e.capacity.NNeigh() }

// NList returns the flat neighbor array.
func (e *Engine) NList() []uint32 { return e.capacity.NList() }

// NMax returns the per-type neighbor capacities.
func (e *Engine) NMax() []uint32 { return e.capacity.NMax() }

// Neighbors returns the local indices of the neighbors of particle i. The
// slice aliases the Engine's storage.
func (e *Engine) Neighbors(i int) []uint32 {
	h := e.capacity.Head()[i]
	return e.capacity.NList()[h : h+e.capacity.NNeigh()[i]]
}
