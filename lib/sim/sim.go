/*package sim drives the neighbor list through a short simulation: it lays
down particles, builds their topology and exclusions, and moves them with a
random walk while keeping one neighbor list per rank up to date.

Ranks are goroutines which talk to each other through comm.Local. Particles
are assigned to the rank whose slab contains their starting position and stay
there, so pairs which straddle two ranks aren't found.*/
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/nlist/lib"
	"github.com/phil-mansfield/nlist/lib/box"
	"github.com/phil-mansfield/nlist/lib/catio"
	"github.com/phil-mansfield/nlist/lib/cell"
	"github.com/phil-mansfield/nlist/lib/comm"
	"github.com/phil-mansfield/nlist/lib/domain"
	"github.com/phil-mansfield/nlist/lib/nlist"
	"github.com/phil-mansfield/nlist/lib/nlistio"
	"github.com/phil-mansfield/nlist/lib/particles"
	"github.com/phil-mansfield/nlist/lib/rng"
	"github.com/phil-mansfield/nlist/lib/topology"
	"github.com/phil-mansfield/nlist/lib/tune"
)

// Observer is told about an Engine after every step. *nlist.Collector is an
// Observer.
type Observer interface {
	Observe(e *nlist.Engine)
}

// Result summarizes a run.
type Result struct {
	Steps   int
	Elapsed time.Duration
	// Stats holds the statistics of each rank.
	Stats []nlist.Stats
	// RBuff is the buffer radius at the end of the run, which differs from
	// the configured one if the buffer was tuned.
	RBuff float64
	// Snapshot is the final list of every rank, merged.
	Snapshot *nlist.Snapshot
	// NExcluded is the number of particles with at least one exclusion.
	NExcluded int
}

// NPairs returns the number of stored neighbor entries at the end of the run.
func (r *Result) NPairs() int { return r.Snapshot.NPairs() }

// initialConditions is the global particle set, shared read-only by every
// rank.
type initialConditions struct {
	pos    [][3]float64
	types  []uint32
	bodies []int32
}

// Run runs a simulation described by args.
func Run(ctx context.Context, args *lib.Args, logger *slog.Logger, obs ...Observer) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if args.Tune && args.Ranks > 1 {
		return nil, fmt.Errorf("buffer tuning needs a single rank, not %d", args.Ranks)
	}

	b, err := box.NewTriclinic(args.L, args.XY, args.XZ, args.YZ)
	if err != nil {
		return nil, err
	}

	ic, err := loadParticles(args, b)
	if err != nil {
		return nil, err
	}
	topo, err := loadTopology(args, len(ic.pos))
	if err != nil {
		return nil, err
	}

	logger.Info("starting run", "particles", len(ic.pos), "ranks", args.Ranks,
		"steps", args.Steps, "mode", args.RunMode.String(),
		"bonds", len(topo.Bonds()))

	var comms []comm.Communicator
	if args.Ranks == 1 {
		comms = []comm.Communicator{comm.Serial{}}
	} else {
		for _, c := range comm.NewLocalWorld(args.Ranks) {
			comms = append(comms, c)
		}
	}

	res := &Result{
		Steps: args.Steps,
		Stats: make([]nlist.Stats, args.Ranks),
	}
	snaps := make([]*nlist.Snapshot, args.Ranks)
	rbuffs := make([]float64, args.Ranks)
	excluded := make([]int, args.Ranks)

	start := time.Now()
	g := &errgroup.Group{}
	for _, c := range comms {
		c := c
		g.Go(func() error {
			r := &rankRun{
				args: args, c: c, b: b, ic: ic,
				logger: logger.With("rank", c.Rank()), obs: obs,
			}
			// Only rank 0 holds the topology. The engine broadcasts it.
			if c.Rank() == 0 {
				r.topo = topo
			}
			if err := r.run(ctx); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			res.Stats[c.Rank()] = r.stats
			snaps[c.Rank()] = r.snap
			rbuffs[c.Rank()] = r.rbuff
			excluded[c.Rank()] = r.excluded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	res.Snapshot = nlist.MergeSnapshots(snaps...)
	res.RBuff = rbuffs[0]
	res.NExcluded = excluded[0]

	if args.Dump != "" {
		if err := nlistio.WriteFile(args.Dump, res.Snapshot); err != nil {
			return nil, err
		}
		logger.Info("wrote neighbor list", "file", args.Dump,
			"particles", len(res.Snapshot.Tags), "pairs", res.NPairs())
	}

	logger.Info("finished run", "elapsed", res.Elapsed, "rbuff", res.RBuff)
	return res, nil
}

// rankRun is the state of a single rank.
type rankRun struct {
	args   *lib.Args
	c      comm.Communicator
	b      *box.Box
	ic     *initialConditions
	topo   *topology.Data
	logger *slog.Logger
	obs    []Observer

	stats    nlist.Stats
	snap     *nlist.Snapshot
	rbuff    float64
	excluded int
}

func (r *rankRun) run(ctx context.Context) error {
	args := r.args

	slab, err := domain.NewSlab(r.b, r.c.Rank(), r.c.Size(), r.logger)
	if err != nil {
		return err
	}

	pdata, err := particles.New(args.NTypes, len(r.ic.pos), r.b)
	if err != nil {
		return err
	}
	for tag, x := range r.ic.pos {
		if !slab.Owns(x) {
			continue
		}
		_, err := pdata.Add(x, r.ic.types[tag], uint32(tag), r.ic.bodies[tag])
		if err != nil {
			return err
		}
	}

	opts := nlist.DefaultOptions(args.RCut, args.RBuff)
	opts.Every, opts.DistCheck = args.Every, args.DistCheck
	opts.FilterBody, opts.Storage = args.FilterBody, args.Storage
	opts.Finder = &cell.Finder{Logger: r.logger}
	opts.Comm, opts.Logger = r.c, r.logger

	e, err := nlist.New(pdata, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, cut := range args.Cutoffs {
		if err := e.SetRCutPair(cut.A, cut.B, cut.RCut); err != nil {
			return fmt.Errorf("cutoff '%s': %w", cut.Name, err)
		}
	}
	e.SetDomain(slab)

	if err := addExclusions(e, r.topo, args.Exclude); err != nil {
		return err
	}
	e.LogExclusionStats()
	r.logger.Debug("expected neighbors per particle", "estimate", e.EstimateNNeigh())

	var tuner *tune.BufferTuner
	if args.Tune {
		if tuner, err = tune.New(e, args.TuneConfig, r.logger); err != nil {
			return err
		}
	}

	dumps := map[int]bool{}
	for _, step := range args.DumpSteps {
		dumps[step] = true
	}

	gen := rng.New(args.Seed + uint64(r.c.Rank()))
	for step := 0; step < args.Steps; step++ {
		ts := uint64(step)
		// Every rank has to leave the loop at the same step, or the others
		// would wait forever in the next collective.
		if r.c.AllReduceOr(ctx.Err() != nil) {
			return context.Canceled
		}

		if tuner != nil {
			if err := tuner.Act(ts); err != nil {
				return err
			}
		}

		for i := 0; i < pdata.N(); i++ {
			pdata.Translate(i, gen.Displacement(args.MaxDisplacement))
		}

		if slab.MigrateRequested(ts) {
			r.logger.Debug("neighbor list will rebuild", "timestep", ts)
		}
		if err := e.Compute(ts); err != nil {
			return err
		}

		if args.StatsEvery > 0 && step%args.StatsEvery == 0 {
			e.LogStats()
		}
		for _, o := range r.obs {
			o.Observe(e)
		}

		if dumps[step] {
			if err := r.dump(e, ts); err != nil {
				return err
			}
		}
	}

	e.LogStats()
	r.stats = e.Stats()
	r.snap = e.Snapshot()
	r.rbuff = e.RBuff()
	r.excluded = len(r.ic.pos) - e.NumExclusions(0)
	return nil
}

// dump writes this rank's list to the file named by Output.DumpFormat. A
// failure on any rank stops every rank.
func (r *rankRun) dump(e *nlist.Engine, ts uint64) error {
	fname := r.args.DumpFormat.Expand(ts, r.c.Rank())
	err := nlistio.WriteFile(fname, e.Snapshot())
	if r.c.AllReduceOr(err != nil) {
		if err == nil {
			err = fmt.Errorf("another rank failed to write its dump at step %d", ts)
		}
		return err
	}
	r.logger.Debug("wrote neighbor list", "file", fname, "timestep", ts)
	return nil
}

// addExclusions adds the requested kinds of topology exclusions.
func addExclusions(e *nlist.Engine, t *topology.Data, kinds []string) error {
	for _, kind := range kinds {
		var err error
		switch kind {
		case lib.ExcludeBonds:
			err = e.AddExclusionsFromBonds(t)
		case lib.ExcludeAngles:
			err = e.AddExclusionsFromAngles(t)
		case lib.ExcludeDihedrals:
			err = e.AddExclusionsFromDihedrals(t)
		case lib.ExcludeOneThree:
			err = e.AddOneThreeExclusionsFromTopology(t)
		case lib.ExcludeOneFour:
			err = e.AddOneFourExclusionsFromTopology(t)
		default:
			err = fmt.Errorf("unknown exclusion kind '%s'", kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// loadParticles builds the global particle set from a lattice or a file.
func loadParticles(args *lib.Args, b *box.Box) (*initialConditions, error) {
	ic := &initialConditions{}

	if args.Lattice > 0 {
		lattice := particles.NewZMajorLattice(args.Lattice, 1)
		n := lattice.Sites()
		ic.pos = make([][3]float64, n)
		ic.types = make([]uint32, n)
		ic.bodies = make([]int32, n)
		for tag := range ic.pos {
			// The lattice is laid down in fractional coordinates so that it
			// follows the tilt of the box.
			ic.pos[tag] = b.Position(lattice.Position(uint64(tag)))
			ic.types[tag] = uint32(tag % args.NTypes)
			ic.bodies[tag] = particles.NoBody
		}
		return ic, nil
	}

	rd, err := catio.TextFile(args.ParticleFile)
	if err != nil {
		return nil, err
	}
	xs, err := rd.ReadFloat64s([]int{0, 1, 2})
	if err != nil {
		return nil, err
	}
	types, err := rd.ReadInts([]int{3})
	if err != nil {
		return nil, err
	}

	n := rd.Lines()
	ic.pos = make([][3]float64, n)
	ic.types = make([]uint32, n)
	ic.bodies = make([]int32, n)
	for i := 0; i < n; i++ {
		ic.pos[i] = b.Wrap([3]float64{xs[0][i], xs[1][i], xs[2][i]})
		if types[0][i] < 0 || types[0][i] >= args.NTypes {
			return nil, fmt.Errorf("%s: particle %d has type %d, but there "+
				"are only %d types", args.ParticleFile, i, types[0][i], args.NTypes)
		}
		ic.types[i] = uint32(types[0][i])
		ic.bodies[i] = particles.NoBody
	}

	if rd.Columns() > 4 {
		bodies, err := rd.ReadInts([]int{4})
		if err != nil {
			return nil, err
		}
		for i := range bodies[0] {
			ic.bodies[i] = int32(bodies[0][i])
		}
	}

	return ic, nil
}

// loadTopology builds the bonds, angles, and dihedrals of the run.
func loadTopology(args *lib.Args, nGlobal int) (*topology.Data, error) {
	topo := topology.New(nGlobal)

	if args.Chains > 0 {
		if err := topo.Chains(args.Chains, args.ChainLength); err != nil {
			return nil, err
		}
		return topo, nil
	} else if args.BondFile == "" {
		return topo, nil
	}

	rd, err := catio.TextFile(args.BondFile)
	if err != nil {
		return nil, err
	}
	cols, err := rd.ReadInts([]int{0, 1})
	if err != nil {
		return nil, err
	}
	for i := range cols[0] {
		a, b := cols[0][i], cols[1][i]
		if a < 0 || b < 0 {
			return nil, fmt.Errorf("%s: bond %d has negative tags (%d, %d)",
				args.BondFile, i, a, b)
		}
		if err := topo.AddBond(uint32(a), uint32(b)); err != nil {
			return nil, fmt.Errorf("%s: %w", args.BondFile, err)
		}
	}
	return topo, nil
}
