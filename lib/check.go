package lib

/* check.go contains the core functions of nlist's "check" mode. */

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"

	"github.com/phil-mansfield/nlist/lib/box"
)

// Check looks for problems in args which Process can't find on its own
// because they need the file system, the machine, or several variables at
// once. With CrashOnError, every problem is returned together. With
// WarnOnError, problems are logged as warnings and Check returns nil.
func Check(args *Args, strictness CheckStrictness, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errs := []error{}
	add := func(format string, a ...interface{}) {
		errs = append(errs, fmt.Errorf(format, a...))
	}

	if args.Threads > runtime.NumCPU() {
		add("%d threads requested, but this machine only has %d cores.",
			args.Threads, runtime.NumCPU())
	}

	for _, file := range []string{args.ParticleFile, args.BondFile} {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			add("Could not open input file: %s", err.Error())
		}
	}

	b, err := box.NewTriclinic(args.L, args.XY, args.XZ, args.YZ)
	if err != nil {
		add("Invalid box: %s", err.Error())
	} else {
		rlist := args.RCut + args.RBuff
		for _, c := range args.Cutoffs {
			rlist = math.Max(rlist, c.RCut+args.RBuff)
		}
		if args.Tune {
			rlist = math.Max(rlist, args.RCut+args.TuneConfig.MaxBuffer)
		}

		npd := b.NearestPlaneDistance()
		for dim := range npd {
			if rlist > npd[dim]/2 {
				add("The list radius %g is more than half the box width "+
					"%g along axis %d.", rlist, npd[dim], dim)
			}
		}
		if slab := npd[0] / float64(args.Ranks); args.Ranks > 1 && rlist > slab/2 {
			add("The list radius %g is more than half the width of a "+
				"rank's slab, %g.", rlist, slab)
		}
	}

	if args.Lattice > 0 {
		n := args.Lattice * args.Lattice * args.Lattice
		if need := args.Chains * args.ChainLength; need > n {
			add("%d chains of length %d need %d particles, but the lattice "+
				"only has %d.", args.Chains, args.ChainLength, need, n)
		}
	}

	if len(args.Exclude) > 0 && args.Chains == 0 && args.BondFile == "" {
		add("Exclusions %v were requested, but no bonds are defined.", args.Exclude)
	}

	if args.Tune && args.Ranks > 1 {
		add("Buffer tuning is only supported with a single rank.")
	}

	if n := len(args.DumpSteps); n > 0 && args.DumpSteps[n-1] >= args.Steps {
		add("DumpSteps goes up to step %d, but the run ends after step %d.",
			args.DumpSteps[n-1], args.Steps-1)
	}

	if strictness == WarnOnError {
		for _, err := range errs {
			logger.Warn(err.Error())
		}
		return nil
	}
	return errors.Join(errs...)
}
