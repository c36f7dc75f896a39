package nlist

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the Engine's rebuild history and the current list.
type Stats struct {
	Updates, ForcedUpdates, DangerousUpdates uint64
	// Overflows is the number of builds that had to be redone with more
	// room.
	Overflows uint64
	// SmallestRebuild is the shortest number of steps between two normal
	// rebuilds, or PeriodBins if there haven't been any.
	SmallestRebuild int

	// Neighbor counts of the local particles.
	NNeighMin, NNeighMax int
	NNeighMean           float64
}

// Stats returns the Engine's statistics for this rank.
func (e *Engine) Stats() Stats {
	min, max, mean := e.NeighborStats()
	return Stats{
		Updates:          e.sched.Updates(),
		ForcedUpdates:    e.sched.ForcedUpdates(),
		DangerousUpdates: e.sched.DangerousUpdates(),
		Overflows:        e.overflows,
		SmallestRebuild:  e.sched.SmallestRebuild(),
		NNeighMin:        min,
		NNeighMax:        max,
		NNeighMean:       mean,
	}
}

// NeighborStats returns the minimum, maximum, and mean neighbor count of the
// local particles. All three are zero if there are no local particles.
func (e *Engine) NeighborStats() (min, max int, mean float64) {
	n := e.pdata.N()
	if n == 0 {
		return 0, 0, 0
	}

	counts := make([]float64, n)
	for i, c := range e.capacity.NNeigh()[:n] {
		counts[i] = float64(c)
	}
	return int(floats.Min(counts)), int(floats.Max(counts)), stat.Mean(counts, nil)
}

// SmallestRebuild returns the shortest number of steps between two normal
// rebuilds, or PeriodBins if there haven't been any.
func (e *Engine) SmallestRebuild() int { return e.sched.SmallestRebuild() }

// ResetStats zeroes the rebuild counters.
func (e *Engine) ResetStats() {
	e.sched.ResetStats()
	e.overflows = 0
}

// LogStats logs the rebuild counters and neighbor counts at Info. The mean
// is taken over every rank, so LogStats must be called on all of them.
func (e *Engine) LogStats() {
	s := e.Stats()

	sums := []int64{0, int64(e.pdata.N())}
	for _, c := range e.capacity.NNeigh()[:e.pdata.N()] {
		sums[0] += int64(c)
	}
	e.comm.AllReduceSum(sums)
	globalMean := 0.0
	if sums[1] > 0 {
		globalMean = float64(sums[0]) / float64(sums[1])
	}

	e.logger.Info("neighbor list stats",
		"rank", e.comm.Rank(),
		"updates", s.Updates,
		"forced_updates", s.ForcedUpdates,
		"dangerous_updates", s.DangerousUpdates,
		"overflows", s.Overflows,
		"n_neigh_min", s.NNeighMin,
		"n_neigh_max", s.NNeighMax,
		"n_neigh_avg", globalMean,
		"shortest_rebuild", s.SmallestRebuild,
	)
}

// EstimateNNeigh returns a mean-field estimate of the number of neighbors per
// particle: the local number density times the volume of a sphere with the
// largest list radius.
func (e *Engine) EstimateNNeigh() float64 {
	density := float64(e.pdata.N()) / e.pdata.Box().Volume()
	r := e.rcutMaxMax + e.rbuff
	return density * 4 * math.Pi / 3 * r * r * r
}

// Benchmark forces a build at timestep 0 and then returns the mean time
// taken by iters further builds. The list is filtered again afterwards, so
// it's still usable.
func (e *Engine) Benchmark(iters int) (time.Duration, error) {
	e.ForceUpdate()
	if err := e.Compute(0); err != nil {
		return 0, err
	}

	var mean time.Duration
	if err := e.build(0); err != nil {
		e.stale = true
		return 0, err
	}
	if iters > 0 {
		start := time.Now()
		for i := 0; i < iters; i++ {
			if err := e.build(0); err != nil {
				e.stale = true
				return 0, err
			}
		}
		mean = time.Since(start) / time.Duration(iters)
	}

	e.filter()
	return mean, nil
}
