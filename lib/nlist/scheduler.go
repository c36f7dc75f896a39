package nlist

import (
	"fmt"
	"log/slog"
)

// PeriodBins is the number of bins in the histogram of rebuild periods. The
// last bin holds every period at least that long.
const PeriodBins = 100

// minRBuff is the buffer radius below which the distance check is skipped
// and the list is rebuilt whenever a check is due.
const minRBuff = 1e-6

// Scheduler decides when the neighbor list needs to be rebuilt. Decisions are
// memoized per timestep, so the domain decomposition and the Engine can both
// ask about the same step.
type Scheduler struct {
	every     uint64
	distCheck bool
	reduce    func(bool) bool
	logger    *slog.Logger

	force       bool
	checked     bool
	lastChecked uint64
	lastResult  bool
	lastUpdated uint64

	updates, forced, dangerous uint64
	periods                    [PeriodBins]uint64
}

// NewScheduler returns a Scheduler which checks for rebuilds every `every`
// steps. reduce combines the decisions of all ranks and is called exactly
// once per newly checked timestep. nil means a single rank. The first
// check always rebuilds.
func NewScheduler(every int, distCheck bool, reduce func(bool) bool, logger *slog.Logger) (*Scheduler, error) {
	if reduce == nil {
		reduce = func(x bool) bool { return x }
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{distCheck: distCheck, reduce: reduce, logger: logger, force: true}
	if err := s.SetEvery(every); err != nil {
		return nil, err
	}
	return s, nil
}

// SetEvery sets the number of steps between checks.
func (s *Scheduler) SetEvery(every int) error {
	if every < 1 {
		return fmt.Errorf("%w: got %d", ErrCheckPeriod, every)
	}
	s.every = uint64(every)
	return nil
}

// Every returns the number of steps between checks.
func (s *Scheduler) Every() int { return int(s.every) }

// SetDistCheck turns the displacement check on or off.
func (s *Scheduler) SetDistCheck(on bool) { s.distCheck = on }

// DistCheck returns true if the displacement check is on.
func (s *Scheduler) DistCheck() bool { return s.distCheck }

// ForceUpdate makes the next check return true.
func (s *Scheduler) ForceUpdate() { s.force = true }

// ForcePending returns true if a forced update hasn't been consumed yet.
func (s *Scheduler) ForcePending() bool { return s.force }

// LastUpdated returns the timestep of the last rebuild.
func (s *Scheduler) LastUpdated() uint64 { return s.lastUpdated }

// NeedsUpdating returns true if the list must be rebuilt at timestep.
// rbuff is the current buffer radius and check reports whether any local
// particle has moved too far. check is only called once a check period has
// elapsed.
//
// Repeated calls for the same timestep return the first answer, except that
// a forced update requested in between returns true once, uncounted.
func (s *Scheduler) NeedsUpdating(timestep uint64, rbuff float64, check func() bool) bool {
	if s.checked && s.lastChecked == timestep {
		if s.force {
			s.force = false
			return true
		}
		return s.lastResult
	}
	s.checked, s.lastChecked = true, timestep

	due := timestep >= s.lastUpdated+s.every
	// The buffer may already have been used up by the time the first check
	// after a rebuild happens.
	dangerous := s.distCheck && s.every > 1 && timestep == s.lastUpdated+s.every

	local := false
	switch {
	case s.force:
		local = true
	case !due:
		local = false
	case rbuff < minRBuff || !s.distCheck:
		local = true
	default:
		local = check()
	}
	result := s.reduce(local)

	if s.force {
		s.force = false
		s.forced++
		s.lastUpdated = timestep
		dangerous = false
	} else if result {
		if timestep > s.lastUpdated {
			period := timestep - s.lastUpdated
			if period >= PeriodBins {
				period = PeriodBins - 1
			}
			s.periods[period]++
		}
		s.lastUpdated = timestep
		s.updates++
	}

	if result && dangerous {
		s.logger.Warn("dangerous neighbor list build; decrease the check period",
			"timestep", timestep, "every", s.every)
		s.dangerous++
	}

	s.lastResult = result
	return result
}

// Updates returns the number of normal rebuilds.
func (s *Scheduler) Updates() uint64 { return s.updates }

// ForcedUpdates returns the number of forced rebuilds.
func (s *Scheduler) ForcedUpdates() uint64 { return s.forced }

// DangerousUpdates returns the number of dangerous rebuilds.
func (s *Scheduler) DangerousUpdates() uint64 { return s.dangerous }

// Periods returns the histogram of rebuild periods.
func (s *Scheduler) Periods() [PeriodBins]uint64 { return s.periods }

// SmallestRebuild returns the shortest period between normal rebuilds, or
// PeriodBins if there haven't been any.
func (s *Scheduler) SmallestRebuild() int {
	for i := range s.periods {
		if s.periods[i] != 0 {
			return i
		}
	}
	return PeriodBins
}

// ResetStats zeroes the rebuild counters and the period histogram.
func (s *Scheduler) ResetStats() {
	s.updates, s.forced, s.dangerous = 0, 0, 0
	s.periods = [PeriodBins]uint64{}
}
