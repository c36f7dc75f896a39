/*package tune contains a tuner that searches for the buffer radius that gives
the most simulation steps per second.

The tuner runs a grid search: every candidate buffer is used for a fixed
window of steps and timed. After each round the grid is narrowed to the
neighborhood of the fastest candidate. When all rounds are done, the fastest
buffer seen is set for good.*/
package tune

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ErrConfig is returned when a tuner is given impossible settings.
var ErrConfig = errors.New("invalid tuner configuration")

// Target is something with a tunable buffer radius. *nlist.Engine is a
// Target.
type Target interface {
	SetRBuff(rbuff float64) error
	RBuff() float64
}

// Config sets up a BufferTuner.
type Config struct {
	// MinBuffer and MaxBuffer bound the search.
	MinBuffer, MaxBuffer float64
	// Points is the number of grid points in each round.
	Points int
	// Window is the number of steps each candidate is timed over.
	Window int
	// Rounds is the number of grid refinements. Zero means one round.
	Rounds int
}

// BufferTuner searches for the buffer radius that maximizes steps per second.
type BufferTuner struct {
	target Target
	cfg    Config
	clock  func() time.Time
	logger *slog.Logger

	candidates []float64
	idx, round int
	started    bool
	startStep  uint64
	startTime  time.Time

	tuned  bool
	best   float64
	maxTPS float64
}

// New creates a tuner for target. A nil logger uses slog.Default().
func New(target Target, cfg Config, logger *slog.Logger) (*BufferTuner, error) {
	if cfg.Rounds == 0 {
		cfg.Rounds = 1
	}

	switch {
	case !(cfg.MinBuffer >= 0):
		return nil, fmt.Errorf("%w: MinBuffer = %g", ErrConfig, cfg.MinBuffer)
	case !(cfg.MaxBuffer > cfg.MinBuffer) || math.IsInf(cfg.MaxBuffer, 0):
		return nil, fmt.Errorf("%w: MaxBuffer = %g isn't larger than "+
			"MinBuffer = %g", ErrConfig, cfg.MaxBuffer, cfg.MinBuffer)
	case cfg.Points < 2:
		return nil, fmt.Errorf("%w: need at least two points, got %d",
			ErrConfig, cfg.Points)
	case cfg.Window < 1:
		return nil, fmt.Errorf("%w: Window = %d", ErrConfig, cfg.Window)
	case cfg.Rounds < 0:
		return nil, fmt.Errorf("%w: Rounds = %d", ErrConfig, cfg.Rounds)
	}

	if logger == nil {
		logger = slog.Default()
	}

	t := &BufferTuner{
		target: target, cfg: cfg, clock: time.Now, logger: logger,
		best: target.RBuff(),
	}
	t.candidates = grid(cfg.MinBuffer, cfg.MaxBuffer, cfg.Points)
	return t, nil
}

// SetClock replaces the clock used to time steps.
func (t *BufferTuner) SetClock(clock func() time.Time) { t.clock = clock }

// Act should be called once per step, before the step is run.
func (t *BufferTuner) Act(timestep uint64) error {
	if t.tuned {
		return nil
	}

	if !t.started {
		t.started = true
		return t.start(timestep)
	}

	steps := timestep - t.startStep
	if steps < uint64(t.cfg.Window) {
		return nil
	}

	elapsed := t.clock().Sub(t.startTime)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	tps := float64(steps) / elapsed.Seconds()
	rbuff := t.candidates[t.idx]

	t.logger.Debug("timed buffer candidate", "rbuff", rbuff, "tps", tps,
		"round", t.round)
	if tps > t.maxTPS {
		t.best, t.maxTPS = rbuff, tps
	}

	t.idx++
	if t.idx == len(t.candidates) {
		t.idx = 0
		t.round++
		if t.round == t.cfg.Rounds {
			return t.finish()
		}
		t.refine()
	}

	return t.start(timestep)
}

// start begins timing the current candidate.
func (t *BufferTuner) start(timestep uint64) error {
	if err := t.target.SetRBuff(t.candidates[t.idx]); err != nil {
		return err
	}
	t.startStep, t.startTime = timestep, t.clock()
	return nil
}

// refine narrows the grid to one spacing on either side of the best buffer.
func (t *BufferTuner) refine() {
	lo, hi := t.candidates[0], t.candidates[len(t.candidates)-1]
	dx := (hi - lo) / float64(len(t.candidates)-1)
	lo = math.Max(t.cfg.MinBuffer, t.best-dx)
	hi = math.Min(t.cfg.MaxBuffer, t.best+dx)
	t.candidates = grid(lo, hi, t.cfg.Points)
}

func (t *BufferTuner) finish() error {
	t.tuned = true
	if err := t.target.SetRBuff(t.best); err != nil {
		return err
	}
	t.logger.Info("buffer tuned", "rbuff", t.best, "tps", t.maxTPS)
	return nil
}

// Tuned returns true once the search is over.
func (t *BufferTuner) Tuned() bool { return t.tuned }

// BestBuffer returns the fastest buffer seen so far. Before any candidate has
// been timed, it's the target's starting buffer.
func (t *BufferTuner) BestBuffer() float64 { return t.best }

// MaxTPS returns the steps per second of BestBuffer().
func (t *BufferTuner) MaxTPS() float64 { return t.maxTPS }

// Candidates returns the buffers of the current round.
func (t *BufferTuner) Candidates() []float64 {
	return append([]float64(nil), t.candidates...)
}

func grid(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	dx := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + dx*float64(i)
	}
	out[n-1] = hi
	return out
}
