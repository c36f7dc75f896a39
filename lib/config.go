package lib

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/nlist/lib/format"
	"github.com/phil-mansfield/nlist/lib/nlist"
	"github.com/phil-mansfield/nlist/lib/tune"
)

// Exclusion kinds accepted by the Topology.Exclude config variable.
const (
	ExcludeBonds     = "bond"
	ExcludeAngles    = "angle"
	ExcludeDihedrals = "dihedral"
	ExcludeOneThree  = "1-3"
	ExcludeOneFour   = "1-4"
)

// RawArgs stores the unprocessed values which the user assigned to each config
// variable.
type RawArgs struct {
	System struct {
		Steps, Ranks, Threads int
		Seed                  int64
		LogLevel              string
		MetricsAddr           string
	}
	Particles struct {
		NTypes int
		// L gives the box edge lengths, either one value or three.
		L          string
		XY, XZ, YZ float64
		// Either Lattice (sites per side) or File is used.
		Lattice         int
		File            string
		MaxDisplacement float64
	}
	NeighborList struct {
		RCut, RBuff float64
		Every       int
		DistCheck   bool
		FilterBody  bool
		Storage     string
	}
	Cutoff   map[string]*CutoffConfig
	Topology struct {
		Chains, ChainLength int
		BondFile            string
		Exclude             []string
	}
	Tune struct {
		Enabled              bool
		MinBuffer, MaxBuffer float64
		Points, Window       int
		Rounds               int
	}
	Output struct {
		Dump       string
		StatsEvery int
		// DumpSteps is a sequence format and DumpFormat a file format. See
		// lib/format.
		DumpSteps, DumpFormat string
	}
}

// CutoffConfig is one [Cutoff "name"] section, which overrides the cutoff
// of a single type pair.
type CutoffConfig struct {
	TypeA, TypeB int
	RCut         float64
}

// Cutoff is the processed version of CutoffConfig.
type Cutoff struct {
	Name string
	A, B uint32
	RCut float64
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	Steps, Ranks, Threads int
	Seed                  uint64
	LogLevel              slog.Level
	MetricsAddr           string
	RunMode               RunMode

	NTypes          int
	L               [3]float64
	XY, XZ, YZ      float64
	Lattice         int
	ParticleFile    string
	MaxDisplacement float64

	RCut, RBuff float64
	Cutoffs     []Cutoff
	Every       int
	DistCheck   bool
	FilterBody  bool
	Storage     nlist.Storage

	Chains, ChainLength int
	BondFile            string
	Exclude             []string

	Tune       bool
	TuneConfig tune.Config

	Dump       string
	StatsEvery int
	DumpSteps  []int
	DumpFormat *format.FileFormat
}

// DefaultRawArgs returns the values used for every variable a config file
// doesn't set.
func DefaultRawArgs() *RawArgs {
	args := &RawArgs{}
	args.System.Steps = 100
	args.System.Ranks = 1
	args.System.Threads = -1
	args.System.Seed = 1
	args.System.LogLevel = "info"

	args.Particles.NTypes = 1
	args.Particles.MaxDisplacement = 0.05

	args.NeighborList.Every = 1
	args.NeighborList.DistCheck = true
	args.NeighborList.Storage = "full"

	args.Tune.Points = 5
	args.Tune.Window = 20
	args.Tune.Rounds = 1

	args.Output.StatsEvery = 0
	return args
}

// ParseConfigFile parses arguments from a config file. Variables which aren't
// in the file keep the values given by DefaultRawArgs.
func ParseConfigFile(fileName string) (*RawArgs, error) {
	args := DefaultRawArgs()
	if err := gcfg.ReadFileInto(args, fileName); err != nil {
		return nil, err
	}
	return args, nil
}

// ParseConfig parses arguments from the text of a config file.
func ParseConfig(text string) (*RawArgs, error) {
	args := DefaultRawArgs()
	if err := gcfg.ReadStringInto(args, text); err != nil {
		return nil, err
	}
	return args, nil
}

// Overwrite arguments in arg1 which have been set to non-default values in
// arg2. Only the [System] variables and Output.Dump can be overwritten,
// since those are the ones exposed on the command line.
func (arg1 *RawArgs) Overwrite(arg2 *RawArgs) {
	def := DefaultRawArgs()
	s1, s2 := &arg1.System, &arg2.System

	if s2.Steps != def.System.Steps {
		s1.Steps = s2.Steps
	}
	if s2.Ranks != def.System.Ranks {
		s1.Ranks = s2.Ranks
	}
	if s2.Threads != def.System.Threads {
		s1.Threads = s2.Threads
	}
	if s2.Seed != def.System.Seed {
		s1.Seed = s2.Seed
	}
	if s2.LogLevel != def.System.LogLevel {
		s1.LogLevel = s2.LogLevel
	}
	if s2.MetricsAddr != def.System.MetricsAddr {
		s1.MetricsAddr = s2.MetricsAddr
	}
	if arg2.Output.Dump != def.Output.Dump {
		arg1.Output.Dump = arg2.Output.Dump
	}
}

// Process converts the raw user input to a format which is more useful for
// internal functions. Very simple validation will be done here, but nothing
// which requires interacting with external files.
func (args *RawArgs) Process() (*Args, error) {
	out := &Args{
		Steps: args.System.Steps, Ranks: args.System.Ranks,
		Threads: args.System.Threads, MetricsAddr: args.System.MetricsAddr,

		NTypes:  args.Particles.NTypes,
		XY:      args.Particles.XY,
		XZ:      args.Particles.XZ,
		YZ:      args.Particles.YZ,
		Lattice: args.Particles.Lattice, ParticleFile: args.Particles.File,
		MaxDisplacement: args.Particles.MaxDisplacement,

		RCut: args.NeighborList.RCut, RBuff: args.NeighborList.RBuff,
		Every: args.NeighborList.Every, DistCheck: args.NeighborList.DistCheck,
		FilterBody: args.NeighborList.FilterBody,

		Chains: args.Topology.Chains, ChainLength: args.Topology.ChainLength,
		BondFile: args.Topology.BondFile,

		Tune: args.Tune.Enabled,
		TuneConfig: tune.Config{
			MinBuffer: args.Tune.MinBuffer, MaxBuffer: args.Tune.MaxBuffer,
			Points: args.Tune.Points, Window: args.Tune.Window,
			Rounds: args.Tune.Rounds,
		},

		Dump: args.Output.Dump, StatsEvery: args.Output.StatsEvery,
	}

	switch {
	case out.Steps < 0:
		return nil, fmt.Errorf("Steps must be non-negative, but is %d.", out.Steps)
	case out.Ranks < 1:
		return nil, fmt.Errorf("Ranks must be positive, but is %d.", out.Ranks)
	case out.Threads == 0 || out.Threads < -1:
		return nil, fmt.Errorf("Threads must be positive or -1, but is %d.", out.Threads)
	case args.System.Seed < 0:
		return nil, fmt.Errorf("Seed must be non-negative, but is %d.", args.System.Seed)
	case out.NTypes < 1:
		return nil, fmt.Errorf("NTypes must be positive, but is %d.", out.NTypes)
	case out.MaxDisplacement < 0:
		return nil, fmt.Errorf("MaxDisplacement must be non-negative, but is %g.", out.MaxDisplacement)
	case out.StatsEvery < 0:
		return nil, fmt.Errorf("StatsEvery must be non-negative, but is %d.", out.StatsEvery)
	}
	out.Seed = uint64(args.System.Seed)

	if out.Ranks == 1 {
		out.RunMode = SerialMode
	} else {
		out.RunMode = LocalRanksMode
	}

	var err error
	if out.LogLevel, err = parseLogLevel(args.System.LogLevel); err != nil {
		return nil, err
	}
	if out.L, err = parseL(args.Particles.L); err != nil {
		return nil, err
	}

	if (out.Lattice > 0) == (out.ParticleFile != "") {
		return nil, fmt.Errorf("Exactly one of Particles.Lattice and " +
			"Particles.File must be set.")
	} else if out.Lattice < 0 {
		return nil, fmt.Errorf("Lattice must be non-negative, but is %d.", out.Lattice)
	}

	if out.RCut < 0 {
		return nil, fmt.Errorf("RCut must be non-negative, but is %g.", out.RCut)
	} else if out.RBuff < 0 {
		return nil, fmt.Errorf("RBuff must be non-negative, but is %g.", out.RBuff)
	} else if out.Every < 1 {
		return nil, fmt.Errorf("Every must be positive, but is %d.", out.Every)
	}

	switch strings.ToLower(args.NeighborList.Storage) {
	case "full":
		out.Storage = nlist.Full
	case "half":
		out.Storage = nlist.Half
	default:
		return nil, fmt.Errorf("Storage must be 'full' or 'half', not '%s'.",
			args.NeighborList.Storage)
	}

	if out.Cutoffs, err = processCutoffs(args.Cutoff, out.NTypes); err != nil {
		return nil, err
	}

	if out.Chains < 0 || out.ChainLength < 0 {
		return nil, fmt.Errorf("Chains and ChainLength must be non-negative, "+
			"but are %d and %d.", out.Chains, out.ChainLength)
	} else if out.Chains > 0 && out.BondFile != "" {
		return nil, fmt.Errorf("Only one of Topology.Chains and " +
			"Topology.BondFile may be set.")
	}

	for _, ex := range args.Topology.Exclude {
		ex = strings.ToLower(strings.TrimSpace(ex))
		switch ex {
		case ExcludeBonds, ExcludeAngles, ExcludeDihedrals,
			ExcludeOneThree, ExcludeOneFour:
			out.Exclude = append(out.Exclude, ex)
		default:
			return nil, fmt.Errorf("Unknown exclusion '%s'. Valid exclusions "+
				"are '%s', '%s', '%s', '%s', and '%s'.", ex, ExcludeBonds,
				ExcludeAngles, ExcludeDihedrals, ExcludeOneThree, ExcludeOneFour)
		}
	}

	if out.Tune {
		if out.TuneConfig.MaxBuffer <= out.TuneConfig.MinBuffer ||
			out.TuneConfig.MinBuffer < 0 {
			return nil, fmt.Errorf("Tune needs 0 <= MinBuffer < MaxBuffer, "+
				"but MinBuffer = %g and MaxBuffer = %g.",
				out.TuneConfig.MinBuffer, out.TuneConfig.MaxBuffer)
		} else if out.TuneConfig.Points < 2 || out.TuneConfig.Window < 1 ||
			out.TuneConfig.Rounds < 1 {
			return nil, fmt.Errorf("Tune needs Points >= 2, Window >= 1, and "+
				"Rounds >= 1, but they are %d, %d, and %d.",
				out.TuneConfig.Points, out.TuneConfig.Window,
				out.TuneConfig.Rounds)
		}
	}

	if err := processDumps(args, out); err != nil {
		return nil, err
	}

	return out, nil
}

// processDumps expands Output.DumpSteps and parses Output.DumpFormat.
func processDumps(args *RawArgs, out *Args) error {
	steps, fmtString := args.Output.DumpSteps, args.Output.DumpFormat
	if steps == "" && fmtString == "" {
		return nil
	} else if steps == "" || fmtString == "" {
		return fmt.Errorf("Output.DumpSteps and Output.DumpFormat must be " +
			"set together.")
	}

	var err error
	if out.DumpSteps, err = format.ExpandSequenceFormat(steps); err != nil {
		return fmt.Errorf("The DumpSteps format string, '%s' is not valid. %s",
			steps, err.Error())
	}
	if out.DumpFormat, err = format.ParseFileFormat(fmtString); err != nil {
		return err
	}

	hasRank := false
	for _, v := range out.DumpFormat.Vars() {
		hasRank = hasRank || v == format.RankRule
	}
	if out.Ranks > 1 && !hasRank {
		return fmt.Errorf("DumpFormat '%s' needs a {%%d,%s} variable when "+
			"there is more than one rank.", fmtString, format.RankRule)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LogLevel must be debug, info, warn, or error, "+
			"not '%s'.", s)
	}
	return level, nil
}

// parseL reads either one edge length, used for all three edges, or three.
func parseL(s string) ([3]float64, error) {
	toks := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(toks) != 1 && len(toks) != 3 {
		return [3]float64{}, fmt.Errorf("Particles.L must contain one or "+
			"three edge lengths, but is '%s'.", s)
	}

	var L [3]float64
	for i := range L {
		tok := toks[0]
		if len(toks) == 3 {
			tok = toks[i]
		}
		x, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return L, fmt.Errorf("Could not parse Particles.L = '%s': %s", s, err.Error())
		} else if !(x > 0) || math.IsInf(x, 0) {
			return L, fmt.Errorf("Particles.L must be positive and finite, but is '%s'.", s)
		}
		L[i] = x
	}
	return L, nil
}

func processCutoffs(raw map[string]*CutoffConfig, nTypes int) ([]Cutoff, error) {
	out := []Cutoff{}
	for name, c := range raw {
		if c.TypeA < 0 || c.TypeA >= nTypes || c.TypeB < 0 || c.TypeB >= nTypes {
			return nil, fmt.Errorf("Cutoff '%s' uses types (%d, %d), but "+
				"there are only %d types.", name, c.TypeA, c.TypeB, nTypes)
		} else if c.RCut < 0 {
			return nil, fmt.Errorf("Cutoff '%s' has negative RCut %g.", name, c.RCut)
		}
		out = append(out, Cutoff{name, uint32(c.TypeA), uint32(c.TypeB), c.RCut})
	}
	// Map order is random, so sort by name to keep runs reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ExampleConfig is a commented config file which can be used as a starting
// point for new runs.
const ExampleConfig = `[System]
# Number of steps to run.
Steps = 1000
# Number of in-process ranks. Each rank owns a slab of the box along x.
Ranks = 1
# Maximum number of OS threads. -1 uses every core.
Threads = -1
Seed = 1
# debug, info, warn, or error
LogLevel = info
# If set, Prometheus metrics are served at this address (e.g. :9100).
MetricsAddr =

[Particles]
NTypes = 1
# One edge length or three.
L = 20
XY = 0
XZ = 0
YZ = 0
# Either the number of lattice sites per side or a text file with the
# columns x y z type [body].
Lattice = 10
File =
# Particles move by at most this much along each axis per step.
MaxDisplacement = 0.05

[NeighborList]
RCut = 2.5
RBuff = 0.4
# Steps between checks of whether the list is stale.
Every = 1
DistCheck = true
# Skip pairs in the same rigid body.
FilterBody = false
# full or half
Storage = full

# One section per type pair with a cutoff different from RCut.
# [Cutoff "small"]
# TypeA = 0
# TypeB = 1
# RCut = 1.5

[Topology]
# Either linear chains of consecutive tags or a text file with the columns
# a b.
Chains = 0
ChainLength = 0
BondFile =
# Repeat for each kind: bond, angle, dihedral, 1-3, 1-4.
# Exclude = bond

[Tune]
Enabled = false
MinBuffer = 0.1
MaxBuffer = 0.8
Points = 5
Window = 20
Rounds = 1

[Output]
# Neighbor list dump written at the end of the run.
Dump =
# Steps between statistics reports. 0 only reports at the end.
StatsEvery = 0
# Per-rank dumps written during the run, e.g.
# DumpSteps = 0..1000 - 500..599
# DumpFormat = "nlist.{%06d,step}.{%d,rank}.dat"
DumpSteps =
DumpFormat =
`
