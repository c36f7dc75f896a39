package lib

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/nlist/lib/nlist"
)

func TestExampleConfig(t *testing.T) {
	raw, err := ParseConfig(ExampleConfig)
	require.NoError(t, err)

	args, err := raw.Process()
	require.NoError(t, err)

	assert.Equal(t, 1000, args.Steps)
	assert.Equal(t, SerialMode, args.RunMode)
	assert.Equal(t, slog.LevelInfo, args.LogLevel)
	assert.Equal(t, [3]float64{20, 20, 20}, args.L)
	assert.Equal(t, 10, args.Lattice)
	assert.Equal(t, 2.5, args.RCut)
	assert.Equal(t, 0.4, args.RBuff)
	assert.True(t, args.DistCheck)
	assert.Equal(t, nlist.Full, args.Storage)
	assert.Empty(t, args.Cutoffs)
	assert.Empty(t, args.Exclude)

	assert.NoError(t, Check(args, CrashOnError, nil))
}

const testConfig = `[System]
Ranks = 2
LogLevel = debug

[Particles]
NTypes = 2
L = 10, 12, 14
Lattice = 4

[NeighborList]
RCut = 1
RBuff = 0.2
Every = 3
DistCheck = false
Storage = half

[Cutoff "b"]
TypeA = 1
TypeB = 1
RCut = 0.5

[Cutoff "a"]
TypeA = 0
TypeB = 1
RCut = 0.75

[Topology]
Chains = 4
ChainLength = 8
Exclude = bond
Exclude = 1-3
`

func TestProcess(t *testing.T) {
	raw, err := ParseConfig(testConfig)
	require.NoError(t, err)
	args, err := raw.Process()
	require.NoError(t, err)

	assert.Equal(t, LocalRanksMode, args.RunMode)
	assert.Equal(t, slog.LevelDebug, args.LogLevel)
	assert.Equal(t, [3]float64{10, 12, 14}, args.L)
	assert.Equal(t, 3, args.Every)
	assert.False(t, args.DistCheck)
	assert.Equal(t, nlist.Half, args.Storage)
	assert.Equal(t, []Cutoff{{"a", 0, 1, 0.75}, {"b", 1, 1, 0.5}}, args.Cutoffs)
	assert.Equal(t, []string{ExcludeBonds, ExcludeOneThree}, args.Exclude)
	// Defaults survive.
	assert.Equal(t, 100, args.Steps)
	assert.Equal(t, uint64(1), args.Seed)

	assert.NoError(t, Check(args, CrashOnError, nil))
}

func TestProcessErrors(t *testing.T) {
	tests := []string{
		"[System]\nRanks = 0",
		"[System]\nLogLevel = loud",
		"[Particles]\nL = 10 10\nLattice = 2\n[NeighborList]\nRCut = 1",
		"[Particles]\nL = -1\nLattice = 2",
		"[Particles]\nL = 10",
		"[Particles]\nL = 10\nLattice = 2\nFile = x.txt",
		"[Particles]\nL = 10\nLattice = 2\n[NeighborList]\nRBuff = -1",
		"[Particles]\nL = 10\nLattice = 2\n[NeighborList]\nEvery = 0",
		"[Particles]\nL = 10\nLattice = 2\n[NeighborList]\nStorage = quarter",
		"[Particles]\nL = 10\nLattice = 2\n[Cutoff \"x\"]\nTypeA = 0\nTypeB = 1",
		"[Particles]\nL = 10\nLattice = 2\n[Topology]\nExclude = 1-5",
		"[Particles]\nL = 10\nLattice = 2\n[Topology]\nChains = 1\nBondFile = b.txt",
		"[Particles]\nL = 10\nLattice = 2\n[Tune]\nEnabled = true\nMinBuffer = 1\nMaxBuffer = 0.5",
		"[Particles]\nL = 10\nLattice = 2\n[Output]\nDumpSteps = 0..10",
		"[Particles]\nL = 10\nLattice = 2\n[Output]\nDumpSteps = 10..0\nDumpFormat = x.{%d,step}",
		"[Particles]\nL = 10\nLattice = 2\n[Output]\nDumpSteps = 0..10\nDumpFormat = x.{%d,snapshot}",
		"[System]\nRanks = 2\n[Particles]\nL = 10\nLattice = 2\n[Output]\nDumpSteps = 0..10\nDumpFormat = x.{%d,step}",
	}

	for i := range tests {
		raw, err := ParseConfig(tests[i])
		if err != nil {
			t.Errorf("%d) Expected config to parse, got %s.", i, err.Error())
			continue
		}
		if _, err := raw.Process(); err == nil {
			t.Errorf("%d) Expected error from Process() for:\n%s", i, tests[i])
		}
	}

	if _, err := ParseConfig("[Nonsense]\nX = 1"); err == nil {
		t.Errorf("Expected error for unknown section.")
	}
}

func TestProcessDumps(t *testing.T) {
	raw, err := ParseConfig(testConfig + `
[Output]
DumpSteps = 0..20 - 5..15 + 50
DumpFormat = "nlist.{%03d,step}.{%d,rank}.dat"
`)
	require.NoError(t, err)
	args, err := raw.Process()
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 16, 17, 18, 19, 20, 50}, args.DumpSteps)
	assert.Equal(t, "nlist.016.1.dat", args.DumpFormat.Expand(16, 1))
	assert.NoError(t, Check(args, CrashOnError, nil))

	args.Steps = 50
	err = Check(args, CrashOnError, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DumpSteps goes up to step 50")
}

func TestOverwrite(t *testing.T) {
	raw, err := ParseConfig(testConfig)
	require.NoError(t, err)

	cmd := DefaultRawArgs()
	cmd.System.Steps = 7
	cmd.Output.Dump = "out.dat"
	raw.Overwrite(cmd)

	assert.Equal(t, 7, raw.System.Steps)
	assert.Equal(t, 2, raw.System.Ranks, "unset command line values shouldn't overwrite")
	assert.Equal(t, "debug", raw.System.LogLevel)
	assert.Equal(t, "out.dat", raw.Output.Dump)
}

func TestParseConfigFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "nlist.config")
	require.NoError(t, os.WriteFile(fname, []byte(testConfig), 0644))

	raw, err := ParseConfigFile(fname)
	require.NoError(t, err)
	assert.Equal(t, 2, raw.System.Ranks)

	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	raw, err := ParseConfig(testConfig)
	require.NoError(t, err)
	args, err := raw.Process()
	require.NoError(t, err)

	args.RCut = 6
	args.Chains = 100
	args.BondFile = filepath.Join(t.TempDir(), "missing.txt")

	err = Check(args, CrashOnError, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "half the box width")
	assert.Contains(t, err.Error(), "lattice only has 64")
	assert.Contains(t, err.Error(), "missing.txt")

	assert.NoError(t, Check(args, WarnOnError, slog.New(slog.NewTextHandler(os.Stderr, nil))))
}

func TestSetThreads(t *testing.T) {
	n, err := SetThreads(-1)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	_, err = SetThreads(0)
	assert.Error(t, err)
	_, err = SetThreads(1 << 20)
	assert.Error(t, err)
}
