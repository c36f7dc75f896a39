package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/nlist/lib"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExampleConfigCommand(t *testing.T) {
	out, err := execute(t, "example-config")
	require.NoError(t, err)
	assert.Equal(t, lib.ExampleConfig, out)
}

func TestCheckAndRun(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "nlist.config")
	require.NoError(t, os.WriteFile(config, []byte(`[System]
Steps = 5
LogLevel = error
[Particles]
L = 6
Lattice = 3
MaxDisplacement = 0
[NeighborList]
RCut = 2
RBuff = 0.3
`), 0644))

	out, err := execute(t, "check", config)
	require.NoError(t, err)
	assert.Contains(t, out, "No errors detected.")

	dump := filepath.Join(dir, "nlist.dat")
	out, err = execute(t, "run", config, "--steps", "3", "--dump", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "Ran 3 steps")

	out, err = execute(t, "dump-info", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "Particles: 27")
	// Every site of a 3x3x3 lattice with spacing 2 has six neighbors.
	assert.Contains(t, out, "Pairs:     162")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "check")
	assert.Error(t, err)

	_, err = execute(t, "check", filepath.Join(t.TempDir(), "missing.config"))
	assert.Error(t, err)

	_, err = execute(t, "dump-info", filepath.Join(t.TempDir(), "missing.dat"))
	assert.Error(t, err)
}
