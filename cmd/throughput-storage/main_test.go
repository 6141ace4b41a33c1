package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonRun struct {
	Target  string `json:"target"`
	Root    string `json:"root"`
	Error   string `json:"error"`
	Results []struct {
		Size             int     `json:"size"`
		Label            string  `json:"label"`
		WriteBytesPerSec float64 `json:"writeBytesPerSec"`
		ReadBytesPerSec  float64 `json:"readBytesPerSec"`
		Error            string  `json:"error"`
	} `json:"results"`
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRootCmd_JSON(t *testing.T) {
	root := filepath.Join(t.TempDir(), "SdSpeedTest")

	stdout, stderr, err := execute(t,
		"--min-duration", "0",
		"--sizes", "1000,2000",
		"--format", "json",
		"broken=ftp://example.com/folder",
		"internal="+root,
	)
	require.NoError(t, err)

	var runs []jsonRun
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)

	assert.Equal(t, "broken", runs[0].Target)
	assert.Contains(t, runs[0].Error, "storage unavailable")
	assert.Empty(t, runs[0].Results)

	assert.Equal(t, "internal", runs[1].Target)
	assert.Empty(t, runs[1].Error)
	require.Len(t, runs[1].Results, 2)
	for i, size := range []int{1000, 2000} {
		result := runs[1].Results[i]

		assert.Equal(t, size, result.Size)
		assert.Empty(t, result.Error)
	}

	assert.Contains(t, stderr, "Skipping target")
	assert.Contains(t, stderr, "Tests Complete")

	_, err = os.Stat(filepath.Join(root, "test.dat"))
	assert.True(t, os.IsNotExist(err))
}

func TestRootCmd_Table(t *testing.T) {
	stdout, _, err := execute(t,
		"--min-duration", "0",
		"--sizes", "10000",
		"-t", "internal="+t.TempDir(),
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "internal (")
	assert.Contains(t, stdout, "10KB")
	assert.Contains(t, stdout, "Write KB/s")
}

func TestRootCmd_EnvTargetList(t *testing.T) {
	external := filepath.Join(t.TempDir(), "external")
	internal := filepath.Join(t.TempDir(), "internal")

	t.Setenv("THROUGHPUT_TARGET", "external="+external+",internal="+internal)

	stdout, _, err := execute(t, "--min-duration", "0", "--sizes", "1000", "--format", "json")
	require.NoError(t, err)

	var runs []jsonRun
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)

	assert.Equal(t, "external", runs[0].Target)
	assert.Equal(t, external, runs[0].Root)
	assert.Equal(t, "internal", runs[1].Target)
	assert.Equal(t, internal, runs[1].Root)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	_, _, err := execute(t, "--sizes", "0", t.TempDir())
	assert.Error(t, err)

	_, _, err = execute(t, "--format", "xml", t.TempDir())
	assert.Error(t, err)
}
