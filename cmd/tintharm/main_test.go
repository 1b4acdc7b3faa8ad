package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/tintharm-api/internal/models"
)

func TestRunPrintsTable(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-melody", "E4 D4:2 C4", "-key", "C", "-mode", "major", "-t", "below:1", "-parallel", "-12"}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "T-1")
	assert.Contains(t, s, "M-12")
	assert.Contains(t, s, "G3")
	assert.Contains(t, s, "key: C major  structure: none")
}

func TestRunWritesFiles(t *testing.T) {
	dir := t.TempDir()

	midiPath := filepath.Join(dir, "out.mid")
	var out bytes.Buffer
	require.NoError(t, run([]string{"-melody", "A4 C5 E5", "-preset", "mirror-canon", "-out", midiPath}, &out))
	data, err := os.ReadFile(midiPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("MThd")))
	assert.Contains(t, out.String(), "A minor")

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, run([]string{"-melody", "C4 D4", "-key", "C", "-structure", "retrograde", "-t", "above:1", "-bind", "01", "-out", jsonPath}, &out))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)

	var resp models.HarmonizeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "retrograde", resp.Structure)
	require.Len(t, resp.Voices, 2)
	assert.Equal(t, []string{"D4", "C4"}, resp.Voices[0].Notes)
	assert.Equal(t, "", resp.Voices[1].Notes[0])
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no melody", args: []string{"-key", "C"}},
		{name: "both sources", args: []string{"-melody", "C4", "-musicxml", "x.xml"}},
		{name: "bad extension", args: []string{"-melody", "C4", "-key", "C", "-out", "x.wav"}},
		{name: "bad voice", args: []string{"-melody", "C4", "-t", "sideways:1"}},
		{name: "missing file", args: []string{"-musicxml", "does-not-exist.xml"}},
		{name: "bad key", args: []string{"-melody", "C4", "-key", "H"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args, &bytes.Buffer{}))
		})
	}

	assert.True(t, errors.Is(run(nil, &bytes.Buffer{}), errUsage))
}

func TestRunListsPresets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-presets"}, &out))
	assert.Contains(t, out.String(), "mirror-canon")
	assert.Contains(t, out.String(), "transposition:up:2:3")
}
