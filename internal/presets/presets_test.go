package presets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	names := make([]string, 0)
	for _, p := range c.List() {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "tintinnabuli")
	assert.Contains(t, names, "mirror-canon")
	assert.IsIncreasing(t, names)

	p, err := c.Get("alternating")
	require.NoError(t, err)
	require.Len(t, p.TVoices, 2)
	assert.Equal(t, []bool{true, false}, p.TVoices[1].Bind)

	cmd, err := p.Command()
	require.NoError(t, err)
	assert.Equal(t, tintinnabuli.StructureNone, cmd.Kind)
}

func TestGetUnknown(t *testing.T) {
	_, err := New().Get("missing")
	assert.True(t, errors.Is(err, ErrUnknownPreset))
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := `
presets:
  - name: tintinnabuli
    description: replaced
    structure: retrograde
  - name: custom
    key: D
    mode: dorian
    parallel_offsets: [12]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	p, err := c.Get("tintinnabuli")
	require.NoError(t, err)
	assert.Equal(t, "replaced", p.Description)

	p, err = c.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, []int{12}, p.ParallelOffsets)

	_, err = c.Get("ladder")
	assert.NoError(t, err, "built-ins survive an override file")
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: "presets:\n  - structure: none\n"},
		{name: "bad structure", doc: "presets:\n  - name: x\n    structure: transposition:up\n"},
		{name: "bad key", doc: "presets:\n  - name: x\n    key: H\n    mode: major\n"},
		{name: "bad voice", doc: "presets:\n  - name: x\n    t_voices:\n      - level: 1\n        direction: sideways\n"},
		{name: "not yaml", doc: "presets: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyKeepsExplicitValues(t *testing.T) {
	p := Preset{
		Name:            "p",
		Key:             "A",
		Mode:            "minor",
		Structure:       "mirror:A4",
		ParallelOffsets: []int{-12},
		TVoices:         []tintinnabuli.TVoiceSpec{{Level: 1, Direction: tintinnabuli.Below}},
	}

	req := tintinnabuli.Request{ParallelOffsets: []int{}}
	require.NoError(t, p.Apply(&req))
	assert.Equal(t, "A", req.Key)
	assert.Equal(t, tintinnabuli.StructureMirror, req.Structure.Kind)
	assert.Empty(t, req.ParallelOffsets, "an explicit empty list is kept")
	assert.Len(t, req.TVoices, 1)

	req = tintinnabuli.Request{Key: "C", Mode: "major", Structure: tintinnabuli.StructureCommand{Kind: tintinnabuli.StructureRetrograde}}
	require.NoError(t, p.Apply(&req))
	assert.Equal(t, "C", req.Key)
	assert.Equal(t, tintinnabuli.StructureRetrograde, req.Structure.Kind)
	assert.Equal(t, []int{-12}, req.ParallelOffsets)
}
