package tintinnabuli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMelody(t *testing.T, names ...string) Melody {
	t.Helper()
	m, err := ParseMelody(names)
	require.NoError(t, err)
	return m
}

func TestTranspose(t *testing.T) {
	tests := []struct {
		name     string
		melody   []string
		shift    int
		key      string
		mode     string
		expected []string
	}{
		{name: "up a third", melody: []string{"C4", "D4", "E4"}, shift: 2, key: "C", mode: "major", expected: []string{"E4", "F4", "G4"}},
		{name: "crosses octave upward", melody: []string{"B4"}, shift: 1, key: "C", mode: "major", expected: []string{"C5"}},
		{name: "crosses octave downward", melody: []string{"C4"}, shift: -1, key: "C", mode: "major", expected: []string{"B3"}},
		{name: "a full octave", melody: []string{"E4"}, shift: 7, key: "C", mode: "major", expected: []string{"E5"}},
		{name: "minor key stays in the note's octave", melody: []string{"A4", "B4"}, shift: 2, key: "A", mode: "minor", expected: []string{"C4", "D4"}},
		{name: "minor key wraps the scale upward", melody: []string{"G4"}, shift: 1, key: "A", mode: "minor", expected: []string{"A5"}},
		{name: "minor key full octave", melody: []string{"A4"}, shift: 7, key: "A", mode: "minor", expected: []string{"A5"}},
		{name: "G major wraps at the leading tone", melody: []string{"F#4", "B4"}, shift: 1, key: "G", mode: "major", expected: []string{"G5", "C4"}},
		{name: "G major up a third", melody: []string{"B4"}, shift: 2, key: "G", mode: "major", expected: []string{"D4"}},
		{name: "G major wraps the scale downward", melody: []string{"G4"}, shift: -1, key: "G", mode: "major", expected: []string{"F#3"}},
		{name: "rests pass through", melody: []string{"C4", "r", "G4"}, shift: 1, key: "C", mode: "major", expected: []string{"D4", "", "A4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diags, err := Transpose(mustMelody(t, tt.melody...), tt.shift, tt.key, tt.mode)
			require.NoError(t, err)
			assert.Empty(t, diags)
			assert.Equal(t, tt.expected, out.Names())
		})
	}
}

func TestTransposeOutOfScaleBecomesRest(t *testing.T) {
	out, diags, err := Transpose(mustMelody(t, "C4", "C#4", "E4"), 2, "C", "major")
	require.NoError(t, err)
	assert.Equal(t, []string{"E4", "", "G4"}, out.Names())

	require.Len(t, diags, 1)
	assert.Equal(t, 1, diags[0].Index)
	assert.Equal(t, StageTranspose, diags[0].Stage)
	assert.True(t, errors.Is(diags[0].Err, ErrOutOfScaleNote))
}

func TestTransposeZeroShiftIsIdentity(t *testing.T) {
	melody := mustMelody(t, "G4", "A4", "B4", "C5", "D5", "E5", "F#5", "G5")
	out, diags, err := Transpose(melody, 0, "G", "major")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, melody, out)
}

func TestTransposeEmpty(t *testing.T) {
	out, diags, err := Transpose(Melody{}, 3, "C", "major")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.NotNil(t, out)
	assert.Len(t, out, 0)
}

func TestTransposeBadKey(t *testing.T) {
	_, _, err := Transpose(mustMelody(t, "C4"), 1, "X", "major")
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageScale, se.Stage)
	assert.True(t, errors.Is(err, ErrUnsupportedKeyMode))
}

func TestTransposeDoesNotMutateInput(t *testing.T) {
	melody := mustMelody(t, "C4", "D4")
	_, _, err := Transpose(melody, 4, "C", "major")
	require.NoError(t, err)
	assert.Equal(t, []string{"C4", "D4"}, melody.Names())
}
