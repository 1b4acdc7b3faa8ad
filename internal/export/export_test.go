package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
)

func voiceOf(t *testing.T, label string, names ...string) tintinnabuli.Voice {
	t.Helper()
	m, err := tintinnabuli.ParseMelody(names)
	require.NoError(t, err)
	return tintinnabuli.Voice{Label: label, Tones: m}
}

func TestNoteEvents(t *testing.T) {
	v := voiceOf(t, "M", "C4", "r", "E4", "G4")
	events := NoteEvents(v, tintinnabuli.Rhythm{1, 0.5, 2, 1}, Options{Velocity: 100})

	assert.Equal(t, []models.NoteEvent{
		{MidiNoteNumber: 60, Velocity: 100, StartBeats: 0, DurationBeats: 1},
		{MidiNoteNumber: 64, Velocity: 100, StartBeats: 1.5, DurationBeats: 2},
		{MidiNoteNumber: 67, Velocity: 100, StartBeats: 3.5, DurationBeats: 1},
	}, events)
}

func TestNoteEventsArticulationAndRange(t *testing.T) {
	v := tintinnabuli.Voice{Label: "M-72", Tones: tintinnabuli.MelodyOf(-5, 50, 130)}
	events := NoteEvents(v, tintinnabuli.Rhythm{1, 2, 1}, Options{Articulation: 0.5})

	require.Len(t, events, 1)
	assert.Equal(t, 50, events[0].MidiNoteNumber)
	assert.Equal(t, 1.0, events[0].StartBeats)
	assert.Equal(t, 1.0, events[0].DurationBeats)
	assert.Equal(t, defaultVelocity, events[0].Velocity)
}

func TestNoteEventsEmpty(t *testing.T) {
	events := NoteEvents(tintinnabuli.Voice{Label: "M"}, nil, Options{})
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEncodeMIDI(t *testing.T) {
	voices := []tintinnabuli.Voice{
		voiceOf(t, "M", "E4", "D4", "r", "C4"),
		voiceOf(t, "T-1", "C4", "G3", "r", "G3"),
	}
	rhythm := tintinnabuli.Rhythm{1, 1, 1, 2}

	data, err := EncodeMIDI(voices, rhythm, Options{Title: "Für Alina", TimeSignature: "3/4"})
	require.NoError(t, err)

	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 3, "conductor plus one track per voice")

	for i, label := range []string{"M", "T-1"} {
		var name string
		var keys []uint8
		for _, ev := range s.Tracks[i+1] {
			ev.Message.GetMetaTrackName(&name)
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) && vel > 0 {
				keys = append(keys, key)
			}
		}
		assert.Equal(t, label, name)
		assert.Len(t, keys, 3)
	}
}

func TestEncodeMIDIRejectsMeter(t *testing.T) {
	_, err := EncodeMIDI(nil, nil, Options{TimeSignature: "4/3"})
	assert.Error(t, err)
}

func TestParseMeter(t *testing.T) {
	tests := []struct {
		in      string
		num     uint8
		denom   uint8
		wantErr bool
	}{
		{in: "", num: 4, denom: 4},
		{in: "6/8", num: 6, denom: 8},
		{in: " 3 / 2 ", num: 3, denom: 2},
		{in: "5", wantErr: true},
		{in: "0/4", wantErr: true},
		{in: "7/6", wantErr: true},
		{in: "x/4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			num, denom, err := parseMeter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.num, num)
			assert.Equal(t, tt.denom, denom)
		})
	}
}

func TestChannelForSkipsDrums(t *testing.T) {
	seen := map[uint8]bool{}
	for i := 0; i < 15; i++ {
		ch := channelFor(i)
		assert.NotEqual(t, uint8(drumChannel), ch)
		assert.Less(t, ch, uint8(16))
		seen[ch] = true
	}
	assert.Len(t, seen, 15)
}
