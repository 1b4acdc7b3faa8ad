// Package export renders harmonization results for downstream tools: note
// event timelines for JSON clients and Standard MIDI Files.
package export

import (
	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
)

// MIDI key range.
const (
	minMIDIKey = 0
	maxMIDIKey = 127
)

const (
	defaultVelocity     = 90
	defaultTempo        = 120
	defaultArticulation = 1.0
	defaultTicks        = 480
)

// Options controls rendering. Zero values pick defaults.
type Options struct {
	Title         string
	Tempo         float64 // BPM
	TimeSignature string  // "3/4"; empty means 4/4
	Velocity      int
	// Articulation scales every sounding duration (1.0 = legato).
	Articulation float64
	// TicksPerQuarter sets the MIDI clock resolution.
	TicksPerQuarter uint16
}

func (o Options) withDefaults() Options {
	if o.Tempo <= 0 {
		o.Tempo = defaultTempo
	}
	if o.Velocity <= 0 || o.Velocity > maxMIDIKey {
		o.Velocity = defaultVelocity
	}
	if o.Articulation <= 0 || o.Articulation > 1 {
		o.Articulation = defaultArticulation
	}
	if o.TicksPerQuarter == 0 {
		o.TicksPerQuarter = defaultTicks
	}
	return o
}

// InMIDIRange reports whether p fits a MIDI key number.
func InMIDIRange(p tintinnabuli.Pitch) bool {
	return p >= minMIDIKey && p <= maxMIDIKey
}

// NoteEvents lays a voice out on a beat timeline. Rests advance time without
// producing an event, as do pitches outside the MIDI range.
func NoteEvents(voice tintinnabuli.Voice, rhythm tintinnabuli.Rhythm, opts Options) []models.NoteEvent {
	opts = opts.withDefaults()
	events := make([]models.NoteEvent, 0, len(voice.Tones))
	start := 0.0
	for i, t := range voice.Tones {
		dur := 1.0
		if i < len(rhythm) {
			dur = rhythm[i]
		}
		if p, ok := t.Pitch(); ok && InMIDIRange(p) {
			events = append(events, models.NoteEvent{
				MidiNoteNumber: int(p),
				Velocity:       opts.Velocity,
				StartBeats:     start,
				DurationBeats:  dur * opts.Articulation,
			})
		}
		start += dur
	}
	return events
}

// TotalBeats is the length of a rhythm in beats.
func TotalBeats(rhythm tintinnabuli.Rhythm) float64 {
	total := 0.0
	for _, d := range rhythm {
		total += d
	}
	return total
}
