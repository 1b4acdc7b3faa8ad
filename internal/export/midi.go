package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

const drumChannel = 9

// WriteMIDI writes a format 1 Standard MIDI File: a conductor track with
// tempo and meter, then one named track per voice on its own channel.
func WriteMIDI(w io.Writer, voices []tintinnabuli.Voice, rhythm tintinnabuli.Rhythm, opts Options) error {
	opts = opts.withDefaults()
	num, denom, err := parseMeter(opts.TimeSignature)
	if err != nil {
		return err
	}

	clock := smf.MetricTicks(opts.TicksPerQuarter)
	s := smf.New()
	s.TimeFormat = clock

	var conductor smf.Track
	if opts.Title != "" {
		conductor.Add(0, smf.MetaTrackSequenceName(opts.Title))
	}
	conductor.Add(0, smf.MetaMeter(num, denom))
	conductor.Add(0, smf.MetaTempo(opts.Tempo))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("add conductor track: %w", err)
	}

	for i, v := range voices {
		ch := channelFor(i)
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(v.Label))

		var pending uint32
		for _, ev := range NoteEvents(v, rhythm, opts) {
			startTick := ticks(clock, ev.StartBeats)
			endTick := ticks(clock, ev.StartBeats+ev.DurationBeats)
			key := uint8(ev.MidiNoteNumber)
			tr.Add(startTick-pending, midi.NoteOn(ch, key, uint8(ev.Velocity)))
			tr.Add(endTick-startTick, midi.NoteOff(ch, key))
			pending = endTick
		}
		end := ticks(clock, TotalBeats(rhythm))
		if end < pending {
			end = pending
		}
		tr.Close(end - pending)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("add track %s: %w", v.Label, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// EncodeMIDI is WriteMIDI into memory.
func EncodeMIDI(voices []tintinnabuli.Voice, rhythm tintinnabuli.Rhythm, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, voices, rhythm, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ticks(clock smf.MetricTicks, beats float64) uint32 {
	return uint32(math.Round(beats * float64(clock.Ticks4th())))
}

// channelFor skips the General MIDI percussion channel.
func channelFor(track int) uint8 {
	ch := uint8(track % 15)
	if ch >= drumChannel {
		ch++
	}
	return ch
}

func parseMeter(ts string) (uint8, uint8, error) {
	if ts == "" {
		return 4, 4, nil
	}
	n, d, ok := strings.Cut(ts, "/")
	num, err1 := strconv.Atoi(strings.TrimSpace(n))
	denom, err2 := strconv.Atoi(strings.TrimSpace(d))
	if !ok || err1 != nil || err2 != nil || num <= 0 || num > 255 || denom <= 0 || denom > 128 || denom&(denom-1) != 0 {
		return 0, 0, fmt.Errorf("invalid time signature %q", ts)
	}
	return uint8(num), uint8(denom), nil
}
