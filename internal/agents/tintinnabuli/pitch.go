package tintinnabuli

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pitch is an absolute semitone number. C4 = 60, C-1 = 0.
type Pitch int

// PitchClass is a pitch without octave, 0 (C) through 11 (B).
type PitchClass int

const semitonesPerOctave = 12

// MaxOctave bounds the octave number accepted by ParsePitch in either
// direction.
const MaxOctave = 1 << 16

// noteSemitones is the fixed spelling table accepted on input.
var noteSemitones = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

// sharpNames is the canonical spelling used on output.
var sharpNames = [semitonesPerOctave]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// ParsePitch converts a note name like "E4", "F#3", "Bb-1" to a Pitch:
// 12*(octave+1) + semitone.
func ParsePitch(name string) (Pitch, error) {
	spelling, rest, err := splitSpelling(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidPitchName, name, err)
	}
	if rest == "" {
		return 0, fmt.Errorf("%w: %q: missing octave", ErrInvalidPitchName, name)
	}
	octave, ok := parseOctave(rest)
	if !ok {
		return 0, fmt.Errorf("%w: %q: invalid octave %q", ErrInvalidPitchName, name, rest)
	}
	return Pitch(semitonesPerOctave*(octave+1) + noteSemitones[spelling]), nil
}

// parseOctave accepts an optional '-' followed by decimal digits, within
// MaxOctave.
func parseOctave(s string) (int, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || len(digits) > len(strconv.Itoa(MaxOctave)) {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	octave, err := strconv.Atoi(s)
	if err != nil || octave > MaxOctave || octave < -MaxOctave {
		return 0, false
	}
	return octave, true
}

// MustParsePitch is ParsePitch for literals known to be valid.
func MustParsePitch(name string) Pitch {
	p, err := ParsePitch(name)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePitchClass parses a letter with optional accidental and no octave.
func ParsePitchClass(name string) (PitchClass, error) {
	spelling, rest, err := splitSpelling(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidPitchName, name, err)
	}
	if rest != "" {
		return 0, fmt.Errorf("%w: %q: unexpected %q", ErrInvalidPitchName, name, rest)
	}
	return PitchClass(noteSemitones[spelling]), nil
}

// splitSpelling normalizes the letter to upper case and returns the table key
// plus whatever follows it.
func splitSpelling(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("empty")
	}
	letter := strings.ToUpper(s[:1])
	if letter < "A" || letter > "G" {
		return "", "", fmt.Errorf("invalid letter %q", s[:1])
	}
	spelling := letter
	rest := s[1:]
	if rest != "" && (rest[0] == '#' || rest[0] == 'b') {
		spelling += rest[:1]
		rest = rest[1:]
	}
	if _, ok := noteSemitones[spelling]; !ok {
		return "", "", fmt.Errorf("spelling %q not supported", spelling)
	}
	return spelling, rest, nil
}

// Class returns the pitch class.
func (p Pitch) Class() PitchClass {
	return PitchClass(mod(int(p), semitonesPerOctave))
}

// Octave returns the scientific-notation octave.
func (p Pitch) Octave() int {
	return floorDiv(int(p), semitonesPerOctave) - 1
}

// String is the canonical (sharps-only) name, total over all integers.
func (p Pitch) String() string {
	return p.Class().String() + strconv.Itoa(p.Octave())
}

func (pc PitchClass) String() string {
	return sharpNames[mod(int(pc), semitonesPerOctave)]
}

// PitchName is integerToNote.
func PitchName(p Pitch) string { return p.String() }

// Tone is an optional Pitch. The zero value is a rest.
type Tone struct {
	pitch    Pitch
	sounding bool
}

// Sound returns a sounding tone.
func Sound(p Pitch) Tone { return Tone{pitch: p, sounding: true} }

// Rest returns a silent tone.
func Rest() Tone { return Tone{} }

// Pitch returns the pitch and whether the tone sounds at all.
func (t Tone) Pitch() (Pitch, bool) { return t.pitch, t.sounding }

// IsRest reports whether the tone is silent.
func (t Tone) IsRest() bool { return !t.sounding }

func (t Tone) String() string {
	if !t.sounding {
		return "rest"
	}
	return t.pitch.String()
}

// MarshalJSON encodes a rest as null and a pitch by its canonical name.
func (t Tone) MarshalJSON() ([]byte, error) {
	if !t.sounding {
		return []byte("null"), nil
	}
	return json.Marshal(t.pitch.String())
}

// UnmarshalJSON accepts null, a note name ("r"/"rest" for rests) or a MIDI number.
func (t *Tone) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*t = Rest()
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt32 || val < math.MinInt32 {
			return fmt.Errorf("%w: pitch number %s", ErrInvalidPitchName, string(data))
		}
		*t = Sound(Pitch(int(val)))
	case string:
		parsed, err := ParseTone(val)
		if err != nil {
			return err
		}
		*t = parsed
	default:
		return fmt.Errorf("%w: unsupported JSON value %s", ErrInvalidPitchName, string(data))
	}
	return nil
}

// ParseTone parses a note name, treating "", "r", "rest" and "-" as rests.
func ParseTone(name string) (Tone, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "r", "rest", "-":
		return Rest(), nil
	}
	p, err := ParsePitch(name)
	if err != nil {
		return Rest(), err
	}
	return Sound(p), nil
}

// Melody is an ordered sequence of optional pitches.
type Melody []Tone

// Rhythm holds durations in beats, aligned with a Melody.
type Rhythm []float64

// ParseMelody parses note names; the first invalid name fails the whole call.
func ParseMelody(names []string) (Melody, error) {
	out := make(Melody, len(names))
	for i, name := range names {
		t, err := ParseTone(name)
		if err != nil {
			return nil, stageErr(StageInput, i, err)
		}
		out[i] = t
	}
	return out, nil
}

// MelodyOf builds a melody from pitches with no rests.
func MelodyOf(pitches ...Pitch) Melody {
	out := make(Melody, len(pitches))
	for i, p := range pitches {
		out[i] = Sound(p)
	}
	return out
}

// Names renders each tone; rests become "".
func (m Melody) Names() []string {
	out := make([]string, len(m))
	for i, t := range m {
		if !t.IsRest() {
			out[i] = t.String()
		}
	}
	return out
}

func (m Melody) clone() Melody {
	out := make(Melody, len(m))
	copy(out, m)
	return out
}

func (r Rhythm) clone() Rhythm {
	out := make(Rhythm, len(r))
	copy(out, r)
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
