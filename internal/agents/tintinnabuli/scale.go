package tintinnabuli

import (
	"fmt"
	"sort"
	"strings"
)

// Mode names a diatonic mode.
type Mode string

const (
	ModeMajor      Mode = "major"
	ModeMinor      Mode = "minor"
	ModeIonian     Mode = "ionian"
	ModeDorian     Mode = "dorian"
	ModePhrygian   Mode = "phrygian"
	ModeLydian     Mode = "lydian"
	ModeMixolydian Mode = "mixolydian"
	ModeAeolian    Mode = "aeolian"
	ModeLocrian    Mode = "locrian"
)

// DegreesPerScale is the length of every diatonic scale.
const DegreesPerScale = 7

// Semitone offsets from the tonic for each mode.
var modeIntervals = map[Mode][DegreesPerScale]int{
	ModeMajor:      {0, 2, 4, 5, 7, 9, 11},
	ModeMinor:      {0, 2, 3, 5, 7, 8, 10},
	ModeIonian:     {0, 2, 4, 5, 7, 9, 11},
	ModeDorian:     {0, 2, 3, 5, 7, 9, 10},
	ModePhrygian:   {0, 1, 3, 5, 7, 8, 10},
	ModeLydian:     {0, 2, 4, 6, 7, 9, 11},
	ModeMixolydian: {0, 2, 4, 5, 7, 9, 10},
	ModeAeolian:    {0, 2, 3, 5, 7, 8, 10},
	ModeLocrian:    {0, 1, 3, 5, 6, 8, 10},
}

// Scale is an ordered 7-tone diatonic scale. It is a value; copies never
// share state.
type Scale struct {
	Tonic   PitchClass
	Mode    Mode
	Degrees [DegreesPerScale]PitchClass
}

// Triad holds scale degrees 1, 3 and 5.
type Triad [3]PitchClass

type scaleKey struct {
	tonic PitchClass
	mode  Mode
}

// catalog is built once at init and only read afterwards.
var catalog = buildCatalog()

func buildCatalog() map[scaleKey]Scale {
	out := make(map[scaleKey]Scale, semitonesPerOctave*len(modeIntervals))
	for mode, intervals := range modeIntervals {
		for pc := PitchClass(0); pc < semitonesPerOctave; pc++ {
			s := Scale{Tonic: pc, Mode: mode}
			for i, iv := range intervals {
				s.Degrees[i] = PitchClass(mod(int(pc)+iv, semitonesPerOctave))
			}
			out[scaleKey{pc, mode}] = s
		}
	}
	return out
}

// GetScale looks up the scale for a tonic spelling ("C", "f#", "Bb") and a
// mode name (case-insensitive).
func GetScale(tonic, mode string) (Scale, error) {
	pc, err := ParsePitchClass(normalizeTonic(tonic))
	if err != nil {
		return Scale{}, fmt.Errorf("%w: %s %s", ErrUnsupportedKeyMode, tonic, mode)
	}
	s, ok := catalog[scaleKey{pc, Mode(strings.ToLower(strings.TrimSpace(mode)))}]
	if !ok {
		return Scale{}, fmt.Errorf("%w: %s %s", ErrUnsupportedKeyMode, tonic, mode)
	}
	return s, nil
}

// normalizeTonic capitalizes the letter and lowercases a flat sign, so "bb"
// and "BB" both read as "Bb".
func normalizeTonic(tonic string) string {
	t := strings.TrimSpace(tonic)
	if t == "" {
		return t
	}
	head := strings.ToUpper(t[:1])
	tail := t[1:]
	if tail == "B" {
		tail = "b"
	}
	return head + tail
}

// Modes lists supported mode names in sorted order.
func Modes() []Mode {
	out := make([]Mode, 0, len(modeIntervals))
	for m := range modeIntervals {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Triad returns degrees {0, 2, 4}.
func (s Scale) Triad() Triad {
	return Triad{s.Degrees[0], s.Degrees[2], s.Degrees[4]}
}

// GetTriad is Scale.Triad as a function.
func GetTriad(s Scale) Triad { return s.Triad() }

// Index returns the degree index of pc, or false when pc is not diatonic.
func (s Scale) Index(pc PitchClass) (int, bool) {
	for i, d := range s.Degrees {
		if d == pc {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether pc is in the scale.
func (s Scale) Contains(pc PitchClass) bool {
	_, ok := s.Index(pc)
	return ok
}

// Name is e.g. "F# minor".
func (s Scale) Name() string {
	return s.Tonic.String() + " " + string(s.Mode)
}

// Names renders the degrees with canonical spellings.
func (s Scale) Names() []string {
	out := make([]string, DegreesPerScale)
	for i, d := range s.Degrees {
		out[i] = d.String()
	}
	return out
}

// step locates p in scale-step space: 7*octave + degree, where octave is the
// note's own scientific octave (C to B). Crossing a multiple of 7 moves the
// octave whatever the tonic is.
func (s Scale) step(p Pitch) (int, bool) {
	degree, ok := s.Index(p.Class())
	if !ok {
		return 0, false
	}
	return p.Octave()*DegreesPerScale + degree, true
}

// pitchAt is the inverse of step.
func (s Scale) pitchAt(step int) Pitch {
	octave := floorDiv(step, DegreesPerScale)
	pc := s.Degrees[mod(step, DegreesPerScale)]
	return Pitch(semitonesPerOctave*(octave+1) + int(pc))
}

// Contains reports whether pc is a triad tone.
func (t Triad) Contains(pc PitchClass) bool {
	for _, x := range t {
		if x == pc {
			return true
		}
	}
	return false
}

// Names renders the triad with canonical spellings.
func (t Triad) Names() []string {
	return []string{t[0].String(), t[1].String(), t[2].String()}
}
