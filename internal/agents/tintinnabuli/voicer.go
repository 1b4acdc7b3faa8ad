package tintinnabuli

import (
	"fmt"
	"strconv"
	"strings"
)

// T-voice directions.
const (
	Below = "below"
	Above = "above"
)

// MaxTVoiceLevel bounds the triad-step distance of a T-voice.
const MaxTVoiceLevel = 1 << 16

// triadDegrees are the scale indices of the triad tones.
var triadDegrees = [3]int{0, 2, 4}

// Voice is a labelled line aligned 1:1 with the melody it was derived from.
type Voice struct {
	Label string `json:"label"`
	Tones Melody `json:"tones"`
}

// TVoiceSpec configures one triad-restricted voice. Bind gates positions
// cyclically; an empty pattern binds every position.
type TVoiceSpec struct {
	Level     int    `json:"level" yaml:"level"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Bind      []bool `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// Normalize resolves a signed Level with no direction (negative = below) and
// rejects unknown directions and levels beyond MaxTVoiceLevel.
func (v TVoiceSpec) Normalize() (TVoiceSpec, error) {
	if v.Level > MaxTVoiceLevel || v.Level < -MaxTVoiceLevel {
		return TVoiceSpec{}, fmt.Errorf("%w: level %d out of range", ErrInvalidVoiceSpec, v.Level)
	}
	out := v
	out.Direction = strings.ToLower(strings.TrimSpace(v.Direction))
	switch out.Direction {
	case "":
		out.Direction = Below
		if out.Level > 0 {
			out.Direction = Above
		}
		if out.Level < 0 {
			out.Level = -out.Level
		}
	case Below, Above:
		if out.Level < 0 {
			return TVoiceSpec{}, fmt.Errorf("%w: level %d with explicit direction %q", ErrInvalidVoiceSpec, v.Level, v.Direction)
		}
	default:
		return TVoiceSpec{}, fmt.Errorf("%w: direction %q", ErrInvalidVoiceSpec, v.Direction)
	}
	return out, nil
}

// Label is "T-<level>" below the melody and "T+<level>" above it.
func (v TVoiceSpec) Label() string {
	if v.Direction == Above {
		return "T+" + strconv.Itoa(v.Level)
	}
	return "T-" + strconv.Itoa(v.Level)
}

// ParseTVoiceSpec reads "below:1", "above:2" or a signed level such as "-1".
func ParseTVoiceSpec(s string) (TVoiceSpec, error) {
	s = strings.TrimSpace(s)
	dir, lvl, found := strings.Cut(s, ":")
	if !found {
		dir, lvl = "", s
	}
	level, err := strconv.Atoi(strings.TrimSpace(lvl))
	if err != nil {
		return TVoiceSpec{}, fmt.Errorf("%w: %q", ErrInvalidVoiceSpec, s)
	}
	return TVoiceSpec{Level: level, Direction: dir}.Normalize()
}

// ParseBind turns "10" or "1,0" into a bind pattern.
func ParseBind(s string) ([]bool, error) {
	var out []bool
	for _, r := range s {
		switch r {
		case '1', 't', 'T', 'x':
			out = append(out, true)
		case '0', 'f', 'F', '.', '-':
			out = append(out, false)
		case ',', ' ':
		default:
			return nil, fmt.Errorf("%w: bind pattern %q", ErrInvalidVoiceSpec, s)
		}
	}
	return out, nil
}

// ParallelLabel is "M%+d", e.g. "M-9".
func ParallelLabel(offset int) string {
	return fmt.Sprintf("M%+d", offset)
}

// ParallelVoice shifts every pitched tone by offset semitones.
func ParallelVoice(melody Melody, offset int) Voice {
	out := make(Melody, len(melody))
	for i, t := range melody {
		if p, ok := t.Pitch(); ok {
			out[i] = Sound(p + Pitch(offset))
		}
	}
	return Voice{Label: ParallelLabel(offset), Tones: out}
}

// TVoice derives a triad-restricted voice from melody. Positions that are
// rests, gated off by the bind pattern, or not diatonic become rests; the
// last case is reported as a diagnostic.
func (s Scale) TVoice(melody Melody, spec TVoiceSpec) (Voice, []Diagnostic, error) {
	spec, err := spec.Normalize()
	if err != nil {
		return Voice{}, nil, err
	}
	out := make(Melody, len(melody))
	var diags []Diagnostic
	for i, t := range melody {
		p, ok := t.Pitch()
		if !ok || !bound(spec.Bind, i) {
			continue
		}
		tone, ok := s.triadCompanion(p, spec.Level, spec.Direction)
		if !ok {
			diags = append(diags, Diagnostic{Stage: StageTVoice, Index: i, Tone: t, Err: ErrOutOfScaleNote})
			continue
		}
		out[i] = Sound(tone)
	}
	return Voice{Label: spec.Label(), Tones: out}, diags, nil
}

// TriadCompanion returns the T-voice pitch for a single note.
func (s Scale) TriadCompanion(p Pitch, level int, direction string) (Pitch, error) {
	spec, err := TVoiceSpec{Level: level, Direction: direction}.Normalize()
	if err != nil {
		return 0, err
	}
	out, ok := s.triadCompanion(p, spec.Level, spec.Direction)
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrOutOfScaleNote, p, s.Name())
	}
	return out, nil
}

// triadCompanion walks level triad steps from the triad tone nearest p, in
// p's octave. Each wrap of the walk past either end of the triad moves the
// result one octave, as floorDiv does for transposition.
func (s Scale) triadCompanion(p Pitch, level int, direction string) (Pitch, bool) {
	step, ok := s.step(p)
	if !ok {
		return 0, false
	}
	octave := floorDiv(step, DegreesPerScale)
	start := nearestTriadIndex(mod(step, DegreesPerScale))
	if direction == Below {
		level = -level
	}
	walk := start + level
	idx := mod(walk, len(triadDegrees))
	octaveDelta := floorDiv(walk, len(triadDegrees))
	return s.pitchAt((octave+octaveDelta)*DegreesPerScale + triadDegrees[idx]), true
}

// nearestTriadIndex picks the triad tone with the smallest scale-degree
// distance to degree; ties go to the lower degree.
func nearestTriadIndex(degree int) int {
	best, bestDist := 0, DegreesPerScale
	for i, d := range triadDegrees {
		dist := degree - d
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func bound(pattern []bool, i int) bool {
	if len(pattern) == 0 {
		return true
	}
	return pattern[i%len(pattern)]
}
