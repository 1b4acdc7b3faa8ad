package tintinnabuli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StructureKind selects a structural transformation.
type StructureKind string

const (
	StructureNone          StructureKind = "none"
	StructureRetrograde    StructureKind = "retrograde"
	StructureMirror        StructureKind = "mirror"
	StructureCombo         StructureKind = "combo"
	StructureTransposition StructureKind = "transposition"
)

// Transposition directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// StructureCommand describes one structural transformation. Axis is used by
// mirror and combo; Direction, DegreeStep and Count by transposition.
type StructureCommand struct {
	Kind       StructureKind `json:"type"`
	Axis       Tone          `json:"axis,omitempty"`
	Direction  string        `json:"direction,omitempty"`
	DegreeStep int           `json:"step,omitempty"`
	Count      int           `json:"count,omitempty"`

	// set by ParseStructureCommand when the text could not be read
	raw     string
	problem string
}

// MarshalJSON omits the axis for non-mirror commands; Tone has no empty form.
func (c StructureCommand) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind       StructureKind `json:"type"`
		Axis       *Tone         `json:"axis,omitempty"`
		Direction  string        `json:"direction,omitempty"`
		DegreeStep int           `json:"step,omitempty"`
		Count      int           `json:"count,omitempty"`
	}
	w := wire{Kind: c.Kind, Direction: c.Direction, DegreeStep: c.DegreeStep, Count: c.Count}
	if !c.Axis.IsRest() {
		axis := c.Axis
		w.Axis = &axis
	}
	return json.Marshal(w)
}

// String renders the textual form accepted by ParseStructureCommand. A
// command that failed to parse renders as its original text.
func (c StructureCommand) String() string {
	if c.problem != "" {
		return c.raw
	}
	switch c.Kind {
	case StructureMirror, StructureCombo:
		return string(c.Kind) + ":" + c.Axis.String()
	case StructureTransposition:
		return fmt.Sprintf("%s:%s:%d:%d", c.Kind, c.Direction, c.DegreeStep, c.Count)
	case "":
		return string(StructureNone)
	}
	return string(c.Kind)
}

// ParseStructureCommand reads "none", "retrograde", "mirror:C4", "combo:Eb4"
// or "transposition:up:2:3". It never fails: unreadable text yields a command
// whose Validate reports ErrMalformedStructureCommand, and ApplyStructure
// treats it as the identity.
func ParseStructureCommand(s string) StructureCommand {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	cmd := StructureCommand{Kind: StructureKind(strings.ToLower(parts[0]))}
	if cmd.Kind == "" {
		cmd.Kind = StructureNone
	}
	bad := func(format string, args ...any) StructureCommand {
		return StructureCommand{Kind: cmd.Kind, raw: s, problem: fmt.Sprintf(format, args...)}
	}

	switch cmd.Kind {
	case StructureMirror, StructureCombo:
		if len(parts) > 2 {
			return bad("%s wants a single axis", cmd.Kind)
		}
		if len(parts) == 2 {
			axis, err := ParseTone(parts[1])
			if err != nil {
				return bad("axis: %v", err)
			}
			cmd.Axis = axis
		}
	case StructureTransposition:
		if len(parts) != 4 {
			return bad("transposition wants direction:step:count")
		}
		cmd.Direction = strings.ToLower(parts[1])
		step, err := strconv.Atoi(parts[2])
		if err != nil {
			return bad("step %q is not a number", parts[2])
		}
		count, err := strconv.Atoi(parts[3])
		if err != nil {
			return bad("count %q is not a number", parts[3])
		}
		cmd.DegreeStep, cmd.Count = step, count
	}
	return cmd
}

// Validate reports why ApplyStructure would fall back to the identity, as an
// error wrapping ErrMalformedStructureCommand. Nil means the command runs.
func (c StructureCommand) Validate() error {
	reason := c.problem
	if reason == "" {
		switch c.Kind {
		case StructureNone, "", StructureRetrograde:
		case StructureMirror, StructureCombo:
			if c.Axis.IsRest() {
				reason = "missing axis"
			}
		case StructureTransposition:
			switch {
			case c.Direction != DirectionUp && c.Direction != DirectionDown:
				reason = "direction must be up or down"
			case c.Count < 0 || c.DegreeStep < 0:
				reason = "step and count must not be negative"
			}
		default:
			reason = "unknown command"
		}
	}
	if reason == "" {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrMalformedStructureCommand, c, reason)
}

// Retrograde reverses melody and rhythm independently.
func Retrograde(melody Melody, rhythm Rhythm) (Melody, Rhythm) {
	return reverseMelody(melody), reverseRhythm(rhythm)
}

// MirrorPitch reflects p about axis: 2*axis - p.
func MirrorPitch(p, axis Pitch) Pitch {
	return 2*axis - p
}

// MirrorMelody reflects every pitched tone about axis; rests stay rests.
func MirrorMelody(melody Melody, axis Pitch) Melody {
	out := make(Melody, len(melody))
	for i, t := range melody {
		if p, ok := t.Pitch(); ok {
			out[i] = Sound(MirrorPitch(p, axis))
		}
	}
	return out
}

// Mirror returns original followed by its reflection; rhythm is repeated.
func Mirror(melody Melody, rhythm Rhythm, axis Pitch) (Melody, Rhythm) {
	return concatMelody(melody, MirrorMelody(melody, axis)), repeatRhythm(rhythm, 2)
}

// Combo returns original, mirror, retrograde mirror, retrograde original.
func Combo(melody Melody, rhythm Rhythm, axis Pitch) (Melody, Rhythm) {
	mirrored := MirrorMelody(melody, axis)
	out := concatMelody(melody, mirrored, reverseMelody(mirrored), reverseMelody(melody))
	return out, repeatRhythm(rhythm, 4)
}

// TranspositionSequence appends count copies of melody, copy i shifted by
// sign(direction)*degreeStep*i scale degrees from the original.
func TranspositionSequence(melody Melody, rhythm Rhythm, scale Scale, direction string, degreeStep, count int) (Melody, Rhythm, []Diagnostic) {
	sign := 1
	if direction == DirectionDown {
		sign = -1
	}
	parts := []Melody{melody}
	var diags []Diagnostic
	for i := 1; i <= count; i++ {
		copyMelody, copyDiags := scale.Transpose(melody, sign*degreeStep*i)
		for _, d := range copyDiags {
			d.Index += i * len(melody)
			diags = append(diags, d)
		}
		parts = append(parts, copyMelody)
	}
	return concatMelody(parts...), repeatRhythm(rhythm, count+1), diags
}

// ApplyStructure runs cmd over (melody, rhythm). Malformed or unknown
// commands degrade to the identity and are reported as a diagnostic. The
// inputs are never modified.
func ApplyStructure(melody Melody, rhythm Rhythm, cmd StructureCommand, scale Scale) (Melody, Rhythm, []Diagnostic) {
	if err := cmd.Validate(); err != nil {
		d := Diagnostic{Stage: StageStructure, Index: -1, Err: err}
		return melody.clone(), rhythm.clone(), []Diagnostic{d}
	}

	switch cmd.Kind {
	case StructureRetrograde:
		m, r := Retrograde(melody, rhythm)
		return m, r, nil
	case StructureMirror:
		axis, _ := cmd.Axis.Pitch()
		m, r := Mirror(melody, rhythm, axis)
		return m, r, nil
	case StructureCombo:
		axis, _ := cmd.Axis.Pitch()
		m, r := Combo(melody, rhythm, axis)
		return m, r, nil
	case StructureTransposition:
		return TranspositionSequence(melody, rhythm, scale, cmd.Direction, cmd.DegreeStep, cmd.Count)
	}
	return melody.clone(), rhythm.clone(), nil
}

func reverseMelody(m Melody) Melody {
	out := make(Melody, len(m))
	for i, t := range m {
		out[len(m)-1-i] = t
	}
	return out
}

func reverseRhythm(r Rhythm) Rhythm {
	out := make(Rhythm, len(r))
	for i, d := range r {
		out[len(r)-1-i] = d
	}
	return out
}

func concatMelody(parts ...Melody) Melody {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Melody, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func repeatRhythm(r Rhythm, times int) Rhythm {
	out := make(Rhythm, 0, len(r)*times)
	for i := 0; i < times; i++ {
		out = append(out, r...)
	}
	return out
}
