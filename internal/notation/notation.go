// Package notation turns external melody sources into the values the
// harmonizer consumes: a monophonic melody, its rhythm and the key metadata
// found alongside it.
package notation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

// Rejection reasons carried by a ParseError.
var (
	ErrMultipleParts = errors.New("score must contain exactly one part")
	ErrChord         = errors.New("chords are not supported")
	ErrPolyphony     = errors.New("multiple simultaneous voices are not supported")
	ErrMalformed     = errors.New("malformed input")
)

// DefaultTimeSignature is reported when the source does not carry one.
const DefaultTimeSignature = "4/4"

// ParseError reports why a source could not be read as a single melody.
// Measure is 0 when the problem is not tied to a measure.
type ParseError struct {
	Source  string
	Measure int
	Err     error
}

func (e *ParseError) Error() string {
	if e.Measure > 0 {
		return fmt.Sprintf("parse %s: measure %d: %v", e.Source, e.Measure, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Score is one imported monophonic line.
type Score struct {
	Title         string
	Melody        tintinnabuli.Melody
	Rhythm        tintinnabuli.Rhythm
	Key           string
	Mode          string
	TimeSignature string
	// KeyEstimated is set when Key/Mode came from EstimateKey rather than
	// from the source.
	KeyEstimated bool
}

// ParseText reads whitespace or comma separated tokens of the form NAME or
// NAME:BEATS ("C4:1 D4:0.5 r:2"). Bar lines ("|") are ignored. The key is
// estimated from the notes.
func ParseText(s string) (Score, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})

	var sc Score
	for i, tok := range fields {
		if tok == "|" {
			continue
		}
		name, dur, hasDur := strings.Cut(tok, ":")
		tone, err := tintinnabuli.ParseTone(name)
		if err != nil {
			return Score{}, &ParseError{Source: "text", Err: fmt.Errorf("token %d %q: %w", i, tok, err)}
		}
		beats := 1.0
		if hasDur {
			beats, err = strconv.ParseFloat(dur, 64)
			if err != nil || !(beats > 0) {
				return Score{}, &ParseError{Source: "text", Err: fmt.Errorf("%w: token %d %q: bad duration", ErrMalformed, i, tok)}
			}
		}
		sc.Melody = append(sc.Melody, tone)
		sc.Rhythm = append(sc.Rhythm, beats)
	}
	if sc.Melody == nil {
		sc.Melody, sc.Rhythm = tintinnabuli.Melody{}, tintinnabuli.Rhythm{}
	}
	sc.TimeSignature = DefaultTimeSignature
	sc.Key, sc.Mode = EstimateKey(sc.Melody, sc.Rhythm)
	sc.KeyEstimated = true
	return sc, nil
}

// FormatText renders a melody in the form ParseText reads.
func FormatText(melody tintinnabuli.Melody, rhythm tintinnabuli.Rhythm) string {
	var b strings.Builder
	for i, t := range melody {
		if i > 0 {
			b.WriteByte(' ')
		}
		if t.IsRest() {
			b.WriteString("r")
		} else {
			b.WriteString(t.String())
		}
		if i < len(rhythm) && rhythm[i] != 1 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatFloat(rhythm[i], 'f', -1, 64))
		}
	}
	return b.String()
}
