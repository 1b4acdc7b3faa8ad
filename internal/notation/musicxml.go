package notation

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

type xmlScore struct {
	XMLName  xml.Name  `xml:"score-partwise"`
	Work     string    `xml:"work>work-title"`
	Movement string    `xml:"movement-title"`
	Parts    []xmlPart `xml:"part"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Number     string          `xml:"number,attr"`
	Attributes []xmlAttributes `xml:"attributes"`
	Notes      []xmlNote       `xml:"note"`
	Backups    []struct{}      `xml:"backup"`
}

type xmlAttributes struct {
	Divisions int      `xml:"divisions"`
	Key       *xmlKey  `xml:"key"`
	Time      *xmlTime `xml:"time"`
}

type xmlKey struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode"`
}

type xmlTime struct {
	Beats    string `xml:"beats"`
	BeatType string `xml:"beat-type"`
}

type xmlNote struct {
	Chord    *struct{} `xml:"chord"`
	Grace    *struct{} `xml:"grace"`
	Rest     *struct{} `xml:"rest"`
	Pitch    *xmlPitch `xml:"pitch"`
	Duration int       `xml:"duration"`
	Voice    string    `xml:"voice"`
}

type xmlPitch struct {
	Step   string  `xml:"step"`
	Alter  float64 `xml:"alter"`
	Octave int     `xml:"octave"`
}

// ParseMusicXML reads an uncompressed partwise MusicXML document holding a
// single monophonic part. Key and time signature come from the first
// attributes block that carries them; when no key is given it is estimated.
func ParseMusicXML(r io.Reader) (Score, error) {
	var doc xmlScore
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Score{}, &ParseError{Source: "musicxml", Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if len(doc.Parts) != 1 {
		return Score{}, &ParseError{Source: "musicxml", Err: fmt.Errorf("%w: found %d", ErrMultipleParts, len(doc.Parts))}
	}

	sc := Score{
		Title:  strings.TrimSpace(doc.Work),
		Melody: tintinnabuli.Melody{},
		Rhythm: tintinnabuli.Rhythm{},
	}
	if sc.Title == "" {
		sc.Title = strings.TrimSpace(doc.Movement)
	}

	divisions := 1
	voice := ""
	for mi, m := range doc.Parts[0].Measures {
		measure := mi + 1
		fail := func(err error) (Score, error) {
			return Score{}, &ParseError{Source: "musicxml", Measure: measure, Err: err}
		}
		if len(m.Backups) > 0 {
			return fail(ErrPolyphony)
		}
		for _, a := range m.Attributes {
			if a.Divisions > 0 {
				divisions = a.Divisions
			}
			if a.Key != nil && sc.Key == "" {
				sc.Key, sc.Mode = keyFromFifths(a.Key.Fifths, a.Key.Mode)
			}
			if a.Time != nil && sc.TimeSignature == "" && a.Time.Beats != "" {
				sc.TimeSignature = a.Time.Beats + "/" + a.Time.BeatType
			}
		}
		for _, n := range m.Notes {
			if n.Grace != nil {
				continue
			}
			if n.Chord != nil {
				return fail(ErrChord)
			}
			if n.Voice != "" {
				if voice == "" {
					voice = n.Voice
				} else if n.Voice != voice {
					return fail(fmt.Errorf("%w: voices %s and %s", ErrPolyphony, voice, n.Voice))
				}
			}
			if n.Duration <= 0 {
				return fail(fmt.Errorf("%w: note without duration", ErrMalformed))
			}

			tone := tintinnabuli.Rest()
			if n.Rest == nil {
				if n.Pitch == nil {
					return fail(fmt.Errorf("%w: note has neither pitch nor rest", ErrMalformed))
				}
				p, err := n.Pitch.toPitch()
				if err != nil {
					return fail(err)
				}
				tone = tintinnabuli.Sound(p)
			}
			sc.Melody = append(sc.Melody, tone)
			sc.Rhythm = append(sc.Rhythm, float64(n.Duration)/float64(divisions))
		}
	}

	if sc.TimeSignature == "" {
		sc.TimeSignature = DefaultTimeSignature
	}
	if sc.Key == "" {
		sc.Key, sc.Mode = EstimateKey(sc.Melody, sc.Rhythm)
		sc.KeyEstimated = true
	}
	return sc, nil
}

// ParseMusicXMLBytes is ParseMusicXML over an in-memory document.
func ParseMusicXMLBytes(data []byte) (Score, error) {
	return ParseMusicXML(bytes.NewReader(data))
}

var stepSemitones = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

func (p xmlPitch) toPitch() (tintinnabuli.Pitch, error) {
	semi, ok := stepSemitones[strings.ToUpper(strings.TrimSpace(p.Step))]
	if !ok {
		return 0, fmt.Errorf("%w: step %q", ErrMalformed, p.Step)
	}
	if p.Alter != math.Trunc(p.Alter) {
		return 0, fmt.Errorf("%w: microtonal alter %v", ErrMalformed, p.Alter)
	}
	return tintinnabuli.Pitch(12*(p.Octave+1) + semi + int(p.Alter)), nil
}

// keyFromFifths maps a key signature to a tonic. Church modes are rotated
// from the relative major.
func keyFromFifths(fifths int, mode string) (string, string) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = string(tintinnabuli.ModeMajor)
	}
	offsets := map[string]int{
		"major": 0, "ionian": 0,
		"dorian": 2, "phrygian": 4, "lydian": 5, "mixolydian": 7,
		"minor": 9, "aeolian": 9, "locrian": 11,
	}
	off, ok := offsets[mode]
	if !ok {
		mode, off = string(tintinnabuli.ModeMajor), 0
	}
	major := ((7*fifths)%12 + 12) % 12
	return tintinnabuli.PitchClass((major + off) % 12).String(), mode
}
