package tintinnabuli

import (
	"fmt"
	"strconv"
)

// MelodyLabel is the label of the principal voice.
const MelodyLabel = "M"

// Request is one harmonization job. Rhythm may be empty, in which case every
// note lasts one beat.
type Request struct {
	Melody          Melody
	Rhythm          Rhythm
	Key             string
	Mode            string
	Structure       StructureCommand
	ParallelOffsets []int
	TVoices         []TVoiceSpec
}

// Result holds the transformed melody voice and every derived voice. All
// voices and Rhythm share one length.
type Result struct {
	Scale       Scale
	Melody      Voice
	Voices      []Voice
	Rhythm      Rhythm
	Diagnostics []Diagnostic
}

// Len is the common length of every voice.
func (r Result) Len() int { return len(r.Melody.Tones) }

// All returns the melody voice followed by the derived voices.
func (r Result) All() []Voice {
	out := make([]Voice, 0, len(r.Voices)+1)
	out = append(out, r.Melody)
	return append(out, r.Voices...)
}

// Voice looks up a voice by label.
func (r Result) Voice(label string) (Voice, bool) {
	for _, v := range r.All() {
		if v.Label == label {
			return v, true
		}
	}
	return Voice{}, false
}

// Harmonize applies the structural command once, then derives each parallel
// voice and each T-voice independently from the transformed melody. It keeps
// no state between calls.
func Harmonize(req Request) (Result, error) {
	scale, err := GetScale(req.Key, req.Mode)
	if err != nil {
		return Result{}, stageErr(StageScale, -1, err)
	}
	rhythm, err := checkRhythm(req.Melody, req.Rhythm)
	if err != nil {
		return Result{}, err
	}

	melody, rhythm, diags := ApplyStructure(req.Melody, rhythm, req.Structure, scale)

	res := Result{
		Scale:       scale,
		Melody:      Voice{Label: MelodyLabel, Tones: melody},
		Rhythm:      rhythm,
		Diagnostics: diags,
	}
	for _, off := range req.ParallelOffsets {
		res.Voices = append(res.Voices, ParallelVoice(melody, off))
	}
	for i, spec := range req.TVoices {
		v, vd, err := scale.TVoice(melody, spec)
		if err != nil {
			return Result{}, stageErr(StageTVoice, i, err)
		}
		res.Voices = append(res.Voices, v)
		res.Diagnostics = append(res.Diagnostics, vd...)
	}
	uniqueLabels(res.Voices)
	return res, nil
}

func checkRhythm(melody Melody, rhythm Rhythm) (Rhythm, error) {
	if len(rhythm) == 0 {
		out := make(Rhythm, len(melody))
		for i := range out {
			out[i] = 1
		}
		return out, nil
	}
	if len(rhythm) != len(melody) {
		return nil, stageErr(StageInput, -1,
			fmt.Errorf("%w: %d notes, %d durations", ErrInputLengthMismatch, len(melody), len(rhythm)))
	}
	for i, d := range rhythm {
		if !(d > 0) {
			return nil, stageErr(StageInput, i, fmt.Errorf("%w: %v", ErrInvalidDuration, d))
		}
	}
	return rhythm, nil
}

// uniqueLabels suffixes repeated labels with ".2", ".3" and so on.
func uniqueLabels(voices []Voice) {
	seen := map[string]int{MelodyLabel: 1}
	for i := range voices {
		base := voices[i].Label
		seen[base]++
		if n := seen[base]; n > 1 {
			voices[i].Label = base + "." + strconv.Itoa(n)
		}
	}
}

// HarmonizeNote harmonizes a single note and returns label -> note name.
// Rests map to "".
func HarmonizeNote(name, key, mode string, offsets []int, tvoices []TVoiceSpec) (map[string]string, error) {
	melody, err := ParseMelody([]string{name})
	if err != nil {
		return nil, err
	}
	res, err := Harmonize(Request{
		Melody:          melody,
		Key:             key,
		Mode:            mode,
		ParallelOffsets: offsets,
		TVoices:         tvoices,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(res.Voices)+1)
	for _, v := range res.All() {
		out[v.Label] = v.Tones.Names()[0]
	}
	return out, nil
}
