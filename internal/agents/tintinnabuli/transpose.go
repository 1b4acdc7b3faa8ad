package tintinnabuli

// Transpose shifts every pitched tone of melody by degreeShift scale degrees
// within the scale for (key, mode). Tones whose pitch class is not diatonic
// become rests and are reported as diagnostics; rests pass through.
func Transpose(melody Melody, degreeShift int, key, mode string) (Melody, []Diagnostic, error) {
	scale, err := GetScale(key, mode)
	if err != nil {
		return nil, nil, stageErr(StageScale, -1, err)
	}
	out, diags := scale.Transpose(melody, degreeShift)
	return out, diags, nil
}

// Transpose is the scale-bound form of the package-level Transpose.
func (s Scale) Transpose(melody Melody, degreeShift int) (Melody, []Diagnostic) {
	out := make(Melody, len(melody))
	var diags []Diagnostic
	for i, t := range melody {
		p, ok := t.Pitch()
		if !ok {
			continue
		}
		step, ok := s.step(p)
		if !ok {
			diags = append(diags, Diagnostic{Stage: StageTranspose, Index: i, Tone: t, Err: ErrOutOfScaleNote})
			continue
		}
		out[i] = Sound(s.pitchAt(step + degreeShift))
	}
	return out, diags
}
