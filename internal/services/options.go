package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

// ParseOffsets reads a comma separated semitone list ("-9,3"). Empty input
// yields nil so presets can still fill the field.
func ParseOffsets(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: parallel offset %q", ErrInvalidRequest, p)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseTVoices reads a comma separated T-voice list ("below:1,above:2" or
// "-1,2"). A non-empty bind pattern ("10") is applied to every voice.
func ParseTVoices(s, bind string) ([]tintinnabuli.TVoiceSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if strings.TrimSpace(bind) != "" {
			return nil, fmt.Errorf("%w: bind pattern without t-voices", ErrInvalidRequest)
		}
		return nil, nil
	}

	var pattern []bool
	if strings.TrimSpace(bind) != "" {
		var err error
		if pattern, err = tintinnabuli.ParseBind(bind); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	parts := strings.Split(s, ",")
	out := make([]tintinnabuli.TVoiceSpec, 0, len(parts))
	for _, p := range parts {
		spec, err := tintinnabuli.ParseTVoiceSpec(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		spec.Bind = pattern
		out = append(out, spec)
	}
	return out, nil
}
