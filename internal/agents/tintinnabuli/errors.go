package tintinnabuli

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Wrapped in a *StageError when returned from the pipeline.
var (
	ErrInvalidPitchName    = errors.New("invalid pitch name")
	ErrUnsupportedKeyMode  = errors.New("unsupported key/mode")
	ErrInputLengthMismatch = errors.New("melody and rhythm lengths differ")
	ErrInvalidDuration     = errors.New("duration must be positive")
	ErrInvalidVoiceSpec    = errors.New("invalid voice spec")
)

// Recoverable kinds. These only ever appear inside a Diagnostic.
var (
	ErrOutOfScaleNote            = errors.New("note not in scale")
	ErrMalformedStructureCommand = errors.New("malformed structure command")
)

// Pipeline stage names used in diagnostics and stage errors.
const (
	StageInput     = "input"
	StageScale     = "scale"
	StageStructure = "structure"
	StageTranspose = "transpose"
	StageParallel  = "parallel"
	StageTVoice    = "t-voice"
)

// StageError is a whole-call failure naming the stage and, when it applies,
// the offending element index (-1 otherwise).
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, index int, err error) *StageError {
	return &StageError{Stage: stage, Index: index, Err: err}
}

// Diagnostic records a per-element problem that was recovered from (the
// element became a rest) or a command that was downgraded to identity.
type Diagnostic struct {
	Stage string
	Index int
	Tone  Tone
	Err   error
}

func (d Diagnostic) String() string {
	if d.Index < 0 {
		return fmt.Sprintf("%s: %v", d.Stage, d.Err)
	}
	return fmt.Sprintf("%s[%d] %s: %v", d.Stage, d.Index, d.Tone, d.Err)
}
