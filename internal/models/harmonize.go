package models

import "github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"

// NoteEvent represents a single musical note with timing and pitch information
type NoteEvent struct {
	MidiNoteNumber int     `json:"midiNoteNumber"`
	Velocity       int     `json:"velocity"`
	StartBeats     float64 `json:"startBeats"`
	DurationBeats  float64 `json:"durationBeats"`
}

// HarmonizeOptions are the settings shared by every harmonize endpoint.
// Structure uses the textual form ("mirror:E4", "transposition:up:2:3").
type HarmonizeOptions struct {
	Key             string                    `json:"key"`
	Mode            string                    `json:"mode"`
	Structure       string                    `json:"structure,omitempty"`
	ParallelOffsets []int                     `json:"parallel_offsets,omitempty"`
	TVoices         []tintinnabuli.TVoiceSpec `json:"t_voices,omitempty"`
	Preset          string                    `json:"preset,omitempty"`
	Save            bool                      `json:"save,omitempty"`
	Title           string                    `json:"title,omitempty"`
}

// HarmonizeRequest is the JSON body of POST /api/v1/harmonize. Melody entries
// are note names, MIDI numbers or null for rests.
type HarmonizeRequest struct {
	HarmonizeOptions
	Melody tintinnabuli.Melody `json:"melody"`
	Rhythm []float64           `json:"rhythm,omitempty"`
}

// HarmonizeTextRequest is the JSON body of POST /api/v1/harmonize/text.
type HarmonizeTextRequest struct {
	HarmonizeOptions
	Notes string `json:"notes" binding:"required"`
}

// VoiceOutput is one voice of a response. Rests are "".
type VoiceOutput struct {
	Label  string      `json:"label"`
	Notes  []string    `json:"notes"`
	Events []NoteEvent `json:"events"`
}

// Warning is a recovered per-note problem.
type Warning struct {
	Stage   string `json:"stage"`
	Index   int    `json:"index"`
	Note    string `json:"note,omitempty"`
	Message string `json:"message"`
}

// HarmonizeResponse is returned by every harmonize endpoint.
type HarmonizeResponse struct {
	Key           string        `json:"key"`
	Mode          string        `json:"mode"`
	KeyEstimated  bool          `json:"key_estimated,omitempty"`
	Scale         []string      `json:"scale"`
	Triad         []string      `json:"triad"`
	Structure     string        `json:"structure"`
	Length        int           `json:"length"`
	Rhythm        []float64     `json:"rhythm"`
	Voices        []VoiceOutput `json:"voices"`
	Warnings      []Warning     `json:"warnings"`
	CompositionID string        `json:"composition_id,omitempty"`
}

// TransposeRequest is the JSON body of POST /api/v1/transpose.
type TransposeRequest struct {
	Melody      tintinnabuli.Melody `json:"melody"`
	DegreeShift int                 `json:"degree_shift"`
	Key         string              `json:"key" binding:"required"`
	Mode        string              `json:"mode" binding:"required"`
}

// TransposeResponse carries the shifted melody.
type TransposeResponse struct {
	Melody   []string  `json:"melody"`
	Warnings []Warning `json:"warnings"`
}

// ScaleResponse describes one scale.
type ScaleResponse struct {
	Name    string   `json:"name"`
	Tonic   string   `json:"tonic"`
	Mode    string   `json:"mode"`
	Degrees []string `json:"degrees"`
	Triad   []string `json:"triad"`
}
