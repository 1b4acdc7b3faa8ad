package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
)

// Composition is a stored harmonization: the options that produced it and
// the resulting voices.
type Composition struct {
	ID              string                    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	DeletedAt       gorm.DeletedAt            `gorm:"index" json:"-"`
	Owner           string                    `gorm:"index" json:"owner,omitempty"` // empty when auth is disabled
	Title           string                    `json:"title"`
	Key             string                    `gorm:"not null" json:"key"`
	Mode            string                    `gorm:"not null" json:"mode"`
	Structure       string                    `json:"structure"`
	Preset          string                    `json:"preset,omitempty"`
	ParallelOffsets []int                     `gorm:"serializer:json" json:"parallel_offsets"`
	TVoices         []tintinnabuli.TVoiceSpec `gorm:"serializer:json" json:"t_voices"`
	Rhythm          []float64                 `gorm:"serializer:json" json:"rhythm"`
	Voices          []VoiceRecord             `gorm:"serializer:json" json:"voices"`
	Length          int                       `gorm:"not null" json:"length"`
	Warnings        int                       `gorm:"default:0" json:"warnings"`
}

// VoiceRecord is a voice as stored: note names, "" for rests.
type VoiceRecord struct {
	Label string   `json:"label"`
	Notes []string `json:"notes"`
}

// BeforeCreate assigns a random ID when none is set.
func (c *Composition) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Melodies decodes the stored voices back into core values.
func (c *Composition) Melodies() ([]tintinnabuli.Voice, error) {
	out := make([]tintinnabuli.Voice, 0, len(c.Voices))
	for _, v := range c.Voices {
		m, err := tintinnabuli.ParseMelody(v.Notes)
		if err != nil {
			return nil, err
		}
		out = append(out, tintinnabuli.Voice{Label: v.Label, Tones: m})
	}
	return out, nil
}

// CompositionSummary is the list view of a composition.
type CompositionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Key       string    `json:"key"`
	Mode      string    `json:"mode"`
	Structure string    `json:"structure"`
	Length    int       `json:"length"`
	Voices    int       `json:"voices"`
}

// Summary returns the list view.
func (c *Composition) Summary() CompositionSummary {
	return CompositionSummary{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Title:     c.Title,
		Key:       c.Key,
		Mode:      c.Mode,
		Structure: c.Structure,
		Length:    c.Length,
		Voices:    len(c.Voices),
	}
}
