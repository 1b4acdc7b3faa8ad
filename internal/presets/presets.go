package presets

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/logger"
	"github.com/Conceptual-Machines/tintharm-api/pkg/embedded"
)

// ErrUnknownPreset is returned for names missing from the catalog.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named set of harmonization options. Key and Mode are optional
// suggestions; Structure uses the textual command form ("mirror:E4").
type Preset struct {
	Name            string                    `yaml:"name" json:"name"`
	Description     string                    `yaml:"description,omitempty" json:"description,omitempty"`
	Key             string                    `yaml:"key,omitempty" json:"key,omitempty"`
	Mode            string                    `yaml:"mode,omitempty" json:"mode,omitempty"`
	Structure       string                    `yaml:"structure,omitempty" json:"structure,omitempty"`
	ParallelOffsets []int                     `yaml:"parallel_offsets,omitempty" json:"parallel_offsets,omitempty"`
	TVoices         []tintinnabuli.TVoiceSpec `yaml:"t_voices,omitempty" json:"t_voices,omitempty"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Catalog is an immutable, name-indexed preset set.
type Catalog struct {
	byName map[string]Preset
}

// Parse decodes and validates a presets document.
func Parse(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for i, p := range f.Presets {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("preset %d (%q): %w", i, p.Name, err)
		}
	}
	return f.Presets, nil
}

func (p Preset) validate() error {
	if p.Name == "" {
		return errors.New("missing name")
	}
	if _, err := p.Command(); err != nil {
		return err
	}
	if p.Key != "" || p.Mode != "" {
		if _, err := tintinnabuli.GetScale(p.Key, p.Mode); err != nil {
			return err
		}
	}
	for _, v := range p.TVoices {
		if _, err := v.Normalize(); err != nil {
			return err
		}
	}
	return nil
}

// Command parses the preset's structure. Presets must name a structure
// that actually runs, so a malformed one is an error here.
func (p Preset) Command() (tintinnabuli.StructureCommand, error) {
	cmd := tintinnabuli.ParseStructureCommand(p.Structure)
	return cmd, cmd.Validate()
}

// Load builds the catalog from the embedded presets, then lets entries from
// overridePath (if non-empty) replace or extend them.
func Load(overridePath string) (*Catalog, error) {
	builtin, err := Parse(embedded.PresetsYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded presets: %w", err)
	}
	c := New(builtin...)

	if overridePath == "" {
		return c, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", overridePath, err)
	}
	for _, p := range extra {
		c.byName[p.Name] = p
	}
	logger.Info("Loaded preset overrides", logger.Fields{
		"file":    overridePath,
		"presets": len(extra),
		"total":   len(c.byName),
	})
	return c, nil
}

// New builds a catalog from presets; later entries win on name clashes.
func New(presets ...Preset) *Catalog {
	c := &Catalog{byName: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		c.byName[p.Name] = p
	}
	return c
}

// Get returns a preset by name.
func (c *Catalog) Get(name string) (Preset, error) {
	if c == nil {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	p, ok := c.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// List returns every preset sorted by name.
func (c *Catalog) List() []Preset {
	if c == nil {
		return nil
	}
	out := make([]Preset, 0, len(c.byName))
	for _, p := range c.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Apply fills the options a request left unset. Explicit request values
// always win over the preset.
func (p Preset) Apply(req *tintinnabuli.Request) error {
	if req.Key == "" && req.Mode == "" {
		req.Key, req.Mode = p.Key, p.Mode
	}
	if req.Structure.Kind == "" {
		cmd, err := p.Command()
		if err != nil {
			return err
		}
		req.Structure = cmd
	}
	if req.ParallelOffsets == nil {
		req.ParallelOffsets = append([]int(nil), p.ParallelOffsets...)
	}
	if req.TVoices == nil {
		req.TVoices = append([]tintinnabuli.TVoiceSpec(nil), p.TVoices...)
	}
	return nil
}
