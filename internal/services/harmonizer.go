package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/Conceptual-Machines/tintharm-api/internal/export"
	"github.com/Conceptual-Machines/tintharm-api/internal/logger"
	"github.com/Conceptual-Machines/tintharm-api/internal/metrics"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
	"github.com/Conceptual-Machines/tintharm-api/internal/notation"
	"github.com/Conceptual-Machines/tintharm-api/internal/presets"
)

var (
	// ErrInvalidRequest marks caller mistakes the core does not classify
	// itself (bad structure text, unknown preset).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMelodyTooLong is returned when the structural expansion would
	// exceed the configured maximum.
	ErrMelodyTooLong = errors.New("melody too long")
	// ErrPersistenceDisabled is returned for save requests without a database.
	ErrPersistenceDisabled = errors.New("persistence is not configured")
)

// HarmonizationInput is one harmonization job from any front end.
type HarmonizationInput struct {
	Melody       tintinnabuli.Melody
	Rhythm       tintinnabuli.Rhythm
	Options      models.HarmonizeOptions
	KeyEstimated bool
	Owner        string
}

// HarmonizationOutput carries both the core result and its JSON rendering.
type HarmonizationOutput struct {
	Result      tintinnabuli.Result
	Response    models.HarmonizeResponse
	Composition *models.Composition
}

type HarmonizationService struct {
	presets      *presets.Catalog
	compositions *CompositionService
	sentry       *metrics.SentryMetrics
	cloudwatch   *metrics.Client
	maxLength    int
}

// InputFromScore builds an input from an imported score. The score's key
// fills options the caller left blank, except that a preset's own key beats
// an estimated one. The score title is used when none is given.
func InputFromScore(score notation.Score, options models.HarmonizeOptions, owner string) HarmonizationInput {
	in := HarmonizationInput{
		Melody: score.Melody,
		Rhythm: score.Rhythm,
		Owner:  owner,
	}
	if options.Title == "" {
		options.Title = score.Title
	}
	if options.Key == "" && options.Mode == "" && (options.Preset == "" || !score.KeyEstimated) {
		options.Key, options.Mode = score.Key, score.Mode
		in.KeyEstimated = score.KeyEstimated
	}
	in.Options = options
	return in
}

// NewHarmonizationService wires the pipeline to its collaborators.
// compositions and cloudwatch may be nil.
func NewHarmonizationService(
	cfg *config.Config,
	catalog *presets.Catalog,
	compositions *CompositionService,
	sentryMetrics *metrics.SentryMetrics,
	cloudwatch *metrics.Client,
) *HarmonizationService {
	maxLength := cfg.MaxMelodyLength
	if maxLength <= 0 {
		maxLength = config.DefaultMaxMelodyLength
	}
	if sentryMetrics == nil {
		sentryMetrics = metrics.NewSentryMetrics()
	}
	return &HarmonizationService{
		presets:      catalog,
		compositions: compositions,
		sentry:       sentryMetrics,
		cloudwatch:   cloudwatch,
		maxLength:    maxLength,
	}
}

// Presets exposes the catalog.
func (s *HarmonizationService) Presets() *presets.Catalog {
	return s.presets
}

// PersistenceEnabled reports whether results can be saved.
func (s *HarmonizationService) PersistenceEnabled() bool {
	return s.compositions != nil
}

// BuildRequest resolves options (preset, structure text, missing key) into a
// core request. The returned bool is true when the key was estimated.
func (s *HarmonizationService) BuildRequest(in HarmonizationInput) (tintinnabuli.Request, bool, error) {
	req := tintinnabuli.Request{
		Melody:          in.Melody,
		Rhythm:          in.Rhythm,
		Key:             in.Options.Key,
		Mode:            in.Options.Mode,
		ParallelOffsets: in.Options.ParallelOffsets,
		TVoices:         in.Options.TVoices,
	}
	if in.Options.Structure != "" {
		req.Structure = tintinnabuli.ParseStructureCommand(in.Options.Structure)
	}
	if in.Options.Preset != "" {
		p, err := s.presets.Get(in.Options.Preset)
		if err != nil {
			return req, false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if err := p.Apply(&req); err != nil {
			return req, false, fmt.Errorf("%w: preset %s: %v", ErrInvalidRequest, p.Name, err)
		}
	}

	estimated := in.KeyEstimated
	if req.Key == "" && req.Mode == "" {
		req.Key, req.Mode = notation.EstimateKey(req.Melody, req.Rhythm)
		estimated = true
	} else if req.Mode == "" {
		req.Mode = string(tintinnabuli.ModeMajor)
	}
	return req, estimated, nil
}

// Harmonize runs the pipeline, logs recovered problems, records metrics and
// optionally stores the result.
func (s *HarmonizationService) Harmonize(ctx context.Context, in HarmonizationInput) (*HarmonizationOutput, error) {
	req, estimated, err := s.BuildRequest(in)
	if err != nil {
		return nil, err
	}
	n := expandedLength(len(req.Melody), req.Structure)
	if n > s.maxLength || (req.Structure.Count > s.maxLength && req.Structure.Validate() == nil) {
		return nil, fmt.Errorf("%w: %d notes after %s, limit %d", ErrMelodyTooLong, n, req.Structure, s.maxLength)
	}
	if in.Options.Save && s.compositions == nil {
		return nil, ErrPersistenceDisabled
	}

	start := time.Now()
	res, err := tintinnabuli.Harmonize(req)
	duration := time.Since(start)

	stats := metrics.HarmonizationStats{
		Key:          req.Key + " " + req.Mode,
		InputLength:  len(req.Melody),
		OutputLength: res.Len(),
		Voices:       len(res.Voices) + 1,
		Warnings:     len(res.Diagnostics),
		Duration:     duration,
		Success:      err == nil,
	}
	s.sentry.RecordHarmonization(ctx, stats)
	s.cloudwatch.RecordHarmonization(stats)
	if err != nil {
		logger.Warn("Harmonization rejected", logger.Fields{"key": stats.Key, "error": err.Error()})
		return nil, err
	}

	if req.Structure.Kind != "" && req.Structure.Kind != tintinnabuli.StructureNone {
		logger.Debug("Structure applied", logger.Fields{
			"structure":     req.Structure.String(),
			"input_length":  len(req.Melody),
			"output_length": res.Len(),
		})
	}
	for _, d := range res.Diagnostics {
		logger.Warn("Harmonization warning", logger.Fields{
			"stage": d.Stage,
			"index": d.Index,
			"note":  d.Tone.String(),
			"error": d.Err.Error(),
		})
	}
	logger.LogHarmonization(ctx, res.Scale.Name(), duration, stats.Voices, stats.Warnings, logger.Fields{
		"structure": req.Structure.String(),
		"length":    res.Len(),
	})

	out := &HarmonizationOutput{
		Result:   res,
		Response: BuildResponse(res, req.Structure, estimated),
	}

	if in.Options.Save {
		c := CompositionFromResult(res, req, in.Options, in.Owner)
		if err := s.compositions.Create(c); err != nil {
			return nil, fmt.Errorf("save composition: %w", err)
		}
		out.Composition = c
		out.Response.CompositionID = c.ID
		logger.Info("Composition saved", logger.Fields{"composition_id": c.ID, "owner": in.Owner})
	}
	return out, nil
}

// RenderMIDI encodes voices as a Standard MIDI File and records the encode
// time.
func (s *HarmonizationService) RenderMIDI(ctx context.Context, voices []tintinnabuli.Voice, rhythm tintinnabuli.Rhythm, opts export.Options) ([]byte, error) {
	start := time.Now()
	data, err := export.EncodeMIDI(voices, rhythm, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	s.sentry.RecordPerformanceMetric(ctx, "midi.encode", time.Since(start), map[string]interface{}{
		"tracks": len(voices) + 1,
		"bytes":  len(data),
	})
	return data, nil
}

// Transpose shifts a melody diatonically.
func (s *HarmonizationService) Transpose(req models.TransposeRequest) (models.TransposeResponse, error) {
	if len(req.Melody) > s.maxLength {
		return models.TransposeResponse{}, fmt.Errorf("%w: %d notes, limit %d", ErrMelodyTooLong, len(req.Melody), s.maxLength)
	}
	out, diags, err := tintinnabuli.Transpose(req.Melody, req.DegreeShift, req.Key, req.Mode)
	if err != nil {
		return models.TransposeResponse{}, err
	}
	return models.TransposeResponse{Melody: out.Names(), Warnings: Warnings(diags)}, nil
}

// Scale describes a (tonic, mode) pair.
func (s *HarmonizationService) Scale(tonic, mode string) (models.ScaleResponse, error) {
	sc, err := tintinnabuli.GetScale(tonic, mode)
	if err != nil {
		return models.ScaleResponse{}, err
	}
	return models.ScaleResponse{
		Name:    sc.Name(),
		Tonic:   sc.Tonic.String(),
		Mode:    string(sc.Mode),
		Degrees: sc.Names(),
		Triad:   sc.Triad().Names(),
	}, nil
}

// BuildResponse renders a result for JSON clients.
func BuildResponse(res tintinnabuli.Result, cmd tintinnabuli.StructureCommand, estimated bool) models.HarmonizeResponse {
	voices := make([]models.VoiceOutput, 0, len(res.Voices)+1)
	for _, v := range res.All() {
		voices = append(voices, models.VoiceOutput{
			Label:  v.Label,
			Notes:  v.Tones.Names(),
			Events: export.NoteEvents(v, res.Rhythm, export.Options{}),
		})
	}
	return models.HarmonizeResponse{
		Key:          res.Scale.Tonic.String(),
		Mode:         string(res.Scale.Mode),
		KeyEstimated: estimated,
		Scale:        res.Scale.Names(),
		Triad:        res.Scale.Triad().Names(),
		Structure:    cmd.String(),
		Length:       res.Len(),
		Rhythm:       res.Rhythm,
		Voices:       voices,
		Warnings:     Warnings(res.Diagnostics),
	}
}

// Warnings converts diagnostics for JSON clients.
func Warnings(diags []tintinnabuli.Diagnostic) []models.Warning {
	out := make([]models.Warning, 0, len(diags))
	for _, d := range diags {
		w := models.Warning{Stage: d.Stage, Index: d.Index, Message: d.Err.Error()}
		if d.Index >= 0 {
			w.Note = d.Tone.String()
		}
		out = append(out, w)
	}
	return out
}

// CompositionFromResult builds the stored record for a result.
func CompositionFromResult(res tintinnabuli.Result, req tintinnabuli.Request, opts models.HarmonizeOptions, owner string) *models.Composition {
	records := make([]models.VoiceRecord, 0, len(res.Voices)+1)
	for _, v := range res.All() {
		records = append(records, models.VoiceRecord{Label: v.Label, Notes: v.Tones.Names()})
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", res.Scale.Name(), req.Structure)
	}
	return &models.Composition{
		Owner:           owner,
		Title:           title,
		Key:             res.Scale.Tonic.String(),
		Mode:            string(res.Scale.Mode),
		Structure:       req.Structure.String(),
		Preset:          opts.Preset,
		ParallelOffsets: req.ParallelOffsets,
		TVoices:         req.TVoices,
		Rhythm:          res.Rhythm,
		Voices:          records,
		Length:          res.Len(),
		Warnings:        len(res.Diagnostics),
	}
}

// expandedLength predicts the melody length after cmd.
func expandedLength(n int, cmd tintinnabuli.StructureCommand) int {
	if cmd.Validate() != nil {
		return n
	}
	switch cmd.Kind {
	case tintinnabuli.StructureMirror:
		return 2 * n
	case tintinnabuli.StructureCombo:
		return 4 * n
	case tintinnabuli.StructureTransposition:
		if cmd.Count <= 0 {
			return n
		}
		if n > 0 && cmd.Count >= math.MaxInt/n {
			return math.MaxInt
		}
		return n * (cmd.Count + 1)
	}
	return n
}
