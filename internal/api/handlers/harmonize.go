package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/api/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/export"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
	"github.com/Conceptual-Machines/tintharm-api/internal/notation"
	"github.com/Conceptual-Machines/tintharm-api/internal/services"
	"github.com/gin-gonic/gin"
)

type HarmonizeHandler struct {
	svc *services.HarmonizationService
}

func NewHarmonizeHandler(svc *services.HarmonizationService) *HarmonizeHandler {
	return &HarmonizeHandler{svc: svc}
}

// Harmonize handles POST /api/v1/harmonize. ?format=midi returns a Standard
// MIDI File instead of JSON.
func (h *HarmonizeHandler) Harmonize(c *gin.Context) {
	var req models.HarmonizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts, err := exportOptions(c, req.Title, "")
	if err != nil {
		respondError(c, err)
		return
	}
	h.run(c, services.HarmonizationInput{
		Melody:  req.Melody,
		Rhythm:  req.Rhythm,
		Options: req.HarmonizeOptions,
		Owner:   middleware.UserID(c),
	}, opts)
}

// HarmonizeText handles POST /api/v1/harmonize/text.
func (h *HarmonizeHandler) HarmonizeText(c *gin.Context) {
	var req models.HarmonizeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, err := notation.ParseText(req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := exportOptions(c, req.Title, score.TimeSignature)
	if err != nil {
		respondError(c, err)
		return
	}

	h.run(c, services.InputFromScore(score, req.HarmonizeOptions, middleware.UserID(c)), opts)
}

// HarmonizeMusicXML handles POST /api/v1/harmonize/musicxml. The body is a
// raw MusicXML document; options come from the query string.
func (h *HarmonizeHandler) HarmonizeMusicXML(c *gin.Context) {
	options, err := optionsFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxMusicXMLBytes)
	score, err := notation.ParseMusicXML(body)
	if err != nil {
		respondError(c, err)
		return
	}
	in := services.InputFromScore(score, options, middleware.UserID(c))
	opts, err := exportOptions(c, in.Options.Title, score.TimeSignature)
	if err != nil {
		respondError(c, err)
		return
	}
	h.run(c, in, opts)
}

// HarmonizeNote handles GET /api/v1/harmonize/note: every voice for a single
// note, as a label to note-name map.
func (h *HarmonizeHandler) HarmonizeNote(c *gin.Context) {
	offsets, err := services.ParseOffsets(c.Query("parallel"))
	if err != nil {
		respondError(c, err)
		return
	}
	tvoices, err := services.ParseTVoices(c.Query("t"), "")
	if err != nil {
		respondError(c, err)
		return
	}

	voices, err := tintinnabuli.HarmonizeNote(c.Query("note"), c.Query("key"), c.DefaultQuery("mode", string(tintinnabuli.ModeMajor)), offsets, tvoices)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

// Transpose handles POST /api/v1/transpose.
func (h *HarmonizeHandler) Transpose(c *gin.Context) {
	var req models.TransposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Transpose(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Scale handles GET /api/v1/scales/:tonic/:mode.
func (h *HarmonizeHandler) Scale(c *gin.Context) {
	resp, err := h.svc.Scale(c.Param("tonic"), c.Param("mode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Presets handles GET /api/v1/presets.
func (h *HarmonizeHandler) Presets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.svc.Presets().List()})
}

func (h *HarmonizeHandler) run(c *gin.Context, in services.HarmonizationInput, opts export.Options) {
	out, err := h.svc.Harmonize(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	if wantsMIDI(c) {
		if out.Response.CompositionID != "" {
			c.Header("X-Composition-ID", out.Response.CompositionID)
		}
		writeMIDI(c, h.svc, out.Result.All(), out.Result.Rhythm, opts)
		return
	}
	c.JSON(http.StatusOK, out.Response)
}

func optionsFromQuery(c *gin.Context) (models.HarmonizeOptions, error) {
	options := models.HarmonizeOptions{
		Key:       c.Query("key"),
		Mode:      c.Query("mode"),
		Structure: c.Query("structure"),
		Preset:    c.Query("preset"),
		Title:     c.Query("title"),
	}

	var err error
	if s := c.Query("save"); s != "" {
		if options.Save, err = strconv.ParseBool(s); err != nil {
			return options, fmt.Errorf("%w: save=%q", services.ErrInvalidRequest, s)
		}
	}
	if options.ParallelOffsets, err = services.ParseOffsets(c.Query("parallel")); err != nil {
		return options, err
	}
	if options.TVoices, err = services.ParseTVoices(c.Query("t"), c.Query("bind")); err != nil {
		return options, err
	}
	return options, nil
}

func exportOptions(c *gin.Context, title, timeSignature string) (export.Options, error) {
	opts := export.Options{Title: title, TimeSignature: timeSignature}
	if s := c.Query("tempo"); s != "" {
		tempo, err := strconv.ParseFloat(s, 64)
		if err != nil || tempo <= 0 {
			return opts, fmt.Errorf("%w: tempo=%q", services.ErrInvalidRequest, s)
		}
		opts.Tempo = tempo
	}
	return opts, nil
}

func wantsMIDI(c *gin.Context) bool {
	if format := c.Query("format"); format != "" {
		return strings.EqualFold(format, formatMIDI)
	}
	return strings.Contains(c.GetHeader("Accept"), contentTypeMIDI)
}

func writeMIDI(c *gin.Context, svc *services.HarmonizationService, voices []tintinnabuli.Voice, rhythm tintinnabuli.Rhythm, opts export.Options) {
	data, err := svc.RenderMIDI(c.Request.Context(), voices, rhythm, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, midiFilename(opts.Title)))
	c.Data(http.StatusOK, contentTypeMIDI, data)
}

func midiFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, title)
	if name == "" {
		name = "tintharm"
	}
	return name + ".mid"
}
