package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Conceptual-Machines/tintharm-api/internal/api/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/logger"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
	"github.com/Conceptual-Machines/tintharm-api/internal/services"
	"github.com/gin-gonic/gin"
)

type CompositionHandler struct {
	svc        *services.CompositionService
	harmonizer *services.HarmonizationService
}

func NewCompositionHandler(svc *services.CompositionService, harmonizer *services.HarmonizationService) *CompositionHandler {
	return &CompositionHandler{svc: svc, harmonizer: harmonizer}
}

// List handles GET /api/v1/compositions?limit=&offset=.
func (h *CompositionHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list, total, err := h.svc.List(middleware.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]models.CompositionSummary, 0, len(list))
	for i := range list {
		summaries = append(summaries, list[i].Summary())
	}
	c.JSON(http.StatusOK, gin.H{
		"compositions": summaries,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// Get handles GET /api/v1/compositions/:id.
func (h *CompositionHandler) Get(c *gin.Context) {
	comp, err := h.svc.Get(c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// MIDI handles GET /api/v1/compositions/:id/midi.
func (h *CompositionHandler) MIDI(c *gin.Context) {
	comp, err := h.svc.Get(c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := exportOptions(c, comp.Title, "")
	if err != nil {
		respondError(c, err)
		return
	}

	voices, err := comp.Melodies()
	if err != nil {
		respondError(c, fmt.Errorf("decode composition %s: %w", comp.ID, err))
		return
	}
	writeMIDI(c, h.harmonizer, voices, comp.Rhythm, opts)
}

// Delete handles DELETE /api/v1/compositions/:id.
func (h *CompositionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(id, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("Composition deleted", logger.Fields{"composition_id": id, "owner": middleware.UserID(c)})
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", services.ErrInvalidRequest, key, s)
	}
	return n, nil
}
