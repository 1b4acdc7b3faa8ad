package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/tintharm-api/internal/agents/tintinnabuli"
	"github.com/Conceptual-Machines/tintharm-api/internal/logger"
	"github.com/Conceptual-Machines/tintharm-api/internal/notation"
	"github.com/Conceptual-Machines/tintharm-api/internal/presets"
	"github.com/Conceptual-Machines/tintharm-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var clientErrors = []error{
	tintinnabuli.ErrInvalidPitchName,
	tintinnabuli.ErrUnsupportedKeyMode,
	tintinnabuli.ErrInputLengthMismatch,
	tintinnabuli.ErrInvalidDuration,
	tintinnabuli.ErrInvalidVoiceSpec,
	presets.ErrUnknownPreset,
	services.ErrInvalidRequest,
	services.ErrPersistenceDisabled,
}

// statusFor maps service and core errors to HTTP status codes.
func statusFor(err error) int {
	var parseErr *notation.ParseError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMelodyTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Server errors are logged
// (and reported to Sentry) with the detail hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, logger.WithContext(c))
		c.JSON(status, gin.H{
			"error":      "Internal server error",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	body := gin.H{"error": err.Error()}
	var stageErr *tintinnabuli.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = stageErr.Stage
		if stageErr.Index >= 0 {
			body["index"] = stageErr.Index
		}
	}
	var parseErr *notation.ParseError
	if errors.As(err, &parseErr) && parseErr.Measure > 0 {
		body["measure"] = parseErr.Measure
	}
	c.JSON(status, body)
}
