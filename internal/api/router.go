package api

import (
	"github.com/Conceptual-Machines/tintharm-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/tintharm-api/internal/api/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/Conceptual-Machines/tintharm-api/internal/metrics"
	"github.com/Conceptual-Machines/tintharm-api/internal/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/presets"
	"github.com/Conceptual-Machines/tintharm-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter wires the HTTP surface. db and cloudwatch may be nil; without a
// database the composition routes are not registered and save requests fail.
func SetupRouter(db *gorm.DB, cfg *config.Config, version string, catalog *presets.Catalog, cloudwatch *metrics.Client) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cloudwatch))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version, cfg, catalog)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	var compositions *services.CompositionService
	if db != nil {
		compositions = services.NewCompositionService(db)
	}
	harmonizer := services.NewHarmonizationService(cfg, catalog, compositions, nil, cloudwatch)

	// API routes v1, authenticated according to AUTH_MODE
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authenticate(cfg))
	{
		harmonizeHandler := handlers.NewHarmonizeHandler(harmonizer)
		v1.GET("/scales/:tonic/:mode", harmonizeHandler.Scale)
		v1.GET("/presets", harmonizeHandler.Presets)
		v1.POST("/transpose", harmonizeHandler.Transpose)
		v1.POST("/harmonize", harmonizeHandler.Harmonize)
		v1.POST("/harmonize/text", harmonizeHandler.HarmonizeText)
		v1.POST("/harmonize/musicxml", harmonizeHandler.HarmonizeMusicXML)
		v1.GET("/harmonize/note", harmonizeHandler.HarmonizeNote)

		// Stored compositions (only with a database)
		if compositions != nil {
			compositionHandler := handlers.NewCompositionHandler(compositions, harmonizer)
			v1.GET("/compositions", compositionHandler.List)
			v1.GET("/compositions/:id", compositionHandler.Get)
			v1.GET("/compositions/:id/midi", compositionHandler.MIDI)
			v1.DELETE("/compositions/:id", compositionHandler.Delete)
		}
	}

	return router
}
