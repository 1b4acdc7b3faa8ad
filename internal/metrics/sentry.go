package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// HarmonizationStats describes one pipeline run.
type HarmonizationStats struct {
	Key          string
	InputLength  int
	OutputLength int
	Voices       int
	Warnings     int
	Duration     time.Duration
	Success      bool
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordHarmonization records a harmonize.run span. When the request carries
// a transaction the sizes are tagged on it as well.
func (m *SentryMetrics) RecordHarmonization(ctx context.Context, stats HarmonizationStats) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("harmonize.key", stats.Key)
		transaction.SetData("harmonize.output_length", stats.OutputLength)
		transaction.SetData("harmonize.warnings", stats.Warnings)
	}

	span := sentry.StartSpan(ctx, "harmonize.run")
	defer span.Finish()

	span.SetTag("key", stats.Key)
	span.SetTag("success", fmt.Sprintf("%t", stats.Success))

	span.SetData("input_length", stats.InputLength)
	span.SetData("output_length", stats.OutputLength)
	span.SetData("voices", stats.Voices)
	span.SetData("warnings", stats.Warnings)
	span.SetData("duration_ms", stats.Duration.Milliseconds())

	if stats.Success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInvalidArgument
	}
	span.Description = fmt.Sprintf("Harmonize: %s", stats.Key)
}

// RecordPerformanceMetric records performance data
func (m *SentryMetrics) RecordPerformanceMetric(ctx context.Context, operation string, duration time.Duration, metadata map[string]interface{}) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, operation)
	span.Description = operation
	span.SetData("duration_ms", duration.Milliseconds())

	for key, value := range metadata {
		span.SetData(key, value)
	}

	span.Finish()
}
