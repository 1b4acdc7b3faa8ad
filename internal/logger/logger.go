package logger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	fields := Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}

	if userID := c.GetString("user_id"); userID != "" {
		fields["user_id"] = userID
	}

	return fields
}

// Info logs an informational message and leaves a Sentry breadcrumb.
func Info(msg string, fields Fields) {
	logAt(sentry.LevelInfo, "info", msg, fields)
}

// Warn logs a warning and leaves a Sentry breadcrumb.
func Warn(msg string, fields Fields) {
	logAt(sentry.LevelWarning, "warning", msg, fields)
}

// Debug logs a debug message and leaves a Sentry breadcrumb.
func Debug(msg string, fields Fields) {
	logAt(sentry.LevelDebug, "debug", msg, fields)
}

// Error logs an error and reports it to Sentry. A nil err is sent as a
// message event instead of an exception.
func Error(msg string, err error, fields Fields) {
	log.Printf("[ERROR] %s: %v %s", msg, err, formatFields(fields))

	if err == nil {
		LogToSentry(sentry.LevelError, msg, fields)
		return
	}
	withScope(fields, func(hub *sentry.Hub, _ *sentry.Scope) {
		hub.CaptureException(err)
	})
}

// LogToSentry sends msg to Sentry as an event at level, without local output.
func LogToSentry(level sentry.Level, msg string, fields Fields) {
	withScope(fields, func(hub *sentry.Hub, scope *sentry.Scope) {
		scope.SetLevel(level)
		hub.CaptureMessage(msg)
	})
}

// LogAPIRequest logs a completed API request.
func LogAPIRequest(c *gin.Context, duration time.Duration, statusCode int, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}

	fields["duration_ms"] = duration.Milliseconds()
	fields["status_code"] = statusCode
	fields["request_id"] = c.GetString("request_id")
	fields["method"] = c.Request.Method
	fields["path"] = c.Request.URL.Path
	fields["client_ip"] = c.ClientIP()

	logAt(sentry.LevelInfo, "http", "API request completed", fields)
}

// LogHarmonization logs a completed harmonization and records it as a span on
// the request hub.
func LogHarmonization(ctx context.Context, key string, duration time.Duration, voices, warnings int, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}

	fields["key"] = key
	fields["duration_ms"] = duration.Milliseconds()
	fields["voices"] = voices
	fields["warnings"] = warnings

	Info("Harmonization completed", fields)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		span := sentry.StartSpan(ctx, "harmonize.log")
		span.Description = key
		span.SetData("voices", voices)
		span.SetData("warnings", warnings)
		span.Finish()
	}
}

func logAt(level sentry.Level, kind, msg string, fields Fields) {
	log.Printf("[%s] %s %s", strings.ToUpper(string(level)), msg, formatFields(fields))

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     map[string]interface{}(fields),
			Level:    level,
		}, nil)
	}
}

// withScope runs fn on a scope carrying fields as contexts and the
// request_id and key fields as tags. It is a no-op without a Sentry client.
func withScope(fields Fields, fn func(*sentry.Hub, *sentry.Scope)) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range fields {
			scope.SetContext(key, sentry.Context{"value": value})
		}
		for _, tag := range []string{"request_id", "key"} {
			if v, ok := fields[tag].(string); ok && v != "" {
				scope.SetTag(tag, v)
			}
		}
		fn(hub, scope)
	})
}

// formatFields renders fields as {k=v, ...} with keys sorted.
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(fields[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
