package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings to keep log queries stable.
const (
	// Identity and context
	FieldRunID = "run_id"
	FieldBugID = "bug_id"

	// Stages
	FieldStage = "stage"

	// Operations
	FieldMethod = "method"
	FieldURL    = "url"
	FieldStatus = "status"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount    = "count"
	FieldWorkers  = "workers"
	FieldMentions = "mentions"
	FieldSize     = "size"

	// Files and paths
	FieldFile   = "file"
	FieldFormat = "format"
)

// Context keys for propagating logging context
type contextKey string

const runIDKey contextKey = "logger_run_id"

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Warnw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}

	return fields
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Fetcher struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewFetcher() *Fetcher {
//	    return &Fetcher{
//	        logger: logger.ComponentLogger("triage.fetch"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
