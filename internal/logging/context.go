package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldRecipe is the standardized structured logging key for recipe names.
	FieldRecipe = "recipe"
	// FieldSource is the standardized structured logging key for the original source file.
	FieldSource = "source"
	// FieldWorkdir is the standardized structured logging key for staging working directories.
	FieldWorkdir = "workdir"
	// FieldCorrelationID is the standardized structured logging key for session correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey int

const (
	recipeKey contextKey = iota
	sourceKey
	workdirKey
	correlationKey
)

// WithRecipe stamps the active recipe name onto the context.
func WithRecipe(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, recipeKey, strings.TrimSpace(name))
}

// WithSource stamps the original source file path onto the context.
func WithSource(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, sourceKey, path)
}

// WithWorkdir stamps the staging working directory onto the context.
func WithWorkdir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, workdirKey, dir)
}

// WithCorrelationID stamps a session correlation identifier onto the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if recipe, ok := ctx.Value(recipeKey).(string); ok && recipe != "" {
		fields = append(fields, slog.String(FieldRecipe, recipe))
	}
	if source, ok := ctx.Value(sourceKey).(string); ok && source != "" {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if dir, ok := ctx.Value(workdirKey).(string); ok && dir != "" {
		fields = append(fields, slog.String(FieldWorkdir, dir))
	}
	if id, ok := ctx.Value(correlationKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
