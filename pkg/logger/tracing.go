package logger

import (
	"context"
)

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	symbolKey contextKey = "symbol"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the pipeline run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithSymbol adds the instrument symbol being processed to the context
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, symbolKey, symbol)
}

// GetSymbol retrieves the instrument symbol from context
func GetSymbol(ctx context.Context) string {
	if symbol, ok := ctx.Value(symbolKey).(string); ok {
		return symbol
	}
	return ""
}
