package core

import (
	"context"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/sirupsen/logrus"
)

// Context keys for run options
type contextKey string

const (
	runKeyKey     contextKey = "runKey"
	analysisIDKey contextKey = "analysisID"
)

// withRunKey attaches the run identifier to the context
func withRunKey(ctx context.Context, runKey string) context.Context {
	return context.WithValue(ctx, runKeyKey, runKey)
}

// runKeyFromContext returns the run identifier, or "" when none is set
func runKeyFromContext(ctx context.Context) string {
	val, ok := ctx.Value(runKeyKey).(string)
	if !ok {
		return ""
	}
	return val
}

// withAnalysisID attaches the analysis store ID of the run to the context
func withAnalysisID(ctx context.Context, analysisID int64) context.Context {
	return context.WithValue(ctx, analysisIDKey, analysisID)
}

// getAnalysisID returns the analysis store ID of the run
func getAnalysisID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(analysisIDKey).(int64)
	return id, ok
}

// runLogger returns a log entry carrying the run key when there is one.
func runLogger(ctx context.Context) *logrus.Entry {
	if key := runKeyFromContext(ctx); key != "" {
		return contract.WithRun(key)
	}
	return logrus.NewEntry(contract.Log())
}
