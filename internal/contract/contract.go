// Package contract provides interfaces and shared utilities for ratingfit's internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/ratingfit/schema"
)

// Model is a fitted estimator for one group.
// A model is owned by its trainer and read-only once returned.
type Model interface {
	// Predict returns one rating prediction per row of x.
	Predict(x [][]float64) ([]float64, error)

	// Kind returns the estimator family.
	Kind() schema.ModelKind

	// Snapshot serializes the fitted parameters for the model store.
	Snapshot() ([]byte, error)
}

// StoreManager defines the interface for managing the persistent stores.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetSourceStore() SourceStore
	GetModelStore() ModelStore
	GetAnalysisStore() AnalysisStore
}

// SourceStore holds the two source tables consumed by the joiner.
type SourceStore interface {
	// SaveStats replaces the stats table with the given rows.
	SaveStats(table schema.StatsTable) error

	// SaveRatings replaces the ratings table with the given rows.
	SaveRatings(rows []schema.RatingRow) error

	// LoadStats reads the stats table in insertion order.
	LoadStats() (schema.StatsTable, error)

	// LoadRatings reads the ratings table in insertion order.
	LoadRatings() ([]schema.RatingRow, error)

	// GetStatus returns the presence and size of both tables
	GetStatus() (schema.SourceStatus, error)

	// Close closes the underlying connection
	Close() error
}

// ModelStore defines the interface for model snapshot storage.
// This allows mocking the store for testing.
type ModelStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.ModelStoreStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking pipeline runs and their scored rows.
type AnalysisStore interface {
	// BeginAnalysis creates a new analysis run and returns its unique ID
	BeginAnalysis(runKey string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndAnalysis updates the analysis run with completion data
	EndAnalysis(analysisID int64, endTime time.Time, summary schema.RunSummary) error

	// RecordScoredRows stores the final table of a run
	RecordScoredRows(analysisID int64, rows []schema.ScoredRow) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns returns every recorded run, oldest first
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllScoredRows returns every recorded scored row
	GetAllScoredRows() ([]schema.ScoredRowRecord, error)

	// Close closes the underlying connection
	Close() error
}
