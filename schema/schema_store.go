package schema

import "time"

// RunSummary is what a finished pipeline run reports to the analysis store.
type RunSummary struct {
	Rows       int
	Groups     int
	Seed       uint64
	Model      ModelKind
	Evaluation Evaluation
}

// AnalysisRunRecord represents a row from the ratingfit_runs table.
type AnalysisRunRecord struct {
	AnalysisID    int64
	RunKey        string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalRows     int32
	GroupCount    int32
	Seed          *string // Stored as text since uint64 does not fit every backend
	ModelKind     *string
	Accuracy      *float64
	MAE           *float64
	ConfigParams  *string
}

// ScoredRowRecord represents a row from the ratingfit_scored_rows table.
type ScoredRowRecord struct {
	AnalysisID   int64
	RowNo        int32 // Position in the final table
	Player       string
	GroupIndex   int32
	Rating       int32
	ApproxRating int32
	Salary       float64
	RecordedAt   time.Time
}
