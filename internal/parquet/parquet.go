// Package parquet provides data structures and functions for exporting ratingfit
// runs and scored tables to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/ratingfit/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun represents a single pipeline run with metadata.
// This struct maps to the ratingfit_runs database table.
type AnalysisRun struct {
	// AnalysisID is the unique identifier for this run
	AnalysisID int64 `parquet:"analysis_id,snappy"`

	// RunKey is the UUID logged with every message of the run
	RunKey string `parquet:"run_key,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalRows is the number of rows in the final table
	TotalRows int32 `parquet:"total_rows,snappy"`

	// GroupCount is the number of groups the rows were split into
	GroupCount int32 `parquet:"group_count,snappy"`

	// Seed is the shuffle seed, in decimal (nullable)
	Seed *string `parquet:"seed,optional,snappy"`

	// ModelKind is the estimator family (nullable)
	ModelKind *string `parquet:"model_kind,optional,snappy"`

	// Accuracy is the share of exact approximate ratings (nullable)
	Accuracy *float64 `parquet:"accuracy,optional,snappy"`

	// MAE is the mean absolute rating error (nullable)
	MAE *float64 `parquet:"mae,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ScoredRow is one stored row of a run's final table.
// This struct maps to the ratingfit_scored_rows database table.
type ScoredRow struct {
	AnalysisID   int64     `parquet:"analysis_id,snappy"`
	RowNo        int32     `parquet:"row_no,snappy"`
	Player       string    `parquet:"player,snappy"`
	GroupIndex   int32     `parquet:"group_index,snappy"`
	Rating       int32     `parquet:"rating,snappy"`
	ApproxRating int32     `parquet:"approx_rating,snappy"`
	Salary       float64   `parquet:"salary,snappy"`
	RecordedAt   time.Time `parquet:"recorded_at,snappy"`
}

// FinalRow is one row of the final table as written by --output parquet.
type FinalRow struct {
	Player       string  `parquet:"player,snappy"`
	Group        int32   `parquet:"group,snappy"`
	Rating       int32   `parquet:"rating,snappy"`
	ApproxRating int32   `parquet:"approx_rating,snappy"`
	Delta        int32   `parquet:"delta,snappy"`
	Salary       float64 `parquet:"salary,snappy"`
}

// writeParquet writes rows to outputPath with a schema inferred from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteAnalysisRunsParquet writes a slice of AnalysisRun structs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteScoredRowsParquet writes a slice of ScoredRow structs to a Parquet file.
func WriteScoredRowsParquet(data []ScoredRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFinalTableParquet writes the final table of a run to a Parquet file.
func WriteFinalTableParquet(table schema.FinalTable, outputPath string) error {
	return writeParquet(ConvertFinalTable(table), outputPath)
}

// ConvertAnalysisRunRecords converts schema.AnalysisRunRecord to AnalysisRun for Parquet export.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	result := make([]AnalysisRun, len(records))
	for i, record := range records {
		result[i] = AnalysisRun{
			AnalysisID:    record.AnalysisID,
			RunKey:        record.RunKey,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalRows:     record.TotalRows,
			GroupCount:    record.GroupCount,
			Seed:          record.Seed,
			ModelKind:     record.ModelKind,
			Accuracy:      record.Accuracy,
			MAE:           record.MAE,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertScoredRowRecords converts schema.ScoredRowRecord to ScoredRow for Parquet export.
func ConvertScoredRowRecords(records []schema.ScoredRowRecord) []ScoredRow {
	result := make([]ScoredRow, len(records))
	for i, record := range records {
		result[i] = ScoredRow{
			AnalysisID:   record.AnalysisID,
			RowNo:        record.RowNo,
			Player:       record.Player,
			GroupIndex:   record.GroupIndex,
			Rating:       record.Rating,
			ApproxRating: record.ApproxRating,
			Salary:       record.Salary,
			RecordedAt:   record.RecordedAt,
		}
	}
	return result
}

// ConvertFinalTable flattens a final table into Parquet rows.
func ConvertFinalTable(table schema.FinalTable) []FinalRow {
	result := make([]FinalRow, len(table.Rows))
	for i, r := range table.Rows {
		result[i] = FinalRow{
			Player:       r.Player,
			Group:        int32(r.GroupIndex),
			Rating:       int32(r.Rating),
			ApproxRating: int32(r.ApproxRating),
			Delta:        int32(r.Delta()),
			Salary:       r.Salary,
		}
	}
	return result
}
