package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/parquet"
)

// ExportPaths returns the two Parquet files written for an export prefix.
func ExportPaths(outputFile string) (runsFile, rowsFile string) {
	return outputFile + ".runs.parquet", outputFile + ".scored_rows.parquet"
}

// ExecuteAnalysisExport exports the runs and scored rows of store to Parquet files.
func ExecuteAnalysisExport(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis tracking is not configured; set --analysis-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}

	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total scored rows: %d\n", status.TotalRowsScored)

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}

	rows, err := store.GetAllScoredRows()
	if err != nil {
		return fmt.Errorf("failed to retrieve scored rows: %w", err)
	}

	parquetRuns := parquet.ConvertAnalysisRunRecords(runs)
	parquetRows := parquet.ConvertScoredRowRecords(rows)
	runsFile, rowsFile := ExportPaths(outputFile)

	if err := parquet.WriteAnalysisRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	if err := parquet.WriteScoredRowsParquet(parquetRows, rowsFile); err != nil {
		return fmt.Errorf("failed to write scored rows: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d scored rows to: %s\n", len(parquetRows), rowsFile)

	return nil
}
