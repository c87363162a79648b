package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

// Table names for analysis tracking.
const (
	analysisRunsTable = "ratingfit_runs"
	scoredRowsTable   = "ratingfit_scored_rows"
)

// AnalysisStoreImpl implements the AnalysisStore interface.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore creates a new AnalysisStore with the specified backend.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &AnalysisStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetAnalysisDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createAnalysisTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analysis tables: %w", err)
	}

	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

// createAnalysisTables creates the analysis tracking tables.
func createAnalysisTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{analysisRunsTable, getCreateAnalysisRunsQuery(backend)},
		{scoredRowsTable, getCreateScoredRowsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	return nil
}

// getCreateAnalysisRunsQuery returns the CREATE TABLE query for ratingfit_runs.
func getCreateAnalysisRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(analysisRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_key VARCHAR(64) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_rows INT NOT NULL DEFAULT 0,
				group_count INT NOT NULL DEFAULT 0,
				seed VARCHAR(32),
				model_kind VARCHAR(32),
				accuracy DOUBLE,
				mae DOUBLE,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id BIGSERIAL PRIMARY KEY,
				run_key TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_rows INT NOT NULL DEFAULT 0,
				group_count INT NOT NULL DEFAULT 0,
				seed TEXT,
				model_kind TEXT,
				accuracy DOUBLE PRECISION,
				mae DOUBLE PRECISION,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_key TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_rows INTEGER NOT NULL DEFAULT 0,
				group_count INTEGER NOT NULL DEFAULT 0,
				seed TEXT,
				model_kind TEXT,
				accuracy REAL,
				mae REAL,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateScoredRowsQuery returns the CREATE TABLE query for ratingfit_scored_rows.
func getCreateScoredRowsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(scoredRowsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id BIGINT NOT NULL,
				row_no INT NOT NULL,
				player VARCHAR(255) NOT NULL,
				group_index INT NOT NULL,
				rating INT NOT NULL,
				approx_rating INT NOT NULL,
				salary DOUBLE NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (analysis_id, row_no)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id BIGINT NOT NULL,
				row_no INT NOT NULL,
				player TEXT NOT NULL,
				group_index INT NOT NULL,
				rating INT NOT NULL,
				approx_rating INT NOT NULL,
				salary DOUBLE PRECISION NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (analysis_id, row_no)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				analysis_id INTEGER NOT NULL,
				row_no INTEGER NOT NULL,
				player TEXT NOT NULL,
				group_index INTEGER NOT NULL,
				rating INTEGER NOT NULL,
				approx_rating INTEGER NOT NULL,
				salary REAL NOT NULL,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (analysis_id, row_no)
			);
		`, quotedTableName)
	}
}

// BeginAnalysis creates a new analysis run and returns its unique ID.
func (as *AnalysisStoreImpl) BeginAnalysis(runKey string, startTime time.Time, configParams map[string]any) (int64, error) {
	// Skip for NoneBackend
	if as.backend == schema.NoneBackend || as.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(analysisRunsTable, as.backend)

	var analysisID int64
	switch as.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_key, start_time, config_params) VALUES ($1, $2, $3) RETURNING analysis_id`, quotedTableName)
		err = as.db.QueryRow(query, runKey, startTime, string(configJSON)).Scan(&analysisID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_key, start_time, config_params) VALUES (?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = as.db.Exec(query, runKey, formatTime(startTime, as.backend), string(configJSON))
		if err != nil {
			return 0, fmt.Errorf("failed to insert analysis run: %w", err)
		}
		analysisID, err = result.LastInsertId()
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}

	return analysisID, nil
}

// EndAnalysis updates the analysis run with completion data.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, endTime time.Time, summary schema.RunSummary) error {
	// Skip for NoneBackend
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(analysisRunsTable, as.backend)

	// First, get the start_time to calculate duration
	var startTime time.Time
	dest, finish := timeDest(as.backend, &startTime)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = %s`, quotedTableName, placeholder(as.backend, 1))
	if err := as.db.QueryRow(query, analysisID).Scan(dest); err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}
	if err := finish(); err != nil {
		return err
	}

	durationMs := endTime.Sub(startTime).Milliseconds()

	updateQuery := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_rows = %s, group_count = %s,
		seed = %s, model_kind = %s, accuracy = %s, mae = %s WHERE analysis_id = %s`,
		quotedTableName,
		placeholder(as.backend, 1), placeholder(as.backend, 2), placeholder(as.backend, 3), placeholder(as.backend, 4),
		placeholder(as.backend, 5), placeholder(as.backend, 6), placeholder(as.backend, 7), placeholder(as.backend, 8),
		placeholder(as.backend, 9))
	args := []any{
		formatTime(endTime, as.backend), durationMs, summary.Rows, summary.Groups,
		strconv.FormatUint(summary.Seed, 10), string(summary.Model),
		summary.Evaluation.Accuracy, summary.Evaluation.MAE, analysisID,
	}

	if _, err := as.db.Exec(updateQuery, args...); err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}

	return nil
}

// RecordScoredRows stores the final table of a run in one transaction.
func (as *AnalysisStoreImpl) RecordScoredRows(analysisID int64, rows []schema.ScoredRow) error {
	// Skip for NoneBackend
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (analysis_id, row_no, player, group_index, rating, approx_rating, salary, recorded_at)
		VALUES (%s)`, quoteTableName(scoredRowsTable, as.backend), placeholders(as.backend, 8))

	tx, err := as.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare scored row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	recordedAt := formatTime(time.Now(), as.backend)
	for i, r := range rows {
		if _, err := stmt.Exec(analysisID, i, r.Player, r.GroupIndex, r.Rating, r.ApproxRating, r.Salary, recordedAt); err != nil {
			return fmt.Errorf("failed to insert scored row %d (%s): %w", i, r.Player, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scored rows: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the analysis store.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: make(map[string]int64),
	}

	if as.backend == schema.NoneBackend || as.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(analysisRunsTable, as.backend)

	runsQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)
	if err := as.db.QueryRow(runsQuery).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// Get last run info
		lastDest, lastFinish := timeDest(as.backend, &status.LastRunTime)
		lastRunQuery := fmt.Sprintf("SELECT analysis_id, run_key, start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", quotedRuns)
		if err := as.db.QueryRow(lastRunQuery).Scan(&status.LastRunID, &status.LastRunKey, lastDest); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		if err := lastFinish(); err != nil {
			return status, err
		}

		// Get oldest run time
		oldestDest, oldestFinish := timeDest(as.backend, &status.OldestRunTime)
		oldestRunQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", quotedRuns)
		if err := as.db.QueryRow(oldestRunQuery).Scan(oldestDest); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		if err := oldestFinish(); err != nil {
			return status, err
		}
	}

	for _, table := range []string{analysisRunsTable, scoredRowsTable} {
		count, err := countRows(as.db, as.backend, table)
		if err != nil {
			return status, err
		}
		status.TableSizes[table] = count
	}
	status.TotalRowsScored = int(status.TableSizes[scoredRowsTable])

	return status, nil
}

// GetAllAnalysisRuns retrieves all analysis runs from the store.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	// Skip for NoneBackend
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, run_key, start_time, end_time, run_duration_ms, total_rows, group_count,
		seed, model_kind, accuracy, mae, config_params FROM %s ORDER BY analysis_id`, quoteTableName(analysisRunsTable, as.backend))

	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var record schema.AnalysisRunRecord
		startDest, startFinish := timeDest(as.backend, &record.StartTime)
		endDest, endFinish := nullTimeDest(as.backend, &record.EndTime)
		if err := rows.Scan(&record.AnalysisID, &record.RunKey, startDest, endDest, &record.RunDurationMs,
			&record.TotalRows, &record.GroupCount, &record.Seed, &record.ModelKind,
			&record.Accuracy, &record.MAE, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		if err := startFinish(); err != nil {
			return nil, err
		}
		if err := endFinish(); err != nil {
			return nil, err
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}

	return results, nil
}

// GetAllScoredRows retrieves all scored rows from the store.
func (as *AnalysisStoreImpl) GetAllScoredRows() ([]schema.ScoredRowRecord, error) {
	// Skip for NoneBackend
	if as.backend == schema.NoneBackend || as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, row_no, player, group_index, rating, approx_rating, salary, recorded_at
		FROM %s ORDER BY analysis_id, row_no`, quoteTableName(scoredRowsTable, as.backend))

	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScoredRowRecord
	for rows.Next() {
		var record schema.ScoredRowRecord
		atDest, atFinish := timeDest(as.backend, &record.RecordedAt)
		if err := rows.Scan(&record.AnalysisID, &record.RowNo, &record.Player, &record.GroupIndex,
			&record.Rating, &record.ApproxRating, &record.Salary, atDest); err != nil {
			return nil, fmt.Errorf("failed to scan scored row: %w", err)
		}
		if err := atFinish(); err != nil {
			return nil, err
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scored rows: %w", err)
	}

	return results, nil
}
