package schema

import "time"

// ModelStoreStatus represents the status of the model store.
type ModelStoreStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// AnalysisStatus represents the status of the analysis store.
type AnalysisStatus struct {
	Backend         string           `json:"backend"`
	Connected       bool             `json:"connected"`
	TotalRuns       int              `json:"total_runs"`
	LastRunID       int64            `json:"last_run_id"`
	LastRunKey      string           `json:"last_run_key"`
	LastRunTime     time.Time        `json:"last_run_time"`
	OldestRunTime   time.Time        `json:"oldest_run_time"`
	TotalRowsScored int              `json:"total_rows_scored"`
	TableSizes      map[string]int64 `json:"table_sizes"`
}

// SourceStatus represents the presence and size of the two source tables.
type SourceStatus struct {
	Backend    string           `json:"backend"`
	Connected  bool             `json:"connected"`
	TableSizes map[string]int64 `json:"table_sizes"` // Missing tables are absent from the map
}

// Ready reports whether both source tables exist and hold rows.
func (s SourceStatus) Ready() bool {
	return s.TableSizes[StatsTableName] > 0 && s.TableSizes[RatingsTableName] > 0
}
