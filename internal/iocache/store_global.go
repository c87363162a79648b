package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

// modelTable is the name of the table for model snapshots.
const modelTable = "ratingfit_models"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// StoreSettings selects the backend of each store. An empty backend leaves
// the store uninitialized.
type StoreSettings struct {
	SourceBackend   schema.DatabaseBackend
	SourceConnStr   string
	ModelBackend    schema.DatabaseBackend
	ModelConnStr    string
	AnalysisBackend schema.DatabaseBackend
	AnalysisConnStr string
}

// SettingsFromConfig extracts the store settings of a validated config.
// The source store is skipped when the run reads CSV files.
func SettingsFromConfig(cfg *contract.Config) StoreSettings {
	settings := StoreSettings{
		ModelBackend:    cfg.ModelBackend,
		ModelConnStr:    cfg.ModelDBConnect,
		AnalysisBackend: cfg.AnalysisBackend,
		AnalysisConnStr: cfg.AnalysisDBConnect,
	}
	if !cfg.UseCSVSource() {
		settings.SourceBackend = cfg.SourceBackend
		settings.SourceConnStr = cfg.SourceDBConnect
	}
	return settings
}

// GetSourceDBFilePath returns the path to the SQLite DB file for source storage.
func GetSourceDBFilePath() string {
	return contract.GetSourceDBFilePath()
}

// GetModelDBFilePath returns the path to the SQLite DB file for model storage.
func GetModelDBFilePath() string {
	return contract.GetModelDBFilePath()
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for analysis storage.
func GetAnalysisDBFilePath() string {
	return contract.GetAnalysisDBFilePath()
}

// InitStores initializes the global store manager.
func InitStores(settings StoreSettings) error {
	var initErr error

	initOnce.Do(func() {
		var opened []interface{ Close() error }
		fail := func(err error) {
			for _, s := range opened {
				_ = s.Close()
			}
			initErr = err
		}

		var sourceStore contract.SourceStore
		if settings.SourceBackend != "" {
			store, err := NewSourceStore(settings.SourceBackend, settings.SourceConnStr)
			if err != nil {
				fail(fmt.Errorf("failed to initialize source store: %w", err))
				return
			}
			sourceStore = store
			opened = append(opened, store)
		}

		var modelStore contract.ModelStore
		if settings.ModelBackend != "" {
			store, err := NewModelStore(modelTable, settings.ModelBackend, settings.ModelConnStr)
			if err != nil {
				fail(fmt.Errorf("failed to initialize model store: %w", err))
				return
			}
			modelStore = store
			opened = append(opened, store)
		}

		var analysisStore contract.AnalysisStore
		if settings.AnalysisBackend != "" {
			store, err := NewAnalysisStore(settings.AnalysisBackend, settings.AnalysisConnStr)
			if err != nil {
				fail(fmt.Errorf("failed to initialize analysis store: %w", err))
				return
			}
			analysisStore = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.source = sourceStore
		Manager.model = modelStore
		Manager.analysis = analysisStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.source != nil {
			_ = Manager.source.Close()
		}
		if Manager.model != nil {
			_ = Manager.model.Close()
		}
		if Manager.analysis != nil {
			_ = Manager.analysis.Close()
		}
	})
}

// ClearModels clears the model snapshots for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearModels(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, modelTable)
}

// ClearAnalysis clears the analysis data for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the analysis tables.
// For NoneBackend, it does nothing.
func ClearAnalysis(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, analysisRunsTable, scoredRowsTable)
}

func clearStore(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		driverName, _ := driverFor(backend)
		for _, table := range tables {
			if err := clearSQLTable(driverName, backend, connStr, table); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(driverName string, backend schema.DatabaseBackend, connStr, tableName string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}

	return nil
}
