package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

// ModelStoreImpl keeps fitted model snapshots keyed by run and group.
type ModelStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.ModelStore = &ModelStoreImpl{} // Compile-time check

// NewModelStore initializes and returns a new ModelStore based on the backend type.
func NewModelStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.ModelStore, error) {
	// Validate table name to prevent SQL injection
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	if backend == schema.NoneBackend {
		// Return a no-op store for disabled model persistence
		return &ModelStoreImpl{tableName: tableName, backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, GetModelDBFilePath())
	if err != nil {
		return nil, err
	}

	query := getCreateModelTableQuery(tableName, backend)
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &ModelStoreImpl{
		db:        db,
		tableName: tableName,
		backend:   backend,
		connStr:   connStr,
	}, nil
}

// getCreateModelTableQuery returns the CREATE TABLE query for the given backend.
func getCreateModelTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				model_key VARCHAR(255) PRIMARY KEY,
				model_value LONGBLOB NOT NULL,
				model_version INT NOT NULL,
				model_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				model_key TEXT PRIMARY KEY,
				model_value BYTEA NOT NULL,
				model_version INTEGER NOT NULL,
				model_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				model_key TEXT PRIMARY KEY,
				model_value BLOB NOT NULL,
				model_version INTEGER NOT NULL,
				model_timestamp INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// Get retrieves a snapshot by key from the store.
func (ms *ModelStoreImpl) Get(key string) ([]byte, int, int64, error) {
	// Return not found error for NoneBackend
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return nil, 0, 0, sql.ErrNoRows
	}

	var value []byte
	var version int
	var ts int64

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	query := fmt.Sprintf(`SELECT model_value, model_version, model_timestamp FROM %s WHERE model_key = %s`,
		quotedTableName, placeholder(ms.backend, 1))
	if err := ms.db.QueryRow(query, key).Scan(&value, &version, &ts); err != nil {
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces a snapshot in the store.
func (ms *ModelStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	// Skip for NoneBackend
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return nil
	}

	_, err := ms.db.Exec(ms.getUpsertQuery(), key, value, version, timestamp)
	return err
}

// getUpsertQuery returns the UPSERT query for the backend.
func (ms *ModelStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	switch ms.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (model_key, model_value, model_version, model_timestamp) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE model_value = new.model_value, model_version = new.model_version, model_timestamp = new.model_timestamp`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (model_key, model_value, model_version, model_timestamp) VALUES ($1, $2, $3, $4)
			ON CONFLICT (model_key) DO UPDATE SET model_value = EXCLUDED.model_value, model_version = EXCLUDED.model_version, model_timestamp = EXCLUDED.model_timestamp`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (model_key, model_value, model_version, model_timestamp) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Close closes the underlying DB connection.
func (ms *ModelStoreImpl) Close() error {
	if ms.db != nil {
		return ms.db.Close()
	}
	return nil
}

// GetStatus returns status information about the model store.
func (ms *ModelStoreImpl) GetStatus() (schema.ModelStoreStatus, error) {
	status := schema.ModelStoreStatus{
		Backend:   string(ms.backend),
		Connected: ms.db != nil,
	}

	if ms.backend == schema.NoneBackend || ms.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)
	if err := ms.db.QueryRow(countQuery).Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	rangeQuery := fmt.Sprintf("SELECT MAX(model_timestamp), MIN(model_timestamp) FROM %s", quotedTableName)
	if err := ms.db.QueryRow(rangeQuery).Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)
	status.OldestEntryTime = time.Unix(oldestTs, 0)

	status.TableSizeBytes = estimateTableBytes(ms.db, ms.backend, ms.connStr, ms.tableName, status.TotalEntries)

	return status, nil
}
