package iocache

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetManager lets a test call InitStores again.
func resetManager(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManager{}
	t.Cleanup(func() {
		CloseStores()
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &StoreManager{}
	})
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"valid simple name", "test_table", false},
		{"valid name with numbers", "test_table_123", false},
		{"valid name starting with underscore", "_test_table", false},
		{"valid mixed case", "TestTable_123", false},
		{"source stats table", schema.StatsTableName, false},
		{"source ratings table", schema.RatingsTableName, false},
		{"empty name", "", true},
		{"starts with number", "123_table", true},
		{"contains dash", "test-table", true},
		{"contains space", "test table", true},
		{"sql injection attempt", "test'; DROP TABLE users; --", true},
		{"contains dot", "test.table", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err, "validateTableName should error for %q", tt.tableName)
			} else {
				assert.NoError(t, err, "validateTableName should not error for %q", tt.tableName)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, `"test_table"`},
		{schema.MySQLBackend, "`test_table`"},
		{schema.PostgreSQLBackend, `"test_table"`},
		{schema.NoneBackend, `"test_table"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTableName("test_table", tt.backend))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"W/L%"`, quoteIdent("W/L%", schema.SQLiteBackend))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`, schema.PostgreSQLBackend))
	assert.Equal(t, "`Pts Won`", quoteIdent("Pts Won", schema.MySQLBackend))
	assert.Equal(t, "`a``b`", quoteIdent("a`b", schema.MySQLBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 3))
	assert.Equal(t, "?, ?", placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, "$1, $2, $3", placeholders(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "$4", placeholder(schema.PostgreSQLBackend, 4))
}

func TestDriverFor(t *testing.T) {
	for backend, want := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	} {
		got, err := driverFor(backend)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := driverFor(schema.NoneBackend)
	assert.Error(t, err)
}

func TestModelStore_SQLite(t *testing.T) {
	t.Run("set and get operations", func(t *testing.T) {
		store, err := NewModelStore("test_models", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Set("run/group-0", []byte(`{"kind":"logistic"}`), 1, 1234567890))

		value, version, ts, err := store.Get("run/group-0")
		require.NoError(t, err)
		assert.Equal(t, `{"kind":"logistic"}`, string(value))
		assert.Equal(t, 1, version)
		assert.Equal(t, int64(1234567890), ts)
	})

	t.Run("upsert behavior", func(t *testing.T) {
		store, err := NewModelStore("test_models", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Set("k", []byte("initial"), 1, 1000))
		require.NoError(t, store.Set("k", []byte("updated"), 2, 2000))

		value, version, ts, err := store.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "updated", string(value))
		assert.Equal(t, 2, version)
		assert.Equal(t, int64(2000), ts)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		store, err := NewModelStore("test_models", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, _, _, err = store.Get("missing")
		assert.Equal(t, sql.ErrNoRows, err)
	})

	t.Run("status", func(t *testing.T) {
		store, err := NewModelStore("test_models", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Zero(t, status.TotalEntries)

		require.NoError(t, store.Set("a", []byte("x"), 1, 1000))
		require.NoError(t, store.Set("b", []byte("y"), 1, 3000))

		status, err = store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
		assert.Equal(t, 2, status.TotalEntries)
		assert.Equal(t, int64(3000), status.LastEntryTime.Unix())
		assert.Equal(t, int64(1000), status.OldestEntryTime.Unix())
		assert.Greater(t, status.TableSizeBytes, int64(0))
	})
}

func TestModelStore_NoneBackend(t *testing.T) {
	store, err := NewModelStore("test_models", schema.NoneBackend, "")
	require.NoError(t, err)

	assert.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err = store.Get("k")
	assert.Equal(t, sql.ErrNoRows, err)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewModelStoreErrors(t *testing.T) {
	_, err := NewModelStore("bad-name", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewModelStore("test_models", "oracle", "")
	assert.Error(t, err)
}

func TestClearModelsAndAnalysis(t *testing.T) {
	t.Run("SQLite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "models.db")
		store, err := NewModelStore(modelTable, schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		_, err = os.Stat(dbPath)
		require.NoError(t, err)

		require.NoError(t, ClearModels(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("SQLite non-existent file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "missing.db")
		assert.NoError(t, ClearAnalysis(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("NoneBackend", func(t *testing.T) {
		assert.NoError(t, ClearModels(schema.NoneBackend, "", ""))
		assert.NoError(t, ClearAnalysis(schema.NoneBackend, "", ""))
	})

	t.Run("empty dbFilePath for SQLite", func(t *testing.T) {
		assert.Error(t, ClearModels(schema.SQLiteBackend, "", ""))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		assert.Error(t, ClearAnalysis("unsupported", "", ""))
	})
}

func TestInitStores(t *testing.T) {
	t.Run("all stores on SQLite", func(t *testing.T) {
		resetManager(t)
		dir := t.TempDir()

		err := InitStores(StoreSettings{
			SourceBackend:   schema.SQLiteBackend,
			SourceConnStr:   filepath.Join(dir, "source.db"),
			ModelBackend:    schema.SQLiteBackend,
			ModelConnStr:    filepath.Join(dir, "models.db"),
			AnalysisBackend: schema.SQLiteBackend,
			AnalysisConnStr: filepath.Join(dir, "analysis.db"),
		})
		require.NoError(t, err)

		assert.NotNil(t, Manager.GetSourceStore())
		assert.NotNil(t, Manager.GetModelStore())
		assert.NotNil(t, Manager.GetAnalysisStore())

		// Second call is a no-op
		assert.NoError(t, InitStores(StoreSettings{ModelBackend: "oracle"}))
	})

	t.Run("empty backends leave stores unset", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(StoreSettings{}))
		assert.Nil(t, Manager.GetSourceStore())
		assert.Nil(t, Manager.GetModelStore())
		assert.Nil(t, Manager.GetAnalysisStore())
	})

	t.Run("failure is reported", func(t *testing.T) {
		resetManager(t)

		err := InitStores(StoreSettings{
			ModelBackend:    schema.SQLiteBackend,
			ModelConnStr:    ":memory:",
			AnalysisBackend: schema.MySQLBackend,
			AnalysisConnStr: "invalid://connection",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analysis store")
		assert.Nil(t, Manager.GetModelStore())
	})
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &contract.Config{
		SourceBackend:   schema.SQLiteBackend,
		SourceDBConnect: "source.db",
		ModelBackend:    schema.NoneBackend,
		AnalysisBackend: schema.SQLiteBackend,
	}

	settings := SettingsFromConfig(cfg)
	assert.Equal(t, schema.SQLiteBackend, settings.SourceBackend)
	assert.Equal(t, "source.db", settings.SourceConnStr)
	assert.Equal(t, schema.NoneBackend, settings.ModelBackend)

	cfg.StatsCSV, cfg.RatingsCSV = "stats.csv", "ratings.csv"
	settings = SettingsFromConfig(cfg)
	assert.Empty(t, settings.SourceBackend, "CSV runs do not open the source store")
}

func TestStoreManagerConcurrency(t *testing.T) {
	resetManager(t)
	require.NoError(t, InitStores(StoreSettings{ModelBackend: schema.SQLiteBackend, ModelConnStr: ":memory:"}))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			store := Manager.GetModelStore()
			if !assert.NotNil(t, store) {
				return
			}
			assert.NoError(t, store.Set("concurrent_key", []byte("value"), 1, int64(1000+i)))
		})
	}
	wg.Wait()
}
