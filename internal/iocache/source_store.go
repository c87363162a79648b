package iocache

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/dataset"
	"github.com/huangsam/ratingfit/schema"
)

// rowOrderColumn preserves the source order of ingested rows.
const rowOrderColumn = "row_order"

// SourceStoreImpl persists the stats and rating sources as two tables.
// Stats cells are kept as text so that any stats export can be ingested as is.
type SourceStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.SourceStore = &SourceStoreImpl{} // Compile-time check

// NewSourceStore opens the source database. NoneBackend is rejected because
// a run that reads from the database has nowhere else to get its data.
func NewSourceStore(backend schema.DatabaseBackend, connStr string) (contract.SourceStore, error) {
	if backend == schema.NoneBackend {
		return nil, fmt.Errorf("source store requires a database backend, got %s", backend)
	}
	db, err := openDB(backend, connStr, GetSourceDBFilePath())
	if err != nil {
		return nil, err
	}
	return &SourceStoreImpl{db: db, backend: backend}, nil
}

// SaveStats replaces the stats table with the given rows.
func (ss *SourceStoreImpl) SaveStats(table schema.StatsTable) error {
	header := dataset.StatsHeader(table)
	if slices.Contains(header, rowOrderColumn) {
		return fmt.Errorf("stats column %q is reserved", rowOrderColumn)
	}

	columns := make([]string, 0, len(header)+1)
	defs := make([]string, 0, len(header)+1)
	columns = append(columns, quoteIdent(rowOrderColumn, ss.backend))
	defs = append(defs, quoteIdent(rowOrderColumn, ss.backend)+" BIGINT NOT NULL PRIMARY KEY")
	for _, name := range header {
		columns = append(columns, quoteIdent(name, ss.backend))
		defs = append(defs, quoteIdent(name, ss.backend)+" TEXT")
	}

	records := make([][]any, len(table.Rows))
	for i, row := range table.Rows {
		rec := dataset.StatsRecord(row)
		args := make([]any, 0, len(rec)+1)
		args = append(args, i)
		for _, v := range rec {
			args = append(args, v)
		}
		records[i] = args
	}

	return ss.replaceTable(schema.StatsTableName, defs, columns, records)
}

// SaveRatings replaces the ratings table with the given rows.
func (ss *SourceStoreImpl) SaveRatings(rows []schema.RatingRow) error {
	names := []string{rowOrderColumn, schema.FullNameColumn, schema.RatingColumn, schema.SalaryColumn, schema.VersionColumn}
	types := []string{"BIGINT NOT NULL PRIMARY KEY", "TEXT NOT NULL", "INTEGER NOT NULL", "TEXT", "TEXT"}

	columns := make([]string, len(names))
	defs := make([]string, len(names))
	for i, name := range names {
		columns[i] = quoteIdent(name, ss.backend)
		defs[i] = columns[i] + " " + types[i]
	}

	records := make([][]any, len(rows))
	for i, r := range rows {
		records[i] = []any{i, r.FullName, r.Rating, r.Salary, r.Version}
	}

	return ss.replaceTable(schema.RatingsTableName, defs, columns, records)
}

// replaceTable drops and recreates the table, then inserts the records in one transaction.
func (ss *SourceStoreImpl) replaceTable(tableName string, defs, columns []string, records [][]any) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}
	quoted := quoteTableName(tableName, ss.backend)

	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoted)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoted, strings.Join(columns, ", "), placeholders(ss.backend, len(columns)))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tableName, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, args := range records {
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, tableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", tableName, err)
	}
	return nil
}

// LoadStats reads the stats table back in ingestion order.
func (ss *SourceStoreImpl) LoadStats() (schema.StatsTable, error) {
	if err := ss.requireTable(schema.StatsTableName); err != nil {
		return schema.StatsTable{}, err
	}

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		quoteTableName(schema.StatsTableName, ss.backend), quoteIdent(rowOrderColumn, ss.backend))
	rows, err := ss.db.Query(query)
	if err != nil {
		return schema.StatsTable{}, fmt.Errorf("failed to query %s: %w", schema.StatsTableName, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return schema.StatsTable{}, fmt.Errorf("failed to read columns of %s: %w", schema.StatsTableName, err)
	}
	orderIdx := slices.Index(cols, rowOrderColumn)
	if orderIdx < 0 {
		return schema.StatsTable{}, fmt.Errorf("table %s has no %s column", schema.StatsTableName, rowOrderColumn)
	}
	header := slices.Delete(slices.Clone(cols), orderIdx, orderIdx+1)

	var records [][]string
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return schema.StatsTable{}, fmt.Errorf("failed to scan %s row: %w", schema.StatsTableName, err)
		}
		rec := make([]string, 0, len(header))
		for i, c := range cells {
			if i != orderIdx {
				rec = append(rec, c.String)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return schema.StatsTable{}, fmt.Errorf("error iterating %s: %w", schema.StatsTableName, err)
	}

	return dataset.StatsFromRecords(header, records)
}

// LoadRatings reads the ratings table back in ingestion order.
func (ss *SourceStoreImpl) LoadRatings() ([]schema.RatingRow, error) {
	if err := ss.requireTable(schema.RatingsTableName); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s ORDER BY %s",
		quoteIdent(schema.FullNameColumn, ss.backend),
		quoteIdent(schema.RatingColumn, ss.backend),
		quoteIdent(schema.SalaryColumn, ss.backend),
		quoteIdent(schema.VersionColumn, ss.backend),
		quoteTableName(schema.RatingsTableName, ss.backend),
		quoteIdent(rowOrderColumn, ss.backend))
	rows, err := ss.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", schema.RatingsTableName, err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RatingRow
	for rows.Next() {
		var r schema.RatingRow
		var salary, version sql.NullString
		if err := rows.Scan(&r.FullName, &r.Rating, &salary, &version); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", schema.RatingsTableName, err)
		}
		r.Salary = salary.String
		r.Version = version.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", schema.RatingsTableName, err)
	}
	return results, nil
}

// requireTable fails with a hint when the table has not been ingested yet.
func (ss *SourceStoreImpl) requireTable(tableName string) error {
	ok, err := tableExists(ss.db, ss.backend, tableName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("source table %s not found. Run 'ratingfit ingest' first", tableName)
	}
	return nil
}

// GetStatus reports the row count of each source table that exists.
func (ss *SourceStoreImpl) GetStatus() (schema.SourceStatus, error) {
	status := schema.SourceStatus{
		Backend:    string(ss.backend),
		Connected:  ss.db != nil,
		TableSizes: make(map[string]int64),
	}
	if ss.db == nil {
		return status, nil
	}

	for _, table := range []string{schema.StatsTableName, schema.RatingsTableName} {
		ok, err := tableExists(ss.db, ss.backend, table)
		if err != nil {
			return status, err
		}
		if !ok {
			continue
		}
		count, err := countRows(ss.db, ss.backend, table)
		if err != nil {
			return status, err
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// Close closes the underlying connection.
func (ss *SourceStoreImpl) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}
