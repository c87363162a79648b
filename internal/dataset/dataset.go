// Package dataset loads the stats and rating sources from CSV files.
package dataset

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/huangsam/ratingfit/schema"
)

// nanValues are the cells treated as missing.
var nanValues = []string{"", "NA", "NaN", "<nil>"}

// ratingColumns are the columns kept from the rating source.
var ratingColumns = []string{schema.FullNameColumn, schema.RatingColumn, schema.SalaryColumn, schema.VersionColumn}

// StatsOptions controls how the stats source is read.
type StatsOptions struct {
	Delimiter rune
	Season    int // 0 keeps every year
}

// ReadStats reads a stats CSV, keeps the rows of the season and drops rows with missing cells.
func ReadStats(r io.Reader, opts StatsOptions) (schema.StatsTable, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ';'
	}
	df := readFrame(r, delim)
	if df.Err != nil {
		return schema.StatsTable{}, fmt.Errorf("failed to read stats: %w", df.Err)
	}
	if err := requireColumns(df, schema.PlayerColumn, schema.YearColumn); err != nil {
		return schema.StatsTable{}, fmt.Errorf("stats source: %w", err)
	}

	if opts.Season != 0 {
		df = df.Filter(dataframe.F{
			Colname:    schema.YearColumn,
			Comparator: series.Eq,
			Comparando: strconv.Itoa(opts.Season),
		})
		if df.Err != nil {
			return schema.StatsTable{}, fmt.Errorf("failed to filter season %d: %w", opts.Season, df.Err)
		}
	}
	df, err := dropNA(df)
	if err != nil {
		return schema.StatsTable{}, err
	}
	return toStatsTable(df)
}

// ReadRatings reads a rating CSV and keeps the name, rating, salary and version columns.
func ReadRatings(r io.Reader) ([]schema.RatingRow, error) {
	df := readFrame(r, ',')
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", df.Err)
	}
	if err := requireColumns(df, ratingColumns...); err != nil {
		return nil, fmt.Errorf("rating source: %w", err)
	}
	df = df.Select(ratingColumns)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to select rating columns: %w", df.Err)
	}
	df, err := dropNA(df)
	if err != nil {
		return nil, err
	}
	return toRatingRows(df)
}

// LoadStatsFile opens path and reads it with ReadStats.
func LoadStatsFile(path string, opts StatsOptions) (schema.StatsTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.StatsTable{}, err
	}
	defer func() { _ = f.Close() }()
	return ReadStats(f, opts)
}

// LoadRatingsFile opens path and reads it with ReadRatings.
func LoadRatingsFile(path string) ([]schema.RatingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadRatings(f)
}

// StatsFromRecords builds a StatsTable from a header row and string records.
// It is used by the source store, which keeps every cell as text.
func StatsFromRecords(header []string, records [][]string) (schema.StatsTable, error) {
	playerIdx := slices.Index(header, schema.PlayerColumn)
	yearIdx := slices.Index(header, schema.YearColumn)
	if playerIdx < 0 || yearIdx < 0 {
		return schema.StatsTable{}, fmt.Errorf("stats header must contain %q and %q", schema.PlayerColumn, schema.YearColumn)
	}

	table := schema.StatsTable{}
	for i, name := range header {
		if i != playerIdx && i != yearIdx {
			table.Columns = append(table.Columns, name)
		}
	}
	for n, rec := range records {
		if len(rec) != len(header) {
			return schema.StatsTable{}, fmt.Errorf("stats record %d has %d cells, want %d", n, len(rec), len(header))
		}
		year, err := parseYear(rec[yearIdx])
		if err != nil {
			return schema.StatsTable{}, fmt.Errorf("stats record %d: %w", n, err)
		}
		row := schema.StatsRow{Player: rec[playerIdx], Year: year, Values: make([]string, 0, len(table.Columns))}
		for i, v := range rec {
			if i != playerIdx && i != yearIdx {
				row.Values = append(row.Values, v)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// StatsHeader returns the column order used to persist a StatsTable.
func StatsHeader(table schema.StatsTable) []string {
	return append([]string{schema.PlayerColumn, schema.YearColumn}, table.Columns...)
}

// StatsRecord returns a row in the order of StatsHeader.
func StatsRecord(row schema.StatsRow) []string {
	return append([]string{row.Player, strconv.Itoa(row.Year)}, row.Values...)
}

func readFrame(r io.Reader, delim rune) dataframe.DataFrame {
	return dataframe.ReadCSV(r,
		dataframe.WithDelimiter(delim),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
}

func requireColumns(df dataframe.DataFrame, cols ...string) error {
	names := df.Names()
	for _, c := range cols {
		if !slices.Contains(names, c) {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// dropNA keeps the rows without any missing cell.
func dropNA(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	keep := make([]bool, df.Nrow())
	for i := range keep {
		keep[i] = true
	}
	for _, name := range df.Names() {
		for i, isNaN := range df.Col(name).IsNaN() {
			if isNaN {
				keep[i] = false
			}
		}
	}
	if !slices.Contains(keep, false) {
		return df, nil
	}
	var idx []int
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return dataframe.New(), nil
	}
	out := df.Subset(idx)
	if out.Err != nil {
		return df, fmt.Errorf("failed to drop missing rows: %w", out.Err)
	}
	return out, nil
}

func toStatsTable(df dataframe.DataFrame) (schema.StatsTable, error) {
	if df.Nrow() == 0 {
		return schema.StatsTable{}, nil
	}
	records := df.Records()
	return StatsFromRecords(records[0], records[1:])
}

func toRatingRows(df dataframe.DataFrame) ([]schema.RatingRow, error) {
	if df.Nrow() == 0 {
		return nil, nil
	}
	names := df.Col(schema.FullNameColumn).Records()
	ratings := df.Col(schema.RatingColumn).Records()
	salaries := df.Col(schema.SalaryColumn).Records()
	versions := df.Col(schema.VersionColumn).Records()

	rows := make([]schema.RatingRow, len(names))
	for i := range names {
		rating, err := strconv.Atoi(strings.TrimSpace(ratings[i]))
		if err != nil {
			return nil, fmt.Errorf("player %q: rating %q is not an integer", names[i], ratings[i])
		}
		rows[i] = schema.RatingRow{
			FullName: names[i],
			Rating:   rating,
			Salary:   salaries[i],
			Version:  versions[i],
		}
	}
	return rows, nil
}

// parseYear accepts "2020" as well as the "2020.0" produced by float exports.
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("year %q is not an integer", s)
	}
	return int(f), nil
}
