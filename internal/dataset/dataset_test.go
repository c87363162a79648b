package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsCSV = `Player;Pos;Age;Year;PTS;AST
LeBron James;PG;35;2020;25.3;10.2
Anthony Davis;PF;26;2020;26.1;3.2
Kyle Korver;SG;38;2020;;1.1
LeBron James;SF;34;2019;27.4;8.3
`

const ratingsCSV = `full_name,rating,jersey,team,salary,version
LeBron James,97,#23,Los Angeles Lakers,$37436858,NBA2k20
Anthony Davis,94,#3,Los Angeles Lakers,$27093019,NBA2k20
Anthony Davis,96,#3,Los Angeles Lakers,$28751774,NBA2k21
Ghost Player,,#0,,$1,NBA2k20
`

func TestReadStats(t *testing.T) {
	table, err := ReadStats(strings.NewReader(statsCSV), StatsOptions{Delimiter: ';', Season: 2020})
	require.NoError(t, err)

	assert.Equal(t, []string{"Pos", "Age", "PTS", "AST"}, table.Columns)
	require.Len(t, table.Rows, 2, "other seasons and rows with missing cells are dropped")
	assert.Equal(t, schema.StatsRow{Player: "LeBron James", Year: 2020, Values: []string{"PG", "35", "25.3", "10.2"}}, table.Rows[0])
	assert.Equal(t, "Anthony Davis", table.Rows[1].Player)
}

func TestReadStatsAllSeasons(t *testing.T) {
	table, err := ReadStats(strings.NewReader(statsCSV), StatsOptions{Season: 0})
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, 2019, table.Rows[2].Year)
}

func TestReadStatsMissingKey(t *testing.T) {
	_, err := ReadStats(strings.NewReader("Name;Year\nA;2020\n"), StatsOptions{Delimiter: ';'})
	assert.ErrorContains(t, err, "Player")
}

func TestReadStatsNoRowsForSeason(t *testing.T) {
	table, err := ReadStats(strings.NewReader(statsCSV), StatsOptions{Delimiter: ';', Season: 1999})
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestReadRatings(t *testing.T) {
	rows, err := ReadRatings(strings.NewReader(ratingsCSV))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, schema.RatingRow{FullName: "LeBron James", Rating: 97, Salary: "$37436858", Version: "NBA2k20"}, rows[0])
	assert.Equal(t, "NBA2k21", rows[2].Version)
}

func TestReadRatingsBadRating(t *testing.T) {
	_, err := ReadRatings(strings.NewReader("full_name,rating,salary,version\nA,high,$1,v1\n"))
	assert.ErrorContains(t, err, "not an integer")

	_, err = ReadRatings(strings.NewReader("full_name,rating,salary\nA,80,$1\n"))
	assert.ErrorContains(t, err, "version")
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(statsPath, []byte(statsCSV), 0o644))
	require.NoError(t, os.WriteFile(ratingsPath, []byte(ratingsCSV), 0o644))

	table, err := LoadStatsFile(statsPath, StatsOptions{Delimiter: ';', Season: 2020})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)

	rows, err := LoadRatingsFile(ratingsPath)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = LoadStatsFile(filepath.Join(dir, "missing.csv"), StatsOptions{})
	assert.Error(t, err)
}

func TestStatsRecordsRoundTrip(t *testing.T) {
	table, err := ReadStats(strings.NewReader(statsCSV), StatsOptions{Delimiter: ';', Season: 2020})
	require.NoError(t, err)

	header := StatsHeader(table)
	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = StatsRecord(row)
	}
	again, err := StatsFromRecords(header, records)
	require.NoError(t, err)
	assert.Equal(t, table, again)
}

func TestStatsFromRecordsErrors(t *testing.T) {
	_, err := StatsFromRecords([]string{"Player", "PTS"}, nil)
	assert.Error(t, err)

	_, err = StatsFromRecords([]string{"Player", "Year"}, [][]string{{"A"}})
	assert.Error(t, err)

	_, err = StatsFromRecords([]string{"Player", "Year"}, [][]string{{"A", "twenty"}})
	assert.Error(t, err)

	table, err := StatsFromRecords([]string{"Player", "Year"}, [][]string{{"A", "2020.0"}})
	require.NoError(t, err)
	assert.Equal(t, 2020, table.Rows[0].Year)
}
