package iocache

import (
	"path/filepath"
	"testing"

	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() schema.StatsTable {
	return schema.StatsTable{
		Columns: []string{"Pos", "PTS", "W/L%", "Pts Won"},
		Rows: []schema.StatsRow{
			{Player: "LeBron James", Year: 2020, Values: []string{"PG", "25.3", ".732", "0.0"}},
			{Player: "Bam Adebayo", Year: 2020, Values: []string{"C", "15.9", ".603", ""}},
			{Player: "Dwight Howard", Year: 2019, Values: []string{"C", "12.8", ".400", "0.0"}},
		},
	}
}

func sampleRatings() []schema.RatingRow {
	return []schema.RatingRow{
		{FullName: "LeBron James", Rating: 97, Salary: "$37436858", Version: "NBA2k20"},
		{FullName: "Bam Adebayo", Rating: 87, Salary: "$3454080", Version: "NBA2k20"},
	}
}

func newTestSourceStore(t *testing.T) *SourceStoreImpl {
	t.Helper()
	store, err := NewSourceStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*SourceStoreImpl)
}

func TestSourceStore_RoundTrip(t *testing.T) {
	store := newTestSourceStore(t)

	require.NoError(t, store.SaveStats(sampleStats()))
	require.NoError(t, store.SaveRatings(sampleRatings()))

	stats, err := store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, sampleStats(), stats)

	ratings, err := store.LoadRatings()
	require.NoError(t, err)
	assert.Equal(t, sampleRatings(), ratings)
}

func TestSourceStore_SaveReplaces(t *testing.T) {
	store := newTestSourceStore(t)

	require.NoError(t, store.SaveRatings(sampleRatings()))
	replacement := []schema.RatingRow{{FullName: "Kyle Lowry", Rating: 85, Salary: "$33296296", Version: "NBA2k19"}}
	require.NoError(t, store.SaveRatings(replacement))

	ratings, err := store.LoadRatings()
	require.NoError(t, err)
	assert.Equal(t, replacement, ratings)

	table := sampleStats()
	require.NoError(t, store.SaveStats(table))
	narrow := schema.StatsTable{
		Columns: []string{"PTS"},
		Rows:    []schema.StatsRow{{Player: "Kyle Lowry", Year: 2020, Values: []string{"19.4"}}},
	}
	require.NoError(t, store.SaveStats(narrow))

	stats, err := store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, narrow, stats, "a new ingest replaces the columns as well as the rows")
}

func TestSourceStore_PreservesOrder(t *testing.T) {
	store := newTestSourceStore(t)

	var rows []schema.RatingRow
	for _, name := range []string{"Zion Williamson", "Aaron Gordon", "Mike Conley", "Al Horford"} {
		rows = append(rows, schema.RatingRow{FullName: name, Rating: 80, Salary: "$1", Version: "NBA2k20"})
	}
	require.NoError(t, store.SaveRatings(rows))

	got, err := store.LoadRatings()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestSourceStore_ReservedColumn(t *testing.T) {
	store := newTestSourceStore(t)

	table := schema.StatsTable{Columns: []string{rowOrderColumn}}
	assert.Error(t, store.SaveStats(table))
}

func TestSourceStore_MissingTables(t *testing.T) {
	store := newTestSourceStore(t)

	_, err := store.LoadStats()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratingfit ingest")

	_, err = store.LoadRatings()
	assert.Error(t, err)
}

func TestSourceStore_GetStatus(t *testing.T) {
	store := newTestSourceStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Empty(t, status.TableSizes)
	assert.False(t, status.Ready())

	require.NoError(t, store.SaveStats(sampleStats()))
	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.TableSizes[schema.StatsTableName])
	assert.False(t, status.Ready())

	require.NoError(t, store.SaveRatings(sampleRatings()))
	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.TableSizes[schema.RatingsTableName])
	assert.True(t, status.Ready())
}

func TestNewSourceStore_NoneBackend(t *testing.T) {
	_, err := NewSourceStore(schema.NoneBackend, "")
	assert.Error(t, err)
}
