package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// writeSourceFiles writes a 2020 season of twelve rated players, one unrated
// player and one 2019 row, and returns the stats and ratings paths.
func writeSourceFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	var stats strings.Builder
	stats.WriteString("Player;Year;Tm;PTS;AST;TRB\n")
	var ratings strings.Builder
	ratings.WriteString("full_name,rating,salary,version\n")
	for i := range 12 {
		name := fmt.Sprintf("Player %02d", i)
		fmt.Fprintf(&stats, "%s;2020;LAL;%d.%d;%d;%d\n", name, 5+2*i, i%10, 1+i%5, 2+i%7)
		fmt.Fprintf(&ratings, "%s,%d,$%d,NBA2k20\n", name, 70+i, 1000000+250000*i)
	}
	stats.WriteString("Unrated Rookie;2020;BOS;3.0;1;1\n")
	stats.WriteString("Player 00;2019;LAL;4.0;1;2\n")

	statsPath := filepath.Join(dir, "stats.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(statsPath, []byte(stats.String()), 0o644))
	require.NoError(t, os.WriteFile(ratingsPath, []byte(ratings.String()), 0o644))
	return statsPath, ratingsPath
}

func pipelineConfig() *contract.Config {
	return &contract.Config{
		Season:           2020,
		CanonicalVersion: contract.DefaultCanonicalVersion,
		SalaryMarker:     contract.DefaultSalaryMarker,
		DropColumns:      append([]string(nil), schema.DefaultDropColumns...),
		Groups:           2,
		Seed:             7,
		Model:            schema.LogisticModel,
		MaxIter:          500,
		Tolerance:        contract.DefaultTolerance,
		C:                contract.DefaultC,
		Workers:          2,
		StatsDelimiter:   ';',
		Output:           schema.CSVOut,
		Precision:        contract.DefaultPrecision,
		SourceBackend:    schema.SQLiteBackend,
	}
}

func emptyManager() *iocache.MockStoreManager {
	mgr := &iocache.MockStoreManager{}
	mgr.On("GetSourceStore").Return(nil).Maybe()
	mgr.On("GetModelStore").Return(nil).Maybe()
	mgr.On("GetAnalysisStore").Return(nil).Maybe()
	return mgr
}

func TestExecuteRunFromCSV(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	out := t.TempDir()

	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath
	cfg.OutputFile = filepath.Join(out, "final.csv")
	cfg.PlotFile = filepath.Join(out, "ratings.png")
	cfg.MetricsFile = filepath.Join(out, "ratingfit.prom")

	analysis := &iocache.MockAnalysisStore{}
	analysis.On("BeginAnalysis", mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(int64(7), nil)
	analysis.On("RecordScoredRows", int64(7), mock.MatchedBy(func(rows []schema.ScoredRow) bool {
		return len(rows) == 12
	})).Return(nil)
	analysis.On("EndAnalysis", int64(7), mock.Anything, mock.MatchedBy(func(s schema.RunSummary) bool {
		return s.Rows == 12 && s.Groups == 2 && s.Seed == 7 && s.Model == schema.LogisticModel
	})).Return(nil)

	models := &iocache.MockModelStore{}
	models.On("Set", mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, "/group-0") || strings.HasSuffix(key, "/group-1")
	}), mock.Anything, modelSnapshotVersion, mock.Anything).Return(nil).Twice()

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetAnalysisStore").Return(analysis)
	mgr.On("GetModelStore").Return(models)

	require.NoError(t, ExecuteRun(context.Background(), cfg, mgr))

	f, err := os.Open(cfg.OutputFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 13) // header + one row per rated 2020 player

	for _, path := range []string{cfg.PlotFile, cfg.MetricsFile} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ratingfit_ensemble_rows_scored_total 12")

	analysis.AssertExpectations(t)
	models.AssertExpectations(t)
	mgr.AssertNotCalled(t, "GetSourceStore")
}

func TestRunPipelineClosesFailedAnalysis(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath
	cfg.Groups = 20 // more groups than joined players

	analysis := &iocache.MockAnalysisStore{}
	analysis.On("BeginAnalysis", mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(int64(3), nil)
	analysis.On("EndAnalysis", int64(3), mock.Anything, mock.MatchedBy(func(s schema.RunSummary) bool {
		return s.Rows == 0 && s.Groups == 20 && s.Seed == 7 && s.Model == schema.LogisticModel
	})).Return(nil).Once()

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetAnalysisStore").Return(analysis)

	_, err := RunPipeline(context.Background(), cfg, mgr)
	require.ErrorIs(t, err, schema.ErrInvalidArgument)

	analysis.AssertExpectations(t)
	analysis.AssertNotCalled(t, "RecordScoredRows", mock.Anything, mock.Anything)
	mgr.AssertNotCalled(t, "GetModelStore")
}

func TestRunPipelineReport(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath

	report, err := RunPipeline(context.Background(), cfg, emptyManager())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunKey)
	assert.Equal(t, uint64(7), report.Seed)
	assert.Equal(t, 14, report.Join.StatsRows)
	assert.Equal(t, 1, report.Join.SeasonFiltered)
	require.Len(t, report.Join.Mismatches, 1)
	assert.Equal(t, "Unrated Rookie", report.Join.Mismatches[0].Player)
	assert.Len(t, report.Table.Rows, 12)
	assert.Len(t, report.Groups, 2)
	assert.Equal(t, 12, report.Evaluation.Rows)
	assert.Equal(t, []string{"PTS", "AST", "TRB"}, report.Table.Features)
}

func TestRunPipelineTrackingFailuresAreNotFatal(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath

	analysis := &iocache.MockAnalysisStore{}
	analysis.On("BeginAnalysis", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), assert.AnError)
	models := &iocache.MockModelStore{}
	models.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetAnalysisStore").Return(analysis)
	mgr.On("GetModelStore").Return(models)

	report, err := RunPipeline(context.Background(), cfg, mgr)
	require.NoError(t, err)
	assert.Len(t, report.Table.Rows, 12)
	analysis.AssertNotCalled(t, "RecordScoredRows", mock.Anything, mock.Anything)
	analysis.AssertNotCalled(t, "EndAnalysis", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPipelineWithoutSource(t *testing.T) {
	_, err := RunPipeline(context.Background(), pipelineConfig(), emptyManager())
	assert.ErrorIs(t, err, ErrNoSourceStore)
}

func TestExecuteRunReportsPipelineErrors(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath
	cfg.SalaryMarker = "€"
	cfg.MetricsFile = filepath.Join(t.TempDir(), "ratingfit.prom")

	err := ExecuteRun(context.Background(), cfg, emptyManager())
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrJoinAmbiguity)

	metrics, readErr := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(metrics), `status="JOIN_AMBIGUITY"`)
}

func TestIngestCheckAndRunFromStore(t *testing.T) {
	statsPath, ratingsPath := writeSourceFiles(t)
	store, err := iocache.NewSourceStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetSourceStore").Return(store)
	mgr.On("GetModelStore").Return(nil)
	mgr.On("GetAnalysisStore").Return(nil)
	ctx := context.Background()

	_, err = ExecuteCheck(ctx, mgr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratingfit ingest")

	cfg := pipelineConfig()
	cfg.StatsCSV, cfg.RatingsCSV = statsPath, ratingsPath
	summary, err := ExecuteIngest(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.Equal(t, IngestSummary{StatsRows: 13, RatingsRows: 12}, summary)

	status, err := ExecuteCheck(ctx, mgr)
	require.NoError(t, err)
	assert.Equal(t, int64(13), status.TableSizes[schema.StatsTableName])
	assert.Equal(t, int64(12), status.TableSizes[schema.RatingsTableName])

	runCfg := pipelineConfig()
	report, err := RunPipeline(ctx, runCfg, mgr)
	require.NoError(t, err)
	assert.Len(t, report.Table.Rows, 12)
	assert.Equal(t, 0, report.Join.SeasonFiltered)
	assert.Len(t, report.Join.Mismatches, 1)
}

func TestExecuteIngestRequiresCSV(t *testing.T) {
	_, err := ExecuteIngest(context.Background(), pipelineConfig(), emptyManager())
	assert.ErrorContains(t, err, "--stats-csv")
}

func TestExecuteCheckWithoutStore(t *testing.T) {
	_, err := ExecuteCheck(context.Background(), emptyManager())
	assert.ErrorIs(t, err, ErrNoSourceStore)
}
