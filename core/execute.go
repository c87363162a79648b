package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/dataset"
	"github.com/huangsam/ratingfit/internal/metrics"
	"github.com/huangsam/ratingfit/internal/outwriter"
	"github.com/huangsam/ratingfit/schema"
	"github.com/sirupsen/logrus"
)

// modelSnapshotVersion is the version stored next to every model snapshot.
const modelSnapshotVersion = 1

// ErrNoSourceStore is returned when a command needs the source store but none is configured.
var ErrNoSourceStore = errors.New("source store is not configured")

// ExecuteRun runs the whole pipeline and writes the final table with the configured writers.
// It serves as the main entry point for the 'run' command.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()

	var mm *metrics.Manager
	if cfg.MetricsFile != "" {
		mm = metrics.NewManager()
	}

	report, err := RunPipeline(ctx, cfg, mgr)
	if err != nil {
		if mm != nil {
			mm.ObserveFailure(err)
			writeMetrics(mm, cfg.MetricsFile)
		}
		return err
	}
	duration := time.Since(start)

	ow := outwriter.NewOutWriter()
	if err := ow.WriteRun(*report, cfg, duration); err != nil {
		return err
	}
	if err := ow.WritePlot(*report, cfg); err != nil {
		return err
	}
	if mm != nil {
		mm.ObserveRun(*report, duration)
		writeMetrics(mm, cfg.MetricsFile)
	}
	return nil
}

// writeMetrics exports the metrics file, warning instead of failing the run.
func writeMetrics(mm *metrics.Manager, path string) {
	if err := mm.WriteTextfile(path); err != nil {
		contract.LogWarn("Failed to write metrics file", err)
		return
	}
	contract.Log().WithField("file", path).Info("Wrote metrics")
}

// RunPipeline loads the sources, joins them, runs the ensemble and evaluates the
// final table. The run is recorded in the analysis and model stores when they are
// configured; failures to record are logged and never fail the run.
func RunPipeline(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.RunReport, error) {
	runKey := uuid.NewString()
	ctx = withRunKey(ctx, runKey)
	log := runLogger(ctx)

	stats, ratings, err := loadSources(cfg, mgr)
	if err != nil {
		return nil, err
	}

	table, joinReport, err := Join(stats, ratings, JoinOptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if n := len(joinReport.Mismatches); n > 0 {
		log.WithField("count", n).Warn("Skipped stats rows without a rating entry")
	}

	// --- Begin Analysis Tracking (if configured) ---
	analysisStore := mgr.GetAnalysisStore()
	if analysisStore != nil {
		analysisID, err := analysisStore.BeginAnalysis(runKey, time.Now(), cfg.Params())
		if err != nil {
			contract.LogWarn("Analysis tracking initialization failed", err)
		} else {
			ctx = withAnalysisID(ctx, analysisID)
		}
	}

	result, err := RunEnsemble(ctx, table, EnsembleOptionsFromConfig(cfg))
	if err != nil {
		if analysisID, ok := getAnalysisID(ctx); ok {
			closeFailedAnalysis(analysisStore, analysisID, cfg)
		}
		return nil, err
	}
	evaluation := Evaluate(result.Table)

	report := &schema.RunReport{
		RunKey:     runKey,
		Seed:       result.Seed,
		Model:      cfg.Model,
		Join:       joinReport,
		Groups:     result.Groups,
		Evaluation: evaluation,
		Table:      result.Table,
	}

	// --- End Analysis Tracking ---
	if analysisID, ok := getAnalysisID(ctx); ok && analysisStore != nil {
		recordAnalysis(analysisStore, analysisID, report)
	}
	saveModels(ctx, mgr.GetModelStore(), runKey, result.Models)

	log.WithFields(logrus.Fields{
		"rows":     evaluation.Rows,
		"accuracy": evaluation.Accuracy,
		"mae":      evaluation.MAE,
	}).Info("Run finished")
	return report, nil
}

// recordAnalysis stores the final table and closes the analysis run.
func recordAnalysis(store contract.AnalysisStore, analysisID int64, report *schema.RunReport) {
	if err := store.RecordScoredRows(analysisID, report.Table.Rows); err != nil {
		contract.LogWarn("Failed to record scored rows", err)
	}
	summary := schema.RunSummary{
		Rows:       len(report.Table.Rows),
		Groups:     len(report.Groups),
		Seed:       report.Seed,
		Model:      report.Model,
		Evaluation: report.Evaluation,
	}
	if err := store.EndAnalysis(analysisID, time.Now(), summary); err != nil {
		contract.LogWarn("Failed to finalize analysis tracking", err)
	}
}

// closeFailedAnalysis ends a run that produced no table, so it is not left open.
func closeFailedAnalysis(store contract.AnalysisStore, analysisID int64, cfg *contract.Config) {
	summary := schema.RunSummary{Groups: cfg.Groups, Seed: cfg.Seed, Model: cfg.Model}
	if err := store.EndAnalysis(analysisID, time.Now(), summary); err != nil {
		contract.LogWarn("Failed to close failed analysis run", err)
	}
}

// saveModels upserts the snapshot of every group model under its model key.
func saveModels(ctx context.Context, store contract.ModelStore, runKey string, models []contract.Model) {
	if store == nil {
		return
	}
	now := time.Now().Unix()
	for i, m := range models {
		data, err := m.Snapshot()
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to snapshot model of group %d", i), err)
			continue
		}
		if err := store.Set(contract.ModelKey(runKey, i), data, modelSnapshotVersion, now); err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to store model of group %d", i), err)
			continue
		}
		runLogger(ctx).WithField("group", i).Debug("Stored model snapshot")
	}
}

// loadSources reads the stats and rating tables from the CSV files or the source store.
// The season filter is left to Join so that it shows up in the join report.
func loadSources(cfg *contract.Config, mgr contract.StoreManager) (schema.StatsTable, []schema.RatingRow, error) {
	if cfg.UseCSVSource() {
		stats, err := dataset.LoadStatsFile(cfg.StatsCSV, dataset.StatsOptions{Delimiter: cfg.StatsDelimiter})
		if err != nil {
			return schema.StatsTable{}, nil, fmt.Errorf("failed to load stats %s: %w", cfg.StatsCSV, err)
		}
		ratings, err := dataset.LoadRatingsFile(cfg.RatingsCSV)
		if err != nil {
			return schema.StatsTable{}, nil, fmt.Errorf("failed to load ratings %s: %w", cfg.RatingsCSV, err)
		}
		return stats, ratings, nil
	}

	store := mgr.GetSourceStore()
	if store == nil {
		return schema.StatsTable{}, nil, ErrNoSourceStore
	}
	stats, err := store.LoadStats()
	if err != nil {
		return schema.StatsTable{}, nil, err
	}
	ratings, err := store.LoadRatings()
	if err != nil {
		return schema.StatsTable{}, nil, err
	}
	return stats, ratings, nil
}

// IngestSummary describes what ExecuteIngest wrote.
type IngestSummary struct {
	StatsRows   int
	RatingsRows int
}

// ExecuteIngest loads the CSV sources and replaces both tables of the source store.
// Stats rows are filtered to the configured season before they are stored.
func ExecuteIngest(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) (IngestSummary, error) {
	if !cfg.UseCSVSource() {
		return IngestSummary{}, errors.New("ingest requires --stats-csv and --ratings-csv")
	}
	store := mgr.GetSourceStore()
	if store == nil {
		return IngestSummary{}, ErrNoSourceStore
	}

	stats, err := dataset.LoadStatsFile(cfg.StatsCSV, dataset.StatsOptions{Delimiter: cfg.StatsDelimiter, Season: cfg.Season})
	if err != nil {
		return IngestSummary{}, fmt.Errorf("failed to load stats %s: %w", cfg.StatsCSV, err)
	}
	ratings, err := dataset.LoadRatingsFile(cfg.RatingsCSV)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("failed to load ratings %s: %w", cfg.RatingsCSV, err)
	}

	if err := store.SaveStats(stats); err != nil {
		return IngestSummary{}, fmt.Errorf("failed to save stats: %w", err)
	}
	if err := store.SaveRatings(ratings); err != nil {
		return IngestSummary{}, fmt.Errorf("failed to save ratings: %w", err)
	}

	summary := IngestSummary{StatsRows: len(stats.Rows), RatingsRows: len(ratings)}
	contract.Log().WithFields(logrus.Fields{
		"stats":   summary.StatsRows,
		"ratings": summary.RatingsRows,
	}).Info("Ingested sources")
	return summary, nil
}

// ExecuteCheck verifies that both source tables exist and hold rows.
func ExecuteCheck(_ context.Context, mgr contract.StoreManager) (schema.SourceStatus, error) {
	store := mgr.GetSourceStore()
	if store == nil {
		return schema.SourceStatus{}, ErrNoSourceStore
	}
	status, err := store.GetStatus()
	if err != nil {
		return status, fmt.Errorf("failed to read source status: %w", err)
	}
	if !status.Ready() {
		return status, fmt.Errorf("source tables %s and %s must exist and hold rows. Run 'ratingfit ingest' first",
			schema.StatsTableName, schema.RatingsTableName)
	}
	return status, nil
}
