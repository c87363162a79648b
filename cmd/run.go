package cmd

import (
	"github.com/huangsam/ratingfit/core"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd runs the join, ensemble and scoring pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Approximate every player's rating with an out-of-group ensemble.",
	Long: `Join season stats with game ratings and score every player with models that never saw them.

The joined table is shuffled into k balanced groups. One model is trained per group,
and each group is scored by the mean prediction of the other k-1 models, rounded half up.

Sources are read from the source store (see 'ratingfit ingest') unless both
--stats-csv and --ratings-csv are given.

Examples:
  # Run against the ingested source tables
  ratingfit run

  # Run straight from CSV files with a fixed seed
  ratingfit run --stats-csv stats.csv --ratings-csv nba2k.csv --seed 42

  # Use 5 groups and a linear model, export CSV and a plot
  ratingfit run -k 5 --model linear --output csv --output-file ratings.csv --plot-file ratings.png

  # Record the run and write Prometheus textfile metrics
  ratingfit run --analysis-backend sqlite --metrics-file /var/lib/node_exporter/ratingfit.prom`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRun(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run ensemble", err)
		}
	},
}
