package cmd

import (
	"fmt"

	"github.com/huangsam/ratingfit/core"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/spf13/cobra"
)

// ingestCmd loads the CSV sources into the source store.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the stats and ratings CSV files into the source store.",
	Long: `Read the season stats and game ratings CSV files and replace the source tables.

Stats rows are filtered to --season and rows with missing cells are dropped.
Ratings keep the full_name, rating, salary and version columns.

Examples:
  # Ingest into the default SQLite source database
  ratingfit ingest --stats-csv stats.csv --ratings-csv nba2k.csv

  # Ingest every season into PostgreSQL
  ratingfit ingest --season 0 --stats-csv stats.csv --ratings-csv nba2k.csv \
    --source-backend postgresql --source-db-connect "host=localhost dbname=nba"`,
	Args:    cobra.NoArgs,
	PreRunE: sourceSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		summary, err := core.ExecuteIngest(rootCtx, cfg, storeManager)
		if err != nil {
			contract.LogFatal("Cannot ingest sources", err)
		}
		fmt.Printf("Ingested %d stats rows and %d ratings rows.\n", summary.StatsRows, summary.RatingsRows)
	},
}
