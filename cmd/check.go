package cmd

import (
	"os"

	"github.com/huangsam/ratingfit/core"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
	"github.com/spf13/cobra"
)

// checkCmd verifies that the pipeline has data to work with.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the source tables exist and hold rows (fails otherwise)",
	Long: `Check the source store before running the pipeline.

Exits with a non-zero code when the stats or ratings table is missing or empty,
which makes it usable as a gate in scheduled jobs.

Examples:
  # Check the default SQLite source database
  ratingfit check

  # Check a MySQL source
  ratingfit check --source-backend mysql --source-db-connect "user:pass@tcp(localhost:3306)/nba"`,
	Args:    cobra.NoArgs,
	PreRunE: sourceSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := core.ExecuteCheck(rootCtx, storeManager)
		iocache.PrintSourceStatus(os.Stdout, status)
		if err != nil {
			contract.LogFatal("Source check failed", err)
		}
	},
}
