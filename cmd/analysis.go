package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
	"github.com/huangsam/ratingfit/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// analysisSetup loads minimal configuration needed for analysis operations.
// This is used by commands that need analysis access without full shared setup.
func analysisSetup() error {
	backend, connStr, err := backendSetup("analysis-backend", "analysis-db-connect")
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no source or model stores for analysis commands)
	if err := iocache.InitStores(iocache.StoreSettings{AnalysisBackend: backend, AnalysisConnStr: connStr}); err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// analysisSetupWrapper wraps analysisSetup to provide PreRunE for analysis commands.
func analysisSetupWrapper(_ *cobra.Command, _ []string) error {
	return analysisSetup()
}

// analysisMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores,
// allowing migrations to run on a fresh database.
func analysisMigrateSetup() error {
	backend, connStr, err := backendSetup("analysis-backend", "analysis-db-connect")
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetAnalysisDBFilePath()
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	return nil
}

// analysisMigrateSetupWrapper wraps analysisMigrateSetup to provide PreRunE for migrate command.
func analysisMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return analysisMigrateSetup()
}

// sqliteFilePath returns the SQLite file of a store: the connection string when given,
// otherwise the default path.
func sqliteFilePath(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}

// analysisCmd focused on analysis data management.
//
// Note: Analysis subcommands use minimal initialization (analysisSetup) instead of
// the full sharedSetup used by the pipeline commands. This skips source and
// ensemble validation for simple store operations.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Manage recorded ensemble runs and exports",
	Long: `Manage the history of ensemble runs.

When enabled, ratingfit records every run, storing:
- Run metadata (run key, timestamps, seed, model, configuration, duration)
- Quality summary (accuracy and mean absolute error)
- The final table (player, group, rating, approximate rating, salary)

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show analysis tracking statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  ratingfit analysis status --analysis-backend sqlite

  # Export for analysis in pandas/DuckDB
  ratingfit analysis export --analysis-backend sqlite --output-file runs`,
}

// analysisClearCmd clears the analysis data.
var analysisClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all stored runs and their scored rows.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  ratingfit analysis export --analysis-backend sqlite --output-file backup
  ratingfit analysis clear --analysis-backend sqlite`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		path := sqliteFilePath(cfg.AnalysisDBConnect, contract.GetAnalysisDBFilePath())
		if err := iocache.ClearAnalysis(cfg.AnalysisBackend, path, cfg.AnalysisDBConnect); err != nil {
			contract.LogFatal("Failed to clear analysis data", err)
		}
		fmt.Println("Analysis data cleared successfully.")
	},
}

// analysisStatusCmd shows analysis status.
var analysisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display analysis tracking statistics and connection details",
	Long: `Show detailed information about recorded runs.

Displays:
- Backend type and connection status
- Total number of runs stored and the last run key
- Last and oldest run timestamps
- Total scored rows across all runs
- Database table sizes

Examples:
  # Check analysis tracking status
  ratingfit analysis status --analysis-backend sqlite`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := storeManager.GetAnalysisStore()
		if store == nil {
			contract.LogFatal("Failed to get analysis status", fmt.Errorf("analysis tracking is not configured"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get analysis status", err)
		}
		iocache.PrintAnalysisStatus(os.Stdout, status)
	},
}

// analysisExportCmd exports analysis data to Parquet files.
var analysisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet for BI tools and analytics",
	Long: `Export all recorded runs to Parquet format for use with analytics tools.

Exports two datasets next to the --output-file prefix:
- <prefix>.runs.parquet        - metadata and quality of each run
- <prefix>.scored_rows.parquet - the final table of each run

Requires: --output-file parameter

Examples:
  # Export all data
  ratingfit analysis export --analysis-backend sqlite --output-file ratingfit

  # Use with DuckDB for analysis
  duckdb -c "SELECT run_key, accuracy, mae FROM read_parquet('ratingfit.runs.parquet')"`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteAnalysisExport(os.Stdout, storeManager.GetAnalysisStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
	},
}

// analysisMigrateCmd runs database migrations for the analysis store.
var analysisMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the analysis tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  ratingfit analysis migrate --analysis-backend sqlite

  # Migrate to specific version
  ratingfit analysis migrate --analysis-backend sqlite --target-version 1

  # Rollback to initial state
  ratingfit analysis migrate --analysis-backend sqlite --target-version 0`,
	PreRunE: analysisMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
