// Package cmd defines the command-line interface for ratingfit.
package cmd

import (
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the models subcommands to the parent models command
	modelsCmd.AddCommand(modelsClearCmd)
	modelsCmd.AddCommand(modelsStatusCmd)
	modelsCmd.AddCommand(modelsShowCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("season", contract.DefaultSeason, "Season year to keep (0 keeps every season)")
	rootCmd.PersistentFlags().String("stats-csv", "", "Path to the season stats CSV (bypasses the source store)")
	rootCmd.PersistentFlags().String("ratings-csv", "", "Path to the game ratings CSV (bypasses the source store)")
	rootCmd.PersistentFlags().String("stats-delimiter", contract.DefaultStatsDelimiter, "Field delimiter of the stats CSV")
	rootCmd.PersistentFlags().String("source-backend", string(schema.SQLiteBackend), "Source backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("source-db-connect", "", "Database connection string for the source tables")
	rootCmd.PersistentFlags().String("model-backend", string(schema.SQLiteBackend), "Model snapshot backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("model-db-connect", "", "Database connection string for model snapshots (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("analysis-backend", "", "Analysis tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("analysis-db-connect", "", "Database connection string for analysis tracking (must differ from model-db-connect)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.DefaultLogFormat, "Log format: text or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().IntP("groups", "k", contract.DefaultGroups, "Number of groups in the ensemble")
	runCmd.Flags().String("canonical-version", contract.DefaultCanonicalVersion, "Rating version used when a player has several entries")
	runCmd.Flags().String("salary-marker", contract.DefaultSalaryMarker, "Leading currency marker of the salary column")
	runCmd.Flags().String("drop-columns", "", "Comma-separated stats columns to drop (defaults to the metadata columns)")
	runCmd.Flags().Int64("seed", 0, "Shuffle seed (0 draws a fresh seed)")
	runCmd.Flags().String("model", string(schema.LogisticModel), "Estimator per group: logistic or linear")
	runCmd.Flags().Int("max-iter", contract.DefaultMaxIter, "Maximum solver epochs per group")
	runCmd.Flags().Float64("tolerance", contract.DefaultTolerance, "Solver stopping tolerance")
	runCmd.Flags().Float64("c", contract.DefaultC, "Inverse regularization strength")
	runCmd.Flags().String("timeout", "", "Overall deadline of the ensemble (e.g. 2m; empty disables)")
	runCmd.Flags().String("plot-file", "", "Write a rating vs approximation scatter to this image file")
	runCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics to this file")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(analysisMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analysis migrate flags", err)
	}
}
