package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/ratingfit/core"
	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/iocache"
	"github.com/spf13/cobra"
)

// modelsSetup loads minimal configuration needed for model store operations.
func modelsSetup() error {
	backend, connStr, err := backendSetup("model-backend", "model-db-connect")
	if err != nil {
		return err
	}

	if err := iocache.InitStores(iocache.StoreSettings{ModelBackend: backend, ModelConnStr: connStr}); err != nil {
		return fmt.Errorf("failed to initialize model store: %w", err)
	}

	cfg.ModelBackend = backend
	cfg.ModelDBConnect = connStr
	return nil
}

// modelsSetupWrapper wraps modelsSetup to provide PreRunE for models commands.
func modelsSetupWrapper(_ *cobra.Command, _ []string) error {
	return modelsSetup()
}

// modelsCmd focused on model snapshot management.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored model snapshots",
	Long: `Manage the snapshots of the models trained by each run.

Every run stores the fitted parameters of its k group models under the key
<run-key>/group-<i>, so a run can be inspected or rescored later.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show model store statistics
  show   - Show the group models of a run
  clear  - Remove all model snapshots`,
}

// modelsClearCmd clears the model snapshots.
var modelsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored model snapshots",
	Long: `Delete every stored model snapshot.

For SQLite, this deletes the database file.
For MySQL and PostgreSQL, this drops the model table.

Examples:
  ratingfit models clear`,
	PreRunE: modelsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		path := sqliteFilePath(cfg.ModelDBConnect, contract.GetModelDBFilePath())
		if err := iocache.ClearModels(cfg.ModelBackend, path, cfg.ModelDBConnect); err != nil {
			contract.LogFatal("Failed to clear model snapshots", err)
		}
		fmt.Println("Model snapshots cleared successfully.")
	},
}

// modelsStatusCmd shows model store status.
var modelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display model store statistics and connection details",
	Long: `Show the backend, connection state, snapshot count, first and last snapshot times,
and estimated table size of the model store.

Examples:
  ratingfit models status
  ratingfit models status --model-backend postgresql --model-db-connect "host=localhost dbname=nba"`,
	PreRunE: modelsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := storeManager.GetModelStore()
		if store == nil {
			contract.LogFatal("Failed to get model status", fmt.Errorf("model store is not configured"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get model status", err)
		}
		iocache.PrintModelStatus(os.Stdout, status)
	},
}

// modelsShowCmd decodes and lists the group models of one run.
var modelsShowCmd = &cobra.Command{
	Use:   "show <run-key>",
	Short: "Show the stored group models of a run",
	Long: `Decode the model snapshots stored for a run and list them in group order.

The run key is printed at the end of every 'ratingfit run' and recorded by the analysis store.

Examples:
  ratingfit models show 6f1c2a9e-4b7d-4c35-9a57-1f0e3f7c2d44`,
	Args:    cobra.ExactArgs(1),
	PreRunE: modelsSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		models, err := core.LoadRunModels(storeManager.GetModelStore(), args[0])
		if err != nil {
			contract.LogFatal("Failed to load run models", err)
		}
		fmt.Printf("Run %s: %d group models\n", args[0], len(models))
		for _, m := range models {
			fmt.Printf("  group %d: %s (snapshot v%d, stored %s)\n",
				m.Group, m.Model.Kind(), m.Version, m.StoredAt.Format("2006-01-02 15:04:05"))
		}
	},
}
