package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/s3_publish"
)

// migrateCmd creates the serving and staging schemas
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the serving and staging schemas",
	Long: `Create the Postgres serving schema and the DuckDB staging tables.

Both migrations are idempotent and safe to run on every deploy.

Example:
  go run ./cmd/scorecard migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s3_publish.Migrate(ctx, a.db.Pool); err != nil {
		return fmt.Errorf("migrate serving schema: %w", err)
	}
	PrintSuccess("Serving schema ready")

	// staging.Open migrates on open
	st, err := a.openStaging(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	PrintSuccess(fmt.Sprintf("Staging store ready (%s)", stagingLabel(st.Path())))

	return nil
}

func stagingLabel(path string) string {
	if path == "" {
		return "in-memory"
	}
	return path
}
