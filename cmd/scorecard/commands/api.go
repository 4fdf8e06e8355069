package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/api"
	"github.com/wonny/ecfr-scorecard/internal/api/handlers"
	"github.com/wonny/ecfr-scorecard/pkg/redis"
)

var apiPort string

// apiCmd serves the read-only scorecard API
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only API server",
	Long: `Serve the current published snapshot over HTTP.

Every response reads one snapshot; a publish never shows partially.
Responses are cached in Redis per snapshot when REDIS_ENABLED=true.

Example:
  go run ./cmd/scorecard api
  go run ./cmd/scorecard api --port 9090`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVarP(&apiPort, "port", "p", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":  a.cfg.Port,
		"env":   a.cfg.Env,
		"cache": a.redis.Enabled(),
		"redis": a.redis.Addr(),
	}).Info("Initializing API server")

	handler := handlers.NewScorecardHandler(a.store, redis.NewCache(a.redis, "scorecard"), a.log)
	router := api.NewRouter(handler, a.db, a.log)
	server := api.New(a.cfg, a.log, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server exited")
	return nil
}
