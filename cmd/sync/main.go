// Command sync runs one similarity sync from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mpgraph/infrastructure/config"
	"mpgraph/infrastructure/di"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	skipDivisions     bool
	skipLegislators   bool
	skipRelationships bool
)

var rootCmd = &cobra.Command{
	Use:   "sync",
	Short: "sync - rebuild the voting graph and export legislator similarity",
	Long: `
Pages through the Parliament members and votes APIs, upserts legislators,
divisions and VOTED_FOR edges into the graph store, then writes each
legislator's most similar peers to the document store.

Configuration comes from the environment, an optional .env file and the
YAML file named by CONFIG_FILE.
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&skipDivisions, "skip-divisions", false, "do not ingest divisions")
	rootCmd.Flags().BoolVar(&skipLegislators, "skip-legislators", false, "do not ingest legislators")
	rootCmd.Flags().BoolVar(&skipRelationships, "skip-relationships", false, "do not link votes")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	container, cleanup, err := di.InitializeSyncContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	defer cleanup()
	defer container.Shutdown(context.Background())

	p := container.Pipeline
	stages := p.Stages()
	stages.Divisions = stages.Divisions && !skipDivisions
	stages.Legislators = stages.Legislators && !skipLegislators
	stages.Relationships = stages.Relationships && !skipRelationships

	summary, runErr := p.WithStages(stages).Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Metrics.Push(pushCtx, cfg.PushgatewayURL, "mpgraph_sync"); err != nil {
			container.Logger.Warn("Failed to push metrics", zap.Error(err))
		}
	}

	if runErr != nil {
		container.Logger.Error("Sync failed", zap.Error(runErr))
		return runErr
	}

	container.Logger.Info("Sync completed",
		zap.String("run_id", summary.RunID),
		zap.Int("similarity_records", summary.SimilarityRecords),
	)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
