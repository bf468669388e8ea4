package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nvoronin/libris/internal/bootstrap"
	"github.com/nvoronin/libris/internal/config"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Document ingestion pipeline for the personal library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), triggerCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass over the source bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if bucket != "" {
				cfg.S3Bucket = bucket
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.New(ctx, cfg, "ingest")
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			defer app.Close()

			report, err := app.RunUC.Run(ctx)
			if err != nil {
				return fmt.Errorf("pipeline run: %w", err)
			}
			if !report.Succeeded() {
				return fmt.Errorf("run %s finished with load failures", report.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "source bucket (overrides S3_BUCKET)")
	return cmd
}

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask a running worker to start an ingestion pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			app, err := bootstrap.New(cmd.Context(), cfg, "ingest-trigger")
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			defer app.Close()

			if err := app.Queue.PublishRunRequested(cmd.Context()); err != nil {
				return fmt.Errorf("publish run request: %w", err)
			}
			fmt.Printf("run requested on %s\n", cfg.NATSSubject)
			return nil
		},
	}
}
