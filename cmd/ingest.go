package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/internal/pipeline"
)

var (
	ingestForce    bool
	ingestProvider string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch provider plan pages and build the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := requireProviders(); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		providers := cfg.Providers
		if ingestProvider != "" {
			p, ok := cfg.Provider(ingestProvider)
			if !ok {
				return eris.Errorf("unknown provider %q", ingestProvider)
			}
			providers = []model.ProviderConfig{p}
		}

		results, err := env.Ingestor.IngestAll(ctx, providers, ingestOptions(ingestForce))
		for _, r := range results {
			printIngestResult(cmd, r)
		}
		return err
	},
}

func printIngestResult(cmd *cobra.Command, r pipeline.IngestResult) {
	switch r.State {
	case pipeline.StateFailed:
		cmd.Printf("%-12s FAILED: %v\n", r.Provider, r.Err)
	default:
		suffix := ""
		if r.FromCache {
			suffix += " (from cache)"
		}
		if r.Degraded {
			suffix += " [degraded]"
		}
		cmd.Printf("%-12s %s: %d plans, %d indexed%s\n", r.Provider, r.State, r.Plans, r.Indexed, suffix)
	}
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "refetch even when the cache is fresh")
	ingestCmd.Flags().StringVar(&ingestProvider, "provider", "", "ingest a single provider by name")
	rootCmd.AddCommand(ingestCmd)
}
