package main

import (
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index contents per provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Index.Stats(ctx)
		if err != nil {
			return err
		}

		cmd.Printf("Indexed documents: %d\n", stats.Documents)
		if env.Index.Ephemeral() {
			cmd.Println("Backend: in-memory (contents are lost on exit)")
		}
		providers := make([]string, 0, len(stats.Providers))
		for p := range stats.Providers {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		for _, p := range providers {
			cmd.Printf("  %-12s %d\n", p, stats.Providers[p])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
