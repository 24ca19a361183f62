package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/planwise/plan-advisor/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Ask for a plan recommendation in natural language",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Advisor.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		printRecommendation(cmd, resp)
		return nil
	},
}

func printRecommendation(cmd *cobra.Command, resp *model.RecommendationResponse) {
	cmd.Println(resp.Narrative)
	if len(resp.RankedPlans) > 0 {
		cmd.Println()
		for i, r := range resp.RankedPlans {
			cmd.Printf("%d. %s — %s (%s, %s data, score %.1f)\n",
				i+1, r.Plan.Name, r.Plan.Provider, r.Plan.Price, r.Plan.Data, r.Score)
		}
	}
	if resp.Degraded {
		cmd.Println("\nNote: some recommendation stages ran in fallback mode; results may be less precise.")
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
}
