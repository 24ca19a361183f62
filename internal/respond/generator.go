// Package respond turns ranked plans into a conversational recommendation.
// The reasoning model writes the narrative; when it fails, a template built
// from the top plan keeps the answer useful.
package respond

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/pkg/anthropic"
)

const narrativePrompt = `You are a helpful telecom plan advisor. Given the user's query, their extracted requirements, and the ranked plans, write a friendly, concise recommendation that:
1. Acknowledges the query
2. Recommends the top 2-3 plans and explains why they match the requirements
3. Compares key features and pricing of the recommended plans
4. Asks if they need clarification or have additional requirements
Respond with prose only, no JSON or markdown headings.`

// Generator produces the final narrative.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewGenerator creates a Generator.
func NewGenerator(client anthropic.Client, modelName string, maxTokens int64) *Generator {
	return &Generator{client: client, model: modelName, maxTokens: maxTokens}
}

// Generate writes the narrative for the ranked plans. The second return
// reports degraded mode: the model call failed and the templated fallback
// was used. Context cancellation is the only hard error.
func (g *Generator) Generate(ctx context.Context, query string, intent model.QueryIntent, ranked []model.RankedPlan) (string, bool, error) {
	if len(ranked) == 0 {
		return NoMatchNarrative(intent), false, nil
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    []anthropic.SystemBlock{{Text: narrativePrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: buildNarrativeInput(query, intent, ranked)}},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		zap.L().Warn("respond: model call failed, using templated narrative", zap.Error(err))
		return FallbackNarrative(ranked), true, nil
	}
	resp.Usage.LogCost(g.model, "generate_response")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		zap.L().Warn("respond: empty model output, using templated narrative")
		return FallbackNarrative(ranked), true, nil
	}
	return text, false, nil
}

// FallbackNarrative builds a recommendation from the top-ranked plan without
// the reasoning model.
func FallbackNarrative(ranked []model.RankedPlan) string {
	top := ranked[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your requirements, the best match is %s from %s at %s",
		top.Plan.Name, top.Plan.Provider, top.Plan.Price)
	if top.Plan.Data.Unlimited {
		b.WriteString(" with unlimited data")
	}
	b.WriteString(".")
	if len(top.Pros) > 0 {
		fmt.Fprintf(&b, " Highlights: %s.", strings.Join(top.Pros, "; "))
	}
	if len(ranked) > 1 {
		next := ranked[1]
		fmt.Fprintf(&b, " Also worth a look: %s from %s at %s.",
			next.Plan.Name, next.Plan.Provider, next.Plan.Price)
	}
	return b.String()
}

// NoMatchNarrative is the answer when retrieval produced nothing for the
// user's constraints.
func NoMatchNarrative(intent model.QueryIntent) string {
	if intent.Provider != "" {
		return fmt.Sprintf("I couldn't find any %s plans matching your requirements. Try broadening the search to all carriers or adjusting your budget.", intent.Provider)
	}
	return "I couldn't find any plans matching your requirements. Try adjusting your budget or data needs."
}

func buildNarrativeInput(query string, intent model.QueryIntent, ranked []model.RankedPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User query: %q\n\n", query)

	b.WriteString("Extracted requirements:\n")
	if intent.BudgetCentsMax != nil {
		fmt.Fprintf(&b, "- Budget: $%d per month\n", *intent.BudgetCentsMax/100)
	}
	if intent.Data.Kind != model.DataUnspecified {
		fmt.Fprintf(&b, "- Data: %s\n", describeData(intent.Data))
	}
	fmt.Fprintf(&b, "- Lines: %d\n", intent.LineCount)
	if len(intent.DesiredFeatures) > 0 {
		fmt.Fprintf(&b, "- Features: %s\n", strings.Join(intent.DesiredFeatures, ", "))
	}
	fmt.Fprintf(&b, "- Primary concern: %s\n", intent.PrimaryConcern)

	b.WriteString("\nRanked plans:\n")
	for i, r := range ranked {
		fmt.Fprintf(&b, "Plan %d: %s (%s)\n", i+1, r.Plan.Name, r.Plan.Provider)
		fmt.Fprintf(&b, "Score: %.1f/10\n", r.Score)
		fmt.Fprintf(&b, "Price: %s, Data: %s\n", r.Plan.Price, r.Plan.Data)
		if r.Reasoning != "" {
			fmt.Fprintf(&b, "Reasoning: %s\n", r.Reasoning)
		}
		for _, pro := range r.Pros {
			fmt.Fprintf(&b, "Pro: %s\n", pro)
		}
		for _, con := range r.Cons {
			fmt.Fprintf(&b, "Con: %s\n", con)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func describeData(d model.DataRequirement) string {
	if d.Kind == model.DataUnlimited {
		return "Unlimited"
	}
	return model.DataAllowance{AmountMB: d.AmountMB}.String()
}
