// Package planner retrieves candidate plans from the vector index and ranks
// them against the user's intent. Ranking prefers the reasoning model; when
// that fails, a local heuristic keeps the query answerable.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/index"
	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/pkg/anthropic"
)

const rankingPrompt = `You are a telecom plan recommendation expert. Based on the user's requirements and the available plans, rank the plans from most suitable to least suitable.

For each plan, provide a suitability score from 1-10 (10 being a perfect match), brief reasoning, and pros and cons relative to the requirements.

Respond with a JSON array only, sorted by score descending:
[
  {"plan_name": "...", "provider": "...", "score": 8.5, "reasoning": "...", "pros": ["..."], "cons": ["..."]}
]`

// QueryEmbedder embeds a search string for retrieval.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Planner runs retrieval and ranking.
type Planner struct {
	embedder  QueryEmbedder
	idx       index.Index
	client    anthropic.Client
	model     string
	maxTokens int64
	topK      int
}

// New creates a Planner.
func New(embedder QueryEmbedder, idx index.Index, client anthropic.Client, modelName string, maxTokens int64, topK int) *Planner {
	if topK <= 0 {
		topK = 5
	}
	return &Planner{
		embedder:  embedder,
		idx:       idx,
		client:    client,
		model:     modelName,
		maxTokens: maxTokens,
		topK:      topK,
	}
}

// Recommend retrieves up to topK candidates for the intent and ranks them.
// The second return reports degraded mode: the model rank failed and the
// local heuristic was used. ErrEmptyIndex passes through untouched so the
// caller can tell "nothing ingested" from "nothing matched".
func (p *Planner) Recommend(ctx context.Context, intent model.QueryIntent) ([]model.RankedPlan, bool, error) {
	searchQuery := BuildSearchQuery(intent)
	zap.L().Debug("plan retrieval", zap.String("search_query", searchQuery))

	vector, err := p.embedder.EmbedQuery(ctx, searchQuery)
	if err != nil {
		return nil, false, eris.Wrap(err, "planner: embed search query")
	}

	results, err := p.idx.Search(ctx, vector, index.Filter{Provider: intent.Provider}, p.topK)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	candidates := make([]model.ProcessedPlan, len(results))
	for i, r := range results {
		candidates[i] = r.Document.Plan
	}

	ranked, err := p.rankWithModel(ctx, intent, results)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		zap.L().Warn("planner: model ranking failed, using local scoring", zap.Error(err))
		return RankLocally(intent, candidates), true, nil
	}
	return ranked, false, nil
}

// rankedWire is the per-plan shape the ranking model produces.
type rankedWire struct {
	PlanName  string   `json:"plan_name"`
	Provider  string   `json:"provider"`
	Score     float64  `json:"score"`
	Reasoning string   `json:"reasoning"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
}

func (p *Planner) rankWithModel(ctx context.Context, intent model.QueryIntent, results []index.SearchResult) ([]model.RankedPlan, error) {
	temp := 0.2
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      []anthropic.SystemBlock{{Text: rankingPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: buildRankingInput(intent, results)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "planner: rank request")
	}
	resp.Usage.LogCost(p.model, "rank_plans")

	var wire []rankedWire
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &wire); err != nil {
		return nil, eris.Wrap(err, "planner: decode ranking")
	}
	if len(wire) == 0 {
		return nil, eris.Wrap(model.ErrRank, "planner: empty ranking")
	}

	// Join model output back to the retrieved plans; hallucinated entries
	// are dropped, omitted plans keep retrieval order at score zero.
	byKey := make(map[string]model.ProcessedPlan, len(results))
	for _, r := range results {
		byKey[planKey(r.Document.Plan.Provider, r.Document.Plan.Name)] = r.Document.Plan
	}

	ranked := make([]model.RankedPlan, 0, len(wire))
	matched := make(map[string]bool, len(wire))
	for _, w := range wire {
		key := planKey(w.Provider, w.PlanName)
		plan, ok := byKey[key]
		if !ok {
			zap.L().Warn("planner: dropping unknown plan from ranking",
				zap.String("provider", w.Provider),
				zap.String("plan", w.PlanName),
			)
			continue
		}
		if matched[key] {
			continue
		}
		matched[key] = true
		ranked = append(ranked, model.RankedPlan{
			Plan:      plan,
			Score:     clampScore(w.Score),
			Reasoning: w.Reasoning,
			Pros:      w.Pros,
			Cons:      w.Cons,
		})
	}
	if len(ranked) == 0 {
		return nil, eris.Wrap(model.ErrRank, "planner: ranking matched no retrieved plan")
	}
	for _, r := range results {
		key := planKey(r.Document.Plan.Provider, r.Document.Plan.Name)
		if !matched[key] {
			ranked = append(ranked, model.RankedPlan{Plan: r.Document.Plan})
		}
	}

	model.SortRanked(ranked)
	return ranked, nil
}

func buildRankingInput(intent model.QueryIntent, results []index.SearchResult) string {
	var b strings.Builder

	b.WriteString("User requirements:\n")
	if intent.BudgetCentsMax != nil {
		fmt.Fprintf(&b, "- Budget: $%d per month\n", *intent.BudgetCentsMax/100)
	} else {
		b.WriteString("- Budget: Not specified\n")
	}
	switch intent.Data.Kind {
	case model.DataUnlimited:
		b.WriteString("- Data needs: Unlimited\n")
	case model.DataFinite:
		fmt.Fprintf(&b, "- Data needs: %s\n", model.DataAllowance{AmountMB: intent.Data.AmountMB})
	default:
		b.WriteString("- Data needs: Not specified\n")
	}
	fmt.Fprintf(&b, "- Number of lines: %d\n", intent.LineCount)
	if len(intent.DesiredFeatures) > 0 {
		fmt.Fprintf(&b, "- Desired features: %s\n", strings.Join(intent.DesiredFeatures, ", "))
	} else {
		b.WriteString("- Desired features: None specified\n")
	}
	fmt.Fprintf(&b, "- Primary concern: %s\n", intent.PrimaryConcern)

	b.WriteString("\nAvailable plans:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "Plan %d:\n%s\n\n", i+1, r.Document.Text)
	}
	return b.String()
}

func planKey(provider, name string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + "/" + strings.ToLower(strings.TrimSpace(name))
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
