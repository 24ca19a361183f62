package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
)

// IntentParser extracts structured intent from query text.
type IntentParser interface {
	Parse(ctx context.Context, query string) (model.QueryIntent, bool, error)
}

// Recommender retrieves and ranks candidate plans.
type Recommender interface {
	Recommend(ctx context.Context, intent model.QueryIntent) ([]model.RankedPlan, bool, error)
}

// NarrativeGenerator writes the final answer.
type NarrativeGenerator interface {
	Generate(ctx context.Context, query string, intent model.QueryIntent, ranked []model.RankedPlan) (string, bool, error)
}

// Advisor runs the query pipeline. Each stage's degraded flag is folded into
// the response so callers can render a disclaimer.
type Advisor struct {
	parser    IntentParser
	planner   Recommender
	generator NarrativeGenerator
}

// NewAdvisor creates an Advisor.
func NewAdvisor(parser IntentParser, planner Recommender, generator NarrativeGenerator) *Advisor {
	return &Advisor{parser: parser, planner: planner, generator: generator}
}

// Ask answers one plan query. An empty index or a canceled context is
// terminal; everything else degrades to a fallback and still answers.
func (a *Advisor) Ask(ctx context.Context, query string) (*model.RecommendationResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.Wrap(model.ErrParse, "advisor: empty query")
	}
	log := zap.L().With(zap.String("query", query))
	log.Info("query received")

	intent, parseDegraded, err := a.parser.Parse(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "advisor: parse intent")
	}

	ranked, rankDegraded, err := a.planner.Recommend(ctx, intent)
	if err != nil {
		return nil, eris.Wrap(err, "advisor: recommend")
	}

	narrative, genDegraded, err := a.generator.Generate(ctx, query, intent, ranked)
	if err != nil {
		return nil, eris.Wrap(err, "advisor: generate response")
	}

	degraded := parseDegraded || rankDegraded || genDegraded
	log.Info("query completed",
		zap.Int("ranked_plans", len(ranked)),
		zap.Bool("degraded", degraded),
	)
	return &model.RecommendationResponse{
		QueryText:   query,
		Intent:      intent,
		RankedPlans: ranked,
		Narrative:   narrative,
		Degraded:    degraded,
	}, nil
}
