// Package intent turns a natural-language plan query into a structured
// QueryIntent via the reasoning model. Any failure falls back to a default
// intent rather than failing the query.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/pkg/anthropic"
)

const systemPrompt = `You are an assistant specialized in understanding telecom plan queries.
Extract the key information from the user's query and respond with a JSON object only, no prose:
{
  "budget_dollars_max": number or null,
  "data": {"kind": "unlimited" | "finite" | "unspecified", "amount_mb": number or null},
  "line_count": number or null,
  "desired_features": ["feature", ...],
  "primary_concern": "price" | "data" | "coverage" | "features" | "unspecified",
  "provider": "carrier name or empty string"
}
Use null or "unspecified" for anything the query does not state. Do not guess.`

// parsedIntent is the wire shape the model is asked to produce.
type parsedIntent struct {
	BudgetDollarsMax *float64 `json:"budget_dollars_max"`
	Data             struct {
		Kind     string `json:"kind"`
		AmountMB *int64 `json:"amount_mb"`
	} `json:"data"`
	LineCount       *int     `json:"line_count"`
	DesiredFeatures []string `json:"desired_features"`
	PrimaryConcern  string   `json:"primary_concern"`
	Provider        string   `json:"provider"`
}

// Parser extracts structured intent from query text.
type Parser struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewParser creates a Parser using the given reasoning client.
func NewParser(client anthropic.Client, modelName string, maxTokens int64) *Parser {
	return &Parser{client: client, model: modelName, maxTokens: maxTokens}
}

// Parse extracts intent from the query. The second return reports degraded
// mode: true when the model call or its output failed and the default intent
// was substituted. Context cancellation is the only hard error.
func (p *Parser) Parse(ctx context.Context, query string) (model.QueryIntent, bool, error) {
	temp := 0.1
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: query}},
		Temperature: &temp,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.QueryIntent{}, false, ctx.Err()
		}
		zap.L().Warn("intent: model call failed, using defaults", zap.Error(err))
		return model.DefaultIntent(), true, nil
	}
	resp.Usage.LogCost(p.model, "parse_intent")

	intent, err := decodeIntent(resp.Text())
	if err != nil {
		zap.L().Warn("intent: unusable model output, using defaults",
			zap.String("output", truncate(resp.Text(), 200)),
			zap.Error(err),
		)
		return model.DefaultIntent(), true, nil
	}
	return intent, false, nil
}

// decodeIntent parses and validates the model's JSON output into a
// QueryIntent with every field populated.
func decodeIntent(text string) (model.QueryIntent, error) {
	var wire parsedIntent
	if err := json.Unmarshal([]byte(stripFences(text)), &wire); err != nil {
		return model.QueryIntent{}, err
	}

	intent := model.DefaultIntent()

	if wire.BudgetDollarsMax != nil && *wire.BudgetDollarsMax > 0 {
		cents := int64(*wire.BudgetDollarsMax*100 + 0.5)
		intent.BudgetCentsMax = &cents
	}

	switch model.DataKind(wire.Data.Kind) {
	case model.DataUnlimited:
		intent.Data = model.DataRequirement{Kind: model.DataUnlimited}
	case model.DataFinite:
		if wire.Data.AmountMB != nil && *wire.Data.AmountMB > 0 {
			intent.Data = model.DataRequirement{Kind: model.DataFinite, AmountMB: *wire.Data.AmountMB}
		}
	}

	if wire.LineCount != nil && *wire.LineCount >= 1 {
		intent.LineCount = *wire.LineCount
	}

	for _, f := range wire.DesiredFeatures {
		if f = strings.TrimSpace(f); f != "" {
			intent.DesiredFeatures = append(intent.DesiredFeatures, f)
		}
	}

	if model.ValidConcern(wire.PrimaryConcern) {
		intent.PrimaryConcern = model.Concern(wire.PrimaryConcern)
	}

	intent.Provider = strings.TrimSpace(wire.Provider)
	return intent, nil
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
