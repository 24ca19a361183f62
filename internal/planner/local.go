package planner

import (
	"fmt"
	"strings"

	"github.com/planwise/plan-advisor/internal/model"
)

// RankLocally scores candidates without the reasoning model: budget fit
// dominates, then data fit, then matched features. Scores land on the same
// 0-10 scale the model uses so downstream rendering is identical.
func RankLocally(intent model.QueryIntent, candidates []model.ProcessedPlan) []model.RankedPlan {
	ranked := make([]model.RankedPlan, 0, len(candidates))
	for _, plan := range candidates {
		ranked = append(ranked, scoreLocally(intent, plan))
	}
	model.SortRanked(ranked)
	return ranked
}

func scoreLocally(intent model.QueryIntent, plan model.ProcessedPlan) model.RankedPlan {
	score := 5.0
	var pros, cons []string

	if intent.BudgetCentsMax != nil {
		budget := *intent.BudgetCentsMax
		if plan.Price.AmountCents <= budget {
			// Within budget; cheaper is better.
			headroom := float64(budget-plan.Price.AmountCents) / float64(budget)
			score += 2 + headroom
			pros = append(pros, fmt.Sprintf("Within your budget at %s", plan.Price))
		} else {
			overage := float64(plan.Price.AmountCents-budget) / float64(budget)
			if overage > 1 {
				overage = 1
			}
			score -= 3 * overage
			cons = append(cons, fmt.Sprintf("Over your budget at %s", plan.Price))
		}
	}

	switch intent.Data.Kind {
	case model.DataUnlimited:
		if plan.Data.Unlimited {
			score++
			pros = append(pros, "Unlimited data")
		} else {
			score--
			cons = append(cons, fmt.Sprintf("Capped at %s of data", plan.Data))
		}
	case model.DataFinite:
		if plan.Data.Unlimited || plan.Data.AmountMB >= intent.Data.AmountMB {
			score++
			pros = append(pros, fmt.Sprintf("Covers your %s data need", model.DataAllowance{AmountMB: intent.Data.AmountMB}))
		} else {
			score--
			cons = append(cons, fmt.Sprintf("Only %s of data", plan.Data))
		}
	}

	matched := matchFeatures(intent.DesiredFeatures, plan.Features)
	if bonus := 0.5 * float64(len(matched)); bonus > 2 {
		score += 2
	} else {
		score += bonus
	}
	for _, f := range matched {
		pros = append(pros, "Includes "+f)
	}

	return model.RankedPlan{
		Plan:      plan,
		Score:     clampScore(score),
		Reasoning: fmt.Sprintf("%s %s scored on budget, data, and feature fit.", plan.Provider, plan.Name),
		Pros:      pros,
		Cons:      cons,
	}
}

// matchFeatures returns plan features that contain any desired feature,
// case-insensitively.
func matchFeatures(desired, features []string) []string {
	var matched []string
	for _, f := range features {
		lf := strings.ToLower(f)
		for _, want := range desired {
			if want != "" && strings.Contains(lf, strings.ToLower(want)) {
				matched = append(matched, f)
				break
			}
		}
	}
	return matched
}
