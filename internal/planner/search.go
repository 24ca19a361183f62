package planner

import (
	"fmt"
	"strings"

	"github.com/planwise/plan-advisor/internal/model"
)

// BuildSearchQuery composes the retrieval search string from structured
// intent. Unspecified fields contribute nothing; a fully unspecified intent
// falls back to a generic catalog query.
func BuildSearchQuery(intent model.QueryIntent) string {
	var parts []string

	switch intent.Data.Kind {
	case model.DataUnlimited:
		parts = append(parts, "plan with unlimited data")
	case model.DataFinite:
		parts = append(parts, fmt.Sprintf("plan with %s data", model.DataAllowance{AmountMB: intent.Data.AmountMB}))
	}

	if intent.BudgetCentsMax != nil {
		parts = append(parts, fmt.Sprintf("budget $%d per month", *intent.BudgetCentsMax/100))
	}

	if intent.LineCount > 1 {
		parts = append(parts, fmt.Sprintf("for %d lines", intent.LineCount))
	}

	if len(intent.DesiredFeatures) > 0 {
		parts = append(parts, "with features: "+strings.Join(intent.DesiredFeatures, ", "))
	}

	if intent.PrimaryConcern != model.ConcernUnspecified {
		parts = append(parts, "optimized for "+string(intent.PrimaryConcern))
	}

	if intent.Provider != "" {
		parts = append(parts, "from "+intent.Provider)
	}

	if len(parts) == 0 {
		return "mobile phone plan"
	}
	return strings.Join(parts, " ")
}
