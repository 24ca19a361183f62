package model

import "sort"

// DataRequirement describes how much data the user asked for.
type DataRequirement struct {
	Kind     DataKind `json:"kind"`
	AmountMB int64    `json:"amount_mb,omitempty"`
}

// DataKind enumerates data-requirement categories.
type DataKind string

const (
	DataUnlimited   DataKind = "unlimited"
	DataFinite      DataKind = "finite"
	DataUnspecified DataKind = "unspecified"
)

// Concern enumerates what the user cares about most.
type Concern string

const (
	ConcernPrice       Concern = "price"
	ConcernData        Concern = "data"
	ConcernCoverage    Concern = "coverage"
	ConcernFeatures    Concern = "features"
	ConcernUnspecified Concern = "unspecified"
)

// ValidConcern reports whether s is a known concern value.
func ValidConcern(s string) bool {
	switch Concern(s) {
	case ConcernPrice, ConcernData, ConcernCoverage, ConcernFeatures, ConcernUnspecified:
		return true
	}
	return false
}

// QueryIntent is the structured form of a user query. Every field is always
// populated; unknown values take explicit defaults so downstream stages need
// no nil-checks (LineCount is never below 1).
type QueryIntent struct {
	BudgetCentsMax  *int64          `json:"budget_cents_max,omitempty"`
	Data            DataRequirement `json:"data"`
	LineCount       int             `json:"line_count"`
	DesiredFeatures []string        `json:"desired_features"`
	PrimaryConcern  Concern         `json:"primary_concern"`
	Provider        string          `json:"provider,omitempty"`
}

// DefaultIntent is the fallback intent when parsing fails: a single line,
// everything else unspecified.
func DefaultIntent() QueryIntent {
	return QueryIntent{
		Data:            DataRequirement{Kind: DataUnspecified},
		LineCount:       1,
		DesiredFeatures: []string{},
		PrimaryConcern:  ConcernUnspecified,
	}
}

// RankedPlan is a candidate plan with its suitability score and explanation.
type RankedPlan struct {
	Plan      ProcessedPlan `json:"plan"`
	Score     float64       `json:"score"`
	Reasoning string        `json:"reasoning"`
	Pros      []string      `json:"pros,omitempty"`
	Cons      []string      `json:"cons,omitempty"`
}

// SortRanked enforces the ordering invariant: score descending, ties broken
// by ascending price.
func SortRanked(plans []RankedPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Score != plans[j].Score {
			return plans[i].Score > plans[j].Score
		}
		return plans[i].Plan.Price.AmountCents < plans[j].Plan.Price.AmountCents
	})
}

// RecommendationResponse is the final answer for one query. Degraded is true
// whenever any fallback path was used upstream, so callers can render a
// disclaimer.
type RecommendationResponse struct {
	QueryText   string       `json:"query_text"`
	Intent      QueryIntent  `json:"intent"`
	RankedPlans []RankedPlan `json:"ranked_plans"`
	Narrative   string       `json:"narrative"`
	Degraded    bool         `json:"degraded"`
}
