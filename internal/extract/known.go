package extract

import (
	"strings"

	"github.com/planwise/plan-advisor/internal/model"
)

// knownPlans is a static snapshot of widely advertised plans per carrier.
// Used as the last extraction rung so a blocked or redesigned page still
// yields something indexable rather than nothing.
var knownPlans = map[string][]model.RawPlanRecord{
	"verizon": {
		{
			Name:            "5G Get More",
			PriceText:       "$90/month",
			DataText:        "Unlimited",
			AutopayDiscount: "$10",
			Features: []string{
				"Unlimited premium data",
				"30GB mobile hotspot",
				"Disney+ included",
				"Apple Music included",
			},
		},
		{
			Name:            "5G Play More",
			PriceText:       "$80/month",
			DataText:        "Unlimited",
			AutopayDiscount: "$10",
			Features: []string{
				"Unlimited premium data",
				"25GB mobile hotspot",
				"Disney+ included",
			},
		},
	},
	"att": {
		{
			Name:            "Unlimited Premium",
			PriceText:       "$85/month",
			DataText:        "Unlimited",
			AutopayDiscount: "$10",
			Features: []string{
				"Unlimited premium data",
				"60GB mobile hotspot",
				"Canada and Mexico usage included",
			},
		},
		{
			Name:            "Unlimited Extra",
			PriceText:       "$75/month",
			DataText:        "Unlimited",
			AutopayDiscount: "$10",
			Features: []string{
				"75GB premium data",
				"30GB mobile hotspot",
			},
		},
		{
			Name:            "Unlimited Starter",
			PriceText:       "$65/month",
			DataText:        "Unlimited",
			AutopayDiscount: "$10",
			Features: []string{
				"Unlimited data",
				"5GB mobile hotspot",
			},
		},
	},
	"tmobile": {
		{
			Name:      "Go5G Plus",
			PriceText: "$90/month",
			DataText:  "Unlimited",
			Features: []string{
				"Unlimited premium data",
				"50GB mobile hotspot",
				"Netflix included",
				"Upgrade-ready every two years",
			},
		},
		{
			Name:      "Go5G",
			PriceText: "$75/month",
			DataText:  "Unlimited",
			Features: []string{
				"100GB premium data",
				"15GB mobile hotspot",
			},
		},
		{
			Name:      "Essentials",
			PriceText: "$60/month",
			DataText:  "Unlimited",
			Features: []string{
				"Unlimited data",
				"Unlimited 3G mobile hotspot",
			},
		},
	},
}

// KnownPlansStrategy serves the static table for providers it recognizes.
type KnownPlansStrategy struct{}

// NewKnownPlansStrategy creates a KnownPlansStrategy.
func NewKnownPlansStrategy() *KnownPlansStrategy { return &KnownPlansStrategy{} }

func (k *KnownPlansStrategy) Name() string { return "known_plans" }

// Extract returns the static records for the page's provider, stamped with
// the page URL. Unknown providers yield nothing.
func (k *KnownPlansStrategy) Extract(page *model.RawPage) []model.RawPlanRecord {
	key := normalizeProviderKey(page.Provider)
	plans, ok := knownPlans[key]
	if !ok {
		return nil
	}

	out := make([]model.RawPlanRecord, len(plans))
	for i, p := range plans {
		p.Provider = page.Provider
		p.SourceURL = page.URL
		out[i] = p
	}
	return out
}

func normalizeProviderKey(provider string) string {
	key := strings.ToLower(strings.TrimSpace(provider))
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "&", "")
	return key
}
