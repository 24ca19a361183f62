// Package normalize turns raw extracted records into validated plans:
// free-text prices become integer cents, data allowances become a canonical
// megabyte count or an unlimited flag, and names and features get cleaned up.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/planwise/plan-advisor/internal/model"
)

var (
	amountRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	dataAmtRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(TB|GB|MB)`)

	// Marketing suffixes that leak into scraped plan names.
	unwantedPhrases = []string{
		"per line",
		"plan details",
		"learn more",
		"see details",
		"new",
	}

	titleCaser = cases.Title(language.AmericanEnglish, cases.NoLower)

	centsPerDollar = decimal.NewFromInt(100)
)

// Normalizer converts RawPlanRecords into ProcessedPlans.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer stamping plans with wall-clock time.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize converts a batch of raw records. Records that cannot be
// normalized are dropped with a logged warning; duplicates on the
// (provider, name) key keep the first occurrence. An error is returned only
// when no record survives.
func (n *Normalizer) Normalize(records []model.RawPlanRecord) ([]model.ProcessedPlan, error) {
	seen := make(map[string]bool, len(records))
	plans := make([]model.ProcessedPlan, 0, len(records))
	for _, r := range records {
		plan, err := n.normalizeOne(r)
		if err != nil {
			zap.L().Warn("normalize: dropping record",
				zap.String("provider", r.Provider),
				zap.String("name", r.Name),
				zap.Error(err),
			)
			continue
		}
		if seen[plan.Key()] {
			continue
		}
		seen[plan.Key()] = true
		plans = append(plans, plan)
	}
	if len(plans) == 0 {
		return nil, eris.Errorf("normalize: no valid plans in %d records", len(records))
	}
	model.SortPlans(plans)
	return plans, nil
}

func (n *Normalizer) normalizeOne(r model.RawPlanRecord) (model.ProcessedPlan, error) {
	cents, err := ParsePriceCents(r.PriceText)
	if err != nil {
		return model.ProcessedPlan{}, err
	}
	if r.AutopayDiscount != "" {
		discount, err := ParsePriceCents(r.AutopayDiscount)
		if err == nil && discount < cents {
			cents -= discount
		}
	}

	price := model.Price{AmountCents: cents, Currency: "USD", Period: "month"}
	return model.NewProcessedPlan(
		r.Provider,
		CleanPlanName(r.Name),
		price,
		ParseDataAllowance(r.DataText),
		CleanFeatures(r.Features),
		r.SourceURL,
		n.now(),
	)
}

// ParsePriceCents parses a free-text monthly price into integer cents.
// Accepts "$85/month", "85.50", "$10 off with Auto Pay" (first amount wins).
func ParsePriceCents(text string) (int64, error) {
	raw := amountRe.FindString(text)
	if raw == "" {
		return 0, eris.Errorf("price: no amount in %q", text)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "price: parse %q", raw)
	}
	cents := d.Mul(centsPerDollar).Round(0)
	if !cents.IsInteger() || cents.IsNegative() {
		return 0, eris.Errorf("price: invalid amount %q", raw)
	}
	return cents.IntPart(), nil
}

// ParseDataAllowance parses free-text data into a canonical allowance.
// "Unlimited" (any spelling) wins over amounts; unit amounts convert to MB
// with 1GB = 1000MB. Unparseable text yields a zero finite allowance.
func ParseDataAllowance(text string) model.DataAllowance {
	if strings.Contains(strings.ToLower(text), "unlimited") {
		return model.DataAllowance{Unlimited: true}
	}
	m := dataAmtRe.FindStringSubmatch(text)
	if m == nil {
		return model.DataAllowance{}
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return model.DataAllowance{}
	}
	switch strings.ToUpper(m[2]) {
	case "TB":
		amount = amount.Mul(decimal.NewFromInt(1000 * 1000))
	case "GB":
		amount = amount.Mul(decimal.NewFromInt(1000))
	}
	return model.DataAllowance{AmountMB: amount.Round(0).IntPart()}
}

// CleanPlanName strips marketing suffixes and whitespace and title-cases
// all-lower or all-upper names, leaving mixed-case branding alone.
func CleanPlanName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	lower := strings.ToLower(name)
	for _, phrase := range unwantedPhrases {
		if idx := strings.Index(lower, phrase); idx > 0 {
			name = strings.TrimSpace(name[:idx])
			lower = strings.ToLower(name)
		}
	}
	if name == strings.ToLower(name) || name == strings.ToUpper(name) {
		name = titleCaser.String(strings.ToLower(name))
	}
	return name
}

// CleanFeatures trims, collapses whitespace in, and dedupes feature strings,
// preserving order.
func CleanFeatures(features []string) []string {
	seen := make(map[string]bool, len(features))
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.Join(strings.Fields(f), " ")
		key := strings.ToLower(f)
		if f == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
