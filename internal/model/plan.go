package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RawPage holds fetched page content for a provider. It is consumed by the
// extractor and discarded afterwards.
type RawPage struct {
	Provider  string    `json:"provider"`
	URL       string    `json:"url"`
	HTML      string    `json:"html"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RawPlanRecord is an unvalidated plan as pulled out of page markup.
// All fields are free text; normalization turns it into a ProcessedPlan.
type RawPlanRecord struct {
	Provider        string   `json:"provider"`
	Name            string   `json:"name"`
	PriceText       string   `json:"price_text"`
	DataText        string   `json:"data_text"`
	Features        []string `json:"features,omitempty"`
	AutopayDiscount string   `json:"autopay_discount,omitempty"`
	SourceURL       string   `json:"source_url"`
}

// Price is a normalized monthly price.
type Price struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Period      string `json:"period"`
}

// String renders the price for display, e.g. "$80/month".
func (p Price) String() string {
	dollars := p.AmountCents / 100
	cents := p.AmountCents % 100
	if cents == 0 {
		return fmt.Sprintf("$%d/%s", dollars, p.Period)
	}
	return fmt.Sprintf("$%d.%02d/%s", dollars, cents, p.Period)
}

// DataAllowance is a normalized data amount: either unlimited or a finite
// number of megabytes.
type DataAllowance struct {
	Unlimited bool  `json:"unlimited"`
	AmountMB  int64 `json:"amount_mb,omitempty"`
}

// String renders the allowance for display. Carrier marketing quotes
// fractional-gig allowances in GB ("0.5GB"), so anything from half a gig up
// renders in GB and only truly small add-on buckets stay in MB.
func (d DataAllowance) String() string {
	if d.Unlimited {
		return "Unlimited"
	}
	if d.AmountMB >= 500 {
		return fmt.Sprintf("%gGB", float64(d.AmountMB)/1000)
	}
	return fmt.Sprintf("%dMB", d.AmountMB)
}

// ProcessedPlan is the canonical plan entity. (Provider, Name) is the unique
// key; AmountCents is never negative; Features holds no duplicates.
type ProcessedPlan struct {
	Provider     string        `json:"provider"`
	Name         string        `json:"name"`
	Price        Price         `json:"price"`
	Data         DataAllowance `json:"data"`
	Features     []string      `json:"features"`
	SourceURL    string        `json:"source_url"`
	NormalizedAt time.Time     `json:"normalized_at"`
}

// NewProcessedPlan validates invariants at construction: non-empty key,
// non-negative price, deduplicated features.
func NewProcessedPlan(provider, name string, price Price, data DataAllowance, features []string, sourceURL string, at time.Time) (ProcessedPlan, error) {
	if strings.TrimSpace(provider) == "" {
		return ProcessedPlan{}, fmt.Errorf("plan: empty provider")
	}
	if strings.TrimSpace(name) == "" {
		return ProcessedPlan{}, fmt.Errorf("plan: empty name")
	}
	if price.AmountCents < 0 {
		return ProcessedPlan{}, fmt.Errorf("plan %q: negative price %d cents", name, price.AmountCents)
	}

	seen := make(map[string]bool, len(features))
	deduped := make([]string, 0, len(features))
	for _, f := range features {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		deduped = append(deduped, f)
	}

	return ProcessedPlan{
		Provider:     provider,
		Name:         name,
		Price:        price,
		Data:         data,
		Features:     deduped,
		SourceURL:    sourceURL,
		NormalizedAt: at,
	}, nil
}

// Key returns the unique (provider, name) key for the plan.
func (p ProcessedPlan) Key() string {
	return p.Provider + "/" + p.Name
}

// DocumentID derives the stable embedding-document ID for the plan. The same
// provider, name, and schema version always produce the same ID, so repeated
// ingestion runs upsert instead of duplicating.
func (p ProcessedPlan) DocumentID() string {
	sum := sha256.Sum256([]byte(p.Provider + "\x00" + p.Name + "\x00" + DocumentSchemaVersion))
	return hex.EncodeToString(sum[:16])
}

// DocumentSchemaVersion is folded into document IDs. Bump it when the embedded
// text representation changes so stale vectors are replaced on re-ingest.
const DocumentSchemaVersion = "v1"

// EmbeddingText builds the text representation of the plan that gets embedded.
func (p ProcessedPlan) EmbeddingText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Provider: %s\n", p.Provider)
	fmt.Fprintf(&b, "Price: %s\n", p.Price)
	fmt.Fprintf(&b, "Data: %s\n", p.Data)
	if len(p.Features) > 0 {
		b.WriteString("Features:\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	fmt.Fprintf(&b, "More information: %s", p.SourceURL)
	return b.String()
}

// SortPlans orders plans by provider then name, for stable cache files.
func SortPlans(plans []ProcessedPlan) {
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Provider != plans[j].Provider {
			return plans[i].Provider < plans[j].Provider
		}
		return plans[i].Name < plans[j].Name
	})
}

// ProviderConfig describes one provider's plan page and extraction tuning.
// Selector maps are swappable per provider without touching pipeline logic.
type ProviderConfig struct {
	Name            string `yaml:"name" mapstructure:"name"`
	URL             string `yaml:"url" mapstructure:"url"`
	WaitSelector    string `yaml:"wait_selector" mapstructure:"wait_selector"`
	SelectorMapPath string `yaml:"selector_map" mapstructure:"selector_map"`
}
