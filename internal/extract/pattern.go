package extract

import (
	"regexp"
	"strings"

	"github.com/planwise/plan-advisor/internal/model"
)

// planNameRe matches the plan-name vocabulary the major carriers use.
var planNameRe = regexp.MustCompile(`(?i)\b(` +
	`Unlimited (?:Ultimate|Plus|Welcome|Premium|Extra|Starter|Elite)|` +
	`5G (?:Get More|Play More|Do More|Start)|` +
	`Go5G(?: Plus| Next)?|` +
	`Magenta(?: MAX)?|` +
	`Essentials(?: Saver)?|` +
	`Value Plus` +
	`)\b`)

// priceRe matches a monthly price like "$75/mo", "$85 per month", "$60.00".
var priceRe = regexp.MustCompile(`\$\d+(?:\.\d{2})?\s*(?:/|\bper\s+)?\s*mo(?:nth)?\b|\$\d+(?:\.\d{2})?`)

// dataRe matches a data allowance like "Unlimited", "50GB", "2.5 GB".
var dataRe = regexp.MustCompile(`(?i)\bunlimited\b|\b\d+(?:\.\d+)?\s*(?:GB|MB|TB)\b`)

// priceWindow is how far past a plan name we scan for its price.
const priceWindow = 400

// PatternStrategy extracts records by scanning the page's visible text for
// known plan-name vocabulary and pairing each hit with the nearest following
// price. It is the fallback when structured selectors match nothing.
type PatternStrategy struct{}

// NewPatternStrategy creates a PatternStrategy.
func NewPatternStrategy() *PatternStrategy { return &PatternStrategy{} }

func (p *PatternStrategy) Name() string { return "pattern" }

// Extract scans plaintext for plan names and nearby prices.
func (p *PatternStrategy) Extract(page *model.RawPage) []model.RawPlanRecord {
	text := stripTags(page.HTML)

	var records []model.RawPlanRecord
	seen := make(map[string]bool)
	for _, loc := range planNameRe.FindAllStringIndex(text, -1) {
		name := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " ")
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}

		end := loc[1] + priceWindow
		if end > len(text) {
			end = len(text)
		}
		window := text[loc[1]:end]

		price := priceRe.FindString(window)
		if price == "" {
			continue
		}
		seen[key] = true

		records = append(records, model.RawPlanRecord{
			Provider:  page.Provider,
			Name:      name,
			PriceText: price,
			DataText:  dataRe.FindString(window),
			SourceURL: page.URL,
		})
	}
	return records
}

var (
	blockTagRe   = regexp.MustCompile(`(?is)<(script|style|nav|footer)[^>]*>.*?</(script|style|nav|footer)>`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
	multiSpaceRe = regexp.MustCompile(`[ \t]+`)
)

// stripTags removes scripts/styles/nav/footer, strips tags, decodes common
// entities, and collapses whitespace.
func stripTags(markup string) string {
	markup = blockTagRe.ReplaceAllString(markup, "")
	markup = anyTagRe.ReplaceAllString(markup, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	markup = r.Replace(markup)

	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(markup, " "))
}
