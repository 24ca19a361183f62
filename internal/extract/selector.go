package extract

import (
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/planwise/plan-advisor/internal/model"
)

// SelectorMap holds the CSS selectors for one provider's plan page layout.
// Maps live in per-provider YAML files so selector tuning never touches
// pipeline code.
type SelectorMap struct {
	Plan            string `yaml:"plan"`             // plan container
	Name            string `yaml:"name"`             // within container
	Price           string `yaml:"price"`            // within container
	Data            string `yaml:"data"`             // within container
	Features        string `yaml:"features"`         // repeated within container
	AutopayDiscount string `yaml:"autopay_discount"` // within container, optional
}

// LoadSelectorMap reads a selector map from a YAML file.
func LoadSelectorMap(path string) (SelectorMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorMap{}, eris.Wrapf(err, "selector map: read %s", path)
	}
	var m SelectorMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return SelectorMap{}, eris.Wrapf(err, "selector map: parse %s", path)
	}
	if m.Plan == "" || m.Name == "" || m.Price == "" {
		return SelectorMap{}, eris.Errorf("selector map %s: plan, name, and price selectors are required", path)
	}
	return m, nil
}

// SelectorStrategy extracts records by matching a provider-specific selector
// map against the parsed DOM.
type SelectorStrategy struct {
	maps map[string]SelectorMap // keyed by lower-cased provider name
}

// NewSelectorStrategy creates a SelectorStrategy from per-provider maps.
func NewSelectorStrategy(maps map[string]SelectorMap) *SelectorStrategy {
	lowered := make(map[string]SelectorMap, len(maps))
	for provider, m := range maps {
		lowered[strings.ToLower(provider)] = m
	}
	return &SelectorStrategy{maps: lowered}
}

func (s *SelectorStrategy) Name() string { return "selector" }

// Extract matches the provider's selector map against the page DOM.
// A provider without a selector map yields nothing, pushing the ladder to
// the pattern strategy.
func (s *SelectorStrategy) Extract(page *model.RawPage) []model.RawPlanRecord {
	m, ok := s.maps[strings.ToLower(page.Provider)]
	if !ok {
		return nil
	}

	root, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		zap.L().Warn("selector: unparseable HTML",
			zap.String("provider", page.Provider),
			zap.Error(err),
		)
		return nil
	}

	planSel, err := cascadia.Compile(m.Plan)
	if err != nil {
		zap.L().Warn("selector: bad plan selector",
			zap.String("provider", page.Provider),
			zap.String("selector", m.Plan),
			zap.Error(err),
		)
		return nil
	}

	var records []model.RawPlanRecord
	for _, container := range planSel.MatchAll(root) {
		rec := model.RawPlanRecord{
			Provider:        page.Provider,
			Name:            firstMatchText(container, m.Name),
			PriceText:       firstMatchText(container, m.Price),
			DataText:        firstMatchText(container, m.Data),
			AutopayDiscount: firstMatchText(container, m.AutopayDiscount),
			SourceURL:       page.URL,
		}
		if m.Features != "" {
			rec.Features = allMatchText(container, m.Features)
		}
		records = append(records, rec)
	}
	return records
}

func firstMatchText(n *html.Node, selector string) string {
	if selector == "" {
		return ""
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return ""
	}
	if match := sel.MatchFirst(n); match != nil {
		return nodeText(match)
	}
	return ""
}

func allMatchText(n *html.Node, selector string) []string {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	var out []string
	for _, match := range sel.MatchAll(n) {
		if text := nodeText(match); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// nodeText collects and whitespace-collapses the text content of a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
