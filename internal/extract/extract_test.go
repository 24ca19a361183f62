package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/internal/model"
)

const verizonHTML = `<html><body>
<div class="plan-grid">
  <div class="plan-card">
    <h2 class="plan-name">5G Get More</h2>
    <span class="plan-price">$90/month</span>
    <span class="plan-data">Unlimited</span>
    <span class="autopay">$10 off with Auto Pay</span>
    <ul><li class="feature">Unlimited premium data</li><li class="feature">Disney+ included</li></ul>
  </div>
  <div class="plan-card">
    <h2 class="plan-name">5G Play More</h2>
    <span class="plan-price">$80/month</span>
    <span class="plan-data">Unlimited</span>
    <ul><li class="feature">25GB mobile hotspot</li></ul>
  </div>
</div>
</body></html>`

var verizonMap = SelectorMap{
	Plan:            ".plan-card",
	Name:            ".plan-name",
	Price:           ".plan-price",
	Data:            ".plan-data",
	Features:        ".feature",
	AutopayDiscount: ".autopay",
}

func verizonPage(markup string) *model.RawPage {
	return &model.RawPage{
		Provider: "Verizon",
		URL:      "https://www.verizon.com/plans/",
		HTML:     markup,
	}
}

func TestSelectorStrategyExtract(t *testing.T) {
	s := NewSelectorStrategy(map[string]SelectorMap{"verizon": verizonMap})
	records := s.Extract(verizonPage(verizonHTML))

	require.Len(t, records, 2)
	assert.Equal(t, "5G Get More", records[0].Name)
	assert.Equal(t, "$90/month", records[0].PriceText)
	assert.Equal(t, "Unlimited", records[0].DataText)
	assert.Equal(t, "$10 off with Auto Pay", records[0].AutopayDiscount)
	assert.Equal(t, []string{"Unlimited premium data", "Disney+ included"}, records[0].Features)
	assert.Equal(t, "Verizon", records[0].Provider)
	assert.Equal(t, "https://www.verizon.com/plans/", records[0].SourceURL)

	assert.Equal(t, "5G Play More", records[1].Name)
	assert.Empty(t, records[1].AutopayDiscount)
}

func TestSelectorStrategyUnknownProvider(t *testing.T) {
	s := NewSelectorStrategy(map[string]SelectorMap{"verizon": verizonMap})
	page := verizonPage(verizonHTML)
	page.Provider = "ATT"
	assert.Empty(t, s.Extract(page))
}

func TestLoadSelectorMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verizon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"plan: .plan-card\nname: .plan-name\nprice: .plan-price\nfeatures: .feature\n"), 0o644))

	m, err := LoadSelectorMap(path)
	require.NoError(t, err)
	assert.Equal(t, ".plan-card", m.Plan)
	assert.Equal(t, ".feature", m.Features)
}

func TestLoadSelectorMapMissingRequired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plan: .plan-card\n"), 0o644))

	_, err := LoadSelectorMap(path)
	assert.Error(t, err)
}

func TestPatternStrategyExtract(t *testing.T) {
	markup := `<html><body>
	<nav>Shop phones Unlimited deals</nav>
	<h1>Our plans</h1>
	<p>Go with 5G Get More for just $90/mo with Unlimited data.</p>
	<p>Or 5G Play More at $80/mo, also Unlimited.</p>
	<p>5G Get More is our most popular plan.</p>
	</body></html>`

	s := NewPatternStrategy()
	records := s.Extract(verizonPage(markup))

	require.Len(t, records, 2)
	assert.Equal(t, "5G Get More", records[0].Name)
	assert.Equal(t, "$90/mo", records[0].PriceText)
	assert.Equal(t, "Unlimited", records[0].DataText)
	assert.Equal(t, "5G Play More", records[1].Name)
	assert.Equal(t, "$80/mo", records[1].PriceText)
}

func TestPatternStrategyNoPriceNearby(t *testing.T) {
	markup := `<p>Learn about Magenta MAX coverage in your area.</p>`
	s := NewPatternStrategy()
	page := verizonPage(markup)
	page.Provider = "T-Mobile"
	assert.Empty(t, s.Extract(page))
}

func TestKnownPlansStrategy(t *testing.T) {
	s := NewKnownPlansStrategy()
	records := s.Extract(verizonPage("<html></html>"))

	require.Len(t, records, 2)
	assert.Equal(t, "5G Get More", records[0].Name)
	assert.Equal(t, "$90/month", records[0].PriceText)
	assert.Equal(t, "$10", records[0].AutopayDiscount)
	assert.Equal(t, "Verizon", records[0].Provider)
	assert.Equal(t, "https://www.verizon.com/plans/", records[0].SourceURL)
}

func TestKnownPlansStrategyProviderKeyNormalization(t *testing.T) {
	s := NewKnownPlansStrategy()
	page := verizonPage("<html></html>")
	page.Provider = "T-Mobile"
	records := s.Extract(page)
	require.NotEmpty(t, records)
	assert.Equal(t, "Go5G Plus", records[0].Name)
	assert.Equal(t, "T-Mobile", records[0].Provider)
}

func TestKnownPlansStrategyUnknownProvider(t *testing.T) {
	s := NewKnownPlansStrategy()
	page := verizonPage("<html></html>")
	page.Provider = "Mint Mobile"
	assert.Empty(t, s.Extract(page))
}

type fixedStrategy struct {
	name    string
	records []model.RawPlanRecord
}

func (f fixedStrategy) Name() string                                 { return f.name }
func (f fixedStrategy) Extract(*model.RawPage) []model.RawPlanRecord { return f.records }

func TestExtractorLadderFallsThrough(t *testing.T) {
	e := NewExtractor(
		fixedStrategy{name: "first"},
		fixedStrategy{name: "second", records: []model.RawPlanRecord{
			{Name: "Essentials", PriceText: "$60/month"},
		}},
	)

	records, err := e.Extract(verizonPage("<html></html>"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Essentials", records[0].Name)
}

func TestExtractorDropsIncompleteRecords(t *testing.T) {
	e := NewExtractor(fixedStrategy{name: "only", records: []model.RawPlanRecord{
		{Name: "", PriceText: "$60/month"},
		{Name: "Essentials", PriceText: ""},
		{Name: "Go5G", PriceText: "$75/month"},
	}})

	records, err := e.Extract(verizonPage("<html></html>"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Go5G", records[0].Name)
}

func TestExtractorAllStrategiesEmpty(t *testing.T) {
	e := NewExtractor(
		fixedStrategy{name: "first"},
		fixedStrategy{name: "second", records: []model.RawPlanRecord{{Name: "no price"}}},
	)

	_, err := e.Extract(verizonPage("<html></html>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExtraction)
}
