package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/internal/model"
)

func TestParsePriceCents(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"$85/month", 8500},
		{"$85", 8500},
		{"85.50", 8550},
		{"From $62.99 per line", 6299},
		{"$10 off with Auto Pay", 1000},
	}
	for _, tc := range cases {
		got, err := ParsePriceCents(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestParsePriceCentsNoAmount(t *testing.T) {
	_, err := ParsePriceCents("call for pricing")
	assert.Error(t, err)
}

func TestParseDataAllowance(t *testing.T) {
	assert.Equal(t, model.DataAllowance{Unlimited: true}, ParseDataAllowance("Unlimited"))
	assert.Equal(t, model.DataAllowance{Unlimited: true}, ParseDataAllowance("Truly unlimited 5G data"))
	assert.Equal(t, model.DataAllowance{AmountMB: 50000}, ParseDataAllowance("50GB"))
	assert.Equal(t, model.DataAllowance{AmountMB: 500}, ParseDataAllowance("0.5 GB"))
	assert.Equal(t, model.DataAllowance{AmountMB: 2000000}, ParseDataAllowance("2TB"))
	assert.Equal(t, model.DataAllowance{AmountMB: 300}, ParseDataAllowance("300MB"))
	assert.Equal(t, model.DataAllowance{}, ParseDataAllowance("see coverage map"))
}

func TestCleanPlanName(t *testing.T) {
	assert.Equal(t, "5G Get More", CleanPlanName("  5G Get More   Plan Details "))
	assert.Equal(t, "Unlimited Elite", CleanPlanName("UNLIMITED ELITE"))
	assert.Equal(t, "Go5G Plus", CleanPlanName("Go5G Plus per line"))
	assert.Equal(t, "Essentials", CleanPlanName("essentials learn more"))
}

func TestCleanFeatures(t *testing.T) {
	got := CleanFeatures([]string{
		" Unlimited  premium data ",
		"Disney+ included",
		"unlimited premium data",
		"",
	})
	assert.Equal(t, []string{"Unlimited premium data", "Disney+ included"}, got)
}

func TestNormalizeAutopayDeduction(t *testing.T) {
	n := NewNormalizer()
	plans, err := n.Normalize([]model.RawPlanRecord{{
		Provider:        "AT&T",
		Name:            "Unlimited Elite",
		PriceText:       "$90/month",
		DataText:        "Unlimited",
		AutopayDiscount: "$10",
		SourceURL:       "https://www.att.com/plans/",
	}})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, int64(8000), plans[0].Price.AmountCents)
	assert.Equal(t, "$80/month", plans[0].Price.String())
	assert.True(t, plans[0].Data.Unlimited)
}

func TestNormalizeDropsBadAndDedupes(t *testing.T) {
	n := NewNormalizer()
	plans, err := n.Normalize([]model.RawPlanRecord{
		{Provider: "Verizon", Name: "5G Play More", PriceText: "$80/month", DataText: "Unlimited"},
		{Provider: "Verizon", Name: "Mystery", PriceText: "call us"},
		{Provider: "Verizon", Name: "5G Play More", PriceText: "$85/month", DataText: "Unlimited"},
	})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "5G Play More", plans[0].Name)
	assert.Equal(t, int64(8000), plans[0].Price.AmountCents)
}

func TestNormalizeAllBad(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize([]model.RawPlanRecord{
		{Provider: "Verizon", Name: "Mystery", PriceText: "call us"},
	})
	assert.Error(t, err)
}
