package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/pkg/anthropic"
)

type fakeClient struct {
	text string
	err  error
	req  anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func TestParseStructuredOutput(t *testing.T) {
	fake := &fakeClient{text: `{
		"budget_dollars_max": 80,
		"data": {"kind": "unlimited", "amount_mb": null},
		"line_count": 2,
		"desired_features": ["hotspot", " international roaming "],
		"primary_concern": "price",
		"provider": "Verizon"
	}`}
	p := NewParser(fake, "test-model", 1000)

	intent, degraded, err := p.Parse(context.Background(), "unlimited data for 2 lines under $80 on Verizon")
	require.NoError(t, err)
	assert.False(t, degraded)

	require.NotNil(t, intent.BudgetCentsMax)
	assert.Equal(t, int64(8000), *intent.BudgetCentsMax)
	assert.Equal(t, model.DataUnlimited, intent.Data.Kind)
	assert.Equal(t, 2, intent.LineCount)
	assert.Equal(t, []string{"hotspot", "international roaming"}, intent.DesiredFeatures)
	assert.Equal(t, model.ConcernPrice, intent.PrimaryConcern)
	assert.Equal(t, "Verizon", intent.Provider)

	assert.Equal(t, "test-model", fake.req.Model)
	require.Len(t, fake.req.Messages, 1)
	assert.Equal(t, "user", fake.req.Messages[0].Role)
}

func TestParseFencedOutput(t *testing.T) {
	fake := &fakeClient{text: "```json\n{\"data\": {\"kind\": \"finite\", \"amount_mb\": 50000}}\n```"}
	p := NewParser(fake, "test-model", 1000)

	intent, degraded, err := p.Parse(context.Background(), "about 50 gigs")
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, model.DataFinite, intent.Data.Kind)
	assert.Equal(t, int64(50000), intent.Data.AmountMB)
	assert.Equal(t, 1, intent.LineCount)
	assert.Equal(t, model.ConcernUnspecified, intent.PrimaryConcern)
}

func TestParseModelErrorFallsBack(t *testing.T) {
	fake := &fakeClient{err: errors.New("overloaded")}
	p := NewParser(fake, "test-model", 1000)

	intent, degraded, err := p.Parse(context.Background(), "cheap plan")
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, model.DefaultIntent(), intent)
}

func TestParseGarbageOutputFallsBack(t *testing.T) {
	fake := &fakeClient{text: "I'd be happy to help you find a plan!"}
	p := NewParser(fake, "test-model", 1000)

	intent, degraded, err := p.Parse(context.Background(), "cheap plan")
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, model.DefaultIntent(), intent)
}

func TestParseInvalidValuesNormalized(t *testing.T) {
	fake := &fakeClient{text: `{
		"budget_dollars_max": -5,
		"line_count": 0,
		"primary_concern": "vibes"
	}`}
	p := NewParser(fake, "test-model", 1000)

	intent, degraded, err := p.Parse(context.Background(), "whatever")
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Nil(t, intent.BudgetCentsMax)
	assert.Equal(t, 1, intent.LineCount)
	assert.Equal(t, model.ConcernUnspecified, intent.PrimaryConcern)
}

func TestParseCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewParser(&fakeClient{err: context.Canceled}, "test-model", 1000)

	_, _, err := p.Parse(ctx, "cheap plan")
	assert.ErrorIs(t, err, context.Canceled)
}
