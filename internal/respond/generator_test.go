package respond

import (
	"context"
	"errors"
	"testing"
	"time"

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

func rankedFixture(t *testing.T) []model.RankedPlan {
	t.Helper()
	top, err := model.NewProcessedPlan(
		"Verizon", "5G Play More",
		model.Price{AmountCents: 8000, Currency: "USD", Period: "month"},
		model.DataAllowance{Unlimited: true},
		[]string{"25GB mobile hotspot"},
		"https://www.verizon.com/plans/",
		time.Now(),
	)
	require.NoError(t, err)
	next, err := model.NewProcessedPlan(
		"T-Mobile", "Go5G",
		model.Price{AmountCents: 7500, Currency: "USD", Period: "month"},
		model.DataAllowance{Unlimited: true},
		nil,
		"https://www.t-mobile.com/plans/",
		time.Now(),
	)
	require.NoError(t, err)
	return []model.RankedPlan{
		{Plan: top, Score: 9, Reasoning: "fits budget", Pros: []string{"Within budget"}},
		{Plan: next, Score: 7},
	}
}

func TestGenerateNarrative(t *testing.T) {
	fake := &fakeClient{text: "The 5G Play More plan is your best bet."}
	g := NewGenerator(fake, "test-model", 2000)

	narrative, degraded, err := g.Generate(context.Background(), "unlimited under $80", model.DefaultIntent(), rankedFixture(t))
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, "The 5G Play More plan is your best bet.", narrative)

	input := fake.req.Messages[0].Content
	assert.Contains(t, input, `"unlimited under $80"`)
	assert.Contains(t, input, "5G Play More")
	assert.Contains(t, input, "Score: 9.0/10")
	assert.Contains(t, input, "Pro: Within budget")
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	fake := &fakeClient{err: errors.New("overloaded")}
	g := NewGenerator(fake, "test-model", 2000)

	narrative, degraded, err := g.Generate(context.Background(), "unlimited under $80", model.DefaultIntent(), rankedFixture(t))
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Contains(t, narrative, "5G Play More")
	assert.Contains(t, narrative, "$80/month")
	assert.Contains(t, narrative, "Within budget")
	assert.Contains(t, narrative, "Go5G")
}

func TestGenerateEmptyOutputFallsBack(t *testing.T) {
	fake := &fakeClient{text: "   "}
	g := NewGenerator(fake, "test-model", 2000)

	narrative, degraded, err := g.Generate(context.Background(), "q", model.DefaultIntent(), rankedFixture(t))
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Contains(t, narrative, "5G Play More")
}

func TestGenerateNoPlans(t *testing.T) {
	g := NewGenerator(&fakeClient{}, "test-model", 2000)

	intent := model.DefaultIntent()
	intent.Provider = "Verizon"
	narrative, degraded, err := g.Generate(context.Background(), "q", intent, nil)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Contains(t, narrative, "Verizon")
	assert.Contains(t, narrative, "couldn't find")
}

func TestGenerateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(&fakeClient{err: context.Canceled}, "test-model", 2000)

	_, _, err := g.Generate(ctx, "q", model.DefaultIntent(), rankedFixture(t))
	assert.ErrorIs(t, err, context.Canceled)
}
