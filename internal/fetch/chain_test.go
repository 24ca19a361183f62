package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/internal/model"
)

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	name  string
	page  *model.RawPage
	err   error
	calls int
}

func (m *mockFetcher) Name() string { return m.name }
func (m *mockFetcher) Fetch(_ context.Context, _ model.ProviderConfig) (*model.RawPage, error) {
	m.calls++
	return m.page, m.err
}

var verizonCfg = model.ProviderConfig{
	Name: "Verizon",
	URL:  "https://www.verizon.com/plans/unlimited/",
}

func TestChain_Fetch_FirstSuccess(t *testing.T) {
	t.Parallel()

	primary := &mockFetcher{name: "dynamic_render", page: &model.RawPage{
		Provider: "Verizon", URL: verizonCfg.URL, HTML: "<html>plans</html>", FetchedAt: time.Now(),
	}}
	fallback := &mockFetcher{name: "static_http"}

	chain := NewChain(primary, fallback)
	page, err := chain.Fetch(context.Background(), verizonCfg)

	require.NoError(t, err)
	assert.Equal(t, "Verizon", page.Provider)
	assert.Zero(t, fallback.calls)
}

func TestChain_Fetch_FallbackOnError(t *testing.T) {
	t.Parallel()

	primary := &mockFetcher{name: "dynamic_render", err: errors.New("render timeout")}
	fallback := &mockFetcher{name: "static_http", page: &model.RawPage{
		Provider: "Verizon", URL: verizonCfg.URL, HTML: "<html>static plans</html>",
	}}

	chain := NewChain(primary, fallback)
	page, err := chain.Fetch(context.Background(), verizonCfg)

	require.NoError(t, err)
	assert.Contains(t, page.HTML, "static plans")
	assert.Equal(t, 1, primary.calls)
}

func TestChain_Fetch_EmptyContentIsFailure(t *testing.T) {
	t.Parallel()

	primary := &mockFetcher{name: "dynamic_render", page: &model.RawPage{Provider: "Verizon"}}
	fallback := &mockFetcher{name: "static_http", page: &model.RawPage{
		Provider: "Verizon", HTML: "<html>ok</html>",
	}}

	chain := NewChain(primary, fallback)
	page, err := chain.Fetch(context.Background(), verizonCfg)

	require.NoError(t, err)
	assert.Contains(t, page.HTML, "ok")
}

func TestChain_Fetch_AllFail(t *testing.T) {
	t.Parallel()

	primary := &mockFetcher{name: "dynamic_render", err: errors.New("render timeout")}
	fallback := &mockFetcher{name: "static_http", err: errors.New("status 403")}

	chain := NewChain(primary, fallback)
	page, err := chain.Fetch(context.Background(), verizonCfg)

	assert.Nil(t, page)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFetch)
}
