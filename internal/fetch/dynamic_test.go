package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/pkg/firecrawl"
)

type fakeFirecrawl struct {
	lastReq  firecrawl.ScrapeRequest
	resp     *firecrawl.ScrapeResponse
	err      error
	failures int // transient 503s served before resp
	calls    int
}

func (f *fakeFirecrawl) Scrape(_ context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	f.lastReq = req
	f.calls++
	if f.calls <= f.failures {
		return nil, &firecrawl.APIError{StatusCode: 503, Body: "rendering queue full"}
	}
	return f.resp, f.err
}

func TestDynamicFetcher_Success(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{resp: &firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{HTML: "<div class=\"plan-card\">Unlimited Ultimate</div>", StatusCode: 200},
	}}
	f := NewDynamicFetcher(fc, 45*time.Second)

	page, err := f.Fetch(context.Background(), verizonCfg)

	require.NoError(t, err)
	assert.Contains(t, page.HTML, "Unlimited Ultimate")
	assert.Equal(t, []string{"html"}, fc.lastReq.Formats)
	assert.Equal(t, 3000, fc.lastReq.WaitFor)
	assert.Equal(t, 45000, fc.lastReq.TimeoutMS)
}

func TestDynamicFetcher_APIError(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{err: errors.New("firecrawl: HTTP 500")}
	f := NewDynamicFetcher(fc, time.Minute)

	_, err := f.Fetch(context.Background(), verizonCfg)
	assert.ErrorContains(t, err, "dynamic_render")
}

func TestDynamicFetcher_EmptyContent(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{resp: &firecrawl.ScrapeResponse{Success: true}}
	f := NewDynamicFetcher(fc, time.Minute)

	_, err := f.Fetch(context.Background(), verizonCfg)
	assert.ErrorContains(t, err, "no content")
}

func TestDynamicFetcher_WaitSelectorMissing(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{resp: &firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{HTML: "<div class=\"spinner\">Loading…</div>", StatusCode: 200},
	}}
	f := NewDynamicFetcher(fc, time.Minute)

	cfg := verizonCfg
	cfg.WaitSelector = ".plan-card"

	_, err := f.Fetch(context.Background(), cfg)
	assert.ErrorContains(t, err, "content likely incomplete")
}

func TestDynamicFetcher_WaitSelectorPresent(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{resp: &firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{HTML: "<div class=\"plan-card\">Unlimited Plus</div>", StatusCode: 200},
	}}
	f := NewDynamicFetcher(fc, time.Minute)

	cfg := verizonCfg
	cfg.WaitSelector = ".plan-card"

	page, err := f.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "Unlimited Plus")
}

func TestDynamicFetcher_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{
		failures: 2,
		resp: &firecrawl.ScrapeResponse{
			Success: true,
			Data:    firecrawl.PageData{HTML: "<div class=\"plan-card\">Go5G Plus</div>", StatusCode: 200},
		},
	}
	f := NewDynamicFetcher(fc, time.Minute)
	f.retry.InitialBackoff = time.Millisecond
	f.retry.MaxBackoff = 5 * time.Millisecond

	page, err := f.Fetch(context.Background(), verizonCfg)

	require.NoError(t, err)
	assert.Equal(t, 3, fc.calls)
	assert.Contains(t, page.HTML, "Go5G Plus")
}

func TestDynamicFetcher_BlockedStatusFailsFast(t *testing.T) {
	t.Parallel()

	fc := &fakeFirecrawl{err: &firecrawl.APIError{StatusCode: 403, Body: "access denied"}}
	f := NewDynamicFetcher(fc, time.Minute)

	_, err := f.Fetch(context.Background(), verizonCfg)
	require.Error(t, err)
	assert.Equal(t, 1, fc.calls)
}
