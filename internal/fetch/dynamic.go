package fetch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/internal/resilience"
	"github.com/planwise/plan-advisor/pkg/firecrawl"
)

// contentSettleWait bounds the pause for client-side rendering to finish
// before the page is captured.
const contentSettleWait = 3 * time.Second

// DynamicFetcher renders pages through the Firecrawl scrape API. Provider
// plan pages are mostly client-side rendered, so this is the primary strategy.
type DynamicFetcher struct {
	client    firecrawl.Client
	timeoutMS int
	retry     resilience.RetryConfig
}

// NewDynamicFetcher creates a DynamicFetcher. timeout bounds the render on
// the Firecrawl side.
func NewDynamicFetcher(client firecrawl.Client, timeout time.Duration) *DynamicFetcher {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = scrapeRetryable
	retry.OnRetry = resilience.RetryLogger("firecrawl", "scrape")
	return &DynamicFetcher{
		client:    client,
		timeoutMS: int(timeout.Milliseconds()),
		retry:     retry,
	}
}

// scrapeRetryable treats throttling and server-side Firecrawl failures as
// transient. A 403 means the target blocked the render and retrying only
// burns quota; the chain falls through to the static fetcher instead.
func scrapeRetryable(err error) bool {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return resilience.RetryableStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

func (d *DynamicFetcher) Name() string { return "dynamic_render" }

// Fetch renders the provider's plan page and returns the stabilized HTML.
func (d *DynamicFetcher) Fetch(ctx context.Context, provider model.ProviderConfig) (*model.RawPage, error) {
	resp, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*firecrawl.ScrapeResponse, error) {
		return d.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:       provider.URL,
			Formats:   []string{"html"},
			WaitFor:   int(contentSettleWait.Milliseconds()),
			TimeoutMS: d.timeoutMS,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dynamic_render: scrape %s", provider.URL)
	}
	if !resp.Success || resp.Data.HTML == "" {
		return nil, eris.Errorf("dynamic_render: no content for %s", provider.URL)
	}
	if provider.WaitSelector != "" && !selectorPresent(resp.Data.HTML, provider.WaitSelector) {
		return nil, eris.Errorf("dynamic_render: %s rendered without %q, content likely incomplete",
			provider.URL, provider.WaitSelector)
	}

	return &model.RawPage{
		Provider:  provider.Name,
		URL:       provider.URL,
		HTML:      resp.Data.HTML,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// selectorPresent reports whether the CSS selector matches anywhere in the
// markup. Unparseable markup or a bad selector counts as absent.
func selectorPresent(markup, selector string) bool {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return sel.MatchFirst(root) != nil
}
