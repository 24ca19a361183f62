package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/planwise/plan-advisor/internal/model"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxPageBytes caps how much of a plan page we read.
const maxPageBytes = 2 * 1024 * 1024

// StaticFetcher fetches HTML via net/http with a standard browser user agent.
// It is the fallback when dynamic rendering errors or times out.
type StaticFetcher struct {
	client *http.Client
}

// NewStaticFetcher creates a StaticFetcher with sensible defaults.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// NewStaticFetcherWithClient creates a StaticFetcher using the given client.
func NewStaticFetcherWithClient(hc *http.Client) *StaticFetcher {
	return &StaticFetcher{client: hc}
}

func (s *StaticFetcher) Name() string { return "static_http" }

// Fetch GETs the provider's plan page, detects anti-bot blocks, and returns
// the raw HTML.
func (s *StaticFetcher) Fetch(ctx context.Context, provider model.ProviderConfig) (*model.RawPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.URL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "static_http: create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "static_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "static_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("static_http: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("static_http: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return nil, eris.New("static_http: empty page")
	}

	return &model.RawPage{
		Provider:  provider.Name,
		URL:       provider.URL,
		HTML:      string(body),
		FetchedAt: time.Now().UTC(),
	}, nil
}
