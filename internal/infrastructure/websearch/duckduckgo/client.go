package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://html.duckduckgo.com/html/"

type Options struct {
	BaseURL string
	Region  string
	Timeout time.Duration
	// Workers bounds concurrent upstream searches.
	Workers int
	// RatePerSecond and Burst throttle outgoing requests. Zero disables throttling.
	RatePerSecond float64
	Burst         int
	Executor      *resilience.Executor
	UserAgent     string
}

// Client queries the DuckDuckGo HTML endpoint. Calls are blocking and pass
// through a bounded worker pool so a slow upstream cannot pile up goroutines.
type Client struct {
	baseURL    string
	region     string
	userAgent  string
	httpClient *http.Client
	workers    *semaphore.Weighted
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; mcq-rag-assistant/1.0)"
	}

	return &Client{
		baseURL:    base,
		region:     opts.Region,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		workers:    semaphore.NewWeighted(int64(workers)),
		limiter:    limiter,
		executor:   opts.Executor,
	}
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error) {
	if strings.TrimSpace(query) == "" || maxResults <= 0 {
		return []domain.WebResult{}, nil
	}

	if err := c.workers.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire web search worker: %w", err)
	}
	defer c.workers.Release(1)

	results, err := resilience.Call(ctx, c.executor, "websearch.duckduckgo", func(callCtx context.Context) ([]domain.WebResult, error) {
		if err := c.limiter.Wait(callCtx); err != nil {
			return nil, err
		}
		return c.fetch(callCtx, query)
	}, resilience.ClassifyTransport)
	if err != nil {
		return nil, resilience.WrapTemporary("duckduckgo search", err, resilience.ClassifyTransport)
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]domain.WebResult, error) {
	form := url.Values{}
	form.Set("q", query)
	if c.region != "" {
		form.Set("kl", c.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	results, err := parseResults(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo results: %w", err)
	}
	return results, nil
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return "duckduckgo status: " + e.Status
	}
	return "duckduckgo status: " + e.Status + ": " + e.Body
}

func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }
