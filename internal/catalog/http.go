package catalog

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rigforge/compat-cli/internal/model"
)

// HTTPOptions configures the HTTP catalog client.
type HTTPOptions struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RateLimit caps outbound requests per second against the catalog.
	RateLimit rate.Limit
	Burst     int
}

// HTTPClient implements Client against the catalog's REST API using
// net/http with retry and rate limiting.
type HTTPClient struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPClient creates a catalog client with the given options.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "compat-cli/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 10
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, opts.Burst),
	}
}

func (c *HTTPClient) RawSpecification(ctx context.Context, productID string) (*RawSpecification, error) {
	u := c.opts.BaseURL + "/products/" + url.PathEscape(productID) + "/specification"
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	var raw RawSpecification
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrapf(err, "catalog: decode specification for %s", productID)
	}
	if raw.ProductID == "" {
		raw.ProductID = productID
	}
	return &raw, nil
}

func (c *HTTPClient) ProductIDs(ctx context.Context, kind model.ComponentKind) ([]string, error) {
	u := c.opts.BaseURL + "/products/ids"
	if kind != "" {
		u += "?kind=" + url.QueryEscape(string(kind))
	}
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	var payload struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "catalog: decode product ids")
	}
	return payload.ProductIDs, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(ErrProductNotFound, "%s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read body")
	}
	return body, nil
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "catalog: rate limiter wait")
		}

		cloned := req.Clone(ctx)
		resp, err := c.client.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("catalog request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("catalog: http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("catalog returned retryable status",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "catalog: all retries exhausted")
}

func (c *HTTPClient) backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 15 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// StaticClient serves a fixed set of specifications. Used by the extract
// command's --input mode and by tests.
type StaticClient struct {
	Products map[string]*RawSpecification
}

func (s *StaticClient) RawSpecification(_ context.Context, productID string) (*RawSpecification, error) {
	raw, ok := s.Products[productID]
	if !ok {
		return nil, eris.Wrapf(ErrProductNotFound, "%s", productID)
	}
	return raw, nil
}

func (s *StaticClient) ProductIDs(_ context.Context, kind model.ComponentKind) ([]string, error) {
	var ids []string
	for id, raw := range s.Products {
		if kind == "" || raw.Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
