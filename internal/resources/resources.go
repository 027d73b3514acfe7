// Package resources fetches JSON resources from provider REST APIs over HTTP.
package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"selfx-go/internal/selfx"
)

// maxBodySize bounds the response bodies read into memory.
const maxBodySize = 10 << 20

// HTTPResources implements selfx.Resources on top of an http.Client. Status
// codes are handed back to the caller; only transport failures are errors.
type HTTPResources struct {
	provider string
	client   *http.Client
	auth     Authenticator
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   selfx.Logger
}

var _ selfx.Resources = (*HTTPResources)(nil)

// Option configures an HTTPResources.
type Option func(*HTTPResources)

func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPResources) { r.client = c }
}

func WithAuthenticator(a Authenticator) Option {
	return func(r *HTTPResources) { r.auth = a }
}

// WithRateLimit allows perSecond requests with bursts of burst. A limit of 0
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *HTTPResources) {
		if perSecond <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *HTTPResources) { r.metrics = m }
}

func WithLogger(l selfx.Logger) Option {
	return func(r *HTTPResources) { r.logger = l }
}

// New creates the resources of the named provider. The provider name only
// labels metrics and logs.
func New(provider string, opts ...Option) *HTTPResources {
	r := &HTTPResources{
		provider: provider,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   selfx.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPResources) Get(ctx context.Context, uri string) (*selfx.Resource, error) {
	return r.do(ctx, http.MethodGet, uri, nil)
}

// Post sends body encoded as JSON.
func (r *HTTPResources) Post(ctx context.Context, uri string, body any) (*selfx.Resource, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return r.do(ctx, http.MethodPost, uri, data)
}

func (r *HTTPResources) do(ctx context.Context, method, uri string, body []byte) (*selfx.Resource, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "selfx")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth != nil {
		if err := r.auth.Authenticate(ctx, req); err != nil {
			return nil, fmt.Errorf("authenticating request: %w", err)
		}
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.observe(r.provider, method, "error", time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		r.metrics.observe(r.provider, method, "error", time.Since(start))
		return nil, fmt.Errorf("reading response of %s %s: %w", method, uri, err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("response of %s %s exceeds %d bytes", method, uri, maxBodySize)
	}
	r.metrics.observe(r.provider, method, strconv.Itoa(resp.StatusCode), time.Since(start))
	r.logger.Debug("fetched resource", "method", method, "uri", uri, "status", resp.StatusCode)

	res := &selfx.Resource{StatusCode: resp.StatusCode, Header: resp.Header}
	if len(bytes.TrimSpace(data)) > 0 {
		res.Body = json.RawMessage(data)
	}
	return res, nil
}
