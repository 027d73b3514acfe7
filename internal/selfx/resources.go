package selfx

import (
	"context"
	"encoding/json"
	"net/http"
)

// Resource is the outcome of a provider API call: the status code, the raw JSON
// body (may be empty) and the response headers.
type Resource struct {
	StatusCode int
	Body       json.RawMessage
	Header     http.Header
}

// Resources fetches JSON resources from a provider's REST API.
// Unexpected status codes are not errors at this level; only transport
// failures are returned as errors.
type Resources interface {
	// Get fetches the resource at uri.
	Get(ctx context.Context, uri string) (*Resource, error)

	// Post sends body as JSON to uri.
	Post(ctx context.Context, uri string, body any) (*Resource, error)
}
