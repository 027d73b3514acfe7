package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"selfx-go/internal/selfx"
)

// StubResources serves canned resources keyed by URI and records every call.
// A URI with no canned resource fails with a transport-style error.
type StubResources struct {
	mu        sync.Mutex
	resources map[string]*selfx.Resource
	posts     map[string]*selfx.Resource
	gets      []string
	posted    []PostCall
}

// PostCall is a recorded Post.
type PostCall struct {
	URI  string
	Body any
}

var _ selfx.Resources = (*StubResources)(nil)

func NewStubResources() *StubResources {
	return &StubResources{
		resources: make(map[string]*selfx.Resource),
		posts:     make(map[string]*selfx.Resource),
	}
}

// Serve registers the response to a Get of uri.
func (s *StubResources) Serve(uri string, status int, body string) *StubResources {
	return s.ServeWithHeader(uri, status, body, nil)
}

// ServeWithHeader registers a response carrying response headers.
func (s *StubResources) ServeWithHeader(uri string, status int, body string, header http.Header) *StubResources {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[uri] = newResource(status, body, header)
	return s
}

// ServePost registers the response to a Post to uri.
func (s *StubResources) ServePost(uri string, status int, body string) *StubResources {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[uri] = newResource(status, body, nil)
	return s
}

func (s *StubResources) Get(ctx context.Context, uri string) (*selfx.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, uri)
	r, ok := s.resources[uri]
	if !ok {
		return nil, fmt.Errorf("GET %s: connection refused", uri)
	}
	return r, nil
}

func (s *StubResources) Post(ctx context.Context, uri string, body any) (*selfx.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted = append(s.posted, PostCall{URI: uri, Body: body})
	r, ok := s.posts[uri]
	if !ok {
		return nil, fmt.Errorf("POST %s: connection refused", uri)
	}
	return r, nil
}

// Gets returns the URIs fetched so far, in call order.
func (s *StubResources) Gets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.gets...)
}

// Posts returns the recorded Post calls.
func (s *StubResources) Posts() []PostCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PostCall(nil), s.posted...)
}

func newResource(status int, body string, header http.Header) *selfx.Resource {
	if header == nil {
		header = http.Header{}
	}
	var raw json.RawMessage
	if body != "" {
		raw = json.RawMessage(body)
	}
	return &selfx.Resource{StatusCode: status, Body: raw, Header: header}
}
