package resources

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPResources_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		switch r.URL.Path {
		case "/commits/abc":
			w.Header().Set("X-Next-Page", "2")
			w.Write([]byte(`{"sha":"abc"}`))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	r := New("github")
	ctx := context.Background()

	res, err := r.Get(ctx, srv.URL+"/commits/abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if string(res.Body) != `{"sha":"abc"}` {
		t.Errorf("Body = %s", res.Body)
	}
	if res.Header.Get("X-Next-Page") != "2" {
		t.Errorf("X-Next-Page = %q, want 2", res.Header.Get("X-Next-Page"))
	}

	res, err = r.Get(ctx, srv.URL+"/missing")
	if err != nil {
		t.Fatalf("Get() on 404 error = %v, want nil", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", res.StatusCode)
	}

	res, err = r.Get(ctx, srv.URL+"/empty")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.Body != nil {
		t.Errorf("Body = %q, want nil", res.Body)
	}
}

func TestHTTPResources_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	uri := srv.URL + "/gone"
	srv.Close()

	if _, err := New("github").Get(context.Background(), uri); err == nil {
		t.Error("Get() against a closed server should return error")
	}
}

func TestHTTPResources_Post(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body %q: %v", body, err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))
	t.Cleanup(srv.Close)

	res, err := New("github").Post(context.Background(), srv.URL+"/comments", map[string]string{"body": "hi"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", res.StatusCode)
	}
	if got["body"] != "hi" {
		t.Errorf("server received %v", got)
	}
}

func TestHTTPResources_TokenAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	res, err := New("gitlab", WithAuthenticator(TokenAuth{Token: "s3cret"})).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
}

func TestHTTPResources_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	r := New("github", WithRateLimit(0.01, 1))
	if _, err := r.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.Get(ctx, srv.URL); err == nil {
		t.Error("second Get() should fail waiting for the limiter")
	}
}

func TestWithRateLimit_Disabled(t *testing.T) {
	if r := New("github", WithRateLimit(0, 5)); r.limiter != nil {
		t.Error("limit 0 should disable the limiter")
	}
	if r := New("github", WithRateLimit(2, 0)); r.limiter == nil || r.limiter.Burst() != 1 {
		t.Error("burst should default to 1")
	}
}

func TestHTTPResources_Metrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := New("bitbucket", WithMetrics(m))
	ctx := context.Background()

	for _, p := range []string{"/a", "/b", "/missing"} {
		if _, err := r.Get(ctx, srv.URL+p); err != nil {
			t.Fatalf("Get(%s) error = %v", p, err)
		}
	}

	if got := promtest.ToFloat64(m.requests.WithLabelValues("bitbucket", "GET", "200")); got != 2 {
		t.Errorf("200 requests = %v, want 2", got)
	}
	if got := promtest.ToFloat64(m.requests.WithLabelValues("bitbucket", "GET", "404")); got != 1 {
		t.Errorf("404 requests = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.observe("github", "GET", "200", time.Second)
}

type failingAuth struct{}

func (failingAuth) Authenticate(context.Context, *http.Request) error {
	return errors.New("no credentials")
}

func TestHTTPResources_AuthFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	if _, err := New("github", WithAuthenticator(failingAuth{})).Get(context.Background(), srv.URL); err == nil {
		t.Error("Get() should fail when authentication fails")
	}
	if called {
		t.Error("request should not be sent when authentication fails")
	}
}
