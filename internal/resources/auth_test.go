package resources

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"selfx-go/internal/selfx"
	"selfx-go/internal/testutil"
)

func newTestKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, keyPEM
}

func parseAppJWT(t *testing.T, key *rsa.PrivateKey, signed string) *jwt.RegisteredClaims {
	t.Helper()
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("ParseWithClaims() error = %v", err)
	}
	return claims
}

func TestGitHubAppAuth_AppJWT(t *testing.T) {
	key, keyPEM := newTestKey(t)
	clock := testutil.NewStubClock(time.Now().UTC().Truncate(time.Second))

	auth, err := NewGitHubAppAuth("123", "", keyPEM, "https://api.github.com", nil, clock)
	if err != nil {
		t.Fatalf("NewGitHubAppAuth() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/app", nil)
	if err := auth.Authenticate(context.Background(), req); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	signed, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		t.Fatalf("Authorization = %q, want bearer token", req.Header.Get("Authorization"))
	}

	claims := parseAppJWT(t, key, signed)
	if claims.Issuer != "123" {
		t.Errorf("iss = %q, want 123", claims.Issuer)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 10*time.Minute {
		t.Errorf("token lifetime = %v, want 10m", got)
	}
}

func TestGitHubAppAuth_InstallationToken(t *testing.T) {
	key, keyPEM := newTestKey(t)
	var exchanges atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations/42/access_tokens":
			exchanges.Add(1)
			signed := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if claims := parseAppJWT(t, key, signed); claims.Issuer != "123" {
				t.Errorf("iss = %q, want 123", claims.Issuer)
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"token":"ghs_installation","expires_at":%q}`,
				time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
		case "/repos/a/b/commits":
			if got := r.Header.Get("Authorization"); got != "Bearer ghs_installation" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	auth, err := NewGitHubAppAuth("123", "42", keyPEM, srv.URL+"/", srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewGitHubAppAuth() error = %v", err)
	}
	r := New(selfx.GitHub, WithAuthenticator(auth))

	for i := 0; i < 3; i++ {
		res, err := r.Get(context.Background(), srv.URL+"/repos/a/b/commits")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if res.StatusCode != http.StatusOK {
			t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
		}
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("token exchanges = %d, want 1 (cached)", got)
	}
}

func TestGitHubAppAuth_ExchangeRejected(t *testing.T) {
	_, keyPEM := newTestKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	auth, err := NewGitHubAppAuth("123", "42", keyPEM, srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewGitHubAppAuth() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, srv.URL, nil)
	err = auth.Authenticate(context.Background(), req)
	var upstream *selfx.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusForbidden {
		t.Errorf("Authenticate() error = %v, want upstream 403", err)
	}
}

func TestNewGitHubAppAuth_BadKey(t *testing.T) {
	if _, err := NewGitHubAppAuth("123", "", []byte("not a key"), "", nil, nil); err == nil {
		t.Error("NewGitHubAppAuth() with invalid PEM should return error")
	}
}
