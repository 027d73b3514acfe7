package resources

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"selfx-go/internal/selfx"
)

// Authenticator adds credentials to an outgoing request.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) error
}

// TokenAuth sends a personal or OAuth access token as a bearer token.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Authenticate(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// GitHubAppAuth authenticates as a GitHub App. Without an installation id the
// app's own JWT is sent; otherwise the JWT is exchanged for an installation
// token, which is cached until shortly before it expires.
type GitHubAppAuth struct {
	appID          string
	installationID string
	key            *rsa.PrivateKey
	baseURL        string
	client         *http.Client
	clock          selfx.Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewGitHubAppAuth parses the app's PEM encoded private key.
func NewGitHubAppAuth(appID, installationID string, keyPEM []byte, baseURL string, client *http.Client, clock selfx.Clock) (*GitHubAppAuth, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing github app private key: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if clock == nil {
		clock = selfx.RealClock{}
	}
	return &GitHubAppAuth{
		appID:          appID,
		installationID: installationID,
		key:            key,
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		clock:          clock,
	}, nil
}

// AppJWT signs a ten minute app token. iat is backdated by a minute to
// tolerate clock drift.
func (a *GitHubAppAuth) AppJWT() (string, error) {
	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("signing app jwt: %w", err)
	}
	return signed, nil
}

func (a *GitHubAppAuth) Authenticate(ctx context.Context, req *http.Request) error {
	if a.installationID == "" {
		signed, err := a.AppJWT()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+signed)
		return nil
	}
	token, err := a.installationToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (a *GitHubAppAuth) installationToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.clock.Now().Before(a.expires.Add(-time.Minute)) {
		return a.token, nil
	}

	signed, err := a.AppJWT()
	if err != nil {
		return "", err
	}
	uri := a.baseURL + "/app/installations/" + a.installationID + "/access_tokens"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting installation token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", selfx.Upstream("installation token", resp.StatusCode, uri)
	}

	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding installation token: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("installation token response has no token")
	}
	a.token, a.expires = out.Token, out.ExpiresAt
	return a.token, nil
}
