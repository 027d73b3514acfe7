package resources

import (
	"fmt"
	"net/http"
	"os"

	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

// NewHTTPResourcesFromConfig builds the resources of one configured provider.
// GitHub App credentials take precedence over a token. metrics may be nil.
func NewHTTPResourcesFromConfig(cfg config.ProviderConfig, metrics *Metrics, logger selfx.Logger) (*HTTPResources, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: timeout}

	opts := []Option{
		WithHTTPClient(client),
		WithRateLimit(cfg.RateLimit, cfg.Burst),
		WithMetrics(metrics),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}

	switch {
	case cfg.AppID != "":
		if cfg.Name != selfx.GitHub {
			return nil, fmt.Errorf("provider %s: app authentication is only supported for github", cfg.Name)
		}
		if cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("provider %s: app_id requires private_key_path", cfg.Name)
		}
		keyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading github app private key: %w", err)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.github.com"
		}
		auth, err := NewGitHubAppAuth(cfg.AppID, cfg.InstallationID, keyPEM, baseURL, client, nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAuthenticator(auth))
	default:
		if token := cfg.ResolveToken(); token != "" {
			opts = append(opts, WithAuthenticator(TokenAuth{Token: token}))
		}
	}

	return New(cfg.Name, opts...), nil
}
