package provider

import (
	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

// NewProviderFromConfig creates the provider described by cfg on top of resources.
func NewProviderFromConfig(cfg config.ProviderConfig, resources selfx.Resources, logger selfx.Logger) (*Provider, error) {
	return New(cfg.Name, cfg.BaseURL, resources, logger)
}
