package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for selfx.
type Config struct {
	InstanceID string           `toml:"instance_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Storage    StorageConfig    `toml:"storage"`
	Providers  []ProviderConfig `toml:"providers"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// StorageConfig represents configuration for the platform database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "postgres"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty"`      // only used for type=postgres
}

// ProviderConfig configures access to one source-hosting provider's REST API.
type ProviderConfig struct {
	Name    string `toml:"name"` // "github", "gitlab" or "bitbucket"
	BaseURL string `toml:"base_url,omitempty"`

	// Token authentication. TokenEnv names an environment variable holding
	// the token and wins over Token when set.
	Token    string `toml:"token,omitempty"`
	TokenEnv string `toml:"token_env,omitempty"`

	// GitHub App authentication (github only). The app's JWT is exchanged
	// for an installation token.
	AppID          string `toml:"app_id,omitempty"`
	InstallationID string `toml:"installation_id,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`

	RateLimit float64 `toml:"rate_limit,omitempty"` // requests per second, 0 = unlimited
	Burst     int     `toml:"burst,omitempty"`
	Timeout   string  `toml:"timeout,omitempty"` // Go duration, defaults to 30s
}

// TimeoutDuration parses Timeout, falling back to 30 seconds.
func (p ProviderConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("provider %s: invalid timeout %q: %w", p.Name, p.Timeout, err)
	}
	return d, nil
}

// ResolveToken returns the token from TokenEnv when set, else Token.
func (p ProviderConfig) ResolveToken() string {
	if p.TokenEnv != "" {
		if v := os.Getenv(p.TokenEnv); v != "" {
			return v
		}
	}
	return p.Token
}

// ArchiveConfig represents configuration for the invoice archive.
// An empty Type disables archiving.
type ArchiveConfig struct {
	Type string `toml:"type,omitempty"` // "memory", "filesystem" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`

	// Static credentials for S3-compatible stores. When unset the default
	// AWS credential chain is used.
	S3AccessKeyID        string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKeyEnv string `toml:"s3_secret_access_key_env,omitempty"`
}

// EncryptionConfig holds paths to the age key pair protecting archived invoices.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(instanceID, baseDir string) *Config {
	return &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Storage: StorageConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Providers: []ProviderConfig{
			{Name: "github", BaseURL: "https://api.github.com", TokenEnv: "GITHUB_TOKEN"},
			{Name: "gitlab", BaseURL: "https://gitlab.com/api/v4", TokenEnv: "GITLAB_TOKEN"},
			{Name: "bitbucket", BaseURL: "https://api.bitbucket.org/2.0", TokenEnv: "BITBUCKET_TOKEN"},
		},
		Archive: ArchiveConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "invoices"),
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "selfx.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "selfx.key"),
		},
	}
}

// Provider returns the configuration of the named provider, or nil.
func (c *Config) Provider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Tokens may end up in the file.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
