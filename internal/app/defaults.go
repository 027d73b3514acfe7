package app

import (
	"fmt"
	"os"
	"path/filepath"

	"selfx-go/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SELFX_CONFIG_PATH: config file location (default: ~/.config/selfx.toml)
//   - SELFX_HOME: base directory for selfx data (default: ~/.local/share/selfx)
//   - SELFX_DATA_DIR: sqlite database directory (default: <base>/db)
//   - SELFX_ARCHIVE_DIR: filesystem invoice archive (default: <base>/invoices)
//
// keys_dir holds the age key pair that encrypts archived invoices.
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    envOr("SELFX_DATA_DIR", filepath.Join(baseDir, "db")),
		"archive_dir": envOr("SELFX_ARCHIVE_DIR", filepath.Join(baseDir, "invoices")),
		"keys_dir":    filepath.Join(baseDir, "keys"),
	}, nil
}

// DefaultConfig builds the config written by "selfx config init": a sqlite
// store, a filesystem archive and age keys, all placed at the default paths.
func DefaultConfig(instanceID string) (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, err
	}
	cfg := config.NewConfig(instanceID, defaults["base_dir"])
	cfg.Storage.DataDir = defaults["data_dir"]
	cfg.Archive.FSRoot = defaults["archive_dir"]
	cfg.Encryption.PublicKeyPath = filepath.Join(defaults["keys_dir"], "selfx.pub")
	cfg.Encryption.PrivateKeyPath = filepath.Join(defaults["keys_dir"], "selfx.key")
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getConfigPath() (string, error) {
	if path := os.Getenv("SELFX_CONFIG_PATH"); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "selfx.toml"), nil
}

// getBaseDir follows the XDG data layout unless SELFX_HOME is set.
func getBaseDir() (string, error) {
	if path := os.Getenv("SELFX_HOME"); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "selfx"), nil
}
