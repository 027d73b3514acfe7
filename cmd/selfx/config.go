package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"selfx-go/internal/app"
	"selfx-go/internal/config"
	"selfx-go/internal/encryption"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}

		instanceID := uuid.New().String()
		cfg, err := app.DefaultConfig(instanceID)
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Database:    %s\n", cfg.Storage.DataDir)
		fmt.Printf("Archive:     %s\n", cfg.Archive.FSRoot)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}
		if jsonOutput() {
			redacted := *cfg
			redacted.Providers = make([]config.ProviderConfig, len(cfg.Providers))
			for i, p := range cfg.Providers {
				if p.Token != "" {
					p.Token = "REDACTED"
				}
				redacted.Providers[i] = p
			}
			return printJSON(redacted)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Instance ID: %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Storage:     %s\n", cfg.Storage.Type)
		archive := cfg.Archive.Type
		if archive == "" {
			archive = "disabled"
		}
		fmt.Printf("Archive:     %s\n", archive)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		if cfg.Metrics.Addr != "" {
			fmt.Printf("Metrics:     %s\n", cfg.Metrics.Addr)
		}

		tw := newTable("Provider", "Base URL", "Auth", "Rate limit")
		for _, p := range cfg.Providers {
			auth := "anonymous"
			switch {
			case p.AppID != "":
				auth = "github app " + p.AppID
			case p.TokenEnv != "":
				auth = "token from $" + p.TokenEnv
			case p.Token != "":
				auth = "token"
			}
			limit := "none"
			if p.RateLimit > 0 {
				limit = fmt.Sprintf("%g/s", p.RateLimit)
			}
			tw.AppendRow([]any{p.Name, p.BaseURL, auth, limit})
		}
		fmt.Println()
		tw.Render()
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage invoice encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair that encrypts archived invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if enc == nil {
			return fmt.Errorf("encryption is disabled in the config")
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Migrate")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Migrate(); err != nil {
			return err
		}
		fmt.Println("Database schema is up to date.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	keysCmd.AddCommand(keysInitCmd)
}
