package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"selfx-go/internal/app"
	"selfx-go/internal/config"
)

func main() {
	cobra.OnInitialize(initConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// initConfig lets every persistent flag be set through a SELFX_ variable,
// e.g. SELFX_CONFIG or SELFX_PROVIDER.
func initConfig() {
	viper.SetEnvPrefix("SELFX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// configPath returns --config when given, else the default location.
func configPath() (string, error) {
	if p := viper.GetString("config"); p != "" {
		return p, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults["config_path"], nil
}

func readConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates a SelfApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "LatestCommit", "PayInvoice").
func newApp(ctx context.Context, operation string) (*app.SelfApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewSelfApp(ctx, cfg, operation, app.Options{Verbose: viper.GetBool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "selfx",
	Short:         "Manage projects, contracts and invoices of self-managed repositories",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.config/selfx.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug lines")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("provider", "p", "github", "provider of the repository: github, gitlab or bitbucket")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(walletsCmd)
	rootCmd.AddCommand(invoicesCmd)
}
