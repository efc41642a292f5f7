package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fincoach/fincoach/internal/auth"
	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/logger"
	"github.com/fincoach/fincoach/internal/server"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fincoach",
	Short: "Personal finance coach web app with Auth0 login",
	Long: `Fincoach is a small web application that delegates authentication to
Auth0 via the OAuth2/OIDC authorization-code flow and keeps a sanitized user
profile in an encrypted cookie session.`,
	RunE: runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.Flags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.AddCommand(configCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		auth.Module,
		server.Module,
		fx.NopLogger,
		fx.Invoke(registerServer),
	)

	app.Run()
	return nil
}

// registerServer ties the HTTP server to the fx lifecycle: the serve loop
// runs under a cancelable context and OnStop waits for it to drain.
func registerServer(lc fx.Lifecycle, srv *server.Server, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := srv.Start(ctx); err != nil {
					logger.Error("Server exited", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml to the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", path)
		}

		starter := map[string]interface{}{
			"env": "development",
			"server": map[string]interface{}{
				"host": "localhost",
				"port": 5000,
			},
			"logging": map[string]interface{}{
				"level":  "info",
				"format": "console",
			},
			"auth": map[string]interface{}{
				"provider":      "auth0",
				"domain":        "your-tenant.us.auth0.com",
				"client_id":     "",
				"client_secret": "",
			},
			"session": map[string]interface{}{
				"secret_key": "",
				"ttl":        "1h",
			},
		}

		data, err := yaml.Marshal(starter)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}

		pterm.Success.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
