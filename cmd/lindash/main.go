package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lindash/lindash/internal/auth"
	"github.com/lindash/lindash/internal/config"
	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
	"github.com/lindash/lindash/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		profile  string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "lindash",
		Short:         "Terminal dashboard for Linear issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if profile != "" {
				cfg.Profile = profile
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return runDashboard(cfg)
		},
	}

	root.PersistentFlags().StringVar(&profile, "profile", "", "stored auth profile to use")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warning, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLoginCmd(&profile))
	root.AddCommand(newLogoutCmd(&profile))
	return root
}

func runDashboard(cfg config.Config) error {
	if err := logger.Init(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.Info("lindash starting profile=%s page_size=%d cache_ttl=%s",
		cfg.Profile, cfg.PageSize, cfg.CacheTTL)

	sessions, err := sessionProviders(cfg)
	if err != nil {
		return err
	}

	client := linearapi.NewClient(linearapi.ClientConfig{
		Sessions: sessions,
		Endpoint: cfg.APIEndpoint,
		Timeout:  cfg.Timeout,
	})

	app := tui.NewApp(client, cfg)
	if err := app.Run(); err != nil {
		logger.ErrorWithErr(err, "event loop failed")
		return err
	}

	logger.Info("lindash shutdown")
	return nil
}

// sessionProviders builds the auth chain: an explicit API key from the
// environment wins, then the stored session for the active profile.
func sessionProviders(cfg config.Config) (auth.Provider, error) {
	chain := auth.Chain{}
	if cfg.APIKey != "" {
		chain = append(chain, auth.StaticProvider{Key: cfg.APIKey})
	}
	store, err := auth.DefaultStore()
	if err != nil {
		if len(chain) > 0 {
			logger.Warning("auth store unavailable: %v", err)
			return chain, nil
		}
		return nil, fmt.Errorf("open auth store: %w", err)
	}
	chain = append(chain, auth.NewProfileProvider(store, cfg.Profile, ""))
	return chain, nil
}

func newLoginCmd(profile *string) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify and store an API key for a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv(config.APIKeyEnv)
			}
			if apiKey == "" {
				return fmt.Errorf("provide --api-key or set %s", config.APIKeyEnv)
			}

			client := linearapi.NewClient(linearapi.ClientConfig{
				Sessions: auth.StaticProvider{Key: apiKey},
				Endpoint: os.Getenv(config.APIEndpointEnv),
				Timeout:  config.DefaultTimeout,
			})
			ctx, cancel := context.WithTimeout(cmd.Context(), config.DefaultTimeout)
			defer cancel()
			user, err := client.Viewer(ctx)
			if err != nil {
				return fmt.Errorf("verify API key: %w", err)
			}

			store, err := auth.DefaultStore()
			if err != nil {
				return fmt.Errorf("open auth store: %w", err)
			}
			name := profileName(*profile)
			session := auth.Session{
				AccessToken: apiKey,
				TokenType:   auth.TokenAPIKey,
				CreatedAt:   time.Now(),
			}
			if err := store.Save(name, session); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Printf("Logged in as %s (profile %q).\n", user.DisplayName, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "personal API key to store")
	return cmd
}

func newLogoutCmd(profile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session for a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.DefaultStore()
			if err != nil {
				return fmt.Errorf("open auth store: %w", err)
			}
			name := profileName(*profile)
			if err := store.Delete(name); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			fmt.Printf("Removed session for profile %q.\n", name)
			return nil
		},
	}
}

func profileName(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(config.ProfileEnv); env != "" {
		return env
	}
	return config.DefaultProfile
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VersionInfo())
		},
	}
}
