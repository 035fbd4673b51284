package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/logging"
	"github.com/dyike/CortexFolio/pkg/app"
)

const version = "v1.0.0"

// defaultUser is the owner used when neither --user nor CORTEXFOLIO_USER is set.
const defaultUser = "local"

// appState carries the global flags and the lazily opened runtime shared by
// every subcommand of one invocation.
type appState struct {
	configPath string
	userID     string
	debug      bool

	mgr     *config.Manager
	log     zerolog.Logger
	res     *app.Resources
	runtime *app.Runtime
}

// config returns the persisted configuration with environment overrides.
func (s *appState) config() (config.Config, error) {
	if s.mgr == nil {
		initial := config.DefaultConfig()
		if s.debug {
			initial.Debug = true
		}
		path := s.configPath
		if path == "" {
			path = filepath.Join(initial.DataDir, "config.json")
		}
		s.log = logging.New(initial)
		mgr, err := config.NewManager(
			config.WithConfigPath(path),
			config.WithInitialConfig(initial),
			config.WithLogger(s.log),
		)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
		}
		s.mgr = mgr
	}
	cfg := s.effective(s.mgr.Get())
	s.log = logging.New(&cfg)
	return cfg, nil
}

func (s *appState) effective(cfg config.Config) config.Config {
	cfg.ApplyEnv()
	if s.debug {
		cfg.Debug = true
	}
	return cfg
}

// engine opens storage and builds the runtime on first use.
func (s *appState) engine(ctx context.Context) (*app.Engine, error) {
	if s.runtime != nil {
		return s.runtime.Engine(), nil
	}
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	res, err := app.OpenResources(cfg, s.log)
	if err != nil {
		return nil, err
	}
	rt, err := app.NewRuntime(s.mgr,
		app.WithLogger(s.log),
		app.WithBuilder(func(c config.Config) (*app.Engine, error) {
			return app.BuildEngine(ctx, s.effective(c), res, s.log)
		}),
	)
	if err != nil {
		res.Close()
		return nil, err
	}
	s.res = res
	s.runtime = rt
	return rt.Engine(), nil
}

func (s *appState) close() {
	if s.runtime != nil {
		s.runtime.Close()
		s.runtime = nil
	}
	if s.res != nil {
		if err := s.res.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close storage")
		}
		s.res = nil
	}
}

func (s *appState) user() string {
	if u := strings.TrimSpace(s.userID); u != "" {
		return u
	}
	if u := strings.TrimSpace(os.Getenv("CORTEXFOLIO_USER")); u != "" {
		return u
	}
	return defaultUser
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{})
}

func newRootCmd(state *appState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cortexfolio",
		Short: "CortexFolio - AI-Assisted Portfolio Analysis",
		Long: `CortexFolio tracks stock portfolios, values them against live market data and
produces retrieval-augmented analyses and chat answers tuned to your risk profile.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&state.debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&state.userID, "user", "", "User id owning portfolios and sessions (default $CORTEXFOLIO_USER or \"local\")")

	rootCmd.AddCommand(newPortfolioCmd(state))
	rootCmd.AddCommand(newAnalyzeCmd(state))
	rootCmd.AddCommand(newRecommendCmd(state))
	rootCmd.AddCommand(newChatCmd(state))
	rootCmd.AddCommand(newSessionsCmd(state))
	rootCmd.AddCommand(newProfileCmd(state))
	rootCmd.AddCommand(newConfigCmd(state))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CortexFolio %s\n", version)
			fmt.Fprintln(out, "AI-Assisted Portfolio Analysis")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(state *appState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := state.config()
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), state.mgr.Path(), &cfg)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := state.config()
			if err != nil {
				return err
			}
			return validateConfig(cmd.OutOrStdout(), &cfg)
		},
	})

	return configCmd
}

func configured(key string) string {
	if key != "" {
		return "✅ Configured"
	}
	return "❌ Not configured"
}

// showConfig displays the current configuration
func showConfig(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintln(w, titleStyle.Render("📋 Current CortexFolio Configuration"))
	fmt.Fprintln(w, field("Config file", path))
	fmt.Fprintln(w, field("Project directory", cfg.ProjectDir))
	fmt.Fprintln(w, field("Data directory", cfg.DataDir))
	fmt.Fprintln(w, field("Database", cfg.DBPath))
	fmt.Fprintln(w, field("Document index", cfg.IndexDir))
	fmt.Fprintln(w)
	fmt.Fprintln(w, field("LLM provider", cfg.LLMProvider))
	fmt.Fprintln(w, field("Analysis model", cfg.AnalysisModel))
	fmt.Fprintln(w, field("Chat model", cfg.ChatModel))
	fmt.Fprintln(w, field("Backend URL", cfg.BackendURL))
	fmt.Fprintln(w, field("Market data", cfg.MarketDataProvider))
	fmt.Fprintln(w)
	fmt.Fprintln(w, field("Cache enabled", cfg.CacheEnabled))
	fmt.Fprintln(w, field("Cache TTL", cfg.AnalysisCacheTTL))
	fmt.Fprintln(w, field("Cache max entries", cfg.AnalysisCacheMaxEntries))
	fmt.Fprintln(w, field("Session idle TTL", cfg.ChatSessionIdleTTL))
	fmt.Fprintln(w, field("Session sweep", cfg.ChatSweepSchedule))
	fmt.Fprintln(w, field("External timeout", cfg.ExternalCallTimeout))
	fmt.Fprintln(w, field("Debug mode", cfg.Debug))
	fmt.Fprintln(w, field("Eino debug", cfg.EinoDebugEnabled))
	if cfg.EinoDebugEnabled {
		fmt.Fprintln(w, field("Debug URL", fmt.Sprintf("http://localhost:%d", cfg.EinoDebugPort)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("🔌 API Configuration"))
	fmt.Fprintln(w, field("DeepSeek", configured(cfg.DeepSeekAPIKey)))
	fmt.Fprintln(w, field("OpenAI", configured(cfg.OpenAIAPIKey)))
	fmt.Fprintln(w, field("Gemini", configured(cfg.GeminiAPIKey)))
	fmt.Fprintln(w, field("Anthropic", configured(cfg.AnthropicAPIKey)))
	fmt.Fprintln(w, field("Polygon", configured(cfg.PolygonAPIKey)))
	fmt.Fprintln(w, field("Finnhub", configured(cfg.FinnhubAPIKey)))
	fmt.Fprintln(w, field("Longport", configured(cfg.LongportAccessToken)))
}

// modelKey returns the API key the configured reasoning provider needs.
func modelKey(cfg *config.Config) (string, string) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return "OPENAI_API_KEY", cfg.OpenAIAPIKey
	case config.ProviderGemini:
		return "GEMINI_API_KEY", cfg.GeminiAPIKey
	case config.ProviderAnthropic:
		return "ANTHROPIC_API_KEY", cfg.AnthropicAPIKey
	default:
		return "DEEPSEEK_API_KEY", cfg.DeepSeekAPIKey
	}
}

// validateConfig validates the configuration and reports missing API keys as
// warnings. Only an invalid configuration is an error.
func validateConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, titleStyle.Render("🔍 Validating CortexFolio Configuration"))

	if err := cfg.Validate(); err != nil {
		DisplayError(w, err)
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	DisplaySuccess(w, "Configuration values are valid")

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("directory validation failed: %w", err)
	}
	DisplaySuccess(w, "Directories are writable")

	var warnings []string
	if name, key := modelKey(cfg); key == "" {
		warnings = append(warnings, fmt.Sprintf("%s is not set: analyses use the default assessment and chat cannot answer", name))
	}
	switch cfg.MarketDataProvider {
	case config.MarketPolygon:
		if cfg.PolygonAPIKey == "" {
			warnings = append(warnings, "POLYGON_API_KEY is not set: portfolios are valued at cost")
		}
	case config.MarketLongport:
		if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
			warnings = append(warnings, "Longport credentials are incomplete: Yahoo Finance is used instead")
		}
	}
	if cfg.FinnhubAPIKey == "" {
		warnings = append(warnings, "FINNHUB_API_KEY is not set: company news comes from the primary provider only")
	}

	for _, warning := range warnings {
		DisplayWarning(w, warning)
	}
	if len(warnings) == 0 {
		DisplaySuccess(w, "Configuration validation completed successfully!")
	} else {
		DisplayInfo(w, fmt.Sprintf("Configuration validation completed with %d warnings.", len(warnings)))
	}
	return nil
}
