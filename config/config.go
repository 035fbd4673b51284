package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	MarketPolygon  = "polygon"
	MarketYahoo    = "yahoo"
	MarketLongport = "longport"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DBPath       string `json:"db_path"`
	IndexDir     string `json:"index_dir"`

	LLMProvider   string `json:"llm_provider"`
	AnalysisModel string `json:"analysis_model"`
	ChatModel     string `json:"chat_model"`
	BackendURL    string `json:"backend_url"` // OpenAI-compatible endpoint; empty uses api.openai.com
	MaxTokens     int    `json:"max_tokens"`

	MarketDataProvider string `json:"market_data_provider"`

	// Analysis result cache
	AnalysisCacheTTL        time.Duration `json:"analysis_cache_ttl"`
	AnalysisCacheMaxEntries int           `json:"analysis_cache_max_entries"`
	AnalysisCacheEvictBatch int           `json:"analysis_cache_evict_batch"`

	// Chat sessions
	ChatSessionIdleTTL time.Duration `json:"chat_session_idle_ttl"`
	ChatSweepSchedule  string        `json:"chat_sweep_schedule"`

	ExternalCallTimeout time.Duration `json:"external_call_timeout"`

	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	CacheEnabled bool `json:"cache_enabled"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// AI Model API Keys
	DeepSeekAPIKey  string `json:"deepseek_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key"`
	GeminiAPIKey    string `json:"gemini_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`

	// Market/news data API keys
	PolygonAPIKey string `json:"polygon_api_key"`
	FinnhubAPIKey string `json:"finnhub_api_key"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(currentDir)
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overlays .env and process environment values onto c. Values
// already present in the process environment win over .env entries.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()
	c.loadFromEnv()
}

// DefaultConfigWithRoot returns defaults with every directory placed under root.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		DBPath:       filepath.Join(root, "data", "cortexfolio.db"),
		IndexDir:     filepath.Join(root, "data", "index"),

		LLMProvider:   ProviderDeepSeek,
		AnalysisModel: "deepseek-chat",
		ChatModel:     "deepseek-chat",
		MaxTokens:     8192,

		MarketDataProvider: MarketPolygon,

		AnalysisCacheTTL:        time.Hour,
		AnalysisCacheMaxEntries: 100,
		AnalysisCacheEvictBatch: 20,

		ChatSessionIdleTTL: 7 * 24 * time.Hour,
		ChatSweepSchedule:  "@hourly",

		ExternalCallTimeout: 30 * time.Second,

		Debug:    false,
		LogLevel: "info",

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,

		CacheEnabled: true,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("INDEX_DIR"); val != "" {
		c.IndexDir = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("ANALYSIS_LLM"); val != "" {
		c.AnalysisModel = val
	}
	if val := os.Getenv("CHAT_LLM"); val != "" {
		c.ChatModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}
	if val := os.Getenv("MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = strings.ToLower(val)
	}

	if val := os.Getenv("ANALYSIS_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.AnalysisCacheTTL = d
		}
	}
	if val := os.Getenv("ANALYSIS_CACHE_MAX_ENTRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.AnalysisCacheMaxEntries = v
		}
	}
	if val := os.Getenv("ANALYSIS_CACHE_EVICT_BATCH"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.AnalysisCacheEvictBatch = v
		}
	}
	if val := os.Getenv("CHAT_SESSION_IDLE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ChatSessionIdleTTL = d
		}
	}
	if val := os.Getenv("CHAT_SWEEP_SCHEDULE"); val != "" {
		c.ChatSweepSchedule = val
	}
	if val := os.Getenv("EXTERNAL_CALL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ExternalCallTimeout = d
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}

	if val := os.Getenv("CORTEXFOLIO_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.GeminiAPIKey = val
	}
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		c.AnthropicAPIKey = val
	}
	if val := os.Getenv("POLYGON_API_KEY"); val != "" {
		c.PolygonAPIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// Validate rejects configurations the engine cannot be built from.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderDeepSeek, ProviderOpenAI, ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	switch c.MarketDataProvider {
	case MarketPolygon, MarketYahoo, MarketLongport:
	default:
		return fmt.Errorf("unknown market data provider %q", c.MarketDataProvider)
	}
	if c.AnalysisCacheTTL <= 0 {
		return fmt.Errorf("analysis cache ttl must be positive")
	}
	if c.AnalysisCacheMaxEntries <= 0 {
		return fmt.Errorf("analysis cache max entries must be positive")
	}
	if c.AnalysisCacheEvictBatch <= 0 || c.AnalysisCacheEvictBatch > c.AnalysisCacheMaxEntries {
		return fmt.Errorf("analysis cache evict batch must be in (0, %d]", c.AnalysisCacheMaxEntries)
	}
	if c.ChatSessionIdleTTL <= 0 {
		return fmt.Errorf("chat session idle ttl must be positive")
	}
	if c.ExternalCallTimeout <= 0 {
		return fmt.Errorf("external call timeout must be positive")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir, c.IndexDir, filepath.Dir(c.DBPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
