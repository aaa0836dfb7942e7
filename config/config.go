package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	SearchSerpAPI    = "serpapi"
	SearchDuckDuckGo = "duckduckgo"
)

type Config struct {
	App     AppConfig     `json:"app"`
	LLM     LLMConfig     `json:"llm"`
	Market  MarketConfig  `json:"market"`
	Search  SearchConfig  `json:"search"`
	SMTP    SMTPConfig    `json:"smtp"`
	Storage StorageConfig `json:"storage"`
	Digest  DigestConfig  `json:"digest"`
	Debug   DebugConfig   `json:"debug"`
}

type AppConfig struct {
	Env         string `envconfig:"APP_ENV" default:"development" json:"env"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" json:"log_level"`
	DataDir     string `envconfig:"DATA_DIR" default:"data" json:"data_dir"`
	MetricsAddr string `envconfig:"METRICS_ADDR" json:"metrics_addr"`
}

type LLMConfig struct {
	Provider       string        `envconfig:"LLM_PROVIDER" default:"openai" json:"provider"`
	Model          string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini" json:"model"`
	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY" json:"-"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL" json:"openai_base_url"`
	DeepSeekAPIKey string        `envconfig:"DEEPSEEK_API_KEY" json:"-"`
	DeepSeekModel  string        `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat" json:"deepseek_model"`
	Temperature    float32       `envconfig:"LLM_TEMPERATURE" default:"0" json:"temperature"`
	MaxTokens      int           `envconfig:"LLM_MAX_TOKENS" default:"4096" json:"max_tokens"`
	MaxTurns       int           `envconfig:"MAX_TURNS" default:"10" json:"max_turns"`
	Timeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"60s" json:"timeout"`
	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"3m" json:"session_timeout"`
}

type MarketConfig struct {
	AlphaVantageAPIKey  string        `envconfig:"ALPHAVANTAGE_API_KEY" json:"-"`
	AlphaVantageBaseURL string        `envconfig:"ALPHAVANTAGE_BASE_URL" default:"https://www.alphavantage.co" json:"alphavantage_base_url"`
	RequestsPerMinute   int           `envconfig:"ALPHAVANTAGE_RPM" default:"5" json:"requests_per_minute"`
	YahooFallback       bool          `envconfig:"YAHOO_FALLBACK" default:"true" json:"yahoo_fallback"`
	HTTPTimeout         time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" json:"http_timeout"`
	CacheEnabled        bool          `envconfig:"CACHE_ENABLED" default:"true" json:"cache_enabled"`
	CacheTTL            time.Duration `envconfig:"CACHE_TTL" default:"12h" json:"cache_ttl"`
}

type SearchConfig struct {
	Provider          string `envconfig:"SEARCH_PROVIDER" default:"serpapi" json:"provider"`
	SerpAPIKey        string `envconfig:"SERPAPI_API_KEY" json:"-"`
	SerpAPIBaseURL    string `envconfig:"SERPAPI_BASE_URL" default:"https://serpapi.com" json:"serpapi_base_url"`
	DuckDuckGoBaseURL string `envconfig:"DUCKDUCKGO_BASE_URL" default:"https://html.duckduckgo.com" json:"duckduckgo_base_url"`
	MaxResults        int    `envconfig:"SEARCH_MAX_RESULTS" default:"8" json:"max_results"`
}

type SMTPConfig struct {
	Host     string        `envconfig:"SMTP_HOST" default:"smtp.gmail.com" json:"host"`
	Port     int           `envconfig:"SMTP_PORT" default:"587" json:"port"`
	Username string        `envconfig:"EMAIL" json:"username"`
	Password string        `envconfig:"PASSWORD" json:"-"`
	From     string        `envconfig:"SMTP_FROM" json:"from"`
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"30s" json:"timeout"`
}

type StorageConfig struct {
	DBPath string `envconfig:"DB_PATH" json:"db_path"`
}

type DigestConfig struct {
	Cron         string `envconfig:"DIGEST_CRON" default:"0 17 * * *" json:"cron"`
	Timezone     string `envconfig:"DIGEST_TIMEZONE" default:"Local" json:"timezone"`
	NewsLines    int    `envconfig:"DIGEST_NEWS_LINES" default:"5" json:"news_lines"`
	SettingsPath string `envconfig:"DIGEST_SETTINGS_PATH" json:"settings_path"`
}

type DebugConfig struct {
	EinoDebugEnabled bool `envconfig:"EINO_DEBUG_ENABLED" default:"false" json:"eino_debug_enabled"`
	EinoDebugPort    int  `envconfig:"EINO_DEBUG_PORT" default:"52538" json:"eino_debug_port"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	cfg.applyDerived()
	return &cfg, nil
}

func (c *Config) applyDerived() {
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		c.Storage.DBPath = filepath.Join(c.App.DataDir, "finreact.db")
	}
	if strings.TrimSpace(c.Digest.SettingsPath) == "" {
		c.Digest.SettingsPath = filepath.Join(c.App.DataDir, "digest.json")
	}
	if strings.TrimSpace(c.SMTP.From) == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.LLM.Provider == ProviderDeepSeek && c.LLM.Model == "gpt-4o-mini" {
		c.LLM.Model = c.LLM.DeepSeekModel
	}
}

// CacheDir holds cached provider payloads.
func (c *Config) CacheDir() string {
	return filepath.Join(c.App.DataDir, "cache")
}

// Validate checks everything the chat session needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case ProviderDeepSeek:
		if c.LLM.DeepSeekAPIKey == "" {
			errs = append(errs, errors.New("DEEPSEEK_API_KEY is required for the deepseek provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.LLM.MaxTurns <= 0 {
		errs = append(errs, errors.New("MAX_TURNS must be positive"))
	}
	if c.Market.AlphaVantageAPIKey == "" && !c.Market.YahooFallback {
		errs = append(errs, errors.New("ALPHAVANTAGE_API_KEY is required when YAHOO_FALLBACK is disabled"))
	}

	switch c.Search.Provider {
	case SearchSerpAPI, SearchDuckDuckGo:
	default:
		errs = append(errs, fmt.Errorf("unknown SEARCH_PROVIDER %q", c.Search.Provider))
	}

	return errors.Join(errs...)
}

// ValidateMail checks the SMTP credentials used by send_email and the digest.
func (c *Config) ValidateMail() error {
	var errs []error
	if c.SMTP.Host == "" || c.SMTP.Port <= 0 {
		errs = append(errs, errors.New("SMTP_HOST and SMTP_PORT are required"))
	}
	if c.SMTP.Username == "" || c.SMTP.Password == "" {
		errs = append(errs, errors.New("EMAIL and PASSWORD are required to send mail"))
	}
	return errors.Join(errs...)
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.App.DataDir, c.CacheDir(), filepath.Dir(c.Storage.DBPath)}
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
