package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendQueued = "queued"
	BackendDirect = "direct"

	minBackendTimeout = 3 * time.Second
	minStatusInterval = 10 * time.Second
)

var (
	ErrUnknownBackend       = errors.New("unknown LLM_BACKEND")
	ErrUnknownProtocol      = errors.New("unknown DIRECT_PROTOCOL")
	ErrFallbackWithoutURL   = errors.New("LLM_BACKEND_FALLBACK requires DIRECT_BASE_URL or DIRECT_API_KEY")
	ErrNotifyWithoutChat    = errors.New("NOTIFY_ENABLED requires NOTIFY_CHAT_ID")
	ErrNotifyWithoutChannel = errors.New("NOTIFY_ENABLED requires BROKER_ENABLED or BOT_TOKEN")
	ErrAliasesFile          = errors.New("reading TAG_ALIASES_FILE")
	ErrLemmasFile           = errors.New("reading TAG_LEMMAS_FILE")
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBConnectRetries    int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	DBConnectRetryDelay time.Duration `env:"DB_CONNECT_RETRY_DELAY" envDefault:"2s"`

	// Language model backends
	LLMBackend            string        `env:"LLM_BACKEND" envDefault:"queued"`
	LLMQueueBaseURL       string        `env:"LLM_QUEUE_BASE_URL" envDefault:"http://llm-mcp:8000"`
	LLMQueueProvider      string        `env:"LLM_QUEUE_PROVIDER" envDefault:"auto"`
	LLMBackendTimeout     time.Duration `env:"LLM_BACKEND_TIMEOUT" envDefault:"30s"`
	LLMBackendFallback    bool          `env:"LLM_BACKEND_FALLBACK" envDefault:"true"`
	LLMQueueCircuitThresh int           `env:"LLM_QUEUE_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMQueueCircuitReset  time.Duration `env:"LLM_QUEUE_CIRCUIT_RESET" envDefault:"1m"`
	DirectBaseURL         string        `env:"DIRECT_BASE_URL" envDefault:"http://127.0.0.1:11434"`
	DirectProtocol        string        `env:"DIRECT_PROTOCOL" envDefault:"ollama"`
	DirectAPIKey          string        `env:"DIRECT_API_KEY"`
	DirectTimeout         time.Duration `env:"DIRECT_TIMEOUT" envDefault:"60s"`
	DirectRPS             float64       `env:"DIRECT_RPS" envDefault:"0"`
	SystemPrompt          string        `env:"LLM_SYSTEM_PROMPT"`

	// Tagging
	TagModel         string        `env:"TAG_MODEL" envDefault:"llama3.2:3b"`
	TagTemperature   float64       `env:"TAG_TEMPERATURE" envDefault:"0.1"`
	TagMaxCount      int           `env:"TAG_MAX_COUNT" envDefault:"30"`
	TagMaxChars      int           `env:"TAG_MAX_CHARS" envDefault:"2000"`
	TagUseCandidates bool          `env:"TAG_USE_CANDIDATES" envDefault:"true"`
	TagBatchSize     int           `env:"TAG_BATCH_SIZE" envDefault:"50"`
	TagAliases       string        `env:"TAG_ALIASES"`
	TagAliasesFile   string        `env:"TAG_ALIASES_FILE"`
	TagLemmas        string        `env:"TAG_LEMMAS"`
	TagLemmasFile    string        `env:"TAG_LEMMAS_FILE"`
	TaggingInterval  time.Duration `env:"TAGGING_INTERVAL" envDefault:"120s"`

	// Embedding
	EmbedModel        string        `env:"EMBED_MODEL" envDefault:"nomic-embed-text"`
	EmbedMaxChars     int           `env:"EMBED_MAX_CHARS" envDefault:"4000"`
	EmbedBatchSize    int           `env:"EMBED_BATCH_SIZE" envDefault:"16"`
	EmbeddingInterval time.Duration `env:"EMBEDDING_INTERVAL" envDefault:"300s"`

	StatusInterval  time.Duration `env:"STATUS_INTERVAL" envDefault:"60s"`
	MaxItemAttempts int           `env:"MAX_ITEM_ATTEMPTS" envDefault:"0"`

	// Notifications
	NotifyEnabled        bool          `env:"NOTIFY_ENABLED" envDefault:"false"`
	NotifyChatID         int64         `env:"NOTIFY_CHAT_ID"`
	NotifyUpdateInterval time.Duration `env:"NOTIFY_UPDATE_INTERVAL" envDefault:"2500ms"`
	NotifyTimeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`
	BrokerEnabled        bool          `env:"BROKER_ENABLED" envDefault:"false"`
	BrokerBaseURL        string        `env:"BROKER_BASE_URL" envDefault:"http://telegram-api:8000"`
	BrokerBotID          int64         `env:"BROKER_BOT_ID"`
	BotToken             string        `env:"BOT_TOKEN"`
	NotifyFallbackDirect bool          `env:"NOTIFY_FALLBACK_DIRECT" envDefault:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLegacyAliases(cfg)
	cfg.applyFloors()

	if err := cfg.loadPayloadFiles(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the worker cannot run with.
func (c *Config) Validate() error {
	switch c.BackendKind() {
	case BackendQueued, BackendDirect:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.LLMBackend)
	}

	switch strings.ToLower(strings.TrimSpace(c.DirectProtocol)) {
	case "ollama", "openai", "anthropic", "google":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProtocol, c.DirectProtocol)
	}

	if c.BackendKind() == BackendQueued && c.LLMBackendFallback && c.DirectBaseURL == "" && c.DirectAPIKey == "" {
		return ErrFallbackWithoutURL
	}

	if c.NotifyEnabled {
		if c.NotifyChatID == 0 {
			return ErrNotifyWithoutChat
		}

		if !c.BrokerEnabled && c.BotToken == "" {
			return ErrNotifyWithoutChannel
		}
	}

	return nil
}

// BackendKind folds the accepted LLM_BACKEND spellings into queued or direct.
func (c *Config) BackendKind() string {
	switch strings.ToLower(strings.TrimSpace(c.LLMBackend)) {
	case "", "queued", "llm_mcp", "mcp":
		return BackendQueued
	case "direct", "ollama", "openai":
		return BackendDirect
	default:
		return c.LLMBackend
	}
}

func (c *Config) applyFloors() {
	if c.LLMBackendTimeout < minBackendTimeout {
		c.LLMBackendTimeout = minBackendTimeout
	}

	if c.StatusInterval < minStatusInterval {
		c.StatusInterval = minStatusInterval
	}

	if c.TagMaxCount <= 0 {
		c.TagMaxCount = 1
	}
}

// loadPayloadFiles reads the alias and lemma tables from files when they are
// not given inline.
func (c *Config) loadPayloadFiles() error {
	if err := readPayloadFile(c.TagAliasesFile, &c.TagAliases, ErrAliasesFile); err != nil {
		return err
	}

	return readPayloadFile(c.TagLemmasFile, &c.TagLemmas, ErrLemmasFile)
}

func readPayloadFile(path string, target *string, sentinel error) error {
	if path == "" || *target != "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}

	*target = string(data)

	return nil
}

// applyLegacyAliases honours the variable names used by earlier worker deployments
// when the current name is not set.
func applyLegacyAliases(cfg *Config) {
	if !hasEnv("DIRECT_BASE_URL") {
		setStringFromEnv("OLLAMA_BASE_URL", &cfg.DirectBaseURL)
	}

	if !hasEnv("TAG_MODEL") {
		setStringFromEnv("OLLAMA_TAG_MODEL", &cfg.TagModel)
	}

	if !hasEnv("TAG_TEMPERATURE") {
		setFloatFromEnv("OLLAMA_TAG_TEMPERATURE", &cfg.TagTemperature)
	}

	if !hasEnv("EMBED_MODEL") {
		setStringFromEnv("OLLAMA_EMBED_MODEL", &cfg.EmbedModel)
	}

	if !hasEnv("EMBED_BATCH_SIZE") {
		setIntFromEnv("EMBEDDING_BATCH_SIZE", &cfg.EmbedBatchSize)
	}

	if !hasEnv("TAG_ALIASES") {
		setStringFromEnv("TAG_ALIASES_JSON", &cfg.TagAliases)
	}

	if !hasEnv("LLM_QUEUE_BASE_URL") {
		setStringFromEnv("LLM_MCP_BASE_URL", &cfg.LLMQueueBaseURL)
	}

	if !hasEnv("LLM_QUEUE_PROVIDER") {
		setStringFromEnv("LLM_MCP_PROVIDER", &cfg.LLMQueueProvider)
	}

	if !hasEnv("LLM_BACKEND_FALLBACK") {
		setBoolFromEnv("LLM_BACKEND_FALLBACK_OLLAMA", &cfg.LLMBackendFallback)
	}

	if !hasEnv("BOT_TOKEN") {
		setStringFromEnv("TELEGRAM_BOT_TOKEN", &cfg.BotToken)
	}

	if !hasEnv("BROKER_BASE_URL") {
		setStringFromEnv("TELEGRAM_MCP_BASE_URL", &cfg.BrokerBaseURL)
	}

	if !hasEnv("BROKER_ENABLED") {
		setBoolFromEnv("TELEGRAM_USE_MCP", &cfg.BrokerEnabled)
	}

	if !hasEnv("NOTIFY_FALLBACK_DIRECT") {
		setBoolFromEnv("TELEGRAM_MCP_FALLBACK_DIRECT", &cfg.NotifyFallbackDirect)
	}

	if !hasEnv("BROKER_BOT_ID") {
		setInt64FromEnv("TELEGRAM_MCP_BOT_ID", &cfg.BrokerBotID)
	}

	if !hasEnv("NOTIFY_CHAT_ID") {
		for _, key := range []string{"TELEGRAM_MCP_CHAT_ID", "REPORT_CHAT_ID", "TELEGRAM_REPORT_CHAT_ID", "TELEGRAM_CHAT_ID"} {
			if cfg.NotifyChatID != 0 {
				break
			}

			setInt64FromEnv(key, &cfg.NotifyChatID)
		}
	}

	if !hasEnv("NOTIFY_ENABLED") {
		setBoolFromEnv("TELEGRAM_PROGRESS", &cfg.NotifyEnabled)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setBoolFromEnv(key string, target *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setInt64FromEnv(key string, target *int64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return
	}

	*target = parsed
}

func setFloatFromEnv(key string, target *float64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return
	}

	*target = parsed
}
