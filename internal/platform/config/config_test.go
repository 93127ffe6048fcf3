package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvBackend     = "LLM_BACKEND"
	testEnvTimeout     = "LLM_BACKEND_TIMEOUT"
)

// Test values.
const (
	testPostgresDSN = "postgres://localhost/test"
	testErrLoad     = "Load() error = %v"
)

var envKeysUnderTest = []string{
	"APP_ENV", "LLM_BACKEND", "LLM_BACKEND_TIMEOUT", "LLM_BACKEND_FALLBACK", "DIRECT_BASE_URL",
	"DIRECT_PROTOCOL", "DIRECT_API_KEY", "TAG_MAX_COUNT", "TAG_MAX_CHARS", "TAG_ALIASES", "TAG_ALIASES_FILE",
	"TAG_LEMMAS", "TAG_LEMMAS_FILE",
	"EMBED_BATCH_SIZE", "STATUS_INTERVAL", "NOTIFY_ENABLED", "NOTIFY_CHAT_ID", "NOTIFY_UPDATE_INTERVAL",
	"BROKER_ENABLED", "BOT_TOKEN", "OLLAMA_BASE_URL", "OLLAMA_TAG_MODEL", "TAG_MODEL",
	"EMBEDDING_BATCH_SIZE", "LLM_MCP_BASE_URL", "LLM_QUEUE_BASE_URL", "TELEGRAM_CHAT_ID", "TELEGRAM_MCP_CHAT_ID",
	"REPORT_CHAT_ID", "TELEGRAM_REPORT_CHAT_ID", "TELEGRAM_PROGRESS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_USE_MCP",
	"TAG_ALIASES_JSON", "MAX_ITEM_ATTEMPTS",
}

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	for _, key := range envKeysUnderTest {
		if val, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, val) })
			os.Unsetenv(key)
		}
	}

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnvVars(t)
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.BackendKind() != BackendQueued {
		t.Errorf("BackendKind default = %q, want %q", cfg.BackendKind(), BackendQueued)
	}

	if !cfg.LLMBackendFallback {
		t.Error("LLMBackendFallback should default to true")
	}

	if cfg.TagMaxCount != 30 || cfg.TagMaxChars != 2000 {
		t.Errorf("tag limits = %d/%d, want 30/2000", cfg.TagMaxCount, cfg.TagMaxChars)
	}

	if cfg.EmbedBatchSize != 16 || cfg.EmbedMaxChars != 4000 {
		t.Errorf("embed limits = %d/%d, want 16/4000", cfg.EmbedBatchSize, cfg.EmbedMaxChars)
	}

	if cfg.TaggingInterval != 120*time.Second || cfg.EmbeddingInterval != 300*time.Second {
		t.Errorf("intervals = %s/%s, want 2m/5m", cfg.TaggingInterval, cfg.EmbeddingInterval)
	}

	if cfg.NotifyUpdateInterval != 2500*time.Millisecond {
		t.Errorf("NotifyUpdateInterval = %s, want 2.5s", cfg.NotifyUpdateInterval)
	}

	if cfg.MaxItemAttempts != 0 {
		t.Errorf("MaxItemAttempts = %d, want unlimited", cfg.MaxItemAttempts)
	}
}

func TestLoad_Floors(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvTimeout, "1s")
	t.Setenv("STATUS_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.LLMBackendTimeout != minBackendTimeout {
		t.Errorf("LLMBackendTimeout = %s, want floor %s", cfg.LLMBackendTimeout, minBackendTimeout)
	}

	if cfg.StatusInterval != minStatusInterval {
		t.Errorf("StatusInterval = %s, want floor %s", cfg.StatusInterval, minStatusInterval)
	}
}

func TestLoad_BackendAliases(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"llm_mcp", BackendQueued},
		{"queued", BackendQueued},
		{"ollama", BackendDirect},
		{"DIRECT", BackendDirect},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(testEnvBackend, tt.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf(testErrLoad, err)
			}

			if got := cfg.BackendKind(); got != tt.want {
				t.Errorf("BackendKind(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvBackend, "carrier-pigeon")

	_, err := Load()
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Load() error = %v, want ErrUnknownBackend", err)
	}
}

func TestValidate_FallbackWithoutDirect(t *testing.T) {
	cfg := &Config{LLMBackend: "queued", DirectProtocol: "ollama", LLMBackendFallback: true}

	if err := cfg.Validate(); !errors.Is(err, ErrFallbackWithoutURL) {
		t.Errorf("Validate() error = %v, want ErrFallbackWithoutURL", err)
	}

	cfg.LLMBackendFallback = false

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() without fallback error = %v", err)
	}
}

func TestLoad_NotifyRequiresChannel(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("NOTIFY_ENABLED", "true")
	t.Setenv("NOTIFY_CHAT_ID", "42")

	_, err := Load()
	if !errors.Is(err, ErrNotifyWithoutChannel) {
		t.Errorf("Load() error = %v, want ErrNotifyWithoutChannel", err)
	}
}

func TestLoad_LegacyNames(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_TAG_MODEL", "qwen2.5:7b")
	t.Setenv("EMBEDDING_BATCH_SIZE", "8")
	t.Setenv("LLM_MCP_BASE_URL", "http://queue:9000")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("TAG_ALIASES_JSON", `{"Нефть": ["oil"]}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.DirectBaseURL != "http://ollama:11434" {
		t.Errorf("DirectBaseURL = %q", cfg.DirectBaseURL)
	}

	if cfg.TagModel != "qwen2.5:7b" {
		t.Errorf("TagModel = %q", cfg.TagModel)
	}

	if cfg.EmbedBatchSize != 8 {
		t.Errorf("EmbedBatchSize = %d, want 8", cfg.EmbedBatchSize)
	}

	if cfg.LLMQueueBaseURL != "http://queue:9000" {
		t.Errorf("LLMQueueBaseURL = %q", cfg.LLMQueueBaseURL)
	}

	if cfg.NotifyChatID != -100123 {
		t.Errorf("NotifyChatID = %d, want -100123", cfg.NotifyChatID)
	}

	if cfg.TagAliases == "" {
		t.Error("TagAliases should be read from TAG_ALIASES_JSON")
	}
}

func TestLoad_AliasesFile(t *testing.T) {
	setRequiredEnvVars(t)

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte("Нефть:\n  - oil\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TAG_ALIASES_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.TagAliases != "Нефть:\n  - oil\n" {
		t.Errorf("TagAliases = %q", cfg.TagAliases)
	}
}


func TestLoad_LemmasFile(t *testing.T) {
	setRequiredEnvVars(t)

	path := filepath.Join(t.TempDir(), "lemmas.yaml")
	if err := os.WriteFile(path, []byte("нефть: [нефти]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TAG_LEMMAS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.TagLemmas != "нефть: [нефти]\n" {
		t.Errorf("TagLemmas = %q", cfg.TagLemmas)
	}
}

func TestLoad_LemmasFileMissing(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TAG_LEMMAS_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	if !errors.Is(err, ErrLemmasFile) {
		t.Fatalf("Load() error = %v, want ErrLemmasFile", err)
	}
}
