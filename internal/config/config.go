package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
)

// Error reports an unusable configuration value. Fatal at startup.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ProviderConfig selects and configures the model provider backend.
type ProviderConfig struct {
	// Type is "gemini" or "openai" (any OpenAI-compatible endpoint).
	Type        string `yaml:"type"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the request timeout for remote provider calls.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// Config holds all runtime settings. Created once at process start and
// shared read-only by every component; never mutated afterwards.
type Config struct {
	DataDir       string `yaml:"data_dir"`
	IndexCacheDir string `yaml:"index_cache_dir"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	GenerationModel string `yaml:"generation_model"`
	EmbeddingModel  string `yaml:"embedding_model"`

	SimilarityTopK int                 `yaml:"similarity_top_k"`
	ResponseMode   domain.ResponseMode `yaml:"response_mode"`

	LazyLoad          bool `yaml:"lazy_load"`
	BackgroundPreload bool `yaml:"background_preload"`

	MaxHistory int `yaml:"max_history"`

	// ChatTemplate frames history-aware chat prompts. {{history}} and
	// {{message}} are replaced with the rendered transcript and the new
	// user message.
	ChatTemplate string `yaml:"chat_template"`

	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	Provider ProviderConfig `yaml:"provider"`
}

// DefaultChatTemplate is the instructional framing used when a chat call
// carries prior history. Swappable via the chat_template setting.
const DefaultChatTemplate = "Given the following conversation history:\n{{history}}\n\n" +
	"User's new question: {{message}}\n\n" +
	"Respond to the user's most recent question by thoroughly explaining " +
	"the concept they are asking about, grounded in the retrieved context."

// Load reads a config from path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Field: "file", Reason: err.Error()}
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Field: "file", Reason: err.Error()}
		}
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		DataDir:           "./data",
		IndexCacheDir:     "./index_cache",
		ChunkSize:         512,
		ChunkOverlap:      50,
		GenerationModel:   "gemini-2.5-flash",
		EmbeddingModel:    "gemini-embedding-001",
		SimilarityTopK:    4,
		ResponseMode:      domain.ResponseCompact,
		LazyLoad:          true,
		BackgroundPreload: true,
		MaxHistory:        10,
		ChatTemplate:      DefaultChatTemplate,
		ListenAddr:        ":8080",
		LogLevel:          "info",
		Provider:          ProviderConfig{Type: "gemini"},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 512
	}
	if cfg.SimilarityTopK == 0 {
		cfg.SimilarityTopK = 4
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 10
	}
	if cfg.ChatTemplate == "" {
		cfg.ChatTemplate = DefaultChatTemplate
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "gemini"
	}
	if cfg.Provider.APIKeyEnv == "" {
		switch cfg.Provider.Type {
		case "openai":
			cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
		default:
			cfg.Provider.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.Provider.Type == "openai" && cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.TimeoutSecs == 0 {
		cfg.Provider.TimeoutSecs = 60
	}
}

// applyEnvOverrides lets deployments override file settings without
// editing the YAML. A RAGCHAT_* variable always wins.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("RAGCHAT_DATA_DIR", &cfg.DataDir)
	setString("RAGCHAT_INDEX_CACHE_DIR", &cfg.IndexCacheDir)
	setString("RAGCHAT_GENERATION_MODEL", &cfg.GenerationModel)
	setString("RAGCHAT_EMBEDDING_MODEL", &cfg.EmbeddingModel)
	setString("RAGCHAT_LISTEN_ADDR", &cfg.ListenAddr)
	setString("RAGCHAT_LOG_LEVEL", &cfg.LogLevel)
	if v := os.Getenv("RAGCHAT_BACKGROUND_PRELOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.BackgroundPreload = b
		}
	}
	if v := os.Getenv("RAGCHAT_LAZY_LOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LazyLoad = b
		}
	}
}

func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return &Error{Field: "data_dir", Reason: "must not be empty"}
	}
	if cfg.IndexCacheDir == "" {
		return &Error{Field: "index_cache_dir", Reason: "must not be empty"}
	}
	if cfg.ChunkSize <= 0 {
		return &Error{Field: "chunk_size", Reason: "must be positive"}
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return &Error{Field: "chunk_overlap", Reason: "must satisfy 0 <= overlap < chunk_size"}
	}
	if cfg.GenerationModel == "" {
		return &Error{Field: "generation_model", Reason: "must not be empty"}
	}
	if cfg.EmbeddingModel == "" {
		return &Error{Field: "embedding_model", Reason: "must not be empty"}
	}
	if cfg.SimilarityTopK <= 0 {
		return &Error{Field: "similarity_top_k", Reason: "must be positive"}
	}
	mode, ok := domain.ParseResponseMode(string(cfg.ResponseMode))
	if !ok {
		return &Error{Field: "response_mode", Reason: fmt.Sprintf("unknown mode %q", cfg.ResponseMode)}
	}
	cfg.ResponseMode = mode
	if cfg.MaxHistory <= 0 {
		return &Error{Field: "max_history", Reason: "must be positive"}
	}
	switch cfg.Provider.Type {
	case "gemini", "openai":
	default:
		return &Error{Field: "provider.type", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider.Type)}
	}
	return nil
}

// APIKey resolves the generation API credential from the environment.
func (c *Config) APIKey() string {
	return os.Getenv(c.Provider.APIKeyEnv)
}
