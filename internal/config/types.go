package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

var (
	ErrTokenRequired   = errors.New("telegram token is required")
	ErrUnknownProvider = errors.New("unknown ai provider")
)

const (
	StorageBackendMemory = "memory"
	StorageBackendSQLite = "sqlite"
	StorageBackendBolt   = "bolt"
)

const (
	ProviderTypeGemini = "gemini"
	ProviderTypeOpenAI = "openai"
)

type globalConfig struct {
	InterfaceLanguage string        `koanf:"interface_language"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval"`
}

type HTTPConfig struct {
	proxy   *string `koanf:"proxy"`
	noProxy string  `koanf:"no_proxy"`
}

func (c HTTPConfig) GetProxy() string {
	if c.proxy != nil && *c.proxy != "" {
		return *c.proxy
	}
	if proxyURL := os.Getenv("HTTPS_PROXY"); proxyURL != "" {
		return proxyURL
	}
	if proxyURL := os.Getenv("https_proxy"); proxyURL != "" {
		return proxyURL
	}
	if proxyURL := os.Getenv("HTTP_PROXY"); proxyURL != "" {
		return proxyURL
	}
	if proxyURL := os.Getenv("http_proxy"); proxyURL != "" {
		return proxyURL
	}
	return ""
}

func (c HTTPConfig) GetNoProxy() string {
	if c.noProxy != "" {
		return c.noProxy
	}
	if noProxy := os.Getenv("NO_PROXY"); noProxy != "" {
		return noProxy
	}
	return os.Getenv("no_proxy")
}

type LoggingConfig struct {
	LogLevel    string `koanf:"level"`
	Format      string `koanf:"format"`
	WriteInFile bool   `koanf:"write_in_file"`
	FilePath    string `koanf:"file_path"`
}

func (c LoggingConfig) Level() string {
	return strings.ToLower(c.LogLevel)
}

func (c LoggingConfig) IsDebug() bool {
	return c.Level() == "debug" || c.Level() == "trace"
}

func (c LoggingConfig) IsJSON() bool {
	return strings.EqualFold(c.Format, "json")
}

type TelegramConfig struct {
	Token            string  `koanf:"token"`
	AllowedUsers     []int64 `koanf:"allowed_users"`
	AllowedChats     []int64 `koanf:"allowed_chats"`
	GroupMentionOnly bool    `koanf:"group_mention_only"`
}

func (c TelegramConfig) IsAllowed(userID int64, chatID int64) bool {
	return c.IsUserAllowed(userID) || c.IsChatAllowed(chatID)
}

func (c TelegramConfig) IsUserAllowed(userID int64) bool {
	allowedUsers := c.AllowedUsers
	if len(allowedUsers) == 0 {
		return false
	}

	return slices.Contains(allowedUsers, userID)
}

func (c TelegramConfig) IsChatAllowed(chatID int64) bool {
	allowedChats := c.AllowedChats
	if len(allowedChats) == 0 {
		return true
	}

	return slices.Contains(allowedChats, chatID)
}

type StorageConfig struct {
	Backend     string `koanf:"backend"`
	BoltPath    string `koanf:"bolt_path"`
	MemoryLayer bool   `koanf:"memory_layer"`
}

type FormatConfig struct {
	Dialect        string `koanf:"dialect"`
	MaxChunkLength int    `koanf:"max_chunk_length"`
	DetectLanguage bool   `koanf:"detect_language"`
}

type aiModelParams struct {
	Temperature *float32       `koanf:"temperature"`
	TopP        *float32       `koanf:"top_p"`
	TopK        *int32         `koanf:"top_k"`
	MaxTokens   *int           `koanf:"max_tokens"`
	Stream      *bool          `koanf:"stream"`
	Timeout     *time.Duration `koanf:"timeout"`
}

func (p aiModelParams) Validate() error {
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %.2f", *p.Temperature)
	}

	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", *p.MaxTokens)
	}

	if p.TopP != nil && (*p.TopP < 0 || *p.TopP > 1) {
		return fmt.Errorf("top_p must be between 0 and 1, got %.2f", *p.TopP)
	}

	if p.TopK != nil && *p.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", *p.TopK)
	}

	return nil
}

// overlay returns p with every parameter set in o replaced.
func (p aiModelParams) overlay(o aiModelParams) aiModelParams {
	if o.Temperature != nil {
		p.Temperature = o.Temperature
	}
	if o.TopP != nil {
		p.TopP = o.TopP
	}
	if o.TopK != nil {
		p.TopK = o.TopK
	}
	if o.MaxTokens != nil {
		p.MaxTokens = o.MaxTokens
	}
	if o.Stream != nil {
		p.Stream = o.Stream
	}
	if o.Timeout != nil {
		p.Timeout = o.Timeout
	}
	return p
}

func (p aiModelParams) IsStream() bool {
	return p.Stream != nil && *p.Stream
}

type AIProviderConfig struct {
	Type            string        `koanf:"type"`
	Name            string        `koanf:"name"`
	BaseURL         string        `koanf:"base_url"`
	APIKey          string        `koanf:"api_key"`
	EnvAPIKey       string        `koanf:"env_api_key"`
	Model           string        `koanf:"model"`
	VisionModel     string        `koanf:"vision_model"`
	VisionMaxTokens int           `koanf:"vision_max_tokens"`
	SystemPrompt    string        `koanf:"system_prompt"`
	Tools           *bool         `koanf:"tools"`
	ModelParams     aiModelParams `koanf:"model_params"`
}

func (c *AIProviderConfig) GetAPIKey() string {
	var apiKey string
	if key := c.APIKey; key != "" {
		apiKey = key
	} else {
		apiKey = os.Getenv(c.EnvAPIKey)
	}
	return apiKey
}

func (c AIProviderConfig) ToolsEnabled() bool {
	return c.Tools != nil && *c.Tools
}

func (c AIProviderConfig) overlay(o AIProviderConfig) AIProviderConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Type, o.Type)
	set(&c.BaseURL, o.BaseURL)
	set(&c.APIKey, o.APIKey)
	set(&c.EnvAPIKey, o.EnvAPIKey)
	set(&c.Model, o.Model)
	set(&c.VisionModel, o.VisionModel)
	set(&c.SystemPrompt, o.SystemPrompt)
	if o.VisionMaxTokens > 0 {
		c.VisionMaxTokens = o.VisionMaxTokens
	}
	if o.Tools != nil {
		c.Tools = o.Tools
	}
	c.ModelParams = c.ModelParams.overlay(o.ModelParams)
	return c
}

type AIConfig struct {
	DefaultProvider    string             `koanf:"default_provider"`
	VisionProvider     string             `koanf:"vision_provider"`
	SystemPrompt       string             `koanf:"system_prompt"`
	HistorySize        int                `koanf:"history_size"`
	HistoryTTL         time.Duration      `koanf:"history_ttl"`
	RequestTimeout     time.Duration      `koanf:"request_timeout"`
	ToolsMaxIterations int                `koanf:"tools_max_iterations"`
	FetchURLs          bool               `koanf:"fetch_urls"`
	Providers          []AIProviderConfig `koanf:"providers"`
}

func (c AIConfig) GetProvider(name string) *AIProviderConfig {
	for _, p := range c.Providers {
		if p.Name == name {
			return &p
		}
	}
	return nil
}

func (c AIConfig) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		names = append(names, p.Name)
	}
	return names
}

func (c AIConfig) ValidateAll() error {
	if c.GetProvider(c.DefaultProvider) == nil {
		return fmt.Errorf("%w: default provider %q", ErrUnknownProvider, c.DefaultProvider)
	}

	for _, p := range c.Providers {
		if p.Type != ProviderTypeGemini && p.Type != ProviderTypeOpenAI {
			return fmt.Errorf("provider %s: unsupported type %q", p.Name, p.Type)
		}
		if err := p.ModelParams.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", p.Name, err)
		}
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// DefaultProviders describes the four chat backends the bot ships with.
// Entries in the config file with the same name override single fields.
func DefaultProviders() []AIProviderConfig {
	return []AIProviderConfig{
		{
			Type:      ProviderTypeGemini,
			Name:      "gemini",
			EnvAPIKey: "GEMINI_API_KEY",
			Model:     "gemini-2.5-pro-exp-03-25",
			SystemPrompt: "You are a multimodal AI assistant in a Telegram chat. " +
				"You can understand text, images and documents. " +
				"Use the available tools to read YouTube video transcripts and to look up medicine details.",
			Tools: ptr(true),
			ModelParams: aiModelParams{
				Temperature: ptr[float32](1.3),
				TopP:        ptr[float32](0.95),
				TopK:        ptr[int32](40),
				MaxTokens:   ptr(8192),
			},
		},
		{
			Type:            ProviderTypeOpenAI,
			Name:            "gpt",
			BaseURL:         "https://api.openai.com/v1",
			EnvAPIKey:       "OPENAI_API_KEY",
			Model:           "gpt-3.5-turbo",
			VisionModel:     "gpt-4-vision-preview",
			VisionMaxTokens: 500,
			SystemPrompt:    "You are a helpful assistant.",
			ModelParams: aiModelParams{
				Temperature: ptr[float32](0.7),
				MaxTokens:   ptr(1000),
			},
		},
		{
			Type:      ProviderTypeOpenAI,
			Name:      "llama",
			BaseURL:   "https://integrate.api.nvidia.com/v1",
			EnvAPIKey: "NVIDIA_API_KEY",
			Model:     "nvidia/nemotron-4-340b-instruct",
			ModelParams: aiModelParams{
				Temperature: ptr[float32](0.2),
				TopP:        ptr[float32](0.7),
				MaxTokens:   ptr(1024),
				Stream:      ptr(true),
			},
		},
		{
			Type:         ProviderTypeOpenAI,
			Name:         "mistral",
			BaseURL:      "https://api.mistral.ai/v1",
			EnvAPIKey:    "MISTRAL_API_KEY",
			Model:        "mistral-large-latest",
			SystemPrompt: "You are a helpful assistant.",
			ModelParams: aiModelParams{
				Temperature: ptr[float32](0.7),
				MaxTokens:   ptr(1000),
			},
		},
	}
}

func mergeProviders(defaults, custom []AIProviderConfig) []AIProviderConfig {
	result := slices.Clone(defaults)
	for _, p := range custom {
		i := slices.IndexFunc(result, func(d AIProviderConfig) bool { return d.Name == p.Name })
		if i < 0 {
			result = append(result, p)
			continue
		}
		result[i] = result[i].overlay(p)
	}
	return result
}

type ImageGenConfig struct {
	URL        string        `koanf:"url"`
	APIKey     string        `koanf:"api_key"`
	EnvAPIKey  string        `koanf:"env_api_key"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	Timeout    time.Duration `koanf:"timeout"`
}

func (c ImageGenConfig) GetAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(c.EnvAPIKey)
}

type GuardConfig struct {
	Enabled      bool     `koanf:"enabled"`
	BlockedWords []string `koanf:"blocked_words"`
	Reply        string   `koanf:"reply"`
}

type YoutubeConfig struct {
	MaxComments        int           `koanf:"max_comments"`
	TranscriptURL      string        `koanf:"transcript_url"`
	TranscriptCacheTTL time.Duration `koanf:"transcript_cache_ttl"`
	DefaultPrompt      string        `koanf:"default_prompt"`
}

type MedicineConfig struct {
	BaseURL        string        `koanf:"base_url"`
	MaxSubstitutes int           `koanf:"max_substitutes"`
	DefaultPrompt  string        `koanf:"default_prompt"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

type queueThrottleOptions struct {
	Period      time.Duration `koanf:"period"`
	Concurrency int           `koanf:"concurrency"`
	Requests    int           `koanf:"requests"`
}

type queueOptions struct {
	Enabled    bool                 `koanf:"enabled"`
	MaxRetries int                  `koanf:"max_retries"`
	RetryDelay time.Duration        `koanf:"retry_delay"`
	Timeout    time.Duration        `koanf:"timeout"`
	Throttle   queueThrottleOptions `koanf:"throttle"`
}

type commandConfig struct {
	Enabled bool         `koanf:"enabled"`
	Queue   queueOptions `koanf:"queue"`
}
