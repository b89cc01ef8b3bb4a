package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	GLOBAL_LANGUAGE              = "global.interface_language"
	GLOBAL_CLEANUP_INTERVAL      = "global.cleanup_interval"
	HTTP_PROXY                   = "http.proxy"
	HTTP_NO_PROXY                = "http.no_proxy"
	TELEGRAM_TOKEN               = "telegram.token"
	TELEGRAM_ALLOWED_USERS       = "telegram.allowed_users"
	TELEGRAM_ALLOWED_CHATS       = "telegram.allowed_chats"
	TELEGRAM_GROUP_MENTION_ONLY  = "telegram.group_mention_only"
	DATABASE_DSN                 = "database.dsn"
	STORAGE_BACKEND              = "storage.backend"
	STORAGE_BOLT_PATH            = "storage.bolt_path"
	STORAGE_MEMORY_LAYER         = "storage.memory_layer"
	FORMAT_DIALECT               = "format.dialect"
	FORMAT_MAX_CHUNK_LENGTH      = "format.max_chunk_length"
	FORMAT_DETECT_LANGUAGE       = "format.detect_language"
	LOGGING_LEVEL                = "logging.level"
	LOGGING_FORMAT               = "logging.format"
	LOGGING_WRITE_IN_FILE        = "logging.write_in_file"
	LOGGING_FILE_PATH            = "logging.file_path"
	AI_DEFAULT_PROVIDER          = "ai.default_provider"
	AI_VISION_PROVIDER           = "ai.vision_provider"
	AI_SYSTEM_PROMPT             = "ai.system_prompt"
	AI_HISTORY_SIZE              = "ai.history_size"
	AI_HISTORY_TTL               = "ai.history_ttl"
	AI_REQUEST_TIMEOUT           = "ai.request_timeout"
	AI_TOOLS_MAX_ITERATIONS      = "ai.tools_max_iterations"
	AI_FETCH_URLS                = "ai.fetch_urls"
	IMAGEGEN_URL                 = "imagegen.url"
	IMAGEGEN_API_KEY             = "imagegen.api_key"
	IMAGEGEN_ENV_API_KEY         = "imagegen.env_api_key"
	IMAGEGEN_MAX_RETRIES         = "imagegen.max_retries"
	IMAGEGEN_RETRY_DELAY         = "imagegen.retry_delay"
	IMAGEGEN_TIMEOUT             = "imagegen.timeout"
	GUARD_ENABLED                = "guard.enabled"
	GUARD_BLOCKED_WORDS          = "guard.blocked_words"
	GUARD_REPLY                  = "guard.reply"
	YOUTUBE_MAX_COMMENTS         = "youtube.max_comments"
	YOUTUBE_TRANSCRIPT_URL       = "youtube.transcript_url"
	YOUTUBE_TRANSCRIPT_CACHE_TTL = "youtube.transcript_cache_ttl"
	YOUTUBE_DEFAULT_PROMPT       = "youtube.default_prompt"
	MEDICINE_BASE_URL            = "medicine.base_url"
	MEDICINE_MAX_SUBSTITUTES     = "medicine.max_substitutes"
	MEDICINE_DEFAULT_PROMPT      = "medicine.default_prompt"
	MEDICINE_CACHE_TTL           = "medicine.cache_ttl"
)

// Environment variables used by earlier deployments of the bot. They are
// read only when the namespaced setting is empty.
const (
	legacyTelegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	legacyHuggingFaceEnv   = "HUGGINGFACE_TOKEN"
)

var defaultSQLiteParams = map[string]string{
	"_journal":      "WAL",
	"_busy_timeout": "10000",
	"_synchronous":  "NORMAL",
	"_cache":        "shared",
	"_auto_vacuum":  "INCREMENTAL",
}

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func defaults() map[string]any {
	return map[string]any{
		GLOBAL_LANGUAGE:              "en",
		GLOBAL_CLEANUP_INTERVAL:      time.Hour,
		TELEGRAM_TOKEN:               "",
		TELEGRAM_GROUP_MENTION_ONLY:  true,
		HTTP_PROXY:                   nil,
		DATABASE_DSN:                 "omnibot.db?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache=shared",
		STORAGE_BACKEND:              StorageBackendSQLite,
		STORAGE_BOLT_PATH:            "omnibot.bolt",
		STORAGE_MEMORY_LAYER:         true,
		FORMAT_DIALECT:               "markdownv2",
		FORMAT_MAX_CHUNK_LENGTH:      4096,
		FORMAT_DETECT_LANGUAGE:       false,
		LOGGING_LEVEL:                "info",
		LOGGING_FORMAT:               "text",
		LOGGING_WRITE_IN_FILE:        false,
		AI_DEFAULT_PROVIDER:          "gemini",
		AI_VISION_PROVIDER:           "gpt",
		AI_SYSTEM_PROMPT:             "",
		AI_HISTORY_SIZE:              20,
		AI_HISTORY_TTL:               0 * time.Second,
		AI_REQUEST_TIMEOUT:           2 * time.Minute,
		AI_TOOLS_MAX_ITERATIONS:      3,
		AI_FETCH_URLS:                true,
		IMAGEGEN_URL:                 "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-3.5-large",
		IMAGEGEN_ENV_API_KEY:         legacyHuggingFaceEnv,
		IMAGEGEN_MAX_RETRIES:         3,
		IMAGEGEN_RETRY_DELAY:         time.Second,
		IMAGEGEN_TIMEOUT:             2 * time.Minute,
		GUARD_ENABLED:                true,
		GUARD_REPLY:                  "Maalik pe no Comment.",
		YOUTUBE_MAX_COMMENTS:         0,
		YOUTUBE_TRANSCRIPT_URL:       "https://youtubetotranscript.com/transcript",
		YOUTUBE_TRANSCRIPT_CACHE_TTL: 24 * time.Hour,
		YOUTUBE_DEFAULT_PROMPT:       "Please summarize the video in detail in bullet points.",
		MEDICINE_BASE_URL:            "https://www.1mg.com",
		MEDICINE_MAX_SUBSTITUTES:     5,
		MEDICINE_DEFAULT_PROMPT:      "List all the details with substitute medicine details.",
		MEDICINE_CACHE_TTL:           12 * time.Hour,
		"commands.start.enabled":                      true,
		"commands.start.queue.enabled":                false,
		"commands.clear.enabled":                      true,
		"commands.clear.queue.enabled":                false,
		"commands.model.enabled":                      true,
		"commands.model.queue.enabled":                false,
		"commands.ask.enabled":                        true,
		"commands.ask.queue.enabled":                  true,
		"commands.ask.queue.timeout":                  3 * time.Minute,
		"commands.ask.queue.max_retries":              0,
		"commands.ask.queue.throttle.period":          10 * time.Second,
		"commands.ask.queue.throttle.concurrency":     4,
		"commands.ask.queue.throttle.requests":        4,
		"commands.imagine.enabled":                    true,
		"commands.imagine.queue.enabled":              true,
		"commands.imagine.queue.timeout":              3 * time.Minute,
		"commands.imagine.queue.max_retries":          1,
		"commands.imagine.queue.retry_delay":          30 * time.Second,
		"commands.imagine.queue.throttle.period":      30 * time.Second,
		"commands.imagine.queue.throttle.requests":    2,
		"commands.youtube.enabled":                    true,
		"commands.youtube.queue.enabled":              true,
		"commands.youtube.queue.max_retries":          0,
		"commands.youtube.queue.timeout":              5 * time.Minute,
		"commands.youtube.queue.throttle.period":      30 * time.Second,
		"commands.youtube.queue.throttle.requests":    3,
		"commands.youtube.queue.throttle.concurrency": 3,
	}
}

func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %w", path, err)
			}
			break
		}
	}

	if err := k.Load(env.Provider("OMNIBOT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "OMNIBOT_")),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if k.String(TELEGRAM_TOKEN) == "" {
		if token := os.Getenv(legacyTelegramTokenEnv); token != "" {
			_ = k.Set(TELEGRAM_TOKEN, token)
		}
	}

	if k.String(TELEGRAM_TOKEN) == "" {
		return nil, ErrTokenRequired
	}

	return &Config{k: k}, nil
}

// New builds a config from defaults and explicit values without reading
// files or the environment.
func New(values map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			return nil, err
		}
	}
	return &Config{k: k}, nil
}

func (c *Config) GetCommandConfig(name string) *commandConfig {
	concurrency := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.concurrency", name))
	if concurrency == 0 {
		concurrency = 1
	}
	requests := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.requests", name))
	if requests == 0 {
		requests = 1
	}
	period := c.k.Duration(fmt.Sprintf("commands.%s.queue.throttle.period", name))
	if period == 0 {
		period = 10 * time.Second
	}
	timeout := c.k.Duration(fmt.Sprintf("commands.%s.queue.timeout", name))
	if timeout == 0 {
		timeout = 1 * time.Minute
	}
	return &commandConfig{
		Enabled: c.k.Bool(fmt.Sprintf("commands.%s.enabled", name)),
		Queue: queueOptions{
			Enabled:    c.k.Bool(fmt.Sprintf("commands.%s.queue.enabled", name)),
			MaxRetries: c.k.Int(fmt.Sprintf("commands.%s.queue.max_retries", name)),
			RetryDelay: c.k.Duration(fmt.Sprintf("commands.%s.queue.retry_delay", name)),
			Timeout:    timeout,
			Throttle: queueThrottleOptions{
				Concurrency: concurrency,
				Period:      period,
				Requests:    requests,
			},
		},
	}
}

func (c *Config) Telegram() TelegramConfig {
	var cfg TelegramConfig
	if err := c.k.Unmarshal("telegram", &cfg); err != nil {
		log.Fatalf("telegramConfig unmarshal error: %v", err)
		return TelegramConfig{}
	}
	return cfg
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		LogLevel:    c.k.String(LOGGING_LEVEL),
		Format:      c.k.String(LOGGING_FORMAT),
		WriteInFile: c.k.Bool(LOGGING_WRITE_IN_FILE),
		FilePath:    c.k.String(LOGGING_FILE_PATH),
	}
}

func (c *Config) GetDatabaseDSN() string {
	dsn := c.k.String(DATABASE_DSN)
	parts := strings.Split(dsn, "?")
	path := parts[0]

	params := make(map[string]string)
	if len(parts) > 1 {
		for param := range strings.SplitSeq(parts[1], "&") {
			if kv := strings.Split(param, "="); len(kv) == 2 {
				params[kv[0]] = kv[1]
			}
		}
	}

	for k, v := range defaultSQLiteParams {
		if _, exists := params[k]; !exists {
			params[k] = v
		}
	}

	var queryParams []string
	for k, v := range params {
		queryParams = append(queryParams, k+"="+v)
	}
	sort.Strings(queryParams)

	if len(queryParams) > 0 {
		return path + "?" + strings.Join(queryParams, "&")
	}
	return path
}

func (c *Config) Storage() StorageConfig {
	return StorageConfig{
		Backend:     strings.ToLower(c.k.String(STORAGE_BACKEND)),
		BoltPath:    c.k.String(STORAGE_BOLT_PATH),
		MemoryLayer: c.k.Bool(STORAGE_MEMORY_LAYER),
	}
}

func (c *Config) Format() FormatConfig {
	return FormatConfig{
		Dialect:        c.k.String(FORMAT_DIALECT),
		MaxChunkLength: c.k.Int(FORMAT_MAX_CHUNK_LENGTH),
		DetectLanguage: c.k.Bool(FORMAT_DETECT_LANGUAGE),
	}
}

func (c *Config) Global() globalConfig {
	return globalConfig{
		InterfaceLanguage: c.k.String(GLOBAL_LANGUAGE),
		CleanupInterval:   c.k.Duration(GLOBAL_CLEANUP_INTERVAL),
	}
}

func (c *Config) HTTP() HTTPConfig {
	var proxy string
	if proxyValue := c.k.Get(HTTP_PROXY); proxyValue != nil {
		proxy, _ = proxyValue.(string)
	}

	return HTTPConfig{
		proxy:   &proxy,
		noProxy: c.k.String(HTTP_NO_PROXY),
	}
}

func (c *Config) AI() AIConfig {
	var cfg AIConfig
	if err := c.k.Unmarshal("ai", &cfg); err != nil {
		log.Fatalf("aiConfig unmarshal error: %v", err)
		return AIConfig{}
	}
	cfg.Providers = mergeProviders(DefaultProviders(), cfg.Providers)
	return cfg
}

func (c *Config) ImageGen() ImageGenConfig {
	return ImageGenConfig{
		URL:        c.k.String(IMAGEGEN_URL),
		APIKey:     c.k.String(IMAGEGEN_API_KEY),
		EnvAPIKey:  c.k.String(IMAGEGEN_ENV_API_KEY),
		MaxRetries: c.k.Int(IMAGEGEN_MAX_RETRIES),
		RetryDelay: c.k.Duration(IMAGEGEN_RETRY_DELAY),
		Timeout:    c.k.Duration(IMAGEGEN_TIMEOUT),
	}
}

func (c *Config) Guard() GuardConfig {
	return GuardConfig{
		Enabled:      c.k.Bool(GUARD_ENABLED),
		BlockedWords: c.k.Strings(GUARD_BLOCKED_WORDS),
		Reply:        c.k.String(GUARD_REPLY),
	}
}

func (c *Config) Youtube() YoutubeConfig {
	return YoutubeConfig{
		MaxComments:        c.k.Int(YOUTUBE_MAX_COMMENTS),
		TranscriptURL:      c.k.String(YOUTUBE_TRANSCRIPT_URL),
		TranscriptCacheTTL: c.k.Duration(YOUTUBE_TRANSCRIPT_CACHE_TTL),
		DefaultPrompt:      c.k.String(YOUTUBE_DEFAULT_PROMPT),
	}
}

func (c *Config) Medicine() MedicineConfig {
	return MedicineConfig{
		BaseURL:        c.k.String(MEDICINE_BASE_URL),
		MaxSubstitutes: c.k.Int(MEDICINE_MAX_SUBSTITUTES),
		DefaultPrompt:  c.k.String(MEDICINE_DEFAULT_PROMPT),
		CacheTTL:       c.k.Duration(MEDICINE_CACHE_TTL),
	}
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"omnibot.toml",
		"config.toml",
		filepath.Join(xdgConfig, "omnibot", "config.toml"),
		"/etc/omnibot/config.toml",
	}
}
