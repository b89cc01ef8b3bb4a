package ai

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
)

var (
	ErrProviderNotFound        = errors.New("provider not found")
	ErrUnsupportedProviderType = errors.New("unsupported provider type")
)

type ProviderRegistry struct {
	providers       map[string]Provider
	providersMutex  sync.RWMutex
	logger          logger.Logger
	defaultProvider string
	visionProvider  string
}

func NewProviderRegistry(cfg config.AIConfig, log logger.Logger) *ProviderRegistry {
	return &ProviderRegistry{
		providers:       make(map[string]Provider),
		logger:          log,
		defaultProvider: cfg.DefaultProvider,
		visionProvider:  cfg.VisionProvider,
	}
}

// NewProvider builds a client for one configured backend. Tools are only
// attached to providers that have them enabled.
func NewProvider(
	providerCfg config.AIProviderConfig,
	aiCfg config.AIConfig,
	tools ToolExecutor,
	httpClient *http.Client,
	log logger.Logger,
) (Provider, error) {
	if providerCfg.SystemPrompt == "" {
		providerCfg.SystemPrompt = aiCfg.SystemPrompt
	}
	if !providerCfg.ToolsEnabled() {
		tools = nil
	}

	switch providerCfg.Type {
	case config.ProviderTypeGemini:
		return NewGeminiClient(providerCfg, tools, aiCfg.ToolsMaxIterations, log), nil
	case config.ProviderTypeOpenAI:
		return NewOpenAICompatibleClient(providerCfg, httpClient, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProviderType, providerCfg.Type)
	}
}

func (r *ProviderRegistry) RegisterProvider(name string, provider Provider) {
	r.providersMutex.Lock()
	defer r.providersMutex.Unlock()
	r.providers[name] = provider
}

func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	r.providersMutex.RLock()
	defer r.providersMutex.RUnlock()

	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

func (r *ProviderRegistry) Has(name string) bool {
	_, err := r.GetProvider(name)
	return err == nil
}

func (r *ProviderRegistry) Default() string {
	return r.defaultProvider
}

// Providers returns registered names in a stable order.
func (r *ProviderRegistry) Providers() []string {
	r.providersMutex.RLock()
	defer r.providersMutex.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the provider for name, falling back to the default
// provider when name is empty or unknown. When the request carries
// attachments the chosen provider can't read, the vision provider is used.
func (r *ProviderRegistry) Resolve(name string, attachments []Attachment) (Provider, error) {
	provider, err := r.GetProvider(name)
	if err != nil {
		if name != "" {
			r.logger.WithField("provider", name).Warn("Unknown provider, using default")
		}
		provider, err = r.GetProvider(r.defaultProvider)
		if err != nil {
			return nil, err
		}
	}

	for _, a := range attachments {
		if provider.Supports(a) {
			continue
		}
		vision, err := r.GetProvider(r.visionProvider)
		if err != nil || !vision.Supports(a) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAttachment, a.MIMEType)
		}
		r.logger.WithFields(logger.Fields{
			"provider": provider.Name(),
			"vision":   vision.Name(),
			"mime":     a.MIMEType,
		}).Debug("Attachment not supported, using vision provider")
		return vision, nil
	}

	return provider, nil
}
