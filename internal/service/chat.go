package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

var ErrUnknownModel = errors.New("unknown model")

type providerCatalog interface {
	Has(name string) bool
	Default() string
	Providers() []string
}

// ChatService keeps the provider each chat talks to.
type ChatService struct {
	store     storage.Store
	providers providerCatalog
	logger    logger.Logger
}

func NewChatService(store storage.Store, providers providerCatalog, l logger.Logger) *ChatService {
	return &ChatService{
		store:     store,
		providers: providers,
		logger:    l,
	}
}

func modelKey(chatID int64) string {
	return "model:" + strconv.FormatInt(chatID, 10)
}

// GetChatModel returns the provider selected for the chat, or the default
// one when nothing valid is stored.
func (s *ChatService) GetChatModel(ctx context.Context, chatID int64) (string, error) {
	raw, ok, err := s.store.Get(ctx, modelKey(chatID))
	if err != nil {
		return s.providers.Default(), fmt.Errorf("failed to get chat model: %w", err)
	}
	if !ok {
		return s.providers.Default(), nil
	}

	name := string(raw)
	if !s.providers.Has(name) {
		s.logger.WithFields(logger.Fields{
			"chat_id": chatID,
			"model":   name,
		}).Warn("Stored model is no longer available, using default")
		return s.providers.Default(), nil
	}
	return name, nil
}

func (s *ChatService) SetChatModel(ctx context.Context, chatID int64, name string) error {
	if !s.providers.Has(name) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return s.store.Set(ctx, modelKey(chatID), []byte(name), 0)
}

func (s *ChatService) ResetChatModel(ctx context.Context, chatID int64) error {
	return s.store.Delete(ctx, modelKey(chatID))
}

func (s *ChatService) Models() []string {
	return s.providers.Providers()
}
