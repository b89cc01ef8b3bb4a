package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/storage"
)

const DefaultHistorySize = 20

// History is the bounded per chat conversation log. The oldest entries are
// dropped once a chat holds more than size entries.
type History struct {
	store storage.Store
	size  int
	ttl   time.Duration
	// serialises read-modify-write cycles on the stored list
	mu sync.Mutex
}

func NewHistory(store storage.Store, size int, ttl time.Duration) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		store: store,
		size:  size,
		ttl:   ttl,
	}
}

func historyKey(chatID int64) string {
	return "history:" + strconv.FormatInt(chatID, 10)
}

func (h *History) Get(ctx context.Context, chatID int64) ([]ai.Message, error) {
	raw, ok, err := h.store.Get(ctx, historyKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var messages []ai.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return messages, nil
}

func (h *History) Append(ctx context.Context, chatID int64, entries ...ai.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	messages, err := h.Get(ctx, chatID)
	if err != nil {
		return err
	}

	messages = append(messages, entries...)
	if over := len(messages) - h.size; over > 0 {
		messages = messages[over:]
	}
	return h.save(ctx, chatID, messages)
}

func (h *History) Clear(ctx context.Context, chatID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Delete(ctx, historyKey(chatID))
}

// DeleteMessage removes the entry tied to a Telegram message id. It reports
// whether anything was removed.
func (h *History) DeleteMessage(ctx context.Context, chatID int64, messageID int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	messages, err := h.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	i := slices.IndexFunc(messages, func(m ai.Message) bool {
		return messageID != 0 && m.MessageID == messageID
	})
	if i < 0 {
		return false, nil
	}

	return true, h.save(ctx, chatID, slices.Delete(messages, i, i+1))
}

func (h *History) save(ctx context.Context, chatID int64, messages []ai.Message) error {
	if len(messages) == 0 {
		return h.store.Delete(ctx, historyKey(chatID))
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := h.store.Set(ctx, historyKey(chatID), raw, h.ttl); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
