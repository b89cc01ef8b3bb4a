package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

func TestChatService(t *testing.T) {
	ctx := t.Context()
	store := storage.NewMemoryStore()
	log := logger.NewTestLogger()
	chats := NewChatService(store, staticCatalog{names: []string{"gemini", "gpt", "llama"}, def: "gemini"}, log)

	model, err := chats.GetChatModel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "gemini", model, "default before any selection")

	require.NoError(t, chats.SetChatModel(ctx, 1, "llama"))
	model, err = chats.GetChatModel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "llama", model)

	model, err = chats.GetChatModel(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "gemini", model, "selection is per chat")

	err = chats.SetChatModel(ctx, 1, "claude")
	assert.ErrorIs(t, err, ErrUnknownModel)

	require.NoError(t, chats.ResetChatModel(ctx, 1))
	model, _ = chats.GetChatModel(ctx, 1)
	assert.Equal(t, "gemini", model)

	assert.Equal(t, []string{"gemini", "gpt", "llama"}, chats.Models())
}

func TestChatServiceDropsRemovedModel(t *testing.T) {
	ctx := t.Context()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, modelKey(5), []byte("mistral"), 0))

	log := logger.NewTestLogger()
	chats := NewChatService(store, staticCatalog{names: []string{"gemini"}, def: "gemini"}, log)

	model, err := chats.GetChatModel(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "gemini", model)
	assert.True(t, log.HasEntry("warn", "Stored model is no longer available, using default"))
}
