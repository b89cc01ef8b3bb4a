package model

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/storage"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type recordingClient struct {
	telegram.Client

	mu   sync.Mutex
	sent []telegram.TextMessage
}

func (c *recordingClient) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg.(telegram.TextMessage))
	return &telegram.Message{}, nil
}

type stubProvider string

func (p stubProvider) Name() string { return string(p) }

func (p stubProvider) Ask(context.Context, ai.Request) (string, error) { return "", nil }

func (p stubProvider) Supports(ai.Attachment) bool { return false }

func newTestCommand(t *testing.T, providers ...string) (*Command, *recordingClient, *service.ChatService) {
	t.Helper()

	log := logger.NewTestLogger()
	cfg, err := config.New(nil)
	require.NoError(t, err)
	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)

	registry := ai.NewProviderRegistry(config.AIConfig{DefaultProvider: "gemini"}, log)
	for _, name := range providers {
		registry.RegisterProvider(name, stubProvider(name))
	}

	client := &recordingClient{}
	chats := service.NewChatService(storage.NewMemoryStore(), registry, log)
	cmd := New(&di.Container{
		BotClient:   client,
		Logger:      log,
		Cfg:         cfg,
		ChatService: chats,
		Localizer:   localizer,
	})
	return cmd, client, chats
}

func commandUpdate(text string) telegram.Update {
	name, _, _ := strings.Cut(text, " ")
	return telegram.Update{Message: &telegram.MessageOriginal{
		MessageID: 3,
		Chat:      tgbotapi.Chat{ID: 1, Type: "private"},
		From:      &tgbotapi.User{ID: 7},
		Text:      text,
		Entities:  []telegram.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func TestCommand_Switch(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		model string
		reply string
	}{
		{name: "shortcut", text: "/gpt", model: "gpt", reply: "Switched to GPT mode!"},
		{name: "argument", text: "/model mistral", model: "mistral", reply: "Switched to Mistral mode!"},
		{name: "short alias", text: "/m Llama", model: "llama", reply: "Switched to LLaMA mode!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, client, chats := newTestCommand(t, "gemini", "gpt", "llama", "mistral")

			require.NoError(t, cmd.Execute(t.Context(), commandUpdate(tt.text)))

			current, err := chats.GetChatModel(t.Context(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.model, current)
			require.Len(t, client.sent, 1)
			assert.Equal(t, tt.reply, client.sent[0].Text)
			assert.Equal(t, 3, client.sent[0].ReplyTo)
		})
	}
}

func TestCommand_UnknownModel(t *testing.T) {
	cmd, client, chats := newTestCommand(t, "gemini", "gpt")

	require.NoError(t, cmd.Execute(t.Context(), commandUpdate("/model claude")))

	current, err := chats.GetChatModel(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, "gemini", current)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "Unknown mode claude. Available: gemini, gpt", client.sent[0].Text)
}

func TestCommand_ShowCurrent(t *testing.T) {
	t.Run("keyboard", func(t *testing.T) {
		cmd, client, _ := newTestCommand(t, "gemini", "gpt", "mistral")

		require.NoError(t, cmd.Execute(t.Context(), commandUpdate("/model")))

		require.Len(t, client.sent, 1)
		reply := client.sent[0]
		assert.Equal(t, "Current mode: Gemini. Choose another one:", reply.Text)
		require.NotNil(t, reply.ReplyMarkup)
		rows := reply.ReplyMarkup.InlineKeyboard
		require.Len(t, rows, 2)
		assert.Equal(t, "• Gemini", rows[0][0].Text)
		require.NotNil(t, rows[0][1].CallbackData)
		assert.Equal(t, "model gpt", *rows[0][1].CallbackData)
		assert.Equal(t, "Mistral", rows[1][0].Text)
	})

	t.Run("single provider", func(t *testing.T) {
		cmd, client, _ := newTestCommand(t, "gemini")

		require.NoError(t, cmd.Execute(t.Context(), commandUpdate("/model")))

		require.Len(t, client.sent, 1)
		assert.Equal(t, "Current mode: Gemini", client.sent[0].Text)
		assert.Nil(t, client.sent[0].ReplyMarkup)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "LLaMA", DisplayName("llama"))
	assert.Equal(t, "custom", DisplayName("custom"))
}
