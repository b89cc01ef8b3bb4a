package core

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/commands"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const (
	botID       = 42
	botUsername = "omnibot"
	groupChatID = -100
)

type fakeClient struct {
	telegram.Client

	mu        sync.Mutex
	sent      []telegram.MessageConfig
	callbacks []telegram.MessageConfig
}

func (c *fakeClient) Self() telegram.User {
	return telegram.User{ID: botID, UserName: botUsername, IsBot: true}
}

func (c *fakeClient) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return &telegram.Message{}, nil
}

func (c *fakeClient) Request(msg telegram.MessageConfig) (*telegram.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, msg)
	return &telegram.APIResponse{Ok: true}, nil
}

type fakeCommand struct {
	name    string
	aliases []string
	handled chan telegram.Update
}

func newFakeCommand(name string, aliases ...string) *fakeCommand {
	return &fakeCommand{name: name, aliases: aliases, handled: make(chan telegram.Update, 4)}
}

func (c *fakeCommand) Name() string      { return c.name }
func (c *fakeCommand) Aliases() []string { return c.aliases }

func (c *fakeCommand) Handle(_ context.Context, update telegram.Update) error {
	c.handled <- update
	return nil
}

func (c *fakeCommand) Execute(context.Context, telegram.Update) error { return nil }

func (c *fakeCommand) GetQueueConfig() commands.QueueConfig { return commands.QueueConfig{} }

func (c *fakeCommand) next(t *testing.T) telegram.Update {
	t.Helper()
	select {
	case update := <-c.handled:
		return update
	case <-time.After(time.Second):
		t.Fatalf("command %q was not handled", c.name)
		return telegram.Update{}
	}
}

func (c *fakeCommand) none(t *testing.T) {
	t.Helper()
	select {
	case <-c.handled:
		t.Fatalf("command %q should not be handled", c.name)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeForgetter struct {
	mu     sync.Mutex
	called []int
}

func (f *fakeForgetter) Forget(_ context.Context, _ int64, messageID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, messageID)
	return true, nil
}

type botFixture struct {
	bot     *Bot
	client  *fakeClient
	history *fakeForgetter
	ask     *fakeCommand
	model   *fakeCommand
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	cfg, err := config.New(map[string]any{
		config.TELEGRAM_ALLOWED_USERS: []int64{7},
		config.TELEGRAM_ALLOWED_CHATS: []int64{groupChatID},
	})
	require.NoError(t, err)
	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)

	f := &botFixture{
		client:  &fakeClient{},
		history: &fakeForgetter{},
		ask:     newFakeCommand(AskCommandName),
		model:   newFakeCommand("model", "m", "gpt"),
	}
	f.bot = NewBot(f.client, nil, f.history, logger.NewTestLogger(), cfg, localizer)
	f.bot.RegisterCommand(f.ask)
	f.bot.RegisterCommand(f.model)
	return f
}

func message(chatID int64, chatType string, userID int64, text string) *telegram.MessageOriginal {
	msg := &telegram.MessageOriginal{
		MessageID: 10,
		Chat:      tgbotapi.Chat{ID: chatID, Type: chatType},
		From:      &tgbotapi.User{ID: userID, UserName: "ann"},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []telegram.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return msg
}

func TestBot_RoutesCommands(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		handled bool
	}{
		{name: "by name", text: "/model gpt", handled: true},
		{name: "by alias", text: "/gpt", handled: true},
		{name: "addressed to this bot", text: "/m@omnibot llama", handled: true},
		{name: "addressed to another bot", text: "/model@otherbot gpt", handled: false},
		{name: "unknown command", text: "/weather", handled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBotFixture(t)
			f.bot.HandleUpdate(t.Context(), telegram.Update{Message: message(7, "private", 7, tt.text)})

			if tt.handled {
				update := f.model.next(t)
				assert.Equal(t, tt.text, update.Message.Text)
			} else {
				f.model.none(t)
			}
			f.ask.none(t)
		})
	}
}

func TestBot_PlainTextGoesToAsk(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(t.Context(), telegram.Update{Message: message(7, "private", 7, "What is Go?")})

	update := f.ask.next(t)
	assert.Equal(t, "What is Go?", update.Message.Text)
}

func TestBot_GroupMentions(t *testing.T) {
	t.Run("ignored without mention", func(t *testing.T) {
		f := newBotFixture(t)
		f.bot.HandleUpdate(t.Context(), telegram.Update{Message: message(groupChatID, "supergroup", 9, "just chatting")})
		f.ask.none(t)
	})

	t.Run("mention is stripped", func(t *testing.T) {
		f := newBotFixture(t)
		f.bot.HandleUpdate(t.Context(), telegram.Update{Message: message(groupChatID, "supergroup", 9, "@omnibot what is Go?")})

		update := f.ask.next(t)
		assert.Equal(t, "what is Go?", update.Message.Text)
	})

	t.Run("reply to bot", func(t *testing.T) {
		f := newBotFixture(t)
		msg := message(groupChatID, "group", 9, "and Rust?")
		msg.ReplyToMessage = &telegram.MessageOriginal{
			MessageID: 5,
			From:      &tgbotapi.User{ID: botID, UserName: botUsername, IsBot: true},
		}
		f.bot.HandleUpdate(t.Context(), telegram.Update{Message: msg})

		update := f.ask.next(t)
		assert.Equal(t, "and Rust?", update.Message.Text)
	})
}

func TestBot_NotAllowed(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(t.Context(), telegram.Update{Message: message(55, "private", 55, "hello")})

	f.ask.none(t)
	f.client.mu.Lock()
	defer f.client.mu.Unlock()
	require.Len(t, f.client.sent, 1)
	reply, ok := f.client.sent[0].(telegram.TextMessage)
	require.True(t, ok)
	assert.Equal(t, int64(55), reply.ChatID)
	assert.NotEmpty(t, reply.Text)
}

func TestBot_CallbackReplaysCommand(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(t.Context(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 7, UserName: "ann"},
		Message: message(7, "private", botID, "Current model"),
		Data:    "model mistral",
	}})

	update := f.model.next(t)
	require.NotNil(t, update.Message)
	assert.Equal(t, "/model mistral", update.Message.Text)
	assert.Equal(t, int64(7), update.Message.From.ID)
	assert.Equal(t, "mistral", update.Message.CommandArguments())

	f.client.mu.Lock()
	defer f.client.mu.Unlock()
	assert.Len(t, f.client.callbacks, 1)
}

func TestBot_EditedMessageIsForgotten(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(t.Context(), telegram.Update{EditedMessage: message(7, "private", 7, "fixed typo")})

	assert.Equal(t, []int{10}, f.history.called)
	f.ask.none(t)
}

func TestBot_RegisterCommand(t *testing.T) {
	f := newBotFixture(t)
	f.bot.RegisterCommand(nil)
	f.bot.RegisterCommand(newFakeCommand(""))

	assert.Len(t, f.bot.GetCommands(), 2)
}
