package imagine

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/imagegen"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/markdown"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/service/cancel"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type MockClient struct {
	telegram.Client
	mock.Mock
}

func (_m *MockClient) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	ret := _m.Called(msg)
	return ret.Get(0).(*telegram.Message), ret.Error(1)
}

func (_m *MockClient) SendChatAction(chatID int64, action telegram.ChatAction) error {
	return _m.Called(chatID, action).Error(0)
}

type MockGenerator struct {
	mock.Mock
}

func (_m *MockGenerator) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	ret := _m.Called(ctx, prompt)
	image, _ := ret.Get(0).(*imagegen.Image)
	return image, ret.Error(1)
}

func newTestCommand(t *testing.T) (*Command, *MockClient, *MockGenerator, *cancel.Manager) {
	t.Helper()

	cfg, err := config.New(nil)
	require.NoError(t, err)
	localizer, err := service.NewLocalizer("en")
	require.NoError(t, err)

	client := &MockClient{}
	client.Test(t)
	images := &MockGenerator{}
	images.Test(t)
	t.Cleanup(func() {
		client.AssertExpectations(t)
		images.AssertExpectations(t)
	})

	requests := cancel.NewManager()
	cmd := New(&di.Container{
		BotClient: client,
		Logger:    logger.NewTestLogger(),
		Cfg:       cfg,
		Localizer: localizer,
		Requests:  requests,
	})
	cmd.images = images
	return cmd, client, images, requests
}

func imagineUpdate(text string) telegram.Update {
	name, _, _ := strings.Cut(text, " ")
	return telegram.Update{Message: &telegram.MessageOriginal{
		MessageID: 3,
		Chat:      tgbotapi.Chat{ID: 1, Type: "private"},
		From:      &tgbotapi.User{ID: 7},
		Text:      text,
		Entities:  []telegram.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func textReply(text string) any {
	return mock.MatchedBy(func(msg telegram.MessageConfig) bool {
		m, ok := msg.(telegram.TextMessage)
		return ok && m.ChatID == 1 && m.ReplyTo == 3 && m.Text == text
	})
}

func TestCommand_Usage(t *testing.T) {
	cmd, client, _, _ := newTestCommand(t)
	client.On("Send", textReply("Please describe the image, for example: /imagine a lighthouse at dawn")).
		Return(&telegram.Message{}, nil).Once()

	require.NoError(t, cmd.Execute(t.Context(), imagineUpdate("/imagine   ")))
}

func TestCommand_GenerationFails(t *testing.T) {
	cmd, client, images, _ := newTestCommand(t)
	errUpstream := errors.New("model is loading")

	client.On("SendChatAction", int64(1), telegram.ActionUploadPhoto).Return(nil).Once()
	images.On("Generate", mock.Anything, "a red fox").Return(nil, errUpstream).Once()
	client.On("Send", textReply("Sorry, I couldn't generate that image. Please try again later.")).
		Return(&telegram.Message{}, nil).Once()

	err := cmd.Execute(t.Context(), imagineUpdate("/imagine a red fox"))

	assert.ErrorIs(t, err, errUpstream)
}

func TestCommand_SendsPhoto(t *testing.T) {
	cmd, client, images, requests := newTestCommand(t)

	client.On("SendChatAction", int64(1), telegram.ActionUploadPhoto).Return(nil).Once()
	images.On("Generate", mock.Anything, "a red fox").
		Run(func(mock.Arguments) {
			assert.True(t, requests.IsActive(1, 3), "generation must be cancellable by /clear")
		}).
		Return(&imagegen.Image{Data: []byte("png-bytes"), MIMEType: "image/png"}, nil).Once()

	var sent telegram.PhotoMessage
	client.On("Send", mock.AnythingOfType("telegram.PhotoMessage")).
		Run(func(args mock.Arguments) { sent = args.Get(0).(telegram.PhotoMessage) }).
		Return(&telegram.Message{}, nil).Once()

	require.NoError(t, cmd.Execute(t.Context(), imagineUpdate("/imagine a red fox")))

	assert.Equal(t, int64(1), sent.ChatID)
	assert.Equal(t, 3, sent.ReplyTo)
	assert.Equal(t, "a red fox", sent.Caption)
	file, ok := sent.Photo.(telegram.FileBytes)
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), file.Bytes)
	assert.True(t, strings.HasSuffix(file.Name, ".png"), file.Name)
	assert.False(t, requests.IsActive(1, 3))
}

func TestCommand_LongPromptCaption(t *testing.T) {
	cmd, client, images, _ := newTestCommand(t)
	prompt := strings.Repeat("x", 1500)

	client.On("SendChatAction", int64(1), telegram.ActionUploadPhoto).Return(nil).Once()
	images.On("Generate", mock.Anything, prompt).
		Return(&imagegen.Image{Data: []byte("png"), MIMEType: "image/png"}, nil).Once()

	var sent telegram.PhotoMessage
	client.On("Send", mock.AnythingOfType("telegram.PhotoMessage")).
		Run(func(args mock.Arguments) { sent = args.Get(0).(telegram.PhotoMessage) }).
		Return(&telegram.Message{}, nil).Once()

	require.NoError(t, cmd.Execute(t.Context(), imagineUpdate("/imagine "+prompt)))

	assert.Equal(t, telegram.MaxCaptionLength, markdown.UTF16Len(sent.Caption))
	assert.True(t, strings.HasSuffix(sent.Caption, "…"))
}
