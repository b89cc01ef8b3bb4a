package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/muratoffalex/omnibot/internal/logger"
)

// Telegram refuses files above this size for bots.
const maxDownloadSize = 20 << 20

var (
	ErrFileTooLarge = errors.New("telegram file is too large")

	retryAfterRegex = regexp.MustCompile(`retry after (\d+)`)
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type BotClient struct {
	bot        *tgbotapi.BotAPI
	httpClient HTTPClient
	logger     logger.Logger
}

func NewBotClient(bot *tgbotapi.BotAPI, httpClient HTTPClient, l logger.Logger) *BotClient {
	return &BotClient{
		bot:        bot,
		httpClient: httpClient,
		logger:     l,
	}
}

func (c *BotClient) Send(msg MessageConfig) (*Message, error) {
	sentMsg, err := c.bot.Send(msg.ToChattable())
	if err != nil {
		return nil, err
	}
	return adaptMessage(&sentMsg), nil
}

// SendWithRetry waits out "Too Many Requests" answers up to maxRetryCount
// times. Any other error is returned at once.
func (c *BotClient) SendWithRetry(ctx context.Context, msg MessageConfig, maxRetryCount int) (*Message, error) {
	maxRetries := max(maxRetryCount, 1)

	for attempt := 1; ; attempt++ {
		sentMsg, err := c.bot.Send(msg.ToChattable())
		if err == nil {
			return adaptMessage(&sentMsg), nil
		}

		retryAfter, limited := RetryAfter(err)
		if !limited {
			return nil, err
		}
		if attempt > maxRetries {
			c.logger.WithError(err).Error("Max retries reached for rate limited message")
			return nil, err
		}

		waitTime := retryAfter + 2*time.Second
		c.logger.WithFields(logger.Fields{
			"retry_after": retryAfter,
			"wait_time":   waitTime,
			"attempt":     attempt,
		}).Warn("Rate limit hit, waiting before retry")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// DownloadFile fetches a file sent to the bot by its file id.
func (c *BotClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if file.FileSize > maxDownloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.bot.Token), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (c *BotClient) GetUpdatesChan(config UpdateConfig) <-chan Update {
	return c.bot.GetUpdatesChan(tgbotapi.UpdateConfig{
		Offset:  config.Offset,
		Limit:   config.Limit,
		Timeout: config.Timeout,
	})
}

func (c *BotClient) StopReceivingUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *BotClient) Request(message MessageConfig) (*APIResponse, error) {
	return c.bot.Request(message.ToChattable())
}

func (c *BotClient) SendChatAction(chatID int64, action ChatAction) error {
	_, err := c.bot.Request(tgbotapi.NewChatAction(chatID, string(action)))
	return err
}

func (c *BotClient) NewUpdate(offset, timeout, limit int) UpdateConfig {
	return UpdateConfig{
		Offset:  offset,
		Limit:   limit,
		Timeout: timeout,
	}
}

func (c *BotClient) DeleteMessage(chatID int64, messageID int) (*APIResponse, error) {
	return c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (c *BotClient) Self() User {
	return adaptUser(&c.bot.Self)
}

// IsParseError reports whether Telegram rejected the message markup.
func IsParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse entities")
}

// RetryAfter extracts the flood wait from a "Too Many Requests" error.
func RetryAfter(err error) (time.Duration, bool) {
	if err == nil || !strings.Contains(err.Error(), "Too Many Requests") {
		return 0, false
	}
	matches := retryAfterRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0, true
	}
	seconds, _ := strconv.Atoi(matches[1])
	return time.Duration(seconds) * time.Second, true
}

// AdaptMessage converts an incoming api message.
func AdaptMessage(msg *MessageOriginal) *Message {
	return adaptMessage(msg)
}

func adaptMessage(msg *tgbotapi.Message) *Message {
	if msg == nil {
		return nil
	}

	return &Message{
		MessageID: msg.MessageID,
		Chat:      adaptChat(&msg.Chat),
		Text:      msg.Text,
		Caption:   msg.Caption,
		From:      adaptUser(msg.From),
		ReplyTo:   adaptMessage(msg.ReplyToMessage),
		Command:   msg.Command(),
	}
}

func adaptUser(user *tgbotapi.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        int64(user.ID),
		FirstName: user.FirstName,
		UserName:  user.UserName,
		IsBot:     user.IsBot,
	}
}

func adaptChat(chat *tgbotapi.Chat) Chat {
	if chat == nil {
		return Chat{}
	}
	return Chat{
		ID:   chat.ID,
		Type: chat.Type,
	}
}
