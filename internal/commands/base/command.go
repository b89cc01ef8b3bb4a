package base

import (
	"context"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/fetcher"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/service/cancel"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type enqueuer interface {
	Add(ctx context.Context, cmd commands.Command, update telegram.Update, maxRetries int, retryDelay int64) error
}

type Command struct {
	command    commands.Command
	Tg         telegram.Client
	Logger     logger.Logger
	Cfg        *config.Config
	Queue      enqueuer
	Dispatcher *service.Dispatcher
	Chats      *service.ChatService
	Localizer  *service.Localizer
	Requests   *cancel.Manager
}

func NewCommand(cmd commands.Command, di *di.Container) *Command {
	c := &Command{
		command:    cmd,
		Tg:         di.BotClient,
		Logger:     di.Logger.WithField("command", cmd.Name()),
		Cfg:        di.Cfg,
		Dispatcher: di.Dispatcher,
		Chats:      di.ChatService,
		Localizer:  di.Localizer,
		Requests:   di.Requests,
	}
	if di.Queue != nil {
		c.Queue = di.Queue
	}
	return c
}

func (c *Command) Name() string {
	return ""
}

func (c *Command) Aliases() []string {
	return []string{}
}

func (c *Command) Handle(ctx context.Context, update telegram.Update) error {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	if cfg.Queue.Enabled && c.Queue != nil {
		qc := c.command.GetQueueConfig()
		retryDelayMillis := int64(qc.RetryDelay / time.Millisecond)
		return c.Queue.Add(ctx, c.command, update, qc.MaxRetries, retryDelayMillis)
	}
	return c.command.Execute(ctx, update)
}

func (c *Command) GetQueueConfig() commands.QueueConfig {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	return commands.QueueConfig{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Timeout:    cfg.Queue.Timeout,
		Throttle: commands.ThrottleConfig{
			Concurrency: cfg.Queue.Throttle.Concurrency,
			Period:      cfg.Queue.Throttle.Period,
			Requests:    cfg.Queue.Throttle.Requests,
		},
	}
}

func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	return nil
}

func (c *Command) L(messageID string, data map[string]any) string {
	return c.Localizer.Localize(messageID, data)
}

// Log returns the request scoped logger when the update loop attached one.
func (c *Command) Log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, c.Logger)
}

// Reply sends a localized plain text answer to the update's message.
func (c *Command) Reply(update telegram.Update, messageID string, data map[string]any) error {
	msg := update.Message
	_, err := c.Tg.Send(telegram.NewMessage(msg.Chat.ID, c.L(messageID, data), msg.MessageID))
	if err != nil {
		c.Logger.WithError(err).WithField("chat_id", msg.Chat.ID).Error("Failed to send message")
	}
	return err
}

// Track registers the request with the cancel manager so /clear can abort it.
func (c *Command) Track(ctx context.Context, update telegram.Update) (context.Context, context.CancelFunc) {
	if c.Requests == nil {
		return context.WithCancel(ctx)
	}
	msg := update.Message
	return c.Requests.Register(ctx, msg.Chat.ID, msg.MessageID, c.command.Name())
}

// Args returns the text after the command, or the caption for media
// messages that carry the command there.
func Args(msg *telegram.MessageOriginal) string {
	if msg == nil {
		return ""
	}
	if msg.IsCommand() {
		return strings.TrimSpace(msg.CommandArguments())
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.HasPrefix(text, "/") {
		_, rest, _ := strings.Cut(text, " ")
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}

func (c *Command) ExtractURLsFromEntities(text string, entities []telegram.MessageEntity) []string {
	urls := []string{}
	// entity offsets count UTF-16 code units
	units := utf16.Encode([]rune(text))
	for _, entity := range entities {
		if (entity.Type == "url" || entity.Type == "text_link") &&
			entity.Offset >= 0 &&
			entity.Length > 0 &&
			entity.Offset+entity.Length <= len(units) {

			url := string(utf16.Decode(units[entity.Offset : entity.Offset+entity.Length]))
			if entity.Type == "text_link" && entity.URL != "" {
				url = entity.URL
			}
			if fetcher.IsURL(url) {
				urls = append(urls, url)
			}
		}
	}
	return urls
}
