package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type Sender interface {
	Send(msg telegram.MessageConfig) (*telegram.Message, error)
	SendChatAction(chatID int64, action telegram.ChatAction) error
}

type ProviderResolver interface {
	Resolve(name string, attachments []ai.Attachment) (ai.Provider, error)
}

type Formatter interface {
	Format(raw string) []string
	PlainChunks(raw string) []string
	Unformat(chunk string) string
	ParseMode() string
}

// Prompt is one user request for a model answer.
type Prompt struct {
	ChatID int64
	// MessageID is the user's message; the answer replies to it.
	MessageID int
	Text      string
	// Context is extra material for the model that is not kept in history.
	Context     string
	Attachments []ai.Attachment
	// Provider overrides the chat's selected model when set.
	Provider string
}

func (p Prompt) request() string {
	if p.Context == "" {
		return p.Text
	}
	return strings.TrimSpace(p.Context + "\n\n" + p.Text)
}

type DispatcherConfig struct {
	RequestTimeout time.Duration
}

// Dispatcher turns prompts into formatted answers. Answers for one chat are
// produced and sent one at a time, in arrival order.
type Dispatcher struct {
	sender    Sender
	providers ProviderResolver
	chats     *ChatService
	history   *History
	formatter Formatter
	guard     *Guard
	localizer *Localizer
	locks     *chatLocks
	config    DispatcherConfig
	logger    logger.Logger
}

func NewDispatcher(
	sender Sender,
	providers ProviderResolver,
	chats *ChatService,
	history *History,
	formatter Formatter,
	guard *Guard,
	localizer *Localizer,
	config DispatcherConfig,
	l logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		providers: providers,
		chats:     chats,
		history:   history,
		formatter: formatter,
		guard:     guard,
		localizer: localizer,
		locks:     newChatLocks(),
		config:    config,
		logger:    l.WithField("component", "dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p Prompt) error {
	log := logger.FromContext(ctx, d.logger).WithField("chat_id", p.ChatID)

	if reply, blocked := d.guard.Check(p.Text); blocked {
		log.Info("Prompt blocked by guard")
		_, err := d.sender.Send(telegram.NewMessage(p.ChatID, reply, p.MessageID))
		return err
	}

	release, err := d.locks.Acquire(ctx, p.ChatID)
	if err != nil {
		return err
	}
	defer release()

	if err := d.sender.SendChatAction(p.ChatID, telegram.ActionTyping); err != nil {
		log.WithError(err).Debug("Failed to send chat action")
	}

	name := p.Provider
	if name == "" {
		if name, err = d.chats.GetChatModel(ctx, p.ChatID); err != nil {
			log.WithError(err).Warn("Failed to load chat model, using default")
		}
	}

	history, err := d.history.Get(ctx, p.ChatID)
	if err != nil {
		log.WithError(err).Warn("Failed to load history, answering without it")
		history = nil
	}

	provider, err := d.providers.Resolve(name, p.Attachments)
	if err != nil {
		log.WithError(err).Warn("No provider for prompt")
		d.notify(p, failureMessage(err, p.Attachments))
		return err
	}
	log = log.WithField("provider", provider.Name())

	askCtx := ctx
	if d.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		askCtx, cancel = context.WithTimeout(ctx, d.config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := provider.Ask(askCtx, ai.Request{
		History:     history,
		Prompt:      p.request(),
		Attachments: p.Attachments,
	})
	if err != nil {
		log.WithError(err).Error("Provider request failed")
		d.notify(p, failureMessage(err, p.Attachments))
		return err
	}
	log.WithField("duration", time.Since(start)).Debug("Provider answered")

	ids, err := d.Deliver(logger.NewContext(ctx, log), p.ChatID, p.MessageID, answer)
	if errors.Is(err, ai.ErrEmptyResponse) {
		log.Warn("Provider returned an empty answer")
		d.notify(p, MsgError)
		return err
	}
	if err != nil {
		return err
	}

	err = d.history.Append(ctx, p.ChatID,
		ai.Message{Role: ai.RoleUser, Content: p.Text, MessageID: p.MessageID},
		ai.Message{Role: ai.RoleBot, Content: answer, MessageID: ids[0]},
	)
	if err != nil {
		log.WithError(err).Warn("Failed to save history")
	}
	return nil
}

// Deliver formats raw model output and sends it chunk by chunk. When
// Telegram rejects the markup of the first chunk the whole answer is resent
// as plain text; a later rejected chunk is sent without markup on its own.
// It returns the ids of the sent messages.
func (d *Dispatcher) Deliver(ctx context.Context, chatID int64, replyTo int, raw string) ([]int, error) {
	log := logger.FromContext(ctx, d.logger)

	if strings.TrimSpace(raw) == "" {
		return nil, ai.ErrEmptyResponse
	}
	chunks := d.formatter.Format(raw)
	if len(chunks) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	ids := make([]int, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return ids, err
		}

		msg := telegram.NewMessage(chatID, chunk, replyTo)
		msg.ParseMode = d.formatter.ParseMode()
		if i > 0 {
			msg.ReplyTo = 0
		}

		sent, err := d.sender.Send(msg)
		if telegram.IsParseError(err) {
			log.WithError(err).WithField("chunk", i).Warn("Telegram rejected markup, sending plain text")
			if i == 0 {
				return d.sendPlain(ctx, chatID, replyTo, d.formatter.PlainChunks(raw))
			}
			sent, err = d.sender.Send(telegram.NewMessage(chatID, d.formatter.Unformat(chunk), 0))
		}
		if err != nil {
			return ids, fmt.Errorf("failed to send chunk %d of %d: %w", i+1, len(chunks), err)
		}
		ids = append(ids, sent.MessageID)
	}
	return ids, nil
}

func (d *Dispatcher) sendPlain(ctx context.Context, chatID int64, replyTo int, chunks []string) ([]int, error) {
	if len(chunks) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	ids := make([]int, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		msg := telegram.NewMessage(chatID, chunk, replyTo)
		if i > 0 {
			msg.ReplyTo = 0
		}
		sent, err := d.sender.Send(msg)
		if err != nil {
			return ids, fmt.Errorf("failed to send plain chunk %d of %d: %w", i+1, len(chunks), err)
		}
		ids = append(ids, sent.MessageID)
	}
	return ids, nil
}

// Reply sends a localized service message.
func (d *Dispatcher) Reply(chatID int64, replyTo int, messageID string, data map[string]any) error {
	_, err := d.sender.Send(telegram.NewMessage(chatID, d.localizer.Localize(messageID, data), replyTo))
	return err
}

func (d *Dispatcher) notify(p Prompt, messageID string) {
	if err := d.Reply(p.ChatID, p.MessageID, messageID, nil); err != nil {
		d.logger.WithError(err).WithField("chat_id", p.ChatID).Error("Failed to send error message")
	}
}

// ClearHistory forgets the chat's conversation.
func (d *Dispatcher) ClearHistory(ctx context.Context, chatID int64) error {
	return d.history.Clear(ctx, chatID)
}

// Forget removes the history entry tied to a deleted Telegram message.
func (d *Dispatcher) Forget(ctx context.Context, chatID int64, messageID int) (bool, error) {
	return d.history.DeleteMessage(ctx, chatID, messageID)
}

func failureMessage(err error, attachments []ai.Attachment) string {
	if errors.Is(err, ai.ErrUnsupportedAttachment) {
		return MsgUnsupportedAttachment
	}
	for _, a := range attachments {
		if a.IsImage() {
			return MsgImageError
		}
	}
	return MsgError
}
