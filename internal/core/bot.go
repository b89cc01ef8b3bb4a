package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/muratoffalex/omnibot/internal/commands"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

// AskCommandName receives every message that is not a command.
const AskCommandName = "ask"

type taskQueue interface {
	Start(ctx context.Context, handlers map[string]commands.Command)
	StartCommand(ctx context.Context, command string, handler commands.Command)
}

type historyForgetter interface {
	Forget(ctx context.Context, chatID int64, messageID int) (bool, error)
}

type Bot struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	running   context.Context
	logger    logger.Logger
	queue     taskQueue
	history   historyForgetter
	tg        telegram.Client
	cfg       *config.Config
	localizer *service.Localizer
}

func NewBot(
	tg telegram.Client,
	queue taskQueue,
	history historyForgetter,
	logger logger.Logger,
	cfg *config.Config,
	localizer *service.Localizer,
) *Bot {
	return &Bot{
		commands:  make(map[string]commands.Command),
		tg:        tg,
		queue:     queue,
		history:   history,
		cfg:       cfg,
		logger:    logger,
		localizer: localizer,
	}
}

func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.running = ctx
	queued := b.queuedCommands()
	b.mu.Unlock()
	if b.queue != nil {
		b.queue.Start(ctx, queued)
	}

	updates := b.tg.GetUpdatesChan(b.tg.NewUpdate(0, 60, 0))
	defer b.tg.StopReceivingUpdates()

	b.logger.WithField("username", b.tg.Self().UserName).Info("Bot started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) queuedCommands() map[string]commands.Command {
	queued := make(map[string]commands.Command)
	for name, cmd := range b.commands {
		if b.cfg.GetCommandConfig(name).Queue.Enabled {
			queued[name] = cmd
		}
	}
	return queued
}

// HandleUpdate routes one update. Commands run in their own goroutine so
// a slow model never blocks the update loop.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	log := b.logger.WithFields(logger.Fields{
		"request_id": uuid.NewString(),
		"update_id":  update.UpdateID,
	})
	ctx = logger.NewContext(ctx, log)

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, log, update)
	case update.EditedMessage != nil:
		b.handleEdited(ctx, log, update.EditedMessage)
	case update.Message != nil:
		b.handleMessage(ctx, log, update)
	}
}

func (b *Bot) handleCallback(ctx context.Context, log logger.Logger, update telegram.Update) {
	query := update.CallbackQuery
	defer func() {
		if _, err := b.tg.Request(telegram.NewCallback(query.ID, "")); err != nil {
			log.WithError(err).Error("Failed to answer callback query")
		}
	}()

	if query.Message == nil || query.From == nil {
		return
	}
	chat := query.Message.Chat
	if !b.cfg.Telegram().IsAllowed(query.From.ID, chat.ID) {
		log.WithField("user_id", query.From.ID).Warn("Unauthorized callback")
		return
	}

	name, _, _ := strings.Cut(query.Data, " ")
	cmd := b.findCommand(name)
	if cmd == nil {
		log.WithField("data", query.Data).Debug("Callback for unknown command")
		return
	}

	// replay the button as a command message from the user who pressed it
	update.Message = &telegram.MessageOriginal{
		MessageID: query.Message.MessageID,
		From:      query.From,
		Chat:      chat,
		Text:      "/" + query.Data,
		Entities: []telegram.MessageEntity{{
			Type:   "bot_command",
			Offset: 0,
			Length: len(name) + 1,
		}},
	}
	b.run(ctx, log, cmd, update)
}

func (b *Bot) handleEdited(ctx context.Context, log logger.Logger, msg *telegram.MessageOriginal) {
	if b.history == nil {
		return
	}
	removed, err := b.history.Forget(ctx, msg.Chat.ID, msg.MessageID)
	if err != nil {
		log.WithError(err).Error("Failed to forget edited message")
		return
	}
	if removed {
		log.WithFields(logger.Fields{
			"chat_id": msg.Chat.ID,
			"message": msg.MessageID,
		}).Debug("Edited message removed from history")
	}
}

func (b *Bot) handleMessage(ctx context.Context, log logger.Logger, update telegram.Update) {
	msg := update.Message
	if msg.From == nil || msg.From.IsBot {
		return
	}

	log = log.WithFields(logger.Fields{
		"chat_id":  msg.Chat.ID,
		"user_id":  msg.From.ID,
		"username": msg.From.UserName,
	})
	ctx = logger.NewContext(ctx, log)

	if !b.cfg.Telegram().IsAllowed(msg.From.ID, msg.Chat.ID) {
		log.Warn("Unauthorized access attempt")
		if msg.Chat.IsPrivate() {
			b.reply(log, msg, service.MsgNotAllowed)
		}
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, log, update, text)
		return
	}

	if msg.ForwardOrigin != nil {
		return
	}
	if msg.Text == "" && len(msg.Photo) == 0 && msg.Document == nil {
		return
	}

	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		self := b.tg.Self()
		stripped, mentioned := telegram.StripMention(text, self.UserName)
		replyToBot := msg.ReplyToMessage != nil &&
			msg.ReplyToMessage.From != nil &&
			msg.ReplyToMessage.From.ID == self.ID
		if b.cfg.Telegram().GroupMentionOnly && !mentioned && !replyToBot {
			return
		}
		if mentioned {
			if msg.Text != "" {
				msg.Text = stripped
			} else {
				msg.Caption = stripped
			}
		}
	}

	cmd := b.findCommand(AskCommandName)
	if cmd == nil {
		return
	}
	b.run(ctx, log, cmd, update)
}

func (b *Bot) handleCommand(ctx context.Context, log logger.Logger, update telegram.Update, text string) {
	first, _, _ := strings.Cut(text, " ")
	name, target := telegram.SplitCommandTarget(strings.TrimPrefix(first, "/"))
	if target != "" && !strings.EqualFold(target, b.tg.Self().UserName) {
		return // addressed to another bot
	}

	cmd := b.findCommand(name)
	if cmd == nil {
		log.WithField("command", name).Debug("Unknown command")
		return
	}

	log.WithFields(logger.Fields{
		"command": name,
		"args":    update.Message.CommandArguments(),
	}).Info("Handling command")
	b.run(ctx, log, cmd, update)
}

func (b *Bot) run(ctx context.Context, log logger.Logger, cmd commands.Command, update telegram.Update) {
	go func() {
		if err := cmd.Handle(ctx, update); err != nil {
			log.WithError(err).WithField("command", cmd.Name()).Error("Failed to handle command")
		}
	}()
}

func (b *Bot) findCommand(name string) commands.Command {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name = strings.ToLower(name)
	if cmd, ok := b.commands[name]; ok {
		return cmd
	}
	for _, cmd := range b.commands {
		if slices.Contains(cmd.Aliases(), name) {
			return cmd
		}
	}
	return nil
}

func (b *Bot) reply(log logger.Logger, msg *telegram.MessageOriginal, messageID string) {
	answer := telegram.NewMessage(msg.Chat.ID, b.localizer.Localize(messageID, nil), msg.MessageID)
	if _, err := b.tg.Send(answer); err != nil {
		log.WithError(err).Error("Failed to send message")
	}
}

func (b *Bot) RegisterCommand(cmd commands.Command) {
	if cmd == nil {
		b.logger.Error("Attempting to register nil command")
		return
	}

	name := cmd.Name()
	if name == "" {
		b.logger.Error("Attempting to register command with empty name")
		return
	}

	b.logger.WithField("command", name).Debug("Registering command")
	b.mu.Lock()
	b.commands[name] = cmd
	running := b.running
	b.mu.Unlock()

	// commands registered after Start get their workers here
	if running != nil && b.queue != nil && b.cfg.GetCommandConfig(name).Queue.Enabled {
		b.queue.StartCommand(running, name, cmd)
	}
}

func (b *Bot) GetCommands() map[string]commands.Command {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.commands)
}
