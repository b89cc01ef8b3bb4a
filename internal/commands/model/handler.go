package model

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/base"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const CommandName = "model"

// shortcuts switch straight to a provider, e.g. /gpt.
var shortcuts = []string{"gemini", "gpt", "llama", "mistral"}

var displayNames = map[string]string{
	"gemini":  "Gemini",
	"gpt":     "GPT",
	"llama":   "LLaMA",
	"mistral": "Mistral",
}

// DisplayName is the human name of a provider as used in replies.
func DisplayName(name string) string {
	if display, ok := displayNames[name]; ok {
		return display
	}
	return name
}

type Command struct {
	*base.Command
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return append([]string{"m"}, shortcuts...)
}

func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}
	chatID := msg.Chat.ID

	name := strings.ToLower(msg.Command())
	if name == CommandName || name == "m" || name == "" {
		name = strings.ToLower(base.Args(msg))
	}
	if name == "" {
		return c.showCurrent(ctx, update)
	}

	log := c.Log(ctx).WithFields(logger.Fields{"chat_id": chatID, "model": name})
	err := c.Chats.SetChatModel(ctx, chatID, name)
	if errors.Is(err, service.ErrUnknownModel) {
		log.Info("Unknown model requested")
		return c.Reply(update, service.MsgModelUnknown, map[string]any{
			"Model":  name,
			"Models": strings.Join(c.Chats.Models(), ", "),
		})
	}
	if err != nil {
		log.WithError(err).Error("Failed to store chat model")
		_ = c.Reply(update, service.MsgError, nil)
		return err
	}

	log.Info("Chat model switched")
	return c.Reply(update, service.MsgModelSwitched, map[string]any{"Model": DisplayName(name)})
}

func (c *Command) showCurrent(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	current, err := c.Chats.GetChatModel(ctx, msg.Chat.ID)
	if err != nil {
		c.Log(ctx).WithError(err).Warn("Failed to load chat model")
	}

	models := c.Chats.Models()
	if len(models) < 2 {
		return c.Reply(update, service.MsgModelCurrent, map[string]any{"Model": DisplayName(current)})
	}

	row := make([]telegram.InlineKeyboardButton, 0, len(models))
	for _, m := range models {
		label := DisplayName(m)
		if m == current {
			label = "• " + label
		}
		row = append(row, telegram.NewInlineKeyboardButtonData(label, CommandName+" "+m))
	}
	keyboard := telegram.NewInlineKeyboardMarkup(slices.Collect(slices.Chunk(row, 2))...)

	reply := telegram.NewMessage(
		msg.Chat.ID,
		c.L(service.MsgModelChoose, map[string]any{"Model": DisplayName(current)}),
		msg.MessageID,
	)
	reply.ReplyMarkup = &keyboard
	_, err = c.Tg.Send(reply)
	return err
}
