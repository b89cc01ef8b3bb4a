package history

import (
	"context"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/base"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const CommandName = "clear"

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
	return []string{"reset"}
}

// Execute forgets the chat's conversation and aborts answers still being
// produced for it.
func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}
	chatID := update.Message.Chat.ID
	log := c.Log(ctx).WithField("chat_id", chatID)

	if c.Requests != nil {
		if n := c.Requests.CancelChat(chatID); n > 0 {
			log.WithField("requests", n).Info("Cancelled in-flight requests")
		}
	}

	if err := c.Dispatcher.ClearHistory(ctx, chatID); err != nil {
		log.WithError(err).Error("Failed to clear history")
		_ = c.Reply(update, service.MsgError, nil)
		return err
	}

	log.Info("History cleared")
	return c.Reply(update, service.MsgHistoryCleared, nil)
}
