package imagine

import (
	"context"
	"mime"

	"github.com/google/uuid"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/base"
	"github.com/muratoffalex/omnibot/internal/imagegen"
	"github.com/muratoffalex/omnibot/internal/markdown"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const CommandName = "imagine"

type generator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Image, error)
}

// Command renders a picture from a text prompt.
type Command struct {
	*base.Command
	images generator
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	if di.ImageGen != nil {
		cmd.images = di.ImageGen
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"img", "image"}
}

func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	prompt := base.Args(msg)
	if prompt == "" {
		return c.Reply(update, service.MsgImagineUsage, nil)
	}

	ctx, done := c.Track(ctx, update)
	defer done()

	log := c.Log(ctx).WithField("chat_id", msg.Chat.ID)
	if err := c.Tg.SendChatAction(msg.Chat.ID, telegram.ActionUploadPhoto); err != nil {
		log.WithError(err).Debug("Failed to send chat action")
	}

	image, err := c.images.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("Image generation failed")
		_ = c.Reply(update, service.MsgImagineError, nil)
		return err
	}

	photo := telegram.NewPhotoMessage(msg.Chat.ID, telegram.FileBytes{
		Name:  fileName(image.MIMEType),
		Bytes: image.Data,
	}, markdown.Truncate(prompt, telegram.MaxCaptionLength), msg.MessageID)
	if _, err := c.Tg.Send(photo); err != nil {
		log.WithError(err).Error("Failed to send generated image")
		return err
	}

	log.WithField("bytes", len(image.Data)).Info("Image sent")
	return nil
}

func fileName(mimeType string) string {
	ext := ".png"
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return uuid.NewString() + ext
}
