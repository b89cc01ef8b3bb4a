package ask

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/base"
	"github.com/muratoffalex/omnibot/internal/fetcher"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const (
	CommandName = "ask"

	DefaultImagePrompt    = "What's in this image?"
	DefaultDocumentPrompt = "Can you summarize this document?"

	maxFetchedURLs = 3
)

type pageFetcher interface {
	Fetch(ctx context.Context, request fetcher.Request) (fetcher.Response, error)
}

// Command answers free text, photos and documents with the chat's model.
type Command struct {
	*base.Command
	fetcher pageFetcher
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	if di.Fetcher != nil {
		cmd.fetcher = di.Fetcher
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"a"}
}

func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	ctx, done := c.Track(ctx, update)
	defer done()

	log := c.Log(ctx).WithField("chat_id", msg.Chat.ID)
	text := base.Args(msg)

	attachment, defaultPrompt, err := c.attachment(ctx, msg)
	if err != nil {
		log.WithError(err).Warn("Failed to download attachment")
		if errors.Is(err, telegram.ErrFileTooLarge) {
			return c.Reply(update, service.MsgFileTooLarge, nil)
		}
		_ = c.Reply(update, service.MsgError, nil)
		return err
	}

	var attachments []ai.Attachment
	if attachment != nil {
		attachments = append(attachments, *attachment)
		if text == "" {
			text = defaultPrompt
		}
	}
	if text == "" {
		return c.Reply(update, service.MsgEmptyPrompt, nil)
	}

	prompt := service.Prompt{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.MessageID,
		Text:        text,
		Attachments: attachments,
	}
	if c.Cfg.AI().FetchURLs {
		prompt.Context = c.fetchURLs(ctx, log, c.urls(msg))
	}

	return c.Dispatcher.Dispatch(ctx, prompt)
}

// attachment downloads the photo or document of the message, if any, and
// returns the prompt to use when the user sent no text.
func (c *Command) attachment(ctx context.Context, msg *telegram.MessageOriginal) (*ai.Attachment, string, error) {
	switch {
	case len(msg.Photo) > 0:
		photo := telegram.LargestPhoto(msg.Photo)
		data, err := c.Tg.DownloadFile(ctx, photo.FileID)
		if err != nil {
			return nil, "", err
		}
		return &ai.Attachment{MIMEType: "image/jpeg", Name: photo.FileUniqueID + ".jpg", Data: data}, DefaultImagePrompt, nil

	case msg.Document != nil:
		doc := msg.Document
		data, err := c.Tg.DownloadFile(ctx, doc.FileID)
		if err != nil {
			return nil, "", err
		}
		mimeType := doc.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		prompt := DefaultDocumentPrompt
		if strings.HasPrefix(mimeType, "image/") {
			prompt = DefaultImagePrompt
		}
		return &ai.Attachment{MIMEType: mimeType, Name: doc.FileName, Data: data}, prompt, nil
	}
	return nil, "", nil
}

func (c *Command) urls(msg *telegram.MessageOriginal) []string {
	urls := c.ExtractURLsFromEntities(msg.Text, msg.Entities)
	urls = append(urls, c.ExtractURLsFromEntities(msg.Caption, msg.CaptionEntities)...)
	if len(urls) == 0 {
		urls = fetcher.ExtractStrictURLs(msg.Text + " " + msg.Caption)
	}
	slices.Sort(urls)
	urls = slices.Compact(urls)
	if len(urls) > maxFetchedURLs {
		urls = urls[:maxFetchedURLs]
	}
	return urls
}

// fetchURLs loads the pages linked in the message and returns them as model
// context. Failures are logged and skipped.
func (c *Command) fetchURLs(ctx context.Context, log logger.Logger, urls []string) string {
	if c.fetcher == nil || len(urls) == 0 {
		return ""
	}

	var parts []string
	for _, url := range urls {
		request, err := fetcher.NewRequestPayload(url, nil, nil)
		if err != nil {
			log.WithError(err).WithField("url", url).Debug("Skipping invalid url")
			continue
		}
		resp, err := c.fetcher.Fetch(ctx, request)
		if err != nil || resp.IsError {
			log.WithError(err).WithField("url", url).Warn("Failed to fetch url content")
			continue
		}
		if text := resp.GetText(); text != "" {
			parts = append(parts, fmt.Sprintf("Content of %s:\n%s", url, text))
		}
	}
	return strings.Join(parts, "\n\n")
}
