package youtube

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/base"
	"github.com/muratoffalex/omnibot/internal/fetcher"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service"
	yt "github.com/muratoffalex/omnibot/internal/service/youtube"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

const CommandName = "youtube"

type pageFetcher interface {
	Fetch(ctx context.Context, request fetcher.Request) (fetcher.Response, error)
}

// Command summarises a YouTube video from its transcript.
type Command struct {
	*base.Command
	fetcher pageFetcher
}

// New makes sure the yt-dlp binary is available before the command is
// registered.
func New(ctx context.Context, di *di.Container) (*Command, error) {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return nil, err
	}
	return newCommand(di), nil
}

func newCommand(di *di.Container) *Command {
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
	return []string{"yt", "y", "video"}
}

func (c *Command) Execute(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	link, prompt := c.linkAndPrompt(msg)
	if link == "" {
		return c.Reply(update, service.MsgYoutubeUsage, nil)
	}
	if _, ok := yt.VideoID(link); !ok {
		return c.Reply(update, service.MsgYoutubeInvalid, nil)
	}
	if prompt == "" {
		prompt = c.Cfg.Youtube().DefaultPrompt
	}

	ctx, done := c.Track(ctx, update)
	defer done()

	log := c.Log(ctx).WithFields(logger.Fields{"chat_id": msg.Chat.ID, "url": link})
	if err := c.Tg.SendChatAction(msg.Chat.ID, telegram.ActionTyping); err != nil {
		log.WithError(err).Debug("Failed to send chat action")
	}

	flags := yt.FetchTranscript
	maxComments := c.Cfg.Youtube().MaxComments
	if maxComments > 0 {
		flags |= yt.FetchComments
	}
	request, err := fetcher.NewYoutubeRequest(link, nil, flags, maxComments)
	if err != nil {
		log.WithError(err).Warn("Invalid youtube request")
		return c.Reply(update, service.MsgYoutubeInvalid, nil)
	}

	resp, err := c.fetcher.Fetch(ctx, request)
	if err == nil && resp.IsError {
		err = errors.New(resp.GetText())
	}
	if err != nil {
		log.WithError(err).Error("Failed to fetch youtube data")
		_ = c.Reply(update, service.MsgYoutubeError, nil)
		return err
	}

	log.Info("Youtube data fetched")
	return c.Dispatcher.Dispatch(ctx, service.Prompt{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      prompt,
		Context:   resp.GetText(),
	})
}

// linkAndPrompt finds the video link in the message or the message it
// replies to. The rest of the command text is the prompt.
func (c *Command) linkAndPrompt(msg *telegram.MessageOriginal) (string, string) {
	args := base.Args(msg)
	urls := c.ExtractURLsFromEntities(msg.Text, msg.Entities)
	if len(urls) == 0 {
		urls = c.ExtractURLsFromEntities(msg.Caption, msg.CaptionEntities)
	}
	if len(urls) == 0 {
		urls = fetcher.ExtractStrictURLs(args)
	}
	if len(urls) == 0 && msg.ReplyToMessage != nil {
		reply := msg.ReplyToMessage
		urls = c.ExtractURLsFromEntities(reply.Text, reply.Entities)
		if len(urls) == 0 {
			urls = c.ExtractURLsFromEntities(reply.Caption, reply.CaptionEntities)
		}
	}
	if len(urls) == 0 {
		return "", ""
	}

	link := urls[0]
	prompt := strings.TrimSpace(strings.Replace(args, link, "", 1))
	if cleaned, err := cleanURL(link); err == nil {
		link = cleaned
	}
	return link, prompt
}

func cleanURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.RawQuery != "" {
		query := u.Query()
		query.Del("si")      // YouTube session ID
		query.Del("pp")      // Paid promotion
		query.Del("feature") // source
		query.Del("clid")
		query.Del("rid")
		query.Del("referrer_clid")
		u.RawQuery = query.Encode()
	}
	u.Fragment = ""
	return u.String(), nil
}
