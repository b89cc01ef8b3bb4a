package service

import (
	"embed"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const localesDir = "locales"

const (
	MsgWelcome               = "welcome"
	MsgHistoryCleared        = "history_cleared"
	MsgModelSwitched         = "model_switched"
	MsgModelCurrent          = "model_current"
	MsgModelChoose           = "model_choose"
	MsgModelUnknown          = "model_unknown"
	MsgError                 = "error"
	MsgImageError            = "image_error"
	MsgUnsupportedAttachment = "unsupported_attachment"
	MsgFileTooLarge          = "file_too_large"
	MsgEmptyPrompt           = "empty_prompt"
	MsgImagineUsage          = "imagine_usage"
	MsgImagineError          = "imagine_error"
	MsgYoutubeUsage          = "youtube_usage"
	MsgYoutubeInvalid        = "youtube_invalid"
	MsgYoutubeError          = "youtube_error"
	MsgNotAllowed            = "not_allowed"
)

//go:embed locales/*.toml
var localeFS embed.FS

type Localizer struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      language.Tag
}

// NewLocalizer loads the embedded translations. Messages missing in lang
// fall back to English.
func NewLocalizer(lang string) (*Localizer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, err
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := localeFS.ReadDir(localesDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, path.Join(localesDir, file.Name())); err != nil {
			return nil, err
		}
	}

	return &Localizer{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), language.English.String()),
		lang:      tag,
	}, nil
}

func (s *Localizer) Language() language.Tag {
	return s.lang
}

// Localize returns the translated message, or messageID itself when no
// translation exists.
func (s *Localizer) Localize(messageID string, data map[string]any) string {
	msg, err := s.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
