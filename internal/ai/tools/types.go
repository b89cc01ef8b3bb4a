package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/fetcher"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/service/youtube"
)

const (
	ToolYouTube  = "YouTube"
	ToolMedicine = "getMedicineDetails"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrMissingArgument = errors.New("missing tool argument")
)

type youtubeService interface {
	FetchYoutubeData(ctx context.Context, url string, flags youtube.FetchFlag, maxComments int) (*youtube.YoutubeData, error)
}

type medicineLookup interface {
	Lookup(ctx context.Context, name string) (*fetcher.Medicine, error)
}

type Config struct {
	VideoPrompt    string
	MedicinePrompt string
}

// Tools executes the function calls a model is allowed to make.
type Tools struct {
	youtube  youtubeService
	medicine medicineLookup
	config   Config
	logger   logger.Logger
}

func NewTools(yt youtubeService, medicine medicineLookup, config Config, l logger.Logger) *Tools {
	return &Tools{
		youtube:  yt,
		medicine: medicine,
		config:   config,
		logger:   l.WithField("component", "tools"),
	}
}

// Tools lists the declarations of the tools that have a backend, sorted by name.
func (t *Tools) Tools() []ai.Tool {
	result := make([]ai.Tool, 0, len(AllTools))
	for _, name := range slices.Sorted(maps.Keys(AllTools)) {
		if t.available(name) {
			result = append(result, AllTools[name])
		}
	}
	return result
}

func (t *Tools) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	log := t.logger.WithFields(logger.Fields{"tool": name, "args": args})
	if !t.available(name) {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	var (
		result string
		err    error
	)
	switch name {
	case ToolYouTube:
		result, err = t.videoSummary(ctx, args)
	case ToolMedicine:
		result, err = t.medicineDetails(ctx, args)
	}
	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		return "", err
	}

	log.Debug("Tool call finished")
	return result, nil
}

func (t *Tools) available(name string) bool {
	switch name {
	case ToolYouTube:
		return t.youtube != nil
	case ToolMedicine:
		return t.medicine != nil
	}
	return false
}

func (t *Tools) videoSummary(ctx context.Context, args map[string]any) (string, error) {
	url := stringArg(args, "videoUrl")
	if url == "" {
		return "", fmt.Errorf("%w: videoUrl", ErrMissingArgument)
	}

	data, err := t.youtube.FetchYoutubeData(ctx, url, youtube.FetchTranscript, 0)
	if err != nil {
		return "", err
	}
	return withPrompt(data.Text(), stringArg(args, "prompt"), t.config.VideoPrompt), nil
}

func (t *Tools) medicineDetails(ctx context.Context, args map[string]any) (string, error) {
	name := stringArg(args, "medicineName")
	if name == "" {
		return "", fmt.Errorf("%w: medicineName", ErrMissingArgument)
	}

	m, err := t.medicine.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return withPrompt(m.Text(), stringArg(args, "prompt"), t.config.MedicinePrompt), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func withPrompt(content, prompt, fallback string) string {
	if prompt == "" {
		prompt = fallback
	}
	content = strings.TrimSpace(content)
	if prompt == "" {
		return content
	}
	return content + "\n\n" + prompt
}

var AllTools = map[string]ai.Tool{
	ToolYouTube: {
		Type: "function",
		Function: ai.ToolFunction{
			Name:        ToolYouTube,
			Description: "Get the transcript of a YouTube video so it can be summarized or questioned.",
			Parameters: ai.Parameters{
				Type: "object",
				Properties: map[string]ai.Property{
					"videoUrl": {Type: "string", Description: "Link to the YouTube video"},
					"prompt":   {Type: "string", Description: "What the user wants to know about the video"},
				},
				Required: []string{"videoUrl"},
			},
		},
	},
	ToolMedicine: {
		Type: "function",
		Function: ai.ToolFunction{
			Name:        ToolMedicine,
			Description: "Look up a medicine: composition, uses, benefits, side effects and cheaper substitutes.",
			Parameters: ai.Parameters{
				Type: "object",
				Properties: map[string]ai.Property{
					"medicineName": {Type: "string", Description: "Brand or generic name of the medicine"},
					"prompt":       {Type: "string", Description: "What the user wants to know about the medicine"},
				},
				Required: []string{"medicineName"},
			},
		},
	},
}
