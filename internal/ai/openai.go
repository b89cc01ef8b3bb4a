package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
)

var openAIImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// OpenAICompatibleClient talks to any backend exposing the OpenAI chat
// completions API: OpenAI itself, NVIDIA NIM (llama) and Mistral.
type OpenAICompatibleClient struct {
	name   string
	cfg    config.AIProviderConfig
	client *openai.Client
	logger logger.Logger
}

func NewOpenAICompatibleClient(cfg config.AIProviderConfig, httpClient *http.Client, log logger.Logger) *OpenAICompatibleClient {
	clientCfg := openai.DefaultConfig(cfg.GetAPIKey())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	return &OpenAICompatibleClient{
		name:   cfg.Name,
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: log.WithField("provider", cfg.Name),
	}
}

func (c *OpenAICompatibleClient) Name() string {
	return c.name
}

func (c *OpenAICompatibleClient) Supports(a Attachment) bool {
	if strings.HasPrefix(a.MIMEType, "text/") {
		return true
	}
	if c.cfg.VisionModel == "" {
		return false
	}
	for _, mime := range openAIImageTypes {
		if strings.EqualFold(a.MIMEType, mime) {
			return true
		}
	}
	return false
}

func (c *OpenAICompatibleClient) Ask(ctx context.Context, request Request) (string, error) {
	if timeout := c.cfg.ModelParams.Timeout; timeout != nil && *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	req, err := c.CreateRequest(request)
	if err != nil {
		return "", c.wrapErr(req.Model, err)
	}

	log := c.logger.WithFields(logger.Fields{
		"model":    req.Model,
		"messages": len(req.Messages),
		"stream":   req.Stream,
	})
	log.Debug("Sending chat completion request")

	var content string
	if req.Stream {
		content, err = c.askStream(ctx, req)
	} else {
		content, err = c.ask(ctx, req)
	}
	if err != nil {
		return "", c.wrapErr(req.Model, err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", c.wrapErr(req.Model, ErrEmptyResponse)
	}
	log.WithField("length", len(content)).Debug("Chat completion received")
	return content, nil
}

// CreateRequest maps a bot request onto a chat completion request. Image
// attachments switch the request to the vision model.
func (c *OpenAICompatibleClient) CreateRequest(request Request) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{
		Model:  c.cfg.Model,
		Stream: c.cfg.ModelParams.IsStream(),
	}
	params := c.cfg.ModelParams
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}

	system := request.System
	if system == "" {
		system = c.cfg.SystemPrompt
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(request.History)+2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range request.History {
		if m.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == RoleBot {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	prompt := request.Prompt
	var images []openai.ChatMessagePart
	for _, a := range request.Attachments {
		if !c.Supports(a) {
			return req, fmt.Errorf("%w: %s", ErrUnsupportedAttachment, a.MIMEType)
		}
		if !a.IsImage() {
			prompt = attachText(prompt, a)
			continue
		}
		images = append(images, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    a.DataURL(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	if len(images) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
	} else {
		parts := append([]openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: prompt,
		}}, images...)
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
		req.Model = c.cfg.VisionModel
		req.Stream = false
		if c.cfg.VisionMaxTokens > 0 {
			req.MaxTokens = c.cfg.VisionMaxTokens
		}
	}

	req.Messages = messages
	return req, nil
}

func (c *OpenAICompatibleClient) ask(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompatibleClient) askStream(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		for _, choice := range resp.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}
}

func (c *OpenAICompatibleClient) wrapErr(model string, err error) error {
	pErr := &ProviderError{Provider: c.name, Model: model, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pErr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pErr.StatusCode = reqErr.HTTPStatusCode
	}
	return pErr
}

func attachText(prompt string, a Attachment) string {
	name := a.Name
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("%s\n\n--- %s ---\n%s", prompt, name, string(a.Data))
}
