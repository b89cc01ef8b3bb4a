package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
)

const geminiRoleModel = "model"

var geminiMIMETypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
	"image/heif",
	"application/pdf",
	"text/plain",
}

type GeminiClient struct {
	name          string
	apiKey        string
	model         string
	systemPrompt  string
	params        config.AIProviderConfig
	tools         ToolExecutor
	maxIterations int
	logger        logger.Logger
}

func NewGeminiClient(
	cfg config.AIProviderConfig,
	tools ToolExecutor,
	maxIterations int,
	log logger.Logger,
) *GeminiClient {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	return &GeminiClient{
		name:          cfg.Name,
		apiKey:        cfg.GetAPIKey(),
		model:         cfg.Model,
		systemPrompt:  cfg.SystemPrompt,
		params:        cfg,
		tools:         tools,
		maxIterations: maxIterations,
		logger:        log.WithField("provider", cfg.Name),
	}
}

func (c *GeminiClient) Name() string {
	return c.name
}

func (c *GeminiClient) Supports(a Attachment) bool {
	for _, mime := range geminiMIMETypes {
		if strings.EqualFold(a.MIMEType, mime) {
			return true
		}
	}
	return false
}

func (c *GeminiClient) Ask(ctx context.Context, request Request) (string, error) {
	if timeout := c.params.ModelParams.Timeout; timeout != nil && *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	for _, a := range request.Attachments {
		if !c.Supports(a) {
			return "", c.wrapErr(ErrUnsupportedAttachment)
		}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", c.wrapErr(err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	c.configure(model, request.System)

	cs := model.StartChat()
	cs.History = geminiHistory(request.History)

	c.logger.WithFields(logger.Fields{
		"model":       c.model,
		"history":     len(cs.History),
		"attachments": len(request.Attachments),
	}).Debug("Sending request to Gemini")

	resp, err := cs.SendMessage(ctx, geminiParts(request)...)
	for iteration := 0; ; iteration++ {
		if err != nil {
			return "", c.wrapErr(err)
		}

		text, calls := readGeminiResponse(resp)
		if len(calls) == 0 || c.tools == nil {
			if text == "" {
				return "", c.wrapErr(ErrEmptyResponse)
			}
			return text, nil
		}
		if iteration >= c.maxIterations {
			return "", c.wrapErr(ErrToolLoop)
		}

		results := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			results = append(results, c.callTool(ctx, call))
		}
		resp, err = cs.SendMessage(ctx, results...)
	}
}

func (c *GeminiClient) callTool(ctx context.Context, call genai.FunctionCall) genai.Part {
	log := c.logger.WithField("tool", call.Name)
	log.WithField("args", call.Args).Info("Executing tool")

	result, err := c.tools.Execute(ctx, call.Name, call.Args)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		result = "Error: " + err.Error()
	}
	return genai.FunctionResponse{
		Name:     call.Name,
		Response: map[string]any{"result": result},
	}
}

func (c *GeminiClient) configure(model *genai.GenerativeModel, system string) {
	if system == "" {
		system = c.systemPrompt
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	params := c.params.ModelParams
	if params.Temperature != nil {
		model.SetTemperature(*params.Temperature)
	}
	if params.TopP != nil {
		model.SetTopP(*params.TopP)
	}
	if params.TopK != nil {
		model.SetTopK(*params.TopK)
	}
	if params.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*params.MaxTokens))
	}

	if c.tools != nil {
		model.Tools = geminiTools(c.tools.Tools())
	}
}

func (c *GeminiClient) wrapErr(err error) error {
	pErr := &ProviderError{Provider: c.name, Model: c.model, Err: err}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		pErr.StatusCode = gErr.Code
	}
	return pErr
}

func geminiHistory(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := string(RoleUser)
		if m.Role == RoleBot {
			role = geminiRoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return contents
}

func geminiParts(request Request) []genai.Part {
	parts := make([]genai.Part, 0, len(request.Attachments)+1)
	for _, a := range request.Attachments {
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}
	if request.Prompt != "" {
		parts = append(parts, genai.Text(request.Prompt))
	}
	return parts
}

// readGeminiResponse joins the text parts of every candidate and collects the
// function calls the model asked for.
func readGeminiResponse(resp *genai.GenerateContentResponse) (string, []genai.FunctionCall) {
	if resp == nil {
		return "", nil
	}

	var sb strings.Builder
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				sb.WriteString(string(v))
			case genai.FunctionCall:
				calls = append(calls, v)
			case *genai.FunctionCall:
				calls = append(calls, *v)
			}
		}
	}
	return strings.TrimSpace(sb.String()), calls
}

func geminiTools(tools []Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Function.Parameters.Properties))
		for name, p := range t.Function.Parameters.Properties {
			props[name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Function.Parameters.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
