package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnsupportedAttachment = errors.New("attachment type is not supported by provider")
	ErrEmptyResponse         = errors.New("provider returned an empty response")
	ErrToolLoop              = errors.New("too many tool calls in a row")
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one turn of a conversation as the bot stores it. Providers map
// the role to their own vocabulary.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	MessageID int    `json:"message_id,omitzero"`
}

type Attachment struct {
	MIMEType string
	Name     string
	Data     []byte
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

func (a Attachment) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

type Request struct {
	System      string
	History     []Message
	Prompt      string
	Attachments []Attachment
}

type Provider interface {
	Name() string
	Ask(ctx context.Context, request Request) (string, error)
	Supports(attachment Attachment) bool
}

// TOOLS

type ToolFunction struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitzero"`
}

type Property struct {
	Type        string   `json:"type"`
	Enum        []string `json:"enum,omitzero"`
	Description string   `json:"description,omitzero"`
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolExecutor interface {
	Tools() []Tool
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// ERRORS

// ProviderError is returned by every provider call that failed after the
// request left the bot.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Err.Error()
	if e.Model != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Provider, e.Model, msg)
	} else {
		msg = fmt.Sprintf("[%s] %s", e.Provider, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%d %s", e.StatusCode, msg)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorType returns the error type based on HTTP status code
func (e *ProviderError) ErrorType() ErrorType {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case e.StatusCode >= 500:
		return ErrorTypeServer
	case e.StatusCode >= 400:
		return ErrorTypeClient
	case errors.Is(e.Err, context.DeadlineExceeded):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "network"    // timeout
	ErrorTypeRateLimit ErrorType = "rate_limit" // 429
	ErrorTypeServer    ErrorType = "server"     // 5xx
	ErrorTypeClient    ErrorType = "client"     // other 4xx: key, model, request
	ErrorTypeUnknown   ErrorType = "unknown"
)

func GetErrorType(err error) ErrorType {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.ErrorType()
	}
	return ErrorTypeUnknown
}

func IsRetryableError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	default:
		return false
	}
}
