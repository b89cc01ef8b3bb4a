package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/logger"
)

var (
	ErrTokenMissing = errors.New("image generation api token is not configured")
	ErrEmptyPrompt  = errors.New("image prompt is empty")
	ErrNotAnImage   = errors.New("api returned non-image response")
	ErrUnauthorized = errors.New("image generation token is invalid or expired")
)

const maxResponseBytes = 20 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Image struct {
	Data     []byte
	MIMEType string
}

// Client calls a Hugging Face style text-to-image inference endpoint.
type Client struct {
	url        string
	token      string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	httpClient HTTPClient
	logger     logger.Logger
}

func NewClient(cfg config.ImageGenConfig, httpClient HTTPClient, l logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:        cfg.URL,
		token:      cfg.GetAPIKey(),
		maxRetries: max(cfg.MaxRetries, 1),
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		logger:     l.WithField("component", "imagegen"),
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (*Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if c.token == "" {
		return nil, ErrTokenMissing
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx, c.logger)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxRetries-1)),
		ctx,
	)

	attempt := 0
	image, err := backoff.RetryWithData(func() (*Image, error) {
		attempt++
		image, err := c.generate(ctx, prompt)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Image generation attempt failed")
		}
		return image, err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("image generation failed after %d attempts: %w", attempt, err)
	}

	log.WithFields(logger.Fields{
		"attempt": attempt,
		"bytes":   len(image.Data),
	}).Debug("Image generated")
	return image, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (*Image, error) {
	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, strings.TrimSpace(string(data)))
	}

	return &Image{Data: data, MIMEType: contentType}, nil
}
