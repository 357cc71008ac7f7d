// Package gemini implements the generative model collaborator on the Google
// Gemini API. The core treats it as a fallible remote call: explicit timeout,
// bounded retry, and no trust in the shape of the returned text.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/listforge/listforge/internal/domain"
)

const defaultModel = "gemini-2.0-flash"

// Config controls the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration // per-call ceiling applied when ctx has no deadline
	Retries int           // additional attempts after the first failure
}

// DefaultConfig returns safe client defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   defaultModel,
		Timeout: 90 * time.Second,
		Retries: 2,
	}
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	client *genai.Client
	model  string
	cfg    Config
	log    *zap.Logger
}

var _ domain.Generator = (*Client)(nil)

// New creates a Gemini client.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: model, cfg: cfg, log: log}, nil
}

// Generate sends the prompt (with an optional inline image) and returns the
// raw model text. Errors are wrapped as ErrServiceUnavailable so callers can
// surface a retryable condition without inspecting transport details.
func (c *Client) Generate(ctx context.Context, prompt string, image []byte, imageMIME string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		if imageMIME == "" {
			imageMIME = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(image, imageMIME))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, ctx.Err())
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			lastErr = err
			c.log.Warn("gemini call failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastErr = fmt.Errorf("empty completion")
			continue
		}
		c.log.Debug("gemini call completed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("response_len", len(text)))
		return text, nil
	}

	return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, lastErr)
}
