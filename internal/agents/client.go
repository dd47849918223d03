package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildhub/contract-reconciler/internal/common"
)

// Caller is the agent backend: one structured-extraction call over the
// full document text. Stubbed in tests.
type Caller interface {
	Call(ctx context.Context, systemPrompt, documentText string) ([]byte, error)
}

// Config for the chat-completions agent backend.
type Config struct {
	APIKey      string        // required
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float64       // 0..2
	Timeout     time.Duration // per-request http timeout
}

// Client implements Caller against an OpenAI-compatible chat/completions
// endpoint and asks for a JSON object response.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient fails fast on a missing API key.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "agent API key is required", common.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (c *Client) Call(ctx context.Context, systemPrompt, documentText string) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": documentText},
		},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("agents.http.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(documentText),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("agents.http.send_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("agents.http.response_body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("agent backend status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	c.logger.Info("agents.http.ok",
		"req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
