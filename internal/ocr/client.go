package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildhub/contract-reconciler/internal/common"
)

// Page is one page of OCR output.
type Page struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Config for the OCR API client.
type Config struct {
	APIKey  string        // required
	BaseURL string        // default https://api.mistral.ai/v1
	Model   string        // default mistral-ocr-latest
	Timeout time.Duration // http client timeout
}

// Client calls the document OCR API. The whole PDF is submitted as a
// base64 document reference and the response carries per-page markdown.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient fails fast on a missing API key so a misconfigured daemon
// dies at startup, not mid-pipeline.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "OCR API key is required", common.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-ocr-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
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

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []Page `json:"pages"`
}

// Process submits the document at path and returns its pages. Errors
// propagate: there is no further fallback behind OCR.
func (c *Client) Process(ctx context.Context, path string) ([]Page, error) {
	rid := uuid.New().String()
	start := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	body := ocrRequest{
		Model: c.cfg.Model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(raw),
		},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/ocr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("ocr.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"document_bytes", len(raw),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.send_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("ocr.response_body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.logger.Error("ocr.status_error", "req_id", rid, "status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("ocr status %d: %s", resp.StatusCode, truncate(string(payload), 512))
	}

	var out ocrResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}

	c.logger.Info("ocr.ok",
		"req_id", rid,
		"pages", len(out.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Pages, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
