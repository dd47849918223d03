package estimates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildhub/contract-reconciler/internal/common"
)

// Config for the estimates backend client.
type Config struct {
	APIToken string        // required
	BaseURL  string        // required
	Timeout  time.Duration // http client timeout
}

// Client talks to the estimate-pool HTTP API. It implements Source and
// Board.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient fails fast on missing credentials.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "estimates API token is required", common.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "estimates base URL is required", common.ErrInvalidInput)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
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

type searchResponse struct {
	Items []Item `json:"items"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, "/estimates/search?"+q.Encode())
}

func (c *Client) SearchByKeyword(ctx context.Context, keyword string) ([]Item, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	return c.search(ctx, "/estimates/keyword?"+q.Encode())
}

func (c *Client) search(ctx context.Context, pathAndQuery string) ([]Item, error) {
	rid := uuid.New().String()
	start := time.Now()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + pathAndQuery
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("estimates.search.send_error", "req_id", rid, "error", err)
		return nil, fmt.Errorf("estimates search: %w", err)
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("estimates.search.response_body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("estimates search status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.logger.Info("estimates.search.ok",
		"req_id", rid,
		"items", len(out.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Items, nil
}

// MarkLinked tags the estimate item as linked to a contract. The backend
// treats it as an upsert, so repeats are harmless.
func (c *Client) MarkLinked(ctx context.Context, itemID string, contractID int64) error {
	rid := uuid.New().String()

	body, err := json.Marshal(map[string]any{"contract_id": contractID})
	if err != nil {
		return fmt.Errorf("encode link request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/estimates/" + url.PathEscape(itemID) + "/link"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mark linked: %w", err)
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("estimates.link.response_body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("mark linked status %d", resp.StatusCode)
	}
	c.logger.Info("estimates.link.ok", "req_id", rid, "item_id", itemID, "contract_id", contractID)
	return nil
}
