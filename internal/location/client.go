package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/pkg/logger"
)

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the location endpoints on behalf of a signed-in user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ Reporter = (*Client)(nil)

func NewClient(cfg ClientConfig, lg *slog.Logger) *Client {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  lg,
	}
}

func (c *Client) Report(ctx context.Context, pos Position) error {
	payload := map[string]interface{}{
		"latitude":  pos.Latitude,
		"longitude": pos.Longitude,
	}
	if pos.Address != "" {
		payload["address"] = pos.Address
	}

	var out UpdateResponse
	if err := c.post(ctx, "/location/update", payload, &out); err != nil {
		return err
	}
	if out.Location != nil {
		c.logger.Debug("location accepted", "address", out.Location.Address, "updated_at", out.Location.UpdatedAt)
	}
	return nil
}

// SetSharing returns the flag as stored by the server.
func (c *Client) SetSharing(ctx context.Context, enabled bool) (bool, error) {
	var out ToggleResponse
	if err := c.post(ctx, "/location/toggle", map[string]bool{"enabled": enabled}, &out); err != nil {
		return false, err
	}
	c.logger.Info(out.Message)
	return out.IsLocationSharingEnabled, nil
}

func (c *Client) post(ctx context.Context, path string, payload, dst interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s returned status %d: %s (%s)", path, resp.StatusCode, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
