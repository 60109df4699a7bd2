package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIBaseURL is the production Telegram Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

// APIResponse is the decoded Telegram Bot API response envelope. Body holds
// the full raw payload so callers can pass it through unchanged; Ok and the
// error fields are decoded for callers that want to interpret the result.
type APIResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`

	Body json.RawMessage `json:"-"`
}

// Client for the Telegram Bot API. Each call is a single POST with a
// URL-encoded form body; there are no retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Bot API client. An empty baseURL selects the
// production endpoint. The token is not verified here; an empty or invalid
// token makes every call fail with a Telegram error response.
func NewClient(token, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Invoke calls a Bot API method and returns the decoded response envelope,
// including ok=false payloads. It fails only on transport-level errors or an
// unparseable body; interpreting the ok flag is the caller's job.
func (c *Client) Invoke(ctx context.Context, method string, params map[string]string) (*APIResponse, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("Failed to create Telegram API request", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("failed to create request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to make Telegram API request", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("failed to make request to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read Telegram API response", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("failed to read Telegram API response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.logger.Error("Failed to decode Telegram API response",
			zap.String("method", method), zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, fmt.Errorf("failed to decode Telegram API response (status %d): %w", resp.StatusCode, err)
	}
	apiResp.Body = body

	if !apiResp.Ok {
		c.logger.Warn("Telegram API returned non-ok response",
			zap.String("method", method),
			zap.Int("error_code", apiResp.ErrorCode),
			zap.String("description", apiResp.Description))
	}

	return &apiResp, nil
}

// GetUpdates fetches pending updates. The offset is passed through verbatim
// when non-empty; limit and timeout are fixed.
func (c *Client) GetUpdates(ctx context.Context, offset string) (*APIResponse, error) {
	params := map[string]string{
		"limit":   "100",
		"timeout": "0",
	}
	if offset != "" {
		params["offset"] = offset
	}
	return c.Invoke(ctx, "getUpdates", params)
}

// GetMe returns basic information about the bot.
func (c *Client) GetMe(ctx context.Context) (*APIResponse, error) {
	return c.Invoke(ctx, "getMe", map[string]string{})
}

// SendMessage sends a text message to the given chat. Replies may carry HTML
// markup, so parse_mode is fixed to HTML.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*APIResponse, error) {
	return c.Invoke(ctx, "sendMessage", map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"text":       text,
		"parse_mode": "HTML",
	})
}
