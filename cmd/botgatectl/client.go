package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/marcus-qen/botgate/internal/server"
)

// APIClient talks to a running gateway.
type APIClient struct {
	server string
	http   *http.Client
}

type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewAPIClient(serverURL string) *APIClient {
	serverURL = strings.TrimRight(serverURL, "/")
	if serverURL == "" {
		serverURL = defaultServer
	}

	return &APIClient{
		server: serverURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *APIClient) Health(ctx context.Context) (string, error) {
	body, err := c.get(ctx, server.PathHealth)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *APIClient) Status(ctx context.Context) (*server.StatusResponse, error) {
	body, err := c.get(ctx, server.PathStatus)
	if err != nil {
		return nil, err
	}
	var out server.StatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

func (c *APIClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("request failed (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// webhookUpdates are the update kinds the gateway can act on.
var webhookUpdates = []string{"message", "callback_query"}

// TelegramClient manages the bot's webhook registration through the Bot API.
type TelegramClient struct {
	bot *telego.Bot
}

// NewTelegramClient builds a Bot API client. Extra options are mostly for
// pointing tests at a local API server.
func NewTelegramClient(token string, opts ...telego.BotOption) (*TelegramClient, error) {
	opts = append([]telego.BotOption{
		telego.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		telego.WithDiscardLogger(),
	}, opts...)

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramClient{bot: bot}, nil
}

func (t *TelegramClient) SetWebhook(ctx context.Context, url, secret string, dropPending bool) error {
	err := t.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:                url,
		SecretToken:        secret,
		AllowedUpdates:     webhookUpdates,
		DropPendingUpdates: dropPending,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

func (t *TelegramClient) DeleteWebhook(ctx context.Context, dropPending bool) error {
	if err := t.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

func (t *TelegramClient) WebhookInfo(ctx context.Context) (*telego.WebhookInfo, error) {
	info, err := t.bot.GetWebhookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get webhook info: %w", err)
	}
	return info, nil
}
