package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 15 * time.Second

// SendError is a non-2xx response from a webhook
type SendError struct {
	Channel    string
	StatusCode int
	Body       string // first 512 bytes
}

func (e *SendError) Error() string {
	return fmt.Sprintf("channel %s: HTTP %d: %s", e.Channel, e.StatusCode, e.Body)
}

// WebhookDirectory maps channel names to chat webhook URLs
type WebhookDirectory struct {
	hooks  map[string]string
	client *http.Client
}

// NewWebhookDirectory creates a directory from name -> webhook URL pairs
func NewWebhookDirectory(hooks map[string]string, client *http.Client) *WebhookDirectory {
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	copied := make(map[string]string, len(hooks))
	for name, url := range hooks {
		copied[name] = url
	}
	return &WebhookDirectory{hooks: copied, client: client}
}

// Lookup returns the webhook channel called name
func (d *WebhookDirectory) Lookup(ctx context.Context, name string) (Channel, error) {
	url, ok := d.hooks[name]
	if !ok || url == "" {
		return nil, ErrChannelNotFound
	}
	return &WebhookChannel{name: name, url: url, client: d.client}, nil
}

// WebhookChannel posts messages to a single chat webhook
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

func (c *WebhookChannel) Name() string {
	return c.name
}

// Send posts msg as JSON. Any non-2xx response is a *SendError.
func (c *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("channel %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{Channel: c.name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
