// Package notifications posts plain-text messages to chat webhooks.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// MaxMessageLength is the chat service limit for one message body.
const MaxMessageLength = 2000

// Notifier delivers a text message to a channel. Nil = no-op.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type webhookMessage struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// defaultClient serves webhook clients built without their own http.Client.
var defaultClient = &http.Client{Timeout: 15 * time.Second}

// WebhookClient posts to a Discord-compatible incoming webhook. An empty URL
// makes every call a no-op. It is safe for concurrent use.
type WebhookClient struct {
	URL      string
	Username string
	Client   *http.Client
}

// NewWebhookClient returns a client with its own http.Client.
func NewWebhookClient(url, username string) *WebhookClient {
	return &WebhookClient{
		URL:      url,
		Username: username,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *WebhookClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return defaultClient
}

// Notify sends text, split into as many messages as the length limit needs.
func (c *WebhookClient) Notify(ctx context.Context, text string) error {
	if c == nil || c.URL == "" || strings.TrimSpace(text) == "" {
		return nil
	}
	for _, part := range Split(text, MaxMessageLength) {
		if err := c.send(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (c *WebhookClient) send(ctx context.Context, content string) error {
	bodyBytes, err := json.Marshal(webhookMessage{Content: content, Username: c.Username})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook send failed: status %d", resp.StatusCode)
	}
	return nil
}

// Split breaks text into chunks of at most limit bytes, cutting at line
// breaks where possible. Lines longer than limit are cut hard.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			flush()
			out = append(out, line[:limit])
			line = line[limit:]
		}
		extra := len(line)
		if cur.Len() > 0 {
			extra++
		}
		if cur.Len()+extra > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return out
}

// Recorder keeps notified messages in memory. Used where no webhook is
// configured but the messages are still wanted, such as CLI dry runs.
type Recorder struct {
	Messages []string
}

func (r *Recorder) Notify(_ context.Context, text string) error {
	r.Messages = append(r.Messages, text)
	return nil
}
