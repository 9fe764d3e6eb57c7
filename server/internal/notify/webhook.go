package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// deliver sends m to all configured targets. Errors are logged but do not
// affect the caller.
func (n *Notifier) deliver(ctx context.Context, m wire.Message) {
	for _, wh := range n.targets() {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(ctx, url, m)
		case "teams":
			err = n.sendTeams(ctx, url, m)
		case "http":
			err = n.sendHTTP(ctx, url, m)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"id", m.ID,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"id", m.ID,
			)
		}
	}
}

func (n *Notifier) sendSlack(ctx context.Context, url string, m wire.Message) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s*: %s", m.Author, m.Content),
	})
	return n.post(ctx, url, body)
}

func (n *Notifier) sendTeams(ctx context.Context, url string, m wire.Message) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": "00D4FF",
		"summary":    "New message from " + m.Author,
		"title":      fmt.Sprintf("Chirpwall: %s", m.Author),
		"text":       m.Content,
	}
	body, _ := json.Marshal(payload)
	return n.post(ctx, url, body)
}

func (n *Notifier) sendHTTP(ctx context.Context, url string, m wire.Message) error {
	body, _ := json.Marshal(map[string]interface{}{"message": m})
	return n.post(ctx, url, body)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
