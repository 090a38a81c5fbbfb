package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notifier posts operational messages to a Telegram chat through the Bot
// API. A notifier without credentials is still valid, it just drops every
// message, so callers never need to branch on configuration.
type Notifier struct {
	token  string
	chatID string
	base   string
	http   *http.Client
}

// NewNotifier builds a notifier. Empty token or chat id disables sending.
func NewNotifier(token, chatID string) *Notifier {
	return &Notifier{
		token:  token,
		chatID: chatID,
		base:   "https://api.telegram.org",
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the notifier has credentials to send with.
func (n *Notifier) Enabled() bool {
	return n.token != "" && n.chatID != ""
}

// Send posts one plain-text message. Disabled notifiers return nil.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.base, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 400))
		return fmt.Errorf("telegram send failed: %d %s", res.StatusCode, string(b))
	}
	return nil
}
