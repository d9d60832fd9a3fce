package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	Token  string
	ChatID string

	base   string
	client *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:  token,
		ChatID: chatID,
		base:   telegramAPIBase,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTelegramAt targets a non-default API endpoint. Used by tests and by
// installations that proxy the Bot API.
func NewTelegramAt(base, token, chatID string) *Telegram {
	t := NewTelegram(token, chatID)
	t.base = base
	return t
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("telegram: encode payload: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("telegram: status %d", resp.StatusCode)
		}
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !reply.OK {
		if reply.Description != "" {
			return fmt.Errorf("telegram: %s", reply.Description)
		}
		return fmt.Errorf("telegram: status %d", resp.StatusCode)
	}
	return nil
}
