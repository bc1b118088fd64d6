package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	telegramAPI = "https://api.telegram.org"

	// MessageLimit is the Bot API cap on sendMessage text, in characters.
	MessageLimit = 4096
)

// TelegramNotifier delivers digests and command replies to one chat.
type TelegramNotifier struct {
	BotToken  string
	ChatID    string
	APIBase   string
	RetryBase time.Duration // first backoff step, doubled per attempt
	Client    *http.Client
}

// NewTelegramNotifier creates a notifier, routing through proxyURL when set.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:  botToken,
		ChatID:    chatID,
		APIBase:   telegramAPI,
		RetryBase: time.Second,
		Client:    &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, name)
}

// Send delivers text once, split into as many messages as the limit requires.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, MessageLimit) {
		if err := t.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// SendWithRetry is Send with exponential backoff per message part, so a
// failure on a later part never re-sends the parts already delivered.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	for _, part := range splitMessage(text, MessageLimit) {
		if err := t.postWithRetry(ctx, part, maxRetries); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) postWithRetry(ctx context.Context, text string, maxRetries int) error {
	base := t.RetryBase
	if base <= 0 {
		base = time.Second
	}
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		lastErr = t.post(ctx, text)
		if lastErr == nil {
			return nil
		}
		if i == maxRetries {
			break
		}
		backoff := base << uint(i)
		log.Printf("[WARN] telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, lastErr, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

func (t *TelegramNotifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// splitMessage cuts text on line boundaries into parts of at most limit runes.
// A single line longer than limit is hard-cut.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	n := 0
	flush := func() {
		if n > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > limit {
			flush()
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		if n+len(r) > limit {
			flush()
		}
		cur.WriteString(string(r))
		n += len(r)
	}
	flush()
	return parts
}
