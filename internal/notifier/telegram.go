package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	telegramAPI = "https://api.telegram.org"

	// maxMessageLen is the Bot API limit for one sendMessage text.
	maxMessageLen = 4096
	maxBackoff    = 30 * time.Second
)

// APIError is a Bot API reply with ok=false. RetryAfter is set when the API
// asks the caller to slow down.
type APIError struct {
	Status      int
	Code        int64
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %d: %s", e.Code, e.Description)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Status >= 500
}

// TelegramNotifier posts trade and summary messages to one chat and serves
// bot commands.
type TelegramNotifier struct {
	APIBase  string
	BotToken string
	ChatID   string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Printf("[WARN] ignoring telegram proxy %q: %v", proxyURL, err)
		}
	}
	return &TelegramNotifier{
		APIBase:  telegramAPI,
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return t.APIBase + "/bot" + t.BotToken + "/" + method
}

// call posts a JSON payload to a Bot API method and returns its result field.
func (t *TelegramNotifier) call(ctx context.Context, client *http.Client, method string, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: marshal payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read response: %w", method, err)
	}
	return decodeResponse(resp.StatusCode, data)
}

// decodeResponse unwraps the {"ok":...,"result":...} envelope.
func decodeResponse(status int, data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, &APIError{Status: status, Code: int64(status), Description: "invalid json: " + truncate(string(data), 200)}
	}
	res := gjson.ParseBytes(data)
	if !res.Get("ok").Bool() {
		code := res.Get("error_code").Int()
		if code == 0 {
			code = int64(status)
		}
		return gjson.Result{}, &APIError{
			Status:      status,
			Code:        code,
			Description: res.Get("description").String(),
			RetryAfter:  time.Duration(res.Get("parameters.retry_after").Int()) * time.Second,
		}
	}
	return res.Get("result"), nil
}

// Send posts text to the configured chat. Texts longer than one message are
// split on line breaks and sent in order.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		_, err := t.call(ctx, t.Client, "sendMessage", map[string]string{
			"chat_id":    t.ChatID,
			"text":       part,
			"parse_mode": "HTML",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SendWithRetry retries transient failures with exponential backoff. Rejected
// requests such as a bad token or chat id fail on the first attempt.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = t.Send(ctx, text); err == nil {
			return nil
		}
		wait, retry := retryDelay(err, attempt)
		if !retry || attempt >= maxRetries {
			break
		}
		log.Printf("[WARN] telegram send failed (attempt %d/%d): %v, retrying in %v", attempt+1, maxRetries+1, err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("telegram send: %w", err)
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	backoff := min(time.Duration(1<<uint(attempt))*time.Second, maxBackoff)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// transport failure
		return backoff, true
	}
	if !apiErr.Temporary() {
		return 0, false
	}
	if apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return backoff, true
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line
// boundaries.
func splitMessage(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(parts, text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
