package notifier

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// update is one message pulled from getUpdates.
type update struct {
	ID   int64
	Text string
}

// parseUpdates reads the result array of getUpdates. Updates without text are
// kept so the offset still advances past them.
func parseUpdates(result gjson.Result) []update {
	var out []update
	result.ForEach(func(_, u gjson.Result) bool {
		out = append(out, update{
			ID:   u.Get("update_id").Int(),
			Text: strings.TrimSpace(u.Get("message.text").String()),
		})
		return true
	})
	return out
}

// StartPolling long-polls getUpdates and answers each command in the chat.
// Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	var offset int64
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for ctx.Err() == nil {
		result, err := t.call(ctx, client, "getUpdates", map[string]int64{"offset": offset, "timeout": 30})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] telegram polling failed: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		for _, u := range parseUpdates(result) {
			offset = u.ID + 1
			if u.Text == "" {
				continue
			}
			log.Printf("[INFO] received command: %s", u.Text)
			if reply := handler(u.Text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					log.Printf("[ERROR] send reply: %v", err)
				}
			}
		}
	}
	log.Println("[INFO] telegram polling stopped")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
