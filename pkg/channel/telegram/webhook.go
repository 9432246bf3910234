package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/mymmrac/telego"

	"filerelay/pkg/channel"
)

const (
	webhookName      = "telegram_webhook"
	webhookInfoText  = "Please use the Telegram bot to send commands."
	webhookErrorText = "Error processing request"
	webhookNotReady  = "Not ready"
	webhookAckText   = "OK"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

// Webhook receives updates pushed by Telegram to the gateway HTTP server.
type Webhook struct {
	pattern  string
	recorder PostRecorder
	log      *slog.Logger

	mu      sync.RWMutex
	handler channel.Handler
}

// NewWebhook serves updates at path. recorder may be nil.
func NewWebhook(path string, recorder PostRecorder, log *slog.Logger) *Webhook {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if log == nil {
		log = slog.Default()
	}

	pattern := path
	if path == "/" {
		pattern = "/{$}"
	}

	return &Webhook{
		pattern:  pattern,
		recorder: recorder,
		log:      log.With("component", "channel.telegram.webhook"),
	}
}

func (w *Webhook) Name() string {
	return webhookName
}

// Pattern is the ServeMux pattern the webhook is mounted on.
func (w *Webhook) Pattern() string {
	return w.pattern
}

// Run accepts updates until ctx is done.
func (w *Webhook) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	w.mu.Lock()
	w.handler = handler
	w.mu.Unlock()

	w.log.Info("Telegram webhook ready", "pattern", w.pattern)
	<-ctx.Done()

	w.mu.Lock()
	w.handler = nil
	w.mu.Unlock()

	return nil
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(rw, http.StatusOK, webhookInfoText)
		return
	}

	w.mu.RLock()
	handler := w.handler
	w.mu.RUnlock()
	if handler == nil {
		// Telegram retries non-2xx deliveries.
		writeText(rw, http.StatusServiceUnavailable, webhookNotReady)
		return
	}

	var update telego.Update
	payload, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, webhookMaxBodyBytes))
	if err == nil {
		err = json.Unmarshal(payload, &update)
	}
	if err != nil {
		w.log.Warn("Failed to decode webhook update", "error", err)
		writeText(rw, http.StatusInternalServerError, webhookErrorText)
		return
	}

	if update.ChannelPost != nil {
		recordPost(w.recorder, update.ChannelPost)
	}

	inbound, ok := inboundFrom(update)
	if !ok {
		writeText(rw, http.StatusOK, webhookAckText)
		return
	}

	w.log.Info("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID, "content", previewText(inbound.Text))

	// Failures are already reported to the user; a non-2xx answer would make
	// Telegram deliver the same update again.
	if err := handler(r.Context(), inbound); err != nil {
		w.log.Error("Failed to process inbound message", "chat_id", inbound.ChatID, "update_id", inbound.UpdateID, "error", err)
	}

	writeText(rw, http.StatusOK, webhookAckText)
}

func writeText(rw http.ResponseWriter, status int, text string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = io.WriteString(rw, text)
}
