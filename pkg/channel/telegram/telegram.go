package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"filerelay/pkg/channel"
	"filerelay/pkg/history"
)

const (
	pollName              = "telegram"
	messagePreviewLimit   = 240
	typingRefreshInterval = 4 * time.Second
)

// PostRecorder keeps the channel posts a transport observes.
type PostRecorder interface {
	Record(post history.Post)
}

// Adapter receives updates through long polling.
type Adapter struct {
	client   *Client
	recorder PostRecorder
	log      *slog.Logger
}

// NewAdapter builds a long polling adapter. recorder may be nil.
func NewAdapter(client *Client, recorder PostRecorder, log *slog.Logger) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("telegram client is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		client:   client,
		recorder: recorder,
		log:      log.With("component", "channel.telegram.poll"),
	}, nil
}

// Name returns the channel identifier used in status output and logs.
func (a *Adapter) Name() string {
	return pollName
}

// Run starts long polling and forwards messages through the shared channel handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.client.Bot().UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{updateMessage, updateChannelPost},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram long polling started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			a.handleUpdate(ctx, update, handler)
		}
	}
}

func (a *Adapter) handleUpdate(ctx context.Context, update telego.Update, handler channel.Handler) {
	if update.ChannelPost != nil {
		recordPost(a.recorder, update.ChannelPost)
		return
	}

	inbound, ok := inboundFrom(update)
	if !ok {
		return
	}
	a.log.Info("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID, "content", previewText(inbound.Text))

	stopTyping := a.startTypingIndicator(ctx, inbound.ChatID)
	err := handler(ctx, inbound)
	stopTyping()
	if err != nil {
		a.log.Error("Failed to process inbound message", "chat_id", inbound.ChatID, "error", err)
	}
}

func recordPost(recorder PostRecorder, message *telego.Message) {
	if recorder == nil || message == nil {
		return
	}

	recorder.Record(postFrom(message))
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it periodically
// until the returned cancel function is called.
func (a *Adapter) startTypingIndicator(ctx context.Context, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)
	bot := a.client.Bot()

	sendTyping := func() {
		if err := bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
