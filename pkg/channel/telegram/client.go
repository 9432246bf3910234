package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"

	"filerelay/pkg/bus"
	"filerelay/pkg/config"
	"filerelay/pkg/history"
	"filerelay/pkg/upstream"
)

const (
	service = "telegram"

	updateMessage     = "message"
	updateChannelPost = "channel_post"
)

// Client wraps the Bot API calls the bot makes.
type Client struct {
	bot *telego.Bot
	log *slog.Logger
}

// NewClient validates the token and builds a Bot API client. Extra options
// are appended after the ones derived from cfg.
func NewClient(cfg config.TelegramConfig, log *slog.Logger, opts ...telego.BotOption) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "channel.telegram")

	options := []telego.BotOption{telego.WithLogger(botLogger{log: log})}
	if server := strings.TrimRight(strings.TrimSpace(cfg.APIServer), "/"); server != "" {
		options = append(options, telego.WithAPIServer(server))
	}
	options = append(options, opts...)

	bot, err := telego.NewBot(token, options...)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Client{bot: bot, log: log}, nil
}

// Bot exposes the underlying telego bot.
func (c *Client) Bot() *telego.Bot {
	return c.bot
}

// Health checks the token against the Bot API.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.bot.GetMe(ctx); err != nil {
		return wrapError(err)
	}

	return nil
}

// ChatInfo resolves a channel by username (with or without "@") or numeric id.
func (c *Client) ChatInfo(ctx context.Context, channel string) (bus.ChatInfo, error) {
	chatID, err := channelID(channel)
	if err != nil {
		return bus.ChatInfo{}, err
	}

	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		return bus.ChatInfo{}, wrapError(err)
	}

	return bus.ChatInfo{
		ID:       chat.ID,
		Type:     chat.Type,
		Title:    chat.Title,
		Username: chat.Username,
	}, nil
}

// FileMeta looks up the stored path and size of a file.
func (c *Client) FileMeta(ctx context.Context, fileID string) (bus.FileMeta, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return bus.FileMeta{}, wrapError(err)
	}

	return bus.FileMeta{
		FileID: file.FileID,
		Path:   file.FilePath,
		Size:   int64(file.FileSize),
	}, nil
}

// FileURL builds the direct download URL for a file path returned by FileMeta.
// The URL embeds the bot token.
func (c *Client) FileURL(path string) string {
	return c.bot.FileDownloadURL(path)
}

// Deliver sends reply, or edits the message it names, and returns the
// message id.
func (c *Client) Deliver(ctx context.Context, reply bus.Reply) (int, error) {
	if reply.EditMessageID != 0 {
		_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(reply.ChatID),
			MessageID: reply.EditMessageID,
			Text:      reply.Text,
			ParseMode: reply.ParseMode,
		})
		if err != nil {
			return 0, wrapError(err)
		}
		return reply.EditMessageID, nil
	}

	message, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    tu.ID(reply.ChatID),
		Text:      reply.Text,
		ParseMode: reply.ParseMode,
	})
	if err != nil {
		return 0, wrapError(err)
	}

	return message.MessageID, nil
}

// ChannelPosts reads the channel posts still held in the Bot API update
// queue without confirming them.
func (c *Client) ChannelPosts(ctx context.Context, limit int) ([]history.Post, error) {
	updates, err := c.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
		Limit:          limit,
		AllowedUpdates: []string{updateChannelPost},
	})
	if err != nil {
		return nil, wrapError(err)
	}

	posts := make([]history.Post, 0, len(updates))
	for _, update := range updates {
		if update.ChannelPost == nil {
			continue
		}
		posts = append(posts, postFrom(update.ChannelPost))
	}

	return posts, nil
}

// SetWebhook points the bot at url for message and channel post updates.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	err := c.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            url,
		AllowedUpdates: []string{updateMessage, updateChannelPost},
	})
	if err != nil {
		return wrapError(err)
	}

	c.log.Info("Webhook registered", "url", url)
	return nil
}

// DeleteWebhook drops the webhook so long polling can be used again.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if err := c.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		return wrapError(err)
	}

	c.log.Info("Webhook removed")
	return nil
}

func channelID(channel string) (telego.ChatID, error) {
	name := history.NormalizeChannel(channel)
	if name == "" {
		return telego.ChatID{}, errors.New("channel name is required")
	}

	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return tu.ID(id), nil
	}

	return tu.Username("@" + name), nil
}

// wrapError turns Bot API failures into upstream errors carrying the API
// description.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		return upstream.APIError(service, apiErr.Description)
	}

	return upstream.TransportError(service, err)
}

// botLogger routes telego's internal logging into slog.
type botLogger struct {
	log *slog.Logger
}

func (l botLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l botLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
