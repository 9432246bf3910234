package history

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLimit matches the size of the Bot API update window.
const DefaultLimit = 100

// UpdatesFetcher returns the channel posts retained in the messaging API's
// pending update buffer, for every channel the bot is a member of.
type UpdatesFetcher interface {
	ChannelPosts(ctx context.Context, limit int) ([]Post, error)
}

// UpdatesSource reads posts from the pending update buffer.
//
// Low traffic channels may have nothing buffered, and the buffer is
// unavailable while a webhook is registered or a poller consumes updates.
type UpdatesSource struct {
	fetcher UpdatesFetcher
	limit   int
}

// NewUpdatesSource builds a source backed by fetcher.
func NewUpdatesSource(fetcher UpdatesFetcher, limit int) (*UpdatesSource, error) {
	if fetcher == nil {
		return nil, errors.New("updates fetcher is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &UpdatesSource{fetcher: fetcher, limit: limit}, nil
}

// RecentPosts fetches the update window and keeps the posts of channel.
func (s *UpdatesSource) RecentPosts(ctx context.Context, channel string) ([]Post, error) {
	posts, err := s.fetcher.ChannelPosts(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch channel posts: %w", err)
	}

	return FilterChannel(posts, channel), nil
}
