// Package history reads the recent posts of a channel and turns them into
// file listings.
package history

import (
	"context"
	"strings"
	"time"

	"filerelay/pkg/bus"
)

// DayLayout is the calendar day format used by /date and the listings.
const DayLayout = "2006-01-02"

// Post is one channel post as seen by the bot.
type Post struct {
	Chat       string         `json:"chat"`
	MessageID  int            `json:"message_id,omitempty"`
	Date       int64          `json:"date"`
	Attachment bus.Attachment `json:"-"`
}

// Day returns the UTC calendar day the post was published on.
func (p Post) Day() string {
	return DayOf(p.Date)
}

// Source lists the posts of a channel that are currently visible to the bot.
//
// Sources only see a bounded recent window, never the full history.
type Source interface {
	RecentPosts(ctx context.Context, channel string) ([]Post, error)
}

// DayOf formats epoch seconds as a UTC calendar day.
func DayOf(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(DayLayout)
}

// NormalizeChannel strips whitespace and the leading "@" of a channel name.
func NormalizeChannel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}
