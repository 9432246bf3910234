// Package session remembers which channel each user is browsing.
package session

import (
	"context"
	"strconv"
)

// Store maps a user to the channel they selected last.
//
// Implementations give no ordering guarantee between requests: a Put from
// one request may not be visible to a concurrent Get, and the last write
// wins.
type Store interface {
	// Get returns the selected channel and false when the user has none.
	Get(ctx context.Context, userID int64) (string, bool, error)
	// Put replaces the user's selection.
	Put(ctx context.Context, userID int64, channel string) error
}

// Key is the key-value key under which a user's selection is stored.
func Key(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":channel"
}
