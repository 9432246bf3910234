package history

import (
	"context"
	"sync"
)

const defaultBufferSize = 500

// Buffer keeps the most recent channel posts seen by the inbound transports.
type Buffer struct {
	mu    sync.RWMutex
	size  int
	posts []Post
}

// NewBuffer creates a buffer that retains at most size posts.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = defaultBufferSize
	}

	return &Buffer{size: size}
}

// Record appends a post, evicting the oldest once the buffer is full.
func (b *Buffer) Record(post Post) {
	if post.Chat == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.posts = append(b.posts, post)
	if overflow := len(b.posts) - b.size; overflow > 0 {
		b.posts = append(b.posts[:0:0], b.posts[overflow:]...)
	}
}

// Len reports how many posts are buffered.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.posts)
}

// RecentPosts returns the buffered posts of channel in arrival order.
func (b *Buffer) RecentPosts(_ context.Context, channel string) ([]Post, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return FilterChannel(b.posts, channel), nil
}
