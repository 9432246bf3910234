package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"filerelay/pkg/bus"
	"filerelay/pkg/mimetypes"
	"filerelay/pkg/upstream"
)

const (
	DefaultWebBaseURL = "https://t.me/s/"

	webServiceName     = "t.me"
	webMaxBodyBytes    = 4 << 20
	webRequestTimeout  = 20 * time.Second
	webUnnamedDocument = "unnamed file"
)

// WebSource scrapes the public preview page of a channel. It needs no bot
// membership but only sees documents, and the file ids it produces are
// synthetic: they cannot be resolved by the messaging API.
type WebSource struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
	log     *slog.Logger
}

// NewWebSource builds a scraper for pages under baseURL (for example
// "https://t.me/s/").
func NewWebSource(baseURL string, client *http.Client, log *slog.Logger) (*WebSource, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultWebBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid web base url: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: webRequestTimeout}
	}
	if log == nil {
		log = slog.Default()
	}

	return &WebSource{
		baseURL: baseURL,
		client:  client,
		now:     time.Now,
		log:     log.With("component", "history.web"),
	}, nil
}

// RecentPosts downloads and parses the channel preview page.
func (s *WebSource) RecentPosts(ctx context.Context, channel string) ([]Post, error) {
	name := NormalizeChannel(channel)
	if name == "" {
		return nil, errors.New("channel name is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("build channel page request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("Failed to fetch public channel page", "channel", name, "error", err)
		return nil, upstream.NewError(webServiceName, upstream.ErrorTransport, "cannot fetch channel messages, make sure the channel is public")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.APIError(webServiceName, fmt.Sprintf("channel page returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, webMaxBodyBytes))
	if err != nil {
		return nil, upstream.TransportError(webServiceName, err)
	}

	posts, err := parseChannelPage(body, name, s.now())
	if err != nil {
		return nil, upstream.NewError(webServiceName, upstream.ErrorInvalidResponse, err.Error())
	}

	s.log.Debug("Parsed public channel page", "channel", name, "posts", len(posts))
	return posts, nil
}

// parseChannelPage extracts one post per document found in a message bubble.
func parseChannelPage(page []byte, channel string, now time.Time) ([]Post, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var posts []Post

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "tgme_widget_message_bubble") {
			posts = append(posts, bubblePosts(n, channel, now)...)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return posts, nil
}

func bubblePosts(bubble *html.Node, channel string, now time.Time) []Post {
	date := now
	if timeNode := findFirst(bubble, func(n *html.Node) bool { return n.Data == "time" && attr(n, "datetime") != "" }); timeNode != nil {
		if parsed, err := time.Parse(time.RFC3339, attr(timeNode, "datetime")); err == nil {
			date = parsed
		}
	}

	var posts []Post

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isDocumentContainer(n) {
			if doc, ok := documentFrom(n); ok {
				posts = append(posts, Post{Chat: channel, Date: date.Unix(), Attachment: doc})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(bubble)

	return posts
}

func isDocumentContainer(n *html.Node) bool {
	if hasClass(n, "tgme_widget_message_document_wrap") {
		return true
	}

	return n.Data == "a" && hasClass(n, "tgme_widget_message_document_link")
}

func documentFrom(container *html.Node) (bus.Document, bool) {
	href := ""
	if container.Data == "a" {
		href = attr(container, "href")
	} else if link := findFirst(container, func(n *html.Node) bool { return n.Data == "a" && attr(n, "href") != "" }); link != nil {
		href = attr(link, "href")
	}
	if strings.TrimSpace(href) == "" {
		return bus.Document{}, false
	}

	name := webUnnamedDocument
	if title := findFirst(container, func(n *html.Node) bool { return hasClass(n, "tgme_widget_message_document_title") }); title != nil {
		if text := textContent(title); text != "" {
			name = text
		}
	}

	return bus.Document{
		FileID:   "web_" + uuid.NewString(),
		FileName: name,
		MimeType: mimetypes.ByName(name),
		URL:      strings.TrimSpace(href),
	}, true
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}

	return nil
}

func hasClass(n *html.Node, want string) bool {
	for _, part := range strings.Fields(attr(n, "class")) {
		if part == want {
			return true
		}
	}

	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}

	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}
