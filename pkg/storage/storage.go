// Package storage relays files from a download URL to a storage backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"filerelay/pkg/upstream"
)

const (
	DefaultBackend  = "alist"
	DefaultPath     = "/telegram"
	defaultTimeout  = 10 * time.Minute
	errorBodyLimit  = 4 << 10
	sourceService   = "telegram file"
	sourceUserAgent = "filerelay"
)

// Uploader stores the bytes behind sourceURL under name and returns the
// destination path on success.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, sourceURL string, name string) (string, error)
}

// Registry resolves backend names given by users.
type Registry struct {
	def       string
	uploaders map[string]Uploader
}

// NewRegistry indexes uploaders by name. def names the backend used when
// the user does not pick one.
func NewRegistry(def string, uploaders ...Uploader) (*Registry, error) {
	registry := &Registry{
		def:       normalizeName(def),
		uploaders: make(map[string]Uploader, len(uploaders)),
	}
	if registry.def == "" {
		registry.def = DefaultBackend
	}

	for _, uploader := range uploaders {
		if uploader == nil {
			continue
		}
		name := normalizeName(uploader.Name())
		if _, exists := registry.uploaders[name]; exists {
			return nil, fmt.Errorf("duplicate storage backend %q", name)
		}
		registry.uploaders[name] = uploader
	}

	if _, ok := registry.uploaders[registry.def]; !ok {
		return nil, fmt.Errorf("default storage backend %q is not registered", registry.def)
	}

	return registry, nil
}

// Default returns the name used when none is given.
func (r *Registry) Default() string {
	return r.def
}

// Lookup resolves name case-insensitively; an empty name means the default.
func (r *Registry) Lookup(name string) (Uploader, bool) {
	name = normalizeName(name)
	if name == "" {
		name = r.def
	}

	uploader, ok := r.uploaders[name]
	return uploader, ok
}

// Names lists the registered backends in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.uploaders))
	for name := range r.uploaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// destination joins the configured prefix and the file name.
func destination(prefix string, name string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPath
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	return path.Join(prefix, path.Base("/"+name))
}

// openSource starts streaming the file behind sourceURL. The returned size is
// -1 when the server does not announce it.
func openSource(ctx context.Context, client *http.Client, sourceURL string) (io.ReadCloser, int64, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, 0, errors.New("source url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build source request: %w", err)
	}
	req.Header.Set("User-Agent", sourceUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, upstream.TransportError(sourceService, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		_ = resp.Body.Close()
		detail := fmt.Sprintf("download failed with status %d", resp.StatusCode)
		if text := strings.TrimSpace(string(body)); text != "" {
			detail += ": " + text
		}
		return nil, 0, upstream.APIError(sourceService, detail)
	}

	return resp.Body, resp.ContentLength, nil
}
