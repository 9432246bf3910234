package storage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/studio-b12/gowebdav"

	"filerelay/pkg/config"
	"filerelay/pkg/upstream"
)

const webdavName = "webdav"

// WebDAV uploads with an authenticated PUT to a WebDAV server.
type WebDAV struct {
	cfg    config.WebDAVConfig
	client *http.Client
	dav    *gowebdav.Client
	log    *slog.Logger
}

// NewWebDAV builds a WebDAV uploader. client is used to download the source
// file; the WebDAV connection uses its own transport.
func NewWebDAV(cfg config.WebDAVConfig, client *http.Client, log *slog.Logger) *WebDAV {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = slog.Default()
	}

	w := &WebDAV{cfg: cfg, client: client, log: log.With("component", "storage.webdav")}
	if root := strings.TrimSpace(cfg.URL); root != "" {
		w.dav = gowebdav.NewClient(root, cfg.User, cfg.Password)
		w.dav.SetTimeout(defaultTimeout)
	}

	return w
}

func (w *WebDAV) Name() string {
	return webdavName
}

func (w *WebDAV) Upload(ctx context.Context, sourceURL string, name string) (string, error) {
	if w.dav == nil {
		return "", errors.New("webdav is not configured")
	}

	dest := destination(w.cfg.Path, name)

	body, size, err := openSource(ctx, w.client, sourceURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	w.log.Info("Uploading file", "path", dest, "size", size)

	if err := w.dav.WriteStream(dest, body, 0o644); err != nil {
		w.log.Warn("WebDAV rejected upload", "path", dest, "error", err)
		return "", upstream.APIError(webdavName, err.Error())
	}

	return dest, nil
}
