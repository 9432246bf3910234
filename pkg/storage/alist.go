package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"filerelay/pkg/config"
	"filerelay/pkg/mimetypes"
	"filerelay/pkg/upstream"
)

const alistName = "alist"

// Alist uploads through the Alist file system API (PUT /api/fs/put).
type Alist struct {
	cfg    config.AlistConfig
	client *http.Client
	log    *slog.Logger
}

type alistResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewAlist builds an Alist uploader. A nil client uses a client with a
// generous timeout suited to large files.
func NewAlist(cfg config.AlistConfig, client *http.Client, log *slog.Logger) *Alist {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Alist{cfg: cfg, client: client, log: log.With("component", "storage.alist")}
}

func (a *Alist) Name() string {
	return alistName
}

func (a *Alist) Upload(ctx context.Context, sourceURL string, name string) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(a.cfg.URL), "/")
	if baseURL == "" {
		return "", errors.New("alist is not configured")
	}

	dest := destination(a.cfg.Path, name)

	body, size, err := openSource(ctx, a.client, sourceURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, baseURL+"/api/fs/put", body)
	if err != nil {
		return "", fmt.Errorf("build alist request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Authorization", a.cfg.Token)
	req.Header.Set("File-Path", url.PathEscape(dest))
	req.Header.Set("Content-Type", mimetypes.ByName(name))

	a.log.Info("Uploading file", "path", dest, "size", size)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", upstream.TransportError(alistName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		return "", upstream.TransportError(alistName, err)
	}

	var result alistResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", upstream.NewError(alistName, upstream.ErrorInvalidResponse, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if result.Code != http.StatusOK {
		a.log.Warn("Alist rejected upload", "path", dest, "code", result.Code, "message", result.Message)
		return "", upstream.APIError(alistName, result.Message)
	}

	return dest, nil
}
