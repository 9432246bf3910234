package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"filerelay/pkg/channel"
	"filerelay/pkg/channel/telegram"
	"filerelay/pkg/commands"
	"filerelay/pkg/config"
	"filerelay/pkg/history"
	"filerelay/pkg/logger"
	"filerelay/pkg/session"
	"filerelay/pkg/storage"
)

// runtime holds everything a transport needs to serve commands.
type runtime struct {
	cfg        *config.Config
	log        *slog.Logger
	client     *telegram.Client
	buffer     *history.Buffer
	dispatcher *commands.Dispatcher
	closers    []func()
}

// loadConfig loads and validates config and installs the process logger.
func loadConfig(component string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, slog.Default().With("component", component), nil
}

func newRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger) (*runtime, error) {
	client, err := telegram.NewClient(cfg.Telegram, log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		log:    log,
		client: client,
		buffer: history.NewBuffer(cfg.History.BufferSize),
	}

	source, err := historySource(cfg.History, client, rt.buffer, log)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := sessionStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeStore)

	registry, err := storageRegistry(cfg.Storage, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.dispatcher, err = commands.New(commands.Deps{
		Messenger: client,
		Sessions:  store,
		History:   source,
		Storage:   registry,
		Log:       log,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// historySource picks where /date and /files read channel posts from.
func historySource(cfg config.HistoryConfig, fetcher history.UpdatesFetcher, buffer *history.Buffer, log *slog.Logger) (history.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "buffer":
		return buffer, nil
	case "updates":
		log.Warn("History source reads getUpdates, which Telegram refuses while a webhook or poller is active")
		return history.NewUpdatesSource(fetcher, cfg.Limit)
	case "web":
		return history.NewWebSource(cfg.WebBaseURL, nil, log)
	default:
		return nil, fmt.Errorf("unsupported history source %q", cfg.Source)
	}
}

// sessionStore opens the configured store and returns its release function.
func sessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "file":
		store, err := session.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		store, err := session.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

func storageRegistry(cfg config.StorageConfig, log *slog.Logger) (*storage.Registry, error) {
	return storage.NewRegistry(cfg.Default,
		storage.NewAlist(cfg.Alist, nil, log),
		storage.NewWebDAV(cfg.WebDAV, nil, log),
	)
}

func requireAdapters(adapters []channel.Adapter) error {
	if len(adapters) == 0 {
		return errors.New("no channels are enabled")
	}

	return nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
