package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"filerelay/pkg/bus"
	"filerelay/pkg/channel"
	"filerelay/pkg/commands"
	"filerelay/pkg/config"

	"github.com/google/uuid"
)

const (
	defaultHealthHost   = "0.0.0.0"
	defaultHealthPort   = 18790
	healthCheckInterval = 30 * time.Second
)

// Dispatcher runs one command and returns what to send back.
type Dispatcher interface {
	Handle(ctx context.Context, msg bus.InboundMessage) bus.Result
}

// Deliverer sends replies through the messaging API.
type Deliverer interface {
	Deliver(ctx context.Context, reply bus.Reply) (int, error)
}

// HealthChecker reports whether the messaging API accepts the bot token.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the gateway needs.
type Deps struct {
	Dispatcher Dispatcher
	Messenger  Deliverer
	Health     HealthChecker
}

type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	dispatcher Dispatcher
	messenger  Deliverer
	health     HealthChecker
	events     *bus.Events
	channels   []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	apiLastOKAt   time.Time
	apiLastErr    string
	channelStates map[string]channelState
	commands      commandStats
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type commandStats struct {
	Handled   int64  `json:"handled"`
	Failed    int64  `json:"failed"`
	LastAt    string `json:"last_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	APILastOKAt   string                  `json:"api_last_ok_at,omitempty"`
	APILastErr    string                  `json:"api_last_error,omitempty"`
	Channels      map[string]channelState `json:"channels"`
	Commands      commandStats            `json:"commands"`
}

func NewService(cfg *config.Config, deps Deps, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if deps.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if deps.Health == nil {
		return nil, errors.New("health checker is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		dispatcher:    deps.Dispatcher,
		messenger:     deps.Messenger,
		health:        deps.Health,
		events:        bus.NewEvents(),
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Events exposes the command event stream.
func (s *Service) Events() *bus.Events {
	return s.events
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.events.Close()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkAPIHealth(ctx); err != nil {
		return err
	}

	events, unsubscribe := s.events.Subscribe(ctx, 0)
	defer unsubscribe()
	go s.trackCommands(events)

	serverErrors := make(chan error, 1)
	go s.runHTTPServer(ctx, serverErrors)

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.checkAPIHealth(ctx)
			}
		}
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.handlerFor(adapter.Name()))
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) handlerFor(adapter string) channel.Handler {
	return func(ctx context.Context, inbound bus.InboundMessage) error {
		return s.handleInbound(ctx, adapter, inbound)
	}
}

// handleInbound dispatches one command and performs the single reply step
// unless the handler already sent its own messages.
func (s *Service) handleInbound(ctx context.Context, adapter string, inbound bus.InboundMessage) error {
	event := bus.Event{
		RequestID: uuid.NewString(),
		Adapter:   adapter,
		ChatID:    inbound.ChatID,
		Command:   string(commands.Route(inbound.Text)),
	}

	event.Type = bus.EventCommandReceived
	s.events.Publish(ctx, event)
	s.log.Debug("Command received", "request_id", event.RequestID, "adapter", adapter, "chat_id", inbound.ChatID, "command", event.Command)

	result := s.dispatcher.Handle(ctx, inbound)

	// A webhook request may be gone by now; the reply still goes out.
	ctx = context.WithoutCancel(ctx)

	reply, ok := result.Reply()
	if ok {
		if _, err := s.messenger.Deliver(ctx, reply); err != nil {
			event.Type = bus.EventCommandFailed
			event.Error = err.Error()
			s.events.Publish(ctx, event)
			return fmt.Errorf("deliver reply (request %s): %w", event.RequestID, err)
		}
	}

	event.Type = bus.EventCommandCompleted
	s.events.Publish(ctx, event)
	return nil
}

func (s *Service) trackCommands(events <-chan bus.Event) {
	for event := range events {
		s.mu.Lock()
		switch event.Type {
		case bus.EventCommandCompleted:
			s.commands.Handled++
			s.commands.LastAt = event.At.Format(time.RFC3339)
		case bus.EventCommandFailed:
			s.commands.Failed++
			s.commands.LastAt = event.At.Format(time.RFC3339)
			s.commands.LastError = event.Error
		}
		s.mu.Unlock()
	}
}

func (s *Service) runHTTPServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	for _, adapter := range s.channels {
		if routed, ok := adapter.(channel.HTTPAdapter); ok {
			mux.Handle(routed.Pattern(), routed)
			s.log.Info("Mounted channel route", "channel", adapter.Name(), "pattern", routed.Pattern())
		}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway HTTP server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start gateway server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	apiLastOK := ""
	if !s.apiLastOKAt.IsZero() {
		apiLastOK = s.apiLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		APILastOKAt:   apiLastOK,
		APILastErr:    s.apiLastErr,
		Channels:      channels,
		Commands:      s.commands,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.channelStates) == 0 {
		return false
	}

	anyRunning := false
	for _, state := range s.channelStates {
		if state.Running {
			anyRunning = true
			break
		}
	}

	if !anyRunning {
		return false
	}

	if s.apiLastOKAt.IsZero() {
		return false
	}

	if s.apiLastErr != "" {
		return false
	}

	return true
}

func (s *Service) checkAPIHealth(ctx context.Context) error {
	if err := s.health.Health(ctx); err != nil {
		s.mu.Lock()
		s.apiLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("telegram health check failed: %w", err)
	}

	s.mu.Lock()
	s.apiLastErr = ""
	s.apiLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
