package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"filerelay/pkg/bus"
	"filerelay/pkg/channel"
	"filerelay/pkg/channel/telegram"
	"filerelay/pkg/commands"
	"filerelay/pkg/config"
	"filerelay/pkg/history"
	"filerelay/pkg/session"
	"filerelay/pkg/storage"
	"filerelay/pkg/upstream"
)

// fakeTelegram stands in for the Bot API: it knows one channel and one file
// and records every delivered reply.
type fakeTelegram struct {
	mu sync.Mutex

	healthErr error
	healthN   int
	replies   []bus.Reply
	nextID    int
}

func (f *fakeTelegram) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthN++
	return f.healthErr
}

func (f *fakeTelegram) setHealthErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthErr = err
}

func (f *fakeTelegram) ChatInfo(_ context.Context, channel string) (bus.ChatInfo, error) {
	if channel != "news" {
		return bus.ChatInfo{}, upstream.APIError("telegram", "Bad Request: chat not found")
	}
	return bus.ChatInfo{ID: -1001, Type: "channel", Username: "news"}, nil
}

func (f *fakeTelegram) FileMeta(_ context.Context, fileID string) (bus.FileMeta, error) {
	if fileID != "DOC1" {
		return bus.FileMeta{}, upstream.APIError("telegram", "Bad Request: invalid file_id")
	}
	return bus.FileMeta{FileID: fileID, Path: "documents/agenda.pdf", Size: 1024}, nil
}

func (f *fakeTelegram) FileURL(path string) string {
	return "https://files.example/" + path
}

func (f *fakeTelegram) Deliver(_ context.Context, reply bus.Reply) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
	if reply.EditMessageID != 0 {
		return reply.EditMessageID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeTelegram) delivered() []bus.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bus.Reply(nil), f.replies...)
}

type recordingUploader struct {
	mu    sync.Mutex
	files []string
}

func (u *recordingUploader) Name() string { return "alist" }

func (u *recordingUploader) Upload(_ context.Context, _ string, name string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files = append(u.files, name)
	return "/telegram/" + name, nil
}

type scriptedAdapter struct {
	name    string
	inbound []bus.InboundMessage

	continueOnHandlerError bool

	mu     sync.Mutex
	errors []error
	done   chan struct{}
}

func (a *scriptedAdapter) Name() string {
	return a.name
}

func (a *scriptedAdapter) Run(ctx context.Context, handler channel.Handler) error {
	for _, inbound := range a.inbound {
		err := handler(ctx, inbound)
		if err != nil && !a.continueOnHandlerError {
			return err
		}

		a.mu.Lock()
		a.errors = append(a.errors, err)
		a.mu.Unlock()
	}

	close(a.done)

	<-ctx.Done()
	return nil
}

func newTestService(t *testing.T, api *fakeTelegram, buffer *history.Buffer, adapters ...channel.Adapter) (*Service, int) {
	t.Helper()

	registry, err := storage.NewRegistry("alist", &recordingUploader{})
	require.NoError(t, err)

	dispatcher, err := commands.New(commands.Deps{
		Messenger: api,
		Sessions:  session.NewMemoryStore(),
		History:   buffer,
		Storage:   registry,
	})
	require.NoError(t, err)

	port := freeTCPPort(t)
	cfg := config.Default()
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = port

	svc, err := NewService(cfg, Deps{Dispatcher: dispatcher, Messenger: api, Health: api}, adapters, slog.Default().With("component", "gateway.service.test"))
	require.NoError(t, err)

	return svc, port
}

func runService(t *testing.T, svc *Service) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	return cancel, errCh
}

func stopService(t *testing.T, cancel context.CancelFunc, errCh <-chan error) {
	t.Helper()

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for service run to exit")
	}
}

func TestGatewayServiceRunE2EChannelDateSave(t *testing.T) {
	api := &fakeTelegram{}
	buffer := history.NewBuffer(10)
	buffer.Record(history.Post{Chat: "news", MessageID: 1, Date: 1704445200, Attachment: bus.Document{FileID: "DOC1", FileName: "agenda.pdf"}})
	buffer.Record(history.Post{Chat: "news", MessageID: 2, Date: 1704448800, Attachment: bus.Photo{FileID: "PHOTO1"}})

	adapter := &scriptedAdapter{
		name: "telegram",
		inbound: []bus.InboundMessage{
			{ChatID: 100, SenderID: 100, Text: "/channel @news"},
			{ChatID: 100, SenderID: 100, Text: "/date 2024-01-05"},
			{ChatID: 100, SenderID: 100, Text: "/save DOC1"},
			{ChatID: 200, SenderID: 200, Text: "/date 2024-01-05"},
		},
		done: make(chan struct{}),
	}

	svc, _ := newTestService(t, api, buffer, adapter)
	cancel, errCh := runService(t, svc)
	defer cancel()

	select {
	case <-adapter.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for adapter scripted messages")
	}

	require.Eventually(t, func() bool {
		svc.mu.RLock()
		defer svc.mu.RUnlock()
		return svc.commands.Handled == 4
	}, 2*time.Second, 10*time.Millisecond)

	stopService(t, cancel, errCh)

	replies := api.delivered()
	require.Len(t, replies, 5)
	require.Contains(t, replies[0].Text, "Channel set: @news")
	require.Contains(t, replies[1].Text, "1. [Document] agenda.pdf\nUse /download DOC1 to download")
	require.Contains(t, replies[1].Text, "2. [Photo] photo\nUse /download PHOTO1 to download")
	require.Equal(t, "Saving the file to the storage backend, please wait...", replies[2].Text)
	require.Equal(t, 3, replies[3].EditMessageID)
	require.Equal(t, "File saved to alist: /telegram/agenda.pdf", replies[3].Text)
	require.Equal(t, int64(200), replies[4].ChatID)
	require.Equal(t, "Please choose a channel first with /channel", replies[4].Text)
}

func TestGatewayServiceWebhookRoute(t *testing.T) {
	api := &fakeTelegram{}
	buffer := history.NewBuffer(10)
	hook := telegram.NewWebhook("/telegram", buffer, slog.Default())

	svc, port := newTestService(t, api, buffer, hook)
	cancel, errCh := runService(t, svc)
	defer cancel()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitHTTPStatus(t, base+"/healthz", 2*time.Second)

	post := func(body string) int {
		response, err := http.Post(base+"/telegram", "application/json", strings.NewReader(body))
		if err != nil {
			return 0
		}
		_ = response.Body.Close()
		return response.StatusCode
	}

	channelPost := `{"update_id":1,"channel_post":{"message_id":5,"date":1704445200,"chat":{"id":-1001,"type":"channel","username":"news"},"document":{"file_id":"DOC1","file_unique_id":"u","file_name":"report.PDF"}}}`
	require.Eventually(t, func() bool {
		return post(channelPost) == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond, "webhook never became ready")
	require.Equal(t, 1, buffer.Len())

	require.Equal(t, http.StatusOK, post(`{"update_id":2,"message":{"message_id":6,"date":1704445300,"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":7,"type":"private"},"text":"/channel news"}}`))
	require.Equal(t, http.StatusOK, post(`{"update_id":3,"message":{"message_id":7,"date":1704445400,"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":7,"type":"private"},"text":"/files .pdf"}}`))

	replies := api.delivered()
	require.Len(t, replies, 2)
	require.Contains(t, replies[1].Text, "report.PDF")
	require.Contains(t, replies[1].Text, "📅 2024-01-05")

	response, err := http.Get(base + "/telegram")
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	require.Equal(t, http.StatusOK, response.StatusCode)

	stopService(t, cancel, errCh)
}

func TestGatewayServiceReadyzTransitionsOnAPIHealthRecovery(t *testing.T) {
	api := &fakeTelegram{}
	adapter := &scriptedAdapter{name: "telegram", done: make(chan struct{})}

	svc, port := newTestService(t, api, history.NewBuffer(1), adapter)
	cancel, errCh := runService(t, svc)
	defer cancel()

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
	require.Eventually(t, func() bool {
		return waitHTTPStatus(t, readyURL, 2*time.Second) == http.StatusOK
	}, 2*time.Second, 25*time.Millisecond)

	api.setHealthErr(fmt.Errorf("temporary api outage"))
	err := svc.checkAPIHealth(context.Background())
	require.Error(t, err)
	require.Equal(t, http.StatusServiceUnavailable, waitHTTPStatus(t, readyURL, 2*time.Second))

	api.setHealthErr(nil)
	err = svc.checkAPIHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, waitHTTPStatus(t, readyURL, 2*time.Second))

	response, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	require.NoError(t, err)
	defer response.Body.Close()

	var status statusResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&status))
	require.Equal(t, "ok", status.Status)
	require.True(t, status.Channels["telegram"].Running)
	require.NotEmpty(t, status.APILastOKAt)

	stopService(t, cancel, errCh)
}

func TestGatewayServiceRunFailsWhenAPIUnhealthy(t *testing.T) {
	api := &fakeTelegram{healthErr: fmt.Errorf("Unauthorized")}
	adapter := &scriptedAdapter{name: "telegram", done: make(chan struct{})}

	svc, _ := newTestService(t, api, history.NewBuffer(1), adapter)

	err := svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unauthorized")
}

func waitHTTPStatus(t *testing.T, url string, timeout time.Duration) int {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		response, err := http.Get(url)
		if err == nil {
			statusCode := response.StatusCode
			require.NoError(t, response.Body.Close())
			return statusCode
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %v", url, err)
		}

		time.Sleep(25 * time.Millisecond)
	}
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
