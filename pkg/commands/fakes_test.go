package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
	"filerelay/pkg/session"
	"filerelay/pkg/storage"
	"filerelay/pkg/upstream"
)

type fakeMessenger struct {
	mu        sync.Mutex
	chats     map[string]bus.ChatInfo
	files     map[string]bus.FileMeta
	fileErr   error
	delivered []bus.Reply
	nextID    int
	failEdit  bool
	failSend  bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		chats:  make(map[string]bus.ChatInfo),
		files:  make(map[string]bus.FileMeta),
		nextID: 100,
	}
}

func (m *fakeMessenger) ChatInfo(_ context.Context, channel string) (bus.ChatInfo, error) {
	info, ok := m.chats[channel]
	if !ok {
		return bus.ChatInfo{}, upstream.APIError("telegram", "Bad Request: chat not found")
	}
	return info, nil
}

func (m *fakeMessenger) FileMeta(_ context.Context, fileID string) (bus.FileMeta, error) {
	if m.fileErr != nil {
		return bus.FileMeta{}, m.fileErr
	}
	meta, ok := m.files[fileID]
	if !ok {
		return bus.FileMeta{}, upstream.APIError("telegram", "Bad Request: invalid file_id")
	}
	return meta, nil
}

func (m *fakeMessenger) FileURL(path string) string {
	return "https://files.example/bot-token/" + path
}

func (m *fakeMessenger) Deliver(ctx context.Context, reply bus.Reply) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if reply.EditMessageID != 0 && m.failEdit {
		return 0, errors.New("edit failed")
	}
	if reply.EditMessageID == 0 && m.failSend {
		return 0, errors.New("send failed")
	}

	m.delivered = append(m.delivered, reply)
	if reply.EditMessageID != 0 {
		return reply.EditMessageID, nil
	}
	m.nextID++
	return m.nextID, nil
}

func (m *fakeMessenger) sent() []bus.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bus.Reply(nil), m.delivered...)
}

type fakeSource struct {
	posts []history.Post
	err   error
	calls int
}

func (s *fakeSource) RecentPosts(context.Context, string) ([]history.Post, error) {
	s.calls++
	return s.posts, s.err
}

type fakeUploader struct {
	name   string
	dest   string
	err    error
	calls  int
	source string
	file   string
	during func()
}

func (u *fakeUploader) Name() string { return u.name }

func (u *fakeUploader) Upload(_ context.Context, sourceURL string, name string) (string, error) {
	u.calls++
	u.source = sourceURL
	u.file = name
	if u.during != nil {
		u.during()
	}
	if u.err != nil {
		return "", u.err
	}
	return u.dest + "/" + name, nil
}

type fixture struct {
	messenger *fakeMessenger
	sessions  *session.MemoryStore
	source    *fakeSource
	alist     *fakeUploader
	webdav    *fakeUploader
	dispatch  *Dispatcher
}

func newFixture(pageSize int) (*fixture, error) {
	f := &fixture{
		messenger: newFakeMessenger(),
		sessions:  session.NewMemoryStore(),
		source:    &fakeSource{},
		alist:     &fakeUploader{name: "alist", dest: "/telegram"},
		webdav:    &fakeUploader{name: "webdav", dest: "/dav"},
	}

	registry, err := storage.NewRegistry("alist", f.alist, f.webdav)
	if err != nil {
		return nil, err
	}

	f.dispatch, err = New(Deps{
		Messenger: f.messenger,
		Sessions:  f.sessions,
		History:   f.source,
		Storage:   registry,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

func inbound(sender int64, text string) bus.InboundMessage {
	return bus.InboundMessage{ChatID: sender, SenderID: sender, Text: text}
}

func replyText(result bus.Result) string {
	r, ok := result.Reply()
	if !ok {
		return ""
	}
	return r.Text
}

func dayEpoch(day string, hour int) int64 {
	parsed, err := time.Parse(history.DayLayout, day)
	if err != nil {
		panic(err)
	}
	return parsed.Add(time.Duration(hour) * time.Hour).Unix()
}
