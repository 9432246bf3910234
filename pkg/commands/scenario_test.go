package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
	"filerelay/pkg/upstream"
)

func TestChannelThenDateScenario(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.chats["news"] = bus.ChatInfo{ID: -1001, Username: "news", Type: "channel"}

	ctx := context.Background()
	confirm := replyText(f.dispatch.Handle(ctx, inbound(42, "/channel @news")))
	assert.Contains(t, confirm, "Channel set: @news")

	stored, ok, err := f.sessions.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "news", stored)

	f.source.posts = []history.Post{
		{Chat: "news", MessageID: 10, Date: dayEpoch("2024-01-05", 8), Attachment: bus.Document{FileID: "DOC1", FileName: "agenda.pdf"}},
		{Chat: "news", MessageID: 11, Date: dayEpoch("2024-01-05", 17), Attachment: bus.Photo{FileID: "PHOTO1", Width: 1280, Height: 720}},
		{Chat: "news", MessageID: 12, Date: dayEpoch("2024-01-06", 1), Attachment: bus.Document{FileID: "DOC2", FileName: "later.pdf"}},
	}

	listing := replyText(f.dispatch.Handle(ctx, inbound(42, "/date 2024-01-05")))
	assert.Equal(t, "Files from 2024-01-05:\n\n"+
		"1. [Document] agenda.pdf\nUse /download DOC1 to download\n\n"+
		"2. [Photo] photo\nUse /download PHOTO1 to download\n\n", listing)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.chats["news"] = bus.ChatInfo{Username: "news"}
	f.messenger.chats["sport"] = bus.ChatInfo{Username: "sport"}
	f.messenger.chats["music"] = bus.ChatInfo{Username: "music"}

	ctx := context.Background()
	f.dispatch.Handle(ctx, inbound(1, "/channel @news"))
	f.dispatch.Handle(ctx, inbound(2, "/channel sport"))

	first, _, err := f.sessions.Get(ctx, 1)
	require.NoError(t, err)
	second, _, err := f.sessions.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "news", first)
	assert.Equal(t, "sport", second)

	f.dispatch.Handle(ctx, inbound(1, "/channel @music"))

	first, _, err = f.sessions.Get(ctx, 1)
	require.NoError(t, err)
	second, _, err = f.sessions.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "music", first)
	assert.Equal(t, "sport", second)
}

func TestSaveSuccessEditsStatus(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{FileID: "F1", Path: "documents/file_7.pdf", Size: 2048}

	result := f.dispatch.Handle(context.Background(), inbound(5, "/save F1"))

	_, ok := result.Reply()
	assert.False(t, ok, "save must not ask the transport for another reply")

	sent := f.messenger.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, msgSaveProgress, sent[0].Text)
	assert.Zero(t, sent[0].EditMessageID)
	assert.Equal(t, 101, sent[1].EditMessageID)
	assert.Equal(t, "File saved to alist: /telegram/file_7.pdf", sent[1].Text)

	assert.Equal(t, 1, f.alist.calls)
	assert.Equal(t, 0, f.webdav.calls)
	assert.Equal(t, "https://files.example/bot-token/documents/file_7.pdf", f.alist.source)
	assert.Equal(t, "file_7.pdf", f.alist.file)
}

func TestSaveSelectsBackendCaseInsensitively(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{Path: "music/song.mp3"}

	f.dispatch.Handle(context.Background(), inbound(5, "/save F1 WebDAV"))

	assert.Equal(t, 0, f.alist.calls)
	assert.Equal(t, 1, f.webdav.calls)

	sent := f.messenger.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "File saved to webdav: /dav/song.mp3", sent[1].Text)
}

func TestSaveFailureEditsStatusWithError(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{Path: "documents/a.zip"}
	f.alist.err = upstream.APIError("alist", "storage quota exceeded")

	result := f.dispatch.Handle(context.Background(), inbound(5, "/save F1 alist"))

	_, ok := result.Reply()
	assert.False(t, ok)

	sent := f.messenger.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Failed to save the file: storage quota exceeded", sent[1].Text)
	assert.Equal(t, 101, sent[1].EditMessageID)
}

func TestSaveUnknownBackendNeverUploads(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{Path: "documents/a.zip"}

	got := replyText(f.dispatch.Handle(context.Background(), inbound(5, "/save F1 Dropbox")))

	assert.Equal(t, "Unsupported storage type: dropbox. Supported: alist, webdav", got)
	assert.Zero(t, f.alist.calls)
	assert.Zero(t, f.webdav.calls)
	assert.Empty(t, f.messenger.sent())
}

func TestSaveReportsMetadataFailureWithoutStatus(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)

	got := replyText(f.dispatch.Handle(context.Background(), inbound(5, "/save missing")))
	assert.Equal(t, "Cannot get file info: Bad Request: invalid file_id", got)
	assert.Empty(t, f.messenger.sent())

	f.messenger.fileErr = errors.New("dial tcp: timeout")
	got = replyText(f.dispatch.Handle(context.Background(), inbound(5, "/save missing")))
	assert.Equal(t, "Error while saving the file: dial tcp: timeout", got)
	assert.Zero(t, f.alist.calls)
}

func TestSaveFallsBackToReplyWhenEditFails(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{Path: "documents/a.zip"}
	f.messenger.failEdit = true

	got := replyText(f.dispatch.Handle(context.Background(), inbound(5, "/save F1")))
	assert.Equal(t, "File saved to alist: /telegram/a.zip", got)
}

func TestSaveReportsOutcomeAfterRequestCancelled(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)
	f.messenger.files["F1"] = bus.FileMeta{Path: "videos/talk.mp4"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.alist.during = cancel

	result := f.dispatch.Handle(ctx, inbound(5, "/save F1"))

	_, ok := result.Reply()
	assert.False(t, ok)

	sent := f.messenger.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, 101, sent[1].EditMessageID)
	assert.Equal(t, "File saved to alist: /telegram/talk.mp4", sent[1].Text)
}

func TestSaveUsage(t *testing.T) {
	f, err := newFixture(0)
	require.NoError(t, err)

	assert.Equal(t, msgSaveUsage, replyText(f.dispatch.Handle(context.Background(), inbound(5, "/save"))))
}
