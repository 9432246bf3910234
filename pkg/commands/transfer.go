package commands

import (
	"context"
	"fmt"
	"path"
	"strings"

	"filerelay/pkg/bus"
	"filerelay/pkg/upstream"
)

// LargeFileThreshold is the size above which /download warns that the file
// is too big to be handled inside the bot.
const LargeFileThreshold int64 = 100 << 20

func (d *Dispatcher) handleDownload(ctx context.Context, msg bus.InboundMessage, args []string) bus.Result {
	if len(args) == 0 {
		return reply(msg, msgDownloadUsage)
	}

	meta, err := d.messenger.FileMeta(ctx, args[0])
	if err != nil {
		if upstream.IsAPIError(err) {
			return reply(msg, fmt.Sprintf(msgFileInfoFailed, upstream.Describe(err)))
		}
		return reply(msg, fmt.Sprintf(msgLinkFailed, err.Error()))
	}

	link := d.messenger.FileURL(meta.Path)
	if meta.Size > LargeFileThreshold {
		return markdownReply(msg, fmt.Sprintf(msgLinkLarge, float64(meta.Size)/(1<<20), link))
	}

	return markdownReply(msg, fmt.Sprintf(msgLink, link))
}

func (d *Dispatcher) handleSave(ctx context.Context, msg bus.InboundMessage, args []string) bus.Result {
	if len(args) == 0 {
		return reply(msg, msgSaveUsage)
	}

	fileID := args[0]
	backend := ""
	if len(args) > 1 {
		backend = args[1]
	}

	uploader, ok := d.storage.Lookup(backend)
	if !ok {
		return reply(msg, fmt.Sprintf(msgSaveUnsupported, strings.ToLower(backend), strings.Join(d.storage.Names(), ", ")))
	}

	meta, err := d.messenger.FileMeta(ctx, fileID)
	if err != nil {
		if upstream.IsAPIError(err) {
			return reply(msg, fmt.Sprintf(msgFileInfoFailed, upstream.Describe(err)))
		}
		return reply(msg, fmt.Sprintf(msgSaveError, err.Error()))
	}

	sourceURL := d.messenger.FileURL(meta.Path)

	statusID, err := d.messenger.Deliver(ctx, bus.Reply{ChatID: msg.ChatID, Text: msgSaveProgress})
	if err != nil {
		d.log.Error("Failed to send save status", "chat_id", msg.ChatID, "error", err)
		return reply(msg, fmt.Sprintf(msgSaveError, upstream.Describe(err)))
	}

	name := path.Base(meta.Path)
	var text string
	dest, err := uploader.Upload(ctx, sourceURL, name)
	if err != nil {
		d.log.Warn("Upload failed", "backend", uploader.Name(), "file", name, "error", err)
		text = fmt.Sprintf(msgSaveFailed, upstream.Describe(err))
	} else {
		d.log.Info("File saved", "backend", uploader.Name(), "path", dest)
		text = fmt.Sprintf(msgSaveDone, uploader.Name(), dest)
	}

	// The outcome must reach the user even if the inbound request went away
	// during a long upload.
	edit := bus.Reply{ChatID: msg.ChatID, Text: text, EditMessageID: statusID}
	if _, err := d.messenger.Deliver(context.WithoutCancel(ctx), edit); err != nil {
		d.log.Warn("Failed to edit save status, sending a new message", "message_id", statusID, "error", err)
		return reply(msg, text)
	}

	return bus.AlreadyHandled()
}
