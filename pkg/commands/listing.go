package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
	"filerelay/pkg/pager"
	"filerelay/pkg/upstream"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var kindLabels = map[bus.AttachmentKind]string{
	bus.KindDocument: "Document",
	bus.KindPhoto:    "Photo",
	bus.KindVideo:    "Video",
	bus.KindAudio:    "Audio",
	bus.KindVoice:    "Voice",
}

func (d *Dispatcher) handleDate(ctx context.Context, msg bus.InboundMessage, args []string) bus.Result {
	if len(args) == 0 {
		return reply(msg, msgDateUsage)
	}

	day := args[0]
	if !dayPattern.MatchString(day) {
		return reply(msg, msgDateInvalid)
	}

	channel, done := d.selectedChannel(ctx, msg)
	if done != nil {
		return *done
	}

	posts, err := d.channelPosts(ctx, channel)
	if err != nil {
		return reply(msg, fmt.Sprintf(msgListFailed, upstream.Describe(err)))
	}

	posts = history.OnDay(posts, day)
	if len(posts) == 0 {
		return reply(msg, fmt.Sprintf(msgNoMessages, day))
	}

	records := history.FileRecords(history.WithAttachments(posts))
	if len(records) == 0 {
		return reply(msg, fmt.Sprintf(msgNoFiles, day))
	}

	return reply(msg, renderDay(day, records))
}

func renderDay(day string, records []history.FileRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgDateHeader, day)
	for i, record := range records {
		if record.URL != "" {
			fmt.Fprintf(&b, msgDateItemLink, i+1, kindLabels[record.Kind], record.Name, record.URL)
			continue
		}
		fmt.Fprintf(&b, msgDateItem, i+1, kindLabels[record.Kind], record.Name, record.FileID)
	}

	return b.String()
}

func (d *Dispatcher) handleFiles(ctx context.Context, msg bus.InboundMessage, args []string) bus.Result {
	if len(args) == 0 {
		return reply(msg, msgFilesUsage)
	}

	ext := strings.ToLower(args[0])
	if !strings.HasPrefix(ext, ".") {
		return reply(msg, msgFilesBadSuffix)
	}

	channel, done := d.selectedChannel(ctx, msg)
	if done != nil {
		return *done
	}

	posts, err := d.channelPosts(ctx, channel)
	if err != nil {
		return reply(msg, fmt.Sprintf(msgListFailed, upstream.Describe(err)))
	}

	records := history.MatchSuffix(posts, ext)
	if len(records) == 0 {
		return reply(msg, fmt.Sprintf(msgFilesNone, ext))
	}

	pages := pager.Paginate(renderSuffix(ext, history.GroupByDay(records)), d.pageSize)
	if len(pages) == 1 {
		return reply(msg, pages[0])
	}

	// Pages go out one by one so the user reads them in order.
	for i, page := range pages {
		text := fmt.Sprintf(msgFilesPage, i+1, len(pages), page)
		if _, err := d.messenger.Deliver(ctx, bus.Reply{ChatID: msg.ChatID, Text: text}); err != nil {
			d.log.Error("Failed to send file list page", "page", i+1, "pages", len(pages), "error", err)
			return reply(msg, fmt.Sprintf(msgListFailed, upstream.Describe(err)))
		}
	}

	return reply(msg, msgFilesDone)
}

func renderSuffix(ext string, groups []history.DayGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgFilesHeader, ext)
	for _, group := range groups {
		fmt.Fprintf(&b, msgFilesDay, group.Day)
		for i, record := range group.Files {
			if record.URL != "" {
				fmt.Fprintf(&b, msgFilesItemLink, i+1, record.Name, record.URL)
				continue
			}
			fmt.Fprintf(&b, msgFilesItem, i+1, record.Name, record.FileID)
		}
	}

	return b.String()
}

func (d *Dispatcher) channelPosts(ctx context.Context, channel string) ([]history.Post, error) {
	posts, err := d.history.RecentPosts(ctx, channel)
	if err != nil {
		d.log.Error("Failed to fetch channel posts", "channel", channel, "error", err)
		return nil, err
	}

	return history.FilterChannel(posts, channel), nil
}
