package history

import (
	"sort"
	"strings"

	"filerelay/pkg/bus"
)

// FileRecord is a listing row derived from one post.
type FileRecord struct {
	Kind   bus.AttachmentKind
	Name   string
	FileID string
	Day    string
	// URL is set for documents found on a public channel page. Their
	// FileID is synthetic and unknown to the Bot API.
	URL string
}

// DayGroup holds the files posted on one calendar day.
type DayGroup struct {
	Day   string
	Files []FileRecord
}

// FilterChannel keeps the posts published by channel ("@name" or "name").
func FilterChannel(posts []Post, channel string) []Post {
	want := NormalizeChannel(channel)
	if want == "" {
		return nil
	}

	var out []Post
	for _, post := range posts {
		if strings.EqualFold(NormalizeChannel(post.Chat), want) {
			out = append(out, post)
		}
	}

	return out
}

// OnDay keeps the posts published on day (YYYY-MM-DD, UTC).
func OnDay(posts []Post, day string) []Post {
	var out []Post
	for _, post := range posts {
		if post.Day() == day {
			out = append(out, post)
		}
	}

	return out
}

// WithAttachments keeps the posts that carry a file.
func WithAttachments(posts []Post) []Post {
	var out []Post
	for _, post := range posts {
		if post.Attachment != nil {
			out = append(out, post)
		}
	}

	return out
}

// FileRecords converts posts into listing rows, skipping posts without a file.
func FileRecords(posts []Post) []FileRecord {
	records := make([]FileRecord, 0, len(posts))
	for _, post := range posts {
		if record, ok := RecordOf(post); ok {
			records = append(records, record)
		}
	}

	return records
}

// RecordOf derives the (kind, display name, file id) triple for a post.
func RecordOf(post Post) (FileRecord, bool) {
	record := FileRecord{Day: post.Day()}

	switch a := post.Attachment.(type) {
	case bus.Document:
		record.Name = fallback(a.FileName, "unnamed document")
		record.URL = a.URL
	case bus.Photo:
		record.Name = "photo"
	case bus.Video:
		record.Name = fallback(a.FileName, "video")
	case bus.Audio:
		record.Name = fallback(a.FileName, "audio")
	case bus.Voice:
		record.Name = "voice message"
	default:
		return FileRecord{}, false
	}

	record.Kind = post.Attachment.Kind()
	record.FileID = post.Attachment.ID()
	return record, true
}

// MatchSuffix returns the named documents whose file name ends with ext,
// compared case-insensitively. Other attachment kinds are never matched.
func MatchSuffix(posts []Post, ext string) []FileRecord {
	ext = strings.ToLower(ext)

	var out []FileRecord
	for _, post := range posts {
		doc, ok := post.Attachment.(bus.Document)
		if !ok || doc.FileName == "" {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(doc.FileName), ext) {
			continue
		}

		out = append(out, FileRecord{
			Kind:   bus.KindDocument,
			Name:   doc.FileName,
			FileID: doc.FileID,
			Day:    post.Day(),
			URL:    doc.URL,
		})
	}

	return out
}

// GroupByDay groups records by day, most recent day first. Records keep
// their original order inside a group.
func GroupByDay(records []FileRecord) []DayGroup {
	index := make(map[string]int)
	var groups []DayGroup

	for _, record := range records {
		i, ok := index[record.Day]
		if !ok {
			i = len(groups)
			index[record.Day] = i
			groups = append(groups, DayGroup{Day: record.Day})
		}
		groups[i].Files = append(groups[i].Files, record)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Day > groups[j].Day
	})

	return groups
}

func fallback(value string, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}

	return value
}
