// Package pager splits long chat replies into pages that fit a message.
package pager

import (
	"strings"
	"unicode/utf8"
)

// DefaultPageSize leaves headroom under the 4096 character message limit
// for a page marker.
const DefaultPageSize = 4000

// Paginate splits text on line boundaries into pages of at most maxSize
// characters. Joining the pages with "\n" gives back the input. A single
// line longer than maxSize becomes its own oversized page.
func Paginate(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultPageSize
	}
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}

	var (
		pages   []string
		current []string
		size    int
	)

	flush := func() {
		pages = append(pages, strings.Join(current, "\n"))
		current = nil
		size = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineSize := utf8.RuneCountInString(line)
		if len(current) > 0 && size+1+lineSize > maxSize {
			flush()
		}

		if len(current) > 0 {
			size++
		}
		current = append(current, line)
		size += lineSize
	}

	// A lone empty trailing line is dropped rather than sent as a blank page.
	if len(current) > 1 || (len(current) == 1 && current[0] != "") {
		flush()
	}

	return pages
}
