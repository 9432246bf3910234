// Package mimetypes maps file names to content types.
package mimetypes

import (
	"path"
	"strings"
)

// Default is returned for unknown or missing extensions.
const Default = "application/octet-stream"

var byExtension = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"txt":  "text/plain",
}

// ByName returns the content type for a file name such as "Report.PDF".
func ByName(fileName string) string {
	ext := path.Ext(strings.TrimSpace(fileName))
	return ByExtension(ext)
}

// ByExtension accepts an extension with or without the leading dot.
func ByExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if contentType, ok := byExtension[ext]; ok {
		return contentType
	}

	return Default
}
