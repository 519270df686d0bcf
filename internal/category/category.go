// Package category maps clipboard format identifiers onto the small set of
// categories used to filter actions and pick type badges.
package category

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is one of a fixed set of content kinds.
type Category string

const (
	Text  Category = "text"
	URL   Category = "url"
	HTML  Category = "html"
	Image Category = "image"
	Files Category = "files"
)

// Canonical format identifiers emitted by the capture process.
const (
	FormatPlain    = "text/plain"
	FormatURIList  = "text/uri-list"
	FormatHTML     = "text/html"
	FormatRTF      = "text/rtf"
	FormatPNG      = "image/png"
	FormatFileList = "application/x-file-list"
	FormatFilePath = "application/x-file-path"

	// formatFilesAlias is the bare identifier older capture builds used for
	// file lists.
	formatFilesAlias = "files"

	imagePrefix = "image/"
	textPrefix  = "text/"
)

// All lists every category in display order.
var All = []Category{Text, URL, HTML, Image, Files}

var urlPattern = regexp.MustCompile(`^https?://`)

// Classify returns the category for a format identifier. Unknown identifiers
// are treated as text so new capture formats keep working.
func Classify(format string) Category {
	switch {
	case strings.HasPrefix(format, imagePrefix):
		return Image
	case format == FormatFileList || format == FormatFilePath || format == formatFilesAlias:
		return Files
	case format == FormatURIList:
		return URL
	case format == FormatHTML:
		return HTML
	case format == "" || strings.HasPrefix(format, textPrefix):
		return Text
	default:
		return Text
	}
}

// IsTextFormat reports whether format is a text/* identifier (or empty,
// which the capture layer uses for plain text).
func IsTextFormat(format string) bool {
	return format == "" || strings.HasPrefix(format, textPrefix)
}

// IsURL reports whether the trimmed content starts with an http(s) scheme.
func IsURL(content string) bool {
	return urlPattern.MatchString(strings.TrimSpace(content))
}

// IsURLContent reports whether content should be handled as a link: either
// it is already tagged as a URL list, or it is text that starts with an
// http(s) scheme. Other schemes are never detected.
func IsURLContent(content, format string) bool {
	if format == FormatURIList {
		return true
	}
	if IsTextFormat(format) {
		return IsURL(content)
	}
	return false
}

// Parse converts a configured category name into a Category.
func Parse(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Badge returns a short label for listings.
func (c Category) Badge() string {
	switch c {
	case URL:
		return "URL"
	case HTML:
		return "HTML"
	case Image:
		return "IMG"
	case Files:
		return "FILE"
	default:
		return "TEXT"
	}
}
