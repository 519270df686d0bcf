package capture

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/clip"
	"go.klb.dev/clipone/internal/entry"
)

// formatPriority orders the formats a primary representation is picked from.
var formatPriority = []string{
	category.FormatHTML,
	category.FormatRTF,
	category.FormatFileList,
	category.FormatPNG,
	category.FormatPlain,
}

// Snapshot builds an entry from the items a backend read. It reports false
// when there is nothing worth recording. The id is left for the store.
func Snapshot(items []clip.Item, source string, now time.Time) (entry.Entry, bool) {
	contents := make(entry.Contents, len(items))
	var formats entry.Formats
	for _, it := range items {
		if len(it.Data) == 0 {
			continue
		}
		if _, dup := contents[it.MIME]; dup {
			continue
		}
		formats = append(formats, it.MIME)
		contents[it.MIME] = encode(it)
	}

	// An html-only clipboard still gets a plain text alternative.
	if html, ok := contents[category.FormatHTML]; ok {
		if _, ok := contents[category.FormatPlain]; !ok {
			if text := htmlText(html); text != "" {
				formats = append(formats, category.FormatPlain)
				contents[category.FormatPlain] = text
			}
		}
	}

	primary := ""
	for _, f := range formatPriority {
		if _, ok := contents[f]; ok {
			primary = f
			break
		}
	}
	if primary == "" && len(formats) > 0 {
		primary = formats[0]
	}
	if primary == "" {
		return entry.Entry{}, false
	}

	content := contents[primary]
	if strings.TrimSpace(content) == "" {
		return entry.Entry{}, false
	}

	if primary == category.FormatPlain {
		if refined := RefineTextFormat(content); refined != primary {
			primary = refined
			contents[primary] = content
			formats = append(entry.Formats{primary}, formats...)
		}
	}

	return entry.Entry{
		PrimaryFormat: primary,
		Formats:       formats,
		Contents:      contents,
		Content:       content,
		Timestamp:     now.UnixMilli(),
		SourceApp:     source,
	}, true
}

// RefineTextFormat picks a more specific format for plain text by looking
// at its content.
func RefineTextFormat(text string) string {
	switch {
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		return category.FormatURIList
	case strings.HasPrefix(text, "data:image/"):
		return category.FormatPNG
	case strings.HasPrefix(text, "data:"):
		return "application/octet-stream"
	case strings.Contains(text, "<html") || strings.Contains(text, "</html>"):
		return category.FormatHTML
	case strings.HasPrefix(text, `{\rtf`):
		return category.FormatRTF
	case strings.HasPrefix(text, "/") || strings.HasPrefix(text, `C:\`) || strings.Contains(text, `\`):
		return category.FormatFilePath
	default:
		return category.FormatPlain
	}
}

func encode(it clip.Item) string {
	if strings.HasPrefix(it.MIME, "image/") {
		return "data:" + it.MIME + ";base64," + base64.StdEncoding.EncodeToString(it.Data)
	}
	return string(it.Data)
}

func htmlText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}
