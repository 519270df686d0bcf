package actions

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go.klb.dev/clipone/internal/category"
)

// Built-in action ids.
const (
	BuiltinCopy         = "copy"
	BuiltinOpenURL      = "open-url"
	BuiltinUppercase    = "uppercase"
	BuiltinLowercase    = "lowercase"
	BuiltinBase64Encode = "base64-encode"
	BuiltinBase64Decode = "base64-decode"
	BuiltinReverse      = "reverse-text"
	BuiltinStripHTML    = "strip-html"
	BuiltinWordCount    = "word-count"
)

type builtinFunc func(ctx context.Context, host Host, content string) (Result, error)

// builtins is the closed set of handlers a built-in descriptor can reach.
var builtins = map[string]builtinFunc{
	BuiltinCopy:    copyText,
	BuiltinOpenURL: openURL,
	BuiltinUppercase: transform(func(s string) (string, error) {
		return cases.Upper(language.Und).String(s), nil
	}),
	BuiltinLowercase: transform(func(s string) (string, error) {
		return cases.Lower(language.Und).String(s), nil
	}),
	BuiltinBase64Encode: transform(func(s string) (string, error) {
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	}),
	BuiltinBase64Decode: transform(func(s string) (string, error) {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return "", fmt.Errorf("invalid base64: %w", err)
		}
		return string(b), nil
	}),
	BuiltinReverse: transform(func(s string) (string, error) {
		r := []rune(s)
		slices.Reverse(r)
		return string(r), nil
	}),
	BuiltinStripHTML: transform(htmlToText),
	BuiltinWordCount: wordCount,
}

// IsBuiltin reports whether id has a built-in handler.
func IsBuiltin(id string) bool {
	_, ok := builtins[id]
	return ok
}

func runBuiltin(ctx context.Context, host Host, id, content string) (Result, error) {
	fn, ok := builtins[id]
	if !ok {
		slog.Info("built-in action has no handler", "action", id)
		return Result{}, nil
	}
	return fn(ctx, host, content)
}

func copyText(ctx context.Context, host Host, content string) (Result, error) {
	if err := host.WriteSystemClipboard(ctx, content); err != nil {
		return Result{}, fmt.Errorf("write clipboard: %w", err)
	}
	return Result{Copied: content}, nil
}

func openURL(ctx context.Context, host Host, content string) (Result, error) {
	if !category.IsURL(content) {
		return Result{Message: "content is not an http(s) URL"}, nil
	}
	target := strings.TrimSpace(content)
	if err := host.OpenExternalURL(ctx, target); err != nil {
		return Result{}, fmt.Errorf("open url: %w", err)
	}
	return Result{Opened: target}, nil
}

// transform wraps a pure text function into a handler that copies its
// output to the system clipboard.
func transform(fn func(string) (string, error)) builtinFunc {
	return func(ctx context.Context, host Host, content string) (Result, error) {
		out, err := fn(content)
		if err != nil {
			return Result{}, err
		}
		return copyText(ctx, host, out)
	}
}

func htmlToText(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func wordCount(_ context.Context, _ Host, content string) (Result, error) {
	return Result{
		Message: fmt.Sprintf("%d characters, %d words",
			utf8.RuneCountInString(content), len(strings.Fields(content))),
	}, nil
}
