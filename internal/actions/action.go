package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.klb.dev/clipone/internal/category"
)

var (
	// ErrRefused is returned when a descriptor asks for shell or script
	// execution. Those kinds are never run.
	ErrRefused = errors.New("command execution is disabled")

	// ErrUnknownAction is returned for descriptors with an unrecognised kind
	// and for lookups of ids that are not registered.
	ErrUnknownAction = errors.New("unknown action")
)

// Host is the part of the command boundary that actions may call.
type Host interface {
	WriteSystemClipboard(ctx context.Context, text string) error
	OpenExternalURL(ctx context.Context, url string) error
}

// Result describes what an executed action did.
type Result struct {
	Copied  string // text written to the system clipboard
	Opened  string // URL handed to the external opener
	Message string // informational output for the host
}

// Action is an adapted descriptor bound to a Host.
type Action struct {
	desc Descriptor
	host Host
}

// Adapt binds d to host.
func Adapt(d Descriptor, host Host) *Action {
	return &Action{desc: d, host: host}
}

// AdaptAll adapts every enabled descriptor, keeping input order.
func AdaptAll(ds []Descriptor, host Host) []*Action {
	out := make([]*Action, 0, len(ds))
	for _, d := range ds {
		if !d.Enabled {
			continue
		}
		out = append(out, Adapt(d, host))
	}
	return out
}

func (a *Action) ID() string             { return a.desc.ID }
func (a *Action) Label() string          { return a.desc.Label }
func (a *Action) Icon() string           { return a.desc.Icon }
func (a *Action) Keywords() []string     { return a.desc.Keywords }
func (a *Action) Priority() int          { return a.desc.SortKey() }
func (a *Action) Descriptor() Descriptor { return a.desc }

// Matches reports whether the action applies to content shown in format.
// An action that allows URLs also matches text that looks like a link.
func (a *Action) Matches(content, format string) bool {
	if a.desc.Allows(category.Classify(format)) {
		return true
	}
	return a.desc.Allows(category.URL) && category.IsURLContent(content, format)
}

// Execute runs the action against content. Disabled actions do nothing.
func (a *Action) Execute(ctx context.Context, content string) (Result, error) {
	if !a.desc.Enabled {
		slog.Debug("skipping disabled action", "action", a.desc.ID)
		return Result{}, nil
	}

	switch a.desc.Kind {
	case KindURL:
		target := Expand(a.desc.Command, content)
		if err := a.host.OpenExternalURL(ctx, target); err != nil {
			return Result{}, fmt.Errorf("open %s: %w", a.desc.ID, err)
		}
		return Result{Opened: target}, nil

	case KindShell, KindScript:
		slog.Warn("refusing to execute action",
			"action", a.desc.ID,
			"kind", a.desc.Kind,
		)
		return Result{}, fmt.Errorf("%s (%s): %w", a.desc.ID, a.desc.Kind, ErrRefused)

	case KindBuiltin:
		return runBuiltin(ctx, a.host, a.desc.ID, content)

	default:
		return Result{}, fmt.Errorf("%w: kind %q", ErrUnknownAction, a.desc.Kind)
	}
}

// Expand substitutes every placeholder in template with content encoded as
// a URI component.
func Expand(template, content string) string {
	return strings.ReplaceAll(template, Placeholder, EncodeComponent(content))
}

// EncodeComponent percent-encodes s the way encodeURIComponent does: every
// UTF-8 byte is escaped except ASCII letters, digits and -_.!~*'().
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if componentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func componentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
