// Package opener hands URLs to the system's default handler.
package opener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/pkg/browser"
)

// ErrScheme is returned for URLs whose scheme is not allowed.
var ErrScheme = errors.New("opener: unsupported url scheme")

// Schemes lists the URL schemes Open accepts.
var Schemes = []string{"http", "https", "mailto"}

// Opener opens URLs with the desktop's registered handler.
type Opener struct {
	open func(string) error
}

// New returns an Opener backed by the system browser.
func New() *Opener {
	return &Opener{open: browser.OpenURL}
}

// Check parses raw and verifies its scheme.
func Check(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("opener: %w", err)
	}
	if !slices.Contains(Schemes, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w %q", ErrScheme, u.Scheme)
	}
	if u.Scheme != "mailto" && u.Host == "" {
		return nil, fmt.Errorf("opener: %q has no host", raw)
	}
	return u, nil
}

// Open validates raw and hands it to the system handler.
func (o *Opener) Open(ctx context.Context, raw string) error {
	u, err := Check(raw)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("opening url", "scheme", u.Scheme, "host", u.Host)
	if err := o.open(u.String()); err != nil {
		return fmt.Errorf("opener: %w", err)
	}
	return nil
}
