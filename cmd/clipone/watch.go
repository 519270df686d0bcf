package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/config"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/history"
	"go.klb.dev/clipone/internal/monitor"
	"go.klb.dev/clipone/internal/session"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the clipboard and print entries as they arrive",
		Long: `Runs a foreground session: it starts capture on the daemon, prints each new
entry as the history is reconciled, and keeps the capture state in sync with
the daemon until interrupted. On exit it unsubscribes and stops capture.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}

	f := cmd.Flags()
	f.Int(config.KeyHistoryLimit, history.DefaultLimit, "entries kept in the foreground list")
	f.Duration(config.KeyReconcileInterval, monitor.DefaultInterval, "how often the capture state is checked against the daemon")
	addLoggingFlags(cmd)
	addClientFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	defer setupLogging(v).Close()

	out := cmd.OutOrStdout()
	p := &newestPrinter{w: out}
	s, closeConn, err := newSession(cmd, v, session.Options{OnChange: p.print})
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer s.Close(context.WithoutCancel(ctx))

	list := s.Entries()
	if err := printEntries(out, list); err != nil {
		return err
	}
	p.prime(list)
	if err := s.Start(ctx); err != nil {
		slog.Warn("capture did not start", "err", err)
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	st := s.Status()
	fmt.Fprintf(out, "monitoring %s\n", st.State)
	return nil
}

// newestPrinter prints the head of the list whenever a new entry reaches it.
// Nothing is printed until prime.
type newestPrinter struct {
	w io.Writer

	mu    sync.Mutex
	ready bool
	last  string
}

func (p *newestPrinter) prime(list []entry.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = true
	if len(list) > 0 {
		p.last = list[0].ID
	}
}

func (p *newestPrinter) print(list []entry.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready || len(list) == 0 || list[0].ID == p.last {
		return
	}
	p.last = list[0].ID
	e := list[0]
	fmt.Fprintf(p.w, "[%s] %s  %s\n", e.Category().Badge(), e.ID, oneLine(e.Preview(previewRunes)))
}
