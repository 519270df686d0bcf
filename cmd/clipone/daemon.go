package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/clipone/internal/capture"
	"go.klb.dev/clipone/internal/clip"
	"go.klb.dev/clipone/internal/config"
	"go.klb.dev/clipone/internal/grpcservice"
	"go.klb.dev/clipone/internal/hub"
	"go.klb.dev/clipone/internal/ipc"
	"go.klb.dev/clipone/internal/opener"
	"go.klb.dev/clipone/internal/store"
	"go.klb.dev/clipone/internal/tlsconf"
)

const (
	cleanupEvery  = time.Hour
	shutdownGrace = 5 * time.Second
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the capture daemon",
		Long: `Starts the clipone daemon: it watches the system clipboard, stores every new
entry in the history database and serves the capture API on the local IPC
socket. With --listen it also serves gRPC and the HTTP routes /v1/status and
/v1/history over TLS derived from --token.

Config file search order:
  /etc/clipone/clipone.toml
  $HOME/.config/clipone/clipone.toml
  path supplied via --config

Precedence (lowest to highest): defaults, config file, CLIPONE_* env vars, flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String(config.KeyDB, store.DefaultPath(), "history database path")
	f.Int(config.KeyMaxItems, config.DefaultMaxItems, "non-favorite entries to keep (0 = all)")
	f.String(config.KeyListen, "", "optional TCP listen address, e.g. 127.0.0.1:8753")
	f.String(config.KeyToken, "", "shared secret for the TCP listener (empty = no auth)")
	f.String(config.KeySource, defaultSource(), "name recorded as the source of captured entries")
	f.Bool(config.KeyAutostart, true, "start capturing immediately")
	f.Bool(config.KeyHeadless, false, "use an in-memory clipboard instead of the system one")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	defer setupLogging(v).Close()

	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	st, err := store.Open(settings.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	var backend clip.Backend
	if settings.Headless {
		backend = clip.NewMemory()
	} else {
		backend = clip.New()
	}

	h := hub.New()
	cs := capture.New(backend, st, h, settings.Source)
	defer cs.Close()

	if settings.Autostart {
		if err := cs.Start(ctx); err != nil {
			return fmt.Errorf("start capture: %w", err)
		}
	}

	svc := grpcservice.New(cs, st, h, opener.New(), settings.Token)
	srv := grpc.NewServer()
	svc.Register(srv)

	slog.Info("clipone daemon starting",
		"version", Version,
		"backend", backend.Name(),
		"db", settings.DB,
		"listen", settings.Listen,
		"auth", settings.Token != "",
	)

	ipcLn, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("ipc listen: %w", err)
	}
	slog.Info("IPC socket listening", "path", ipc.SocketPath())
	go func() {
		if err := srv.Serve(ipcLn); err != nil {
			slog.Error("ipc serve failed", "err", err)
		}
	}()

	if settings.Listen != "" {
		if err := serveTCP(settings.Listen, settings.Token, srv, svc); err != nil {
			srv.Stop()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, st, settings.MaxItems)

	<-ctx.Done()
	slog.Info("shutting down")
	svc.Close()
	stopServer(srv, shutdownGrace)
	return nil
}

// stopServer drains in-flight calls, forcing the server down after grace.
func stopServer(srv *grpc.Server, grace time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		slog.Warn("graceful stop timed out, closing connections", "grace", grace)
		srv.Stop()
		<-done
	}
}

// serveTCP multiplexes one TLS listener into gRPC and the HTTP gateway.
func serveTCP(addr, token string, srv *grpc.Server, svc *grpcservice.Service) error {
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	tlsCfg, _, err := tlsconf.ServerConfig(passphrase)
	if err != nil {
		return err
	}
	mux, err := grpcservice.NewGateway(svc)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	slog.Info("listening", "addr", ln.Addr())

	m := cmux.New(tls.NewListener(ln, tlsCfg))
	grpcLn := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpLn := m.Match(cmux.Any())

	go func() {
		if err := srv.Serve(grpcLn); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("grpc serve failed", "err", err)
		}
	}()
	go func() {
		if err := serveHTTPGateway(httpLn, mux); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("http gateway failed", "err", err)
		}
	}()
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("cmux serve failed", "err", err)
		}
	}()
	return nil
}

// serveHTTPGateway runs an HTTP/1.1 server on ln serving the grpc-gateway mux.
func serveHTTPGateway(ln net.Listener, mux *gwruntime.ServeMux) error {
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv.Serve(ln)
}

func cleanupLoop(ctx context.Context, st *store.Store, keep int) {
	if keep <= 0 {
		return
	}
	t := time.NewTicker(cleanupEvery)
	defer t.Stop()
	for {
		n, err := st.Cleanup(ctx, keep)
		switch {
		case err != nil && ctx.Err() == nil:
			slog.Warn("history cleanup failed", "err", err)
		case n > 0:
			slog.Info("history cleaned up", "removed", n, "kept", keep)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
