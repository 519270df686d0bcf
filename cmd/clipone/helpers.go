package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/clipone/internal/grpcservice"
	"go.klb.dev/clipone/internal/ipc"
	"go.klb.dev/clipone/internal/tlsconf"
)

func getenv(key string) string  { return os.Getenv(key) }
func hostname() (string, error) { return os.Hostname() }

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	for _, env := range []string{
		"CLIPONE_SOURCE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"SERVICE_NAME",
		"HOSTNAME_FRIENDLY",
	} {
		if v := getenv(env); v != "" {
			return v
		}
	}
	h, err := hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// dialIPC returns a *grpc.ClientConn connected to the local IPC socket.
// The socket is owner-restricted, so only the source is attached.
func dialIPC(source string) (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"passthrough:///clipone",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return ipc.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(grpcservice.Credentials{Source: source}),
	)
}

// dialServer returns a TLS connection to a daemon's TCP listener after a
// short reachability check. token is used for both TLS key derivation and
// per-RPC auth.
func dialServer(addr, token, source string) (*grpc.ClientConn, error) {
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	creds, err := tlsconf.ClientCredentials(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(grpcservice.Credentials{Token: token, Source: source}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := grpcservice.NewClient(conn).Status(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", addr, err)
	}
	return conn, nil
}

// connect reaches the daemon through the IPC socket unless --server is set.
// It returns the connection and a description of the transport.
func connect(cmd *cobra.Command, v *viper.Viper) (*grpc.ClientConn, string, error) {
	source := v.GetString("source")

	if !cmd.Flags().Changed("server") && v.GetString("server") == "" {
		if !ipc.IsRunning() {
			return nil, "", fmt.Errorf("no clipone daemon on %s (run \"clipone daemon\" or pass --server)", ipc.SocketPath())
		}
		conn, err := dialIPC(source)
		if err != nil {
			return nil, "", fmt.Errorf("dial ipc: %w", err)
		}
		return conn, fmt.Sprintf("ipc (%s)", ipc.SocketPath()), nil
	}

	addr := v.GetString("server")
	conn, err := dialServer(addr, v.GetString("token"), source)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}
	return conn, fmt.Sprintf("tcp (%s)", addr), nil
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02")
}
