// Package ipc provides the local channel the CLI and foreground sessions use
// to reach a running clipone daemon.
//
// The channel is gRPC over a Unix domain socket, or a named pipe on Windows,
// serving the same CaptureService as the optional TCP listener.
package ipc

import (
	"errors"
	"net"
	"os"
	"runtime"
)

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/clipone.sock, else $TMPDIR/clipone.sock
//   - Windows:       \\.\pipe\clipone
//
// $CLIPONE_SOCKET overrides the path on every platform except Windows.
func SocketPath() string {
	if s := os.Getenv("CLIPONE_SOCKET"); s != "" && runtime.GOOS != "windows" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the IPC
// socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial()
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the IPC socket path.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC socket.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath())
}

var errInUse = errors.New("daemon already running")
