package tlsconf

import (
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshake(t *testing.T, serverPass, clientPass string) error {
	t.Helper()
	srvCfg, _, err := ServerConfig(serverPass)
	require.NoError(t, err)
	cliCfg, err := ClientConfig(clientPass)
	require.NoError(t, err)

	a, b := net.Pipe()
	defer a.Close()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- tls.Server(a, srvCfg).Handshake()
		a.Close()
	}()
	err = tls.Client(b, cliCfg).Handshake()
	// A rejecting client leaves the server blocked on the pipe until b closes.
	b.Close()
	select {
	case <-srvErr:
	case <-time.After(5 * time.Second):
		t.Fatal("server handshake did not return")
	}
	return err
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1, err := deriveKey("token")
	require.NoError(t, err)
	k2, err := deriveKey("token")
	require.NoError(t, err)
	k3, err := deriveKey("other")
	require.NoError(t, err)

	assert.Equal(t, 0, k1.D.Cmp(k2.D))
	assert.NotEqual(t, 0, k1.D.Cmp(k3.D))
	assert.True(t, k1.Curve.IsOnCurve(k1.X, k1.Y))
}

func TestHandshakeSamePassphrase(t *testing.T) {
	assert.NoError(t, handshake(t, DefaultPassphrase, DefaultPassphrase))
}

func TestHandshakeWrongPassphrase(t *testing.T) {
	err := handshake(t, "right", "wrong")
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestServerConfigOffersBothProtocols(t *testing.T) {
	cfg, creds, err := ServerConfig("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"h2", "http/1.1"}, cfg.NextProtos)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}
