package grpcservice

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/clipone/internal/capture"
	"go.klb.dev/clipone/internal/clip"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/hub"
	"go.klb.dev/clipone/internal/message"
	"go.klb.dev/clipone/internal/store"
)

type fakeOpener struct{ opened []string }

func (f *fakeOpener) Open(_ context.Context, url string) error {
	if url == "bad" {
		return errors.New("unsupported scheme")
	}
	f.opened = append(f.opened, url)
	return nil
}

type fixture struct {
	svc    *Service
	mem    *clip.Memory
	st     *store.Store
	opener *fakeOpener
	srv    *grpc.Server
	conn   *grpc.ClientConn
	client *Client
}

func newFixture(t *testing.T, token string, creds Credentials) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mem := clip.NewMemory()
	h := hub.New()
	cs := capture.New(mem, st, h, "test")
	t.Cleanup(cs.Close)

	op := &fakeOpener{}
	svc := New(cs, st, h, op, token)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	svc.Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(creds),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{svc: svc, mem: mem, st: st, opener: op, srv: srv, conn: conn, client: NewClient(conn)}
}

func TestStartStopAndStatus(t *testing.T) {
	f := newFixture(t, "", Credentials{Source: "cli"})
	ctx := context.Background()

	active, err := f.client.QueryActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, f.client.StartCapture(ctx))
	st, err := f.client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, "memory", st.Backend)
	assert.Equal(t, "test", st.Source)

	hc, err := healthpb.NewHealthClient(f.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	require.NoError(t, f.client.StopCapture(ctx))
	active, err = f.client.QueryActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestWatchDeliversCapturedEntries(t *testing.T) {
	f := newFixture(t, "", Credentials{})
	ctx := context.Background()

	sub, err := f.client.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.client.StartCapture(ctx))
	require.Eventually(t, func() bool { return f.svc.h.Subscribers() == 1 }, time.Second, time.Millisecond)

	f.mem.Set(clip.Text("pushed"))
	select {
	case e := <-sub.Entries():
		assert.Equal(t, "pushed", e.Content)
		assert.NotEmpty(t, e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry received")
	}

	list, err := f.client.FetchHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pushed", list[0].Content)

	require.NoError(t, sub.Close())
	select {
	case _, ok := <-sub.Entries():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestCloseEndsWatchBeforeGracefulStop(t *testing.T) {
	f := newFixture(t, "", Credentials{})

	sub, err := f.client.Watch(context.Background(), false)
	require.NoError(t, err)
	defer sub.Close()
	require.Eventually(t, func() bool { return f.svc.h.Subscribers() == 1 }, time.Second, time.Millisecond)

	f.svc.Close()
	f.svc.Close()

	stopped := make(chan struct{})
	go func() {
		f.srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("GracefulStop blocked on an open Watch stream")
	}

	select {
	case _, ok := <-sub.Entries():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client stream not closed")
	}
	assert.NoError(t, sub.Err())
	assert.Zero(t, f.svc.h.Subscribers())
}

func TestWriteClipboardAndOpenURL(t *testing.T) {
	f := newFixture(t, "", Credentials{})
	ctx := context.Background()

	require.NoError(t, f.client.WriteSystemClipboard(ctx, "copied"))
	items, err := f.mem.Read()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, clip.MIMEText, items[0].MIME)
	assert.Equal(t, "copied", string(items[0].Data))

	require.NoError(t, f.client.OpenExternalURL(ctx, "https://example.com"))
	assert.Equal(t, []string{"https://example.com"}, f.opener.opened)

	err = f.client.OpenExternalURL(ctx, "bad")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	err = f.client.OpenExternalURL(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestFavoriteAndDelete(t *testing.T) {
	f := newFixture(t, "", Credentials{})
	ctx := context.Background()
	saved, err := f.st.Save(ctx, entry.Entry{Content: "keep"})
	require.NoError(t, err)

	fav, err := f.client.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, f.client.Delete(ctx, saved.ID))
	err = f.client.Delete(ctx, saved.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = f.client.ToggleFavorite(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestSearchAndClear(t *testing.T) {
	f := newFixture(t, "", Credentials{})
	ctx := context.Background()
	for i, c := range []string{"alpha", "beta", "alphabet"} {
		_, err := f.st.Save(ctx, entry.Entry{Content: c, Timestamp: int64(i + 1)})
		require.NoError(t, err)
	}

	list, err := f.client.SearchHistory(ctx, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alphabet", list[0].Content)

	list, err = f.client.SearchHistory(ctx, "nothing", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.client.SearchHistory(ctx, "", 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	removed, err := f.client.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	st, err := f.client.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.StoredItems)
}

func TestAuth(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "secret", Credentials{Token: "wrong"})
	_, err := f.client.Status(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f = newFixture(t, "secret", Credentials{})
	_, err = f.client.Status(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f = newFixture(t, "secret", Credentials{Token: "secret"})
	_, err = f.client.Status(ctx)
	assert.NoError(t, err)
}

func TestCredentialsMetadata(t *testing.T) {
	md, err := Credentials{Token: "t", Source: "host"}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authorization": "Bearer t", SourceHeader: "host"}, md)

	md, err = Credentials{}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Empty(t, md)
}

func TestGateway(t *testing.T) {
	f := newFixture(t, "secret", Credentials{Token: "secret"})
	ctx := context.Background()
	_, err := f.st.Save(ctx, entry.Entry{Content: "one", Timestamp: 1})
	require.NoError(t, err)
	_, err = f.st.Save(ctx, entry.Entry{Content: "two", Timestamp: 2})
	require.NoError(t, err)

	mux, err := NewGateway(f.svc)
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	get := func(path, token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/v1/status", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get("/v1/status", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st message.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 2, st.StoredItems)

	resp = get("/v1/history?limit=1", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hist message.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "two", hist.Entries[0].Content)

	resp = get("/v1/history?limit=x", "secret")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCodecHandlesPlainAndProto(t *testing.T) {
	c := jsonCodec{}
	b, err := c.Marshal(&message.WriteRequest{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(b))

	var req message.WriteRequest
	require.NoError(t, c.Unmarshal(b, &req))
	assert.Equal(t, "hi", req.Text)

	b, err = c.Marshal(&healthpb.HealthCheckRequest{Service: "x"})
	require.NoError(t, err)
	var hc healthpb.HealthCheckRequest
	require.NoError(t, c.Unmarshal(b, &hc))
	assert.Equal(t, "x", hc.Service)
}
