package grpcservice

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc"

	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/message"
	"go.klb.dev/clipone/internal/monitor"
)

// SourceHeader carries the caller's source name in request metadata.
const SourceHeader = "x-clipone-source"

// Credentials attaches the bearer token and source name to every call.
type Credentials struct {
	Token  string
	Source string
}

func (c Credentials) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.Token != "" {
		md["authorization"] = "Bearer " + c.Token
	}
	if c.Source != "" {
		md[SourceHeader] = c.Source
	}
	return md, nil
}

func (c Credentials) RequireTransportSecurity() bool { return false }

// Client talks to a capture daemon. It satisfies monitor.Commander,
// monitor.Subscriber, history.Fetcher and actions.Host.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, FullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) Status(ctx context.Context) (*message.StatusResponse, error) {
	out := new(message.StatusResponse)
	if err := c.invoke(ctx, "Status", &message.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StartCapture(ctx context.Context) error {
	return c.invoke(ctx, "StartCapture", &message.Empty{}, new(message.StatusResponse))
}

func (c *Client) StopCapture(ctx context.Context) error {
	return c.invoke(ctx, "StopCapture", &message.Empty{}, new(message.StatusResponse))
}

// QueryActive asks the daemon whether its capture loop is running.
func (c *Client) QueryActive(ctx context.Context) (bool, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Active, nil
}

func (c *Client) WriteSystemClipboard(ctx context.Context, text string) error {
	return c.invoke(ctx, "WriteClipboard", &message.WriteRequest{Text: text}, new(message.Empty))
}

func (c *Client) OpenExternalURL(ctx context.Context, url string) error {
	return c.invoke(ctx, "OpenURL", &message.OpenURLRequest{URL: url}, new(message.Empty))
}

func (c *Client) FetchHistory(ctx context.Context, limit int) ([]entry.Entry, error) {
	out := new(message.HistoryResponse)
	if err := c.invoke(ctx, "History", &message.HistoryRequest{Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// SearchHistory returns up to limit entries containing query, newest first.
func (c *Client) SearchHistory(ctx context.Context, query string, limit int) ([]entry.Entry, error) {
	out := new(message.HistoryResponse)
	if err := c.invoke(ctx, "Search", &message.SearchRequest{Query: query, Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	out := new(message.FavoriteResponse)
	if err := c.invoke(ctx, "ToggleFavorite", &message.IDRequest{ID: id}, out); err != nil {
		return false, err
	}
	return out.Favorite, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.invoke(ctx, "Delete", &message.IDRequest{ID: id}, new(message.Empty))
}

// ClearHistory deletes every stored entry and returns how many were removed.
func (c *Client) ClearHistory(ctx context.Context) (int64, error) {
	out := new(message.ClearResponse)
	if err := c.invoke(ctx, "Clear", &message.Empty{}, out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// Subscribe opens a Watch stream. The stream outlives ctx's deadline but
// not its values; it ends when the subscription is closed or the daemon
// goes away.
func (c *Client) Subscribe(ctx context.Context) (monitor.Subscription, error) {
	return c.Watch(ctx, false)
}

// Watch opens a Watch stream, optionally replaying the latest entry first.
func (c *Client) Watch(ctx context.Context, backlog bool) (*Subscription, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st, err := c.conn.NewStream(sctx, &ServiceDesc.Streams[0], FullMethod("Watch"), grpc.CallContentSubtype(CodecName))
	if err != nil {
		cancel()
		return nil, err
	}
	stream := &grpc.GenericClientStream[message.WatchRequest, entry.Entry]{ClientStream: st}
	if err := stream.Send(&message.WatchRequest{Backlog: backlog}); err != nil {
		cancel()
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, err
	}

	s := &Subscription{ch: make(chan entry.Entry, 16), cancel: cancel}
	go s.recv(sctx, stream)
	return s, nil
}

// Subscription is a client-side Watch stream.
type Subscription struct {
	ch     chan entry.Entry
	cancel context.CancelFunc
	once   sync.Once
	mu     sync.Mutex
	err    error
}

func (s *Subscription) Entries() <-chan entry.Entry { return s.ch }

// Close ends the stream. The entries channel closes shortly after.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Err returns the error that ended the stream, if any. A stream the daemon
// closed cleanly and one ended by Close report nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) recv(ctx context.Context, stream grpc.ServerStreamingClient[entry.Entry]) {
	defer close(s.ch)
	for {
		e, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}
		select {
		case s.ch <- *e:
		case <-ctx.Done():
			return
		}
	}
}
