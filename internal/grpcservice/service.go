// Package grpcservice implements the CaptureService gRPC server and its
// client.
package grpcservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipone/internal/capture"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/hub"
	"go.klb.dev/clipone/internal/message"
	"go.klb.dev/clipone/internal/store"
)

// Capture is the capture loop the service drives.
type Capture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() capture.Status
	WriteClipboard(ctx context.Context, text string) error
}

// Store is the history the service reads and edits.
type Store interface {
	FetchHistory(ctx context.Context, limit int) ([]entry.Entry, error)
	Search(ctx context.Context, query string, limit int) ([]entry.Entry, error)
	Count(ctx context.Context) (int, error)
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
}

// DefaultSearchLimit caps search results when the request carries no limit.
const DefaultSearchLimit = 50

// Opener hands a URL to the system's default handler.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Service implements CaptureServer.
type Service struct {
	capture Capture
	store   Store
	h       *hub.Hub
	opener  Opener
	token   string // empty = no auth
	health  *health.Server

	closeOnce sync.Once
	done      chan struct{}
}

// New returns a Service. token may be empty to disable auth.
func New(c Capture, st Store, h *hub.Hub, op Opener, token string) *Service {
	s := &Service{
		capture: c,
		store:   st,
		h:       h,
		opener:  op,
		token:   token,
		health:  health.NewServer(),
		done:    make(chan struct{}),
	}
	s.syncHealth()
	return s
}

// Close ends every open Watch stream and marks the health service as
// shutting down. Call it before grpc.Server.GracefulStop, which otherwise
// waits for streams that never end on their own. Safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
	})
}

// Health is the health server reporting SERVING while capture is active.
func (s *Service) Health() *health.Server { return s.health }

// Register adds the capture and health services to srv.
func (s *Service) Register(srv grpc.ServiceRegistrar) {
	RegisterCaptureServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
}

func (s *Service) StartCapture(ctx context.Context, _ *message.Empty) (*message.StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.capture.Start(ctx); err != nil {
		return nil, status.Errorf(codes.Internal, "start capture: %v", err)
	}
	s.syncHealth()
	slog.Info("capture start requested", "peer", addrFromCtx(ctx), "source", sourceFromCtx(ctx))
	return s.status(ctx), nil
}

func (s *Service) StopCapture(ctx context.Context, _ *message.Empty) (*message.StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.capture.Stop(ctx); err != nil {
		return nil, status.Errorf(codes.Internal, "stop capture: %v", err)
	}
	s.syncHealth()
	slog.Info("capture stop requested", "peer", addrFromCtx(ctx), "source", sourceFromCtx(ctx))
	return s.status(ctx), nil
}

func (s *Service) Status(ctx context.Context, _ *message.Empty) (*message.StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return s.status(ctx), nil
}

func (s *Service) WriteClipboard(ctx context.Context, req *message.WriteRequest) (*message.Empty, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.capture.WriteClipboard(ctx, req.Text); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return &message.Empty{}, nil
}

func (s *Service) OpenURL(ctx context.Context, req *message.OpenURLRequest) (*message.Empty, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, status.Error(codes.InvalidArgument, "url is required")
	}
	if err := s.opener.Open(ctx, req.URL); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return &message.Empty{}, nil
}

func (s *Service) History(ctx context.Context, req *message.HistoryRequest) (*message.HistoryResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	list, err := s.store.FetchHistory(ctx, req.Limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "fetch history: %v", err)
	}
	if list == nil {
		list = []entry.Entry{}
	}
	return &message.HistoryResponse{Entries: list}, nil
}

func (s *Service) Search(ctx context.Context, req *message.SearchRequest) (*message.HistoryResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	list, err := s.store.Search(ctx, req.Query, limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "search history: %v", err)
	}
	if list == nil {
		list = []entry.Entry{}
	}
	return &message.HistoryResponse{Entries: list}, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, req *message.IDRequest) (*message.FavoriteResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	fav, err := s.store.ToggleFavorite(ctx, req.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return &message.FavoriteResponse{Favorite: fav}, nil
}

func (s *Service) Delete(ctx context.Context, req *message.IDRequest) (*message.Empty, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, req.ID); err != nil {
		return nil, storeError(err)
	}
	return &message.Empty{}, nil
}

func (s *Service) Clear(ctx context.Context, _ *message.Empty) (*message.ClearResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	n, err := s.store.Clear(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "clear history: %v", err)
	}
	slog.Info("history cleared", "removed", n, "peer", addrFromCtx(ctx), "source", sourceFromCtx(ctx))
	return &message.ClearResponse{Removed: n}, nil
}

// Watch streams every captured entry until the client goes away or the
// service is closed.
func (s *Service) Watch(req *message.WatchRequest, stream grpc.ServerStreamingServer[entry.Entry]) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	sub := s.h.Subscribe(hub.DefaultBuffer)
	defer sub.Close()

	slog.Info("watch started", "peer", addrFromCtx(ctx), "source", sourceFromCtx(ctx), "subscription", sub.ID())

	if req.Backlog {
		if e, ok := s.h.Latest(); ok {
			if err := stream.Send(&e); err != nil {
				return err
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case e, ok := <-sub.Entries():
			if !ok {
				return nil
			}
			if err := stream.Send(&e); err != nil {
				return err
			}
		}
	}
}

func (s *Service) status(ctx context.Context) *message.StatusResponse {
	st := s.capture.Status()
	n, err := s.store.Count(ctx)
	if err != nil {
		slog.Warn("count stored items failed", "err", err)
	}
	return &message.StatusResponse{
		Active:      st.Active,
		Backend:     st.Backend,
		Source:      st.Source,
		Subscribers: s.h.Subscribers(),
		StoredItems: n,
		Since:       st.Since,
	}
}

func (s *Service) syncHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.capture.Status().Active {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	const prefix = "Bearer "
	tok := vals[0]
	if len(tok) > len(prefix) && tok[:len(prefix)] == prefix {
		tok = tok[len(prefix):]
	}
	if tok != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func sourceFromCtx(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(SourceHeader); len(vals) > 0 {
			return vals[0]
		}
	}
	return addrFromCtx(ctx)
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
