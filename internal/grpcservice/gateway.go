package grpcservice

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipone/internal/message"
)

// NewGateway returns an HTTP/JSON mux exposing the read-only routes:
//
//	GET /v1/status
//	GET /v1/history?limit=N
func NewGateway(s *Service) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux()
	routes := map[string]gwruntime.HandlerFunc{
		"/v1/status": handle(mux, func(ctx context.Context, _ *http.Request) (*message.StatusResponse, error) {
			return s.Status(ctx, &message.Empty{})
		}),
		"/v1/history": handle(mux, func(ctx context.Context, r *http.Request) (*message.HistoryResponse, error) {
			req := &message.HistoryRequest{}
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "limit: %v", err)
				}
				req.Limit = n
			}
			return s.History(ctx, req)
		}),
	}
	for path, h := range routes {
		if err := mux.HandlePath(http.MethodGet, path, h); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func handle[Res any](mux *gwruntime.ServeMux, call func(context.Context, *http.Request) (*Res, error)) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		md := metadata.Pairs(SourceHeader, r.RemoteAddr)
		if auth := r.Header.Get("Authorization"); auth != "" {
			md.Set("authorization", auth)
		}
		ctx := metadata.NewIncomingContext(r.Context(), md)
		_, outbound := gwruntime.MarshalerForRequest(mux, r)

		resp, err := call(ctx, r)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}
		buf, err := outbound.Marshal(resp)
		if err != nil {
			gwruntime.HTTPError(ctx, mux, outbound, w, r, status.Error(codes.Internal, err.Error()))
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(resp))
		if _, err := w.Write(buf); err != nil {
			slog.Debug("gateway write failed", "path", r.URL.Path, "err", err)
		}
	}
}
