package grpcservice

import (
	"context"

	"google.golang.org/grpc"

	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/message"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "clipone.v1.CaptureService"

// CaptureServer is the server API for the capture service.
type CaptureServer interface {
	StartCapture(context.Context, *message.Empty) (*message.StatusResponse, error)
	StopCapture(context.Context, *message.Empty) (*message.StatusResponse, error)
	Status(context.Context, *message.Empty) (*message.StatusResponse, error)
	WriteClipboard(context.Context, *message.WriteRequest) (*message.Empty, error)
	OpenURL(context.Context, *message.OpenURLRequest) (*message.Empty, error)
	History(context.Context, *message.HistoryRequest) (*message.HistoryResponse, error)
	Search(context.Context, *message.SearchRequest) (*message.HistoryResponse, error)
	ToggleFavorite(context.Context, *message.IDRequest) (*message.FavoriteResponse, error)
	Delete(context.Context, *message.IDRequest) (*message.Empty, error)
	Clear(context.Context, *message.Empty) (*message.ClearResponse, error)
	Watch(*message.WatchRequest, grpc.ServerStreamingServer[entry.Entry]) error
}

// ServiceDesc describes the capture service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaptureServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartCapture", CaptureServer.StartCapture),
		unary("StopCapture", CaptureServer.StopCapture),
		unary("Status", CaptureServer.Status),
		unary("WriteClipboard", CaptureServer.WriteClipboard),
		unary("OpenURL", CaptureServer.OpenURL),
		unary("History", CaptureServer.History),
		unary("Search", CaptureServer.Search),
		unary("ToggleFavorite", CaptureServer.ToggleFavorite),
		unary("Delete", CaptureServer.Delete),
		unary("Clear", CaptureServer.Clear),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "clipone/v1/capture.proto",
}

// FullMethod returns the wire path of a capture service method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// RegisterCaptureServer registers srv on s.
func RegisterCaptureServer(s grpc.ServiceRegistrar, srv CaptureServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Res any](method string, call func(CaptureServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaptureServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CaptureServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	m := new(message.WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CaptureServer).Watch(m, &grpc.GenericServerStream[message.WatchRequest, entry.Entry]{ServerStream: stream})
}
