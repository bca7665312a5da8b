package alerts

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "downtime.alerts.v1.AlertService"

// Method names.
const (
	methodListAlerts        = "ListAlerts"
	methodMarkAsRead        = "MarkAsRead"
	methodMarkAllAsRead     = "MarkAllAsRead"
	methodDismissAlert      = "DismissAlert"
	methodClearDismissed    = "ClearDismissed"
	methodCreateAlert       = "CreateAlert"
	methodUpdateDeclaration = "UpdateDeclaration"
	methodGetStatistics     = "GetStatistics"
	methodGetStatus         = "GetStatus"
	methodRefresh           = "Refresh"
	methodGetPreferences    = "GetPreferences"
	methodUpdatePreferences = "UpdatePreferences"
	methodWatchAlerts       = "WatchAlerts"
	methodPushSubscribe     = "PushSubscribe"
	methodPushUnsubscribe   = "PushUnsubscribe"
	methodPushTest          = "PushTest"
)

// AlertServiceServer is the server API of the control surface.
type AlertServiceServer interface {
	ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkAsRead(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)
	MarkAllAsRead(ctx context.Context, req *emptypb.Empty) (*wrapperspb.Int32Value, error)
	DismissAlert(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)
	ClearDismissed(ctx context.Context, req *emptypb.Empty) (*wrapperspb.Int32Value, error)
	CreateAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateDeclaration(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int32Value, error)
	GetStatistics(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Refresh(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
	GetPreferences(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	UpdatePreferences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WatchAlerts(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
	PushSubscribe(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	PushUnsubscribe(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	PushTest(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
}

// RegisterAlertServiceServer registers srv on registrar.
func RegisterAlertServiceServer(registrar grpc.ServiceRegistrar, srv AlertServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the control surface for grpc.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodListAlerts, AlertServiceServer.ListAlerts),
		unary(methodMarkAsRead, AlertServiceServer.MarkAsRead),
		unary(methodMarkAllAsRead, AlertServiceServer.MarkAllAsRead),
		unary(methodDismissAlert, AlertServiceServer.DismissAlert),
		unary(methodClearDismissed, AlertServiceServer.ClearDismissed),
		unary(methodCreateAlert, AlertServiceServer.CreateAlert),
		unary(methodUpdateDeclaration, AlertServiceServer.UpdateDeclaration),
		unary(methodGetStatistics, AlertServiceServer.GetStatistics),
		unary(methodGetStatus, AlertServiceServer.GetStatus),
		unary(methodRefresh, AlertServiceServer.Refresh),
		unary(methodGetPreferences, AlertServiceServer.GetPreferences),
		unary(methodUpdatePreferences, AlertServiceServer.UpdatePreferences),
		unary(methodPushSubscribe, AlertServiceServer.PushSubscribe),
		unary(methodPushUnsubscribe, AlertServiceServer.PushUnsubscribe),
		unary(methodPushTest, AlertServiceServer.PushTest),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodWatchAlerts,
			Handler:       watchAlertsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "downtime/alerts/v1/alerts.proto",
}

// fullMethod returns the gRPC path of a method.
func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the descriptor of a unary method.
func unary[Req, Resp any](
	method string,
	call func(AlertServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(AlertServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}

			handler := func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(*Req)
				return call(server, ctx, typed)
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchAlertsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(AlertServiceServer)

	return server.WatchAlerts(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
