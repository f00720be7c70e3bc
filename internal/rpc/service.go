package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "chatnotify.NotificationService"

type NotificationServiceServer interface {
	SendNotification(context.Context, *SendNotificationRequest) (*NotificationResponse, error)
	GetNotifications(context.Context, *GetNotificationsRequest) (*GetNotificationsResponse, error)
	MarkAsRead(context.Context, *MarkAsReadRequest) (*NotificationResponse, error)
	GetUnreadCount(context.Context, *GetUnreadCountRequest) (*UnreadCountResponse, error)
	DeleteNotification(context.Context, *DeleteNotificationRequest) (*NotificationResponse, error)
	BroadcastMessage(context.Context, *BroadcastMessageRequest) (*BroadcastResponse, error)
}

// ServiceDesc is registered by RegisterNotificationServiceServer. Messages are
// plain structs so every call must use the json content-subtype.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendNotification", Handler: unaryHandler("SendNotification", NotificationServiceServer.SendNotification)},
		{MethodName: "GetNotifications", Handler: unaryHandler("GetNotifications", NotificationServiceServer.GetNotifications)},
		{MethodName: "MarkAsRead", Handler: unaryHandler("MarkAsRead", NotificationServiceServer.MarkAsRead)},
		{MethodName: "GetUnreadCount", Handler: unaryHandler("GetUnreadCount", NotificationServiceServer.GetUnreadCount)},
		{MethodName: "DeleteNotification", Handler: unaryHandler("DeleteNotification", NotificationServiceServer.DeleteNotification)},
		{MethodName: "BroadcastMessage", Handler: unaryHandler("BroadcastMessage", NotificationServiceServer.BroadcastMessage)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatnotify/notification.proto",
}

func RegisterNotificationServiceServer(s grpc.ServiceRegistrar, srv NotificationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(NotificationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotificationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NotificationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
