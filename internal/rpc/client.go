package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed client for the notification service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.conn.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) SendNotification(ctx context.Context, in *SendNotificationRequest, opts ...grpc.CallOption) (*NotificationResponse, error) {
	out := new(NotificationResponse)
	if err := c.invoke(ctx, "SendNotification", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetNotifications(ctx context.Context, in *GetNotificationsRequest, opts ...grpc.CallOption) (*GetNotificationsResponse, error) {
	out := new(GetNotificationsResponse)
	if err := c.invoke(ctx, "GetNotifications", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkAsRead(ctx context.Context, in *MarkAsReadRequest, opts ...grpc.CallOption) (*NotificationResponse, error) {
	out := new(NotificationResponse)
	if err := c.invoke(ctx, "MarkAsRead", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUnreadCount(ctx context.Context, in *GetUnreadCountRequest, opts ...grpc.CallOption) (*UnreadCountResponse, error) {
	out := new(UnreadCountResponse)
	if err := c.invoke(ctx, "GetUnreadCount", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteNotification(ctx context.Context, in *DeleteNotificationRequest, opts ...grpc.CallOption) (*NotificationResponse, error) {
	out := new(NotificationResponse)
	if err := c.invoke(ctx, "DeleteNotification", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BroadcastMessage(ctx context.Context, in *BroadcastMessageRequest, opts ...grpc.CallOption) (*BroadcastResponse, error) {
	out := new(BroadcastResponse)
	if err := c.invoke(ctx, "BroadcastMessage", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
