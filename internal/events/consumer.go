package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dispatchTimeout = 10 * time.Second

// Dispatcher is the notification service as seen by the event consumer.
type Dispatcher interface {
	SendRealtimeNotification(ctx context.Context, userID int64, notificationType models.NotificationType, title, content string, data any) error
	DisplayName(ctx context.Context, userID int64) string
	ValidateUser(ctx context.Context, userID int64) bool
}

// UserCache drops cached profiles when the account service reports a change.
type UserCache interface {
	Invalidate(ctx context.Context, userID int64) error
}

// ErrInvalidReceiver is returned when an event targets an unknown or inactive user.
var ErrInvalidReceiver = errors.New("receiver is not an active user")

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     MessageReader
	dispatcher Dispatcher
	users      UserCache
	logger     *zap.Logger
}

// NewKafkaReader builds a consumer-group reader for the chat events topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
}

// NewConsumer builds a consumer. users may be nil when profiles are not cached.
func NewConsumer(reader MessageReader, dispatcher Dispatcher, users UserCache, logger *zap.Logger) *Consumer {
	return &Consumer{reader: reader, dispatcher: dispatcher, users: users, logger: logger}
}

// Run consumes until ctx is cancelled. Each message is committed once it has
// been dispatched; malformed messages are logged and committed so they never
// block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Chat event consumer started")
	defer c.logger.Info("Chat event consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch chat event: %w", err)
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to commit chat event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	event, err := ParseChatEvent(msg.Value)
	if err != nil {
		eventsConsumed.WithLabelValues("unknown", "malformed").Inc()
		c.logger.Warn("Skipping malformed chat event",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}

	dctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if err := c.Dispatch(dctx, event); err != nil {
		if errors.Is(err, ErrInvalidReceiver) {
			eventsConsumed.WithLabelValues(event.Type, "skipped").Inc()
			c.logger.Warn("Skipping chat event for invalid receiver",
				zap.String("type", event.Type),
				zap.Int64("receiver_id", event.ReceiverID),
				zap.Int64("offset", msg.Offset))
			return
		}
		eventsConsumed.WithLabelValues(event.Type, "failed").Inc()
		c.logger.Error("Failed to dispatch chat event",
			zap.String("type", event.Type),
			zap.Int64("receiver_id", event.ReceiverID),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}
	eventsConsumed.WithLabelValues(event.Type, "dispatched").Inc()
}

// Dispatch turns one chat event into a notification for its receiver, or
// into a cache invalidation for user.updated.
func (c *Consumer) Dispatch(ctx context.Context, event *ChatEvent) error {
	if event.Type == TypeUserUpdated {
		if c.users == nil {
			return nil
		}
		return c.users.Invalidate(ctx, event.UserID)
	}

	if !c.dispatcher.ValidateUser(ctx, event.ReceiverID) {
		return ErrInvalidReceiver
	}

	name := c.dispatcher.DisplayName(ctx, event.SenderID)
	if name == "" {
		name = fmt.Sprintf("user %d", event.SenderID)
	}

	switch event.Type {
	case TypeMessageCreated:
		return c.dispatcher.SendRealtimeNotification(ctx, event.ReceiverID, models.TypeMessage,
			"New message from "+name,
			event.Content,
			&models.PrivateMessageData{SenderID: event.SenderID, SenderName: name, Message: event.Content})

	case TypeFriendRequested:
		return c.dispatcher.SendRealtimeNotification(ctx, event.ReceiverID, models.TypeFriendRequest,
			"Friend request from "+name,
			name+" wants to add you as a friend",
			map[string]int64{"requester_id": event.SenderID})

	case TypeFriendAccepted:
		return c.dispatcher.SendRealtimeNotification(ctx, event.ReceiverID, models.TypeFriendAccepted,
			"Your friend request was accepted",
			name+" accepted your friend request",
			map[string]int64{"friend_id": event.SenderID})
	}
	return errors.New("unhandled chat event type " + event.Type)
}
