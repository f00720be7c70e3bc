package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dispatched struct {
	UserID  int64
	Type    models.NotificationType
	Title   string
	Content string
	Data    any
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []dispatched
	names    map[int64]string
	inactive map[int64]bool
	err      error
}

func (d *fakeDispatcher) SendRealtimeNotification(ctx context.Context, userID int64, nt models.NotificationType, title, content string, data any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatched{userID, nt, title, content, data})
	return d.err
}

func (d *fakeDispatcher) DisplayName(ctx context.Context, userID int64) string {
	return d.names[userID]
}

func (d *fakeDispatcher) ValidateUser(ctx context.Context, userID int64) bool {
	return !d.inactive[userID]
}

type fakeUserCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *fakeUserCache) Invalidate(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
	closed    bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{drained: make(chan struct{})}
	for i, v := range values {
		r.queue = append(r.queue, kafka.Message{Topic: "chat.events", Offset: int64(i), Value: []byte(v)})
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestParseChatEvent(t *testing.T) {
	event, err := ParseChatEvent([]byte(`{"type":"message.created","sender_id":1,"receiver_id":2,"content":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeMessageCreated, event.Type)
	assert.Equal(t, int64(2), event.ReceiverID)

	updated, err := ParseChatEvent([]byte(`{"type":"user.updated","user_id":5}`))
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.UserID)

	malformed := []string{
		`not json`,
		`{"type":"user.updated"}`,
		`{"type":"message.deleted","sender_id":1,"receiver_id":2}`,
		`{"type":"friend.requested","sender_id":0,"receiver_id":2}`,
		`{"type":"message.created","sender_id":1,"receiver_id":2}`,
	}
	for _, raw := range malformed {
		_, err := ParseChatEvent([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedEvent, raw)
	}
}

func TestDispatch_MapsEventsToNotifications(t *testing.T) {
	dispatcher := &fakeDispatcher{names: map[int64]string{1: "Alice"}}
	consumer := NewConsumer(newFakeReader(), dispatcher, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, consumer.Dispatch(ctx, &ChatEvent{Type: TypeMessageCreated, SenderID: 1, ReceiverID: 2, Content: "hey"}))
	require.NoError(t, consumer.Dispatch(ctx, &ChatEvent{Type: TypeFriendRequested, SenderID: 1, ReceiverID: 3}))
	require.NoError(t, consumer.Dispatch(ctx, &ChatEvent{Type: TypeFriendAccepted, SenderID: 1, ReceiverID: 4}))

	require.Len(t, dispatcher.calls, 3)

	msg := dispatcher.calls[0]
	assert.Equal(t, int64(2), msg.UserID)
	assert.Equal(t, models.TypeMessage, msg.Type)
	assert.Equal(t, "New message from Alice", msg.Title)
	assert.Equal(t, "hey", msg.Content)
	assert.Equal(t, &models.PrivateMessageData{SenderID: 1, SenderName: "Alice", Message: "hey"}, msg.Data)

	req := dispatcher.calls[1]
	assert.Equal(t, int64(3), req.UserID)
	assert.Equal(t, models.TypeFriendRequest, req.Type)
	assert.Equal(t, "Friend request from Alice", req.Title)

	acc := dispatcher.calls[2]
	assert.Equal(t, int64(4), acc.UserID)
	assert.Equal(t, models.TypeFriendAccepted, acc.Type)
	assert.Equal(t, "Your friend request was accepted", acc.Title)
}

func TestDispatch_UnknownSenderName(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	consumer := NewConsumer(newFakeReader(), dispatcher, nil, zap.NewNop())

	require.NoError(t, consumer.Dispatch(context.Background(), &ChatEvent{Type: TypeFriendRequested, SenderID: 8, ReceiverID: 3}))

	assert.Equal(t, "Friend request from user 8", dispatcher.calls[0].Title)
}

func TestRun_CommitsEveryMessage(t *testing.T) {
	// ARRANGE: a malformed event between two good ones
	reader := newFakeReader(
		`{"type":"friend.accepted","sender_id":1,"receiver_id":2}`,
		`{"type":"bogus"}`,
		`{"type":"friend.requested","sender_id":1,"receiver_id":5}`,
	)
	dispatcher := &fakeDispatcher{}
	consumer := NewConsumer(reader, dispatcher, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// ACT
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()

	// ASSERT
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []int64{0, 1, 2}, reader.committed)
	assert.Len(t, dispatcher.calls, 2)
}

func TestRun_DispatchFailureStillCommits(t *testing.T) {
	reader := newFakeReader(`{"type":"message.created","sender_id":1,"receiver_id":2,"content":"x"}`)
	dispatcher := &fakeDispatcher{err: errors.New("db down")}
	consumer := NewConsumer(reader, dispatcher, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{0}, reader.committed)
}

func TestClose(t *testing.T) {
	reader := newFakeReader()
	consumer := NewConsumer(reader, &fakeDispatcher{}, nil, zap.NewNop())

	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}

func TestDispatch_SkipsInvalidReceiver(t *testing.T) {
	dispatcher := &fakeDispatcher{inactive: map[int64]bool{2: true}}
	consumer := NewConsumer(newFakeReader(), dispatcher, nil, zap.NewNop())

	err := consumer.Dispatch(context.Background(), &ChatEvent{Type: TypeMessageCreated, SenderID: 1, ReceiverID: 2, Content: "hey"})

	assert.ErrorIs(t, err, ErrInvalidReceiver)
	assert.Empty(t, dispatcher.calls)
}

func TestRun_InvalidReceiverIsCommitted(t *testing.T) {
	reader := newFakeReader(
		`{"type":"friend.requested","sender_id":1,"receiver_id":2}`,
		`{"type":"friend.requested","sender_id":1,"receiver_id":3}`,
	)
	dispatcher := &fakeDispatcher{inactive: map[int64]bool{2: true}}
	consumer := NewConsumer(reader, dispatcher, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{0, 1}, reader.committed)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, int64(3), dispatcher.calls[0].UserID)
}

func TestDispatch_UserUpdatedInvalidatesCache(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	cache := &fakeUserCache{}
	consumer := NewConsumer(newFakeReader(), dispatcher, cache, zap.NewNop())

	require.NoError(t, consumer.Dispatch(context.Background(), &ChatEvent{Type: TypeUserUpdated, UserID: 5}))

	assert.Equal(t, []int64{5}, cache.invalidated)
	assert.Empty(t, dispatcher.calls)
}
