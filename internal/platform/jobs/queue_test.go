package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

func sampleNotification() domain.Notification {
	return domain.Notification{
		ID:          "ntf_01",
		Kind:        domain.NotificationOrderConfirmed,
		OrderID:     "ord_01",
		UserID:      "user-1",
		Email:       "asha@example.com",
		SubmittedAt: time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
	}
}

func TestPubSubQueuePublishesNotification(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "notifications")
	require.NoError(t, err)

	queue, err := NewPubSubQueue(topic)
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(ctx, sampleNotification()))

	messages := srv.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "order_confirmed", messages[0].Attributes["kind"])
	require.Equal(t, "ord_01", messages[0].Attributes["orderId"])

	got, err := DecodeNotification(messages[0].Data)
	require.NoError(t, err)
	require.Equal(t, sampleNotification(), got)
}

func TestDecodePushEnvelope(t *testing.T) {
	data, err := EncodeNotification(sampleNotification())
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"message":      map[string]any{"data": data, "messageId": "m-1"},
		"subscription": "projects/p/subscriptions/notifications-push",
	})
	require.NoError(t, err)

	n, id, err := DecodePushEnvelope(body)
	require.NoError(t, err)
	require.Equal(t, "m-1", id)
	require.Equal(t, "ord_01", n.OrderID)

	_, _, err = DecodePushEnvelope([]byte(`{"message":{"data":"e30="}}`))
	require.ErrorIs(t, err, ErrUndecodableMessage)
}

type recordingPublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestAMQPQueuePublishesPersistentJSON(t *testing.T) {
	pub := &recordingPublisher{}
	queue, err := NewAMQPQueue(pub, "notifications", "notification.submitted")
	require.NoError(t, err)

	require.NoError(t, queue.Enqueue(context.Background(), sampleNotification()))
	require.Equal(t, "notifications", pub.exchange)
	require.Equal(t, "notification.submitted", pub.key)
	require.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	require.Equal(t, "ntf_01", pub.msg.MessageId)
	require.Equal(t, "order_confirmed", pub.msg.Headers["kind"])

	pub.err = errors.New("channel closed")
	require.Error(t, queue.Enqueue(context.Background(), sampleNotification()))
}

type fakeAcknowledger struct {
	mu     sync.Mutex
	acks   int
	nacks  int
	requeu bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeu = a.requeu || requeue
	return nil
}

func (a *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestConsumeAcksHandledAndDropsUndecodable(t *testing.T) {
	ack := &fakeAcknowledger{}
	good, err := EncodeNotification(sampleNotification())
	require.NoError(t, err)

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: good}
	deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte("not json")}
	close(deliveries)

	var handled []string
	err = Consume(context.Background(), deliveries, func(_ context.Context, n domain.Notification) error {
		handled = append(handled, n.OrderID)
		return nil
	}, nil)
	require.Error(t, err)
	require.Equal(t, []string{"ord_01"}, handled)
	require.Equal(t, 1, ack.acks)
	require.Equal(t, 1, ack.nacks)
	require.False(t, ack.requeu)
}

func TestInlineQueueDeliversDetachedFromRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu  sync.Mutex
		got []domain.Notification
	)
	queue, err := NewInlineQueue(func(ctx context.Context, n domain.Notification) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, queue.Enqueue(ctx, sampleNotification()))
	cancel()
	queue.Wait()

	require.Len(t, got, 1)
}
