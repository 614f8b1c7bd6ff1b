package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

// PubSubQueue publishes notifications to a Pub/Sub topic whose push subscription
// targets the internal dispatch endpoint.
type PubSubQueue struct {
	topic *pubsub.Topic
}

// NewPubSubQueue wraps topic.
func NewPubSubQueue(topic *pubsub.Topic) (*PubSubQueue, error) {
	if topic == nil {
		return nil, errors.New("pubsub queue: topic is required")
	}
	return &PubSubQueue{topic: topic}, nil
}

// Enqueue publishes n and waits for the server acknowledgement.
func (q *PubSubQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	data, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	result := q.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes(n)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Stop flushes pending publishes.
func (q *PubSubQueue) Stop() {
	q.topic.Stop()
}

// PushEnvelope is the body Pub/Sub POSTs to push endpoints.
type PushEnvelope struct {
	Message struct {
		Data        []byte            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePushEnvelope extracts the notification carried by a push request body.
func DecodePushEnvelope(body []byte) (domain.Notification, string, error) {
	var envelope PushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.Notification{}, "", fmt.Errorf("%w: %v", ErrUndecodableMessage, err)
	}
	n, err := DecodeNotification(envelope.Message.Data)
	if err != nil {
		return domain.Notification{}, envelope.Message.MessageID, err
	}
	return n, envelope.Message.MessageID, nil
}
