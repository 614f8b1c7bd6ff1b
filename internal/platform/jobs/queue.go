package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

// ErrUndecodableMessage marks a queue payload that is not a notification.
var ErrUndecodableMessage = errors.New("jobs: undecodable notification message")

// Handler processes one notification pulled off a queue.
type Handler func(ctx context.Context, notification domain.Notification) error

// EncodeNotification serialises n for transport.
func EncodeNotification(n domain.Notification) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return data, nil
}

// DecodeNotification parses a transport payload. Payloads without a kind are rejected.
func DecodeNotification(data []byte) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %v", ErrUndecodableMessage, err)
	}
	if n.Kind == "" {
		return domain.Notification{}, fmt.Errorf("%w: missing kind", ErrUndecodableMessage)
	}
	return n, nil
}

func attributes(n domain.Notification) map[string]string {
	attrs := map[string]string{"kind": string(n.Kind)}
	if n.ID != "" {
		attrs["notificationId"] = n.ID
	}
	if n.OrderID != "" {
		attrs["orderId"] = n.OrderID
	}
	if n.InquiryID != "" {
		attrs["inquiryId"] = n.InquiryID
	}
	return attrs
}
