package shipping

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventStatus is the normalised shipment milestone reported by the aggregator webhook.
type EventStatus string

const (
	EventShipped   EventStatus = "shipped"
	EventInTransit EventStatus = "in_transit"
	EventDelivered EventStatus = "delivered"
)

// ErrInvalidEvent reports a webhook payload missing the order reference or status.
var ErrInvalidEvent = errors.New("shipping: invalid event")

// Event is a shipment tracking update.
type Event struct {
	OrderID    string      `json:"order_id"`
	AWB        string      `json:"awb"`
	Courier    string      `json:"courier_name"`
	Status     EventStatus `json:"status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// ParseEvent decodes a webhook body. Unknown statuses are rejected.
func ParseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	event.OrderID = strings.TrimSpace(event.OrderID)
	event.AWB = strings.TrimSpace(event.AWB)
	event.Status = EventStatus(strings.ToLower(strings.TrimSpace(string(event.Status))))
	if event.OrderID == "" {
		return Event{}, fmt.Errorf("%w: order_id is required", ErrInvalidEvent)
	}
	switch event.Status {
	case EventShipped, EventInTransit, EventDelivered:
	default:
		return Event{}, fmt.Errorf("%w: unsupported status %q", ErrInvalidEvent, event.Status)
	}
	return event, nil
}
