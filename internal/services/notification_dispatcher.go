package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/notify"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const notificationIDPrefix = "ntf_"

// ErrNotificationInvalid indicates a queued message that cannot be delivered at all.
var ErrNotificationInvalid = errors.New("notification: invalid message")

// NotificationQueue is the outbound handoff; jobs.PubSubQueue, jobs.AMQPQueue and jobs.InlineQueue satisfy it.
type NotificationQueue interface {
	Enqueue(ctx context.Context, notification Notification) error
}

// NotificationRenderer renders a notification kind. notify.Catalog satisfies it.
type NotificationRenderer interface {
	Render(kind domain.NotificationKind, data notify.Data) (notify.Message, error)
}

// EmailSender sends rendered HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// SMSSender sends text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// NotificationDeliveryError describes a failed channel send. It is logged, never returned.
type NotificationDeliveryError struct {
	NotificationID string
	Kind           domain.NotificationKind
	Channel        string
	Err            error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification %s (%s) via %s: %v", e.NotificationID, e.Kind, e.Channel, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}

// NotificationDispatcherDeps wires the dispatcher. Queue may be nil on worker-only processes.
type NotificationDispatcherDeps struct {
	Queue        NotificationQueue
	Renderer     NotificationRenderer
	Orders       repositories.OrderRepository
	Inquiries    repositories.InquiryRepository
	Email        EmailSender
	SMS          SMSSender
	Brand        string
	SupportEmail string
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       Logger
}

type notificationDispatcher struct {
	queue        NotificationQueue
	renderer     NotificationRenderer
	orders       repositories.OrderRepository
	inquiries    repositories.InquiryRepository
	email        EmailSender
	sms          SMSSender
	brand        string
	supportEmail string
	now          func() time.Time
	newID        func() string
	logger       Logger
}

// NewNotificationDispatcher constructs a NotificationDispatcher.
func NewNotificationDispatcher(deps NotificationDispatcherDeps) (NotificationDispatcher, error) {
	if deps.Renderer == nil {
		return nil, errors.New("notification dispatcher: renderer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &notificationDispatcher{
		queue:        deps.Queue,
		renderer:     deps.Renderer,
		orders:       deps.Orders,
		inquiries:    deps.Inquiries,
		email:        deps.Email,
		sms:          deps.SMS,
		brand:        strings.TrimSpace(deps.Brand),
		supportEmail: strings.TrimSpace(deps.SupportEmail),
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// OrderNotification builds a notification addressed to the order's shipping contact.
func OrderNotification(kind domain.NotificationKind, order Order, id string, now time.Time, data map[string]string) Notification {
	return Notification{
		ID:          notificationIDPrefix + id,
		Kind:        kind,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Email:       order.ShippingAddress.Email,
		Phone:       order.ShippingAddress.Phone,
		Data:        data,
		SubmittedAt: now,
	}
}

func (d *notificationDispatcher) Submit(ctx context.Context, n Notification) {
	if n.ID == "" {
		n.ID = notificationIDPrefix + d.newID()
	}
	if n.SubmittedAt.IsZero() {
		n.SubmittedAt = d.now()
	}
	fields := map[string]any{"notificationId": n.ID, "kind": string(n.Kind)}
	if n.OrderID != "" {
		fields["orderId"] = n.OrderID
	}
	if d.queue == nil {
		d.logger(ctx, "notifications.dropped", fields)
		return
	}
	if err := d.queue.Enqueue(ctx, n); err != nil {
		fields["error"] = err.Error()
		d.logger(ctx, "notifications.submit_failed", fields)
		return
	}
	d.logger(ctx, "notifications.submitted", fields)
}

// Deliver renders and sends n. Missing records, rendering problems and channel failures are logged
// and swallowed; only a message that can never be delivered is returned as an error.
func (d *notificationDispatcher) Deliver(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.ID) == "" || n.Kind == "" {
		return fmt.Errorf("%w: id and kind are required", ErrNotificationInvalid)
	}

	data, email, phone, ok := d.viewModel(ctx, n)
	if !ok {
		return nil
	}
	msg, err := d.renderer.Render(n.Kind, data)
	if err != nil {
		if errors.Is(err, notify.ErrUnknownKind) {
			return fmt.Errorf("%w: %v", ErrNotificationInvalid, err)
		}
		d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "render", Err: err})
		return nil
	}

	sent := make([]string, 0, 2)
	if email != "" && d.email != nil {
		if err := d.email.SendEmail(ctx, email, msg.Subject, msg.HTML); err != nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "email", Err: err})
		} else {
			sent = append(sent, "email")
		}
	}
	if msg.SMS != "" && phone != "" && d.sms != nil {
		if err := d.sms.SendSMS(ctx, phone, msg.SMS); err != nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "sms", Err: err})
		} else {
			sent = append(sent, "sms")
		}
	}
	d.logger(ctx, "notifications.delivered", map[string]any{
		"notificationId": n.ID,
		"kind":           string(n.Kind),
		"channels":       sent,
	})
	return nil
}

func (d *notificationDispatcher) viewModel(ctx context.Context, n Notification) (notify.Data, string, string, bool) {
	data := notify.Data{
		Brand:        d.brand,
		SupportEmail: d.supportEmail,
		Name:         n.Data["name"],
		Email:        n.Email,
		Status:       n.Data["status"],
		TrackingID:   n.Data["trackingId"],
		ResetLink:    n.Data["resetLink"],
	}
	email, phone := strings.TrimSpace(n.Email), strings.TrimSpace(n.Phone)

	if n.OrderID != "" {
		if d.orders == nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "load", Err: errors.New("order repository not configured")})
			return notify.Data{}, "", "", false
		}
		order, err := d.orders.FindByID(ctx, n.OrderID)
		if err != nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "load", Err: err})
			return notify.Data{}, "", "", false
		}
		data.Order = &order
		data.Name = firstNonEmpty(data.Name, order.ShippingAddress.FullName)
		email = firstNonEmpty(email, order.ShippingAddress.Email)
		phone = firstNonEmpty(phone, order.ShippingAddress.Phone)
		if order.TrackingID != nil {
			data.TrackingID = firstNonEmpty(data.TrackingID, *order.TrackingID)
		}
		data.Status = firstNonEmpty(data.Status, string(order.Status))
	}
	if n.InquiryID != "" {
		if d.inquiries == nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "load", Err: errors.New("inquiry repository not configured")})
			return notify.Data{}, "", "", false
		}
		inquiry, err := d.inquiries.FindByID(ctx, n.InquiryID)
		if err != nil {
			d.logDeliveryError(ctx, &NotificationDeliveryError{NotificationID: n.ID, Kind: n.Kind, Channel: "load", Err: err})
			return notify.Data{}, "", "", false
		}
		data.Inquiry = &inquiry
		data.Name = firstNonEmpty(data.Name, inquiry.ContactPerson)
		email = firstNonEmpty(email, inquiry.ContactEmail)
		phone = firstNonEmpty(phone, inquiry.ContactPhone)
	}
	data.Email = email
	return data, email, phone, true
}

func (d *notificationDispatcher) logDeliveryError(ctx context.Context, err *NotificationDeliveryError) {
	d.logger(ctx, "notifications.delivery_failed", map[string]any{
		"notificationId": err.NotificationID,
		"kind":           string(err.Kind),
		"channel":        err.Channel,
		"error":          err,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
