package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/notify"
)

type recordingQueue struct {
	mu       sync.Mutex
	enqueued []domain.Notification
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, n domain.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, n)
	return nil
}

type sentEmail struct {
	to, subject, html string
}

type stubEmailSender struct {
	sent []sentEmail
	err  error
}

func (s *stubEmailSender) SendEmail(_ context.Context, to, subject, html string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

type stubSMSSender struct {
	sent []string
	err  error
}

func (s *stubSMSSender) SendSMS(_ context.Context, to, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to+"|"+body)
	return nil
}

type dispatcherFixture struct {
	queue      *recordingQueue
	orders     *memoryOrderRepository
	inquiries  *memoryInquiryRepository
	email      *stubEmailSender
	sms        *stubSMSSender
	logger     *recordingLogger
	dispatcher NotificationDispatcher
}

func newDispatcherFixture(t *testing.T, orders ...domain.Order) *dispatcherFixture {
	t.Helper()
	catalog, err := notify.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	f := &dispatcherFixture{
		queue:     &recordingQueue{},
		orders:    newMemoryOrderRepository(orders...),
		inquiries: newMemoryInquiryRepository(),
		email:     &stubEmailSender{},
		sms:       &stubSMSSender{},
		logger:    &recordingLogger{},
	}
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Queue:        f.queue,
		Renderer:     catalog,
		Orders:       f.orders,
		Inquiries:    f.inquiries,
		Email:        f.email,
		SMS:          f.sms,
		Brand:        "Genius",
		SupportEmail: "support@example.com",
		Clock:        fixedClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)),
		IDGenerator:  sequentialIDs("X"),
		Logger:       f.logger.log,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	f.dispatcher = dispatcher
	return f
}

func TestNotificationDispatcherSubmitEnqueues(t *testing.T) {
	f := newDispatcherFixture(t)

	f.dispatcher.Submit(context.Background(), domain.Notification{Kind: domain.NotificationWelcome, Email: "new@example.com"})

	if len(f.queue.enqueued) != 1 {
		t.Fatalf("expected one enqueued message, got %d", len(f.queue.enqueued))
	}
	n := f.queue.enqueued[0]
	if n.ID != "ntf_X001" || n.SubmittedAt.IsZero() {
		t.Fatalf("expected id and timestamp filled, got %+v", n)
	}
}

func TestNotificationDispatcherSubmitSwallowsQueueErrors(t *testing.T) {
	f := newDispatcherFixture(t)
	f.queue.err = errors.New("broker down")

	f.dispatcher.Submit(context.Background(), domain.Notification{Kind: domain.NotificationWelcome})

	if !f.logger.has("notifications.submit_failed") {
		t.Fatalf("expected submit failure logged, got %v", f.logger.events)
	}
}

func TestNotificationDispatcherDeliversOrderConfirmation(t *testing.T) {
	order := pendingGatewayOrder("ord_1", "user-1", 1500)
	order.Status = domain.OrderStatusConfirmed
	order.PaymentStatus = domain.PaymentStatusPaid
	f := newDispatcherFixture(t, order)

	err := f.dispatcher.Deliver(context.Background(), OrderNotification(domain.NotificationOrderConfirmed, order, "1", time.Now(), nil))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].to != "asha@example.com" {
		t.Fatalf("expected email to the shipping contact, got %+v", f.email.sent)
	}
	if !strings.Contains(f.email.sent[0].subject, "ord_1") {
		t.Fatalf("expected order id in subject, got %q", f.email.sent[0].subject)
	}
	if len(f.sms.sent) != 1 || !strings.HasPrefix(f.sms.sent[0], "9876543210|") {
		t.Fatalf("expected sms to the shipping phone, got %v", f.sms.sent)
	}
}

func TestNotificationDispatcherSwallowsChannelFailures(t *testing.T) {
	order := pendingGatewayOrder("ord_1", "user-1", 1500)
	f := newDispatcherFixture(t, order)
	f.email.err = errors.New("smtp 550")
	f.sms.err = errors.New("dlt rejected")

	err := f.dispatcher.Deliver(context.Background(), OrderNotification(domain.NotificationOrderConfirmed, order, "1", time.Now(), nil))
	if err != nil {
		t.Fatalf("channel failures must not fail delivery: %v", err)
	}
	failures := 0
	for i, event := range f.logger.events {
		if event != "notifications.delivery_failed" {
			continue
		}
		failures++
		var deliveryErr *NotificationDeliveryError
		if !errors.As(f.logger.fields[i]["error"].(error), &deliveryErr) {
			t.Fatalf("expected NotificationDeliveryError in log fields")
		}
	}
	if failures != 2 {
		t.Fatalf("expected two logged delivery failures, got %d", failures)
	}
}

func TestNotificationDispatcherMissingOrderIsLogged(t *testing.T) {
	f := newDispatcherFixture(t)

	err := f.dispatcher.Deliver(context.Background(), domain.Notification{ID: "ntf_1", Kind: domain.NotificationOrderConfirmed, OrderID: "ord_missing"})
	if err != nil {
		t.Fatalf("expected nil for missing order, got %v", err)
	}
	if len(f.email.sent) != 0 || !f.logger.has("notifications.delivery_failed") {
		t.Fatalf("expected nothing sent and a logged failure")
	}
}

func TestNotificationDispatcherRejectsUndeliverable(t *testing.T) {
	f := newDispatcherFixture(t)

	if err := f.dispatcher.Deliver(context.Background(), domain.Notification{Kind: domain.NotificationWelcome}); !errors.Is(err, ErrNotificationInvalid) {
		t.Fatalf("expected invalid for missing id, got %v", err)
	}
	if err := f.dispatcher.Deliver(context.Background(), domain.Notification{ID: "ntf_1", Kind: "fax"}); !errors.Is(err, ErrNotificationInvalid) {
		t.Fatalf("expected invalid for unknown kind, got %v", err)
	}
}

func TestNotificationDispatcherPasswordResetEmailOnly(t *testing.T) {
	f := newDispatcherFixture(t)

	err := f.dispatcher.Deliver(context.Background(), domain.Notification{
		ID:    "ntf_1",
		Kind:  domain.NotificationPasswordReset,
		Email: "asha@example.com",
		Phone: "9876543210",
		Data:  map[string]string{"resetLink": "https://auth.example.com/reset?oob=abc"},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(f.email.sent) != 1 || !strings.Contains(f.email.sent[0].html, "https://auth.example.com/reset?oob=abc") {
		t.Fatalf("expected reset link in email, got %+v", f.email.sent)
	}
	if len(f.sms.sent) != 0 {
		t.Fatalf("password reset must not go out by sms")
	}
}

func TestNotificationDispatcherInquiryAck(t *testing.T) {
	f := newDispatcherFixture(t)
	if err := f.inquiries.Insert(context.Background(), domain.CorporateInquiry{
		ID: "inq_1", CompanyName: "Acme", ContactPerson: "Ravi", ContactEmail: "ravi@acme.test", ContactPhone: "9123456780",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := f.dispatcher.Deliver(context.Background(), domain.Notification{ID: "ntf_1", Kind: domain.NotificationCorporateInquiryAck, InquiryID: "inq_1"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].to != "ravi@acme.test" {
		t.Fatalf("expected ack to the inquiry contact, got %+v", f.email.sent)
	}
}
