package di

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/notify"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/payments"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/shipping"
)

type fakeRegistry struct {
	closed bool
}

type fakeOrders struct{ repositories.OrderRepository }
type fakeCarts struct{ repositories.CartRepository }
type fakeProducts struct{ repositories.ProductRepository }
type fakeInquiries struct{ repositories.InquiryRepository }
type fakeUsers struct{ repositories.UserRepository }

type fakeHealth struct{}

func (fakeHealth) Collect(context.Context) (domain.HealthReport, error) {
	return domain.HealthReport{}, nil
}

func (r *fakeRegistry) Close(context.Context) error {
	r.closed = true
	return nil
}

func (r *fakeRegistry) Orders() repositories.OrderRepository      { return fakeOrders{} }
func (r *fakeRegistry) Carts() repositories.CartRepository        { return fakeCarts{} }
func (r *fakeRegistry) Products() repositories.ProductRepository  { return fakeProducts{} }
func (r *fakeRegistry) Inquiries() repositories.InquiryRepository { return fakeInquiries{} }
func (r *fakeRegistry) Users() repositories.UserRepository        { return fakeUsers{} }
func (r *fakeRegistry) Health() repositories.HealthRepository     { return fakeHealth{} }

type fakeGateway struct{}

func (fakeGateway) CreateOrder(context.Context, payments.PaymentContext, payments.CreateOrderRequest) (payments.GatewayOrder, error) {
	return payments.GatewayOrder{}, errors.New("not used")
}

func (fakeGateway) VerifyPayment(context.Context, string, payments.VerificationRequest) (payments.Verification, error) {
	return payments.Verification{}, errors.New("not used")
}

type fakeShipping struct{}

func (fakeShipping) CheckServiceability(context.Context, string) (bool, error) { return true, nil }

func (fakeShipping) GetRates(context.Context, shipping.RateRequest) ([]domain.ShippingRateOption, error) {
	return nil, nil
}

type fakeResetLinks struct{}

func (fakeResetLinks) PasswordResetLink(context.Context, string) (string, error) {
	return "https://example.com/reset", nil
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []string
}

func (e *recordingEmail) SendEmail(_ context.Context, to, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, to)
	return nil
}

func testInfrastructure(t *testing.T, email services.EmailSender) Infrastructure {
	t.Helper()
	catalog, err := notify.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return Infrastructure{
		Payments:   fakeGateway{},
		Shipping:   fakeShipping{},
		Renderer:   catalog,
		Email:      email,
		ResetLinks: fakeResetLinks{},
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil, Infrastructure{}); err == nil {
		t.Fatalf("expected error without registry")
	}
}

func TestNewContainerBuildsServices(t *testing.T) {
	reg := &fakeRegistry{}
	container, err := NewContainer(context.Background(), config.Config{}, reg, testInfrastructure(t, nil))
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	svc := container.Services
	if svc.Cart == nil || svc.Checkout == nil || svc.Shipping == nil || svc.Payments == nil || svc.Orders == nil ||
		svc.Inquiries == nil || svc.Accounts == nil || svc.Notifications == nil || svc.System == nil {
		t.Fatalf("expected every service wired, got %+v", svc)
	}
	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !reg.closed {
		t.Fatalf("expected registry closed")
	}
}

func TestNewContainerRejectsMissingGateway(t *testing.T) {
	infra := testInfrastructure(t, nil)
	infra.Payments = nil
	if _, err := NewContainer(context.Background(), config.Config{}, &fakeRegistry{}, infra); err == nil {
		t.Fatalf("expected error without payment gateway")
	}
}

func TestNewContainerDeliversInlineWithoutQueue(t *testing.T) {
	email := &recordingEmail{}
	container, err := NewContainer(context.Background(), config.Config{}, &fakeRegistry{}, testInfrastructure(t, email))
	if err != nil {
		t.Fatalf("new container: %v", err)
	}

	container.Services.Notifications.Submit(context.Background(), domain.Notification{
		Kind:  domain.NotificationWelcome,
		Email: "asha@example.com",
		Data:  map[string]string{"name": "Asha"},
	})
	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	email.mu.Lock()
	defer email.mu.Unlock()
	if len(email.sent) != 1 || email.sent[0] != "asha@example.com" {
		t.Fatalf("expected welcome email delivered inline, got %v", email.sent)
	}
}

func TestDeliveryPolicyOverrides(t *testing.T) {
	if got := deliveryPolicy(config.PricingConfig{}); got != domain.DefaultDeliveryPolicy {
		t.Fatalf("expected default policy, got %+v", got)
	}
	got := deliveryPolicy(config.PricingConfig{DeliveryFee: 79, FreeDeliveryMinimum: 999})
	if got.Fee != 79 || got.FreeDeliveryMinimum != 999 {
		t.Fatalf("unexpected policy %+v", got)
	}
}
