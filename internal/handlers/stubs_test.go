package handlers

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

var errNotStubbed = errors.New("not stubbed")

type stubCartService struct {
	getFn    func(context.Context, string) (services.PricedCart, error)
	addFn    func(context.Context, services.AddCartItemCommand) (services.PricedCart, error)
	updateFn func(context.Context, services.UpdateCartItemCommand) (services.PricedCart, error)
	removeFn func(context.Context, string, string) (services.PricedCart, error)
	applyFn  func(context.Context, string, string) (services.PricedCart, error)
	couponFn func(context.Context, string) (services.PricedCart, error)
	clearFn  func(context.Context, string) error
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.PricedCart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.PricedCart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (services.PricedCart, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (services.PricedCart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, userID, code string) (services.PricedCart, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, userID, code)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, userID string) (services.PricedCart, error) {
	if s.couponFn != nil {
		return s.couponFn(ctx, userID)
	}
	return services.PricedCart{}, errNotStubbed
}

func (s *stubCartService) Clear(ctx context.Context, userID string) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, userID)
	}
	return errNotStubbed
}

type stubCheckoutService struct {
	quoteFn func(context.Context, string) (services.ShippingQuote, error)
	placeFn func(context.Context, services.PlaceOrderCommand) (services.PlaceOrderResult, error)
}

func (s *stubCheckoutService) QuoteShipping(ctx context.Context, pincode string) (services.ShippingQuote, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, pincode)
	}
	return services.ShippingQuote{}, errNotStubbed
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (services.PlaceOrderResult, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return services.PlaceOrderResult{}, errNotStubbed
}

type stubPaymentOrchestrator struct {
	verifyFn  func(context.Context, services.VerifyPaymentCommand) (services.Order, error)
	failureFn func(context.Context, services.RecordPaymentFailureCommand) (services.Order, error)
	dismissFn func(context.Context, string, string) (services.Order, error)
}

func (s *stubPaymentOrchestrator) InitiatePayment(context.Context, services.InitiatePaymentCommand) (services.WidgetOptions, error) {
	return services.WidgetOptions{}, errNotStubbed
}

func (s *stubPaymentOrchestrator) VerifyPayment(ctx context.Context, cmd services.VerifyPaymentCommand) (services.Order, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubPaymentOrchestrator) RecordFailure(ctx context.Context, cmd services.RecordPaymentFailureCommand) (services.Order, error) {
	if s.failureFn != nil {
		return s.failureFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubPaymentOrchestrator) RecordDismissal(ctx context.Context, orderID, userID string) (services.Order, error) {
	if s.dismissFn != nil {
		return s.dismissFn(ctx, orderID, userID)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubPaymentOrchestrator) CompleteCashOnDelivery(context.Context, services.Order) {}

type stubOrderService struct {
	listFn       func(context.Context, string, pagination.Params) (domain.CursorPage[services.Order], error)
	getFn        func(context.Context, string, string) (services.Order, error)
	byStatusFn   func(context.Context, domain.OrderStatus, pagination.Params) (domain.CursorPage[services.Order], error)
	transitionFn func(context.Context, services.OrderTransitionCommand) (services.Order, error)
	shippingFn   func(context.Context, services.ShippingEventCommand) (services.Order, error)
	invoiceFn    func(context.Context, string, string) (services.InvoiceResult, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID string, page pagination.Params) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, page)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID, userID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, userID)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) ListByStatus(ctx context.Context, status domain.OrderStatus, page pagination.Params) (domain.CursorPage[services.Order], error) {
	if s.byStatusFn != nil {
		return s.byStatusFn(ctx, status, page)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderTransitionCommand) (services.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) ApplyShippingEvent(ctx context.Context, cmd services.ShippingEventCommand) (services.Order, error) {
	if s.shippingFn != nil {
		return s.shippingFn(ctx, cmd)
	}
	return services.Order{}, errNotStubbed
}

func (s *stubOrderService) RequestInvoice(ctx context.Context, orderID, userID string) (services.InvoiceResult, error) {
	if s.invoiceFn != nil {
		return s.invoiceFn(ctx, orderID, userID)
	}
	return services.InvoiceResult{}, errNotStubbed
}

type stubInquiryService struct {
	submitFn func(context.Context, services.SubmitInquiryCommand) (services.CorporateInquiry, error)
	listFn   func(context.Context, domain.InquiryStatus, pagination.Params) (domain.CursorPage[services.CorporateInquiry], error)
	updateFn func(context.Context, services.UpdateInquiryCommand) (services.CorporateInquiry, error)
}

func (s *stubInquiryService) Submit(ctx context.Context, cmd services.SubmitInquiryCommand) (services.CorporateInquiry, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, cmd)
	}
	return services.CorporateInquiry{}, errNotStubbed
}

func (s *stubInquiryService) List(ctx context.Context, status domain.InquiryStatus, page pagination.Params) (domain.CursorPage[services.CorporateInquiry], error) {
	if s.listFn != nil {
		return s.listFn(ctx, status, page)
	}
	return domain.CursorPage[services.CorporateInquiry]{}, nil
}

func (s *stubInquiryService) Update(ctx context.Context, cmd services.UpdateInquiryCommand) (services.CorporateInquiry, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.CorporateInquiry{}, errNotStubbed
}

type stubAccountService struct {
	registerFn func(context.Context, services.RegisterCommand) (services.UserProfile, error)
	resetFn    func(context.Context, string) error
}

func (s *stubAccountService) Register(ctx context.Context, cmd services.RegisterCommand) (services.UserProfile, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, cmd)
	}
	return services.UserProfile{}, errNotStubbed
}

func (s *stubAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if s.resetFn != nil {
		return s.resetFn(ctx, email)
	}
	return errNotStubbed
}

type stubDispatcher struct {
	deliverFn func(context.Context, domain.Notification) error
	delivered []domain.Notification
}

func (s *stubDispatcher) Submit(context.Context, domain.Notification) {}

func (s *stubDispatcher) Deliver(ctx context.Context, n domain.Notification) error {
	s.delivered = append(s.delivered, n)
	if s.deliverFn != nil {
		return s.deliverFn(ctx, n)
	}
	return nil
}

// serve mounts registrar at prefix and performs one request, optionally as an authenticated user.
func serve(t *testing.T, prefix string, registrar RouteRegistrar, identity *auth.Identity, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	if prefix == "" {
		router.Group(registrar)
	} else {
		router.Route(prefix, registrar)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func customer(uid string) *auth.Identity {
	return &auth.Identity{UID: uid, Email: uid + "@example.com", Roles: []string{auth.RoleCustomer}}
}

func sampleOrder(id string) services.Order {
	tracking := "AWB123"
	return services.Order{
		ID:     id,
		UserID: "user-1",
		Items: []services.CartLineItem{
			{ProductID: "p1", Name: "Earbuds", UnitPrice: 450, Quantity: 2},
		},
		Subtotal:        900,
		Total:           900,
		ShippingAddress: services.Address{FullName: "Asha Rao", Phone: "9876543210", Email: "asha@example.com", Pincode: "560001"},
		ShippingCourier: "Blue Dart",
		PaymentMethod:   domain.PaymentMethodGateway,
		PaymentStatus:   domain.PaymentStatusPaid,
		Status:          domain.OrderStatusShipped,
		TrackingID:      &tracking,
	}
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if code != "" && !strings.Contains(rr.Body.String(), `"error":"`+code+`"`) {
		t.Fatalf("expected error code %q, got %s", code, rr.Body.String())
	}
}
