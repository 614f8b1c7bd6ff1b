package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/payments"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const defaultPaymentCurrency = "INR"

var (
	// ErrPaymentInvalidInput indicates the callback payload is incomplete.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrGatewayInitiation indicates the gateway order could not be created; the order is cancelled.
	ErrGatewayInitiation = errors.New("payment: gateway initiation failed")
	// ErrPaymentVerificationFailed indicates the payment proof did not verify; the order needs support follow-up.
	ErrPaymentVerificationFailed = errors.New("payment: verification failed")
	// ErrPaymentUnavailable indicates the gateway could not be reached to verify a payment.
	ErrPaymentUnavailable = errors.New("payment: gateway unavailable")
)

// PaymentGateway creates gateway orders and verifies widget callbacks. payments.Manager satisfies it.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CreateOrderRequest) (payments.GatewayOrder, error)
	VerifyPayment(ctx context.Context, providerName string, req payments.VerificationRequest) (payments.Verification, error)
}

// InitiatePaymentCommand requests a gateway order for a pending order.
type InitiatePaymentCommand struct {
	Order             Order
	PreferredProvider string
}

// WidgetPrefill is the customer contact shown in the payment widget.
type WidgetPrefill struct {
	Name  string
	Email string
	Phone string
}

// WidgetOptions is everything the client needs to open the gateway widget. Amount is in minor units.
type WidgetOptions struct {
	Provider       string
	KeyID          string
	GatewayOrderID string
	OrderID        string
	Amount         int64
	Currency       string
	Name           string
	Description    string
	ClientSecret   string
	Prefill        WidgetPrefill
}

// VerifyPaymentCommand is the widget success callback plus the internal order id.
type VerifyPaymentCommand struct {
	OrderID        string
	UserID         string
	PaymentID      string
	GatewayOrderID string
	Signature      string
}

// RecordPaymentFailureCommand is the widget failure callback.
type RecordPaymentFailureCommand struct {
	OrderID     string
	UserID      string
	Code        string
	Description string
}

// PaymentOrchestratorDeps wires the payment orchestrator.
type PaymentOrchestratorDeps struct {
	Orders        repositories.OrderRepository
	Carts         repositories.CartRepository
	Gateway       PaymentGateway
	Notifications NotificationDispatcher
	Meter         metric.Meter
	Currency      string
	StoreName     string
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type paymentOrchestrator struct {
	orders        repositories.OrderRepository
	carts         repositories.CartRepository
	gateway       PaymentGateway
	notifications NotificationDispatcher
	currency      string
	storeName     string
	now           func() time.Time
	newID         func() string
	logger        Logger

	initiated metric.Int64Counter
	verified  metric.Int64Counter
	failed    metric.Int64Counter
}

// NewPaymentOrchestrator constructs a PaymentOrchestrator.
func NewPaymentOrchestrator(deps PaymentOrchestratorDeps) (PaymentOrchestrator, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment orchestrator: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("payment orchestrator: cart repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment orchestrator: payment gateway is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("payment orchestrator: notification dispatcher is required")
	}

	meter := deps.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("checkout")
	}
	initiated, err := meter.Int64Counter("checkout.payments.initiated", metric.WithDescription("Gateway orders requested"))
	if err != nil {
		return nil, fmt.Errorf("payment orchestrator: initiated counter: %w", err)
	}
	verified, err := meter.Int64Counter("checkout.payments.verified", metric.WithDescription("Payments verified server-side"))
	if err != nil {
		return nil, fmt.Errorf("payment orchestrator: verified counter: %w", err)
	}
	failed, err := meter.Int64Counter("checkout.payments.failed", metric.WithDescription("Payments that failed to initiate, verify or complete"))
	if err != nil {
		return nil, fmt.Errorf("payment orchestrator: failed counter: %w", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultPaymentCurrency
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

	return &paymentOrchestrator{
		orders:        deps.Orders,
		carts:         deps.Carts,
		gateway:       deps.Gateway,
		notifications: deps.Notifications,
		currency:      currency,
		storeName:     strings.TrimSpace(deps.StoreName),
		now: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		logger:    logger,
		initiated: initiated,
		verified:  verified,
		failed:    failed,
	}, nil
}

// InitiatePayment creates the gateway order and records its id on the order.
// A gateway failure cancels the order and returns ErrGatewayInitiation.
func (p *paymentOrchestrator) InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (WidgetOptions, error) {
	order := cmd.Order
	if order.ID == "" || order.PaymentMethod != domain.PaymentMethodGateway {
		return WidgetOptions{}, fmt.Errorf("%w: order does not use gateway payment", ErrOrderInvalidTransition)
	}
	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending || order.PaymentTransactionID != nil {
		return WidgetOptions{}, fmt.Errorf("%w: payment already initiated for %s", ErrOrderInvalidTransition, order.ID)
	}

	gatewayOrder, err := p.gateway.CreateOrder(ctx, payments.PaymentContext{
		PreferredProvider: cmd.PreferredProvider,
		Currency:          p.currency,
	}, payments.CreateOrderRequest{
		Amount:         order.Total,
		Currency:       p.currency,
		Receipt:        order.ID,
		Email:          order.ShippingAddress.Email,
		Notes:          map[string]string{"orderId": order.ID, "userId": order.UserID},
		IdempotencyKey: "pay_" + order.ID,
	})
	if err != nil {
		p.failed.Add(ctx, 1, outcomeAttrs(cmd.PreferredProvider, "initiation_failed"))
		p.logger(ctx, "payments.initiation_failed", map[string]any{
			"orderId":  order.ID,
			"severity": "error",
			"error":    err.Error(),
		})
		if _, _, cancelErr := p.cancelForFailure(ctx, order.ID, "gateway_initiation", err.Error()); cancelErr != nil {
			p.logger(ctx, "payments.cancel_failed", map[string]any{"orderId": order.ID, "error": cancelErr.Error()})
		}
		return WidgetOptions{}, fmt.Errorf("%w: %v", ErrGatewayInitiation, err)
	}

	updated, err := p.orders.Update(ctx, order.ID, func(o *domain.Order) error {
		if o.PaymentTransactionID != nil || o.Status != domain.OrderStatusPending {
			return fmt.Errorf("%w: order %s changed during initiation", ErrOrderInvalidTransition, o.ID)
		}
		id := gatewayOrder.ID
		o.PaymentTransactionID = &id
		o.PaymentProvider = gatewayOrder.Provider
		o.UpdatedAt = p.now()
		return nil
	})
	if err != nil {
		p.logger(ctx, "payments.record_gateway_order_failed", map[string]any{
			"orderId":        order.ID,
			"gatewayOrderId": gatewayOrder.ID,
			"severity":       "error",
			"error":          err.Error(),
		})
		return WidgetOptions{}, mapOrderRepositoryError(err)
	}

	p.initiated.Add(ctx, 1, outcomeAttrs(gatewayOrder.Provider, "created"))
	p.logger(ctx, "payments.initiated", map[string]any{
		"orderId":        updated.ID,
		"provider":       gatewayOrder.Provider,
		"gatewayOrderId": gatewayOrder.ID,
	})

	address := updated.ShippingAddress
	return WidgetOptions{
		Provider:       gatewayOrder.Provider,
		KeyID:          gatewayOrder.KeyID,
		GatewayOrderID: gatewayOrder.ID,
		OrderID:        updated.ID,
		Amount:         gatewayOrder.Amount,
		Currency:       gatewayOrder.Currency,
		Name:           p.storeName,
		Description:    "Order " + updated.ID,
		ClientSecret:   gatewayOrder.ClientSecret,
		Prefill:        WidgetPrefill{Name: address.FullName, Email: address.Email, Phone: address.Phone},
	}, nil
}

// VerifyPayment checks the widget callback with the gateway and marks the order paid.
// Verifying an order that is already paid succeeds without side effects.
func (p *paymentOrchestrator) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (Order, error) {
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	cmd.PaymentID = strings.TrimSpace(cmd.PaymentID)
	cmd.GatewayOrderID = strings.TrimSpace(cmd.GatewayOrderID)
	if cmd.OrderID == "" || cmd.PaymentID == "" || cmd.GatewayOrderID == "" {
		return Order{}, fmt.Errorf("%w: order id, payment id and gateway order id are required", ErrPaymentInvalidInput)
	}

	order, err := p.ownedOrder(ctx, cmd.OrderID, cmd.UserID)
	if err != nil {
		return Order{}, err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}
	if !verifiable(order) {
		return Order{}, fmt.Errorf("%w: %s/%s cannot be verified", ErrOrderInvalidTransition, order.Status, order.PaymentStatus)
	}

	if order.PaymentTransactionID == nil || *order.PaymentTransactionID != cmd.GatewayOrderID {
		return p.rejectVerification(ctx, order, cmd, errors.New("gateway order id does not match the order"))
	}

	verification, err := p.gateway.VerifyPayment(ctx, order.PaymentProvider, payments.VerificationRequest{
		GatewayOrderID: cmd.GatewayOrderID,
		PaymentID:      cmd.PaymentID,
		Signature:      cmd.Signature,
	})
	switch {
	case errors.Is(err, payments.ErrVerificationFailed):
		return p.rejectVerification(ctx, order, cmd, err)
	case err != nil:
		p.logger(ctx, "payments.verify_unavailable", map[string]any{"orderId": order.ID, "error": err.Error()})
		return Order{}, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	case verification.Status != payments.StatusSucceeded:
		return p.rejectVerification(ctx, order, cmd, fmt.Errorf("gateway reports status %q", verification.Status))
	}

	transitioned := false
	// Firestore reruns the mutation when a commit aborts, so the flag is reset on every attempt.
	updated, err := p.orders.Update(ctx, order.ID, func(o *domain.Order) error {
		transitioned = false
		if o.PaymentStatus == domain.PaymentStatusPaid {
			return repositories.ErrSkipUpdate
		}
		if !verifiable(*o) {
			return fmt.Errorf("%w: %s/%s cannot be verified", ErrOrderInvalidTransition, o.Status, o.PaymentStatus)
		}
		paymentID := cmd.PaymentID
		o.PaymentID = &paymentID
		o.PaymentStatus = domain.PaymentStatusPaid
		o.Status = domain.OrderStatusConfirmed
		o.UpdatedAt = p.now()
		transitioned = true
		return nil
	})
	if err != nil {
		p.logger(ctx, "payments.record_verification_failed", map[string]any{
			"orderId":   order.ID,
			"paymentId": cmd.PaymentID,
			"severity":  "error",
			"error":     err.Error(),
		})
		return Order{}, mapOrderRepositoryError(err)
	}
	if !transitioned {
		return updated, nil
	}

	p.verified.Add(ctx, 1, outcomeAttrs(updated.PaymentProvider, "paid"))
	p.logger(ctx, "payments.verified", map[string]any{
		"orderId":   updated.ID,
		"paymentId": cmd.PaymentID,
		"provider":  updated.PaymentProvider,
	})
	p.completeOrder(ctx, updated)
	return updated, nil
}

// CompleteCashOnDelivery clears the cart and confirms a cash-on-delivery order to the customer.
// The order itself stays pending/pending until fulfilment.
func (p *paymentOrchestrator) CompleteCashOnDelivery(ctx context.Context, order Order) {
	p.logger(ctx, "payments.cod_placed", map[string]any{"orderId": order.ID})
	p.completeOrder(ctx, order)
}

func (p *paymentOrchestrator) completeOrder(ctx context.Context, order Order) {
	if err := p.carts.Delete(ctx, order.UserID); err != nil {
		p.logger(ctx, "payments.cart_clear_failed", map[string]any{"orderId": order.ID, "userId": order.UserID, "error": err.Error()})
	}
	p.notifications.Submit(ctx, OrderNotification(domain.NotificationOrderConfirmed, order, p.newID(), p.now(), nil))
}

// RecordFailure cancels the order after a widget failure. Paid orders are never downgraded.
func (p *paymentOrchestrator) RecordFailure(ctx context.Context, cmd RecordPaymentFailureCommand) (Order, error) {
	cmd.OrderID = strings.TrimSpace(cmd.OrderID)
	if cmd.OrderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	order, err := p.ownedOrder(ctx, cmd.OrderID, cmd.UserID)
	if err != nil {
		return Order{}, err
	}
	if order.PaymentMethod != domain.PaymentMethodGateway {
		return Order{}, fmt.Errorf("%w: order does not use gateway payment", ErrOrderInvalidTransition)
	}

	updated, changed := order, false
	if order.PaymentStatus != domain.PaymentStatusPaid {
		updated, changed, err = p.cancelForFailure(ctx, order.ID, cmd.Code, cmd.Description)
		if err != nil {
			return Order{}, err
		}
	}
	if changed {
		p.failed.Add(ctx, 1, outcomeAttrs(updated.PaymentProvider, "declined"))
	}
	p.logger(ctx, "payments.failure_reported", map[string]any{
		"orderId":     order.ID,
		"code":        strings.TrimSpace(cmd.Code),
		"description": strings.TrimSpace(cmd.Description),
		"applied":     changed,
	})
	return updated, nil
}

// RecordDismissal notes that the widget was closed; the order stays pending and retryable.
func (p *paymentOrchestrator) RecordDismissal(ctx context.Context, orderID, userID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	order, err := p.ownedOrder(ctx, orderID, userID)
	if err != nil {
		return Order{}, err
	}
	p.logger(ctx, "payments.widget_dismissed", map[string]any{"orderId": order.ID})
	return order, nil
}

// cancelForFailure moves the order to failed/cancelled unless it is paid or already cancelled.
func (p *paymentOrchestrator) cancelForFailure(ctx context.Context, orderID, code, description string) (Order, bool, error) {
	changed := false
	updated, err := p.orders.Update(ctx, orderID, func(o *domain.Order) error {
		changed = false
		if o.PaymentStatus == domain.PaymentStatusPaid {
			return repositories.ErrSkipUpdate
		}
		if o.Status == domain.OrderStatusCancelled && o.PaymentStatus == domain.PaymentStatusFailed {
			return repositories.ErrSkipUpdate
		}
		if o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusCancelled {
			return fmt.Errorf("%w: %s cannot be cancelled for payment failure", ErrOrderInvalidTransition, o.Status)
		}
		o.PaymentStatus = domain.PaymentStatusFailed
		o.Status = domain.OrderStatusCancelled
		o.UpdatedAt = p.now()
		changed = true
		return nil
	})
	if err != nil {
		return Order{}, false, mapOrderRepositoryError(err)
	}
	if changed {
		p.logger(ctx, "payments.order_cancelled", map[string]any{"orderId": orderID, "code": code, "description": description})
	}
	return updated, changed, nil
}

func (p *paymentOrchestrator) rejectVerification(ctx context.Context, order Order, cmd VerifyPaymentCommand, cause error) (Order, error) {
	p.failed.Add(ctx, 1, outcomeAttrs(order.PaymentProvider, "verification_failed"))
	p.logger(ctx, "payments.verification_failed", map[string]any{
		"orderId":        order.ID,
		"paymentId":      cmd.PaymentID,
		"gatewayOrderId": cmd.GatewayOrderID,
		"provider":       order.PaymentProvider,
		"severity":       "error",
		"error":          cause.Error(),
	})
	if _, err := p.orders.Update(ctx, order.ID, func(o *domain.Order) error {
		if o.PaymentStatus == domain.PaymentStatusPaid {
			return repositories.ErrSkipUpdate
		}
		o.PaymentStatus = domain.PaymentStatusVerificationFailed
		o.UpdatedAt = p.now()
		return nil
	}); err != nil {
		p.logger(ctx, "payments.record_verification_failure_failed", map[string]any{"orderId": order.ID, "severity": "error", "error": err.Error()})
	}
	return Order{}, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, cause)
}

func (p *paymentOrchestrator) ownedOrder(ctx context.Context, orderID, userID string) (Order, error) {
	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	if userID = strings.TrimSpace(userID); userID == "" || order.UserID != userID {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// verifiable reports whether a gateway order may still be marked paid. Orders cancelled by a widget
// failure stay verifiable since the widget allows a retry against the same gateway order. Reopening
// cancelled/failed into confirmed/paid is the one exception to monotonic status transitions: a
// captured payment always wins over an earlier reported failure.
func verifiable(order Order) bool {
	if order.PaymentMethod != domain.PaymentMethodGateway {
		return false
	}
	switch order.Status {
	case domain.OrderStatusPending:
		return true
	case domain.OrderStatusCancelled:
		return order.PaymentStatus == domain.PaymentStatusFailed
	default:
		return false
	}
}

func outcomeAttrs(provider, outcome string) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("provider", strings.ToLower(strings.TrimSpace(provider))),
		attribute.String("outcome", outcome),
	)
}
