package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/cache"
)

const defaultCheckoutLockTTL = 30 * time.Second

var (
	// ErrCheckoutInProgress indicates another checkout for the same user holds the lock.
	ErrCheckoutInProgress = errors.New("checkout: another checkout is in progress")
	// ErrCheckoutCartEmpty indicates there is nothing to order.
	ErrCheckoutCartEmpty = errors.New("checkout: cart is empty")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// PlaceOrderCommand is the checkout form submission.
type PlaceOrderCommand struct {
	UserID              string
	Address             Address
	CourierName         string
	PaymentMethod       domain.PaymentMethod
	PreferredProvider   string
	SpecialInstructions string
}

// PlaceOrderResult is the placed order plus, for gateway payments, the widget options.
// On ErrGatewayInitiation Order holds the cancelled order.
type PlaceOrderResult struct {
	Order    Order
	Payment  *WidgetOptions
	Shipping ShippingQuote
	Warnings []string
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts     CartService
	Shipping  ShippingResolver
	Assembler OrderAssembler
	Payments  PaymentOrchestrator
	Locker    cache.Locker
	LockTTL   time.Duration
	Logger    Logger
}

type checkoutService struct {
	carts     CartService
	shipping  ShippingResolver
	assembler OrderAssembler
	payments  PaymentOrchestrator
	locker    cache.Locker
	lockTTL   time.Duration
	logger    Logger
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("checkout service: cart service is required")
	case deps.Shipping == nil:
		return nil, errors.New("checkout service: shipping resolver is required")
	case deps.Assembler == nil:
		return nil, errors.New("checkout service: order assembler is required")
	case deps.Payments == nil:
		return nil, errors.New("checkout service: payment orchestrator is required")
	case deps.Locker == nil:
		return nil, errors.New("checkout service: locker is required")
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = defaultCheckoutLockTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &checkoutService{
		carts:     deps.Carts,
		shipping:  deps.Shipping,
		assembler: deps.Assembler,
		payments:  deps.Payments,
		locker:    deps.Locker,
		lockTTL:   ttl,
		logger:    logger,
	}, nil
}

func (s *checkoutService) QuoteShipping(ctx context.Context, pincode string) (ShippingQuote, error) {
	return s.shipping.Resolve(ctx, pincode)
}

// PlaceOrder prices the cart, resolves shipping, persists a pending order and, for gateway payments,
// creates the gateway order. The per-user lock covers assembly and gateway order creation.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (PlaceOrderResult, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return PlaceOrderResult{}, invalidOrder("userId", "")
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodGateway, domain.PaymentMethodCOD:
	default:
		return PlaceOrderResult{}, invalidOrder("paymentMethod", fmt.Sprintf("unsupported method %q", cmd.PaymentMethod))
	}
	if err := ValidatePincode(strings.TrimSpace(cmd.Address.Pincode)); err != nil {
		return PlaceOrderResult{}, err
	}

	lease, err := s.locker.Acquire(ctx, "checkout:user:"+userID, s.lockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return PlaceOrderResult{}, ErrCheckoutInProgress
		}
		return PlaceOrderResult{}, fmt.Errorf("%w: acquire lock: %v", ErrCheckoutUnavailable, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger(ctx, "checkout.lock_release_failed", map[string]any{"userId": userID, "error": err.Error()})
		}
	}()

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if len(cart.Session.Items) == 0 {
		return PlaceOrderResult{}, fmt.Errorf("%w: %w", ErrOrderInvalidInput, ErrCheckoutCartEmpty)
	}

	quote, err := s.shipping.Resolve(ctx, strings.TrimSpace(cmd.Address.Pincode))
	if err != nil {
		return PlaceOrderResult{}, err
	}
	option, err := s.shipping.Select(quote, cmd.CourierName)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	order, err := s.assembler.Assemble(ctx, AssembleOrderCommand{
		UserID:              userID,
		Address:             cmd.Address,
		Items:               cart.Session.Items,
		Pricing:             cart.Pricing,
		Shipping:            option,
		PaymentMethod:       cmd.PaymentMethod,
		SpecialInstructions: cmd.SpecialInstructions,
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}

	result := PlaceOrderResult{Order: order, Shipping: quote, Warnings: cart.Warnings}
	if quote.Warning != "" {
		result.Warnings = append(result.Warnings, quote.Warning)
	}

	if order.PaymentMethod == domain.PaymentMethodCOD {
		s.payments.CompleteCashOnDelivery(ctx, order)
		return result, nil
	}

	widget, err := s.payments.InitiatePayment(ctx, InitiatePaymentCommand{Order: order, PreferredProvider: cmd.PreferredProvider})
	if err != nil {
		if errors.Is(err, ErrGatewayInitiation) {
			result.Order.Status = domain.OrderStatusCancelled
			result.Order.PaymentStatus = domain.PaymentStatusFailed
		}
		return result, err
	}
	transactionID := widget.GatewayOrderID
	result.Order.PaymentTransactionID = &transactionID
	result.Order.PaymentProvider = widget.Provider
	result.Payment = &widget
	return result, nil
}
