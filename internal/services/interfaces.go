package services

import (
	"context"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Address            = domain.Address
	AppliedCoupon      = domain.AppliedCoupon
	CartLineItem       = domain.CartLineItem
	CartSession        = domain.CartSession
	CorporateInquiry   = domain.CorporateInquiry
	DeliveryPolicy     = domain.DeliveryPolicy
	HealthReport       = domain.HealthReport
	Notification       = domain.Notification
	Order              = domain.Order
	PricingBreakdown   = domain.PricingBreakdown
	Product            = domain.Product
	ShippingQuote      = domain.ShippingQuote
	ShippingRateOption = domain.ShippingRateOption
	UserProfile        = domain.UserProfile
)

// Logger is the structured event hook every service accepts.
type Logger func(ctx context.Context, event string, fields map[string]any)

func nopLogger(context.Context, string, map[string]any) {}

// CouponValidator decides coupon eligibility against a subtotal.
type CouponValidator interface {
	Validate(code string, subtotal int64) (AppliedCoupon, error)
}

// ShippingResolver resolves serviceability and courier options for a destination pincode.
type ShippingResolver interface {
	Resolve(ctx context.Context, pincode string) (ShippingQuote, error)
	Select(quote ShippingQuote, courierName string) (ShippingRateOption, error)
}

// OrderAssembler turns a priced cart into a persisted pending order.
type OrderAssembler interface {
	Assemble(ctx context.Context, cmd AssembleOrderCommand) (Order, error)
}

// PaymentOrchestrator drives the gateway handshake and reconciles its outcome onto the order.
type PaymentOrchestrator interface {
	InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (WidgetOptions, error)
	VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) (Order, error)
	RecordFailure(ctx context.Context, cmd RecordPaymentFailureCommand) (Order, error)
	RecordDismissal(ctx context.Context, orderID, userID string) (Order, error)
	CompleteCashOnDelivery(ctx context.Context, order Order)
}

// NotificationDispatcher hands notifications to the outbound queue and delivers them on the worker side.
type NotificationDispatcher interface {
	// Submit never fails the caller; queue errors are logged.
	Submit(ctx context.Context, notification Notification)
	Deliver(ctx context.Context, notification Notification) error
}

// CartService owns every write to the cart session.
type CartService interface {
	GetCart(ctx context.Context, userID string) (PricedCart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (PricedCart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (PricedCart, error)
	RemoveItem(ctx context.Context, userID, productID string) (PricedCart, error)
	ApplyCoupon(ctx context.Context, userID, code string) (PricedCart, error)
	RemoveCoupon(ctx context.Context, userID string) (PricedCart, error)
	Clear(ctx context.Context, userID string) error
}

// CheckoutService places orders from the caller's cart session.
type CheckoutService interface {
	QuoteShipping(ctx context.Context, pincode string) (ShippingQuote, error)
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (PlaceOrderResult, error)
}

// OrderService covers order history, the admin back office and invoicing.
type OrderService interface {
	ListOrders(ctx context.Context, userID string, page pagination.Params) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID, userID string) (Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, page pagination.Params) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	ApplyShippingEvent(ctx context.Context, cmd ShippingEventCommand) (Order, error)
	RequestInvoice(ctx context.Context, orderID, userID string) (InvoiceResult, error)
}

// InquiryService manages corporate bulk-purchase inquiries.
type InquiryService interface {
	Submit(ctx context.Context, cmd SubmitInquiryCommand) (CorporateInquiry, error)
	List(ctx context.Context, status domain.InquiryStatus, page pagination.Params) (domain.CursorPage[CorporateInquiry], error)
	Update(ctx context.Context, cmd UpdateInquiryCommand) (CorporateInquiry, error)
}

// AccountService records registrations and issues password reset notifications.
type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (UserProfile, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// SystemService exposes operational reports.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
