package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results with the token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// AddressType classifies a delivery address.
type AddressType string

const (
	AddressTypeHome   AddressType = "home"
	AddressTypeOffice AddressType = "office"
	AddressTypeOther  AddressType = "other"
)

// Address is a delivery address owned by a profile or embedded as an order snapshot.
type Address struct {
	FullName     string
	Phone        string
	Email        string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	Pincode      string
	Type         AddressType
	IsDefault    bool
}

// CartLineItem is a single product entry in a cart session or an order snapshot.
type CartLineItem struct {
	ProductID       string
	Name            string
	UnitPrice       int64
	OriginalPrice   int64
	Quantity        int
	SelectedOptions map[string]string
	Image           string
}

// AppliedCoupon records the coupon held by a cart session.
type AppliedCoupon struct {
	Code           string
	DiscountAmount int64
}

// CartSession is the explicit per-user checkout session state.
type CartSession struct {
	UserID          string
	Items           []CartLineItem
	Coupon          *AppliedCoupon
	SelectedCourier string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Product is the catalog record used to resolve cart prices and order snapshots.
type Product struct {
	ID            string
	Name          string
	Price         int64
	OriginalPrice int64
	Image         string
	Active        bool
	UpdatedAt     time.Time
}

// ShippingRateOption is a courier quote for a destination pincode.
type ShippingRateOption struct {
	CourierName           string
	Rate                  int64
	EstimatedDeliveryDays int
}

// PaymentMethod identifies how the customer pays for an order.
type PaymentMethod string

const (
	// PaymentMethodGateway routes payment through an online payment gateway.
	PaymentMethodGateway PaymentMethod = "gateway"
	// PaymentMethodCOD collects payment on delivery.
	PaymentMethodCOD PaymentMethod = "cod"
)

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "pending"
	PaymentStatusPaid               PaymentStatus = "paid"
	PaymentStatusFailed             PaymentStatus = "failed"
	PaymentStatusVerificationFailed PaymentStatus = "verification_failed"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was created and awaits payment or fulfilment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates payment was verified.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the order is being packed.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order was handed to the courier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the courier reported delivery.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled by payment failure or an operator.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusPaymentFailed is accepted when reading historical orders.
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

// Order is the central checkout aggregate.
type Order struct {
	ID                   string
	UserID               string
	Items                []CartLineItem
	Subtotal             int64
	DeliveryFee          int64
	CouponCode           string
	CouponDiscount       int64
	Total                int64
	ShippingAddress      Address
	ShippingCourier      string
	PaymentMethod        PaymentMethod
	PaymentStatus        PaymentStatus
	Status               OrderStatus
	PaymentProvider      string
	PaymentTransactionID *string
	PaymentID            *string
	TrackingID           *string
	ExternalInvoiceID    *string
	InvoiceURL           *string
	SpecialInstructions  string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InquiryStatus tracks how far sales has progressed with a corporate inquiry.
type InquiryStatus string

const (
	InquiryStatusPending   InquiryStatus = "pending"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusQuoted    InquiryStatus = "quoted"
	InquiryStatusClosed    InquiryStatus = "closed"
)

// CorporateInquiry is a bulk-purchase request submitted by a company.
type CorporateInquiry struct {
	ID               string
	CompanyName      string
	ContactPerson    string
	ContactEmail     string
	ContactPhone     string
	InquiryDetails   string
	EstimatedBudget  string
	RequiredProducts []string
	Status           InquiryStatus
	SpecialPricing   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserProfile stores the account details captured at registration.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Phone       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NotificationKind enumerates the messages the dispatcher knows how to render.
type NotificationKind string

const (
	NotificationOrderConfirmed      NotificationKind = "order_confirmed"
	NotificationShipmentUpdate      NotificationKind = "shipment_update"
	NotificationWelcome             NotificationKind = "welcome"
	NotificationPasswordReset       NotificationKind = "password_reset"
	NotificationCorporateInquiryAck NotificationKind = "corporate_inquiry_ack"
)

// Notification is the one-way message handed to the outbound notification queue.
type Notification struct {
	ID          string            `json:"id"`
	Kind        NotificationKind  `json:"kind"`
	OrderID     string            `json:"orderId,omitempty"`
	UserID      string            `json:"userId,omitempty"`
	InquiryID   string            `json:"inquiryId,omitempty"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// HealthStatus summarises the readiness of a dependency or the whole service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// HealthCheck is the outcome of probing a single dependency.
type HealthCheck struct {
	Status    HealthStatus
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency checks.
type HealthReport struct {
	Status      HealthStatus
	Checks      map[string]HealthCheck
	GeneratedAt time.Time
}
