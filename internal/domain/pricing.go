package domain

// DeliveryPolicy is the flat delivery fee waived at or above a subtotal threshold.
type DeliveryPolicy struct {
	Fee                 int64
	FreeDeliveryMinimum int64
}

// DefaultDeliveryPolicy charges 49 below a subtotal of 500.
var DefaultDeliveryPolicy = DeliveryPolicy{Fee: 49, FreeDeliveryMinimum: 500}

// PricingBreakdown captures the monetary results of pricing a cart session.
type PricingBreakdown struct {
	Subtotal       int64
	Savings        int64
	CouponCode     string
	CouponDiscount int64
	DeliveryFee    int64
	Total          int64
	CouponWarning  string
}

// ShippingQuote is the resolved serviceability and courier options for a pincode.
type ShippingQuote struct {
	Pincode     string
	Serviceable bool
	Warning     string
	Options     []ShippingRateOption
	Selected    ShippingRateOption
}
