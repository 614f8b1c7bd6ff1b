package services

import "strings"

// CalculatePricing computes the breakdown for a set of line items and an optional applied coupon.
// It has no side effects; identical inputs always produce identical output.
func CalculatePricing(items []CartLineItem, coupon *AppliedCoupon, policy DeliveryPolicy) PricingBreakdown {
	var breakdown PricingBreakdown
	for _, item := range items {
		qty := int64(item.Quantity)
		if qty <= 0 {
			continue
		}
		breakdown.Subtotal += item.UnitPrice * qty
		if item.OriginalPrice > item.UnitPrice {
			breakdown.Savings += (item.OriginalPrice - item.UnitPrice) * qty
		}
	}

	if coupon != nil && coupon.DiscountAmount > 0 {
		breakdown.CouponCode = strings.ToUpper(strings.TrimSpace(coupon.Code))
		breakdown.CouponDiscount = coupon.DiscountAmount
	}

	// An empty cart never pays for delivery.
	if breakdown.Subtotal > 0 && breakdown.Subtotal < policy.FreeDeliveryMinimum {
		breakdown.DeliveryFee = policy.Fee
	}

	total := breakdown.Subtotal - breakdown.CouponDiscount + breakdown.DeliveryFee
	if total < 0 {
		total = 0
	}
	breakdown.Total = total
	return breakdown
}

// PriceSession revalidates the session coupon against the current subtotal before pricing.
// A coupon that no longer qualifies is left out of the breakdown and reported as a warning.
func PriceSession(session CartSession, coupons CouponValidator, policy DeliveryPolicy) PricingBreakdown {
	base := CalculatePricing(session.Items, nil, policy)
	if session.Coupon == nil || coupons == nil {
		return base
	}
	applied, err := coupons.Validate(session.Coupon.Code, base.Subtotal)
	if err != nil {
		base.CouponWarning = err.Error()
		return base
	}
	return CalculatePricing(session.Items, &applied, policy)
}
