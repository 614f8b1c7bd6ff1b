package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoupon indicates the code is not in the coupon table.
	ErrInvalidCoupon = errors.New("coupon: invalid code")
	// ErrMinimumOrderNotMet indicates the subtotal is below the coupon minimum.
	ErrMinimumOrderNotMet = errors.New("coupon: minimum order not met")
)

// MinimumOrderError carries the minimum the subtotal failed to reach.
type MinimumOrderError struct {
	Code     string
	Minimum  int64
	Subtotal int64
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order of ₹%d required for %s", e.Minimum, e.Code)
}

// Is lets errors.Is match ErrMinimumOrderNotMet.
func (e *MinimumOrderError) Is(target error) bool {
	return target == ErrMinimumOrderNotMet
}

// DiscountKind is how a coupon reduces the subtotal.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFlat    DiscountKind = "flat"
)

// CouponRule is one row of the coupon table. Percent values are fractions, e.g. 0.10.
type CouponRule struct {
	Kind     DiscountKind
	Value    decimal.Decimal
	MinOrder int64
}

// DefaultCouponRules is the storefront coupon table.
func DefaultCouponRules() map[string]CouponRule {
	return map[string]CouponRule{
		"SAVE10":  {Kind: DiscountPercent, Value: decimal.RequireFromString("0.10")},
		"FIRST20": {Kind: DiscountPercent, Value: decimal.RequireFromString("0.20"), MinOrder: 1000},
		"FLAT500": {Kind: DiscountFlat, Value: decimal.NewFromInt(500), MinOrder: 2000},
	}
}

type couponValidator struct {
	rules map[string]CouponRule
}

// NewCouponValidator builds a validator over rules; nil selects DefaultCouponRules.
func NewCouponValidator(rules map[string]CouponRule) CouponValidator {
	if rules == nil {
		rules = DefaultCouponRules()
	}
	normalised := make(map[string]CouponRule, len(rules))
	for code, rule := range rules {
		normalised[normaliseCouponCode(code)] = rule
	}
	return &couponValidator{rules: normalised}
}

// Validate returns a complete AppliedCoupon or an error, never a partial discount.
func (v *couponValidator) Validate(code string, subtotal int64) (AppliedCoupon, error) {
	code = normaliseCouponCode(code)
	rule, ok := v.rules[code]
	if code == "" || !ok {
		return AppliedCoupon{}, fmt.Errorf("%w: %q", ErrInvalidCoupon, code)
	}
	if subtotal < rule.MinOrder {
		return AppliedCoupon{}, &MinimumOrderError{Code: code, Minimum: rule.MinOrder, Subtotal: subtotal}
	}

	var discount int64
	switch rule.Kind {
	case DiscountPercent:
		// decimal.Round rounds half away from zero.
		discount = decimal.NewFromInt(subtotal).Mul(rule.Value).Round(0).IntPart()
	case DiscountFlat:
		discount = rule.Value.Round(0).IntPart()
	default:
		return AppliedCoupon{}, fmt.Errorf("%w: %q", ErrInvalidCoupon, code)
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return AppliedCoupon{Code: code, DiscountAmount: discount}, nil
}

func normaliseCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
