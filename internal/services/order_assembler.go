package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/textutil"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const (
	orderIDPrefix              = "ord_"
	maxSpecialInstructionsRune = 500
)

var (
	// ErrOrderInvalidInput indicates the order could not be assembled from the supplied data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderUnavailable indicates the order store is unavailable.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Field + " is required"
	}
	return e.Field + ": " + e.Message
}

func invalidOrder(field, message string) error {
	return fmt.Errorf("%w: %w", ErrOrderInvalidInput, &ValidationError{Field: field, Message: message})
}

// AssembleOrderCommand is everything needed to persist a pending order.
type AssembleOrderCommand struct {
	UserID              string
	Address             Address
	Items               []CartLineItem
	Pricing             PricingBreakdown
	Shipping            ShippingRateOption
	PaymentMethod       domain.PaymentMethod
	SpecialInstructions string
}

// OrderAssemblerDeps wires the order assembler.
type OrderAssemblerDeps struct {
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type orderAssembler struct {
	orders repositories.OrderRepository
	now    func() time.Time
	newID  func() string
	logger Logger
}

// NewOrderAssembler constructs an OrderAssembler.
func NewOrderAssembler(deps OrderAssemblerDeps) (OrderAssembler, error) {
	if deps.Orders == nil {
		return nil, errors.New("order assembler: order repository is required")
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
	return &orderAssembler{
		orders: deps.Orders,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Assemble validates the command and inserts exactly one order in pending/pending.
// Line items are copied so later catalog or cart edits never reach the stored order.
func (a *orderAssembler) Assemble(ctx context.Context, cmd AssembleOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, invalidOrder("userId", "")
	}
	items, err := snapshotItems(cmd.Items)
	if err != nil {
		return Order{}, err
	}
	address, err := normaliseOrderAddress(cmd.Address)
	if err != nil {
		return Order{}, err
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodGateway, domain.PaymentMethodCOD:
	default:
		return Order{}, invalidOrder("paymentMethod", fmt.Sprintf("unsupported method %q", cmd.PaymentMethod))
	}

	pricing := cmd.Pricing
	if subtotal := CalculatePricing(items, nil, DeliveryPolicy{}).Subtotal; subtotal != pricing.Subtotal {
		return Order{}, invalidOrder("pricing", fmt.Sprintf("subtotal %d does not match items %d", pricing.Subtotal, subtotal))
	}
	if pricing.CouponDiscount < 0 || pricing.DeliveryFee < 0 {
		return Order{}, invalidOrder("pricing", "amounts must not be negative")
	}
	total := pricing.Subtotal - pricing.CouponDiscount + pricing.DeliveryFee
	if total < 0 {
		total = 0
	}

	instructions := strings.TrimSpace(cmd.SpecialInstructions)
	if utf8.RuneCountInString(instructions) > maxSpecialInstructionsRune {
		return Order{}, invalidOrder("specialInstructions", fmt.Sprintf("must be at most %d characters", maxSpecialInstructionsRune))
	}

	now := a.now()
	order := Order{
		ID:                  orderIDPrefix + a.newID(),
		UserID:              userID,
		Items:               items,
		Subtotal:            pricing.Subtotal,
		DeliveryFee:         pricing.DeliveryFee,
		CouponCode:          pricing.CouponCode,
		CouponDiscount:      pricing.CouponDiscount,
		Total:               total,
		ShippingAddress:     address,
		ShippingCourier:     strings.TrimSpace(cmd.Shipping.CourierName),
		PaymentMethod:       cmd.PaymentMethod,
		PaymentStatus:       domain.PaymentStatusPending,
		Status:              domain.OrderStatusPending,
		SpecialInstructions: instructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if order.CouponDiscount == 0 {
		order.CouponCode = ""
	}

	if err := a.orders.Insert(ctx, order); err != nil {
		if repositories.IsUnavailable(err) {
			return Order{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
		return Order{}, fmt.Errorf("order: insert: %w", err)
	}
	a.logger(ctx, "orders.created", map[string]any{
		"orderId":       order.ID,
		"userId":        userID,
		"total":         order.Total,
		"paymentMethod": string(order.PaymentMethod),
	})
	return order, nil
}

func snapshotItems(items []CartLineItem) ([]CartLineItem, error) {
	if len(items) == 0 {
		return nil, invalidOrder("items", "at least one item is required")
	}
	out := make([]CartLineItem, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, invalidOrder(field+".productId", "")
		}
		if item.Quantity < 1 {
			return nil, invalidOrder(field+".quantity", "must be at least 1")
		}
		if item.UnitPrice < 0 {
			return nil, invalidOrder(field+".unitPrice", "must not be negative")
		}
		out = append(out, CartLineItem{
			ProductID:       strings.TrimSpace(item.ProductID),
			Name:            strings.TrimSpace(item.Name),
			UnitPrice:       item.UnitPrice,
			OriginalPrice:   item.OriginalPrice,
			Quantity:        item.Quantity,
			SelectedOptions: textutil.NormalizeStringMap(item.SelectedOptions),
			Image:           strings.TrimSpace(item.Image),
		})
	}
	return out, nil
}

func normaliseOrderAddress(addr Address) (Address, error) {
	out := Address{
		FullName:     strings.TrimSpace(addr.FullName),
		Phone:        strings.TrimSpace(addr.Phone),
		Email:        strings.TrimSpace(addr.Email),
		AddressLine1: strings.TrimSpace(addr.AddressLine1),
		AddressLine2: textutil.OptionalString(addr.AddressLine2),
		City:         strings.TrimSpace(addr.City),
		State:        strings.TrimSpace(addr.State),
		Pincode:      strings.TrimSpace(addr.Pincode),
		Type:         addr.Type,
		IsDefault:    addr.IsDefault,
	}
	required := []struct {
		field string
		value string
	}{
		{"shippingAddress.fullName", out.FullName},
		{"shippingAddress.phone", out.Phone},
		{"shippingAddress.addressLine1", out.AddressLine1},
		{"shippingAddress.city", out.City},
		{"shippingAddress.state", out.State},
		{"shippingAddress.pincode", out.Pincode},
	}
	for _, r := range required {
		if r.value == "" {
			return Address{}, invalidOrder(r.field, "")
		}
	}
	if err := ValidatePincode(out.Pincode); err != nil {
		return Address{}, invalidOrder("shippingAddress.pincode", "must be 6 digits")
	}
	switch out.Type {
	case "":
		out.Type = domain.AddressTypeHome
	case domain.AddressTypeHome, domain.AddressTypeOffice, domain.AddressTypeOther:
	default:
		return Address{}, invalidOrder("shippingAddress.type", fmt.Sprintf("unsupported type %q", out.Type))
	}
	return out, nil
}
