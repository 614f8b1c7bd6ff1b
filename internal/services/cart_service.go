package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/textutil"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const maxCartLineQuantity = 10

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartItemNotFound indicates the product is not in the cart.
	ErrCartItemNotFound = errors.New("cart: item not found")
	// ErrProductUnavailable indicates the product is missing from the catalog or inactive.
	ErrProductUnavailable = errors.New("cart: product unavailable")
	// ErrCartUnavailable indicates the cart store or catalog is unavailable.
	ErrCartUnavailable = errors.New("cart: unavailable")
)

// PricedCart is the cart session with its current pricing. Warnings describe lines dropped
// since the session was saved and coupons that no longer qualify.
type PricedCart struct {
	Session  CartSession
	Pricing  PricingBreakdown
	Warnings []string
}

// AddCartItemCommand adds a product or increments its quantity.
type AddCartItemCommand struct {
	UserID          string
	ProductID       string
	Quantity        int
	SelectedOptions map[string]string
}

// UpdateCartItemCommand sets the quantity of a line; zero removes it.
type UpdateCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// CartServiceDeps wires the cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Coupons  CouponValidator
	Policy   DeliveryPolicy
	Clock    func() time.Time
	Logger   Logger
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	coupons  CouponValidator
	policy   DeliveryPolicy
	now      func() time.Time
	logger   Logger
}

// NewCartService constructs a CartService.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	coupons := deps.Coupons
	if coupons == nil {
		coupons = NewCouponValidator(nil)
	}
	policy := deps.Policy
	if policy == (DeliveryPolicy{}) {
		policy = domain.DefaultDeliveryPolicy
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		coupons:  coupons,
		policy:   policy,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GetCart returns the session re-priced against the live catalog. It does not write the session.
func (s *cartService) GetCart(ctx context.Context, userID string) (PricedCart, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return PricedCart{}, err
	}
	return s.price(ctx, session)
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (PricedCart, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return PricedCart{}, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 || cmd.Quantity > maxCartLineQuantity {
		return PricedCart{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartInvalidInput, maxCartLineQuantity)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return PricedCart{}, fmt.Errorf("%w: %s", ErrProductUnavailable, productID)
		}
		return PricedCart{}, s.mapError(err)
	}
	if !product.Active {
		return PricedCart{}, fmt.Errorf("%w: %s", ErrProductUnavailable, productID)
	}

	session, err := s.load(ctx, cmd.UserID)
	if err != nil {
		return PricedCart{}, err
	}
	options := textutil.NormalizeStringMap(cmd.SelectedOptions)
	idx := slices.IndexFunc(session.Items, func(item CartLineItem) bool { return item.ProductID == productID })
	if idx >= 0 {
		qty := session.Items[idx].Quantity + cmd.Quantity
		if qty > maxCartLineQuantity {
			return PricedCart{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartInvalidInput, maxCartLineQuantity)
		}
		session.Items[idx].Quantity = qty
		if options != nil {
			session.Items[idx].SelectedOptions = options
		}
		applyProduct(&session.Items[idx], product)
	} else {
		item := CartLineItem{ProductID: productID, Quantity: cmd.Quantity, SelectedOptions: options}
		applyProduct(&item, product)
		session.Items = append(session.Items, item)
	}
	return s.save(ctx, session)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (PricedCart, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return PricedCart{}, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 0 || cmd.Quantity > maxCartLineQuantity {
		return PricedCart{}, fmt.Errorf("%w: quantity must be between 0 and %d", ErrCartInvalidInput, maxCartLineQuantity)
	}
	if cmd.Quantity == 0 {
		return s.RemoveItem(ctx, cmd.UserID, productID)
	}
	session, err := s.load(ctx, cmd.UserID)
	if err != nil {
		return PricedCart{}, err
	}
	idx := slices.IndexFunc(session.Items, func(item CartLineItem) bool { return item.ProductID == productID })
	if idx < 0 {
		return PricedCart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}
	session.Items[idx].Quantity = cmd.Quantity
	return s.save(ctx, session)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (PricedCart, error) {
	productID = strings.TrimSpace(productID)
	session, err := s.load(ctx, userID)
	if err != nil {
		return PricedCart{}, err
	}
	before := len(session.Items)
	session.Items = slices.DeleteFunc(session.Items, func(item CartLineItem) bool { return item.ProductID == productID })
	if len(session.Items) == before {
		return PricedCart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}
	return s.save(ctx, session)
}

// ApplyCoupon validates code against the current subtotal and stores it in the session.
func (s *cartService) ApplyCoupon(ctx context.Context, userID, code string) (PricedCart, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return PricedCart{}, err
	}
	priced, err := s.price(ctx, session)
	if err != nil {
		return PricedCart{}, err
	}
	applied, err := s.coupons.Validate(code, priced.Pricing.Subtotal)
	if err != nil {
		return PricedCart{}, err
	}
	session.Coupon = &applied
	s.logger(ctx, "cart.coupon_applied", map[string]any{"userId": session.UserID, "code": applied.Code, "discount": applied.DiscountAmount})
	return s.save(ctx, session)
}

// RemoveCoupon clears the session coupon. Orders already placed keep their stored discount.
func (s *cartService) RemoveCoupon(ctx context.Context, userID string) (PricedCart, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return PricedCart{}, err
	}
	session.Coupon = nil
	return s.save(ctx, session)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if err := s.carts.Delete(ctx, userID); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *cartService) load(ctx context.Context, userID string) (CartSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CartSession{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	session, err := s.carts.Get(ctx, userID)
	if err != nil {
		return CartSession{}, s.mapError(err)
	}
	session.UserID = userID
	return session, nil
}

func (s *cartService) save(ctx context.Context, session CartSession) (PricedCart, error) {
	session.UpdatedAt = s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	saved, err := s.carts.Save(ctx, session)
	if err != nil {
		return PricedCart{}, s.mapError(err)
	}
	return s.price(ctx, saved)
}

// price refreshes line prices from the catalog, drops unavailable lines and revalidates the coupon.
func (s *cartService) price(ctx context.Context, session CartSession) (PricedCart, error) {
	result := PricedCart{Session: session}
	if len(session.Items) > 0 {
		ids := make([]string, 0, len(session.Items))
		for _, item := range session.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return PricedCart{}, s.mapError(err)
		}
		items := make([]CartLineItem, 0, len(session.Items))
		for _, item := range session.Items {
			product, ok := products[item.ProductID]
			if !ok || !product.Active {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s is no longer available and was removed", firstNonEmpty(item.Name, item.ProductID)))
				continue
			}
			applyProduct(&item, product)
			items = append(items, item)
		}
		result.Session.Items = items
	}
	result.Pricing = PriceSession(result.Session, s.coupons, s.policy)
	if result.Pricing.CouponWarning != "" {
		result.Warnings = append(result.Warnings, result.Pricing.CouponWarning)
	}
	return result, nil
}

func (s *cartService) mapError(err error) error {
	if repositories.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return err
}

func applyProduct(item *CartLineItem, product Product) {
	item.Name = product.Name
	item.UnitPrice = product.Price
	item.OriginalPrice = product.OriginalPrice
	if item.OriginalPrice < product.Price {
		item.OriginalPrice = product.Price
	}
	item.Image = product.Image
}
