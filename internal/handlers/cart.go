package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

// CartHandlers exposes authenticated cart session endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

const maxCartBodySize = 16 * 1024

// NewCartHandlers constructs handlers enforcing Firebase authentication before invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the cart endpoints onto the API root.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r = r.With(h.authn.RequireFirebaseAuth())
	}
	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{productId}", h.updateItem)
	r.Delete("/cart/items/{productId}", h.removeItem)
	r.Post("/cart:apply-coupon", h.applyCoupon)
	r.Delete("/cart/coupon", h.removeCoupon)
}

type addCartItemRequest struct {
	ProductID       string            `json:"productId"`
	Quantity        *int              `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.GetCart(ctx, uid)
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeJSONBody(r.Context(), w, r, maxCartBodySize, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.AddItem(ctx, services.AddCartItemCommand{
			UserID:          uid,
			ProductID:       req.ProductID,
			Quantity:        quantity,
			SelectedOptions: req.SelectedOptions,
		})
	})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decodeJSONBody(r.Context(), w, r, maxCartBodySize, &req) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemCommand{
			UserID:    uid,
			ProductID: productID,
			Quantity:  *req.Quantity,
		})
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.RemoveItem(ctx, uid, productID)
	})
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if !decodeJSONBody(r.Context(), w, r, maxCartBodySize, &req) {
		return
	}
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.ApplyCoupon(ctx, uid, req.Code)
	})
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, uid string) (services.PricedCart, error) {
		return h.carts.RemoveCoupon(ctx, uid)
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if err := h.carts.Clear(ctx, identity.UID); err != nil {
		writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) serve(w http.ResponseWriter, r *http.Request, call func(ctx context.Context, uid string) (services.PricedCart, error)) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	cart, err := call(ctx, identity.UID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w, cart)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	var minErr *services.MinimumOrderError
	switch {
	case errors.As(err, &minErr):
		httpx.WriteError(ctx, w, httpx.NewError("minimum_order_not_met", minErr.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"minimumOrder": minErr.Minimum}))
	case errors.Is(err, services.ErrInvalidCoupon):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_coupon", "coupon code is not valid", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "item is not in the cart", http.StatusNotFound))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is not available", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

func setCartResponseHeaders(w http.ResponseWriter, cart services.PricedCart) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !cart.Session.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", cart.Session.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(cart); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func buildCartETag(cart services.PricedCart) string {
	if strings.TrimSpace(cart.Session.UserID) == "" || cart.Session.UpdatedAt.IsZero() {
		return ""
	}
	input := fmt.Sprintf("%s:%d:%d", cart.Session.UserID, cart.Session.UpdatedAt.UTC().UnixNano(), cart.Pricing.Total)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(sum[:8]))
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	UserID     string            `json:"userId"`
	ItemsCount int               `json:"itemsCount"`
	Items      []lineItemPayload `json:"items"`
	Coupon     *couponPayload    `json:"coupon,omitempty"`
	Pricing    pricingPayload    `json:"pricing"`
	Warnings   []string          `json:"warnings,omitempty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

type lineItemPayload struct {
	ProductID       string            `json:"productId"`
	Name            string            `json:"name"`
	UnitPrice       int64             `json:"unitPrice"`
	OriginalPrice   int64             `json:"originalPrice,omitempty"`
	Quantity        int               `json:"quantity"`
	LineTotal       int64             `json:"lineTotal"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
	Image           string            `json:"image,omitempty"`
}

type couponPayload struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discountAmount"`
}

type pricingPayload struct {
	Subtotal       int64  `json:"subtotal"`
	Savings        int64  `json:"savings"`
	CouponCode     string `json:"couponCode,omitempty"`
	CouponDiscount int64  `json:"couponDiscount"`
	DeliveryFee    int64  `json:"deliveryFee"`
	Total          int64  `json:"total"`
	CouponWarning  string `json:"couponWarning,omitempty"`
}

func buildCartPayload(cart services.PricedCart) cartPayload {
	payload := cartPayload{
		UserID:     cart.Session.UserID,
		ItemsCount: len(cart.Session.Items),
		Items:      buildLineItems(cart.Session.Items),
		Pricing:    buildPricingPayload(cart.Pricing),
		Warnings:   cart.Warnings,
		UpdatedAt:  formatTime(cart.Session.UpdatedAt),
	}
	if cart.Session.Coupon != nil {
		payload.Coupon = &couponPayload{Code: cart.Session.Coupon.Code, DiscountAmount: cart.Pricing.CouponDiscount}
	}
	return payload
}

func buildLineItems(items []services.CartLineItem) []lineItemPayload {
	out := make([]lineItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemPayload{
			ProductID:       item.ProductID,
			Name:            item.Name,
			UnitPrice:       item.UnitPrice,
			OriginalPrice:   item.OriginalPrice,
			Quantity:        item.Quantity,
			LineTotal:       item.UnitPrice * int64(item.Quantity),
			SelectedOptions: item.SelectedOptions,
			Image:           item.Image,
		})
	}
	return out
}

func buildPricingPayload(p services.PricingBreakdown) pricingPayload {
	return pricingPayload{
		Subtotal:       p.Subtotal,
		Savings:        p.Savings,
		CouponCode:     p.CouponCode,
		CouponDiscount: p.CouponDiscount,
		DeliveryFee:    p.DeliveryFee,
		Total:          p.Total,
		CouponWarning:  p.CouponWarning,
	}
}
