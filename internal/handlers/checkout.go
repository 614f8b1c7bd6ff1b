package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes order placement, shipping quotes and payment widget callbacks.
type CheckoutHandlers struct {
	authn       *auth.Authenticator
	checkout    services.CheckoutService
	payments    services.PaymentOrchestrator
	idempotency func(http.Handler) http.Handler
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*CheckoutHandlers)

// WithCheckoutIdempotency wraps order placement so an Idempotency-Key replays the first response.
func WithCheckoutIdempotency(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.idempotency = mw
	}
}

// NewCheckoutHandlers constructs checkout handlers guarded by Firebase authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, payments services.PaymentOrchestrator, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
		payments: payments,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	place := r
	if h.idempotency != nil {
		place = r.With(h.idempotency)
	}
	place.Post("/orders", h.placeOrder)
	r.Post("/orders/{orderId}:verify", h.verifyPayment)
	r.Post("/orders/{orderId}:payment-failed", h.recordFailure)
	r.Post("/orders/{orderId}:payment-dismissed", h.recordDismissal)
}

// ShippingRoutes registers /shipping endpoints. Quotes need no account.
func (h *CheckoutHandlers) ShippingRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quotes", h.quoteShipping)
}

type shippingQuoteRequest struct {
	Pincode string `json:"pincode"`
}

type shippingOptionPayload struct {
	CourierName           string `json:"courierName"`
	Rate                  int64  `json:"rate"`
	EstimatedDeliveryDays int    `json:"estimatedDeliveryDays"`
}

type shippingQuotePayload struct {
	Pincode     string                  `json:"pincode"`
	Serviceable bool                    `json:"serviceable"`
	Warning     string                  `json:"warning,omitempty"`
	Options     []shippingOptionPayload `json:"options"`
	Selected    *shippingOptionPayload  `json:"selected,omitempty"`
}

type placeOrderRequest struct {
	Address             addressPayload `json:"address"`
	CourierName         string         `json:"courierName"`
	PaymentMethod       string         `json:"paymentMethod"`
	Provider            string         `json:"provider"`
	SpecialInstructions string         `json:"specialInstructions"`
}

type widgetPrefillPayload struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type widgetPayload struct {
	Provider       string               `json:"provider"`
	KeyID          string               `json:"key,omitempty"`
	GatewayOrderID string               `json:"gatewayOrderId"`
	OrderID        string               `json:"orderId"`
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
	Name           string               `json:"name,omitempty"`
	Description    string               `json:"description,omitempty"`
	ClientSecret   string               `json:"clientSecret,omitempty"`
	Prefill        widgetPrefillPayload `json:"prefill"`
}

type placeOrderResponse struct {
	Order    orderPayload         `json:"order"`
	Payment  *widgetPayload       `json:"payment,omitempty"`
	Shipping shippingQuotePayload `json:"shipping"`
	Warnings []string             `json:"warnings,omitempty"`
}

type verifyPaymentRequest struct {
	PaymentID      string `json:"paymentId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Signature      string `json:"signature"`
}

type paymentFailureRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *CheckoutHandlers) quoteShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req shippingQuoteRequest
	if !decodeJSONBody(ctx, w, r, maxCheckoutRequestBody, &req) {
		return
	}
	quote, err := h.checkout.QuoteShipping(ctx, strings.TrimSpace(req.Pincode))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"quote": buildShippingQuotePayload(quote)})
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !decodeJSONBody(ctx, w, r, maxCheckoutRequestBody, &req) {
		return
	}

	result, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:              identity.UID,
		Address:             req.Address.toAddress(),
		CourierName:         req.CourierName,
		PaymentMethod:       domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		PreferredProvider:   req.Provider,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		if errors.Is(err, services.ErrGatewayInitiation) && result.Order.ID != "" {
			httpx.WriteError(ctx, w, httpx.NewError("payment_initiation_failed", "payment could not be started; the order was cancelled", http.StatusBadGateway).
				WithDetails(map[string]any{"orderId": result.Order.ID, "orderStatus": string(result.Order.Status)}))
			return
		}
		writeCheckoutError(ctx, w, err)
		return
	}

	resp := placeOrderResponse{
		Order:    buildOrderPayload(result.Order),
		Shipping: buildShippingQuotePayload(result.Shipping),
		Warnings: result.Warnings,
	}
	if result.Payment != nil {
		resp.Payment = buildWidgetPayload(*result.Payment)
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}

func (h *CheckoutHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if !decodeJSONBody(ctx, w, r, maxCheckoutRequestBody, &req) {
		return
	}
	order, err := h.payments.VerifyPayment(ctx, services.VerifyPaymentCommand{
		OrderID:        strings.TrimSpace(chi.URLParam(r, "orderId")),
		UserID:         identity.UID,
		PaymentID:      req.PaymentID,
		GatewayOrderID: req.GatewayOrderID,
		Signature:      req.Signature,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) recordFailure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req paymentFailureRequest
	if body, err := readLimitedBody(r, maxCheckoutRequestBody); err == nil {
		if !decodeBytes(ctx, w, body, &req) {
			return
		}
	} else if !errors.Is(err, errEmptyBody) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	order, err := h.payments.RecordFailure(ctx, services.RecordPaymentFailureCommand{
		OrderID:     strings.TrimSpace(chi.URLParam(r, "orderId")),
		UserID:      identity.UID,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) recordDismissal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	order, err := h.payments.RecordDismissal(ctx, strings.TrimSpace(chi.URLParam(r, "orderId")), identity.UID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInProgress):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_in_progress", "another checkout is in progress", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrInvalidPincode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pincode must be 6 digits", http.StatusBadRequest))
	case errors.Is(err, services.ErrNotServiceable):
		httpx.WriteError(ctx, w, httpx.NewError("not_serviceable", "delivery is not available to this pincode", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrNoShippingAvailable):
		httpx.WriteError(ctx, w, httpx.NewError("no_shipping_available", "no couriers are available for this pincode", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCourierNotOffered):
		httpx.WriteError(ctx, w, httpx.NewError("courier_not_offered", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping rates unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrGatewayInitiation):
		httpx.WriteError(ctx, w, httpx.NewError("payment_initiation_failed", "payment could not be started", http.StatusBadGateway))
	case errors.Is(err, services.ErrCartInvalidInput), errors.Is(err, services.ErrCartUnavailable),
		errors.Is(err, services.ErrInvalidCoupon), errors.Is(err, services.ErrMinimumOrderNotMet),
		errors.Is(err, services.ErrProductUnavailable):
		writeCartError(ctx, w, err)
	default:
		writeOrderError(ctx, w, err)
	}
}

func buildShippingQuotePayload(quote services.ShippingQuote) shippingQuotePayload {
	payload := shippingQuotePayload{
		Pincode:     quote.Pincode,
		Serviceable: quote.Serviceable,
		Warning:     quote.Warning,
		Options:     make([]shippingOptionPayload, 0, len(quote.Options)),
	}
	for _, opt := range quote.Options {
		payload.Options = append(payload.Options, shippingOptionPayload(opt))
	}
	if quote.Selected.CourierName != "" {
		selected := shippingOptionPayload(quote.Selected)
		payload.Selected = &selected
	}
	return payload
}

func buildWidgetPayload(widget services.WidgetOptions) *widgetPayload {
	return &widgetPayload{
		Provider:       widget.Provider,
		KeyID:          widget.KeyID,
		GatewayOrderID: widget.GatewayOrderID,
		OrderID:        widget.OrderID,
		Amount:         widget.Amount,
		Currency:       widget.Currency,
		Name:           widget.Name,
		Description:    widget.Description,
		ClientSecret:   widget.ClientSecret,
		Prefill:        widgetPrefillPayload(widget.Prefill),
	}
}
