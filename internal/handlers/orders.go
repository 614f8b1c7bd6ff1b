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
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

// OrderHandlers exposes the caller's order history and invoice requests.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs order handlers guarded by Firebase authentication.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderId}", h.getOrder)
	r.Post("/{orderId}:request-invoice", h.requestInvoice)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	page, ok := parsePage(ctx, w, r)
	if !ok {
		return
	}

	result, err := h.orders.ListOrders(ctx, identity.UID, page)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderList(result))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, strings.TrimSpace(chi.URLParam(r, "orderId")), identity.UID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type invoiceResponse struct {
	Order        orderPayload `json:"order"`
	InvoiceID    string       `json:"invoiceId"`
	InvoiceURL   string       `json:"invoiceUrl,omitempty"`
	PDFURL       string       `json:"pdfUrl,omitempty"`
	PDFExpiresAt string       `json:"pdfExpiresAt,omitempty"`
}

func (h *OrderHandlers) requestInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	result, err := h.orders.RequestInvoice(ctx, strings.TrimSpace(chi.URLParam(r, "orderId")), identity.UID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, invoiceResponse{
		Order:        buildOrderPayload(result.Order),
		InvoiceID:    result.InvoiceID,
		InvoiceURL:   result.InvoiceURL,
		PDFURL:       result.PDFURL,
		PDFExpiresAt: formatTime(result.PDFExpiresAt),
	})
}

func parsePage(ctx context.Context, w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return pagination.Params{}, false
	}
	return page, true
}

// writeOrderError maps order and payment errors onto HTTP responses.
func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", validation.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"field": validation.Field}))
	case errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order changed concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrInvoiceNotAvailable):
		httpx.WriteError(ctx, w, httpx.NewError("invoice_not_available", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentVerificationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_verification_failed", "payment could not be verified; contact support", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrPaymentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment gateway unavailable; retry", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrInvoicingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("invoicing_unavailable", "invoicing unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type addressPayload struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Type         string `json:"type,omitempty"`
	IsDefault    bool   `json:"isDefault,omitempty"`
}

type orderPayload struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"userId"`
	Items                []lineItemPayload `json:"items"`
	Subtotal             int64             `json:"subtotal"`
	DeliveryFee          int64             `json:"deliveryFee"`
	CouponCode           string            `json:"couponCode,omitempty"`
	CouponDiscount       int64             `json:"couponDiscount"`
	Total                int64             `json:"total"`
	ShippingAddress      addressPayload    `json:"shippingAddress"`
	ShippingCourier      string            `json:"shippingCourier"`
	PaymentMethod        string            `json:"paymentMethod"`
	PaymentStatus        string            `json:"paymentStatus"`
	Status               string            `json:"status"`
	PaymentProvider      string            `json:"paymentProvider,omitempty"`
	PaymentTransactionID string            `json:"paymentTransactionId,omitempty"`
	PaymentID            string            `json:"paymentId,omitempty"`
	TrackingID           string            `json:"trackingId,omitempty"`
	ExternalInvoiceID    string            `json:"externalInvoiceId,omitempty"`
	InvoiceURL           string            `json:"invoiceUrl,omitempty"`
	SpecialInstructions  string            `json:"specialInstructions,omitempty"`
	CreatedAt            string            `json:"createdAt,omitempty"`
	UpdatedAt            string            `json:"updatedAt,omitempty"`
}

func buildOrderList(page domain.CursorPage[services.Order]) orderListResponse {
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	return orderListResponse{Items: items, NextPageToken: page.NextPageToken}
}

func buildOrderPayload(order services.Order) orderPayload {
	return orderPayload{
		ID:                   order.ID,
		UserID:               order.UserID,
		Items:                buildLineItems(order.Items),
		Subtotal:             order.Subtotal,
		DeliveryFee:          order.DeliveryFee,
		CouponCode:           order.CouponCode,
		CouponDiscount:       order.CouponDiscount,
		Total:                order.Total,
		ShippingAddress:      buildAddressPayload(order.ShippingAddress),
		ShippingCourier:      order.ShippingCourier,
		PaymentMethod:        string(order.PaymentMethod),
		PaymentStatus:        string(order.PaymentStatus),
		Status:               string(order.Status),
		PaymentProvider:      order.PaymentProvider,
		PaymentTransactionID: derefString(order.PaymentTransactionID),
		PaymentID:            derefString(order.PaymentID),
		TrackingID:           derefString(order.TrackingID),
		ExternalInvoiceID:    derefString(order.ExternalInvoiceID),
		InvoiceURL:           derefString(order.InvoiceURL),
		SpecialInstructions:  order.SpecialInstructions,
		CreatedAt:            formatTime(order.CreatedAt),
		UpdatedAt:            formatTime(order.UpdatedAt),
	}
}

func buildAddressPayload(addr services.Address) addressPayload {
	return addressPayload{
		FullName:     addr.FullName,
		Phone:        addr.Phone,
		Email:        addr.Email,
		AddressLine1: addr.AddressLine1,
		AddressLine2: derefString(addr.AddressLine2),
		City:         addr.City,
		State:        addr.State,
		Pincode:      addr.Pincode,
		Type:         string(addr.Type),
		IsDefault:    addr.IsDefault,
	}
}

func (p addressPayload) toAddress() services.Address {
	addr := services.Address{
		FullName:     p.FullName,
		Phone:        p.Phone,
		Email:        p.Email,
		AddressLine1: p.AddressLine1,
		City:         p.City,
		State:        p.State,
		Pincode:      p.Pincode,
		Type:         domain.AddressType(strings.ToLower(strings.TrimSpace(p.Type))),
		IsDefault:    p.IsDefault,
	}
	if line2 := strings.TrimSpace(p.AddressLine2); line2 != "" {
		addr.AddressLine2 = &line2
	}
	return addr
}
