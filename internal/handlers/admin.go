package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

const maxAdminBodySize = 16 * 1024

// AdminHandlers exposes the staff back office for orders and corporate inquiries.
type AdminHandlers struct {
	authn     *auth.Authenticator
	orders    services.OrderService
	inquiries services.InquiryService
}

// NewAdminHandlers constructs admin handlers requiring the staff or admin role.
func NewAdminHandlers(authn *auth.Authenticator, orders services.OrderService, inquiries services.InquiryService) *AdminHandlers {
	return &AdminHandlers{
		authn:     authn,
		orders:    orders,
		inquiries: inquiries,
	}
}

// Routes registers /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleStaff, auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{orderId}:transition", h.transitionOrder)
	r.Get("/corporate-inquiries", h.listInquiries)
	r.Patch("/corporate-inquiries/{inquiryId}", h.updateInquiry)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	page, ok := parsePage(ctx, w, r)
	if !ok {
		return
	}
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	result, err := h.orders.ListByStatus(ctx, status, page)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderList(result))
}

type transitionRequest struct {
	Status     string `json:"status"`
	TrackingID string `json:"trackingId"`
	Courier    string `json:"courier"`
}

func (h *AdminHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req transitionRequest
	if !decodeJSONBody(ctx, w, r, maxAdminBodySize, &req) {
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderTransitionCommand{
		OrderID:    strings.TrimSpace(chi.URLParam(r, "orderId")),
		Status:     domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		TrackingID: req.TrackingID,
		Courier:    req.Courier,
		ActorID:    identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) listInquiries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inquiries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inquiry_service_unavailable", "inquiry service unavailable", http.StatusServiceUnavailable))
		return
	}
	page, ok := parsePage(ctx, w, r)
	if !ok {
		return
	}
	status := domain.InquiryStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	result, err := h.inquiries.List(ctx, status, page)
	if err != nil {
		writeInquiryError(ctx, w, err)
		return
	}
	items := make([]inquiryPayload, 0, len(result.Items))
	for _, inquiry := range result.Items {
		items = append(items, buildInquiryPayload(inquiry))
	}
	writeJSONResponse(w, http.StatusOK, inquiryListResponse{Items: items, NextPageToken: result.NextPageToken})
}

// updateInquiryRequest distinguishes an absent specialPricing from an explicit null, which clears it.
type updateInquiryRequest struct {
	Status         *string         `json:"status"`
	SpecialPricing json.RawMessage `json:"specialPricing"`
}

func (h *AdminHandlers) updateInquiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inquiries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inquiry_service_unavailable", "inquiry service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req updateInquiryRequest
	if !decodeJSONBody(ctx, w, r, maxAdminBodySize, &req) {
		return
	}

	cmd := services.UpdateInquiryCommand{
		InquiryID: strings.TrimSpace(chi.URLParam(r, "inquiryId")),
		ActorID:   identity.UID,
	}
	if req.Status != nil {
		status := domain.InquiryStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		cmd.Status = &status
	}
	if len(req.SpecialPricing) > 0 {
		pricing := ""
		if string(req.SpecialPricing) != "null" {
			if err := json.Unmarshal(req.SpecialPricing, &pricing); err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "specialPricing must be a string or null", http.StatusBadRequest))
				return
			}
		}
		cmd.SpecialPricing = &pricing
	}

	inquiry, err := h.inquiries.Update(ctx, cmd)
	if err != nil {
		writeInquiryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"inquiry": buildInquiryPayload(inquiry)})
}
