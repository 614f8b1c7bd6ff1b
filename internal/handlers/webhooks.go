package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/jobs"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/shipping"
)

const maxWebhookBodySize = 64 * 1024

// WebhookHandlers receives shipping aggregator events. Signatures are checked by group middleware.
type WebhookHandlers struct {
	orders services.OrderService
	logger services.Logger
}

// NewWebhookHandlers constructs the webhook handlers.
func NewWebhookHandlers(orders services.OrderService, logger services.Logger) *WebhookHandlers {
	if logger == nil {
		logger = func(_ context.Context, _ string, _ map[string]any) {}
	}
	return &WebhookHandlers{orders: orders, logger: logger}
}

// Routes registers /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/shipping/events", h.shippingEvent)
}

// shippingEvent applies a tracking update. Events that no longer apply are acknowledged so the
// aggregator stops retrying them.
func (h *WebhookHandlers) shippingEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	event, err := shipping.ParseEvent(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_event", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.ApplyShippingEvent(ctx, services.ShippingEventCommand{
		OrderID:    event.OrderID,
		TrackingID: event.AWB,
		Courier:    event.Courier,
		Status:     event.Status,
		OccurredAt: event.OccurredAt,
	})
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": "applied", "orderStatus": string(order.Status)})
	case errors.Is(err, services.ErrOrderInvalidTransition):
		h.logger(ctx, "webhooks.shipping_event_ignored", map[string]any{
			"orderId": event.OrderID,
			"status":  string(event.Status),
			"error":   err.Error(),
		})
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ignored"})
	default:
		writeOrderError(ctx, w, err)
	}
}

// NotificationPushHandlers receives Pub/Sub push deliveries of queued notifications.
// OIDC verification is applied by the /internal group middleware.
type NotificationPushHandlers struct {
	dispatcher services.NotificationDispatcher
	logger     services.Logger
}

// NewNotificationPushHandlers constructs the push endpoint handlers.
func NewNotificationPushHandlers(dispatcher services.NotificationDispatcher, logger services.Logger) *NotificationPushHandlers {
	if logger == nil {
		logger = func(_ context.Context, _ string, _ map[string]any) {}
	}
	return &NotificationPushHandlers{dispatcher: dispatcher, logger: logger}
}

// Routes registers /internal endpoints.
func (h *NotificationPushHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/notifications:dispatch", h.dispatch)
}

// dispatch acknowledges every well-formed envelope. Redelivery cannot fix a rendering or
// recipient problem, so delivery errors are logged instead of returned.
func (h *NotificationPushHandlers) dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.dispatcher == nil {
		httpx.WriteError(ctx, w, httpx.NewError("dispatcher_unavailable", "notification dispatcher unavailable", http.StatusServiceUnavailable))
		return
	}
	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	notification, messageID, err := jobs.DecodePushEnvelope(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_envelope", err.Error(), http.StatusBadRequest))
		return
	}
	if err := h.dispatcher.Deliver(ctx, notification); err != nil {
		h.logger(ctx, "notifications.push_delivery_failed", map[string]any{
			"messageId":      messageID,
			"notificationId": notification.ID,
			"kind":           string(notification.Kind),
			"error":          err.Error(),
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
