package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/invoicing"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/storage"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/shipping"
)

var (
	// ErrOrderNotFound indicates the order does not exist or belongs to someone else.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates the requested status change is not allowed from the current state.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates a concurrent write won.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrInvoiceNotAvailable indicates the order is not yet eligible for an invoice.
	ErrInvoiceNotAvailable = errors.New("order: invoice not available")
	// ErrInvoicingUnavailable indicates the invoicing service failed.
	ErrInvoicingUnavailable = errors.New("order: invoicing unavailable")
)

// orderStateTransitions lists the fulfilment moves an operator or courier may make.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

// OrderTransitionCommand is an admin fulfilment update.
type OrderTransitionCommand struct {
	OrderID    string
	Status     domain.OrderStatus
	TrackingID string
	Courier    string
	ActorID    string
}

// ShippingEventCommand is a courier status update received from the shipping aggregator.
type ShippingEventCommand struct {
	OrderID    string
	TrackingID string
	Courier    string
	Status     shipping.EventStatus
	OccurredAt time.Time
}

// InvoiceResult is the invoice attached to an order. PDFURL is a short-lived signed link when the PDF was archived.
type InvoiceResult struct {
	Order        Order
	InvoiceID    string
	InvoiceURL   string
	PDFURL       string
	PDFExpiresAt time.Time
}

// InvoiceIssuer creates invoices. invoicing.Client satisfies it.
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, order domain.Order, issuedAt time.Time) (invoicing.Invoice, error)
	DownloadPDF(ctx context.Context, invoice invoicing.Invoice) (io.ReadCloser, error)
}

// InvoiceArchiver stores invoice PDFs. storage.InvoiceArchive satisfies it.
type InvoiceArchiver interface {
	Archive(ctx context.Context, orderID, invoiceNumber string, pdf io.Reader) (string, error)
	SignedURL(object string) (string, time.Time, error)
}

// OrderServiceDeps wires the order service. Invoices and Archive are optional.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Notifications NotificationDispatcher
	Invoices      InvoiceIssuer
	Archive       InvoiceArchiver
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type orderService struct {
	orders        repositories.OrderRepository
	notifications NotificationDispatcher
	invoices      InvoiceIssuer
	archive       InvoiceArchiver
	now           func() time.Time
	newID         func() string
	logger        Logger
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("order service: notification dispatcher is required")
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
	return &orderService{
		orders:        deps.Orders,
		notifications: deps.Notifications,
		invoices:      deps.Invoices,
		archive:       deps.Archive,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID string, page pagination.Params) (domain.CursorPage[Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Order]{}, invalidOrder("userId", "")
	}
	result, err := s.orders.ListByUser(ctx, userID, page)
	if err != nil {
		return domain.CursorPage[Order]{}, mapOrderRepositoryError(err)
	}
	return result, nil
}

// GetOrder returns the caller's order. Orders of other users are reported as not found.
func (s *orderService) GetOrder(ctx context.Context, orderID, userID string) (Order, error) {
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	if userID = strings.TrimSpace(userID); userID == "" || order.UserID != userID {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) ListByStatus(ctx context.Context, status domain.OrderStatus, page pagination.Params) (domain.CursorPage[Order], error) {
	if status != "" && !knownOrderStatus(status) {
		return domain.CursorPage[Order]{}, invalidOrder("status", fmt.Sprintf("unknown status %q", status))
	}
	result, err := s.orders.ListByStatus(ctx, status, page)
	if err != nil {
		return domain.CursorPage[Order]{}, mapOrderRepositoryError(err)
	}
	return result, nil
}

// TransitionStatus applies an admin fulfilment move. Moving to the current status is a no-op.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, invalidOrder("orderId", "")
	}
	if !knownOrderStatus(cmd.Status) {
		return Order{}, invalidOrder("status", fmt.Sprintf("unknown status %q", cmd.Status))
	}
	trackingID := strings.TrimSpace(cmd.TrackingID)
	if cmd.Status == domain.OrderStatusShipped && trackingID == "" {
		return Order{}, invalidOrder("trackingId", "required when shipping an order")
	}

	changed := false
	updated, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		changed = false
		if o.Status == cmd.Status {
			return repositories.ErrSkipUpdate
		}
		if err := checkFulfilmentTransition(*o, cmd.Status); err != nil {
			return err
		}
		o.Status = cmd.Status
		if trackingID != "" {
			o.TrackingID = &trackingID
		}
		if courier := strings.TrimSpace(cmd.Courier); courier != "" {
			o.ShippingCourier = courier
		}
		o.UpdatedAt = s.now()
		changed = true
		return nil
	})
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	if changed {
		s.logger(ctx, "orders.status_changed", map[string]any{
			"orderId": updated.ID,
			"status":  string(updated.Status),
			"actor":   strings.TrimSpace(cmd.ActorID),
		})
		s.notifyShipment(ctx, updated)
	}
	return updated, nil
}

// ApplyShippingEvent folds a courier update into the order. Replayed events leave the order unchanged.
func (s *orderService) ApplyShippingEvent(ctx context.Context, cmd ShippingEventCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, invalidOrder("orderId", "")
	}
	trackingID := strings.TrimSpace(cmd.TrackingID)

	changed := false
	updated, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		changed = false
		next := o.Status
		switch cmd.Status {
		case shipping.EventShipped, shipping.EventInTransit:
			if o.Status == domain.OrderStatusProcessing {
				next = domain.OrderStatusShipped
			} else if o.Status != domain.OrderStatusShipped {
				return fmt.Errorf("%w: %s cannot receive %s", ErrOrderInvalidTransition, o.Status, cmd.Status)
			}
		case shipping.EventDelivered:
			if o.Status == domain.OrderStatusDelivered {
				return repositories.ErrSkipUpdate
			}
			if err := checkFulfilmentTransition(*o, domain.OrderStatusDelivered); err != nil {
				return err
			}
			next = domain.OrderStatusDelivered
		default:
			return invalidOrder("status", fmt.Sprintf("unknown shipping status %q", cmd.Status))
		}

		trackingChanged := trackingID != "" && (o.TrackingID == nil || *o.TrackingID != trackingID)
		if next == o.Status && !trackingChanged {
			return repositories.ErrSkipUpdate
		}
		if next == domain.OrderStatusShipped && trackingID == "" && o.TrackingID == nil {
			return invalidOrder("trackingId", "required when shipping an order")
		}
		o.Status = next
		if trackingChanged {
			o.TrackingID = &trackingID
		}
		if courier := strings.TrimSpace(cmd.Courier); courier != "" {
			o.ShippingCourier = courier
		}
		o.UpdatedAt = s.now()
		changed = true
		return nil
	})
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	if changed {
		s.logger(ctx, "orders.shipping_event_applied", map[string]any{
			"orderId":    updated.ID,
			"status":     string(updated.Status),
			"event":      string(cmd.Status),
			"occurredAt": cmd.OccurredAt,
		})
		s.notifyShipment(ctx, updated)
	}
	return updated, nil
}

// RequestInvoice issues an invoice once per order and archives its PDF when an archive is configured.
func (s *orderService) RequestInvoice(ctx context.Context, orderID, userID string) (InvoiceResult, error) {
	order, err := s.GetOrder(ctx, orderID, userID)
	if err != nil {
		return InvoiceResult{}, err
	}
	if !invoiceable(order) {
		return InvoiceResult{}, fmt.Errorf("%w: order %s is not paid", ErrInvoiceNotAvailable, order.ID)
	}

	if order.ExternalInvoiceID != nil {
		result := InvoiceResult{Order: order, InvoiceID: *order.ExternalInvoiceID}
		if order.InvoiceURL != nil {
			result.InvoiceURL = *order.InvoiceURL
		}
		s.signArchivedPDF(ctx, &result)
		return result, nil
	}
	if s.invoices == nil {
		return InvoiceResult{}, fmt.Errorf("%w: invoicing is not configured", ErrInvoicingUnavailable)
	}

	invoice, err := s.invoices.CreateInvoice(ctx, order, s.now())
	if err != nil {
		s.logger(ctx, "orders.invoice_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return InvoiceResult{}, fmt.Errorf("%w: %v", ErrInvoicingUnavailable, err)
	}
	updated, err := s.orders.Update(ctx, order.ID, func(o *domain.Order) error {
		if o.ExternalInvoiceID != nil {
			return repositories.ErrSkipUpdate
		}
		id, url := invoice.ID, invoice.URL
		o.ExternalInvoiceID = &id
		if url != "" {
			o.InvoiceURL = &url
		}
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return InvoiceResult{}, mapOrderRepositoryError(err)
	}

	result := InvoiceResult{Order: updated, InvoiceID: invoice.ID, InvoiceURL: invoice.URL}
	if updated.ExternalInvoiceID != nil && *updated.ExternalInvoiceID != invoice.ID {
		// A concurrent request attached its invoice first.
		result.InvoiceID = *updated.ExternalInvoiceID
		if updated.InvoiceURL != nil {
			result.InvoiceURL = *updated.InvoiceURL
		}
		s.signArchivedPDF(ctx, &result)
		return result, nil
	}
	s.archivePDF(ctx, invoice, &result)
	s.logger(ctx, "orders.invoice_issued", map[string]any{"orderId": updated.ID, "invoiceId": invoice.ID})
	return result, nil
}

func (s *orderService) archivePDF(ctx context.Context, invoice invoicing.Invoice, result *InvoiceResult) {
	if s.archive == nil || s.invoices == nil || invoice.PDFURL == "" {
		return
	}
	pdf, err := s.invoices.DownloadPDF(ctx, invoice)
	if err != nil {
		s.logger(ctx, "orders.invoice_archive_failed", map[string]any{"orderId": result.Order.ID, "error": err.Error()})
		return
	}
	defer pdf.Close()
	if _, err := s.archive.Archive(ctx, result.Order.ID, invoice.ID, pdf); err != nil {
		s.logger(ctx, "orders.invoice_archive_failed", map[string]any{"orderId": result.Order.ID, "error": err.Error()})
		return
	}
	s.signArchivedPDF(ctx, result)
}

func (s *orderService) signArchivedPDF(ctx context.Context, result *InvoiceResult) {
	if s.archive == nil || result.InvoiceID == "" {
		return
	}
	object, err := storage.InvoiceObjectPath(result.Order.ID, result.InvoiceID)
	if err != nil {
		return
	}
	url, expires, err := s.archive.SignedURL(object)
	if err != nil {
		s.logger(ctx, "orders.invoice_sign_failed", map[string]any{"orderId": result.Order.ID, "error": err.Error()})
		return
	}
	result.PDFURL = url
	result.PDFExpiresAt = expires
}

func (s *orderService) notifyShipment(ctx context.Context, order Order) {
	switch order.Status {
	case domain.OrderStatusShipped, domain.OrderStatusDelivered:
	default:
		return
	}
	data := map[string]string{"status": string(order.Status)}
	if order.TrackingID != nil {
		data["trackingId"] = *order.TrackingID
	}
	s.notifications.Submit(ctx, OrderNotification(domain.NotificationShipmentUpdate, order, s.newID(), s.now(), data))
}

func checkFulfilmentTransition(order Order, target domain.OrderStatus) error {
	if !slices.Contains(orderStateTransitions[order.Status], target) {
		return fmt.Errorf("%w: %s → %s", ErrOrderInvalidTransition, order.Status, target)
	}
	// Unpaid gateway orders may only be cancelled.
	if order.PaymentMethod == domain.PaymentMethodGateway && order.PaymentStatus != domain.PaymentStatusPaid && target != domain.OrderStatusCancelled {
		return fmt.Errorf("%w: order %s is not paid", ErrOrderInvalidTransition, order.ID)
	}
	return nil
}

func invoiceable(order Order) bool {
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return true
	}
	return order.PaymentMethod == domain.PaymentMethodCOD && order.Status == domain.OrderStatusDelivered
}

func knownOrderStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		domain.OrderStatusPaymentFailed:
		return true
	}
	return false
}

func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}
