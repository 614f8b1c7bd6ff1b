package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists orders in Firestore. Every terminal write runs in a transaction.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
	opts     options
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider, opts ...Option) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection),
		provider: provider,
		opts:     applyOptions(opts),
	}, nil
}

// Insert creates the order and fails with a conflict when the id is taken.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	now := r.opts.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	_, err := r.base.Create(ctx, order.ID, fromDomainOrder(order))
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data)
}

// Update applies mutate inside a transaction so concurrent callbacks serialise on the document.
func (r *OrderRepository) Update(ctx context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	if mutate == nil {
		return domain.Order{}, errors.New("order repository: mutation is required")
	}
	orderID = strings.TrimSpace(orderID)
	var result domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		current, err := toDomainOrder(doc.ID, doc.Data)
		if err != nil {
			return err
		}

		working := cloneOrder(current)
		if err := mutate(&working); err != nil {
			if errors.Is(err, repositories.ErrSkipUpdate) {
				result = current
				return nil
			}
			return err
		}
		working.ID = current.ID
		working.CreatedAt = current.CreatedAt
		working.UpdatedAt = r.opts.now().UTC()
		result = working
		return tx.Set(ref, fromDomainOrder(working))
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page pagination.Params) (domain.CursorPage[domain.Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository: user id is required")
	}
	return r.list(ctx, page, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID)
	})
}

// ListByStatus returns orders newest first, optionally filtered by status.
func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, page pagination.Params) (domain.CursorPage[domain.Order], error) {
	return r.list(ctx, page, func(q firestore.Query) firestore.Query {
		if status != "" {
			q = q.Where("status", "==", string(status))
		}
		return q
	})
}

func (r *OrderRepository) list(ctx context.Context, page pagination.Params, filter pfirestore.QueryBuilder) (domain.CursorPage[domain.Order], error) {
	order := newestFirst(page)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return order(filter(q))
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	return collectPage(ctx, r.opts, orderCollection, docs, page,
		func(doc pfirestore.Document[orderDocument]) (domain.Order, error) {
			return toDomainOrder(doc.ID, doc.Data)
		},
		func(o domain.Order) time.Time { return o.CreatedAt },
	), nil
}

type orderDocument struct {
	UserID               string             `firestore:"userId"`
	Items                []lineItemDocument `firestore:"items"`
	Subtotal             int64              `firestore:"subtotal"`
	DeliveryFee          int64              `firestore:"deliveryFee"`
	CouponCode           string             `firestore:"couponCode,omitempty"`
	CouponDiscount       int64              `firestore:"couponDiscount"`
	Total                int64              `firestore:"total"`
	ShippingAddress      addressDocument    `firestore:"shippingAddress"`
	ShippingCourier      string             `firestore:"shippingCourier,omitempty"`
	PaymentMethod        string             `firestore:"paymentMethod"`
	PaymentStatus        string             `firestore:"paymentStatus"`
	Status               string             `firestore:"status"`
	PaymentProvider      string             `firestore:"paymentProvider,omitempty"`
	PaymentTransactionID *string            `firestore:"paymentTransactionId,omitempty"`
	PaymentID            *string            `firestore:"paymentId,omitempty"`
	TrackingID           *string            `firestore:"trackingId,omitempty"`
	ExternalInvoiceID    *string            `firestore:"externalInvoiceId,omitempty"`
	InvoiceURL           *string            `firestore:"invoiceUrl,omitempty"`
	SpecialInstructions  string             `firestore:"specialInstructions,omitempty"`
	CreatedAt            time.Time          `firestore:"createdAt"`
	UpdatedAt            time.Time          `firestore:"updatedAt"`
}

type lineItemDocument struct {
	ProductID       string            `firestore:"productId"`
	Name            string            `firestore:"name"`
	UnitPrice       int64             `firestore:"price"`
	OriginalPrice   int64             `firestore:"originalPrice,omitempty"`
	Quantity        int               `firestore:"quantity"`
	SelectedOptions map[string]string `firestore:"selectedOptions,omitempty"`
	Image           string            `firestore:"image,omitempty"`
}

type addressDocument struct {
	FullName     string  `firestore:"fullName"`
	Phone        string  `firestore:"phone"`
	Email        string  `firestore:"email,omitempty"`
	AddressLine1 string  `firestore:"addressLine1"`
	AddressLine2 *string `firestore:"addressLine2,omitempty"`
	City         string  `firestore:"city"`
	State        string  `firestore:"state"`
	Pincode      string  `firestore:"pincode"`
	Type         string  `firestore:"type,omitempty"`
	IsDefault    bool    `firestore:"isDefault,omitempty"`
}

var (
	knownOrderStatuses = map[domain.OrderStatus]struct{}{
		domain.OrderStatusPending: {}, domain.OrderStatusConfirmed: {}, domain.OrderStatusProcessing: {},
		domain.OrderStatusShipped: {}, domain.OrderStatusDelivered: {}, domain.OrderStatusCancelled: {},
		domain.OrderStatusPaymentFailed: {},
	}
	knownPaymentStatuses = map[domain.PaymentStatus]struct{}{
		domain.PaymentStatusPending: {}, domain.PaymentStatusPaid: {}, domain.PaymentStatusFailed: {},
		domain.PaymentStatusVerificationFailed: {},
	}
)

func toDomainOrder(id string, doc orderDocument) (domain.Order, error) {
	status := domain.OrderStatus(strings.TrimSpace(doc.Status))
	if _, ok := knownOrderStatuses[status]; !ok {
		return domain.Order{}, fmt.Errorf("order %s: unknown status %q", id, doc.Status)
	}
	paymentStatus := domain.PaymentStatus(strings.TrimSpace(doc.PaymentStatus))
	if _, ok := knownPaymentStatuses[paymentStatus]; !ok {
		return domain.Order{}, fmt.Errorf("order %s: unknown payment status %q", id, doc.PaymentStatus)
	}
	method := domain.PaymentMethod(strings.TrimSpace(doc.PaymentMethod))
	if method != domain.PaymentMethodGateway && method != domain.PaymentMethodCOD {
		return domain.Order{}, fmt.Errorf("order %s: unknown payment method %q", id, doc.PaymentMethod)
	}
	items, err := toDomainLineItems(doc.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return domain.Order{
		ID:                   id,
		UserID:               doc.UserID,
		Items:                items,
		Subtotal:             doc.Subtotal,
		DeliveryFee:          doc.DeliveryFee,
		CouponCode:           doc.CouponCode,
		CouponDiscount:       doc.CouponDiscount,
		Total:                doc.Total,
		ShippingAddress:      toDomainAddress(doc.ShippingAddress),
		ShippingCourier:      doc.ShippingCourier,
		PaymentMethod:        method,
		PaymentStatus:        paymentStatus,
		Status:               status,
		PaymentProvider:      doc.PaymentProvider,
		PaymentTransactionID: cloneString(doc.PaymentTransactionID),
		PaymentID:            cloneString(doc.PaymentID),
		TrackingID:           cloneString(doc.TrackingID),
		ExternalInvoiceID:    cloneString(doc.ExternalInvoiceID),
		InvoiceURL:           cloneString(doc.InvoiceURL),
		SpecialInstructions:  doc.SpecialInstructions,
		CreatedAt:            doc.CreatedAt.UTC(),
		UpdatedAt:            doc.UpdatedAt.UTC(),
	}, nil
}

func fromDomainOrder(order domain.Order) orderDocument {
	return orderDocument{
		UserID:               order.UserID,
		Items:                fromDomainLineItems(order.Items),
		Subtotal:             order.Subtotal,
		DeliveryFee:          order.DeliveryFee,
		CouponCode:           order.CouponCode,
		CouponDiscount:       order.CouponDiscount,
		Total:                order.Total,
		ShippingAddress:      fromDomainAddress(order.ShippingAddress),
		ShippingCourier:      order.ShippingCourier,
		PaymentMethod:        string(order.PaymentMethod),
		PaymentStatus:        string(order.PaymentStatus),
		Status:               string(order.Status),
		PaymentProvider:      order.PaymentProvider,
		PaymentTransactionID: cloneString(order.PaymentTransactionID),
		PaymentID:            cloneString(order.PaymentID),
		TrackingID:           cloneString(order.TrackingID),
		ExternalInvoiceID:    cloneString(order.ExternalInvoiceID),
		InvoiceURL:           cloneString(order.InvoiceURL),
		SpecialInstructions:  order.SpecialInstructions,
		CreatedAt:            order.CreatedAt.UTC(),
		UpdatedAt:            order.UpdatedAt.UTC(),
	}
}

func toDomainLineItems(docs []lineItemDocument) ([]domain.CartLineItem, error) {
	items := make([]domain.CartLineItem, 0, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.ProductID) == "" {
			return nil, fmt.Errorf("item %d: product id is empty", i)
		}
		if doc.Quantity < 1 {
			return nil, fmt.Errorf("item %d: quantity %d below 1", i, doc.Quantity)
		}
		items = append(items, domain.CartLineItem{
			ProductID:       doc.ProductID,
			Name:            doc.Name,
			UnitPrice:       doc.UnitPrice,
			OriginalPrice:   doc.OriginalPrice,
			Quantity:        doc.Quantity,
			SelectedOptions: cloneStringMap(doc.SelectedOptions),
			Image:           doc.Image,
		})
	}
	return items, nil
}

func fromDomainLineItems(items []domain.CartLineItem) []lineItemDocument {
	docs := make([]lineItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, lineItemDocument{
			ProductID:       item.ProductID,
			Name:            item.Name,
			UnitPrice:       item.UnitPrice,
			OriginalPrice:   item.OriginalPrice,
			Quantity:        item.Quantity,
			SelectedOptions: cloneStringMap(item.SelectedOptions),
			Image:           item.Image,
		})
	}
	return docs
}

func toDomainAddress(doc addressDocument) domain.Address {
	return domain.Address{
		FullName:     doc.FullName,
		Phone:        doc.Phone,
		Email:        doc.Email,
		AddressLine1: doc.AddressLine1,
		AddressLine2: cloneString(doc.AddressLine2),
		City:         doc.City,
		State:        doc.State,
		Pincode:      doc.Pincode,
		Type:         domain.AddressType(doc.Type),
		IsDefault:    doc.IsDefault,
	}
}

func fromDomainAddress(addr domain.Address) addressDocument {
	return addressDocument{
		FullName:     addr.FullName,
		Phone:        addr.Phone,
		Email:        addr.Email,
		AddressLine1: addr.AddressLine1,
		AddressLine2: cloneString(addr.AddressLine2),
		City:         addr.City,
		State:        addr.State,
		Pincode:      addr.Pincode,
		Type:         string(addr.Type),
		IsDefault:    addr.IsDefault,
	}
}

func cloneOrder(order domain.Order) domain.Order {
	dup := order
	dup.Items, _ = toDomainLineItems(fromDomainLineItems(order.Items))
	dup.ShippingAddress.AddressLine2 = cloneString(order.ShippingAddress.AddressLine2)
	dup.PaymentTransactionID = cloneString(order.PaymentTransactionID)
	dup.PaymentID = cloneString(order.PaymentID)
	dup.TrackingID = cloneString(order.TrackingID)
	dup.ExternalInvoiceID = cloneString(order.ExternalInvoiceID)
	dup.InvoiceURL = cloneString(order.InvoiceURL)
	return dup
}
