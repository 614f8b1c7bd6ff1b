package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const cartCollection = "carts"

// CartRepository stores one cart session document per user id.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
	opts options
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider, opts ...Option) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection),
		opts: applyOptions(opts),
	}, nil
}

// Get loads the session for userID. A missing document yields an empty session.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.CartSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.CartSession{}, errors.New("cart repository: user id is required")
	}
	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.CartSession{UserID: uid, Items: []domain.CartLineItem{}}, nil
		}
		return domain.CartSession{}, err
	}
	session, err := toDomainCart(doc.ID, doc.Data)
	if err != nil {
		r.opts.logger(ctx, "repository.document_rejected", map[string]any{
			"collection": cartCollection,
			"documentId": doc.ID,
			"error":      err,
		})
		return domain.CartSession{}, err
	}
	return session, nil
}

func (r *CartRepository) Save(ctx context.Context, session domain.CartSession) (domain.CartSession, error) {
	uid := strings.TrimSpace(session.UserID)
	if uid == "" {
		return domain.CartSession{}, errors.New("cart repository: user id is required")
	}
	now := r.opts.now().UTC()
	session.UserID = uid
	session.UpdatedAt = now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if _, err := r.base.Set(ctx, uid, fromDomainCart(session)); err != nil {
		return domain.CartSession{}, err
	}
	return session, nil
}

// Delete clears the session. Deleting a missing session succeeds.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	err := r.base.Delete(ctx, strings.TrimSpace(userID))
	if err != nil && !repositories.IsNotFound(err) {
		return err
	}
	return nil
}

type cartDocument struct {
	Items           []lineItemDocument `firestore:"items"`
	Coupon          *couponDocument    `firestore:"coupon,omitempty"`
	SelectedCourier string             `firestore:"selectedCourier,omitempty"`
	ItemsCount      int                `firestore:"itemsCount"`
	CreatedAt       time.Time          `firestore:"createdAt"`
	UpdatedAt       time.Time          `firestore:"updatedAt"`
}

type couponDocument struct {
	Code           string `firestore:"code"`
	DiscountAmount int64  `firestore:"discountAmount"`
}

func toDomainCart(id string, doc cartDocument) (domain.CartSession, error) {
	items, err := toDomainLineItems(doc.Items)
	if err != nil {
		return domain.CartSession{}, fmt.Errorf("cart %s: %w", id, err)
	}
	session := domain.CartSession{
		UserID:          id,
		Items:           items,
		SelectedCourier: doc.SelectedCourier,
		CreatedAt:       doc.CreatedAt.UTC(),
		UpdatedAt:       doc.UpdatedAt.UTC(),
	}
	if doc.Coupon != nil && strings.TrimSpace(doc.Coupon.Code) != "" {
		if doc.Coupon.DiscountAmount < 0 {
			return domain.CartSession{}, fmt.Errorf("cart %s: negative coupon discount", id)
		}
		session.Coupon = &domain.AppliedCoupon{Code: doc.Coupon.Code, DiscountAmount: doc.Coupon.DiscountAmount}
	}
	return session, nil
}

func fromDomainCart(session domain.CartSession) cartDocument {
	doc := cartDocument{
		Items:           fromDomainLineItems(session.Items),
		SelectedCourier: session.SelectedCourier,
		ItemsCount:      len(session.Items),
		CreatedAt:       session.CreatedAt.UTC(),
		UpdatedAt:       session.UpdatedAt.UTC(),
	}
	if session.Coupon != nil {
		doc.Coupon = &couponDocument{Code: session.Coupon.Code, DiscountAmount: session.Coupon.DiscountAmount}
	}
	return doc
}
