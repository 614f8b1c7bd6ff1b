package repositories

import (
	"context"
	"errors"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
)

// ErrSkipUpdate aborts a read-modify-write without writing and without failing the call.
var ErrSkipUpdate = errors.New("repositories: skip update")

// Registry exposes typed repository accessors for dependency wiring.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Carts() CartRepository
	Products() ProductRepository
	Inquiries() InquiryRepository
	Users() UserRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderMutation edits an order inside a transaction. Returning ErrSkipUpdate leaves the stored order untouched.
type OrderMutation func(order *domain.Order) error

// OrderRepository persists orders. Orders are never deleted.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// Update reads the order, applies mutate and writes it back atomically.
	Update(ctx context.Context, orderID string, mutate OrderMutation) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, page pagination.Params) (domain.CursorPage[domain.Order], error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, page pagination.Params) (domain.CursorPage[domain.Order], error)
}

// CartRepository stores one cart session per user.
type CartRepository interface {
	// Get returns an empty session when none is stored.
	Get(ctx context.Context, userID string) (domain.CartSession, error)
	Save(ctx context.Context, session domain.CartSession) (domain.CartSession, error)
	Delete(ctx context.Context, userID string) error
}

// ProductRepository reads catalog entries.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// InquiryMutation edits an inquiry inside a transaction.
type InquiryMutation func(inquiry *domain.CorporateInquiry) error

// InquiryRepository persists corporate inquiries. Inquiries are never deleted.
type InquiryRepository interface {
	Insert(ctx context.Context, inquiry domain.CorporateInquiry) error
	FindByID(ctx context.Context, inquiryID string) (domain.CorporateInquiry, error)
	Update(ctx context.Context, inquiryID string, mutate InquiryMutation) (domain.CorporateInquiry, error)
	List(ctx context.Context, status domain.InquiryStatus, page pagination.Params) (domain.CursorPage[domain.CorporateInquiry], error)
}

// UserRepository stores account profiles.
type UserRepository interface {
	Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
}

// HealthRepository reports dependency readiness.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}

// IsNotFound reports whether err is a repository not-found error.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a repository conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err is a transient repository failure.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
