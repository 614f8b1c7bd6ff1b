package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

// Registry bundles the Firestore repositories behind one provider.
type Registry struct {
	provider  *pfirestore.Provider
	orders    *OrderRepository
	carts     *CartRepository
	products  *ProductRepository
	inquiries *InquiryRepository
	users     *UserRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on provider. health may be nil.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository, opts ...Option) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	reg := &Registry{provider: provider, health: health}
	var err error
	if reg.orders, err = NewOrderRepository(provider, opts...); err != nil {
		return nil, err
	}
	if reg.carts, err = NewCartRepository(provider, opts...); err != nil {
		return nil, err
	}
	if reg.products, err = NewProductRepository(provider, opts...); err != nil {
		return nil, err
	}
	if reg.inquiries, err = NewInquiryRepository(provider, opts...); err != nil {
		return nil, err
	}
	if reg.users, err = NewUserRepository(provider, opts...); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) Close(context.Context) error {
	err := r.provider.Close()
	if errors.Is(err, pfirestore.ErrProviderClosed) {
		return nil
	}
	return err
}

func (r *Registry) Orders() repositories.OrderRepository      { return r.orders }
func (r *Registry) Carts() repositories.CartRepository        { return r.carts }
func (r *Registry) Products() repositories.ProductRepository  { return r.products }
func (r *Registry) Inquiries() repositories.InquiryRepository { return r.inquiries }
func (r *Registry) Users() repositories.UserRepository        { return r.users }
func (r *Registry) Health() repositories.HealthRepository     { return r.health }
