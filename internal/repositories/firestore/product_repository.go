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
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const productCollection = "products"

// ProductRepository reads catalog products.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	provider *pfirestore.Provider
	opts     options
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product reader.
func NewProductRepository(provider *pfirestore.Provider, opts ...Option) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base:     pfirestore.NewBaseRepository[productDocument](provider, productCollection),
		provider: provider,
		opts:     applyOptions(opts),
	}, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data)
}

// FindByIDs loads products in a single GetAll round trip. Missing or unmappable ids are absent from the result.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if len(productIDs) == 0 {
		return map[string]domain.Product{}, nil
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	coll := client.Collection(productCollection)
	seen := make(map[string]struct{}, len(productIDs))
	refs := make([]*firestore.DocumentRef, 0, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, coll.Doc(id))
	}
	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, pfirestore.WrapError(productCollection+".getAll", err)
	}

	products := make(map[string]domain.Product, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		doc, err := pfirestore.Decode[productDocument](snap)
		if err != nil {
			return nil, err
		}
		product, err := toDomainProduct(doc.ID, doc.Data)
		if err != nil {
			r.opts.logger(ctx, "repository.document_rejected", map[string]any{
				"collection": productCollection,
				"documentId": doc.ID,
				"error":      err,
			})
			continue
		}
		products[product.ID] = product
	}
	return products, nil
}

type productDocument struct {
	Name          string    `firestore:"name"`
	Price         int64     `firestore:"price"`
	OriginalPrice int64     `firestore:"originalPrice,omitempty"`
	Image         string    `firestore:"image,omitempty"`
	Images        []string  `firestore:"images,omitempty"`
	Active        *bool     `firestore:"active,omitempty"`
	UpdatedAt     time.Time `firestore:"updatedAt,omitempty"`
}

func toDomainProduct(id string, doc productDocument) (domain.Product, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return domain.Product{}, fmt.Errorf("product %s: name is empty", id)
	}
	if doc.Price < 0 {
		return domain.Product{}, fmt.Errorf("product %s: negative price", id)
	}
	image := doc.Image
	if image == "" && len(doc.Images) > 0 {
		image = doc.Images[0]
	}
	original := doc.OriginalPrice
	if original < doc.Price {
		original = doc.Price
	}
	return domain.Product{
		ID:            id,
		Name:          strings.TrimSpace(doc.Name),
		Price:         doc.Price,
		OriginalPrice: original,
		Image:         image,
		Active:        doc.Active == nil || *doc.Active,
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}
