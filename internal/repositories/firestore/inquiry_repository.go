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

const inquiryCollection = "corporate_inquiries"

// InquiryRepository persists corporate inquiries.
type InquiryRepository struct {
	base     *pfirestore.BaseRepository[inquiryDocument]
	provider *pfirestore.Provider
	opts     options
}

var _ repositories.InquiryRepository = (*InquiryRepository)(nil)

// NewInquiryRepository constructs a Firestore-backed inquiry repository.
func NewInquiryRepository(provider *pfirestore.Provider, opts ...Option) (*InquiryRepository, error) {
	if provider == nil {
		return nil, errors.New("inquiry repository requires firestore provider")
	}
	return &InquiryRepository{
		base:     pfirestore.NewBaseRepository[inquiryDocument](provider, inquiryCollection),
		provider: provider,
		opts:     applyOptions(opts),
	}, nil
}

func (r *InquiryRepository) Insert(ctx context.Context, inquiry domain.CorporateInquiry) error {
	if strings.TrimSpace(inquiry.ID) == "" {
		return errors.New("inquiry repository: inquiry id is required")
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = r.opts.now().UTC()
	}
	if inquiry.UpdatedAt.IsZero() {
		inquiry.UpdatedAt = inquiry.CreatedAt
	}
	_, err := r.base.Create(ctx, inquiry.ID, fromDomainInquiry(inquiry))
	return err
}

func (r *InquiryRepository) FindByID(ctx context.Context, inquiryID string) (domain.CorporateInquiry, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(inquiryID))
	if err != nil {
		return domain.CorporateInquiry{}, err
	}
	return toDomainInquiry(doc.ID, doc.Data)
}

func (r *InquiryRepository) Update(ctx context.Context, inquiryID string, mutate repositories.InquiryMutation) (domain.CorporateInquiry, error) {
	if mutate == nil {
		return domain.CorporateInquiry{}, errors.New("inquiry repository: mutation is required")
	}
	var result domain.CorporateInquiry
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(inquiryID))
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := pfirestore.Decode[inquiryDocument](snap)
		if err != nil {
			return err
		}
		current, err := toDomainInquiry(doc.ID, doc.Data)
		if err != nil {
			return err
		}
		working := current
		working.RequiredProducts = append([]string(nil), current.RequiredProducts...)
		working.SpecialPricing = cloneString(current.SpecialPricing)
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
		return tx.Set(ref, fromDomainInquiry(working))
	})
	if err != nil {
		return domain.CorporateInquiry{}, err
	}
	return result, nil
}

// List returns inquiries newest first, optionally filtered by status.
func (r *InquiryRepository) List(ctx context.Context, status domain.InquiryStatus, page pagination.Params) (domain.CursorPage[domain.CorporateInquiry], error) {
	order := newestFirst(page)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if status != "" {
			q = q.Where("status", "==", string(status))
		}
		return order(q)
	})
	if err != nil {
		return domain.CursorPage[domain.CorporateInquiry]{}, err
	}
	return collectPage(ctx, r.opts, inquiryCollection, docs, page,
		func(doc pfirestore.Document[inquiryDocument]) (domain.CorporateInquiry, error) {
			return toDomainInquiry(doc.ID, doc.Data)
		},
		func(i domain.CorporateInquiry) time.Time { return i.CreatedAt },
	), nil
}

type inquiryDocument struct {
	CompanyName      string    `firestore:"companyName"`
	ContactPerson    string    `firestore:"contactPerson"`
	ContactEmail     string    `firestore:"contactEmail"`
	ContactPhone     string    `firestore:"contactPhone"`
	InquiryDetails   string    `firestore:"inquiryDetails"`
	EstimatedBudget  string    `firestore:"estimatedBudget,omitempty"`
	RequiredProducts []string  `firestore:"requiredProducts,omitempty"`
	Status           string    `firestore:"status"`
	SpecialPricing   *string   `firestore:"specialPricing,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

func toDomainInquiry(id string, doc inquiryDocument) (domain.CorporateInquiry, error) {
	status := domain.InquiryStatus(strings.TrimSpace(doc.Status))
	switch status {
	case domain.InquiryStatusPending, domain.InquiryStatusContacted, domain.InquiryStatusQuoted, domain.InquiryStatusClosed:
	default:
		return domain.CorporateInquiry{}, fmt.Errorf("inquiry %s: unknown status %q", id, doc.Status)
	}
	return domain.CorporateInquiry{
		ID:               id,
		CompanyName:      doc.CompanyName,
		ContactPerson:    doc.ContactPerson,
		ContactEmail:     doc.ContactEmail,
		ContactPhone:     doc.ContactPhone,
		InquiryDetails:   doc.InquiryDetails,
		EstimatedBudget:  doc.EstimatedBudget,
		RequiredProducts: append([]string(nil), doc.RequiredProducts...),
		Status:           status,
		SpecialPricing:   cloneString(doc.SpecialPricing),
		CreatedAt:        doc.CreatedAt.UTC(),
		UpdatedAt:        doc.UpdatedAt.UTC(),
	}, nil
}

func fromDomainInquiry(inquiry domain.CorporateInquiry) inquiryDocument {
	return inquiryDocument{
		CompanyName:      inquiry.CompanyName,
		ContactPerson:    inquiry.ContactPerson,
		ContactEmail:     inquiry.ContactEmail,
		ContactPhone:     inquiry.ContactPhone,
		InquiryDetails:   inquiry.InquiryDetails,
		EstimatedBudget:  inquiry.EstimatedBudget,
		RequiredProducts: append([]string(nil), inquiry.RequiredProducts...),
		Status:           string(inquiry.Status),
		SpecialPricing:   cloneString(inquiry.SpecialPricing),
		CreatedAt:        inquiry.CreatedAt.UTC(),
		UpdatedAt:        inquiry.UpdatedAt.UTC(),
	}
}
