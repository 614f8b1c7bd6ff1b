package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const userCollection = "users"

// UserRepository stores account profiles keyed by Firebase uid.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
	opts     options
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider, opts ...Option) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base:     pfirestore.NewBaseRepository[userDocument](provider, userCollection),
		provider: provider,
		opts:     applyOptions(opts),
	}, nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return domain.UserProfile{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

// Upsert writes the profile, keeping the original createdAt when the user already exists.
func (r *UserRepository) Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	uid := strings.TrimSpace(profile.ID)
	if uid == "" {
		return domain.UserProfile{}, errors.New("user repository: user id is required")
	}
	now := r.opts.now().UTC()
	var saved domain.UserProfile
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, uid)
		if err != nil {
			return err
		}
		createdAt := now
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			existing, decodeErr := pfirestore.Decode[userDocument](snap)
			if decodeErr != nil {
				return decodeErr
			}
			if !existing.Data.CreatedAt.IsZero() {
				createdAt = existing.Data.CreatedAt
			}
		case repositories.IsNotFound(pfirestore.WrapError("users.get", err)):
		default:
			return err
		}
		saved = profile
		saved.ID = uid
		saved.CreatedAt = createdAt.UTC()
		saved.UpdatedAt = now
		return tx.Set(ref, fromDomainUser(saved))
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return saved, nil
}

type userDocument struct {
	DisplayName string    `firestore:"displayName"`
	Email       string    `firestore:"email"`
	PhoneNumber string    `firestore:"phoneNumber,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func toDomainUser(id string, doc userDocument) domain.UserProfile {
	return domain.UserProfile{
		ID:          id,
		DisplayName: strings.TrimSpace(doc.DisplayName),
		Email:       strings.TrimSpace(doc.Email),
		Phone:       strings.TrimSpace(doc.PhoneNumber),
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
}

func fromDomainUser(profile domain.UserProfile) userDocument {
	return userDocument{
		DisplayName: strings.TrimSpace(profile.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(profile.Email)),
		PhoneNumber: strings.TrimSpace(profile.Phone),
		CreatedAt:   profile.CreatedAt.UTC(),
		UpdatedAt:   profile.UpdatedAt.UTC(),
	}
}
