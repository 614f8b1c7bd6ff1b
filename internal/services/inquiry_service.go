package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/textutil"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const (
	inquiryIDPrefix        = "inq_"
	maxInquiryDetailsRunes = 5000
	maxInquiryFieldRunes   = 200
	maxInquiryProducts     = 50
	maxSpecialPricingRunes = 2000
)

var (
	// ErrInquiryInvalidInput indicates the submission or update failed validation.
	ErrInquiryInvalidInput = errors.New("inquiry: invalid input")
	// ErrInquiryNotFound indicates the inquiry does not exist.
	ErrInquiryNotFound = errors.New("inquiry: not found")
	// ErrInquiryUnavailable indicates the inquiry store is unavailable.
	ErrInquiryUnavailable = errors.New("inquiry: unavailable")
)

// SubmitInquiryCommand is a public corporate inquiry submission.
type SubmitInquiryCommand struct {
	CompanyName      string
	ContactPerson    string
	ContactEmail     string
	ContactPhone     string
	InquiryDetails   string
	EstimatedBudget  string
	RequiredProducts []string
}

// UpdateInquiryCommand is an admin update. Nil fields are left unchanged.
type UpdateInquiryCommand struct {
	InquiryID      string
	Status         *domain.InquiryStatus
	SpecialPricing *string
	ActorID        string
}

// InquiryServiceDeps wires the inquiry service.
type InquiryServiceDeps struct {
	Inquiries     repositories.InquiryRepository
	Notifications NotificationDispatcher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type inquiryService struct {
	inquiries     repositories.InquiryRepository
	notifications NotificationDispatcher
	policy        *bluemonday.Policy
	now           func() time.Time
	newID         func() string
	logger        Logger
}

// NewInquiryService constructs an InquiryService.
func NewInquiryService(deps InquiryServiceDeps) (InquiryService, error) {
	if deps.Inquiries == nil {
		return nil, errors.New("inquiry service: inquiry repository is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("inquiry service: notification dispatcher is required")
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
	return &inquiryService{
		inquiries:     deps.Inquiries,
		notifications: deps.Notifications,
		policy:        bluemonday.StrictPolicy(),
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *inquiryService) Submit(ctx context.Context, cmd SubmitInquiryCommand) (CorporateInquiry, error) {
	inquiry := CorporateInquiry{
		CompanyName:      s.sanitize(cmd.CompanyName),
		ContactPerson:    s.sanitize(cmd.ContactPerson),
		ContactEmail:     strings.ToLower(strings.TrimSpace(cmd.ContactEmail)),
		ContactPhone:     strings.TrimSpace(cmd.ContactPhone),
		InquiryDetails:   s.sanitizeBlock(cmd.InquiryDetails),
		EstimatedBudget:  s.sanitize(cmd.EstimatedBudget),
		RequiredProducts: s.sanitizeList(cmd.RequiredProducts),
		Status:           domain.InquiryStatusPending,
	}

	switch {
	case inquiry.CompanyName == "":
		return CorporateInquiry{}, fmt.Errorf("%w: companyName is required", ErrInquiryInvalidInput)
	case inquiry.ContactPerson == "":
		return CorporateInquiry{}, fmt.Errorf("%w: contactPerson is required", ErrInquiryInvalidInput)
	case inquiry.InquiryDetails == "":
		return CorporateInquiry{}, fmt.Errorf("%w: inquiryDetails is required", ErrInquiryInvalidInput)
	}
	if _, err := mail.ParseAddress(inquiry.ContactEmail); err != nil || strings.ContainsAny(inquiry.ContactEmail, " <>") {
		return CorporateInquiry{}, fmt.Errorf("%w: contactEmail is invalid", ErrInquiryInvalidInput)
	}
	if inquiry.ContactPhone == "" {
		return CorporateInquiry{}, fmt.Errorf("%w: contactPhone is required", ErrInquiryInvalidInput)
	}
	for field, value := range map[string]string{
		"companyName":     inquiry.CompanyName,
		"contactPerson":   inquiry.ContactPerson,
		"contactPhone":    inquiry.ContactPhone,
		"estimatedBudget": inquiry.EstimatedBudget,
	} {
		if utf8.RuneCountInString(value) > maxInquiryFieldRunes {
			return CorporateInquiry{}, fmt.Errorf("%w: %s exceeds %d characters", ErrInquiryInvalidInput, field, maxInquiryFieldRunes)
		}
	}
	if utf8.RuneCountInString(inquiry.InquiryDetails) > maxInquiryDetailsRunes {
		return CorporateInquiry{}, fmt.Errorf("%w: inquiryDetails exceeds %d characters", ErrInquiryInvalidInput, maxInquiryDetailsRunes)
	}
	if len(inquiry.RequiredProducts) > maxInquiryProducts {
		return CorporateInquiry{}, fmt.Errorf("%w: at most %d required products", ErrInquiryInvalidInput, maxInquiryProducts)
	}

	now := s.now()
	inquiry.ID = inquiryIDPrefix + s.newID()
	inquiry.CreatedAt = now
	inquiry.UpdatedAt = now

	if err := s.inquiries.Insert(ctx, inquiry); err != nil {
		return CorporateInquiry{}, s.mapError(err)
	}
	saved := inquiry
	s.logger(ctx, "inquiries.submitted", map[string]any{"inquiryId": saved.ID, "company": saved.CompanyName})
	s.notifications.Submit(ctx, Notification{
		ID:          notificationIDPrefix + s.newID(),
		Kind:        domain.NotificationCorporateInquiryAck,
		InquiryID:   saved.ID,
		Email:       saved.ContactEmail,
		Phone:       saved.ContactPhone,
		Data:        map[string]string{"name": saved.ContactPerson},
		SubmittedAt: now,
	})
	return saved, nil
}

func (s *inquiryService) List(ctx context.Context, status domain.InquiryStatus, page pagination.Params) (domain.CursorPage[CorporateInquiry], error) {
	if status != "" && !knownInquiryStatus(status) {
		return domain.CursorPage[CorporateInquiry]{}, fmt.Errorf("%w: unknown status %q", ErrInquiryInvalidInput, status)
	}
	result, err := s.inquiries.List(ctx, status, page)
	if err != nil {
		return domain.CursorPage[CorporateInquiry]{}, s.mapError(err)
	}
	return result, nil
}

// Update applies an admin status or pricing change. An empty SpecialPricing clears it.
func (s *inquiryService) Update(ctx context.Context, cmd UpdateInquiryCommand) (CorporateInquiry, error) {
	id := strings.TrimSpace(cmd.InquiryID)
	if id == "" {
		return CorporateInquiry{}, fmt.Errorf("%w: inquiryId is required", ErrInquiryInvalidInput)
	}
	if cmd.Status == nil && cmd.SpecialPricing == nil {
		return CorporateInquiry{}, fmt.Errorf("%w: nothing to update", ErrInquiryInvalidInput)
	}
	if cmd.Status != nil && !knownInquiryStatus(*cmd.Status) {
		return CorporateInquiry{}, fmt.Errorf("%w: unknown status %q", ErrInquiryInvalidInput, *cmd.Status)
	}
	var pricing *string
	if cmd.SpecialPricing != nil {
		value := s.sanitizeBlock(*cmd.SpecialPricing)
		if utf8.RuneCountInString(value) > maxSpecialPricingRunes {
			return CorporateInquiry{}, fmt.Errorf("%w: specialPricing exceeds %d characters", ErrInquiryInvalidInput, maxSpecialPricingRunes)
		}
		pricing = &value
	}

	updated, err := s.inquiries.Update(ctx, id, func(inquiry *domain.CorporateInquiry) error {
		if cmd.Status != nil {
			inquiry.Status = *cmd.Status
		}
		if pricing != nil {
			inquiry.SpecialPricing = textutil.OptionalString(pricing)
		}
		inquiry.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return CorporateInquiry{}, s.mapError(err)
	}
	s.logger(ctx, "inquiries.updated", map[string]any{
		"inquiryId": updated.ID,
		"status":    string(updated.Status),
		"actor":     strings.TrimSpace(cmd.ActorID),
	})
	return updated, nil
}

// sanitize strips markup and collapses whitespace for single-line fields.
func (s *inquiryService) sanitize(value string) string {
	return textutil.CollapseSpaces(s.sanitizeBlock(value))
}

// sanitizeBlock strips markup but keeps line breaks.
func (s *inquiryService) sanitizeBlock(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *inquiryService) sanitizeList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		cleaned = append(cleaned, s.sanitize(v))
	}
	return textutil.NormalizeList(cleaned)
}

func (s *inquiryService) mapError(err error) error {
	switch {
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrInquiryNotFound, err)
	case repositories.IsUnavailable(err):
		return fmt.Errorf("%w: %v", ErrInquiryUnavailable, err)
	}
	return err
}

func knownInquiryStatus(status domain.InquiryStatus) bool {
	switch status {
	case domain.InquiryStatusPending, domain.InquiryStatusContacted, domain.InquiryStatusQuoted, domain.InquiryStatusClosed:
		return true
	}
	return false
}
