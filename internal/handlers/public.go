package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

const (
	maxInquiryBodySize         = 32 * 1024
	defaultPublicRateLimit     = 10
	defaultPublicRateWindow    = time.Minute
	defaultPasswordResetLimit  = 5
	defaultPasswordResetWindow = 15 * time.Minute
)

// PublicHandlers serves unauthenticated endpoints: corporate inquiries and password reset requests.
type PublicHandlers struct {
	inquiries     services.InquiryService
	accounts      services.AccountService
	inquiryLimit  rateLimiter
	passwordLimit rateLimiter
}

// PublicOption customises PublicHandlers.
type PublicOption func(*PublicHandlers)

// WithPublicRateLimits overrides the per-client budgets of the inquiry and password reset endpoints.
// A non-positive limit disables limiting for that endpoint.
func WithPublicRateLimits(inquiries int, inquiryWindow time.Duration, resets int, resetWindow time.Duration, clock func() time.Time) PublicOption {
	return func(h *PublicHandlers) {
		h.inquiryLimit = newWindowLimiter(inquiries, inquiryWindow, clock)
		h.passwordLimit = newWindowLimiter(resets, resetWindow, clock)
	}
}

// NewPublicHandlers constructs the public handlers with default rate limits.
func NewPublicHandlers(inquiries services.InquiryService, accounts services.AccountService, opts ...PublicOption) *PublicHandlers {
	h := &PublicHandlers{
		inquiries:     inquiries,
		accounts:      accounts,
		inquiryLimit:  newWindowLimiter(defaultPublicRateLimit, defaultPublicRateWindow, nil),
		passwordLimit: newWindowLimiter(defaultPasswordResetLimit, defaultPasswordResetWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers /public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(limitByClient(h.inquiryLimit, "inquiries")).Post("/corporate-inquiries", h.submitInquiry)
	r.With(limitByClient(h.passwordLimit, "password-reset")).Post("/password-reset", h.passwordReset)
}

type submitInquiryRequest struct {
	CompanyName      string   `json:"companyName"`
	ContactPerson    string   `json:"contactPerson"`
	ContactEmail     string   `json:"contactEmail"`
	ContactPhone     string   `json:"contactPhone"`
	InquiryDetails   string   `json:"inquiryDetails"`
	EstimatedBudget  string   `json:"estimatedBudget"`
	RequiredProducts []string `json:"requiredProducts"`
}

type inquiryPayload struct {
	ID               string   `json:"id"`
	CompanyName      string   `json:"companyName"`
	ContactPerson    string   `json:"contactPerson"`
	ContactEmail     string   `json:"contactEmail"`
	ContactPhone     string   `json:"contactPhone"`
	InquiryDetails   string   `json:"inquiryDetails"`
	EstimatedBudget  string   `json:"estimatedBudget,omitempty"`
	RequiredProducts []string `json:"requiredProducts,omitempty"`
	Status           string   `json:"status"`
	SpecialPricing   *string  `json:"specialPricing,omitempty"`
	CreatedAt        string   `json:"createdAt,omitempty"`
	UpdatedAt        string   `json:"updatedAt,omitempty"`
}

type inquiryListResponse struct {
	Items         []inquiryPayload `json:"items"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

func (h *PublicHandlers) submitInquiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inquiries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inquiry_service_unavailable", "inquiry service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req submitInquiryRequest
	if !decodeJSONBody(ctx, w, r, maxInquiryBodySize, &req) {
		return
	}
	inquiry, err := h.inquiries.Submit(ctx, services.SubmitInquiryCommand(req))
	if err != nil {
		writeInquiryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"inquiry": buildInquiryPayload(inquiry)})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// passwordReset answers 202 for known and unknown addresses alike.
func (h *PublicHandlers) passwordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req passwordResetRequest
	if !decodeJSONBody(ctx, w, r, maxProfileBodySize, &req) {
		return
	}
	if err := h.accounts.RequestPasswordReset(ctx, req.Email); err != nil {
		writeAccountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeInquiryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInquiryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInquiryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "inquiry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInquiryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("inquiry_service_unavailable", "inquiry service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inquiry_error", "failed to process inquiry", http.StatusInternalServerError))
	}
}

func buildInquiryPayload(inquiry services.CorporateInquiry) inquiryPayload {
	return inquiryPayload{
		ID:               inquiry.ID,
		CompanyName:      inquiry.CompanyName,
		ContactPerson:    inquiry.ContactPerson,
		ContactEmail:     inquiry.ContactEmail,
		ContactPhone:     inquiry.ContactPhone,
		InquiryDetails:   inquiry.InquiryDetails,
		EstimatedBudget:  inquiry.EstimatedBudget,
		RequiredProducts: inquiry.RequiredProducts,
		Status:           string(inquiry.Status),
		SpecialPricing:   inquiry.SpecialPricing,
		CreatedAt:        formatTime(inquiry.CreatedAt),
		UpdatedAt:        formatTime(inquiry.UpdatedAt),
	}
}
