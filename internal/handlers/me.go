package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

const (
	maxProfileBodySize = 16 * 1024
	defaultBodyLimit   = 64 * 1024
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// MeHandlers exposes account endpoints for the authenticated user.
type MeHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
}

// NewMeHandlers constructs handlers enforcing Firebase authentication before invoking the account service.
func NewMeHandlers(authn *auth.Authenticator, accounts services.AccountService) *MeHandlers {
	return &MeHandlers{
		authn:    authn,
		accounts: accounts,
	}
}

// Routes wires /me:register onto the API root.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r = r.With(h.authn.RequireFirebaseAuth())
	}
	r.Post("/me:register", h.register)
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type profilePayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func (h *MeHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req registerRequest
	if !decodeJSONBody(ctx, w, r, maxProfileBodySize, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = identity.Email
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = identity.Name
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		phone = identity.Phone
	}

	profile, err := h.accounts.Register(ctx, services.RegisterCommand{
		UserID:      identity.UID,
		DisplayName: name,
		Email:       email,
		Phone:       phone,
	})
	if err != nil {
		writeAccountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"profile": profilePayload{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Phone:       profile.Phone,
		CreatedAt:   formatTime(profile.CreatedAt),
		UpdatedAt:   formatTime(profile.UpdatedAt),
	}})
}

func writeAccountError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAccountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAccountUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("account_error", "failed to process account request", http.StatusInternalServerError))
	}
}

// requireIdentity returns the Firebase identity or writes 401.
func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

// decodeJSONBody reads at most limit bytes into dst, writing 400/413 on failure.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	return decodeBytes(ctx, w, body, dst)
}

func decodeBytes(ctx context.Context, w http.ResponseWriter, body []byte, dst any) bool {
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
