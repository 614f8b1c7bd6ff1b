package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/notify"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/auth"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/repositories"
)

const maxDisplayNameRunes = 100

var (
	// ErrAccountInvalidInput indicates registration or reset input failed validation.
	ErrAccountInvalidInput = errors.New("account: invalid input")
	// ErrAccountUnavailable indicates the profile store or identity provider is unavailable.
	ErrAccountUnavailable = errors.New("account: unavailable")
)

// RegisterCommand records the profile captured at sign-up. UserID comes from the verified ID token.
type RegisterCommand struct {
	UserID      string
	DisplayName string
	Email       string
	Phone       string
}

// PasswordResetLinker issues password reset links. auth.FirebaseClient satisfies it.
type PasswordResetLinker interface {
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// AccountServiceDeps wires the account service.
type AccountServiceDeps struct {
	Users         repositories.UserRepository
	ResetLinks    PasswordResetLinker
	Notifications NotificationDispatcher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type accountService struct {
	users         repositories.UserRepository
	resetLinks    PasswordResetLinker
	notifications NotificationDispatcher
	now           func() time.Time
	newID         func() string
	logger        Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Users == nil {
		return nil, errors.New("account service: user repository is required")
	}
	if deps.ResetLinks == nil {
		return nil, errors.New("account service: password reset linker is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("account service: notification dispatcher is required")
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
	return &accountService{
		users:         deps.Users,
		resetLinks:    deps.ResetLinks,
		notifications: deps.Notifications,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Register writes the profile and sends a welcome message the first time the account is seen.
func (s *accountService) Register(ctx context.Context, cmd RegisterCommand) (UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrAccountInvalidInput)
	}
	email, err := normalizeEmail(cmd.Email)
	if err != nil {
		return UserProfile{}, err
	}
	name := strings.Join(strings.Fields(cmd.DisplayName), " ")
	if name == "" || utf8.RuneCountInString(name) > maxDisplayNameRunes {
		return UserProfile{}, fmt.Errorf("%w: displayName must be 1-%d characters", ErrAccountInvalidInput, maxDisplayNameRunes)
	}
	phone := strings.TrimSpace(cmd.Phone)
	if phone != "" && notify.NormalizeIndianMobile(phone) == "" {
		return UserProfile{}, fmt.Errorf("%w: phone must be a 10 digit mobile number", ErrAccountInvalidInput)
	}

	firstSeen := false
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if !repositories.IsNotFound(err) {
			return UserProfile{}, s.mapError(err)
		}
		firstSeen = true
	}

	saved, err := s.users.Upsert(ctx, UserProfile{ID: userID, DisplayName: name, Email: email, Phone: phone})
	if err != nil {
		return UserProfile{}, s.mapError(err)
	}
	if firstSeen {
		s.logger(ctx, "accounts.registered", map[string]any{"userId": saved.ID})
		s.notifications.Submit(ctx, Notification{
			ID:          notificationIDPrefix + s.newID(),
			Kind:        domain.NotificationWelcome,
			UserID:      saved.ID,
			Email:       saved.Email,
			Phone:       saved.Phone,
			Data:        map[string]string{"name": saved.DisplayName},
			SubmittedAt: s.now(),
		})
	}
	return saved, nil
}

// RequestPasswordReset submits a reset message. Unknown addresses succeed silently so callers cannot probe accounts.
func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	link, err := s.resetLinks.PasswordResetLink(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.logger(ctx, "accounts.password_reset_unknown", nil)
			return nil
		}
		s.logger(ctx, "accounts.password_reset_failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrAccountUnavailable, err)
	}
	s.notifications.Submit(ctx, Notification{
		ID:          notificationIDPrefix + s.newID(),
		Kind:        domain.NotificationPasswordReset,
		Email:       email,
		Data:        map[string]string{"resetLink": link},
		SubmittedAt: s.now(),
	})
	return nil
}

func (s *accountService) mapError(err error) error {
	if repositories.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrAccountUnavailable, err)
	}
	return err
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrAccountInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is invalid", ErrAccountInvalidInput)
	}
	return email, nil
}
