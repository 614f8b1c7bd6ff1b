package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
)

// ErrUserNotFound is returned when no Firebase account matches the lookup.
var ErrUserNotFound = errors.New("auth: user not found")

// FirebaseClient wraps the Admin SDK auth client with bounded calls.
type FirebaseClient struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// NewFirebaseClient initialises the Admin SDK for cfg.ProjectID.
func NewFirebaseClient(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseClient, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return &FirebaseClient{client: authClient, timeout: defaultVerifyTimeout}, nil
}

// VerifyIDToken implements TokenVerifier.
func (c *FirebaseClient) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.VerifyIDToken(ctx, idToken)
}

// PasswordResetLink generates a reset link for email. Unknown accounts yield ErrUserNotFound.
func (c *FirebaseClient) PasswordResetLink(ctx context.Context, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	link, err := c.client.PasswordResetLink(ctx, email)
	if err != nil {
		if firebaseauth.IsUserNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("auth: password reset link: %w", err)
	}
	return link, nil
}
