package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "gt-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "gt-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Payments.Currency != "INR" {
		t.Errorf("expected INR currency, got %s", cfg.Payments.Currency)
	}
	if cfg.Payments.DefaultProvider != "razorpay" {
		t.Errorf("expected razorpay default provider, got %s", cfg.Payments.DefaultProvider)
	}
	if cfg.Pricing.DeliveryFee != 49 || cfg.Pricing.FreeDeliveryMinimum != 500 {
		t.Errorf("unexpected delivery policy: %+v", cfg.Pricing)
	}
	if cfg.Shipping.DebounceWindow != 500*time.Millisecond {
		t.Errorf("unexpected debounce window: %s", cfg.Shipping.DebounceWindow)
	}
	if cfg.Notifications.Transport != "inline" {
		t.Errorf("expected inline transport, got %s", cfg.Notifications.Transport)
	}
	if cfg.Notifications.PubSubProject != "gt-dev" {
		t.Errorf("expected pubsub project to default to firebase project, got %s", cfg.Notifications.PubSubProject)
	}
	if len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("expected default issuers, got %v", cfg.Security.OIDC.Issuers)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Checkout.LockTTL != defaultCheckoutLockTTL {
		t.Errorf("unexpected lock ttl: %s", cfg.Checkout.LockTTL)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                   "9090",
		"API_FIREBASE_PROJECT_ID":           "gt-prod",
		"API_FIRESTORE_PROJECT_ID":          "gt-fire",
		"API_PAYMENTS_DEFAULT_PROVIDER":     "Stripe",
		"API_PAYMENTS_STRIPE_API_KEY":       "secret://stripe/api",
		"API_PAYMENTS_RAZORPAY_KEY_ID":      "rzp_live_1",
		"API_PAYMENTS_RAZORPAY_KEY_SECRET":  "sm://razorpay/secret",
		"API_SHIPPING_ORIGIN_PINCODE":       "560001",
		"API_SHIPPING_API_TOKEN":            "secret://shipping/token",
		"API_SHIPPING_DEBOUNCE_WINDOW":      "750ms",
		"API_PRICING_DELIVERY_FEE":          "59",
		"API_PRICING_FREE_DELIVERY_MINIMUM": "999",
		"API_NOTIFICATIONS_TRANSPORT":       "pubsub",
		"API_NOTIFICATIONS_PUBSUB_TOPIC":    "notifications",
		"API_SECURITY_HMAC_SECRETS":         "shipping=secret://hmac/shipping",
		"API_REDIS_ADDR":                    "redis:6379",
		"API_REDIS_DB":                      "2",
	}

	secrets := map[string]string{
		"secret://stripe/api":      "sk_live",
		"secret://razorpay/secret": "rzp-secret",
		"secret://shipping/token":  "ship-token",
		"secret://hmac/shipping":   "hmac-shipping",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(resolver),
		WithRequiredSecrets("Payments.Razorpay.KeySecret", "Security.HMAC.Secrets[shipping]"),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "gt-fire" {
		t.Errorf("expected explicit firestore project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Payments.DefaultProvider != "stripe" {
		t.Errorf("expected provider lowercased, got %s", cfg.Payments.DefaultProvider)
	}
	if cfg.Payments.Stripe.APIKey != "sk_live" {
		t.Errorf("expected stripe key resolved, got %s", cfg.Payments.Stripe.APIKey)
	}
	if cfg.Payments.Razorpay.KeySecret != "rzp-secret" {
		t.Errorf("expected sm:// reference resolved, got %s", cfg.Payments.Razorpay.KeySecret)
	}
	if cfg.Shipping.APIToken != "ship-token" {
		t.Errorf("expected shipping token resolved, got %s", cfg.Shipping.APIToken)
	}
	if cfg.Shipping.DebounceWindow != 750*time.Millisecond {
		t.Errorf("unexpected debounce window %s", cfg.Shipping.DebounceWindow)
	}
	if cfg.Pricing.DeliveryFee != 59 || cfg.Pricing.FreeDeliveryMinimum != 999 {
		t.Errorf("unexpected pricing %+v", cfg.Pricing)
	}
	if cfg.Security.HMAC.Secrets["shipping"] != "hmac-shipping" {
		t.Errorf("expected hmac secret resolved, got %v", cfg.Security.HMAC.Secrets)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := vErr.Fields()
	if len(fields) != 2 || fields[0] != "Firebase.ProjectID" || fields[1] != "Firestore.ProjectID" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadRejectsTransportWithoutTarget(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "gt-dev",
		"API_NOTIFICATIONS_TRANSPORT": "amqp",
		"API_SHIPPING_ORIGIN_PINCODE": "012345",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	if len(fields) != 2 || fields[0] != "Shipping.OriginPincode" || fields[1] != "Notifications.AMQPURL" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadSecretResolverMissing(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "gt-dev",
		"API_PAYMENTS_STRIPE_API_KEY": "secret://stripe/api",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://stripe/api" {
		t.Fatalf("unexpected ref %s", sErr.Ref)
	}
}

func TestLoadReportsMissingSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "gt-dev",
	}
	_, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("Payments.Razorpay.KeySecret", " ", "Payments.Razorpay.KeySecret"),
	)
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	names := missing.Names()
	if len(names) != 1 || names[0] != "Payments.Razorpay.KeySecret" {
		t.Fatalf("unexpected names %v", names)
	}
	if len(missing.RedactedNames()) != 1 || missing.RedactedNames()[0] == names[0] {
		t.Fatalf("expected redacted names, got %v", missing.RedactedNames())
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport API_FIREBASE_PROJECT_ID=\"gt-local\"\nAPI_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"API_SERVER_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "gt-local" {
		t.Errorf("expected project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Server.Port)
	}
}
