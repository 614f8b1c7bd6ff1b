package di

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/notify"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/config"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/secrets"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/services"
)

// EnvLookup reads a raw environment value.
type EnvLookup func(key string) string

// OSEnv looks keys up in the process environment.
func OSEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// NewSecretFetcher builds the Secret Manager fetcher from API_SECRET_* and Firebase settings.
func NewSecretFetcher(ctx context.Context, logger *zap.Logger, meter metric.Meter, lookup EnvLookup) (*secrets.Fetcher, error) {
	if lookup == nil {
		lookup = OSEnv
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if meter != nil {
		opts = append(opts, secrets.WithMeter(meter))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// RequiredSecretNames lists the secret fields a deployment must resolve, derived from the raw
// environment so config.Load can report every gap at once.
func RequiredSecretNames(lookup EnvLookup) []string {
	if lookup == nil {
		lookup = OSEnv
	}
	required := []string{"Shipping.APIToken"}

	provider := strings.ToLower(lookup("API_PAYMENTS_DEFAULT_PROVIDER"))
	if provider == "" || provider == "razorpay" || lookup("API_PAYMENTS_RAZORPAY_KEY_ID") != "" {
		required = append(required, "Payments.Razorpay.KeySecret")
	}
	if provider == "stripe" {
		required = append(required, "Payments.Stripe.APIKey")
	}
	if lookup("API_INVOICING_BASE_URL") != "" {
		required = append(required, "Invoicing.APIToken")
	}
	if lookup("API_NOTIFICATIONS_EMAIL_BASE_URL") != "" {
		required = append(required, "Notifications.Email.APIKey")
	}
	if lookup("API_NOTIFICATIONS_SMS_BASE_URL") != "" {
		required = append(required, "Notifications.SMS.APIKey")
	}
	if strings.ToLower(lookup("API_NOTIFICATIONS_TRANSPORT")) == "amqp" {
		required = append(required, "Notifications.AMQPURL")
	}
	for _, key := range parseHMACSecretKeys(lookup("API_SECURITY_HMAC_SECRETS")) {
		required = append(required, fmt.Sprintf("Security.HMAC.Secrets[%s]", key))
	}
	return uniqueStrings(required)
}

// NotificationChannels builds the template catalog and the configured email and SMS senders.
// A channel without a base URL is left nil and skipped by the dispatcher.
func NotificationChannels(cfg config.NotificationsConfig, timeout time.Duration) (services.NotificationRenderer, services.EmailSender, services.SMSSender, error) {
	catalog, err := notify.DefaultCatalog()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load notification templates: %w", err)
	}
	var email services.EmailSender
	if strings.TrimSpace(cfg.Email.BaseURL) != "" {
		email = notify.NewEmailClient(notify.EmailConfig{
			BaseURL: cfg.Email.BaseURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			Timeout: timeout,
		})
	}
	var sms services.SMSSender
	if strings.TrimSpace(cfg.SMS.BaseURL) != "" {
		sms = notify.NewSMSClient(notify.SMSConfig{
			BaseURL:  cfg.SMS.BaseURL,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
			Timeout:  timeout,
		})
	}
	return catalog, email, sms, nil
}

func parseHMACSecretKeys(raw string) []string {
	values := parseKeyValueList(raw)
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)
	return keys
}

func parseKeyValueList(raw string) map[string]string {
	result := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
