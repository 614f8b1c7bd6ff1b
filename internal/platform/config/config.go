package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultSecurityEnvironment  = "local"
	defaultOIDCJWKSURL          = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer       = "https://accounts.google.com"
	defaultHMACSignatureHeader  = "X-Signature"
	defaultHMACTimestampHeader  = "X-Signature-Timestamp"
	defaultHMACNonceHeader      = "X-Signature-Nonce"
	defaultHMACClockSkew        = 5 * time.Minute
	defaultHMACNonceTTL         = 5 * time.Minute
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultCurrency             = "INR"
	defaultPaymentProvider      = "razorpay"
	defaultRazorpayBaseURL      = "https://api.razorpay.com/v1"
	defaultVendorTimeout        = 10 * time.Second
	defaultDebounceWindow       = 500 * time.Millisecond
	defaultPackageWeightGrams   = 500
	defaultPackageLengthCM      = 20
	defaultPackageBreadthCM     = 15
	defaultPackageHeightCM      = 10
	defaultDeliveryFee          = 49
	defaultFreeDeliveryMinimum  = 500
	defaultNotificationsMode    = "inline"
	defaultAMQPExchange         = "notifications"
	defaultAMQPQueue            = "notifications.delivery"
	defaultAMQPRoutingKey       = "notification.submitted"
	defaultCheckoutLockTTL      = 30 * time.Second
	defaultSignedURLTTL         = 15 * time.Minute
	defaultBrandName            = "Genius Technology"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firebase      FirebaseConfig
	Firestore     FirestoreConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Payments      PaymentsConfig
	Shipping      ShippingConfig
	Invoicing     InvoicingConfig
	Notifications NotificationsConfig
	Pricing       PricingConfig
	Checkout      CheckoutConfig
	Security      SecurityConfig
	Idempotency   IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// RedisConfig enables the shared cache and checkout locks. An empty Addr keeps both in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig names the bucket used to archive invoice PDFs.
type StorageConfig struct {
	InvoicesBucket string
	SignerEmail    string
	SignedURLTTL   time.Duration
}

// PaymentsConfig collects gateway credentials.
type PaymentsConfig struct {
	DefaultProvider string
	Currency        string
	Stripe          StripeConfig
	Razorpay        RazorpayConfig
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	APIKey         string
	AccountID      string
	PublishableKey string
}

// RazorpayConfig holds Razorpay credentials.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// ShippingConfig describes the shipping aggregator and the nominal parcel.
type ShippingConfig struct {
	BaseURL        string
	APIToken       string
	Timeout        time.Duration
	OriginPincode  string
	WeightGrams    int
	LengthCM       int
	BreadthCM      int
	HeightCM       int
	DebounceWindow time.Duration
}

// InvoicingConfig describes the invoicing service.
type InvoicingConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// NotificationsConfig selects the queue transport and the outbound providers.
type NotificationsConfig struct {
	Transport      string
	PubSubProject  string
	PubSubTopic    string
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string
	BrandName      string
	SupportEmail   string
	Email          EmailProviderConfig
	SMS            SMSProviderConfig
}

// EmailProviderConfig configures the transactional email API.
type EmailProviderConfig struct {
	BaseURL string
	APIKey  string
	From    string
}

// SMSProviderConfig configures the SMS API.
type SMSProviderConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// PricingConfig configures the delivery fee policy.
type PricingConfig struct {
	DeliveryFee         int64
	FreeDeliveryMinimum int64
}

// CheckoutConfig configures order placement.
type CheckoutConfig struct {
	LockTTL time.Duration
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
	HMAC        HMACConfig
}

// OIDCConfig controls Google-signed token verification for Pub/Sub push.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// HMACConfig captures webhook signing expectations.
type HMACConfig struct {
	Secrets         map[string]string
	SignatureHeader string
	TimestampHeader string
	NonceHeader     string
	ClockSkew       time.Duration
	NonceTTL        time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved empty.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the missing secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames returns hashed identifiers safe for logs.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "Payments.Razorpay.KeySecret") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles configuration from defaults, the .env file, the environment and Secret Manager.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
		},
		Storage: StorageConfig{
			InvoicesBucket: stringWithDefault(lookup, "API_STORAGE_INVOICES_BUCKET", ""),
			SignerEmail:    stringWithDefault(lookup, "API_STORAGE_SIGNER_EMAIL", ""),
			SignedURLTTL:   durationWithDefault(lookup, "API_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
		},
		Payments: PaymentsConfig{
			DefaultProvider: strings.ToLower(stringWithDefault(lookup, "API_PAYMENTS_DEFAULT_PROVIDER", defaultPaymentProvider)),
			Currency:        strings.ToUpper(stringWithDefault(lookup, "API_PAYMENTS_CURRENCY", defaultCurrency)),
			Stripe: StripeConfig{
				APIKey:         stringWithDefault(lookup, "API_PAYMENTS_STRIPE_API_KEY", ""),
				AccountID:      stringWithDefault(lookup, "API_PAYMENTS_STRIPE_ACCOUNT_ID", ""),
				PublishableKey: stringWithDefault(lookup, "API_PAYMENTS_STRIPE_PUBLISHABLE_KEY", ""),
			},
			Razorpay: RazorpayConfig{
				KeyID:     stringWithDefault(lookup, "API_PAYMENTS_RAZORPAY_KEY_ID", ""),
				KeySecret: stringWithDefault(lookup, "API_PAYMENTS_RAZORPAY_KEY_SECRET", ""),
				BaseURL:   stringWithDefault(lookup, "API_PAYMENTS_RAZORPAY_BASE_URL", defaultRazorpayBaseURL),
			},
		},
		Shipping: ShippingConfig{
			BaseURL:        stringWithDefault(lookup, "API_SHIPPING_BASE_URL", ""),
			APIToken:       stringWithDefault(lookup, "API_SHIPPING_API_TOKEN", ""),
			Timeout:        durationWithDefault(lookup, "API_SHIPPING_TIMEOUT", defaultVendorTimeout),
			OriginPincode:  stringWithDefault(lookup, "API_SHIPPING_ORIGIN_PINCODE", ""),
			WeightGrams:    intWithDefault(lookup, "API_SHIPPING_PACKAGE_WEIGHT_GRAMS", defaultPackageWeightGrams),
			LengthCM:       intWithDefault(lookup, "API_SHIPPING_PACKAGE_LENGTH_CM", defaultPackageLengthCM),
			BreadthCM:      intWithDefault(lookup, "API_SHIPPING_PACKAGE_BREADTH_CM", defaultPackageBreadthCM),
			HeightCM:       intWithDefault(lookup, "API_SHIPPING_PACKAGE_HEIGHT_CM", defaultPackageHeightCM),
			DebounceWindow: durationWithDefault(lookup, "API_SHIPPING_DEBOUNCE_WINDOW", defaultDebounceWindow),
		},
		Invoicing: InvoicingConfig{
			BaseURL:  stringWithDefault(lookup, "API_INVOICING_BASE_URL", ""),
			APIToken: stringWithDefault(lookup, "API_INVOICING_API_TOKEN", ""),
			Timeout:  durationWithDefault(lookup, "API_INVOICING_TIMEOUT", defaultVendorTimeout),
		},
		Notifications: NotificationsConfig{
			Transport:      strings.ToLower(stringWithDefault(lookup, "API_NOTIFICATIONS_TRANSPORT", defaultNotificationsMode)),
			PubSubProject:  stringWithDefault(lookup, "API_NOTIFICATIONS_PUBSUB_PROJECT", ""),
			PubSubTopic:    stringWithDefault(lookup, "API_NOTIFICATIONS_PUBSUB_TOPIC", ""),
			AMQPURL:        stringWithDefault(lookup, "API_NOTIFICATIONS_AMQP_URL", ""),
			AMQPExchange:   stringWithDefault(lookup, "API_NOTIFICATIONS_AMQP_EXCHANGE", defaultAMQPExchange),
			AMQPQueue:      stringWithDefault(lookup, "API_NOTIFICATIONS_AMQP_QUEUE", defaultAMQPQueue),
			AMQPRoutingKey: stringWithDefault(lookup, "API_NOTIFICATIONS_AMQP_ROUTING_KEY", defaultAMQPRoutingKey),
			BrandName:      stringWithDefault(lookup, "API_NOTIFICATIONS_BRAND_NAME", defaultBrandName),
			SupportEmail:   stringWithDefault(lookup, "API_NOTIFICATIONS_SUPPORT_EMAIL", ""),
			Email: EmailProviderConfig{
				BaseURL: stringWithDefault(lookup, "API_NOTIFICATIONS_EMAIL_BASE_URL", ""),
				APIKey:  stringWithDefault(lookup, "API_NOTIFICATIONS_EMAIL_API_KEY", ""),
				From:    stringWithDefault(lookup, "API_NOTIFICATIONS_EMAIL_FROM", ""),
			},
			SMS: SMSProviderConfig{
				BaseURL:  stringWithDefault(lookup, "API_NOTIFICATIONS_SMS_BASE_URL", ""),
				APIKey:   stringWithDefault(lookup, "API_NOTIFICATIONS_SMS_API_KEY", ""),
				SenderID: stringWithDefault(lookup, "API_NOTIFICATIONS_SMS_SENDER_ID", ""),
			},
		},
		Pricing: PricingConfig{
			DeliveryFee:         int64(intWithDefault(lookup, "API_PRICING_DELIVERY_FEE", defaultDeliveryFee)),
			FreeDeliveryMinimum: int64(intWithDefault(lookup, "API_PRICING_FREE_DELIVERY_MINIMUM", defaultFreeDeliveryMinimum)),
		},
		Checkout: CheckoutConfig{
			LockTTL: durationWithDefault(lookup, "API_CHECKOUT_LOCK_TTL", defaultCheckoutLockTTL),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
			OIDC: OIDCConfig{
				JWKSURL:  stringWithDefault(lookup, "API_SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience: stringWithDefault(lookup, "API_SECURITY_OIDC_AUDIENCE", ""),
				Issuers:  csvWithDefault(lookup, "API_SECURITY_OIDC_ISSUERS"),
			},
			HMAC: HMACConfig{
				Secrets:         mapWithDefault(lookup, "API_SECURITY_HMAC_SECRETS"),
				SignatureHeader: stringWithDefault(lookup, "API_SECURITY_HMAC_HEADER_SIGNATURE", defaultHMACSignatureHeader),
				TimestampHeader: stringWithDefault(lookup, "API_SECURITY_HMAC_HEADER_TIMESTAMP", defaultHMACTimestampHeader),
				NonceHeader:     stringWithDefault(lookup, "API_SECURITY_HMAC_HEADER_NONCE", defaultHMACNonceHeader),
				ClockSkew:       durationWithDefault(lookup, "API_SECURITY_HMAC_CLOCK_SKEW", defaultHMACClockSkew),
				NonceTTL:        durationWithDefault(lookup, "API_SECURITY_HMAC_NONCE_TTL", defaultHMACNonceTTL),
			},
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Notifications.PubSubProject == "" {
		cfg.Notifications.PubSubProject = cfg.Firebase.ProjectID
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultSecurityIssuer, "accounts.google.com"}
	}

	resolved := make(map[string]string)
	for key, value := range cfg.Security.HMAC.Secrets {
		secret, err := resolveSecret(ctx, value, options.secret)
		if err != nil {
			return Config{}, err
		}
		cfg.Security.HMAC.Secrets[key] = secret
		resolved[fmt.Sprintf("Security.HMAC.Secrets[%s]", key)] = strings.TrimSpace(secret)
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Payments.Stripe.APIKey", &cfg.Payments.Stripe.APIKey},
		{"Payments.Razorpay.KeySecret", &cfg.Payments.Razorpay.KeySecret},
		{"Shipping.APIToken", &cfg.Shipping.APIToken},
		{"Invoicing.APIToken", &cfg.Invoicing.APIToken},
		{"Notifications.Email.APIKey", &cfg.Notifications.Email.APIKey},
		{"Notifications.SMS.APIKey", &cfg.Notifications.SMS.APIKey},
		{"Notifications.AMQPURL", &cfg.Notifications.AMQPURL},
		{"Redis.Password", &cfg.Redis.Password},
	}
	for _, target := range secretFields {
		secret, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = secret
		resolved[target.name] = strings.TrimSpace(secret)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if len(cfg.Payments.Currency) != 3 {
		missing = append(missing, "Payments.Currency")
	}
	if cfg.Shipping.OriginPincode != "" && !isPincode(cfg.Shipping.OriginPincode) {
		missing = append(missing, "Shipping.OriginPincode")
	}
	if cfg.Shipping.DebounceWindow < 0 {
		missing = append(missing, "Shipping.DebounceWindow")
	}
	if cfg.Pricing.DeliveryFee < 0 {
		missing = append(missing, "Pricing.DeliveryFee")
	}
	if cfg.Pricing.FreeDeliveryMinimum < 0 {
		missing = append(missing, "Pricing.FreeDeliveryMinimum")
	}
	switch cfg.Notifications.Transport {
	case "inline":
	case "pubsub":
		if cfg.Notifications.PubSubTopic == "" {
			missing = append(missing, "Notifications.PubSubTopic")
		}
	case "amqp":
		if cfg.Notifications.AMQPURL == "" {
			missing = append(missing, "Notifications.AMQPURL")
		}
	default:
		missing = append(missing, "Notifications.Transport")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}
	if cfg.Checkout.LockTTL <= 0 {
		missing = append(missing, "Checkout.LockTTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isPincode(value string) bool {
	if len(value) != 6 || value[0] == '0' {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var names []string
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if resolved[trimmed] != "" {
			continue
		}
		names = append(names, trimmed)
	}
	if len(names) == 0 {
		return nil
	}
	return &MissingSecretsError{names: names}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mapWithDefault(lookup func(string) (string, bool), key string) map[string]string {
	values := make(map[string]string)
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return values
	}
	for _, entry := range strings.Split(raw, ",") {
		name, secret, ok := strings.Cut(strings.TrimSpace(entry), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		secret = strings.TrimSpace(secret)
		if !ok || name == "" || secret == "" {
			continue
		}
		values[name] = secret
	}
	return values
}
