package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

const (
	defaultSignatureHeader = "X-Signature"
	defaultTimestampHeader = "X-Signature-Timestamp"
	defaultNonceHeader     = "X-Signature-Nonce"

	defaultClockSkew = 5 * time.Minute
	defaultNonceTTL  = 5 * time.Minute
)

// SecretProvider resolves shared webhook secrets by name.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretProviderFunc adapts a function to SecretProvider.
type SecretProviderFunc func(context.Context, string) (string, error)

// GetSecret implements SecretProvider.
func (f SecretProviderFunc) GetSecret(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// StaticSecrets serves secrets from a fixed map, typically the resolved HMAC config.
func StaticSecrets(secrets map[string]string) SecretProvider {
	return SecretProviderFunc(func(_ context.Context, name string) (string, error) {
		secret, ok := secrets[name]
		if !ok || secret == "" {
			return "", fmt.Errorf("auth: secret %q not configured", name)
		}
		return secret, nil
	})
}

// NonceStore remembers nonces to reject replays. UseNonce returns false when nonce was already seen.
type NonceStore interface {
	UseNonce(ctx context.Context, scope, nonce string, expiry time.Time) (bool, error)
}

// InMemoryNonceStore is a process-local NonceStore.
type InMemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	now    func() time.Time
}

// NewInMemoryNonceStore constructs the store.
func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[string]time.Time), now: time.Now}
}

// UseNonce implements NonceStore.
func (s *InMemoryNonceStore) UseNonce(_ context.Context, scope, nonce string, expiry time.Time) (bool, error) {
	if scope == "" || nonce == "" {
		return false, errors.New("auth: scope and nonce are required")
	}
	key := scope + "::" + nonce

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.nonces {
		if exp.Before(now) {
			delete(s.nonces, k)
		}
	}
	if _, seen := s.nonces[key]; seen {
		return false, nil
	}
	s.nonces[key] = expiry
	return true, nil
}

// HMACValidator verifies signed webhook deliveries.
// The signature covers "METHOD\nPATH\nTIMESTAMP\nNONCE\nhex(sha256(body))".
type HMACValidator struct {
	provider SecretProvider
	nonces   NonceStore
	logger   Logger
	metrics  MetricsRecorder
	now      func() time.Time

	signatureHeader string
	timestampHeader string
	nonceHeader     string
	clockSkew       time.Duration
	nonceTTL        time.Duration
}

// HMACOption customises an HMACValidator.
type HMACOption func(*HMACValidator)

// WithHMACLogger sets the validator logger.
func WithHMACLogger(logger Logger) HMACOption {
	return func(v *HMACValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithHMACMetrics sets the metrics recorder.
func WithHMACMetrics(metrics MetricsRecorder) HMACOption {
	return func(v *HMACValidator) { v.metrics = metrics }
}

// WithHMACClock injects a time source.
func WithHMACClock(now func() time.Time) HMACOption {
	return func(v *HMACValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithHMACHeaders overrides header names. Empty values keep the defaults.
func WithHMACHeaders(signature, timestamp, nonce string) HMACOption {
	return func(v *HMACValidator) {
		if signature != "" {
			v.signatureHeader = signature
		}
		if timestamp != "" {
			v.timestampHeader = timestamp
		}
		if nonce != "" {
			v.nonceHeader = nonce
		}
	}
}

// WithHMACWindow sets the accepted clock skew and nonce retention.
func WithHMACWindow(skew, nonceTTL time.Duration) HMACOption {
	return func(v *HMACValidator) {
		if skew > 0 {
			v.clockSkew = skew
		}
		if nonceTTL > 0 {
			v.nonceTTL = nonceTTL
		}
	}
}

// NewHMACValidator constructs a validator.
func NewHMACValidator(provider SecretProvider, nonces NonceStore, opts ...HMACOption) *HMACValidator {
	v := &HMACValidator{
		provider:        provider,
		nonces:          nonces,
		logger:          nopLogger{},
		now:             time.Now,
		signatureHeader: defaultSignatureHeader,
		timestampHeader: defaultTimestampHeader,
		nonceHeader:     defaultNonceHeader,
		clockSkew:       defaultClockSkew,
		nonceTTL:        defaultNonceTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// RequireHMAC admits requests signed with the secret named secretName.
func (v *HMACValidator) RequireHMAC(secretName string) func(http.Handler) http.Handler {
	secretName = strings.TrimSpace(secretName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := v.now()
			ctx := r.Context()
			fail := func(status int, code, reason string) {
				v.record(ctx, false, reason, start)
				httpx.WriteError(ctx, w, httpx.NewError(code, "signature verification failed", status))
			}

			if v.provider == nil || v.nonces == nil || secretName == "" {
				fail(http.StatusServiceUnavailable, "verification_unavailable", "not_configured")
				return
			}
			secret, err := v.provider.GetSecret(ctx, secretName)
			if err != nil || secret == "" {
				v.logger.Printf("auth: hmac secret %q unavailable: %v", secretName, err)
				fail(http.StatusServiceUnavailable, "verification_unavailable", "secret_unavailable")
				return
			}

			signatureValue := strings.TrimSpace(r.Header.Get(v.signatureHeader))
			timestampValue := strings.TrimSpace(r.Header.Get(v.timestampHeader))
			nonce := strings.TrimSpace(r.Header.Get(v.nonceHeader))
			if signatureValue == "" || timestampValue == "" || nonce == "" {
				fail(http.StatusUnauthorized, "signature_missing", "headers_missing")
				return
			}

			timestamp, err := parseSignatureTimestamp(timestampValue)
			if err != nil {
				fail(http.StatusUnauthorized, "timestamp_invalid", "timestamp_invalid")
				return
			}
			if skew := v.now().Sub(timestamp); skew > v.clockSkew || skew < -v.clockSkew {
				fail(http.StatusUnauthorized, "timestamp_skew", "timestamp_skew")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				fail(http.StatusBadRequest, "invalid_body", "body_unreadable")
				return
			}
			signature, err := decodeSignature(signatureValue)
			if err != nil {
				fail(http.StatusUnauthorized, "signature_invalid", "signature_invalid")
				return
			}
			expected := ComputeSignature([]byte(secret), r.Method, r.URL.EscapedPath(), timestampValue, nonce, body)
			if !hmac.Equal(signature, expected) {
				fail(http.StatusUnauthorized, "signature_mismatch", "signature_mismatch")
				return
			}

			stored, err := v.nonces.UseNonce(ctx, secretName, nonce, v.now().Add(v.nonceTTL))
			if err != nil {
				v.logger.Printf("auth: nonce store error: %v", err)
				fail(http.StatusServiceUnavailable, "verification_unavailable", "nonce_store_error")
				return
			}
			if !stored {
				fail(http.StatusUnauthorized, "nonce_replay", "nonce_replay")
				return
			}

			v.record(ctx, true, "ok", start)
			next.ServeHTTP(w, r)
		})
	}
}

func (v *HMACValidator) record(ctx context.Context, success bool, reason string, start time.Time) {
	if v.metrics != nil {
		v.metrics.RecordVerification(ctx, "hmac", success, reason, v.now().Sub(start))
	}
}

// ComputeSignature returns the raw HMAC-SHA256 a sender must attach to a request.
func ComputeSignature(secret []byte, method, path, timestamp, nonce string, body []byte) []byte {
	if path == "" {
		path = "/"
	}
	hash := sha256.Sum256(body)
	canonical := strings.Join([]string{
		strings.ToUpper(method),
		path,
		timestamp,
		nonce,
		hex.EncodeToString(hash[:]),
	}, "\n")
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(canonical))
	return mac.Sum(nil)
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, nil
}

func decodeSignature(value string) ([]byte, error) {
	if decoded, err := hex.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return nil, errors.New("auth: signature must be hex or base64 encoded")
}

func parseSignatureTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("auth: unable to parse timestamp %q", value)
}
