package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or PSP confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the PSP reports the payment as captured or authorised.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the PSP reports a failure and no further action is possible.
	StatusFailed Status = "failed"
)

var (
	// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrVerificationFailed reports that the payment proof did not check out server-side.
	ErrVerificationFailed = errors.New("payments: verification failed")
)

// CreateOrderRequest asks a gateway for an order the client widget can pay.
// Amount is in whole rupees; providers convert to minor units.
type CreateOrderRequest struct {
	Amount         int64
	Currency       string
	Receipt        string
	Email          string
	Notes          map[string]string
	IdempotencyKey string
}

// GatewayOrder is the gateway-side handle the widget is opened against. Amount is in minor units.
type GatewayOrder struct {
	ID           string
	Provider     string
	Amount       int64
	Currency     string
	Receipt      string
	KeyID        string
	ClientSecret string
}

// VerificationRequest carries the widget's success payload.
type VerificationRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// Verification is the server-side outcome of checking a payment.
type Verification struct {
	Provider       string
	GatewayOrderID string
	PaymentID      string
	Status         Status
	Amount         int64
}

// Provider is a payment gateway adapter.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)
	// VerifyPayment returns ErrVerificationFailed (wrapped) when the proof does not match.
	VerifyPayment(ctx context.Context, req VerificationRequest) (Verification, error)
}

// Logger receives provider events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ToMinorUnits converts whole rupees to paise.
func ToMinorUnits(amount int64) int64 {
	return amount * 100
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager registers providers under their Name.
func NewManager(providers []Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	registered := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("payments: nil provider registration")
		}
		key := normaliseKey(p.Name())
		if key == "" {
			return nil, fmt.Errorf("payments: provider %T has no name", p)
		}
		registered[key] = p
	}
	m := &Manager{providers: registered}
	if len(providers) == 1 {
		m.defaultProvider = normaliseKey(providers[0].Name())
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

// Resolve picks the preferred provider, then the currency route, then the default.
func (m *Manager) Resolve(ctx PaymentContext) (Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return nil, ErrUnsupportedProvider
	}
	if p, ok := m.providers[normaliseKey(ctx.PreferredProvider)]; ok {
		return p, nil
	}
	if route, ok := m.currencyRoutes[strings.ToUpper(strings.TrimSpace(ctx.Currency))]; ok {
		if p, ok := m.providers[normaliseKey(route)]; ok {
			return p, nil
		}
	}
	if p, ok := m.providers[normaliseKey(m.defaultProvider)]; ok {
		return p, nil
	}
	return nil, ErrUnsupportedProvider
}

// CreateOrder delegates to the resolved provider and stamps its name on the result.
func (m *Manager) CreateOrder(ctx context.Context, paymentCtx PaymentContext, req CreateOrderRequest) (GatewayOrder, error) {
	provider, err := m.Resolve(paymentCtx)
	if err != nil {
		return GatewayOrder{}, err
	}
	order, err := provider.CreateOrder(ctx, req)
	if err != nil {
		return GatewayOrder{}, err
	}
	order.Provider = provider.Name()
	return order, nil
}

// VerifyPayment verifies with the provider that created the gateway order.
func (m *Manager) VerifyPayment(ctx context.Context, providerName string, req VerificationRequest) (Verification, error) {
	provider, ok := m.providers[normaliseKey(providerName)]
	if !ok {
		return Verification{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerName)
	}
	return provider.VerifyPayment(ctx, req)
}

func normaliseKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
