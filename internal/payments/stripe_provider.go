package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const stripeProviderName = "stripe"

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey         string
	AccountID      string
	PublishableKey string
	Backends       *stripe.Backends
	Logger         Logger

	intents stripePaymentIntentAPI
}

// StripeProvider opens PaymentIntents for the Payment Element and verifies them by lookup.
type StripeProvider struct {
	intents        stripePaymentIntentAPI
	account        string
	publishableKey string
	logger         Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	intents := cfg.intents
	if intents == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		intents = client.New(apiKey, cfg.Backends).PaymentIntents
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StripeProvider{
		intents:        intents,
		account:        strings.TrimSpace(cfg.AccountID),
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		logger:         logger,
	}, nil
}

func (p *StripeProvider) Name() string { return stripeProviderName }

// CreateOrder creates a PaymentIntent; its client secret opens the widget.
func (p *StripeProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	currency := strings.ToLower(defaultString(req.Currency, "INR"))
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	params.Metadata = map[string]string{"receipt": req.Receipt}
	for k, v := range req.Notes {
		params.Metadata[k] = v
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"receipt":       req.Receipt,
	})
	return GatewayOrder{
		ID:           intent.ID,
		Provider:     stripeProviderName,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Receipt:      req.Receipt,
		KeyID:        p.publishableKey,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyPayment looks the PaymentIntent up; Stripe confirmations carry no client signature.
func (p *StripeProvider) VerifyPayment(ctx context.Context, req VerificationRequest) (Verification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	intent, err := p.intents.Get(req.GatewayOrderID, params)
	if err != nil {
		return Verification{}, fmt.Errorf("stripe: lookup payment intent: %w", err)
	}

	paymentID := intent.ID
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		paymentID = intent.LatestCharge.ID
	}
	if claimed := strings.TrimSpace(req.PaymentID); claimed != "" && claimed != intent.ID && claimed != paymentID {
		return Verification{}, fmt.Errorf("%w: payment %s does not belong to intent %s", ErrVerificationFailed, claimed, intent.ID)
	}

	result := Verification{
		Provider:       stripeProviderName,
		GatewayOrderID: intent.ID,
		PaymentID:      paymentID,
		Status:         stripeStatus(intent.Status),
		Amount:         intent.Amount,
	}
	if result.Status != StatusSucceeded {
		return result, fmt.Errorf("%w: intent %s is %s", ErrVerificationFailed, intent.ID, intent.Status)
	}
	return result, nil
}

func stripeStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
