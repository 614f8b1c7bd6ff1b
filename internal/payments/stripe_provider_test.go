package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type fakeIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.created = params
	return f.intent, f.err
}

func (f *fakeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func TestStripeCreateOrderUsesPaise(t *testing.T) {
	intents := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: 59900, Currency: "inr"}}
	provider, err := NewStripeProvider(StripeProviderConfig{PublishableKey: "pk_test", intents: intents})
	require.NoError(t, err)

	order, err := provider.CreateOrder(context.Background(), CreateOrderRequest{Amount: 599, Currency: "INR", Receipt: "ord_1"})
	require.NoError(t, err)
	require.Equal(t, int64(59900), *intents.created.Amount)
	require.Equal(t, "inr", *intents.created.Currency)
	require.Equal(t, "ord_1", intents.created.Metadata["receipt"])
	require.Equal(t, GatewayOrder{
		ID: "pi_1", Provider: "stripe", Amount: 59900, Currency: "INR", Receipt: "ord_1",
		KeyID: "pk_test", ClientSecret: "pi_1_secret",
	}, order)
}

func TestStripeVerifyPayment(t *testing.T) {
	cases := []struct {
		name    string
		intent  *stripe.PaymentIntent
		claimed string
		wantErr bool
	}{
		{name: "succeeded", intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, LatestCharge: &stripe.Charge{ID: "ch_1"}}, claimed: "ch_1"},
		{name: "intent id accepted", intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}, claimed: "pi_1"},
		{name: "still processing", intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing}, wantErr: true},
		{name: "foreign charge", intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, LatestCharge: &stripe.Charge{ID: "ch_1"}}, claimed: "ch_other", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider, err := NewStripeProvider(StripeProviderConfig{intents: &fakeIntents{intent: tc.intent}})
			require.NoError(t, err)
			result, err := provider.VerifyPayment(context.Background(), VerificationRequest{GatewayOrderID: "pi_1", PaymentID: tc.claimed})
			if tc.wantErr {
				require.ErrorIs(t, err, ErrVerificationFailed)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusSucceeded, result.Status)
		})
	}
}

func TestStripeVerifyLookupErrorIsNotVerificationFailure(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{intents: &fakeIntents{err: errors.New("network")}})
	require.NoError(t, err)
	_, err = provider.VerifyPayment(context.Background(), VerificationRequest{GatewayOrderID: "pi_1"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrVerificationFailed))
}

func TestNewStripeProviderRequiresKey(t *testing.T) {
	_, err := NewStripeProvider(StripeProviderConfig{})
	require.Error(t, err)
}
