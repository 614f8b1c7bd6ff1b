package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "secret", pass)
		require.Equal(t, "/v1/orders", r.URL.Path)

		var body razorpayOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(104900), body.Amount)
		require.Equal(t, "INR", body.Currency)
		require.Equal(t, "ord_42", body.Receipt)

		_ = json.NewEncoder(w).Encode(razorpayOrderResponse{ID: "order_ABC", Amount: body.Amount, Currency: "INR", Receipt: body.Receipt, Status: "created"})
	}))
	defer srv.Close()

	provider, err := NewRazorpayProvider(RazorpayProviderConfig{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	order, err := provider.CreateOrder(context.Background(), CreateOrderRequest{Amount: 1049, Currency: "INR", Receipt: "ord_42"})
	require.NoError(t, err)
	require.Equal(t, "order_ABC", order.ID)
	require.Equal(t, "rzp_test_key", order.KeyID)
	require.Equal(t, int64(104900), order.Amount)
}

func TestRazorpayCreateOrderPropagatesGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"SERVER_ERROR"}}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	provider, err := NewRazorpayProvider(RazorpayProviderConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = provider.CreateOrder(context.Background(), CreateOrderRequest{Amount: 10, Receipt: "ord_1"})
	require.Error(t, err)
}

func TestRazorpayVerifyPaymentSignature(t *testing.T) {
	provider, err := NewRazorpayProvider(RazorpayProviderConfig{KeyID: "k", KeySecret: "secret", BaseURL: "https://api.example.test/v1"})
	require.NoError(t, err)

	signature := provider.Sign("order_ABC", "pay_XYZ")
	result, err := provider.VerifyPayment(context.Background(), VerificationRequest{GatewayOrderID: "order_ABC", PaymentID: "pay_XYZ", Signature: signature})
	require.NoError(t, err)
	require.Equal(t, "pay_XYZ", result.PaymentID)

	_, err = provider.VerifyPayment(context.Background(), VerificationRequest{GatewayOrderID: "order_ABC", PaymentID: "pay_OTHER", Signature: signature})
	require.ErrorIs(t, err, ErrVerificationFailed)

	_, err = provider.VerifyPayment(context.Background(), VerificationRequest{GatewayOrderID: "order_ABC", PaymentID: "pay_XYZ"})
	require.ErrorIs(t, err, ErrVerificationFailed)
}
