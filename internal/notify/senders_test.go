package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmailClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer mail-key", r.Header.Get("Authorization"))
		var body emailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"asha@example.com"}, body.To)
		require.Equal(t, "orders@example.com", body.From)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewEmailClient(EmailConfig{BaseURL: srv.URL, APIKey: "mail-key", From: "orders@example.com"})
	require.NoError(t, client.SendEmail(context.Background(), "asha@example.com", "Hi", "<p>Hi</p>"))
	require.ErrorIs(t, client.SendEmail(context.Background(), " ", "Hi", ""), ErrNoRecipient)
}

func TestSMSClientNormalizesNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sms-key", r.Header.Get("X-API-Key"))
		var body smsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "+919876543210", body.To)
		require.Equal(t, "GENIUS", body.Sender)
	}))
	defer srv.Close()

	client := NewSMSClient(SMSConfig{BaseURL: srv.URL, APIKey: "sms-key", SenderID: "GENIUS"})
	require.NoError(t, client.SendSMS(context.Background(), "+91 98765-43210", "hello"))
	require.ErrorIs(t, client.SendSMS(context.Background(), "12345", "hello"), ErrNoRecipient)
}

func TestNormalizeIndianMobile(t *testing.T) {
	require.Equal(t, "+919876543210", NormalizeIndianMobile("09876543210"))
	require.Equal(t, "+919876543210", NormalizeIndianMobile("9876543210"))
	require.Equal(t, "", NormalizeIndianMobile("555-0100"))
}
