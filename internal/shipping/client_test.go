package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		BaseURL:       srv.URL,
		APIToken:      "ship-token",
		OriginPincode: "110001",
		Parcel:        Parcel{WeightGrams: 500, LengthCM: 20, BreadthCM: 15, HeightCM: 5},
	})
	require.NoError(t, err)
	return client
}

func TestCheckServiceability(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/serviceability", r.URL.Path)
		require.Equal(t, "560001", r.URL.Query().Get("delivery_pincode"))
		require.Equal(t, "110001", r.URL.Query().Get("pickup_pincode"))
		require.Equal(t, "Bearer ship-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"serviceable":false}`))
	})

	ok, err := client.CheckServiceability(context.Background(), "560001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetRatesKeepsOrderAndRounds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body rateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 500, body.WeightGrams)
		require.Equal(t, "560001", body.DeliveryPincode)
		_, _ = w.Write([]byte(`{"couriers":[
			{"courier_name":"Delhivery","rate":"62.50","estimated_delivery_days":4},
			{"courier_name":"BlueDart","rate":118.2,"estimated_delivery_days":2},
			{"courier_name":"","rate":10,"estimated_delivery_days":9}
		]}`))
	})

	options, err := client.GetRates(context.Background(), RateRequest{DestinationPincode: "560001", DeclaredValue: 999})
	require.NoError(t, err)
	require.Len(t, options, 2)
	require.Equal(t, "Delhivery", options[0].CourierName)
	require.Equal(t, int64(63), options[0].Rate)
	require.Equal(t, int64(118), options[1].Rate)
}

func TestGetRatesUpstreamFailureIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})
	_, err := client.GetRates(context.Background(), RateRequest{DestinationPincode: "560001"})
	require.Error(t, err)
	require.True(t, httpx.IsTransient(err))
}

func TestUnconfiguredClient(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	_, err = client.CheckServiceability(context.Background(), "560001")
	require.True(t, errors.Is(err, httpx.ErrClientNotConfigured))
}

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent([]byte(`{"order_id":"ord_1","awb":" AWB123 ","status":"DELIVERED"}`))
	require.NoError(t, err)
	require.Equal(t, EventDelivered, event.Status)
	require.Equal(t, "AWB123", event.AWB)

	_, err = ParseEvent([]byte(`{"order_id":"ord_1","status":"lost"}`))
	require.ErrorIs(t, err, ErrInvalidEvent)
	_, err = ParseEvent([]byte(`{"status":"shipped"}`))
	require.ErrorIs(t, err, ErrInvalidEvent)
	_, err = ParseEvent([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidEvent)
}
