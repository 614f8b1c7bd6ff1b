package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ord_1", body["receipt"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gw_1"}`))
	}))
	defer srv.Close()

	client := NewJSONClient(srv.URL+"/v1/", time.Second, WithBearerToken("token-1"))
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, client.Do(context.Background(), http.MethodPost, "orders", map[string]string{"receipt": "ord_1"}, &out))
	require.Equal(t, "gw_1", out.ID)
}

func TestJSONClientStatusErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	client := NewJSONClient(srv.URL, time.Second)
	err := client.Do(context.Background(), http.MethodGet, "/rates", nil, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, "upstream down", statusErr.Body)
	require.True(t, IsTransient(err))

	status = http.StatusBadRequest
	err = client.Do(context.Background(), http.MethodGet, "/rates", nil, nil)
	require.Error(t, err)
	require.False(t, IsTransient(err))
}

func TestJSONClientDownloadAndUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	client := NewJSONClient("", time.Second)
	require.False(t, client.Configured())
	require.ErrorIs(t, client.Do(context.Background(), http.MethodGet, "/x", nil, nil), ErrClientNotConfigured)

	body, err := client.Download(context.Background(), srv.URL+"/invoice.pdf")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(data))
}
