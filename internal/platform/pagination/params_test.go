package pagination

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.PageSize != DefaultPageSize || !params.Cursor.IsZero() {
		t.Fatalf("unexpected defaults %+v", params)
	}
}

func TestParsePageSize(t *testing.T) {
	cases := map[string]int{"5": 5, "100": 100, "1000": DefaultMaxPageSize}
	for raw, want := range cases {
		params, err := Parse(url.Values{"pageSize": {raw}})
		if err != nil {
			t.Fatalf("Parse(%s): %v", raw, err)
		}
		if params.PageSize != want {
			t.Fatalf("pageSize %s: expected %d, got %d", raw, want, params.PageSize)
		}
	}
	for _, raw := range []string{"0", "-3", "ten"} {
		if _, err := Parse(url.Values{"pageSize": {raw}}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize %s: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2025, 4, 2, 10, 30, 0, 0, time.UTC), ID: "ord_01HZX"}
	token := EncodeToken(cursor)
	if token == "" {
		t.Fatal("expected a token")
	}
	params, err := Parse(url.Values{"pageToken": {token}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !params.Cursor.CreatedAt.Equal(cursor.CreatedAt) || params.Cursor.ID != cursor.ID {
		t.Fatalf("unexpected cursor %+v", params.Cursor)
	}
	if EncodeToken(Cursor{}) != "" {
		t.Fatal("zero cursor should encode to an empty token")
	}
}

func TestDecodeTokenInvalid(t *testing.T) {
	for _, token := range []string{"%%%", "bm90LWpzb24", "e30"} {
		if _, err := DecodeToken(token); !errors.Is(err, ErrInvalidPageToken) {
			t.Fatalf("token %q: expected ErrInvalidPageToken, got %v", token, err)
		}
	}
}
