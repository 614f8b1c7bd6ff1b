package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
)

func newJWKSServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{Key: &key.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRequireOIDC(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := newJWKSServer(t, key, "k1")
	validator := NewOIDCValidator(NewJWKSCache(srv.URL))
	audience := "https://api.example.com/internal/notifications:dispatch"

	var identity *ServiceIdentity
	handler := validator.RequireOIDC(audience, []string{"https://accounts.google.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ = ServiceIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	exp := time.Now().Add(time.Hour).Unix()
	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   int
	}{
		{name: "valid", claims: jwt.MapClaims{"iss": "https://accounts.google.com", "aud": audience, "sub": "svc", "email": "push@example.iam.gserviceaccount.com", "exp": exp}, want: http.StatusNoContent},
		{name: "wrong audience", claims: jwt.MapClaims{"iss": "https://accounts.google.com", "aud": "other", "exp": exp}, want: http.StatusUnauthorized},
		{name: "wrong issuer", claims: jwt.MapClaims{"iss": "https://evil.example.com", "aud": audience, "exp": exp}, want: http.StatusUnauthorized},
		{name: "expired", claims: jwt.MapClaims{"iss": "https://accounts.google.com", "aud": audience, "exp": time.Now().Add(-time.Hour).Unix()}, want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/notifications:dispatch", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, key, "k1", tc.claims))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
	if identity == nil || identity.Email != "push@example.iam.gserviceaccount.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestJWKSCacheUnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cache := NewJWKSCache(newJWKSServer(t, key, "k1").URL)
	if _, err := cache.Key(context.Background(), "missing"); err == nil {
		t.Fatalf("expected unknown kid error")
	}
}

func TestParseMaxAge(t *testing.T) {
	if got := parseMaxAge("public, max-age=19841, must-revalidate"); got != 19841*time.Second {
		t.Fatalf("unexpected max-age %s", got)
	}
	if got := parseMaxAge("no-cache"); got != 0 {
		t.Fatalf("expected zero, got %s", got)
	}
}
