package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireFirebaseAuth_AttachesIdentity(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{
		UID: "uid-123",
		Claims: map[string]any{
			"role":         []any{"Staff", "admin", "staff"},
			"email":        "ops@example.com",
			"phone_number": "+919876543210",
		},
	}}
	authn := NewAuthenticator(verifier)

	var got *Identity
	handler := authn.RequireFirebaseAuth(RoleStaff)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "token-abc" {
		t.Fatalf("verifier received %q", verifier.received)
	}
	if got == nil || got.UID != "uid-123" || got.Email != "ops@example.com" || got.Phone != "+919876543210" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if len(got.Roles) != 2 || !got.HasRole(RoleAdmin) {
		t.Fatalf("expected deduplicated roles, got %v", got.Roles)
	}
}

func TestRequireFirebaseAuth_FallbackRoleIsCustomer(t *testing.T) {
	authn := NewAuthenticator(&stubTokenVerifier{token: &firebaseauth.Token{UID: "u1", Claims: map[string]any{}}})

	var roles []string
	handler := authn.RequireFirebaseAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		roles = identity.Roles
	}))
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "bearer t")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(roles) != 1 || roles[0] != RoleCustomer {
		t.Fatalf("expected customer fallback, got %v", roles)
	}
}

func TestRequireFirebaseAuth_Rejections(t *testing.T) {
	customer := &firebaseauth.Token{UID: "u1", Claims: map[string]any{"role": "customer"}}
	cases := []struct {
		name     string
		header   string
		verifier *stubTokenVerifier
		want     int
	}{
		{name: "missing header", header: "", verifier: &stubTokenVerifier{token: customer}, want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", verifier: &stubTokenVerifier{token: customer}, want: http.StatusUnauthorized},
		{name: "verification error", header: "Bearer bad", verifier: &stubTokenVerifier{err: errors.New("boom")}, want: http.StatusUnauthorized},
		{name: "insufficient role", header: "Bearer ok", verifier: &stubTokenVerifier{token: customer}, want: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := NewAuthenticator(tc.verifier).RequireFirebaseAuth(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if called {
				t.Fatalf("handler should not run")
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRolesFromClaims_MapForm(t *testing.T) {
	roles := rolesFromClaims(map[string]any{"role": map[string]any{"admin": true, "staff": false}}, "role")
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Fatalf("unexpected roles %v", roles)
	}
}
