package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signUnverified(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("any-key-since-we-never-verify"))
	if err != nil {
		t.Fatalf("failed to build test token: %v", err)
	}
	return s
}

func TestDecodeBearerTokenMissingHeaderIsBadRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := decodeBearerToken(r)
	if err != errMissingToken {
		t.Fatalf("got %v want errMissingToken", err)
	}
}

func TestDecodeBearerTokenMalformedSchemeIsBadRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err := decodeBearerToken(r)
	if err != errMissingToken {
		t.Fatalf("got %v want errMissingToken", err)
	}
}

func TestDecodeBearerTokenExtractsMembershipClaims(t *testing.T) {
	token := signUnverified(t, jwt.MapClaims{
		"workspaces":       []interface{}{"ws-a", "ws-b"},
		"workspaces_owned": []interface{}{"ws-c"},
		"billing-accounts": []interface{}{"acct-1"},
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"user"},
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	claims, err := decodeBearerToken(r)
	if err != nil {
		t.Fatalf("decodeBearerToken: %v", err)
	}
	if !claims.CanAccessWorkspace("ws-a") {
		t.Error("expected access to member workspace ws-a")
	}
	if !claims.CanAccessWorkspace("ws-c") {
		t.Error("expected access to owned workspace ws-c")
	}
	if claims.CanAccessWorkspace("ws-z") {
		t.Error("expected no access to unrelated workspace ws-z")
	}
	if !claims.CanAccessAccount("acct-1") {
		t.Error("expected access to billing account acct-1")
	}
	if claims.IsHubAdmin() {
		t.Error("expected not a hub admin")
	}
}

func TestHubAdminBypassesWorkspaceAndAccountChecks(t *testing.T) {
	token := signUnverified(t, jwt.MapClaims{
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"hub_admin"},
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	claims, err := decodeBearerToken(r)
	if err != nil {
		t.Fatalf("decodeBearerToken: %v", err)
	}
	if !claims.IsHubAdmin() {
		t.Fatal("expected hub_admin role to be recognised")
	}
	if !claims.CanAccessWorkspace("any-workspace-whatsoever") {
		t.Error("expected hub admin to bypass workspace check")
	}
	if !claims.CanAccessAccount("any-account-whatsoever") {
		t.Error("expected hub admin to bypass account check")
	}
}

func TestDecodeBearerTokenRejectsGarbageAfterBearerPrefix(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	_, err := decodeBearerToken(r)
	if err == nil {
		t.Fatal("expected an error for a malformed token")
	}
}
