package auth

import (
	"strings"
	"testing"
	"time"
)

func testService() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "indiehub-test",
		Duration: time.Hour,
	}
}

func testUser() *User {
	return &User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@test.local",
		TokenVersion: 3,
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	ts := testService()

	tok, exp, err := ts.Sign(testUser())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v already passed", exp)
	}

	claims, err := ts.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("token version = %d, want 3", claims.TokenVersion)
	}
	if claims.Issuer != "indiehub-test" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _, err := testService().Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	other := testService()
	other.Secret = []byte("different-secret")
	if _, err := other.Parse(tok); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	ts := testService()
	ts.Duration = -time.Minute

	tok, _, err := ts.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Parse(tok); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	ts := testService()
	tok, _, err := ts.Sign(testUser())
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", tok)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := ts.Parse(tampered); err == nil {
		t.Fatal("tampered payload must not parse")
	}
}
