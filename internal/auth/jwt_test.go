package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, claims IdentityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestDisplayNameFromVerifiedToken(t *testing.T) {
	secret := []byte("test-secret")
	claims := IdentityClaims{
		DisplayName: "alice",
		Email:       "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	name, err := DisplayNameFromToken(signToken(t, secret, claims), secret)
	if err != nil {
		t.Fatalf("extract name: %v", err)
	}
	if name != "alice" {
		t.Fatalf("got %q, want alice", name)
	}

	if _, err := DisplayNameFromToken(signToken(t, []byte("other"), claims), secret); err == nil {
		t.Fatal("token with wrong signature accepted")
	}
}

func TestDisplayNameFromUnverifiedToken(t *testing.T) {
	claims := IdentityClaims{DisplayName: "bob"}
	token := signToken(t, []byte("whatever"), claims)

	// No configured secret: claims are trusted as-is.
	name, err := DisplayNameFromToken(token, nil)
	if err != nil {
		t.Fatalf("extract name: %v", err)
	}
	if name != "bob" {
		t.Fatalf("got %q, want bob", name)
	}
}

func TestDisplayNameMissing(t *testing.T) {
	token := signToken(t, []byte("s"), IdentityClaims{})
	if _, err := DisplayNameFromToken(token, nil); err == nil {
		t.Fatal("expected error for token without display name")
	}
}
