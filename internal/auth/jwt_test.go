package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)
	userID := uuid.New().String()

	token, expiresAt, err := m.GenerateToken(userID, "member")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("token should expire in the future")
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("claims.UserID mismatch: got %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "member" {
		t.Fatalf("claims.Role mismatch: got %s", claims.Role)
	}
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, _, err := m.GenerateToken(uuid.New().String(), "member")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.VerifyToken(token); err == nil {
		t.Fatal("expected verification of expired token to fail")
	}
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 5*time.Minute)
	verifier := NewJWTManager("secret-b", 5*time.Minute)

	token, _, err := issuer.GenerateToken(uuid.New().String(), "member")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected verification with wrong secret to fail")
	}
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)
	if _, err := m.VerifyToken("not-a-token"); err == nil {
		t.Fatal("expected garbage token to fail verification")
	}
}
