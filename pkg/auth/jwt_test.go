package auth

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute, time.Hour)

	token, err := manager.GenerateToken("tesorera@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Email != "tesorera@example.com" {
		t.Errorf("email = %q, want tesorera@example.com", claims.Email)
	}
	if claims.Subject != claims.Email {
		t.Errorf("subject = %q, want it to match the email", claims.Subject)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Minute, time.Hour)
	verifier := NewJWTManager("secret-b", time.Minute, time.Hour)

	token, err := issuer.GenerateToken("tesorera@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("token signed with another secret validated")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute, time.Hour)

	token, err := manager.GenerateToken("tesorera@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute, time.Hour)
	if _, err := manager.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage input validated")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
