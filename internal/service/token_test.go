package service

import (
	"testing"
	"time"
)

func TestUserTokenRoundTrip(t *testing.T) {
	token, err := GenerateUserToken("user-secret", 42, time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	claims, err := ParseUserToken("user-secret", token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id want 42 got %d", claims.UserID)
	}
	if _, err := ParseUserToken("other-secret", token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestServiceTokenNormalizesName(t *testing.T) {
	token, err := GenerateServiceToken("svc-secret", " Payout-Worker ", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	claims, err := ParseServiceToken("svc-secret", token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.Service != "payout-worker" {
		t.Fatalf("service want payout-worker got %s", claims.Service)
	}
	if _, err := GenerateServiceToken("svc-secret", "  ", time.Hour); err == nil {
		t.Fatalf("empty service name must be rejected")
	}
}

func TestExpiredUserTokenRejected(t *testing.T) {
	token, err := GenerateUserToken("user-secret", 7, -time.Minute)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := ParseUserToken("user-secret", token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}
