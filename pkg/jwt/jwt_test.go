package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/purelyricky/avashift-com-sub000/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("期望 UserID=user-1，实际=%s", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("期望 Role=admin，实际=%s", claims.Role)
	}
	if claims.Issuer != "avashift" {
		t.Errorf("期望 Issuer=avashift，实际=%s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 14*time.Minute || ttl > 16*time.Minute {
		t.Errorf("AccessToken TTL 期望约15分钟，实际=%v", ttl)
	}
}

func TestGenerateAccessToken_UniqueJTI(t *testing.T) {
	m := newTestManager()

	t1, _ := m.GenerateAccessToken("user-1", "student")
	t2, _ := m.GenerateAccessToken("user-1", "student")

	c1, _ := m.ParseToken(t1)
	c2, _ := m.ParseToken(t2)
	if c1.ID == c2.ID {
		t.Error("两次签发的 JTI 不应相同")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	m := newTestManager()

	_, err := m.ParseToken("invalid.token.string")
	if err == nil {
		t.Error("期望解析无效 token 返回错误")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{
		JWTSecret:      "different-secret-key",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := m1.GenerateAccessToken("user-1", "admin")
	_, err := m2.ParseToken(token)
	if err == nil {
		t.Error("不同密钥签名的 token 不应通过验证")
	}
}

func TestParseToken_WrongIssuer(t *testing.T) {
	m := newTestManager()

	claims := Claims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)

	if _, err := m.ParseToken(token); err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -1 * time.Minute,
	})

	token, _ := m.GenerateAccessToken("user-1", "admin")

	_, err := m.ParseToken(token)
	if err == nil {
		t.Error("过期 token 不应通过验证")
	}
	if err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestParseToken_RejectsOtherAlgorithmsAndMissingExp(t *testing.T) {
	m := newTestManager()

	base := jwtv5.RegisteredClaims{Issuer: issuer, ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour))}
	hs512, _ := jwtv5.NewWithClaims(jwtv5.SigningMethodHS512, Claims{UserID: "u", RegisteredClaims: base}).SignedString(m.secret)
	noExp, _ := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, Claims{UserID: "u", RegisteredClaims: jwtv5.RegisteredClaims{Issuer: issuer}}).SignedString(m.secret)

	for name, token := range map[string]string{"hs512": hs512, "no exp": noExp} {
		if _, err := m.ParseToken(token); err != ErrTokenInvalid {
			t.Errorf("%s: 期望 ErrTokenInvalid，实际: %v", name, err)
		}
	}
}

func TestParseToken_Leeway(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -10 * time.Second,
	})

	token, _ := m.GenerateAccessToken("user-1", "guard")
	if _, err := m.ParseToken(token); err != nil {
		t.Errorf("30 秒容差内应通过，实际: %v", err)
	}
}
