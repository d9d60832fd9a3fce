package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/updwatch/internal/config"
)

func TestNewDisabled(t *testing.T) {
	svc, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = New(&config.ServeAuthConfig{Token: "x"})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestNewRequiresCredentialSource(t *testing.T) {
	_, err := New(&config.ServeAuthConfig{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token, token_hash or jwt_secret")
}

func TestNewRejectsBadTTL(t *testing.T) {
	for _, ttl := range []string{"soon", "-5m", "0s"} {
		_, err := New(&config.ServeAuthConfig{Enabled: true, Token: "x", JWTTTL: ttl})
		assert.Error(t, err, ttl)
	}
}

func TestVerifyStaticToken(t *testing.T) {
	svc, err := New(&config.ServeAuthConfig{Enabled: true, Token: "s3cret"})
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.True(t, svc.VerifyBearer("s3cret"))
	assert.False(t, svc.VerifyBearer("wrong"))
	assert.False(t, svc.VerifyBearer(""))
}

func TestVerifyTokenHash(t *testing.T) {
	hash, err := HashToken("hunter2")
	require.NoError(t, err)

	svc, err := New(&config.ServeAuthConfig{Enabled: true, TokenHash: hash})
	require.NoError(t, err)

	assert.True(t, svc.VerifyBearer("hunter2"))
	assert.False(t, svc.VerifyBearer("hunter3"))
}

func TestIssueAndVerifyToken(t *testing.T) {
	svc, err := New(&config.ServeAuthConfig{Enabled: true, JWTSecret: "topsecret", JWTTTL: "1h"})
	require.NoError(t, err)

	token, expiresAt, err := svc.IssueToken("ops", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
	assert.True(t, svc.VerifyBearer(token))

	claims, err := svc.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "updwatch", claims.Issuer)
	assert.Equal(t, "ops", claims.Subject)
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	svc, err := New(&config.ServeAuthConfig{Enabled: true, Token: "x"})
	require.NoError(t, err)

	_, _, err = svc.IssueToken("ops", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, err := New(&config.ServeAuthConfig{Enabled: true, JWTSecret: "topsecret"})
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	assert.False(t, svc.VerifyBearer(expired))
}

func TestForeignSignatureRejected(t *testing.T) {
	svc, err := New(&config.ServeAuthConfig{Enabled: true, JWTSecret: "topsecret"})
	require.NoError(t, err)

	other, err := New(&config.ServeAuthConfig{Enabled: true, JWTSecret: "othersecret"})
	require.NoError(t, err)
	token, _, err := other.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	assert.False(t, svc.VerifyBearer(token))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, err := New(&config.ServeAuthConfig{Enabled: true, Token: "s3cret"})
	require.NoError(t, err)

	g := gin.New()
	g.Use(svc.GinMiddleware())
	g.GET("/status", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized, wantBody: "authentication required"},
		{name: "not bearer", header: "Basic Zm9vOmJhcg==", wantCode: http.StatusUnauthorized, wantBody: "authentication required"},
		{name: "wrong token", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantBody: "invalid credentials"},
		{name: "good token", header: "Bearer s3cret", wantCode: http.StatusOK, wantBody: `"ok"`},
		{name: "case-insensitive scheme", header: "bearer s3cret", wantCode: http.StatusOK, wantBody: `"ok"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			g.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestGinMiddlewareNilService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var svc *Service

	g := gin.New()
	g.Use(svc.GinMiddleware())
	g.GET("/status", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
