package jwtmw

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote_backend/internal/platform/config"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func runMiddleware(t *testing.T, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	AdminRequired()(c)
	return w, c
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// TestAdminRequired_MissingBearerToken はBearerトークンが無い場合に401を返すことを検証します。
func TestAdminRequired_MissingBearerToken(t *testing.T) {
	t.Setenv(config.EnvKeyJWTSecret, "test-secret-0123456789")

	for _, h := range []string{"", "Basic dXNlcjpwYXNz", "bearer token123", "Bearertoken123"} {
		w, c := runMiddleware(t, h)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", h)
		assert.True(t, c.IsAborted())
	}
}

// TestAdminRequired_MissingJWTSecret はJWT_SECRET未設定時に500を返すことを検証します。
func TestAdminRequired_MissingJWTSecret(t *testing.T) {
	t.Setenv(config.EnvKeyJWTSecret, "")

	w, _ := runMiddleware(t, "Bearer sometoken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"server misconfigured"}`, w.Body.String())
}

func TestAdminRequired_InvalidToken(t *testing.T) {
	const secret = "test-secret-for-invalid-tokens"
	t.Setenv(config.EnvKeyJWTSecret, secret)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed token", "not.a.valid.token"},
		{"wrong secret", signedToken(t, "another-secret-entirely", jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Hour).Unix()})},
		{"expired token", signedToken(t, secret, jwt.MapClaims{"role": "admin", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"missing exp", signedToken(t, secret, jwt.MapClaims{"role": "admin"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := runMiddleware(t, "Bearer "+tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

// TestAdminRequired_NonAdminRole は admin 以外のロールが403になることを検証します。
func TestAdminRequired_NonAdminRole(t *testing.T) {
	const secret = "test-secret-for-role-check"
	t.Setenv(config.EnvKeyJWTSecret, secret)

	token := signedToken(t, secret, jwt.MapClaims{"sub": "viewer", "role": "viewer", "exp": time.Now().Add(time.Hour).Unix()})
	w, c := runMiddleware(t, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, c.IsAborted())
}

func TestAdminRequired_ValidToken(t *testing.T) {
	const secret = "test-secret-for-valid-tokens"
	t.Setenv(config.EnvKeyJWTSecret, secret)

	token, err := NewGenerator(secret, time.Hour).GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)

	_, c := runMiddleware(t, "Bearer "+token)

	assert.False(t, c.IsAborted())
	sub, ok := c.Get(ContextSubject)
	require.True(t, ok)
	assert.Equal(t, "ops", sub)
}

// TestAdminRequired_InvalidSigningMethod は none アルゴリズムのトークンを拒否することを検証します。
func TestAdminRequired_InvalidSigningMethod(t *testing.T) {
	t.Setenv(config.EnvKeyJWTSecret, "test-secret-for-signing-method")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)

	w, _ := runMiddleware(t, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
