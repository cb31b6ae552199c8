package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.HEAD("/healthz", h.Health)
	r.OPTIONS("/healthz", h.Health)
	return r
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func TestHealth_GET_NoChecks(t *testing.T) {
	t.Parallel()

	router := setupRouter(NewHealthHandler(nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestHealth_GET_AllChecksPass(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(map[string]Check{
		"db":    func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return nil },
	})
	w := httptest.NewRecorder()
	setupRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, body.Checks)
}

// TestHealth_GET_Degraded は確認が失敗した場合に503が返ることを検証します。
func TestHealth_GET_Degraded(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(map[string]Check{
		"db": func(ctx context.Context) error { return errors.New("database is locked") },
	})
	w := httptest.NewRecorder()
	setupRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "database is locked", body.Checks["db"])
}

func TestHealth_HEAD_And_OPTIONS(t *testing.T) {
	t.Parallel()

	called := false
	h := NewHealthHandler(map[string]Check{
		"db": func(ctx context.Context) error { called = true; return nil },
	})
	router := setupRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.False(t, called, "HEAD/OPTIONS must not run checks")
}
