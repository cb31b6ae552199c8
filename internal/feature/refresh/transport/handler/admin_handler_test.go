package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"quote_backend/internal/feature/refresh/domain/entity"
	"quote_backend/internal/feature/refresh/transport/handler"
	"quote_backend/internal/feature/refresh/usecase"
	"quote_backend/internal/platform/pubsub"
)

// mockEngine はEngineインターフェースのモック実装です。
type mockEngine struct {
	TriggerNowFunc func(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error)
	StatusFunc     func() usecase.Status
}

func (m *mockEngine) TriggerNow(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error) {
	return m.TriggerNowFunc(ctx, trigger)
}

func (m *mockEngine) Status() usecase.Status {
	return m.StatusFunc()
}

func newRouter(e *mockEngine, stats func() pubsub.Stats) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewAdminHandler(e, stats)
	r := gin.New()
	r.POST("/admin/refresh", h.Refresh)
	r.GET("/admin/engine", h.Status)
	return r
}

var started = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

func sampleCycle() entity.Cycle {
	p := decimal.RequireFromString("190.12")
	return entity.Cycle{
		ID:         "c-1",
		Trigger:    entity.TriggerManual,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Results: []entity.SymbolResult{
			{Symbol: "AAPL", Price: &p, Source: "last_price", Provider: "twelvedata", Inserted: true},
			{Symbol: "ZZZZ", FailureKind: "upstream_data", FailureReason: "unknown_symbol", Error: "upstream_data/unknown_symbol: twelvedata"},
		},
	}
}

func TestAdminHandler_Refresh(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success",
			expectedStatus: http.StatusOK,
			expectedBody: `{
				"id":"c-1","trigger":"manual",
				"started_at":"2026-10-16T14:30:00Z","finished_at":"2026-10-16T14:30:01.5Z",
				"duration_ms":1500,"succeeded":1,"failed":1,"canceled":false,
				"results":[
					{"symbol":"AAPL","price":"190.12","source":"last_price","provider":"twelvedata","inserted":true},
					{"symbol":"ZZZZ","inserted":false,"failure_kind":"upstream_data","failure_reason":"unknown_symbol","error":"upstream_data/unknown_symbol: twelvedata"}
				]}`,
		},
		{
			name:           "already running",
			err:            usecase.ErrCycleRunning,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"a refresh cycle is already running"}`,
		},
		{
			name:           "symbol list unavailable",
			err:            errors.New("storage/write: load active symbols"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"refresh failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &mockEngine{TriggerNowFunc: func(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error) {
				assert.Equal(t, entity.TriggerManual, trigger)
				if tt.err != nil {
					return entity.Cycle{}, tt.err
				}
				return sampleCycle(), nil
			}}
			req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
			w := httptest.NewRecorder()

			newRouter(e, nil).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestAdminHandler_Status(t *testing.T) {
	c := sampleCycle()
	e := &mockEngine{StatusFunc: func() usecase.Status {
		return usecase.Status{
			Started:      true,
			Interval:     time.Minute,
			SkippedTicks: 3,
			CyclesRun:    10,
			LastCycle:    &c,
		}
	}}
	stats := func() pubsub.Stats { return pubsub.Stats{Subscribers: 2, Published: 20, Delivered: 38, Dropped: 2} }

	req := httptest.NewRequest(http.MethodGet, "/admin/engine", nil)
	w := httptest.NewRecorder()
	newRouter(e, stats).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := w.Body.String()
	assert.Contains(t, body, `"interval_seconds":60`)
	assert.Contains(t, body, `"skipped_ticks":3`)
	assert.Contains(t, body, `"cycles_run":10`)
	assert.Contains(t, body, `"id":"c-1"`)
	assert.Contains(t, body, `"bus":{"subscribers":2,"published":20,"delivered":38,"dropped":2}`)
}

func TestAdminHandler_Status_NoCycleYet(t *testing.T) {
	e := &mockEngine{StatusFunc: func() usecase.Status { return usecase.Status{Interval: time.Minute} }}

	req := httptest.NewRequest(http.MethodGet, "/admin/engine", nil)
	w := httptest.NewRecorder()
	newRouter(e, nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running":false,"started":false,"interval_seconds":60,"skipped_ticks":0,"cycles_run":0,"last_cycle":null}`, w.Body.String())
}
