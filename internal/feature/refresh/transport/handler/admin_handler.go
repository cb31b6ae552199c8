// Package handler はリフレッシュエンジンの管理用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quote_backend/internal/feature/refresh/domain/entity"
	"quote_backend/internal/feature/refresh/transport/http/dto"
	"quote_backend/internal/feature/refresh/usecase"
	jwtmw "quote_backend/internal/platform/jwt"
	"quote_backend/internal/platform/pubsub"
)

// Engine はスケジューラの操作です。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type Engine interface {
	TriggerNow(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error)
	Status() usecase.Status
}

// AdminHandler は POST /admin/refresh と GET /admin/engine を処理します。
type AdminHandler struct {
	engine   Engine
	busStats func() pubsub.Stats
}

// NewAdminHandler creates an AdminHandler. busStats may be nil.
func NewAdminHandler(engine Engine, busStats func() pubsub.Stats) *AdminHandler {
	return &AdminHandler{engine: engine, busStats: busStats}
}

// Refresh はサイクルを即座に1回実行し、結果を返します。
// - 実行中なら409
// - 銘柄一覧を読めなければ500
func (h *AdminHandler) Refresh(c *gin.Context) {
	// クライアントが切断してもサイクルは最後まで実行する
	ctx := context.WithoutCancel(c.Request.Context())
	cycle, err := h.engine.TriggerNow(ctx, entity.TriggerManual)
	if errors.Is(err, usecase.ErrCycleRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("manual refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	slog.Info("manual refresh done", "cycle_id", cycle.ID, "subject", c.GetString(jwtmw.ContextSubject))
	c.JSON(http.StatusOK, ToCycleResponse(cycle))
}

// Status はエンジンの状態を返します。
func (h *AdminHandler) Status(c *gin.Context) {
	st := h.engine.Status()
	resp := dto.EngineStatusResponse{
		Running:         st.Running,
		Started:         st.Started,
		IntervalSeconds: st.Interval.Seconds(),
		SkippedTicks:    st.SkippedTicks,
		CyclesRun:       st.CyclesRun,
		LastError:       st.LastError,
	}
	if st.LastCycle != nil {
		cr := ToCycleResponse(*st.LastCycle)
		resp.LastCycle = &cr
	}
	if h.busStats != nil {
		bs := h.busStats()
		resp.Bus = &dto.BusStats{
			Subscribers: bs.Subscribers,
			Published:   bs.Published,
			Delivered:   bs.Delivered,
			Dropped:     bs.Dropped,
		}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

// ToCycleResponse converts a cycle record to its JSON shape. The CLI prints the same shape.
func ToCycleResponse(cycle entity.Cycle) dto.CycleResponse {
	ok, failed := cycle.Counts()
	out := dto.CycleResponse{
		ID:         cycle.ID,
		Trigger:    string(cycle.Trigger),
		StartedAt:  cycle.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt: cycle.FinishedAt.UTC().Format(time.RFC3339Nano),
		DurationMs: cycle.Duration().Milliseconds(),
		Succeeded:  ok,
		Failed:     failed,
		Canceled:   cycle.Canceled,
		Results:    make([]dto.SymbolResultItem, 0, len(cycle.Results)),
	}
	for _, r := range cycle.Results {
		item := dto.SymbolResultItem{
			Symbol:        r.Symbol,
			Source:        r.Source,
			Provider:      r.Provider,
			Inserted:      r.Inserted,
			Alert:         r.Alert,
			FailureKind:   r.FailureKind,
			FailureReason: r.FailureReason,
			Error:         r.Error,
		}
		if r.Price != nil {
			p := r.Price.String()
			item.Price = &p
		}
		out.Results = append(out.Results, item)
	}
	return out
}
