// Package handler はquotesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quote_backend/internal/feature/quotes/domain/entity"
	"quote_backend/internal/feature/quotes/transport/http/dto"
	"quote_backend/internal/feature/quotes/usecase"
)

// QuoteUsecase は価格参照のユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type QuoteUsecase interface {
	Latest(ctx context.Context, code string) (entity.Quote, error)
	LatestAll(ctx context.Context) ([]entity.Quote, error)
	History(ctx context.Context, code string, from, to time.Time) ([]entity.PriceSample, error)
}

// QuoteHandler は価格のHTTPリクエストを処理します。
type QuoteHandler struct {
	uc QuoteUsecase
}

// NewQuoteHandler は QuoteHandler を生成します。
func NewQuoteHandler(uc QuoteUsecase) *QuoteHandler {
	return &QuoteHandler{uc: uc}
}

// List は有効な全銘柄の最新価格を返します（GET /quotes）。
func (h *QuoteHandler) List(c *gin.Context) {
	quotes, err := h.uc.LatestAll(c.Request.Context())
	if err != nil {
		slog.Error("failed to list quotes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quotes"})
		return
	}
	out := make([]dto.QuoteItem, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toItem(q))
	}
	c.JSON(http.StatusOK, out)
}

// Get は1銘柄の最新価格を返します（GET /quotes/:code）。
func (h *QuoteHandler) Get(c *gin.Context) {
	code := c.Param("code")
	q, err := h.uc.Latest(c.Request.Context(), code)
	if errors.Is(err, usecase.ErrSymbolNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
		return
	}
	if err != nil {
		slog.Error("failed to get quote", "symbol", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quote"})
		return
	}
	c.JSON(http.StatusOK, toItem(q))
}

// History は価格履歴を古い順に返します。
//
// エンドポイント例:
// GET /quotes/AAPL/history?from=2026-10-15T00:00:00Z&to=2026-10-16T00:00:00Z
func (h *QuoteHandler) History(c *gin.Context) {
	code := c.Param("code")
	from, err := parseTime(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	samples, err := h.uc.History(c.Request.Context(), code, from, to)
	switch {
	case errors.Is(err, usecase.ErrInvalidRange), errors.Is(err, usecase.ErrRangeTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
		return
	case err != nil:
		slog.Error("failed to load history", "symbol", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	resp := dto.HistoryResponse{Symbol: code, Samples: make([]dto.SamplePoint, 0, len(samples))}
	if !from.IsZero() {
		resp.From = from.UTC().Format(time.RFC3339)
	}
	if !to.IsZero() {
		resp.To = to.UTC().Format(time.RFC3339)
	}
	for _, s := range samples {
		resp.Samples = append(resp.Samples, dto.SamplePoint{
			Price:     s.Price.String(),
			Timestamp: s.CapturedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// toItem は Quote をレスポンスの要素に変換します。
func toItem(q entity.Quote) dto.QuoteItem {
	item := dto.QuoteItem{
		Symbol:        q.Symbol.Code,
		Name:          q.Symbol.Name,
		Category:      string(q.Symbol.Category),
		Exchange:      q.Symbol.Group(),
		QuoteCurrency: q.Symbol.QuoteCurrency,
	}
	if q.Latest != nil {
		p := q.Latest.Price.String()
		ts := q.Latest.CapturedAt.UTC().Format(time.RFC3339Nano)
		item.LatestPrice = &p
		item.LatestTimestamp = &ts
	}
	return item
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
