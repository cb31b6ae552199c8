package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/feature/symbols/transport/http/dto"
	"quote_backend/internal/feature/symbols/usecase"
)

// SymbolUsecase は銘柄レジストリのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolUsecase interface {
	ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error)
	ListAll(ctx context.Context) ([]entity.Symbol, error)
	Register(ctx context.Context, s entity.Symbol) (entity.Symbol, error)
	Deactivate(ctx context.Context, code string) (entity.Symbol, error)
	Activate(ctx context.Context, code string) (entity.Symbol, error)
}

// SymbolHandler は銘柄に関するHTTPリクエストを処理します。
type SymbolHandler struct {
	uc SymbolUsecase
}

// NewSymbolHandler は新しい SymbolHandler を作成します。
func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List は有効な銘柄を取引所ごとにまとめて返します（GET /symbols）。
// 取引所が空の銘柄は最後の "OTHER" グループに入ります。
func (h *SymbolHandler) List(c *gin.Context) {
	symbols, err := h.uc.ListActiveSymbols(c.Request.Context())
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list symbols"})
		return
	}
	c.JSON(http.StatusOK, GroupByExchange(symbols))
}

// ListAll は無効化済みを含むすべての銘柄を返します（GET /admin/symbols）。
func (h *SymbolHandler) ListAll(c *gin.Context) {
	symbols, err := h.uc.ListAll(c.Request.Context())
	if err != nil {
		slog.Error("failed to list symbols", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list symbols"})
		return
	}
	out := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, toItem(s))
	}
	c.JSON(http.StatusOK, out)
}

// Register は銘柄を登録します（POST /admin/symbols）。
// - バリデーションエラー時は400
// - コード重複時は409
// - 成功時は201
func (h *SymbolHandler) Register(c *gin.Context) {
	var req dto.RegisterSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s, err := h.uc.Register(c.Request.Context(), entity.Symbol{
		Code:          req.Code,
		Name:          req.Name,
		Category:      entity.Category(req.Category),
		Exchange:      req.Exchange,
		QuoteCurrency: req.QuoteCurrency,
	})
	switch {
	case errors.Is(err, usecase.ErrInvalidSymbol):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrSymbolAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "symbol already exists"})
		return
	case err != nil:
		slog.Error("failed to register symbol", "symbol", req.Code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register symbol"})
		return
	}
	c.JSON(http.StatusCreated, toItem(s))
}

// Deactivate は銘柄を無効化します（POST /admin/symbols/:code/deactivate）。
func (h *SymbolHandler) Deactivate(c *gin.Context) {
	h.setActive(c, h.uc.Deactivate)
}

// Activate は銘柄を再度有効にします（POST /admin/symbols/:code/activate）。
func (h *SymbolHandler) Activate(c *gin.Context) {
	h.setActive(c, h.uc.Activate)
}

func (h *SymbolHandler) setActive(c *gin.Context, fn func(context.Context, string) (entity.Symbol, error)) {
	code := c.Param("code")
	s, err := fn(c.Request.Context(), code)
	if errors.Is(err, usecase.ErrSymbolNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
		return
	}
	if err != nil {
		slog.Error("failed to update symbol", "symbol", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update symbol"})
		return
	}
	c.JSON(http.StatusOK, toItem(s))
}

// GroupByExchange は取引所順を保ったままグループ化します。
func GroupByExchange(symbols []entity.Symbol) []dto.ExchangeGroup {
	groups := make([]dto.ExchangeGroup, 0)
	index := map[string]int{}
	var other []dto.SymbolItem
	for _, s := range symbols {
		if s.Group() == entity.OtherExchange {
			other = append(other, toItem(s))
			continue
		}
		i, ok := index[s.Exchange]
		if !ok {
			i = len(groups)
			index[s.Exchange] = i
			groups = append(groups, dto.ExchangeGroup{Exchange: s.Exchange})
		}
		groups[i].Symbols = append(groups[i].Symbols, toItem(s))
	}
	if len(other) > 0 {
		groups = append(groups, dto.ExchangeGroup{Exchange: entity.OtherExchange, Symbols: other})
	}
	return groups
}

func toItem(s entity.Symbol) dto.SymbolItem {
	return dto.SymbolItem{
		Code:          s.Code,
		Name:          s.Name,
		Category:      string(s.Category),
		Exchange:      s.Group(),
		QuoteCurrency: s.QuoteCurrency,
		IsActive:      s.IsActive,
	}
}
