package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	quotehandler "quote_backend/internal/feature/quotes/transport/handler"
	refreshhandler "quote_backend/internal/feature/refresh/transport/handler"
	streamhandler "quote_backend/internal/feature/stream/transport/handler"
	symbolhandler "quote_backend/internal/feature/symbols/transport/handler"
	platformhandler "quote_backend/internal/platform/http/handler"
	jwtmw "quote_backend/internal/platform/jwt"
)

// Handlers はルーティング対象のハンドラーです。
type Handlers struct {
	Health  *platformhandler.HealthHandler
	Symbols *symbolhandler.SymbolHandler
	Quotes  *quotehandler.QuoteHandler
	Stream  *streamhandler.StreamHandler
	Admin   *refreshhandler.AdminHandler
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.Default()

	// ブラウザのダッシュボードから読むのでCORSを許可
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	// 認証不要
	// 導通確認用
	r.GET("/healthz", h.Health.Health)
	r.HEAD("/healthz", h.Health.Health)

	// ダッシュボード向けの読み取りAPI
	r.GET("/symbols", h.Symbols.List)
	r.GET("/quotes", h.Quotes.List)
	r.GET("/quotes/:code", h.Quotes.Get)
	r.GET("/quotes/:code/history", h.Quotes.History)

	// リアルタイム配信
	r.GET("/stream", h.Stream.SSE)
	r.GET("/ws", h.Stream.WS)

	// 管理用ルート
	// jwtmw.AdminRequired() ミドルウェアを適用
	// → role=admin の JWT が必要になる
	admin := r.Group("/admin")
	admin.Use(jwtmw.AdminRequired())
	{
		admin.GET("/symbols", h.Symbols.ListAll)
		admin.POST("/symbols", h.Symbols.Register)
		admin.POST("/symbols/:code/deactivate", h.Symbols.Deactivate)
		admin.POST("/symbols/:code/activate", h.Symbols.Activate)
		admin.POST("/refresh", h.Admin.Refresh)
		admin.GET("/engine", h.Admin.Status)
	}

	return r
}
