// Package handler はダッシュボード向けの価格プッシュ（SSE / WebSocket）を提供します。
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	quoteentity "quote_backend/internal/feature/quotes/domain/entity"
	"quote_backend/internal/platform/pubsub"
)

const (
	// DefaultKeepAlive はSSEのコメント、WebSocketのpingを送る間隔です。
	DefaultKeepAlive = 30 * time.Second
	maxSymbols       = 100
	writeWait        = 10 * time.Second
)

// Subscriber はバスの購読側です。
type Subscriber interface {
	Subscribe(symbols ...string) *pubsub.Subscription
	Unsubscribe(sub *pubsub.Subscription)
}

// Snapshotter は接続直後に送る最新価格を返します。
type Snapshotter interface {
	LatestAll(ctx context.Context) ([]quoteentity.Quote, error)
}

// StreamHandler は価格更新をSSEとWebSocketで配信します。
// 接続後に購読し、ストアの最新値をスナップショットとして送ってから更新を流します。
type StreamHandler struct {
	bus       Subscriber
	snap      Snapshotter
	keepAlive time.Duration
	upgrader  websocket.Upgrader
}

// NewStreamHandler creates a StreamHandler. keepAlive <= 0 uses DefaultKeepAlive.
func NewStreamHandler(bus Subscriber, snap Snapshotter, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &StreamHandler{
		bus:       bus,
		snap:      snap,
		keepAlive: keepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS は router 側で制御する
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SSE streams events as Server-Sent Events.
//
// エンドポイント例:
// GET /stream?symbols=AAPL,bitcoin
func (h *StreamHandler) SSE(c *gin.Context) {
	symbols, err := parseSymbols(c.Query("symbols"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := h.bus.Subscribe(symbols...)
	defer h.bus.Unsubscribe(sub)

	clientID := uuid.NewString()
	slog.Info("SSE client connected", "client_id", clientID, "symbols", symbols, "remote", c.ClientIP())
	defer slog.Info("SSE client disconnected", "client_id", clientID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Status(http.StatusOK)

	_, _ = fmt.Fprint(c.Writer, ": connected\n\n")
	for _, ev := range h.snapshot(c.Request.Context(), symbols) {
		c.SSEvent(string(ev.Topic), ev)
	}
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Topic), ev)
			c.Writer.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(c.Writer, ": keepalive %d\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// wsMessage is one WebSocket frame.
type wsMessage struct {
	Event pubsub.Topic `json:"event"`
	Data  pubsub.Event `json:"data"`
}

// WS streams events over a WebSocket connection.
//
// エンドポイント例:
// GET /ws?symbols=AAPL,bitcoin
func (h *StreamHandler) WS(c *gin.Context) {
	symbols, err := parseSymbols(c.Query("symbols"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade がエラーレスポンスを書き込み済み
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.bus.Subscribe(symbols...)
	defer h.bus.Unsubscribe(sub)

	clientID := uuid.NewString()
	slog.Info("WebSocket client connected", "client_id", clientID, "symbols", symbols, "remote", c.ClientIP())
	defer slog.Info("WebSocket client disconnected", "client_id", clientID)

	// 読み取りループ: クライアントからのメッセージは捨て、切断の検知と pong の処理に使う
	closed := make(chan struct{})
	pongWait := h.keepAlive + writeWait
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(ev pubsub.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsMessage{Event: ev.Topic, Data: ev})
	}

	for _, ev := range h.snapshot(c.Request.Context(), symbols) {
		if err := write(ev); err != nil {
			return
		}
	}

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(ev); err != nil {
				slog.Debug("websocket write failed", "client_id", clientID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// snapshot は購読対象の最新価格を price_update イベントとして返します。失敗しても接続は続けます。
func (h *StreamHandler) snapshot(ctx context.Context, symbols []string) []pubsub.Event {
	if h.snap == nil {
		return nil
	}
	quotes, err := h.snap.LatestAll(ctx)
	if err != nil {
		slog.Warn("failed to load stream snapshot", "error", err)
		return nil
	}
	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
	}

	out := make([]pubsub.Event, 0, len(quotes))
	for _, q := range quotes {
		if q.Latest == nil {
			continue
		}
		if _, ok := want[q.Symbol.Code]; len(want) > 0 && !ok {
			continue
		}
		out = append(out, pubsub.Event{
			Topic:     pubsub.TopicPriceUpdate,
			Symbol:    q.Symbol.Code,
			Price:     q.Latest.Price,
			Timestamp: q.Latest.CapturedAt,
		})
	}
	return out
}

// parseSymbols splits the comma separated symbols query. Empty means all symbols.
func parseSymbols(raw string) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) > maxSymbols {
		return nil, fmt.Errorf("max %d symbols allowed", maxSymbols)
	}
	return out, nil
}
