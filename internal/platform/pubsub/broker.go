// Package pubsub は価格更新の通知バスです。
// エンジンは Publish だけを呼び、購読者の状態は持ちません。
package pubsub

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Topic はイベントの種類です。SSE の event 名にもなります。
type Topic string

const (
	TopicPriceUpdate Topic = "price_update"
	TopicPriceAlert  Topic = "price_alert"
)

// Event は1銘柄の価格通知です。price は10進文字列で出力されます。
type Event struct {
	Topic     Topic            `json:"-"`
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	Timestamp time.Time        `json:"timestamp"`
	Previous  *decimal.Decimal `json:"previous_price,omitempty"`
	ChangePct *decimal.Decimal `json:"change_pct,omitempty"`
}

// Publisher is the only bus operation the refresh engine uses.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Config holds broker configuration.
type Config struct {
	ChannelSize int // buffer size per subscription (default: 64)
}

// Subscription は購読です。C は Unsubscribe または Close で閉じられます。
type Subscription struct {
	C       <-chan Event
	c       chan Event
	symbols map[string]struct{} // 空なら全銘柄
}

func (s *Subscription) wants(symbol string) bool {
	if len(s.symbols) == 0 {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}

// Broker distributes events to in-process subscribers.
// 送信はノンブロッキングで、バッファが一杯の購読者への通知は破棄します。
type Broker struct {
	mu          sync.RWMutex
	subs        map[*Subscription]struct{}
	channelSize int
	closed      bool

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

var _ Publisher = (*Broker)(nil)

// NewBroker creates a new broker.
func NewBroker(cfg Config) *Broker {
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = 64
	}
	return &Broker{
		subs:        make(map[*Subscription]struct{}),
		channelSize: cfg.ChannelSize,
	}
}

// Subscribe creates a subscription for the given symbols; none means all symbols.
func (b *Broker) Subscribe(symbols ...string) *Subscription {
	c := make(chan Event, b.channelSize)
	sub := &Subscription{C: c, c: c, symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			sub.symbols[s] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(c)
		return sub
	}
	b.subs[sub] = struct{}{}
	slog.Debug("subscriber added", "symbols", len(sub.symbols), "total", len(b.subs))
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call twice.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.c)
}

// Publish fans the event out to matching subscribers. It never blocks and never fails.
func (b *Broker) Publish(_ context.Context, ev Event) error {
	if ev.Topic == "" {
		ev.Topic = TopicPriceUpdate
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.published.Add(1)
	for sub := range b.subs {
		if !sub.wants(ev.Symbol) {
			continue
		}
		select {
		case sub.c <- ev:
			b.delivered.Add(1)
		default:
			// slow subscriber
			b.dropped.Add(1)
		}
	}
	return nil
}

// Stats holds broker counters.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// Stats returns broker statistics.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Subscribers: n,
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
	}
}

// Close closes all subscriptions; later subscriptions are returned already closed.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		close(sub.c)
	}
	b.subs = make(map[*Subscription]struct{})
	b.closed = true
	slog.Info("broker closed")
}
