// Package dto defines the JSON shapes of the refresh admin API.
package dto

// SymbolResultItem は1銘柄の処理結果です。
type SymbolResultItem struct {
	Symbol        string  `json:"symbol"`
	Price         *string `json:"price,omitempty"`
	Source        string  `json:"source,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	Inserted      bool    `json:"inserted"`
	Alert         bool    `json:"alert,omitempty"`
	FailureKind   string  `json:"failure_kind,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// CycleResponse はサイクルの要約です。
type CycleResponse struct {
	ID         string             `json:"id"`
	Trigger    string             `json:"trigger"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMs int64              `json:"duration_ms"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Canceled   bool               `json:"canceled"`
	Results    []SymbolResultItem `json:"results"`
}

// BusStats はブローカーの統計です。
type BusStats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// EngineStatusResponse は GET /admin/engine のレスポンスです。
type EngineStatusResponse struct {
	Running         bool           `json:"running"`
	Started         bool           `json:"started"`
	IntervalSeconds float64        `json:"interval_seconds"`
	SkippedTicks    int64          `json:"skipped_ticks"`
	CyclesRun       int64          `json:"cycles_run"`
	LastError       string         `json:"last_error,omitempty"`
	LastCycle       *CycleResponse `json:"last_cycle"`
	Bus             *BusStats      `json:"bus,omitempty"`
}
