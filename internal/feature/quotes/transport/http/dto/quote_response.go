// Package dto defines the JSON shapes of the quotes read API.
package dto

// QuoteItem は GET /quotes の1要素です。未取得の銘柄は価格と時刻が null になります。
type QuoteItem struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Exchange        string  `json:"exchange"`
	QuoteCurrency   string  `json:"quote_currency,omitempty"`
	LatestPrice     *string `json:"latest_price"`     // 10進文字列
	LatestTimestamp *string `json:"latest_timestamp"` // RFC3339 (UTC)
}

// SamplePoint は履歴の1点です。
type SamplePoint struct {
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse は GET /quotes/:code/history のレスポンスです。
type HistoryResponse struct {
	Symbol  string        `json:"symbol"`
	From    string        `json:"from"`
	To      string        `json:"to"`
	Samples []SamplePoint `json:"samples"`
}
