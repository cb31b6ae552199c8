package dto

// SymbolItem は銘柄一覧の1要素です。
type SymbolItem struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Exchange      string `json:"exchange"`
	QuoteCurrency string `json:"quote_currency,omitempty"`
	IsActive      bool   `json:"is_active"`
}

// ExchangeGroup は取引所ごとにまとめた銘柄です。
type ExchangeGroup struct {
	Exchange string       `json:"exchange"`
	Symbols  []SymbolItem `json:"symbols"`
}

// RegisterSymbolRequest は POST /admin/symbols のリクエストボディです。
type RegisterSymbolRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name"`
	Category      string `json:"category" binding:"required,oneof=equity fx crypto"`
	Exchange      string `json:"exchange"`
	QuoteCurrency string `json:"quote_currency"`
}
