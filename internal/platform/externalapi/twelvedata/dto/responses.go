// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

// ErrorFields は Twelve Data がHTTP 200 のまま返すエラー情報です。
type ErrorFields struct {
	Status  string `json:"status,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PriceResponse represents the JSON response from the /price endpoint.
type PriceResponse struct {
	ErrorFields
	Price *string `json:"price"`
}

// TimeSeriesResponse represents the JSON response from the /time_series endpoint.
type TimeSeriesResponse struct {
	ErrorFields
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Values []Bar `json:"values"`
}

// Bar は1本の足です。FX では volume が返らないため終値のみ使います。
type Bar struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
}
