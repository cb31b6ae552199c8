// Package externalapi は外部相場APIクライアントに共通する失敗の分類を提供します。
package externalapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"quote_backend/internal/shared/failure"
)

// TransportError は HTTP 呼び出し自体の失敗を Network 失敗に変換します。
func TransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Network(failure.ReasonTimeout, provider, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failure.Network(failure.ReasonTimeout, provider, err)
	}
	return failure.Network(failure.ReasonNetwork, provider, err)
}

// StatusError は2xx以外のHTTPステータスを失敗に変換します。2xxなら nil を返します。
func StatusError(provider string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return failure.UpstreamData(failure.ReasonRateLimited, provider, nil)
	case status == http.StatusNotFound:
		return failure.UpstreamData(failure.ReasonUnknownSymbol, provider, nil)
	case status == http.StatusGatewayTimeout, status == http.StatusRequestTimeout:
		return failure.Network(failure.ReasonTimeout, fmt.Sprintf("%s http %d", provider, status), nil)
	default:
		return failure.UpstreamData(failure.ReasonUpstreamStatus, fmt.Sprintf("%s http %d", provider, status), nil)
	}
}

// DecodeError は応答本文を解釈できなかったことを表す失敗です。
func DecodeError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		// 本文の読み込み中にタイムアウトした
		return failure.Network(failure.ReasonTimeout, provider, err)
	}
	return failure.UpstreamData(failure.ReasonMalformed, provider, err)
}
