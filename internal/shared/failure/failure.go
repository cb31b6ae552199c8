// Package failure は相場取得エンジン全体で使う失敗分類を定義します。
//
// すべての失敗は Kind（ネットワーク・上流データ・ストレージ・設定）と
// 理由コードを持ちます。Network / UpstreamData / Storage は銘柄単位で
// 捕捉されサイクルは継続し、Configuration のみが起動を中断します。
package failure

import (
	"errors"
	"fmt"
)

// Kind は失敗の分類です。
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUpstreamData
	KindStorage
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUpstreamData:
		return "upstream_data"
	case KindStorage:
		return "storage"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Reason は失敗の理由コードです。ログとサイクルレポートにそのまま出力されます。
type Reason string

const (
	ReasonTimeout             Reason = "timeout"
	ReasonNetwork             Reason = "network"
	ReasonRateLimited         Reason = "rate_limited"
	ReasonUnknownSymbol       Reason = "unknown_symbol"
	ReasonMalformed           Reason = "malformed"
	ReasonEmpty               Reason = "empty"
	ReasonUpstreamStatus      Reason = "upstream_status"
	ReasonUnsupportedCategory Reason = "unsupported_category"
	ReasonWrite               Reason = "write"
	ReasonOutOfOrder          Reason = "out_of_order"
	ReasonUnknownReference    Reason = "unknown_reference"
	ReasonInvalidValue        Reason = "invalid_value"
)

// Sentinel errors for errors.Is matching on the kind.
var (
	ErrNetwork       = errors.New("network failure")
	ErrUpstreamData  = errors.New("upstream data failure")
	ErrStorage       = errors.New("storage failure")
	ErrConfiguration = errors.New("configuration failure")
)

// Error は分類済みの失敗です。
type Error struct {
	Kind   Kind
	Reason Reason
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s", e.Kind, e.Reason)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, failure.ErrNetwork) and friends match on the kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUpstreamData:
		return e.Kind == KindUpstreamData
	case ErrStorage:
		return e.Kind == KindStorage
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

func newError(k Kind, r Reason, msg string, err error) *Error {
	return &Error{Kind: k, Reason: r, Msg: msg, Err: err}
}

// Network は接続失敗またはタイムアウトを表す失敗を生成します。
func Network(r Reason, msg string, err error) *Error {
	return newError(KindNetwork, r, msg, err)
}

// UpstreamData は上流のレスポンス内容に起因する失敗を生成します。
func UpstreamData(r Reason, msg string, err error) *Error {
	return newError(KindUpstreamData, r, msg, err)
}

// Storage は永続化に起因する失敗を生成します。
func Storage(r Reason, msg string, err error) *Error {
	return newError(KindStorage, r, msg, err)
}

// Configuration は起動時の設定不備を表す失敗を生成します。
func Configuration(r Reason, msg string, err error) *Error {
	return newError(KindConfiguration, r, msg, err)
}

// As extracts a *Error from err. Unclassified errors are reported as
// (nil, false) so callers can decide which kind to wrap them in.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ReasonOf は err の理由コードを返します。分類されていない場合は空文字列です。
func ReasonOf(err error) Reason {
	if fe, ok := As(err); ok {
		return fe.Reason
	}
	return ""
}
