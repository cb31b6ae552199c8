package usecase

import "errors"

var (
	// ErrOutOfOrder は最新より古いサンプルを追記しようとした場合のエラーです。
	ErrOutOfOrder = errors.New("sample is older than the latest stored sample")
	// ErrSymbolNotFound は銘柄が存在しない場合のエラーです。
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrInvalidRange は from が to より後の場合のエラーです。
	ErrInvalidRange = errors.New("from must not be after to")
	// ErrRangeTooLarge は履歴の取得範囲が上限を超えた場合のエラーです。
	ErrRangeTooLarge = errors.New("history range exceeds the maximum")
)
