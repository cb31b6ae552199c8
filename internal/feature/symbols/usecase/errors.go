// Package usecase implements the symbol registry.
package usecase

import "errors"

var (
	// ErrSymbolNotFound is returned when no symbol has the given code.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrSymbolAlreadyExists is returned when registering a code that is already tracked.
	ErrSymbolAlreadyExists = errors.New("symbol already exists")

	// ErrInvalidSymbol is returned when a symbol definition cannot be normalized.
	ErrInvalidSymbol = errors.New("invalid symbol")
)
