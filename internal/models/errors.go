package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Error kinds shared by the store, the market data client and the orchestrator.
// Callers classify with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrDuplicateSymbol = errors.New("symbol already tracked")
	ErrNotFound        = errors.New("not found")
	ErrSymbolNotFound  = errors.New("symbol not found at provider")
	ErrTransientFetch  = errors.New("transient fetch error")
	ErrPersistence     = errors.New("persistence error")
	ErrBatchInProgress = errors.New("reanalysis batch already running")
)

// FetchError describes a failed market data request for one symbol
type FetchError struct {
	Symbol string
	Kind   error // ErrSymbolNotFound or ErrTransientFetch
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Symbol, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewSymbolNotFound returns a terminal fetch error
func NewSymbolNotFound(symbol string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Kind: ErrSymbolNotFound, Err: err}
}

// NewTransientFetch returns a retryable fetch error
func NewTransientFetch(symbol string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Kind: ErrTransientFetch, Err: err}
}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// NormalizeSymbol trims and upper-cases raw and checks it is a 1-5 letter ticker
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: invalid symbol format %q (expected 1-5 letters)", ErrValidation, raw)
	}
	return symbol, nil
}
