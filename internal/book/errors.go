package book

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("book: not found")
	ErrValidation          = errors.New("book: invalid input")
	ErrUnbalanced          = errors.New("book: debits do not equal credits")
	ErrMalformedLine       = errors.New("book: malformed journal line")
	ErrAlreadyVoided       = errors.New("book: entry already voided")
	ErrNotDepreciable      = errors.New("book: asset class does not depreciate")
	ErrAlreadyDisposed     = errors.New("book: asset already disposed")
	ErrOverDepreciation    = errors.New("book: depreciation exceeds remaining book value")
	ErrUnknownAssetClass   = errors.New("book: unknown asset class code")
	ErrStructuralImbalance = errors.New("book: assets do not equal liabilities plus equity")
	// ErrPersistence marks storage-layer failures. It is the only class a
	// caller should consider retrying; everything above is an input or
	// programming error.
	ErrPersistence = errors.New("book: persistence failure")
)

// UnbalancedError reports how far an entry is from balancing.
type UnbalancedError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("book: debits (%s) do not equal credits (%s), imbalance %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2), e.Imbalance().StringFixed(2))
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalanced }

// Imbalance is debits minus credits.
func (e *UnbalancedError) Imbalance() decimal.Decimal { return e.Debits.Sub(e.Credits) }

// MalformedLineError pinpoints the offending line and why it was rejected.
type MalformedLineError struct {
	Index  int
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("book: line %d: %s", e.Index, e.Reason)
}

func (e *MalformedLineError) Unwrap() error { return ErrMalformedLine }
