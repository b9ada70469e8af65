package lots

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput matches every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientLots matches every *InsufficientLotsError.
	ErrInsufficientLots = errors.New("insufficient lots")

	// ErrUnknownAsset matches an *InsufficientLotsError raised for an asset
	// that has no lots at all.
	ErrUnknownAsset = errors.New("unknown asset")
)

// InvalidInputError is returned when an acquisition or disposal is called
// with a malformed asset, quantity or price.
type InvalidInputError struct {
	Asset  string
	Field  string // "asset", "quantity", "price" or "cost"
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Asset == "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q for %s: %s", e.Field, e.Value, e.Asset, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError creates an InvalidInputError.
func NewInvalidInputError(asset, field, value, reason string) *InvalidInputError {
	return &InvalidInputError{Asset: asset, Field: field, Value: value, Reason: reason}
}

// InsufficientLotsError is returned when a disposal asks for more units than
// the asset's queue holds. The ledger is not modified when it is returned.
type InsufficientLotsError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
	Unknown   bool // no queue existed for Asset
}

func (e *InsufficientLotsError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("cannot dispose %s %s: no lots held for %s",
			e.Requested.String(), e.Asset, e.Asset)
	}
	return fmt.Sprintf("cannot dispose %s %s: only %s held",
		e.Requested.String(), e.Asset, e.Available.String())
}

func (e *InsufficientLotsError) Is(target error) bool {
	if target == ErrInsufficientLots {
		return true
	}
	return e.Unknown && target == ErrUnknownAsset
}

// ParseDecimal parses a decimal string from an input record. Malformed values
// yield an *InvalidInputError naming the field.
func ParseDecimal(asset, field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, NewInvalidInputError(asset, field, value, "not a decimal number")
	}
	return d, nil
}
