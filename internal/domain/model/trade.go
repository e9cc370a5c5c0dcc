package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxDecimalExponent bounds a quantity or price exponent in either
	// direction, so at most this many decimal places are accepted.
	MaxDecimalExponent = 18

	// MaxDecimalDigits bounds the significant digits of a quantity or price.
	MaxDecimalDigits = 32
)

// symbolPattern matches exchange instrument identifiers such as BTCUSDT.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,32}$`)

// OrderRequest is a user's instruction to place a spot order.
type OrderRequest struct {
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Quantity decimal.Decimal
	Price    *decimal.Decimal // Required for LIMIT; nil for MARKET.
}

// Normalize upper-cases the enum-like fields and drops a price sent with a
// MARKET order, since the exchange would ignore it.
func (r OrderRequest) Normalize() OrderRequest {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = OrderSide(strings.ToUpper(strings.TrimSpace(string(r.Side))))
	r.Type = OrderType(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	if r.Type == OrderTypeMarket {
		r.Price = nil
	}
	return r
}

// Validate checks the request's preconditions. It must pass before any
// credential is looked up or any request is signed.
func (r OrderRequest) Validate() error {
	switch {
	case r.Symbol == "":
		return NewValidationError("symbol", "is required")
	case !symbolPattern.MatchString(r.Symbol):
		return NewValidationError("symbol", "must be an exchange symbol such as BTCUSDT")
	case r.Side == "":
		return NewValidationError("side", "is required")
	case !r.Side.Valid():
		return NewValidationError("side", "must be BUY or SELL")
	case r.Type == "":
		return NewValidationError("orderType", "is required")
	case !r.Type.Valid():
		return NewValidationError("orderType", "must be MARKET or LIMIT")
	case !r.Quantity.IsPositive():
		return NewValidationError("quantity", "must be a positive number")
	}
	if err := CheckDecimalSize("quantity", r.Quantity); err != nil {
		return err
	}

	if r.Type == OrderTypeLimit {
		if r.Price == nil {
			return NewValidationError("price", "is required for LIMIT orders")
		}
		if !r.Price.IsPositive() {
			return NewValidationError("price", "must be a positive number")
		}
		if err := CheckDecimalSize("price", *r.Price); err != nil {
			return err
		}
	}

	return nil
}

// CheckDecimalSize rejects decimals whose exponent or precision exceeds what
// an order can carry. It inspects the exponent before the coefficient, so it
// never renders the full digit string of an oversized value.
func CheckDecimalSize(field string, d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -MaxDecimalExponent {
		return NewValidationError(field, fmt.Sprintf("must have at most %d decimal places", MaxDecimalExponent))
	}
	if exp > MaxDecimalExponent {
		return NewValidationError(field, "is out of range")
	}
	if d.NumDigits() > MaxDecimalDigits {
		return NewValidationError(field, fmt.Sprintf("must have at most %d significant digits", MaxDecimalDigits))
	}
	return nil
}

// OrderResult is the exchange's response to an accepted order. Raw holds the
// payload exactly as the exchange returned it.
type OrderResult struct {
	Raw     json.RawMessage
	OrderID string
	Status  string
}

// TradeRecord is a snapshot of one order submission that reached the
// exchange. It is written once and never updated.
type TradeRecord struct {
	ID              string
	UserID          string
	Symbol          string
	Side            OrderSide
	OrderType       OrderType
	Quantity        decimal.Decimal
	Price           *decimal.Decimal
	Status          string
	ExchangeOrderID *string
	ExecutedAt      time.Time
	CreatedAt       time.Time
}
