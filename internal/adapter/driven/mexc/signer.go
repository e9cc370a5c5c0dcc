package mexc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// ErrEmptySecret is returned by Sign when no API secret is supplied.
var ErrEmptySecret = errors.New("mexc: empty api secret")

// OrderParams are the fields of a spot order request in signing order.
type OrderParams struct {
	Symbol    string
	Side      model.OrderSide
	Type      model.OrderType
	Quantity  decimal.Decimal
	Price     *decimal.Decimal // Sent only for LIMIT orders.
	Timestamp int64            // Milliseconds since epoch, captured at call time.
}

// paramsFromOrder builds signing params for order at timestamp ms.
func paramsFromOrder(order model.OrderRequest, timestamp int64) OrderParams {
	return OrderParams{
		Symbol:    order.Symbol,
		Side:      order.Side,
		Type:      order.Type,
		Quantity:  order.Quantity,
		Price:     order.Price,
		Timestamp: timestamp,
	}
}

func (p OrderParams) validate() error {
	if p.Symbol == "" {
		return model.NewValidationError("symbol", "is required")
	}
	if !p.Side.Valid() {
		return model.NewValidationError("side", "must be BUY or SELL")
	}
	if !p.Type.Valid() {
		return model.NewValidationError("orderType", "must be MARKET or LIMIT")
	}
	if !p.Quantity.IsPositive() {
		return model.NewValidationError("quantity", "must be a positive number")
	}
	if err := model.CheckDecimalSize("quantity", p.Quantity); err != nil {
		return err
	}
	if p.Type == model.OrderTypeLimit && (p.Price == nil || !p.Price.IsPositive()) {
		return model.NewValidationError("price", "is required for LIMIT orders")
	}
	if p.Type == model.OrderTypeLimit {
		if err := model.CheckDecimalSize("price", *p.Price); err != nil {
			return err
		}
	}
	if p.Timestamp <= 0 {
		return model.NewValidationError("timestamp", "must be set")
	}
	return nil
}

// Encode serializes the params in the exchange's fixed field order:
// symbol, side, type, quantity, timestamp, then price and timeInForce for
// LIMIT orders. The order is significant; it is not sorted.
func (p OrderParams) Encode() string {
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	write("symbol", p.Symbol)
	write("side", string(p.Side))
	write("type", string(p.Type))
	write("quantity", p.Quantity.String())
	write("timestamp", strconv.FormatInt(p.Timestamp, 10))
	if p.Type == model.OrderTypeLimit && p.Price != nil {
		write("price", p.Price.String())
		write("timeInForce", string(model.TimeInForceGTC))
	}

	return b.String()
}

// Sign returns the encoded params with a trailing signature parameter: the
// lowercase hex HMAC-SHA256 of the exact query bytes, keyed by apiSecret.
func Sign(p OrderParams, apiSecret string) (string, error) {
	if apiSecret == "" {
		return "", ErrEmptySecret
	}
	if err := p.validate(); err != nil {
		return "", err
	}

	query := p.Encode()
	return query + "&signature=" + signature(query, apiSecret), nil
}

func signature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
