package model

// OrderSide is the direction of a spot order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid reports whether s is a side the exchange accepts.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderType is the execution style of a spot order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Valid reports whether t is an order type the exchange accepts.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// TimeInForce controls how long a resting LIMIT order stays on the book.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good till cancelled; the only policy sent for LIMIT orders.
)

// TradeStatusPending is recorded when the exchange omits an order status.
const TradeStatusPending = "PENDING"
