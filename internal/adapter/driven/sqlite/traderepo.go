package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TradeStore = (*TradeRepo)(nil)

// TradeRepo is the SQLite implementation of the TradeStore port interface.
// Quantities and prices are stored as canonical decimal strings.
type TradeRepo struct {
	db *DB
}

// NewTradeRepo creates a new TradeRepo backed by the given DB.
func NewTradeRepo(db *DB) *TradeRepo {
	return &TradeRepo{db: db}
}

// Insert writes a trade record.
func (r *TradeRepo) Insert(ctx context.Context, trade model.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, user_id, symbol, side, order_type, quantity, price,
			status, exchange_order_id, executed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var price sql.NullString
	if trade.Price != nil {
		price = sql.NullString{String: trade.Price.String(), Valid: true}
	}

	var orderID sql.NullString
	if trade.ExchangeOrderID != nil {
		orderID = sql.NullString{String: *trade.ExchangeOrderID, Valid: true}
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		trade.ID,
		trade.UserID,
		trade.Symbol,
		string(trade.Side),
		string(trade.OrderType),
		trade.Quantity.String(),
		price,
		trade.Status,
		orderID,
		formatTime(trade.ExecutedAt),
		formatTime(trade.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert trade %q: %w", trade.ID, err)
	}

	return nil
}

// ListRecent returns up to limit trades for the user ordered newest first.
func (r *TradeRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.TradeRecord, error) {
	const query = `
		SELECT id, user_id, symbol, side, order_type, quantity, price,
		       status, exchange_order_id, executed_at, created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trades for user %q: %w", userID, err)
	}
	defer rows.Close()

	trades := []model.TradeRecord{}
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}

func scanTrade(rows *sql.Rows) (model.TradeRecord, error) {
	var (
		trade      model.TradeRecord
		side       string
		orderType  string
		quantity   string
		price      sql.NullString
		orderID    sql.NullString
		executedAt string
		createdAt  string
	)

	if err := rows.Scan(
		&trade.ID,
		&trade.UserID,
		&trade.Symbol,
		&side,
		&orderType,
		&quantity,
		&price,
		&trade.Status,
		&orderID,
		&executedAt,
		&createdAt,
	); err != nil {
		return model.TradeRecord{}, fmt.Errorf("scan trade: %w", err)
	}

	trade.Side = model.OrderSide(side)
	trade.OrderType = model.OrderType(orderType)

	var err error
	if trade.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return model.TradeRecord{}, fmt.Errorf("parse quantity for trade %q: %w", trade.ID, err)
	}
	if price.Valid {
		p, err := decimal.NewFromString(price.String)
		if err != nil {
			return model.TradeRecord{}, fmt.Errorf("parse price for trade %q: %w", trade.ID, err)
		}
		trade.Price = &p
	}
	if orderID.Valid {
		id := orderID.String
		trade.ExchangeOrderID = &id
	}
	if trade.ExecutedAt, err = parseTime(executedAt); err != nil {
		return model.TradeRecord{}, fmt.Errorf("parse executed_at for trade %q: %w", trade.ID, err)
	}
	if trade.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.TradeRecord{}, fmt.Errorf("parse created_at for trade %q: %w", trade.ID, err)
	}

	return trade, nil
}
