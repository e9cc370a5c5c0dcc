package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

const (
	// DefaultTradeListLimit is used when a caller asks for recent trades
	// without a limit.
	DefaultTradeListLimit = 10

	// MaxTradeListLimit caps a single recent-trades page.
	MaxTradeListLimit = 100
)

// OrderService places orders on the exchange on behalf of an authenticated
// user and keeps a history of the orders that were accepted.
type OrderService struct {
	credentials driven.CredentialStore
	cipher      driven.CredentialCipher
	exchange    driven.ExchangeClient
	trades      driven.TradeStore
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewOrderService creates an OrderService with the required dependencies.
func NewOrderService(
	credentials driven.CredentialStore,
	cipher driven.CredentialCipher,
	exchange driven.ExchangeClient,
	trades driven.TradeStore,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		credentials: credentials,
		cipher:      cipher,
		exchange:    exchange,
		trades:      trades,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// PlaceOrder validates req, signs it with the user's decrypted credentials
// and submits it once. On success a trade record is written; a failure to
// write it is logged and does not fail the call, since the order is already
// live on the exchange. Rejected orders leave no record.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req model.OrderRequest) (model.OrderResult, error) {
	if userID == "" {
		return model.OrderResult{}, model.ErrUnauthorized
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return model.OrderResult{}, err
	}

	creds, err := loadCredentials(ctx, s.credentials, s.cipher, userID)
	if err != nil {
		return model.OrderResult{}, err
	}

	executedAt := s.now().UTC()
	result, err := s.exchange.PlaceOrder(ctx, creds, req, executedAt)
	if err != nil {
		var rejected *model.ExchangeRejectedError
		if errors.As(err, &rejected) {
			s.logger.WarnContext(ctx, "order rejected by exchange",
				"user_id", userID,
				"symbol", req.Symbol,
				"side", req.Side,
				"type", req.Type,
				"status_code", rejected.StatusCode,
				"code", rejected.Code,
			)
		} else {
			s.logger.ErrorContext(ctx, "order submission failed",
				"user_id", userID,
				"symbol", req.Symbol,
				"error", err,
			)
		}
		return model.OrderResult{}, err
	}

	s.record(ctx, userID, req, result, executedAt)
	return result, nil
}

// RecentTrades returns the user's latest trade records, newest first. A
// non-positive limit selects DefaultTradeListLimit; larger limits are capped
// at MaxTradeListLimit.
func (s *OrderService) RecentTrades(ctx context.Context, userID string, limit int) ([]model.TradeRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultTradeListLimit
	case limit > MaxTradeListLimit:
		limit = MaxTradeListLimit
	}

	trades, err := s.trades.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, persistenceError("list trades", err)
	}
	return trades, nil
}

func (s *OrderService) record(ctx context.Context, userID string, req model.OrderRequest, result model.OrderResult, executedAt time.Time) {
	status := result.Status
	if status == "" {
		status = model.TradeStatusPending
	}

	var orderID *string
	if result.OrderID != "" {
		id := result.OrderID
		orderID = &id
	}

	trade := model.TradeRecord{
		ID:              s.newID(),
		UserID:          userID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		OrderType:       req.Type,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Status:          status,
		ExchangeOrderID: orderID,
		ExecutedAt:      executedAt,
		CreatedAt:       s.now().UTC(),
	}

	// The order is live; a canceled request must not drop its record.
	if err := s.trades.Insert(context.WithoutCancel(ctx), trade); err != nil {
		s.logger.ErrorContext(ctx, "failed to record trade",
			"user_id", userID,
			"trade_id", trade.ID,
			"exchange_order_id", result.OrderID,
			"error", err,
		)
		return
	}

	s.logger.InfoContext(ctx, "order placed",
		"user_id", userID,
		"trade_id", trade.ID,
		"symbol", req.Symbol,
		"side", req.Side,
		"type", req.Type,
		"exchange_order_id", result.OrderID,
		"status", status,
	)
}
