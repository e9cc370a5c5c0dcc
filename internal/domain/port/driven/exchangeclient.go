package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// ExchangeClient defines the driven port for submitting signed orders to the
// exchange. PlaceOrder makes exactly one attempt; an order is never resubmitted.
type ExchangeClient interface {
	// PlaceOrder signs order with creds using at as the request timestamp and
	// submits it. An exchange-side refusal returns *model.ExchangeRejectedError.
	PlaceOrder(ctx context.Context, creds model.APICredentials, order model.OrderRequest, at time.Time) (model.OrderResult, error)
}
