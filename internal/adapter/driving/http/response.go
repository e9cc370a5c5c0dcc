package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps an application error onto a status code. Expected
// conditions get a descriptive 4xx; exchange rejections pass the exchange's
// message through; anything else is logged and reported generically.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		validation *model.ValidationError
		rejected   *model.ExchangeRejectedError
	)

	switch {
	case errors.Is(err, model.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, model.ErrNotConnected):
		writeError(w, http.StatusNotFound, "Not connected")
	case errors.As(err, &rejected):
		h.logger.Warn("exchange rejected request", "op", op, "status_code", rejected.StatusCode, "code", rejected.Code)
		writeError(w, http.StatusInternalServerError, rejected.Message)
	default:
		h.logger.Error("request failed", "op", op, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// okResponse acknowledges a mutation.
type okResponse struct {
	OK bool `json:"ok"`
}

// ConnectRequest is the JSON body for the connect endpoint.
type ConnectRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
	Label     string `json:"label,omitempty"`
}

// TradeRequest is the JSON body for the trade endpoint. Quantity and price
// accept JSON numbers or numeric strings.
type TradeRequest struct {
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	OrderType string           `json:"orderType"`
	Quantity  *decimal.Decimal `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// TradeResponse wraps the exchange's order payload.
type TradeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// StatusResponse is the public connection status.
type StatusResponse struct {
	Connected bool    `json:"connected"`
	UpdatedAt *string `json:"updatedAt"`
}

// KeysResponse carries decrypted credentials.
type KeysResponse struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// TradeRecordResponse is the JSON representation of a recorded trade.
type TradeRecordResponse struct {
	ID              string  `json:"id"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	OrderType       string  `json:"orderType"`
	Quantity        string  `json:"quantity"`
	Price           *string `json:"price"`
	Status          string  `json:"status"`
	ExchangeOrderID *string `json:"mexcOrderId"`
	ExecutedAt      string  `json:"executedAt"`
	CreatedAt       string  `json:"createdAt"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toStatusResponse(s model.CredentialStatus) StatusResponse {
	resp := StatusResponse{Connected: s.Connected}
	if s.UpdatedAt != nil {
		v := s.UpdatedAt.UTC().Format(time.RFC3339)
		resp.UpdatedAt = &v
	}
	return resp
}

func toTradeRecordResponse(t model.TradeRecord) TradeRecordResponse {
	resp := TradeRecordResponse{
		ID:              t.ID,
		Symbol:          t.Symbol,
		Side:            string(t.Side),
		OrderType:       string(t.OrderType),
		Quantity:        t.Quantity.String(),
		Status:          t.Status,
		ExchangeOrderID: t.ExchangeOrderID,
		ExecutedAt:      t.ExecutedAt.UTC().Format(time.RFC3339),
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.Price != nil {
		p := t.Price.String()
		resp.Price = &p
	}
	return resp
}
