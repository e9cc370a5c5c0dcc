package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/mexcbridge/internal/application"
	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	gate        *application.AccessGate
	credentials *application.CredentialService
	orders      *application.OrderService
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	gate *application.AccessGate,
	credentials *application.CredentialService,
	orders *application.OrderService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		gate:        gate,
		credentials: credentials,
		orders:      orders,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered. Every route
// except health runs behind the access gate. The whole mux is wrapped with
// CORS, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger, corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/connect", h.requireAuth(h.Connect))
	mux.HandleFunc("DELETE /api/v1/connect", h.requireAuth(h.Disconnect))
	mux.HandleFunc("GET /api/v1/status", h.requireAuth(h.Status))
	mux.HandleFunc("GET /api/v1/keys", h.requireAuth(h.Keys))
	mux.HandleFunc("POST /api/v1/trade", h.requireAuth(h.PlaceTrade))
	mux.HandleFunc("GET /api/v1/trades", h.requireAuth(h.ListTrades))
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = corsMiddleware(corsOrigin, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Connect stores the caller's exchange credentials, replacing any previous pair.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	identity := identityFromContext(r.Context())
	if _, err := h.credentials.Connect(r.Context(), identity.UserID, req.APIKey, req.APISecret, req.Label); err != nil {
		h.writeServiceError(w, r, "connect", err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Disconnect deactivates the caller's exchange credentials.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := h.credentials.Disconnect(r.Context(), identity.UserID); err != nil {
		h.writeServiceError(w, r, "disconnect", err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Status reports whether the caller has active exchange credentials.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	status, err := h.credentials.Status(r.Context(), identity.UserID)
	if err != nil {
		h.writeServiceError(w, r, "status", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

// Keys returns the caller's decrypted exchange credentials.
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	creds, err := h.credentials.Keys(r.Context(), identity.UserID)
	if err != nil {
		h.writeServiceError(w, r, "keys", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, KeysResponse{APIKey: creds.APIKey, APISecret: creds.APISecret})
}

// PlaceTrade submits a spot order on the caller's behalf and returns the
// exchange's payload unmodified.
func (h *Handler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity: is required")
		return
	}

	order := model.OrderRequest{
		Symbol:   req.Symbol,
		Side:     model.OrderSide(req.Side),
		Type:     model.OrderType(req.OrderType),
		Quantity: *req.Quantity,
		Price:    req.Price,
	}

	identity := identityFromContext(r.Context())
	result, err := h.orders.PlaceOrder(r.Context(), identity.UserID, order)
	if err != nil {
		h.writeServiceError(w, r, "trade", err)
		return
	}

	data := result.Raw
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, TradeResponse{Success: true, Data: data})
}

// ListTrades returns the caller's most recent trade records, newest first.
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit: must be a positive integer")
			return
		}
		limit = parsed
	}

	identity := identityFromContext(r.Context())
	trades, err := h.orders.RecentTrades(r.Context(), identity.UserID, limit)
	if err != nil {
		h.writeServiceError(w, r, "list trades", err)
		return
	}

	resp := make([]TradeRecordResponse, 0, len(trades))
	for _, trade := range trades {
		resp = append(resp, toTradeRecordResponse(trade))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeBody strictly decodes a size-limited JSON body into v. It writes a
// 400 response and returns false on any decoding problem.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}
