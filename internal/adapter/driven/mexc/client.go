// Package mexc implements the ExchangeClient port against the MEXC spot REST API.
package mexc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

const (
	// DefaultBaseURL is the production MEXC spot API host.
	DefaultBaseURL = "https://api.mexc.com"

	orderPath      = "/api/v3/order"
	apiKeyHeader   = "X-MEXC-APIKEY"
	maxBodyBytes   = 1 << 20
	fallbackErrMsg = "MEXC API error"
)

// Compile-time interface satisfaction check.
var _ driven.ExchangeClient = (*Client)(nil)

// Client submits signed spot orders to MEXC. Each call is a single attempt
// bounded by the configured timeout; orders are never retried.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a Client for baseURL. timeout bounds each order call,
// including reading the response.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, timeout, logger)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Tests use it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// orderResponse covers both the success and error shapes MEXC returns.
type orderResponse struct {
	OrderID json.RawMessage `json:"orderId"`
	Status  string          `json:"status"`
	Code    json.Number     `json:"code"`
	Msg     string          `json:"msg"`
}

// PlaceOrder signs order with creds.APISecret using at as the request
// timestamp and posts it once. Refusals come back as *model.ExchangeRejectedError
// carrying the exchange's message verbatim.
func (c *Client) PlaceOrder(ctx context.Context, creds model.APICredentials, order model.OrderRequest, at time.Time) (model.OrderResult, error) {
	signed, err := Sign(paramsFromOrder(order, at.UnixMilli()), creds.APISecret)
	if err != nil {
		return model.OrderResult{}, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderPath+"?"+signed, nil)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set(apiKeyHeader, creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("submit order to exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("read exchange response: %w", err)
	}

	c.logger.Info("exchange order call",
		"symbol", order.Symbol,
		"side", order.Side,
		"type", order.Type,
		"http_status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	var parsed orderResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.OrderResult{}, rejection(resp.StatusCode, parsed, decodeErr)
	}
	if decodeErr != nil {
		c.logger.Error("exchange accepted order but response is unreadable; order state unknown",
			"symbol", order.Symbol,
			"side", order.Side,
			"http_status", resp.StatusCode,
			"error", decodeErr,
		)
		return model.OrderResult{}, fmt.Errorf("decode exchange response, order state unknown: %w", decodeErr)
	}
	if isErrorCode(parsed.Code) && len(parsed.OrderID) == 0 {
		return model.OrderResult{}, rejection(resp.StatusCode, parsed, nil)
	}

	return model.OrderResult{
		Raw:     json.RawMessage(bytes.Clone(body)),
		OrderID: orderIDString(parsed.OrderID),
		Status:  parsed.Status,
	}, nil
}

func rejection(statusCode int, parsed orderResponse, decodeErr error) *model.ExchangeRejectedError {
	rejected := &model.ExchangeRejectedError{StatusCode: statusCode, Message: fallbackErrMsg}
	if decodeErr != nil {
		return rejected
	}
	if parsed.Msg != "" {
		rejected.Message = parsed.Msg
	}
	if code, err := parsed.Code.Int64(); err == nil {
		rejected.Code = int(code)
	}
	return rejected
}

// isErrorCode reports whether an in-body code marks a failure. MEXC omits the
// code on success or sends 0/200.
func isErrorCode(code json.Number) bool {
	switch code.String() {
	case "", "0", "200":
		return false
	default:
		return true
	}
}

// orderIDString renders orderId whether MEXC sent it as a string or a number.
func orderIDString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}

	return ""
}
