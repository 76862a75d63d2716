package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bhokmandu/storefront/internal/retry"
)

// Defaults
const (
	DefaultTimeout     = 15 * time.Second
	catalogMaxAttempts = 3
	catalogBaseDelay   = 200 * time.Millisecond
)

// Client talks to the backend orders/cart/product API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifyPayment performs the single authoritative payment check for ref.
// pidx carries Khalti's secondary reference and is empty for eSewa.
//
// The mapping is deliberate and asymmetric:
//   - 2xx with paymentStatus COMPLETED  → VerifyCompleted
//   - 2xx with any other paymentStatus  → VerifyNotCompleted
//   - HTTP 400                          → VerifyNotCompleted (confirmed bad)
//   - anything else (network, 5xx, ...) → VerifyRequestFailed
//
// An unreachable backend is not a failed payment and must never be reported
// as one. This method performs exactly one attempt; callers must not retry.
func (c *Client) VerifyPayment(ctx context.Context, ref, pidx string) VerifyResult {
	body := paymentStatusRequest{ProductID: ref, Pidx: pidx}

	resp, err := c.postJSON(ctx, "/api/orders/payment-status", "", body)
	if err != nil {
		return VerifyResult{Status: VerifyRequestFailed, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		return VerifyResult{Status: VerifyNotCompleted, HTTPStatus: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return VerifyResult{
			Status:     VerifyRequestFailed,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("backend: verification returned status %d", resp.StatusCode),
		}
	}

	var ps paymentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return VerifyResult{
			Status:     VerifyRequestFailed,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("backend: decode verification response: %w", err),
		}
	}

	if ps.PaymentStatus == PaymentStatusCompleted {
		return VerifyResult{Status: VerifyCompleted, PaymentStatus: ps.PaymentStatus, HTTPStatus: resp.StatusCode}
	}
	return VerifyResult{Status: VerifyNotCompleted, PaymentStatus: ps.PaymentStatus, HTTPStatus: resp.StatusCode}
}

// MarkPaymentFailed records a FAILED status for ref server-side. bearer is
// the session's cached credential and may be empty. Callers treat this as
// best-effort; the error is for logging only.
func (c *Client) MarkPaymentFailed(ctx context.Context, ref, bearer string) error {
	body := paymentStatusRequest{ProductID: ref, Status: "FAILED"}

	resp, err := c.postJSON(ctx, "/api/orders/payment-status", bearer, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	return nil
}

// PlaceOrder creates an order from the caller's cart and returns the gateway
// redirect URL.
func (c *Client) PlaceOrder(ctx context.Context, bearer string, req PlaceOrderRequest) (*OrderPlacement, error) {
	resp, err := c.postJSON(ctx, "/api/orders", bearer, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var placement OrderPlacement
	if err := json.NewDecoder(resp.Body).Decode(&placement); err != nil {
		return nil, fmt.Errorf("backend: decode order placement: %w", err)
	}
	if placement.PaymentURL == "" {
		return nil, fmt.Errorf("backend: order placement returned no payment URL")
	}
	return &placement, nil
}

// ListOrders returns the caller's order history.
func (c *Client) ListOrders(ctx context.Context, bearer string) ([]Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/orders", bearer, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var orders []Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("backend: decode orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns a single order by id.
func (c *Client) GetOrder(ctx context.Context, bearer, id string) (*Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), bearer, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("backend: decode order: %w", err)
	}
	return &order, nil
}

// UpdateOrderStatus patches an order's fulfillment status (admin flow).
func (c *Client) UpdateOrderStatus(ctx context.Context, bearer, id, status string) error {
	payload, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id), bearer, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp)
}

// ListProducts fetches a catalog page. This is the one idempotent read the
// client retries: transient backend hiccups should not blank the storefront.
func (c *Client) ListProducts(ctx context.Context, page, limit int) (*ProductPage, error) {
	path := "/api/products"
	if page > 0 || limit > 0 {
		q := url.Values{}
		if page > 0 {
			q.Set("page", strconv.Itoa(page))
		}
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		path += "?" + q.Encode()
	}

	var result *ProductPage
	err := retry.Do(ctx, catalogMaxAttempts, catalogBaseDelay, func() error {
		resp, err := c.do(ctx, http.MethodGet, path, "", nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := c.statusError(resp)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		var pageResp ProductPage
		if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
			return retry.Permanent(fmt.Errorf("backend: decode products: %w", err))
		}
		result = &pageResp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCart fetches the caller's cart.
func (c *Client) GetCart(ctx context.Context, bearer string) (*Cart, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/cart", bearer, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var cart Cart
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return nil, fmt.Errorf("backend: decode cart: %w", err)
	}
	return &cart, nil
}

// AddCartItem adds quantity of a product to the caller's cart.
func (c *Client) AddCartItem(ctx context.Context, bearer, productID string, quantity int) error {
	resp, err := c.postJSON(ctx, "/api/cart", bearer, map[string]interface{}{
		"productId": productID,
		"quantity":  quantity,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp)
}

// UpdateCartItem sets the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, bearer, productID string, quantity int) error {
	payload, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(productID), bearer, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp)
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, bearer, productID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(productID), bearer, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.checkStatus(resp)
}

// Ping probes backend reachability for health checks.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/products?limit=1", "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return c.statusError(resp)
	}
	return nil
}

// --- transport helpers ---

func (c *Client) postJSON(ctx context.Context, path, bearer string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("backend: marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bearer, payload)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// checkStatus maps non-2xx responses to errors and drains nothing: callers
// still own the body.
func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return c.statusError(resp)
	}
}

func (c *Client) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}
