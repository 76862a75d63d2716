// Package backend is the typed client for the orders/cart/product API this
// storefront fronts. The storefront never decides payment state on its own;
// this client is the single authority it consults.
package backend

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrUnauthorized = errors.New("backend: request not authorized")
	ErrNotFound     = errors.New("backend: resource not found")
)

// StatusError reports a non-2xx backend response outside the cases a caller
// handles explicitly.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d: %s", e.StatusCode, e.Body)
}

// VerifyStatus tags the outcome of a payment verification call.
type VerifyStatus int

const (
	// VerifyCompleted: backend confirmed the payment.
	VerifyCompleted VerifyStatus = iota
	// VerifyNotCompleted: backend reached and the payment is definitively not
	// complete (non-success status, or HTTP 400).
	VerifyNotCompleted
	// VerifyRequestFailed: the backend could not be consulted (network error,
	// 5xx, unexpected status). Not the same as a failed payment.
	VerifyRequestFailed
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyCompleted:
		return "completed"
	case VerifyNotCompleted:
		return "not_completed"
	case VerifyRequestFailed:
		return "request_failed"
	}
	return "unknown"
}

// VerifyResult is the tagged result of a verification call. Callers branch on
// Status instead of sniffing response fields.
type VerifyResult struct {
	Status        VerifyStatus
	PaymentStatus string // backend-reported status when reachable
	HTTPStatus    int    // 0 when the request never completed
	Err           error  // transport error for RequestFailed, for logging
}

// paymentStatusRequest is the wire body for POST /api/orders/payment-status.
type paymentStatusRequest struct {
	ProductID string `json:"productId"`
	Pidx      string `json:"pidx,omitempty"`
	Status    string `json:"status,omitempty"`
}

// paymentStatusResponse is the success-path response body.
type paymentStatusResponse struct {
	PaymentStatus string `json:"paymentStatus"`
}

// PaymentStatusCompleted is the backend's confirmation value.
const PaymentStatusCompleted = "COMPLETED"

// PlaceOrderRequest is the payload for order placement.
type PlaceOrderRequest struct {
	ProductID       string `json:"productId"`
	DeliveryAddress string `json:"deliveryAddress"`
	Phone           string `json:"phone"`
	PaymentGateway  string `json:"paymentGateway"`
}

// OrderPlacement is the backend's answer to order placement: where to send
// the browser to pay.
type OrderPlacement struct {
	PaymentURL string `json:"paymentUrl"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order mirrors the backend's order document.
type Order struct {
	ID              string      `json:"_id"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"totalAmount"`
	Status          string      `json:"status"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Phone           string      `json:"phone"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Product mirrors the backend's product document.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

// ProductPage is a paginated catalog response.
type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Total    int       `json:"total"`
}

// CartItem is a line of the backend cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
}

// Cart is the backend cart document.
type Cart struct {
	Items []CartItem `json:"items"`
}
