package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bhokmandu/storefront/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, logging.New("error", "text")), srv
}

func TestVerifyPayment_Completed(t *testing.T) {
	var gotBody paymentStatusRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/payment-status" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"paymentStatus": "COMPLETED"})
	}))

	res := client.VerifyPayment(context.Background(), "txn_1", "pidx_9")
	if res.Status != VerifyCompleted {
		t.Fatalf("Expected VerifyCompleted, got %s (err=%v)", res.Status, res.Err)
	}
	if gotBody.ProductID != "txn_1" || gotBody.Pidx != "pidx_9" {
		t.Errorf("Request body not forwarded: %+v", gotBody)
	}
	if gotBody.Status != "" {
		t.Errorf("Verification must not carry a status field, got %q", gotBody.Status)
	}
}

func TestVerifyPayment_Pending(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"paymentStatus": "PENDING"})
	}))

	res := client.VerifyPayment(context.Background(), "txn_1", "")
	if res.Status != VerifyNotCompleted {
		t.Fatalf("Expected VerifyNotCompleted, got %s", res.Status)
	}
	if res.PaymentStatus != "PENDING" {
		t.Errorf("Expected backend status preserved, got %q", res.PaymentStatus)
	}
}

func TestVerifyPayment_400IsConfirmedFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such order", http.StatusBadRequest)
	}))

	res := client.VerifyPayment(context.Background(), "txn_1", "")
	if res.Status != VerifyNotCompleted {
		t.Fatalf("Expected VerifyNotCompleted for 400, got %s", res.Status)
	}
	if res.HTTPStatus != http.StatusBadRequest {
		t.Errorf("Expected HTTP 400 recorded, got %d", res.HTTPStatus)
	}
}

func TestVerifyPayment_500IsSoftFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	res := client.VerifyPayment(context.Background(), "txn_1", "")
	if res.Status != VerifyRequestFailed {
		t.Fatalf("Expected VerifyRequestFailed for 500, got %s", res.Status)
	}
	if res.Err == nil {
		t.Error("Expected error recorded for logging")
	}
}

func TestVerifyPayment_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	client := New(srv.URL, logging.New("error", "text"))

	res := client.VerifyPayment(context.Background(), "txn_1", "")
	if res.Status != VerifyRequestFailed {
		t.Fatalf("Expected VerifyRequestFailed for network error, got %s", res.Status)
	}
	if res.HTTPStatus != 0 {
		t.Errorf("Expected no HTTP status for transport failure, got %d", res.HTTPStatus)
	}
}

func TestVerifyPayment_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	client.VerifyPayment(context.Background(), "txn_1", "")
	if n := calls.Load(); n != 1 {
		t.Fatalf("Verification must be single-shot, saw %d attempts", n)
	}
}

func TestMarkPaymentFailed_SendsBearerAndStatus(t *testing.T) {
	var gotAuth string
	var gotBody paymentStatusRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.MarkPaymentFailed(context.Background(), "txn_2", "jwt-token")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotAuth != "Bearer jwt-token" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if gotBody.ProductID != "txn_2" || gotBody.Status != "FAILED" {
		t.Errorf("Unexpected body: %+v", gotBody)
	}
}

func TestMarkPaymentFailed_NoBearer(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.MarkPaymentFailed(context.Background(), "txn_2", ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Expected no Authorization header, got %q", gotAuth)
	}
}

func TestPlaceOrder_ReturnsPaymentURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PlaceOrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.PaymentGateway != "esewa" {
			t.Errorf("Expected esewa gateway, got %q", req.PaymentGateway)
		}
		json.NewEncoder(w).Encode(map[string]string{"paymentUrl": "https://rc.esewa.com.np/pay?x=1"})
	}))

	placement, err := client.PlaceOrder(context.Background(), "jwt", PlaceOrderRequest{
		ProductID:       "txn_3",
		DeliveryAddress: "Baneshwor, Kathmandu",
		Phone:           "9800000000",
		PaymentGateway:  "esewa",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if placement.PaymentURL == "" {
		t.Fatal("Expected payment URL")
	}
}

func TestPlaceOrder_MissingPaymentURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	if _, err := client.PlaceOrder(context.Background(), "jwt", PlaceOrderRequest{}); err == nil {
		t.Fatal("Expected error for placement without payment URL")
	}
}

func TestListProducts_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ProductPage{Products: []Product{{ID: "p1", Name: "Momo", Price: 220}}})
	}))

	page, err := client.ListProducts(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].Name != "Momo" {
		t.Errorf("Unexpected page: %+v", page)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestListProducts_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad page", http.StatusBadRequest)
	}))

	if _, err := client.ListProducts(context.Background(), -1, 0); err == nil {
		t.Fatal("Expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not retry, got %d attempts", calls.Load())
	}
}

func TestErrorMapping(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders/missing":
			http.Error(w, "nope", http.StatusNotFound)
		default:
			http.Error(w, "who are you", http.StatusUnauthorized)
		}
	}))

	if _, err := client.GetOrder(context.Background(), "jwt", "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := client.ListOrders(context.Background(), "jwt"); err != ErrUnauthorized {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}
