package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/session"
)

func newTestRouter(t *testing.T, verifier Verifier, sess *session.State) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(verifier, session.NewMemoryStore(), nil, testLogger())
	r := gin.New()
	if sess != nil {
		r.Use(func(c *gin.Context) {
			session.Inject(c, sess)
		})
	}
	NewHandlers(svc).RegisterRoutes(r)
	return r
}

func doGet(t *testing.T, r *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestSuccessCompleted(t *testing.T) {
	verifier := &stubVerifier{verifyResult: backend.VerifyResult{
		Status:        backend.VerifyCompleted,
		PaymentStatus: backend.PaymentStatusCompleted,
		HTTPStatus:    200,
	}}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/success?purchase_order_id=txn_1&total_amount=250")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["outcome"] != string(OutcomeCompleted) {
		t.Errorf("outcome = %v, want completed", body["outcome"])
	}
	if body["transaction_id"] != "txn_1" {
		t.Errorf("transaction_id = %v, want txn_1", body["transaction_id"])
	}
	if body["amount_paid"] != 250.0 {
		t.Errorf("amount_paid = %v, want 250", body["amount_paid"])
	}
}

func TestSuccessNotCompletedRedirectsToFailure(t *testing.T) {
	verifier := &stubVerifier{verifyResult: backend.VerifyResult{
		Status:        backend.VerifyNotCompleted,
		PaymentStatus: "PENDING",
		HTTPStatus:    200,
	}}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/success?purchase_order_id=txn_2")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/payment/failure?purchase_order_id=txn_2" {
		t.Errorf("Location = %q", loc)
	}
}

func TestSuccessVerificationErrorIsRetryable(t *testing.T) {
	verifier := &stubVerifier{verifyResult: backend.VerifyResult{
		Status: backend.VerifyRequestFailed,
	}}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/success?purchase_order_id=txn_3")

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "" {
		t.Errorf("verification error redirected to %q; it must not redirect", loc)
	}
	body := decodeBody(t, w)
	if body["retryable"] != true {
		t.Errorf("retryable = %v, want true", body["retryable"])
	}
}

func TestSuccessNoTransaction(t *testing.T) {
	verifier := &stubVerifier{}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/success")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if n := verifier.snapshot().verifyCalls; n != 0 {
		t.Errorf("verifier called %d times, want 0", n)
	}
}

func TestSuccessUndecodableTokenFallsBackToQueryParam(t *testing.T) {
	verifier := &stubVerifier{verifyResult: backend.VerifyResult{
		Status:        backend.VerifyCompleted,
		PaymentStatus: backend.PaymentStatusCompleted,
		HTTPStatus:    200,
	}}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/success?data=%21not-base64%21&purchase_order_id=txn_fb")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if snap := verifier.snapshot(); snap.lastRef != "txn_fb" {
		t.Errorf("verified reference = %q, want txn_fb", snap.lastRef)
	}
}

func TestSuccessUsesSessionReference(t *testing.T) {
	verifier := &stubVerifier{verifyResult: backend.VerifyResult{
		Status:        backend.VerifyCompleted,
		PaymentStatus: backend.PaymentStatusCompleted,
		HTTPStatus:    200,
	}}
	sess := &session.State{ID: "sess_h", TransactionRef: "txn_sess", ExpiresAt: time.Now().Add(time.Hour)}
	r := newTestRouter(t, verifier, sess)

	w := doGet(t, r, "/payment/success")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if snap := verifier.snapshot(); snap.lastRef != "txn_sess" {
		t.Errorf("verified reference = %q, want txn_sess", snap.lastRef)
	}
}

func TestFailureMarksOrderFailed(t *testing.T) {
	verifier := &stubVerifier{}
	sess := &session.State{ID: "sess_f", BearerToken: "tkn"}
	r := newTestRouter(t, verifier, sess)

	w := doGet(t, r, "/payment/failure?purchase_order_id=txn_f")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["transaction_id"] != "txn_f" {
		t.Errorf("transaction_id = %v, want txn_f", body["transaction_id"])
	}

	// The mark call runs detached; wait for it rather than racing it.
	deadline := time.Now().Add(time.Second)
	for {
		if verifier.snapshot().markCalls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("failure mark never reached the backend")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap := verifier.snapshot(); snap.markBearer != "tkn" {
		t.Errorf("bearer = %q, want cached session credential", snap.markBearer)
	}
}

func TestFailureWithoutReferenceStillResponds(t *testing.T) {
	verifier := &stubVerifier{}
	r := newTestRouter(t, verifier, nil)

	w := doGet(t, r, "/payment/failure")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if _, ok := body["transaction_id"]; ok {
		t.Error("response carries a transaction_id with nothing resolved")
	}
	if n := verifier.snapshot().markCalls; n != 0 {
		t.Errorf("backend called %d times, want 0", n)
	}
}
