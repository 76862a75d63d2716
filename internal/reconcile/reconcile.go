// Package reconcile implements the payment-completion reconciliation flow:
// resolving the transaction reference from a gateway callback, verifying the
// payment against the backend exactly once, and reducing the result to a
// terminal outcome. A redirect from a gateway is never trusted on its own;
// only the backend's answer can mark a payment completed.
package reconcile

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/gateway"
	"github.com/bhokmandu/storefront/internal/metrics"
	"github.com/bhokmandu/storefront/internal/session"
	"github.com/bhokmandu/storefront/internal/traces"
)

// FailurePath is where the browser is sent when a payment is confirmed not
// completed. The resolved reference rides along so the failure view can mark
// the order FAILED.
const FailurePath = "/payment/failure"

// DefaultMarkTimeout bounds the detached failure-marking call.
const DefaultMarkTimeout = 10 * time.Second

// Outcome is the terminal state of one reconciliation attempt.
type Outcome string

const (
	// OutcomeNoTransaction: no reference resolved; the backend was never
	// contacted.
	OutcomeNoTransaction Outcome = "no_transaction"
	// OutcomeCompleted: the backend confirmed the payment.
	OutcomeCompleted Outcome = "completed"
	// OutcomeNotCompleted: the backend definitively denied completion; the
	// caller must redirect to the failure view.
	OutcomeNotCompleted Outcome = "not_completed"
	// OutcomeVerificationError: the backend could not be consulted. Distinct
	// from a failed payment; retryable, never redirects.
	OutcomeVerificationError Outcome = "verification_error"
)

// Result is what one reconciliation attempt produced.
type Result struct {
	Outcome    Outcome
	Reference  string
	Gateway    gateway.Provider
	Amount     float64 // display amount, gateway units already converted
	HasAmount  bool
	RedirectTo string // set only for OutcomeNotCompleted
}

// Verifier is the slice of the backend client the reconciliation flow needs.
type Verifier interface {
	VerifyPayment(ctx context.Context, ref, pidx string) backend.VerifyResult
	MarkPaymentFailed(ctx context.Context, ref, bearer string) error
}

// EventSink receives payment lifecycle events (the realtime hub). May be nil.
type EventSink interface {
	PaymentCompleted(ref string, gw string, amount float64)
	PaymentFailed(ref string, gw string)
}

// Service drives the reconciliation flow.
type Service struct {
	verifier    Verifier
	sessions    session.Store
	events      EventSink
	logger      *slog.Logger
	markTimeout time.Duration
}

// NewService creates a reconciliation service. events may be nil.
func NewService(verifier Verifier, sessions session.Store, events EventSink, logger *slog.Logger) *Service {
	return &Service{
		verifier:    verifier,
		sessions:    sessions,
		events:      events,
		logger:      logger,
		markTimeout: DefaultMarkTimeout,
	}
}

// ResolveReference determines the canonical transaction reference from the
// callback and the session. Precedence is fixed: decoded token
// transaction_uuid, then the purchase_order_id query parameter, then the
// reference cached in the session at payment initiation. First non-empty
// wins; later sources are not consulted.
func ResolveReference(cb gateway.Callback, cachedRef string) string {
	if cb.Token != nil && cb.Token.TransactionUUID != "" {
		return cb.Token.TransactionUUID
	}
	if cb.PurchaseOrderID != "" {
		return cb.PurchaseOrderID
	}
	return cachedRef
}

// Reconcile runs one reconciliation attempt for a gateway callback. It
// performs at most one verification call; callers must not invoke it again
// for the same page load.
func (s *Service) Reconcile(ctx context.Context, cb gateway.Callback, sess *session.State) Result {
	attrs := []attribute.KeyValue{traces.Gateway(string(cb.Provider))}
	if sess != nil {
		attrs = append(attrs, traces.SessionID(sess.ID))
	}
	ctx, span := traces.StartSpan(ctx, "reconcile", attrs...)
	defer span.End()

	result := Result{Gateway: cb.Provider}
	result.Amount, result.HasAmount = cb.DisplayAmount()

	var cachedRef string
	if sess != nil {
		cachedRef = sess.TransactionRef
	}
	ref := ResolveReference(cb, cachedRef)
	if ref == "" {
		s.logger.Warn("reconcile: no transaction reference in callback or session",
			"gateway", cb.Provider)
		metrics.VerificationsTotal.WithLabelValues(string(cb.Provider), string(OutcomeNoTransaction)).Inc()
		result.Outcome = OutcomeNoTransaction
		span.SetAttributes(traces.Outcome(string(result.Outcome)))
		return result
	}
	result.Reference = ref

	verify := s.verifier.VerifyPayment(ctx, ref, cb.Pidx)
	switch verify.Status {
	case backend.VerifyCompleted:
		result.Outcome = OutcomeCompleted
		s.clearCart(ctx, sess)
		if s.events != nil {
			s.events.PaymentCompleted(ref, string(cb.Provider), result.Amount)
		}
		s.logger.Info("payment confirmed", "reference", ref, "gateway", cb.Provider)

	case backend.VerifyNotCompleted:
		result.Outcome = OutcomeNotCompleted
		result.RedirectTo = FailurePath + "?purchase_order_id=" + url.QueryEscape(ref)
		// The token's own status claim is logged alongside the backend verdict;
		// a COMPLETE claim on a denied payment is worth spotting in the logs.
		s.logger.Info("payment not completed",
			"reference", ref, "gateway", cb.Provider,
			"payment_status", verify.PaymentStatus, "http_status", verify.HTTPStatus,
			"gateway_claimed", tokenStatus(cb))

	case backend.VerifyRequestFailed:
		result.Outcome = OutcomeVerificationError
		s.logger.Error("payment verification unavailable",
			"reference", ref, "gateway", cb.Provider,
			"http_status", verify.HTTPStatus, "error", verify.Err)
	}

	metrics.VerificationsTotal.WithLabelValues(string(cb.Provider), string(result.Outcome)).Inc()
	span.SetAttributes(traces.TransactionRef(ref), traces.Outcome(string(result.Outcome)))
	return result
}

// MarkFailed records the order as FAILED server-side, best effort. The call
// runs detached from the request with its own timeout: its failure is logged
// and counted, never surfaced, never retried, and never blocks the failure
// view. The returned channel closes when the attempt finishes (tests wait on
// it; the handler does not).
func (s *Service) MarkFailed(cb gateway.Callback, sess *session.State) (string, <-chan struct{}) {
	done := make(chan struct{})

	var cachedRef, bearer string
	if sess != nil {
		cachedRef = sess.TransactionRef
		bearer = sess.BearerToken
	}
	ref := ResolveReference(cb, cachedRef)
	if ref == "" {
		close(done)
		return "", done
	}

	if s.events != nil {
		s.events.PaymentFailed(ref, string(cb.Provider))
	}

	metrics.FailureMarksTotal.Inc()
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), s.markTimeout)
		defer cancel()

		if err := s.verifier.MarkPaymentFailed(ctx, ref, bearer); err != nil {
			metrics.FailureMarkErrors.Inc()
			s.logger.Warn("failure mark did not stick", "reference", ref, "error", err)
			return
		}
		s.logger.Info("order marked failed", "reference", ref)
	}()

	return ref, done
}

// tokenStatus is the status the gateway token claims, empty when no token
// decoded. Display and logging only; the backend verdict is authoritative.
func tokenStatus(cb gateway.Callback) string {
	if cb.Token == nil {
		return ""
	}
	return cb.Token.Status
}

// clearCart drops the session cart snapshot once payment is confirmed.
func (s *Service) clearCart(ctx context.Context, sess *session.State) {
	if sess == nil || len(sess.Cart) == 0 {
		return
	}
	sess.Cart = nil
	if err := s.sessions.Put(ctx, sess); err != nil {
		// The payment is confirmed either way; a stale snapshot is cosmetic.
		s.logger.Warn("cart clear failed", "session", sess.ID, "error", err)
	}
}
