// Package checkout turns a cart into a placed order and hands the caller the
// gateway URL to pay at. Placement is the moment the transaction reference is
// cached in the session; the reconciliation flow leans on that cache when a
// gateway callback arrives stripped of its parameters.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/gateway"
	"github.com/bhokmandu/storefront/internal/metrics"
	"github.com/bhokmandu/storefront/internal/security"
	"github.com/bhokmandu/storefront/internal/session"
	"github.com/bhokmandu/storefront/internal/traces"
	"github.com/bhokmandu/storefront/internal/validation"
)

var (
	ErrSignInRequired = errors.New("checkout: sign in required")
	ErrBadGateway     = errors.New("checkout: unsupported payment gateway")
)

const (
	// maxAddressLength bounds the free-form delivery address.
	maxAddressLength = 500
	// sanitizeBound caps pathological input before validation sees it.
	sanitizeBound = 4096
)

// Placer is the slice of the backend client checkout uses.
type Placer interface {
	PlaceOrder(ctx context.Context, bearer string, req backend.PlaceOrderRequest) (*backend.OrderPlacement, error)
}

// Request is a checkout submission.
type Request struct {
	ProductID       string `json:"productId" binding:"required"`
	DeliveryAddress string `json:"deliveryAddress" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	PaymentGateway  string `json:"paymentGateway" binding:"required"`
}

// Result is a successful placement: where to pay, and the reference the
// payment will be reconciled under.
type Result struct {
	PaymentURL     string `json:"paymentUrl"`
	TransactionRef string `json:"transactionRef"`
	Gateway        string `json:"gateway"`
}

// Service drives order placement.
type Service struct {
	placer   Placer
	sessions session.Store
	logger   *slog.Logger
}

func NewService(placer Placer, sessions session.Store, logger *slog.Logger) *Service {
	return &Service{placer: placer, sessions: sessions, logger: logger}
}

// Place submits the order and caches the transaction reference in the
// session before the browser leaves for the gateway.
func (s *Service) Place(ctx context.Context, sess *session.State, req Request) (*Result, error) {
	if sess.BearerToken == "" {
		return nil, ErrSignInRequired
	}
	req.DeliveryAddress = validation.SanitizeString(req.DeliveryAddress, sanitizeBound)
	req.Phone = validation.SanitizeString(req.Phone, sanitizeBound)
	if errs := validation.Validate(
		validation.Required("productId", req.ProductID),
		validation.ValidReference("productId", req.ProductID),
		validation.Required("deliveryAddress", req.DeliveryAddress),
		validation.MaxLength("deliveryAddress", req.DeliveryAddress, maxAddressLength),
		validation.Required("phone", req.Phone),
		validation.ValidPhone("phone", req.Phone),
	); len(errs) > 0 {
		return nil, errs
	}
	gw := gateway.Provider(req.PaymentGateway)
	if gw != gateway.ProviderEsewa && gw != gateway.ProviderKhalti {
		return nil, ErrBadGateway
	}

	ctx, span := traces.StartSpan(ctx, "checkout.place",
		traces.Gateway(req.PaymentGateway), traces.TransactionRef(req.ProductID))
	defer span.End()

	placement, err := s.placer.PlaceOrder(ctx, sess.BearerToken, backend.PlaceOrderRequest{
		ProductID:       req.ProductID,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
		PaymentGateway:  req.PaymentGateway,
	})
	if err != nil {
		return nil, err
	}
	if err := security.ValidateRedirectURL(placement.PaymentURL); err != nil {
		s.logger.Error("backend returned unusable payment url",
			"url", placement.PaymentURL, "error", err)
		return nil, fmt.Errorf("checkout: bad payment url from backend: %w", err)
	}

	// The product id doubles as the reconciliation reference; cache it before
	// the redirect so a mangled callback can still be resolved.
	sess.TransactionRef = req.ProductID
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.logger.Warn("transaction reference cache failed", "session", sess.ID, "error", err)
	}

	metrics.OrdersPlacedTotal.WithLabelValues(req.PaymentGateway).Inc()
	s.logger.Info("order placed", "reference", req.ProductID, "gateway", req.PaymentGateway)

	return &Result{
		PaymentURL:     placement.PaymentURL,
		TransactionRef: req.ProductID,
		Gateway:        req.PaymentGateway,
	}, nil
}
