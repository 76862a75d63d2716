// Package orders fronts the backend order API for signed-in shoppers and
// carries the admin status transition that drives the live order feed.
package orders

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/traces"
)

var (
	ErrSignInRequired = errors.New("orders: sign in required")
	ErrBadStatus      = errors.New("orders: unknown order status")
)

// Statuses the backend accepts for a fulfillment transition.
var validStatuses = map[string]bool{
	"PENDING":    true,
	"PAID":       true,
	"PREPARING":  true,
	"DELIVERING": true,
	"DELIVERED":  true,
	"CANCELLED":  true,
	"FAILED":     true,
}

// BackendOrders is the slice of the backend client this package uses.
type BackendOrders interface {
	ListOrders(ctx context.Context, bearer string) ([]backend.Order, error)
	GetOrder(ctx context.Context, bearer, id string) (*backend.Order, error)
	UpdateOrderStatus(ctx context.Context, bearer, id, status string) error
}

// StatusBroadcaster announces order transitions to connected clients.
type StatusBroadcaster interface {
	OrderStatusChanged(orderID, status string)
}

type Service struct {
	backend     BackendOrders
	broadcaster StatusBroadcaster // may be nil
	logger      *slog.Logger
}

func NewService(backend BackendOrders, broadcaster StatusBroadcaster, logger *slog.Logger) *Service {
	return &Service{backend: backend, broadcaster: broadcaster, logger: logger}
}

// List returns the caller's orders.
func (s *Service) List(ctx context.Context, bearer string) ([]backend.Order, error) {
	if bearer == "" {
		return nil, ErrSignInRequired
	}
	return s.backend.ListOrders(ctx, bearer)
}

// Get returns one of the caller's orders.
func (s *Service) Get(ctx context.Context, bearer, id string) (*backend.Order, error) {
	if bearer == "" {
		return nil, ErrSignInRequired
	}
	return s.backend.GetOrder(ctx, bearer, id)
}

// UpdateStatus moves an order to a new fulfillment status and announces the
// transition. Callers gate this behind the admin secret.
func (s *Service) UpdateStatus(ctx context.Context, bearer, id, status string) error {
	if !validStatuses[status] {
		return ErrBadStatus
	}
	ctx, span := traces.StartSpan(ctx, "orders.update_status", traces.OrderID(id))
	defer span.End()
	if err := s.backend.UpdateOrderStatus(ctx, bearer, id, status); err != nil {
		return err
	}
	if s.broadcaster != nil {
		s.broadcaster.OrderStatusChanged(id, status)
	}
	s.logger.Info("order status updated", "order", id, "status", status)
	return nil
}
