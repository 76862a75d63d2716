// Package cart keeps the shopper's cart. Signed-in callers get the backend
// cart with the session snapshot refreshed alongside; guests get the
// session snapshot alone, which survives until checkout requires signing in.
package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/session"
)

var (
	ErrEmptyProductID = errors.New("cart: product id is required")
	ErrBadQuantity    = errors.New("cart: quantity must be positive")
	ErrItemNotFound   = errors.New("cart: item not in cart")
)

// BackendCart is the slice of the backend client the cart service uses.
type BackendCart interface {
	GetCart(ctx context.Context, bearer string) (*backend.Cart, error)
	AddCartItem(ctx context.Context, bearer, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, bearer, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, bearer, productID string) error
}

// View is the cart as rendered to the caller.
type View struct {
	Items []session.CartItem `json:"items"`
	Total float64            `json:"total"`
	Count int                `json:"count"`
}

// Service mediates between the backend cart and the session snapshot.
type Service struct {
	backend  BackendCart
	sessions session.Store
	logger   *slog.Logger
}

func NewService(backend BackendCart, sessions session.Store, logger *slog.Logger) *Service {
	return &Service{backend: backend, sessions: sessions, logger: logger}
}

// Get returns the current cart. With a cached credential the backend cart is
// authoritative and the session snapshot is refreshed from it; otherwise the
// snapshot is the cart.
func (s *Service) Get(ctx context.Context, sess *session.State) (View, error) {
	if sess.BearerToken != "" {
		bc, err := s.backend.GetCart(ctx, sess.BearerToken)
		if err != nil {
			return View{}, err
		}
		items := make([]session.CartItem, 0, len(bc.Items))
		for _, it := range bc.Items {
			items = append(items, session.CartItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.Price,
				Quantity:  it.Quantity,
				Image:     it.Image,
			})
		}
		s.snapshot(ctx, sess, items)
		return render(items), nil
	}
	return render(sess.Cart), nil
}

// Add puts an item in the cart, merging quantities when the product is
// already present.
func (s *Service) Add(ctx context.Context, sess *session.State, item session.CartItem) (View, error) {
	if item.ProductID == "" {
		return View{}, ErrEmptyProductID
	}
	if item.Quantity <= 0 {
		return View{}, ErrBadQuantity
	}

	if sess.BearerToken != "" {
		if err := s.backend.AddCartItem(ctx, sess.BearerToken, item.ProductID, item.Quantity); err != nil {
			return View{}, err
		}
		return s.Get(ctx, sess)
	}

	items := sess.Cart
	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	s.snapshot(ctx, sess, items)
	return render(items), nil
}

// UpdateQuantity sets an item's quantity. Zero or negative removes the item.
func (s *Service) UpdateQuantity(ctx context.Context, sess *session.State, productID string, quantity int) (View, error) {
	if productID == "" {
		return View{}, ErrEmptyProductID
	}
	if quantity <= 0 {
		return s.Remove(ctx, sess, productID)
	}

	if sess.BearerToken != "" {
		if err := s.backend.UpdateCartItem(ctx, sess.BearerToken, productID, quantity); err != nil {
			return View{}, err
		}
		return s.Get(ctx, sess)
	}

	items := sess.Cart
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			s.snapshot(ctx, sess, items)
			return render(items), nil
		}
	}
	return View{}, ErrItemNotFound
}

// Remove deletes an item from the cart.
func (s *Service) Remove(ctx context.Context, sess *session.State, productID string) (View, error) {
	if productID == "" {
		return View{}, ErrEmptyProductID
	}

	if sess.BearerToken != "" {
		if err := s.backend.RemoveCartItem(ctx, sess.BearerToken, productID); err != nil {
			return View{}, err
		}
		return s.Get(ctx, sess)
	}

	items := sess.Cart
	for i := range items {
		if items[i].ProductID == productID {
			items = append(items[:i], items[i+1:]...)
			s.snapshot(ctx, sess, items)
			return render(items), nil
		}
	}
	return View{}, ErrItemNotFound
}

// Clear empties the session snapshot. The backend empties its own copy when
// an order completes, so only the local state is touched here.
func (s *Service) Clear(ctx context.Context, sess *session.State) View {
	s.snapshot(ctx, sess, nil)
	return render(nil)
}

// snapshot persists the cart into the session. Snapshot staleness is
// tolerable; a write failure only logs.
func (s *Service) snapshot(ctx context.Context, sess *session.State, items []session.CartItem) {
	sess.Cart = items
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.logger.Warn("cart snapshot write failed", "session", sess.ID, "error", err)
	}
}

func render(items []session.CartItem) View {
	v := View{Items: items}
	if v.Items == nil {
		v.Items = []session.CartItem{}
	}
	for _, it := range items {
		v.Total += it.Price * float64(it.Quantity)
		v.Count += it.Quantity
	}
	return v
}
