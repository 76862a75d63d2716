// Package session owns browser-session state for the storefront: the cart
// snapshot, the cached auth credential, and the transaction reference written
// at payment initiation. The reconciliation flow reads this state instead of
// reaching into ambient storage.
package session

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound = errors.New("session: not found")
	ErrExpired  = errors.New("session: expired")
)

// CartItem is a line of the session's cart snapshot.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
}

// State is everything the storefront remembers about one browser session.
type State struct {
	ID string `json:"id"`

	// TransactionRef is the current transaction reference, written at
	// checkout before redirecting to the gateway. It is the last-resort
	// candidate when resolving a gateway callback.
	TransactionRef string `json:"transactionRef,omitempty"`

	// BearerToken is the cached backend credential, used when marking a
	// payment FAILED on the caller's behalf.
	BearerToken string `json:"-"`

	Cart []CartItem `json:"cart,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired returns true once the session has passed its expiry.
func (s *State) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// CartTotal sums the cart snapshot.
func (s *State) CartTotal() float64 {
	var total float64
	for _, item := range s.Cart {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Store persists session state.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes sessions that expired before the cutoff and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
