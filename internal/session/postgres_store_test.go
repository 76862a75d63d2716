package session

import (
	"context"
	"testing"
	"time"

	"github.com/bhokmandu/storefront/internal/testutil"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	now := time.Now().Truncate(time.Millisecond)
	state := &State{
		ID:             "sess_pg1",
		TransactionRef: "txn_pg",
		BearerToken:    "jwt-pg",
		Cart: []CartItem{
			{ProductID: "p1", Name: "Thukpa", Price: 180, Quantity: 2},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "sess_pg1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TransactionRef != "txn_pg" || got.BearerToken != "jwt-pg" {
		t.Errorf("State not preserved: %+v", got)
	}
	if len(got.Cart) != 1 || got.Cart[0].Name != "Thukpa" || got.Cart[0].Quantity != 2 {
		t.Errorf("Cart not preserved: %+v", got.Cart)
	}
}

func TestPostgresStore_UpsertOverwrites(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	now := time.Now()
	state := &State{ID: "sess_pg2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("Put: %v", err)
	}

	state.TransactionRef = "txn_updated"
	state.Cart = []CartItem{{ProductID: "p9", Quantity: 3}}
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("Put (update): %v", err)
	}

	got, err := store.Get(ctx, "sess_pg2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TransactionRef != "txn_updated" || len(got.Cart) != 1 {
		t.Errorf("Upsert did not overwrite: %+v", got)
	}
}

func TestPostgresStore_ExpiryAndPurge(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	now := time.Now()
	if err := store.Put(ctx, &State{ID: "sess_dead", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.Get(ctx, "sess_dead"); err != ErrExpired {
		t.Errorf("Expected ErrExpired, got %v", err)
	}

	purged, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged, got %d", purged)
	}
	if _, err := store.Get(ctx, "sess_dead"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after purge, got %v", err)
	}
}
