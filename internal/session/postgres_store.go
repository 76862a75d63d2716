package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. The cart snapshot is
// stored as JSONB; the schema lives in migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the sessions table if it doesn't exist. cmd/migrate with
// goose is the canonical path; this keeps tests and dev setups self-contained.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id               VARCHAR(64) PRIMARY KEY,
			transaction_ref  VARCHAR(64),
			bearer_token     TEXT,
			cart             JSONB NOT NULL DEFAULT '[]',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*State, error) {
	var (
		state    State
		txnRef   sql.NullString
		bearer   sql.NullString
		cartJSON []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, transaction_ref, bearer_token, cart, created_at, updated_at, expires_at
		FROM sessions WHERE id = $1
	`, id).Scan(&state.ID, &txnRef, &bearer, &cartJSON, &state.CreatedAt, &state.UpdatedAt, &state.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	state.TransactionRef = txnRef.String
	state.BearerToken = bearer.String
	if len(cartJSON) > 0 {
		if err := json.Unmarshal(cartJSON, &state.Cart); err != nil {
			return nil, fmt.Errorf("session: decode cart: %w", err)
		}
	}
	if state.IsExpired() {
		return nil, ErrExpired
	}
	return &state, nil
}

func (p *PostgresStore) Put(ctx context.Context, state *State) error {
	cartJSON, err := json.Marshal(state.Cart)
	if err != nil {
		return fmt.Errorf("session: encode cart: %w", err)
	}
	if state.Cart == nil {
		cartJSON = []byte("[]")
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sessions (id, transaction_ref, bearer_token, cart, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (id) DO UPDATE SET
			transaction_ref = EXCLUDED.transaction_ref,
			bearer_token    = EXCLUDED.bearer_token,
			cart            = EXCLUDED.cart,
			updated_at      = NOW(),
			expires_at      = EXCLUDED.expires_at
	`, state.ID, nullIfEmpty(state.TransactionRef), nullIfEmpty(state.BearerToken),
		cartJSON, state.CreatedAt, state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session: put: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
