// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// checkTimeout bounds a single checker so one stuck dependency cannot hang
// the readiness probe.
const checkTimeout = 5 * time.Second

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		statuses[i] = nc.check(cctx)
		cancel()
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}

// Pinger reports whether a remote dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker reports reachability of the orders backend.
func BackendChecker(p Pinger) Checker {
	return func(ctx context.Context) Status {
		st := Status{Name: "backend", Healthy: true}
		if err := p.Ping(ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
		}
		return st
	}
}

// DatabaseChecker reports session database connectivity.
func DatabaseChecker(db *sql.DB) Checker {
	return func(ctx context.Context) Status {
		st := Status{Name: "database", Healthy: true}
		if err := db.PingContext(ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
		}
		return st
	}
}
