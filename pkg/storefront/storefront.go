// Package storefront implements the client-side session and cart engine for
// the El Parche Plotter shop: two state containers with durable local
// persistence, optimistic local mutation, and best-effort synchronization
// against the storefront API.
//
// The Cart is local-first. For a guest it is the only copy; for an
// authenticated user the server is authoritative and the local list is a
// cache that reconciles at every session boundary (init, login, logout).
package storefront

import "errors"

var (
	// ErrAuthFailed wraps every login failure. Callers get one generic
	// condition; distinguishing bad credentials from a dead network is the
	// backend's job.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrLoginInFlight rejects a login attempt while another one is pending.
	ErrLoginInFlight = errors.New("login already in progress")

	// ErrUnauthorized is returned by the remote client on any 401. It forces
	// full session invalidation wherever it surfaces.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOutOfStock rejects adding a product whose stock snapshot is zero.
	ErrOutOfStock = errors.New("product out of stock")

	// ErrInsufficientStock rejects an add that would raise a line's quantity
	// past the product's stock snapshot.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Engine owns the two state containers and wires them together as siblings:
// the Cart reads the Session only through a narrow accessor, the Session
// reaches the Cart only to reset or reconcile it.
type Engine struct {
	Session *Session
	Cart    *Cart
}

// New builds an engine over the given backend client and state store. The
// cart rehydrates immediately; the session stays Uninitialized until Init.
func New(remote Remote, store *Store) *Engine {
	cart := &Cart{remote: remote, store: store}
	session := &Session{remote: remote, store: store, cart: cart}
	cart.session = session
	cart.restore()

	return &Engine{Session: session, Cart: cart}
}
