package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// State is the session lifecycle. The zero value is Uninitialized.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// persistedSession is the only session state that survives a restart. The
// profile is never persisted; it is re-fetched on Init so a stale or revoked
// account cannot resurrect itself from disk.
type persistedSession struct {
	Token string `json:"token"`
}

// cartHook is the slice of the Cart the Session is allowed to touch.
type cartHook interface {
	resetLocal()
	reconcile(ctx context.Context)
}

// Session holds authentication state. Lock order across the package is
// session before cart: the cart reads the token through Token() before
// taking its own mutex, and never calls back into the session while locked.
type Session struct {
	mu     sync.Mutex
	remote Remote
	store  *Store
	cart   cartHook

	state State
	token string
	user  *User
}

// Init restores a persisted session, once. With no stored token the session
// lands in Anonymous immediately; with one, it runs the full login path so a
// revoked or expired token degrades to a clean logout instead of a
// half-authenticated state. Calls after the first are no-ops.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return nil
	}
	var saved persistedSession
	s.store.Load(sessionNamespace, &saved)
	if saved.Token == "" {
		s.state = StateAnonymous
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	return s.login(ctx, saved.Token)
}

// Login exchanges an externally obtained bearer token for a full session:
// it decodes the user id from the token, fetches the profile, commits the
// authenticated state, and reconciles the cart. Any failure along the way
// performs a full logout so the session is never left partially built.
func (s *Session) Login(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrLoginInFlight
	}
	s.state = StateLoading
	s.mu.Unlock()

	return s.login(ctx, token)
}

func (s *Session) login(ctx context.Context, token string) error {
	userID, err := subjectFromToken(token)
	if err != nil {
		s.Logout()
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	user, err := s.remote.Profile(ctx, token, userID)
	if err != nil {
		s.Logout()
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.state = StateAuthenticated
	s.store.Save(sessionNamespace, persistedSession{Token: token})
	s.mu.Unlock()

	// The server cart is authoritative once logged in; failures here are
	// logged by the cart and do not undo the login.
	s.cart.reconcile(ctx)
	return nil
}

// Logout drops all authentication state, the persisted token, and the local
// cart. It is safe to call from any state.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.state = StateAnonymous
	s.store.Clear(sessionNamespace)
	s.mu.Unlock()

	if s.cart != nil {
		s.cart.resetLocal()
	}
}

// invalidate is the reaction to a 401 surfacing anywhere.
func (s *Session) invalidate() {
	s.Logout()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLoggedIn reports whether a user is authenticated.
func (s *Session) IsLoggedIn() bool {
	return s.State() == StateAuthenticated
}

// Token returns the bearer token and whether one is present.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.state == StateAuthenticated
}

// User returns a copy of the authenticated profile.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	Name                 *string
	Phone                *string
	Address              *string
	City                 *string
	IdentificationType   *string
	IdentificationNumber *string
	ImageProfile         *string
}

// UpdateProfile applies a patch to the in-memory profile, typically after
// the server confirmed the same update. No-op when unauthenticated.
func (s *Session) UpdateProfile(patch ProfilePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	if patch.Name != nil {
		s.user.Name = *patch.Name
	}
	if patch.Phone != nil {
		s.user.Phone = *patch.Phone
	}
	if patch.Address != nil {
		s.user.Address = *patch.Address
	}
	if patch.City != nil {
		s.user.City = *patch.City
	}
	if patch.IdentificationType != nil {
		s.user.IdentificationType = *patch.IdentificationType
	}
	if patch.IdentificationNumber != nil {
		s.user.IdentificationNumber = *patch.IdentificationNumber
	}
	if patch.ImageProfile != nil {
		s.user.ImageProfile = *patch.ImageProfile
	}
}

// subjectFromToken reads the user id out of a JWT without verifying the
// signature. Verification is the server's job; the client only needs the id
// to address the profile endpoint, and a forged token dies there with a 401.
func subjectFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token carries no user id")
	}
	return sub, nil
}
