package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeRemote is an in-memory Remote with per-call failure injection and an
// optional gate to hold a fetch open while the test mutates the cart.
type fakeRemote struct {
	mu sync.Mutex

	profile    *User
	profileErr error

	serverItems []CartItem
	fetchErr    error

	addErr      error
	decreaseErr error
	clearErr    error
	syncErr     error

	addCalls      []string
	decreaseCalls []string
	clearCalls    int
	syncCalls     [][]CartItem

	fetchStarted   chan struct{}
	fetchRelease   chan struct{}
	profileStarted chan struct{}
	profileRelease chan struct{}
	syncStarted    chan struct{}
	syncRelease    chan struct{}
}

func (f *fakeRemote) Profile(ctx context.Context, token, userID string) (*User, error) {
	f.mu.Lock()
	started, release := f.profileStarted, f.profileRelease
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	u := *f.profile
	return &u, nil
}

func (f *fakeRemote) FetchCart(ctx context.Context, token string) ([]CartItem, error) {
	f.mu.Lock()
	started, release := f.fetchStarted, f.fetchRelease
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]CartItem, len(f.serverItems))
	copy(out, f.serverItems)
	return out, nil
}

func (f *fakeRemote) AddItem(ctx context.Context, token string, item CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, item.ProductID)
	return f.addErr
}

func (f *fakeRemote) DecreaseItem(ctx context.Context, token, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decreaseCalls = append(f.decreaseCalls, productID)
	return f.decreaseErr
}

func (f *fakeRemote) ClearCart(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return f.clearErr
}

func (f *fakeRemote) SyncCart(ctx context.Context, token string, items []CartItem) error {
	f.mu.Lock()
	started, release := f.syncStarted, f.syncRelease
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]CartItem, len(items))
	copy(snapshot, items)
	f.syncCalls = append(f.syncCalls, snapshot)
	return f.syncErr
}

func (f *fakeRemote) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncCalls)
}

// mintToken builds a signed JWT carrying the user id the way the API does.
// The engine never verifies the signature, so any secret works here.
func mintToken(userID string) string {
	claims := jwt.MapClaims{
		"id":  userID,
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func testUser(id string) *User {
	return &User{ID: id, Name: "Ana", Email: "ana@example.com"}
}
