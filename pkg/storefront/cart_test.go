package storefront

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, remote Remote) *Engine {
	t.Helper()
	return New(remote, NewStore(t.TempDir()))
}

func TestAddToCartCapsAtStock(t *testing.T) {
	eng := newTestEngine(t, &fakeRemote{})
	p := Product{ID: "p1", Name: "Plotter A1", Price: 15000, Stock: 3}

	require.NoError(t, eng.Cart.AddToCart(p))
	require.NoError(t, eng.Cart.AddToCart(p))
	require.NoError(t, eng.Cart.AddToCart(p))

	err := eng.Cart.AddToCart(p)
	require.ErrorIs(t, err, ErrInsufficientStock)

	items := eng.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, eng.Cart.Count())
}

func TestAddToCartRejectsZeroStock(t *testing.T) {
	eng := newTestEngine(t, &fakeRemote{})

	err := eng.Cart.AddToCart(Product{ID: "p1", Name: "Agotado", Stock: 0})
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, eng.Cart.Items())
}

func TestAddToCartDefaultsImage(t *testing.T) {
	eng := newTestEngine(t, &fakeRemote{})

	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Sin foto", Stock: 1}))
	assert.Equal(t, NoImage, eng.Cart.Items()[0].ImgURL)
}

func TestAddToCartRefreshesStockSnapshot(t *testing.T) {
	eng := newTestEngine(t, &fakeRemote{})
	p := Product{ID: "p1", Name: "Plotter", Stock: 2}

	require.NoError(t, eng.Cart.AddToCart(p))
	p.Stock = 5
	require.NoError(t, eng.Cart.AddToCart(p))

	assert.Equal(t, 5, eng.Cart.Items()[0].Stock)
}

func TestDecreaseOrRemoveItem(t *testing.T) {
	eng := newTestEngine(t, &fakeRemote{})
	p := Product{ID: "p1", Name: "Plotter", Stock: 5}
	require.NoError(t, eng.Cart.AddToCart(p))
	require.NoError(t, eng.Cart.AddToCart(p))

	eng.Cart.DecreaseOrRemoveItem("p1")
	require.Len(t, eng.Cart.Items(), 1)
	assert.Equal(t, 1, eng.Cart.Items()[0].Quantity)

	eng.Cart.DecreaseOrRemoveItem("p1")
	assert.Empty(t, eng.Cart.Items())

	// Absent ids are a no-op.
	eng.Cart.DecreaseOrRemoveItem("missing")
	assert.Empty(t, eng.Cart.Items())
}

func TestTotalPriceWithStringPrices(t *testing.T) {
	var saved persistedCart
	raw := `{"items":[
		{"productId":"p1","name":"A","price":"15000","quantity":2},
		{"productId":"p2","name":"B","price":9500.5,"quantity":1}
	]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &saved))

	dir := t.TempDir()
	store := NewStore(dir)
	store.Save(cartNamespace, saved)

	eng := New(&fakeRemote{}, store)
	assert.InDelta(t, 39500.5, eng.Cart.TotalPrice(), 0.001)
}

func TestGuestCartSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	remote := &fakeRemote{}

	eng := New(remote, NewStore(dir))
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Price: 100, Stock: 4}))
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Price: 100, Stock: 4}))

	fresh := New(remote, NewStore(dir))
	items := fresh.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCorruptPersistedCartLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, cartNamespace+".json"), []byte("{not json"), 0o600))

	eng := New(&fakeRemote{}, NewStore(dir))
	assert.Empty(t, eng.Cart.Items())

	// The cart stays usable after discarding the corrupt document.
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Stock: 1}))
	assert.Len(t, eng.Cart.Items(), 1)
}

func TestAuthedMutationsPushToServer(t *testing.T) {
	remote := &fakeRemote{profile: testUser("u1")}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))

	p := Product{ID: "p1", Name: "Plotter", Stock: 3}
	require.NoError(t, eng.Cart.AddToCart(p))
	eng.Cart.DecreaseOrRemoveItem("p1")
	eng.Cart.Clear(false)
	eng.Cart.Flush()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, []string{"p1"}, remote.addCalls)
	assert.Equal(t, []string{"p1"}, remote.decreaseCalls)
	assert.Equal(t, 1, remote.clearCalls)
}

func TestGuestMutationsStayLocal(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(t, remote)

	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Stock: 3}))
	eng.Cart.DecreaseOrRemoveItem("p1")
	eng.Cart.Flush()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Empty(t, remote.addCalls)
	assert.Empty(t, remote.decreaseCalls)
}

func TestSyncFailureKeepsLocalMutation(t *testing.T) {
	remote := &fakeRemote{profile: testUser("u1"), addErr: context.DeadlineExceeded}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))

	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Stock: 3}))
	eng.Cart.Flush()

	assert.Len(t, eng.Cart.Items(), 1)
	assert.True(t, eng.Session.IsLoggedIn())
}

func TestUnauthorizedSyncForcesLogout(t *testing.T) {
	remote := &fakeRemote{profile: testUser("u1"), addErr: ErrUnauthorized}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))

	require.NoError(t, eng.Cart.AddToCart(Product{ID: "p1", Name: "Plotter", Stock: 3}))
	eng.Cart.Flush()

	assert.Equal(t, StateAnonymous, eng.Session.State())
	assert.Empty(t, eng.Cart.Items())
}

func TestFetchAndSetServerWins(t *testing.T) {
	remote := &fakeRemote{
		profile: testUser("u1"),
		serverItems: []CartItem{
			{ProductID: "srv", Name: "Server item", Price: 500, Quantity: 1, Stock: 9},
		},
	}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "local", Name: "Local item", Stock: 2}))

	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))

	items := eng.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "srv", items[0].ProductID)
	assert.Zero(t, remote.syncCount())
}

func TestFetchAndSetEmptyServerPushesGuestCart(t *testing.T) {
	remote := &fakeRemote{profile: testUser("u1")}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "local", Name: "Local item", Price: 200, Stock: 2}))

	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))

	items := eng.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "local", items[0].ProductID)

	require.Equal(t, 1, remote.syncCount())
	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, "local", remote.syncCalls[0][0].ProductID)
}

func TestFetchAndSetNoopWhenAnonymous(t *testing.T) {
	remote := &fakeRemote{serverItems: []CartItem{{ProductID: "srv", Quantity: 1}}}
	eng := newTestEngine(t, remote)

	require.NoError(t, eng.Cart.FetchAndSet(context.Background()))
	assert.Empty(t, eng.Cart.Items())
}

func TestStaleFetchDiscarded(t *testing.T) {
	remote := &fakeRemote{
		profile:      testUser("u1"),
		fetchStarted: make(chan struct{}, 2),
		fetchRelease: make(chan struct{}),
	}

	eng := newTestEngine(t, remote)

	// Let the login-time reconcile through without blocking the test.
	done := make(chan error, 1)
	go func() { done <- eng.Session.Login(context.Background(), mintToken("u1")) }()
	<-remote.fetchStarted
	remote.fetchRelease <- struct{}{}
	require.NoError(t, <-done)

	remote.mu.Lock()
	remote.serverItems = []CartItem{{ProductID: "stale", Name: "Old snapshot", Quantity: 1, Stock: 5}}
	remote.mu.Unlock()

	fetchDone := make(chan error, 1)
	go func() { fetchDone <- eng.Cart.FetchAndSet(context.Background()) }()
	<-remote.fetchStarted

	// A local mutation lands while the fetch is in flight.
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "fresh", Name: "New item", Stock: 3}))

	remote.fetchRelease <- struct{}{}
	require.NoError(t, <-fetchDone)

	items := eng.Cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ProductID)
}

func TestRacedPushResendsCurrentCart(t *testing.T) {
	remote := &fakeRemote{
		profile:     testUser("u1"),
		syncStarted: make(chan struct{}, 2),
		syncRelease: make(chan struct{}),
	}
	eng := newTestEngine(t, remote)
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "a", Name: "First", Stock: 3}))

	// Server cart is empty, so login reconciliation pushes the local cart.
	done := make(chan error, 1)
	go func() { done <- eng.Session.Login(context.Background(), mintToken("u1")) }()
	<-remote.syncStarted

	// A mutation lands while that push is in flight.
	require.NoError(t, eng.Cart.AddToCart(Product{ID: "b", Name: "Second", Stock: 3}))
	eng.Cart.Flush()

	// The stale push finishes, then the newer list is sent again.
	remote.syncRelease <- struct{}{}
	<-remote.syncStarted
	remote.syncRelease <- struct{}{}
	require.NoError(t, <-done)

	require.Equal(t, 2, remote.syncCount())
	remote.mu.Lock()
	defer remote.mu.Unlock()
	last := remote.syncCalls[1]
	require.Len(t, last, 2)
	assert.Equal(t, "a", last[0].ProductID)
	assert.Equal(t, "b", last[1].ProductID)
}

func TestClearOnLogoutLeavesServerAlone(t *testing.T) {
	remote := &fakeRemote{
		profile:     testUser("u1"),
		serverItems: []CartItem{{ProductID: "srv", Name: "Server item", Quantity: 1, Stock: 3}},
	}
	dir := t.TempDir()
	eng := New(remote, NewStore(dir))
	require.NoError(t, eng.Session.Login(context.Background(), mintToken("u1")))
	require.NotEmpty(t, eng.Cart.Items())

	eng.Cart.Clear(true)
	eng.Cart.Flush()

	assert.Empty(t, eng.Cart.Items())
	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Zero(t, remote.clearCalls)

	_, err := os.Stat(filepath.Join(dir, cartNamespace+".json"))
	assert.True(t, os.IsNotExist(err))
}
