package storefront

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// NoImage is the placeholder stored when a product carries no image URL.
const NoImage = "No image"

// sessionHook is the slice of the Session the Cart is allowed to touch.
type sessionHook interface {
	Token() (string, bool)
	invalidate()
}

type persistedCart struct {
	Items []CartItem `json:"items"`
}

// Cart is the local-first cart. Every mutation applies to the in-memory
// list and the persisted document first; when a user is authenticated the
// same mutation is pushed to the server asynchronously, best-effort. The
// version counter lets a fetch that raced a local mutation be discarded.
type Cart struct {
	mu      sync.Mutex
	remote  Remote
	store   *Store
	session sessionHook

	items   []CartItem
	version uint64
	pending sync.WaitGroup
}

// restore rehydrates the persisted cart. A missing or corrupt document
// yields an empty cart.
func (c *Cart) restore() {
	var saved persistedCart
	if c.store.Load(cartNamespace, &saved) {
		c.items = saved.Items
	}
}

// Items returns a copy of the current cart lines.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the total number of units across all lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice sums price times quantity over all lines.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, it := range c.items {
		total += float64(it.Price) * float64(it.Quantity)
	}
	return total
}

// AddToCart adds one unit of the product, capped by its stock snapshot: a
// product with zero stock is rejected outright, and a line already at stock
// cannot grow. The stock snapshot on an existing line is refreshed from the
// product on every successful add.
func (c *Cart) AddToCart(p Product) error {
	token, authed := c.session.Token()

	c.mu.Lock()
	idx := c.index(p.ID)
	if idx >= 0 {
		if c.items[idx].Quantity >= p.Stock {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
		c.items[idx].Quantity++
		c.items[idx].Stock = p.Stock
	} else {
		if p.Stock <= 0 {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrOutOfStock, p.Name)
		}
		img := p.ImgURL
		if img == "" {
			img = NoImage
		}
		c.items = append(c.items, CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
			ImgURL:    img,
			Stock:     p.Stock,
		})
	}
	c.version++
	c.persistLocked()
	c.mu.Unlock()

	if authed {
		img := p.ImgURL
		if img == "" {
			img = NoImage
		}
		one := CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1, ImgURL: img}
		c.push(func(ctx context.Context) error {
			return c.remote.AddItem(ctx, token, one)
		})
	}
	return nil
}

// DecreaseOrRemoveItem lowers a line's quantity by one, removing the line
// when it reaches zero. An absent product id is a no-op.
func (c *Cart) DecreaseOrRemoveItem(productID string) {
	token, authed := c.session.Token()

	c.mu.Lock()
	idx := c.index(productID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	if c.items[idx].Quantity > 1 {
		c.items[idx].Quantity--
	} else {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
	c.version++
	c.persistLocked()
	c.mu.Unlock()

	if authed {
		c.push(func(ctx context.Context) error {
			return c.remote.DecreaseItem(ctx, token, productID)
		})
	}
}

// Clear empties the cart. With isLogout the persisted document is removed
// and the server cart is left alone, so the user's items are waiting on
// their next login. Without it (checkout) the server cart is cleared too.
func (c *Cart) Clear(isLogout bool) {
	if isLogout {
		c.resetLocal()
		return
	}

	token, authed := c.session.Token()

	c.mu.Lock()
	c.items = nil
	c.version++
	c.persistLocked()
	c.mu.Unlock()

	if authed {
		c.push(func(ctx context.Context) error {
			return c.remote.ClearCart(ctx, token)
		})
	}
}

// resetLocal wipes the in-memory list and the persisted document without
// touching the server. The session calls this on logout.
func (c *Cart) resetLocal() {
	c.mu.Lock()
	c.items = nil
	c.version++
	c.store.Clear(cartNamespace)
	c.mu.Unlock()
}

// FetchAndSet pulls the authoritative server cart and replaces the local
// one. A non-empty server cart always wins. When the server cart is empty
// but local guest items exist, the local cart is pushed up instead, so work
// done before logging in survives. A fetch that raced a local mutation is
// discarded: the local list is newer than the snapshot the server returned.
func (c *Cart) FetchAndSet(ctx context.Context) error {
	token, authed := c.session.Token()
	if !authed {
		return nil
	}

	c.mu.Lock()
	start := c.version
	c.mu.Unlock()

	serverItems, err := c.remote.FetchCart(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.session.invalidate()
		}
		return err
	}

	c.mu.Lock()
	if c.version != start {
		c.mu.Unlock()
		return nil
	}
	if len(serverItems) > 0 {
		c.items = serverItems
		c.persistLocked()
		c.mu.Unlock()
		return nil
	}
	if len(c.items) == 0 {
		c.mu.Unlock()
		return nil
	}

	// The push releases the mutex for the network call, so a mutation can
	// land mid-flight. Re-check the version afterwards and resend until the
	// server holds the current list; otherwise the stale snapshot would
	// overwrite the raced mutation's own push.
	for {
		local := make([]CartItem, len(c.items))
		copy(local, c.items)
		c.mu.Unlock()

		if err := c.remote.SyncCart(ctx, token, local); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.session.invalidate()
				return err
			}
			return fmt.Errorf("push local cart: %w", err)
		}

		c.mu.Lock()
		if c.version == start {
			c.mu.Unlock()
			return nil
		}
		start = c.version
	}
}

// reconcile runs FetchAndSet and only logs failures. The session calls it
// after login; a dead network must not undo a successful authentication.
func (c *Cart) reconcile(ctx context.Context) {
	if err := c.FetchAndSet(ctx); err != nil {
		log.Printf("[Cart] reconcile failed: %v", err)
	}
}

// Flush blocks until every pending server push has finished.
func (c *Cart) Flush() {
	c.pending.Wait()
}

// push runs one server mutation in the background. Failures are logged, a
// 401 invalidates the session; the local cart keeps the mutation either way.
func (c *Cart) push(op func(ctx context.Context) error) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := op(context.Background()); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.session.invalidate()
				return
			}
			log.Printf("[Cart] server sync failed: %v", err)
		}
	}()
}

func (c *Cart) persistLocked() {
	c.store.Save(cartNamespace, persistedCart{Items: c.items})
}

func (c *Cart) index(productID string) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
