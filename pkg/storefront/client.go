package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Remote is the backend surface the engine consumes. Implementations must
// return ErrUnauthorized (possibly wrapped) on any 401 so the session can
// invalidate itself.
type Remote interface {
	Profile(ctx context.Context, token, userID string) (*User, error)
	FetchCart(ctx context.Context, token string) ([]CartItem, error)
	AddItem(ctx context.Context, token string, item CartItem) error
	DecreaseItem(ctx context.Context, token, productID string) error
	ClearCart(ctx context.Context, token string) error
	SyncCart(ctx context.Context, token string, items []CartItem) error
}

// Client talks to the storefront REST API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Profile(ctx context.Context, token, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) FetchCart(ctx context.Context, token string) ([]CartItem, error) {
	var payload struct {
		Items []CartItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) AddItem(ctx context.Context, token string, item CartItem) error {
	body := map[string]interface{}{
		"productId": item.ProductID,
		"quantity":  item.Quantity,
		"name":      item.Name,
		"price":     item.Price,
		"imgUrl":    item.ImgURL,
	}
	return c.do(ctx, http.MethodPost, "/cart/add", token, body, nil)
}

func (c *Client) DecreaseItem(ctx context.Context, token, productID string) error {
	body := map[string]interface{}{"productId": productID}
	return c.do(ctx, http.MethodPost, "/cart/decrease", token, body, nil)
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", token, nil, nil)
}

func (c *Client) SyncCart(ctx context.Context, token string, items []CartItem) error {
	body := map[string]interface{}{"items": items}
	return c.do(ctx, http.MethodPost, "/cart/sync", token, body, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil && env.Message != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, env.Message, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%s %s: response has no data", method, path)
	}
	return json.Unmarshal(env.Data, out)
}
