package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

// Carts is the cart resource gateway. Carts are a read-and-clear
// surface: the admin never creates or edits one, so those operations
// report ErrUnsupportedOperation. Remove clears the cart for a user.
type Carts struct {
	resource[livelist.Cart]
}

// NewCarts creates the cart gateway over the shared client
func NewCarts(c *Client) *Carts {
	return &Carts{resource[livelist.Cart]{
		client:     c,
		path:       "/carts",
		collection: "carts",
		singular:   "cart",
	}}
}

// Create is not offered for carts
func (c *Carts) Create(_ context.Context, _ any) (livelist.Cart, error) {
	return livelist.Cart{}, livelist.ErrUnsupportedOperation
}

// Update is not offered for carts
func (c *Carts) Update(_ context.Context, _ string, _ any) (livelist.Cart, error) {
	return livelist.Cart{}, livelist.ErrUnsupportedOperation
}

// Summary fetches the aggregate view of all open carts
func (c *Carts) Summary(ctx context.Context) (livelist.CartSummary, error) {
	var zero livelist.CartSummary

	body, status, err := c.client.do(ctx, http.MethodGet, c.path+"/summary", nil, nil)
	if err != nil {
		return zero, err
	}
	if status >= 400 {
		return zero, parseFailure(status, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		var s livelist.CartSummary
		if err := json.Unmarshal(env.Data, &s); err == nil {
			return s, nil
		}
	}
	var s livelist.CartSummary
	if err := json.Unmarshal(body, &s); err == nil {
		return s, nil
	}
	return zero, livelist.ErrMalformedResponse
}

var _ livelist.Gateway[livelist.Cart] = (*Carts)(nil)
