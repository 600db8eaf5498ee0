package livelist

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the admin view of a customer's open cart. Carts are keyed by
// the owning user rather than a cart id; clearing a cart removes it
// from the list.
type Cart struct {
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// EntityID implements Entity
func (c Cart) EntityID() string { return c.UserID }

// CartSummary aggregates all open carts for the dashboard header
type CartSummary struct {
	TotalCarts int             `json:"totalCarts"`
	TotalItems int             `json:"totalItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
}
