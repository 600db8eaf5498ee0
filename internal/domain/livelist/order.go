package livelist

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the server-driven order lifecycle state. The client
// does not enforce the transition graph; it only uses Terminal to
// disable affordances that the server would reject anyway.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Order is the admin view of a customer order
type Order struct {
	ID            string          `json:"_id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	ItemCount     int             `json:"itemCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EntityID implements Entity
func (o Order) EntityID() string { return o.ID }
