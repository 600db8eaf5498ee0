package gateway

import "github.com/shopfront/adminsync/internal/domain/livelist"

// Coupons is the coupon resource gateway
type Coupons struct {
	resource[livelist.Coupon]
}

// NewCoupons creates the coupon gateway over the shared client
func NewCoupons(c *Client) *Coupons {
	return &Coupons{resource[livelist.Coupon]{
		client:     c,
		path:       "/coupons",
		collection: "coupons",
		singular:   "coupon",
	}}
}

var _ livelist.Gateway[livelist.Coupon] = (*Coupons)(nil)
