package livelist

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType identifies how a coupon's value is applied
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is the admin view of a discount coupon
type Coupon struct {
	ID            string          `json:"_id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinPurchase   decimal.Decimal `json:"minPurchase"`
	UsageLimit    int             `json:"usageLimit"`
	UsedCount     int             `json:"usedCount"`
	IsActive      bool            `json:"isActive"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EntityID implements Entity
func (c Coupon) EntityID() string { return c.ID }

// CouponPayload is the create/update request body for coupons.
// Validation tags are enforced client-side before the request is sent;
// the server remains the source of truth and may still reject.
type CouponPayload struct {
	Code          string          `json:"code" validate:"required,min=3,max=32"`
	DiscountType  DiscountType    `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discountValue" validate:"required"`
	MinPurchase   decimal.Decimal `json:"minPurchase"`
	UsageLimit    int             `json:"usageLimit" validate:"min=0"`
	IsActive      bool            `json:"isActive"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
}
