package models

import (
	"fmt"
	"strings"
	"time"
)

// DiscountType enumerates coupon value semantics.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountAmount     DiscountType = "AMOUNT"
)

// ParseDiscountType converts a stored string into the closed enum.
func ParseDiscountType(raw string) (DiscountType, error) {
	switch DiscountType(strings.ToUpper(strings.TrimSpace(raw))) {
	case DiscountPercentage:
		return DiscountPercentage, nil
	case DiscountAmount:
		return DiscountAmount, nil
	}
	return "", fmt.Errorf("unknown discount type %q", raw)
}

// Coupon is a school-scoped discount code.
type Coupon struct {
	ID           string       `json:"id"`
	SchoolID     string       `json:"school_id"`
	Code         string       `json:"code"`
	DiscountType DiscountType `json:"discount_type"`
	Value        float64      `json:"value"`
	UsageLimit   int          `json:"usage_limit"`
	UsageCount   int          `json:"usage_count"`
	ExpiresAt    *time.Time   `json:"expires_at"`
	Active       bool         `json:"active"`
	CreatedDate  time.Time    `json:"created_date"`
	UpdatedDate  time.Time    `json:"updated_date"`
}

// Normalize canonicalises the stored discount type against the closed enum.
func (c *Coupon) Normalize() error {
	dt, err := ParseDiscountType(string(c.DiscountType))
	if err != nil {
		return err
	}
	c.DiscountType = dt
	return nil
}

// Usable reports whether the coupon still yields a discount: active, not
// expired, and under its usage limit.
func (c Coupon) Usable(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return false
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return false
	}
	return true
}

// CouponRedemption is the idempotency record keyed by (school,
// transaction_id); existence implies "already redeemed".
type CouponRedemption struct {
	ID            string    `json:"id"`
	SchoolID      string    `json:"school_id"`
	CouponID      string    `json:"coupon_id"`
	TransactionID string    `json:"transaction_id"`
	UserEmail     string    `json:"user_email"`
	CreatedDate   time.Time `json:"created_date"`
}

// TransactionStatus tracks the checkout lifecycle.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction records a checkout attempt. Paid transactions trigger
// entitlement issuance.
type Transaction struct {
	ID            string            `json:"id"`
	SchoolID      string            `json:"school_id"`
	OfferID       string            `json:"offer_id"`
	UserEmail     string            `json:"user_email"`
	AmountCents   int64             `json:"amount_cents"`
	DiscountCents int64             `json:"discount_cents"`
	CouponCode    string            `json:"coupon_code,omitempty"`
	Status        TransactionStatus `json:"status"`
	CreatedDate   time.Time         `json:"created_date"`
	UpdatedDate   time.Time         `json:"updated_date"`
}
