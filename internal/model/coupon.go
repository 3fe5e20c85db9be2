package model

import "time"

// Coupon is a single-use redemption code. The used flag flips exactly once;
// the repository enforces this with a conditional update.
type Coupon struct {
	ID     int64  `json:"-"`
	Code   string `json:"code"`
	Amount int    `json:"amount"`
	Used   bool   `json:"used"`

	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"-"`
}

// Activation is the outcome of a successful redemption.
type Activation struct {
	Level     Tier      `json:"level"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code"` // canonical code as stored, not as typed
}
