package service

import "errors"

// Sentinel errors shared across services. Callers branch with errors.Is to
// map each one to the right re-prompt; anything not listed here is treated
// as a persistence or internal failure.
var (
	// ErrCouponNotFound is returned when no coupon matches any accepted
	// spelling of the entered code.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponUsed is returned when the code was already redeemed.
	ErrCouponUsed = errors.New("coupon already used")

	// ErrTierMismatch is returned when a coupon's face amount does not
	// correspond to the requested subscription tier.
	ErrTierMismatch = errors.New("coupon amount does not match requested tier")

	// ErrProviderNotFound is returned for an unknown provider short code or
	// a redemption targeting an unregistered actor.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrRequestNotFound is returned for an unknown service request.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrInvalidRating is returned for a rating score outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidAmount is returned when generating coupons with a face
	// amount outside the fixed tier table.
	ErrInvalidAmount = errors.New("coupon amount must be 60 or 100")

	// ErrNotAuthorized is returned when a restricted operation is invoked
	// by anything but the configured operator identity.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrDuplicateCode signals a generated coupon code collided with an
	// existing one; the generator retries with a fresh code.
	ErrDuplicateCode = errors.New("coupon code already exists")
)
