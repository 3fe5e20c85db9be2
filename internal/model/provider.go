package model

import "time"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Provider is a registered service provider. ActorID is the stable identity
// coming from the chat transport; ShortCode is the human-readable identifier
// shown to the provider for self-service lookups (never to requesters).
type Provider struct {
	ID        int64     `json:"-"`
	ActorID   int64     `json:"actor_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Category  string    `json:"category"`
	Division  string    `json:"division,omitempty"` // education division, empty otherwise
	Location  *GeoPoint `json:"location,omitempty"` // nil until registration completes
	ShortCode int64     `json:"short_code"`

	Level      Tier       `json:"level"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CouponCode string     `json:"coupon_code,omitempty"` // last redeemed code

	TimesShown      int64   `json:"times_shown"`
	TimesSelected   int64   `json:"times_selected"`
	RatingsReceived int64   `json:"ratings_received"`
	AvgRating       float64 `json:"avg_rating"`

	CreatedAt time.Time `json:"-"`
}

// EffectiveLevel is the level used for ranking: an expired subscription
// counts as TierNone.
func (p *Provider) EffectiveLevel(now time.Time) Tier {
	if p.Level == TierNone || p.ExpiresAt == nil || !p.ExpiresAt.After(now) {
		return TierNone
	}
	return p.Level
}

// ProviderMatch is one ranked entry returned by the matching engine.
type ProviderMatch struct {
	Provider   Provider `json:"provider"`
	DistanceKm float64  `json:"distance_km"`
	Level      Tier     `json:"level"` // effective level at match time
}

// MatchResult is a bounded, ordered match list. Total counts all candidates
// within range so callers can report how many were cut by the result bound.
type MatchResult struct {
	Matches   []ProviderMatch `json:"matches"`
	Total     int             `json:"total"`
	Truncated bool            `json:"truncated"`
}
