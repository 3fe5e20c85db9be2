package model

// Tier is a provider's subscription level. Ordering matters: higher tiers
// rank before lower ones in match results.
type Tier int

const (
	TierNone Tier = iota
	TierSilver
	TierGold
)

// Coupon face amounts, in account units, for each purchasable tier.
const (
	AmountSilver = 60
	AmountGold   = 100
)

// Subscription validity in days per tier.
const (
	ValidityDaysSilver = 30
	ValidityDaysGold   = 32
)

// TierForAmount maps a coupon face amount to its tier.
// Returns TierNone, false for amounts outside the fixed table.
func TierForAmount(amount int) (Tier, bool) {
	switch amount {
	case AmountGold:
		return TierGold, true
	case AmountSilver:
		return TierSilver, true
	}
	return TierNone, false
}

// ValidityDays returns the subscription duration granted by a tier.
func (t Tier) ValidityDays() int {
	if t == TierGold {
		return ValidityDaysGold
	}
	return ValidityDaysSilver
}

func (t Tier) String() string {
	switch t {
	case TierGold:
		return "gold"
	case TierSilver:
		return "silver"
	}
	return "none"
}

// ParseTier parses the wire form used in button payloads ("gold", "silver").
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "gold":
		return TierGold, true
	case "silver":
		return TierSilver, true
	case "none":
		return TierNone, true
	}
	return TierNone, false
}
