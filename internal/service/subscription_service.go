package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// CouponLedger is the coupon data access needed for redemption.
type CouponLedger interface {
	FindByCode(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	MarkUsed(ctx context.Context, tx database.TxQuerier, id, redeemerID int64, at time.Time) (bool, error)
}

// SubscriberStore is the provider data access needed for redemption.
type SubscriberStore interface {
	UpdateSubscription(ctx context.Context, tx database.TxQuerier, actorID int64, level model.Tier, expiresAt time.Time, couponCode string) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SubscriptionService validates coupon codes against a requested tier and
// activates subscriptions. The coupon flip and the provider update commit as
// one transaction: a failed provider update rolls the code back to unused.
type SubscriptionService struct {
	pool      TxBeginner
	coupons   CouponLedger
	providers SubscriberStore
	prefix    string // code prefix convention, e.g. "VIP-"
	now       func() time.Time
}

// NewSubscriptionService creates a SubscriptionService with the given pool
// and repositories.
func NewSubscriptionService(pool *pgxpool.Pool, coupons CouponLedger, providers SubscriberStore, prefix string) *SubscriptionService {
	return &SubscriptionService{
		pool:      pool,
		coupons:   coupons,
		providers: providers,
		prefix:    prefix,
		now:       time.Now,
	}
}

// NewSubscriptionServiceWithClock creates a SubscriptionService with a
// custom transaction beginner and clock. Primarily used for testing.
func NewSubscriptionServiceWithClock(pool TxBeginner, coupons CouponLedger, providers SubscriberStore, prefix string, now func() time.Time) *SubscriptionService {
	return &SubscriptionService{
		pool:      pool,
		coupons:   coupons,
		providers: providers,
		prefix:    prefix,
		now:       now,
	}
}

var codeCleaner = regexp.MustCompile(`[^A-Z0-9\-]`)

// codeCandidates expands human variation of a typed code: upper-cased raw
// form, hyphens stripped, leading zeros stripped, each with and without the
// prefix convention. A base starting with the bare prefix letters gets the
// hyphen re-inserted, so VIPABCD1234 also tries VIP-ABCD1234. Order matters;
// the first database hit wins.
func (s *SubscriptionService) codeCandidates(input string) []string {
	raw := codeCleaner.ReplaceAllString(strings.ToUpper(strings.TrimSpace(input)), "")
	noHyphens := strings.ReplaceAll(raw, "-", "")
	noZeros := strings.TrimLeft(raw, "0")

	var out []string
	seen := map[string]bool{}
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	bare := strings.TrimSuffix(s.prefix, "-")
	for _, base := range []string{raw, noHyphens, noZeros} {
		add(base)
		switch {
		case s.prefix == "" || strings.HasPrefix(base, s.prefix):
		case bare != s.prefix && strings.HasPrefix(base, bare):
			add(s.prefix + strings.TrimPrefix(base, bare))
		default:
			add(s.prefix + base)
		}
	}
	return out
}

// Redeem validates a code against the desired tier and atomically consumes
// it, activating the subscription on the redeemer's provider record.
// desired == model.TierNone means "infer the tier from the face amount"
// (the bare redeem flow).
//
// Terminal rejections: ErrCouponNotFound, ErrCouponUsed, ErrTierMismatch,
// ErrProviderNotFound. None of them leaves the code consumed.
func (s *SubscriptionService) Redeem(ctx context.Context, code string, redeemerID int64, desired model.Tier) (model.Activation, error) {
	candidates := s.codeCandidates(code)
	if len(candidates) == 0 {
		return model.Activation{}, ErrCouponNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Activation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	var coupon *model.Coupon
	for _, c := range candidates {
		coupon, err = s.coupons.FindByCode(ctx, tx, c)
		if err != nil {
			return model.Activation{}, fmt.Errorf("find coupon: %w", err)
		}
		if coupon != nil {
			break
		}
	}
	if coupon == nil {
		return model.Activation{}, ErrCouponNotFound
	}
	if coupon.Used {
		return model.Activation{}, ErrCouponUsed
	}

	level, ok := model.TierForAmount(coupon.Amount)
	if !ok {
		// amount outside the tier table: treat like a tier mismatch
		return model.Activation{}, ErrTierMismatch
	}
	if desired != model.TierNone && desired != level {
		return model.Activation{}, ErrTierMismatch
	}

	now := s.now()
	expiresAt := now.Add(time.Duration(level.ValidityDays()) * 24 * time.Hour)

	// Conditional update decides the winner under concurrent redemption.
	won, err := s.coupons.MarkUsed(ctx, tx, coupon.ID, redeemerID, now)
	if err != nil {
		return model.Activation{}, fmt.Errorf("mark coupon used: %w", err)
	}
	if !won {
		return model.Activation{}, ErrCouponUsed
	}

	if err := s.providers.UpdateSubscription(ctx, tx, redeemerID, level, expiresAt, coupon.Code); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return model.Activation{}, ErrProviderNotFound
		}
		return model.Activation{}, fmt.Errorf("update subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Activation{}, fmt.Errorf("commit redemption: %w", err)
	}
	return model.Activation{Level: level, ExpiresAt: expiresAt, Code: coupon.Code}, nil
}
