package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/khidmaty/khidmaty/internal/model"
)

// CouponIssuer is the coupon data access needed for batch generation.
type CouponIssuer interface {
	Insert(ctx context.Context, code string, amount int) error
}

// CouponService generates redeemable codes for the operator tooling.
type CouponService struct {
	coupons CouponIssuer
	prefix  string
}

// NewCouponService creates a CouponService using the given prefix
// convention for issued codes.
func NewCouponService(coupons CouponIssuer, prefix string) *CouponService {
	return &CouponService{coupons: coupons, prefix: prefix}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 8

// Generate issues count coupons of the given face amount and returns the
// created codes. Collisions with existing codes are skipped and retried
// with a fresh code, up to a bounded number of attempts per coupon.
func (s *CouponService) Generate(ctx context.Context, amount, count int) ([]string, error) {
	if _, ok := model.TierForAmount(amount); !ok {
		return nil, ErrInvalidAmount
	}

	created := make([]string, 0, count)
	for len(created) < count {
		var code string
		var err error
		for attempt := 0; attempt < 5; attempt++ {
			code, err = s.randomCode()
			if err != nil {
				return created, err
			}
			err = s.coupons.Insert(ctx, code, amount)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrDuplicateCode) {
				return created, fmt.Errorf("insert coupon: %w", err)
			}
		}
		if err != nil {
			return created, fmt.Errorf("generate coupon: %w", err)
		}
		created = append(created, code)
	}
	return created, nil
}

func (s *CouponService) randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return s.prefix + string(buf), nil
}
