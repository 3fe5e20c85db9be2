package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCouponIssuer is a mock implementation of CouponIssuer.
type mockCouponIssuer struct {
	insertFn func(ctx context.Context, code string, amount int) error
}

func (m *mockCouponIssuer) Insert(ctx context.Context, code string, amount int) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, code, amount)
	}
	return nil
}

func TestCouponService_Generate_Success(t *testing.T) {
	var inserted []string
	issuer := &mockCouponIssuer{
		insertFn: func(ctx context.Context, code string, amount int) error {
			assert.Equal(t, 100, amount)
			inserted = append(inserted, code)
			return nil
		},
	}
	svc := NewCouponService(issuer, "VIP-")

	codes, err := svc.Generate(context.Background(), 100, 5)

	require.NoError(t, err)
	require.Len(t, codes, 5)
	assert.Equal(t, inserted, codes)
	seen := map[string]bool{}
	for _, code := range codes {
		assert.True(t, strings.HasPrefix(code, "VIP-"), "code %q lacks the prefix", code)
		assert.Len(t, code, len("VIP-")+8)
		assert.False(t, seen[code], "duplicate code %q in one batch", code)
		seen[code] = true
	}
}

func TestCouponService_Generate_RejectsUnknownAmount(t *testing.T) {
	svc := NewCouponService(&mockCouponIssuer{}, "VIP-")

	for _, amount := range []int{0, -5, 50, 99, 101} {
		_, err := svc.Generate(context.Background(), amount, 1)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
	}
}

func TestCouponService_Generate_RetriesOnCollision(t *testing.T) {
	calls := 0
	issuer := &mockCouponIssuer{
		insertFn: func(ctx context.Context, code string, amount int) error {
			calls++
			if calls == 1 {
				return ErrDuplicateCode
			}
			return nil
		},
	}
	svc := NewCouponService(issuer, "VIP-")

	codes, err := svc.Generate(context.Background(), 60, 1)

	require.NoError(t, err)
	assert.Len(t, codes, 1)
	assert.Equal(t, 2, calls)
}

func TestCouponService_Generate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	issuer := &mockCouponIssuer{
		insertFn: func(ctx context.Context, code string, amount int) error {
			return ErrDuplicateCode
		},
	}
	svc := NewCouponService(issuer, "VIP-")

	codes, err := svc.Generate(context.Background(), 60, 1)

	require.Error(t, err)
	assert.Empty(t, codes)
}

func TestCouponService_Generate_StopsOnPersistenceError(t *testing.T) {
	dbErr := errors.New("connection reset")
	issuer := &mockCouponIssuer{
		insertFn: func(ctx context.Context, code string, amount int) error {
			return dbErr
		},
	}
	svc := NewCouponService(issuer, "VIP-")

	_, err := svc.Generate(context.Background(), 100, 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrInvalidAmount)
}
