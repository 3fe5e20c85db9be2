package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/service"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// CouponRepository provides data access for the coupon ledger using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a CouponRepository with a custom pool
// interface. This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Insert records a freshly generated code. A unique violation surfaces as
// service.ErrDuplicateCode so the generator can retry with another code.
func (r *CouponRepository) Insert(ctx context.Context, code string, amount int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (code, amount) VALUES ($1, $2)`, code, amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrDuplicateCode
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// FindByCode retrieves a coupon by exact code, matched case-insensitively.
// Returns nil, nil when absent so the service can try the next candidate
// spelling.
func (r *CouponRepository) FindByCode(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	var c model.Coupon
	err := tx.QueryRow(ctx, `
		SELECT id, code, amount, used, used_by, used_at, created_at
		FROM coupons WHERE UPPER(code) = UPPER($1)`, code,
	).Scan(&c.ID, &c.Code, &c.Amount, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon %q: %w", code, err)
	}
	return &c, nil
}

// MarkUsed flips used=false->true with a conditional update, binding the
// redeemer and timestamp. Returns false when the code was already consumed:
// under concurrent redemption exactly one caller sees true.
func (r *CouponRepository) MarkUsed(ctx context.Context, tx database.TxQuerier, id, redeemerID int64, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE coupons SET used = TRUE, used_by = $2, used_at = $3
		WHERE id = $1 AND used = FALSE`,
		id, redeemerID, at)
	if err != nil {
		return false, fmt.Errorf("mark coupon %d used: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
