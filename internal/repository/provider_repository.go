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

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// shortCodeBase offsets the serial row id to form the human-readable
// provider code (first provider gets 2001).
const shortCodeBase = 2000

const providerColumns = `id, actor_id, name, phone, category, division, lat, lon,
	COALESCE(short_code, 0), level, expires_at, coupon_code,
	times_shown, times_selected, ratings_received, avg_rating, created_at`

// ProviderRepository provides data access for providers using pgx.
type ProviderRepository struct {
	pool PoolInterface
}

// NewProviderRepository creates a new ProviderRepository with the given pool.
func NewProviderRepository(pool *pgxpool.Pool) *ProviderRepository {
	return &ProviderRepository{pool: pool}
}

// NewProviderRepositoryWithPool creates a ProviderRepository with a custom
// pool interface. This is primarily used for testing.
func NewProviderRepositoryWithPool(pool PoolInterface) *ProviderRepository {
	return &ProviderRepository{pool: pool}
}

// Upsert inserts or updates a provider keyed by actor id and returns the
// stable short code, assigning it on first insert. Partial records (missing
// phone, category or location) are accepted so an interrupted registration
// stays resumable.
func (r *ProviderRepository) Upsert(ctx context.Context, p *model.Provider) (int64, error) {
	var lat, lon *float64
	if p.Location != nil {
		lat, lon = &p.Location.Lat, &p.Location.Lon
	}

	var id, shortCode int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO providers (actor_id, name, phone, category, division, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (actor_id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			category = EXCLUDED.category,
			division = EXCLUDED.division,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon
		RETURNING id, COALESCE(short_code, 0)`,
		p.ActorID, p.Name, p.Phone, p.Category, p.Division, lat, lon,
	).Scan(&id, &shortCode)
	if err != nil {
		return 0, fmt.Errorf("upsert provider %d: %w", p.ActorID, err)
	}

	if shortCode == 0 {
		shortCode = shortCodeBase + id
		if _, err := r.pool.Exec(ctx,
			`UPDATE providers SET short_code = $1 WHERE id = $2`, shortCode, id); err != nil {
			return 0, fmt.Errorf("assign short code for provider %d: %w", p.ActorID, err)
		}
	}
	p.ID = id
	p.ShortCode = shortCode
	return shortCode, nil
}

// GetByActorID retrieves a provider by its transport identity.
// Returns nil, nil when absent (service layer decides what that means).
func (r *ProviderRepository) GetByActorID(ctx context.Context, actorID int64) (*model.Provider, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE actor_id = $1`, actorID)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider by actor %d: %w", actorID, err)
	}
	return p, nil
}

// GetByShortCode retrieves a provider by its human-readable code using the
// short_code index.
func (r *ProviderRepository) GetByShortCode(ctx context.Context, code int64) (*model.Provider, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE short_code = $1`, code)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProviderNotFound
		}
		return nil, fmt.Errorf("get provider by code %d: %w", code, err)
	}
	return p, nil
}

// FindByCategory returns all providers for a category (and, for the
// education category, a division) that have a recorded location. Distance
// filtering and ranking are the matching engine's concern.
func (r *ProviderRepository) FindByCategory(ctx context.Context, category, division string) ([]model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers
		WHERE category = $1 AND lat IS NOT NULL AND lon IS NOT NULL`
	args := []any{category}
	if division != "" {
		query += ` AND division = $2`
		args = append(args, division)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find providers for %s: %w", category, err)
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider rows: %w", err)
	}
	return out, nil
}

// MarkShown increments times_shown for every listed provider id, once each.
func (r *ProviderRepository) MarkShown(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE providers SET times_shown = times_shown + 1 WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark providers shown: %w", err)
	}
	return nil
}

// IncrementSelected bumps the times_selected counter within a transaction.
func (r *ProviderRepository) IncrementSelected(ctx context.Context, tx database.TxQuerier, id int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE providers SET times_selected = times_selected + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment selected for provider %d: %w", id, err)
	}
	return nil
}

// ApplyRating folds a score into the running average atomically and returns
// the new average and count.
func (r *ProviderRepository) ApplyRating(ctx context.Context, id int64, score int) (float64, int64, error) {
	var avg float64
	var count int64
	err := r.pool.QueryRow(ctx, `
		UPDATE providers SET
			avg_rating = (avg_rating * ratings_received + $2) / (ratings_received + 1),
			ratings_received = ratings_received + 1
		WHERE id = $1
		RETURNING avg_rating, ratings_received`, id, score,
	).Scan(&avg, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, service.ErrProviderNotFound
		}
		return 0, 0, fmt.Errorf("apply rating for provider %d: %w", id, err)
	}
	return avg, count, nil
}

// UpdateSubscription sets level, expiry and last coupon code for a provider
// within a redemption transaction. Returns service.ErrProviderNotFound when
// no row matches, so the caller can roll the coupon back to unused.
func (r *ProviderRepository) UpdateSubscription(ctx context.Context, tx database.TxQuerier, actorID int64, level model.Tier, expiresAt time.Time, couponCode string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE providers SET level = $2, expires_at = $3, coupon_code = $4
		WHERE actor_id = $1`,
		actorID, int(level), expiresAt, couponCode)
	if err != nil {
		return fmt.Errorf("update subscription for actor %d: %w", actorID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProviderNotFound
	}
	return nil
}

// ListAll returns every provider, oldest first. Used by the operator report.
func (r *ProviderRepository) ListAll(ctx context.Context) ([]model.Provider, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+providerColumns+` FROM providers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider rows: %w", err)
	}
	return out, nil
}

// CountActiveSubscribers counts providers whose subscription is unexpired
// at the given instant.
func (r *ProviderRepository) CountActiveSubscribers(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM providers WHERE level > 0 AND expires_at > $1`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active subscribers: %w", err)
	}
	return n, nil
}

func scanProvider(row pgx.Row) (*model.Provider, error) {
	var p model.Provider
	var lat, lon *float64
	var level int
	err := row.Scan(
		&p.ID, &p.ActorID, &p.Name, &p.Phone, &p.Category, &p.Division, &lat, &lon,
		&p.ShortCode, &level, &p.ExpiresAt, &p.CouponCode,
		&p.TimesShown, &p.TimesSelected, &p.RatingsReceived, &p.AvgRating, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		p.Location = &model.GeoPoint{Lat: *lat, Lon: *lon}
	}
	p.Level = model.Tier(level)
	return &p, nil
}
