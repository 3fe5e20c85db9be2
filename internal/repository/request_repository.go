package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/service"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// RequestRepository provides data access for service requests and the
// process-wide usage counters.
type RequestRepository struct {
	pool PoolInterface
}

// NewRequestRepository creates a new RequestRepository with the given pool.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// NewRequestRepositoryWithPool creates a RequestRepository with a custom
// pool interface. This is primarily used for testing.
func NewRequestRepositoryWithPool(pool PoolInterface) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Insert stores a new request within a transaction, assigning the public
// reference, and sets req.ID and req.Reference on success.
func (r *RequestRepository) Insert(ctx context.Context, tx database.TxQuerier, req *model.ServiceRequest) error {
	req.Reference = uuid.New()
	err := tx.QueryRow(ctx, `
		INSERT INTO requests (reference, actor_id, category, division, phone, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		req.Reference, req.ActorID, req.Category, req.Division, req.Phone,
		req.Location.Lat, req.Location.Lon,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request for actor %d: %w", req.ActorID, err)
	}
	return nil
}

// CountByRequester counts prior requests from an actor, used to detect a
// first-ever request before bumping the distinct-requester counter.
func (r *RequestRepository) CountByRequester(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE actor_id = $1`, actorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count requests for actor %d: %w", actorID, err)
	}
	return n, nil
}

// BumpUsage increments the usage counter row: total_requests always,
// total_requesters only for a first-ever request.
func (r *RequestRepository) BumpUsage(ctx context.Context, tx database.TxQuerier, firstRequest bool) error {
	query := `UPDATE usage_stats SET total_requests = total_requests + 1 WHERE id = 1`
	if firstRequest {
		query = `UPDATE usage_stats SET total_requests = total_requests + 1,
			total_requesters = total_requesters + 1 WHERE id = 1`
	}
	if _, err := tx.Exec(ctx, query); err != nil {
		return fmt.Errorf("bump usage stats: %w", err)
	}
	return nil
}

// Usage reads the counter row.
func (r *RequestRepository) Usage(ctx context.Context) (model.UsageStats, error) {
	var s model.UsageStats
	err := r.pool.QueryRow(ctx,
		`SELECT total_requesters, total_requests FROM usage_stats WHERE id = 1`,
	).Scan(&s.TotalRequesters, &s.TotalRequests)
	if err != nil {
		return model.UsageStats{}, fmt.Errorf("read usage stats: %w", err)
	}
	return s, nil
}

// Assign sets the provider on an unassigned request. Returns true when this
// call won the assignment; false when the request was already assigned.
func (r *RequestRepository) Assign(ctx context.Context, tx database.TxQuerier, requestID, providerID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE requests SET assigned_provider_id = $2
		WHERE id = $1 AND assigned_provider_id IS NULL`,
		requestID, providerID)
	if err != nil {
		return false, fmt.Errorf("assign request %d: %w", requestID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a request. Returns service.ErrRequestNotFound when the
// id is unknown.
func (r *RequestRepository) GetByID(ctx context.Context, tx database.TxQuerier, id int64) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	err := tx.QueryRow(ctx, `
		SELECT id, reference, actor_id, category, division, phone, lat, lon,
			assigned_provider_id, created_at
		FROM requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.Reference, &req.ActorID, &req.Category, &req.Division,
		&req.Phone, &req.Location.Lat, &req.Location.Lon,
		&req.AssignedProviderID, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	return &req, nil
}
