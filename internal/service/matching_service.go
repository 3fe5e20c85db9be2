package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
	"github.com/khidmaty/khidmaty/pkg/geo"
)

// ProviderCatalog is the provider data access needed by the matching engine.
type ProviderCatalog interface {
	FindByCategory(ctx context.Context, category, division string) ([]model.Provider, error)
	GetByShortCode(ctx context.Context, code int64) (*model.Provider, error)
	MarkShown(ctx context.Context, ids []int64) error
	IncrementSelected(ctx context.Context, tx database.TxQuerier, id int64) error
	ApplyRating(ctx context.Context, id int64, score int) (float64, int64, error)
}

// RequestStore is the request data access needed for selection.
type RequestStore interface {
	Assign(ctx context.Context, tx database.TxQuerier, requestID, providerID int64) (bool, error)
	GetByID(ctx context.Context, tx database.TxQuerier, id int64) (*model.ServiceRequest, error)
}

// MatchingService selects and ranks providers for a requested category
// around an origin point.
type MatchingService struct {
	pool      TxBeginner
	providers ProviderCatalog
	requests  RequestStore
	now       func() time.Time
}

// NewMatchingService creates a MatchingService with the given pool and
// repositories.
func NewMatchingService(pool *pgxpool.Pool, providers ProviderCatalog, requests RequestStore) *MatchingService {
	return &MatchingService{pool: pool, providers: providers, requests: requests, now: time.Now}
}

// NewMatchingServiceWithClock creates a MatchingService with a custom
// transaction beginner and clock. Primarily used for testing.
func NewMatchingServiceWithClock(pool TxBeginner, providers ProviderCatalog, requests RequestStore, now func() time.Time) *MatchingService {
	return &MatchingService{pool: pool, providers: providers, requests: requests, now: now}
}

// FindProviders returns providers of the category (and division, for
// education) within maxDistanceKm of origin, ranked by effective tier
// descending then distance ascending, truncated to maxResults.
//
// Providers with missing coordinates never appear; the repository filters
// them out and the distance check guards against invalid rows. This call is
// pure: exposure counters move only via MarkShown, once the caller has
// actually composed the result for delivery.
func (m *MatchingService) FindProviders(ctx context.Context, category, division string, origin model.GeoPoint, maxDistanceKm float64, maxResults int) (model.MatchResult, error) {
	providers, err := m.providers.FindByCategory(ctx, category, division)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("find providers: %w", err)
	}

	now := m.now()
	matches := make([]model.ProviderMatch, 0, len(providers))
	for _, p := range providers {
		if p.Location == nil {
			continue
		}
		dist := geo.DistanceKm(origin.Lat, origin.Lon, p.Location.Lat, p.Location.Lon)
		if dist > maxDistanceKm {
			continue
		}
		matches = append(matches, model.ProviderMatch{
			Provider:   p,
			DistanceKm: dist,
			Level:      p.EffectiveLevel(now),
		})
	}

	// Tier dominates distance; the sort is stable so registry order breaks
	// remaining ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Level != matches[j].Level {
			return matches[i].Level > matches[j].Level
		}
		return matches[i].DistanceKm < matches[j].DistanceKm
	})

	total := len(matches)
	truncated := false
	if maxResults > 0 && total > maxResults {
		matches = matches[:maxResults]
		truncated = true
	}
	return model.MatchResult{Matches: matches, Total: total, Truncated: truncated}, nil
}

// MarkShown increments times_shown once for every provider in a delivered
// result.
func (m *MatchingService) MarkShown(ctx context.Context, result model.MatchResult) error {
	if len(result.Matches) == 0 {
		return nil
	}
	ids := make([]int64, len(result.Matches))
	for i, match := range result.Matches {
		ids[i] = match.Provider.ID
	}
	return m.providers.MarkShown(ctx, ids)
}

// Select records the requester's choice on the request. The first selection
// wins and bumps the provider's times_selected counter; later calls are
// no-ops returning the standing assignment.
func (m *MatchingService) Select(ctx context.Context, requestID, providerID int64) (int64, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	won, err := m.requests.Assign(ctx, tx, requestID, providerID)
	if err != nil {
		return 0, fmt.Errorf("assign request: %w", err)
	}
	if !won {
		req, err := m.requests.GetByID(ctx, tx, requestID)
		if err != nil {
			return 0, err
		}
		if req.AssignedProviderID == nil {
			// Assign reported a conflict yet nothing is recorded; treat as
			// a lost race with a concurrent rollback and surface not-found.
			return 0, ErrRequestNotFound
		}
		return *req.AssignedProviderID, tx.Commit(ctx)
	}

	if err := m.providers.IncrementSelected(ctx, tx, providerID); err != nil {
		return 0, fmt.Errorf("increment selected: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit selection: %w", err)
	}
	return providerID, nil
}

// Rate folds a 1..5 score into the provider's running average. Out-of-range
// scores are rejected, never clamped.
func (m *MatchingService) Rate(ctx context.Context, providerID int64, score int) (float64, int64, error) {
	if score < 1 || score > 5 {
		return 0, 0, ErrInvalidRating
	}
	return m.providers.ApplyRating(ctx, providerID, score)
}
