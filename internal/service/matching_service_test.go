package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// Tripoli city centre; offsets below are roughly 1.11 km per 0.01 degree
// of latitude.
var origin = model.GeoPoint{Lat: 32.8872, Lon: 13.1913}

func offsetLat(km float64) *model.GeoPoint {
	return &model.GeoPoint{Lat: origin.Lat + km/111.0, Lon: origin.Lon}
}

func activeUntil(days int) *time.Time {
	t := fixedNow.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func newMatchingService(providers *mockProviderCatalog, requests *mockRequestStore) *MatchingService {
	pool := &mockTxBeginner{}
	return NewMatchingServiceWithClock(pool, providers, requests, fixedClock)
}

func TestMatchingService_FindProviders_TierBeatsDistance(t *testing.T) {
	providers := &mockProviderCatalog{
		findByCategoryFn: func(ctx context.Context, category, division string) ([]model.Provider, error) {
			return []model.Provider{
				{ID: 1, Name: "Near Free", Location: offsetLat(1), Level: model.TierNone},
				{ID: 2, Name: "Far Gold", Location: offsetLat(10), Level: model.TierGold, ExpiresAt: activeUntil(5)},
				{ID: 3, Name: "Mid Silver", Location: offsetLat(5), Level: model.TierSilver, ExpiresAt: activeUntil(5)},
			}, nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	result, err := svc.FindProviders(context.Background(), "Plumbing", "", origin, 40, 50)

	require.NoError(t, err)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, "Far Gold", result.Matches[0].Provider.Name)
	assert.Equal(t, "Mid Silver", result.Matches[1].Provider.Name)
	assert.Equal(t, "Near Free", result.Matches[2].Provider.Name)
	assert.False(t, result.Truncated)
}

func TestMatchingService_FindProviders_ExpiredSubscriptionRanksAsFree(t *testing.T) {
	providers := &mockProviderCatalog{
		findByCategoryFn: func(ctx context.Context, category, division string) ([]model.Provider, error) {
			return []model.Provider{
				{ID: 1, Name: "Lapsed Gold", Location: offsetLat(1), Level: model.TierGold, ExpiresAt: activeUntil(-1)},
				{ID: 2, Name: "Active Silver", Location: offsetLat(10), Level: model.TierSilver, ExpiresAt: activeUntil(5)},
			}, nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	result, err := svc.FindProviders(context.Background(), "Plumbing", "", origin, 40, 50)

	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "Active Silver", result.Matches[0].Provider.Name)
	assert.Equal(t, model.TierNone, result.Matches[1].Level)
}

func TestMatchingService_FindProviders_DistanceBound(t *testing.T) {
	providers := &mockProviderCatalog{
		findByCategoryFn: func(ctx context.Context, category, division string) ([]model.Provider, error) {
			return []model.Provider{
				{ID: 1, Name: "Inside", Location: offsetLat(39)},
				{ID: 2, Name: "Outside", Location: offsetLat(45)},
				{ID: 3, Name: "No Location"},
			}, nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	result, err := svc.FindProviders(context.Background(), "Plumbing", "", origin, 40, 50)

	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "Inside", result.Matches[0].Provider.Name)
	assert.InDelta(t, 39, result.Matches[0].DistanceKm, 0.5)
}

func TestMatchingService_FindProviders_TruncatesToMaxResults(t *testing.T) {
	providers := &mockProviderCatalog{
		findByCategoryFn: func(ctx context.Context, category, division string) ([]model.Provider, error) {
			var out []model.Provider
			for i := 1; i <= 8; i++ {
				out = append(out, model.Provider{ID: int64(i), Location: offsetLat(float64(i))})
			}
			return out, nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	result, err := svc.FindProviders(context.Background(), "Plumbing", "", origin, 40, 5)

	require.NoError(t, err)
	assert.Len(t, result.Matches, 5)
	assert.Equal(t, 8, result.Total)
	assert.True(t, result.Truncated)
	// closest first within one tier
	assert.Equal(t, int64(1), result.Matches[0].Provider.ID)
}

func TestMatchingService_MarkShown_BatchesAllMatches(t *testing.T) {
	var shown []int64
	providers := &mockProviderCatalog{
		markShownFn: func(ctx context.Context, ids []int64) error {
			shown = ids
			return nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	result := model.MatchResult{Matches: []model.ProviderMatch{
		{Provider: model.Provider{ID: 3}},
		{Provider: model.Provider{ID: 9}},
	}}
	require.NoError(t, svc.MarkShown(context.Background(), result))
	assert.Equal(t, []int64{3, 9}, shown)
}

func TestMatchingService_MarkShown_EmptyResultIsNoop(t *testing.T) {
	called := false
	providers := &mockProviderCatalog{
		markShownFn: func(ctx context.Context, ids []int64) error {
			called = true
			return nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	require.NoError(t, svc.MarkShown(context.Background(), model.MatchResult{}))
	assert.False(t, called)
}

func TestMatchingService_Select_FirstSelectionWins(t *testing.T) {
	tx := &mockTx{}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	selected := int64(0)
	providers := &mockProviderCatalog{
		incrementSelectedFn: func(ctx context.Context, q database.TxQuerier, id int64) error {
			selected = id
			return nil
		},
	}
	svc := NewMatchingServiceWithClock(pool, providers, &mockRequestStore{}, fixedClock)

	assigned, err := svc.Select(context.Background(), 11, 7)

	require.NoError(t, err)
	assert.Equal(t, int64(7), assigned)
	assert.Equal(t, int64(7), selected)
	assert.Equal(t, 1, tx.commits)
}

func TestMatchingService_Select_RepeatReturnsStandingAssignment(t *testing.T) {
	standing := int64(3)
	requests := &mockRequestStore{
		assignFn: func(ctx context.Context, tx database.TxQuerier, requestID, providerID int64) (bool, error) {
			return false, nil
		},
		getByIDFn: func(ctx context.Context, tx database.TxQuerier, id int64) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, AssignedProviderID: &standing}, nil
		},
	}
	bumped := false
	providers := &mockProviderCatalog{
		incrementSelectedFn: func(ctx context.Context, tx database.TxQuerier, id int64) error {
			bumped = true
			return nil
		},
	}
	svc := newMatchingService(providers, requests)

	assigned, err := svc.Select(context.Background(), 11, 7)

	require.NoError(t, err)
	assert.Equal(t, standing, assigned)
	assert.False(t, bumped, "a repeat selection must not bump the counter")
}

func TestMatchingService_Rate_RejectsOutOfRange(t *testing.T) {
	svc := newMatchingService(&mockProviderCatalog{}, &mockRequestStore{})

	for _, score := range []int{0, -1, 6, 100} {
		_, _, err := svc.Rate(context.Background(), 1, score)
		assert.ErrorIs(t, err, ErrInvalidRating, "score %d", score)
	}
}

func TestMatchingService_Rate_DelegatesValidScore(t *testing.T) {
	providers := &mockProviderCatalog{
		applyRatingFn: func(ctx context.Context, id int64, score int) (float64, int64, error) {
			assert.Equal(t, int64(4), id)
			assert.Equal(t, 5, score)
			return 4.5, 2, nil
		},
	}
	svc := newMatchingService(providers, &mockRequestStore{})

	avg, count, err := svc.Rate(context.Background(), 4, 5)

	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, int64(2), count)
}
