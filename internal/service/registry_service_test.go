package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
)

func TestRegistryService_CreateRequest_FirstRequestBumpsRequesters(t *testing.T) {
	tx := &mockTx{}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	var gotFirst *bool
	requests := &mockRequestLedger{
		countByRequesterFn: func(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error) {
			return 0, nil
		},
		bumpUsageFn: func(ctx context.Context, tx database.TxQuerier, firstRequest bool) error {
			gotFirst = &firstRequest
			return nil
		},
	}
	svc := NewRegistryServiceWithTxBeginner(pool, &mockProviderDirectory{}, requests)

	err := svc.CreateRequest(context.Background(), &model.ServiceRequest{ActorID: 5, Category: "Plumbing"})

	require.NoError(t, err)
	require.NotNil(t, gotFirst)
	assert.True(t, *gotFirst, "an actor's first request counts a new requester")
	assert.Equal(t, 1, tx.commits)
}

func TestRegistryService_CreateRequest_RepeatRequesterOnlyBumpsTotal(t *testing.T) {
	tx := &mockTx{}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	var gotFirst *bool
	requests := &mockRequestLedger{
		countByRequesterFn: func(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error) {
			return 3, nil
		},
		bumpUsageFn: func(ctx context.Context, tx database.TxQuerier, firstRequest bool) error {
			gotFirst = &firstRequest
			return nil
		},
	}
	svc := NewRegistryServiceWithTxBeginner(pool, &mockProviderDirectory{}, requests)

	err := svc.CreateRequest(context.Background(), &model.ServiceRequest{ActorID: 5, Category: "Plumbing"})

	require.NoError(t, err)
	require.NotNil(t, gotFirst)
	assert.False(t, *gotFirst)
}

func TestRegistryService_CreateRequest_InsertFailureRollsBack(t *testing.T) {
	tx := &mockTx{}
	pool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	requests := &mockRequestLedger{
		insertFn: func(ctx context.Context, tx database.TxQuerier, req *model.ServiceRequest) error {
			return errors.New("insert failed")
		},
	}
	bumped := false
	requests.bumpUsageFn = func(ctx context.Context, tx database.TxQuerier, firstRequest bool) error {
		bumped = true
		return nil
	}
	svc := NewRegistryServiceWithTxBeginner(pool, &mockProviderDirectory{}, requests)

	err := svc.CreateRequest(context.Background(), &model.ServiceRequest{ActorID: 5})

	require.Error(t, err)
	assert.False(t, bumped, "counters must not move when the insert fails")
	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestRegistryService_SaveProvider_ReturnsShortCode(t *testing.T) {
	providers := &mockProviderDirectory{
		upsertFn: func(ctx context.Context, p *model.Provider) (int64, error) {
			return 2041, nil
		},
	}
	svc := NewRegistryServiceWithTxBeginner(&mockTxBeginner{}, providers, &mockRequestLedger{})

	code, err := svc.SaveProvider(context.Background(), &model.Provider{ActorID: 9, Name: "Ali"})

	require.NoError(t, err)
	assert.Equal(t, int64(2041), code)
}

func TestRegistryService_Usage_PassesThrough(t *testing.T) {
	requests := &mockRequestLedger{
		usageFn: func(ctx context.Context) (model.UsageStats, error) {
			return model.UsageStats{TotalRequesters: 10, TotalRequests: 42}, nil
		},
	}
	svc := NewRegistryServiceWithTxBeginner(&mockTxBeginner{}, &mockProviderDirectory{}, requests)

	stats, err := svc.Usage(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalRequesters)
	assert.Equal(t, int64(42), stats.TotalRequests)
}
