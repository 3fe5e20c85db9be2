package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// ProviderDirectory is the provider data access needed by the registry.
type ProviderDirectory interface {
	Upsert(ctx context.Context, p *model.Provider) (int64, error)
	GetByActorID(ctx context.Context, actorID int64) (*model.Provider, error)
	GetByShortCode(ctx context.Context, code int64) (*model.Provider, error)
}

// RequestLedger is the request data access needed by the registry.
type RequestLedger interface {
	Insert(ctx context.Context, tx database.TxQuerier, req *model.ServiceRequest) error
	CountByRequester(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error)
	BumpUsage(ctx context.Context, tx database.TxQuerier, firstRequest bool) error
	Usage(ctx context.Context) (model.UsageStats, error)
}

// RegistryService fronts the persisted provider and request catalogs for
// the session layer.
type RegistryService struct {
	pool      TxBeginner
	providers ProviderDirectory
	requests  RequestLedger
}

// NewRegistryService creates a RegistryService with the given pool and
// repositories.
func NewRegistryService(pool *pgxpool.Pool, providers ProviderDirectory, requests RequestLedger) *RegistryService {
	return &RegistryService{pool: pool, providers: providers, requests: requests}
}

// NewRegistryServiceWithTxBeginner creates a RegistryService with a custom
// transaction beginner. Primarily used for testing.
func NewRegistryServiceWithTxBeginner(pool TxBeginner, providers ProviderDirectory, requests RequestLedger) *RegistryService {
	return &RegistryService{pool: pool, providers: providers, requests: requests}
}

// SaveProvider upserts a (possibly partial) provider record and returns its
// short code. Dialogue steps call this as soon as a field completes so an
// interrupted registration is resumable and the record is already
// discoverable by operators.
func (s *RegistryService) SaveProvider(ctx context.Context, p *model.Provider) (int64, error) {
	return s.providers.Upsert(ctx, p)
}

// ProviderByActorID returns the provider owned by an actor, or nil.
func (s *RegistryService) ProviderByActorID(ctx context.Context, actorID int64) (*model.Provider, error) {
	return s.providers.GetByActorID(ctx, actorID)
}

// ProviderByShortCode resolves a provider's self-service code.
func (s *RegistryService) ProviderByShortCode(ctx context.Context, code int64) (*model.Provider, error) {
	return s.providers.GetByShortCode(ctx, code)
}

// CreateRequest persists a completed intake and updates the usage counters
// in the same transaction: total requests always, distinct requesters only
// on an actor's first-ever request.
func (s *RegistryService) CreateRequest(ctx context.Context, req *model.ServiceRequest) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prior, err := s.requests.CountByRequester(ctx, tx, req.ActorID)
	if err != nil {
		return fmt.Errorf("count prior requests: %w", err)
	}
	if err := s.requests.Insert(ctx, tx, req); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	if err := s.requests.BumpUsage(ctx, tx, prior == 0); err != nil {
		return fmt.Errorf("bump usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit request: %w", err)
	}
	return nil
}

// Usage reads the process-wide counters.
func (s *RegistryService) Usage(ctx context.Context) (model.UsageStats, error) {
	return s.requests.Usage(ctx)
}
