package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error

	commits   int
	rollbacks int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbacks++
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

// mockCouponLedger is a mock implementation of CouponLedger.
type mockCouponLedger struct {
	findByCodeFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	markUsedFn   func(ctx context.Context, tx database.TxQuerier, id, redeemerID int64, at time.Time) (bool, error)
}

func (m *mockCouponLedger) FindByCode(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	if m.findByCodeFn != nil {
		return m.findByCodeFn(ctx, tx, code)
	}
	return nil, nil
}

func (m *mockCouponLedger) MarkUsed(ctx context.Context, tx database.TxQuerier, id, redeemerID int64, at time.Time) (bool, error) {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, tx, id, redeemerID, at)
	}
	return true, nil
}

// mockSubscriberStore is a mock implementation of SubscriberStore.
type mockSubscriberStore struct {
	updateSubscriptionFn func(ctx context.Context, tx database.TxQuerier, actorID int64, level model.Tier, expiresAt time.Time, couponCode string) error
}

func (m *mockSubscriberStore) UpdateSubscription(ctx context.Context, tx database.TxQuerier, actorID int64, level model.Tier, expiresAt time.Time, couponCode string) error {
	if m.updateSubscriptionFn != nil {
		return m.updateSubscriptionFn(ctx, tx, actorID, level, expiresAt, couponCode)
	}
	return nil
}

// mockProviderCatalog is a mock implementation of ProviderCatalog.
type mockProviderCatalog struct {
	findByCategoryFn    func(ctx context.Context, category, division string) ([]model.Provider, error)
	getByShortCodeFn    func(ctx context.Context, code int64) (*model.Provider, error)
	markShownFn         func(ctx context.Context, ids []int64) error
	incrementSelectedFn func(ctx context.Context, tx database.TxQuerier, id int64) error
	applyRatingFn       func(ctx context.Context, id int64, score int) (float64, int64, error)
}

func (m *mockProviderCatalog) FindByCategory(ctx context.Context, category, division string) ([]model.Provider, error) {
	if m.findByCategoryFn != nil {
		return m.findByCategoryFn(ctx, category, division)
	}
	return nil, nil
}

func (m *mockProviderCatalog) GetByShortCode(ctx context.Context, code int64) (*model.Provider, error) {
	if m.getByShortCodeFn != nil {
		return m.getByShortCodeFn(ctx, code)
	}
	return nil, ErrProviderNotFound
}

func (m *mockProviderCatalog) MarkShown(ctx context.Context, ids []int64) error {
	if m.markShownFn != nil {
		return m.markShownFn(ctx, ids)
	}
	return nil
}

func (m *mockProviderCatalog) IncrementSelected(ctx context.Context, tx database.TxQuerier, id int64) error {
	if m.incrementSelectedFn != nil {
		return m.incrementSelectedFn(ctx, tx, id)
	}
	return nil
}

func (m *mockProviderCatalog) ApplyRating(ctx context.Context, id int64, score int) (float64, int64, error) {
	if m.applyRatingFn != nil {
		return m.applyRatingFn(ctx, id, score)
	}
	return 0, 0, nil
}

// mockRequestStore is a mock implementation of RequestStore.
type mockRequestStore struct {
	assignFn  func(ctx context.Context, tx database.TxQuerier, requestID, providerID int64) (bool, error)
	getByIDFn func(ctx context.Context, tx database.TxQuerier, id int64) (*model.ServiceRequest, error)
}

func (m *mockRequestStore) Assign(ctx context.Context, tx database.TxQuerier, requestID, providerID int64) (bool, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, tx, requestID, providerID)
	}
	return true, nil
}

func (m *mockRequestStore) GetByID(ctx context.Context, tx database.TxQuerier, id int64) (*model.ServiceRequest, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, tx, id)
	}
	return nil, ErrRequestNotFound
}

// mockProviderDirectory is a mock implementation of ProviderDirectory.
type mockProviderDirectory struct {
	upsertFn         func(ctx context.Context, p *model.Provider) (int64, error)
	getByActorIDFn   func(ctx context.Context, actorID int64) (*model.Provider, error)
	getByShortCodeFn func(ctx context.Context, code int64) (*model.Provider, error)
}

func (m *mockProviderDirectory) Upsert(ctx context.Context, p *model.Provider) (int64, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return 0, nil
}

func (m *mockProviderDirectory) GetByActorID(ctx context.Context, actorID int64) (*model.Provider, error) {
	if m.getByActorIDFn != nil {
		return m.getByActorIDFn(ctx, actorID)
	}
	return nil, nil
}

func (m *mockProviderDirectory) GetByShortCode(ctx context.Context, code int64) (*model.Provider, error) {
	if m.getByShortCodeFn != nil {
		return m.getByShortCodeFn(ctx, code)
	}
	return nil, ErrProviderNotFound
}

// mockRequestLedger is a mock implementation of RequestLedger.
type mockRequestLedger struct {
	insertFn           func(ctx context.Context, tx database.TxQuerier, req *model.ServiceRequest) error
	countByRequesterFn func(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error)
	bumpUsageFn        func(ctx context.Context, tx database.TxQuerier, firstRequest bool) error
	usageFn            func(ctx context.Context) (model.UsageStats, error)
}

func (m *mockRequestLedger) Insert(ctx context.Context, tx database.TxQuerier, req *model.ServiceRequest) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, req)
	}
	return nil
}

func (m *mockRequestLedger) CountByRequester(ctx context.Context, tx database.TxQuerier, actorID int64) (int64, error) {
	if m.countByRequesterFn != nil {
		return m.countByRequesterFn(ctx, tx, actorID)
	}
	return 0, nil
}

func (m *mockRequestLedger) BumpUsage(ctx context.Context, tx database.TxQuerier, firstRequest bool) error {
	if m.bumpUsageFn != nil {
		return m.bumpUsageFn(ctx, tx, firstRequest)
	}
	return nil
}

func (m *mockRequestLedger) Usage(ctx context.Context) (model.UsageStats, error) {
	if m.usageFn != nil {
		return m.usageFn(ctx)
	}
	return model.UsageStats{}, nil
}

// mockAdminLister is a mock implementation of AdminLister.
type mockAdminLister struct {
	listAllFn                func(ctx context.Context) ([]model.Provider, error)
	countActiveSubscribersFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockAdminLister) ListAll(ctx context.Context) ([]model.Provider, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockAdminLister) CountActiveSubscribers(ctx context.Context, now time.Time) (int64, error) {
	if m.countActiveSubscribersFn != nil {
		return m.countActiveSubscribersFn(ctx, now)
	}
	return 0, nil
}
