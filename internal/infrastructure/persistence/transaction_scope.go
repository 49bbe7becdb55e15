package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/admin"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements uow.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db          *gorm.DB
	outbox      shared.OutboxEventSaver
	lockTimeout time.Duration
}

// TransactionScopeOption configures a GormTransactionScope
type TransactionScopeOption func(*GormTransactionScope)

// WithLockTimeout bounds how long a statement waits for a row lock. Applied
// with SET LOCAL on Postgres; other dialects ignore it.
func WithLockTimeout(d time.Duration) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.lockTimeout = d
	}
}

// NewGormTransactionScope creates a new GormTransactionScope. Domain events
// published inside a unit of work are written to the outbox by outbox.
func NewGormTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver, opts ...TransactionScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db, outbox: outbox}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Lock and serialization failures are reported as CONTENTION.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
	return TranslateError(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (r *gormTransactionalRepositories) Sellers() account.SellerRepository {
	return NewGormSellerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Channels() account.ChannelRepository {
	return NewGormChannelRepository(r.tx)
}

func (r *gormTransactionalRepositories) Campaigns() campaign.Repository {
	return NewGormCampaignRepository(r.tx)
}

func (r *gormTransactionalRepositories) Activities() campaign.ActivityRepository {
	return NewGormActivityRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Withdrawals() ledger.WithdrawalRepository {
	return NewGormWithdrawalRepository(r.tx)
}

func (r *gormTransactionalRepositories) Disputes() dispute.Repository {
	return NewGormDisputeRepository(r.tx)
}

func (r *gormTransactionalRepositories) AdminActions() admin.ActionRepository {
	return NewGormAdminActionRepository(r.tx)
}

// Events returns a publisher that saves events to the outbox in this transaction
func (r *gormTransactionalRepositories) Events() shared.EventPublisher {
	return &txOutboxPublisher{tx: r.tx, outbox: r.outbox}
}

// txOutboxPublisher adapts an OutboxEventSaver to EventPublisher for one transaction
type txOutboxPublisher struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (p *txOutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if p.outbox == nil || len(events) == 0 {
		return nil
	}
	return p.outbox.SaveEvents(ctx, p.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ uow.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ uow.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
