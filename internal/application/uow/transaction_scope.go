package uow

import (
	"context"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/admin"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
)

// TransactionScope runs a unit of work. Every repository handed to fn shares
// one database transaction: either all writes commit or none do.
type TransactionScope interface {
	// Execute runs fn within a database transaction. If fn returns an
	// error the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
//
// Events returns a publisher that writes to the outbox inside the same
// transaction, so notifications are only delivered for committed changes.
type TransactionalRepositories interface {
	Sellers() account.SellerRepository
	Channels() account.ChannelRepository
	Campaigns() campaign.Repository
	Activities() campaign.ActivityRepository
	Transactions() ledger.TransactionRepository
	Withdrawals() ledger.WithdrawalRepository
	Disputes() dispute.Repository
	AdminActions() admin.ActionRepository
	Events() shared.EventPublisher
}

// Repositories bundles repository implementations for NoOpTransactionScope
type Repositories struct {
	Sellers      account.SellerRepository
	Channels     account.ChannelRepository
	Campaigns    campaign.Repository
	Activities   campaign.ActivityRepository
	Transactions ledger.TransactionRepository
	Withdrawals  ledger.WithdrawalRepository
	Disputes     dispute.Repository
	AdminActions admin.ActionRepository
	Events       shared.EventPublisher
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with mock repositories.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Sellers returns the sellers repository.
func (s *NoOpTransactionScope) Sellers() account.SellerRepository {
	return s.repos.Sellers
}

// Channels returns the channels repository.
func (s *NoOpTransactionScope) Channels() account.ChannelRepository {
	return s.repos.Channels
}

// Campaigns returns the campaigns repository.
func (s *NoOpTransactionScope) Campaigns() campaign.Repository {
	return s.repos.Campaigns
}

// Activities returns the activities repository.
func (s *NoOpTransactionScope) Activities() campaign.ActivityRepository {
	return s.repos.Activities
}

// Transactions returns the transactions repository.
func (s *NoOpTransactionScope) Transactions() ledger.TransactionRepository {
	return s.repos.Transactions
}

// Withdrawals returns the withdrawals repository.
func (s *NoOpTransactionScope) Withdrawals() ledger.WithdrawalRepository {
	return s.repos.Withdrawals
}

// Disputes returns the disputes repository.
func (s *NoOpTransactionScope) Disputes() dispute.Repository {
	return s.repos.Disputes
}

// AdminActions returns the admin audit log repository.
func (s *NoOpTransactionScope) AdminActions() admin.ActionRepository {
	return s.repos.AdminActions
}

// Events returns the event publisher.
func (s *NoOpTransactionScope) Events() shared.EventPublisher {
	return s.repos.Events
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
