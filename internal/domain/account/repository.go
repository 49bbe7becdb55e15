package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Counts is the size of an account population
type Counts struct {
	Total  int64
	Active int64
}

// SellerRepository persists sellers. Debit and Credit are applied as
// atomic increments in storage, so concurrent callers never lose updates.
type SellerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Seller, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Seller, error)
	Save(ctx context.Context, seller *Seller) error

	// Debit fails with INSUFFICIENT_FUNDS when the balance does not cover
	// amount, leaving the row untouched.
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	// Credit adds money to the spendable balance (escrow release or deposit)
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	// AdjustSpend changes an existing hold by amount: positive debits the
	// balance (INSUFFICIENT_FUNDS when short), negative credits it back.
	AdjustSpend(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// Deactivate clears is_active. Campaigns in flight are not touched.
	Deactivate(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (Counts, error)
}

// ChannelRepository persists channels and applies earnings and
// withdrawal reservations atomically.
type ChannelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Channel, error)
	FindByOwnerUserID(ctx context.Context, userID uuid.UUID) (*Channel, error)
	Save(ctx context.Context, channel *Channel) error

	CreditEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	IncrementCompletedOrders(ctx context.Context, id uuid.UUID) error
	IncrementTotalOrders(ctx context.Context, id uuid.UUID) error

	// HoldForWithdrawal fails with INSUFFICIENT_FUNDS when the available
	// earnings do not cover amount.
	HoldForWithdrawal(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	ReleaseHold(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	SettleWithdrawal(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	Deactivate(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (Counts, error)
}
