package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// PayOut moves a settled budget out of escrow: the commission is booked to
// the platform and the payout credited to the channel owner. A zero
// commission or payout writes no record for that side, but the channel
// must still exist. Order counters are left to the caller.
//
// It must run inside the unit of work that moves the campaign to its
// settled status.
func PayOut(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, split campaign.Split, now time.Time) ([]*ledger.Transaction, error) {
	if !split.Payout.IsPositive() {
		if _, err := repos.Channels().FindByID(ctx, c.ChannelID); err != nil {
			return nil, fmt.Errorf("settle campaign: %w", err)
		}
	}

	txs := make([]*ledger.Transaction, 0, 2)
	if split.Commission.IsPositive() {
		tx, err := ledger.NewCommissionTransaction(c.ID, c.SellerID, c.ChannelID, split.Commission, now)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if split.Payout.IsPositive() {
		tx, err := ledger.NewPaymentTransaction(c.ID, c.SellerID, c.ChannelID, split.Payout, split.Commission, now)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)

		if err := repos.Channels().CreditEarnings(ctx, c.ChannelID, split.Payout); err != nil {
			return nil, fmt.Errorf("credit channel earnings: %w", err)
		}
	}
	if len(txs) > 0 {
		if err := repos.Transactions().Create(ctx, txs...); err != nil {
			return nil, fmt.Errorf("record settlement: %w", err)
		}
	}
	return txs, nil
}

// Refund returns amount of the campaign's escrowed budget to the seller and
// records it. The seller's total spent shrinks by the same amount.
func Refund(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, amount decimal.Decimal, description string, now time.Time) (*ledger.Transaction, error) {
	tx, err := ledger.NewRefundTransaction(c.ID, c.SellerID, amount, description, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Sellers().AdjustSpend(ctx, c.SellerID, amount.Neg()); err != nil {
		return nil, fmt.Errorf("release escrow: %w", err)
	}
	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	return tx, nil
}

// recordHold books seller money moved into escrow. The balance itself is
// taken by the caller.
func recordHold(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, amount decimal.Decimal, description string, now time.Time) error {
	tx, err := ledger.NewHoldTransaction(c.ID, c.SellerID, amount, description, now)
	if err != nil {
		return err
	}
	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return fmt.Errorf("record hold: %w", err)
	}
	return nil
}
