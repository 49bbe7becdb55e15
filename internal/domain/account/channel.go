package account

import (
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel is a channel owner's account. TotalEarned is the cumulative
// payout credited to the owner; HeldForWithdrawal is the part of it
// reserved by withdrawal requests that an admin has not processed yet.
type Channel struct {
	shared.BaseAggregateRoot
	OwnerUserID       uuid.UUID
	Title             string
	TotalEarned       decimal.Decimal
	HeldForWithdrawal decimal.Decimal
	Rating            decimal.Decimal
	TotalOrders       int
	CompletedOrders   int
	IsActive          bool
}

// NewChannel creates an active channel owned by ownerUserID
func NewChannel(ownerUserID uuid.UUID, title string) (*Channel, error) {
	if ownerUserID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Owner user ID cannot be empty")
	}
	if title == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Channel title cannot be empty")
	}
	return &Channel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerUserID:       ownerUserID,
		Title:             title,
		TotalEarned:       decimal.Zero,
		HeldForWithdrawal: decimal.Zero,
		Rating:            decimal.Zero,
		IsActive:          true,
	}, nil
}

// IsOwnedBy reports whether userID owns the channel
func (c *Channel) IsOwnedBy(userID uuid.UUID) bool {
	return c.OwnerUserID == userID
}

// Available returns the earnings that can still be withdrawn
func (c *Channel) Available() decimal.Decimal {
	return c.TotalEarned.Sub(c.HeldForWithdrawal)
}

// CreditEarnings adds a campaign payout to the lifetime earnings
func (c *Channel) CreditEarnings(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	c.TotalEarned = c.TotalEarned.Add(amount)
	c.touch()
	return nil
}

// RecordAcceptedOrder counts a campaign the owner agreed to run
func (c *Channel) RecordAcceptedOrder() {
	c.TotalOrders++
	c.touch()
}

// RecordCompletedOrder counts a campaign that was paid out
func (c *Channel) RecordCompletedOrder() {
	c.CompletedOrders++
	c.touch()
}

// HoldForWithdrawal reserves amount of the available earnings
func (c *Channel) HoldForWithdrawal(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if c.Available().LessThan(amount) {
		return ErrInsufficientFunds(c.Available(), amount)
	}
	c.HeldForWithdrawal = c.HeldForWithdrawal.Add(amount)
	c.touch()
	return nil
}

// ReleaseHold returns a reserved amount to the available earnings
func (c *Channel) ReleaseHold(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if c.HeldForWithdrawal.LessThan(amount) {
		return shared.NewDomainError(shared.CodeIntegrityFailure, "Release exceeds the amount held for withdrawal")
	}
	c.HeldForWithdrawal = c.HeldForWithdrawal.Sub(amount)
	c.touch()
	return nil
}

// SettleWithdrawal pays out a reserved amount: both the hold and the
// earnings shrink by amount.
func (c *Channel) SettleWithdrawal(amount decimal.Decimal) error {
	if err := c.ReleaseHold(amount); err != nil {
		return err
	}
	c.TotalEarned = c.TotalEarned.Sub(amount)
	return nil
}

// CompletionRate is completed orders over accepted orders
func (c *Channel) CompletionRate() decimal.Decimal {
	if c.TotalOrders == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(c.CompletedOrders)).
		Div(decimal.NewFromInt(int64(c.TotalOrders))).
		Round(4)
}

func (c *Channel) touch() {
	c.UpdatedAt = time.Now().UTC()
	c.IncrementVersion()
}
