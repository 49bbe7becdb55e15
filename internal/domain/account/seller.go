package account

import (
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is an advertiser account holding a prepaid balance. Campaign
// budgets are debited from the balance when a campaign is created and
// stay held until the campaign settles.
type Seller struct {
	shared.BaseAggregateRoot
	UserID         uuid.UUID
	Balance        decimal.Decimal
	TotalSpent     decimal.Decimal
	TotalCampaigns int
	IsActive       bool
}

// NewSeller creates an active seller account with a zero balance
func NewSeller(userID uuid.UUID) (*Seller, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "User ID cannot be empty")
	}
	return &Seller{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Balance:           decimal.Zero,
		TotalSpent:        decimal.Zero,
		IsActive:          true,
	}, nil
}

// CanAfford reports whether the balance covers amount
func (s *Seller) CanAfford(amount decimal.Decimal) bool {
	return s.Balance.GreaterThanOrEqual(amount)
}

// Debit moves amount out of the spendable balance into a campaign hold
func (s *Seller) Debit(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !s.CanAfford(amount) {
		return ErrInsufficientFunds(s.Balance, amount)
	}

	s.Balance = s.Balance.Sub(amount)
	s.TotalSpent = s.TotalSpent.Add(amount)
	s.TotalCampaigns++
	s.touch()
	return nil
}

// Credit returns amount to the spendable balance (refund or deposit)
func (s *Seller) Credit(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	s.Balance = s.Balance.Add(amount)
	s.touch()
	return nil
}

// Deactivate blocks the seller from creating new campaigns
func (s *Seller) Deactivate() {
	s.IsActive = false
	s.touch()
}

func (s *Seller) touch() {
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
}
