package dispute

import (
	"strings"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a dispute
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusResolved
}

// Decision is the administrator's settlement of a dispute
type Decision string

const (
	// DecisionRefund returns the whole budget to the seller
	DecisionRefund Decision = "refund"
	// DecisionReleasePayment pays the channel as if the seller had confirmed
	DecisionReleasePayment Decision = "release_payment"
	// DecisionPartialRefund splits the budget: the seller gets the refund
	// amount and the channel the rest, with no platform commission.
	DecisionPartialRefund Decision = "partial_refund"
)

// ParseDecision validates a decision received from outside the domain
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	switch d {
	case DecisionRefund, DecisionReleasePayment, DecisionPartialRefund:
		return d, nil
	}
	return "", ErrInvalidDecision(s)
}

// Dispute is a seller's challenge of a submitted placement. It is opened
// when the seller declines to confirm and closed by an administrator.
type Dispute struct {
	ID                uuid.UUID
	CampaignID        uuid.UUID
	InitiatedByUserID uuid.UUID
	Reason            string
	Status            Status
	AdminDecision     *Decision
	AdminNotes        *string
	RefundAmount      *decimal.Decimal
	DecidedByAdminID  *uuid.UUID
	CreatedAt         time.Time
	ResolvedAt        *time.Time
}

// Open creates an open dispute on a campaign
func Open(campaignID, initiatedBy uuid.UUID, reason string, now time.Time) (*Dispute, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("Dispute reason is required")
	}
	return &Dispute{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		InitiatedByUserID: initiatedBy,
		Reason:            reason,
		Status:            StatusOpen,
		CreatedAt:         now,
	}, nil
}

// Resolution is an administrator's ruling on a dispute
type Resolution struct {
	Decision     Decision
	Notes        string
	AdminID      uuid.UUID
	RefundAmount *decimal.Decimal
}

// Validate checks the ruling against the disputed budget
func (r Resolution) Validate(budget decimal.Decimal) error {
	if _, err := ParseDecision(string(r.Decision)); err != nil {
		return err
	}
	if r.Decision != DecisionPartialRefund {
		return nil
	}
	if r.RefundAmount == nil {
		return ErrMissingRefundAmount
	}
	if !r.RefundAmount.IsPositive() || r.RefundAmount.GreaterThan(budget) {
		return shared.NewValidationError("Refund amount must be greater than 0 and at most %s", budget.StringFixed(2))
	}
	if !r.RefundAmount.Equal(r.RefundAmount.Round(2)) {
		return shared.NewValidationError("Refund amount cannot have more than 2 decimal places")
	}
	return nil
}

// Resolve closes the dispute with the given ruling. budget is the disputed
// campaign budget the refund amount is checked against.
func (d *Dispute) Resolve(r Resolution, budget decimal.Decimal, now time.Time) error {
	if d.Status != StatusOpen {
		return ErrAlreadyResolved
	}
	if err := r.Validate(budget); err != nil {
		return err
	}

	decision := r.Decision
	d.Status = StatusResolved
	d.AdminDecision = &decision
	if r.Notes != "" {
		notes := r.Notes
		d.AdminNotes = &notes
	}
	if decision == DecisionPartialRefund {
		amount := *r.RefundAmount
		d.RefundAmount = &amount
	}
	adminID := r.AdminID
	d.DecidedByAdminID = &adminID
	d.ResolvedAt = &now
	return nil
}
