package campaign

import (
	"strings"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCommissionPercent is the platform cut applied when none is configured
var DefaultCommissionPercent = decimal.NewFromInt(10)

// Campaign is an ad placement order from a seller to a channel. The
// seller's budget is held in escrow from creation until the campaign
// settles; every change goes through a guarded transition.
type Campaign struct {
	shared.BaseAggregateRoot
	SellerID                  uuid.UUID
	ChannelID                 uuid.UUID
	Status                    Status
	Budget                    decimal.Decimal
	PlatformCommissionPercent decimal.Decimal
	StartDate                 time.Time
	EndDate                   time.Time
	AdFormat                  string
	CreativeText              string
	PlacementProofURL         *string
	PlacementProofType        *string
	OwnerNotes                *string
	SellerNotes               *string
	OwnerSubmittedAt          *time.Time
	SellerConfirmedAt         *time.Time
	ActualCompletionDate      *time.Time
}

// Terms are the seller-controlled fields of a campaign
type Terms struct {
	Budget       decimal.Decimal
	StartDate    time.Time
	EndDate      time.Time
	AdFormat     string
	CreativeText string
	SellerNotes  string
}

// Validate checks the terms before any money moves
func (t Terms) Validate() error {
	if !t.Budget.IsPositive() {
		return shared.NewValidationError("Budget must be positive, got %s", t.Budget.String())
	}
	if !t.Budget.Equal(t.Budget.Round(2)) {
		return shared.NewValidationError("Budget cannot have more than 2 decimal places")
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return shared.NewValidationError("Start date and end date are required")
	}
	if !t.EndDate.After(t.StartDate) {
		return shared.NewValidationError("End date must be after start date")
	}
	return nil
}

// NewCampaign creates a pending campaign. commissionPercent must be in [0, 100].
func NewCampaign(sellerID, channelID uuid.UUID, terms Terms, commissionPercent decimal.Decimal, now time.Time) (*Campaign, error) {
	if sellerID == uuid.Nil {
		return nil, shared.NewValidationError("Seller ID cannot be empty")
	}
	if channelID == uuid.Nil {
		return nil, shared.NewValidationError("Channel ID cannot be empty")
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if commissionPercent.IsNegative() || commissionPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("Commission percent must be between 0 and 100")
	}

	c := &Campaign{
		BaseAggregateRoot:         shared.NewBaseAggregateRootAt(now),
		SellerID:                  sellerID,
		ChannelID:                 channelID,
		Status:                    StatusPending,
		Budget:                    terms.Budget,
		PlatformCommissionPercent: commissionPercent,
		StartDate:                 terms.StartDate,
		EndDate:                   terms.EndDate,
		AdFormat:                  terms.AdFormat,
		CreativeText:              terms.CreativeText,
		SellerNotes:               optionalString(terms.SellerNotes),
	}
	c.AddDomainEvent(NewCampaignCreatedEvent(c, now))
	return c, nil
}

// Update replaces the seller-controlled terms while the campaign is pending.
// It returns the budget delta the caller must apply to the escrow hold
// (positive: hold more, negative: release).
func (c *Campaign) Update(terms Terms, now time.Time) (decimal.Decimal, error) {
	if err := c.apply(EventUpdate); err != nil {
		return decimal.Zero, err
	}
	if err := terms.Validate(); err != nil {
		return decimal.Zero, err
	}

	delta := terms.Budget.Sub(c.Budget)
	c.Budget = terms.Budget
	c.StartDate = terms.StartDate
	c.EndDate = terms.EndDate
	c.AdFormat = terms.AdFormat
	c.CreativeText = terms.CreativeText
	if terms.SellerNotes != "" {
		c.SellerNotes = optionalString(terms.SellerNotes)
	}
	c.touch(now)
	return delta, nil
}

// Accept records the channel owner's agreement to run the placement
func (c *Campaign) Accept(notes string, now time.Time) error {
	if err := c.apply(EventAccept); err != nil {
		return err
	}
	if notes != "" {
		c.OwnerNotes = optionalString(notes)
	}
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignAccepted, c, notes, now))
	return nil
}

// Reject records the channel owner's refusal. The budget must be released
// back to the seller in the same unit of work.
func (c *Campaign) Reject(reason string, now time.Time) error {
	if err := c.apply(EventReject); err != nil {
		return err
	}
	c.OwnerNotes = optionalString("Rejected: " + reason)
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignRejected, c, reason, now))
	return nil
}

// Cancel withdraws a pending campaign on the seller's behalf. The budget
// must be released back to the seller in the same unit of work.
func (c *Campaign) Cancel(reason string, now time.Time) error {
	if err := c.apply(EventCancel); err != nil {
		return err
	}
	c.OwnerNotes = optionalString("Cancelled: " + reason)
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignCancelled, c, reason, now))
	return nil
}

// Submit records the placement proof and starts the verification window
func (c *Campaign) Submit(proofURL, proofType, notes string, now time.Time) error {
	if strings.TrimSpace(proofURL) == "" {
		return shared.NewValidationError("Placement proof URL is required")
	}
	if err := c.apply(EventSubmit); err != nil {
		return err
	}
	c.PlacementProofURL = optionalString(proofURL)
	c.PlacementProofType = optionalString(proofType)
	if notes != "" {
		c.OwnerNotes = optionalString(notes)
	}
	c.OwnerSubmittedAt = &now
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignSubmitted, c, proofURL, now))
	return nil
}

// Complete marks the placement confirmed by the seller. The split must be
// paid out in the same unit of work.
func (c *Campaign) Complete(split Split, notes string, now time.Time) error {
	if err := c.apply(EventConfirm); err != nil {
		return err
	}
	if notes != "" {
		c.SellerNotes = optionalString(notes)
	}
	c.SellerConfirmedAt = &now
	c.ActualCompletionDate = &now
	c.touch(now)
	c.AddDomainEvent(NewCampaignCompletedEvent(c, split, now))
	return nil
}

// Dispute marks the placement contested by the seller. No money moves.
func (c *Campaign) Dispute(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("Dispute reason is required")
	}
	if err := c.apply(EventDispute); err != nil {
		return err
	}
	c.SellerNotes = optionalString(reason)
	c.SellerConfirmedAt = &now
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignDisputed, c, reason, now))
	return nil
}

// Resolve closes a disputed campaign after an administrator settled it
func (c *Campaign) Resolve(decision string, now time.Time) error {
	if err := c.apply(EventResolve); err != nil {
		return err
	}
	c.ActualCompletionDate = &now
	c.touch(now)
	c.AddDomainEvent(NewCampaignStatusChangedEvent(EventTypeCampaignResolved, c, decision, now))
	return nil
}

// Split computes the commission and payout for this campaign's budget
func (c *Campaign) Split() Split {
	return SplitBudget(c.Budget, c.PlatformCommissionPercent)
}

// apply moves the campaign along the state machine or fails without
// touching any field
func (c *Campaign) apply(event Event) error {
	next, ok := c.Status.Next(event)
	if !ok {
		return ErrInvalidTransition(event, c.Status)
	}
	c.Status = next
	return nil
}

func (c *Campaign) touch(now time.Time) {
	c.UpdatedAt = now
	c.IncrementVersion()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
