package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock supplies the time stamped on campaigns and ledger records
type Clock interface {
	Now() time.Time
}

// ProofStorage issues upload targets for placement proofs
type ProofStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (*ProofUpload, error)
}

// Repositories are the read-side repositories used outside a unit of work
type Repositories struct {
	Sellers    account.SellerRepository
	Channels   account.ChannelRepository
	Campaigns  campaign.Repository
	Activities campaign.ActivityRepository
}

// Service runs the campaign escrow workflow. Every operation that moves
// money or changes a campaign's status is one unit of work.
type Service struct {
	scope             uow.TransactionScope
	repos             Repositories
	storage           ProofStorage
	clock             Clock
	commissionPercent decimal.Decimal
	logger            *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithProofStorage enables presigned proof uploads
func WithProofStorage(storage ProofStorage) Option {
	return func(s *Service) {
		s.storage = storage
	}
}

// WithCommissionPercent sets the platform cut stamped on new campaigns
func WithCommissionPercent(pct decimal.Decimal) Option {
	return func(s *Service) {
		s.commissionPercent = pct
	}
}

// NewService creates the escrow service
func NewService(scope uow.TransactionScope, repos Repositories, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		scope:             scope,
		repos:             repos,
		clock:             shared.SystemClock{},
		commissionPercent: campaign.DefaultCommissionPercent,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// party is the side of a campaign allowed to fire an event
type party int

const (
	partySeller party = iota
	partyChannelOwner
)

// step describes one guarded transition of an existing campaign
type step struct {
	event       campaign.Event
	party       party
	action      campaign.ActionType
	description string
	apply       func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error
}

// CreateCampaign places a campaign and moves its budget from the seller's
// balance into escrow
func (s *Service) CreateCampaign(ctx context.Context, sellerUserID uuid.UUID, req CreateCampaignRequest) (*CampaignResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", "create_campaign")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrActorID, sellerUserID.String(),
		telemetry.SpanAttrChannelID, req.ChannelID.String(),
		telemetry.SpanAttrAmount, req.Budget.String(),
	)

	var created *campaign.Campaign
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		seller, err := repos.Sellers().FindByUserID(ctx, sellerUserID)
		if err != nil {
			return err
		}
		if !seller.IsActive {
			return account.ErrSellerInactive
		}
		channel, err := repos.Channels().FindByID(ctx, req.ChannelID)
		if err != nil {
			return err
		}
		if !channel.IsActive {
			return account.ErrChannelInactive
		}

		now := s.clock.Now()
		c, err := campaign.NewCampaign(seller.ID, channel.ID, req.terms(), s.commissionPercent, now)
		if err != nil {
			return err
		}
		if err := repos.Sellers().Debit(ctx, seller.ID, c.Budget); err != nil {
			return fmt.Errorf("hold campaign budget: %w", err)
		}
		if err := repos.Campaigns().Create(ctx, c); err != nil {
			return fmt.Errorf("create campaign: %w", err)
		}
		if err := recordHold(ctx, repos, c, c.Budget, "Escrow hold for campaign "+c.ID.String(), now); err != nil {
			return err
		}
		activity := campaign.NewActivity(c.ID, sellerUserID, campaign.ActionCreated,
			fmt.Sprintf("Campaign created with budget %s", c.Budget.StringFixed(2)), now)
		if err := s.finish(ctx, repos, c, activity); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Campaign created, budget held in escrow",
		zap.String("campaign_id", created.ID.String()),
		zap.String("seller_id", created.SellerID.String()),
		zap.String("channel_id", created.ChannelID.String()),
		zap.String("budget", created.Budget.String()))

	resp := ToCampaignResponse(created)
	return &resp, nil
}

// UpdateCampaign replaces the terms of a pending campaign. A budget change
// adjusts the escrow hold in the same unit of work.
func (s *Service) UpdateCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req UpdateCampaignRequest) (*CampaignResponse, error) {
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventUpdate,
		party:       partySeller,
		action:      campaign.ActionUpdated,
		description: "Campaign terms updated",
		apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			delta, err := c.Update(req.terms(), now)
			if err != nil {
				return err
			}
			switch {
			case delta.IsPositive():
				if err := repos.Sellers().AdjustSpend(ctx, c.SellerID, delta); err != nil {
					return fmt.Errorf("increase campaign hold: %w", err)
				}
				return recordHold(ctx, repos, c, delta, "Budget increased for campaign "+c.ID.String(), now)
			case delta.IsNegative():
				if _, err := Refund(ctx, repos, c, delta.Neg(), "Budget decreased for campaign "+c.ID.String(), now); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// AcceptCampaign records the channel owner's agreement
func (s *Service) AcceptCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req AcceptCampaignRequest) (*CampaignResponse, error) {
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventAccept,
		party:       partyChannelOwner,
		action:      campaign.ActionAccepted,
		description: "Campaign accepted by channel owner",
		apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			if err := c.Accept(req.Notes, now); err != nil {
				return err
			}
			return repos.Channels().IncrementTotalOrders(ctx, c.ChannelID)
		},
	})
}

// RejectCampaign records the channel owner's refusal and returns the whole
// budget to the seller
func (s *Service) RejectCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req RejectCampaignRequest) (*CampaignResponse, error) {
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventReject,
		party:       partyChannelOwner,
		action:      campaign.ActionRejected,
		description: "Campaign rejected: " + req.Reason,
		apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			if err := c.Reject(req.Reason, now); err != nil {
				return err
			}
			_, err := Refund(ctx, repos, c, c.Budget, "Refund for rejected campaign "+c.ID.String(), now)
			return err
		},
	})
}

// CancelCampaign withdraws a pending campaign and returns the whole budget
// to the seller
func (s *Service) CancelCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req CancelCampaignRequest) (*CampaignResponse, error) {
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventCancel,
		party:       partySeller,
		action:      campaign.ActionCancelled,
		description: "Campaign cancelled by seller",
		apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			if err := c.Cancel(req.Reason, now); err != nil {
				return err
			}
			_, err := Refund(ctx, repos, c, c.Budget, "Refund for cancelled campaign "+c.ID.String(), now)
			return err
		},
	})
}

// SubmitCampaign records the placement proof. No money moves.
func (s *Service) SubmitCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req SubmitCampaignRequest) (*CampaignResponse, error) {
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventSubmit,
		party:       partyChannelOwner,
		action:      campaign.ActionSubmitted,
		description: "Placement proof submitted",
		apply: func(_ context.Context, _ uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			return c.Submit(req.ProofURL, req.ProofType, req.Notes, now)
		},
	})
}

// ConfirmCampaign settles a submitted placement. A confirmation pays the
// channel owner minus the platform commission; a refusal opens a dispute
// and leaves the budget in escrow.
func (s *Service) ConfirmCampaign(ctx context.Context, campaignID, actorID uuid.UUID, req ConfirmCampaignRequest) (*CampaignResponse, error) {
	if req.Confirmed {
		return s.mutate(ctx, campaignID, actorID, step{
			event:       campaign.EventConfirm,
			party:       partySeller,
			action:      campaign.ActionConfirmed,
			description: "Placement confirmed, payment released",
			apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
				split := c.Split()
				if err := c.Complete(split, req.Notes, now); err != nil {
					return err
				}
				if _, err := PayOut(ctx, repos, c, split, now); err != nil {
					return err
				}
				if err := repos.Channels().IncrementCompletedOrders(ctx, c.ChannelID); err != nil {
					return fmt.Errorf("increment completed orders: %w", err)
				}
				s.logger.Info("Campaign settled",
					zap.String("campaign_id", c.ID.String()),
					zap.String("commission", split.Commission.String()),
					zap.String("payout", split.Payout.String()))
				return nil
			},
		})
	}

	reason := strings.TrimSpace(req.DisputeReason)
	if reason == "" {
		return nil, shared.NewValidationError("Dispute reason is required when the placement is not confirmed")
	}
	return s.mutate(ctx, campaignID, actorID, step{
		event:       campaign.EventDispute,
		party:       partySeller,
		action:      campaign.ActionDisputed,
		description: "Placement disputed: " + reason,
		apply: func(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, now time.Time) error {
			if err := c.Dispute(reason, now); err != nil {
				return err
			}
			d, err := dispute.Open(c.ID, actorID, reason, now)
			if err != nil {
				return err
			}
			if err := repos.Disputes().Create(ctx, d); err != nil {
				return fmt.Errorf("open dispute: %w", err)
			}
			s.logger.Info("Dispute opened",
				zap.String("campaign_id", c.ID.String()),
				zap.String("dispute_id", d.ID.String()))
			return nil
		},
	})
}

// mutate runs one transition of an existing campaign as a unit of work:
// lock, authorize, transition, move money, persist, log activity, publish.
func (s *Service) mutate(ctx context.Context, campaignID, actorID uuid.UUID, st step) (*CampaignResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", string(st.event)+"_campaign")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCampaignID, campaignID.String(),
		telemetry.SpanAttrActorID, actorID.String(),
	)

	var result *campaign.Campaign
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		c, err := repos.Campaigns().FindByIDForUpdate(ctx, campaignID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repos, c, actorID, st); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := st.apply(ctx, repos, c, now); err != nil {
			return err
		}
		if err := repos.Campaigns().SaveWithLock(ctx, c); err != nil {
			return err
		}
		if err := s.finish(ctx, repos, c, campaign.NewActivity(c.ID, actorID, st.action, st.description, now)); err != nil {
			return err
		}
		result = c
		return nil
	})
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		err = s.lostRace(ctx, campaignID, st.event, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.HasCode(err, shared.CodeIntegrityFailure) {
			s.logger.Error("Campaign transition rolled back",
				zap.String("campaign_id", campaignID.String()),
				zap.String("event", string(st.event)),
				zap.Error(err))
		}
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCampaignStatus, string(result.Status))
	s.logger.Info("Campaign transitioned",
		zap.String("campaign_id", result.ID.String()),
		zap.String("event", string(st.event)),
		zap.String("status", string(result.Status)))

	resp := ToCampaignResponse(result)
	return &resp, nil
}

// finish writes the activity entry and hands the campaign's events to the
// outbox of the same transaction
func (s *Service) finish(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, activity *campaign.Activity) error {
	if err := repos.Activities().Create(ctx, activity); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	if events := c.GetDomainEvents(); len(events) > 0 {
		if publisher := repos.Events(); publisher != nil {
			if err := publisher.Publish(ctx, events...); err != nil {
				return fmt.Errorf("publish campaign events: %w", err)
			}
		}
	}
	c.ClearDomainEvents()
	return nil
}

func (s *Service) authorize(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, actorID uuid.UUID, st step) error {
	switch st.party {
	case partySeller:
		seller, err := repos.Sellers().FindByID(ctx, c.SellerID)
		if err != nil {
			return err
		}
		if seller.UserID != actorID {
			return shared.NewDomainError(shared.CodeForbidden,
				fmt.Sprintf("Only the campaign's seller can %s it", st.event))
		}
	case partyChannelOwner:
		channel, err := repos.Channels().FindByID(ctx, c.ChannelID)
		if err != nil {
			return err
		}
		if !channel.IsOwnedBy(actorID) {
			return shared.NewDomainError(shared.CodeForbidden,
				fmt.Sprintf("Only the channel owner can %s this campaign", st.event))
		}
	}
	return nil
}

// lostRace turns a version conflict into the state error the winner's
// transition implies for this caller
func (s *Service) lostRace(ctx context.Context, campaignID uuid.UUID, event campaign.Event, cause error) error {
	current, err := s.repos.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return cause
	}
	if _, ok := current.Status.Next(event); ok {
		return cause
	}
	return campaign.ErrInvalidTransition(event, current.Status)
}
