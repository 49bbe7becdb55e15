// Package dispute settles contested placements. An administrator's ruling
// moves the escrowed budget to the seller, the channel owner, or splits it
// between them, and closes the campaign.
package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/dispute"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service resolves disputes
type Service struct {
	scope     uow.TransactionScope
	disputes  dispute.Repository
	campaigns campaign.Repository
	clock     escrow.Clock
	logger    *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(clock escrow.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates the dispute service
func NewService(scope uow.TransactionScope, disputes dispute.Repository, campaigns campaign.Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		scope:     scope,
		disputes:  disputes,
		campaigns: campaigns,
		clock:     shared.SystemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveDispute applies an administrator's ruling. The dispute, the
// campaign and every balance it touches change in one unit of work.
func (s *Service) ResolveDispute(ctx context.Context, disputeID, adminID uuid.UUID, req ResolveDisputeRequest) (*ResolutionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dispute", "resolve_dispute")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDisputeID, disputeID.String(),
		telemetry.SpanAttrActorID, adminID.String(),
		telemetry.SpanAttrDecision, req.Decision,
	)

	decision, err := dispute.ParseDecision(req.Decision)
	if err != nil {
		return nil, err
	}

	var result *ResolutionResponse
	err = s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		d, err := repos.Disputes().FindByIDForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.Status != dispute.StatusOpen {
			return dispute.ErrAlreadyResolved
		}
		c, err := repos.Campaigns().FindByIDForUpdate(ctx, d.CampaignID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		ruling := dispute.Resolution{
			Decision:     decision,
			Notes:        req.Notes,
			AdminID:      adminID,
			RefundAmount: req.RefundAmount,
		}
		if err := d.Resolve(ruling, c.Budget, now); err != nil {
			return err
		}
		if err := c.Resolve(string(decision), now); err != nil {
			return err
		}

		outcome, err := s.settle(ctx, repos, c, decision, req.RefundAmount, now)
		if err != nil {
			return err
		}

		if err := repos.Disputes().SaveResolution(ctx, d); err != nil {
			return err
		}
		if err := repos.Campaigns().SaveWithLock(ctx, c); err != nil {
			return err
		}
		activity := campaign.NewActivity(c.ID, adminID, campaign.ActionResolved,
			fmt.Sprintf("Dispute resolved: %s", decision), now)
		if err := repos.Activities().Create(ctx, activity); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		if publisher := repos.Events(); publisher != nil {
			if err := publisher.Publish(ctx, c.GetDomainEvents()...); err != nil {
				return fmt.Errorf("publish campaign events: %w", err)
			}
		}
		c.ClearDomainEvents()

		outcome.Dispute = ToDisputeResponse(d)
		outcome.Campaign = escrow.ToCampaignResponse(c)
		result = outcome
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.HasCode(err, shared.CodeIntegrityFailure) {
			s.logger.Error("Dispute resolution rolled back",
				zap.String("dispute_id", disputeID.String()),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Dispute resolved",
		zap.String("dispute_id", disputeID.String()),
		zap.String("campaign_id", result.Campaign.ID.String()),
		zap.String("decision", string(decision)),
		zap.String("seller_refund", result.SellerRefund.String()),
		zap.String("channel_payout", result.ChannelPayout.String()))
	return result, nil
}

// settle moves the escrowed budget according to the decision
func (s *Service) settle(ctx context.Context, repos uow.TransactionalRepositories, c *campaign.Campaign, decision dispute.Decision, refundAmount *decimal.Decimal, now time.Time) (*ResolutionResponse, error) {
	out := &ResolutionResponse{
		SellerRefund:       decimal.Zero,
		ChannelPayout:      decimal.Zero,
		PlatformCommission: decimal.Zero,
	}

	switch decision {
	case dispute.DecisionRefund:
		if _, err := escrow.Refund(ctx, repos, c, c.Budget, "Dispute refund for campaign "+c.ID.String(), now); err != nil {
			return nil, err
		}
		out.SellerRefund = c.Budget

	case dispute.DecisionReleasePayment:
		split := c.Split()
		if _, err := escrow.PayOut(ctx, repos, c, split, now); err != nil {
			return nil, err
		}
		if err := repos.Channels().IncrementCompletedOrders(ctx, c.ChannelID); err != nil {
			return nil, fmt.Errorf("increment completed orders: %w", err)
		}
		out.ChannelPayout = split.Payout
		out.PlatformCommission = split.Commission

	case dispute.DecisionPartialRefund:
		refund := *refundAmount
		if _, err := escrow.Refund(ctx, repos, c, refund, "Partial dispute refund for campaign "+c.ID.String(), now); err != nil {
			return nil, err
		}
		payout := c.Budget.Sub(refund)
		if _, err := escrow.PayOut(ctx, repos, c, campaign.Split{Commission: decimal.Zero, Payout: payout}, now); err != nil {
			return nil, err
		}
		out.SellerRefund = refund
		out.ChannelPayout = payout
	}
	return out, nil
}

// ParseStatusFilter turns an optional query value into a dispute status filter
func ParseStatusFilter(raw string) (*dispute.Status, error) {
	if raw == "" {
		return nil, nil
	}
	status := dispute.Status(raw)
	if !status.IsValid() {
		return nil, shared.NewValidationError("Unknown dispute status %q", raw)
	}
	return &status, nil
}

// ListDisputes returns disputes, newest first, optionally by status
func (s *Service) ListDisputes(ctx context.Context, status *dispute.Status, page shared.Pagination) (*shared.Paginated[DisputeResponse], error) {
	page = page.Normalize()
	items, total, err := s.disputes.List(ctx, status, page)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	out := make([]DisputeResponse, len(items))
	for i := range items {
		out[i] = ToDisputeResponse(&items[i])
	}
	result := shared.NewPaginated(out, total, page.Page, page.PageSize)
	return &result, nil
}

// GetDispute returns a dispute with the campaign it contests
func (s *Service) GetDispute(ctx context.Context, disputeID uuid.UUID) (*DisputeDetailResponse, error) {
	d, err := s.disputes.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	c, err := s.campaigns.FindByID(ctx, d.CampaignID)
	if err != nil {
		return nil, err
	}
	return &DisputeDetailResponse{
		DisputeResponse: ToDisputeResponse(d),
		Campaign:        escrow.ToCampaignResponse(c),
	}, nil
}
