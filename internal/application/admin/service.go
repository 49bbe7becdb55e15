// Package admin serves platform operators: marketplace statistics and
// moderation of user accounts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/admin"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// SessionRevoker invalidates every token issued to a user before now
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string, now time.Time, ttl time.Duration) error
}

// Repositories are the read models the statistics are computed from
type Repositories struct {
	Sellers      account.SellerRepository
	Channels     account.ChannelRepository
	Campaigns    campaign.Repository
	Transactions ledger.TransactionRepository
	Actions      admin.ActionRepository
}

// Service answers administrator requests
type Service struct {
	scope     uow.TransactionScope
	repos     Repositories
	revoker   SessionRevoker
	revokeTTL time.Duration
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

// WithSessionRevoker revokes a blocked user's tokens. ttl must cover the
// longest token lifetime the issuer hands out.
func WithSessionRevoker(revoker SessionRevoker, ttl time.Duration) Option {
	return func(s *Service) {
		s.revoker = revoker
		s.revokeTTL = ttl
	}
}

// NewService creates the admin service
func NewService(scope uow.TransactionScope, repos Repositories, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		scope:  scope,
		repos:  repos,
		clock:  shared.SystemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseStatsDate turns an optional YYYY-MM-DD value into the UTC day it names
func ParseStatsDate(raw string) (shared.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shared.Period{}, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return shared.Period{}, shared.NewValidationError("Invalid date %q: expected YYYY-MM-DD", raw)
	}
	return shared.Day(day), nil
}

// GetPlatformStats reports marketplace totals. GMV is the sum of completed
// payments to channels and revenue the sum of completed commissions.
func (s *Service) GetPlatformStats(ctx context.Context, period shared.Period) (*PlatformStatsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "admin", "get_platform_stats")
	defer span.End()

	sellers, err := s.repos.Sellers.Count(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("count sellers: %w", err)
	}
	channels, err := s.repos.Channels.Count(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("count channels: %w", err)
	}
	campaigns, err := s.repos.Campaigns.CountByStatus(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("count campaigns: %w", err)
	}
	totals, err := s.repos.Transactions.SummarizeCompleted(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("summarize ledger: %w", err)
	}

	payments := totals[ledger.TransactionTypePayment]
	stats := &PlatformStatsResponse{
		TotalAccounts:      sellers.Total + channels.Total,
		ActiveSellers:      sellers.Active,
		ActiveChannels:     channels.Active,
		TotalCampaigns:     campaigns.Total(),
		CompletedCampaigns: campaigns[campaign.StatusCompleted],
		CompletionRate:     decimal.Zero,
		GMV:                payments.Amount,
		PlatformRevenue:    totals[ledger.TransactionTypeCommission].Amount,
	}
	if !period.IsOpen() {
		date := period.From.Format(dateLayout)
		stats.Date = &date
	}
	if stats.TotalCampaigns > 0 {
		stats.CompletionRate = decimal.NewFromInt(stats.CompletedCampaigns).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(stats.TotalCampaigns)).
			Round(2)
	}
	if payments.Count > 0 {
		avg := payments.Amount.Div(decimal.NewFromInt(payments.Count)).Round(2)
		stats.AverageTransaction = &avg
	}
	return stats, nil
}

// BlockUser deactivates the seller and channel accounts of userID and
// records the decision. An inactive seller cannot deposit or open
// campaigns and an inactive channel cannot be booked. Campaigns already in
// flight run to completion.
func (s *Service) BlockUser(ctx context.Context, userID, adminID uuid.UUID, req BlockUserRequest) (*BlockUserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "admin", "block_user")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTargetUserID, userID.String(),
		telemetry.SpanAttrActorID, adminID.String(),
	)

	if userID == adminID {
		return nil, shared.NewValidationError("Administrators cannot block themselves")
	}

	now := s.clock.Now()
	result := &BlockUserResponse{UserID: userID, BlockedAt: now}
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		seller, err := repos.Sellers().FindByUserID(ctx, userID)
		if err != nil && !errors.Is(err, account.ErrSellerNotFound) {
			return err
		}
		channel, err := repos.Channels().FindByOwnerUserID(ctx, userID)
		if err != nil && !errors.Is(err, account.ErrChannelNotFound) {
			return err
		}
		if seller == nil && channel == nil {
			return admin.ErrUserNotFound
		}
		if (seller == nil || !seller.IsActive) && (channel == nil || !channel.IsActive) {
			return admin.ErrUserAlreadyBlocked
		}

		if seller != nil {
			if err := repos.Sellers().Deactivate(ctx, seller.ID); err != nil {
				return fmt.Errorf("deactivate seller: %w", err)
			}
			result.SellerID = &seller.ID
		}
		if channel != nil {
			if err := repos.Channels().Deactivate(ctx, channel.ID); err != nil {
				return fmt.Errorf("deactivate channel: %w", err)
			}
			result.ChannelID = &channel.ID
		}

		action := admin.NewAction(adminID, admin.ActionUserBlocked, admin.TargetUser, userID,
			"User blocked: "+strings.TrimSpace(req.Reason), now)
		if err := repos.AdminActions().Create(ctx, action); err != nil {
			return fmt.Errorf("record admin action: %w", err)
		}
		result.ActionID = action.ID
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.revoker != nil {
		if err := s.revoker.RevokeUser(ctx, userID.String(), now, s.revokeTTL); err != nil {
			s.logger.Error("Failed to revoke sessions of blocked user",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("User blocked",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("action_id", result.ActionID.String()))
	return result, nil
}

// ListActions returns the admin audit log, newest first
func (s *Service) ListActions(ctx context.Context, page shared.Pagination) (*shared.Paginated[ActionResponse], error) {
	page = page.Normalize()
	items, total, err := s.repos.Actions.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}
	out := make([]ActionResponse, len(items))
	for i := range items {
		out[i] = ToActionResponse(&items[i])
	}
	result := shared.NewPaginated(out, total, page.Page, page.PageSize)
	return &result, nil
}
