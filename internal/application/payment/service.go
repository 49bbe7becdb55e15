// Package payment moves money into and out of the marketplace: seller
// deposits confirmed by the payment provider and channel owner
// withdrawals approved by an administrator.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Limits bound single deposits and withdrawals
type Limits struct {
	MinDeposit    decimal.Decimal
	MaxDeposit    decimal.Decimal
	MinWithdrawal decimal.Decimal
	MaxWithdrawal decimal.Decimal
}

// DefaultLimits returns the stock 100..500000 range for both directions
func DefaultLimits() Limits {
	return Limits{
		MinDeposit:    decimal.NewFromInt(100),
		MaxDeposit:    decimal.NewFromInt(500000),
		MinWithdrawal: decimal.NewFromInt(100),
		MaxWithdrawal: decimal.NewFromInt(500000),
	}
}

func checkRange(kind string, amount, min, max decimal.Decimal) error {
	if amount.LessThan(min) {
		return shared.NewValidationError("Minimum %s amount is %s", kind, min.String())
	}
	if amount.GreaterThan(max) {
		return shared.NewValidationError("Maximum %s amount is %s", kind, max.String())
	}
	return nil
}

// Repositories are the read paths used outside a unit of work
type Repositories struct {
	Sellers      account.SellerRepository
	Channels     account.ChannelRepository
	Transactions ledger.TransactionRepository
	Withdrawals  ledger.WithdrawalRepository
}

// Service handles deposits, withdrawals and balance queries
type Service struct {
	scope  uow.TransactionScope
	repos  Repositories
	limits Limits
	clock  escrow.Clock
	logger *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(clock escrow.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLimits overrides the deposit and withdrawal bounds
func WithLimits(limits Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// NewService creates the payment service
func NewService(scope uow.TransactionScope, repos Repositories, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		scope:  scope,
		repos:  repos,
		limits: DefaultLimits(),
		clock:  shared.SystemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDeposit records a pending top-up. The balance is credited only when
// the provider confirms it through CompleteDeposit.
func (s *Service) CreateDeposit(ctx context.Context, sellerUserID uuid.UUID, req CreateDepositRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_deposit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrActorID, sellerUserID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method),
	)

	if err := checkRange("deposit", req.Amount, s.limits.MinDeposit, s.limits.MaxDeposit); err != nil {
		return nil, err
	}
	seller, err := s.repos.Sellers.FindByUserID(ctx, sellerUserID)
	if err != nil {
		return nil, err
	}
	if !seller.IsActive {
		return nil, account.ErrSellerInactive
	}

	tx, err := ledger.NewDepositTransaction(seller.ID, req.Amount, req.Method, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Transactions.Create(ctx, tx); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	s.logger.Info("Deposit created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("seller_id", seller.ID.String()),
		zap.String("amount", tx.Amount.String()))
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// CompleteDeposit applies the provider's verdict on a pending deposit. Only
// the first call for a record has any effect; repeats return it unchanged.
func (s *Service) CompleteDeposit(ctx context.Context, req DepositWebhookRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "complete_deposit")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTransactionID, req.TransactionID.String())

	status := req.Status
	if status == "" {
		status = DepositSucceeded
	}

	var (
		result  *ledger.Transaction
		applied bool
	)
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		tx, err := repos.Transactions().FindByID(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if tx.Type != ledger.TransactionTypeDeposit || tx.SellerID == nil {
			return shared.NewValidationError("Transaction %s is not a deposit", tx.ID)
		}

		now := s.clock.Now()
		switch status {
		case DepositSucceeded:
			applied, err = repos.Transactions().CompleteIfPending(ctx, tx.ID, req.ExternalID, now)
			if err != nil {
				return err
			}
			if applied {
				if err := repos.Sellers().Credit(ctx, *tx.SellerID, tx.Amount); err != nil {
					return fmt.Errorf("credit deposit: %w", err)
				}
			}
		case DepositCanceled:
			applied, err = repos.Transactions().CancelIfPending(ctx, tx.ID, now)
			if err != nil {
				return err
			}
		default:
			return shared.NewValidationError("Unknown deposit status %q", status)
		}

		result, err = repos.Transactions().FindByID(ctx, tx.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if applied {
		s.logger.Info("Deposit settled",
			zap.String("transaction_id", result.ID.String()),
			zap.String("status", string(result.Status)),
			zap.String("amount", result.Amount.String()))
	} else {
		s.logger.Debug("Repeated deposit callback ignored",
			zap.String("transaction_id", result.ID.String()),
			zap.String("status", string(result.Status)))
	}
	resp := ToTransactionResponse(result)
	return &resp, nil
}

// RequestWithdrawal reserves part of a channel's available earnings and
// queues the payout for an administrator.
func (s *Service) RequestWithdrawal(ctx context.Context, ownerUserID uuid.UUID, req RequestWithdrawalRequest) (*WithdrawalResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "request_withdrawal")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrActorID, ownerUserID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method),
	)

	if err := checkRange("withdrawal", req.Amount, s.limits.MinWithdrawal, s.limits.MaxWithdrawal); err != nil {
		return nil, err
	}
	if !req.Method.IsValid() {
		return nil, ledger.ErrInvalidPaymentMethod(req.Method)
	}
	channel, err := s.repos.Channels.FindByOwnerUserID(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrChannelID, channel.ID.String())

	var w *ledger.WithdrawalRequest
	err = s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		now := s.clock.Now()
		if err := repos.Channels().HoldForWithdrawal(ctx, channel.ID, req.Amount); err != nil {
			return err
		}
		tx, err := ledger.NewWithdrawalTransaction(channel.ID, req.Amount, req.Method, now)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Create(ctx, tx); err != nil {
			return fmt.Errorf("record withdrawal: %w", err)
		}
		w, err = ledger.NewWithdrawalRequest(ownerUserID, tx, req.AccountDetails, now)
		if err != nil {
			return err
		}
		return repos.Withdrawals().Create(ctx, w)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("channel_id", channel.ID.String()),
		zap.String("amount", w.Amount.String()))
	resp := ToWithdrawalResponse(w)
	return &resp, nil
}

// ApproveWithdrawal pays out a pending request
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID, adminID uuid.UUID) (*WithdrawalResponse, error) {
	return s.ProcessWithdrawal(ctx, requestID, adminID, true, "")
}

// RejectWithdrawal refuses a pending request and releases the reservation
func (s *Service) RejectWithdrawal(ctx context.Context, requestID, adminID uuid.UUID, req RejectWithdrawalRequest) (*WithdrawalResponse, error) {
	return s.ProcessWithdrawal(ctx, requestID, adminID, false, req.Reason)
}

// ProcessWithdrawal settles or releases a reservation. The request, its
// ledger record and the channel totals change together.
func (s *Service) ProcessWithdrawal(ctx context.Context, requestID, adminID uuid.UUID, approve bool, reason string) (*WithdrawalResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "process_withdrawal")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrWithdrawalID, requestID.String(),
		telemetry.SpanAttrActorID, adminID.String(),
	)

	var w *ledger.WithdrawalRequest
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		w, err = repos.Withdrawals().FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		var flipped bool
		if approve {
			if err := w.Approve(adminID, now); err != nil {
				return err
			}
			if err := repos.Channels().SettleWithdrawal(ctx, w.ChannelID, w.Amount); err != nil {
				return fmt.Errorf("settle withdrawal: %w", err)
			}
			flipped, err = repos.Transactions().CompleteIfPending(ctx, w.TransactionID, "", now)
		} else {
			if err := w.Reject(adminID, reason, now); err != nil {
				return err
			}
			if err := repos.Channels().ReleaseHold(ctx, w.ChannelID, w.Amount); err != nil {
				return fmt.Errorf("release withdrawal hold: %w", err)
			}
			flipped, err = repos.Transactions().CancelIfPending(ctx, w.TransactionID, now)
		}
		if err != nil {
			return err
		}
		if !flipped {
			return shared.NewIntegrityError("process withdrawal",
				fmt.Errorf("transaction %s is no longer pending", w.TransactionID))
		}
		return repos.Withdrawals().SaveProcessed(ctx, w)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.HasCode(err, shared.CodeIntegrityFailure) {
			s.logger.Error("Withdrawal processing rolled back",
				zap.String("withdrawal_id", requestID.String()),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Withdrawal processed",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("status", string(w.Status)),
		zap.String("amount", w.Amount.String()),
		zap.String("admin_id", adminID.String()))
	resp := ToWithdrawalResponse(w)
	return &resp, nil
}

// GetBalance reports every account the user holds. A user with neither a
// seller nor a channel account gets NOT_FOUND.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceResponse, error) {
	seller, channel, err := s.accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if seller == nil && channel == nil {
		return nil, shared.ErrNotFound
	}

	out := &BalanceResponse{}
	if seller != nil {
		out.Seller = &SellerBalance{
			SellerID:   seller.ID,
			Balance:    seller.Balance,
			TotalSpent: seller.TotalSpent,
		}
	}
	if channel != nil {
		out.Channel = &ChannelBalance{
			ChannelID:         channel.ID,
			TotalEarned:       channel.TotalEarned,
			HeldForWithdrawal: channel.HeldForWithdrawal,
			Available:         channel.Available(),
		}
	}
	return out, nil
}

// ListTransactions returns the user's ledger records, newest first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page shared.Pagination) (*shared.Paginated[TransactionResponse], error) {
	page = page.Normalize()
	seller, channel, err := s.accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if seller == nil && channel == nil {
		result := shared.NewPaginated([]TransactionResponse{}, 0, page.Page, page.PageSize)
		return &result, nil
	}

	var sellerID, channelID *uuid.UUID
	if seller != nil {
		sellerID = &seller.ID
	}
	if channel != nil {
		channelID = &channel.ID
	}
	items, total, err := s.repos.Transactions.ListByAccounts(ctx, sellerID, channelID, page)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]TransactionResponse, len(items))
	for i := range items {
		out[i] = ToTransactionResponse(&items[i])
	}
	result := shared.NewPaginated(out, total, page.Page, page.PageSize)
	return &result, nil
}

// ParseWithdrawalStatus turns a query value into a status; empty means pending
func ParseWithdrawalStatus(raw string) (ledger.WithdrawalStatus, error) {
	if raw == "" {
		return ledger.WithdrawalStatusPending, nil
	}
	status := ledger.WithdrawalStatus(raw)
	if !status.IsValid() {
		return "", shared.NewValidationError("Unknown withdrawal status %q", raw)
	}
	return status, nil
}

// ListWithdrawals is the administrator's processing queue
func (s *Service) ListWithdrawals(ctx context.Context, status ledger.WithdrawalStatus, page shared.Pagination) (*shared.Paginated[WithdrawalResponse], error) {
	page = page.Normalize()
	if status == "" {
		status = ledger.WithdrawalStatusPending
	}
	items, total, err := s.repos.Withdrawals.ListByStatus(ctx, status, page)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	out := make([]WithdrawalResponse, len(items))
	for i := range items {
		out[i] = ToWithdrawalResponse(&items[i])
	}
	result := shared.NewPaginated(out, total, page.Page, page.PageSize)
	return &result, nil
}

// accounts loads the seller and channel a user holds; either may be nil
func (s *Service) accounts(ctx context.Context, userID uuid.UUID) (*account.Seller, *account.Channel, error) {
	seller, err := s.repos.Sellers.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, account.ErrSellerNotFound) {
			return nil, nil, err
		}
		seller = nil
	}
	channel, err := s.repos.Channels.FindByOwnerUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, account.ErrChannelNotFound) {
			return nil, nil, err
		}
		channel = nil
	}
	return seller, channel, nil
}
