package ledger

import (
	"context"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals aggregates ledger records of one type
type Totals struct {
	Count  int64
	Amount decimal.Decimal
}

// TransactionRepository persists ledger records
type TransactionRepository interface {
	Create(ctx context.Context, txs ...*Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// CompleteIfPending flips a pending record to completed and reports
	// whether this call did it. Concurrent callers see exactly one true.
	CompleteIfPending(ctx context.Context, id uuid.UUID, externalID string, now time.Time) (bool, error)
	// CancelIfPending is the cancel counterpart of CompleteIfPending
	CancelIfPending(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Transaction, error)
	// ListByAccounts returns records touching either account, newest first
	ListByAccounts(ctx context.Context, sellerID, channelID *uuid.UUID, page shared.Pagination) ([]Transaction, int64, error)
	// SummarizeCompleted totals completed records per type, counting those
	// completed within period
	SummarizeCompleted(ctx context.Context, period shared.Period) (map[TransactionType]Totals, error)
}

// WithdrawalRepository persists withdrawal requests
type WithdrawalRepository interface {
	Create(ctx context.Context, w *WithdrawalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*WithdrawalRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*WithdrawalRequest, error)
	// SaveProcessed persists an approve or reject only while the stored row
	// is still pending; otherwise it fails with INVALID_STATE_TRANSITION.
	SaveProcessed(ctx context.Context, w *WithdrawalRequest) error
	ListByStatus(ctx context.Context, status WithdrawalStatus, page shared.Pagination) ([]WithdrawalRequest, int64, error)
}
