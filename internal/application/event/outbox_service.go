// Package event exposes administration of the notification outbox.
// Operators inspect campaign notifications that exhausted their retries
// and put them back in the delivery queue once the broker is healthy.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CodeEntryNotFound = "ENTRY_NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

var ErrEntryNotFound = shared.NewDomainError(CodeEntryNotFound, "Outbox entry not found")

// retryAllBatch is how many dead entries one requeue round loads.
const retryAllBatch = 100

// DeadLetterStore is the slice of the outbox store administration needs.
type DeadLetterStore interface {
	FindDead(ctx context.Context, page shared.Pagination) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

type OutboxService struct {
	store  DeadLetterStore
	logger *zap.Logger
}

func NewOutboxService(store DeadLetterStore, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{store: store, logger: logger.Named("outbox_admin")}
}

// OutboxEntryDTO is the operator's view of one notification. Every
// outbox event is raised by a campaign, so the aggregate is shown as such.
type OutboxEntryDTO struct {
	ID          uuid.UUID       `json:"id"`
	EventID     uuid.UUID       `json:"event_id"`
	EventType   string          `json:"event_type"`
	CampaignID  uuid.UUID       `json:"campaign_id"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newOutboxEntryDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	dto := OutboxEntryDTO{
		ID:          e.ID,
		EventID:     e.EventID,
		EventType:   e.EventType,
		CampaignID:  e.AggregateID,
		Status:      string(e.Status),
		Attempts:    e.RetryCount,
		MaxAttempts: e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		SentAt:      e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if json.Valid(e.Payload) {
		dto.Payload = e.Payload
	}
	return dto
}

// OutboxStatsDTO counts entries per delivery status. Backlog is what is
// still owed to subscribers: pending, in flight and awaiting retry.
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Backlog    int64 `json:"backlog"`
	Total      int64 `json:"total"`
}

// GetDeadLetterEntries pages through dead entries, most recent failure first.
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, page shared.Pagination) (*shared.Paginated[OutboxEntryDTO], error) {
	page = page.Normalize()
	entries, total, err := s.store.FindDead(ctx, page)
	if err != nil {
		return nil, s.internal("Failed to load dead letter entries", err)
	}

	items := make([]OutboxEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, newOutboxEntryDTO(e))
	}
	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := newOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry requeues one dead entry with a fresh retry budget. Entries
// that are still in flight are refused with INVALID_STATE_TRANSITION.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, entry); err != nil {
		return nil, s.internal("Failed to requeue entry", err, zap.Stringer("entry_id", id))
	}

	s.logger.Info("dead letter requeued",
		zap.Stringer("entry_id", id),
		zap.String("event_type", entry.EventType),
		zap.Stringer("campaign_id", entry.AggregateID),
	)
	dto := newOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry and returns how many moved.
// Requeued entries leave the dead set, so each round reads the first page
// again. A round that moves nothing ends the sweep.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var requeued int64
	first := shared.Pagination{Page: 1, PageSize: retryAllBatch}

	for {
		entries, _, err := s.store.FindDead(ctx, first)
		if err != nil {
			return requeued, s.internal("Failed to load dead letter entries", err)
		}

		moved := s.requeue(ctx, entries)
		requeued += moved
		if moved == 0 || len(entries) < retryAllBatch {
			break
		}
	}

	s.logger.Info("dead letters requeued", zap.Int64("count", requeued))
	return requeued, nil
}

func (s *OutboxService) requeue(ctx context.Context, entries []*shared.OutboxEntry) int64 {
	var moved int64
	for _, e := range entries {
		if e.ResetForRetry() != nil {
			continue
		}
		if err := s.store.Update(ctx, e); err != nil {
			s.logger.Error("requeue failed", zap.Stringer("entry_id", e.ID), zap.Error(err))
			continue
		}
		moved++
	}
	return moved
}

func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, s.internal("Failed to count outbox entries", err)
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	stats.Backlog = stats.Pending + stats.Processing + stats.Failed
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *OutboxService) load(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound), err == nil && entry == nil:
		return nil, ErrEntryNotFound
	case err != nil:
		return nil, s.internal("Failed to load outbox entry", err, zap.Stringer("entry_id", id))
	}
	return entry, nil
}

func (s *OutboxService) internal(msg string, err error, fields ...zap.Field) error {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return shared.WrapDomainError(CodeInternal, msg, err)
}
