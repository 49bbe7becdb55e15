package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	// MaxBackoff caps the delay between delivery attempts
	MaxBackoff = 5 * time.Minute
)

// OutboxEntry is a domain event waiting for delivery. It is written in the
// same database transaction as the state change that raised the event.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a pending outbox entry for a serialized event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status, e.ProcessedAt, e.UpdatedAt = OutboxStatusSent, &now, now
}

// MarkFailed counts a failed attempt. Until MaxRetries is reached the entry
// waits for BackoffFor(RetryCount); after that it is dead and only an
// operator retry revives it.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now
	e.NextRetryAt = nil

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(BackoffFor(e.RetryCount))
	e.NextRetryAt = &next
}

// BackoffFor doubles DefaultBaseBackoff per failed attempt, capped at MaxBackoff
func BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		return DefaultBaseBackoff
	}
	if attempt > 16 {
		return MaxBackoff
	}
	return min(DefaultBaseBackoff<<uint(attempt-1), MaxBackoff)
}

// MarkUndeliverable dead-letters the entry without spending its retry
// budget. Used when the payload can never be decoded, so retrying is futile.
func (e *OutboxEntry) MarkUndeliverable(reason string) {
	e.Status = OutboxStatusDead
	e.LastError = reason
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
}

// ErrNotDead is returned when an operator retries an entry that is still in flight
var ErrNotDead = NewDomainError(CodeInvalidStateTransition, "Only dead outbox entries can be retried")

// ResetForRetry gives a dead entry a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return ErrNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose next retry is due before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing atomically claims entries and returns the ones this caller won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// ReleaseStale returns entries stuck in processing since before the
	// cutoff to pending. A processor that died mid-delivery leaves them there.
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
}
