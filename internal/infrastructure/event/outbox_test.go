package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// capturingPublisher records published events and can be told to fail
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) published() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

func saveEvent(t *testing.T, db *gorm.DB, event shared.DomainEvent) {
	t.Helper()
	publisher := NewOutboxPublisher(NewCampaignSerializer(), 2)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(context.Background(), tx, event)
	}))
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	db := newOutboxDB(t)
	event := newCreatedEvent(t)
	saveEvent(t, db, event)

	repo := NewGormOutboxRepository(db)
	pending, err := repo.FindPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.EventID(), pending[0].EventID)
	assert.Equal(t, campaign.EventTypeCampaignCreated, pending[0].EventType)
	assert.Equal(t, campaign.AggregateTypeCampaign, pending[0].AggregateType)
	assert.Equal(t, 2, pending[0].MaxRetries)
	assert.NotEmpty(t, pending[0].Payload)
}

func TestOutboxPublisher_RejectsForeignTxProvider(t *testing.T) {
	publisher := NewOutboxPublisher(NewCampaignSerializer(), 0)
	err := publisher.SaveEvents(context.Background(), "not a tx", newCreatedEvent(t))
	assert.ErrorContains(t, err, "*gorm.DB")

	assert.NoError(t, publisher.SaveEvents(context.Background(), "ignored when empty"))
}

func TestOutboxPublisher_RolledBackWithTransaction(t *testing.T) {
	db := newOutboxDB(t)
	publisher := NewOutboxPublisher(NewCampaignSerializer(), 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.SaveEvents(context.Background(), tx, newCreatedEvent(t)); err != nil {
			return err
		}
		return errors.New("ledger write failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	saveEvent(t, db, newCreatedEvent(t))
	saveEvent(t, db, newCreatedEvent(t))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending[0].ID, pending[1].ID})
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, e := range claimed {
		assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
	}

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending[0].ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry in flight cannot be claimed twice")

	sent := claimed[0]
	sent.MarkSent()
	require.NoError(t, repo.Update(ctx, sent))

	dead := claimed[1]
	dead.MarkFailed("first")
	dead.MarkFailed("second")
	require.True(t, dead.IsDead())
	require.NoError(t, repo.Update(ctx, dead))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])

	deadEntries, total, err := repo.FindDead(ctx, shared.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, deadEntries, 1)
	assert.Equal(t, "second", deadEntries[0].LastError)

	got, err := repo.FindByID(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only delivered entries are cleaned up")
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	saveEvent(t, db, newCreatedEvent(t))

	pending, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	entry := pending[0]
	entry.MarkFailed("broker down")
	require.NoError(t, repo.Update(ctx, entry))

	due, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindRetryable(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func newTestProcessor(db *gorm.DB, publisher shared.EventPublisher) *OutboxProcessor {
	return NewOutboxProcessor(
		NewGormOutboxRepository(db),
		publisher,
		NewCampaignSerializer(),
		DefaultOutboxProcessorConfig(),
		zap.NewNop(),
	)
}

func TestOutboxProcessor_DeliversPendingEntries(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	event := newCreatedEvent(t)
	saveEvent(t, db, event)

	publisher := &capturingPublisher{}
	newTestProcessor(db, publisher).processBatch(ctx)

	delivered := publisher.published()
	require.Len(t, delivered, 1)
	assert.Equal(t, event.EventID(), delivered[0].EventID())
	_, ok := delivered[0].(*campaign.CampaignCreatedEvent)
	assert.True(t, ok)

	counts, err := NewGormOutboxRepository(db).CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_FailuresBackOffThenDie(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	saveEvent(t, db, newCreatedEvent(t))
	repo := NewGormOutboxRepository(db)

	processor := newTestProcessor(db, &capturingPublisher{err: errors.New("bus closed")})
	processor.processBatch(ctx)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

	// the retry is not due yet, so a second pass leaves it alone
	processor.processBatch(ctx)
	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

	require.NoError(t, db.Model(&models.OutboxEntryModel{}).
		Where("status = ?", shared.OutboxStatusFailed).
		Update("next_retry_at", time.Now().Add(-time.Second)).Error)
	processor.processBatch(ctx)

	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
}

func TestOutboxProcessor_UnknownEventTypeIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	entry := shared.NewOutboxEntry(newCreatedEvent(t), []byte(`{}`))
	entry.EventType = "LegacyEvent"
	require.NoError(t, repo.Save(ctx, entry))

	publisher := &capturingPublisher{}
	newTestProcessor(db, publisher).processBatch(ctx)

	assert.Empty(t, publisher.published())
	got, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDead(), "dead on the first attempt")
	assert.Zero(t, got.RetryCount)
	assert.Contains(t, got.LastError, "unknown event type")
}

func TestOutboxProcessor_MalformedPayloadIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	entry := shared.NewOutboxEntry(newCreatedEvent(t), []byte(`{"budget": [`))
	require.NoError(t, repo.Save(ctx, entry))

	newTestProcessor(db, &capturingPublisher{}).processBatch(ctx)

	got, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDead())
}

func TestOutboxProcessor_ReleasesStaleClaims(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	event := newCreatedEvent(t)
	saveEvent(t, db, event)

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	_, err = repo.MarkProcessing(ctx, []uuid.UUID{pending[0].ID})
	require.NoError(t, err)

	publisher := &capturingPublisher{}
	processor := newTestProcessor(db, publisher)

	processor.processBatch(ctx)
	assert.Empty(t, publisher.published(), "a fresh claim belongs to its owner")

	require.NoError(t, db.Model(&models.OutboxEntryModel{}).
		Where("id = ?", pending[0].ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)
	processor.processBatch(ctx)

	delivered := publisher.published()
	require.Len(t, delivered, 1)
	assert.Equal(t, event.EventID(), delivered[0].EventID())
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	ctx := context.Background()
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	saveEvent(t, db, newCreatedEvent(t))

	processor := newTestProcessor(db, &capturingPublisher{})
	processor.processBatch(ctx)

	processor.cleanup(ctx)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent], "recent entries are retained")

	processor.config.CleanupRetention = -time.Hour
	processor.cleanup(ctx)
	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	db := newOutboxDB(t)
	saveEvent(t, db, newCreatedEvent(t))
	publisher := &capturingPublisher{}

	processor := newTestProcessor(db, publisher)
	processor.config.PollInterval = 10 * time.Millisecond
	require.NoError(t, processor.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(publisher.published()) == 1 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))
}

func TestOutboxProcessor_InvalidCleanupSchedule(t *testing.T) {
	processor := newTestProcessor(newOutboxDB(t), &capturingPublisher{})
	processor.config.CleanupSchedule = "every now and then"
	assert.Error(t, processor.Start(context.Background()))
}
