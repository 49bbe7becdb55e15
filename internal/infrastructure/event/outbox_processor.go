package event

import (
	"context"
	"sync"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// ClaimTimeout bounds how long an entry stays claimed. Older claims
	// are assumed abandoned and go back to pending.
	ClaimTimeout     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	// CleanupSchedule is a standard five-field cron expression.
	CleanupSchedule string
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		ClaimTimeout:     5 * time.Minute,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupSchedule:  "0 3 * * *",
	}
}

// OutboxProcessor moves committed outbox entries to the event bus. Each
// poll it reclaims abandoned claims, then delivers new entries, then the
// failed ones whose backoff elapsed. A delivery failure never reaches the
// request that wrote the entry; it only schedules a retry.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cleanupJobs *cron.Cron
	cancel      context.CancelFunc
	loop        sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
	}
}

// Start schedules retention cleanup and launches the polling loop. It
// fails without starting anything if the cleanup schedule does not parse.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	if p.config.CleanupEnabled {
		jobs := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(zap.NewStdLog(p.logger)))))
		if _, err := jobs.AddFunc(p.config.CleanupSchedule, func() { p.cleanup(context.Background()) }); err != nil {
			return err
		}
		p.cleanupJobs = jobs
		jobs.Start()
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.loop.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("claim_timeout", p.config.ClaimTimeout),
		zap.Bool("cleanup", p.config.CleanupEnabled),
	)
	return nil
}

// Stop ends polling and waits for an in-flight batch and cleanup run, or
// for ctx to expire.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.loop.Wait()
		if p.cleanupJobs != nil {
			<-p.cleanupJobs.Stop().Done()
		}
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer p.loop.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) {
	now := time.Now()
	if p.config.ClaimTimeout > 0 {
		released, err := p.repo.ReleaseStale(ctx, now.Add(-p.config.ClaimTimeout))
		if err != nil {
			p.logger.Error("releasing stale outbox claims failed", zap.Error(err))
		} else if released > 0 {
			p.logger.Warn("released stale outbox claims", zap.Int64("count", released))
		}
	}

	fresh, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("loading pending outbox entries failed", zap.Error(err))
		return
	}
	p.deliverAll(ctx, fresh)

	due, err := p.repo.FindRetryable(ctx, now, p.config.BatchSize)
	if err != nil {
		p.logger.Error("loading retryable outbox entries failed", zap.Error(err))
		return
	}
	p.deliverAll(ctx, due)
}

// deliverAll claims the candidates and delivers the ones this processor
// won. Entries claimed concurrently by another instance are skipped.
func (p *OutboxProcessor) deliverAll(ctx context.Context, candidates []*shared.OutboxEntry) {
	if len(candidates) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, e := range candidates {
		ids = append(ids, e.ID)
	}

	won, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("claiming outbox entries failed", zap.Error(err))
		return
	}
	for _, entry := range won {
		p.deliver(ctx, entry)
	}
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("campaign_id", entry.AggregateID.String()),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		entry.MarkUndeliverable(err.Error())
		log.Error("outbox payload cannot be decoded, dead-lettered", zap.Error(err))
	} else if err := p.bus.Publish(ctx, event); err != nil {
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("outbox entry exhausted its retries", zap.Int("attempts", entry.RetryCount), zap.Error(err))
		} else {
			log.Error("outbox delivery failed", zap.Int("attempts", entry.RetryCount), zap.Error(err))
		}
	} else {
		entry.MarkSent()
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("saving outbox delivery state failed", zap.String("status", string(entry.Status)), zap.Error(err))
		return
	}
	if entry.Status == shared.OutboxStatusSent {
		log.Debug("outbox entry delivered")
	}
}

// cleanup deletes delivered entries older than the retention window.
// Failed and dead entries are kept for operators.
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("outbox cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("outbox cleanup removed delivered entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
