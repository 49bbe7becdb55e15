//go:build integration

package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/admarket/backend/internal/application/admin"
	"github.com/admarket/backend/internal/application/dispute"
	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/event"
	"github.com/admarket/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

type escrowEnv struct {
	*TestDB
	m        *Marketplace
	escrow   *escrow.Service
	disputes *dispute.Service
	seller   uuid.UUID
	owner    uuid.UUID
	sellerID uuid.UUID
	channel  uuid.UUID
}

func newEscrowEnv(t *testing.T, balance int64) *escrowEnv {
	t.Helper()
	tdb := NewTestDB(t)
	m := tdb.Marketplace()

	sellerUser, ownerUser := uuid.New(), uuid.New()
	seller := tdb.SeedSeller(sellerUser, balance)
	channel := tdb.SeedChannel(ownerUser, "Go Weekly")

	return &escrowEnv{
		TestDB: tdb,
		m:      m,
		escrow: escrow.NewService(m.Scope, escrow.Repositories{
			Sellers:    m.Sellers,
			Channels:   m.Channels,
			Campaigns:  m.Campaigns,
			Activities: m.Activities,
		}, zap.NewNop()),
		disputes: dispute.NewService(m.Scope, m.Disputes, m.Campaigns, zap.NewNop()),
		seller:   sellerUser,
		owner:    ownerUser,
		sellerID: seller.ID,
		channel:  channel.ID,
	}
}

func (e *escrowEnv) create(t *testing.T, budget int64) (*escrow.CampaignResponse, error) {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	return e.escrow.CreateCampaign(context.Background(), e.seller, escrow.CreateCampaignRequest{
		ChannelID: e.channel,
		Budget:    decimal.NewFromInt(budget),
		StartDate: start,
		EndDate:   start.Add(48 * time.Hour),
		AdFormat:  "post",
	})
}

func (e *escrowEnv) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	seller, err := e.m.Sellers.FindByID(context.Background(), e.sellerID)
	require.NoError(t, err)
	return seller.Balance
}

func assertMoney(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "%s: want %d, got %s", msg, want, got)
}

func TestCampaignLifecycle_Postgres(t *testing.T) {
	ctx := context.Background()
	e := newEscrowEnv(t, 10000)

	c, err := e.create(t, 3000)
	require.NoError(t, err)
	assertMoney(t, 7000, e.balance(t), "held on create")

	_, err = e.escrow.AcceptCampaign(ctx, c.ID, e.owner, escrow.AcceptCampaignRequest{})
	require.NoError(t, err)
	_, err = e.escrow.SubmitCampaign(ctx, c.ID, e.owner, escrow.SubmitCampaignRequest{ProofURL: "https://t.me/goweekly/7"})
	require.NoError(t, err)
	done, err := e.escrow.ConfirmCampaign(ctx, c.ID, e.seller, escrow.ConfirmCampaignRequest{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusCompleted, done.Status)

	channel, err := e.m.Channels.FindByID(ctx, e.channel)
	require.NoError(t, err)
	assertMoney(t, 2700, channel.TotalEarned, "channel payout")
	assert.Equal(t, 1, channel.CompletedOrders)

	txs, err := e.m.Transactions.ListByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 3, "hold, commission and payment")

	activities, err := e.escrow.ListActivities(ctx, c.ID, escrow.Actor{UserID: e.seller})
	require.NoError(t, err)
	assert.Len(t, activities, 4)

	stats, err := e.m.Outbox.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats[shared.OutboxStatusPending], "one event per transition")
}

func TestPlatformStatsAndBlock_Postgres(t *testing.T) {
	ctx := context.Background()
	e := newEscrowEnv(t, 10000)
	svc := admin.NewService(e.m.Scope, admin.Repositories{
		Sellers:      e.m.Sellers,
		Channels:     e.m.Channels,
		Campaigns:    e.m.Campaigns,
		Transactions: e.m.Transactions,
		Actions:      e.m.AdminActions,
	}, zap.NewNop())

	c, err := e.create(t, 3000)
	require.NoError(t, err)
	_, err = e.escrow.AcceptCampaign(ctx, c.ID, e.owner, escrow.AcceptCampaignRequest{})
	require.NoError(t, err)
	_, err = e.escrow.SubmitCampaign(ctx, c.ID, e.owner, escrow.SubmitCampaignRequest{ProofURL: "https://t.me/goweekly/8"})
	require.NoError(t, err)
	_, err = e.escrow.ConfirmCampaign(ctx, c.ID, e.seller, escrow.ConfirmCampaignRequest{Confirmed: true})
	require.NoError(t, err)

	_, err = svc.BlockUser(ctx, e.owner, testutil.TestAdminUserID(), admin.BlockUserRequest{Reason: "fake subscriber counts"})
	require.NoError(t, err)

	stats, err := svc.GetPlatformStats(ctx, shared.Period{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalAccounts)
	assert.Equal(t, int64(1), stats.ActiveSellers)
	assert.Zero(t, stats.ActiveChannels)
	assert.Equal(t, int64(1), stats.CompletedCampaigns)
	assertMoney(t, 2700, stats.GMV, "gmv")
	assertMoney(t, 300, stats.PlatformRevenue, "revenue")
}

func TestDisputeRefund_Postgres(t *testing.T) {
	ctx := context.Background()
	e := newEscrowEnv(t, 10000)

	c, err := e.create(t, 3000)
	require.NoError(t, err)
	_, err = e.escrow.AcceptCampaign(ctx, c.ID, e.owner, escrow.AcceptCampaignRequest{})
	require.NoError(t, err)
	_, err = e.escrow.SubmitCampaign(ctx, c.ID, e.owner, escrow.SubmitCampaignRequest{ProofURL: "https://t.me/goweekly/8"})
	require.NoError(t, err)
	_, err = e.escrow.ConfirmCampaign(ctx, c.ID, e.seller, escrow.ConfirmCampaignRequest{DisputeReason: "deleted after an hour"})
	require.NoError(t, err)

	d, err := e.m.Disputes.FindOpenByCampaign(ctx, c.ID)
	require.NoError(t, err)

	res, err := e.disputes.ResolveDispute(ctx, d.ID, uuid.New(), dispute.ResolveDisputeRequest{Decision: "refund"})
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusResolved, res.Campaign.Status)
	assertMoney(t, 10000, e.balance(t), "seller made whole")
}

// Concurrent creates race for one balance. The guarded debit lets exactly
// as many through as the balance covers and never goes negative.
func TestConcurrentCreates_NeverOverdraw(t *testing.T) {
	e := newEscrowEnv(t, 5000)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.create(t, 1000)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case shared.HasCode(err, shared.CodeInsufficientFunds):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, refused)
	assertMoney(t, 0, e.balance(t), "balance")

	seller, err := e.m.Sellers.FindByID(context.Background(), e.sellerID)
	require.NoError(t, err)
	assertMoney(t, 5000, seller.TotalSpent, "total spent")
	assert.Equal(t, 5, seller.TotalCampaigns)
}

// Accept and reject of the same pending campaign race on the row lock.
// One wins; the loser sees the winner's state and nothing is refunded twice.
func TestConcurrentAcceptReject_OneWins(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		e := newEscrowEnv(t, 10000)
		c, err := e.create(t, 2000)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = e.escrow.AcceptCampaign(ctx, c.ID, e.owner, escrow.AcceptCampaignRequest{})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = e.escrow.RejectCampaign(ctx, c.ID, e.owner, escrow.RejectCampaignRequest{Reason: "full this week"})
		}()
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			assert.True(t, shared.HasCode(err, shared.CodeInvalidStateTransition), "loser error: %v", err)
		}
		require.Equal(t, 1, winners, "round %d", round)

		got, err := e.m.Campaigns.FindByID(ctx, c.ID)
		require.NoError(t, err)
		switch got.Status {
		case campaign.StatusAccepted:
			assertMoney(t, 8000, e.balance(t), "still held")
		case campaign.StatusRejected:
			assertMoney(t, 10000, e.balance(t), "refunded once")
		default:
			t.Fatalf("unexpected status %s", got.Status)
		}
	}
}

func TestSchemaConstraints(t *testing.T) {
	tdb := NewTestDB(t)
	seller := tdb.SeedSeller(uuid.New(), 100)

	err := tdb.DB.Exec("UPDATE sellers SET balance = -1 WHERE id = ?", seller.ID).Error
	assert.Error(t, err, "balance cannot go negative")

	e := newEscrowEnv(t, 10000)
	c, err := e.create(t, 1000)
	require.NoError(t, err)

	insertDispute := func() error {
		return e.DB.Exec(`INSERT INTO campaign_disputes (id, campaign_id, initiated_by_user_id, reason, status, created_at)
			VALUES (?, ?, ?, 'test', 'open', NOW())`, uuid.New(), c.ID, e.seller).Error
	}
	require.NoError(t, insertDispute())
	assert.Error(t, insertDispute(), "one open dispute per campaign")

	err = e.DB.Exec("UPDATE campaigns SET status = 'archived' WHERE id = ?", c.ID).Error
	assert.Error(t, err, "unknown status")
}

func TestOutboxProcessor_DeliversCommittedEvents(t *testing.T) {
	ctx := context.Background()
	e := newEscrowEnv(t, 10000)

	c, err := e.create(t, 1000)
	require.NoError(t, err)
	_, err = e.escrow.CancelCampaign(ctx, c.ID, e.seller, escrow.CancelCampaignRequest{})
	require.NoError(t, err)

	recorder := testutil.NewRecordingPublisher()
	processor := event.NewOutboxProcessor(e.m.Outbox, recorder, event.NewCampaignSerializer(), event.OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, processor.Start(ctx))
	t.Cleanup(func() { _ = processor.Stop(context.Background()) })

	require.Eventually(t, func() bool {
		return len(recorder.Events()) == 2
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{campaign.EventTypeCampaignCreated, campaign.EventTypeCampaignCancelled}, recorder.EventTypes())

	require.Eventually(t, func() bool {
		stats, err := e.m.Outbox.CountByStatus(ctx)
		return err == nil && stats[shared.OutboxStatusSent] == 2
	}, 5*time.Second, 50*time.Millisecond)
}
