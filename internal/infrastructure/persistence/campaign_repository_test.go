package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/campaign"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormCampaignRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a transition made on the current version", func(t *testing.T) {
		db := newSQLiteDB(t)
		repo := NewGormCampaignRepository(db)
		created := seedCampaign(t, db, uuid.New(), uuid.New(), 3000)

		c, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NoError(t, c.Accept("see you monday", time.Now().UTC()))
		require.NoError(t, repo.SaveWithLock(ctx, c))

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusAccepted, got.Status)
		assert.Equal(t, 2, got.Version)
		require.NotNil(t, got.OwnerNotes)
		assert.Equal(t, "see you monday", *got.OwnerNotes)
	})

	t.Run("a stale copy loses with a concurrency conflict", func(t *testing.T) {
		db := newSQLiteDB(t)
		repo := NewGormCampaignRepository(db)
		created := seedCampaign(t, db, uuid.New(), uuid.New(), 3000)

		first, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)

		require.NoError(t, first.Accept("", time.Now().UTC()))
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Reject("no slots", time.Now().UTC()))
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusAccepted, got.Status)
	})
}

func TestGormCampaignRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormCampaignRepository(db)

	sellerID := uuid.New()
	channelA := uuid.New()
	channelB := uuid.New()
	for i := 0; i < 3; i++ {
		seedCampaign(t, db, sellerID, channelA, 1000)
	}
	rejected := seedCampaign(t, db, sellerID, channelB, 2000)
	require.NoError(t, rejected.Reject("off topic", time.Now().UTC()))
	require.NoError(t, repo.SaveWithLock(ctx, rejected))
	seedCampaign(t, db, uuid.New(), channelA, 500)

	t.Run("lists a seller's campaigns with paging", func(t *testing.T) {
		items, total, err := repo.ListBySeller(ctx, sellerID, campaign.Filter{
			Pagination: shared.Pagination{Page: 1, PageSize: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, items, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := campaign.StatusRejected
		items, total, err := repo.ListBySeller(ctx, sellerID, campaign.Filter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, rejected.ID, items[0].ID)
	})

	t.Run("sorts by a whitelisted column", func(t *testing.T) {
		items, _, err := repo.ListBySeller(ctx, sellerID, campaign.Filter{SortBy: "budget", SortOrder: "desc"})
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, rejected.ID, items[0].ID)
	})

	t.Run("lists a channel's campaigns", func(t *testing.T) {
		_, total, err := repo.ListByChannel(ctx, channelA, campaign.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("counts by status", func(t *testing.T) {
		counts, err := repo.CountBySellerAndStatus(ctx, sellerID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts[campaign.StatusPending])
		assert.Equal(t, int64(1), counts[campaign.StatusRejected])
		assert.Equal(t, int64(4), counts.Total())

		counts, err = repo.CountByChannelAndStatus(ctx, channelB)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts.Total())
	})
}

func TestGormActivityRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormActivityRepository(db)
	campaignID := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, campaign.NewActivity(campaignID, userID, campaign.ActionCreated, "created", now)))
	require.NoError(t, repo.Create(ctx, campaign.NewActivity(campaignID, userID, campaign.ActionAccepted, "accepted", now.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, campaign.NewActivity(uuid.New(), userID, campaign.ActionCreated, "other", now)))

	activities, err := repo.ListByCampaign(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, campaign.ActionCreated, activities[0].ActionType)
	assert.Equal(t, campaign.ActionAccepted, activities[1].ActionType)
}

// Racing accept and reject on one pending campaign: exactly one wins, the
// budget is released at most once, and every loser sees a state error.
func TestConcurrentAcceptReject_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	seller := seedSeller(t, db, 10000)
	channel := seedChannel(t, db, 0)
	created := seedCampaign(t, db, seller.ID, channel.ID, 3000)
	require.NoError(t, NewGormSellerRepository(db).Debit(ctx, seller.ID, decimal.NewFromInt(3000)))

	scope := NewGormTransactionScope(db, nil)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			err := scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
				c, err := repos.Campaigns().FindByIDForUpdate(ctx, created.ID)
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				if accept {
					if err := c.Accept("", now); err != nil {
						return err
					}
					if err := repos.Campaigns().SaveWithLock(ctx, c); err != nil {
						return err
					}
					return repos.Channels().IncrementTotalOrders(ctx, c.ChannelID)
				}
				if err := c.Reject("busy", now); err != nil {
					return err
				}
				if err := repos.Campaigns().SaveWithLock(ctx, c); err != nil {
					return err
				}
				return repos.Sellers().AdjustSpend(ctx, c.SellerID, c.Budget.Neg())
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, workers-1)
	for _, err := range failures {
		assert.True(t,
			shared.HasCode(err, shared.CodeInvalidStateTransition) || errors.Is(err, shared.ErrConcurrencyConflict),
			"unexpected error: %v", err)
	}

	got, err := NewGormCampaignRepository(db).FindByID(ctx, created.ID)
	require.NoError(t, err)
	sellerAfter, err := NewGormSellerRepository(db).FindByID(ctx, seller.ID)
	require.NoError(t, err)

	switch got.Status {
	case campaign.StatusAccepted:
		assert.True(t, decimal.NewFromInt(7000).Equal(sellerAfter.Balance))
	case campaign.StatusRejected:
		assert.True(t, decimal.NewFromInt(10000).Equal(sellerAfter.Balance))
	default:
		t.Fatalf("campaign ended in %s", got.Status)
	}
}

func newMockCampaignDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestSaveWithLock_SQLShape(t *testing.T) {
	db, mock := newMockCampaignDB(t)
	repo := NewGormCampaignRepository(db)

	now := time.Now().UTC()
	c, err := campaign.NewCampaign(uuid.New(), uuid.New(), campaign.Terms{
		Budget:    decimal.NewFromInt(100),
		StartDate: now,
		EndDate:   now.Add(time.Hour),
	}, campaign.DefaultCommissionPercent, now)
	require.NoError(t, err)
	require.NoError(t, c.Accept("", now))

	mock.ExpectExec(`UPDATE "campaigns" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SaveWithLock(context.Background(), c)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSellerDebit_SQLShape(t *testing.T) {
	db, mock := newMockCampaignDB(t)
	repo := NewGormSellerRepository(db)
	sellerID := uuid.New()

	mock.ExpectExec(`UPDATE "sellers" SET .* WHERE id = \$\d+ AND balance >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "sellers" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version"}).
			AddRow(sellerID.String(), "12.50", 3))

	err := repo.Debit(context.Background(), sellerID, decimal.NewFromInt(20))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeInsufficientFunds))
	assert.Contains(t, err.Error(), "available 12.50")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelHold_SQLShape(t *testing.T) {
	db, mock := newMockCampaignDB(t)
	repo := NewGormChannelRepository(db)

	mock.ExpectExec(`UPDATE "channels" SET .* WHERE id = \$\d+ AND total_earned - held_for_withdrawal >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.HoldForWithdrawal(context.Background(), uuid.New(), decimal.NewFromInt(20)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
