package testutil

import (
	"context"
	"testing"

	"github.com/admarket/backend/internal/application/uow"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/infrastructure/event"
	"github.com/admarket/backend/internal/infrastructure/persistence"
	"github.com/admarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Marketplace is an in-memory database with every marketplace table, the
// real transaction scope writing to the outbox, and the repositories the
// application services read through.
type Marketplace struct {
	DB           *gorm.DB
	Scope        uow.TransactionScope
	Sellers      *persistence.GormSellerRepository
	Channels     *persistence.GormChannelRepository
	Campaigns    *persistence.GormCampaignRepository
	Activities   *persistence.GormActivityRepository
	Transactions *persistence.GormTransactionRepository
	Withdrawals  *persistence.GormWithdrawalRepository
	Disputes     *persistence.GormDisputeRepository
	AdminActions *persistence.GormAdminActionRepository
	Outbox       *event.GormOutboxRepository
}

// NewSQLiteDB opens an in-memory database with every marketplace table.
// A single connection keeps the database shared and serializes
// transactions the way row locks would on Postgres.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.SellerModel{},
		&models.ChannelModel{},
		&models.CampaignModel{},
		&models.CampaignActivityModel{},
		&models.TransactionModel{},
		&models.WithdrawalRequestModel{},
		&models.DisputeModel{},
		&models.OutboxEntryModel{},
		&models.AdminActionModel{},
	))
	return db
}

// NewMarketplace builds a Marketplace on a fresh in-memory database
func NewMarketplace(t *testing.T) *Marketplace {
	t.Helper()

	db := NewSQLiteDB(t)
	outbox := event.NewOutboxPublisher(event.NewCampaignSerializer(), 5)
	return &Marketplace{
		DB:           db,
		Scope:        persistence.NewGormTransactionScope(db, outbox),
		Sellers:      persistence.NewGormSellerRepository(db),
		Channels:     persistence.NewGormChannelRepository(db),
		Campaigns:    persistence.NewGormCampaignRepository(db),
		Activities:   persistence.NewGormActivityRepository(db),
		Transactions: persistence.NewGormTransactionRepository(db),
		Withdrawals:  persistence.NewGormWithdrawalRepository(db),
		Disputes:     persistence.NewGormDisputeRepository(db),
		AdminActions: persistence.NewGormAdminActionRepository(db),
		Outbox:       event.NewGormOutboxRepository(db),
	}
}

// SeedSeller stores an active seller for userID holding balance
func (m *Marketplace) SeedSeller(t *testing.T, userID uuid.UUID, balance int64) *account.Seller {
	t.Helper()
	seller, err := account.NewSeller(userID)
	require.NoError(t, err)
	seller.Balance = decimal.NewFromInt(balance)
	require.NoError(t, m.Sellers.Save(context.Background(), seller))
	return seller
}

// SeedChannel stores an active channel owned by ownerUserID
func (m *Marketplace) SeedChannel(t *testing.T, ownerUserID uuid.UUID, title string) *account.Channel {
	t.Helper()
	channel, err := account.NewChannel(ownerUserID, title)
	require.NoError(t, err)
	require.NoError(t, m.Channels.Save(context.Background(), channel))
	return channel
}

// Seller reloads a seller by ID
func (m *Marketplace) Seller(t *testing.T, id uuid.UUID) *account.Seller {
	t.Helper()
	seller, err := m.Sellers.FindByID(context.Background(), id)
	require.NoError(t, err)
	return seller
}

// Channel reloads a channel by ID
func (m *Marketplace) Channel(t *testing.T, id uuid.UUID) *account.Channel {
	t.Helper()
	channel, err := m.Channels.FindByID(context.Background(), id)
	require.NoError(t, err)
	return channel
}

// OutboxCount returns the number of outbox entries written so far
func (m *Marketplace) OutboxCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, m.DB.Model(&models.OutboxEntryModel{}).Count(&n).Error)
	return n
}
