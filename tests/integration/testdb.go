//go:build integration

// Package integration runs the marketplace against a real PostgreSQL started
// with testcontainers. The schema comes from the embedded migrations, so
// these tests also prove the SQL files match the GORM models.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/infrastructure/event"
	"github.com/admarket/backend/internal/infrastructure/migration"
	"github.com/admarket/backend/internal/infrastructure/persistence"
	"github.com/admarket/backend/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated database shared by the package's tests. Tables are
// truncated before each test that asks for it.
type TestDB struct {
	DB  *gorm.DB
	DSN string
	t   *testing.T
}

// NewTestDB returns a clean database on the shared container, starting the
// container and applying migrations on first use
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("admarket_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "start postgres container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "container connection string")

		runMigrations(t, dsn)
		sharedContainer = container
		sharedContainerDSN = dsn
	}

	tdb := &TestDB{DB: connect(t, sharedContainerDSN), DSN: sharedContainerDSN, t: t}
	tdb.CleanTables()
	return tdb
}

// CleanupSharedContainer terminates the shared container. Called from TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

// CleanTables empties every marketplace table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename != 'schema_migrations'
	`).Scan(&tables).Error)

	for _, table := range tables {
		require.NoError(tdb.t, tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error)
	}
}

// Marketplace holds the repositories and transaction scope over this database
type Marketplace struct {
	Scope        *persistence.GormTransactionScope
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

// Marketplace wires the production repositories and scope to this database
func (tdb *TestDB) Marketplace() *Marketplace {
	db := tdb.DB
	return &Marketplace{
		Scope: persistence.NewGormTransactionScope(db,
			event.NewOutboxPublisher(event.NewCampaignSerializer(), 5),
			persistence.WithLockTimeout(5*time.Second),
		),
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

// SeedSeller stores an active seller holding balance
func (tdb *TestDB) SeedSeller(userID uuid.UUID, balance int64) *account.Seller {
	tdb.t.Helper()
	seller, err := account.NewSeller(userID)
	require.NoError(tdb.t, err)
	seller.Balance = decimal.NewFromInt(balance)
	require.NoError(tdb.t, persistence.NewGormSellerRepository(tdb.DB).Save(context.Background(), seller))
	return seller
}

// SeedChannel stores an active channel owned by ownerUserID
func (tdb *TestDB) SeedChannel(ownerUserID uuid.UUID, title string) *account.Channel {
	tdb.t.Helper()
	channel, err := account.NewChannel(ownerUserID, title)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormChannelRepository(tdb.DB).Save(context.Background(), channel))
	return channel
}

func connect(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), SkipDefaultTransaction: true}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), cfg)
	require.NoError(t, err, "connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func runMigrations(t *testing.T, dsn string) {
	t.Helper()

	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.NewFromFS(conn, migrations.FS, zap.NewNop())
	require.NoError(t, err, "open embedded migrations")
	defer func() { _ = m.Close() }()
	require.NoError(t, m.Up(), "apply migrations")
}
