package payment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/admarket/backend/internal/application/payment"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/ledger"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	*testutil.Marketplace
	svc     *payment.Service
	seller  *account.Seller
	channel *account.Channel
}

func newFixture(t *testing.T, earned int64) *fixture {
	t.Helper()
	m := testutil.NewMarketplace(t)
	f := &fixture{
		Marketplace: m,
		svc: payment.NewService(m.Scope, payment.Repositories{
			Sellers:      m.Sellers,
			Channels:     m.Channels,
			Transactions: m.Transactions,
			Withdrawals:  m.Withdrawals,
		}, zap.NewNop(), payment.WithClock(shared.FixedClock{At: testutil.FixedTime})),
		seller:  m.SeedSeller(t, testutil.TestSellerUserID(), 0),
		channel: m.SeedChannel(t, testutil.TestOwnerUserID(), "Go Weekly"),
	}
	if earned > 0 {
		require.NoError(t, m.Channels.CreditEarnings(context.Background(), f.channel.ID, decimal.NewFromInt(earned)))
	}
	return f
}

func assertMoney(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "%s: want %d, got %s", msg, want, got)
}

func (f *fixture) withdraw(t *testing.T, amount int64) *payment.WithdrawalResponse {
	t.Helper()
	w, err := f.svc.RequestWithdrawal(context.Background(), testutil.TestOwnerUserID(), payment.RequestWithdrawalRequest{
		Amount:         decimal.NewFromInt(amount),
		Method:         ledger.PaymentMethodBankTransfer,
		AccountDetails: "DE89370400440532013000",
	})
	require.NoError(t, err)
	return w
}

func TestDeposit_CreditedOnlyOnceOnConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	tx, err := f.svc.CreateDeposit(ctx, testutil.TestSellerUserID(), payment.CreateDepositRequest{
		Amount: decimal.NewFromInt(5000),
		Method: ledger.PaymentMethodCardMir,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusPending, tx.Status)
	assert.True(t, f.Seller(t, f.seller.ID).Balance.IsZero(), "pending deposit is not spendable")

	done, err := f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: tx.ID, ExternalID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCompleted, done.Status)
	require.NotNil(t, done.ExternalID)
	assert.Equal(t, "pi_123", *done.ExternalID)
	assertMoney(t, 5000, f.Seller(t, f.seller.ID).Balance, "after first callback")

	again, err := f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: tx.ID, ExternalID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCompleted, again.Status)
	assertMoney(t, 5000, f.Seller(t, f.seller.ID).Balance, "repeated callback")
}

func TestDeposit_ConcurrentCallbacksCreditOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	tx, err := f.svc.CreateDeposit(ctx, testutil.TestSellerUserID(), payment.CreateDepositRequest{
		Amount: decimal.NewFromInt(1000),
		Method: ledger.PaymentMethodCardMir,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: tx.ID})
		}()
	}
	wg.Wait()
	assertMoney(t, 1000, f.Seller(t, f.seller.ID).Balance, "balance")
}

func TestDeposit_CanceledByProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	tx, err := f.svc.CreateDeposit(ctx, testutil.TestSellerUserID(), payment.CreateDepositRequest{
		Amount: decimal.NewFromInt(1000),
		Method: ledger.PaymentMethodCardMir,
	})
	require.NoError(t, err)

	got, err := f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: tx.ID, Status: payment.DepositCanceled})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCancelled, got.Status)

	got, err = f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCancelled, got.Status, "late success does not revive it")
	assert.True(t, f.Seller(t, f.seller.ID).Balance.IsZero())
}

func TestDeposit_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	for name, amount := range map[string]int64{"below minimum": 99, "above maximum": 500001} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateDeposit(ctx, testutil.TestSellerUserID(), payment.CreateDepositRequest{
				Amount: decimal.NewFromInt(amount),
				Method: ledger.PaymentMethodCardMir,
			})
			assert.True(t, shared.HasCode(err, shared.CodeValidation), "%v", err)
		})
	}

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.svc.CreateDeposit(ctx, testutil.TestSellerUserID(), payment.CreateDepositRequest{
			Amount: decimal.NewFromInt(500),
			Method: "barter",
		})
		assert.True(t, shared.HasCode(err, ledger.CodeInvalidPaymentMethod))
	})

	t.Run("not a seller", func(t *testing.T) {
		_, err := f.svc.CreateDeposit(ctx, uuid.New(), payment.CreateDepositRequest{
			Amount: decimal.NewFromInt(500),
			Method: ledger.PaymentMethodCardMir,
		})
		assert.ErrorIs(t, err, account.ErrSellerNotFound)
	})

	t.Run("callback for a withdrawal record", func(t *testing.T) {
		g := newFixture(t, 1000)
		w := g.withdraw(t, 500)
		_, err := g.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: w.TransactionID})
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})

	t.Run("callback for an unknown record", func(t *testing.T) {
		_, err := f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: uuid.New()})
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	})
}

func TestWithdrawal_ApproveSettlesEarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2700)

	w := f.withdraw(t, 2000)
	assert.Equal(t, ledger.WithdrawalStatusPending, w.Status)
	assert.Equal(t, "DE****3000", w.AccountDetails)

	channel := f.Channel(t, f.channel.ID)
	assertMoney(t, 2000, channel.HeldForWithdrawal, "held")
	assertMoney(t, 700, channel.Available(), "available")

	done, err := f.svc.ApproveWithdrawal(ctx, w.ID, testutil.TestAdminUserID())
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawalStatusCompleted, done.Status)

	channel = f.Channel(t, f.channel.ID)
	assertMoney(t, 700, channel.TotalEarned, "earned")
	assert.True(t, channel.HeldForWithdrawal.IsZero())

	tx, err := f.Transactions.FindByID(ctx, w.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCompleted, tx.Status)

	_, err = f.svc.RejectWithdrawal(ctx, w.ID, testutil.TestAdminUserID(), payment.RejectWithdrawalRequest{})
	assert.True(t, shared.HasCode(err, shared.CodeInvalidStateTransition))
	assertMoney(t, 700, f.Channel(t, f.channel.ID).TotalEarned, "nothing moved")
}

func TestWithdrawal_RejectReleasesHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2700)
	w := f.withdraw(t, 2000)

	done, err := f.svc.RejectWithdrawal(ctx, w.ID, testutil.TestAdminUserID(), payment.RejectWithdrawalRequest{})
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawalStatusRejected, done.Status)
	require.NotNil(t, done.ReasonIfRejected)
	assert.Equal(t, ledger.DefaultRejectionReason, *done.ReasonIfRejected)

	channel := f.Channel(t, f.channel.ID)
	assertMoney(t, 2700, channel.TotalEarned, "earned")
	assert.True(t, channel.HeldForWithdrawal.IsZero())

	tx, err := f.Transactions.FindByID(ctx, w.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionStatusCancelled, tx.Status)
}

func TestWithdrawal_CannotOverdrawAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2700)
	f.withdraw(t, 2000)

	_, err := f.svc.RequestWithdrawal(ctx, testutil.TestOwnerUserID(), payment.RequestWithdrawalRequest{
		Amount:         decimal.NewFromInt(701),
		Method:         ledger.PaymentMethodBankTransfer,
		AccountDetails: "1234",
	})
	assert.True(t, shared.HasCode(err, shared.CodeInsufficientFunds), "%v", err)
	assertMoney(t, 2000, f.Channel(t, f.channel.ID).HeldForWithdrawal, "held unchanged")

	page, err := f.svc.ListWithdrawals(ctx, "", shared.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total, "failed request leaves no row")
}

func TestWithdrawal_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000)

	_, err := f.svc.RequestWithdrawal(ctx, testutil.TestOwnerUserID(), payment.RequestWithdrawalRequest{
		Amount: decimal.NewFromInt(50), Method: ledger.PaymentMethodBankTransfer, AccountDetails: "1234",
	})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))

	_, err = f.svc.RequestWithdrawal(ctx, testutil.TestSellerUserID(), payment.RequestWithdrawalRequest{
		Amount: decimal.NewFromInt(500), Method: ledger.PaymentMethodBankTransfer, AccountDetails: "1234",
	})
	assert.ErrorIs(t, err, account.ErrChannelNotFound)

	_, err = f.svc.ApproveWithdrawal(ctx, uuid.New(), testutil.TestAdminUserID())
	assert.ErrorIs(t, err, ledger.ErrWithdrawalNotFound)
}

func TestBalanceAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2700)

	// the channel owner also buys ads
	f.SeedSeller(t, testutil.TestOwnerUserID(), 0)
	dep, err := f.svc.CreateDeposit(ctx, testutil.TestOwnerUserID(), payment.CreateDepositRequest{
		Amount: decimal.NewFromInt(300), Method: ledger.PaymentMethodCardMir,
	})
	require.NoError(t, err)
	_, err = f.svc.CompleteDeposit(ctx, payment.DepositWebhookRequest{TransactionID: dep.ID})
	require.NoError(t, err)
	f.withdraw(t, 1000)

	balance, err := f.svc.GetBalance(ctx, testutil.TestOwnerUserID())
	require.NoError(t, err)
	require.NotNil(t, balance.Seller)
	require.NotNil(t, balance.Channel)
	assertMoney(t, 300, balance.Seller.Balance, "seller balance")
	assertMoney(t, 1000, balance.Channel.HeldForWithdrawal, "held")
	assertMoney(t, 1700, balance.Channel.Available, "available")

	history, err := f.svc.ListTransactions(ctx, testutil.TestOwnerUserID(), shared.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), history.Total)

	sellerOnly, err := f.svc.GetBalance(ctx, testutil.TestSellerUserID())
	require.NoError(t, err)
	assert.Nil(t, sellerOnly.Channel)

	_, err = f.svc.GetBalance(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	empty, err := f.svc.ListTransactions(ctx, uuid.New(), shared.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestParseWithdrawalStatus(t *testing.T) {
	status, err := payment.ParseWithdrawalStatus("")
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawalStatusPending, status)

	status, err = payment.ParseWithdrawalStatus("rejected")
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawalStatusRejected, status)

	_, err = payment.ParseWithdrawalStatus("lost")
	assert.Error(t, err)
}
