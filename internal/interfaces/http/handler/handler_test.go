package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/admarket/backend/internal/application/admin"
	"github.com/admarket/backend/internal/application/dispute"
	"github.com/admarket/backend/internal/application/escrow"
	appevent "github.com/admarket/backend/internal/application/event"
	"github.com/admarket/backend/internal/application/payment"
	"github.com/admarket/backend/internal/domain/account"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/auth"
	"github.com/admarket/backend/internal/interfaces/http/handler"
	"github.com/admarket/backend/internal/interfaces/http/router"
	"github.com/admarket/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type okPinger struct{}

func (okPinger) Ping() error { return nil }

type api struct {
	*testutil.Marketplace
	client  *testutil.APIClient
	seller  *account.Seller
	channel *account.Channel

	sellerToken  string
	ownerToken   string
	adminToken   string
	gatewayToken string
}

func newAPI(t *testing.T, sellerBalance int64) *api {
	t.Helper()
	m := testutil.NewMarketplace(t)
	clock := shared.FixedClock{At: testutil.FixedTime}
	log := zap.NewNop()

	escrowSvc := escrow.NewService(m.Scope, escrow.Repositories{
		Sellers:    m.Sellers,
		Channels:   m.Channels,
		Campaigns:  m.Campaigns,
		Activities: m.Activities,
	}, log, escrow.WithClock(clock))
	paymentSvc := payment.NewService(m.Scope, payment.Repositories{
		Sellers:      m.Sellers,
		Channels:     m.Channels,
		Transactions: m.Transactions,
		Withdrawals:  m.Withdrawals,
	}, log, payment.WithClock(clock))
	disputeSvc := dispute.NewService(m.Scope, m.Disputes, m.Campaigns, log, dispute.WithClock(clock))
	adminSvc := admin.NewService(m.Scope, admin.Repositories{
		Sellers:      m.Sellers,
		Channels:     m.Channels,
		Campaigns:    m.Campaigns,
		Transactions: m.Transactions,
		Actions:      m.AdminActions,
	}, log, admin.WithClock(clock))

	engine := router.NewEngine(router.Handlers{
		Campaigns: handler.NewCampaignHandler(escrowSvc),
		Payments:  handler.NewPaymentHandler(paymentSvc),
		Admin:     handler.NewAdminHandler(adminSvc, disputeSvc, paymentSvc, appevent.NewOutboxService(m.Outbox, log)),
		System:    handler.NewSystemHandler("admarket", "test", okPinger{}),
	}, router.Options{
		Validator:   auth.NewTokenValidator(testutil.TestJWTConfig),
		GatewayRole: testutil.TestJWTConfig.GatewayRole,
		Logger:      log,
	})

	return &api{
		Marketplace:  m,
		client:       testutil.NewAPIClient(t, engine),
		seller:       m.SeedSeller(t, testutil.TestSellerUserID(), sellerBalance),
		channel:      m.SeedChannel(t, testutil.TestOwnerUserID(), "Go Weekly"),
		sellerToken:  testutil.SignToken(t, testutil.TestSellerUserID()),
		ownerToken:   testutil.SignToken(t, testutil.TestOwnerUserID()),
		adminToken:   testutil.SignToken(t, testutil.TestAdminUserID(), "admin"),
		gatewayToken: testutil.SignToken(t, uuid.New(), "payment_gateway"),
	}
}

func (a *api) createCampaign(t *testing.T, budget string) escrow.CampaignResponse {
	t.Helper()
	resp := a.client.Do(http.MethodPost, "/api/v1/campaigns", a.sellerToken, map[string]any{
		"channel_id":    a.channel.ID,
		"budget":        budget,
		"start_date":    testutil.FixedTime.Format(time.RFC3339),
		"end_date":      testutil.FixedTime.Add(48 * time.Hour).Format(time.RFC3339),
		"creative_text": "Try our Go course",
	}).RequireStatus(t, http.StatusCreated)
	var c escrow.CampaignResponse
	resp.Decode(t, &c)
	return c
}

func campaignPath(id uuid.UUID, action string) string {
	if action == "" {
		return "/api/v1/campaigns/" + id.String()
	}
	return fmt.Sprintf("/api/v1/campaigns/%s/%s", id, action)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

func TestCampaignLifecycle_OverHTTP(t *testing.T) {
	a := newAPI(t, 10000)
	c := a.createCampaign(t, "3000")
	assert.Equal(t, "pending", string(c.Status))

	a.client.Do(http.MethodPost, campaignPath(c.ID, "accept"), a.ownerToken, nil).RequireStatus(t, http.StatusOK)
	a.client.Do(http.MethodPost, campaignPath(c.ID, "submit"), a.ownerToken, map[string]string{
		"proof_url": "https://t.me/goweekly/42",
	}).RequireStatus(t, http.StatusOK)

	var done escrow.CampaignResponse
	a.client.Do(http.MethodPost, campaignPath(c.ID, "confirm"), a.sellerToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &done)
	assert.Equal(t, "completed", string(done.Status))

	var balance payment.BalanceResponse
	a.client.Do(http.MethodGet, "/api/v1/payments/balance", a.sellerToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &balance)
	require.NotNil(t, balance.Seller)
	assertMoney(t, "7000", balance.Seller.Balance, "seller balance")

	var stats escrow.ChannelStats
	a.client.Do(http.MethodGet, "/api/v1/channels/"+a.channel.ID.String()+"/stats", a.ownerToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &stats)
	assertMoney(t, "2700", stats.TotalEarned, "channel earned")
	assert.Equal(t, int64(1), stats.CompletedCampaigns)

	var activities []escrow.ActivityResponse
	a.client.Do(http.MethodGet, campaignPath(c.ID, "activities"), a.sellerToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &activities)
	assert.Len(t, activities, 4)

	list := a.client.Do(http.MethodGet, "/api/v1/sellers/me/campaigns?status=completed&sort_by=budget&sort_order=asc", a.sellerToken, nil).
		RequireStatus(t, http.StatusOK)
	require.NotNil(t, list.Meta)
	assert.Equal(t, int64(1), list.Meta.Total)
}

func TestCampaignErrors_MapToStatus(t *testing.T) {
	a := newAPI(t, 1000)
	c := a.createCampaign(t, "800")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"zero budget", http.MethodPost, "/api/v1/campaigns", a.sellerToken, map[string]any{
			"channel_id": a.channel.ID, "budget": "0",
			"start_date": testutil.FixedTime, "end_date": testutil.FixedTime.Add(time.Hour),
		}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed body", http.MethodPost, "/api/v1/campaigns", a.sellerToken, `{"budget":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"budget above balance", http.MethodPost, "/api/v1/campaigns", a.sellerToken, map[string]any{
			"channel_id": a.channel.ID, "budget": "500",
			"start_date": testutil.FixedTime, "end_date": testutil.FixedTime.Add(time.Hour),
		}, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"bad id", http.MethodGet, "/api/v1/campaigns/not-a-uuid", a.sellerToken, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown campaign", http.MethodGet, campaignPath(uuid.New(), ""), a.sellerToken, nil, http.StatusNotFound, "CAMPAIGN_NOT_FOUND"},
		{"outsider", http.MethodGet, campaignPath(c.ID, ""), testutil.SignToken(t, uuid.New()), nil, http.StatusForbidden, "FORBIDDEN"},
		{"seller cannot accept", http.MethodPost, campaignPath(c.ID, "accept"), a.sellerToken, nil, http.StatusForbidden, "FORBIDDEN"},
		{"submit before accept", http.MethodPost, campaignPath(c.ID, "submit"), a.ownerToken, map[string]string{
			"proof_url": "https://t.me/goweekly/1",
		}, http.StatusUnprocessableEntity, "INVALID_STATE_TRANSITION"},
		{"reject needs a reason", http.MethodPost, campaignPath(c.ID, "reject"), a.ownerToken, map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown sort column", http.MethodGet, "/api/v1/sellers/me/campaigns?sort_by=owner_notes", a.sellerToken, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown sort order", http.MethodGet, "/api/v1/sellers/me/campaigns?sort_by=budget&sort_order=up", a.sellerToken, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown status filter", http.MethodGet, "/api/v1/sellers/me/campaigns?status=archived", a.sellerToken, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no proof storage", http.MethodPost, campaignPath(c.ID, "proof-upload"), a.ownerToken, map[string]string{
			"content_type": "image/png",
		}, http.StatusServiceUnavailable, escrow.CodeProofUploadUnavailable},
		{"no token", http.MethodGet, "/api/v1/sellers/me/stats", "", nil, http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.client.Do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, resp.Code, "body: %s", resp.Raw)
			assert.Equal(t, tt.code, resp.ErrorCode())
			require.NotNil(t, resp.Error)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}

	assertMoney(t, "200", a.Seller(t, a.seller.ID).Balance, "only the first campaign is held")
}

func TestDisputeResolution_OverHTTP(t *testing.T) {
	a := newAPI(t, 10000)
	c := a.createCampaign(t, "3000")
	a.client.Do(http.MethodPost, campaignPath(c.ID, "accept"), a.ownerToken, map[string]string{"notes": "ok"}).RequireStatus(t, http.StatusOK)
	a.client.Do(http.MethodPost, campaignPath(c.ID, "submit"), a.ownerToken, map[string]string{"proof_url": "https://t.me/goweekly/7"}).RequireStatus(t, http.StatusOK)
	a.client.Do(http.MethodPost, campaignPath(c.ID, "confirm"), a.sellerToken, map[string]string{"dispute_reason": "post was removed"}).RequireStatus(t, http.StatusOK)

	a.client.Do(http.MethodGet, "/api/v1/admin/disputes", a.sellerToken, nil).RequireStatus(t, http.StatusForbidden)

	var disputes []dispute.DisputeResponse
	a.client.Do(http.MethodGet, "/api/v1/admin/disputes?status=open", a.adminToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &disputes)
	require.Len(t, disputes, 1)
	disputePath := "/api/v1/admin/disputes/" + disputes[0].ID.String()

	var detail dispute.DisputeDetailResponse
	a.client.Do(http.MethodGet, disputePath, a.adminToken, nil).RequireStatus(t, http.StatusOK).Decode(t, &detail)
	assert.Equal(t, c.ID, detail.Campaign.ID)

	resp := a.client.Do(http.MethodPost, disputePath+"/resolve", a.adminToken, map[string]string{"decision": "split"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_DECISION", resp.ErrorCode())

	resp = a.client.Do(http.MethodPost, disputePath+"/resolve", a.adminToken, map[string]string{"decision": "partial_refund"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "MISSING_REFUND_AMOUNT", resp.ErrorCode())

	var res dispute.ResolutionResponse
	a.client.Do(http.MethodPost, disputePath+"/resolve", a.adminToken, map[string]string{"decision": "refund"}).
		RequireStatus(t, http.StatusOK).Decode(t, &res)
	assertMoney(t, "3000", res.SellerRefund, "refund")
	assertMoney(t, "10000", a.Seller(t, a.seller.ID).Balance, "seller made whole")

	resp = a.client.Do(http.MethodPost, disputePath+"/resolve", a.adminToken, map[string]string{"decision": "refund"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestPayments_OverHTTP(t *testing.T) {
	a := newAPI(t, 0)

	var deposit payment.TransactionResponse
	a.client.Do(http.MethodPost, "/api/v1/payments/deposits", a.sellerToken, map[string]string{
		"amount": "5000", "payment_method": "sbp",
	}).RequireStatus(t, http.StatusCreated).Decode(t, &deposit)
	assert.Equal(t, "pending", string(deposit.Status))

	webhook := map[string]any{"transaction_id": deposit.ID, "external_id": "pay-1", "status": "succeeded"}
	a.client.Do(http.MethodPost, "/api/v1/payments/deposits/webhook", a.sellerToken, webhook).RequireStatus(t, http.StatusForbidden)
	a.client.Do(http.MethodPost, "/api/v1/payments/deposits/webhook", a.gatewayToken, webhook).RequireStatus(t, http.StatusOK)
	a.client.Do(http.MethodPost, "/api/v1/payments/deposits/webhook", a.gatewayToken, webhook).RequireStatus(t, http.StatusOK)
	assertMoney(t, "5000", a.Seller(t, a.seller.ID).Balance, "credited once")

	history := a.client.Do(http.MethodGet, "/api/v1/payments/transactions?page=1&page_size=10", a.sellerToken, nil).
		RequireStatus(t, http.StatusOK)
	assert.Equal(t, int64(1), history.Meta.Total)
	assert.Equal(t, 10, history.Meta.PageSize)

	resp := a.client.Do(http.MethodGet, "/api/v1/payments/transactions?page_size=500", a.sellerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	require.NoError(t, a.Channels.CreditEarnings(context.Background(), a.channel.ID, decimal.NewFromInt(2700)))
	var w payment.WithdrawalResponse
	a.client.Do(http.MethodPost, "/api/v1/payments/withdrawals", a.ownerToken, map[string]string{
		"amount": "2000", "payment_method": "card_mir", "account_details": "2200123456789010",
	}).RequireStatus(t, http.StatusCreated).Decode(t, &w)
	assert.Equal(t, "22****9010", w.AccountDetails)

	resp = a.client.Do(http.MethodPost, "/api/v1/payments/withdrawals", a.ownerToken, map[string]string{
		"amount": "1000", "payment_method": "card_mir", "account_details": "2200123456789010",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", resp.ErrorCode())

	pending := a.client.Do(http.MethodGet, "/api/v1/admin/withdrawals", a.adminToken, nil).RequireStatus(t, http.StatusOK)
	assert.Equal(t, int64(1), pending.Meta.Total)

	var approved payment.WithdrawalResponse
	a.client.Do(http.MethodPost, "/api/v1/admin/withdrawals/"+w.ID.String()+"/approve", a.adminToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &approved)
	assert.Equal(t, "completed", string(approved.Status))
	assertMoney(t, "700", a.Channel(t, a.channel.ID).TotalEarned, "earnings after payout")

	resp = a.client.Do(http.MethodPost, "/api/v1/admin/withdrawals/"+w.ID.String()+"/reject", a.adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestAdminOutbox_OverHTTP(t *testing.T) {
	a := newAPI(t, 10000)
	a.createCampaign(t, "1000")

	var stats appevent.OutboxStatsDTO
	a.client.Do(http.MethodGet, "/api/v1/admin/outbox/stats", a.adminToken, nil).RequireStatus(t, http.StatusOK).Decode(t, &stats)
	assert.Equal(t, int64(1), stats.Pending)

	resp := a.client.Do(http.MethodGet, "/api/v1/admin/outbox/entries/"+uuid.NewString(), a.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, appevent.CodeEntryNotFound, resp.ErrorCode())

	dead := a.client.Do(http.MethodGet, "/api/v1/admin/outbox/dead", a.adminToken, nil).RequireStatus(t, http.StatusOK)
	assert.Equal(t, int64(0), dead.Meta.Total)

	var retried handler.RetryAllResponse
	a.client.Do(http.MethodPost, "/api/v1/admin/outbox/dead/retry-all", a.adminToken, nil).
		RequireStatus(t, http.StatusOK).Decode(t, &retried)
	assert.Zero(t, retried.Count)

	var info handler.SystemInfoResponse
	a.client.Do(http.MethodGet, "/api/v1/admin/system/info", a.adminToken, nil).RequireStatus(t, http.StatusOK).Decode(t, &info)
	assert.Equal(t, "admarket", info.Name)
}

func TestAdminModeration_OverHTTP(t *testing.T) {
	a := newAPI(t, 10000)
	a.createCampaign(t, "1000")

	a.client.Do(http.MethodGet, "/api/v1/admin/stats", a.sellerToken, nil).RequireStatus(t, http.StatusForbidden)

	var stats admin.PlatformStatsResponse
	a.client.Do(http.MethodGet, "/api/v1/admin/stats", a.adminToken, nil).RequireStatus(t, http.StatusOK).Decode(t, &stats)
	assert.Equal(t, int64(1), stats.TotalCampaigns)
	assert.Equal(t, int64(1), stats.ActiveSellers)
	assertMoney(t, "0", stats.GMV, "nothing paid out yet")

	resp := a.client.Do(http.MethodGet, "/api/v1/admin/stats?date=yesterday", a.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.ErrorCode())

	blockPath := "/api/v1/admin/users/" + testutil.TestSellerUserID().String() + "/block"
	resp = a.client.Do(http.MethodPost, blockPath, a.adminToken, map[string]string{"reason": "spam"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "reason is too short")

	var blocked admin.BlockUserResponse
	a.client.Do(http.MethodPost, blockPath, a.adminToken, map[string]string{"reason": "chargeback fraud on three campaigns"}).
		RequireStatus(t, http.StatusOK).Decode(t, &blocked)
	require.NotNil(t, blocked.SellerID)
	assert.Equal(t, a.seller.ID, *blocked.SellerID)
	assert.False(t, a.Seller(t, a.seller.ID).IsActive)

	resp = a.client.Do(http.MethodPost, blockPath, a.adminToken, map[string]string{"reason": "chargeback fraud on three campaigns"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = a.client.Do(http.MethodPost, "/api/v1/admin/users/"+uuid.New().String()+"/block", a.adminToken,
		map[string]string{"reason": "chargeback fraud on three campaigns"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = a.client.Do(http.MethodPost, "/api/v1/campaigns", a.sellerToken, map[string]any{
		"channel_id": a.channel.ID,
		"budget":     "100",
		"start_date": testutil.FixedTime.Format(time.RFC3339),
		"end_date":   testutil.FixedTime.Add(48 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, resp.Code, "inactive sellers cannot open campaigns")

	actions := a.client.Do(http.MethodGet, "/api/v1/admin/actions", a.adminToken, nil).RequireStatus(t, http.StatusOK)
	assert.Equal(t, int64(1), actions.Meta.Total)
}
