package campaign

import (
	"testing"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validTerms(budget int64) Terms {
	return Terms{
		Budget:       decimal.NewFromInt(budget),
		StartDate:    testNow.Add(24 * time.Hour),
		EndDate:      testNow.Add(72 * time.Hour),
		AdFormat:     "post",
		CreativeText: "Try our product",
	}
}

func newTestCampaign(t *testing.T, budget int64) *Campaign {
	t.Helper()
	c, err := NewCampaign(uuid.New(), uuid.New(), validTerms(budget), DefaultCommissionPercent, testNow)
	require.NoError(t, err)
	return c
}

// campaignIn drives a fresh campaign into status through legal events
func campaignIn(t *testing.T, status Status) *Campaign {
	t.Helper()
	c := newTestCampaign(t, 3000)
	switch status {
	case StatusPending:
	case StatusAccepted:
		require.NoError(t, c.Accept("", testNow))
	case StatusRejected:
		require.NoError(t, c.Reject("no", testNow))
	case StatusCancelled:
		require.NoError(t, c.Cancel("changed plans", testNow))
	case StatusInProgress:
		require.NoError(t, c.Accept("", testNow))
		require.NoError(t, c.Submit("https://t.me/c/1", "link", "", testNow))
	case StatusCompleted:
		require.NoError(t, c.Accept("", testNow))
		require.NoError(t, c.Submit("https://t.me/c/1", "link", "", testNow))
		require.NoError(t, c.Complete(c.Split(), "", testNow))
	case StatusDisputed:
		require.NoError(t, c.Accept("", testNow))
		require.NoError(t, c.Submit("https://t.me/c/1", "link", "", testNow))
		require.NoError(t, c.Dispute("post deleted", testNow))
	case StatusResolved:
		require.NoError(t, c.Accept("", testNow))
		require.NoError(t, c.Submit("https://t.me/c/1", "link", "", testNow))
		require.NoError(t, c.Dispute("post deleted", testNow))
		require.NoError(t, c.Resolve("refund", testNow))
	default:
		t.Fatalf("unknown status %s", status)
	}
	require.Equal(t, status, c.Status)
	c.ClearDomainEvents()
	return c
}

func fire(c *Campaign, event Event) error {
	switch event {
	case EventUpdate:
		_, err := c.Update(validTerms(4000), testNow)
		return err
	case EventAccept:
		return c.Accept("ok", testNow)
	case EventReject:
		return c.Reject("no", testNow)
	case EventCancel:
		return c.Cancel("changed plans", testNow)
	case EventSubmit:
		return c.Submit("https://t.me/c/1", "link", "", testNow)
	case EventConfirm:
		return c.Complete(c.Split(), "", testNow)
	case EventDispute:
		return c.Dispute("post deleted", testNow)
	case EventResolve:
		return c.Resolve("refund", testNow)
	}
	return nil
}

func TestStateMachine_EveryStatusEventPair(t *testing.T) {
	for _, status := range AllStatuses() {
		for _, event := range AllEvents() {
			t.Run(string(status)+"/"+string(event), func(t *testing.T) {
				c := campaignIn(t, status)
				version := c.Version
				budget := c.Budget

				err := fire(c, event)

				want, legal := status.Next(event)
				if legal {
					require.NoError(t, err)
					assert.Equal(t, want, c.Status)
					assert.Equal(t, version+1, c.Version)
					return
				}
				assert.ErrorIs(t, err, shared.ErrInvalidState)
				assert.Equal(t, status, c.Status)
				assert.Equal(t, version, c.Version)
				assert.True(t, budget.Equal(c.Budget))
				assert.Empty(t, c.GetDomainEvents())
			})
		}
	}
}

func TestStatus_TerminalStatusesAcceptNoEvents(t *testing.T) {
	for _, status := range AllStatuses() {
		if !status.IsTerminal() {
			continue
		}
		for _, event := range AllEvents() {
			_, ok := status.Next(event)
			assert.False(t, ok, "%s should not accept %s", status, event)
		}
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusAccepted))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusDisputed))
	assert.True(t, StatusDisputed.CanTransitionTo(StatusResolved))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusAccepted.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusDisputed))
}

func TestErrInvalidTransition_Message(t *testing.T) {
	err := ErrInvalidTransition(EventAccept, StatusAccepted)
	assert.Equal(t, "Cannot accept campaign in accepted status (requires pending)", err.Error())
	assert.Equal(t, shared.CodeInvalidStateTransition, err.Code)
}

func TestNewCampaign(t *testing.T) {
	t.Run("starts pending and raises created event", func(t *testing.T) {
		c := newTestCampaign(t, 3000)
		assert.Equal(t, StatusPending, c.Status)
		assert.True(t, c.PlatformCommissionPercent.Equal(decimal.NewFromInt(10)))
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCampaignCreated, c.GetDomainEvents()[0].EventType())
	})

	tests := []struct {
		name   string
		mutate func(*Terms)
	}{
		{"zero budget", func(tm *Terms) { tm.Budget = decimal.Zero }},
		{"negative budget", func(tm *Terms) { tm.Budget = decimal.NewFromInt(-5) }},
		{"sub-cent budget", func(tm *Terms) { tm.Budget = decimal.RequireFromString("10.001") }},
		{"end before start", func(tm *Terms) { tm.EndDate = tm.StartDate.Add(-time.Hour) }},
		{"end equals start", func(tm *Terms) { tm.EndDate = tm.StartDate }},
		{"missing dates", func(tm *Terms) { tm.StartDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := validTerms(3000)
			tt.mutate(&terms)
			_, err := NewCampaign(uuid.New(), uuid.New(), terms, DefaultCommissionPercent, testNow)
			assert.True(t, shared.HasCode(err, shared.CodeValidation), "got %v", err)
		})
	}

	t.Run("rejects commission outside 0..100", func(t *testing.T) {
		_, err := NewCampaign(uuid.New(), uuid.New(), validTerms(3000), decimal.NewFromInt(101), testNow)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
	})
}

func TestCampaign_Update(t *testing.T) {
	t.Run("returns budget delta", func(t *testing.T) {
		c := newTestCampaign(t, 3000)
		delta, err := c.Update(validTerms(3500), testNow)
		require.NoError(t, err)
		assert.True(t, delta.Equal(decimal.NewFromInt(500)))
		assert.True(t, c.Budget.Equal(decimal.NewFromInt(3500)))
	})

	t.Run("invalid terms keep the old ones", func(t *testing.T) {
		c := newTestCampaign(t, 3000)
		_, err := c.Update(validTerms(0), testNow)
		assert.Error(t, err)
		assert.True(t, c.Budget.Equal(decimal.NewFromInt(3000)))
	})
}

func TestCampaign_RejectAndCancelNotes(t *testing.T) {
	c := newTestCampaign(t, 3000)
	require.NoError(t, c.Reject("audience mismatch", testNow))
	require.NotNil(t, c.OwnerNotes)
	assert.Equal(t, "Rejected: audience mismatch", *c.OwnerNotes)

	c = newTestCampaign(t, 3000)
	require.NoError(t, c.Cancel("budget cut", testNow))
	assert.Equal(t, "Cancelled: budget cut", *c.OwnerNotes)
}

func TestCampaign_SubmitRequiresProof(t *testing.T) {
	c := campaignIn(t, StatusAccepted)
	err := c.Submit("  ", "link", "", testNow)
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	assert.Equal(t, StatusAccepted, c.Status)
}

func TestCampaign_DisputeRequiresReason(t *testing.T) {
	c := campaignIn(t, StatusInProgress)
	err := c.Dispute("", testNow)
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	assert.Equal(t, StatusInProgress, c.Status)
}

func TestCampaign_CompleteRaisesSplit(t *testing.T) {
	c := campaignIn(t, StatusInProgress)
	require.NoError(t, c.Complete(c.Split(), "great", testNow))

	require.Len(t, c.GetDomainEvents(), 1)
	evt, ok := c.GetDomainEvents()[0].(*CampaignCompletedEvent)
	require.True(t, ok)
	assert.True(t, evt.Commission.Equal(decimal.NewFromInt(300)))
	assert.True(t, evt.Payout.Equal(decimal.NewFromInt(2700)))
	assert.NotNil(t, c.ActualCompletionDate)
}

func TestSplitBudget(t *testing.T) {
	tests := []struct {
		budget     string
		percent    string
		commission string
		payout     string
	}{
		{"3000", "10", "300", "2700"},
		{"100", "0", "0", "100"},
		{"100", "100", "100", "0"},
		{"0.01", "10", "0.01", "0"},
		{"33.33", "10", "3.34", "29.99"},
		{"999.99", "12.5", "125", "874.99"},
	}
	for _, tt := range tests {
		t.Run(tt.budget+"@"+tt.percent, func(t *testing.T) {
			budget := decimal.RequireFromString(tt.budget)
			s := SplitBudget(budget, decimal.RequireFromString(tt.percent))
			assert.True(t, s.Commission.Equal(decimal.RequireFromString(tt.commission)), "commission %s", s.Commission)
			assert.True(t, s.Payout.Equal(decimal.RequireFromString(tt.payout)), "payout %s", s.Payout)
			assert.True(t, s.Commission.Add(s.Payout).Equal(budget))
		})
	}
}

func TestCounts(t *testing.T) {
	counts := Counts{StatusPending: 2, StatusInProgress: 1, StatusCompleted: 4, StatusDisputed: 1}
	assert.Equal(t, int64(8), counts.Total())
	assert.Equal(t, int64(4), counts.Active())
}
