package dispute

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

func openDispute(t *testing.T) *Dispute {
	t.Helper()
	d, err := Open(uuid.New(), uuid.New(), "post was deleted after an hour", testNow)
	require.NoError(t, err)
	return d
}

func TestOpen(t *testing.T) {
	d := openDispute(t)
	assert.Equal(t, StatusOpen, d.Status)
	assert.Nil(t, d.AdminDecision)

	_, err := Open(uuid.New(), uuid.New(), "   ", testNow)
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
}

func TestParseDecision(t *testing.T) {
	for _, s := range []string{"refund", "release_payment", "partial_refund"} {
		d, err := ParseDecision(s)
		require.NoError(t, err)
		assert.Equal(t, Decision(s), d)
	}

	_, err := ParseDecision("split")
	assert.True(t, shared.HasCode(err, CodeInvalidDecision))
}

func TestDispute_Resolve(t *testing.T) {
	budget := decimal.NewFromInt(3000)
	adminID := uuid.New()

	t.Run("refund", func(t *testing.T) {
		d := openDispute(t)
		err := d.Resolve(Resolution{Decision: DecisionRefund, Notes: "proof missing", AdminID: adminID}, budget, testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusResolved, d.Status)
		assert.Equal(t, DecisionRefund, *d.AdminDecision)
		assert.Equal(t, adminID, *d.DecidedByAdminID)
		assert.Equal(t, "proof missing", *d.AdminNotes)
		assert.Nil(t, d.RefundAmount)
		assert.Equal(t, testNow, *d.ResolvedAt)
	})

	t.Run("partial refund records amount", func(t *testing.T) {
		d := openDispute(t)
		amount := decimal.NewFromInt(1000)
		err := d.Resolve(Resolution{Decision: DecisionPartialRefund, AdminID: adminID, RefundAmount: &amount}, budget, testNow)
		require.NoError(t, err)
		assert.True(t, d.RefundAmount.Equal(amount))
	})

	t.Run("partial refund without amount", func(t *testing.T) {
		d := openDispute(t)
		err := d.Resolve(Resolution{Decision: DecisionPartialRefund, AdminID: adminID}, budget, testNow)
		assert.ErrorIs(t, err, ErrMissingRefundAmount)
		assert.Equal(t, StatusOpen, d.Status)
	})

	t.Run("partial refund bounds", func(t *testing.T) {
		for _, amount := range []string{"0", "-1", "3000.01", "10.005"} {
			d := openDispute(t)
			a := decimal.RequireFromString(amount)
			err := d.Resolve(Resolution{Decision: DecisionPartialRefund, AdminID: adminID, RefundAmount: &a}, budget, testNow)
			assert.True(t, shared.HasCode(err, shared.CodeValidation), "amount %s", amount)
			assert.Equal(t, StatusOpen, d.Status)
		}
	})

	t.Run("full budget is a valid partial refund", func(t *testing.T) {
		d := openDispute(t)
		err := d.Resolve(Resolution{Decision: DecisionPartialRefund, AdminID: adminID, RefundAmount: &budget}, budget, testNow)
		assert.NoError(t, err)
	})

	t.Run("invalid decision", func(t *testing.T) {
		d := openDispute(t)
		err := d.Resolve(Resolution{Decision: "halve", AdminID: adminID}, budget, testNow)
		assert.True(t, shared.HasCode(err, CodeInvalidDecision))
	})

	t.Run("second resolution fails", func(t *testing.T) {
		d := openDispute(t)
		require.NoError(t, d.Resolve(Resolution{Decision: DecisionRefund, AdminID: adminID}, budget, testNow))
		err := d.Resolve(Resolution{Decision: DecisionReleasePayment, AdminID: adminID}, budget, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, DecisionRefund, *d.AdminDecision)
	})
}
