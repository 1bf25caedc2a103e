package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgoistMa/tokomo-app/internal/api"
)

func TestRedeem_EmptyCode(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.backend.totalCalls()

	_, err := h.redeem.RedeemVIP(context.Background(), testUserID, "  ")
	assert.ErrorIs(t, err, ErrEmptyCode)
	_, err = h.redeem.RedeemPayment(context.Background(), testUserID, "")
	assert.ErrorIs(t, err, ErrEmptyCode)
	assert.Equal(t, before, h.backend.totalCalls())
}

func TestRedeem_UsedCodeLeavesProfile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, err := h.redeem.RedeemVIP(context.Background(), testUserID, "ABC123")
	require.Error(t, err)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Code already used", apiErr.Message)
	assert.Equal(t, api.CodeCodeUsed, apiErr.Code)

	assert.False(t, h.profiles.Pending(testUserID), "no refresh after a failure")
	p := h.profiles.Cached(testUserID)
	assert.False(t, p.IsVIP(time.Now()))
	assert.Equal(t, int64(100), p.Points)
}

func TestRedeemVIP_RefreshesLater(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res, err := h.redeem.RedeemVIP(context.Background(), testUserID, " VIP777 ")
	require.NoError(t, err)
	require.NotNil(t, res.ExpireDate)
	assert.False(t, h.profiles.Cached(testUserID).IsVIP(time.Now()), "cache untouched until the refresh")

	assert.Eventually(t, func() bool {
		p := h.profiles.Cached(testUserID)
		return p != nil && p.IsVIP(time.Now())
	}, time.Second, 5*time.Millisecond)
}

func TestRedeemPayment_RefreshesLater(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res, err := h.redeem.RedeemPayment(context.Background(), testUserID, "PAY500")
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Points)
	assert.Equal(t, int64(600), res.TotalPoints)

	assert.Eventually(t, func() bool {
		p := h.profiles.Cached(testUserID)
		return p != nil && p.Points == 600
	}, time.Second, 5*time.Millisecond)

	history, err := h.redeem.PaymentHistory(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "PAY500", history[0].Code)
}

func TestRedeem_WrongKindOfCode(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, err := h.redeem.RedeemPayment(context.Background(), testUserID, "VIP777")
	assert.True(t, api.IsStatus(err, 400))
	assert.False(t, h.profiles.Pending(testUserID))
}
