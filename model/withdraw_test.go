package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestMethod(t *testing.T) *WithdrawMethod {
	t.Helper()
	method := &WithdrawMethod{
		Name:          "USDT TRC20",
		MinAmount:     dec("10"),
		MaxAmount:     dec("500"),
		FixedCharge:   dec("1"),
		PercentCharge: dec("2"),
		Rate:          dec("1"),
		Currency:      "USDT",
		UserFields:    "wallet_address, network",
	}
	require.NoError(t, method.Insert())
	return method
}

func TestRequestWithdrawal(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	method := createTestMethod(t)
	_, err := AdjustBalance(user.Id, "interest_wallet", dec("200"), true, "seed")
	require.NoError(t, err)

	_, err = RequestWithdrawal(user.Id, method.ID, dec("100"), map[string]string{"wallet_address": "T123"})
	assert.ErrorIs(t, err, ErrWithdrawFieldMissing)

	_, err = RequestWithdrawal(user.Id, method.ID, dec("5"), map[string]string{"wallet_address": "T123", "network": "tron"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	withdrawal, err := RequestWithdrawal(user.Id, method.ID, dec("100"), map[string]string{"wallet_address": "T123", "network": "tron"})
	require.NoError(t, err)
	assert.True(t, withdrawal.Charge.Equal(dec("3")))
	assert.True(t, withdrawal.FinalAmount.Equal(dec("97")))
	assert.Equal(t, WithdrawStatusPending, withdrawal.Status)
	assert.True(t, reloadUser(t, user.Id).InterestWallet.Equal(dec("100")))

	_, err = RequestWithdrawal(user.Id, method.ID, dec("150"), map[string]string{"wallet_address": "T123", "network": "tron"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRejectWithdrawalRefunds(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	method := createTestMethod(t)
	_, err := AdjustBalance(user.Id, "interest_wallet", dec("100"), true, "seed")
	require.NoError(t, err)

	withdrawal, err := RequestWithdrawal(user.Id, method.ID, dec("50"), map[string]string{"wallet_address": "T1", "network": "tron"})
	require.NoError(t, err)

	rejected, err := RejectWithdrawal(withdrawal.ID, "invalid address")
	require.NoError(t, err)
	assert.Equal(t, WithdrawStatusRejected, rejected.Status)
	assert.True(t, reloadUser(t, user.Id).InterestWallet.Equal(dec("100")))

	_, err = RejectWithdrawal(withdrawal.ID, "again")
	assert.ErrorIs(t, err, ErrWithdrawNotPending)
	_, err = ApproveWithdrawal(withdrawal.ID, "")
	assert.ErrorIs(t, err, ErrWithdrawNotPending)
}

func TestApproveWithdrawal(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	method := createTestMethod(t)
	_, err := AdjustBalance(user.Id, "interest_wallet", dec("100"), true, "seed")
	require.NoError(t, err)
	withdrawal, err := RequestWithdrawal(user.Id, method.ID, dec("50"), map[string]string{"wallet_address": "T1", "network": "tron"})
	require.NoError(t, err)

	approved, err := ApproveWithdrawal(withdrawal.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, WithdrawStatusSuccess, approved.Status)

	dashboard, err := GetUserDashboard(user.Id)
	require.NoError(t, err)
	assert.True(t, dashboard.TotalWithdraw.Equal(dec("50")))
	assert.True(t, dashboard.InterestWallet.Equal(dec("50")))
}
