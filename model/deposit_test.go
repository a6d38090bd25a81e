package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDeposit(t *testing.T, userId int, amount string) *Deposit {
	t.Helper()
	deposit := &Deposit{
		UserId:         userId,
		GatewayId:      1,
		GatewayType:    "paypal",
		Amount:         dec(amount),
		Charge:         dec("1"),
		Rate:           dec("1"),
		FinalAmount:    dec(amount).Add(dec("1")),
		MethodCurrency: "USD",
	}
	require.NoError(t, deposit.Insert())
	return deposit
}

func TestCompleteDepositCreditsOnce(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	deposit := createTestDeposit(t, user.Id, "100")
	assert.Equal(t, DepositStatusInitiated, deposit.Status)

	completed, credited, err := CompleteDeposit(deposit.TradeNo, "PAY-1", "Deposit via PayPal")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, DepositStatusSuccess, completed.Status)
	assert.Equal(t, "PAY-1", completed.GatewayNo)

	// 重复回调
	_, credited, err = CompleteDeposit(deposit.TradeNo, "PAY-1", "Deposit via PayPal")
	require.NoError(t, err)
	assert.False(t, credited)

	assert.True(t, reloadUser(t, user.Id).DepositWallet.Equal(dec("100")))

	total, err := SumTransactions(user.Id, RemarkDeposit, TrxTypePlus)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("100")))
}

func TestCompleteDepositUnknownTradeNo(t *testing.T) {
	setupTestDB(t)

	_, _, err := CompleteDeposit("nope", "", "")
	assert.ErrorIs(t, err, ErrDepositNotFound)
}

func TestCompleteClosedDeposit(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	deposit := createTestDeposit(t, user.Id, "10")

	require.NoError(t, DB.Model(&Deposit{}).Where("id = ?", deposit.ID).
		Update("created_at", time.Now().Add(-4*time.Hour).Unix()).Error)
	closed, err := CloseExpiredDeposits(3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	_, credited, err := CompleteDeposit(deposit.TradeNo, "", "late payment")
	require.NoError(t, err)
	assert.True(t, credited)
}

func TestFailedDepositIsNotCredited(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	deposit := createTestDeposit(t, user.Id, "10")

	require.NoError(t, FailDeposit(deposit.TradeNo))
	assert.ErrorIs(t, FailDeposit(deposit.TradeNo), ErrDepositNotPending)

	_, credited, err := CompleteDeposit(deposit.TradeNo, "", "")
	require.NoError(t, err)
	assert.False(t, credited)
	assert.True(t, reloadUser(t, user.Id).DepositWallet.IsZero())
}

func TestManualDepositFlow(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	deposit := createTestDeposit(t, user.Id, "10")

	require.NoError(t, SubmitManualDeposit(user.Id, deposit.TradeNo, `{"txid":"abc"}`))
	assert.ErrorIs(t, SubmitManualDeposit(user.Id, deposit.TradeNo, `{}`), ErrDepositNotPending)

	reloaded, err := GetUserDeposit(user.Id, deposit.TradeNo)
	require.NoError(t, err)
	assert.Equal(t, DepositStatusPending, reloaded.Status)

	require.NoError(t, RejectDeposit(deposit.ID, "no such transfer"))
	reloaded, err = GetDepositByID(deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, DepositStatusRejected, reloaded.Status)
	assert.Equal(t, "no such transfer", reloaded.AdminFeedback)
}

func TestDepositStatistics(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)
	for _, amount := range []string{"10", "20"} {
		d := createTestDeposit(t, user.Id, amount)
		_, _, err := CompleteDeposit(d.TradeNo, "", "")
		require.NoError(t, err)
	}
	createTestDeposit(t, user.Id, "50")

	stats, err := GetStatisticsDeposit()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.True(t, stats[0].Amount.Equal(dec("30")))

	list, err := GetDepositList(&SearchDepositParams{UserId: user.Id, Status: string(DepositStatusSuccess)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)
}
