package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustBalanceWritesLedger(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)

	record, err := AdjustBalance(user.Id, "interest_wallet", dec("12.5"), true, "bonus")
	require.NoError(t, err)
	assert.Equal(t, TrxTypePlus, record.TrxType)
	assert.True(t, record.PostBalance.Equal(dec("12.5")))

	record, err = AdjustBalance(user.Id, "interest_wallet", dec("2.5"), false, "fee")
	require.NoError(t, err)
	assert.Equal(t, TrxTypeMinus, record.TrxType)
	assert.True(t, record.PostBalance.Equal(dec("10")))

	assert.True(t, reloadUser(t, user.Id).InterestWallet.Equal(dec("10")))
}

func TestDebitRejectsOverdraft(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)

	_, err := AdjustBalance(user.Id, "deposit_wallet", dec("1"), false, "overdraft")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	list, err := GetTransactionList(&SearchTransactionParams{UserId: user.Id})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestWalletNameIsChecked(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "alice", 0)

	_, err := AdjustBalance(user.Id, "password", dec("1"), true, "")
	assert.ErrorIs(t, err, ErrInvalidWallet)

	_, err = AdjustBalance(user.Id, "deposit_wallet", dec("0"), true, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
