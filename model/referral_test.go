package model

import (
	"testing"

	"blackcnote/common/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayReferralCommission(t *testing.T) {
	setupTestDB(t)
	config.DepositCommissionEnabled = true

	top := createTestUser(t, "top", 0)
	mid := createTestUser(t, "mid", top.Id)
	leaf := createTestUser(t, "leaf", mid.Id)

	require.NoError(t, SetReferralLevels(CommissionTypeDeposit, []decimal.Decimal{dec("5"), dec("2"), dec("1")}))

	records, err := PayReferralCommission(leaf.Id, CommissionTypeDeposit, dec("100"), "trx-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, reloadUser(t, mid.Id).InterestWallet.Equal(dec("5")))
	assert.True(t, reloadUser(t, top.Id).InterestWallet.Equal(dec("2")))

	// 任务重试
	records, err = PayReferralCommission(leaf.Id, CommissionTypeDeposit, dec("100"), "trx-1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, reloadUser(t, mid.Id).InterestWallet.Equal(dec("5")))
}

func TestReferralCommissionDisabled(t *testing.T) {
	setupTestDB(t)
	config.InterestCommissionEnabled = false

	top := createTestUser(t, "top", 0)
	leaf := createTestUser(t, "leaf", top.Id)
	require.NoError(t, SetReferralLevels(CommissionTypeInterest, []decimal.Decimal{dec("10")}))

	records, err := PayReferralCommission(leaf.Id, CommissionTypeInterest, dec("100"), "trx-2")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSetReferralLevelsReplaces(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, SetReferralLevels(CommissionTypeInvest, []decimal.Decimal{dec("3"), dec("2")}))
	require.NoError(t, SetReferralLevels(CommissionTypeInvest, []decimal.Decimal{dec("4")}))

	levels, err := GetReferralLevels(CommissionTypeInvest)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.True(t, levels[0].Percent.Equal(dec("4")))

	assert.Error(t, SetReferralLevels("bogus", nil))
}
