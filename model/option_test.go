package model

import (
	"testing"

	"blackcnote/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateOption(t *testing.T) {
	setupTestDB(t)
	InitOptionMap()
	t.Cleanup(func() { config.PaymentMinAmount = 1 })

	assert.Error(t, UpdateOption("NoSuchOption", "1"))

	require.NoError(t, UpdateOption("PaymentMinAmount", "5"))
	assert.Equal(t, 5, config.PaymentMinAmount)

	// 取值非法时保持原值
	assert.Error(t, UpdateOption("PaymentMinAmount", "five"))
	assert.Equal(t, 5, config.PaymentMinAmount)

	// 再次写入走更新分支
	require.NoError(t, UpdateOption("PaymentMinAmount", "7"))
	var stored []*Option
	require.NoError(t, DB.Where(&Option{Key: "PaymentMinAmount"}).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "7", stored[0].Value)

	config.PaymentMinAmount = 1
	loadOptionsFromDatabase()
	assert.Equal(t, 7, config.PaymentMinAmount)
}
