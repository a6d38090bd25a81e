package model

import (
	"testing"

	"blackcnote/common/encrypt"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayConfigEncryptedAtRest(t *testing.T) {
	setupTestDB(t)
	viper.Set("gateway_secret", "test-secret")
	t.Cleanup(func() { viper.Set("gateway_secret", "") })

	gateway := &Gateway{
		Type:     "paystack",
		Name:     "Paystack",
		Currency: "NGN",
		Config:   `{"secret_key":"sk_test_123"}`,
	}
	require.NoError(t, gateway.Insert())
	assert.Equal(t, `{"secret_key":"sk_test_123"}`, gateway.Config)
	assert.True(t, gateway.Rate.Equal(dec("1")))

	var raw string
	require.NoError(t, DB.Model(&Gateway{}).Where("id = ?", gateway.ID).Select("config").Row().Scan(&raw))
	assert.True(t, encrypt.IsSealed(raw))

	loaded, err := GetGatewayByUUID(gateway.UUID, true)
	require.NoError(t, err)
	assert.Equal(t, `{"secret_key":"sk_test_123"}`, loaded.Config)

	require.NoError(t, loaded.UpdateConfig(`{"secret_key":"sk_test_456"}`))
	var updatedRaw string
	require.NoError(t, DB.Model(&Gateway{}).Where("id = ?", gateway.ID).Select("config").Row().Scan(&updatedRaw))
	assert.True(t, encrypt.IsSealed(updatedRaw))
	assert.NotContains(t, updatedRaw, "sk_test_456")
	assert.NotEqual(t, raw, updatedRaw)
	loaded, err = GetGatewayByID(gateway.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"secret_key":"sk_test_456"}`, loaded.Config)

	list, err := GetUserGatewayList()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Config)
}

func TestGatewayCharge(t *testing.T) {
	gateway := &Gateway{FixedCharge: dec("1"), PercentCharge: dec("2.5")}
	assert.True(t, gateway.Charge(dec("100")).Equal(dec("3.5")))
	assert.True(t, gateway.EffectiveRate().Equal(dec("1")))
}
