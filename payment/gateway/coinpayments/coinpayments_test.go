package coinpayments

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"merchant_id":"m-42","ipn_secret":"ipn-secret"}`

func ipnRequest(status string, secret string) *types.CallbackRequest {
	body := []byte(url.Values{
		"ipn_mode":  {"hmac"},
		"merchant":  {"m-42"},
		"status":    {status},
		"amount1":   {"0.00150000"},
		"currency1": {"BTC"},
		"txn_id":    {"CP-TX"},
		"custom":    {"T600"},
	}.Encode())
	header := http.Header{}
	header.Set("HMAC", sign.HMACSHA512Hex(body, secret))
	return &types.CallbackRequest{Header: header, Body: body}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, types.NotifyStatusSuccess, statusOf(100))
	assert.Equal(t, types.NotifyStatusSuccess, statusOf(2))
	assert.Equal(t, types.NotifyStatusPending, statusOf(0))
	assert.Equal(t, types.NotifyStatusPending, statusOf(1))
	assert.Equal(t, types.NotifyStatusFailed, statusOf(-1))
}

func TestHandleCallback(t *testing.T) {
	c := &CoinPayments{}
	notify, err := c.HandleCallback(context.Background(), ipnRequest("100", "ipn-secret"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T600", notify.TradeNo)
	assert.Equal(t, "IPN OK", notify.Reply)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("0.0015")))

	_, err = c.HandleCallback(context.Background(), ipnRequest("100", "wrong"), testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)

	_, err = c.HandleCallback(context.Background(), ipnRequest("100", "ipn-secret"), `{"merchant_id":"other","ipn_secret":"ipn-secret"}`)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}
