package sslcommerz

import (
	"context"
	"net/url"
	"testing"

	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"store_id":"store","store_password":"store@ssl"}`

func ipnForm(status string) url.Values {
	fields := map[string]string{
		"tran_id":    "T1600",
		"val_id":     "VAL-1",
		"amount":     "500.00",
		"currency":   "BDT",
		"status":     status,
		"verify_key": "amount,currency,status,tran_id,val_id",
	}
	base := "amount=500.00&currency=BDT&status=" + status + "&store_passwd=" + sign.MD5Hex("store@ssl") + "&tran_id=T1600&val_id=VAL-1"
	fields["verify_sign"] = sign.MD5Hex(base)
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

func TestVerifySign(t *testing.T) {
	fields := types.FlatValues(ipnForm("VALID"))
	assert.True(t, VerifySign(fields, "store@ssl"))
	assert.False(t, VerifySign(fields, "other"))

	fields["amount"] = "5.00"
	assert.False(t, VerifySign(fields, "store@ssl"))
}

func TestHandleCallback(t *testing.T) {
	s := &SSLCommerz{}
	notify, err := s.HandleCallback(context.Background(), &types.CallbackRequest{Form: ipnForm("VALID")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T1600", notify.TradeNo)
	assert.Equal(t, "BDT", notify.Currency)

	notify, err = s.HandleCallback(context.Background(), &types.CallbackRequest{Form: ipnForm("FAILED")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusFailed, notify.Status)
}

func TestHandleCallbackRequiresSignedAmount(t *testing.T) {
	fields := map[string]string{
		"tran_id":    "T1600",
		"status":     "VALID",
		"amount":     "500.00",
		"verify_key": "status,tran_id",
	}
	base := "status=VALID&store_passwd=" + sign.MD5Hex("store@ssl") + "&tran_id=T1600"
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set("verify_sign", sign.MD5Hex(base))

	_, err := (&SSLCommerz{}).HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	assert.ErrorIs(t, err, types.ErrCallbackMalformed)
}
