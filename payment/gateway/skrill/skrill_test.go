package skrill

import (
	"context"
	"net/url"
	"testing"

	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"pay_to_email":"merchant@example.com","secret_word":"skrill-secret"}`

func statusForm(status string) url.Values {
	fields := map[string]string{
		"pay_to_email":      "merchant@example.com",
		"merchant_id":       "1234",
		"transaction_id":    "T300",
		"mb_transaction_id": "SK-1",
		"mb_amount":         "20.00",
		"mb_currency":       "EUR",
		"status":            status,
	}
	fields["md5sig"] = MD5Sig(fields, "skrill-secret")
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

func TestMD5Sig(t *testing.T) {
	fields := map[string]string{
		"merchant_id":    "1234",
		"transaction_id": "T300",
		"mb_amount":      "20.00",
		"mb_currency":    "EUR",
		"status":         "2",
	}
	expected := sign.UpperMD5("1234T300" + sign.UpperMD5("skrill-secret") + "20.00EUR2")
	assert.Equal(t, expected, MD5Sig(fields, "skrill-secret"))

	fields["md5sig"] = expected
	assert.True(t, VerifyMD5Sig(fields, "skrill-secret"))
	assert.False(t, VerifyMD5Sig(fields, "other"))
}

func TestHandleCallbackStatuses(t *testing.T) {
	s := &Skrill{}
	cases := map[string]types.NotifyStatus{
		"2":  types.NotifyStatusSuccess,
		"0":  types.NotifyStatusPending,
		"-2": types.NotifyStatusFailed,
	}
	for status, want := range cases {
		notify, err := s.HandleCallback(context.Background(), &types.CallbackRequest{Form: statusForm(status)}, testConfig)
		require.NoError(t, err, status)
		assert.Equal(t, want, notify.Status, status)
		assert.Equal(t, "T300", notify.TradeNo)
	}

	_, err := s.HandleCallback(context.Background(), &types.CallbackRequest{Form: statusForm("-3")}, testConfig)
	assert.ErrorIs(t, err, types.ErrCallbackUnsupported)
}

func TestHandleCallbackBadSignature(t *testing.T) {
	form := statusForm("2")
	form.Set("mb_amount", "2000.00")
	_, err := (&Skrill{}).HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}
