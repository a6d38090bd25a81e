package instamojo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"api_key":"im-key","auth_token":"im-token","salt":"im-salt"}`

func TestMAC(t *testing.T) {
	fields := map[string]string{
		"payment_id": "MOJO1",
		"Amount":     "10.00",
		"status":     "Credit",
		"mac":        "ignored",
	}
	expected := sign.HMACSHA1Hex([]byte("10.00|MOJO1|Credit"), "im-salt")
	assert.Equal(t, expected, MAC(fields, "im-salt"))
}

func webhookForm(status string) url.Values {
	fields := map[string]string{
		"payment_id":         "MOJO1",
		"payment_request_id": "PR1",
		"purpose":            "T1500",
		"amount":             "10.00",
		"currency":           "INR",
		"status":             status,
	}
	fields["mac"] = MAC(fields, "im-salt")
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

func TestHandleCallback(t *testing.T) {
	i := &Instamojo{}
	notify, err := i.HandleCallback(context.Background(), &types.CallbackRequest{Form: webhookForm("Credit")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T1500", notify.TradeNo)
	assert.True(t, notify.Amount.Equal(decimal.NewFromInt(10)))

	notify, err = i.HandleCallback(context.Background(), &types.CallbackRequest{Form: webhookForm("Failed")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusFailed, notify.Status)

	form := webhookForm("Credit")
	form.Set("amount", "1000.00")
	_, err = i.HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestPay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "im-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "im-token", r.Header.Get("X-Auth-Token"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "T1500", r.PostForm.Get("purpose"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"payment_request":{"id":"PR1","longurl":"https://www.instamojo.com/@x/PR1"}}`))
	}))
	defer srv.Close()

	req, err := (&Instamojo{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{
		TradeNo:  "T1500",
		Amount:   decimal.NewFromInt(10),
		Currency: "INR",
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, "PR1", req.GatewayNo)
}
