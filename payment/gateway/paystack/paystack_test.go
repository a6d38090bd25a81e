package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"secret_key":"sk_test_paystack"}`

func webhookRequest(event, secret string) *types.CallbackRequest {
	body := []byte(`{"event":"` + event + `","data":{"id":302961,"reference":"T1100","amount":500000,"currency":"NGN","status":"success"}}`)
	header := http.Header{}
	header.Set("x-paystack-signature", sign.HMACSHA512Hex(body, secret))
	return &types.CallbackRequest{Header: header, Body: body}
}

func TestHandleCallback(t *testing.T) {
	p := &Paystack{}
	notify, err := p.HandleCallback(context.Background(), webhookRequest("charge.success", "sk_test_paystack"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T1100", notify.TradeNo)
	assert.Equal(t, "302961", notify.GatewayNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("5000")))

	_, err = p.HandleCallback(context.Background(), webhookRequest("charge.success", "other"), testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)

	_, err = p.HandleCallback(context.Background(), webhookRequest("transfer.success", "sk_test_paystack"), testConfig)
	assert.ErrorIs(t, err, types.ErrCallbackUnsupported)
}

func TestPay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_paystack", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 500000, body["amount"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/x","access_code":"x","reference":"T1100"}}`))
	}))
	defer srv.Close()

	req, err := (&Paystack{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{
		TradeNo:  "T1100",
		Amount:   decimal.RequireFromString("5000"),
		Currency: "NGN",
		User:     types.PayUser{Email: "a@example.com"},
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/x", req.URL)
}
