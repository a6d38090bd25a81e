package coingate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"api_key":"cg-key"}`

func TestPay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/orders", r.URL.Path)
		assert.Equal(t, "Token cg-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "T700", r.PostForm.Get("order_id"))
		assert.Equal(t, CallbackToken("T700", "cg-key"), r.PostForm.Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1234,"status":"new","payment_url":"https://coingate.com/invoice/abc"}`))
	}))
	defer srv.Close()

	c := &CoinGate{BaseURL: srv.URL}
	req, err := c.Pay(context.Background(), &types.PayConfig{
		TradeNo:  "T700",
		Amount:   decimal.RequireFromString("10"),
		Currency: "USD",
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, "https://coingate.com/invoice/abc", req.URL)
	assert.Equal(t, "1234", req.GatewayNo)
}

func TestPayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := (&CoinGate{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{TradeNo: "T700"}, testConfig)
	assert.ErrorIs(t, err, types.ErrGatewayRequest)
}

func TestHandleCallback(t *testing.T) {
	form := url.Values{
		"id":             {"1234"},
		"order_id":       {"T700"},
		"status":         {"paid"},
		"price_amount":   {"10.00"},
		"price_currency": {"USD"},
		"token":          {CallbackToken("T700", "cg-key")},
	}
	c := &CoinGate{}
	notify, err := c.HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "1234", notify.GatewayNo)

	// 其他订单的令牌不能复用
	form.Set("token", CallbackToken("T701", "cg-key"))
	_, err = c.HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}
