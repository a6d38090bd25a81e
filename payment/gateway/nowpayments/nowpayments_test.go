package nowpayments

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

const testConfig = `{"api_key":"np-key","ipn_secret":"np-ipn"}`

func TestSortedJSON(t *testing.T) {
	sorted, err := SortedJSON([]byte(`{"order_id":"T800","actually_paid":0.0015,"fee":{"b":1,"a":2},"note":"<ok>"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"actually_paid":0.0015,"fee":{"a":2,"b":1},"note":"<ok>","order_id":"T800"}`, string(sorted))
}

func ipnRequest(t *testing.T, status, secret string) *types.CallbackRequest {
	return ipnRequestPaid(t, status, secret, "0.0015")
}

func ipnRequestPaid(t *testing.T, status, secret, actuallyPaid string) *types.CallbackRequest {
	body := []byte(`{"payment_status":"` + status + `","payment_id":5077125051,"price_amount":25.5,"price_currency":"usd",` +
		`"pay_amount":0.0015,"pay_currency":"btc","actually_paid":` + actuallyPaid + `,"order_id":"T800"}`)
	sorted, err := SortedJSON(body)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("x-nowpayments-sig", sign.HMACSHA512Hex(sorted, secret))
	return &types.CallbackRequest{Header: header, Body: body}
}

func TestHandleCallback(t *testing.T) {
	n := &NowPayments{}
	notify, err := n.HandleCallback(context.Background(), ipnRequest(t, "finished", "np-ipn"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T800", notify.TradeNo)
	assert.Equal(t, "5077125051", notify.GatewayNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("25.5")))

	notify, err = n.HandleCallback(context.Background(), ipnRequest(t, "partially_paid", "np-ipn"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusPending, notify.Status)

	_, err = n.HandleCallback(context.Background(), ipnRequest(t, "finished", "bad"), testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestHandleCallbackConvertsActuallyPaid(t *testing.T) {
	n := &NowPayments{}
	// 只付了三分之一，按报价汇率折回 8.5 usd
	notify, err := n.HandleCallback(context.Background(), ipnRequestPaid(t, "finished", "np-ipn", "0.0005"), testConfig)
	require.NoError(t, err)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("8.5")), notify.Amount.String())
	assert.Equal(t, "usd", notify.Currency)

	// 多付不超过报价
	notify, err = n.HandleCallback(context.Background(), ipnRequestPaid(t, "finished", "np-ipn", "0.002"), testConfig)
	require.NoError(t, err)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("25.5")), notify.Amount.String())

	_, err = n.HandleCallback(context.Background(), ipnRequestPaid(t, "finished", "np-ipn", "0"), testConfig)
	assert.ErrorIs(t, err, types.ErrAmountMismatch)
}

func TestPay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoice", r.URL.Path)
		assert.Equal(t, "np-key", r.Header.Get("x-api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "T800", body["order_id"])
		assert.Equal(t, "usd", body["price_currency"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4522625843","invoice_url":"https://nowpayments.io/payment/?iid=4522625843"}`))
	}))
	defer srv.Close()

	req, err := (&NowPayments{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{
		TradeNo:  "T800",
		Amount:   decimal.RequireFromString("25.5"),
		Currency: "USD",
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, "4522625843", req.GatewayNo)
	assert.Equal(t, types.PayTypeRedirect, req.Type)
}
