package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	testSecret = "whsec_test_secret"
	testConfig = `{"secret_key":"sk_test_123","webhook_secret":"whsec_test_secret"}`
)

func signedEvent(t *testing.T, eventType, paymentStatus string) *types.CallbackRequest {
	return signedSessionEvent(t, eventType, paymentStatus, "usd", 10150)
}

func signedSessionEvent(t *testing.T, eventType, paymentStatus, currency string, amountTotal int64) *types.CallbackRequest {
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":                  "cs_test_1",
				"object":              "checkout.session",
				"client_reference_id": "T500",
				"amount_total":        amountTotal,
				"currency":            currency,
				"payment_status":      paymentStatus,
				"metadata":            map[string]string{"trade_no": "T500"},
			},
		},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	header := http.Header{}
	header.Set("Stripe-Signature", signed.Header)
	return &types.CallbackRequest{Header: header, Body: signed.Payload}
}

func TestHandleCallbackCompleted(t *testing.T) {
	s := &Stripe{}
	notify, err := s.HandleCallback(context.Background(), signedEvent(t, eventSessionCompleted, "paid"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T500", notify.TradeNo)
	assert.Equal(t, "cs_test_1", notify.GatewayNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, "usd", notify.Currency)
}

func TestHandleCallbackAsync(t *testing.T) {
	s := &Stripe{}
	notify, err := s.HandleCallback(context.Background(), signedEvent(t, eventSessionCompleted, "unpaid"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusPending, notify.Status)

	notify, err = s.HandleCallback(context.Background(), signedEvent(t, eventAsyncPaymentFailed, "unpaid"), testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusFailed, notify.Status)

	_, err = s.HandleCallback(context.Background(), signedEvent(t, "charge.refunded", "paid"), testConfig)
	assert.ErrorIs(t, err, types.ErrCallbackUnsupported)
}

func TestHandleCallbackBadSignature(t *testing.T) {
	req := signedEvent(t, eventSessionCompleted, "paid")
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	_, err := (&Stripe{}).HandleCallback(context.Background(), req, testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)

	_, err = (&Stripe{}).HandleCallback(context.Background(), signedEvent(t, eventSessionCompleted, "paid"), `{"secret_key":"sk_test_123"}`)
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestPayCreatesCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "T500", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "10150", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	s := &Stripe{BaseURL: srv.URL}
	req, err := s.Pay(context.Background(), &types.PayConfig{
		TradeNo:     "T500",
		Amount:      decimal.RequireFromString("101.5"),
		Currency:    "USD",
		Description: "deposit",
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.PayTypeRedirect, req.Type)
	assert.Equal(t, "cs_test_1", req.GatewayNo)
	assert.Contains(t, req.URL, "checkout.stripe.com")
}

func TestZeroDecimalCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		// 日元没有辅币单位，按原值提交
		assert.Equal(t, "1000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "jpy", r.PostForm.Get("line_items[0][price_data][currency]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`))
	}))
	defer srv.Close()

	_, err := (&Stripe{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{
		TradeNo:     "T501",
		Amount:      decimal.NewFromInt(1000),
		Currency:    "JPY",
		Description: "deposit",
	}, testConfig)
	require.NoError(t, err)

	notify, err := (&Stripe{}).HandleCallback(context.Background(),
		signedSessionEvent(t, eventSessionCompleted, "paid", "jpy", 1000), testConfig)
	require.NoError(t, err)
	assert.True(t, notify.Amount.Equal(decimal.NewFromInt(1000)), notify.Amount.String())
}
