package razorpay

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

const testConfig = `{"key_id":"rzp_test_key","key_secret":"rzp-secret"}`

func TestVerifyCheckoutSignature(t *testing.T) {
	signature := sign.HMACSHA256Hex([]byte("order_1|pay_1"), "rzp-secret")
	assert.True(t, VerifyCheckoutSignature("order_1", "pay_1", signature, "rzp-secret"))
	assert.False(t, VerifyCheckoutSignature("order_1", "pay_2", signature, "rzp-secret"))
}

func TestHandleCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/order_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_1","receipt":"T1000","status":"paid","currency":"INR","amount_paid":150000}`))
	}))
	defer srv.Close()

	form := url.Values{
		"razorpay_order_id":   {"order_1"},
		"razorpay_payment_id": {"pay_1"},
		"razorpay_signature":  {sign.HMACSHA256Hex([]byte("order_1|pay_1"), "rzp-secret")},
	}
	r := &Razorpay{BaseURL: srv.URL}
	notify, err := r.HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T1000", notify.TradeNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("1500")))
	assert.Equal(t, "INR", notify.Currency)

	form.Set("razorpay_signature", "forged")
	_, err = r.HandleCallback(context.Background(), &types.CallbackRequest{Form: form}, testConfig)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}
