package paypal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{"business":"merchant@example.com","sandbox":true}`

func ipnServer(t *testing.T, reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.HasPrefix(string(body), "cmd=_notify-validate&"))
		_, _ = w.Write([]byte(reply))
	}))
}

func ipnBody(status string) []byte {
	values := url.Values{
		"receiver_email": {"merchant@example.com"},
		"payment_status": {status},
		"mc_gross":       {"101.00"},
		"mc_currency":    {"USD"},
		"custom":         {"T100"},
		"txn_id":         {"9XX"},
	}
	return []byte(values.Encode())
}

func TestPayBuildsForm(t *testing.T) {
	p := &PayPal{}
	req, err := p.Pay(context.Background(), &types.PayConfig{
		TradeNo:   "T100",
		Amount:    decimal.RequireFromString("101"),
		Currency:  "USD",
		NotifyURL: "https://example.com/notify",
	}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.PayTypeForm, req.Type)
	assert.Equal(t, sandboxCheckout, req.URL)
	assert.Equal(t, "101.00", req.Params["amount"])
	assert.Equal(t, "T100", req.Params["custom"])

	_, err = p.Pay(context.Background(), &types.PayConfig{}, `{}`)
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestHandleCallbackVerified(t *testing.T) {
	srv := ipnServer(t, "VERIFIED")
	defer srv.Close()

	p := &PayPal{VerifyURL: srv.URL}
	notify, err := p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody("Completed")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T100", notify.TradeNo)
	assert.Equal(t, "9XX", notify.GatewayNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("101")))

	notify, err = p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody("Pending")}, testConfig)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusPending, notify.Status)
}

func TestHandleCallbackReversalAcknowledged(t *testing.T) {
	srv := ipnServer(t, "VERIFIED")
	defer srv.Close()

	p := &PayPal{VerifyURL: srv.URL}
	for _, status := range []string{"Refunded", "Reversed", "Canceled_Reversal"} {
		notify, err := p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody(status)}, testConfig)
		require.NoError(t, err, status)
		assert.Equal(t, types.NotifyStatusIgnored, notify.Status, status)
		assert.Equal(t, "T100", notify.TradeNo)
	}

	_, err := p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody("Created")}, testConfig)
	assert.ErrorIs(t, err, types.ErrCallbackUnsupported)
}

func TestHandleCallbackInvalid(t *testing.T) {
	srv := ipnServer(t, "INVALID")
	defer srv.Close()

	p := &PayPal{VerifyURL: srv.URL}
	_, err := p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody("Completed")}, testConfig)
	var verr *types.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestHandleCallbackReceiverMismatch(t *testing.T) {
	srv := ipnServer(t, "VERIFIED")
	defer srv.Close()

	p := &PayPal{VerifyURL: srv.URL}
	_, err := p.HandleCallback(context.Background(), &types.CallbackRequest{Body: ipnBody("Completed")},
		`{"business":"other@example.com"}`)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}
