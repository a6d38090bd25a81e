package binance

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (*rsa.PrivateKey, string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signedWebhook(t *testing.T, key *rsa.PrivateKey, status string) *types.CallbackRequest {
	data, err := json.Marshal(map[string]any{
		"merchantTradeNo": "T1800",
		"transactionId":   "M_1",
		"totalFee":        25.5,
		"currency":        "USDT",
	})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"bizType":   "PAY",
		"bizId":     29383937493038367,
		"bizStatus": status,
		"data":      string(data),
	})
	require.NoError(t, err)

	digest := sha256.Sum256(signingPayload("1700000000000", "nonce123", body))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	header := http.Header{}
	header.Set(headerTimestamp, "1700000000000")
	header.Set(headerNonce, "nonce123")
	header.Set(headerSignature, base64.StdEncoding.EncodeToString(sig))
	return &types.CallbackRequest{Header: header, Body: body}
}

func TestRequestSignature(t *testing.T) {
	sig := RequestSignature("1", "n", []byte("{}"), "secret")
	assert.Len(t, sig, 128)
	assert.Equal(t, sig, RequestSignature("1", "n", []byte("{}"), "secret"))
	assert.NotEqual(t, sig, RequestSignature("2", "n", []byte("{}"), "secret"))
}

func TestHandleCallback(t *testing.T) {
	key, pubPEM := newKey(t)
	cfgJSON, err := json.Marshal(map[string]string{"api_key": "k", "secret_key": "s", "public_key": pubPEM})
	require.NoError(t, err)

	b := &BinancePay{}
	notify, err := b.HandleCallback(context.Background(), signedWebhook(t, key, "PAY_SUCCESS"), string(cfgJSON))
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, notify.Status)
	assert.Equal(t, "T1800", notify.TradeNo)
	assert.Equal(t, "29383937493038367", notify.GatewayNo)
	assert.True(t, notify.Amount.Equal(decimal.RequireFromString("25.5")))

	other, _ := newKey(t)
	_, err = b.HandleCallback(context.Background(), signedWebhook(t, other, "PAY_SUCCESS"), string(cfgJSON))
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestPaySignsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		expected := RequestSignature(r.Header.Get(headerTimestamp), r.Header.Get(headerNonce), body, "secret")
		assert.Equal(t, expected, r.Header.Get(headerSignature))
		assert.Equal(t, "api-key", r.Header.Get(headerCertSN))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","code":"000000","data":{"prepayId":"P1","checkoutUrl":"https://pay.binance.com/checkout/P1"}}`))
	}))
	defer srv.Close()

	req, err := (&BinancePay{BaseURL: srv.URL}).Pay(context.Background(), &types.PayConfig{
		TradeNo:  "T1800",
		Amount:   decimal.RequireFromString("25.5"),
		Currency: "USDT",
	}, `{"api_key":"api-key","secret_key":"secret"}`)
	require.NoError(t, err)
	assert.Equal(t, "P1", req.GatewayNo)
	assert.Equal(t, "https://pay.binance.com/checkout/P1", req.URL)
}
