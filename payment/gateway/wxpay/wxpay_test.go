package wxpay

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"strconv"
	"testing"
	"time"

	"blackcnote/model"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiV3Key = "0123456789abcdef0123456789abcdef"

type fixture struct {
	platformKey *rsa.PrivateKey
	config      string
}

func newFixture(t *testing.T) fixture {
	merchantKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	platformKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	merchantDER, err := x509.MarshalPKCS8PrivateKey(merchantKey)
	require.NoError(t, err)
	platformDER, err := x509.MarshalPKIXPublicKey(&platformKey.PublicKey)
	require.NoError(t, err)

	cfg, err := json.Marshal(map[string]string{
		"app_id":        "wx0001",
		"mch_id":        "1900000001",
		"cert_serial":   "SERIAL01",
		"private_key":   string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: merchantDER})),
		"api_v3_key":    apiV3Key,
		"public_key_id": "PUB_KEY_ID_01",
		"public_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: platformDER})),
	})
	require.NoError(t, err)
	return fixture{platformKey: platformKey, config: string(cfg)}
}

func encryptResource(t *testing.T, plaintext []byte) map[string]string {
	block, err := aes.NewCipher([]byte(apiV3Key))
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)
	nonce := "abcdefghijkl"
	ciphertext := gcm.Seal(nil, []byte(nonce), plaintext, []byte("transaction"))
	return map[string]string{
		"algorithm":       "AEAD_AES_256_GCM",
		"ciphertext":      base64.StdEncoding.EncodeToString(ciphertext),
		"associated_data": "transaction",
		"nonce":           nonce,
		"original_type":   "transaction",
	}
}

func notifyRequest(t *testing.T, f fixture, tradeState string) *types.CallbackRequest {
	transaction, err := json.Marshal(map[string]any{
		"mchid":          "1900000001",
		"appid":          "wx0001",
		"out_trade_no":   "T2000",
		"transaction_id": "4200000001",
		"trade_state":    tradeState,
		"amount":         map[string]any{"total": 12800, "payer_total": 12800, "currency": "CNY"},
	})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"id":            "EV-1",
		"create_time":   time.Now().Format(time.RFC3339),
		"event_type":    "TRANSACTION.SUCCESS",
		"resource_type": "encrypt-resource",
		"summary":       "支付成功",
		"resource":      encryptResource(t, transaction),
	})
	require.NoError(t, err)

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := "NONCE123"
	digest := sha256.Sum256([]byte(timestamp + "\n" + nonce + "\n" + string(body) + "\n"))
	signature, err := rsa.SignPKCS1v15(rand.Reader, f.platformKey, crypto.SHA256, digest[:])
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Wechatpay-Timestamp", timestamp)
	header.Set("Wechatpay-Nonce", nonce)
	header.Set("Wechatpay-Serial", "PUB_KEY_ID_01")
	header.Set("Wechatpay-Signature", base64.StdEncoding.EncodeToString(signature))
	header.Set("Request-ID", "req-1")
	return &types.CallbackRequest{Header: header, Body: body}
}

func TestHandleCallback(t *testing.T) {
	f := newFixture(t)
	w := &WeChatPay{}

	result, err := w.HandleCallback(context.Background(), notifyRequest(t, f, "SUCCESS"), f.config)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusSuccess, result.Status)
	assert.Equal(t, "T2000", result.TradeNo)
	assert.Equal(t, "4200000001", result.GatewayNo)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(128)))

	result, err = w.HandleCallback(context.Background(), notifyRequest(t, f, "CLOSED"), f.config)
	require.NoError(t, err)
	assert.Equal(t, types.NotifyStatusFailed, result.Status)
}

func TestHandleCallbackForged(t *testing.T) {
	f := newFixture(t)
	req := notifyRequest(t, f, "SUCCESS")
	req.Header.Set("Wechatpay-Signature", base64.StdEncoding.EncodeToString([]byte("forged")))

	_, err := (&WeChatPay{}).HandleCallback(context.Background(), req, f.config)
	assert.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestCreatedPayValidatesKey(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, (&WeChatPay{}).CreatedPay("", &model.Gateway{Config: f.config}))

	err := (&WeChatPay{}).CreatedPay("", &model.Gateway{Config: `{"app_id":"a","mch_id":"m","cert_serial":"s","private_key":"bad","api_v3_key":"` + apiV3Key + `"}`})
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}
