package binance

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"blackcnote/common/requester"
	"blackcnote/common/utils"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://bpay.binanceapi.com"

	headerTimestamp = "BinancePay-Timestamp"
	headerNonce     = "BinancePay-Nonce"
	headerSignature = "BinancePay-Signature"
	headerCertSN    = "BinancePay-Certificate-SN"
)

type BinanceConfig struct {
	APIKey    string `json:"api_key" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
	// PublicKey 回调验签公钥，留空时从证书接口获取
	PublicKey string `json:"public_key"`
}

type BinancePay struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type apiResponse struct {
	Status       string          `json:"status"`
	Code         string          `json:"code"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"errorMessage"`
}

type orderData struct {
	PrepayId    string `json:"prepayId"`
	CheckoutURL string `json:"checkoutUrl"`
	QRContent   string `json:"qrContent"`
}

type certificate struct {
	CertPublic string `json:"certPublic"`
	CertSerial string `json:"certSerial"`
}

type webhookPayload struct {
	BizType   string      `json:"bizType"`
	BizId     json.Number `json:"bizId"`
	BizStatus string      `json:"bizStatus"`
	Data      string      `json:"data"`
}

type payData struct {
	MerchantTradeNo string          `json:"merchantTradeNo"`
	TransactionId   string          `json:"transactionId"`
	TotalFee        decimal.Decimal `json:"totalFee"`
	Currency        string          `json:"currency"`
}

func (b *BinancePay) Name() string {
	return "Binance Pay"
}

func (b *BinancePay) AmountPrecision() int32 {
	return 8
}

func (b *BinancePay) parseConfig(gatewayConfig string) (*BinanceConfig, error) {
	var cfg BinanceConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (b *BinancePay) baseURL() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return defaultBaseURL
}

func signingPayload(timestamp, nonce string, body []byte) []byte {
	return []byte(timestamp + "\n" + nonce + "\n" + string(body) + "\n")
}

// RequestSignature 请求签名：大写十六进制 HMAC-SHA512
func RequestSignature(timestamp, nonce string, body []byte, secretKey string) string {
	return strings.ToUpper(sign.HMACSHA512Hex(signingPayload(timestamp, nonce, body), secretKey))
}

// VerifyWebhook 回调验签：RSA-SHA256，签名为 base64
func VerifyWebhook(pub *rsa.PublicKey, timestamp, nonce string, body []byte, signature string) bool {
	return sign.VerifyRSASHA256(pub, signingPayload(timestamp, nonce, body), signature)
}

func (b *BinancePay) post(ctx context.Context, cfg *BinanceConfig, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := utils.GetRandomString(32)

	var result apiResponse
	resp, err := requester.NewRestyClient(b.baseURL()).R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerTimestamp, timestamp).
		SetHeader(headerNonce, nonce).
		SetHeader(headerCertSN, cfg.APIKey).
		SetHeader(headerSignature, RequestSignature(timestamp, nonce, body, cfg.SecretKey)).
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() || result.Status != "SUCCESS" {
		return errors.New(resp.Status() + " " + result.Code + " " + result.ErrorMessage)
	}
	return json.Unmarshal(result.Data, out)
}

func (b *BinancePay) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var order orderData
	err = b.post(ctx, cfg, "/binancepay/openapi/v3/order", map[string]any{
		"env":             map[string]string{"terminalType": "WEB"},
		"merchantTradeNo": config.TradeNo,
		"orderAmount":     json.Number(config.Amount.Round(8).String()),
		"currency":        config.Currency,
		"description":     config.Description,
		"goodsDetails": []map[string]string{{
			"goodsType":        "02",
			"goodsCategory":    "Z000",
			"referenceGoodsId": config.TradeNo,
			"goodsName":        "Deposit",
		}},
		"returnUrl":  config.ReturnURL,
		"cancelUrl":  config.CancelURL,
		"webhookUrl": config.NotifyURL,
	}, &order)
	if err != nil {
		return nil, types.RequestError("binance", err)
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       order.CheckoutURL,
		GatewayNo: order.PrepayId,
	}, nil
}

func (b *BinancePay) CreatedPay(_ string, gateway *model.Gateway) error {
	cfg, err := b.parseConfig(gateway.Config)
	if err != nil {
		return err
	}
	if cfg.PublicKey != "" {
		if _, err = sign.ParseRSAPublicKey(cfg.PublicKey); err != nil {
			return types.ErrConfigInvalid
		}
	}
	return nil
}

func (b *BinancePay) publicKey(ctx context.Context, cfg *BinanceConfig, certSN string) (*rsa.PublicKey, error) {
	if cfg.PublicKey != "" {
		return sign.ParseRSAPublicKey(cfg.PublicKey)
	}
	var certs []certificate
	if err := b.post(ctx, cfg, "/binancepay/openapi/certificates", map[string]any{}, &certs); err != nil {
		return nil, err
	}
	for _, cert := range certs {
		if certSN == "" || cert.CertSerial == certSN {
			return sign.ParseRSAPublicKey(cert.CertPublic)
		}
	}
	return nil, errors.New("no matching certificate")
}

func (b *BinancePay) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	pub, err := b.publicKey(ctx, cfg, req.HeaderValue(headerCertSN))
	if err != nil {
		return nil, types.RequestError("binance", err)
	}
	if !VerifyWebhook(pub, req.HeaderValue(headerTimestamp), req.HeaderValue(headerNonce), req.Body, req.HeaderValue(headerSignature)) {
		return nil, types.SignatureError("binance")
	}

	var payload webhookPayload
	if err = json.Unmarshal(req.Body, &payload); err != nil {
		return nil, types.NewVerificationError("binance", "invalid payload", types.ErrCallbackMalformed)
	}
	if payload.BizType != "PAY" {
		return nil, types.NewVerificationError("binance", "unhandled biz type "+payload.BizType, types.ErrCallbackUnsupported)
	}
	var data payData
	if err = json.Unmarshal([]byte(payload.Data), &data); err != nil {
		return nil, types.NewVerificationError("binance", "invalid pay data", types.ErrCallbackMalformed)
	}

	var status types.NotifyStatus
	switch payload.BizStatus {
	case "PAY_SUCCESS":
		status = types.NotifyStatusSuccess
	case "PAY_CLOSED":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("binance", "unhandled status "+payload.BizStatus, types.ErrCallbackUnsupported)
	}

	notify := types.NewNotify(data.MerchantTradeNo, payload.BizId.String(), status)
	notify.Amount = data.TotalFee
	notify.Currency = data.Currency
	notify.Reply = `{"returnCode":"SUCCESS","returnMessage":null}`
	notify.ReplyContentType = "application/json"
	return notify, nil
}
