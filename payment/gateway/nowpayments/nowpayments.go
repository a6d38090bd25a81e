package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.nowpayments.io"

type NowPaymentsConfig struct {
	APIKey    string `json:"api_key" validate:"required"`
	IPNSecret string `json:"ipn_secret" validate:"required"`
}

type NowPayments struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type invoiceResponse struct {
	Id         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Message    string `json:"message"`
}

type ipnPayload struct {
	PaymentId     json.Number     `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PriceAmount   decimal.Decimal `json:"price_amount"`
	PriceCurrency string          `json:"price_currency"`
	PayAmount     decimal.Decimal `json:"pay_amount"`
	ActuallyPaid  decimal.Decimal `json:"actually_paid"`
	OrderId       string          `json:"order_id"`
}

func (n *NowPayments) Name() string {
	return "NOWPayments"
}

func (n *NowPayments) parseConfig(gatewayConfig string) (*NowPaymentsConfig, error) {
	var cfg NowPaymentsConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (n *NowPayments) baseURL() string {
	if n.BaseURL != "" {
		return n.BaseURL
	}
	return defaultBaseURL
}

func (n *NowPayments) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := n.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var invoice invoiceResponse
	resp, err := requester.NewRestyClient(n.baseURL()).R().
		SetContext(ctx).
		SetHeader("x-api-key", cfg.APIKey).
		SetBody(map[string]any{
			"price_amount":      config.Amount.InexactFloat64(),
			"price_currency":    strings.ToLower(config.Currency),
			"order_id":          config.TradeNo,
			"order_description": config.Description,
			"ipn_callback_url":  config.NotifyURL,
			"success_url":       config.ReturnURL,
			"cancel_url":        config.CancelURL,
		}).
		SetResult(&invoice).
		SetError(&invoice).
		Post("/v1/invoice")
	if err != nil {
		return nil, types.RequestError("nowpayments", err)
	}
	if resp.IsError() || invoice.InvoiceURL == "" {
		return nil, types.RequestError("nowpayments", errors.New(resp.Status()+" "+invoice.Message))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       invoice.InvoiceURL,
		GatewayNo: invoice.Id,
	}, nil
}

func (n *NowPayments) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := n.parseConfig(gateway.Config)
	return err
}

// SortedJSON 按键排序重新序列化报文，数字保持原样
func SortedJSON(body []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// VerifySignature x-nowpayments-sig = HMAC-SHA512(按键排序的 JSON)
func VerifySignature(body []byte, secret, received string) bool {
	sorted, err := SortedJSON(body)
	if err != nil {
		return false
	}
	return sign.Equal(sign.HMACSHA512Hex(sorted, secret), received)
}

func (n *NowPayments) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := n.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(req.Body, cfg.IPNSecret, req.HeaderValue("x-nowpayments-sig")) {
		return nil, types.SignatureError("nowpayments")
	}

	var payload ipnPayload
	if err = json.Unmarshal(req.Body, &payload); err != nil {
		return nil, types.NewVerificationError("nowpayments", fmt.Sprintf("invalid payload: %v", err), types.ErrCallbackMalformed)
	}

	var status types.NotifyStatus
	switch payload.PaymentStatus {
	case "finished":
		status = types.NotifyStatusSuccess
	case "waiting", "confirming", "confirmed", "sending", "partially_paid":
		status = types.NotifyStatusPending
	case "failed", "expired":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("nowpayments", "unhandled status "+payload.PaymentStatus, types.ErrCallbackUnsupported)
	}

	received := payload.receivedAmount()
	// 金额为零时入账校验会跳过，成功通知必须能换算出到账金额
	if status == types.NotifyStatusSuccess && !received.IsPositive() {
		return nil, types.NewVerificationError("nowpayments", "actually_paid missing from finished payment", types.ErrAmountMismatch)
	}
	notify := types.NewNotify(payload.OrderId, payload.PaymentId.String(), status)
	notify.Amount = received
	notify.Currency = payload.PriceCurrency
	return notify, nil
}

// receivedAmount 按 price_amount / pay_amount 的汇率把 actually_paid 换算回计价币种
func (p *ipnPayload) receivedAmount() decimal.Decimal {
	if !p.PayAmount.IsPositive() || !p.ActuallyPaid.IsPositive() {
		return decimal.Zero
	}
	if p.ActuallyPaid.GreaterThanOrEqual(p.PayAmount) {
		return p.PriceAmount
	}
	return p.PriceAmount.Mul(p.ActuallyPaid).Div(p.PayAmount).Truncate(8)
}
