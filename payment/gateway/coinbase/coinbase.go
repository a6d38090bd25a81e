package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://api.commerce.coinbase.com"
	apiVersion     = "2018-03-22"
)

type CoinbaseConfig struct {
	APIKey        string `json:"api_key" validate:"required"`
	WebhookSecret string `json:"webhook_secret" validate:"required"`
}

type Coinbase struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type charge struct {
	Id        string            `json:"id"`
	Code      string            `json:"code"`
	HostedURL string            `json:"hosted_url"`
	Metadata  map[string]string `json:"metadata"`
	Pricing   struct {
		Local money `json:"local"`
	} `json:"pricing"`
	Payments []payment `json:"payments"`
}

type payment struct {
	Status string `json:"status"`
	Value  struct {
		Local money `json:"local"`
	} `json:"value"`
}

// receivedAmount 汇总链上实际到账金额（计价币种），pricing 只是报价
func (c *charge) receivedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Payments {
		if strings.EqualFold(p.Status, "FAILED") {
			continue
		}
		total = total.Add(p.Value.Local.Amount)
	}
	return total
}

type chargeResponse struct {
	Data  charge `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type webhookEvent struct {
	Event struct {
		Id   string `json:"id"`
		Type string `json:"type"`
		Data charge `json:"data"`
	} `json:"event"`
}

func (c *Coinbase) Name() string {
	return "Coinbase Commerce"
}

func (c *Coinbase) parseConfig(gatewayConfig string) (*CoinbaseConfig, error) {
	var cfg CoinbaseConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Coinbase) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Coinbase) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result chargeResponse
	resp, err := requester.NewRestyClient(c.baseURL()).R().
		SetContext(ctx).
		SetHeader("X-CC-Api-Key", cfg.APIKey).
		SetHeader("X-CC-Version", apiVersion).
		SetBody(map[string]any{
			"name":         "Deposit",
			"description":  config.Description,
			"pricing_type": "fixed_price",
			"local_price": map[string]string{
				"amount":   config.Amount.StringFixed(2),
				"currency": config.Currency,
			},
			"metadata":     map[string]string{"trade_no": config.TradeNo},
			"redirect_url": config.ReturnURL,
			"cancel_url":   config.CancelURL,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/charges")
	if err != nil {
		return nil, types.RequestError("coinbase", err)
	}
	if resp.IsError() || result.Data.HostedURL == "" {
		return nil, types.RequestError("coinbase", errors.New(resp.Status()+" "+result.Error.Message))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.Data.HostedURL,
		GatewayNo: result.Data.Code,
	}, nil
}

func (c *Coinbase) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := c.parseConfig(gateway.Config)
	return err
}

// VerifySignature X-CC-Webhook-Signature = HMAC-SHA256(原始报文, shared secret)
func VerifySignature(body []byte, secret, received string) bool {
	return sign.Equal(sign.HMACSHA256Hex(body, secret), received)
}

func (c *Coinbase) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(req.Body, cfg.WebhookSecret, req.HeaderValue("X-CC-Webhook-Signature")) {
		return nil, types.SignatureError("coinbase")
	}

	var event webhookEvent
	if err = json.Unmarshal(req.Body, &event); err != nil {
		return nil, types.NewVerificationError("coinbase", "invalid payload", types.ErrCallbackMalformed)
	}

	var status types.NotifyStatus
	switch event.Event.Type {
	case "charge:confirmed", "charge:resolved":
		status = types.NotifyStatusSuccess
	case "charge:created", "charge:pending", "charge:delayed":
		status = types.NotifyStatusPending
	case "charge:failed":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("coinbase", "unhandled event "+event.Event.Type, types.ErrCallbackUnsupported)
	}

	data := event.Event.Data
	received := data.receivedAmount()
	// 金额为零时入账校验会跳过，成功事件必须带有付款记录
	if status == types.NotifyStatusSuccess && !received.IsPositive() {
		return nil, types.NewVerificationError("coinbase", "no payment recorded for "+event.Event.Type, types.ErrAmountMismatch)
	}
	notify := types.NewNotify(data.Metadata["trade_no"], data.Code, status)
	notify.Amount = received
	notify.Currency = data.Pricing.Local.Currency
	return notify, nil
}
