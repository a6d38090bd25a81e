package coingate

import (
	"context"
	"errors"
	"strconv"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const (
	liveBaseURL    = "https://api.coingate.com"
	sandboxBaseURL = "https://api-sandbox.coingate.com"
)

type CoinGateConfig struct {
	APIKey          string `json:"api_key" validate:"required"`
	ReceiveCurrency string `json:"receive_currency"`
	Sandbox         bool   `json:"sandbox"`
}

type CoinGate struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type orderResponse struct {
	Id         int64  `json:"id"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url"`
	Message    string `json:"message"`
}

func (c *CoinGate) Name() string {
	return "CoinGate"
}

func (c *CoinGate) parseConfig(gatewayConfig string) (*CoinGateConfig, error) {
	var cfg CoinGateConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.ReceiveCurrency == "" {
		cfg.ReceiveCurrency = "DO_NOT_CONVERT"
	}
	return &cfg, nil
}

func (c *CoinGate) baseURL(sandbox bool) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

// CallbackToken 每笔订单独立的回调令牌
func CallbackToken(tradeNo, apiKey string) string {
	return sign.HMACSHA256Hex([]byte(tradeNo), apiKey)
}

func (c *CoinGate) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	resp, err := requester.NewRestyClient(c.baseURL(cfg.Sandbox)).R().
		SetContext(ctx).
		SetAuthScheme("Token").
		SetAuthToken(cfg.APIKey).
		SetFormData(map[string]string{
			"order_id":         config.TradeNo,
			"price_amount":     config.Amount.StringFixed(2),
			"price_currency":   config.Currency,
			"receive_currency": cfg.ReceiveCurrency,
			"title":            config.Description,
			"callback_url":     config.NotifyURL,
			"success_url":      config.ReturnURL,
			"cancel_url":       config.CancelURL,
			"token":            CallbackToken(config.TradeNo, cfg.APIKey),
		}).
		SetResult(&order).
		SetError(&order).
		Post("/v2/orders")
	if err != nil {
		return nil, types.RequestError("coingate", err)
	}
	if resp.IsError() || order.PaymentURL == "" {
		return nil, types.RequestError("coingate", errors.New(resp.Status()+" "+order.Message))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       order.PaymentURL,
		GatewayNo: strconv.FormatInt(order.Id, 10),
	}, nil
}

func (c *CoinGate) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := c.parseConfig(gateway.Config)
	return err
}

func (c *CoinGate) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	tradeNo := fields["order_id"]
	if tradeNo == "" {
		return nil, types.NewVerificationError("coingate", "missing order_id", types.ErrCallbackMalformed)
	}
	if !sign.Equal(CallbackToken(tradeNo, cfg.APIKey), fields["token"]) {
		return nil, types.SignatureError("coingate")
	}

	var status types.NotifyStatus
	switch fields["status"] {
	case "paid":
		status = types.NotifyStatusSuccess
	case "new", "pending", "confirming":
		status = types.NotifyStatusPending
	case "invalid", "expired", "canceled":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("coingate", "unhandled status "+fields["status"], types.ErrCallbackUnsupported)
	}

	amount, err := types.ParseAmount("coingate", fields["price_amount"])
	if err != nil {
		return nil, err
	}
	notify := types.NewNotify(tradeNo, fields["id"], status)
	notify.Amount = amount
	notify.Currency = fields["price_currency"]
	return notify, nil
}
