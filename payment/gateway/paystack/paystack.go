package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const defaultBaseURL = "https://api.paystack.co"

type PaystackConfig struct {
	SecretKey string `json:"secret_key" validate:"required"`
}

type Paystack struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Id        int64  `json:"id"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
	} `json:"data"`
}

func (p *Paystack) Name() string {
	return "Paystack"
}

func (p *Paystack) parseConfig(gatewayConfig string) (*PaystackConfig, error) {
	var cfg PaystackConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Paystack) baseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return defaultBaseURL
}

func (p *Paystack) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result initializeResponse
	resp, err := requester.NewRestyClient(p.baseURL()).R().
		SetContext(ctx).
		SetAuthToken(cfg.SecretKey).
		SetBody(map[string]any{
			"email":        config.User.Email,
			"amount":       types.MajorToMinor(config.Amount, config.Currency),
			"currency":     config.Currency,
			"reference":    config.TradeNo,
			"callback_url": config.ReturnURL,
			"metadata":     map[string]string{"trade_no": config.TradeNo},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/transaction/initialize")
	if err != nil {
		return nil, types.RequestError("paystack", err)
	}
	if resp.IsError() || !result.Status {
		return nil, types.RequestError("paystack", errors.New(resp.Status()+" "+result.Message))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.Data.AuthorizationURL,
		GatewayNo: result.Data.AccessCode,
	}, nil
}

func (p *Paystack) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := p.parseConfig(gateway.Config)
	return err
}

// VerifySignature x-paystack-signature = HMAC-SHA512(原始报文, secret key)
func VerifySignature(body []byte, secretKey, received string) bool {
	return sign.Equal(sign.HMACSHA512Hex(body, secretKey), received)
}

func (p *Paystack) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(req.Body, cfg.SecretKey, req.HeaderValue("x-paystack-signature")) {
		return nil, types.SignatureError("paystack")
	}

	var event webhookEvent
	if err = json.Unmarshal(req.Body, &event); err != nil {
		return nil, types.NewVerificationError("paystack", "invalid payload", types.ErrCallbackMalformed)
	}
	if event.Event != "charge.success" {
		return nil, types.NewVerificationError("paystack", "unhandled event "+event.Event, types.ErrCallbackUnsupported)
	}

	status := types.NotifyStatusPending
	switch event.Data.Status {
	case "success":
		status = types.NotifyStatusSuccess
	case "failed", "abandoned", "reversed":
		status = types.NotifyStatusFailed
	}
	notify := types.NewNotify(event.Data.Reference, strconv.FormatInt(event.Data.Id, 10), status)
	notify.Amount = types.MinorToMajor(event.Data.Amount, event.Data.Currency)
	notify.Currency = event.Data.Currency
	return notify, nil
}
