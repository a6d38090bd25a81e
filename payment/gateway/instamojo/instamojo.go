package instamojo

import (
	"context"
	"errors"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const (
	liveBaseURL    = "https://www.instamojo.com"
	sandboxBaseURL = "https://test.instamojo.com"
)

type InstamojoConfig struct {
	APIKey    string `json:"api_key" validate:"required"`
	AuthToken string `json:"auth_token" validate:"required"`
	Salt      string `json:"salt" validate:"required"`
	Sandbox   bool   `json:"sandbox"`
}

type Instamojo struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type paymentRequestResponse struct {
	Success        bool `json:"success"`
	Message        any  `json:"message"`
	PaymentRequest struct {
		Id      string `json:"id"`
		LongURL string `json:"longurl"`
	} `json:"payment_request"`
}

func (i *Instamojo) Name() string {
	return "Instamojo"
}

func (i *Instamojo) parseConfig(gatewayConfig string) (*InstamojoConfig, error) {
	var cfg InstamojoConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (i *Instamojo) baseURL(sandbox bool) string {
	if i.BaseURL != "" {
		return i.BaseURL
	}
	if sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

func (i *Instamojo) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := i.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result paymentRequestResponse
	resp, err := requester.NewRestyClient(i.baseURL(cfg.Sandbox)).R().
		SetContext(ctx).
		SetHeader("X-Api-Key", cfg.APIKey).
		SetHeader("X-Auth-Token", cfg.AuthToken).
		SetFormData(map[string]string{
			"purpose":                 config.TradeNo,
			"amount":                  config.Amount.StringFixed(2),
			"buyer_name":              config.User.Username,
			"email":                   config.User.Email,
			"redirect_url":            config.ReturnURL,
			"webhook":                 config.NotifyURL,
			"allow_repeated_payments": "False",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/api/1.1/payment-requests/")
	if err != nil {
		return nil, types.RequestError("instamojo", err)
	}
	if resp.IsError() || !result.Success {
		return nil, types.RequestError("instamojo", errors.New(resp.Status()))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.PaymentRequest.LongURL,
		GatewayNo: result.PaymentRequest.Id,
	}, nil
}

func (i *Instamojo) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := i.parseConfig(gateway.Config)
	return err
}

// MAC 将除 mac 外的字段按键名（忽略大小写）排序后以 | 连接，做 HMAC-SHA1
func MAC(fields map[string]string, salt string) string {
	data := make(map[string]string, len(fields))
	for k, v := range fields {
		if k != "mac" {
			data[k] = v
		}
	}
	payload := sign.JoinFields(data, sign.SortedKeys(data, true), "|")
	return sign.HMACSHA1Hex([]byte(payload), salt)
}

func (i *Instamojo) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := i.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	if !sign.Equal(MAC(fields, cfg.Salt), fields["mac"]) {
		return nil, types.SignatureError("instamojo")
	}

	status := types.NotifyStatusFailed
	if strings.EqualFold(fields["status"], "Credit") {
		status = types.NotifyStatusSuccess
	}
	amount, err := types.ParseAmount("instamojo", fields["amount"])
	if err != nil {
		return nil, err
	}
	tradeNo := fields["purpose"]
	if tradeNo == "" {
		tradeNo = req.TradeNo
	}
	notify := types.NewNotify(tradeNo, fields["payment_request_id"], status)
	notify.Amount = amount
	notify.Currency = fields["currency"]
	return notify, nil
}
