package mollie

import (
	"context"
	"errors"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/types"
)

const defaultBaseURL = "https://api.mollie.com"

type MollieConfig struct {
	APIKey string `json:"api_key" validate:"required"`
}

type Mollie struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type payment struct {
	Id       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   amount            `json:"amount"`
	Metadata map[string]string `json:"metadata"`
	Links    struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
	Detail string `json:"detail"`
}

func (m *Mollie) Name() string {
	return "Mollie"
}

func (m *Mollie) parseConfig(gatewayConfig string) (*MollieConfig, error) {
	var cfg MollieConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (m *Mollie) baseURL() string {
	if m.BaseURL != "" {
		return m.BaseURL
	}
	return defaultBaseURL
}

func (m *Mollie) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := m.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result payment
	resp, err := requester.NewRestyClient(m.baseURL()).R().
		SetContext(ctx).
		SetAuthToken(cfg.APIKey).
		SetBody(map[string]any{
			"amount": amount{
				Currency: config.Currency,
				Value:    config.Amount.StringFixed(2),
			},
			"description": config.Description,
			"redirectUrl": config.ReturnURL,
			"webhookUrl":  config.NotifyURL,
			"metadata":    map[string]string{"trade_no": config.TradeNo},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v2/payments")
	if err != nil {
		return nil, types.RequestError("mollie", err)
	}
	if resp.IsError() || result.Links.Checkout.Href == "" {
		return nil, types.RequestError("mollie", errors.New(resp.Status()+" "+result.Detail))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.Links.Checkout.Href,
		GatewayNo: result.Id,
	}, nil
}

func (m *Mollie) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := m.parseConfig(gateway.Config)
	return err
}

// HandleCallback Mollie 的 webhook 只携带支付 id，状态需主动查询
func (m *Mollie) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := m.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	paymentId := req.Values().Get("id")
	if paymentId == "" {
		return nil, types.NewVerificationError("mollie", "missing payment id", types.ErrCallbackMalformed)
	}

	var result payment
	resp, err := requester.NewRestyClient(m.baseURL()).R().
		SetContext(ctx).
		SetAuthToken(cfg.APIKey).
		SetResult(&result).
		SetError(&result).
		Get("/v2/payments/" + paymentId)
	if err != nil {
		return nil, types.RequestError("mollie", err)
	}
	if resp.IsError() {
		return nil, types.NewVerificationError("mollie", "payment lookup failed: "+resp.Status(), types.ErrSignatureMismatch)
	}

	var status types.NotifyStatus
	switch result.Status {
	case "paid":
		status = types.NotifyStatusSuccess
	case "open", "pending", "authorized":
		status = types.NotifyStatusPending
	case "canceled", "expired", "failed":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("mollie", "unhandled status "+result.Status, types.ErrCallbackUnsupported)
	}

	paid, err := types.ParseAmount("mollie", result.Amount.Value)
	if err != nil {
		return nil, err
	}
	notify := types.NewNotify(result.Metadata["trade_no"], result.Id, status)
	notify.Amount = paid
	notify.Currency = result.Amount.Currency
	notify.Reply = ""
	return notify, nil
}
