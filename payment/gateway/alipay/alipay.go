package alipay

import (
	"context"

	"blackcnote/model"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
	"github.com/smartwalle/alipay/v3"
)

type AlipayConfig struct {
	AppId      string `json:"app_id" validate:"required"`
	PrivateKey string `json:"private_key" validate:"required"`
	// PublicKey 支付宝公钥，用于异步通知验签
	PublicKey string `json:"public_key" validate:"required"`
	Sandbox   bool   `json:"sandbox"`
}

type Alipay struct{}

func (a *Alipay) Name() string {
	return "支付宝"
}

func (a *Alipay) parseConfig(gatewayConfig string) (*AlipayConfig, error) {
	var cfg AlipayConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (a *Alipay) newClient(cfg *AlipayConfig) (*alipay.Client, error) {
	client, err := alipay.New(cfg.AppId, cfg.PrivateKey, !cfg.Sandbox)
	if err != nil {
		return nil, err
	}
	if err = client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, err
	}
	return client, nil
}

func (a *Alipay) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := a.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return nil, types.RequestError("alipay", err)
	}

	var p = alipay.TradePagePay{}
	p.NotifyURL = config.NotifyURL
	p.ReturnURL = config.ReturnURL
	p.Subject = config.Description
	p.OutTradeNo = config.TradeNo
	p.TotalAmount = config.Amount.StringFixed(2)
	p.ProductCode = "FAST_INSTANT_TRADE_PAY"

	payURL, err := client.TradePagePay(p)
	if err != nil {
		return nil, types.RequestError("alipay", err)
	}
	return &types.PayRequest{
		Type: types.PayTypeRedirect,
		URL:  payURL.String(),
	}, nil
}

func (a *Alipay) CreatedPay(_ string, gateway *model.Gateway) error {
	cfg, err := a.parseConfig(gateway.Config)
	if err != nil {
		return err
	}
	if _, err = a.newClient(cfg); err != nil {
		return types.ErrConfigInvalid
	}
	return nil
}

func (a *Alipay) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := a.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	client, err := a.newClient(cfg)
	if err != nil {
		return nil, err
	}

	notification, err := client.DecodeNotification(req.Values())
	if err != nil {
		return nil, types.NewVerificationError("alipay", err.Error(), types.ErrSignatureMismatch)
	}
	if notification.AppId != cfg.AppId {
		return nil, types.NewVerificationError("alipay", "app_id mismatch", types.ErrSignatureMismatch)
	}

	var status types.NotifyStatus
	switch notification.TradeStatus {
	case alipay.TradeStatusSuccess, alipay.TradeStatusFinished:
		status = types.NotifyStatusSuccess
	case alipay.TradeStatusWaitBuyerPay:
		status = types.NotifyStatusPending
	case alipay.TradeStatusClosed:
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("alipay", "unhandled trade status "+string(notification.TradeStatus), types.ErrCallbackUnsupported)
	}

	amount, err := decimal.NewFromString(notification.TotalAmount)
	if err != nil {
		return nil, types.NewVerificationError("alipay", "invalid total_amount", types.ErrCallbackMalformed)
	}
	notify := types.NewNotify(notification.OutTradeNo, notification.TradeNo, status)
	notify.Amount = amount
	return notify, nil
}
