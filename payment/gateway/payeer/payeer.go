package payeer

import (
	"context"
	"encoding/base64"

	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const checkoutURL = "https://payeer.com/merchant/"

type PayeerConfig struct {
	MerchantId string `json:"merchant_id" validate:"required"`
	SecretKey  string `json:"secret_key" validate:"required"`
}

type Payeer struct{}

func (p *Payeer) Name() string {
	return "Payeer"
}

func (p *Payeer) parseConfig(gatewayConfig string) (*PayeerConfig, error) {
	var cfg PayeerConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var requestSignFields = []string{"m_shop", "m_orderid", "m_amount", "m_curr", "m_desc"}

// RequestSign 支付表单的 m_sign
func RequestSign(fields map[string]string, secretKey string) string {
	return sign.UpperSHA256(sign.JoinFields(fields, requestSignFields, ":") + ":" + secretKey)
}

var notifySignFields = []string{
	"m_operation_id",
	"m_operation_ps",
	"m_operation_date",
	"m_operation_pay_date",
	"m_shop",
	"m_orderid",
	"m_amount",
	"m_curr",
	"m_desc",
	"m_status",
}

// NotifySign 状态通知的 m_sign，存在 m_params 时参与签名
func NotifySign(fields map[string]string, secretKey string) string {
	base := sign.JoinFields(fields, notifySignFields, ":")
	if params, ok := fields["m_params"]; ok {
		base += ":" + params
	}
	return sign.UpperSHA256(base + ":" + secretKey)
}

func (p *Payeer) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"m_shop":    cfg.MerchantId,
		"m_orderid": config.TradeNo,
		"m_amount":  config.Amount.StringFixed(2),
		"m_curr":    config.Currency,
		"m_desc":    base64.StdEncoding.EncodeToString([]byte(config.Description)),
	}
	params["m_sign"] = RequestSign(params, cfg.SecretKey)
	return &types.PayRequest{
		Type:   types.PayTypeForm,
		URL:    checkoutURL,
		Method: "GET",
		Params: params,
	}, nil
}

func (p *Payeer) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := p.parseConfig(gateway.Config)
	return err
}

func (p *Payeer) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	if fields["m_operation_id"] == "" || fields["m_sign"] == "" {
		return nil, types.NewVerificationError("payeer", "missing operation fields", types.ErrCallbackMalformed)
	}
	if !sign.Equal(NotifySign(fields, cfg.SecretKey), fields["m_sign"]) {
		return nil, types.SignatureError("payeer")
	}
	if fields["m_shop"] != cfg.MerchantId {
		return nil, types.NewVerificationError("payeer", "shop mismatch", types.ErrSignatureMismatch)
	}

	status := types.NotifyStatusSuccess
	if fields["m_status"] != "success" {
		status = types.NotifyStatusFailed
	}
	amount, err := types.ParseAmount("payeer", fields["m_amount"])
	if err != nil {
		return nil, err
	}
	notify := types.NewNotify(fields["m_orderid"], fields["m_operation_id"], status)
	notify.Amount = amount
	notify.Currency = fields["m_curr"]
	notify.Reply = fields["m_orderid"] + "|success"
	return notify, nil
}
