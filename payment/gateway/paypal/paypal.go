package paypal

import (
	"context"
	"errors"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/types"
)

const (
	liveCheckoutURL  = "https://www.paypal.com/cgi-bin/webscr"
	sandboxCheckout  = "https://www.sandbox.paypal.com/cgi-bin/webscr"
	liveVerifyURL    = "https://ipnpb.paypal.com/cgi-bin/webscr"
	sandboxVerifyURL = "https://ipnpb.sandbox.paypal.com/cgi-bin/webscr"
)

type PayPalConfig struct {
	Business string `json:"business" validate:"required"`
	Sandbox  bool   `json:"sandbox"`
}

// PayPal 使用 Website Payments Standard 表单与 IPN 回传校验
type PayPal struct {
	// VerifyURL 覆盖 IPN 校验地址，测试使用
	VerifyURL string
}

func (p *PayPal) Name() string {
	return "PayPal"
}

func (p *PayPal) parseConfig(gatewayConfig string) (*PayPalConfig, error) {
	var cfg PayPalConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *PayPal) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	checkoutURL := liveCheckoutURL
	if cfg.Sandbox {
		checkoutURL = sandboxCheckout
	}
	return &types.PayRequest{
		Type:   types.PayTypeForm,
		URL:    checkoutURL,
		Method: "POST",
		Params: map[string]string{
			"cmd":           "_xclick",
			"business":      cfg.Business,
			"item_name":     config.Description,
			"amount":        config.Amount.StringFixed(2),
			"currency_code": config.Currency,
			"custom":        config.TradeNo,
			"invoice":       config.TradeNo,
			"notify_url":    config.NotifyURL,
			"return":        config.ReturnURL,
			"cancel_return": config.CancelURL,
			"no_shipping":   "1",
			"no_note":       "1",
			"charset":       "utf-8",
		},
	}, nil
}

func (p *PayPal) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := p.parseConfig(gateway.Config)
	return err
}

func (p *PayPal) verifyURL(sandbox bool) string {
	if p.VerifyURL != "" {
		return p.VerifyURL
	}
	if sandbox {
		return sandboxVerifyURL
	}
	return liveVerifyURL
}

// validateIPN 将原始报文加上 cmd=_notify-validate 回传给 PayPal
func (p *PayPal) validateIPN(ctx context.Context, verifyURL string, body string) (bool, error) {
	resp, err := requester.NewRestyClient("").R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody("cmd=_notify-validate&" + body).
		Post(verifyURL)
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, errors.New("ipn validation http status " + resp.Status())
	}
	return strings.TrimSpace(resp.String()) == "VERIFIED", nil
}

func (p *PayPal) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	values := req.Values()
	body := string(req.Body)
	if body == "" {
		body = values.Encode()
	}
	verified, err := p.validateIPN(ctx, p.verifyURL(cfg.Sandbox), body)
	if err != nil {
		return nil, types.RequestError("paypal", err)
	}
	if !verified {
		return nil, types.NewVerificationError("paypal", "ipn not verified", types.ErrSignatureMismatch)
	}

	receiver := values.Get("receiver_email")
	if receiver == "" {
		receiver = values.Get("business")
	}
	if !strings.EqualFold(receiver, cfg.Business) {
		return nil, types.NewVerificationError("paypal", "receiver mismatch", types.ErrSignatureMismatch)
	}

	amount, err := types.ParseAmount("paypal", values.Get("mc_gross"))
	if err != nil {
		return nil, err
	}

	var status types.NotifyStatus
	switch values.Get("payment_status") {
	// 退款与拒付需人工处理，应答后 PayPal 停止重发
	case "Refunded", "Reversed", "Canceled_Reversal":
		status = types.NotifyStatusIgnored
	case "Completed":
		status = types.NotifyStatusSuccess
	case "Pending", "In-Progress":
		status = types.NotifyStatusPending
	case "Failed", "Denied", "Expired", "Voided":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("paypal", "unhandled payment status "+values.Get("payment_status"), types.ErrCallbackUnsupported)
	}

	notify := types.NewNotify(values.Get("custom"), values.Get("txn_id"), status)
	notify.Amount = amount
	notify.Currency = values.Get("mc_currency")
	notify.Reply = ""
	return notify, nil
}
