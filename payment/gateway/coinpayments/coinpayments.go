package coinpayments

import (
	"context"
	"strconv"

	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const checkoutURL = "https://www.coinpayments.net/index.php"

type CoinPaymentsConfig struct {
	MerchantId string `json:"merchant_id" validate:"required"`
	IPNSecret  string `json:"ipn_secret" validate:"required"`
}

type CoinPayments struct{}

func (c *CoinPayments) Name() string {
	return "CoinPayments"
}

func (c *CoinPayments) AmountPrecision() int32 {
	return 8
}

func (c *CoinPayments) parseConfig(gatewayConfig string) (*CoinPaymentsConfig, error) {
	var cfg CoinPaymentsConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *CoinPayments) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type:   types.PayTypeForm,
		URL:    checkoutURL,
		Method: "POST",
		Params: map[string]string{
			"cmd":           "_pay_simple",
			"reset":         "1",
			"merchant":      cfg.MerchantId,
			"item_name":     config.Description,
			"currency":      config.Currency,
			"amountf":       config.Amount.String(),
			"invoice":       config.TradeNo,
			"custom":        config.TradeNo,
			"ipn_url":       config.NotifyURL,
			"success_url":   config.ReturnURL,
			"cancel_url":    config.CancelURL,
			"email":         config.User.Email,
			"want_shipping": "0",
		},
	}, nil
}

func (c *CoinPayments) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := c.parseConfig(gateway.Config)
	return err
}

// VerifyHMAC 校验 HMAC 头：对原始报文做 HMAC-SHA512
func VerifyHMAC(body []byte, secret, received string) bool {
	return sign.Equal(sign.HMACSHA512Hex(body, secret), received)
}

// statusOf CoinPayments 状态码：>=100 或 2 为完成，<0 为失败
func statusOf(code int) types.NotifyStatus {
	switch {
	case code >= 100 || code == 2:
		return types.NotifyStatusSuccess
	case code < 0:
		return types.NotifyStatusFailed
	default:
		return types.NotifyStatusPending
	}
}

func (c *CoinPayments) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := c.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if len(req.Body) == 0 {
		return nil, types.NewVerificationError("coinpayments", "empty body", types.ErrCallbackMalformed)
	}
	if !VerifyHMAC(req.Body, cfg.IPNSecret, req.HeaderValue("HMAC")) {
		return nil, types.SignatureError("coinpayments")
	}

	fields := types.FlatValues(req.Values())
	if fields["ipn_mode"] != "hmac" || fields["merchant"] != cfg.MerchantId {
		return nil, types.NewVerificationError("coinpayments", "merchant mismatch", types.ErrSignatureMismatch)
	}
	code, err := strconv.Atoi(fields["status"])
	if err != nil {
		return nil, types.NewVerificationError("coinpayments", "invalid status", types.ErrCallbackMalformed)
	}
	amount, err := types.ParseAmount("coinpayments", fields["amount1"])
	if err != nil {
		return nil, err
	}

	tradeNo := fields["custom"]
	if tradeNo == "" {
		tradeNo = fields["invoice"]
	}
	notify := types.NewNotify(tradeNo, fields["txn_id"], statusOf(code))
	notify.Amount = amount
	notify.Currency = fields["currency1"]
	notify.Reply = "IPN OK"
	return notify, nil
}
