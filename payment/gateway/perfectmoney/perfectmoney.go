package perfectmoney

import (
	"context"
	"strings"

	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const checkoutURL = "https://perfectmoney.com/api/step1.asp"

type PerfectMoneyConfig struct {
	// WalletId 收款账户，如 U1234567
	WalletId    string `json:"wallet_id" validate:"required"`
	AccountName string `json:"account_name"`
	// Passphrase 备用密码（Alternate Passphrase）
	Passphrase string `json:"passphrase" validate:"required"`
}

type PerfectMoney struct{}

func (p *PerfectMoney) Name() string {
	return "Perfect Money"
}

func (p *PerfectMoney) parseConfig(gatewayConfig string) (*PerfectMoneyConfig, error) {
	var cfg PerfectMoneyConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *PerfectMoney) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type:   types.PayTypeForm,
		URL:    checkoutURL,
		Method: "POST",
		Params: map[string]string{
			"PAYEE_ACCOUNT":        cfg.WalletId,
			"PAYEE_NAME":           cfg.AccountName,
			"PAYMENT_ID":           config.TradeNo,
			"PAYMENT_AMOUNT":       config.Amount.StringFixed(2),
			"PAYMENT_UNITS":        config.Currency,
			"STATUS_URL":           config.NotifyURL,
			"PAYMENT_URL":          config.ReturnURL,
			"PAYMENT_URL_METHOD":   "POST",
			"NOPAYMENT_URL":        config.CancelURL,
			"NOPAYMENT_URL_METHOD": "POST",
			"SUGGESTED_MEMO":       config.Description,
			"BAGGAGE_FIELDS":       "IDENT",
			"IDENT":                config.TradeNo,
		},
	}, nil
}

func (p *PerfectMoney) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := p.parseConfig(gateway.Config)
	return err
}

var v2HashFields = []string{
	"PAYMENT_ID",
	"PAYEE_ACCOUNT",
	"PAYMENT_AMOUNT",
	"PAYMENT_UNITS",
	"PAYMENT_BATCH_NUM",
	"PAYER_ACCOUNT",
}

// V2Hash 计算 Perfect Money 的 V2_HASH
func V2Hash(fields map[string]string, passphrase string) string {
	base := sign.JoinFields(fields, v2HashFields, ":")
	base += ":" + sign.UpperMD5(passphrase) + ":" + fields["TIMESTAMPGMT"]
	return sign.UpperMD5(base)
}

func VerifyV2Hash(fields map[string]string, passphrase string) bool {
	return sign.Equal(V2Hash(fields, passphrase), fields["V2_HASH"])
}

func (p *PerfectMoney) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := p.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	if !VerifyV2Hash(fields, cfg.Passphrase) {
		return nil, types.SignatureError("perfectmoney")
	}
	if !strings.EqualFold(fields["PAYEE_ACCOUNT"], cfg.WalletId) {
		return nil, types.NewVerificationError("perfectmoney", "payee account mismatch", types.ErrSignatureMismatch)
	}
	amount, err := types.ParseAmount("perfectmoney", fields["PAYMENT_AMOUNT"])
	if err != nil {
		return nil, err
	}

	notify := types.NewNotify(fields["PAYMENT_ID"], fields["PAYMENT_BATCH_NUM"], types.NotifyStatusSuccess)
	notify.Amount = amount
	notify.Currency = fields["PAYMENT_UNITS"]
	return notify, nil
}
