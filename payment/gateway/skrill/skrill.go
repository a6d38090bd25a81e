package skrill

import (
	"context"
	"strings"

	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const checkoutURL = "https://pay.skrill.com"

type SkrillConfig struct {
	PayToEmail string `json:"pay_to_email" validate:"required,email"`
	SecretWord string `json:"secret_word" validate:"required"`
}

type Skrill struct{}

func (s *Skrill) Name() string {
	return "Skrill"
}

func (s *Skrill) parseConfig(gatewayConfig string) (*SkrillConfig, error) {
	var cfg SkrillConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Skrill) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type:   types.PayTypeForm,
		URL:    checkoutURL,
		Method: "POST",
		Params: map[string]string{
			"pay_to_email":        cfg.PayToEmail,
			"transaction_id":      config.TradeNo,
			"amount":              config.Amount.StringFixed(2),
			"currency":            config.Currency,
			"status_url":          config.NotifyURL,
			"return_url":          config.ReturnURL,
			"cancel_url":          config.CancelURL,
			"language":            "EN",
			"prepare_payment":     "1",
			"detail1_description": "Deposit",
			"detail1_text":        config.Description,
			"pay_from_email":      config.User.Email,
		},
	}, nil
}

func (s *Skrill) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := s.parseConfig(gateway.Config)
	return err
}

// MD5Sig 计算 Skrill 状态通知的 md5sig
func MD5Sig(fields map[string]string, secretWord string) string {
	return sign.UpperMD5(fields["merchant_id"] +
		fields["transaction_id"] +
		sign.UpperMD5(secretWord) +
		fields["mb_amount"] +
		fields["mb_currency"] +
		fields["status"])
}

func VerifyMD5Sig(fields map[string]string, secretWord string) bool {
	return sign.Equal(MD5Sig(fields, secretWord), fields["md5sig"])
}

func (s *Skrill) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	if !VerifyMD5Sig(fields, cfg.SecretWord) {
		return nil, types.SignatureError("skrill")
	}
	if !strings.EqualFold(fields["pay_to_email"], cfg.PayToEmail) {
		return nil, types.NewVerificationError("skrill", "pay_to_email mismatch", types.ErrSignatureMismatch)
	}

	var status types.NotifyStatus
	switch fields["status"] {
	case "2":
		status = types.NotifyStatusSuccess
	case "0":
		status = types.NotifyStatusPending
	case "-1", "-2":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("skrill", "unhandled status "+fields["status"], types.ErrCallbackUnsupported)
	}

	amount, err := types.ParseAmount("skrill", fields["mb_amount"])
	if err != nil {
		return nil, err
	}
	notify := types.NewNotify(fields["transaction_id"], fields["mb_transaction_id"], status)
	notify.Amount = amount
	notify.Currency = fields["mb_currency"]
	notify.Reply = "OK"
	return notify, nil
}
