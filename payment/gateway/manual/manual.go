package manual

import (
	"context"

	"blackcnote/model"
	"blackcnote/payment/types"
)

type ManualConfig struct {
	// Instructions 展示给用户的转账说明
	Instructions string `json:"instructions" validate:"required"`
	// Fields 用户提交凭证时需要填写的字段，逗号分隔
	Fields string `json:"fields"`
}

// Manual 线下转账：只返回说明，由用户提交凭证后管理员审核入账
type Manual struct{}

func (m *Manual) Name() string {
	return "Manual"
}

func (m *Manual) parseConfig(gatewayConfig string) (*ManualConfig, error) {
	var cfg ManualConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (m *Manual) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := m.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type: types.PayTypeManual,
		Params: map[string]string{
			"instructions": cfg.Instructions,
			"fields":       cfg.Fields,
			"trade_no":     config.TradeNo,
			"amount":       config.Amount.String(),
			"currency":     config.Currency,
		},
	}, nil
}

func (m *Manual) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := m.parseConfig(gateway.Config)
	return err
}

func (m *Manual) HandleCallback(_ context.Context, _ *types.CallbackRequest, _ string) (*types.PayNotify, error) {
	return nil, types.NewVerificationError("manual", "manual deposits are reviewed by an administrator", types.ErrCallbackUnsupported)
}
