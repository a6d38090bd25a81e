package flutterwave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.flutterwave.com"

type FlutterwaveConfig struct {
	SecretKey  string `json:"secret_key" validate:"required"`
	SecretHash string `json:"secret_hash" validate:"required"`
}

type Flutterwave struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type paymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type transaction struct {
	Id       int64           `json:"id"`
	TxRef    string          `json:"tx_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

type verifyResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    transaction `json:"data"`
}

type webhookEvent struct {
	Event string      `json:"event"`
	Data  transaction `json:"data"`
}

func (f *Flutterwave) Name() string {
	return "Flutterwave"
}

func (f *Flutterwave) parseConfig(gatewayConfig string) (*FlutterwaveConfig, error) {
	var cfg FlutterwaveConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (f *Flutterwave) baseURL() string {
	if f.BaseURL != "" {
		return f.BaseURL
	}
	return defaultBaseURL
}

func (f *Flutterwave) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := f.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result paymentResponse
	resp, err := requester.NewRestyClient(f.baseURL()).R().
		SetContext(ctx).
		SetAuthToken(cfg.SecretKey).
		SetBody(map[string]any{
			"tx_ref":       config.TradeNo,
			"amount":       config.Amount.StringFixed(2),
			"currency":     config.Currency,
			"redirect_url": config.ReturnURL,
			"customer": map[string]string{
				"email": config.User.Email,
				"name":  config.User.Username,
			},
			"customizations": map[string]string{
				"title": config.Description,
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v3/payments")
	if err != nil {
		return nil, types.RequestError("flutterwave", err)
	}
	if resp.IsError() || result.Status != "success" {
		return nil, types.RequestError("flutterwave", errors.New(resp.Status()+" "+result.Message))
	}
	return &types.PayRequest{
		Type: types.PayTypeRedirect,
		URL:  result.Data.Link,
	}, nil
}

func (f *Flutterwave) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := f.parseConfig(gateway.Config)
	return err
}

func (f *Flutterwave) verifyTransaction(ctx context.Context, secretKey string, id int64) (*transaction, error) {
	var result verifyResponse
	resp, err := requester.NewRestyClient(f.baseURL()).R().
		SetContext(ctx).
		SetAuthToken(secretKey).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("/v3/transactions/%d/verify", id))
	if err != nil {
		return nil, err
	}
	if resp.IsError() || result.Status != "success" {
		return nil, errors.New(resp.Status() + " " + result.Message)
	}
	return &result.Data, nil
}

func (f *Flutterwave) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := f.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if !sign.EqualExact(cfg.SecretHash, req.HeaderValue("verif-hash")) {
		return nil, types.SignatureError("flutterwave")
	}

	var event webhookEvent
	if err = json.Unmarshal(req.Body, &event); err != nil || event.Data.Id == 0 {
		return nil, types.NewVerificationError("flutterwave", "invalid payload", types.ErrCallbackMalformed)
	}
	if event.Event != "charge.completed" {
		return nil, types.NewVerificationError("flutterwave", "unhandled event "+event.Event, types.ErrCallbackUnsupported)
	}

	// 回调内容仅作线索，以交易查询结果为准
	trx, err := f.verifyTransaction(ctx, cfg.SecretKey, event.Data.Id)
	if err != nil {
		return nil, types.RequestError("flutterwave", err)
	}
	if trx.TxRef != event.Data.TxRef {
		return nil, types.NewVerificationError("flutterwave", "tx_ref mismatch", types.ErrSignatureMismatch)
	}

	status := types.NotifyStatusPending
	switch trx.Status {
	case "successful":
		status = types.NotifyStatusSuccess
	case "failed", "cancelled":
		status = types.NotifyStatusFailed
	}
	notify := types.NewNotify(trx.TxRef, strconv.FormatInt(trx.Id, 10), status)
	notify.Amount = trx.Amount
	notify.Currency = trx.Currency
	return notify, nil
}
