package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"blackcnote/common/requester"
	"blackcnote/common/utils"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL       = "https://api.blockchain.info"
	defaultConfirmations = 3
	satoshiExp           = -8
)

type BlockchainConfig struct {
	XPub   string `json:"xpub" validate:"required"`
	APIKey string `json:"api_key" validate:"required"`
	// Secret 用于派生每笔充值的回调密钥
	Secret        string `json:"secret" validate:"required,min=16"`
	Confirmations int    `json:"confirmations"`
	GapLimit      int    `json:"gap_limit"`
}

type Blockchain struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type receiveResponse struct {
	Address  string `json:"address"`
	Index    int    `json:"index"`
	Callback string `json:"callback"`
	Message  string `json:"message"`
}

func (b *Blockchain) Name() string {
	return "Blockchain"
}

func (b *Blockchain) AmountPrecision() int32 {
	return 8
}

func (b *Blockchain) parseConfig(gatewayConfig string) (*BlockchainConfig, error) {
	var cfg BlockchainConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.Confirmations <= 0 {
		cfg.Confirmations = defaultConfirmations
	}
	return &cfg, nil
}

func (b *Blockchain) baseURL() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return defaultBaseURL
}

// CallbackSecret 每笔充值独立的回调密钥
func CallbackSecret(tradeNo, secret string) string {
	return sign.HMACSHA256Hex([]byte(tradeNo), secret)
}

func callbackURL(notifyURL, tradeNo, secret string) (string, error) {
	u, err := url.Parse(notifyURL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	query.Set("secret", CallbackSecret(tradeNo, secret))
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (b *Blockchain) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	callback, err := callbackURL(config.NotifyURL, config.TradeNo, cfg.Secret)
	if err != nil {
		return nil, err
	}

	query := map[string]string{
		"xpub":     cfg.XPub,
		"key":      cfg.APIKey,
		"callback": callback,
	}
	if cfg.GapLimit > 0 {
		query["gap_limit"] = strconv.Itoa(cfg.GapLimit)
	}

	var receive receiveResponse
	resp, err := requester.NewRestyClient(b.baseURL()).R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&receive).
		SetError(&receive).
		Get("/v2/receive")
	if err != nil {
		return nil, types.RequestError("blockchain", err)
	}
	if resp.IsError() || receive.Address == "" {
		return nil, types.RequestError("blockchain", errors.New(resp.Status()+" "+receive.Message))
	}

	amount := config.Amount.Round(8)
	qrcode, err := utils.QRCodeDataURI(fmt.Sprintf("bitcoin:%s?amount=%s", receive.Address, amount.String()), 0)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type:      types.PayTypeQRCode,
		Address:   receive.Address,
		QRCode:    qrcode,
		Params:    map[string]string{"amount": amount.String(), "currency": config.Currency},
		GatewayNo: receive.Address,
	}, nil
}

func (b *Blockchain) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := b.parseConfig(gateway.Config)
	return err
}

func (b *Blockchain) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if req.TradeNo == "" {
		return nil, types.NewVerificationError("blockchain", "missing trade no", types.ErrCallbackMalformed)
	}
	if !sign.Equal(CallbackSecret(req.TradeNo, cfg.Secret), req.Param("secret")) {
		return nil, types.SignatureError("blockchain")
	}

	satoshi, err := strconv.ParseInt(req.Param("value"), 10, 64)
	if err != nil || satoshi <= 0 {
		return nil, types.NewVerificationError("blockchain", "invalid value", types.ErrCallbackMalformed)
	}
	confirmations, _ := strconv.Atoi(req.Param("confirmations"))

	status := types.NotifyStatusSuccess
	reply := "*ok*"
	if confirmations < cfg.Confirmations {
		// 未回复 *ok* 时 blockchain.info 会在下个区块继续通知
		status = types.NotifyStatusPending
		reply = "*waiting*"
	}

	notify := types.NewNotify(req.TradeNo, req.Param("address"), status)
	notify.Amount = decimal.New(satoshi, satoshiExp)
	notify.Currency = "BTC"
	notify.Reply = reply
	return notify, nil
}
