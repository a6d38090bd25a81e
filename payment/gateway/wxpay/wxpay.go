package wxpay

import (
	"bytes"
	"context"
	"crypto/rsa"
	"net/http"

	"blackcnote/common/requester"
	"blackcnote/common/utils"
	"blackcnote/model"
	"blackcnote/payment/types"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	wxutils "github.com/wechatpay-apiv3/wechatpay-go/utils"
)

type WeChatPayConfig struct {
	AppId      string `json:"app_id" validate:"required"`
	MchId      string `json:"mch_id" validate:"required"`
	CertSerial string `json:"cert_serial" validate:"required"`
	PrivateKey string `json:"private_key" validate:"required"`
	APIv3Key   string `json:"api_v3_key" validate:"required,len=32"`
	// PublicKeyId 与 PublicKey 为微信支付公钥模式，留空时使用平台证书自动下载
	PublicKeyId string `json:"public_key_id"`
	PublicKey   string `json:"public_key"`
}

type WeChatPay struct{}

func (w *WeChatPay) Name() string {
	return "微信支付"
}

func (w *WeChatPay) parseConfig(gatewayConfig string) (*WeChatPayConfig, error) {
	var cfg WeChatPayConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (w *WeChatPay) verifier(ctx context.Context, cfg *WeChatPayConfig, privateKey *rsa.PrivateKey) (auth.Verifier, error) {
	if cfg.PublicKey != "" {
		publicKey, err := wxutils.LoadPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		return verifiers.NewSHA256WithRSAPubkeyVerifier(cfg.PublicKeyId, *publicKey), nil
	}

	mgr := downloader.MgrInstance()
	if !mgr.HasDownloader(ctx, cfg.MchId) {
		if err := mgr.RegisterDownloaderWithPrivateKey(ctx, privateKey, cfg.CertSerial, cfg.MchId, cfg.APIv3Key); err != nil {
			return nil, err
		}
	}
	return verifiers.NewSHA256WithRSAVerifier(mgr.GetCertificateVisitor(cfg.MchId)), nil
}

func (w *WeChatPay) newClient(ctx context.Context, cfg *WeChatPayConfig) (*core.Client, error) {
	privateKey, err := wxutils.LoadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	verifier, err := w.verifier(ctx, cfg, privateKey)
	if err != nil {
		return nil, err
	}
	requester.InitHttpClient()
	return core.NewClient(ctx,
		option.WithMerchantCredential(cfg.MchId, cfg.CertSerial, privateKey),
		option.WithVerifier(verifier),
		option.WithHTTPClient(requester.HTTPClient),
	)
}

func (w *WeChatPay) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := w.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	client, err := w.newClient(ctx, cfg)
	if err != nil {
		return nil, types.RequestError("wxpay", err)
	}

	svc := native.NativeApiService{Client: client}
	resp, _, err := svc.Prepay(ctx, native.PrepayRequest{
		Appid:       core.String(cfg.AppId),
		Mchid:       core.String(cfg.MchId),
		Description: core.String(config.Description),
		OutTradeNo:  core.String(config.TradeNo),
		NotifyUrl:   core.String(config.NotifyURL),
		Amount: &native.Amount{
			Total:    core.Int64(types.MajorToMinor(config.Amount, "CNY")),
			Currency: core.String("CNY"),
		},
	})
	if err != nil {
		return nil, types.RequestError("wxpay", err)
	}
	codeURL := *resp.CodeUrl
	qrcode, err := utils.QRCodeDataURI(codeURL, 0)
	if err != nil {
		return nil, err
	}
	return &types.PayRequest{
		Type:   types.PayTypeQRCode,
		URL:    codeURL,
		QRCode: qrcode,
	}, nil
}

func (w *WeChatPay) CreatedPay(_ string, gateway *model.Gateway) error {
	cfg, err := w.parseConfig(gateway.Config)
	if err != nil {
		return err
	}
	if _, err = wxutils.LoadPrivateKey(cfg.PrivateKey); err != nil {
		return types.ErrConfigInvalid
	}
	return nil
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (w *WeChatPay) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := w.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	privateKey, err := wxutils.LoadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	verifier, err := w.verifier(ctx, cfg, privateKey)
	if err != nil {
		return nil, types.RequestError("wxpay", err)
	}
	handler, err := notify.NewRSANotifyHandler(cfg.APIv3Key, verifier)
	if err != nil {
		return nil, err
	}

	// 通知处理器需要 *http.Request，这里按快照重建
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = req.Header.Clone()

	transaction := new(payments.Transaction)
	if _, err = handler.ParseNotifyRequest(ctx, httpReq, transaction); err != nil {
		return nil, types.NewVerificationError("wxpay", err.Error(), types.ErrSignatureMismatch)
	}
	if transaction.Mchid != nil && *transaction.Mchid != cfg.MchId {
		return nil, types.NewVerificationError("wxpay", "mchid mismatch", types.ErrSignatureMismatch)
	}

	var status types.NotifyStatus
	switch stringValue(transaction.TradeState) {
	case "SUCCESS":
		status = types.NotifyStatusSuccess
	case "NOTPAY", "USERPAYING":
		status = types.NotifyStatusPending
	case "CLOSED", "PAYERROR", "REVOKED":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("wxpay", "unhandled trade state "+stringValue(transaction.TradeState), types.ErrCallbackUnsupported)
	}

	result := types.NewNotify(stringValue(transaction.OutTradeNo), stringValue(transaction.TransactionId), status)
	if transaction.Amount != nil && transaction.Amount.Total != nil {
		result.Amount = types.MinorToMajor(*transaction.Amount.Total, "CNY")
	}
	result.Reply = `{"code":"SUCCESS","message":"成功"}`
	result.ReplyContentType = "application/json"
	return result, nil
}
