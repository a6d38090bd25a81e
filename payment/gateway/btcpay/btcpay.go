package btcpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"

	"github.com/shopspring/decimal"
)

type BTCPayConfig struct {
	ServerURL     string `json:"server_url" validate:"required,url"`
	StoreId       string `json:"store_id" validate:"required"`
	APIKey        string `json:"api_key" validate:"required"`
	WebhookSecret string `json:"webhook_secret" validate:"required"`
}

type BTCPay struct{}

type invoice struct {
	Id           string          `json:"id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	CheckoutLink string          `json:"checkoutLink"`
	Metadata     struct {
		OrderId string `json:"orderId"`
	} `json:"metadata"`
	Message string `json:"message"`
}

type webhookEvent struct {
	Type      string `json:"type"`
	InvoiceId string `json:"invoiceId"`
	StoreId   string `json:"storeId"`
}

func (b *BTCPay) Name() string {
	return "BTCPay Server"
}

func (b *BTCPay) parseConfig(gatewayConfig string) (*BTCPayConfig, error) {
	var cfg BTCPayConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	return &cfg, nil
}

func (b *BTCPay) invoicesPath(cfg *BTCPayConfig) string {
	return fmt.Sprintf("/api/v1/stores/%s/invoices", cfg.StoreId)
}

func (b *BTCPay) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result invoice
	resp, err := requester.NewRestyClient(cfg.ServerURL).R().
		SetContext(ctx).
		SetAuthScheme("token").
		SetAuthToken(cfg.APIKey).
		SetBody(map[string]any{
			"amount":   config.Amount.String(),
			"currency": config.Currency,
			"metadata": map[string]string{
				"orderId":    config.TradeNo,
				"buyerEmail": config.User.Email,
				"itemDesc":   config.Description,
			},
			"checkout": map[string]string{
				"redirectURL": config.ReturnURL,
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post(b.invoicesPath(cfg))
	if err != nil {
		return nil, types.RequestError("btcpay", err)
	}
	if resp.IsError() || result.CheckoutLink == "" {
		return nil, types.RequestError("btcpay", errors.New(resp.Status()+" "+result.Message))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.CheckoutLink,
		GatewayNo: result.Id,
	}, nil
}

func (b *BTCPay) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := b.parseConfig(gateway.Config)
	return err
}

// VerifySignature BTCPay-Sig = "sha256=" + HMAC-SHA256(原始报文)
func VerifySignature(body []byte, secret, header string) bool {
	received, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	return sign.Equal(sign.HMACSHA256Hex(body, secret), received)
}

func (b *BTCPay) fetchInvoice(ctx context.Context, cfg *BTCPayConfig, invoiceId string) (*invoice, error) {
	var result invoice
	resp, err := requester.NewRestyClient(cfg.ServerURL).R().
		SetContext(ctx).
		SetAuthScheme("token").
		SetAuthToken(cfg.APIKey).
		SetResult(&result).
		SetError(&result).
		Get(b.invoicesPath(cfg) + "/" + invoiceId)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, errors.New(resp.Status() + " " + result.Message)
	}
	return &result, nil
}

func (b *BTCPay) HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := b.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(req.Body, cfg.WebhookSecret, req.HeaderValue("BTCPay-Sig")) {
		return nil, types.SignatureError("btcpay")
	}

	var event webhookEvent
	if err = json.Unmarshal(req.Body, &event); err != nil || event.InvoiceId == "" {
		return nil, types.NewVerificationError("btcpay", "invalid payload", types.ErrCallbackMalformed)
	}
	if event.StoreId != "" && event.StoreId != cfg.StoreId {
		return nil, types.NewVerificationError("btcpay", "store mismatch", types.ErrSignatureMismatch)
	}

	inv, err := b.fetchInvoice(ctx, cfg, event.InvoiceId)
	if err != nil {
		return nil, types.RequestError("btcpay", err)
	}

	var status types.NotifyStatus
	switch inv.Status {
	case "Settled":
		status = types.NotifyStatusSuccess
	case "New", "Processing":
		status = types.NotifyStatusPending
	case "Expired", "Invalid":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("btcpay", "unhandled invoice status "+inv.Status, types.ErrCallbackUnsupported)
	}

	notify := types.NewNotify(inv.Metadata.OrderId, inv.Id, status)
	notify.Amount = inv.Amount
	notify.Currency = inv.Currency
	return notify, nil
}
