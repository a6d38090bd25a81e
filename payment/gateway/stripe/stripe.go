package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/model"
	"blackcnote/payment/types"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	eventSessionCompleted      = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	eventSessionExpired        = "checkout.session.expired"
)

var webhookEvents = []string{
	eventSessionCompleted,
	eventAsyncPaymentSucceeded,
	eventAsyncPaymentFailed,
	eventSessionExpired,
}

type StripeConfig struct {
	SecretKey     string `json:"secret_key" validate:"required"`
	WebhookSecret string `json:"webhook_secret"`
}

type Stripe struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

func (s *Stripe) Name() string {
	return "Stripe"
}

func (s *Stripe) parseConfig(gatewayConfig string) (*StripeConfig, error) {
	var cfg StripeConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Stripe) newClient(secretKey string) *client.API {
	requester.InitHttpClient()
	backendConfig := &stripe.BackendConfig{HTTPClient: requester.HTTPClient}
	if s.BaseURL != "" {
		backendConfig.URL = stripe.String(s.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)
	return client.New(secretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
}

func (s *Stripe) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(config.ReturnURL),
		CancelURL:         stripe.String(config.CancelURL),
		ClientReferenceID: stripe.String(config.TradeNo),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(config.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(config.Description),
					},
					UnitAmount: stripe.Int64(types.MajorToMinor(config.Amount, config.Currency)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if config.User.Email != "" {
		params.CustomerEmail = stripe.String(config.User.Email)
	}
	params.AddMetadata("trade_no", config.TradeNo)
	params.Context = ctx

	session, err := s.newClient(cfg.SecretKey).CheckoutSessions.New(params)
	if err != nil {
		return nil, types.RequestError("stripe", err)
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       session.URL,
		GatewayNo: session.ID,
	}, nil
}

// CreatedPay 在 Stripe 注册 webhook 并回写签名密钥
func (s *Stripe) CreatedPay(notifyURL string, gateway *model.Gateway) error {
	cfg, err := s.parseConfig(gateway.Config)
	if err != nil {
		return err
	}
	if cfg.WebhookSecret != "" {
		return nil
	}

	params := &stripe.WebhookEndpointParams{
		URL:           stripe.String(notifyURL),
		EnabledEvents: stripe.StringSlice(webhookEvents),
	}
	endpoint, err := s.newClient(cfg.SecretKey).WebhookEndpoints.New(params)
	if err != nil {
		return types.RequestError("stripe", err)
	}
	if endpoint.Secret == "" {
		return types.RequestError("stripe", errors.New("webhook endpoint returned no secret"))
	}

	raw := make(map[string]any)
	if err = json.Unmarshal([]byte(gateway.Config), &raw); err != nil {
		return err
	}
	raw["webhook_secret"] = endpoint.Secret
	updated, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return gateway.UpdateConfig(string(updated))
}

// ParseWebhook 校验 Stripe-Signature 并解析事件
func ParseWebhook(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (s *Stripe) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookSecret == "" {
		return nil, types.NewVerificationError("stripe", "webhook secret not configured", types.ErrConfigInvalid)
	}

	event, err := ParseWebhook(req.Body, req.HeaderValue("Stripe-Signature"), cfg.WebhookSecret)
	if err != nil {
		return nil, types.NewVerificationError("stripe", err.Error(), types.ErrSignatureMismatch)
	}

	var status types.NotifyStatus
	switch string(event.Type) {
	case eventSessionCompleted:
		status = types.NotifyStatusPending
	case eventAsyncPaymentSucceeded:
		status = types.NotifyStatusSuccess
	case eventAsyncPaymentFailed, eventSessionExpired:
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("stripe", "unhandled event "+string(event.Type), types.ErrCallbackUnsupported)
	}

	var session stripe.CheckoutSession
	if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, types.NewVerificationError("stripe", "invalid session payload", types.ErrCallbackMalformed)
	}
	// 同步支付方式在 completed 事件中即已付款
	if status == types.NotifyStatusPending && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = types.NotifyStatusSuccess
	}

	tradeNo := session.ClientReferenceID
	if tradeNo == "" {
		tradeNo = session.Metadata["trade_no"]
	}
	notify := types.NewNotify(tradeNo, session.ID, status)
	notify.Amount = types.MinorToMajor(session.AmountTotal, string(session.Currency))
	notify.Currency = string(session.Currency)
	notify.Reply = `{"received":true}`
	notify.ReplyContentType = "application/json"
	return notify, nil
}
