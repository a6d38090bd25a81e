package razorpay

import (
	"context"
	"fmt"
	"strings"

	"blackcnote/model"
	"blackcnote/payment/types"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const checkoutScript = "https://checkout.razorpay.com/v1/checkout.js"

type RazorpayConfig struct {
	KeyId     string `json:"key_id" validate:"required"`
	KeySecret string `json:"key_secret" validate:"required"`
}

type Razorpay struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

func (r *Razorpay) Name() string {
	return "Razorpay"
}

func (r *Razorpay) parseConfig(gatewayConfig string) (*RazorpayConfig, error) {
	var cfg RazorpayConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Razorpay) newClient(cfg *RazorpayConfig) *razorpay.Client {
	client := razorpay.NewClient(cfg.KeyId, cfg.KeySecret)
	if r.BaseURL != "" {
		// 各资源共用同一个 Request
		client.Order.Request.BaseURL = r.BaseURL
	}
	return client
}

func (r *Razorpay) Pay(_ context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := r.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	order, err := r.newClient(cfg).Order.Create(map[string]interface{}{
		"amount":   types.MajorToMinor(config.Amount, config.Currency),
		"currency": config.Currency,
		"receipt":  config.TradeNo,
		"notes":    map[string]string{"trade_no": config.TradeNo},
	}, nil)
	if err != nil {
		return nil, types.RequestError("razorpay", err)
	}
	orderId, _ := order["id"].(string)
	if orderId == "" {
		return nil, types.RequestError("razorpay", fmt.Errorf("order create returned no id"))
	}

	return &types.PayRequest{
		Type:   types.PayTypeScript,
		URL:    checkoutScript,
		Method: "POST",
		Params: map[string]string{
			"key":           cfg.KeyId,
			"amount":        fmt.Sprintf("%d", types.MajorToMinor(config.Amount, config.Currency)),
			"currency":      config.Currency,
			"order_id":      orderId,
			"description":   config.Description,
			"prefill.email": config.User.Email,
			"callback_url":  config.NotifyURL,
		},
		GatewayNo: orderId,
	}, nil
}

func (r *Razorpay) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := r.parseConfig(gateway.Config)
	return err
}

// VerifyCheckoutSignature 校验 Checkout 回传的 razorpay_signature
func VerifyCheckoutSignature(orderId, paymentId, signature, keySecret string) bool {
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderId,
		"razorpay_payment_id": paymentId,
	}, signature, keySecret)
}

func (r *Razorpay) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := r.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	orderId := req.Param("razorpay_order_id")
	paymentId := req.Param("razorpay_payment_id")
	if orderId == "" || paymentId == "" {
		return nil, types.NewVerificationError("razorpay", "missing payment fields", types.ErrCallbackMalformed)
	}
	if !VerifyCheckoutSignature(orderId, paymentId, req.Param("razorpay_signature"), cfg.KeySecret) {
		return nil, types.SignatureError("razorpay")
	}

	// 以订单查询结果为准
	order, err := r.newClient(cfg).Order.Fetch(orderId, nil, nil)
	if err != nil {
		return nil, types.RequestError("razorpay", err)
	}
	receipt, _ := order["receipt"].(string)
	orderStatus, _ := order["status"].(string)
	currency, _ := order["currency"].(string)
	amountPaid, _ := order["amount_paid"].(float64)

	status := types.NotifyStatusPending
	if orderStatus == "paid" {
		status = types.NotifyStatusSuccess
	}
	notify := types.NewNotify(receipt, orderId, status)
	notify.Amount = types.MinorToMajor(int64(amountPaid), currency)
	notify.Currency = strings.ToUpper(currency)
	return notify, nil
}
