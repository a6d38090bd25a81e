package sslcommerz

import (
	"context"
	"errors"
	"strings"

	"blackcnote/common/requester"
	"blackcnote/common/utils"
	"blackcnote/model"
	"blackcnote/payment/sign"
	"blackcnote/payment/types"
)

const (
	liveBaseURL    = "https://securepay.sslcommerz.com"
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
)

type SSLCommerzConfig struct {
	StoreId       string `json:"store_id" validate:"required"`
	StorePassword string `json:"store_password" validate:"required"`
	Sandbox       bool   `json:"sandbox"`
}

type SSLCommerz struct {
	// BaseURL 覆盖 API 地址，测试使用
	BaseURL string
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (s *SSLCommerz) Name() string {
	return "SSLCommerz"
}

func (s *SSLCommerz) parseConfig(gatewayConfig string) (*SSLCommerzConfig, error) {
	var cfg SSLCommerzConfig
	if err := types.ParseConfig(gatewayConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SSLCommerz) baseURL(sandbox bool) string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	if sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

func (s *SSLCommerz) Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}

	var result sessionResponse
	resp, err := requester.NewRestyClient(s.baseURL(cfg.Sandbox)).R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"store_id":         cfg.StoreId,
			"store_passwd":     cfg.StorePassword,
			"total_amount":     config.Amount.StringFixed(2),
			"currency":         config.Currency,
			"tran_id":          config.TradeNo,
			"success_url":      config.ReturnURL,
			"fail_url":         config.CancelURL,
			"cancel_url":       config.CancelURL,
			"ipn_url":          config.NotifyURL,
			"cus_name":         config.User.Username,
			"cus_email":        config.User.Email,
			"cus_add1":         "N/A",
			"cus_city":         "N/A",
			"cus_country":      "N/A",
			"cus_phone":        "N/A",
			"shipping_method":  "NO",
			"product_name":     utils.FirstNonEmpty(config.Description, "Deposit"),
			"product_category": "Deposit",
			"product_profile":  "general",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/gwprocess/v4/api.php")
	if err != nil {
		return nil, types.RequestError("sslcommerz", err)
	}
	if resp.IsError() || result.Status != "SUCCESS" {
		return nil, types.RequestError("sslcommerz", errors.New(resp.Status()+" "+result.FailedReason))
	}
	return &types.PayRequest{
		Type:      types.PayTypeRedirect,
		URL:       result.GatewayPageURL,
		GatewayNo: result.SessionKey,
	}, nil
}

func (s *SSLCommerz) CreatedPay(_ string, gateway *model.Gateway) error {
	_, err := s.parseConfig(gateway.Config)
	return err
}

// VerifySign 取 verify_key 列出的字段并加入 md5(store_passwd)，按键排序拼接后做 MD5
func VerifySign(fields map[string]string, storePassword string) bool {
	keys := strings.Split(fields["verify_key"], ",")
	if fields["verify_key"] == "" || fields["verify_sign"] == "" {
		return false
	}
	data := make(map[string]string, len(keys)+1)
	for _, k := range keys {
		data[k] = fields[k]
	}
	data["store_passwd"] = sign.MD5Hex(storePassword)

	sorted := sign.SortedKeys(data, false)
	pairs := make([]string, len(sorted))
	for i, k := range sorted {
		pairs[i] = k + "=" + data[k]
	}
	return sign.Equal(sign.MD5Hex(strings.Join(pairs, "&")), fields["verify_sign"])
}

func (s *SSLCommerz) HandleCallback(_ context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error) {
	cfg, err := s.parseConfig(gatewayConfig)
	if err != nil {
		return nil, err
	}
	fields := types.FlatValues(req.Values())
	if !VerifySign(fields, cfg.StorePassword) {
		return nil, types.SignatureError("sslcommerz")
	}
	// verify_key 必须覆盖金额与单号
	for _, required := range []string{"tran_id", "amount", "status"} {
		if !strings.Contains(","+fields["verify_key"]+",", ","+required+",") {
			return nil, types.NewVerificationError("sslcommerz", required+" not signed", types.ErrCallbackMalformed)
		}
	}

	var status types.NotifyStatus
	switch fields["status"] {
	case "VALID", "VALIDATED":
		status = types.NotifyStatusSuccess
	case "FAILED", "CANCELLED", "UNATTEMPTED", "EXPIRED":
		status = types.NotifyStatusFailed
	default:
		return nil, types.NewVerificationError("sslcommerz", "unhandled status "+fields["status"], types.ErrCallbackUnsupported)
	}

	amount, err := types.ParseAmount("sslcommerz", fields["amount"])
	if err != nil {
		return nil, err
	}
	notify := types.NewNotify(fields["tran_id"], fields["val_id"], status)
	notify.Amount = amount
	notify.Currency = fields["currency"]
	return notify, nil
}
