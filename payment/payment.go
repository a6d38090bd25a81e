package payment

import (
	"context"
	"sort"
	"sync"

	"blackcnote/model"
	"blackcnote/payment/gateway/alipay"
	"blackcnote/payment/gateway/binance"
	"blackcnote/payment/gateway/blockchain"
	"blackcnote/payment/gateway/btcpay"
	"blackcnote/payment/gateway/coinbase"
	"blackcnote/payment/gateway/coingate"
	"blackcnote/payment/gateway/coinpayments"
	"blackcnote/payment/gateway/flutterwave"
	"blackcnote/payment/gateway/instamojo"
	"blackcnote/payment/gateway/manual"
	"blackcnote/payment/gateway/mollie"
	"blackcnote/payment/gateway/nowpayments"
	"blackcnote/payment/gateway/payeer"
	"blackcnote/payment/gateway/paypal"
	"blackcnote/payment/gateway/paystack"
	"blackcnote/payment/gateway/perfectmoney"
	"blackcnote/payment/gateway/razorpay"
	"blackcnote/payment/gateway/skrill"
	"blackcnote/payment/gateway/sslcommerz"
	"blackcnote/payment/gateway/stripe"
	"blackcnote/payment/gateway/wxpay"
	"blackcnote/payment/types"
)

type PaymentProcessor interface {
	Name() string
	Pay(ctx context.Context, config *types.PayConfig, gatewayConfig string) (*types.PayRequest, error)
	CreatedPay(notifyURL string, gateway *model.Gateway) error
	HandleCallback(ctx context.Context, req *types.CallbackRequest, gatewayConfig string) (*types.PayNotify, error)
}

var (
	gatewaysMu sync.RWMutex
	Gateways   = make(map[string]PaymentProcessor)
)

func init() {
	Register("paypal", &paypal.PayPal{})
	Register("perfectmoney", &perfectmoney.PerfectMoney{})
	Register("stripe", &stripe.Stripe{})
	Register("skrill", &skrill.Skrill{})
	Register("payeer", &payeer.Payeer{})
	Register("coinpayments", &coinpayments.CoinPayments{})
	Register("coingate", &coingate.CoinGate{})
	Register("nowpayments", &nowpayments.NowPayments{})
	Register("blockchain", &blockchain.Blockchain{})
	Register("razorpay", &razorpay.Razorpay{})
	Register("paystack", &paystack.Paystack{})
	Register("flutterwave", &flutterwave.Flutterwave{})
	Register("mollie", &mollie.Mollie{})
	Register("btcpay", &btcpay.BTCPay{})
	Register("instamojo", &instamojo.Instamojo{})
	Register("sslcommerz", &sslcommerz.SSLCommerz{})
	Register("coinbase", &coinbase.Coinbase{})
	Register("binance", &binance.BinancePay{})
	Register("alipay", &alipay.Alipay{})
	Register("wxpay", &wxpay.WeChatPay{})
	Register("manual", &manual.Manual{})
}

// Register 以别名注册网关，重复注册会覆盖
func Register(alias string, processor PaymentProcessor) {
	gatewaysMu.Lock()
	defer gatewaysMu.Unlock()
	Gateways[alias] = processor
}

func GetProcessor(alias string) (PaymentProcessor, error) {
	gatewaysMu.RLock()
	defer gatewaysMu.RUnlock()
	processor, ok := Gateways[alias]
	if !ok {
		return nil, types.ErrGatewayNotFound
	}
	return processor, nil
}

// GatewayInfo 网关别名与显示名
type GatewayInfo struct {
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

func Aliases() []GatewayInfo {
	gatewaysMu.RLock()
	defer gatewaysMu.RUnlock()
	infos := make([]GatewayInfo, 0, len(Gateways))
	for alias, processor := range Gateways {
		infos = append(infos, GatewayInfo{Alias: alias, Name: processor.Name()})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Alias < infos[j].Alias
	})
	return infos
}
