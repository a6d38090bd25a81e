package types

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// PayConfig 发起支付时传给网关的参数
type PayConfig struct {
	// NotifyURL 异步通知地址（已包含 trade_no 查询参数）
	NotifyURL string
	// ReturnURL 支付完成后的跳转地址
	ReturnURL string
	// CancelURL 用户取消时的跳转地址
	CancelURL string
	// TradeNo 站内充值单号
	TradeNo string
	// Amount 实付金额（网关币种）
	Amount decimal.Decimal
	// Currency 网关币种
	Currency string
	// Description 商品描述
	Description string
	// User 付款用户信息
	User PayUser
	// ClientIP 用户 IP
	ClientIP string
}

type PayUser struct {
	Id       int
	Username string
	Email    string
}

// 支付指令类型
const (
	PayTypeRedirect = "redirect"
	PayTypeForm     = "form"
	PayTypeScript   = "script"
	PayTypeQRCode   = "qrcode"
	PayTypeManual   = "manual"
)

// PayRequest 网关返回给前端的支付指令
type PayRequest struct {
	Type   string            `json:"type"`
	URL    string            `json:"url,omitempty"`
	Method string            `json:"method,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	// QRCode 二维码图片 data URI
	QRCode string `json:"qrcode,omitempty"`
	// Address 加密货币收款地址等需要展示的文本
	Address string `json:"address,omitempty"`
	// GatewayNo 渠道侧单号，站内保存用于对账
	GatewayNo string `json:"-"`
}

// CallbackRequest 回调请求的快照，网关只依赖这里的数据
type CallbackRequest struct {
	Method   string
	Header   http.Header
	Query    url.Values
	Form     url.Values
	Body     []byte
	ClientIP string
	// TradeNo 通知地址上携带的站内单号（部分网关不回传自定义字段）
	TradeNo string
}

// Param 依次从表单与查询参数读取
func (r *CallbackRequest) Param(key string) string {
	if r.Form != nil {
		if v := r.Form.Get(key); v != "" {
			return v
		}
	}
	if r.Query != nil {
		return r.Query.Get(key)
	}
	return ""
}

func (r *CallbackRequest) HeaderValue(key string) string {
	if r.Header == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(key))
}

type NotifyStatus string

const (
	NotifyStatusSuccess NotifyStatus = "success"
	NotifyStatusPending NotifyStatus = "pending"
	NotifyStatusFailed  NotifyStatus = "failed"
	// NotifyStatusIgnored 只需应答的通知（退款、拒付等），不改变充值状态
	NotifyStatusIgnored NotifyStatus = "ignored"
)

// PayNotify 校验通过的回调结果
type PayNotify struct {
	TradeNo   string
	GatewayNo string
	// Amount 渠道报告的金额（网关币种），未报告时为 0
	Amount   decimal.Decimal
	Currency string
	Status   NotifyStatus
	// Reply 需要原样返回给渠道的应答
	Reply            string
	ReplyContentType string
}

// NewNotify 构造成功回调的默认应答
func NewNotify(tradeNo, gatewayNo string, status NotifyStatus) *PayNotify {
	return &PayNotify{
		TradeNo:          tradeNo,
		GatewayNo:        gatewayNo,
		Status:           status,
		Reply:            "success",
		ReplyContentType: "text/plain; charset=utf-8",
	}
}

// Values 返回表单参数，未解析时尝试从原始报文解析
func (r *CallbackRequest) Values() url.Values {
	if len(r.Form) > 0 {
		return r.Form
	}
	if len(r.Body) > 0 {
		if values, err := url.ParseQuery(string(r.Body)); err == nil {
			return values
		}
	}
	if r.Query != nil {
		return r.Query
	}
	return url.Values{}
}

// FlatValues 取每个键的第一个值
func FlatValues(values url.Values) map[string]string {
	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return flat
}

// ParseAmount 解析渠道回传金额，空串视为未报告
func ParseAmount(gateway, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, NewVerificationError(gateway, "invalid amount "+value, ErrCallbackMalformed)
	}
	return amount, nil
}

// currencyExponents 最小货币单位的小数位数，未列出的币种按 2 位处理
var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0, "KRW": 0, "MGA": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return exp
	}
	return 2
}

// MinorToMajor 将最小货币单位（如分）表示的金额转换为主单位
func MinorToMajor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -CurrencyExponent(currency))
}

// MajorToMinor 将主单位金额转换为最小货币单位，多余的小数位向上取整，保证实收不低于应付
func MajorToMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Ceil().IntPart()
}
