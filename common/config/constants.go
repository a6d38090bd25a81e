package config

import (
	"time"

	"github.com/google/uuid"
)

// 构建信息，发布时通过 -ldflags 覆盖
var (
	Version   = "v0.0.0"
	StartTime = time.Now().Unix()
)

var Debug = false

var IsMasterNode = true

var SessionSecret = uuid.New().String()

// 站点信息
var (
	SystemName    = "BlackCnote"
	ServerAddress = "http://localhost:3000"
	Language      = ""
	Footer        = ""
	Logo          = ""
)

// 登录注册。键名含 Secret、Token 的配置项不会由 GetOptions 返回
var (
	PasswordLoginEnabled     = true
	PasswordRegisterEnabled  = true
	EmailVerificationEnabled = false
	RegisterEnabled          = true

	EmailDomainRestrictionEnabled = false
	EmailDomainWhitelist          = []string{
		"gmail.com",
		"outlook.com",
		"hotmail.com",
		"icloud.com",
		"yahoo.com",
		"proton.me",
	}
)

var (
	SMTPServer  = ""
	SMTPPort    = 587
	SMTPAccount = ""
	SMTPFrom    = ""
	SMTPToken   = ""
)

var (
	OIDCAuthEnabled    = false
	OIDCClientId       = ""
	OIDCClientSecret   = ""
	OIDCIssuer         = ""
	OIDCScopes         = ""
	OIDCUsernameClaims = ""
)

// 站内记账币种
var (
	CurrencyText   = "USD"
	CurrencySymbol = "$"
)

// 充值
var (
	PaymentMinAmount   = 1
	DepositExpireHours = 3
)

// 推荐返佣
var (
	DepositCommissionEnabled  = true
	InvestCommissionEnabled   = true
	InterestCommissionEnabled = false
)

// 提现
var (
	WithdrawEnabled       = true
	WithdrawTwoFARequired = false
)

// 限流计数在存储中的清理周期
var RateLimitKeyExpirationDuration = 20 * time.Minute

const (
	RoleCommonUser = 1
	RoleAdminUser  = 10
	RoleRootUser   = 100
)

// 0 是零值，状态从 1 开始
const (
	UserStatusEnabled  = 1
	UserStatusDisabled = 2
)

// 用户的两个钱包：充值钱包用于投资，收益钱包用于提现
const (
	WalletDeposit  = "deposit_wallet"
	WalletInterest = "interest_wallet"
)
